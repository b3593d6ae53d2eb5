package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"maintenance_audit/config"
	"maintenance_audit/formatting"
	"maintenance_audit/internal/events"
)

// Message represents outbound alert.
type Message struct {
	Text string `json:"text"`
}

// Notifier posts alarm digests for completed runs.
type Notifier struct {
	botID  string
	url    string
	tier   string
	client *http.Client
}

func New(cfg config.Config) *Notifier {
	return &Notifier{
		botID:  cfg.GroupMeBotID,
		url:    cfg.GroupMeURL,
		tier:   cfg.Audit.AlarmTier,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Enabled reports whether a bot is configured.
func (n *Notifier) Enabled() bool { return n.botID != "" }

// SendGroupMe posts msg to the GroupMe bot if configured.
func (n *Notifier) SendGroupMe(ctx context.Context, msg Message) error {
	if !n.Enabled() {
		return nil
	}
	payload := map[string]string{"text": msg.Text, "bot_id": n.botID}
	buf, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("groupme status %d", resp.StatusCode)
	}
	return nil
}

// HandleRun sends the digest of a successful run that raised alarms.
// It reports whether a message was sent.
func (n *Notifier) HandleRun(ctx context.Context, ev events.RunCompleted) (bool, error) {
	if !n.Enabled() || ev.Err != nil || ev.Report == nil {
		return false, nil
	}
	text := formatting.BuildAlarmDigest(formatting.DigestDetails{
		RunID:       ev.RunID,
		Tier:        n.tier,
		Alarms:      ev.Report.Alarms,
		GeneratedAt: ev.FinishedAt,
		ReportURL:   ev.ReportPath,
	})
	if text == "" {
		return false, nil
	}
	if err := n.SendGroupMe(ctx, Message{Text: text}); err != nil {
		return false, err
	}
	return true, nil
}

// Run consumes bus events until ctx is done or the subscription closes.
func (n *Notifier) Run(ctx context.Context, sub <-chan any) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-sub:
			if !ok {
				return nil
			}
			rc, isRun := ev.(events.RunCompleted)
			if !isRun {
				continue
			}
			sent, err := n.HandleRun(ctx, rc)
			if err != nil {
				zap.L().Warn("groupme notify failed", zap.String("run_id", rc.RunID), zap.Error(err))
				continue
			}
			if sent {
				zap.L().Info("alarm digest sent", zap.String("run_id", rc.RunID))
			}
		}
	}
}
