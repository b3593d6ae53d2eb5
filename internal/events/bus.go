package events

import (
	"sync"
	"time"

	"maintenance_audit/audit"
)

// RunCompleted is published after every audit run, successful or not.
type RunCompleted struct {
	RunID      string
	Trigger    string
	Source     string
	ReportPath string
	Report     *audit.Report
	Err        error
	FinishedAt time.Time
}

// Bus provides simple in-process pub/sub. Slow subscribers miss events
// rather than blocking publishers.
type Bus struct {
	mu     sync.RWMutex
	subs   []chan any
	closed bool
}

func NewBus() *Bus { return &Bus{} }

func (b *Bus) Subscribe() <-chan any {
	ch := make(chan any, 16)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.subs = append(b.subs, ch)
	return ch
}

func (b *Bus) Publish(ev any) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Close ends every subscription.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}
