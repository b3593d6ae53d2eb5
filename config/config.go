package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Config holds service configuration derived from environment variables and
// the optional config file.
type Config struct {
	InputPath     string
	SheetName     string
	WorkDir       string
	ReportPath    string
	DBPath        string
	HTTPPort      string
	WatchEnabled  bool
	QueueSize     int
	RunTimeoutSec int
	GroupMeBotID  string
	GroupMeURL    string
	StrictConfig  bool
	ConfigPath    string
	Audit         AuditConfig
}

type fileConfig struct {
	InputPath  string          `json:"input_path" yaml:"input_path"`
	SheetName  string          `json:"sheet_name" yaml:"sheet_name"`
	WorkDir    string          `json:"work_dir" yaml:"work_dir"`
	ReportPath string          `json:"report_path" yaml:"report_path"`
	DBPath     string          `json:"db_path" yaml:"db_path"`
	HTTPPort   string          `json:"http_port" yaml:"http_port"`
	Audit      auditFileConfig `json:"audit" yaml:"audit"`
}

const (
	defaultPort          = ":8000"
	defaultInputPath     = "libroTest.xlsx"
	defaultSheetName     = "Hoja2"
	defaultWorkDir       = "runtime"
	defaultReportFile    = "Reporte_Control.xlsx"
	defaultDBFile        = "audit_runs.db"
	defaultGroupMeURL    = "https://api.groupme.com/v3/bots/post"
	minQueueSize         = 1
	defaultQueueSize     = 4
	maxQueueSize         = 64
	defaultRunTimeoutSec = 120
)

// Load reads configuration from .env, the config file and environment
// variables, in increasing order of precedence.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		zap.L().Warn("dotenv load failed", zap.Error(err))
	}

	cfg := Config{
		QueueSize:     defaultQueueSize,
		RunTimeoutSec: defaultRunTimeoutSec,
		GroupMeBotID:  os.Getenv("GROUPME_BOT_ID"),
		GroupMeURL:    getEnv("GROUPME_URL", defaultGroupMeURL),
		WatchEnabled:  parseBoolEnvDefault("ENABLE_WATCHER", true),
		StrictConfig:  parseBoolEnv("STRICT_CONFIG"),
	}

	cfg.ConfigPath = getEnv("CONFIG_PATH", filepath.Join("config", "config.yaml"))
	fileCfg, fileErr := loadFileConfig(cfg.ConfigPath)
	if fileErr != nil {
		if cfg.StrictConfig {
			return cfg, fmt.Errorf("config load failed (%s): %w", cfg.ConfigPath, fileErr)
		}
		zap.L().Info("config file not used, falling back to defaults", zap.String("path", cfg.ConfigPath), zap.Error(fileErr))
	}

	cfg.InputPath = firstNonEmpty(os.Getenv("INPUT_PATH"), fileCfg.InputPath, defaultInputPath)
	cfg.SheetName = firstNonEmpty(os.Getenv("INPUT_SHEET"), fileCfg.SheetName, defaultSheetName)
	cfg.WorkDir = firstNonEmpty(os.Getenv("WORK_DIR"), fileCfg.WorkDir, defaultWorkDir)
	cfg.ReportPath = firstNonEmpty(os.Getenv("REPORT_PATH"), fileCfg.ReportPath, filepath.Join(cfg.WorkDir, defaultReportFile))
	cfg.DBPath = firstNonEmpty(os.Getenv("DB_PATH"), fileCfg.DBPath, filepath.Join(cfg.WorkDir, defaultDBFile))

	cfg.HTTPPort = firstNonEmpty(os.Getenv("HTTP_PORT"), fileCfg.HTTPPort, defaultPort)
	if legacyPort := os.Getenv("PORT"); legacyPort != "" && cfg.HTTPPort == defaultPort {
		cfg.HTTPPort = legacyPort
	}
	if !strings.HasPrefix(cfg.HTTPPort, ":") {
		cfg.HTTPPort = ":" + cfg.HTTPPort
	}

	if v, ok, err := parseIntEnv("JOB_QUEUE_SIZE"); err != nil {
		zap.L().Warn("invalid JOB_QUEUE_SIZE, using default", zap.Error(err), zap.Int("default", defaultQueueSize))
	} else if ok {
		if v < minQueueSize {
			zap.L().Warn("JOB_QUEUE_SIZE raised to minimum", zap.Int("min", minQueueSize), zap.Int("was", v))
			v = minQueueSize
		}
		if v > maxQueueSize {
			zap.L().Warn("JOB_QUEUE_SIZE capped", zap.Int("max", maxQueueSize), zap.Int("was", v))
			v = maxQueueSize
		}
		cfg.QueueSize = v
	}

	if v, ok, err := parseIntEnv("RUN_TIMEOUT_SEC"); err != nil {
		return cfg, fmt.Errorf("invalid RUN_TIMEOUT_SEC: %w", err)
	} else if ok {
		if v <= 0 {
			return cfg, fmt.Errorf("RUN_TIMEOUT_SEC must be positive")
		}
		cfg.RunTimeoutSec = v
	}

	cfg.Audit = applyAuditOverrides(DefaultAuditConfig(), fileCfg.Audit)
	applyAuditEnv(&cfg.Audit)

	if err := validateConfig(cfg); err != nil {
		if cfg.StrictConfig {
			return cfg, err
		}
		zap.L().Warn("config validation failed (continuing)", zap.Error(err))
	}
	return cfg, nil
}

// RunTimeout is the per-run deadline applied by the queue.
func (c Config) RunTimeout() time.Duration {
	return time.Duration(c.RunTimeoutSec) * time.Second
}

func loadFileConfig(path string) (fileConfig, error) {
	var cfg fileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if len(data) == 0 {
		return cfg, errors.New("empty config file")
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.InputPath) == "" {
		return errors.New("INPUT_PATH is required")
	}
	if strings.TrimSpace(cfg.HTTPPort) == ":" {
		return errors.New("HTTP_PORT is required")
	}
	if len(cfg.Audit.Vocabulary) == 0 {
		return errors.New("audit.vocabulary must list at least one specialty")
	}
	if strings.TrimSpace(cfg.Audit.AlarmTier) == "" {
		return errors.New("audit.alarm_tier is required")
	}
	if err := cfg.Audit.Columns.validate(); err != nil {
		return err
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, val := range values {
		if strings.TrimSpace(val) != "" {
			return val
		}
	}
	return ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBoolEnv(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseBoolEnvDefault(key string, defaultVal bool) bool {
	if strings.TrimSpace(os.Getenv(key)) == "" {
		return defaultVal
	}
	return parseBoolEnv(key)
}

func parseIntEnv(key string) (int, bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, false, nil
	}
	val, err := strconv.Atoi(raw)
	return val, true, err
}

func parseListEnv(key string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
