// Package config loads the archiver configuration from the environment
// and an optional retry-policy file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/auditlake/audit-archiver/internal/retry"
)

// Call-site identifiers for retry policy lookup.
const (
	CallSiteStoragePut  = "storage.put"
	CallSiteQueueDelete = "queue.delete"
)

// ErrMissingSetting indicates a required setting was absent. The invocation
// must abort before any record is processed.
var ErrMissingSetting = errors.New("missing required setting")

type Config struct {
	Stage   string
	Storage StorageConfig
	Queue   QueueConfig
	Logging LoggingConfig
	Metrics MetricsConfig
	Retry   *retry.Registry
}

type StorageConfig struct {
	Backend     string // "s3" | "local"
	Bucket      string
	BasePath    string
	LocalDir    string
	S3Endpoint  string
	S3Region    string
	Compression string // "" | "gzip"
}

type QueueConfig struct {
	URL          string // receive queue URL; deletes use each record's own URL
	WaitSeconds  int
	MaxMessages  int
	PollInterval time.Duration
}

type LoggingConfig struct {
	Format string
	Level  string
}

type MetricsConfig struct {
	Enabled bool
	Address string
}

// Load reads configuration from the environment. STAGE, ARCHIVE_BUCKET and
// ARCHIVE_BASE_PATH are required; missing any of them fails the load.
func Load() (Config, error) {
	cfg := Config{
		Stage: os.Getenv("STAGE"),
		Storage: StorageConfig{
			Backend:     getenvDefault("STORAGE_BACKEND", "s3"),
			Bucket:      os.Getenv("ARCHIVE_BUCKET"),
			BasePath:    os.Getenv("ARCHIVE_BASE_PATH"),
			LocalDir:    getenvDefault("LOCAL_DIR", "./data"),
			S3Endpoint:  os.Getenv("S3_ENDPOINT"),
			S3Region:    os.Getenv("AWS_REGION"),
			Compression: strings.ToLower(os.Getenv("ARCHIVE_COMPRESSION")),
		},
		Queue: QueueConfig{
			URL:          os.Getenv("QUEUE_URL"),
			WaitSeconds:  getenvInt("QUEUE_WAIT_SECONDS", 20),
			MaxMessages:  getenvInt("QUEUE_MAX_MESSAGES", 10),
			PollInterval: time.Duration(getenvInt("QUEUE_POLL_INTERVAL_MS", 0)) * time.Millisecond,
		},
		Logging: LoggingConfig{
			Format: getenvDefault("LOG_FORMAT", "json"),
			Level:  getenvDefault("LOG_LEVEL", "info"),
		},
		Metrics: MetricsConfig{
			Enabled: os.Getenv("METRICS_ENABLED") == "true",
			Address: getenvDefault("METRICS_ADDRESS", ":9090"),
		},
	}

	var missing []string
	if cfg.Stage == "" {
		missing = append(missing, "STAGE")
	}
	if cfg.Storage.Bucket == "" {
		missing = append(missing, "ARCHIVE_BUCKET")
	}
	if cfg.Storage.BasePath == "" {
		missing = append(missing, "ARCHIVE_BASE_PATH")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("%w: %s", ErrMissingSetting, strings.Join(missing, ", "))
	}

	switch cfg.Storage.Compression {
	case "", "gzip":
	default:
		return Config{}, fmt.Errorf("unknown ARCHIVE_COMPRESSION %q", cfg.Storage.Compression)
	}

	reg, err := loadRetryRegistry(os.Getenv("RETRY_CONFIG_FILE"))
	if err != nil {
		return Config{}, err
	}
	cfg.Retry = reg

	return cfg, nil
}

// retryFile is the YAML shape of the retry-policy file: a mapping from
// call-site identifier to policy knobs. Durations are Go duration strings.
type retryFile map[string]retryPolicyYAML

type retryPolicyYAML struct {
	Delay       string `yaml:"delay"`
	MinDelay    string `yaml:"min_delay"`
	MaxDelay    string `yaml:"max_delay"`
	MaxAttempts int    `yaml:"max_attempts"`
	Jitter      bool   `yaml:"jitter"`
}

func (p retryPolicyYAML) policy() (retry.Policy, error) {
	out := retry.Policy{MaxAttempts: p.MaxAttempts, Jitter: p.Jitter}

	var err error
	if out.Delay, err = parseDuration(p.Delay); err != nil {
		return retry.Policy{}, fmt.Errorf("delay: %w", err)
	}
	if out.MinDelay, err = parseDuration(p.MinDelay); err != nil {
		return retry.Policy{}, fmt.Errorf("min_delay: %w", err)
	}
	if out.MaxDelay, err = parseDuration(p.MaxDelay); err != nil {
		return retry.Policy{}, fmt.Errorf("max_delay: %w", err)
	}
	return out, nil
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

// loadRetryRegistry builds the per-call-site policy map once at startup.
// Defaults apply unless the optional YAML file overrides a call site.
func loadRetryRegistry(path string) (*retry.Registry, error) {
	reg := retry.NewRegistry(retry.Policy{MaxAttempts: 3, Delay: 500 * time.Millisecond})
	reg.Set(CallSiteStoragePut, retry.Policy{
		MaxAttempts: 3,
		MinDelay:    200 * time.Millisecond,
		MaxDelay:    5 * time.Second,
		Jitter:      true,
	})
	reg.Set(CallSiteQueueDelete, retry.Policy{
		MaxAttempts: 3,
		Delay:       250 * time.Millisecond,
	})

	if path == "" {
		return reg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read retry config %s: %w", path, err)
	}

	var file retryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse retry config %s: %w", path, err)
	}

	for callSite, raw := range file {
		policy, err := raw.policy()
		if err != nil {
			return nil, fmt.Errorf("retry config %s: call site %s: %w", path, callSite, err)
		}
		if err := policy.Validate(); err != nil {
			return nil, fmt.Errorf("retry config %s: call site %s: %w", path, callSite, err)
		}
		reg.Set(callSite, policy)
	}

	return reg, nil
}

func getenvDefault(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}
