package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Database connection.
	DatabaseURL  string
	Driver       string // "sqlite", "mysql", or "postgres"
	Schema       string // postgres schema under analysis (default "public")
	QueryTimeout time.Duration

	// Analysis tuning.
	Seed                     int64
	Repetitions              int
	SampleSize               int
	Concurrency              int
	TriggerOverheadThreshold time.Duration
	JoinCostMultiplier       float64
	SecuritySampleSize       int

	// Policy file (optional path to analysis policy YAML).
	PolicyFile string

	// Logging.
	LogLevel slog.Level

	// Observability.
	OTelEnabled bool

	// CLI-only fields (not settable via env vars).
	AuditLog string // path to NDJSON audit log file
}

// Overrides holds CLI flag values that override environment variables.
// Pointer fields distinguish "not set" from zero values.
type Overrides struct {
	DatabaseURL  *string
	Driver       *string
	Schema       *string
	LogLevel     *string
	QueryTimeout *time.Duration
	Seed         *int64
	Repetitions  *int
	SampleSize   *int
	Concurrency  *int
	PolicyFile   *string
	OTelEnabled  bool
	AuditLog     string
}

// Load builds a Config from environment variables, then applies CLI overrides,
// then validates the result.
func Load(overrides Overrides) (*Config, error) {
	cfg := defaults()

	if err := loadEnvVars(cfg); err != nil {
		return nil, err
	}
	if err := applyOverrides(cfg, overrides); err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// defaults returns a Config populated with default values.
func defaults() *Config {
	return &Config{
		DatabaseURL:              os.Getenv("DATABASE_URL"),
		Driver:                   "sqlite",
		Schema:                   "public",
		QueryTimeout:             30 * time.Second,
		Seed:                     1,
		Repetitions:              5,
		SampleSize:               20,
		Concurrency:              4,
		TriggerOverheadThreshold: 5 * time.Millisecond,
		JoinCostMultiplier:       2.0,
		SecuritySampleSize:       100,
	}
}

// loadEnvVars reads all supported environment variables into cfg.
func loadEnvVars(cfg *Config) error {
	if v := os.Getenv("DB_DRIVER"); v != "" {
		cfg.Driver = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("DB_SCHEMA"); v != "" {
		cfg.Schema = v
	}

	if v := os.Getenv("QUERY_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid QUERY_TIMEOUT value %q: %w", v, err)
		}
		cfg.QueryTimeout = d
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level, err := parseLogLevel(v)
		if err != nil {
			return err
		}
		cfg.LogLevel = level
	}

	if v := os.Getenv("WORKLOAD_SEED"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid WORKLOAD_SEED value %q: %w", v, err)
		}
		cfg.Seed = n
	}

	if v := os.Getenv("BENCH_REPETITIONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 3 {
			return fmt.Errorf("invalid BENCH_REPETITIONS value %q: must be an integer >= 3", v)
		}
		cfg.Repetitions = n
	}

	if v := os.Getenv("SAMPLE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid SAMPLE_SIZE value %q: must be a positive integer", v)
		}
		cfg.SampleSize = n
	}

	if v := os.Getenv("CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid CONCURRENCY value %q: must be a positive integer", v)
		}
		cfg.Concurrency = n
	}

	if err := loadThresholdEnvVars(cfg); err != nil {
		return err
	}

	cfg.PolicyFile = os.Getenv("POLICY_FILE")

	if v := os.Getenv("OTEL_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid OTEL_ENABLED value %q: %w", v, err)
		}
		cfg.OTelEnabled = b
	}

	return nil
}

// loadThresholdEnvVars reads analyzer threshold environment variables.
func loadThresholdEnvVars(cfg *Config) error {
	if v := os.Getenv("TRIGGER_OVERHEAD_THRESHOLD"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid TRIGGER_OVERHEAD_THRESHOLD value %q: %w", v, err)
		}
		cfg.TriggerOverheadThreshold = d
	}
	if v := os.Getenv("JOIN_COST_MULTIPLIER"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return fmt.Errorf("invalid JOIN_COST_MULTIPLIER value %q: must be a positive number", v)
		}
		cfg.JoinCostMultiplier = f
	}
	if v := os.Getenv("SECURITY_SAMPLE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid SECURITY_SAMPLE_SIZE value %q: must be a positive integer", v)
		}
		cfg.SecuritySampleSize = n
	}
	return nil
}

// applyOverrides applies CLI flag values on top of the env-loaded config.
func applyOverrides(cfg *Config, o Overrides) error {
	if o.DatabaseURL != nil {
		cfg.DatabaseURL = *o.DatabaseURL
	}
	if o.Driver != nil {
		cfg.Driver = strings.ToLower(strings.TrimSpace(*o.Driver))
	}
	if o.Schema != nil {
		cfg.Schema = *o.Schema
	}
	if o.LogLevel != nil {
		level, err := parseLogLevel(*o.LogLevel)
		if err != nil {
			return err
		}
		cfg.LogLevel = level
	}
	if o.QueryTimeout != nil {
		cfg.QueryTimeout = *o.QueryTimeout
	}
	if o.Seed != nil {
		cfg.Seed = *o.Seed
	}
	if o.Repetitions != nil {
		if *o.Repetitions < 3 {
			return fmt.Errorf("invalid --repetitions value: must be an integer >= 3")
		}
		cfg.Repetitions = *o.Repetitions
	}
	if o.SampleSize != nil {
		if *o.SampleSize <= 0 {
			return fmt.Errorf("invalid --sample-size value: must be a positive integer")
		}
		cfg.SampleSize = *o.SampleSize
	}
	if o.Concurrency != nil {
		if *o.Concurrency <= 0 {
			return fmt.Errorf("invalid --concurrency value: must be a positive integer")
		}
		cfg.Concurrency = *o.Concurrency
	}
	if o.PolicyFile != nil {
		cfg.PolicyFile = *o.PolicyFile
	}

	cfg.AuditLog = o.AuditLog
	cfg.OTelEnabled = cfg.OTelEnabled || o.OTelEnabled

	return nil
}

// validate checks cross-field constraints on the final config.
func validate(cfg *Config) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required (set via env var or --database-url flag)")
	}

	switch cfg.Driver {
	case "sqlite", "mysql", "postgres":
	default:
		return fmt.Errorf("invalid DB_DRIVER value %q: must be \"sqlite\", \"mysql\", or \"postgres\"", cfg.Driver)
	}

	return nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL value %q: must be debug, info, warn, or error", s)
	}
}
