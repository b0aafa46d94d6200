package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the batchsync configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	HubSpot  HubSpotConfig  `yaml:"hubspot"`
	Sync     SyncConfig     `yaml:"sync"`
	Storage  StorageConfig  `yaml:"storage"`
	Events   EventsConfig   `yaml:"events"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// HubSpotConfig holds the CRM client settings.
type HubSpotConfig struct {
	BaseURL       string  `yaml:"base_url"`
	Token         string  `yaml:"token"`
	TimeoutSec    int     `yaml:"timeout_sec"`
	RatePerSecond float64 `yaml:"rate_per_second"` // 0 = unlimited
	Burst         int     `yaml:"burst"`
}

// SyncConfig holds the retry policy and batch limits.
type SyncConfig struct {
	MaxAttempts     int     `yaml:"max_attempts"`
	BaseDelayMs     int     `yaml:"base_delay_ms"`
	MaxDelayMs      int     `yaml:"max_delay_ms"`
	Jitter          float64 `yaml:"jitter"`
	CallTimeoutSec  int     `yaml:"call_timeout_sec"`
	BatchTimeoutSec int     `yaml:"batch_timeout_sec"` // 0 = no batch deadline
	MaxConcurrency  int     `yaml:"max_concurrency"`
	MaxBatchSize    int     `yaml:"max_batch_size"`
}

// StorageConfig holds job storage settings.
type StorageConfig struct {
	JobTTLHours int `yaml:"job_ttl_hours"` // 0 = keep forever
}

// EventsConfig holds completion event settings. Empty brokers disables publishing.
type EventsConfig struct {
	Brokers         []string `yaml:"brokers"`
	Topic           string   `yaml:"topic"`
	WriteTimeoutSec int      `yaml:"write_timeout_sec"`
}

// Enabled reports whether completion events should be published.
func (e EventsConfig) Enabled() bool { return len(e.Brokers) > 0 }

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes YAML configuration, expanding ${VAR} references.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	// A full batch with retries can take well over the read timeout.
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 300
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 30
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.HubSpot.BaseURL == "" {
		c.HubSpot.BaseURL = "https://api.hubapi.com"
	}
	if c.HubSpot.TimeoutSec <= 0 {
		c.HubSpot.TimeoutSec = 15
	}
	if c.Sync.MaxAttempts <= 0 {
		c.Sync.MaxAttempts = 3
	}
	if c.Sync.BaseDelayMs <= 0 {
		c.Sync.BaseDelayMs = 200
	}
	if c.Sync.MaxDelayMs <= 0 {
		c.Sync.MaxDelayMs = 5000
	}
	if c.Sync.CallTimeoutSec <= 0 {
		c.Sync.CallTimeoutSec = 15
	}
	if c.Sync.MaxConcurrency <= 0 {
		c.Sync.MaxConcurrency = 4
	}
	if c.Sync.MaxBatchSize <= 0 {
		c.Sync.MaxBatchSize = 1000
	}
	c.Events.Brokers = nonEmpty(c.Events.Brokers)
	c.Auth.APIKeys = nonEmpty(c.Auth.APIKeys)
	if c.Events.Topic == "" {
		c.Events.Topic = "batchsync.batch.completed"
	}
	if c.Events.WriteTimeoutSec <= 0 {
		c.Events.WriteTimeoutSec = 5
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.HubSpot.Token == "" {
		return fmt.Errorf("hubspot.token is required")
	}
	if c.HubSpot.RatePerSecond < 0 {
		return fmt.Errorf("hubspot.rate_per_second must not be negative, got %v", c.HubSpot.RatePerSecond)
	}
	if c.Sync.Jitter < 0 || c.Sync.Jitter > 1 {
		return fmt.Errorf("sync.jitter must be between 0 and 1, got %v", c.Sync.Jitter)
	}
	if c.Sync.MaxDelayMs < c.Sync.BaseDelayMs {
		return fmt.Errorf("sync.max_delay_ms (%d) must not be below sync.base_delay_ms (%d)",
			c.Sync.MaxDelayMs, c.Sync.BaseDelayMs)
	}
	if c.Sync.BatchTimeoutSec < 0 {
		return fmt.Errorf("sync.batch_timeout_sec must not be negative, got %d", c.Sync.BatchTimeoutSec)
	}
	return nil
}

// nonEmpty drops blanks left behind by unset ${VAR} references.
func nonEmpty(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// JobTTL returns how long batch results are kept.
func (s StorageConfig) JobTTL() time.Duration {
	return time.Duration(s.JobTTLHours) * time.Hour
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// Relative to the source file, for tests run from package directories.
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
