// Package config handles loading and validating the application configuration
// from YAML files with environment variable substitution.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Monitor       MonitorConfig       `yaml:"monitor"`
	Sources       []SourceConfig      `yaml:"sources"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Logging       LoggingConfig       `yaml:"logging"`
	Telemetry     TelemetryConfig     `yaml:"telemetry"`
}

// ServerConfig defines the Echo HTTP server settings.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// DatabaseConfig defines the storage backend. The memory driver keeps all
// state in process and needs no connection settings.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
	PoolSize int    `yaml:"pool_size"`
}

// DSN returns a PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s pool_max_conns=%d",
		d.Host, d.Port, d.Name, d.User, d.Password, d.SSLMode, d.PoolSize,
	)
}

const defaultJitter = 0.1

// MonitorConfig tunes the monitoring engine.
type MonitorConfig struct {
	TickInterval         time.Duration `yaml:"tick_interval"`
	DefaultCheckInterval time.Duration `yaml:"default_check_interval"`
	Workers              int           `yaml:"workers"`
	FetchTimeout         time.Duration `yaml:"fetch_timeout"`
	StopGrace            time.Duration `yaml:"stop_grace"`
	Jitter               *float64      `yaml:"jitter"` // fraction of interval; nil means 0.1
	ResyncInterval       time.Duration `yaml:"resync_interval"`
	DeliveryTimeout      time.Duration `yaml:"delivery_timeout"`
}

// Render modes for configured sources.
const (
	RenderHTTP    = "http"
	RenderBrowser = "browser"
)

// SourceConfig describes one configured page source.
type SourceConfig struct {
	Name             string          `yaml:"name"`
	Hosts            []string        `yaml:"hosts"`
	PathPattern      string          `yaml:"path_pattern"`
	ProductIDPattern string          `yaml:"product_id_pattern"`
	Render           string          `yaml:"render"` // http, browser
	UserAgent        string          `yaml:"user_agent"`
	Timeout          time.Duration   `yaml:"timeout"`
	Currency         string          `yaml:"currency"`
	OutOfStockText   string          `yaml:"out_of_stock_text"`
	Selectors        SelectorConfig  `yaml:"selectors"`
	RateLimit        RateLimitConfig `yaml:"rate_limit"`
}

// SelectorConfig holds optional CSS selectors. Empty selectors fall back to
// page metadata.
type SelectorConfig struct {
	Name         string `yaml:"name"`
	Price        string `yaml:"price"`
	Currency     string `yaml:"currency"`
	Availability string `yaml:"availability"`
	Image        string `yaml:"image"`
	Description  string `yaml:"description"`
}

// RateLimitConfig defines per-source politeness limits.
type RateLimitConfig struct {
	PerSecond float64 `yaml:"per_second"`
	Burst     int     `yaml:"burst"`
}

// NotificationsConfig defines notification targets.
type NotificationsConfig struct {
	Email   EmailConfig   `yaml:"email"`
	Discord DiscordConfig `yaml:"discord"`
	Queue   QueueConfig   `yaml:"queue"`
}

// EmailConfig defines SMTP delivery settings.
type EmailConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// DiscordConfig defines Discord webhook settings.
type DiscordConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// QueueConfig defines RabbitMQ hand-off settings. Messages are consumed by
// an external mail sender.
type QueueConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Queue   string `yaml:"queue"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// TelemetryConfig defines OpenTelemetry trace export settings.
type TelemetryConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	Insecure    bool    `yaml:"insecure"`
	ServiceName string  `yaml:"service_name"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// Load reads and parses a YAML config file, performing environment variable
// substitution and validation. A .env file next to the config, if present,
// is loaded first; variables already set in the environment win.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // config path from trusted CLI flag
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	envFile := filepath.Join(filepath.Dir(path), ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading %s: %w", envFile, err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a configuration with every default applied and the memory
// driver selected.
func Default() *Config {
	cfg := &Config{Database: DatabaseConfig{Driver: DriverMemory}}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	applyServerDefaults(&cfg.Server)
	applyDatabaseDefaults(&cfg.Database)
	applyMonitorDefaults(&cfg.Monitor)
	for i := range cfg.Sources {
		applySourceDefaults(&cfg.Sources[i])
	}
	applyNotificationDefaults(&cfg.Notifications)
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
}

func applyServerDefaults(s *ServerConfig) {
	if s.Host == "" {
		s.Host = "0.0.0.0"
	}
	if s.Port == 0 {
		s.Port = 8080
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = 30 * time.Second
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = 30 * time.Second
	}
}

func applyDatabaseDefaults(d *DatabaseConfig) {
	if d.Driver == "" {
		d.Driver = DriverPostgres
	}
	if d.Port == 0 {
		d.Port = 5432
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}
	if d.PoolSize == 0 {
		d.PoolSize = 10
	}
}

func applyMonitorDefaults(m *MonitorConfig) {
	if m.TickInterval == 0 {
		m.TickInterval = time.Second
	}
	if m.DefaultCheckInterval == 0 {
		m.DefaultCheckInterval = time.Hour
	}
	if m.Workers == 0 {
		m.Workers = 10
	}
	if m.FetchTimeout == 0 {
		m.FetchTimeout = 30 * time.Second
	}
	if m.StopGrace == 0 {
		m.StopGrace = 30 * time.Second
	}
	if m.ResyncInterval == 0 {
		m.ResyncInterval = 5 * time.Minute
	}
	if m.DeliveryTimeout == 0 {
		m.DeliveryTimeout = 15 * time.Second
	}
	if m.Jitter == nil {
		j := defaultJitter
		m.Jitter = &j
	}
}

// JitterFraction returns the configured jitter, or the default when unset.
func (m *MonitorConfig) JitterFraction() float64 {
	if m.Jitter == nil {
		return defaultJitter
	}
	return *m.Jitter
}

func applySourceDefaults(s *SourceConfig) {
	if s.Render == "" {
		s.Render = RenderHTTP
	}
	if s.Timeout == 0 {
		s.Timeout = 20 * time.Second
	}
	if s.RateLimit.PerSecond == 0 {
		s.RateLimit.PerSecond = 0.2
	}
	if s.RateLimit.Burst == 0 {
		s.RateLimit.Burst = 1
	}
}

func applyNotificationDefaults(n *NotificationsConfig) {
	if n.Email.Port == 0 {
		n.Email.Port = 587
	}
	if n.Queue.Queue == "" {
		n.Queue.Queue = "price_alerts"
	}
}

func applyLoggingDefaults(l *LoggingConfig) {
	if l.Level == "" {
		l.Level = "info"
	}
	if l.Format == "" {
		l.Format = "text"
	}
}

func applyTelemetryDefaults(t *TelemetryConfig) {
	if t.Endpoint == "" {
		t.Endpoint = "localhost:4317"
	}
	if t.ServiceName == "" {
		t.ServiceName = "pricely"
	}
	if t.SampleRatio == 0 {
		t.SampleRatio = 1.0
	}
}

func validate(cfg *Config) error {
	var errs []error

	switch cfg.Database.Driver {
	case DriverPostgres:
		if cfg.Database.Host == "" {
			errs = append(errs, fmt.Errorf("database.host is required"))
		}
		if cfg.Database.Name == "" {
			errs = append(errs, fmt.Errorf("database.name is required"))
		}
		if cfg.Database.User == "" {
			errs = append(errs, fmt.Errorf("database.user is required"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf(
			"database.driver must be one of: postgres, memory (got %q)",
			cfg.Database.Driver,
		))
	}

	errs = append(errs, validateMonitor(&cfg.Monitor)...)

	seen := make(map[string]bool, len(cfg.Sources))
	for i := range cfg.Sources {
		s := &cfg.Sources[i]
		if seen[s.Name] && s.Name != "" {
			errs = append(errs, fmt.Errorf("sources[%d].name %q is duplicated", i, s.Name))
		}
		seen[s.Name] = true
		errs = append(errs, validateSource(i, s)...)
	}

	n := cfg.Notifications
	if n.Email.Enabled {
		if n.Email.Host == "" {
			errs = append(errs, fmt.Errorf("notifications.email.host is required when email is enabled"))
		}
		if n.Email.From == "" {
			errs = append(errs, fmt.Errorf("notifications.email.from is required when email is enabled"))
		}
	}
	if n.Discord.Enabled && n.Discord.WebhookURL == "" {
		errs = append(errs, fmt.Errorf("notifications.discord.webhook_url is required when discord is enabled"))
	}
	if n.Queue.Enabled && n.Queue.URL == "" {
		errs = append(errs, fmt.Errorf("notifications.queue.url is required when queue is enabled"))
	}

	if cfg.Telemetry.SampleRatio < 0 || cfg.Telemetry.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("telemetry.sample_ratio must be within [0, 1]"))
	}

	return errors.Join(errs...)
}

func validateMonitor(m *MonitorConfig) []error {
	var errs []error
	if m.Workers < 1 {
		errs = append(errs, fmt.Errorf("monitor.workers must be positive"))
	}
	if m.TickInterval < 0 || m.DefaultCheckInterval < 0 || m.FetchTimeout < 0 {
		errs = append(errs, fmt.Errorf("monitor durations must not be negative"))
	}
	if j := m.JitterFraction(); j < 0 || j >= 1 {
		errs = append(errs, fmt.Errorf("monitor.jitter must be within [0, 1) (got %v)", j))
	}
	return errs
}

func validateSource(i int, s *SourceConfig) []error {
	var errs []error
	if s.Name == "" {
		errs = append(errs, fmt.Errorf("sources[%d].name is required", i))
	}
	if len(s.Hosts) == 0 {
		errs = append(errs, fmt.Errorf("sources[%d].hosts must not be empty", i))
	}
	if s.Render != RenderHTTP && s.Render != RenderBrowser {
		errs = append(errs, fmt.Errorf(
			"sources[%d].render must be one of: http, browser (got %q)", i, s.Render,
		))
	}
	for field, pattern := range map[string]string{
		"path_pattern":       s.PathPattern,
		"product_id_pattern": s.ProductIDPattern,
	} {
		if pattern == "" {
			continue
		}
		if _, err := regexp.Compile(pattern); err != nil {
			errs = append(errs, fmt.Errorf("sources[%d].%s: %w", i, field, err))
		}
	}
	if s.RateLimit.PerSecond < 0 || s.RateLimit.Burst < 0 {
		errs = append(errs, fmt.Errorf("sources[%d].rate_limit must not be negative", i))
	}
	return errs
}
