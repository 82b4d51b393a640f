package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Auth       AuthConfig       `yaml:"auth"`
	Log        LogConfig        `yaml:"log"`
	Snapshot   SnapshotConfig   `yaml:"snapshot"`
	LiveStatus LiveStatusConfig `yaml:"live_status"`
	Session    SessionConfig    `yaml:"session"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Tailscale  TailscaleConfig  `yaml:"tailscale"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig points at PostgreSQL. With no host the session store is kept
// in memory.
type DatabaseConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	Name           string `yaml:"name"`
	User           string `yaml:"user"`
	Password       string `yaml:"password"`
	SSLMode        string `yaml:"sslmode"`
	MigrationsPath string `yaml:"migrations_path"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// SnapshotConfig selects where the resume snapshot lives.
type SnapshotConfig struct {
	Backend       string        `yaml:"backend"` // sqlite, redis or memory
	Path          string        `yaml:"path"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	RedisKey      string        `yaml:"redis_key"`
	TTL           time.Duration `yaml:"ttl"`
}

type LiveStatusConfig struct {
	Surface     string        `yaml:"surface"` // board or none
	PushTimeout time.Duration `yaml:"push_timeout"`
	Grace       time.Duration `yaml:"grace"`
}

type SessionConfig struct {
	TickInterval time.Duration `yaml:"tick_interval"`
}

type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Enabled reports whether a database is configured.
func (d DatabaseConfig) Enabled() bool {
	return d.Host != ""
}

// Load reads config from a YAML file, then applies environment variable overrides
// and defaults. Env vars use the prefix LIFTLOG_ and underscore-separated paths:
//
//	LIFTLOG_SERVER_HOST, LIFTLOG_SERVER_PORT,
//	LIFTLOG_DB_HOST, LIFTLOG_DB_PORT, LIFTLOG_DB_NAME,
//	LIFTLOG_DB_USER, LIFTLOG_DB_PASSWORD, LIFTLOG_DB_SSLMODE,
//	LIFTLOG_AUTH_API_KEY, LIFTLOG_LOG_LEVEL, LIFTLOG_LOG_FILE,
//	LIFTLOG_SNAPSHOT_BACKEND, LIFTLOG_SNAPSHOT_PATH, LIFTLOG_SNAPSHOT_REDIS_ADDR,
//	LIFTLOG_SNAPSHOT_REDIS_PASSWORD, LIFTLOG_LIVE_STATUS_SURFACE,
//	LIFTLOG_TAILSCALE_ENABLED
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	str := map[string]*string{
		"LIFTLOG_SERVER_HOST":             &cfg.Server.Host,
		"LIFTLOG_DB_HOST":                 &cfg.Database.Host,
		"LIFTLOG_DB_NAME":                 &cfg.Database.Name,
		"LIFTLOG_DB_USER":                 &cfg.Database.User,
		"LIFTLOG_DB_PASSWORD":             &cfg.Database.Password,
		"LIFTLOG_DB_SSLMODE":              &cfg.Database.SSLMode,
		"LIFTLOG_AUTH_API_KEY":            &cfg.Auth.APIKey,
		"LIFTLOG_LOG_LEVEL":               &cfg.Log.Level,
		"LIFTLOG_LOG_FILE":                &cfg.Log.File,
		"LIFTLOG_SNAPSHOT_BACKEND":        &cfg.Snapshot.Backend,
		"LIFTLOG_SNAPSHOT_PATH":           &cfg.Snapshot.Path,
		"LIFTLOG_SNAPSHOT_REDIS_ADDR":     &cfg.Snapshot.RedisAddr,
		"LIFTLOG_SNAPSHOT_REDIS_PASSWORD": &cfg.Snapshot.RedisPassword,
		"LIFTLOG_LIVE_STATUS_SURFACE":     &cfg.LiveStatus.Surface,
	}
	for key, dst := range str {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("LIFTLOG_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("LIFTLOG_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("LIFTLOG_TAILSCALE_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Tailscale.Enabled = enabled
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Database.MigrationsPath == "" {
		cfg.Database.MigrationsPath = "migrations"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Log.MaxSizeMB == 0 {
		cfg.Log.MaxSizeMB = 50
	}
	if cfg.Snapshot.Backend == "" {
		cfg.Snapshot.Backend = "sqlite"
	}
	if cfg.Snapshot.Path == "" {
		cfg.Snapshot.Path = "data/snapshot.db"
	}
	if cfg.LiveStatus.Surface == "" {
		cfg.LiveStatus.Surface = "board"
	}
	if cfg.LiveStatus.PushTimeout == 0 {
		cfg.LiveStatus.PushTimeout = 2 * time.Second
	}
	if cfg.LiveStatus.Grace == 0 {
		cfg.LiveStatus.Grace = 5 * time.Minute
	}
	if cfg.Session.TickInterval == 0 {
		cfg.Session.TickInterval = time.Second
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = "liftlog"
	}
	if cfg.Tailscale.Hostname == "" {
		cfg.Tailscale.Hostname = "liftlog"
	}
}

func (c *Config) validate() error {
	if c.Server.Port == 0 {
		return fmt.Errorf("server.port is required")
	}
	if c.Database.Enabled() {
		if c.Database.Port == 0 {
			return fmt.Errorf("database.port is required")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("database.name is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database.user is required")
		}
	}
	if c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key is required")
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	switch c.Snapshot.Backend {
	case "sqlite", "memory":
	case "redis":
		if c.Snapshot.RedisAddr == "" {
			return fmt.Errorf("snapshot.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("snapshot.backend must be sqlite, redis or memory, got %q", c.Snapshot.Backend)
	}
	switch c.LiveStatus.Surface {
	case "board", "none":
	default:
		return fmt.Errorf("live_status.surface must be board or none, got %q", c.LiveStatus.Surface)
	}
	if c.Session.TickInterval < 0 {
		return fmt.Errorf("session.tick_interval must be positive")
	}
	return nil
}
