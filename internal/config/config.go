// Package config defines the configuration structures of the cooperative map
// service.  Only plain data types and validation live here; loading is in
// loader.go and defaults in defaults.go.
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/sigtopo/coop-driouch/internal/infrastructure/monitoring/logging"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RateLimitRPS    float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst  int           `mapstructure:"rate_limit_burst"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// SourceConfig locates the three GeoJSON resources.  Only FeaturesURL is
// required; the boundary overlays are optional.
type SourceConfig struct {
	FeaturesURL     string        `mapstructure:"features_url"`
	ProvinceURL     string        `mapstructure:"province_url"`
	CommunesURL     string        `mapstructure:"communes_url"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	Timeout         time.Duration `mapstructure:"timeout"`
	UserAgent       string        `mapstructure:"user_agent"`
}

// LayoutConfig holds the compact-layout breakpoint in CSS pixels.
type LayoutConfig struct {
	CompactBreakpoint int `mapstructure:"compact_breakpoint"`
}

// SessionConfig bounds the in-memory dashboard sessions.
type SessionConfig struct {
	TTL             time.Duration `mapstructure:"ttl"`
	MaxSessions     int           `mapstructure:"max_sessions"`
	JanitorInterval time.Duration `mapstructure:"janitor_interval"`
}

// RedisConfig holds the snapshot cache connection.  The cache is optional.
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
	SnapshotTTL  time.Duration `mapstructure:"snapshot_ttl"`
}

// KafkaConfig holds the refresh-event publisher parameters.  With Consume
// set, every replica also listens for refreshes announced by its peers.
type KafkaConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	RequiredAcks int           `mapstructure:"required_acks"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
	Consume      bool          `mapstructure:"consume"`
	GroupPrefix  string        `mapstructure:"group_prefix"`
}

// MinIOConfig holds the snapshot archive parameters.
type MinIOConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Retain    int    `mapstructure:"retain"`
}

// InsightConfig holds the AI summary parameters.  An empty APIKey disables the
// generator; requests then fail with the unavailable message.
type InsightConfig struct {
	APIKey     string        `mapstructure:"api_key"`
	Model      string        `mapstructure:"model"`
	SampleSize int           `mapstructure:"sample_size"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// MetricsConfig holds Prometheus exposition parameters.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Subsystem string `mapstructure:"subsystem"`
	Path      string `mapstructure:"path"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure.
type Config struct {
	Server  ServerConfig      `mapstructure:"server"`
	Source  SourceConfig      `mapstructure:"source"`
	Layout  LayoutConfig      `mapstructure:"layout"`
	Session SessionConfig     `mapstructure:"session"`
	Redis   RedisConfig       `mapstructure:"redis"`
	Kafka   KafkaConfig       `mapstructure:"kafka"`
	MinIO   MinIOConfig       `mapstructure:"minio"`
	Insight InsightConfig     `mapstructure:"insight"`
	Metrics MetricsConfig     `mapstructure:"metrics"`
	Log     logging.LogConfig `mapstructure:"log"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of a fully-populated Config and
// returns the first problem found.
func (c *Config) Validate() error {
	// Server
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("config: server.mode %q is invalid; expected debug|release|test", c.Server.Mode)
	}
	if c.Server.RateLimitRPS < 0 {
		return fmt.Errorf("config: server.rate_limit_rps must be ≥ 0, got %v", c.Server.RateLimitRPS)
	}

	// Source
	if c.Source.FeaturesURL == "" {
		return fmt.Errorf("config: source.features_url is required")
	}
	for key, raw := range map[string]string{
		"source.features_url": c.Source.FeaturesURL,
		"source.province_url": c.Source.ProvinceURL,
		"source.communes_url": c.Source.CommunesURL,
	} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("config: %s %q is not an http(s) URL", key, raw)
		}
	}
	if c.Source.RefreshInterval < time.Second {
		return fmt.Errorf("config: source.refresh_interval must be ≥ 1s, got %s", c.Source.RefreshInterval)
	}

	// Layout
	if c.Layout.CompactBreakpoint < 1 {
		return fmt.Errorf("config: layout.compact_breakpoint must be ≥ 1, got %d", c.Layout.CompactBreakpoint)
	}

	// Session
	if c.Session.MaxSessions < 1 {
		return fmt.Errorf("config: session.max_sessions must be ≥ 1, got %d", c.Session.MaxSessions)
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("config: session.ttl must be positive")
	}

	// Redis
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("config: redis.addr is required when redis is enabled")
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("config: redis.db must be ≥ 0, got %d", c.Redis.DB)
	}

	// Kafka
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("config: kafka.brokers must contain at least one broker address")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("config: kafka.topic is required when kafka is enabled")
		}
	}

	// MinIO
	if c.MinIO.Enabled {
		if c.MinIO.Endpoint == "" {
			return fmt.Errorf("config: minio.endpoint is required when minio is enabled")
		}
		if c.MinIO.Bucket == "" {
			return fmt.Errorf("config: minio.bucket is required when minio is enabled")
		}
		if c.MinIO.Retain < 0 {
			return fmt.Errorf("config: minio.retain must be ≥ 0, got %d", c.MinIO.Retain)
		}
	}

	// Insight
	if c.Insight.SampleSize < 1 {
		return fmt.Errorf("config: insight.sample_size must be ≥ 1, got %d", c.Insight.SampleSize)
	}

	// Log
	switch c.Log.Level {
	case logging.LevelDebug, logging.LevelInfo, logging.LevelWarn, logging.LevelError:
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	return nil
}
