package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerPort            = 8080
	DefaultServerMode            = "release"
	DefaultServerReadTimeout     = 15 * time.Second
	DefaultServerWriteTimeout    = 60 * time.Second
	DefaultServerShutdownTimeout = 30 * time.Second
	DefaultRateLimitRPS          = 20.0
	DefaultRateLimitBurst        = 40

	DefaultFeaturesURL     = "https://raw.githubusercontent.com/sigtopo/coop_driouch/refs/heads/main/CooperativesDriouch.geojson"
	DefaultRefreshInterval = 5 * time.Minute
	DefaultSourceTimeout   = 20 * time.Second
	DefaultUserAgent       = "coopmap/1.0"

	DefaultCompactBreakpoint = 768

	DefaultSessionTTL             = 30 * time.Minute
	DefaultMaxSessions            = 5000
	DefaultSessionJanitorInterval = time.Minute

	DefaultRedisAddr        = "localhost:6379"
	DefaultRedisPoolSize    = 10
	DefaultRedisKeyPrefix   = "coopmap:"
	DefaultRedisSnapshotTTL = 7 * 24 * time.Hour

	DefaultKafkaBroker       = "localhost:9092"
	DefaultKafkaTopic        = "dataset.refreshed"
	DefaultKafkaBatchTimeout = 100 * time.Millisecond
	DefaultKafkaMaxAttempts  = 3
	DefaultKafkaGroupPrefix  = "coopmap"

	DefaultMinIOEndpoint = "localhost:9000"
	DefaultMinIOBucket   = "coopmap-snapshots"
	DefaultMinIORetain   = 48

	DefaultInsightModel      = "gemini-3-flash-preview"
	DefaultInsightSampleSize = 60
	DefaultInsightTimeout    = 30 * time.Second

	DefaultMetricsNamespace = "coopmap"
	DefaultMetricsPath      = "/metrics"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// ApplyDefaults fills every zero-value field in cfg with its default.  Values
// already set by the caller are left unchanged.  Boolean switches are not
// touched: redis, kafka and minio stay disabled unless configured.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultServerReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultServerWriteTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultServerShutdownTimeout
	}
	if cfg.Server.RateLimitRPS == 0 {
		cfg.Server.RateLimitRPS = DefaultRateLimitRPS
	}
	if cfg.Server.RateLimitBurst == 0 {
		cfg.Server.RateLimitBurst = DefaultRateLimitBurst
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{"*"}
	}

	// ── Source ────────────────────────────────────────────────────────────────
	if cfg.Source.FeaturesURL == "" {
		cfg.Source.FeaturesURL = DefaultFeaturesURL
	}
	if cfg.Source.RefreshInterval == 0 {
		cfg.Source.RefreshInterval = DefaultRefreshInterval
	}
	if cfg.Source.Timeout == 0 {
		cfg.Source.Timeout = DefaultSourceTimeout
	}
	if cfg.Source.UserAgent == "" {
		cfg.Source.UserAgent = DefaultUserAgent
	}

	// ── Layout ────────────────────────────────────────────────────────────────
	if cfg.Layout.CompactBreakpoint == 0 {
		cfg.Layout.CompactBreakpoint = DefaultCompactBreakpoint
	}

	// ── Session ───────────────────────────────────────────────────────────────
	if cfg.Session.TTL == 0 {
		cfg.Session.TTL = DefaultSessionTTL
	}
	if cfg.Session.MaxSessions == 0 {
		cfg.Session.MaxSessions = DefaultMaxSessions
	}
	if cfg.Session.JanitorInterval == 0 {
		cfg.Session.JanitorInterval = DefaultSessionJanitorInterval
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = DefaultRedisPoolSize
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}
	if cfg.Redis.SnapshotTTL == 0 {
		cfg.Redis.SnapshotTTL = DefaultRedisSnapshotTTL
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = DefaultKafkaTopic
	}
	if cfg.Kafka.BatchTimeout == 0 {
		cfg.Kafka.BatchTimeout = DefaultKafkaBatchTimeout
	}
	if cfg.Kafka.MaxAttempts == 0 {
		cfg.Kafka.MaxAttempts = DefaultKafkaMaxAttempts
	}
	if cfg.Kafka.GroupPrefix == "" {
		cfg.Kafka.GroupPrefix = DefaultKafkaGroupPrefix
	}

	// ── MinIO ─────────────────────────────────────────────────────────────────
	if cfg.MinIO.Endpoint == "" {
		cfg.MinIO.Endpoint = DefaultMinIOEndpoint
	}
	if cfg.MinIO.Bucket == "" {
		cfg.MinIO.Bucket = DefaultMinIOBucket
	}
	if cfg.MinIO.Retain == 0 {
		cfg.MinIO.Retain = DefaultMinIORetain
	}

	// ── Insight ───────────────────────────────────────────────────────────────
	if cfg.Insight.Model == "" {
		cfg.Insight.Model = DefaultInsightModel
	}
	if cfg.Insight.SampleSize == 0 {
		cfg.Insight.SampleSize = DefaultInsightSampleSize
	}
	if cfg.Insight.Timeout == 0 {
		cfg.Insight.Timeout = DefaultInsightTimeout
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}
