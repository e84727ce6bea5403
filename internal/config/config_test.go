package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigtopo/coop-driouch/internal/config"
)

// validConfig returns a Config that passes Validate.
func validConfig() *config.Config {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	return cfg
}

func TestConfig_Validate_ValidConfig(t *testing.T) {
	t.Parallel()
	assert.NoError(t, validConfig().Validate())
}

func TestConfig_Validate_InvalidServerPort(t *testing.T) {
	t.Parallel()
	for _, p := range []int{0, -1, 65536} {
		p := p
		t.Run("", func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			cfg.Server.Port = p
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "server.port")
		})
	}
}

func TestConfig_Validate_InvalidServerMode(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Server.Mode = "production"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.mode")
}

func TestConfig_Validate_MissingFeaturesURL(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Source.FeaturesURL = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source.features_url")
}

func TestConfig_Validate_NonHTTPBoundaryURL(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Source.CommunesURL = "ftp://example.org/communes.geojson"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source.communes_url")
}

func TestConfig_Validate_OptionalBoundaryURLs(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Source.ProvinceURL = ""
	cfg.Source.CommunesURL = ""
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate_RefreshIntervalTooShort(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Source.RefreshInterval = 10 * time.Millisecond
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source.refresh_interval")
}

func TestConfig_Validate_RedisEnabledWithoutAddr(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Redis.Enabled = true
	cfg.Redis.Addr = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis.addr")
}

func TestConfig_Validate_RedisDisabledIgnoresAddr(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Redis.Addr = ""
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate_KafkaEnabledWithoutBrokers(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Kafka.Enabled = true
	cfg.Kafka.Brokers = nil
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kafka.brokers")
}

func TestConfig_Validate_MinIOEnabledWithoutBucket(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.MinIO.Enabled = true
	cfg.MinIO.Bucket = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "minio.bucket")
}

func TestConfig_Validate_SessionLimits(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Session.MaxSessions = -1
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session.max_sessions")
}

func TestConfig_Validate_InvalidLogLevel(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Log.Level = "verbose"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log.level")
}

func TestConfig_Validate_InvalidLogFormat(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Log.Format = "xml"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log.format")
}
