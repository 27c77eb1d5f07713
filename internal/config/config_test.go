package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	defaultBroker = "localhost:9092"
	testAPIKey    = "AIza-test-key"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "raw-location-data", cfg.KafkaSourceTopic)
	assert.Equal(t, "enriched-location-data", cfg.KafkaSinkTopic)
	assert.Equal(t, "location-enrichment", cfg.KafkaGroupID)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.BatchFlushInterval)

	assert.False(t, cfg.GeocodeEnabled)
	assert.Empty(t, cfg.GoogleMapsAPIKey)
	assert.Equal(t, 5*time.Second, cfg.GeocodeTimeout)
	assert.Equal(t, 40, cfg.QueriesPerSecond)

	assert.Equal(t, "data/geocoding_cache.json", cfg.CacheStorageLocation)
	assert.Equal(t, 6, cfg.CachePrecision)
	assert.Equal(t, 30, cfg.CacheTTLDays)
	assert.Equal(t, 30*24*time.Hour, cfg.CacheTTL())
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092")
	t.Setenv("KAFKA_SOURCE_TOPIC", "custom-source")
	t.Setenv("KAFKA_SINK_TOPIC", "custom-sink")
	t.Setenv("KAFKA_GROUP_ID", "custom-group")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("BATCH_SIZE", "100")
	t.Setenv("BATCH_FLUSH_INTERVAL", "1s")
	t.Setenv("GOOGLE_MAPS_API_KEY", testAPIKey)
	t.Setenv("GEOCODE_TIMEOUT", "10s")
	t.Setenv("GEOCODE_QPS", "25")
	t.Setenv("CACHE_STORAGE_LOCATION", "s3://telemetry-cache/gps_cache/geocoding_cache.json")
	t.Setenv("CACHE_PRECISION", "7")
	t.Setenv("CACHE_TTL_DAYS", "14")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-source", cfg.KafkaSourceTopic)
	assert.Equal(t, "custom-sink", cfg.KafkaSinkTopic)
	assert.Equal(t, "custom-group", cfg.KafkaGroupID)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, 1*time.Second, cfg.BatchFlushInterval)

	assert.True(t, cfg.GeocodeEnabled)
	assert.Equal(t, testAPIKey, cfg.GoogleMapsAPIKey)
	assert.Equal(t, 10*time.Second, cfg.GeocodeTimeout)
	assert.Equal(t, 25, cfg.QueriesPerSecond)

	assert.Equal(t, "s3://telemetry-cache/gps_cache/geocoding_cache.json", cfg.CacheStorageLocation)
	assert.Equal(t, 7, cfg.CachePrecision)
	assert.Equal(t, 14, cfg.CacheTTLDays)
	assert.Equal(t, 14*24*time.Hour, cfg.CacheTTL())
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_NegativeShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "-1s")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidBatchSize(t *testing.T) {
	t.Setenv("BATCH_SIZE", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BATCH_SIZE")
}

func TestLoad_BatchSizeTooLarge(t *testing.T) {
	t.Setenv("BATCH_SIZE", "9999")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BATCH_SIZE")
}

func TestLoad_InvalidCachePrecision(t *testing.T) {
	for _, v := range []string{"0", "13", "banana"} {
		t.Setenv("CACHE_PRECISION", v)
		_, err := Load()
		require.Error(t, err, "precision %q", v)
		assert.Contains(t, err.Error(), "CACHE_PRECISION")
	}
}

func TestLoad_InvalidCacheTTL(t *testing.T) {
	t.Setenv("CACHE_TTL_DAYS", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CACHE_TTL_DAYS")
}

func TestLoad_InvalidQPS(t *testing.T) {
	t.Setenv("GEOCODE_QPS", "500")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GEOCODE_QPS")
}

func TestLoad_GeocodeEnabledWithoutKey(t *testing.T) {
	t.Setenv("GEOCODE_ENABLED", "true")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GOOGLE_MAPS_API_KEY")
}

func TestLoad_APIKeyImpliesEnabled(t *testing.T) {
	t.Setenv("GOOGLE_MAPS_API_KEY", testAPIKey)
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.GeocodeEnabled)
}

func TestLoad_GeocodeExplicitlyDisabled(t *testing.T) {
	t.Setenv("GOOGLE_MAPS_API_KEY", testAPIKey)
	t.Setenv("GEOCODE_ENABLED", "false")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.GeocodeEnabled)
}
