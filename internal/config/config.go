package config

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// Geohash precision bounds; one character is a continent-sized cell,
// twelve is sub-meter.
const (
	minPrecision = 1
	maxPrecision = 12
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// Geocoding enrichment configuration.
	GoogleMapsAPIKey string
	GeocodeEnabled   bool
	GeocodeTimeout   time.Duration
	QueriesPerSecond int

	// Proximity cache configuration.
	CacheStorageLocation string
	CachePrecision       int
	CacheTTLDays         int
}

// CacheTTL returns the cache entry lifetime as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLDays) * 24 * time.Hour
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDurationEnv("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	batchSize, err := parseIntEnv("BATCH_SIZE", 50, 1, 1000)
	if err != nil {
		return nil, err
	}

	flushInterval, err := parseDurationEnv("BATCH_FLUSH_INTERVAL", 500*time.Millisecond)
	if err != nil {
		return nil, err
	}

	geocodeTimeout, err := parseDurationEnv("GEOCODE_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	queriesPerSecond, err := parseIntEnv("GEOCODE_QPS", 40, 1, 50)
	if err != nil {
		return nil, err
	}

	cachePrecision, err := parseIntEnv("CACHE_PRECISION", 6, minPrecision, maxPrecision)
	if err != nil {
		return nil, err
	}

	cacheTTLDays, err := parseIntEnv("CACHE_TTL_DAYS", 30, 1, 365)
	if err != nil {
		return nil, err
	}

	apiKey := os.Getenv("GOOGLE_MAPS_API_KEY")
	geocodeEnabled := apiKey != ""
	if v := os.Getenv("GEOCODE_ENABLED"); v != "" {
		geocodeEnabled = v == "true"
	}

	cfg := &Config{
		KafkaBrokers:       parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   envOrDefault("KAFKA_SOURCE_TOPIC", "raw-location-data"),
		KafkaSinkTopic:     envOrDefault("KAFKA_SINK_TOPIC", "enriched-location-data"),
		KafkaGroupID:       envOrDefault("KAFKA_GROUP_ID", "location-enrichment"),
		HTTPAddr:           envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           envOrDefault("LOG_LEVEL", "info"),
		LogFormat:          envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		GoogleMapsAPIKey: apiKey,
		GeocodeEnabled:   geocodeEnabled,
		GeocodeTimeout:   geocodeTimeout,
		QueriesPerSecond: queriesPerSecond,

		CacheStorageLocation: envOrDefault("CACHE_STORAGE_LOCATION", "data/geocoding_cache.json"),
		CachePrecision:       cachePrecision,
		CacheTTLDays:         cacheTTLDays,
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}
	if cfg.GeocodeEnabled && cfg.GoogleMapsAPIKey == "" {
		return nil, errors.New("GEOCODE_ENABLED is true but GOOGLE_MAPS_API_KEY is not set")
	}
	if cfg.CacheStorageLocation == "" {
		return nil, errors.New("CACHE_STORAGE_LOCATION is required")
	}

	return cfg, nil
}

func parseDurationEnv(name string, fallback time.Duration) (time.Duration, error) {
	s := os.Getenv(name)
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", name, s)
	}
	return d, nil
}
