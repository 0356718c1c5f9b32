package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Catalog and prediction settings.
	CatalogPath   string // empty selects the embedded default catalog
	StrictZones   bool
	CacheSize     int    // 0 disables the per-model classifier cache
	HistoryDBPath string // empty disables prediction history

	// Streaming settings, only consulted when KafkaEnabled is set.
	KafkaEnabled       bool
	KafkaBrokers       []string
	KafkaSourceTopic   string
	KafkaSinkTopic     string
	KafkaGroupID       string
	KafkaModel         string
	BatchSize          int
	BatchFlushInterval time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	cacheSize, err := parseCacheSize()
	if err != nil {
		return nil, err
	}

	strictZones, err := parseBool("STRICT_ZONES")
	if err != nil {
		return nil, err
	}

	kafkaEnabled, err := parseBool("KAFKA_ENABLED")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		CatalogPath:   os.Getenv("CATALOG_PATH"),
		StrictZones:   strictZones,
		CacheSize:     cacheSize,
		HistoryDBPath: os.Getenv("HISTORY_DB_PATH"),

		KafkaEnabled:       kafkaEnabled,
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "raw-sensor-readings"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "air-quality-predictions"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "air-quality-classifier"),
		KafkaModel:         sharedcfg.EnvOrDefault("KAFKA_MODEL", "Random Forest estándar"),
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,
	}

	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
		}
		if cfg.KafkaSourceTopic == cfg.KafkaSinkTopic {
			return nil, errors.New("KAFKA_SOURCE_TOPIC and KAFKA_SINK_TOPIC must differ")
		}
	}

	return cfg, nil
}

func parseCacheSize() (int, error) {
	s := os.Getenv("CACHE_SIZE")
	if s == "" {
		return 1024, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, errors.New("invalid CACHE_SIZE: must be a non-negative integer")
	}
	return n, nil
}

func parseBool(key string) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: must be true or false", key)
	}
	return v, nil
}
