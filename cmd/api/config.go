package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wms-platform/reallocation-service/pkg/kafka"
	"github.com/wms-platform/reallocation-service/pkg/mongodb"
)

const serviceName = "reallocation-service"

// Store and lock backends
const (
	backendMemory  = "memory"
	backendMongoDB = "mongodb"
	backendLocal   = "local"
	backendRedis   = "redis"
)

// Config holds application configuration. Values come from defaults, then the
// optional YAML file named by CONFIG_FILE, then environment variables.
type Config struct {
	ServerAddr         string        `yaml:"serverAddr"`
	LogLevel           string        `yaml:"logLevel"`
	Environment        string        `yaml:"environment"`
	StoreBackend       string        `yaml:"storeBackend"`
	LockBackend        string        `yaml:"lockBackend"`
	MongoURI           string        `yaml:"mongodbUri"`
	MongoDatabase      string        `yaml:"mongodbDatabase"`
	KafkaBrokers       string        `yaml:"kafkaBrokers"`
	RedisAddr          string        `yaml:"redisAddr"`
	TracingEnabled     bool          `yaml:"tracingEnabled"`
	OTLPEndpoint       string        `yaml:"otlpEndpoint"`
	OutboxPollInterval time.Duration `yaml:"outboxPollInterval"`
	SeedFile           string        `yaml:"seedFile"`
}

func defaultConfig() *Config {
	return &Config{
		ServerAddr:         ":8020",
		LogLevel:           "info",
		Environment:        "development",
		StoreBackend:       backendMongoDB,
		LockBackend:        backendLocal,
		MongoURI:           "mongodb://localhost:27017",
		MongoDatabase:      "reallocation_db",
		KafkaBrokers:       "localhost:9092",
		RedisAddr:          "localhost:6379",
		TracingEnabled:     true,
		OTLPEndpoint:       "localhost:4317",
		OutboxPollInterval: time.Second,
	}
}

func loadConfig() (*Config, error) {
	config := defaultConfig()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	config.ServerAddr = getEnv("SERVER_ADDR", config.ServerAddr)
	config.LogLevel = getEnv("LOG_LEVEL", config.LogLevel)
	config.Environment = getEnv("ENVIRONMENT", config.Environment)
	config.StoreBackend = strings.ToLower(getEnv("STORE_BACKEND", config.StoreBackend))
	config.LockBackend = strings.ToLower(getEnv("LOCK_BACKEND", config.LockBackend))
	config.MongoURI = getEnv("MONGODB_URI", config.MongoURI)
	config.MongoDatabase = getEnv("MONGODB_DATABASE", config.MongoDatabase)
	config.KafkaBrokers = getEnv("KAFKA_BROKERS", config.KafkaBrokers)
	config.RedisAddr = getEnv("REDIS_ADDR", config.RedisAddr)
	config.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", config.OTLPEndpoint)
	config.SeedFile = getEnv("SEED_FILE", config.SeedFile)

	if v := os.Getenv("TRACING_ENABLED"); v != "" {
		config.TracingEnabled = v == "true"
	}
	if v := os.Getenv("OUTBOX_POLL_INTERVAL"); v != "" {
		interval, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid OUTBOX_POLL_INTERVAL: %w", err)
		}
		config.OutboxPollInterval = interval
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) validate() error {
	switch c.StoreBackend {
	case backendMemory, backendMongoDB:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	switch c.LockBackend {
	case backendLocal, backendRedis:
	default:
		return fmt.Errorf("unknown LOCK_BACKEND %q", c.LockBackend)
	}
	if c.OutboxPollInterval <= 0 {
		return fmt.Errorf("outbox poll interval must be positive")
	}
	return nil
}

func (c *Config) mongoConfig() *mongodb.Config {
	config := mongodb.DefaultConfig()
	config.URI = c.MongoURI
	config.Database = c.MongoDatabase
	return config
}

func (c *Config) kafkaConfig() *kafka.Config {
	config := kafka.DefaultConfig()
	config.Brokers = kafka.ParseBrokers(c.KafkaBrokers)
	config.ClientID = serviceName
	return config
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
