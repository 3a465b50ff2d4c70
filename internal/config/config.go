package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Environment represents different deployment environments
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvProduction  Environment = "production"
)

// Config holds the configuration shared by the orwell binaries.
// Environment variables are parsed from the ORWELL_ prefix.
type Config struct {
	Environment Environment `envconfig:"ENVIRONMENT" default:"development"`

	// HTTP Configuration
	HTTPPort int `envconfig:"HTTP_PORT" default:"8080"`

	// Postgres holds identity metadata, transactions and the task queue.
	PostgresDSN string `envconfig:"POSTGRES_DSN" default:""`

	// Redis blob store for transient source images and transaction payloads.
	RedisAddr string `envconfig:"REDIS_ADDR" default:"localhost:6379"`

	// Recognition engine (Qdrant) and faceprint embedding service.
	QdrantHost         string `envconfig:"QDRANT_HOST" default:"localhost"`
	QdrantPort         int    `envconfig:"QDRANT_PORT" default:"6334"`
	FaceprintURL       string `envconfig:"FACEPRINT_URL" default:"http://localhost:8500"`
	FaceprintDimension int    `envconfig:"FACEPRINT_DIMENSION" default:"512"`

	// CollectionTemplate names the per-context recognition collection; the
	// {{id}} marker is replaced with the context.
	CollectionTemplate string `envconfig:"COLLECTION_TEMPLATE" default:"orwell-faces-{{id}}"`

	// Transaction topic (Kafka).
	KafkaBrokers     string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	TransactionTopic string `envconfig:"TRANSACTION_TOPIC" default:"orwell.transactions"`
	TransactionGroup string `envconfig:"TRANSACTION_GROUP" default:"orwell-transactions"`

	// Task queue and dispatcher tuning.
	QueueVisibilityTimeout time.Duration `envconfig:"QUEUE_VISIBILITY_TIMEOUT" default:"60s"`
	DispatcherInterval     time.Duration `envconfig:"DISPATCHER_INTERVAL" default:"2s"`
	DispatcherBudget       time.Duration `envconfig:"DISPATCHER_BUDGET" default:"55s"`
}

// New creates a new Config by parsing environment variables.
// Example: ORWELL_POSTGRES_DSN, ORWELL_HTTP_PORT.
func New() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("ORWELL", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if !strings.Contains(c.CollectionTemplate, "{{id}}") {
		return fmt.Errorf("collection template %q missing {{id}} marker", c.CollectionTemplate)
	}
	if c.QueueVisibilityTimeout <= 0 {
		return fmt.Errorf("queue visibility timeout must be positive")
	}
	if c.DispatcherBudget <= 0 {
		return fmt.Errorf("dispatcher budget must be positive")
	}
	return nil
}

// Brokers splits the comma-separated Kafka broker list.
func (c *Config) Brokers() []string {
	return strings.Split(c.KafkaBrokers, ",")
}

// IsTesting returns true if the environment is set to testing
func (c *Config) IsTesting() bool {
	return c.Environment == EnvTesting
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
