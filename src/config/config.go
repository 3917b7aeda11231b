package config

import (
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"market-stream/src/helpers"
	"market-stream/src/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment overrides for values that should not live in the YAML file.
const (
	EnvPostgresDSN   = "MARKET_STREAM_PG_DSN"
	EnvRedisPassword = "MARKET_STREAM_REDIS_PASSWORD"
	EnvKafkaBrokers  = "MARKET_STREAM_KAFKA_BROKERS"
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new MConfig instance from YAML file
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, helpers.NewConfigurationError(fmt.Sprintf("failed to read config file '%s'", configPath), err)
	}

	// 2. .env is optional; real environment variables win over it
	_ = godotenv.Load()

	return Parse(data)
}

// -----------------------------------------------------------------------------

// Parse builds a validated Config from raw YAML bytes.
func Parse(data []byte) (*Config, error) {
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, helpers.NewConfigurationError("failed to parse config from YAML", err)
	}

	config := &Config{MConfig: &modelConfig}
	config.overrideWithEnv()
	config.ApplyDefaults()

	if err := config.Validate(); err != nil {
		return nil, helpers.NewConfigurationError("config validation failed", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

func (c *Config) overrideWithEnv() {
	if dsn := os.Getenv(EnvPostgresDSN); dsn != "" {
		c.Storage.DBConnectionString = dsn
	}
	if pw := os.Getenv(EnvRedisPassword); pw != "" {
		c.Redis.Password = pw
	}
	if brokers := os.Getenv(EnvKafkaBrokers); brokers != "" {
		c.Kafka.Brokers = strings.Split(brokers, ",")
	}
}

// -----------------------------------------------------------------------------

// ApplyDefaults fills zero values with the service defaults.
func (c *Config) ApplyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "INFO"
	}
	if c.Storage.DBType == "" {
		c.Storage.DBType = "sqlite"
	}
	if c.Storage.RetentionDays == 0 {
		c.Storage.RetentionDays = 30
	}
	if c.Redis.LatestTTLMinute == 0 {
		c.Redis.LatestTTLMinute = 60 * 24
	}
	if c.Kafka.BatchSize == 0 {
		c.Kafka.BatchSize = 100
	}
	if c.Calendar.Exchange == "" {
		c.Calendar.Exchange = "xshg"
	}

	s := &c.Stream
	if s.Timezone == "" {
		s.Timezone = "Asia/Shanghai"
	}
	if s.PollIntervalSeconds == 0 {
		s.PollIntervalSeconds = 3
	}
	if s.PushThresholdSeconds == 0 {
		s.PushThresholdSeconds = 3
	}
	if s.Workers == 0 {
		s.Workers = 4
	}
	if s.QueueSize == 0 {
		s.QueueSize = 256
	}
	if s.FetchTimeoutSeconds == 0 {
		s.FetchTimeoutSeconds = 10
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}
	if c.GrpcPort != 0 && (c.GrpcPort <= 1024 || c.GrpcPort > 65535) {
		return fmt.Errorf("invalid grpc port number: %d (must be between 1025 and 65535)", c.GrpcPort)
	}

	// Storage
	switch c.Storage.DBType {
	case "sqlite":
		if c.Storage.DBPath == "" {
			return fmt.Errorf("database path cannot be empty for sqlite")
		}
	case "postgres":
		if c.Storage.DBConnectionString == "" {
			return fmt.Errorf("database connection string cannot be empty for postgres")
		}
	default:
		return fmt.Errorf("unsupported database type: %s", c.Storage.DBType)
	}
	if c.Storage.RetentionDays < 0 {
		return fmt.Errorf("retention days cannot be negative")
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis address cannot be empty when redis is enabled")
	}

	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("at least one kafka broker must be configured")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("kafka topic cannot be empty")
		}
	}

	// Stream
	if _, err := time.LoadLocation(c.Stream.Timezone); err != nil {
		return fmt.Errorf("invalid stream timezone '%s': %w", c.Stream.Timezone, err)
	}
	if c.Stream.PollIntervalSeconds <= 0 {
		return fmt.Errorf("poll interval must be greater than 0")
	}
	if c.Stream.PushThresholdSeconds < 0 {
		return fmt.Errorf("push threshold cannot be negative")
	}
	if c.Stream.Workers <= 0 {
		return fmt.Errorf("stream workers must be greater than 0")
	}
	if c.Stream.QueueSize <= 0 {
		return fmt.Errorf("stream queue size must be greater than 0")
	}

	return nil
}

// -----------------------------------------------------------------------------

// Location returns the exchange timezone used for phase calculation.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Stream.Timezone)
	if err != nil {
		return time.FixedZone("CST", 8*3600)
	}
	return loc
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	// 1. Marshal the struct to YAML
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	// 2. Write to file (0644 permissions)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
