package models

// MConfig Structure
type MConfig struct {
	Name     string          `yaml:"name"`
	Host     string          `yaml:"host"`
	Port     int             `yaml:"port"`
	LogLevel string          `yaml:"log_level"`
	GrpcHost string          `yaml:"grpc_host"`
	GrpcPort int             `yaml:"grpc_port"`
	Logging  MLoggingConfig  `yaml:"logging"`
	Storage  MStorageConfig  `yaml:"storage"`
	Redis    MRedisConfig    `yaml:"redis"`
	Kafka    MKafkaConfig    `yaml:"kafka"`
	Calendar MCalendarConfig `yaml:"calendar"`
	Stream   MStreamConfig   `yaml:"stream"`
}

type MLoggingConfig struct {
	File       string `yaml:"file"` // empty disables the rotating file
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"`
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
	Schema             string `yaml:"schema"`
	RetentionDays      int    `yaml:"retention_days"`
}

type MRedisConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Addr            string `yaml:"addr"`
	Password        string `yaml:"password"`
	DB              int    `yaml:"db"`
	LatestTTLMinute int    `yaml:"latest_ttl_minutes"`
}

type MKafkaConfig struct {
	Enabled   bool     `yaml:"enabled"`
	Brokers   []string `yaml:"brokers"`
	Topic     string   `yaml:"topic"`
	GroupID   string   `yaml:"group_id"`
	BatchSize int      `yaml:"batch_size"`
}

type MCalendarConfig struct {
	Exchange         string `yaml:"exchange"` // ISO 10383 MIC, e.g. xshg
	FallbackExchange bool   `yaml:"fallback_exchange"`
	SeedDays         int    `yaml:"seed_days"` // days either side of today written to the calendar table at startup
}

type MStreamConfig struct {
	Timezone             string `yaml:"timezone"`
	PollIntervalSeconds  int    `yaml:"poll_interval_seconds"`
	PushThresholdSeconds int    `yaml:"push_threshold_seconds"`
	Workers              int    `yaml:"workers"`
	QueueSize            int    `yaml:"queue_size"`
	FetchTimeoutSeconds  int    `yaml:"fetch_timeout_seconds"`
}
