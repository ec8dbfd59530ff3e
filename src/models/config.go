package models

// MConfig Structure
type MConfig struct {
	Name       string            `yaml:"name" env:"NAME"`
	Host       string            `yaml:"host" env:"HOST"`
	Port       int               `yaml:"port" env:"PORT"`
	LogLevel   string            `yaml:"log_level" env:"LOG_LEVEL"`
	GrpcHost   string            `yaml:"grpc_host" env:"GRPC_HOST"`
	GrpcPort   int               `yaml:"grpc_port" env:"GRPC_PORT"`
	Market     MMarketConfig     `yaml:"market" envPrefix:"MARKET_"`
	Hub        MHubConfig        `yaml:"hub" envPrefix:"HUB_"`
	Storage    MStorageConfig    `yaml:"storage" envPrefix:"STORAGE_"`
	DataSource MDataSourceConfig `yaml:"data_source"`
	Redis      MRedisConfig      `yaml:"redis" envPrefix:"REDIS_"`
	Telemetry  MTelemetryConfig  `yaml:"telemetry" envPrefix:"TELEMETRY_"`
}

type MMarketConfig struct {
	SeriesCapacity      int      `yaml:"series_capacity" env:"SERIES_CAPACITY"`
	MaxQueryLimit       int      `yaml:"max_query_limit" env:"MAX_QUERY_LIMIT"`
	DefaultQueryLimit   int      `yaml:"default_query_limit" env:"DEFAULT_QUERY_LIMIT"`
	AggregateTimeframes []string `yaml:"aggregate_timeframes" env:"AGGREGATE_TIMEFRAMES" envSeparator:","`
	MaxMemoryMB         int      `yaml:"max_memory_mb" env:"MAX_MEMORY_MB"`
}

type MHubConfig struct {
	SendBuffer               int `yaml:"send_buffer" env:"SEND_BUFFER"`
	InboxBuffer              int `yaml:"inbox_buffer" env:"INBOX_BUFFER"`
	HeartbeatIntervalSeconds int `yaml:"heartbeat_interval_seconds" env:"HEARTBEAT_INTERVAL_SECONDS"`
	WriteTimeoutSeconds      int `yaml:"write_timeout_seconds" env:"WRITE_TIMEOUT_SECONDS"`
	MaxMessageBytes          int `yaml:"max_message_bytes" env:"MAX_MESSAGE_BYTES"`
}

type MStorageConfig struct {
	DBType               string `yaml:"db_type" env:"DB_TYPE"`
	DBPath               string `yaml:"db_path" env:"DB_PATH"`
	DBConnectionString   string `yaml:"db_connection_string" env:"DB_CONNECTION_STRING"`
	FlushIntervalSeconds int    `yaml:"flush_interval_seconds" env:"FLUSH_INTERVAL_SECONDS"`
	DataRetentionDays    int    `yaml:"data_retention_days" env:"DATA_RETENTION_DAYS"`
}

type MDataSourceConfig struct {
	Sources []MSourceConfig `yaml:"sources"`
}

type MSourceConfig struct {
	Name       string             `yaml:"name"`
	Type       string             `yaml:"type"` // "mock" or "kafka"
	Symbols    []string           `yaml:"symbols"`
	BasePrices map[string]float64 `yaml:"base_prices"`
	IntervalMS int                `yaml:"interval_ms"`
	SessionMIC string             `yaml:"session_mic"`
	Brokers    []string           `yaml:"brokers"`
	Topic      string             `yaml:"topic"`
	GroupID    string             `yaml:"group_id"`
}

type MRedisConfig struct {
	Enabled       bool   `yaml:"enabled" env:"ENABLED"`
	Addr          string `yaml:"addr" env:"ADDR"`
	Password      string `yaml:"password" env:"PASSWORD"`
	DB            int    `yaml:"db" env:"DB"`
	ChannelPrefix string `yaml:"channel_prefix" env:"CHANNEL_PREFIX"`
}

type MTelemetryConfig struct {
	TracingEnabled bool `yaml:"tracing_enabled" env:"TRACING_ENABLED"`
}
