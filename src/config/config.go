package config

import (
	"fmt"
	"os"

	"candle-relay/src/analysis"
	"candle-relay/src/helpers"
	"candle-relay/src/models"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override, e.g. RELAY_PORT.
const EnvPrefix = "RELAY_"

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig loads the YAML file, applies .env and RELAY_* overrides, fills
// defaults and validates.
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	// 2. Unmarshal data into the models struct
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	// 3. Environment overrides
	_ = godotenv.Load()
	if err := env.ParseWithOptions(&modelConfig, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("failed to parse environment overrides: %w", err)
	}

	config := &Config{MConfig: &modelConfig}
	config.ApplyDefaults()

	// 4. Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, helpers.NewConfigurationError("config validation failed: %v", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// ApplyDefaults fills zero values with the documented defaults.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "candle-relay"
	}
	if c.LogLevel == "" {
		c.LogLevel = "INFO"
	}

	m := &c.Market
	if m.SeriesCapacity == 0 {
		m.SeriesCapacity = 800
	}
	if m.MaxQueryLimit == 0 {
		m.MaxQueryLimit = 2000
	}
	if m.DefaultQueryLimit == 0 {
		m.DefaultQueryLimit = 300
	}
	if m.AggregateTimeframes == nil {
		m.AggregateTimeframes = []string{"1m", "5m", "15m", "30m", "1h", "4h", "1d"}
	}

	h := &c.Hub
	if h.SendBuffer == 0 {
		h.SendBuffer = 256
	}
	if h.InboxBuffer == 0 {
		h.InboxBuffer = 4096
	}
	if h.HeartbeatIntervalSeconds == 0 {
		h.HeartbeatIntervalSeconds = 15
	}
	if h.WriteTimeoutSeconds == 0 {
		h.WriteTimeoutSeconds = 2
	}
	if h.MaxMessageBytes == 0 {
		h.MaxMessageBytes = 1024 * 1024
	}

	s := &c.Storage
	if s.DBType == "" {
		s.DBType = "none"
	}
	if s.FlushIntervalSeconds == 0 {
		s.FlushIntervalSeconds = 5
	}
	if s.DataRetentionDays == 0 {
		s.DataRetentionDays = 7
	}

	if c.Redis.ChannelPrefix == "" {
		c.Redis.ChannelPrefix = "candle-relay"
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	// Server
	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}
	if c.GrpcPort != 0 && (c.GrpcPort <= 1024 || c.GrpcPort > 65535 || c.GrpcPort == c.Port) {
		return fmt.Errorf("invalid grpc port number: %d", c.GrpcPort)
	}

	// Market
	if c.Market.SeriesCapacity < 1 {
		return fmt.Errorf("series capacity must be positive")
	}
	if c.Market.MaxQueryLimit < 1 {
		return fmt.Errorf("max query limit must be positive")
	}
	if c.Market.DefaultQueryLimit < 1 || c.Market.DefaultQueryLimit > c.Market.MaxQueryLimit {
		return fmt.Errorf("default query limit must be between 1 and %d", c.Market.MaxQueryLimit)
	}
	for _, tf := range c.Market.AggregateTimeframes {
		if _, err := analysis.ParseTimeframe(tf); err != nil {
			return fmt.Errorf("aggregate timeframes: %w", err)
		}
	}

	// Hub
	if c.Hub.SendBuffer < 1 || c.Hub.InboxBuffer < 1 {
		return fmt.Errorf("hub buffers must be positive")
	}
	if c.Hub.HeartbeatIntervalSeconds < 1 || c.Hub.WriteTimeoutSeconds < 1 {
		return fmt.Errorf("hub intervals must be at least one second")
	}

	// Storage
	switch c.Storage.DBType {
	case "none":
	case "sqlite":
		if c.Storage.DBPath == "" {
			return fmt.Errorf("database path cannot be empty for sqlite")
		}
	case "postgres":
		if c.Storage.DBConnectionString == "" {
			return fmt.Errorf("connection string cannot be empty for postgres")
		}
	default:
		return fmt.Errorf("unsupported database type: %s", c.Storage.DBType)
	}

	// Data sources
	seen := make(map[string]struct{})
	for i, src := range c.DataSource.Sources {
		if src.Name == "" {
			return fmt.Errorf("source %d must have a name", i)
		}
		if _, dup := seen[src.Name]; dup {
			return fmt.Errorf("duplicate source name '%s'", src.Name)
		}
		seen[src.Name] = struct{}{}

		switch src.Type {
		case "mock":
			if len(src.Symbols) == 0 {
				return fmt.Errorf("source '%s' must have at least one symbol", src.Name)
			}
		case "kafka":
			if len(src.Brokers) == 0 || src.Topic == "" {
				return fmt.Errorf("kafka source '%s' needs brokers and a topic", src.Name)
			}
		default:
			return fmt.Errorf("source '%s' has unsupported type '%s'", src.Name, src.Type)
		}
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis address cannot be empty when redis is enabled")
	}

	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
