package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store directory sources.
const (
	StoreSourcePostgres = "postgres"
	StoreSourceSnapshot = "snapshot"
)

const minChannelSecretLength = 16

// Config holds all application configuration.
type Config struct {
	Server         ServerConfig
	Database       DatabaseConfig
	Logger         LoggerConfig
	Auth           AuthConfig
	Realtime       RealtimeConfig
	Kafka          KafkaConfig
	StoreDirectory StoreDirectoryConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	MaxConnections  int
	MinConnections  int
	MaxConnLifetime int // seconds
	MigrateOnStart  bool
	ConnectTimeout  time.Duration
}

// LoggerConfig holds logger-related configuration.
type LoggerConfig struct {
	Level  string
	Format string // "json" or "console"
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	APIKey               string
	ChannelTokenSecret   string
	ChannelTokenTTL      time.Duration
	ChannelTokenRequired bool
}

// RealtimeConfig tunes the websocket fan-out.
type RealtimeConfig struct {
	SubscriberBuffer int
	WriteTimeout     time.Duration
	PongWait         time.Duration
	PingPeriod       time.Duration
	MaxMessageBytes  int64
}

// KafkaConfig enables cross-instance fan-out through a Kafka topic.
type KafkaConfig struct {
	Enabled     bool
	Brokers     []string
	Topic       string
	GroupPrefix string
}

// StoreDirectoryConfig selects where store pricing settings are read from.
type StoreDirectoryConfig struct {
	Source        string // "postgres" or "snapshot"
	SnapshotPaths []string
	S3            S3Config
}

// S3Config holds AWS S3 configuration for store snapshot files.
type S3Config struct {
	Enabled bool
	Bucket  string
	Region  string
	Prefix  string // Path prefix within bucket (e.g., "stores/")
}

// Load loads configuration from environment variables. A .env file in the
// working directory is read first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			Database:        getEnv("DB_NAME", "foodmarket"),
			MaxConnections:  getEnvAsInt("DB_MAX_CONNECTIONS", 25),
			MinConnections:  getEnvAsInt("DB_MIN_CONNECTIONS", 5),
			MaxConnLifetime: getEnvAsInt("DB_MAX_CONN_LIFETIME", 300),
			MigrateOnStart:  getEnvAsBool("DB_MIGRATE_ON_START", true),
			ConnectTimeout:  getEnvAsDuration("DB_CONNECT_TIMEOUT", 30*time.Second),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Auth: AuthConfig{
			APIKey:               getEnv("API_KEY", ""),
			ChannelTokenSecret:   getEnv("CHANNEL_TOKEN_SECRET", ""),
			ChannelTokenTTL:      getEnvAsDuration("CHANNEL_TOKEN_TTL", 15*time.Minute),
			ChannelTokenRequired: getEnvAsBool("CHANNEL_TOKEN_REQUIRED", true),
		},
		Realtime: RealtimeConfig{
			SubscriberBuffer: getEnvAsInt("REALTIME_SUBSCRIBER_BUFFER", 64),
			WriteTimeout:     getEnvAsDuration("REALTIME_WRITE_TIMEOUT", 10*time.Second),
			PongWait:         getEnvAsDuration("REALTIME_PONG_WAIT", 60*time.Second),
			PingPeriod:       getEnvAsDuration("REALTIME_PING_PERIOD", 54*time.Second),
			MaxMessageBytes:  int64(getEnvAsInt("REALTIME_MAX_MESSAGE_BYTES", 4096)),
		},
		Kafka: KafkaConfig{
			Enabled:     getEnvAsBool("KAFKA_ENABLED", false),
			Brokers:     getEnvAsSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
			Topic:       getEnv("KAFKA_TOPIC", "order-events"),
			GroupPrefix: getEnv("KAFKA_GROUP_PREFIX", "food-market-relay"),
		},
		StoreDirectory: StoreDirectoryConfig{
			Source:        getEnv("STORE_SOURCE", StoreSourcePostgres),
			SnapshotPaths: getEnvAsSlice("STORE_SNAPSHOT_PATHS", nil),
			S3: S3Config{
				Enabled: getEnvAsBool("S3_ENABLED", false),
				Bucket:  getEnv("S3_BUCKET", ""),
				Region:  getEnv("S3_REGION", "us-east-1"),
				Prefix:  getEnv("S3_PREFIX", "stores/"),
			},
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}

	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.Database.MaxConnections < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}

	if c.Database.MinConnections < 1 {
		return fmt.Errorf("database min connections must be at least 1")
	}

	if c.Database.MinConnections > c.Database.MaxConnections {
		return fmt.Errorf("database min connections cannot exceed max connections")
	}

	if c.Auth.APIKey == "" {
		return fmt.Errorf("API key is required")
	}

	if len(c.Auth.ChannelTokenSecret) < minChannelSecretLength {
		return fmt.Errorf("CHANNEL_TOKEN_SECRET must be at least %d characters", minChannelSecretLength)
	}

	if c.Auth.ChannelTokenTTL <= 0 {
		return fmt.Errorf("CHANNEL_TOKEN_TTL must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logger.Format)
	}

	if c.Realtime.SubscriberBuffer < 1 {
		return fmt.Errorf("REALTIME_SUBSCRIBER_BUFFER must be at least 1")
	}

	if c.Realtime.PingPeriod <= 0 || c.Realtime.PingPeriod >= c.Realtime.PongWait {
		return fmt.Errorf("REALTIME_PING_PERIOD must be positive and shorter than REALTIME_PONG_WAIT")
	}

	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("KAFKA_BROKERS is required when Kafka is enabled")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("KAFKA_TOPIC is required when Kafka is enabled")
		}
	}

	switch c.StoreDirectory.Source {
	case StoreSourcePostgres:
	case StoreSourceSnapshot:
		if len(c.StoreDirectory.SnapshotPaths) == 0 {
			return fmt.Errorf("STORE_SNAPSHOT_PATHS is required when STORE_SOURCE is snapshot")
		}
	default:
		return fmt.Errorf("invalid STORE_SOURCE: %s (must be postgres or snapshot)", c.StoreDirectory.Source)
	}

	if c.StoreDirectory.S3.Enabled {
		if c.StoreDirectory.S3.Bucket == "" {
			return fmt.Errorf("S3 bucket is required when S3 is enabled")
		}
		if c.StoreDirectory.S3.Region == "" {
			return fmt.Errorf("S3 region is required when S3 is enabled")
		}
	}

	return nil
}

// ConnectionString returns the PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

// Address returns the server address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value.
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value.
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration parses values such as "3s" or "15m".
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvAsSlice splits a comma separated variable, dropping empty entries.
func getEnvAsSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
