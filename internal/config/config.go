package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// BaseConfig holds base configuration
type BaseConfig struct {
	Debug     bool   `mapstructure:"debug"`
	SentryDSN string `mapstructure:"sentry_dsn"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`     // Maximum number of open connections to the database
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`     // Maximum number of idle connections in the pool
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`  // Maximum amount of time a connection may be reused (e.g., "5m", "1h")
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"` // Maximum amount of time a connection may be idle (e.g., "10m", "30m")
}

// NATSConfig holds NATS JetStream configuration
type NATSConfig struct {
	URL            string        `mapstructure:"url"`
	StreamName     string        `mapstructure:"stream_name"`
	MaxReconnects  int           `mapstructure:"max_reconnects"`
	ReconnectWait  time.Duration `mapstructure:"reconnect_wait"`
	ConnectionName string        `mapstructure:"connection_name"`
	Duplicates     time.Duration `mapstructure:"duplicates"` // JetStream dedupe window for Nats-Msg-Id
}

// KafkaConfig holds Kafka producer configuration
type KafkaConfig struct {
	Brokers      []string      `mapstructure:"brokers"`
	BatchSize    int           `mapstructure:"batch_size"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
	RequiredAcks int           `mapstructure:"required_acks"` // -1 all, 0 none, 1 leader
}

// Broker kinds
const (
	BrokerKindNATS  = "nats"
	BrokerKindKafka = "kafka"
)

// BrokerConfig selects and configures the event broker
type BrokerConfig struct {
	Kind        string      `mapstructure:"kind"`
	TopicPrefix string      `mapstructure:"topic_prefix"`
	NATS        NATSConfig  `mapstructure:"nats"`
	Kafka       KafkaConfig `mapstructure:"kafka"`
}

// PublisherConfig holds the event publisher configuration
type PublisherConfig struct {
	QueueSize            int           `mapstructure:"queue_size"`
	BatchSize            int           `mapstructure:"batch_size"`
	FlushInterval        time.Duration `mapstructure:"flush_interval"`
	Overflow             string        `mapstructure:"overflow"` // block, reject or drop_oldest
	EnqueueTimeout       time.Duration `mapstructure:"enqueue_timeout"`
	RetryInitialInterval time.Duration `mapstructure:"retry_initial_interval"`
	RetryMaxInterval     time.Duration `mapstructure:"retry_max_interval"`
	RetryMaxElapsedTime  time.Duration `mapstructure:"retry_max_elapsed_time"` // 0 retries until shutdown
	ShutdownTimeout      time.Duration `mapstructure:"shutdown_timeout"`
}

// SweeperConfig holds the outbox relay configuration
type SweeperConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Interval  time.Duration `mapstructure:"interval"`
	Grace     time.Duration `mapstructure:"grace"`
	BatchSize int           `mapstructure:"batch_size"`
}

// LedgerConfig holds ledger service tuning
type LedgerConfig struct {
	MaxConflictRetries int `mapstructure:"max_conflict_retries"`
	BulkConcurrency    int `mapstructure:"bulk_concurrency"`
	BulkMaxTokens      int `mapstructure:"bulk_max_tokens"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host             string   `mapstructure:"host"`
	Port             int      `mapstructure:"port"`
	ReadTimeout      int      `mapstructure:"read_timeout"`  // in seconds
	WriteTimeout     int      `mapstructure:"write_timeout"` // in seconds
	IdleTimeout      int      `mapstructure:"idle_timeout"`  // in seconds
	CORSAllowOrigins []string `mapstructure:"cors_allow_origins"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTPublicKey string   `mapstructure:"jwt_public_key"`
	APIKeys      []string `mapstructure:"api_keys"`
}

// RateLimitConfig holds the per-process API rate limit
type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"` // 0 disables the limiter
	Burst int     `mapstructure:"burst"`
}

// LedgerAPIConfig holds configuration for the ledger API server
type LedgerAPIConfig struct {
	BaseConfig `mapstructure:",squash"`
	Server     ServerConfig    `mapstructure:"server"`
	Database   DatabaseConfig  `mapstructure:"database"`
	Broker     BrokerConfig    `mapstructure:"broker"`
	Publisher  PublisherConfig `mapstructure:"publisher"`
	Sweeper    SweeperConfig   `mapstructure:"sweeper"`
	Ledger     LedgerConfig    `mapstructure:"ledger"`
	Auth       AuthConfig      `mapstructure:"auth"`
	RateLimit  RateLimitConfig `mapstructure:"rate_limit"`
}

// LoadLedgerAPIConfig loads configuration for the ledger API server
func LoadLedgerAPIConfig(configFile string, envPath string) (*LedgerAPIConfig, error) {
	v := configureViper("ledger-api", configFile, envPath)

	// Set defaults
	v.SetDefault("debug", false)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.idle_timeout", 120)
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("broker.kind", BrokerKindNATS)
	v.SetDefault("broker.topic_prefix", "cbdc")
	v.SetDefault("broker.nats.url", "nats://localhost:4222")
	v.SetDefault("broker.nats.stream_name", "CBDC_LEDGER_EVENTS")
	v.SetDefault("broker.nats.max_reconnects", 10)
	v.SetDefault("broker.nats.reconnect_wait", "2s")
	v.SetDefault("broker.nats.connection_name", "ff-ledger-api")
	v.SetDefault("broker.nats.duplicates", "2m")
	v.SetDefault("broker.kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("broker.kafka.batch_size", 100)
	v.SetDefault("broker.kafka.batch_timeout", "10ms")
	v.SetDefault("broker.kafka.write_timeout", "10s")
	v.SetDefault("broker.kafka.max_attempts", 3)
	v.SetDefault("broker.kafka.required_acks", -1)
	v.SetDefault("publisher.queue_size", 10000)
	v.SetDefault("publisher.batch_size", 100)
	v.SetDefault("publisher.flush_interval", "100ms")
	v.SetDefault("publisher.overflow", "block")
	v.SetDefault("publisher.enqueue_timeout", "1s")
	v.SetDefault("publisher.retry_initial_interval", "100ms")
	v.SetDefault("publisher.retry_max_interval", "30s")
	v.SetDefault("publisher.retry_max_elapsed_time", "0s")
	v.SetDefault("publisher.shutdown_timeout", "30s")
	v.SetDefault("sweeper.enabled", true)
	v.SetDefault("sweeper.interval", "30s")
	v.SetDefault("sweeper.grace", "1m")
	v.SetDefault("sweeper.batch_size", 500)
	v.SetDefault("ledger.max_conflict_retries", 5)
	v.SetDefault("ledger.bulk_concurrency", 16)
	v.SetDefault("ledger.bulk_max_tokens", 1000)
	v.SetDefault("rate_limit.rps", 0)
	v.SetDefault("rate_limit.burst", 100)

	if err := v.ReadInConfig(); err != nil {
		var error viper.ConfigFileNotFoundError
		if errors.As(err, &error) {
			// Config file not found, use environment variables
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config LedgerAPIConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks the values that cannot be defaulted
func (c *LedgerAPIConfig) Validate() error {
	switch c.Broker.Kind {
	case BrokerKindNATS, BrokerKindKafka:
	default:
		return fmt.Errorf("invalid broker kind: %q", c.Broker.Kind)
	}

	if c.Publisher.QueueSize <= 0 {
		return fmt.Errorf("publisher.queue_size must be positive, got %d", c.Publisher.QueueSize)
	}

	// A request blocked on a full queue holds its handler until the timeout
	if c.Publisher.Overflow == "block" && c.Publisher.EnqueueTimeout <= 0 {
		return fmt.Errorf("publisher.enqueue_timeout must be positive with the block policy, got %s", c.Publisher.EnqueueTimeout)
	}

	if c.Ledger.BulkConcurrency <= 0 {
		return fmt.Errorf("ledger.bulk_concurrency must be positive, got %d", c.Ledger.BulkConcurrency)
	}

	return nil
}

func configureViper(service string, configFile string, envPath string) *viper.Viper {
	v := viper.New()

	// Load environment variables
	loadEnv(envPath, service)

	// Set config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// Search for config.yaml in multiple locations:
		// 1. Current directory
		v.AddConfigPath(".")
		// 2. Service-specific directory (e.g., cmd/ledger-api/)
		v.AddConfigPath(fmt.Sprintf("cmd/%s/", service))
		// 3. Config directory
		v.AddConfigPath("config/")
	}

	// Set environment variables
	v.SetEnvPrefix("FF_LEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicitly bind all environment variables
	bindAllEnvVars(v)
	return v
}

// bindAllEnvVars explicitly binds all possible environment variables
// This is required for viper to map env vars to config struct fields when no config file exists
func bindAllEnvVars(v *viper.Viper) {
	keys := []string{
		"debug",
		"sentry_dsn",
		// Database
		"database.host",
		"database.port",
		"database.user",
		"database.password",
		"database.dbname",
		"database.sslmode",
		"database.max_open_conns",
		"database.max_idle_conns",
		"database.conn_max_lifetime",
		"database.conn_max_idle_time",
		// Broker
		"broker.kind",
		"broker.topic_prefix",
		"broker.nats.url",
		"broker.nats.stream_name",
		"broker.nats.max_reconnects",
		"broker.nats.reconnect_wait",
		"broker.nats.connection_name",
		"broker.nats.duplicates",
		"broker.kafka.brokers",
		"broker.kafka.batch_size",
		"broker.kafka.batch_timeout",
		"broker.kafka.write_timeout",
		"broker.kafka.max_attempts",
		"broker.kafka.required_acks",
		// Publisher
		"publisher.queue_size",
		"publisher.batch_size",
		"publisher.flush_interval",
		"publisher.overflow",
		"publisher.enqueue_timeout",
		"publisher.retry_initial_interval",
		"publisher.retry_max_interval",
		"publisher.retry_max_elapsed_time",
		"publisher.shutdown_timeout",
		// Sweeper
		"sweeper.enabled",
		"sweeper.interval",
		"sweeper.grace",
		"sweeper.batch_size",
		// Ledger
		"ledger.max_conflict_retries",
		"ledger.bulk_concurrency",
		"ledger.bulk_max_tokens",
		// Server
		"server.host",
		"server.port",
		"server.read_timeout",
		"server.write_timeout",
		"server.idle_timeout",
		"server.cors_allow_origins",
		// Auth
		"auth.jwt_public_key",
		"auth.api_keys",
		// Rate limit
		"rate_limit.rps",
		"rate_limit.burst",
	}

	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

// loadEnv loads environment variables from the config directory
func loadEnv(envPath string, service string) {
	// Always try shared base first, then local, then optional per-service local.
	envFiles := []string{".env", ".env.local"}
	if service != "" {
		envFiles = append(envFiles, ".env."+service+".local")
	}

	// Default to config directory
	if envPath == "" {
		envPath = "config/"
	}

	for _, envFile := range envFiles {
		candidate := filepath.Join(envPath, envFile)
		_ = godotenv.Overload(candidate) // Overload lets later files override earlier ones
	}
}

// ChdirRepoRoot changes the current working directory to the repository root
func ChdirRepoRoot() {
	cwd, _ := os.Getwd()
	for range 5 {
		if _, err := os.Stat(filepath.Join(cwd, "config")); err == nil {
			_ = os.Chdir(cwd)
			return
		}
		cwd = filepath.Dir(cwd)
	}
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
