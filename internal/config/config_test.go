package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadLedgerAPIConfig(t *testing.T) {
	tests := []struct {
		name        string
		configFile  string
		expectError bool
		validate    func(*testing.T, *LedgerAPIConfig)
	}{
		{
			name: "valid config file",
			configFile: `
debug: true
sentry_dsn: "https://sentry.example.com"
server:
  host: 127.0.0.1
  port: 9090
database:
  host: db.internal
  port: 6432
  user: ledger
  password: secret
  dbname: cbdc
  max_open_conns: 40
  conn_max_lifetime: 5m
broker:
  kind: kafka
  topic_prefix: ledger
  kafka:
    brokers:
      - kafka-1:9092
      - kafka-2:9092
    required_acks: 1
publisher:
  queue_size: 256
  batch_size: 32
  flush_interval: 50ms
  overflow: drop_oldest
  retry_max_elapsed_time: 2m
sweeper:
  interval: 10s
  grace: 30s
ledger:
  max_conflict_retries: 3
  bulk_concurrency: 4
auth:
  api_keys:
    - key-a
rate_limit:
  rps: 50
  burst: 10
`,
			expectError: false,
			validate: func(t *testing.T, cfg *LedgerAPIConfig) {
				assert.True(t, cfg.Debug)
				assert.Equal(t, "https://sentry.example.com", cfg.SentryDSN)
				assert.Equal(t, "127.0.0.1", cfg.Server.Host)
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, "db.internal", cfg.Database.Host)
				assert.Equal(t, 6432, cfg.Database.Port)
				assert.Equal(t, 40, cfg.Database.MaxOpenConns)
				assert.Equal(t, 5*time.Minute, cfg.Database.ConnMaxLifetime)
				assert.Equal(t, BrokerKindKafka, cfg.Broker.Kind)
				assert.Equal(t, "ledger", cfg.Broker.TopicPrefix)
				assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Broker.Kafka.Brokers)
				assert.Equal(t, 1, cfg.Broker.Kafka.RequiredAcks)
				assert.Equal(t, 256, cfg.Publisher.QueueSize)
				assert.Equal(t, 32, cfg.Publisher.BatchSize)
				assert.Equal(t, 50*time.Millisecond, cfg.Publisher.FlushInterval)
				assert.Equal(t, "drop_oldest", cfg.Publisher.Overflow)
				assert.Equal(t, 2*time.Minute, cfg.Publisher.RetryMaxElapsedTime)
				assert.Equal(t, 10*time.Second, cfg.Sweeper.Interval)
				assert.Equal(t, 30*time.Second, cfg.Sweeper.Grace)
				assert.Equal(t, 3, cfg.Ledger.MaxConflictRetries)
				assert.Equal(t, 4, cfg.Ledger.BulkConcurrency)
				assert.Equal(t, []string{"key-a"}, cfg.Auth.APIKeys)
				assert.Equal(t, 50.0, cfg.RateLimit.RPS)
				assert.Equal(t, 10, cfg.RateLimit.Burst)
			},
		},
		{
			name: "defaults",
			configFile: `
database:
  host: localhost
`,
			expectError: false,
			validate: func(t *testing.T, cfg *LedgerAPIConfig) {
				assert.Equal(t, "0.0.0.0", cfg.Server.Host)
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 5432, cfg.Database.Port)
				assert.Equal(t, "disable", cfg.Database.SSLMode)
				assert.Equal(t, BrokerKindNATS, cfg.Broker.Kind)
				assert.Equal(t, "cbdc", cfg.Broker.TopicPrefix)
				assert.Equal(t, "CBDC_LEDGER_EVENTS", cfg.Broker.NATS.StreamName)
				assert.Equal(t, "2s", cfg.Broker.NATS.ReconnectWait.String())
				assert.Equal(t, 10000, cfg.Publisher.QueueSize)
				assert.Equal(t, 100, cfg.Publisher.BatchSize)
				assert.Equal(t, 100*time.Millisecond, cfg.Publisher.FlushInterval)
				assert.Equal(t, "block", cfg.Publisher.Overflow)
				assert.Equal(t, time.Duration(0), cfg.Publisher.RetryMaxElapsedTime)
				assert.True(t, cfg.Sweeper.Enabled)
				assert.Equal(t, time.Minute, cfg.Sweeper.Grace)
				assert.Equal(t, 5, cfg.Ledger.MaxConflictRetries)
				assert.Equal(t, 16, cfg.Ledger.BulkConcurrency)
				assert.Equal(t, 1000, cfg.Ledger.BulkMaxTokens)
				assert.Zero(t, cfg.RateLimit.RPS)
			},
		},
		{
			name:        "missing config file",
			configFile:  "",
			expectError: false,
			validate:    nil,
		},
		{
			name: "unknown broker kind",
			configFile: `
broker:
  kind: rabbitmq
`,
			expectError: true,
			validate:    nil,
		},
		{
			name: "non-positive queue size",
			configFile: `
publisher:
  queue_size: 0
`,
			expectError: true,
			validate:    nil,
		},
		{
			name: "block policy without enqueue timeout",
			configFile: `
publisher:
  overflow: block
  enqueue_timeout: 0s
`,
			expectError: true,
			validate:    nil,
		},
		{
			name: "reject policy without enqueue timeout",
			configFile: `
publisher:
  overflow: reject
  enqueue_timeout: 0s
`,
			expectError: false,
			validate: func(t *testing.T, cfg *LedgerAPIConfig) {
				assert.Equal(t, "reject", cfg.Publisher.Overflow)
				assert.Equal(t, time.Duration(0), cfg.Publisher.EnqueueTimeout)
			},
		},
		{
			name: "invalid yaml",
			configFile: `
				database:
				  host: localhost
				  port: invalid
			`,
			expectError: true,
			validate:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			var configFile string

			if tt.configFile != "" {
				configFile = filepath.Join(tmpDir, "config.yaml")
				err := os.WriteFile(configFile, []byte(tt.configFile), 0600)
				require.NoError(t, err)
			} else {
				configFile = filepath.Join(tmpDir, "nonexistent.yaml")
			}

			cfg, err := LoadLedgerAPIConfig(configFile, tmpDir)

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, cfg)
			} else {
				if tt.validate != nil {
					require.NoError(t, err)
					require.NotNil(t, cfg)
					tt.validate(t, cfg)
				}
			}
		})
	}
}

func TestLoadLedgerAPIConfig_EnvOverride(t *testing.T) {
	t.Setenv("FF_LEDGER_BROKER_KIND", "kafka")
	t.Setenv("FF_LEDGER_PUBLISHER_BATCH_SIZE", "7")
	t.Setenv("FF_LEDGER_DATABASE_HOST", "pg.example")

	tmpDir := t.TempDir()
	cfg, err := LoadLedgerAPIConfig(filepath.Join(tmpDir, "nonexistent.yaml"), tmpDir)
	require.NoError(t, err)

	assert.Equal(t, BrokerKindKafka, cfg.Broker.Kind)
	assert.Equal(t, 7, cfg.Publisher.BatchSize)
	assert.Equal(t, "pg.example", cfg.Database.Host)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "ledger",
		Password: "pw",
		DBName:   "cbdc",
		SSLMode:  "disable",
	}

	assert.Equal(t, "host=localhost port=5432 user=ledger password=pw dbname=cbdc sslmode=disable", cfg.DSN())
}
