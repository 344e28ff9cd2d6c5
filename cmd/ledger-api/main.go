package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/feral-file/ff-ledger/internal/adapter"
	"github.com/feral-file/ff-ledger/internal/api/middleware"
	"github.com/feral-file/ff-ledger/internal/api/server"
	"github.com/feral-file/ff-ledger/internal/api/shared/executor"
	"github.com/feral-file/ff-ledger/internal/bulk"
	"github.com/feral-file/ff-ledger/internal/config"
	"github.com/feral-file/ff-ledger/internal/events"
	"github.com/feral-file/ff-ledger/internal/ledger"
	"github.com/feral-file/ff-ledger/internal/logger"
	"github.com/feral-file/ff-ledger/internal/messaging"
	"github.com/feral-file/ff-ledger/internal/providers/jetstream"
	"github.com/feral-file/ff-ledger/internal/providers/kafka"
	"github.com/feral-file/ff-ledger/internal/store"
	"github.com/feral-file/ff-ledger/internal/sweeper"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadLedgerAPIConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "ledger-api",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting Feral File Ledger API")

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err), zap.String("host", cfg.Database.Host))
	}

	// Configure connection pool
	if err := store.ConfigureConnectionPool(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime, cfg.Database.ConnMaxIdleTime); err != nil {
		logger.FatalCtx(ctx, "Failed to configure connection pool", zap.Error(err))
	}
	logger.InfoCtx(ctx, "Connected to database",
		zap.Int("max_open_conns", cfg.Database.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.Database.MaxIdleConns),
	)

	// Initialize store and adapters
	dataStore := store.NewPGStore(db)
	clock := adapter.NewClock()

	// Connect to the event broker
	broker, err := newBroker(ctx, cfg.Broker)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to event broker", zap.Error(err), zap.String("kind", cfg.Broker.Kind))
	}
	logger.InfoCtx(ctx, "Connected to event broker", zap.String("kind", cfg.Broker.Kind))

	// Start the event publisher
	publisher, err := events.NewPublisher(events.Config{
		QueueSize:            cfg.Publisher.QueueSize,
		BatchSize:            cfg.Publisher.BatchSize,
		FlushInterval:        cfg.Publisher.FlushInterval,
		Overflow:             events.OverflowPolicy(cfg.Publisher.Overflow),
		EnqueueTimeout:       cfg.Publisher.EnqueueTimeout,
		RetryInitialInterval: cfg.Publisher.RetryInitialInterval,
		RetryMaxInterval:     cfg.Publisher.RetryMaxInterval,
		RetryMaxElapsedTime:  cfg.Publisher.RetryMaxElapsedTime,
	}, broker, dataStore, clock)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to create event publisher", zap.Error(err))
	}

	// Initialize ledger services
	ledgerService := ledger.New(ledger.Config{
		MaxConflictRetries: cfg.Ledger.MaxConflictRetries,
	}, dataStore, publisher, clock)
	bulkOperator := bulk.NewOperator(bulk.Config{
		Concurrency: cfg.Ledger.BulkConcurrency,
		MaxTokens:   cfg.Ledger.BulkMaxTokens,
	}, ledgerService)

	// Start the outbox relay
	var relay sweeper.Sweeper
	if cfg.Sweeper.Enabled {
		relay = sweeper.NewOutboxRelay(&sweeper.OutboxRelayConfig{
			Interval:  cfg.Sweeper.Interval,
			Grace:     cfg.Sweeper.Grace,
			BatchSize: cfg.Sweeper.BatchSize,
		}, dataStore, publisher, clock)

		go func() {
			if err := relay.Start(ctx); err != nil {
				logger.ErrorCtx(ctx, err, zap.String("component", relay.Name()))
			}
		}()
	} else {
		logger.WarnCtx(ctx, "Outbox relay disabled, deferred events wait for the next restart")
	}

	// Initialize authentication
	authenticator, err := middleware.NewAuthenticator(middleware.AuthConfig{
		JWTPublicKey: cfg.Auth.JWTPublicKey,
		APIKeys:      cfg.Auth.APIKeys,
	})
	if err != nil {
		logger.FatalCtx(ctx, "Failed to initialize authentication", zap.Error(err))
	}

	// Create server
	srv := server.New(server.Config{
		Debug:            cfg.Debug,
		Host:             cfg.Server.Host,
		Port:             cfg.Server.Port,
		ReadTimeout:      time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:     time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:      time.Duration(cfg.Server.IdleTimeout) * time.Second,
		CORSAllowOrigins: cfg.Server.CORSAllowOrigins,
	},
		executor.NewExecutor(ledgerService, bulkOperator),
		publisher,
		authenticator,
		middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
	)

	// Start server in a goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			errCh <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.ErrorCtx(ctx, err, zap.String("component", "server"))
	}

	// Stop accepting requests before draining the publisher
	serverCtx, serverCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer serverCancel()
	if err := srv.Shutdown(serverCtx); err != nil {
		logger.Error(err, zap.String("component", "server"))
	}

	if relay != nil {
		if err := relay.Stop(serverCtx); err != nil {
			logger.Error(err, zap.String("component", relay.Name()))
		}
	}
	cancel()

	// Flush buffered events and close the broker, whatever is left stays in the outbox
	drainCtx, drainCancel := context.WithTimeout(context.Background(), cfg.Publisher.ShutdownTimeout)
	defer drainCancel()
	if err := publisher.Close(drainCtx); err != nil {
		logger.Error(err, zap.String("component", "publisher"))
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	logger.Info("Ledger API stopped", zap.Any("publisher", publisher.Stats()))
}

// newBroker connects to the broker selected by the configuration
func newBroker(ctx context.Context, cfg config.BrokerConfig) (messaging.Broker, error) {
	switch cfg.Kind {
	case config.BrokerKindNATS:
		return jetstream.NewBroker(ctx, jetstream.Config{
			URL:            cfg.NATS.URL,
			StreamName:     cfg.NATS.StreamName,
			SubjectPrefix:  cfg.TopicPrefix,
			MaxReconnects:  cfg.NATS.MaxReconnects,
			ReconnectWait:  cfg.NATS.ReconnectWait,
			ConnectionName: cfg.NATS.ConnectionName,
			Duplicates:     cfg.NATS.Duplicates,
		}, adapter.NewNatsJetStream())
	case config.BrokerKindKafka:
		writer := adapter.NewKafkaWriter(adapter.KafkaWriterConfig{
			Brokers:      cfg.Kafka.Brokers,
			BatchSize:    cfg.Kafka.BatchSize,
			BatchTimeout: cfg.Kafka.BatchTimeout,
			WriteTimeout: cfg.Kafka.WriteTimeout,
			MaxAttempts:  cfg.Kafka.MaxAttempts,
			RequiredAcks: kafkago.RequiredAcks(cfg.Kafka.RequiredAcks),
		})
		return kafka.NewBroker(kafka.Config{TopicPrefix: cfg.TopicPrefix + "."}, writer), nil
	default:
		return nil, fmt.Errorf("unsupported broker kind: %s", cfg.Kind)
	}
}
