package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"food-market/internal/config"
	"food-market/internal/database"
	"food-market/internal/handler"
	"food-market/internal/metrics"
	"food-market/internal/ordernumber"
	"food-market/internal/realtime"
	"food-market/internal/repository"
	"food-market/internal/router"
	"food-market/internal/service"
	"food-market/internal/storedir"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting food-market order server")

	// The application context ends on SIGINT or SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database connection pool
	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	if cfg.Database.MigrateOnStart {
		if err := database.Migrate(ctx, pool, logger); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	// Metrics
	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewRegistry(promRegistry)

	// Initialize repositories
	orderRepo := repository.NewOrderRepository(pool, logger)

	stores, err := newStoreDirectory(ctx, cfg, pool, logger)
	if err != nil {
		return err
	}

	// Realtime fan-out
	hub := realtime.NewHub(cfg.Realtime.SubscriberBuffer, m, logger)
	tokens := realtime.NewChannelTokens(cfg.Auth.ChannelTokenSecret, cfg.Auth.ChannelTokenTTL)

	var (
		publisher service.Publisher
		relay     *realtime.Relay
	)
	if cfg.Kafka.Enabled {
		kafkaPublisher := realtime.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		defer func() {
			if err := kafkaPublisher.Close(); err != nil {
				logger.Error().Err(err).Msg("failed to close kafka publisher")
			}
		}()
		publisher = kafkaPublisher
		relay = realtime.NewRelay(cfg.Kafka.Brokers, cfg.Kafka.Topic, relayGroupID(cfg.Kafka.GroupPrefix), hub, logger)

		logger.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("order events fan out through kafka")
	} else {
		publisher = realtime.NewLocalPublisher(hub)
		logger.Info().Msg("order events fan out in process (kafka disabled)")
	}

	// Initialize services
	orderService := service.NewOrderService(orderRepo, stores, ordernumber.NewGenerator(), publisher, m, logger)
	channelService := service.NewChannelService(stores, tokens, logger)

	// Initialize router
	mux := router.New(router.Handlers{
		Orders:   handler.NewOrderHandler(orderService, logger),
		Channels: handler.NewChannelHandler(channelService, logger),
		Health:   handler.NewHealthHandler(pool, logger),
		Websocket: realtime.NewServer(hub, tokens, realtime.ServerConfig{
			WriteTimeout:    cfg.Realtime.WriteTimeout,
			PongWait:        cfg.Realtime.PongWait,
			PingPeriod:      cfg.Realtime.PingPeriod,
			MaxMessageBytes: cfg.Realtime.MaxMessageBytes,
			TokenRequired:   cfg.Auth.ChannelTokenRequired,
		}, logger),
		Metrics: m,
	}, cfg.Auth.APIKey, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	if relay != nil {
		g.Go(func() error {
			return relay.Run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutdown signal received, starting graceful shutdown")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info().Msg("server shutdown completed")
	return nil
}

// newStoreDirectory builds the store lookup selected by STORE_SOURCE.
func newStoreDirectory(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, logger zerolog.Logger) (storedir.Directory, error) {
	if cfg.StoreDirectory.Source == config.StoreSourcePostgres {
		logger.Info().Msg("reading stores from postgres")
		return storedir.NewPostgresDirectory(repository.NewStoreRepository(pool, logger), logger), nil
	}

	var s3Loader storedir.Loader
	if cfg.StoreDirectory.S3.Enabled {
		loader, err := storedir.NewS3Loader(ctx, cfg.StoreDirectory.S3.Bucket, cfg.StoreDirectory.S3.Region, logger)
		if err != nil {
			logger.Warn().
				Err(err).
				Msg("failed to initialise S3 loader, falling back to local file system only")
		} else {
			s3Loader = loader
		}
	} else {
		logger.Info().Msg("using local file system for store snapshots (S3 disabled)")
	}

	loader := storedir.NewFallbackLoader(s3Loader, storedir.NewFileLoader(logger), cfg.StoreDirectory.S3.Prefix, logger)

	directory, err := storedir.NewSnapshotDirectory(ctx, cfg.StoreDirectory.SnapshotPaths, loader, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load store snapshots: %w", err)
	}
	return directory, nil
}

// relayGroupID gives each instance its own consumer group so every instance
// receives every event.
func relayGroupID(prefix string) string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = uuid.NewString()
	}
	return prefix + "-" + host
}
