package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wms-platform/reallocation-service/internal/application"
	"github.com/wms-platform/reallocation-service/internal/domain"
	"github.com/wms-platform/reallocation-service/internal/infrastructure/events"
	"github.com/wms-platform/reallocation-service/internal/infrastructure/lock"
	"github.com/wms-platform/reallocation-service/internal/infrastructure/memory"
	mongoRepo "github.com/wms-platform/reallocation-service/internal/infrastructure/mongodb"
	"github.com/wms-platform/reallocation-service/internal/infrastructure/resilient"
	"github.com/wms-platform/reallocation-service/pkg/cloudevents"
	"github.com/wms-platform/reallocation-service/pkg/kafka"
	"github.com/wms-platform/reallocation-service/pkg/logging"
	"github.com/wms-platform/reallocation-service/pkg/metrics"
	"github.com/wms-platform/reallocation-service/pkg/mongodb"
	"github.com/wms-platform/reallocation-service/pkg/outbox"
	outboxMongo "github.com/wms-platform/reallocation-service/pkg/outbox/mongodb"
	"github.com/wms-platform/reallocation-service/pkg/tracing"
)

func main() {
	config, err := loadConfig()

	// Setup logger
	logConfig := logging.DefaultConfig(serviceName)
	if config != nil {
		logConfig.Level = logging.ParseLevel(config.LogLevel)
		logConfig.Environment = config.Environment
	}
	logger := logging.New(logConfig)
	logger.SetDefault()

	if err != nil {
		logger.WithError(err).Error("Invalid configuration")
		os.Exit(1)
	}

	logger.Info("Starting reallocation-service API",
		"storeBackend", config.StoreBackend,
		"lockBackend", config.LockBackend,
	)
	ctx := context.Background()

	// Initialize OpenTelemetry tracing
	tracingConfig := tracing.DefaultConfig(serviceName)
	tracingConfig.OTLPEndpoint = config.OTLPEndpoint
	tracingConfig.Environment = config.Environment
	tracingConfig.Enabled = config.TracingEnabled

	tracerProvider, err := tracing.Initialize(ctx, tracingConfig)
	if err != nil {
		// tracing is optional
		logger.WithError(err).Error("Failed to initialize tracing")
	} else if tracerProvider != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
		logger.Info("Tracing initialized", "endpoint", tracingConfig.OTLPEndpoint)
	}

	// Initialize Prometheus metrics
	m := metrics.New(metrics.DefaultConfig(serviceName))

	// Initialize stores
	var (
		consumers  domain.ConsumerStore
		requests   domain.ReallocationStore
		catalog    domain.MaterialCatalog
		outboxRepo outbox.Repository
		seed       seedTargets
		ready      = func(context.Context) error { return nil }
	)

	switch config.StoreBackend {
	case backendMongoDB:
		mongoClient, err := mongodb.NewClient(ctx, config.mongoConfig(), mongodb.NewCommandMonitor(m, logger))
		if err != nil {
			logger.WithError(err).Error("Failed to connect to MongoDB")
			os.Exit(1)
		}
		defer func() {
			if err := mongoClient.Close(context.Background()); err != nil {
				logger.WithError(err).Warn("Failed to disconnect from MongoDB")
			}
		}()
		logger.Info("Connected to MongoDB", "database", config.MongoDatabase)

		db := mongoClient.Database()
		consumerRepo := mongoRepo.NewConsumerRepository(db)
		consumers = consumerRepo
		requests = mongoRepo.NewReallocationRepository(db)
		catalog = mongoRepo.NewMaterialCatalog(db)

		mongoOutbox := outboxMongo.NewOutboxRepository(db)
		if err := mongoOutbox.EnsureIndexes(ctx); err != nil {
			logger.WithError(err).Warn("Failed to create outbox indexes")
		}
		outboxRepo = mongoOutbox

		seed.putConsumer = consumerRepo.Upsert
		ready = mongoClient.HealthCheck

	case backendMemory:
		consumerStore := memory.NewConsumerStore()
		consumers = consumerStore
		requests = memory.NewReallocationStore()
		outboxRepo = outbox.NewMemoryRepository()

		seed.putConsumer = func(_ context.Context, record *domain.ConsumerRecord) error {
			consumerStore.Put(record)
			return nil
		}
		logger.Warn("Using in-memory stores, state is lost on restart")
	}

	if config.SeedFile != "" {
		data, err := loadSeed(config.SeedFile)
		if err != nil {
			logger.WithError(err).Error("Failed to load seed file")
			os.Exit(1)
		}
		if config.StoreBackend == backendMemory && len(data.Materials) > 0 {
			memCatalog := memory.NewMaterialCatalog()
			catalog = memCatalog
			seed.addMaterial = func(id string) { memCatalog.Add(id) }
		}
		if err := data.apply(ctx, seed); err != nil {
			logger.WithError(err).Error("Failed to apply seed file")
			os.Exit(1)
		}
		logger.Info("Seed data applied", "file", config.SeedFile, "consumers", len(data.Consumers))
	}

	// Guard the consumer store with a circuit breaker
	consumers = resilient.NewConsumerStore(consumers, nil, logger, m)

	// Initialize material locker
	var locker application.MaterialLocker = application.NewLocalMaterialLocker()
	if config.LockBackend == backendRedis {
		redisClient := redis.NewClient(&redis.Options{Addr: config.RedisAddr})
		defer redisClient.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.WithError(err).Error("Failed to connect to Redis", "addr", config.RedisAddr)
			os.Exit(1)
		}

		locker = lock.NewRedisMaterialLocker(redisClient, lock.DefaultConfig(), logger)
		storeReady := ready
		ready = func(ctx context.Context) error {
			if err := storeReady(ctx); err != nil {
				return err
			}
			return redisClient.Ping(ctx).Err()
		}
		logger.Info("Redis material lock initialized", "addr", config.RedisAddr)
	}

	// Initialize Kafka producer with instrumentation
	kafkaProducer := kafka.NewProducer(config.kafkaConfig())
	instrumentedProducer := kafka.NewInstrumentedProducer(kafkaProducer, m, logger)
	defer instrumentedProducer.Close()
	logger.Info("Kafka producer initialized", "brokers", config.KafkaBrokers)

	// Initialize and start outbox publisher
	outboxPublisher := outbox.NewPublisher(outboxRepo, instrumentedProducer, logger, m, &outbox.PublisherConfig{
		PollInterval: config.OutboxPollInterval,
		BatchSize:    100,
	})
	if err := outboxPublisher.Start(ctx); err != nil {
		logger.WithError(err).Error("Failed to start outbox publisher")
		os.Exit(1)
	}
	defer outboxPublisher.Stop()

	// Initialize application services
	eventPublisher := events.NewOutboxEventPublisher(outboxRepo, cloudevents.NewEventFactory(cloudevents.SourceReallocation))

	opts := []application.CoordinatorOption{application.WithMaterialLocker(locker)}
	if catalog != nil {
		opts = append(opts, application.WithMaterialCatalog(catalog))
	}
	coordinator := application.NewReallocationCoordinator(consumers, requests, eventPublisher, logger, m, opts...)

	router := newRouter(&services{
		coordinator: coordinator,
		queries:     application.NewAllocationQueryService(consumers, logger),
		planner:     application.NewBatchReallocationPlanner(coordinator, logger, m),
		metrics:     m,
		logger:      logger,
		ready:       ready,
	})

	// Start server
	srv := &http.Server{
		Addr:         config.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err)
		}
	}()
	logger.Info("Server started", "addr", config.ServerAddr)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server stopped")
}
