package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"

	"argus/internal/broker"
	"argus/internal/config"
	"argus/internal/config_handler"
	"argus/internal/constants"
	"argus/internal/enrichment"
	"argus/internal/ingest"
	"argus/internal/logger"
	"argus/internal/media"
	"argus/internal/queue"
	"argus/internal/routing"
	"argus/internal/spam"
	"argus/internal/store"
	"argus/internal/worker"
	"argus/pkg/bootstrap"
	"argus/pkg/circuitbreaker"
	"argus/pkg/health"
	"argus/pkg/logging"
	"argus/pkg/metrics"
	"argus/pkg/models"
	"argus/pkg/tracing"
)

type App struct {
	*bootstrap.Base
	dbConnector *bootstrap.DatabaseConnector
	redis       *redis.Client
	mongoClient *mongo.Client
	postgresDB  *sql.DB

	queue          *queue.Queue
	spamService    *spam.Service
	routingService *routing.Service
	pool           *worker.Pool
	relay          *ingest.Relay
	configHandler  *config_handler.Handler
	tracerProvider *tracing.TracerProvider
	server         *http.Server
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	if sugaredLogger, ok := log.(*logger.SugaredLogger); ok {
		sugaredLogger.SetServiceName("pipeline-service")
	}
	return &App{
		Base:        bootstrap.NewBase(cfg, log),
		dbConnector: bootstrap.NewDatabaseConnector(cfg, log),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	rdb, err := a.dbConnector.InitRedis(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize Redis: %w", err)
	}
	a.redis = rdb

	mongoClient, err := a.dbConnector.InitMongoDB(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize MongoDB: %w", err)
	}
	a.mongoClient = mongoClient

	postgresDB, err := a.dbConnector.InitPostgreSQL(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	a.postgresDB = postgresDB

	if err := a.initPipeline(ctx); err != nil {
		return fmt.Errorf("failed to initialize pipeline: %w", err)
	}

	if err := a.InitBroker("pipeline-service"); err != nil {
		return fmt.Errorf("failed to initialize broker: %w", err)
	}

	tp, err := tracing.Init(a.Config.Tracing, "pipeline-service")
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracerProvider = tp

	metrics.RegisterPipelineMetrics()
	metrics.RegisterBrokerMetrics()
	if a.Config.CircuitBreaker.Enabled {
		metrics.RegisterCircuitBreakerMetrics()
	}

	a.initHTTPServer()

	return nil
}

func (a *App) initPipeline(ctx context.Context) error {
	mongoDB := a.mongoClient.Database(a.Config.Database.MongoDB.Database)

	messageRepo := store.NewMessageRepository(mongoDB, a.Logger)
	deadLetterRepo := store.NewDeadLetterRepository(mongoDB, a.Logger)

	if a.Config.Database.RunMigrations {
		partitions := []string{
			constants.PartitionCombat,
			constants.PartitionCivilian,
			constants.PartitionDiplomatic,
			constants.PartitionEquipment,
			constants.PartitionGeneral,
		}
		if err := messageRepo.EnsureIndexes(ctx, partitions); err != nil {
			return fmt.Errorf("failed to create message indexes: %w", err)
		}
		if err := deadLetterRepo.EnsureIndexes(ctx); err != nil {
			return fmt.Errorf("failed to create dead-letter indexes: %w", err)
		}
	}

	a.queue = queue.New(a.redis, a.Config.Queue, deadLetterRepo, a.Logger)
	if err := a.queue.EnsureGroup(ctx); err != nil {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	spamService, err := spam.NewService(spam.NewRepository(a.postgresDB), a.Config.Spam, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create spam service: %w", err)
	}
	a.spamService = spamService

	a.routingService = routing.NewService(routing.NewRepository(a.postgresDB), a.Config.Routing, a.Logger)

	// Initial snapshots. A failed load is survivable: the reloader retries
	// on its ticker and on config events, and an empty spam snapshot fails
	// open while an empty routing table falls back to the default partition.
	initCtx := logging.WithServiceName(ctx, "pipeline-service")
	if err := a.spamService.ReloadRules(ctx); err != nil {
		a.Logger.WarnwCtx(initCtx, "Failed to load spam rules", "error", err)
	}
	if err := a.routingService.ReloadRules(ctx); err != nil {
		a.Logger.WarnwCtx(initCtx, "Failed to load routing rules", "error", err)
	}

	enrichService := enrichment.NewService(
		enrichment.NewClassificationClient(a.Config.Enrichment.Classification.BaseURL, a.Config.Enrichment.SubCallTimeout, a.newBreaker("enrichment-classification")),
		enrichment.NewEntitiesClient(a.Config.Enrichment.Entities.BaseURL, a.Config.Enrichment.SubCallTimeout, a.newBreaker("enrichment-entities")),
		enrichment.NewGeolocationClient(a.Config.Enrichment.Geolocation.BaseURL, a.Config.Enrichment.SubCallTimeout, a.newBreaker("enrichment-geolocation")),
		enrichment.NewEngagementExtractor(),
		a.redis,
		a.Config.Enrichment,
		a.Logger,
	)

	mediaStore, err := media.NewGridFSStore(mongoDB)
	if err != nil {
		return fmt.Errorf("failed to create media store: %w", err)
	}
	mediaPipeline := media.NewPipeline(media.NewFetcher(a.Config.Media), mediaStore, a.Logger)

	processor := worker.NewProcessor(a.spamService, mediaPipeline, enrichService, a.routingService, messageRepo, a.Logger)
	a.pool = worker.NewPool(a.queue, processor, a.Config.Worker, a.Logger)

	a.relay = ingest.NewRelay(a.queue, ingest.NewRepository(a.redis), a.Config.Ingest, a.Logger)

	a.configHandler = config_handler.NewHandler(a.Logger).
		Register(models.ServiceTypeSpam, a.spamService).
		Register(models.ServiceTypeRouting, a.routingService)

	return nil
}

func (a *App) newBreaker(name string) *circuitbreaker.Wrapper {
	if !a.Config.CircuitBreaker.Enabled {
		return nil
	}

	cfg := circuitbreaker.DefaultConfig(name)
	if a.Config.CircuitBreaker.MaxRequests > 0 {
		cfg.MaxRequests = a.Config.CircuitBreaker.MaxRequests
	}
	if a.Config.CircuitBreaker.Interval > 0 {
		cfg.Interval = a.Config.CircuitBreaker.Interval
	}
	if a.Config.CircuitBreaker.Timeout > 0 {
		cfg.Timeout = a.Config.CircuitBreaker.Timeout
	}

	return circuitbreaker.NewWrapper(cfg)
}

func (a *App) initHTTPServer() {
	mux := http.NewServeMux()

	healthRegistry := health.NewCheckerRegistry()
	healthRegistry.Register(health.NewRedisChecker(a.redis))
	healthRegistry.Register(health.NewMongoDBChecker(a.mongoClient))
	healthRegistry.Register(health.NewPostgreSQLChecker(a.postgresDB))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		h := healthRegistry.Check(r.Context())
		statusCode := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		fmt.Fprintf(w, `{"status":"%s","timestamp":"%s"}`, h.Status, h.Timestamp.Format(time.RFC3339))
	})

	mux.Handle("/metrics", promhttp.Handler())

	a.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler: mux,
	}
}

func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfowCtx(ctx, "HTTP server starting", "port", a.Config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return a.pool.Run(gCtx)
	})

	g.Go(func() error {
		return a.queue.StartRequeuer(gCtx)
	})

	g.Go(func() error {
		return a.spamService.StartReloader(gCtx)
	})

	g.Go(func() error {
		return a.routingService.StartReloader(gCtx)
	})

	configTopic := a.Config.Broker.Kafka.ConfigUpdateTopic
	if configTopic == "" {
		configTopic = constants.DefaultConfigTopic
	}
	if a.Config.Broker.Type == "kafka" && configTopic != "" {
		configConsumer, err := broker.NewConsumer(a.Config.Broker, a.Logger)
		if err != nil {
			configCtx := logging.WithServiceName(ctx, "pipeline-service")
			a.Logger.WarnwCtx(configCtx, "Failed to create config event consumer, event-driven reload disabled",
				"error", err,
			)
		} else {
			configConsumer.SetServiceName("pipeline-service")
			defer configConsumer.Close()

			g.Go(func() error {
				configCtx := logging.WithServiceName(gCtx, "pipeline-service")
				a.Logger.InfowCtx(configCtx, "Starting config update event consumer",
					"topic", configTopic,
				)
				return configConsumer.ConsumeRaw(gCtx, configTopic, a.configHandler.HandleConfigUpdateEvent)
			})
		}
	}

	inputTopic := a.Config.Broker.Kafka.InputTopic
	if inputTopic == "" {
		inputTopic = constants.DefaultIngestTopic
	}

	g.Go(func() error {
		a.Logger.InfowCtx(gCtx, "Starting ingest relay", "topic", inputTopic)
		return a.Consumer.Consume(gCtx, inputTopic, a.relay.Handle)
	})

	return g.Wait()
}

func (a *App) Shutdown(ctx context.Context) error {
	shutdownCtx := logging.WithServiceName(ctx, "pipeline-service")
	a.Logger.InfowCtx(shutdownCtx, "Shutting down pipeline service")

	additionalShutdown := func(ctx context.Context) []error {
		var errs []error

		if a.server != nil {
			httpCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()
			if err := a.server.Shutdown(httpCtx); err != nil {
				errs = append(errs, fmt.Errorf("HTTP server shutdown error: %w", err))
			}
		}

		errs = append(errs, a.dbConnector.ShutdownDatabases(ctx, a.redis, a.postgresDB, a.mongoClient)...)

		return errs
	}

	return a.Base.Shutdown(ctx, additionalShutdown)
}
