package main

import (
	"context"
	"expvar"
	"log"
	"runtime"

	"github.com/pulsemeet/pulsemeet/internal/domain"
	"github.com/pulsemeet/pulsemeet/internal/infrastructure/configs"
	"github.com/pulsemeet/pulsemeet/internal/infrastructure/directory"
	"github.com/pulsemeet/pulsemeet/internal/infrastructure/events"
	"github.com/pulsemeet/pulsemeet/internal/infrastructure/logging"
	"github.com/pulsemeet/pulsemeet/internal/infrastructure/messaging"
	"github.com/pulsemeet/pulsemeet/internal/infrastructure/metrics"
	"github.com/pulsemeet/pulsemeet/internal/infrastructure/ratelimiter"
	"github.com/pulsemeet/pulsemeet/internal/infrastructure/tracing"
	"github.com/pulsemeet/pulsemeet/internal/infrastructure/ws"
	"github.com/pulsemeet/pulsemeet/internal/persistence/db"
	"github.com/pulsemeet/pulsemeet/internal/persistence/repository"
	"github.com/pulsemeet/pulsemeet/internal/presentation/api"
	"github.com/pulsemeet/pulsemeet/internal/presentation/handler/health"
	"github.com/pulsemeet/pulsemeet/internal/presentation/handler/rooms"
	"github.com/pulsemeet/pulsemeet/internal/presentation/handler/signaling"
	"github.com/pulsemeet/pulsemeet/internal/relay"
)

const (
	serviceName = "pulsemeet-signaling"
)

func main() {
	tracerCfg := tracing.NewDefaultConfig(serviceName)

	sh, err := tracing.InitTracer(tracerCfg)
	if err != nil {
		log.Fatalf("Failed to initialize the tracer: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer sh(ctx)

	logger := logging.NewLogger(logging.NewDefaultConfig())
	logger.Init()

	configPath := configs.DetermineConfigPath()
	cfg, err := configs.Load(configPath)
	if err != nil {
		log.Fatal(err)
	}

	signalingMetrics := metrics.NewSignaling()
	directoryClient := directory.NewClient(cfg.Directory)
	hub := ws.NewHub(logger)

	// Optional sinks. With messaging enabled the consumer is the only audit
	// writer; otherwise the relay writes audit records itself.
	var auditRepo domain.RoomAuditRepository
	if cfg.Audit.Enabled {
		mongoCfg := &db.MongoConfig{
			URI:               cfg.Audit.URI,
			Database:          cfg.Audit.Database,
			ConnectionTimeout: db.DefaultConnectionTimeout,
		}

		mongoClient, err := db.NewMongoClient(ctx, mongoCfg)
		if err != nil {
			log.Fatal(err)
		}
		defer db.DisconnectMongo(context.Background(), mongoClient)

		auditRepo = repository.NewRoomAuditLogRepository(db.GetDatabase(mongoClient, mongoCfg))
		if err := auditRepo.EnsureIndexes(ctx); err != nil {
			log.Fatal(err)
		}
	}

	var publisher relay.LifecyclePublisher
	relayAudit := auditRepo
	if cfg.Messaging.Enabled {
		rabbitmq, err := messaging.NewRabbitMQ(cfg.Messaging.URI)
		if err != nil {
			log.Fatal(err)
		}
		defer rabbitmq.Close()

		logger.Info(logging.RabbitMQ, logging.Startup, "RabbitMQ connection established", nil)

		publisher = events.NewRoomPublisher(rabbitmq)

		roomConsumer := events.NewRoomConsumer(rabbitmq, auditRepo, logger)
		go func() {
			if err := roomConsumer.Listen(); err != nil {
				logger.Error(logging.RabbitMQ, logging.RoomLifecycle, "room consumer stopped", map[logging.ExtraKey]any{
					logging.ErrorMessage: err.Error(),
				})
			}
		}()

		relayAudit = nil
	}

	relayer := relay.New(relay.Config{
		GraceWindow: cfg.Grace.Window,
		Emitter:     hub,
		Hosts:       directoryClient,
		Logger:      logger,
		Metrics:     signalingMetrics,
		Audit:       relayAudit,
		Publisher:   publisher,
	})

	signalingHandler := signaling.NewHandler(hub, relayer, cfg.HTTP.AllowedOrigins, logger)
	roomHandler := rooms.NewHandler(relayer.Registry())
	healthHandler := health.NewHandler()

	rl := ratelimiter.New(ratelimiter.Options{
		MaxRatePerSecond: cfg.RateLimiter.MaxRatePerSecond,
		MaxBurst:         cfg.RateLimiter.MaxBurst,
		CacheTTL:         cfg.RateLimiter.CacheTTL,
		SourceHeaderKey:  cfg.RateLimiter.SourceHeaderKey,
	})

	app := api.NewApplication(*cfg, signalingHandler, roomHandler, healthHandler, logger, rl, signalingMetrics)

	expvar.Publish("goroutines", expvar.Func(func() any {
		return runtime.NumGoroutine()
	}))

	mux := app.Mount()
	if err := app.Run(mux); err != nil {
		logger.Fatal(logging.General, logging.Shutdown, "server exited with error", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}
}
