package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pulsemeet/pulsemeet/internal/infrastructure/configs"
	"github.com/pulsemeet/pulsemeet/internal/infrastructure/logging"
	"github.com/pulsemeet/pulsemeet/internal/infrastructure/metrics"
	"github.com/pulsemeet/pulsemeet/internal/infrastructure/ratelimiter"
	healthHandler "github.com/pulsemeet/pulsemeet/internal/presentation/handler/health"
	roomHandler "github.com/pulsemeet/pulsemeet/internal/presentation/handler/rooms"
	signalingHandler "github.com/pulsemeet/pulsemeet/internal/presentation/handler/signaling"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Application struct {
	config           configs.Config
	signalingHandler *signalingHandler.Handler
	roomHandler      *roomHandler.Handler
	healthHandler    *healthHandler.Handler
	logger           logging.Logger
	ratelimiter      ratelimiter.Limiter
	metrics          *metrics.Signaling
}

func NewApplication(
	config configs.Config,
	signalingHandler *signalingHandler.Handler,
	roomHandler *roomHandler.Handler,
	healthHandler *healthHandler.Handler,
	logger logging.Logger,
	ratelimiter ratelimiter.Limiter,
	metrics *metrics.Signaling,
) *Application {
	return &Application{
		config:           config,
		signalingHandler: signalingHandler,
		roomHandler:      roomHandler,
		healthHandler:    healthHandler,
		logger:           logger,
		ratelimiter:      ratelimiter,
		metrics:          metrics,
	}
}

func (app *Application) Mount() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Use(app.rateLimiterMiddleware)
	r.Use(app.enableCors)

	// No request timeout on the signaling socket; it lives for the whole call.
	r.Get("/ws", app.signalingHandler.ServeWS)

	r.Handle("/metrics", app.metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		r.Use(app.loggerMiddleware)
		r.Use(traceMiddleware)

		r.Route("/api", func(r chi.Router) {
			r.Route("/rooms", func(r chi.Router) {
				r.Get("/stats", app.roomHandler.GetStatsHandler)
				r.Get("/{meetingCode}", app.roomHandler.GetRoomHandler)
			})

			r.Get("/health", app.healthHandler.GetHealth)
			r.Get("/healthz", app.healthHandler.GetHealth)
			r.Get("/ready", app.healthHandler.GetHealth)
			r.Get("/live", app.healthHandler.GetHealth)
		})
	})

	return r
}

func traceMiddleware(next http.Handler) http.Handler {
	return otelhttp.NewHandler(next, "api")
}

func (app *Application) Run(mux http.Handler) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", app.config.HTTP.Host, app.config.HTTP.Port),
		Handler:      mux,
		WriteTimeout: app.config.HTTP.WriteTimeout,
		ReadTimeout:  app.config.HTTP.ReadTimeout,
		IdleTimeout:  time.Minute,
	}

	shutdown := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)

		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		healthHandler.SetUnhealthy()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		app.logger.Info(logging.General, logging.Shutdown, "signal caught", map[logging.ExtraKey]any{
			"signal": s.String(),
		})

		shutdown <- srv.Shutdown(ctx)
	}()

	app.logger.Info(logging.General, logging.Startup, "server has started", map[logging.ExtraKey]any{
		"addr": srv.Addr,
	})

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdown
	if err != nil {
		return err
	}

	app.logger.Info(logging.General, logging.Shutdown, "server has stopped", map[logging.ExtraKey]any{
		"addr": srv.Addr,
	})

	return nil
}
