package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/healthcare-ab/careapi/internal/handlers"
	"github.com/healthcare-ab/careapi/internal/metrics"
	"github.com/healthcare-ab/careapi/internal/outbox"
	"github.com/healthcare-ab/careapi/internal/scheduling"
	"github.com/healthcare-ab/careapi/internal/storage"
	"github.com/healthcare-ab/careapi/libs/config"
	"github.com/healthcare-ab/careapi/libs/db"
	"github.com/healthcare-ab/careapi/libs/httpx"
	"github.com/healthcare-ab/careapi/libs/kafkax"
	otelx "github.com/healthcare-ab/careapi/libs/otel"
	"github.com/healthcare-ab/careapi/libs/runtime"
	"github.com/healthcare-ab/careapi/migrations"
)

func main() {
	service := config.String("SERVICE_NAME", "care-api")
	port, err := config.Port("PORT", "8080")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	jwtSecret, err := config.RequiredString("JWT_SECRET")
	if err != nil {
		panic(err)
	}

	if err := db.Migrate(dbURL, migrations.FS, "."); err != nil {
		logger.Error("migrations failed", "err", err)
		panic(err)
	}

	pool, err := db.Open(ctx, dbURL, db.Options{
		MaxConns: int32(config.Int("DB_MAX_CONNS", 10)),
	})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	outboxRepo := outbox.NewRepository()
	appointments := storage.NewAppointmentRepository(pool, outboxRepo)
	availability := storage.NewAvailabilityRepository(pool)
	feedback := storage.NewFeedbackRepository(pool)
	users := storage.NewUserRepository(pool)

	engine := scheduling.NewEngine(appointments, availability, logger, scheduling.EngineConfig{
		RestoreSlotOnCancel: config.Bool("RESTORE_SLOT_ON_CANCEL", false),
	})
	projector := scheduling.NewProjector(appointments, users, logger, nil)
	gate := scheduling.NewFeedbackGate(appointments, feedback)

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: config.Duration("OUTBOX_POLL_SECONDS", 2*time.Second),
		BatchSize: config.Int("OUTBOX_BATCH_SIZE", 50),
	})
	go outboxPublisher.Run(ctx)

	authHandler := handlers.NewAuthHandler(users, jwtSecret, config.Duration("TOKEN_TTL_SECONDS", time.Hour))
	bookingHandler := handlers.NewBookingHandler(engine, projector, collector, logger)
	availabilityHandler := handlers.NewAvailabilityHandler(engine, availability, logger)
	feedbackHandler := handlers.NewFeedbackHandler(gate, collector, logger)
	userHandler := handlers.NewUserHandler(users, engine, logger)

	mux := runtime.NewBaseMux(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	)
	mux.Handle("/metrics", metrics.Handler(registry))

	mux.HandleFunc("/api/v1/auth/register", authHandler.Register)
	mux.HandleFunc("/api/v1/auth/login", authHandler.Login)

	authed := handlers.RequireAuth(jwtSecret)
	protect := func(h http.HandlerFunc) http.Handler { return authed(h) }
	mux.Handle("/api/v1/auth/me", protect(authHandler.Me))
	mux.Handle("/api/v1/appointments", protect(bookingHandler.Book))
	mux.Handle("/api/v1/appointments/cancel", protect(bookingHandler.Cancel))
	mux.Handle("/api/v1/appointments/upcoming", protect(bookingHandler.Upcoming))
	mux.Handle("/api/v1/appointments/history", protect(bookingHandler.History))
	mux.Handle("/api/v1/appointments/caregiver", protect(bookingHandler.Schedule))
	mux.Handle("/api/v1/availability", protect(availabilityHandler.Publish))
	mux.Handle("/api/v1/availability/slots", protect(availabilityHandler.Open))
	mux.Handle("/api/v1/feedback", protect(feedbackHandler.Create))
	mux.Handle("/api/v1/users/me", protect(userHandler.Me))

	middlewares := []httpx.Middleware{
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(int64(config.Int("MAX_BODY_BYTES", 1<<20))),
		httpx.WithTimeout(config.Duration("REQUEST_TIMEOUT_SECONDS", 30*time.Second)),
	}
	if origins := config.String("CORS_ALLOW_ORIGINS", ""); origins != "" {
		middlewares = append(middlewares, httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: strings.Split(origins, ","),
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
			MaxAge:         10 * time.Minute,
		}))
	}
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr})
		limiter := httpx.NewRedisRateLimiter(rdb,
			config.Int("RATE_LIMIT", 60),
			config.Duration("RATE_WINDOW_SECONDS", time.Minute),
			service,
		)
		middlewares = append(middlewares, limiter.Middleware(logger, config.Bool("RATE_LIMIT_FAIL_OPEN", true)))
	} else {
		limiter := httpx.NewRateLimiter(config.Int("RATE_LIMIT", 60), config.Duration("RATE_WINDOW_SECONDS", time.Minute))
		middlewares = append(middlewares, limiter.Middleware())
	}

	httpHandler := httpx.Chain(mux, middlewares...)
	httpHandler = otelhttp.NewHandler(httpHandler, service)
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
