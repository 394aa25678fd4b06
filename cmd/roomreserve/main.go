package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/md-rashed-zaman/roomreserve/internal/cache"
	"github.com/md-rashed-zaman/roomreserve/internal/handlers"
	"github.com/md-rashed-zaman/roomreserve/internal/outbox"
	"github.com/md-rashed-zaman/roomreserve/internal/storage"
	"github.com/md-rashed-zaman/roomreserve/libs/config"
	"github.com/md-rashed-zaman/roomreserve/libs/db"
	"github.com/md-rashed-zaman/roomreserve/libs/httpx"
	"github.com/md-rashed-zaman/roomreserve/libs/kafkax"
	otelx "github.com/md-rashed-zaman/roomreserve/libs/otel"
	"github.com/md-rashed-zaman/roomreserve/libs/runtime"
)

func main() {
	service := config.String("SERVICE_NAME", "roomreserve")
	port, err := config.Port("PORT", "8084")
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
	pool, err := db.Open(ctx, dbURL, db.Options{
		MaxConns: int32(config.Int("DB_MAX_CONNS", 10)),
	})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	var calendarCache *cache.CalendarCache
	var calendarStore handlers.CalendarStore
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		calendarCache, err = cache.New(cache.Config{
			Addr:      addr,
			Password:  config.String("REDIS_PASSWORD", ""),
			DB:        config.Int("REDIS_DB", 0),
			KeyPrefix: service + ":",
			TTL:       time.Duration(config.Int("CALENDAR_CACHE_TTL_SECONDS", 60)) * time.Second,
		})
		if err != nil {
			logger.Error("redis connection failed; calendar cache disabled", "err", err)
			calendarCache = nil
		} else {
			defer func() { _ = calendarCache.Close() }()
			calendarStore = calendarCache
		}
	}

	repo := storage.NewRepository(pool)
	outboxRepo := outbox.NewRepository(pool)
	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	roomsHandler := handlers.NewRoomsHandler(repo, logger)
	calendarHandler := handlers.NewCalendarHandler(repo, calendarStore, logger)
	quoteHandler := handlers.NewQuoteHandler(repo, logger)
	bookingHandler := handlers.NewBookingHandler(repo, outboxRepo, calendarStore, logger)

	readyChecks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
	}
	if calendarCache != nil {
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "redis", Check: cache.ReadyCheck(calendarCache)})
	}
	if brokers := config.String("KAFKA_BROKERS", ""); brokers != "" {
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	}

	mux := runtime.NewBaseMuxWithReady(readyChecks...)
	mux.HandleFunc("/api/v1/rooms", roomsHandler.List)
	mux.HandleFunc("/api/v1/rooms/calendar", calendarHandler.Calendar)
	mux.HandleFunc("/api/v1/bookings/quote", quoteHandler.Quote)
	mux.HandleFunc("/api/v1/bookings", routeByMethod(bookingHandler.List, bookingHandler.Create))
	mux.HandleFunc("/api/v1/bookings/cancel", bookingHandler.Cancel)

	middlewares := []httpx.Middleware{
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(1 << 20),
	}
	if origins := config.String("CORS_ALLOWED_ORIGINS", ""); origins != "" {
		middlewares = append(middlewares, httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: strings.Split(origins, ","),
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", "Idempotency-Key"},
			MaxAge:         10 * time.Minute,
		}))
	}
	if limit := config.Int("RATE_LIMIT_PER_MINUTE", 0); limit > 0 {
		if addr := config.String("REDIS_ADDR", ""); addr != "" {
			rdb := redis.NewClient(&redis.Options{
				Addr:     addr,
				Password: config.String("REDIS_PASSWORD", ""),
				DB:       config.Int("REDIS_DB", 0),
			})
			limiter := httpx.NewRedisRateLimiter(rdb, limit, time.Minute, service+":rl")
			middlewares = append(middlewares, limiter.Middleware(logger, true))
		} else {
			middlewares = append(middlewares, httpx.NewRateLimiter(limit, time.Minute).Middleware())
		}
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

func routeByMethod(get, post http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			get(w, r)
		case http.MethodPost:
			post(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}
}
