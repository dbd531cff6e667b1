package main

import (
	"context"
	"database/sql"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/riteshkumar/core-ledger/internal/auth"
	"github.com/riteshkumar/core-ledger/internal/config"
	"github.com/riteshkumar/core-ledger/internal/events"
	"github.com/riteshkumar/core-ledger/internal/handler"
	"github.com/riteshkumar/core-ledger/internal/identifier"
	"github.com/riteshkumar/core-ledger/internal/metrics"
	"github.com/riteshkumar/core-ledger/internal/ratelimit"
	"github.com/riteshkumar/core-ledger/internal/repository"
	"github.com/riteshkumar/core-ledger/internal/repository/memory"
	"github.com/riteshkumar/core-ledger/internal/service"
)

func main() {
	envFile := flag.String("env", ".env", "optional dotenv file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*envFile)
	if err != nil {
		slog.Error("failed to load configuration", "error", err.Error())
		os.Exit(1)
	}

	// Initialise logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, db, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open ledger store", "error", err.Error())
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
	}

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	publisher := openPublisher(cfg, logger)
	defer publisher.Close()

	limiter, redisClient := openLimiter(ctx, cfg, m, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Initialise services
	accountService := service.NewAccountService(store, identifier.New(nil), m, logger)
	transactionService := service.NewTransactionService(store, publisher, m, logger)
	beneficiaryService := service.NewBeneficiaryService(store, logger)
	notificationService := service.NewNotificationService(store, logger)

	router := handler.NewRouter(handler.RouterConfig{
		Accounts:       accountService,
		Transactions:   transactionService,
		Beneficiaries:  beneficiaryService,
		Notifications:  notificationService,
		Authorizer:     auth.NewJWTAuthorizer(cfg.JWTSecret),
		Limiter:        limiter,
		Metrics:        m,
		Gatherer:       reg,
		AllowedOrigins: cfg.AllowedOrigins(),
		Logger:         logger,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a go routine
	go func() {
		logger.Info("starting server", "port", cfg.ServerPort, "store", cfg.StoreDriver)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("failed to start server", "error", err.Error())
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err.Error())
	}

	logger.Info("server exited gracefully")
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repository.Store, *sql.DB, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		logger.Warn("using in-memory store; data is lost on restart")
		return memory.NewStore(), nil, nil
	}

	db, err := repository.OpenPostgres(ctx, cfg.DSN(), cfg.DBConnectRetries, cfg.DBConnectRetryInterval, logger)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("connected to database successfully")

	store := repository.NewPostgresStore(db)
	if err := store.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return store, db, nil
}

// openPublisher falls back to a no-op publisher when the broker is not
// configured or unreachable. Ledger writes never depend on it.
func openPublisher(cfg *config.Config, logger *slog.Logger) events.Publisher {
	if cfg.RabbitMQURL == "" {
		logger.Info("RABBITMQ_URL not set; ledger events disabled")
		return &events.NoopPublisher{Logger: logger}
	}
	p, err := events.NewAMQPPublisher(cfg.RabbitMQURL, cfg.LedgerEventsExchange, logger)
	if err != nil {
		logger.Warn("rabbitmq unavailable; ledger events disabled", "error", err.Error())
		return &events.NoopPublisher{Logger: logger}
	}
	logger.Info("publishing ledger events", "exchange", cfg.LedgerEventsExchange)
	return p
}

// openLimiter returns a nil limiter and client when Redis is not configured
// or unreachable. The caller owns the returned client.
func openLimiter(ctx context.Context, cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) (*ratelimit.Limiter, *redis.Client) {
	if cfg.RedisAddr == "" {
		logger.Info("REDIS_ADDR not set; rate limiting disabled")
		return nil, nil
	}
	client, err := ratelimit.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Warn("redis unavailable; rate limiting disabled", "error", err.Error())
		return nil, nil
	}
	return ratelimit.New(ratelimit.NewRedisCounter(client), cfg.RateLimitPerMinute, time.Minute, m, logger), client
}
