package handler

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/riteshkumar/core-ledger/internal/auth"
	"github.com/riteshkumar/core-ledger/internal/metrics"
	"github.com/riteshkumar/core-ledger/internal/ratelimit"
	"github.com/riteshkumar/core-ledger/internal/service"
)

type RouterConfig struct {
	Accounts       service.AccountService
	Transactions   service.TransactionService
	Beneficiaries  service.BeneficiaryService
	Notifications  service.NotificationService
	Authorizer     auth.Authorizer
	Limiter        *ratelimit.Limiter
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	AllowedOrigins []string
	Logger         *slog.Logger
}

// NewRouter wires every route. /health and /metrics are public; everything
// else needs a bearer token and passes the policy table.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	router := mux.NewRouter()
	router.Use(requestID(), recoverer(logger), loggingMiddleware(logger, cfg.Metrics))

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)
	if cfg.Gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	api := router.NewRoute().Subrouter()
	api.Use(authenticate(cfg.Authorizer, logger))

	NewAccountHandler(cfg.Accounts, logger).RegisterRoutes(api)
	NewTransactionHandler(cfg.Transactions, cfg.Limiter, logger).RegisterRoutes(api)
	NewBeneficiaryHandler(cfg.Beneficiaries, logger).RegisterRoutes(api)
	NewNotificationHandler(cfg.Notifications, logger).RegisterRoutes(api)

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return corsMiddleware(origins)(router)
}
