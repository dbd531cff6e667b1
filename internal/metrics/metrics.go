package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/riteshkumar/core-ledger/internal/errors"
)

// Metrics holds the ledger's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	transfers         *prometheus.CounterVec
	mints             *prometheus.CounterVec
	transferredAmount prometheus.Counter
	mintedAmount      prometheus.Counter
	accountsCreated   prometheus.Counter
	cardsIssued       prometheus.Counter
	requestDuration   *prometheus.HistogramVec
	rateLimited       *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		transfers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_transfers_total",
				Help: "Transfers attempted, by outcome",
			},
			[]string{"outcome"},
		),
		mints: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_mints_total",
				Help: "Mint operations attempted, by outcome",
			},
			[]string{"outcome"},
		),
		transferredAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_transferred_amount_total",
			Help: "Sum of successfully transferred amounts",
		}),
		mintedAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_minted_amount_total",
			Help: "Sum of successfully minted amounts",
		}),
		accountsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_accounts_created_total",
			Help: "Accounts opened",
		}),
		cardsIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_cards_issued_total",
			Help: "Cards issued",
		}),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
		rateLimited: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rate_limiter_blocked_total",
				Help: "Total requests blocked by the rate limiter",
			},
			[]string{"route"},
		),
	}

	reg.MustRegister(
		m.transfers,
		m.mints,
		m.transferredAmount,
		m.mintedAmount,
		m.accountsCreated,
		m.cardsIssued,
		m.requestDuration,
		m.rateLimited,
	)
	return m
}

// Outcome maps an operation error onto a low-cardinality label value.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.IsInsufficientFunds(err):
		return "insufficient_funds"
	case errors.IsNotFound(err):
		return "not_found"
	case errors.IsInvalidInput(err):
		return "invalid_input"
	default:
		return "error"
	}
}

func (m *Metrics) ObserveTransfer(err error, amount decimal.Decimal) {
	if m == nil {
		return
	}
	m.transfers.WithLabelValues(Outcome(err)).Inc()
	if err == nil {
		m.transferredAmount.Add(amount.InexactFloat64())
	}
}

func (m *Metrics) ObserveMint(err error, amount decimal.Decimal) {
	if m == nil {
		return
	}
	m.mints.WithLabelValues(Outcome(err)).Inc()
	if err == nil {
		m.mintedAmount.Add(amount.InexactFloat64())
	}
}

func (m *Metrics) AccountCreated() {
	if m == nil {
		return
	}
	m.accountsCreated.Inc()
}

func (m *Metrics) CardIssued() {
	if m == nil {
		return
	}
	m.cardsIssued.Inc()
}

func (m *Metrics) ObserveRequest(method, route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, route, status).Observe(seconds)
}

func (m *Metrics) RateLimited(route string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(route).Inc()
}
