package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the ledger's prometheus collectors.
type Metrics struct {
	// Committed transactions by kind.
	Transactions *prometheus.CounterVec

	// Credit volume: granted sums every credit kind, spent sums deducts.
	CreditsGranted prometheus.Counter
	CreditsSpent   prometheus.Counter

	// Redeemed activation codes.
	CodesRedeemed prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Transactions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "creditledger_transactions_total",
			Help: "Committed ledger transactions by kind.",
		}, []string{"kind"}),
		CreditsGranted: factory.NewCounter(prometheus.CounterOpts{
			Name: "creditledger_credits_granted_total",
			Help: "Credits added to accounts.",
		}),
		CreditsSpent: factory.NewCounter(prometheus.CounterOpts{
			Name: "creditledger_credits_spent_total",
			Help: "Credits deducted from accounts.",
		}),
		CodesRedeemed: factory.NewCounter(prometheus.CounterOpts{
			Name: "creditledger_activation_codes_redeemed_total",
			Help: "Successfully redeemed activation codes.",
		}),
	}
}

// NewRegistry returns a registry with the standard process and Go
// collectors, ready to hand to New and Handler.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// Record helpers are nil-safe, so services that run without metrics (tests,
// the gencodes CLI) pass a nil *Metrics and skip the guards at call sites.

// RecordTransaction updates the counters for one committed transaction.
func (m *Metrics) RecordTransaction(kind string, amount int64, credit bool) {
	if m == nil {
		return
	}

	m.Transactions.WithLabelValues(kind).Inc()
	if credit {
		m.CreditsGranted.Add(float64(amount))
	} else {
		m.CreditsSpent.Add(float64(amount))
	}
}

// RecordCodeRedeemed counts one successful activation code redemption.
func (m *Metrics) RecordCodeRedeemed() {
	if m == nil {
		return
	}

	m.CodesRedeemed.Inc()
}
