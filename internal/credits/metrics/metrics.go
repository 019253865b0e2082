package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks credit movements.
type Metrics struct {
	CreditsDebited      prometheus.Counter
	CreditsGranted      prometheus.Counter
	InsufficientBalance prometheus.Counter
	AccountsOpened      prometheus.Counter
}

// New creates a new Metrics instance with all credits metrics registered.
func New() *Metrics {
	return &Metrics{
		CreditsDebited: promauto.NewCounter(prometheus.CounterOpts{
			Name: "toolbox_credits_debited_total",
			Help: "Total credits spent on tools",
		}),
		CreditsGranted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "toolbox_credits_granted_total",
			Help: "Total credits granted, including signup bonuses",
		}),
		InsufficientBalance: promauto.NewCounter(prometheus.CounterOpts{
			Name: "toolbox_credits_insufficient_total",
			Help: "Debits rejected for insufficient balance",
		}),
		AccountsOpened: promauto.NewCounter(prometheus.CounterOpts{
			Name: "toolbox_credit_accounts_opened_total",
			Help: "Credit accounts opened lazily on first use",
		}),
	}
}

func (m *Metrics) AddDebited(amount int) {
	m.CreditsDebited.Add(float64(amount))
}

func (m *Metrics) AddGranted(amount int) {
	m.CreditsGranted.Add(float64(amount))
}

func (m *Metrics) IncrementInsufficient() {
	m.InsufficientBalance.Inc()
}

func (m *Metrics) IncrementAccountsOpened() {
	m.AccountsOpened.Inc()
}
