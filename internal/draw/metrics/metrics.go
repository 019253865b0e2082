package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Draw outcomes.
const (
	OutcomeSatisfied    = "satisfied"
	OutcomeFallback     = "fallback"
	OutcomeInvalid      = "invalid_input"
	OutcomeInsufficient = "insufficient_credits"
	OutcomeError        = "error"
)

// Metrics tracks gift draws.
type Metrics struct {
	DrawsTotal   *prometheus.CounterVec
	Attempts     prometheus.Histogram
	DrawDuration prometheus.Histogram
	Participants prometheus.Histogram
}

// New registers the draw metrics with the default registry. Call it once per process.
func New() *Metrics {
	return newWith(promauto.With(prometheus.DefaultRegisterer))
}

// NewWithRegistry registers on reg, for tests that need isolated collectors.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	return newWith(promauto.With(reg))
}

func newWith(f promauto.Factory) *Metrics {
	return &Metrics{
		DrawsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "toolbox_draws_total",
			Help: "Gift draw requests by outcome",
		}, []string{"outcome"}),
		Attempts: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "toolbox_draw_attempts",
			Help:    "Permutations drawn per generation, fallback included",
			Buckets: []float64{1, 2, 3, 5, 8, 13, 21, 34, 55, 101},
		}),
		DrawDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "toolbox_draw_duration_seconds",
			Help:    "End to end latency of a draw request",
			Buckets: prometheus.DefBuckets,
		}),
		Participants: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "toolbox_draw_participants",
			Help:    "Participants per successful draw",
			Buckets: []float64{2, 3, 5, 10, 20, 50, 100, 200},
		}),
	}
}

func (m *Metrics) IncrementOutcome(outcome string) {
	m.DrawsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveGeneration(attempts, participants int) {
	m.Attempts.Observe(float64(attempts))
	m.Participants.Observe(float64(participants))
}

func (m *Metrics) ObserveDuration(elapsed time.Duration) {
	m.DrawDuration.Observe(elapsed.Seconds())
}
