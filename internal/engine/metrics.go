package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/zhaiiker/zpdes-sequencer/internal/bandit"
)

// Metrics are the engine's Prometheus collectors.
type Metrics struct {
	Turns         prometheus.Counter
	Correct       prometheus.Counter
	Transitions   *prometheus.CounterVec
	ActiveArms    *prometheus.GaugeVec
	UpdateSeconds prometheus.Histogram
	Sessions      *prometheus.CounterVec
}

// NewMetrics registers the engine collectors with reg. A nil reg yields unregistered
// collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Turns: f.NewCounter(prometheus.CounterOpts{
			Name: "zpdes_turns_total",
			Help: "Exercises proposed across all sessions",
		}),
		Correct: f.NewCounter(prometheus.CounterOpts{
			Name: "zpdes_correct_answers_total",
			Help: "Sum of answer correctness",
		}),
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "zpdes_transitions_total",
			Help: "Activation changes made by promotion, by kind",
		}, []string{"kind"}),
		ActiveArms: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "zpdes_active_arms",
			Help: "Active values in a learner's tree after its last turn",
		}, []string{"learner"}),
		UpdateSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "zpdes_update_duration_seconds",
			Help:    "Tree update duration",
			Buckets: []float64{0.000001, 0.00001, 0.0001, 0.001, 0.01},
		}),
		Sessions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "zpdes_sessions_total",
			Help: "Finished sessions by result",
		}, []string{"result"}),
	}
}

func (m *Metrics) observeTransitions(trs []bandit.Transition) {
	for _, tr := range trs {
		m.Transitions.WithLabelValues(tr.Kind()).Inc()
	}
}
