package form

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes engine counters. A nil *Metrics records nothing.
type Metrics struct {
	settlePasses      prometheus.Counter
	settleIterations  prometheus.Histogram
	settleCapped      prometheus.Counter
	expressionFailure *prometheus.CounterVec
	validationErrors  *prometheus.CounterVec
	submissions       *prometheus.CounterVec
}

// NewMetrics creates the collectors under namespace and registers them with
// reg. A nil reg leaves them unregistered.
func NewMetrics(namespace string, reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		settlePasses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settle_passes_total",
			Help:      "Total number of settle passes run after data changes",
		}),
		settleIterations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "settle_iterations",
			Help:      "Recompute iterations needed for a settle pass to converge",
			Buckets:   prometheus.LinearBuckets(1, 1, 10),
		}),
		settleCapped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settle_capped_total",
			Help:      "Settle passes stopped by the iteration cap",
		}),
		expressionFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expression_failures_total",
			Help:      "User expression failures by evaluation site",
		}, []string{"site"}),
		validationErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_errors_total",
			Help:      "Validation errors by rule kind",
		}, []string{"kind"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Submission attempts by outcome",
		}, []string{"outcome"}),
	}
	if reg == nil {
		return m, nil
	}
	for _, collector := range []prometheus.Collector{
		m.settlePasses, m.settleIterations, m.settleCapped,
		m.expressionFailure, m.validationErrors, m.submissions,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("form: register metrics: %w", err)
		}
	}
	return m, nil
}

func (m *Metrics) observeSettle(iterations int, capped bool) {
	if m == nil {
		return
	}
	m.settlePasses.Inc()
	m.settleIterations.Observe(float64(iterations))
	if capped {
		m.settleCapped.Inc()
	}
}

func (m *Metrics) expressionFailed(site string) {
	if m == nil {
		return
	}
	m.expressionFailure.WithLabelValues(site).Inc()
}

func (m *Metrics) validationFailed(kind string) {
	if m == nil {
		return
	}
	m.validationErrors.WithLabelValues(kind).Inc()
}

func (m *Metrics) submitted(outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
}
