package engine

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/promotions/internal/expression"
	"github.com/roach88/promotions/internal/ir"
)

const metricsNamespace = "promotions"

// Run outcomes reported in the runs_total counter.
const (
	outcomeSuccess = "success"
	outcomeError   = "error"
)

// Metrics holds the Prometheus collectors updated by the engine.
type Metrics struct {
	runs          *prometheus.CounterVec
	passes        prometheus.Counter
	discounts     *prometheus.CounterVec
	safetyCapHits prometheus.Counter
	runDuration   prometheus.Histogram
}

// NewMetrics creates the engine collectors and registers them with reg.
//
// When cache is non-nil its hit and miss counts are exported as well.
func NewMetrics(reg prometheus.Registerer, cache *expression.Cache) (*Metrics, error) {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "runs_total",
			Help:      "Engine runs by outcome.",
		}, []string{"outcome"}),
		passes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "passes_total",
			Help:      "Completed action passes across all promotions.",
		}),
		discounts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "discounts_total",
			Help:      "Discounts emitted by type.",
		}, []string{"type"}),
		safetyCapHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "safety_cap_hits_total",
			Help:      "Promotions stopped by the pass safety cap.",
		}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of engine runs.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
	}

	collectors := []prometheus.Collector{m.runs, m.passes, m.discounts, m.safetyCapHits, m.runDuration}
	if cache != nil {
		collectors = append(collectors,
			prometheus.NewCounterFunc(prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "expression_cache_hits_total",
				Help:      "Expression lookups served from the compiled program cache.",
			}, func() float64 { return float64(cache.Hits()) }),
			prometheus.NewCounterFunc(prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "expression_cache_misses_total",
				Help:      "Expression compilations.",
			}, func() float64 { return float64(cache.Misses()) }),
		)
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// The methods below are no-ops on a nil receiver so the engine can run
// without metrics.

func (m *Metrics) observeRun(seconds float64, err error) {
	if m == nil {
		return
	}
	outcome := outcomeSuccess
	if err != nil {
		outcome = outcomeError
	}
	m.runs.WithLabelValues(outcome).Inc()
	m.runDuration.Observe(seconds)
}

func (m *Metrics) observePass() {
	if m == nil {
		return
	}
	m.passes.Inc()
}

func (m *Metrics) observeDiscount(t ir.DiscountType) {
	if m == nil {
		return
	}
	m.discounts.WithLabelValues(string(t)).Inc()
}

func (m *Metrics) observeSafetyCap() {
	if m == nil {
		return
	}
	m.safetyCapHits.Inc()
}
