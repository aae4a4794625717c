package engine

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/promotions/internal/expression"
	"github.com/roach88/promotions/internal/ir"
)

func TestMetrics_Run(t *testing.T) {
	reg := prometheus.NewRegistry()
	cache := expression.NewCache()
	m, err := NewMetrics(reg, cache)
	require.NoError(t, err)

	runaway := orderDiscount("runaway", ir.When{{Key: "yes", Expr: "true"}}, "1")
	line := ir.Promotion{
		ID:    "line",
		Then:  ir.Actions{ir.CreateLineDiscount{SKU: `"A"`, Discount: "2"}},
		Times: 1,
	}
	e := New(StaticPromotions{runaway, line}, WithCache(cache), WithMetrics(m), WithMaxPasses(4))

	_, err = e.Run(context.Background(), cart(), "")
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues(outcomeSuccess)))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.passes))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.discounts.WithLabelValues(string(ir.DiscountTypeOrder))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.discounts.WithLabelValues(string(ir.DiscountTypeLine))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.safetyCapHits))
	assert.Equal(t, 1, testutil.CollectAndCount(m.runDuration))

	count, err := testutil.GatherAndCount(reg, "promotions_expression_cache_misses_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMetrics_FailedRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg, nil)
	require.NoError(t, err)

	p := ir.Promotion{ID: "bad", Then: ir.Actions{ir.UnknownAction{Name: "nope"}}}
	_, err = New(StaticPromotions{p}, WithMetrics(m)).Run(context.Background(), cart(), "")
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues(outcomeError)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.runs.WithLabelValues(outcomeSuccess)))
}

func TestMetrics_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewMetrics(reg, nil)
	require.NoError(t, err)

	_, err = NewMetrics(reg, nil)
	assert.Error(t, err)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.observeRun(1, nil)
		m.observePass()
		m.observeDiscount(ir.DiscountTypeLine)
		m.observeSafetyCap()
	})
}
