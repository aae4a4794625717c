package engine

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/promotions/internal/expression"
	"github.com/roach88/promotions/internal/ir"
)

const tracerName = "github.com/roach88/promotions/internal/engine"

// Engine evaluates promotions against a cart and collects discounts.
//
// An Engine is safe for concurrent use: each Run owns its facts and
// bindings, and the expression cache is the only shared state. A single
// Facts value must never be passed to two concurrent runs.
type Engine struct {
	finder    PromotionFinder
	evaluator *expression.Evaluator
	runIDs    RunIDGenerator
	metrics   *Metrics
	tracer    trace.Tracer

	maxPasses int // Safety cap for promotions without times (default: 999)
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithMaxPasses sets the safety cap on passes for promotions that do not
// set times.
//
// Default: 999 passes (DefaultMaxPasses)
func WithMaxPasses(n int) EngineOption {
	return func(e *Engine) {
		e.maxPasses = n
	}
}

// WithCache sets the compiled expression cache. Engines sharing a cache
// compile each expression text once.
func WithCache(c *expression.Cache) EngineOption {
	return func(e *Engine) {
		e.evaluator = expression.NewEvaluator(c)
	}
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *Metrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithTracer sets the OpenTelemetry tracer. Defaults to the global provider.
func WithTracer(t trace.Tracer) EngineOption {
	return func(e *Engine) {
		e.tracer = t
	}
}

// WithRunIDGenerator sets the run ID source. Defaults to UUIDv7Generator.
func WithRunIDGenerator(g RunIDGenerator) EngineOption {
	return func(e *Engine) {
		e.runIDs = g
	}
}

// New creates an Engine that reads promotions from finder.
func New(finder PromotionFinder, opts ...EngineOption) *Engine {
	e := &Engine{
		finder:    finder,
		runIDs:    UUIDv7Generator{},
		maxPasses: DefaultMaxPasses,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.evaluator == nil {
		e.evaluator = expression.NewEvaluator(expression.NewCache())
	}
	if e.tracer == nil {
		e.tracer = otel.Tracer(tracerName)
	}
	if e.maxPasses <= 0 {
		e.maxPasses = DefaultMaxPasses
	}
	return e
}

// Cache returns the engine's compiled expression cache.
func (e *Engine) Cache() *expression.Cache {
	return e.evaluator.Cache()
}

// runState is the mutable context of one run.
type runState struct {
	id       string
	facts    *ir.Facts
	bindings *Bindings
	view     map[string]any // facts view; nil after a mutation

	// items holds one map per facts.Items entry, index-aligned and kept
	// across view rebuilds. Values bound by guards alias these maps, so
	// quantity changes stay visible through a binding.
	items []map[string]any
}

func (st *runState) factsView() map[string]any {
	if st.view != nil {
		return st.view
	}
	if len(st.items) != len(st.facts.Items) {
		st.items = make([]map[string]any, len(st.facts.Items))
		for i, it := range st.facts.Items {
			st.items[i] = it.View()
		}
	}
	items := make([]any, len(st.items))
	for i, m := range st.items {
		items[i] = m
	}
	view := st.facts.View()
	view["items"] = items
	view["products"] = items
	st.view = view
	return view
}

// updateItem copies the quantity of facts.Items[idx] into its shared map.
func (st *runState) updateItem(idx int) {
	if idx < len(st.items) {
		st.items[idx]["quantity"] = st.facts.Items[idx].Quantity
	}
}

// removeItem drops the shared map of a removed line.
func (st *runState) removeItem(idx int) {
	if idx < len(st.items) {
		st.items = slices.Delete(st.items, idx, idx+1)
	}
}

func (st *runState) invalidate() {
	st.view = nil
}

// Run evaluates the candidate promotions against facts and returns the
// discounts they emit.
//
// Candidates come from the finder (active promotions, restricted to
// promotionID when it is non-empty) and are processed in the order the
// finder returns them. Facts are mutated in place by tagAsUsed and by
// discount emission; later promotions observe earlier mutations.
//
// Any error aborts the run and no discounts are returned. Cancellation is
// checked between promotions only: a cancelled run returns ctx.Err() and
// leaves facts partially mutated. Callers that need the original cart must
// pass a copy (see ir.Facts.Clone).
func (e *Engine) Run(ctx context.Context, facts *ir.Facts, promotionID string) ([]ir.Discount, error) {
	if facts == nil {
		facts = &ir.Facts{}
	}

	start := time.Now()
	st := &runState{
		id:       e.runIDs.Generate(),
		facts:    facts,
		bindings: NewBindings(),
	}
	lines, products := len(facts.Items), facts.ProductCount()

	ctx, span := e.tracer.Start(ctx, "engine.Run", trace.WithAttributes(
		attribute.String("run.id", st.id),
		attribute.String("promotion.filter", promotionID),
		attribute.Int("cart.lines", lines),
	))
	defer span.End()

	checked, err := e.run(ctx, st, promotionID)
	elapsed := time.Since(start)
	e.metrics.observeRun(elapsed.Seconds(), err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.Error("engine run failed",
			"run_id", st.id,
			"promotions_checked", checked,
			"error", err,
		)
		return nil, err
	}

	discounts := st.bindings.Discounts()
	if discounts == nil {
		discounts = []ir.Discount{}
	}
	span.SetAttributes(attribute.Int("discounts", len(discounts)))

	ms := float64(elapsed.Microseconds()) / 1000
	perMs := 0.0
	if ms > 0 {
		perMs = float64(checked) / ms
	}
	slog.Info("engine run complete",
		"run_id", st.id,
		"duration", elapsed,
		"promotions_checked", checked,
		"promotions_per_ms", perMs,
		"cart_lines", lines,
		"cart_products", products,
		"discounts", len(discounts),
	)

	return discounts, nil
}

// run processes every candidate promotion and returns how many it checked.
func (e *Engine) run(ctx context.Context, st *runState, promotionID string) (int, error) {
	promotions, err := e.finder.Find(ctx, ir.PromotionFilter{ID: promotionID})
	if err != nil {
		return 0, &RuntimeError{
			Code:        ErrCodePromotionLookup,
			Message:     "find promotions",
			PromotionID: promotionID,
			Err:         err,
		}
	}

	checked := 0
	for _, p := range promotions {
		if err := ctx.Err(); err != nil {
			return checked, err
		}
		if err := e.runPromotion(ctx, st, p); err != nil {
			return checked, err
		}
		checked++
	}
	return checked, nil
}

// runPromotion repeats guard and action passes until the guard fails or
// the pass limit is reached.
func (e *Engine) runPromotion(ctx context.Context, st *runState, p ir.Promotion) error {
	_, span := e.tracer.Start(ctx, "engine.promotion", trace.WithAttributes(
		attribute.String("promotion.id", p.ID),
	))
	defer span.End()

	quota := NewQuotaEnforcer(p.Times, e.maxPasses)
	for {
		ok, err := e.evaluateWhen(st, p)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
		if !ok {
			break
		}

		if err := e.executeThen(st, p); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
		e.metrics.observePass()

		if !quota.Record() {
			if quota.SafetyCapped() {
				slog.Warn("promotion stopped by safety cap",
					"run_id", st.id,
					"promotion", p.ID,
					"passes", quota.Current(),
					"limit", quota.MaxPasses(),
				)
				e.metrics.observeSafetyCap()
			}
			break
		}
	}

	span.SetAttributes(attribute.Int("promotion.passes", quota.Current()))
	slog.Debug("promotion processed",
		"run_id", st.id,
		"promotion", p.ID,
		"passes", quota.Current(),
	)
	return nil
}

// evaluateWhen evaluates the guard clauses in order, binding each satisfied
// value under its key. The first unsatisfied clause ends the guard.
//
// An empty guard is vacuously satisfied.
func (e *Engine) evaluateWhen(st *runState, p ir.Promotion) (bool, error) {
	for _, clause := range p.When {
		v, err := e.evaluator.Evaluate(clause.Expr, st.factsView(), st.bindings.Values())
		if err != nil {
			return false, NewExpressionError(p.ID, "", clause.Expr, err)
		}
		if !expression.Satisfied(v) {
			slog.Debug("guard not satisfied",
				"run_id", st.id,
				"promotion", p.ID,
				"clause", clause.Key,
			)
			return false, nil
		}
		st.bindings.Set(clause.Key, v)
	}
	return true, nil
}
