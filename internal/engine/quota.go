package engine

// DefaultMaxPasses is the safety cap on passes for a promotion without an
// explicit times limit. It bounds runaway guard/action pairs that never
// exhaust the facts they match; well-formed promotions never reach it.
const DefaultMaxPasses = 999

// QuotaEnforcer counts the action passes of one promotion and reports when
// the limit has been reached.
//
// A fresh enforcer is created for each promotion in a run.
type QuotaEnforcer struct {
	maxPasses int
	current   int
	safetyCap bool
}

// NewQuotaEnforcer creates an enforcer for a promotion.
//
// times is the promotion's own limit; zero or negative means "not set", in
// which case safetyCap applies.
func NewQuotaEnforcer(times, safetyCap int) *QuotaEnforcer {
	if times > 0 {
		return &QuotaEnforcer{maxPasses: times}
	}
	return &QuotaEnforcer{maxPasses: safetyCap, safetyCap: true}
}

// Record counts one completed action pass and reports whether another pass
// is allowed.
func (q *QuotaEnforcer) Record() bool {
	q.current++
	return q.current < q.maxPasses
}

// Current returns the number of completed passes.
func (q *QuotaEnforcer) Current() int {
	return q.current
}

// MaxPasses returns the pass limit.
func (q *QuotaEnforcer) MaxPasses() int {
	return q.maxPasses
}

// SafetyCapped reports whether the enforcer is running on the safety cap
// and the cap has been reached.
func (q *QuotaEnforcer) SafetyCapped() bool {
	return q.safetyCap && q.current >= q.maxPasses
}

// Reset sets the pass count back to zero.
func (q *QuotaEnforcer) Reset() {
	q.current = 0
}
