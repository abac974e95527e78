package condition

import (
	"fmt"
	"sync"
	"time"

	"github.com/Jeffail/gabs/v2"
	"github.com/creasty/defaults"
)

// Config controls evaluator behavior.
// TTL bounds how old a cached observation may be before the change operator
// treats it as absent. CollectDetails disables short-circuiting so the result
// carries one detail per leaf condition.
type Config struct {
	TTL            time.Duration `yaml:"ttl" default:"5m" validate:"gt=0"`
	CollectDetails bool          `yaml:"collect_details" default:"true"`
}

// DefaultConfig returns a Config with all defaults applied.
func DefaultConfig() Config {
	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		panic(fmt.Sprintf("condition: applying config defaults: %v", err))
	}
	return cfg
}

// Detail records the outcome of one leaf condition.
type Detail struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Value    any      `json:"value"`
	Actual   any      `json:"actual,omitempty"`
	Met      bool     `json:"met"`
}

// Result is the outcome of evaluating an expression against a snapshot.
type Result struct {
	Met         bool      `json:"met"`
	Details     []Detail  `json:"details,omitempty"`
	EvaluatedAt time.Time `json:"evaluatedAt"`
}

type cacheEntry struct {
	value     float64
	timestamp time.Time
}

// Evaluator evaluates condition trees against numeric snapshots.
// It is pure except for the change-operator observation cache, which makes
// change evaluations stateful and order-dependent.
type Evaluator struct {
	cfg Config
	now func() time.Time

	mu    sync.Mutex
	cache map[string]cacheEntry
}

func NewEvaluator(cfg Config) *Evaluator {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultConfig().TTL
	}
	return &Evaluator{
		cfg:   cfg,
		now:   time.Now,
		cache: make(map[string]cacheEntry),
	}
}

// Evaluate resolves expr against snapshot. tokenKey scopes change-operator
// cache entries; pass "" when a single observation stream is enough.
// Evaluation never fails: absent or malformed data degrades to "not met".
func (e *Evaluator) Evaluate(expr Expr, snapshot map[string]any, tokenKey string) Result {
	res := Result{EvaluatedAt: e.now()}
	if expr == nil {
		return res
	}
	res.Met = e.eval(expr, snapshot, tokenKey, &res)
	return res
}

func (e *Evaluator) eval(expr Expr, snapshot map[string]any, tokenKey string, res *Result) bool {
	switch c := expr.(type) {
	case *Single:
		return e.evalSingle(c, snapshot, tokenKey, res)
	case *Group:
		return e.evalGroup(c, snapshot, tokenKey, res)
	default:
		return false
	}
}

func (e *Evaluator) evalGroup(g *Group, snapshot map[string]any, tokenKey string, res *Result) bool {
	if len(g.Conditions) == 0 {
		return false
	}

	and := g.Operator != Or
	met := and
	for _, child := range g.Conditions {
		childMet := e.eval(child, snapshot, tokenKey, res)
		if and {
			met = met && childMet
		} else {
			met = met || childMet
		}
		// Short-circuiting is only an optimization; with detail collection
		// enabled every leaf must still be visited.
		if !e.cfg.CollectDetails {
			if and && !met {
				return false
			}
			if !and && met {
				return true
			}
		}
	}
	return met
}

func (e *Evaluator) evalSingle(c *Single, snapshot map[string]any, tokenKey string, res *Result) bool {
	actual, found := lookupField(snapshot, c.Field)

	met := false
	if found {
		switch c.Operator {
		case OpEq:
			met = equal(actual, c.Value)
		case OpNeq:
			met = !equal(actual, c.Value)
		case OpGt, OpGte, OpLt, OpLte:
			met = compare(c.Operator, actual, c.Value)
		case OpBetween:
			met = between(actual, c.Value)
		case OpChange:
			met = e.evalChange(c, actual, tokenKey)
		}
	}

	if e.cfg.CollectDetails {
		res.Details = append(res.Details, Detail{
			Field:    c.Field,
			Operator: c.Operator,
			Value:    c.Value,
			Actual:   actual,
			Met:      met,
		})
	}
	return met
}

// evalChange records the current observation, then compares against the one
// that existed before this call. The first call for a key always returns
// false while seeding the cache.
func (e *Evaluator) evalChange(c *Single, actual any, tokenKey string) bool {
	current, ok := toFloat(actual)
	if !ok {
		return false
	}
	threshold, ok := toFloat(c.Value)
	if !ok {
		return false
	}

	key := cacheKey(tokenKey, c.Field)
	now := e.now()

	e.mu.Lock()
	prev, had := e.cache[key]
	e.cache[key] = cacheEntry{value: current, timestamp: now}
	e.mu.Unlock()

	if !had || now.Sub(prev.timestamp) > e.cfg.TTL {
		return false
	}
	if prev.value == 0 {
		return false
	}

	changePercent := (current - prev.value) / prev.value * 100
	if threshold < 0 {
		return changePercent <= threshold
	}
	return changePercent >= threshold
}

// SetPreviousValue seeds the observation cache so the next change evaluation
// has a baseline. Callers with historical context use this to avoid the
// first-call-is-false behavior.
func (e *Evaluator) SetPreviousValue(tokenKey, field string, value float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cache[cacheKey(tokenKey, field)] = cacheEntry{value: value, timestamp: e.now()}
}

// ClearCache drops all cached observations.
func (e *Evaluator) ClearCache() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cache = make(map[string]cacheEntry)
}

// CleanupCache removes observations older than the TTL.
func (e *Evaluator) CleanupCache() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	removed := 0
	for k, entry := range e.cache {
		if now.Sub(entry.timestamp) > e.cfg.TTL {
			delete(e.cache, k)
			removed++
		}
	}
	return removed
}

// CacheSize reports the number of cached observations.
func (e *Evaluator) CacheSize() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.cache)
}

// OldestEntryAge reports the age of the oldest cached observation, or zero
// when the cache is empty.
func (e *Evaluator) OldestEntryAge() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()

	var oldest time.Time
	for _, entry := range e.cache {
		if oldest.IsZero() || entry.timestamp.Before(oldest) {
			oldest = entry.timestamp
		}
	}
	if oldest.IsZero() {
		return 0
	}
	return e.now().Sub(oldest)
}

func cacheKey(tokenKey, field string) string {
	if tokenKey == "" {
		return field
	}
	return tokenKey + ":" + field
}

// lookupField resolves a field in the snapshot, supporting dotted paths into
// nested maps ("token.price") via gabs.
func lookupField(snapshot map[string]any, field string) (any, bool) {
	if field == "" || snapshot == nil {
		return nil, false
	}
	if v, ok := snapshot[field]; ok {
		return v, v != nil
	}

	container := gabs.Wrap(snapshot)
	if !container.ExistsP(field) {
		return nil, false
	}
	v := container.Path(field).Data()
	return v, v != nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

func equal(actual, expected any) bool {
	if a, ok := toFloat(actual); ok {
		if b, ok := toFloat(expected); ok {
			return a == b
		}
		return false
	}
	return actual == expected
}

func compare(op Operator, actual, expected any) bool {
	a, ok := toFloat(actual)
	if !ok {
		return false
	}
	b, ok := toFloat(expected)
	if !ok {
		return false
	}

	switch op {
	case OpGt:
		return a > b
	case OpGte:
		return a >= b
	case OpLt:
		return a < b
	case OpLte:
		return a <= b
	}
	return false
}

// between expects value to be a [min, max] pair, inclusive on both ends.
func between(actual, value any) bool {
	a, ok := toFloat(actual)
	if !ok {
		return false
	}

	var bounds []any
	switch v := value.(type) {
	case []any:
		bounds = v
	case []float64:
		if len(v) != 2 {
			return false
		}
		bounds = []any{v[0], v[1]}
	default:
		return false
	}
	if len(bounds) != 2 {
		return false
	}

	min, ok := toFloat(bounds[0])
	if !ok {
		return false
	}
	max, ok := toFloat(bounds[1])
	if !ok {
		return false
	}
	return a >= min && a <= max
}
