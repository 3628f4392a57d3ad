package llm

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// RateLimiter is an in-process sliding window over request timestamps.
type RateLimiter struct {
	mu         sync.Mutex
	timestamps []time.Time
	max        int
	window     time.Duration
	now        func() time.Time
}

func NewRateLimiter(maxRequests int, window time.Duration) *RateLimiter {
	return &RateLimiter{max: maxRequests, window: window, now: time.Now}
}

// Allow records the request when it fits in the current window.
func (l *RateLimiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	cutoff := now.Add(-l.window)
	kept := l.timestamps[:0]
	for _, ts := range l.timestamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	l.timestamps = kept
	if len(l.timestamps) >= l.max {
		return false
	}
	l.timestamps = append(l.timestamps, now)
	return true
}

// DailyBudget caps the estimated spend per UTC day. Every completed call
// costs estimatedCallCostCents; the counter resets when the date changes.
type DailyBudget struct {
	mu         sync.Mutex
	limitCents int
	spentCents int
	day        string
	now        func() time.Time
}

const estimatedCallCostCents = 1

func NewDailyBudget(limitCents int) *DailyBudget {
	return &DailyBudget{limitCents: limitCents, now: time.Now}
}

func (b *DailyBudget) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	day := b.now().UTC().Format("2006-01-02")
	if day != b.day {
		b.day = day
		b.spentCents = 0
	}
	if b.spentCents+estimatedCallCostCents > b.limitCents {
		return false
	}
	b.spentCents += estimatedCallCostCents
	return true
}

// Usage accumulates call counters for the stats endpoint.
type Usage struct {
	mu           sync.Mutex
	Calls        int64
	CacheHits    int64
	Failures     int64
	Limited      int64
	BudgetDenied int64
}

func (u *Usage) Snapshot() map[string]int64 {
	u.mu.Lock()
	defer u.mu.Unlock()
	return map[string]int64{
		"calls":         u.Calls,
		"cache_hits":    u.CacheHits,
		"failures":      u.Failures,
		"limited":       u.Limited,
		"budget_denied": u.BudgetDenied,
	}
}

// Router dispatches requests to a registered adapter by model name, with an
// optional Redis response cache and a sliding-window rate limit in front.
type Router struct {
	mu           sync.RWMutex
	adapters     map[string]Client
	fallback     Client
	defaultModel string
	cache        *Cache
	limiter      *RateLimiter
	budget       *DailyBudget
	usage        Usage
}

type RouterOption func(*Router)

// WithCache attaches a response cache; nil disables caching.
func WithCache(c *Cache) RouterOption {
	return func(r *Router) { r.cache = c }
}

func WithRateLimiter(l *RateLimiter) RouterOption {
	return func(r *Router) { r.limiter = l }
}

// WithDailyBudget refuses calls once the day's estimated spend reaches the
// budget; nil disables the guard.
func WithDailyBudget(b *DailyBudget) RouterOption {
	return func(r *Router) { r.budget = b }
}

// NewRouter builds a router whose fallback adapter serves every model that
// has no explicit registration.
func NewRouter(fallback Client, defaultModel string, opts ...RouterOption) *Router {
	r := &Router{
		adapters:     make(map[string]Client),
		fallback:     fallback,
		defaultModel: defaultModel,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Router) Register(model string, client Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[model] = client
}

func (r *Router) adapter(model string) Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.adapters[model]; ok {
		return c
	}
	return r.fallback
}

func (r *Router) Generate(ctx context.Context, req Request) (string, error) {
	if req.Model == "" {
		req.Model = r.defaultModel
	}

	if r.cache != nil {
		if text, ok, err := r.cache.Get(ctx, req); err != nil {
			slog.Warn("llm cache lookup failed", "error", err)
		} else if ok {
			r.usage.mu.Lock()
			r.usage.CacheHits++
			r.usage.mu.Unlock()
			return text, nil
		}
	}

	if r.limiter != nil && !r.limiter.Allow() {
		r.usage.mu.Lock()
		r.usage.Limited++
		r.usage.mu.Unlock()
		return "", ErrRateLimited
	}

	if r.budget != nil && !r.budget.allow() {
		r.usage.mu.Lock()
		r.usage.BudgetDenied++
		r.usage.mu.Unlock()
		return "", ErrBudgetExceeded
	}

	r.usage.mu.Lock()
	r.usage.Calls++
	r.usage.mu.Unlock()

	text, err := r.adapter(req.Model).Generate(ctx, req)
	if err != nil {
		r.usage.mu.Lock()
		r.usage.Failures++
		r.usage.mu.Unlock()
		return "", err
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, req, text); err != nil {
			slog.Warn("llm cache store failed", "error", err)
		}
	}
	return text, nil
}

// UsageSnapshot exposes counters for dashboards.
func (r *Router) UsageSnapshot() map[string]int64 {
	return r.usage.Snapshot()
}
