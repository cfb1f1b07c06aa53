package governor

import (
	"context"
	"sync"
	"time"
)

// Config contains the admission limits for a [Governor].
type Config struct {
	RequestsPerMinute int           // Maximum requests in any trailing 60s window
	RequestsPerHour   int           // Maximum requests in any trailing 3600s window; also the timestamp log capacity
	MinDelay          time.Duration // Minimum spacing between two admitted requests
	MaxBackoff        time.Duration // Ceiling on the exponential backoff wait
	WindowSlack       time.Duration // Flat margin added to windowed waits to avoid boundary re-triggering
}

// DefaultConfig returns the limits used against the mirror site in production.
func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 30,
		RequestsPerHour:   500,
		MinDelay:          2 * time.Second,
		MaxBackoff:        5 * time.Minute,
		WindowSlack:       time.Second,
	}
}

// Stats is a read-only snapshot of governor state.
type Stats struct {
	RequestsLastMinute int `json:"requests_last_minute"`
	RequestsLastHour   int `json:"requests_last_hour"`
	ConsecutiveErrors  int `json:"consecutive_errors"`
	TotalRetained      int `json:"total_requests"`
}

// Governor is a sliding-window rate limiter with exponential backoff.
//
// The mutex is held for the entire admission sequence, including the waits,
// so concurrent Acquire calls serialize and the windowed-count invariants
// hold under parallel workers. ReportSuccess, ReportError and Stats block
// while an admission wait is in progress.
type Governor struct {
	mu  sync.Mutex
	cfg Config

	// Fixed-capacity ring of admitted-request timestamps in insertion
	// order, capacity RequestsPerHour. head indexes the oldest entry.
	entries []time.Time
	head    int
	count   int

	lastRequest       time.Time
	consecutiveErrors int

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// New creates a Governor with the given config. Non-positive window limits
// and backoff ceiling fall back to [DefaultConfig] values; a zero MinDelay
// is legal and disables both the spacing wait and the backoff growth base.
func New(cfg Config) *Governor {
	defaults := DefaultConfig()
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = defaults.RequestsPerMinute
	}
	if cfg.RequestsPerHour <= 0 {
		cfg.RequestsPerHour = defaults.RequestsPerHour
	}
	if cfg.MinDelay < 0 {
		cfg.MinDelay = 0
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = defaults.MaxBackoff
	}
	if cfg.WindowSlack < 0 {
		cfg.WindowSlack = 0
	}

	return &Governor{
		cfg:     cfg,
		entries: make([]time.Time, cfg.RequestsPerHour),
		now:     time.Now,
		sleep:   sleepContext,
	}
}

// Acquire blocks until the caller is clear to issue one request.
//
// The checks run in a fixed order: minimum spacing, per-minute window,
// per-hour window, then error backoff. Each wait is cooperative; the only
// early return is context cancellation, in which case no request is
// recorded. On success the current time is recorded as an admitted request.
func (g *Governor) Acquire(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()

	if !g.lastRequest.IsZero() {
		if since := now.Sub(g.lastRequest); since < g.cfg.MinDelay {
			if err := g.sleep(ctx, g.cfg.MinDelay-since); err != nil {
				return err
			}
			now = g.now()
		}
	}

	if wait := g.windowWait(now, time.Minute, g.cfg.RequestsPerMinute); wait > 0 {
		if err := g.sleep(ctx, wait); err != nil {
			return err
		}
		now = g.now()
	}

	if wait := g.windowWait(now, time.Hour, g.cfg.RequestsPerHour); wait > 0 {
		if err := g.sleep(ctx, wait); err != nil {
			return err
		}
		now = g.now()
	}

	// Backoff stacks on top of the windowed waits, not instead of them.
	if g.consecutiveErrors > 0 {
		if err := g.sleep(ctx, g.backoffWait()); err != nil {
			return err
		}
		now = g.now()
	}

	g.record(now)
	g.lastRequest = now
	return nil
}

// ReportSuccess resets the consecutive error counter. Idempotent.
func (g *Governor) ReportSuccess() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.consecutiveErrors = 0
}

// ReportError increments the consecutive error counter. The counter is
// unbounded; the backoff it produces is capped by MaxBackoff at use time.
func (g *Governor) ReportError() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.consecutiveErrors++
}

// Stats returns a side-effect-free snapshot of the governor's counters.
func (g *Governor) Stats() Stats {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	minuteCutoff := now.Add(-time.Minute)
	hourCutoff := now.Add(-time.Hour)

	stats := Stats{
		ConsecutiveErrors: g.consecutiveErrors,
		TotalRetained:     g.count,
	}
	g.each(func(t time.Time) {
		if t.After(minuteCutoff) {
			stats.RequestsLastMinute++
		}
		if t.After(hourCutoff) {
			stats.RequestsLastHour++
		}
	})

	return stats
}

// windowWait returns how long to wait before one more request fits in the
// trailing window, or zero if the window has capacity. The wait runs until
// the oldest in-window entry ages out, plus the configured slack.
func (g *Governor) windowWait(now time.Time, window time.Duration, limit int) time.Duration {
	cutoff := now.Add(-window)

	inWindow := 0
	var oldest time.Time
	g.each(func(t time.Time) {
		if t.After(cutoff) {
			if inWindow == 0 {
				oldest = t
			}
			inWindow++
		}
	})

	if inWindow < limit {
		return 0
	}
	return window - now.Sub(oldest) + g.cfg.WindowSlack
}

// backoffWait computes min(MinDelay * 2^consecutiveErrors, MaxBackoff).
func (g *Governor) backoffWait() time.Duration {
	backoff := g.cfg.MinDelay
	for i := 0; i < g.consecutiveErrors; i++ {
		backoff *= 2
		// Doubling past the ceiling (or overflowing) pins to the ceiling.
		if backoff >= g.cfg.MaxBackoff || backoff <= 0 {
			return g.cfg.MaxBackoff
		}
	}
	return backoff
}

// record appends a timestamp to the ring, evicting the oldest entry when full.
func (g *Governor) record(t time.Time) {
	if g.count == len(g.entries) {
		g.entries[g.head] = t
		g.head = (g.head + 1) % len(g.entries)
		return
	}
	g.entries[(g.head+g.count)%len(g.entries)] = t
	g.count++
}

// each visits retained timestamps oldest first.
func (g *Governor) each(fn func(time.Time)) {
	for i := 0; i < g.count; i++ {
		fn(g.entries[(g.head+i)%len(g.entries)])
	}
}

// sleepContext waits for d or until the context is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
