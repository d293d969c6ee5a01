// Package ratelimit throttles outbound calls to each external service with a
// continuous token bucket.
//
// Capacity equals the configured rate per minute and the bucket starts full,
// so a fresh limiter admits up to one minute's budget immediately and then
// settles at rate/60 tokens per second. A rate of zero means unlimited.
package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"showsweep/internal/logging"
)

// Limiter is a per-service token bucket. It is safe for concurrent use.
type Limiter struct {
	name      string
	perMinute int
	logger    *slog.Logger

	mu    sync.Mutex
	lim   *rate.Limiter
	now   func() time.Time
	sleep func(context.Context, time.Duration)
}

// Option customises a Limiter.
type Option func(*Limiter)

// WithClock injects the time source and sleeper. Tests use it to drive the
// bucket without wall-clock waits.
func WithClock(now func() time.Time, sleep func(context.Context, time.Duration)) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
		if sleep != nil {
			l.sleep = sleep
		}
	}
}

// WithLogger attaches a logger used for wait diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) {
		l.logger = logging.NewComponentLogger(logger, "ratelimit")
	}
}

// New builds a limiter admitting perMinute calls per minute. perMinute <= 0
// disables throttling.
func New(name string, perMinute int, opts ...Option) *Limiter {
	l := &Limiter{
		name:      name,
		perMinute: perMinute,
		logger:    logging.NewNop(),
		now:       time.Now,
		sleep:     sleepContext,
	}
	for _, opt := range opts {
		opt(l)
	}
	if perMinute <= 0 {
		l.lim = rate.NewLimiter(rate.Inf, 1)
	} else {
		l.lim = rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute)
	}
	return l
}

// Name returns the service the limiter guards.
func (l *Limiter) Name() string {
	return l.name
}

// PerMinute returns the configured budget; zero means unlimited.
func (l *Limiter) PerMinute() int {
	return l.perMinute
}

// Acquire blocks until one unit of capacity is available and consumes it.
// Callers queue in arrival order. Acquire never fails; a cancelled context
// only cuts the wait short, and the call that follows observes the
// cancellation itself.
func (l *Limiter) Acquire(ctx context.Context) {
	if l == nil {
		return
	}
	l.mu.Lock()
	now := l.now()
	reservation := l.lim.ReserveN(now, 1)
	l.mu.Unlock()

	delay := reservation.DelayFrom(now)
	if delay <= 0 {
		return
	}
	l.logger.Debug("rate limit wait",
		logging.String(logging.FieldSource, l.name),
		logging.Duration("delay", delay),
	)
	l.sleep(ctx, delay)
}

// Tokens reports the capacity available at the limiter's current time.
func (l *Limiter) Tokens() float64 {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lim.TokensAt(l.now())
}

func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// Set holds the limiters for every external service.
type Set struct {
	Plex      *Limiter
	Overseerr *Limiter
	Tautulli  *Limiter
	Sonarr    *Limiter
}

// Budgets carries per-service rates in calls per minute.
type Budgets struct {
	Plex      int
	Overseerr int
	Tautulli  int
	Sonarr    int
}

// NewSet builds independent limiters for each service; they never share budget.
func NewSet(b Budgets, opts ...Option) Set {
	return Set{
		Plex:      New("plex", b.Plex, opts...),
		Overseerr: New("overseerr", b.Overseerr, opts...),
		Tautulli:  New("tautulli", b.Tautulli, opts...),
		Sonarr:    New("sonarr", b.Sonarr, opts...),
	}
}
