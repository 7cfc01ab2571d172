// Package ratelimit implements a per-client token bucket limiter.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/JakeFAU/pagespeed-leads/internal/clock/system"
)

// Clock supplies the current time for token refills.
type Clock interface {
	Now() time.Time
}

const (
	// DefaultIdleTTL is how long a client bucket survives without traffic.
	DefaultIdleTTL = 10 * time.Minute
	// DefaultMaxClients caps the tracked buckets when Config.MaxClients is zero.
	DefaultMaxClients = 10000
)

// Config holds rate limiter configuration.
type Config struct {
	RPS   float64
	Burst int
	// IdleTTL evicts buckets that have not been used for this long. Zero uses DefaultIdleTTL.
	IdleTTL time.Duration
	// MaxClients bounds the number of per-key buckets. Once reached, new keys
	// share a single overflow bucket until idle buckets are evicted.
	MaxClients int
	// Clock defaults to the system clock.
	Clock Clock
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter manages one token bucket per client key.
type Limiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	rate      rate.Limit
	burst     int
	idleTTL   time.Duration
	maxKeys   int
	overflow  *rate.Limiter
	lastSweep time.Time
	clock     Clock
}

// New creates a new Limiter. A non-positive RPS disables limiting.
func New(cfg Config) *Limiter {
	r := rate.Limit(cfg.RPS)
	if cfg.RPS <= 0 {
		r = rate.Inf
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	ttl := cfg.IdleTTL
	if ttl <= 0 {
		ttl = DefaultIdleTTL
	}
	maxKeys := cfg.MaxClients
	if maxKeys <= 0 {
		maxKeys = DefaultMaxClients
	}
	clk := cfg.Clock
	if clk == nil {
		clk = system.New()
	}
	return &Limiter{
		buckets:   make(map[string]*bucket),
		rate:      r,
		burst:     burst,
		idleTTL:   ttl,
		maxKeys:   maxKeys,
		overflow:  rate.NewLimiter(r, burst),
		lastSweep: clk.Now(),
		clock:     clk,
	}
}

// Allow reports whether key may make a request now, consuming a token if so.
func (l *Limiter) Allow(key string) bool {
	if key == "" {
		key = "unknown"
	}
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= l.idleTTL {
		l.sweepLocked(now)
	}
	b, ok := l.buckets[key]
	if !ok {
		if len(l.buckets) >= l.maxKeys {
			l.sweepLocked(now)
		}
		if len(l.buckets) >= l.maxKeys {
			return l.overflow.AllowN(now, 1)
		}
		b = &bucket{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

// Len returns the number of tracked clients.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func (l *Limiter) sweepLocked(now time.Time) {
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) >= l.idleTTL {
			delete(l.buckets, key)
		}
	}
	l.lastSweep = now
}
