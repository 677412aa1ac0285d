// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package ratelimit bounds how fast clients may drive the expensive
// operations: evaluation passes, target listings, dispatched test
// runs. Limits stack globally, per operation, and per client IP.
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"
)

var rateLimitExceeded = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "buildcfg",
		Name:      "ratelimit_exceeded_total",
		Help:      "Total rate limit rejections",
	},
	[]string{"limit_type", "operation"},
)

// Operation names for the built-in buckets.
const (
	OpEvaluate = "evaluate"
	OpTargets  = "targets"
	OpRunTests = "runtests"
	OpSizeDiff = "sizediff"
)

// Config holds rate limiting configuration.
type Config struct {
	GlobalRate  rate.Limit
	GlobalBurst int

	PerIPRate  rate.Limit
	PerIPBurst int

	// Per-operation buckets. Operations without a bucket are only
	// subject to the global and per-IP limits.
	OpRates map[string]rate.Limit
	OpBurst map[string]int

	// CleanupInterval bounds how long per-IP limiters are kept.
	CleanupInterval time.Duration
}

// DefaultConfig returns limits sized to each operation's cost.
func DefaultConfig() Config {
	return Config{
		GlobalRate:  100,
		GlobalBurst: 200,

		PerIPRate:  10,
		PerIPBurst: 20,

		OpRates: map[string]rate.Limit{
			OpEvaluate: 25,
			OpTargets:  5, // fans out to per-target metadata reads
			OpRunTests: 1, // spawns child processes
			OpSizeDiff: 10,
		},
		OpBurst: map[string]int{
			OpEvaluate: 50,
			OpTargets:  10,
			OpRunTests: 2,
			OpSizeDiff: 20,
		},

		CleanupInterval: 5 * time.Minute,
	}
}

// Limiter manages the stacked rate limits.
type Limiter struct {
	config Config

	global *rate.Limiter
	perIP  map[string]*rate.Limiter
	perOp  map[string]*rate.Limiter
	mu     sync.RWMutex

	lastCleanup time.Time
}

// New creates a rate limiter with the given config.
func New(config Config) *Limiter {
	l := &Limiter{
		config:      config,
		global:      rate.NewLimiter(config.GlobalRate, config.GlobalBurst),
		perIP:       make(map[string]*rate.Limiter),
		perOp:       make(map[string]*rate.Limiter),
		lastCleanup: time.Now(),
	}

	for op, opRate := range config.OpRates {
		l.perOp[op] = rate.NewLimiter(opRate, config.OpBurst[op])
	}

	return l
}

// Allow reports whether a request from clientIP may run the operation.
func (l *Limiter) Allow(clientIP, operation string) bool {
	if !l.global.Allow() {
		rateLimitExceeded.WithLabelValues("global", operation).Inc()
		return false
	}

	l.mu.RLock()
	opLimiter, exists := l.perOp[operation]
	l.mu.RUnlock()

	if exists && !opLimiter.Allow() {
		rateLimitExceeded.WithLabelValues("per_operation", operation).Inc()
		return false
	}

	if !l.getIPLimiter(clientIP).Allow() {
		rateLimitExceeded.WithLabelValues("per_ip", operation).Inc()
		return false
	}

	l.maybeCleanup()

	return true
}

func (l *Limiter) getIPLimiter(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, exists := l.perIP[ip]
	if !exists {
		limiter = rate.NewLimiter(l.config.PerIPRate, l.config.PerIPBurst)
		l.perIP[ip] = limiter
	}

	return limiter
}

// maybeCleanup drops all per-IP limiters once CleanupInterval has
// passed; idle clients re-enter with a full bucket.
func (l *Limiter) maybeCleanup() {
	if l.config.CleanupInterval <= 0 {
		return
	}

	l.mu.RLock()
	due := time.Since(l.lastCleanup) >= l.config.CleanupInterval
	l.mu.RUnlock()
	if !due {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if time.Since(l.lastCleanup) < l.config.CleanupInterval {
		return
	}
	l.perIP = make(map[string]*rate.Limiter)
	l.lastCleanup = time.Now()
}

// GetClientIP extracts the real client IP from the request.
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// First hop is the original client.
		if idx := strings.IndexByte(xff, ','); idx > 0 {
			xff = xff[:idx]
		}
		if xff = strings.TrimSpace(xff); xff != "" {
			return xff
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
