// Package ratelimit throttles input lines per session with token buckets.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config holds rate limiter configuration.
type Config struct {
	Enabled        bool
	LinesPerMinute int
	Burst          int
}

// Limiter keeps one bucket per key. The zero key is limited like any other.
type Limiter struct {
	config  Config
	buckets sync.Map // map[string]*rate.Limiter
}

// NewLimiter creates a new rate limiter with the given configuration.
// Non-positive rates disable limiting; a non-positive burst becomes 1.
func NewLimiter(config Config) *Limiter {
	if config.LinesPerMinute <= 0 {
		config.Enabled = false
	}
	if config.Burst <= 0 {
		config.Burst = 1
	}
	return &Limiter{config: config}
}

func (l *Limiter) Enabled() bool {
	return l != nil && l.config.Enabled
}

func (l *Limiter) bucket(key string) *rate.Limiter {
	if cached, ok := l.buckets.Load(key); ok {
		return cached.(*rate.Limiter)
	}

	every := rate.Every(time.Minute / time.Duration(l.config.LinesPerMinute))
	actual, _ := l.buckets.LoadOrStore(key, rate.NewLimiter(every, l.config.Burst))
	return actual.(*rate.Limiter)
}

// Allow reports whether one more line from key may be processed now.
func (l *Limiter) Allow(key string) bool {
	if !l.Enabled() {
		return true
	}
	return l.bucket(key).Allow()
}

// Forget drops the bucket for key, typically when its session closes.
func (l *Limiter) Forget(key string) {
	if l == nil {
		return
	}
	l.buckets.Delete(key)
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	if l == nil {
		return 0
	}
	n := 0
	l.buckets.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
