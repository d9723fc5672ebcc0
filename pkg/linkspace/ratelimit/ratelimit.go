// Package ratelimit provides a per-client token-bucket limiter for the
// mutating surface.
package ratelimit

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Config holds rate limiter settings.
type Config struct {
	Rate     int           // tokens refilled per interval
	Burst    int           // bucket size
	Interval time.Duration // refill interval
	Cleanup  time.Duration // idle-client eviction interval
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Rate:     10,
		Burst:    20,
		Interval: time.Second,
		Cleanup:  5 * time.Minute,
	}
}

type client struct {
	tokens    int
	lastCheck time.Time
}

// Limiter implements a token-bucket rate limiter keyed by client IP.
type Limiter struct {
	mu      sync.Mutex
	clients map[string]*client
	cfg     Config
}

// New creates a limiter and starts its cleanup loop.
func New(cfg Config) *Limiter {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.Cleanup <= 0 {
		cfg.Cleanup = 5 * time.Minute
	}
	l := &Limiter{clients: make(map[string]*client), cfg: cfg}
	go l.cleanupLoop()
	return l
}

// Allow reports whether a request from key may proceed.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	c, exists := l.clients[key]
	if !exists {
		l.clients[key] = &client{tokens: l.cfg.Burst - 1, lastCheck: now}
		return true
	}

	refill := int(now.Sub(c.lastCheck)/l.cfg.Interval) * l.cfg.Rate
	if refill > 0 {
		c.tokens = min(c.tokens+refill, l.cfg.Burst)
		c.lastCheck = now
	}
	if c.tokens > 0 {
		c.tokens--
		return true
	}
	return false
}

func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(l.cfg.Cleanup)
	defer ticker.Stop()

	for range ticker.C {
		l.mu.Lock()
		cutoff := time.Now().Add(-l.cfg.Cleanup)
		for key, c := range l.clients {
			if c.lastCheck.Before(cutoff) {
				delete(l.clients, key)
			}
		}
		l.mu.Unlock()
	}
}

// Middleware rejects over-limit clients with 429.
func (l *Limiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.ClientIP()) {
			c.Header("Retry-After", "1")
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests, please try again later"})
			c.Abort()
			return
		}
		c.Next()
	}
}
