package fakeapi

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

const defaultLoginAttempts = 60

// limiter counts requests per client in fixed one-minute windows.
type limiter struct {
	mu        sync.Mutex
	clients   map[string]*clientWindow
	perMinute int
	now       func() time.Time
	lastSweep time.Time
}

type clientWindow struct {
	start    time.Time
	requests int
}

func newLimiter(perMinute int, now func() time.Time) *limiter {
	return &limiter{
		clients:   make(map[string]*clientWindow),
		perMinute: perMinute,
		now:       now,
	}
}

// allow records one request from client and reports whether it is within
// the limit.
func (l *limiter) allow(client string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	w, ok := l.clients[client]
	if !ok || now.Sub(w.start) >= time.Minute {
		l.clients[client] = &clientWindow{start: now, requests: 1}
		return true
	}
	w.requests++
	return w.requests <= l.perMinute
}

// sweep drops windows idle for ten minutes, at most once a minute.
func (l *limiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < time.Minute {
		return
	}
	l.lastSweep = now
	cutoff := now.Add(-10 * time.Minute)
	for client, w := range l.clients {
		if w.start.Before(cutoff) {
			delete(l.clients, client)
		}
	}
}

// throttle rejects requests over the limit with 429.
func (l *limiter) throttle(c *gin.Context) {
	if !l.allow(c.ClientIP()) {
		c.Header("Retry-After", "60")
		abort(c, http.StatusTooManyRequests, "Too many attempts, try again later")
		return
	}
	c.Next()
}

// apiHeaders sets the response headers every API answer carries.
func apiHeaders(c *gin.Context) {
	h := c.Writer.Header()
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("X-Frame-Options", "DENY")
	h.Set("Referrer-Policy", "no-referrer")
	h.Set("Cache-Control", "no-store")
	c.Next()
}
