package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"pdfchat/pkg/logger"
)

// clientWindow is one client's request count within its current window.
type clientWindow struct {
	count int
	start time.Time
}

// RateLimiter counts requests per client over a fixed window. Each client
// gets its own window, so one noisy uploader cannot reset everyone else's
// budget.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientWindow
	rate    int
	window  time.Duration
}

// NewRateLimiter creates a limiter allowing rate requests per window per
// client.
func NewRateLimiter(rate int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		clients: make(map[string]*clientWindow),
		rate:    rate,
		window:  window,
	}
}

// Allow reports whether the client may make another request and records it.
func (l *RateLimiter) Allow(clientIP string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()

	cw := l.clients[clientIP]
	if cw == nil || now.Sub(cw.start) > l.window {
		if cw == nil && len(l.clients) >= 1024 {
			l.prune(now)
		}
		l.clients[clientIP] = &clientWindow{count: 1, start: now}
		return true
	}

	if cw.count >= l.rate {
		return false
	}
	cw.count++
	return true
}

// prune drops expired windows. Must be called with the lock held.
func (l *RateLimiter) prune(now time.Time) {
	for ip, cw := range l.clients {
		if now.Sub(cw.start) > l.window {
			delete(l.clients, ip)
		}
	}
}

// RateLimit rejects clients exceeding rate requests per window with 429.
func RateLimit(rate int, window time.Duration) gin.HandlerFunc {
	limiter := NewRateLimiter(rate, window)

	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		if !limiter.Allow(clientIP) {
			logger.Warn(c.Request.Context(), "rate limit exceeded",
				"client_ip", clientIP,
				"path", c.Request.URL.Path,
			)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Too many requests. Please try again later.",
			})
			return
		}

		c.Next()
	}
}
