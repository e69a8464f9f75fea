package middleware

import (
	"fmt"
	"math"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"lambda-http/pkg/httperr"
)

// clientLimiters hands out one token bucket per client IP.
type clientLimiters struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func (l *clientLimiters) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.limiters[ip]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[ip] = limiter
	}
	return limiter
}

// RateLimiter limits each client IP to requestsPerSecond with the given burst.
// Rejected requests get a 429 JSON error. A non-positive rate disables limiting.
func RateLimiter(logger logrus.FieldLogger, requestsPerSecond float64, burstSize int) gin.HandlerFunc {
	if requestsPerSecond <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if burstSize < 1 {
		burstSize = 1
	}
	clients := &clientLimiters{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(requestsPerSecond),
		burst:    burstSize,
	}
	retryAfter := strconv.Itoa(int(math.Ceil(1 / requestsPerSecond)))

	return func(c *gin.Context) {
		if clients.get(c.ClientIP()).Allow() {
			c.Next()
			return
		}

		logger.WithFields(logrus.Fields{
			"request_id": c.GetString(RequestIDKey),
			"client_ip":  c.ClientIP(),
			"path":       c.Request.URL.Path,
			"user_agent": c.Request.UserAgent(),
		}).Warn("Rate limit exceeded")

		herr := httperr.TooManyRequests(
			fmt.Sprintf("Too many requests. Limit: %.1f requests per second", requestsPerSecond),
			httperr.WithHeader("Retry-After", retryAfter))
		if err := herr.Response().Write(c.Writer); err != nil {
			logger.WithError(err).Error("Failed to write rate limit response")
		}
		c.Abort()
	}
}

// SecurityHeaders adds security headers to responses
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		// Remove server information
		c.Header("Server", "")

		c.Next()
	}
}
