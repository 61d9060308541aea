package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RateLimiter applies a per-client token bucket to the REST surface. The
// WebSocket channel is not limited; frame pacing there is governed by the
// client's pose model frame rate.
type RateLimiter struct {
	mu      sync.RWMutex
	clients map[string]*clientBucket
	rps     int
	burst   int
	logger  *zap.Logger
	cleanup *time.Ticker
	stopCh  chan struct{}
}

type clientBucket struct {
	mu         sync.Mutex
	tokens     float64
	lastUpdate time.Time
}

func NewRateLimiter(rps, burst int, logger *zap.Logger) *RateLimiter {
	rl := &RateLimiter{
		clients: make(map[string]*clientBucket),
		rps:     rps,
		burst:   burst,
		logger:  logger,
		stopCh:  make(chan struct{}),
	}

	rl.cleanup = time.NewTicker(5 * time.Minute)
	go rl.cleanupExpiredClients()

	return rl
}

func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()

		if !rl.allowRequest(clientIP) {
			rl.logger.Warn("Rate limit exceeded",
				zap.String("client_ip", clientIP),
				zap.String("path", c.Request.URL.Path))

			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"retry_after": 60,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

func (rl *RateLimiter) allowRequest(clientIP string) bool {
	rl.mu.Lock()
	bucket, exists := rl.clients[clientIP]
	if !exists {
		bucket = &clientBucket{
			tokens:     float64(rl.burst),
			lastUpdate: time.Now(),
		}
		rl.clients[clientIP] = bucket
	}
	rl.mu.Unlock()

	return bucket.take(rl.rps, rl.burst)
}

func (cb *clientBucket) take(rps, burst int) bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(cb.lastUpdate)
	cb.lastUpdate = now

	cb.tokens += elapsed.Seconds() * float64(rps)
	if cb.tokens > float64(burst) {
		cb.tokens = float64(burst)
	}

	if cb.tokens >= 1 {
		cb.tokens--
		return true
	}
	return false
}

func (rl *RateLimiter) cleanupExpiredClients() {
	for {
		select {
		case <-rl.stopCh:
			return
		case <-rl.cleanup.C:
			now := time.Now()

			rl.mu.Lock()
			for ip, bucket := range rl.clients {
				bucket.mu.Lock()
				stale := now.Sub(bucket.lastUpdate) > 10*time.Minute
				bucket.mu.Unlock()
				if stale {
					delete(rl.clients, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

func (rl *RateLimiter) Shutdown() {
	rl.cleanup.Stop()
	close(rl.stopCh)
}
