package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/deaglo/apigateway/internal/config"
	"github.com/deaglo/apigateway/internal/pkg/apperrors"
	"github.com/deaglo/apigateway/internal/pkg/logger"
	"github.com/deaglo/apigateway/internal/pkg/metrics"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	throttleWindow = time.Minute
	limiterIdleTTL = 10 * time.Minute
)

// Counter is a shared fixed-window counter, typically Redis.
type Counter interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, error)
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Throttle limits anonymous callers per IP and authenticated callers per user.
// With a shared counter every instance sees the same totals; without one, or
// when the counter fails, each instance enforces the limit on its own.
type Throttle struct {
	anonPerMinute int
	userPerMinute int
	counter       Counter

	mu       sync.Mutex
	limiters map[string]*limiterEntry
}

func NewThrottle(cfg config.ThrottleConfig, counter Counter) *Throttle {
	return &Throttle{
		anonPerMinute: cfg.AnonPerMinute,
		userPerMinute: cfg.UserPerMinute,
		counter:       counter,
		limiters:      make(map[string]*limiterEntry),
	}
}

// Middleware must run after IdentifyUser.
func (t *Throttle) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		scope, key, limit := "anon", "anon:"+c.ClientIP(), t.anonPerMinute
		if user := CurrentUser(c); user != nil {
			scope, key, limit = "user", "user:"+user.ID.String(), t.userPerMinute
		}
		if limit <= 0 || t.allow(c.Request.Context(), key, limit) {
			c.Next()
			return
		}
		metrics.ThrottledRequests.WithLabelValues(scope).Inc()
		c.Header("Retry-After", "60")
		c.Error(apperrors.New(apperrors.ErrThrottled, apperrors.MsgThrottled, nil))
		c.Abort()
	}
}

func (t *Throttle) allow(ctx context.Context, key string, limit int) bool {
	if t.counter != nil {
		n, err := t.counter.Hit(ctx, key, throttleWindow)
		if err == nil {
			return n <= int64(limit)
		}
		logger.Warn("shared throttle counter unavailable, limiting locally", "error", err)
	}
	return t.localLimiter(key, limit).Allow()
}

func (t *Throttle) localLimiter(key string, limit int) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.limiters[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(rate.Every(throttleWindow/time.Duration(limit)), limit)}
		t.limiters[key] = e
	}
	e.lastSeen = time.Now()
	return e.limiter
}

// RunJanitor drops limiters idle for a while until ctx is cancelled.
func (t *Throttle) RunJanitor(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			t.sweep(now)
		}
	}
}

func (t *Throttle) sweep(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for key, e := range t.limiters {
		if now.Sub(e.lastSeen) > limiterIdleTTL {
			delete(t.limiters, key)
		}
	}
}
