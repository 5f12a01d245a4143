package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joy095/booking/logger"
	"github.com/joy095/booking/utils"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	ginmiddleware "github.com/ulule/limiter/v3/drivers/middleware/gin"
	memorystore "github.com/ulule/limiter/v3/drivers/store/memory"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
)

// Example route using CombinedRateLimiter
// r.GET("/bookings", middlewares.CombinedRateLimiter("bookings", "200-24h", "50-1h"), handler)

var rateLimitRedis *redis.Client

// UseRedisStore makes limiters created afterwards share their counters
// through rdb. Without it counters live in process memory.
func UseRedisStore(rdb *redis.Client) {
	rateLimitRedis = rdb
}

// rateLimitKey identifies the caller: the authenticated user when there is
// one, the client IP otherwise.
func rateLimitKey(c *gin.Context) string {
	if userID, err := utils.GetUserIDFromContext(c); err == nil {
		return "user:" + userID.String()
	}
	return "ip:" + c.ClientIP()
}

// createStore creates a limiter store with a route-specific prefix that
// expires keys after the rate's period.
func createStore(routeID string, period time.Duration) (limiter.Store, error) {
	opts := limiter.StoreOptions{
		Prefix:          fmt.Sprintf("rate_limiter:%s", routeID),
		MaxRetry:        3,
		CleanUpInterval: period,
	}
	if rateLimitRedis == nil {
		return memorystore.NewStoreWithOptions(opts), nil
	}

	store, err := redisstore.NewStoreWithOptions(rateLimitRedis, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis store for route %s: %w", routeID, err)
	}
	return store, nil
}

// ParseCustomRate allows formats like "10-2m", "30-20m", "5-1h", "20-10s", etc.
func ParseCustomRate(rateStr string) (limiter.Rate, error) {
	parts := strings.Split(strings.TrimSpace(rateStr), "-")
	if len(parts) != 2 {
		return limiter.Rate{}, fmt.Errorf("invalid rate format: %s", rateStr)
	}

	limit, err := strconv.Atoi(parts[0])
	if err != nil || limit <= 0 {
		return limiter.Rate{}, fmt.Errorf("invalid limit: %s", parts[0])
	}

	durationStr := parts[1]
	var unit time.Duration

	switch {
	case strings.HasSuffix(durationStr, "s"):
		unit = time.Second
	case strings.HasSuffix(durationStr, "m"):
		unit = time.Minute
	case strings.HasSuffix(durationStr, "h"):
		unit = time.Hour
	default:
		return limiter.Rate{}, fmt.Errorf("unsupported period: %s", durationStr)
	}

	n, err := strconv.Atoi(durationStr[:len(durationStr)-1])
	if err != nil || n <= 0 {
		return limiter.Rate{}, fmt.Errorf("invalid duration: %s", durationStr)
	}

	return limiter.Rate{
		Period: time.Duration(n) * unit,
		Limit:  int64(limit),
	}, nil
}

func newLimiter(rateStr, routeID string) (*limiter.Limiter, error) {
	rate, err := ParseCustomRate(rateStr)
	if err != nil {
		return nil, err
	}
	store, err := createStore(routeID, rate.Period)
	if err != nil {
		return nil, err
	}
	return limiter.New(store, rate), nil
}

// NewRateLimiter creates middleware with custom periods like "10-2m" for a specific route and caller.
func NewRateLimiter(rateStr, routeID string) gin.HandlerFunc {
	l, err := newLimiter(rateStr, routeID)
	if err != nil {
		logger.ErrorLogger.Errorf("Rate limiter for route %s disabled: %v", routeID, err)
		return func(c *gin.Context) {
			c.Next()
		}
	}
	return ginmiddleware.NewMiddleware(l, ginmiddleware.WithKeyGetter(rateLimitKey))
}

// CombinedRateLimiter enforces every rate in rateStrings for a route; the
// request is rejected as soon as one of them is exhausted.
func CombinedRateLimiter(routeID string, rateStrings ...string) gin.HandlerFunc {
	limiters := make([]*limiter.Limiter, 0, len(rateStrings))
	for i, rateStr := range rateStrings {
		l, err := newLimiter(rateStr, fmt.Sprintf("%s_%d", routeID, i))
		if err != nil {
			logger.ErrorLogger.Errorf("Skipping rate %q for route %s: %v", rateStr, routeID, err)
			continue
		}
		limiters = append(limiters, l)
	}

	return func(c *gin.Context) {
		key := rateLimitKey(c)
		for _, l := range limiters {
			lc, err := l.Get(c.Request.Context(), key)
			if err != nil {
				// Fail open.
				logger.ErrorLogger.Errorf("Rate limiter error for route %s: %v", routeID, err)
				continue
			}
			if lc.Reached {
				c.Header("X-RateLimit-Limit", strconv.FormatInt(lc.Limit, 10))
				c.Header("X-RateLimit-Remaining", "0")
				c.Header("X-RateLimit-Reset", strconv.FormatInt(lc.Reset, 10))
				logger.WarnLogger.Warnf("Rate limit reached on route %s for %s", routeID, key)
				c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
				return
			}
		}
		c.Next()
	}
}
