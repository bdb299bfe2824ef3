package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// clientKey identifies the caller for rate limiting: per user when auth ran
// first, otherwise per client IP as resolved by gin's trusted-proxy rules.
func clientKey(c *gin.Context) string {
	if userID := c.GetString("user_id"); userID != "" {
		return "uid:" + userID
	}
	return "ip:" + c.ClientIP()
}

// RateLimiter caps requests per client over a sliding window in Redis,
// blocking offenders for blockDuration. It fails open when Redis is down so
// an outage there never takes wallet traffic with it.
func RateLimiter(rdb *redis.Client, limit int, window, blockDuration time.Duration, keyPrefix string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil || limit <= 0 {
			c.Next()
			return
		}
		ctx := c.Request.Context()
		key := keyPrefix + ":" + clientKey(c)
		blockKey := key + ":blocked"

		blocked, _ := rdb.Get(ctx, blockKey).Result()
		if blocked == "1" {
			ttl, _ := rdb.TTL(ctx, blockKey).Result()
			c.Header("Retry-After", strconv.Itoa(int(ttl.Seconds())))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "Too many requests. Try again in " + ttl.String(),
			})
			c.Abort()
			return
		}

		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			c.Next()
			return
		}
		if count == 1 {
			rdb.Expire(ctx, key, window)
		}

		if count > int64(limit) {
			rdb.Set(ctx, blockKey, "1", blockDuration)
			c.Header("Retry-After", strconv.Itoa(int(blockDuration.Seconds())))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "Too many requests. Blocked for " + blockDuration.String(),
			})
			c.Abort()
			return
		}

		ttl, _ := rdb.TTL(ctx, key).Result()
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(limit-int(count)))
		c.Header("X-RateLimit-Reset", strconv.Itoa(int(ttl.Seconds())))

		c.Next()
	}
}
