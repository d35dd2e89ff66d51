package middlewares

import (
	"carpool/src/config"
	"carpool/src/lib"
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimitMiddleware is a fixed-window counter in Redis keyed by client
// address, so the limit holds across service instances. Without a Redis
// connection requests pass through unmetered.
func RateLimitMiddleware(ctx *gin.Context) {
	rd := lib.GetRedisClient()
	if rd == nil {
		return
	}
	window := time.Now().Unix() / 60
	key := fmt.Sprintf("rl:%s:%d", ctx.ClientIP(), window)
	count, err := rd.Incr(context.Background(), key).Result()
	if err != nil {
		log.Printf("[ratelimit] Error incrementing counter for %s: %s\n", ctx.ClientIP(), err.Error())
		return
	}
	if count == 1 {
		rd.Expire(context.Background(), key, time.Minute)
	}
	if count > int64(config.RateLimitPerMinute()) {
		ctx.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
		return
	}
}
