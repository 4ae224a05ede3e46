package middlewares

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimiter counts requests per client IP in fixed windows.
// The client getter may return nil (Redis not connected yet or not configured); requests then pass.
type RateLimiter struct {
	client func() *redis.Client
	limit  int64
	window time.Duration
}

// incrWithExpiry bumps the window counter and arms its TTL in one step, so a counter
// never outlives its window when the connection drops between the two commands.
var incrWithExpiry = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return n
`)

func NewRateLimiter(client func() *redis.Client, limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

func (rl *RateLimiter) RateLimitMiddleware(c *gin.Context) {
	client := rl.client()
	if client == nil || rl.limit <= 0 {
		c.Next()
		return
	}

	key := "ratelimit:" + c.ClientIP()
	ctx := c.Request.Context()

	count, err := incrWithExpiry.Run(ctx, client, []string{key}, rl.window.Milliseconds()).Int64()
	if err != nil {
		// fail open; the error is logged by ErrorLogger
		_ = c.Error(fmt.Errorf("rate limiter: %w", err))
		c.Next()
		return
	}

	if count > rl.limit {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"erro": fmt.Sprintf("Limite de requisições excedido. Tente novamente em %d segundos.", int(rl.window.Seconds())),
		})
		return
	}

	c.Next()
}
