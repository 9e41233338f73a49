package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiter 按客户端 IP 的令牌桶限流器
type RateLimiter struct {
	limit rate.Limit
	burst int
	idle  time.Duration
	now   func() time.Time

	mu      sync.Mutex
	clients map[string]*clientLimiter
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter 创建限流器
//
// 参数:
//   - rps: 每个客户端每秒允许的请求数，<= 0 表示不限流
//   - burst: 突发容量
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limit:   rate.Limit(rps),
		burst:   burst,
		idle:    10 * time.Minute,
		now:     time.Now,
		clients: make(map[string]*clientLimiter),
	}
}

// Allow 判断客户端本次请求是否放行
func (rl *RateLimiter) Allow(key string) bool {
	if rl.limit <= 0 {
		return true
	}

	now := rl.now()
	rl.mu.Lock()
	cl, ok := rl.clients[key]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[key] = cl
	}
	cl.lastSeen = now
	rl.mu.Unlock()

	return cl.limiter.AllowN(now, 1)
}

// Cleanup 清理长时间未出现的客户端，返回清理数量
func (rl *RateLimiter) Cleanup() int {
	cutoff := rl.now().Add(-rl.idle)
	removed := 0

	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, cl := range rl.clients {
		if cl.lastSeen.Before(cutoff) {
			delete(rl.clients, key)
			removed++
		}
	}
	return removed
}

// Middleware 返回 gin 中间件，onBlock 可为 nil
func (rl *RateLimiter) Middleware(onBlock func(endpoint string)) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(c.ClientIP()) {
			if onBlock != nil {
				onBlock(c.FullPath())
			}
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code": http.StatusTooManyRequests,
				"msg":  "请求过于频繁，请稍后再试",
			})
			return
		}
		c.Next()
	}
}
