package middleware

import (
	"sync"
	"time"

	"github.com/haierkeys/fast-note-image-uploader/pkg/app"
	"github.com/haierkeys/fast-note-image-uploader/pkg/code"

	"github.com/gin-gonic/gin"
	"github.com/juju/ratelimit"
)

// LimiterRule 每个客户端 IP 的令牌桶规则
type LimiterRule struct {
	// FillInterval 每次放入令牌的间隔
	FillInterval time.Duration
	// Capacity 桶容量
	Capacity int64
	// Quantum 每次放入的令牌数
	Quantum int64
}

// IPLimiter 按客户端 IP 分桶限流
type IPLimiter struct {
	rule    LimiterRule
	mu      sync.Mutex
	buckets map[string]*ratelimit.Bucket
}

func NewIPLimiter(rule LimiterRule) *IPLimiter {
	if rule.Quantum <= 0 {
		rule.Quantum = 1
	}
	return &IPLimiter{rule: rule, buckets: make(map[string]*ratelimit.Bucket)}
}

func (l *IPLimiter) bucket(key string) *ratelimit.Bucket {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[key]
	if !ok {
		b = ratelimit.NewBucketWithQuantum(l.rule.FillInterval, l.rule.Capacity, l.rule.Quantum)
		l.buckets[key] = b
	}
	return b
}

// RateLimiter 限流中间件，limiter 为 nil 或规则无效时不限流
func RateLimiter(l *IPLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil || l.rule.Capacity <= 0 || l.rule.FillInterval <= 0 {
			c.Next()
			return
		}
		if l.bucket(c.ClientIP()).TakeAvailable(1) == 0 {
			app.NewResponse(c).ToResponse(code.ErrorTooManyRequests)
			c.Abort()
			return
		}

		c.Next()
	}
}
