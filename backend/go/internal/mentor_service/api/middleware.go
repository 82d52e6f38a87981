package api

import (
	"net/http"
	"time"

	"student_mentor/backend/go/internal/models"
	"student_mentor/backend/go/pkg/logger"
	"student_mentor/backend/go/pkg/ratelimiter"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	loggerKey     = "logger"
	requestIDHead = "X-Request-ID"
)

// RequestLogger 为每个请求生成追踪 ID，把带追踪 ID 的 Logger 放入上下文，
// 并在请求结束后记录一条访问日志。
func RequestLogger(base *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(requestIDHead)
		if traceID == "" {
			traceID = uuid.New().String()
		}
		l := base.WithTrace(traceID)
		c.Set(loggerKey, l)
		c.Header(requestIDHead, traceID)

		start := time.Now()
		c.Next()

		l.WithRequest(models.RequestInfo{
			Method:     c.Request.Method,
			Path:       c.FullPath(),
			RemoteAddr: c.ClientIP(),
			UserAgent:  c.Request.UserAgent(),
			Status:     c.Writer.Status(),
			LatencyMS:  time.Since(start).Milliseconds(),
		}).Info("request handled")
	}
}

// requestLogger 取出 RequestLogger 放入的 Logger，没有时返回丢弃输出的 Logger。
func requestLogger(c *gin.Context) *logger.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if l, ok := v.(*logger.Logger); ok {
			return l
		}
	}
	return logger.Discard()
}

// StudentRateLimit 按路径中的学生 ID 限流，超限返回 429。
func StudentRateLimit(limiter ratelimiter.KeyedRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.AllowKey(c.Param("id")) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many messages, slow down"})
			return
		}
		c.Next()
	}
}
