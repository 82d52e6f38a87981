// Package api exposes the mentor service over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"student_mentor/backend/go/pkg/logger"
	"student_mentor/backend/go/pkg/ratelimiter"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthCheck 检查一个依赖是否可用。
type HealthCheck func(ctx context.Context) error

// RouterOptions 控制路由的可选部分。
type RouterOptions struct {
	Logger *logger.Logger
	// StudentLimiter 非空时对发送消息接口按学生限流。
	StudentLimiter ratelimiter.KeyedRateLimiter
	// HealthChecks 按名称列出 /healthz 要检查的依赖。
	HealthChecks map[string]HealthCheck
}

// NewRouter 创建 gin 引擎并注册所有路由。
func NewRouter(h *Handler, opts RouterOptions) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}

	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(opts.Logger))

	router.GET("/healthz", healthz(opts.HealthChecks))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		auth.POST("/signup", h.Signup)
		auth.POST("/login", h.Login)

		students := v1.Group("/students/:id")
		students.GET("", h.GetStudent)
		students.PATCH("", h.UpdateStudent)
		students.GET("/conversations", h.GetConversations)
		students.GET("/facts", h.GetFacts)
		students.GET("/fact-events", h.GetFactEvents)
		students.GET("/conversation", h.GetConversation)

		send := []gin.HandlerFunc{h.SendMessage}
		if opts.StudentLimiter != nil {
			send = append([]gin.HandlerFunc{StudentRateLimit(opts.StudentLimiter)}, send...)
		}
		students.POST("/messages", send...)

		v1.POST("/conversations/:id/summary", h.Summarize)
	}
	return router
}

func healthz(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(gin.H, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				results[name] = err.Error()
				continue
			}
			results[name] = "ok"
		}
		c.JSON(status, gin.H{"status": http.StatusText(status), "checks": results})
	}
}
