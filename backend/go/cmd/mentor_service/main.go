package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"student_mentor/backend/go/internal/config"
	"student_mentor/backend/go/internal/mentor_service/api"
	"student_mentor/backend/go/internal/mentor_service/bootstrap"
	"student_mentor/backend/go/internal/mentor_service/service"
	"student_mentor/backend/go/pkg/circuitbreaker"
	httpserver "student_mentor/backend/go/pkg/http"
	"student_mentor/backend/go/pkg/logger"
	"student_mentor/backend/go/pkg/ratelimiter"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load configuration
	configPath := os.Getenv("MENTOR_CONFIG")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Initialize logger
	level, err := logger.ParseLevel(cfg.Logger.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.Init(level)
	appLogger := logger.New("mentor_service", "", "")
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect storage, cache, kafka and the model
	rt, err := bootstrap.Open(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal(err.Error())
	}
	defer func() {
		if err := rt.Close(); err != nil {
			appLogger.WithErr(err).Warn("failed to release clients cleanly")
		}
	}()

	extractor := rt.NewExtractor()
	dispatcher, err := rt.NewDispatcher(extractor)
	if err != nil {
		appLogger.Fatal(err.Error())
	}
	svcConfig, err := rt.ServiceConfig()
	if err != nil {
		appLogger.Fatal(err.Error())
	}

	// Initialize dependencies (Store -> Service -> Handler)
	mentor := service.New(rt.Store, rt.LLM, dispatcher, svcConfig,
		service.WithLogger(appLogger),
		service.WithSummarizer(extractor),
	)
	opts := api.RouterOptions{Logger: appLogger, HealthChecks: rt.HealthChecks}
	if rl := cfg.Mentor.StudentRateLimit; rl.Enabled {
		limiter, err := ratelimiter.NewKeyedLimiter(rl.Rate, rl.Capacity, rl.MaxStudents)
		if err != nil {
			appLogger.Fatal(err.Error())
		}
		opts.StudentLimiter = limiter
	}
	router := api.NewRouter(api.NewHandler(mentor), opts)

	serverOpts := []httpserver.ServerOption{
		httpserver.WithAddress(cfg.Mentor.ServerAddress),
		httpserver.WithLogger(appLogger),
	}
	if rl := cfg.Middleware.RateLimiter; rl.Enabled {
		serverOpts = append(serverOpts, httpserver.WithRateLimiter(ratelimiter.NewTokenBucket(rl.TokenBucket.Rate, rl.TokenBucket.Capacity)))
	}
	if cb := cfg.Middleware.CircuitBreaker; cb.Enabled {
		timeout, err := config.ParseDuration(cb.Timeout)
		if err != nil || timeout == 0 {
			timeout = 10 * time.Second
		}
		serverOpts = append(serverOpts, httpserver.WithCircuitBreaker(circuitbreaker.New(cb.FailureThreshold, cb.SuccessThreshold, timeout)))
	}
	server := httpserver.NewServer(router, serverOpts...)

	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()
	appLogger.WithPayload(map[string]interface{}{
		"provider":  cfg.LLM.Provider,
		"model":     cfg.LLM.Model,
		"storage":   cfg.Mentor.Storage,
		"transport": cfg.Mentor.Extraction.Transport,
	}).Info("Mentor service started")

	select {
	case err := <-errCh:
		if err != nil {
			appLogger.WithErr(err).Error("HTTP server failed")
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		appLogger.WithErr(err).Warn("HTTP server shutdown incomplete")
	}
	appLogger.Info("Mentor service stopped")
}
