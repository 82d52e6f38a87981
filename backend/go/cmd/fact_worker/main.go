package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"student_mentor/backend/go/internal/config"
	"student_mentor/backend/go/internal/database/kafka"
	"student_mentor/backend/go/internal/mentor_service/bootstrap"
	"student_mentor/backend/go/internal/mentor_service/worker"
	"student_mentor/backend/go/pkg/logger"

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
	if cfg.Mentor.Extraction.Transport != config.TransportKafka {
		log.Fatalf("fact_worker needs mentor.extraction.transport=%s, got %q", config.TransportKafka, cfg.Mentor.Extraction.Transport)
	}

	// Initialize logger
	level, err := logger.ParseLevel(cfg.Logger.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.Init(level)
	appLogger := logger.New("fact_worker", "", "")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.Open(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal(err.Error())
	}
	defer func() {
		if err := rt.Close(); err != nil {
			appLogger.WithErr(err).Warn("failed to release clients cleanly")
		}
	}()

	local, err := rt.NewLocalDispatcher(rt.NewExtractor())
	if err != nil {
		appLogger.Fatal(err.Error())
	}

	// Initialize and start Kafka consumer
	ex := cfg.Mentor.Extraction
	reader := rt.Kafka.NewReader(ex.Topic, ex.GroupID)
	consumer := worker.NewKafkaConsumer(kafka.NewConsumer(reader, appLogger), local)
	consumer.Start(ctx)
	appLogger.WithPayload(map[string]interface{}{"topic": ex.Topic, "group": ex.GroupID}).Info("Fact worker started")

	<-ctx.Done()
	<-consumer.Done()
	if err := consumer.Close(); err != nil {
		appLogger.WithErr(err).Warn("failed to close Kafka reader")
	}
	appLogger.Info("Fact worker stopped")
}
