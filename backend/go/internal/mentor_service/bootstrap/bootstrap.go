// Package bootstrap turns an AppConfig into the components shared by the
// mentor HTTP service and the fact worker.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"student_mentor/backend/go/internal/config"
	"student_mentor/backend/go/internal/database/kafka"
	"student_mentor/backend/go/internal/database/mongo"
	"student_mentor/backend/go/internal/database/redis"
	"student_mentor/backend/go/internal/llm"
	"student_mentor/backend/go/internal/mentor_service/api"
	"student_mentor/backend/go/internal/mentor_service/assembler"
	"student_mentor/backend/go/internal/mentor_service/intelligence"
	"student_mentor/backend/go/internal/mentor_service/service"
	"student_mentor/backend/go/internal/mentor_service/store"
	"student_mentor/backend/go/internal/mentor_service/worker"
	"student_mentor/backend/go/pkg/logger"
	"student_mentor/backend/go/pkg/shardqueue"
)

// Runtime owns every client opened for one process. Close releases them in
// reverse order.
type Runtime struct {
	Config *config.AppConfig
	Logger *logger.Logger
	Store  store.Store
	LLM    llm.LLM
	// Kafka is nil unless extraction jobs travel over Kafka.
	Kafka        *kafka.KafkaClient
	HealthChecks map[string]api.HealthCheck

	closers []func() error
}

// Open connects storage, cache, Kafka and the model client described by cfg.
// On error everything opened so far is closed again.
func Open(ctx context.Context, cfg *config.AppConfig, log *logger.Logger) (*Runtime, error) {
	rt := &Runtime{Config: cfg, Logger: log, HealthChecks: map[string]api.HealthCheck{}}
	if err := rt.open(ctx); err != nil {
		_ = rt.Close()
		return nil, err
	}
	return rt, nil
}

func (rt *Runtime) open(ctx context.Context) error {
	if err := rt.openStore(ctx); err != nil {
		return err
	}
	if err := rt.openCache(ctx); err != nil {
		return err
	}
	if rt.Config.Mentor.Extraction.Transport == config.TransportKafka {
		kc, err := kafka.NewClient(&rt.Config.Databases.Kafka, rt.Logger)
		if err != nil {
			return err
		}
		rt.Kafka = kc
		rt.closers = append(rt.closers, kc.Close)
		rt.HealthChecks["kafka"] = kc.HealthCheck
	}

	model, err := llm.NewClient(ctx, rt.Config.LLM)
	if err != nil {
		return fmt.Errorf("create llm client: %w", err)
	}
	if c, ok := model.(interface{ Close() error }); ok {
		rt.closers = append(rt.closers, c.Close)
	}
	rt.LLM = model
	return nil
}

func (rt *Runtime) openStore(ctx context.Context) error {
	cfg := rt.Config
	if cfg.Mentor.Storage == config.StorageMemory {
		rt.Logger.Warn("using in-memory storage, data is lost on restart")
		rt.Store = store.NewMemoryStore()
		return nil
	}

	client, err := mongo.Connect(ctx, &cfg.Databases.MongoDB, rt.Logger)
	if err != nil {
		return err
	}
	rt.closers = append(rt.closers, func() error { return client.Disconnect(context.Background()) })
	rt.HealthChecks["mongodb"] = func(ctx context.Context) error { return mongo.HealthCheck(ctx, client) }

	db := client.Database(cfg.Databases.MongoDB.Database)
	if err := store.EnsureIndexes(ctx, db); err != nil {
		return err
	}
	rt.Store = store.NewMongoStore(db)
	return nil
}

func (rt *Runtime) openCache(ctx context.Context) error {
	sc := rt.Config.Mentor.StudentCache
	ttl, err := config.ParseDuration(sc.TTL)
	if err != nil {
		return err
	}

	var cache store.StudentCache
	switch sc.Backend {
	case config.CacheNone:
		return nil
	case config.CacheLRU:
		if rt.Config.Mentor.Extraction.Transport == config.TransportKafka {
			rt.Logger.Warn("lru student cache with kafka extraction: facts written by the fact worker stay stale until the ttl expires")
		}
		if cache, err = store.NewLRUStudentCache(sc.Capacity, ttl); err != nil {
			return err
		}
	case config.CacheRedis:
		client, err := redis.NewClient(ctx, &rt.Config.Databases.Redis, rt.Logger)
		if err != nil {
			return err
		}
		rt.closers = append(rt.closers, client.Close)
		rt.HealthChecks["redis"] = func(ctx context.Context) error { return redis.HealthCheck(ctx, client) }
		cache = store.NewRedisStudentCache(client, ttl, rt.Logger)
	}
	rt.Store.Students = store.NewCachedStudents(rt.Store.Students, cache)
	return nil
}

// NewExtractor builds the fact extractor. Fact events are broadcast on
// FactEventsTopic when Kafka is open and the topic is set.
func (rt *Runtime) NewExtractor() *intelligence.Extractor {
	log := rt.Logger.WithPayload(map[string]interface{}{"component": "extractor"})
	opts := []intelligence.Option{
		intelligence.WithTemperature(rt.Config.LLM.ExtractionTemperature),
		intelligence.WithContradictionHandler(intelligence.LogContradictions(log)),
		intelligence.WithLogger(log),
	}
	if topic := rt.Config.Mentor.Extraction.FactEventsTopic; rt.Kafka != nil && topic != "" {
		pub := kafka.NewFactEventPublisher(kafka.NewPublisher(rt.Kafka.NewWriter(topic), topic, log))
		rt.closers = append(rt.closers, pub.Close)
		opts = append(opts, intelligence.WithPublisher(pub))
	}
	return intelligence.NewExtractor(rt.LLM, rt.Store, opts...)
}

// NewLocalDispatcher starts a shard executor running jobs on extractor. The
// executor is stopped by Close after pending jobs drain.
func (rt *Runtime) NewLocalDispatcher(extractor worker.FactExtractor) (*worker.LocalDispatcher, error) {
	ex := rt.Config.Mentor.Extraction
	enqueue, err := config.ParseDuration(ex.EnqueueTimeout)
	if err != nil {
		return nil, err
	}
	exec := shardqueue.NewShardExecutor(shardqueue.Config{
		Shards:         ex.Shards,
		QueueSize:      ex.QueueSize,
		EnqueueTimeout: enqueue,
		MaxAttempts:    ex.MaxAttempts,
		ErrorHandler:   worker.LogFailures(rt.Logger),
		Logger:         rt.Logger,
	})
	rt.closers = append(rt.closers, exec.Close)
	return worker.NewLocalDispatcher(exec, extractor), nil
}

// NewDispatcher returns the dispatcher the HTTP service hands jobs to: a
// local executor running extractor, or a Kafka publisher drained by the
// fact worker.
func (rt *Runtime) NewDispatcher(extractor worker.FactExtractor) (worker.Dispatcher, error) {
	if rt.Kafka == nil {
		return rt.NewLocalDispatcher(extractor)
	}
	topic := rt.Config.Mentor.Extraction.Topic
	d := worker.NewKafkaDispatcher(kafka.NewPublisher(rt.Kafka.NewWriter(topic), topic, rt.Logger))
	rt.closers = append(rt.closers, d.Close)
	return d, nil
}

// ServiceConfig maps the mentor section of the config onto service.Config.
func (rt *Runtime) ServiceConfig() (service.Config, error) {
	timeout, err := config.ParseDuration(rt.Config.Mentor.GenerationTimeout)
	if err != nil {
		return service.Config{}, err
	}
	h := rt.Config.Mentor.History
	return service.Config{
		ChatTemperature:   rt.Config.LLM.ChatTemperature,
		GenerationTimeout: timeout,
		Window: assembler.WindowConfig{
			TrimThreshold: h.TrimThreshold,
			HeadKeep:      h.HeadKeep,
			TailKeep:      h.TailKeep,
		},
	}, nil
}

// Close releases every opened client, newest first, and reports all errors.
func (rt *Runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}
