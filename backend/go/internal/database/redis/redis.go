package redis

import (
	"context"
	"fmt"

	"student_mentor/backend/go/internal/config"
	"student_mentor/backend/go/pkg/logger"

	"github.com/go-redis/redis/v8"
)

// NewClient 创建 Redis 客户端并用 Ping 确认连接可用。
func NewClient(ctx context.Context, cfg *config.RedisConfig, log *logger.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("无法连接到 Redis: %w", err)
	}

	log.WithPayload(map[string]interface{}{"address": cfg.Address}).Info("成功连接到 Redis")
	return rdb, nil
}

// HealthCheck 检查 Redis 连接的健康状况。
func HealthCheck(ctx context.Context, client *redis.Client) error {
	if client == nil {
		return fmt.Errorf("Redis 客户端未初始化")
	}
	return client.Ping(ctx).Err()
}
