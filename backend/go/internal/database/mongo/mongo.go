package mongo

import (
	"context"
	"fmt"
	"time"

	"student_mentor/backend/go/internal/config"
	"student_mentor/backend/go/pkg/logger"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Connect 建立到 MongoDB 的连接并确认可用。
// 客户端由调用方持有并在退出时调用 Disconnect，不使用包级单例。
func Connect(ctx context.Context, cfg *config.MongoConfig, log *logger.Logger) (*mongo.Client, error) {
	clientOptions := options.Client().ApplyURI(cfg.Address)
	// 如果配置了用户名和密码，则设置认证信息。
	if cfg.Username != "" && cfg.Password != "" {
		clientOptions.SetAuth(options.Credential{
			Username: cfg.Username,
			Password: cfg.Password,
		})
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	c, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("无法连接到 MongoDB: %w", err)
	}
	if err = c.Ping(ctx, nil); err != nil {
		_ = c.Disconnect(context.Background())
		return nil, fmt.Errorf("无法 Ping MongoDB: %w", err)
	}

	log.WithPayload(map[string]interface{}{"database": cfg.Database}).Info("成功连接到 MongoDB")
	return c, nil
}

// HealthCheck 检查 MongoDB 连接的健康状况。
func HealthCheck(ctx context.Context, client *mongo.Client) error {
	if client == nil {
		return fmt.Errorf("MongoDB 客户端未初始化")
	}
	return client.Ping(ctx, nil)
}
