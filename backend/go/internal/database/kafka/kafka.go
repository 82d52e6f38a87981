package kafka

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"student_mentor/backend/go/internal/config"
	"student_mentor/backend/go/pkg/logger"

	"github.com/segmentio/kafka-go"
)

// KafkaClient 持有管理连接，并负责为各个主题创建 writer 与 reader。
type KafkaClient struct {
	Conn   *kafka.Conn // 用于管理的连接
	Config *config.KafkaConfig
}

// NewClient 连接到 Kafka，并根据配置自动创建所有缺失的主题。
func NewClient(cfg *config.KafkaConfig, log *logger.Logger) (*KafkaClient, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("未配置 Kafka brokers")
	}

	// 1. 建立管理连接
	conn, err := kafka.Dial("tcp", cfg.Brokers[0])
	if err != nil {
		return nil, fmt.Errorf("kafka 初始化连接失败: %w", err)
	}

	// 2. 获取已存在的主题
	partitions, err := conn.ReadPartitions()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("无法读取 Kafka 分区信息: %w", err)
	}
	existingTopics := make(map[string]struct{})
	for _, p := range partitions {
		existingTopics[p.Topic] = struct{}{}
	}

	// 3. 创建不存在的主题
	var topicsToCreate []kafka.TopicConfig
	for _, topicName := range cfg.Topics {
		if _, exists := existingTopics[topicName]; !exists {
			topicsToCreate = append(topicsToCreate, kafka.TopicConfig{
				Topic:             topicName,
				NumPartitions:     1,
				ReplicationFactor: 1,
			})
		}
	}
	if len(topicsToCreate) > 0 {
		if err := conn.CreateTopics(topicsToCreate...); err != nil {
			conn.Close()
			return nil, fmt.Errorf("自动创建 Kafka 主题失败: %w", err)
		}
		log.WithPayload(map[string]interface{}{"created": len(topicsToCreate)}).Info("已创建缺失的 Kafka 主题")
	}

	log.Info("成功初始化 Kafka 客户端")
	return &KafkaClient{Conn: conn, Config: cfg}, nil
}

// NewWriter 为指定主题创建 writer。消息按 Key 哈希分区，保证同一学生的消息有序。
func (c *KafkaClient) NewWriter(topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(c.Config.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		BatchSize:    100,
	}
}

// NewReader 为指定主题和消费者组创建 reader。
func (c *KafkaClient) NewReader(topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     c.Config.Brokers,
		GroupID:     groupID,
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6, // 10MB
		MaxAttempts: 10,
		Dialer: &kafka.Dialer{
			Timeout: 10 * time.Second,
		},
	})
}

// Close 关闭管理连接。
func (c *KafkaClient) Close() error {
	if c == nil || c.Conn == nil {
		return nil
	}
	return c.Conn.Close()
}

// HealthCheck 检查 Kafka 连接的健康状况。
func (c *KafkaClient) HealthCheck(ctx context.Context) error {
	if c == nil || c.Conn == nil {
		return errors.New("kafka 客户端未初始化，无法进行健康检查")
	}
	_, err := c.Conn.Controller()
	return err
}

// ControllerAddress 返回 Kafka 控制器的地址。
func (c *KafkaClient) ControllerAddress() (string, error) {
	if c == nil || c.Conn == nil {
		return "", errors.New("kafka 客户端未初始化")
	}
	controller, err := c.Conn.Controller()
	if err != nil {
		return "", err
	}
	return net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)), nil
}
