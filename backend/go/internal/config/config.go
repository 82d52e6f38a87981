package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// 支持的 LLM 提供商。
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// 事实抽取任务的投递方式。
const (
	TransportInProcess = "inprocess"
	TransportKafka     = "kafka"
)

// 学生档案缓存的后端。
const (
	CacheNone  = "none"
	CacheLRU   = "lru"
	CacheRedis = "redis"
)

// 持久化后端。
const (
	StorageMongo  = "mongodb"
	StorageMemory = "memory"
)

// EnvPrefix 是环境变量覆盖项的统一前缀，例如 MENTOR_LLM_MODEL。
const EnvPrefix = "MENTOR"

// RedisConfig 定义了 Redis 数据库的连接配置。
type RedisConfig struct {
	Address  string `yaml:"address"`  // Redis 服务器地址 (例如: "localhost:6379")
	Password string `yaml:"password"` // Redis 密码
	DB       int    `yaml:"db"`       // Redis 数据库编号
}

// MongoConfig 定义了 MongoDB 数据库的连接配置。
type MongoConfig struct {
	Address  string `yaml:"address"`  // MongoDB 连接 URI
	Username string `yaml:"username"` // 用户名
	Password string `yaml:"password"` // 密码
	Database string `yaml:"database"` // 数据库名称
}

// KafkaConfig 定义了 Kafka 消息队列的连接配置。
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"` // Kafka Broker 地址列表
	Topics  []string `yaml:"topics"`  // 启动时需要确保存在的主题
}

// DatabaseConfigs 包含所有数据库的配置。
type DatabaseConfigs struct {
	Redis   RedisConfig `yaml:"redis"`   // Redis 配置
	MongoDB MongoConfig `yaml:"mongodb"` // MongoDB 配置
	Kafka   KafkaConfig `yaml:"kafka"`   // Kafka 配置
}

// AppInfo 对应 'app' 部分，包含应用程序的基本信息。
type AppInfo struct {
	Name        string `yaml:"name"`        // 应用程序名称
	Version     string `yaml:"version"`     // 应用程序版本
	Environment string `yaml:"environment"` // 运行环境 (例如: "development", "production")
}

// LoggerConfig 定义了日志记录器的配置。
type LoggerConfig struct {
	Level string `yaml:"level"` // 日志级别 (例如: "info", "debug", "warn", "error")
}

// LLMConfig 描述了对话与抽取所使用的模型。
type LLMConfig struct {
	Provider              string               `yaml:"provider"`              // "ollama"、"openai" 或 "gemini"
	BaseURL               string               `yaml:"baseURL"`               // 模型服务地址 (Ollama / OpenAI 兼容接口)
	Model                 string               `yaml:"model"`                 // 模型名称
	APIKey                string               `yaml:"apiKey"`                // OpenAI / Gemini 的 API 密钥
	ChatTemperature       float64              `yaml:"chatTemperature"`       // 对话采样温度
	ExtractionTemperature float64              `yaml:"extractionTemperature"` // 事实抽取采样温度
	RequestTimeout        string               `yaml:"requestTimeout"`        // 建连与等待响应头的超时，例如 "120s"；不限制流式响应体
	CircuitBreaker        CircuitBreakerConfig `yaml:"circuitBreaker"`        // 模型调用熔断配置
}

// HistoryConfig 控制送入模型的历史消息窗口。
type HistoryConfig struct {
	TrimThreshold int `yaml:"trimThreshold"` // 消息总数达到该值才开始裁剪
	HeadKeep      int `yaml:"headKeep"`      // 保留最早的非系统消息条数
	TailKeep      int `yaml:"tailKeep"`      // 保留最近的非系统消息条数
}

// StudentCacheConfig 定义了学生档案的读缓存。
type StudentCacheConfig struct {
	Backend  string `yaml:"backend"`  // "none"、"lru" 或 "redis"
	TTL      string `yaml:"ttl"`      // 缓存有效期，例如 "5m"
	Capacity int    `yaml:"capacity"` // LRU 缓存的最大条目数
}

// ExtractionConfig 定义了后台事实抽取队列。
type ExtractionConfig struct {
	Transport       string `yaml:"transport"`       // "inprocess" 或 "kafka"
	Topic           string `yaml:"topic"`           // 抽取任务主题
	GroupID         string `yaml:"groupID"`         // 消费者组
	FactEventsTopic string `yaml:"factEventsTopic"` // 事实事件广播主题，留空则不广播
	Shards          int    `yaml:"shards"`          // 分片数
	QueueSize       int    `yaml:"queueSize"`       // 每个分片的队列长度
	EnqueueTimeout  string `yaml:"enqueueTimeout"`  // 入队等待时间
	MaxAttempts     int    `yaml:"maxAttempts"`     // 单个任务的最大尝试次数
}

// StudentRateLimitConfig 定义了按学生维度的消息限流。
type StudentRateLimitConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Rate        float64 `yaml:"rate"`        // 每秒补充的令牌数
	Capacity    int     `yaml:"capacity"`    // 令牌桶容量
	MaxStudents int     `yaml:"maxStudents"` // 同时跟踪的学生数上限
}

// MentorConfig 是导师服务自身的配置。
type MentorConfig struct {
	ServerAddress     string                 `yaml:"serverAddress"`     // HTTP 监听地址
	Storage           string                 `yaml:"storage"`           // "mongodb" 或 "memory"
	GenerationTimeout string                 `yaml:"generationTimeout"` // 单次生成的超时，留空表示不限制
	History           HistoryConfig          `yaml:"history"`
	StudentCache      StudentCacheConfig     `yaml:"studentCache"`
	Extraction        ExtractionConfig       `yaml:"extraction"`
	StudentRateLimit  StudentRateLimitConfig `yaml:"studentRateLimit"`
}

// AppConfig 是整个 YAML 文件的根结构，包含了应用程序的所有配置。
type AppConfig struct {
	App        AppInfo          `yaml:"app"`        // 应用程序信息
	LLM        LLMConfig        `yaml:"llm"`        // LLM 配置
	Logger     LoggerConfig     `yaml:"logger"`     // 日志记录器配置
	Databases  DatabaseConfigs  `yaml:"databases"`  // 数据库配置
	Mentor     MentorConfig     `yaml:"mentor"`     // 导师服务配置
	Middleware MiddlewareConfig `yaml:"middleware"` // 中间件配置
}

// MiddlewareConfig 包含所有中间件的配置。
type MiddlewareConfig struct {
	RateLimiter    RateLimiterConfig    `yaml:"rateLimiter"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuitBreaker"`
}

// RateLimiterConfig 定义了全局限流器的配置。目前只支持令牌桶。
type RateLimiterConfig struct {
	Enabled     bool              `yaml:"enabled"`
	Algorithm   string            `yaml:"algorithm"`
	TokenBucket TokenBucketConfig `yaml:"tokenBucket"`
}

// TokenBucketConfig 定义了令牌桶算法的配置。
type TokenBucketConfig struct {
	Rate     float64 `yaml:"rate"` // 每秒速率
	Capacity int     `yaml:"capacity"`
}

// CircuitBreakerConfig 定义了熔断器的配置。
type CircuitBreakerConfig struct {
	Enabled          bool   `yaml:"enabled"`
	FailureThreshold uint32 `yaml:"failureThreshold"`
	SuccessThreshold uint32 `yaml:"successThreshold"`
	Timeout          string `yaml:"timeout"` // 例如: "30s"
}

// envOverrides 列出可以通过环境变量覆盖的配置项，未设置的保持为 nil。
type envOverrides struct {
	LLMProvider           *string  `envconfig:"LLM_PROVIDER"`
	LLMBaseURL            *string  `envconfig:"LLM_BASE_URL"`
	LLMModel              *string  `envconfig:"LLM_MODEL"`
	LLMAPIKey             *string  `envconfig:"LLM_API_KEY"`
	ChatTemperature       *float64 `envconfig:"CHAT_TEMPERATURE"`
	ExtractionTemperature *float64 `envconfig:"EXTRACTION_TEMPERATURE"`
	MongoURI              *string  `envconfig:"MONGODB_URI"`
	MongoDB               *string  `envconfig:"MONGODB_DB"`
	RedisAddress          *string  `envconfig:"REDIS_ADDR"`
	KafkaBrokers          []string `envconfig:"KAFKA_BROKERS"`
	LogLevel              *string  `envconfig:"LOG_LEVEL"`
	ServerAddress         *string  `envconfig:"SERVER_ADDR"`
	Storage               *string  `envconfig:"STORAGE"`
	ExtractionTransport   *string  `envconfig:"EXTRACTION_TRANSPORT"`
}

// LoadConfig 函数从指定路径加载并解析 YAML 配置文件。
//
// 加载顺序: 当前目录下的 .env 文件 (若存在) -> YAML 文件 -> MENTOR_ 前缀的环境变量 -> 默认值。
// path 为空时跳过 YAML 文件，只使用环境变量与默认值。
func LoadConfig(path string) (*AppConfig, error) {
	// .env 不存在不算错误。
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("无法加载 .env 文件: %w", err)
	}

	var cfg AppConfig
	if path != "" {
		yamlFile, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("无法读取 YAML 文件 '%s': %w", path, err)
		}
		if err := yaml.Unmarshal(yamlFile, &cfg); err != nil {
			return nil, fmt.Errorf("解析 YAML 文件失败: %w", err)
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyEnv 使用 MENTOR_ 前缀的环境变量覆盖配置。
func (c *AppConfig) ApplyEnv() error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("解析环境变量失败: %w", err)
	}
	setString(&c.LLM.Provider, env.LLMProvider)
	setString(&c.LLM.BaseURL, env.LLMBaseURL)
	setString(&c.LLM.Model, env.LLMModel)
	setString(&c.LLM.APIKey, env.LLMAPIKey)
	if env.ChatTemperature != nil {
		c.LLM.ChatTemperature = *env.ChatTemperature
	}
	if env.ExtractionTemperature != nil {
		c.LLM.ExtractionTemperature = *env.ExtractionTemperature
	}
	setString(&c.Databases.MongoDB.Address, env.MongoURI)
	setString(&c.Databases.MongoDB.Database, env.MongoDB)
	setString(&c.Databases.Redis.Address, env.RedisAddress)
	if len(env.KafkaBrokers) > 0 {
		c.Databases.Kafka.Brokers = env.KafkaBrokers
	}
	setString(&c.Logger.Level, env.LogLevel)
	setString(&c.Mentor.ServerAddress, env.ServerAddress)
	setString(&c.Mentor.Storage, env.Storage)
	setString(&c.Mentor.Extraction.Transport, env.ExtractionTransport)
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// ApplyDefaults 为未设置的配置项填充默认值。
// 温度为 0 时视为未设置，需要贪心解码时请设置为一个极小的正数。
func (c *AppConfig) ApplyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "student-mentor"
	}
	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}

	if c.LLM.Provider == "" {
		c.LLM.Provider = ProviderOllama
	}
	if c.LLM.BaseURL == "" && c.LLM.Provider == ProviderOllama {
		c.LLM.BaseURL = "http://localhost:11434"
	}
	if c.LLM.Model == "" && c.LLM.Provider == ProviderOllama {
		c.LLM.Model = "llama3"
	}
	if c.LLM.ChatTemperature == 0 {
		c.LLM.ChatTemperature = 0.7
	}
	if c.LLM.ExtractionTemperature == 0 {
		c.LLM.ExtractionTemperature = 0.2
	}
	if c.LLM.RequestTimeout == "" {
		c.LLM.RequestTimeout = "120s"
	}

	if c.Databases.MongoDB.Address == "" {
		c.Databases.MongoDB.Address = "mongodb://localhost:27017/"
	}
	if c.Databases.MongoDB.Database == "" {
		c.Databases.MongoDB.Database = "student_mentors"
	}
	if c.Databases.Redis.Address == "" {
		c.Databases.Redis.Address = "localhost:6379"
	}

	m := &c.Mentor
	if m.ServerAddress == "" {
		m.ServerAddress = ":8080"
	}
	if m.Storage == "" {
		m.Storage = StorageMongo
	}
	if m.History.TrimThreshold == 0 {
		m.History.TrimThreshold = 30
	}
	if m.History.HeadKeep == 0 {
		m.History.HeadKeep = 3
	}
	if m.History.TailKeep == 0 {
		m.History.TailKeep = 20
	}
	if m.StudentCache.Backend == "" {
		m.StudentCache.Backend = CacheLRU
	}
	if m.StudentCache.TTL == "" {
		m.StudentCache.TTL = "5m"
	}
	if m.StudentCache.Capacity == 0 {
		m.StudentCache.Capacity = 1024
	}
	if m.Extraction.Transport == "" {
		m.Extraction.Transport = TransportInProcess
	}
	if m.Extraction.Topic == "" {
		m.Extraction.Topic = "mentor.fact_extraction"
	}
	if m.Extraction.GroupID == "" {
		m.Extraction.GroupID = "fact-worker-group"
	}
	if m.Extraction.Shards == 0 {
		m.Extraction.Shards = 4
	}
	if m.Extraction.QueueSize == 0 {
		m.Extraction.QueueSize = 128
	}
	if m.Extraction.EnqueueTimeout == "" {
		m.Extraction.EnqueueTimeout = "100ms"
	}
	if m.Extraction.MaxAttempts == 0 {
		m.Extraction.MaxAttempts = 3
	}
	if m.StudentRateLimit.Rate == 0 {
		m.StudentRateLimit.Rate = 1
	}
	if m.StudentRateLimit.Capacity == 0 {
		m.StudentRateLimit.Capacity = 5
	}
	if m.StudentRateLimit.MaxStudents == 0 {
		m.StudentRateLimit.MaxStudents = 10000
	}
}

// Validate 检查配置是否合法。
func (c *AppConfig) Validate() error {
	switch c.LLM.Provider {
	case ProviderOllama, ProviderOpenAI, ProviderGemini:
	default:
		return fmt.Errorf("不支持的 LLM 提供商: %s", c.LLM.Provider)
	}
	if c.LLM.ChatTemperature < 0 || c.LLM.ChatTemperature > 2 {
		return fmt.Errorf("chatTemperature 超出范围 [0, 2]: %v", c.LLM.ChatTemperature)
	}
	if c.LLM.ExtractionTemperature < 0 || c.LLM.ExtractionTemperature > 2 {
		return fmt.Errorf("extractionTemperature 超出范围 [0, 2]: %v", c.LLM.ExtractionTemperature)
	}
	h := c.Mentor.History
	if h.TrimThreshold < 0 || h.HeadKeep < 0 || h.TailKeep < 0 {
		return fmt.Errorf("history 窗口参数不能为负数")
	}
	switch c.Mentor.Storage {
	case StorageMongo, StorageMemory:
	default:
		return fmt.Errorf("不支持的存储后端: %s", c.Mentor.Storage)
	}
	switch c.Mentor.StudentCache.Backend {
	case CacheNone, CacheLRU, CacheRedis:
	default:
		return fmt.Errorf("不支持的缓存后端: %s", c.Mentor.StudentCache.Backend)
	}
	switch c.Mentor.Extraction.Transport {
	case TransportInProcess:
	case TransportKafka:
		if len(c.Databases.Kafka.Brokers) == 0 {
			return fmt.Errorf("使用 kafka 投递抽取任务时必须配置 brokers")
		}
	default:
		return fmt.Errorf("不支持的抽取任务投递方式: %s", c.Mentor.Extraction.Transport)
	}
	for name, d := range map[string]string{
		"llm.requestTimeout":               c.LLM.RequestTimeout,
		"mentor.generationTimeout":         c.Mentor.GenerationTimeout,
		"mentor.studentCache.ttl":          c.Mentor.StudentCache.TTL,
		"mentor.extraction.enqueueTimeout": c.Mentor.Extraction.EnqueueTimeout,
	} {
		if _, err := ParseDuration(d); err != nil {
			return fmt.Errorf("%s 不是合法的时间间隔: %w", name, err)
		}
	}
	return nil
}

// ParseDuration 解析配置中的时间间隔字符串，空字符串返回 0。
func ParseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}
