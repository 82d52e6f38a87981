package llm

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"student_mentor/backend/go/internal/config"
	"student_mentor/backend/go/internal/models"
	"student_mentor/backend/go/pkg/circuitbreaker"
)

// StreamResult 是流式响应中的一项：要么是一个文本块，要么是终止错误。
// 通道关闭前最多出现一个带 Err 的结果。
type StreamResult struct {
	Response *models.GenerateContentResponse
	Err      error
}

// LLM 定义了所有大型语言模型客户端必须实现的通用接口。
type LLM interface {
	GenerateContent(ctx context.Context, req *models.GenerateContentRequest) (*models.GenerateContentResponse, error)
	// GenerateContentStream 返回的通道在模型结束、出错或 ctx 取消后关闭。
	GenerateContentStream(ctx context.Context, req *models.GenerateContentRequest) (<-chan StreamResult, error)
}

// NewClient 根据配置创建模型客户端；若配置了熔断则包一层熔断器。
func NewClient(ctx context.Context, cfg config.LLMConfig) (LLM, error) {
	timeout, err := config.ParseDuration(cfg.RequestTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid llm requestTimeout: %w", err)
	}
	hc := newHTTPClient(timeout)

	var client LLM
	switch cfg.Provider {
	case config.ProviderOllama:
		client, err = NewOllama(cfg.Model, cfg.BaseURL, hc)
	case config.ProviderOpenAI:
		client, err = NewOpenAI(cfg.Model, cfg.APIKey, cfg.BaseURL, hc)
	case config.ProviderGemini:
		client, err = NewGemini(ctx, cfg.Model, cfg.APIKey)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	if cb := cfg.CircuitBreaker; cb.Enabled {
		d, err := config.ParseDuration(cb.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid llm circuit breaker timeout: %w", err)
		}
		if d == 0 {
			d = 30 * time.Second
		}
		client = WithCircuitBreaker(client, NewBreaker(cfg.Provider, cb.FailureThreshold, cb.SuccessThreshold, d))
	}
	return client, nil
}

// newHTTPClient 只限制建连与等待响应头的时间。流式响应体的读取时长
// 不受限制，整次生成的上限由 mentor.generationTimeout 通过 ctx 控制。
func newHTTPClient(timeout time.Duration) *http.Client {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	if timeout > 0 {
		tr.ResponseHeaderTimeout = timeout
		tr.TLSHandshakeTimeout = timeout
		tr.DialContext = (&net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}).DialContext
	}
	return &http.Client{Transport: tr}
}

// NewBreaker 创建只统计真实模型故障的熔断器（调用方取消不计入）。
func NewBreaker(provider string, failures, successes uint32, timeout time.Duration) circuitbreaker.CircuitBreaker {
	return circuitbreaker.New(failures, successes, timeout,
		circuitbreaker.WithIsFailure(countsAsFailure),
		circuitbreaker.WithOnStateChange(func(_, to circuitbreaker.State) {
			breakerState.WithLabelValues(provider).Set(float64(to))
		}),
	)
}

// textResponse 构造只含一段模型文本的响应。
func textResponse(text, model string, done bool) *models.GenerateContentResponse {
	return &models.GenerateContentResponse{
		Content:      []models.Content{models.NewTextContent(models.SpeakerModel, text)},
		CreateTime:   time.Now(),
		ModelVersion: model,
		Done:         done,
	}
}

// emit 在 ctx 取消时放弃发送，避免消费者离开后生产 goroutine 永久阻塞。
func emit(ctx context.Context, ch chan<- StreamResult, r StreamResult) bool {
	select {
	case ch <- r:
		return true
	case <-ctx.Done():
		return false
	}
}

// systemAndTurns 拆分请求：合并后的系统提示词与按顺序排列的非系统消息。
func systemAndTurns(req *models.GenerateContentRequest) (string, []models.Content) {
	system := req.SystemInstruction
	turns := make([]models.Content, 0, len(req.Content))
	for _, c := range req.Content {
		if c.Role == models.SpeakerSystem {
			if system != "" {
				system += "\n\n"
			}
			system += c.Text()
			continue
		}
		turns = append(turns, c)
	}
	return system, turns
}
