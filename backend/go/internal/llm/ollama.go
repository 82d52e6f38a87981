package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"student_mentor/backend/go/internal/models"

	olla "github.com/ollama/ollama/api"
)

const providerOllama = "ollama"

// Ollama 通过 Ollama 的 Chat 接口调用本地模型。
type Ollama struct {
	client *olla.Client
	model  string
}

// NewOllama 创建 Ollama 客户端。baseURL 为空时使用 http://localhost:11434。
func NewOllama(model, baseURL string, hc *http.Client) (*Ollama, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Ollama{client: olla.NewClient(parsedURL, hc), model: model}, nil
}

// GenerateContent 以非流式方式调用模型。
func (o *Ollama) GenerateContent(ctx context.Context, req *models.GenerateContentRequest) (*models.GenerateContentResponse, error) {
	var last olla.ChatResponse
	err := o.client.Chat(ctx, o.toChatRequest(req, false), func(resp olla.ChatResponse) error {
		last = resp
		return nil
	})
	if err != nil {
		return nil, modelErr(providerOllama, "chat", err)
	}
	return textResponse(last.Message.Content, last.Model, true), nil
}

// GenerateContentStream 以流式方式调用模型，每个增量作为一项发送。
func (o *Ollama) GenerateContentStream(ctx context.Context, req *models.GenerateContentRequest) (<-chan StreamResult, error) {
	chatReq := o.toChatRequest(req, true)
	ch := make(chan StreamResult)

	go func() {
		defer close(ch)
		err := o.client.Chat(ctx, chatReq, func(resp olla.ChatResponse) error {
			if resp.Message.Content == "" && !resp.Done {
				return nil
			}
			if !emit(ctx, ch, StreamResult{Response: textResponse(resp.Message.Content, resp.Model, resp.Done)}) {
				return ctx.Err()
			}
			return nil
		})
		if err != nil {
			emit(ctx, ch, StreamResult{Err: modelErr(providerOllama, "chat stream", err)})
		}
	}()

	return ch, nil
}

func (o *Ollama) toChatRequest(req *models.GenerateContentRequest, stream bool) *olla.ChatRequest {
	system, turns := systemAndTurns(req)
	msgs := make([]olla.Message, 0, len(turns)+1)
	if system != "" {
		msgs = append(msgs, olla.Message{Role: "system", Content: system})
	}
	for _, c := range turns {
		msgs = append(msgs, olla.Message{Role: chatRole(c.Role), Content: c.Text()})
	}

	chatReq := &olla.ChatRequest{
		Model:    o.model,
		Messages: msgs,
		Stream:   &stream,
		Options:  map[string]any{},
	}
	if req.Temperature != nil {
		chatReq.Options["temperature"] = *req.Temperature
	}
	if len(req.ResponseSchema) > 0 {
		chatReq.Format = req.ResponseSchema
	}
	return chatReq
}

// chatRole 把内部角色映射为 OpenAI 风格的 chat 角色（Ollama 与 OpenAI 兼容接口共用）。
func chatRole(r models.SpeakerRole) string {
	switch r {
	case models.SpeakerAssistant, models.SpeakerModel:
		return "assistant"
	case models.SpeakerSystem:
		return "system"
	default:
		return "user"
	}
}
