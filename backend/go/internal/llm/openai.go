package llm

import (
	"context"
	"errors"
	"io"
	"net/http"

	"student_mentor/backend/go/internal/models"

	openai "github.com/sashabaranov/go-openai"
)

const providerOpenAI = "openai"

// OpenAI 调用 OpenAI 或任意 OpenAI 兼容的 Chat Completions 接口。
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI 创建客户端。baseURL 为空时使用官方地址。
func NewOpenAI(model, apiKey, baseURL string, hc *http.Client) (*OpenAI, error) {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if hc != nil {
		cfg.HTTPClient = hc
	}
	return &OpenAI{client: openai.NewClientWithConfig(cfg), model: model}, nil
}

// GenerateContent 使用 OpenAI API 生成内容。
func (o *OpenAI) GenerateContent(ctx context.Context, req *models.GenerateContentRequest) (*models.GenerateContentResponse, error) {
	resp, err := o.client.CreateChatCompletion(ctx, o.toOpenAIRequest(req))
	if err != nil {
		return nil, modelErr(providerOpenAI, "chat completion", err)
	}
	if len(resp.Choices) == 0 {
		return nil, modelErr(providerOpenAI, "chat completion", errors.New("response has no choices"))
	}
	out := textResponse(resp.Choices[0].Message.Content, resp.Model, true)
	out.ResponseID = resp.ID
	return out, nil
}

// GenerateContentStream 使用 OpenAI API 以流式方式生成内容。
func (o *OpenAI) GenerateContentStream(ctx context.Context, req *models.GenerateContentRequest) (<-chan StreamResult, error) {
	openaiReq := o.toOpenAIRequest(req)
	openaiReq.Stream = true
	stream, err := o.client.CreateChatCompletionStream(ctx, openaiReq)
	if err != nil {
		return nil, modelErr(providerOpenAI, "chat completion stream", err)
	}

	ch := make(chan StreamResult)
	go func() {
		defer close(ch)
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				emit(ctx, ch, StreamResult{Response: textResponse("", o.model, true)})
				return
			}
			if err != nil {
				emit(ctx, ch, StreamResult{Err: modelErr(providerOpenAI, "chat completion stream", err)})
				return
			}
			if len(resp.Choices) == 0 || resp.Choices[0].Delta.Content == "" {
				continue
			}
			out := textResponse(resp.Choices[0].Delta.Content, resp.Model, false)
			out.ResponseID = resp.ID
			if !emit(ctx, ch, StreamResult{Response: out}) {
				return
			}
		}
	}()

	return ch, nil
}

// toOpenAIRequest 将内部请求格式转换为 OpenAI 格式。
func (o *OpenAI) toOpenAIRequest(req *models.GenerateContentRequest) openai.ChatCompletionRequest {
	system, turns := systemAndTurns(req)
	messages := make([]openai.ChatCompletionMessage, 0, len(turns)+1)
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	for _, c := range turns {
		messages = append(messages, openai.ChatCompletionMessage{Role: chatRole(c.Role), Content: c.Text()})
	}

	out := openai.ChatCompletionRequest{Model: o.model, Messages: messages}
	if req.Temperature != nil {
		out.Temperature = float32(*req.Temperature)
	}
	if len(req.ResponseSchema) > 0 {
		out.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}
	return out
}
