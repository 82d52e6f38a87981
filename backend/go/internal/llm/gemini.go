package llm

import (
	"context"
	"errors"

	"student_mentor/backend/go/internal/models"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const providerGemini = "gemini"

// Gemini 通过 generative-ai-go 调用 Gemini。每个请求新建一个会话，
// 历史由调用方完整提供，客户端本身不保存状态。
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini 使用 API 密钥创建 Gemini 客户端。
func NewGemini(ctx context.Context, model, apiKey string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, modelErr(providerGemini, "new client", err)
	}
	return &Gemini{client: client, model: model}, nil
}

// Close 释放底层连接。
func (g *Gemini) Close() error {
	return g.client.Close()
}

// GenerateContent 向 Gemini API 发送请求并返回完整响应。
func (g *Gemini) GenerateContent(ctx context.Context, req *models.GenerateContentRequest) (*models.GenerateContentResponse, error) {
	cs, last, err := g.session(req)
	if err != nil {
		return nil, err
	}
	resp, err := cs.SendMessage(ctx, last...)
	if err != nil {
		return nil, modelErr(providerGemini, "send message", err)
	}
	return fromGenaiResponse(resp, g.model, true), nil
}

// GenerateContentStream 向 Gemini API 发送请求并以流的形式返回增量。
func (g *Gemini) GenerateContentStream(ctx context.Context, req *models.GenerateContentRequest) (<-chan StreamResult, error) {
	cs, last, err := g.session(req)
	if err != nil {
		return nil, err
	}
	iter := cs.SendMessageStream(ctx, last...)

	ch := make(chan StreamResult)
	go func() {
		defer close(ch)
		for {
			resp, err := iter.Next()
			if errors.Is(err, iterator.Done) {
				emit(ctx, ch, StreamResult{Response: textResponse("", g.model, true)})
				return
			}
			if err != nil {
				emit(ctx, ch, StreamResult{Err: modelErr(providerGemini, "send message stream", err)})
				return
			}
			if !emit(ctx, ch, StreamResult{Response: fromGenaiResponse(resp, g.model, false)}) {
				return
			}
		}
	}()
	return ch, nil
}

// session 构造一次性的聊天会话：除最后一条外的消息作为历史，最后一条作为本轮输入。
func (g *Gemini) session(req *models.GenerateContentRequest) (*genai.ChatSession, []genai.Part, error) {
	system, turns := systemAndTurns(req)
	if len(turns) == 0 {
		return nil, nil, modelErr(providerGemini, "build request", errors.New("request has no content"))
	}

	m := g.client.GenerativeModel(g.model)
	if req.Temperature != nil {
		m.SetTemperature(float32(*req.Temperature))
	}
	if system != "" {
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}
	if len(req.ResponseSchema) > 0 {
		m.ResponseMIMEType = "application/json"
	}

	cs := m.StartChat()
	for _, c := range turns[:len(turns)-1] {
		cs.History = append(cs.History, &genai.Content{Role: geminiRole(c.Role), Parts: []genai.Part{genai.Text(c.Text())}})
	}
	return cs, []genai.Part{genai.Text(turns[len(turns)-1].Text())}, nil
}

func geminiRole(r models.SpeakerRole) string {
	if r == models.SpeakerAssistant || r == models.SpeakerModel {
		return "model"
	}
	return "user"
}

// fromGenaiResponse 只保留文本部分。
func fromGenaiResponse(resp *genai.GenerateContentResponse, model string, done bool) *models.GenerateContentResponse {
	var text string
	if resp != nil {
		for _, cand := range resp.Candidates {
			if cand.Content == nil {
				continue
			}
			for _, p := range cand.Content.Parts {
				if t, ok := p.(genai.Text); ok {
					text += string(t)
				}
			}
			break
		}
	}
	return textResponse(text, model, done)
}
