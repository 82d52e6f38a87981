package models

import (
	"encoding/json"
	"strings"
	"time"
)

// SpeakerRole 定义了模型请求中消息发送者的角色。
type SpeakerRole string

const (
	SpeakerUser      SpeakerRole = "user"      // 用户角色。
	SpeakerAssistant SpeakerRole = "assistant" // 助手角色。
	SpeakerSystem    SpeakerRole = "system"    // 系统角色。
	SpeakerModel     SpeakerRole = "model"     // 模型角色 (Gemini 对助手的称呼)。
)

// SpeakerFor 把对话日志中的角色映射为模型请求中的角色。
func SpeakerFor(r Role) SpeakerRole {
	switch r {
	case RoleAssistant:
		return SpeakerAssistant
	case RoleSystem:
		return SpeakerSystem
	default:
		return SpeakerUser
	}
}

// Part 定义了消息的单个部分。
type Part struct {
	Text string `json:"text,omitempty"`
}

// Content 包含了构成单个消息的多个部分。
type Content struct {
	Parts []*Part     `json:"parts,omitempty"`
	Role  SpeakerRole `json:"role,omitempty"`
}

// NewTextContent 构造只含一段文本的消息。
func NewTextContent(role SpeakerRole, text string) Content {
	return Content{Role: role, Parts: []*Part{{Text: text}}}
}

// Text 拼接消息中所有文本部分。
func (c Content) Text() string {
	var sb strings.Builder
	for _, p := range c.Parts {
		if p != nil {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

// GenerateContentRequest 定义了生成内容的请求结构。
type GenerateContentRequest struct {
	SystemInstruction string          `json:"systemInstruction,omitempty"` // 系统提示词
	Content           []Content       `json:"content,omitempty"`           // 按时间顺序排列的对话内容
	Temperature       *float64        `json:"temperature,omitempty"`       // 采样温度，nil 表示使用模型默认值
	ResponseSchema    json.RawMessage `json:"responseSchema,omitempty"`    // 非空时要求模型输出符合该 JSON Schema 的 JSON
}

// WithTemperature 设置采样温度并返回请求本身。
func (r *GenerateContentRequest) WithTemperature(t float64) *GenerateContentRequest {
	r.Temperature = &t
	return r
}

// GenerateContentResponse 定义了生成内容的响应结构。
type GenerateContentResponse struct {
	Content      []Content `json:"content,omitempty"`      // 响应的内容列表。
	CreateTime   time.Time `json:"createTime,omitempty"`   // 响应创建时间。
	ResponseID   string    `json:"responseId,omitempty"`   // 响应ID。
	ModelVersion string    `json:"modelVersion,omitempty"` // 模型版本。
	Done         bool      `json:"done,omitempty"`         // 流式响应的最后一块。
}

// Text 拼接响应中的所有文本。
func (r *GenerateContentResponse) Text() string {
	if r == nil {
		return ""
	}
	var sb strings.Builder
	for _, c := range r.Content {
		sb.WriteString(c.Text())
	}
	return sb.String()
}
