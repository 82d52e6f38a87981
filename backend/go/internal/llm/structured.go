package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"student_mentor/backend/go/internal/models"

	"github.com/invopop/jsonschema"
)

// SchemaFor 反射出 v 对应的 JSON Schema（内联展开，不使用 $ref）。
// 匿名结构体没有定义名，不能使用 ExpandedStruct。
func SchemaFor(v any) (json.RawMessage, error) {
	r := &jsonschema.Reflector{DoNotReference: true, ExpandedStruct: namedStruct(v)}
	raw, err := json.Marshal(r.Reflect(v))
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return raw, nil
}

func namedStruct(v any) bool {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t != nil && t.Kind() == reflect.Struct && t.Name() != ""
}

// FormatInstructions 生成追加到系统提示词后的输出格式说明。
func FormatInstructions(schema json.RawMessage) string {
	return "Respond with a single JSON object and nothing else. " +
		"The object must conform to this JSON schema:\n" + string(schema)
}

// GenerateStructured 要求模型输出符合 out 类型结构的 JSON，并解析到 out。
// 模型调用失败返回 ModelError；输出无法解析返回 ParseError。
func GenerateStructured(ctx context.Context, m LLM, req *models.GenerateContentRequest, out any) error {
	r := *req
	if len(r.ResponseSchema) == 0 {
		schema, err := SchemaFor(out)
		if err != nil {
			return err
		}
		r.ResponseSchema = schema
	}
	if r.SystemInstruction != "" {
		r.SystemInstruction += "\n\n"
	}
	r.SystemInstruction += FormatInstructions(r.ResponseSchema)

	resp, err := m.GenerateContent(ctx, &r)
	if err != nil {
		return err
	}
	raw := resp.Text()
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), out); err != nil {
		return &ParseError{Raw: raw, Err: err}
	}
	return nil
}

// stripCodeFence 去掉部分模型习惯性包裹的 ```json ... ``` 代码块。
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
