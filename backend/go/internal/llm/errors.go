package llm

import (
	"context"
	"errors"
	"fmt"
)

// ModelError 表示模型调用失败（网络、超时、服务端错误或熔断）。
type ModelError struct {
	Provider string
	Op       string
	Err      error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("llm %s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ModelError) Unwrap() error { return e.Err }

// ParseError 表示模型输出不是符合约定结构的 JSON。
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("llm output does not match schema: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsModelError 判断 err 是否为模型调用失败。
func IsModelError(err error) bool {
	var me *ModelError
	return errors.As(err, &me)
}

// IsParseError 判断 err 是否为结构化输出解析失败。
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

func modelErr(provider, op string, err error) error {
	if err == nil {
		return nil
	}
	return &ModelError{Provider: provider, Op: op, Err: err}
}

func countsAsFailure(err error) bool {
	return err != nil && !errors.Is(err, context.Canceled)
}
