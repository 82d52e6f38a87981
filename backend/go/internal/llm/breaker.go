package llm

import (
	"context"
	"errors"
	"io"

	"student_mentor/backend/go/internal/models"
	"student_mentor/backend/go/pkg/circuitbreaker"
)

const providerBreaker = "circuit-breaker"

type breakerLLM struct {
	inner LLM
	cb    circuitbreaker.CircuitBreaker
}

// WithCircuitBreaker 用熔断器包装模型客户端。熔断打开时直接返回 ModelError，
// 流式调用的结果在通道结束时才上报给熔断器。
func WithCircuitBreaker(inner LLM, cb circuitbreaker.CircuitBreaker) LLM {
	return &breakerLLM{inner: inner, cb: cb}
}

// Close 关闭被包装的客户端（如果它持有连接）。
func (b *breakerLLM) Close() error {
	if c, ok := b.inner.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (b *breakerLLM) GenerateContent(ctx context.Context, req *models.GenerateContentRequest) (*models.GenerateContentResponse, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		return b.inner.GenerateContent(ctx, req)
	})
	if err != nil {
		return nil, openErr(err)
	}
	return res.(*models.GenerateContentResponse), nil
}

func (b *breakerLLM) GenerateContentStream(ctx context.Context, req *models.GenerateContentRequest) (<-chan StreamResult, error) {
	if err := b.cb.Allow(); err != nil {
		return nil, openErr(err)
	}
	in, err := b.inner.GenerateContentStream(ctx, req)
	if err != nil {
		b.cb.Report(err)
		return nil, err
	}

	out := make(chan StreamResult)
	go func() {
		defer close(out)
		var streamErr error
		defer func() { b.cb.Report(streamErr) }()

		for r := range in {
			if r.Err != nil {
				streamErr = r.Err
			}
			if !emit(ctx, out, r) {
				streamErr = ctx.Err()
				// 继续排空，让上游 goroutine 能够退出
				for range in {
				}
				return
			}
		}
	}()
	return out, nil
}

func openErr(err error) error {
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		return modelErr(providerBreaker, "call", err)
	}
	return err
}
