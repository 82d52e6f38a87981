package api

import (
	"net/http"

	"student_mentor/backend/go/internal/mentor_service/service"
	"student_mentor/backend/go/internal/models"
	"student_mentor/backend/go/pkg/sentinel"

	"github.com/gin-gonic/gin"
)

// writeSSE 把事件写成 SSE。文本块的 data 是 JSON，保证开头的空格不会被 SSE 解析器吞掉。
// 客户端断开后服务层会丢弃剩余事件并关闭通道，这里的循环随之结束。
func writeSSE(c *gin.Context, stream *service.Stream) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	for ev := range stream.Events() {
		switch ev.Kind {
		case models.EventChunk:
			c.SSEvent(string(models.EventChunk), gin.H{"text": ev.Text})
		case models.EventEnd:
			c.SSEvent(string(models.EventEnd), gin.H{"conversation_id": ev.ConversationID})
		case models.EventError:
			c.SSEvent(string(models.EventError), gin.H{"kind": ev.ErrorKind, "message": ev.Message})
		}
		c.Writer.Flush()
	}
}

// writeText 写出纯文本片段，兼容只认识对话 ID 标记协议的旧客户端。
func writeText(c *gin.Context, stream *service.Stream) {
	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Header("Cache-Control", "no-cache")
	c.Status(http.StatusOK)

	for ev := range stream.Events() {
		frag := sentinel.ToFragment(ev)
		if frag == "" {
			continue
		}
		_, _ = c.Writer.WriteString(frag)
		c.Writer.Flush()
	}
}
