package api

import (
	"errors"
	"net/http"

	"student_mentor/backend/go/internal/mentor_service/service"
	"student_mentor/backend/go/internal/mentor_service/store"
	"student_mentor/backend/go/internal/models"

	"github.com/gin-gonic/gin"
)

// statusFor 把领域错误映射为 HTTP 状态码。
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrSummariesDisabled):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// fail 记录错误并返回 {"error": ...}。5xx 错误不向客户端暴露内部细节。
func fail(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError && status != http.StatusNotImplemented {
		msg = http.StatusText(status)
	}
	requestLogger(c).WithError(models.ErrorInfo{
		Message:    err.Error(),
		Type:       errorType(err),
		StatusCode: status,
	}).Warn("request failed")
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

func errorType(err error) string {
	if store.IsPersistence(err) {
		return string(models.ErrKindPersistence)
	}
	return ""
}
