package logger

import (
	"io"
	"os"

	"student_mentor/backend/go/internal/models"

	"github.com/sirupsen/logrus"
)

// Logger 是对 logrus 的封装，以提供更方便的结构化日志记录功能。
// 所有 With* 方法都返回新的 Logger，不会修改原有实例，可以安全地在多个 goroutine 间共享。
type Logger struct {
	entry *logrus.Entry
}

// Init 初始化全局的 logrus 配置。
// level: 设置日志级别 (e.g., logrus.InfoLevel, logrus.DebugLevel)。
func Init(level logrus.Level) {
	// 设置日志格式为 JSON，便于后续的日志采集和分析。
	logrus.SetFormatter(&logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})
	logrus.SetOutput(os.Stdout)
	logrus.SetLevel(level)
}

// ParseLevel 解析日志级别字符串，非法值返回错误。
func ParseLevel(level string) (logrus.Level, error) {
	return logrus.ParseLevel(level)
}

// New 创建一个新的 Logger 实例，并预设服务名、追踪ID与学生ID字段。
func New(serviceName, traceID, studentID string) *Logger {
	return &Logger{
		entry: logrus.WithFields(logrus.Fields{
			"service_name": serviceName,
			"trace_id":     traceID,
			"student_id":   studentID,
		}),
	}
}

// NewWithOutput 创建一个写入指定 io.Writer 的 Logger，主要用于测试。
func NewWithOutput(serviceName string, w io.Writer) *Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.JSONFormatter{})
	l.SetLevel(logrus.DebugLevel)
	return &Logger{entry: l.WithField("service_name", serviceName)}
}

// Discard 返回一个丢弃所有输出的 Logger。
func Discard() *Logger {
	return NewWithOutput("discard", io.Discard)
}

func (l *Logger) with(key string, value interface{}) *Logger {
	return &Logger{entry: l.entry.WithField(key, value)}
}

// WithTrace 返回带有新追踪ID的 Logger。
func (l *Logger) WithTrace(traceID string) *Logger {
	return l.with("trace_id", traceID)
}

// WithStudent 返回带有学生ID的 Logger。
func (l *Logger) WithStudent(studentID string) *Logger {
	return l.with("student_id", studentID)
}

// WithRequest 将请求信息添加到日志条目中。
func (l *Logger) WithRequest(req models.RequestInfo) *Logger {
	return l.with("request_info", req)
}

// WithError 将错误信息添加到日志条目中。
func (l *Logger) WithError(err models.ErrorInfo) *Logger {
	return l.with("error", err)
}

// WithErr 是 WithError 的简写，只记录错误消息。
func (l *Logger) WithErr(err error) *Logger {
	if err == nil {
		return l
	}
	return l.WithError(models.ErrorInfo{Message: err.Error()})
}

// WithPayload 将自定义的业务数据添加到日志条目中。
func (l *Logger) WithPayload(payload map[string]interface{}) *Logger {
	return l.with("payload", payload)
}

// Info 记录一条信息级别的日志。
func (l *Logger) Info(message string) {
	l.entry.Info(message)
}

// Warn 记录一条警告级别的日志。
func (l *Logger) Warn(message string) {
	l.entry.Warn(message)
}

// Error 记录一条错误级别的日志。
func (l *Logger) Error(message string) {
	l.entry.Error(message)
}

// Debug 记录一条调试级别的日志。
func (l *Logger) Debug(message string) {
	l.entry.Debug(message)
}

// Fatal 记录一条致命错误级别的日志，并终止程序。
func (l *Logger) Fatal(message string) {
	l.entry.Fatal(message)
}
