package api

import (
	"context"
	"net/http"
	"strconv"

	"student_mentor/backend/go/internal/mentor_service/service"
	"student_mentor/backend/go/internal/models"

	"github.com/gin-gonic/gin"
)

// Mentor 是 Handler 依赖的业务接口，由 *service.MentorService 实现。
type Mentor interface {
	SignUp(ctx context.Context, req service.SignupRequest) (string, error)
	Login(ctx context.Context, email string) (service.Session, error)
	Student(ctx context.Context, id string) (*models.Student, error)
	UpdateProfile(ctx context.Context, id string, upd models.StudentUpdate) (*models.Student, error)
	Conversations(ctx context.Context, studentID string, limit int) ([]*models.Conversation, error)
	Facts(ctx context.Context, id string) (models.StudentFacts, error)
	FactEvents(ctx context.Context, id string, limit int) ([]models.FactEvent, error)
	History(ctx context.Context, studentID string) (*models.Conversation, error)
	RespondToStudent(ctx context.Context, studentID, message, conversationID string) (*service.Stream, error)
	Summarize(ctx context.Context, conversationID string) (string, error)
}

// Handler 封装了所有 API endpoint 的处理函数。
type Handler struct {
	mentor Mentor
}

// NewHandler 创建一个新的 Handler 实例。
func NewHandler(m Mentor) *Handler {
	return &Handler{mentor: m}
}

// SignupRequest 定义了注册请求的 JSON 结构。密码只为兼容旧客户端而接收，不会被保存。
type SignupRequest struct {
	Name       string `json:"name" binding:"required"`
	Email      string `json:"email" binding:"required,email"`
	University string `json:"university"`
	Program    string `json:"program"`
	Year       *int   `json:"year" binding:"omitempty,min=1,max=10"`
	Password   string `json:"password"`
}

// Signup 处理注册请求。
func (h *Handler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := h.mentor.SignUp(c.Request.Context(), service.SignupRequest{
		Name:       req.Name,
		Email:      req.Email,
		University: req.University,
		Program:    req.Program,
		Year:       req.Year,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"student_id": id})
}

// LoginRequest 定义了登录请求的 JSON 结构。
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password"`
}

// Login 按邮箱查找学生，返回学生 ID 与其对话 ID。
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess, err := h.mentor.Login(c.Request.Context(), req.Email)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// GetStudent 返回学生档案（含事实）。
func (h *Handler) GetStudent(c *gin.Context) {
	s, err := h.mentor.Student(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// UpdateStudentRequest 定义了修改档案请求的 JSON 结构，未出现的字段保持不变。
type UpdateStudentRequest struct {
	Name       *string `json:"name"`
	University *string `json:"university"`
	Program    *string `json:"program"`
	Year       *int    `json:"year" binding:"omitempty,min=1,max=10"`
}

// UpdateStudent 修改学生档案。
func (h *Handler) UpdateStudent(c *gin.Context) {
	var req UpdateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s, err := h.mentor.UpdateProfile(c.Request.Context(), c.Param("id"), models.StudentUpdate{
		Name:       req.Name,
		University: req.University,
		Program:    req.Program,
		Year:       req.Year,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// GetConversations 返回学生最近活跃的对话（不含消息），limit 默认 5，最大 50。
func (h *Handler) GetConversations(c *gin.Context) {
	limit, ok := queryLimit(c, 5, 50)
	if !ok {
		return
	}

	convs, err := h.mentor.Conversations(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": convs})
}

// GetFacts 返回学生当前的三类事实。
func (h *Handler) GetFacts(c *gin.Context) {
	facts, err := h.mentor.Facts(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, facts)
}

// GetFactEvents 返回最近的事实抽取记录，limit 默认 50，最大 500。
func (h *Handler) GetFactEvents(c *gin.Context) {
	limit, ok := queryLimit(c, 50, 500)
	if !ok {
		return
	}

	events, err := h.mentor.FactEvents(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

// queryLimit 解析 ?limit=，缺省为 def，超过 limitMax 时截断。非法值直接返回 400。
func queryLimit(c *gin.Context, def, limitMax int) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit 必须是正整数"})
		return 0, false
	}
	return min(n, limitMax), true
}

// GetConversation 返回学生的对话及其消息（不含系统消息）。
func (h *Handler) GetConversation(c *gin.Context) {
	conv, err := h.mentor.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversation_id": conv.ID, "messages": conv.Messages, "summary": conv.Summary})
}

// SendMessageRequest 定义了发送消息请求的 JSON 结构。
type SendMessageRequest struct {
	Message        string `json:"message" binding:"required"`
	ConversationID string `json:"conversation_id"`
}

// SendMessage 接收学生消息并以流的形式返回导师回复。
// 默认使用 SSE；?format=text 时返回纯文本片段，最后附带对话 ID 标记。
func (h *Handler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	stream, err := h.mentor.RespondToStudent(c.Request.Context(), c.Param("id"), req.Message, req.ConversationID)
	if err != nil {
		fail(c, err)
		return
	}

	if c.Query("format") == "text" {
		writeText(c, stream)
		return
	}
	writeSSE(c, stream)
}

// Summarize 为对话生成并保存摘要。
func (h *Handler) Summarize(c *gin.Context) {
	summary, err := h.mentor.Summarize(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

var _ Mentor = (*service.MentorService)(nil)
