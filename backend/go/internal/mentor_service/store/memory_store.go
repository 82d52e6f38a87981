package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"student_mentor/backend/go/internal/models"

	"github.com/google/uuid"
)

// memoryDB backs the in-process store used by tests and the "memory"
// storage mode. All three views share one lock.
type memoryDB struct {
	mu            sync.RWMutex
	now           func() time.Time
	students      map[string]*models.Student
	emails        map[string]string
	conversations map[string]*models.Conversation
	canonical     map[string]string // student id -> conversation id
	events        []models.FactEvent
}

// NewMemoryStore returns an empty in-memory Store.
func NewMemoryStore() Store {
	return newMemoryStore(time.Now)
}

func newMemoryStore(now func() time.Time) Store {
	db := &memoryDB{
		now:           now,
		students:      make(map[string]*models.Student),
		emails:        make(map[string]string),
		conversations: make(map[string]*models.Conversation),
		canonical:     make(map[string]string),
	}
	return Store{
		Students:      (*memStudents)(db),
		Conversations: (*memConversations)(db),
		FactEvents:    (*memFactEvents)(db),
	}
}

type memStudents memoryDB

func (m *memStudents) Create(_ context.Context, s *models.Student) (string, error) {
	if err := validateNewStudent(s); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	email := models.NormalizeEmail(s.Email)
	if _, dup := m.emails[email]; dup {
		return "", conflict(email)
	}
	now := m.now()
	cp := copyStudent(s)
	cp.ID = uuid.NewString()
	cp.Email = email
	cp.Facts = models.StudentFacts{}
	cp.CreatedAt, cp.UpdatedAt = now, now

	m.students[cp.ID] = cp
	m.emails[email] = cp.ID
	return cp.ID, nil
}

func (m *memStudents) Get(_ context.Context, id string) (*models.Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.students[id]
	if !ok {
		return nil, notFound("student", id)
	}
	return copyStudent(s), nil
}

func (m *memStudents) GetByEmail(ctx context.Context, email string) (*models.Student, error) {
	m.mu.RLock()
	id, ok := m.emails[models.NormalizeEmail(email)]
	m.mu.RUnlock()
	if !ok {
		return nil, notFound("student with email", email)
	}
	return m.Get(ctx, id)
}

func (m *memStudents) Update(_ context.Context, id string, upd models.StudentUpdate) (*models.Student, error) {
	if err := validateUpdate(upd); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.students[id]
	if !ok {
		return nil, notFound("student", id)
	}
	cp := copyStudent(s)
	applyUpdate(cp, upd)
	cp.UpdatedAt = m.now()
	m.students[id] = cp
	return copyStudent(cp), nil
}

func (m *memStudents) Facts(_ context.Context, id string) (models.StudentFacts, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.students[id]
	if !ok {
		return models.StudentFacts{}, notFound("student", id)
	}
	return copyStudent(s).Facts, nil
}

func (m *memStudents) UpsertFact(_ context.Context, id string, category models.FactCategory, key string, entry models.FactEntry) error {
	if _, err := models.ParseFactCategory(string(category)); err != nil {
		return invalid("%v", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.students[id]
	if !ok {
		return notFound("student", id)
	}
	cp := copyStudent(s)
	cp.Facts = cp.Facts.With(category, key, entry)
	cp.UpdatedAt = m.now()
	m.students[id] = cp
	return nil
}

type memConversations memoryDB

func (m *memConversations) GetOrCreateForStudent(_ context.Context, studentID string) (*models.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.canonical[studentID]; ok {
		return copyConversation(m.conversations[id]), nil
	}
	c := models.NewConversation(uuid.NewString(), studentID, m.now())
	m.conversations[c.ID] = c
	m.canonical[studentID] = c.ID
	return copyConversation(c), nil
}

func (m *memConversations) Get(_ context.Context, id string) (*models.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.conversations[id]
	if !ok {
		return nil, notFound("conversation", id)
	}
	return copyConversation(c), nil
}

func (m *memConversations) AppendMessage(_ context.Context, id string, msg models.Message) error {
	if err := validateMessage(msg); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conversations[id]
	if !ok {
		return notFound("conversation", id)
	}
	c.Messages = append(c.Messages, msg)
	c.UpdatedAt = msg.Timestamp
	return nil
}

func (m *memConversations) Messages(ctx context.Context, id string) ([]models.Message, error) {
	c, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return c.Messages, nil
}

func (m *memConversations) Recent(_ context.Context, studentID string, limit int) ([]*models.Conversation, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.Conversation
	for _, c := range m.conversations {
		if c.StudentID == studentID {
			out = append(out, copyConversation(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memConversations) UpdateSummary(_ context.Context, id, summary string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conversations[id]
	if !ok {
		return notFound("conversation", id)
	}
	c.Summary = summary
	c.SummaryUpdatedAt = &at
	return nil
}

type memFactEvents memoryDB

func (m *memFactEvents) Append(_ context.Context, ev *models.FactEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	m.events = append(m.events, *ev)
	return nil
}

// ListByStudent returns the newest events first.
func (m *memFactEvents) ListByStudent(_ context.Context, studentID string, limit int) ([]models.FactEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.FactEvent
	for i := len(m.events) - 1; i >= 0; i-- {
		if m.events[i].StudentID != studentID {
			continue
		}
		out = append(out, m.events[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func applyUpdate(s *models.Student, upd models.StudentUpdate) {
	if upd.Name != nil {
		s.Name = *upd.Name
	}
	if upd.University != nil {
		s.University = *upd.University
	}
	if upd.Program != nil {
		s.Program = *upd.Program
	}
	if upd.Year != nil {
		y := *upd.Year
		s.Year = &y
	}
}

func copyStudent(s *models.Student) *models.Student {
	cp := *s
	if s.Year != nil {
		y := *s.Year
		cp.Year = &y
	}
	cp.Facts = models.StudentFacts{
		Academic: append(models.FactBucket(nil), s.Facts.Academic...),
		Career:   append(models.FactBucket(nil), s.Facts.Career...),
		Personal: append(models.FactBucket(nil), s.Facts.Personal...),
	}
	return &cp
}

func copyConversation(c *models.Conversation) *models.Conversation {
	cp := *c
	cp.Messages = append([]models.Message(nil), c.Messages...)
	if c.SummaryUpdatedAt != nil {
		t := *c.SummaryUpdatedAt
		cp.SummaryUpdatedAt = &t
	}
	return &cp
}
