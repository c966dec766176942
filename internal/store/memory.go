package store

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/ashureev/lingua-tutor/internal/domain"
	"github.com/google/uuid"
)

// MemoryStore implements Repository with in-process maps.
// Data does not survive a restart.
type MemoryStore struct {
	mu            sync.Mutex
	now           func() time.Time
	plans         []domain.StudyPlanRecord
	conversations map[string]domain.Conversation
	messages      map[string][]domain.Message
}

// NewMemory creates an empty in-memory repository.
func NewMemory() Repository {
	return newMemoryWithClock(time.Now)
}

func newMemoryWithClock(now func() time.Time) *MemoryStore {
	return &MemoryStore{
		now:           now,
		conversations: make(map[string]domain.Conversation),
		messages:      make(map[string][]domain.Message),
	}
}

// SaveStudyPlan appends a study plan record.
func (m *MemoryStore) SaveStudyPlan(_ context.Context, rec *domain.StudyPlanRecord) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec.ID = uuid.NewString()
	rec.CreatedAt = m.now()

	stored := *rec
	stored.Goals = slices.Clone(rec.Goals)
	m.plans = append(m.plans, stored)
	return rec.ID, nil
}

// GetConversation retrieves a conversation by ID.
func (m *MemoryStore) GetConversation(_ context.Context, id string) (*domain.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.conversations[id]
	if !ok {
		return nil, nil
	}
	return &conv, nil
}

// CreateConversation inserts a conversation if absent.
func (m *MemoryStore) CreateConversation(_ context.Context, conv *domain.Conversation) (*domain.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := conv.ID
	if id == "" {
		id = uuid.NewString()
	}
	if existing, ok := m.conversations[id]; ok {
		return &existing, nil
	}

	stored := *conv
	stored.ID = id
	stored.CreatedAt = m.now()
	stored.LastActivity = nil
	stored.UpdatedAt = nil
	m.conversations[id] = stored
	return &stored, nil
}

// RecentMessages returns up to limit messages, newest first.
func (m *MemoryStore) RecentMessages(_ context.Context, conversationID string, limit int) ([]domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := m.messages[conversationID]
	n := min(limit, len(all))
	out := make([]domain.Message, 0, max(n, 0))
	for i := len(all) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

// AddMessage appends a message.
func (m *MemoryStore) AddMessage(_ context.Context, msg *domain.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	msg.ID = uuid.NewString()
	msg.Timestamp = m.now()
	m.messages[msg.ConversationID] = append(m.messages[msg.ConversationID], *msg)
	return nil
}

// RecordTurn increments the message count and refreshes activity timestamps.
func (m *MemoryStore) RecordTurn(_ context.Context, conversationID string, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.conversations[conversationID]
	if !ok {
		return fmt.Errorf("conversation %s: %w", conversationID, ErrNotFound)
	}

	now := m.now()
	conv.MessageCount += delta
	conv.LastActivity = &now
	conv.UpdatedAt = &now
	m.conversations[conversationID] = conv
	return nil
}

// StudyPlans returns a copy of all stored plan records in insertion order.
func (m *MemoryStore) StudyPlans() []domain.StudyPlanRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.plans)
}

// Ping always succeeds.
func (m *MemoryStore) Ping(context.Context) error { return nil }

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }
