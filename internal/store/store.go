// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"fmt"

	"github.com/ashureev/lingua-tutor/internal/domain"
)

// Supported values for the STORE_DRIVER setting.
const (
	DriverSurrealDB = "surrealdb"
	DriverSQLite    = "sqlite"
	DriverMemory    = "memory"
)

// Repository defines the interface for persisting study plans, conversations and messages.
// Timestamps on written records are assigned by the store, not the caller.
type Repository interface {
	// SaveStudyPlan appends a study plan record and returns its ID.
	SaveStudyPlan(ctx context.Context, rec *domain.StudyPlanRecord) (string, error)

	// GetConversation retrieves a conversation by ID.
	// Returns nil, nil when no such conversation exists.
	GetConversation(ctx context.Context, id string) (*domain.Conversation, error)

	// CreateConversation inserts a conversation if absent and returns the stored record.
	// An empty conv.ID lets the store assign one. When a record with conv.ID already
	// exists it is returned unchanged.
	CreateConversation(ctx context.Context, conv *domain.Conversation) (*domain.Conversation, error)

	// RecentMessages returns up to limit messages of a conversation, newest first.
	RecentMessages(ctx context.Context, conversationID string, limit int) ([]domain.Message, error)

	// AddMessage appends a message. ID and Timestamp are filled in from the store.
	AddMessage(ctx context.Context, msg *domain.Message) error

	// RecordTurn atomically adds delta to the conversation's message count and
	// refreshes its last_activity and updated_at timestamps.
	RecordTurn(ctx context.Context, conversationID string, delta int) error

	// Ping verifies store connectivity and returns an error if it is unreachable.
	Ping(ctx context.Context) error

	// Close releases the underlying connection.
	Close() error
}

// Options selects and configures a Repository driver.
type Options struct {
	Driver  string
	DBPath  string
	Surreal SurrealConfig
}

// Open constructs the Repository named by opts.Driver.
func Open(ctx context.Context, opts Options) (Repository, error) {
	switch opts.Driver {
	case DriverSurrealDB:
		return NewSurreal(ctx, opts.Surreal)
	case DriverSQLite:
		return NewSQLite(opts.DBPath)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unsupported store driver: %q", opts.Driver)
	}
}
