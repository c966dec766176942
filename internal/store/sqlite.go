package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ashureev/lingua-tutor/internal/domain"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// nowMillisSQL evaluates to the database clock in Unix milliseconds.
const nowMillisSQL = `CAST(ROUND((julianday('now') - 2440587.5) * 86400000) AS INTEGER)`

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS study_plans (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		language TEXT NOT NULL,
		level TEXT NOT NULL,
		goals_json TEXT NOT NULL,
		study_plan TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_study_plans_user ON study_plans(user_id, created_at);

	CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		language TEXT NOT NULL,
		coaching_style TEXT NOT NULL,
		message_count INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		last_activity INTEGER,
		updated_at INTEGER
	);

	CREATE TABLE IF NOT EXISTS messages (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		conversation_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		content TEXT NOT NULL,
		type TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		language TEXT NOT NULL,
		coaching_style TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, timestamp);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// SaveStudyPlan appends a study plan record.
func (s *SQLiteStore) SaveStudyPlan(ctx context.Context, rec *domain.StudyPlanRecord) (string, error) {
	goals := rec.Goals
	if goals == nil {
		goals = []string{}
	}
	goalsJSON, err := json.Marshal(goals)
	if err != nil {
		return "", fmt.Errorf("marshal goals: %w", err)
	}

	id := uuid.NewString()
	query := `
	INSERT INTO study_plans (id, user_id, language, level, goals_json, study_plan, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ` + nowMillisSQL + `)
	RETURNING created_at`

	var createdAt int64
	err = s.db.QueryRowContext(ctx, query,
		id, rec.UserID, rec.Language, rec.Level, string(goalsJSON), rec.StudyPlan,
	).Scan(&createdAt)
	if err != nil {
		return "", fmt.Errorf("insert study plan: %w", wrapSQLiteError(err))
	}

	rec.ID = id
	rec.CreatedAt = time.UnixMilli(createdAt)
	return id, nil
}

// GetConversation retrieves a conversation by ID.
func (s *SQLiteStore) GetConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	query := `
		SELECT id, user_id, language, coaching_style, message_count,
		       created_at, last_activity, updated_at
		FROM conversations WHERE id = ?`

	row := s.db.QueryRowContext(ctx, query, id)

	var conv domain.Conversation
	var style string
	var createdAt int64
	var lastActivity, updatedAt sql.NullInt64

	err := row.Scan(
		&conv.ID, &conv.UserID, &conv.Language, &style, &conv.MessageCount,
		&createdAt, &lastActivity, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan conversation row: %w", err)
	}

	conv.CoachingStyle = domain.CoachingStyle(style)
	conv.CreatedAt = time.UnixMilli(createdAt)
	conv.LastActivity = nullMillis(lastActivity)
	conv.UpdatedAt = nullMillis(updatedAt)

	return &conv, nil
}

// CreateConversation inserts a conversation if absent.
func (s *SQLiteStore) CreateConversation(ctx context.Context, conv *domain.Conversation) (*domain.Conversation, error) {
	id := conv.ID
	if id == "" {
		id = uuid.NewString()
	}

	query := `
	INSERT INTO conversations (id, user_id, language, coaching_style, message_count, created_at)
	VALUES (?, ?, ?, ?, ?, ` + nowMillisSQL + `)
	ON CONFLICT(id) DO NOTHING`

	result, err := s.db.ExecContext(ctx, query,
		id, conv.UserID, conv.Language, string(conv.CoachingStyle), conv.MessageCount,
	)
	if err != nil {
		return nil, fmt.Errorf("insert conversation: %w", wrapSQLiteError(err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		slog.Warn("CreateConversation found existing record", "conversation_id", id)
	}

	stored, err := s.GetConversation(ctx, id)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, fmt.Errorf("conversation %s: %w", id, ErrNotFound)
	}
	return stored, nil
}

// RecentMessages returns up to limit messages, newest first.
func (s *SQLiteStore) RecentMessages(ctx context.Context, conversationID string, limit int) ([]domain.Message, error) {
	query := `
		SELECT id, conversation_id, user_id, content, type, timestamp, language, coaching_style
		FROM messages WHERE conversation_id = ?
		ORDER BY timestamp DESC, seq DESC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent messages: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close recent messages rows", "error", closeErr)
		}
	}()

	messages := make([]domain.Message, 0, limit)
	for rows.Next() {
		var msg domain.Message
		var msgType string
		var ts int64
		var style sql.NullString

		if err := rows.Scan(
			&msg.ID, &msg.ConversationID, &msg.UserID, &msg.Content,
			&msgType, &ts, &msg.Language, &style,
		); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}

		msg.Type = domain.MessageType(msgType)
		msg.Timestamp = time.UnixMilli(ts)
		msg.CoachingStyle = domain.CoachingStyle(style.String)
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	return messages, nil
}

// AddMessage appends a message.
func (s *SQLiteStore) AddMessage(ctx context.Context, msg *domain.Message) error {
	id := uuid.NewString()
	query := `
	INSERT INTO messages (id, conversation_id, user_id, content, type, timestamp, language, coaching_style)
	VALUES (?, ?, ?, ?, ?, ` + nowMillisSQL + `, ?, ?)
	RETURNING timestamp`

	var style interface{}
	if msg.CoachingStyle != "" {
		style = string(msg.CoachingStyle)
	}

	var ts int64
	err := s.db.QueryRowContext(ctx, query,
		id, msg.ConversationID, msg.UserID, msg.Content, string(msg.Type), msg.Language, style,
	).Scan(&ts)
	if err != nil {
		return fmt.Errorf("insert message: %w", wrapSQLiteError(err))
	}

	msg.ID = id
	msg.Timestamp = time.UnixMilli(ts)
	return nil
}

// RecordTurn increments the message count and refreshes activity timestamps.
func (s *SQLiteStore) RecordTurn(ctx context.Context, conversationID string, delta int) error {
	query := `UPDATE conversations SET
		message_count = message_count + ?,
		last_activity = ` + nowMillisSQL + `,
		updated_at = ` + nowMillisSQL + `
	WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query, delta, conversationID)
	if err != nil {
		return fmt.Errorf("update conversation: %w", wrapSQLiteError(err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		slog.Warn("RecordTurn affected 0 rows", "conversation_id", conversationID)
		return fmt.Errorf("conversation %s: %w", conversationID, ErrNotFound)
	}

	return nil
}

func nullMillis(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.UnixMilli(v.Int64)
	return &t
}
