package store

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ashureev/lingua-tutor/internal/domain"
	"github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/contrib/rews"
	"github.com/surrealdb/surrealdb.go/pkg/connection"
	"github.com/surrealdb/surrealdb.go/pkg/connection/gorillaws"
	"github.com/surrealdb/surrealdb.go/pkg/logger"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
	"github.com/surrealdb/surrealdb.go/surrealcbor"
)

func init() {
	// WebSocket upgrade fails when ALPN negotiates HTTP/2.
	gorillaws.DefaultDialer.TLSClientConfig = &tls.Config{
		NextProtos: []string{"http/1.1"},
	}
}

const surrealSchema = `
	DEFINE TABLE IF NOT EXISTS study_plan SCHEMAFULL;
	DEFINE FIELD IF NOT EXISTS user_id ON study_plan TYPE string;
	DEFINE FIELD IF NOT EXISTS language ON study_plan TYPE string;
	DEFINE FIELD IF NOT EXISTS level ON study_plan TYPE string;
	DEFINE FIELD IF NOT EXISTS goals ON study_plan TYPE array<string>;
	DEFINE FIELD IF NOT EXISTS study_plan ON study_plan TYPE string;
	DEFINE FIELD IF NOT EXISTS created_at ON study_plan TYPE datetime DEFAULT time::now();
	DEFINE INDEX IF NOT EXISTS study_plan_user ON study_plan FIELDS user_id;

	DEFINE TABLE IF NOT EXISTS conversation SCHEMAFULL;
	DEFINE FIELD IF NOT EXISTS user_id ON conversation TYPE string;
	DEFINE FIELD IF NOT EXISTS language ON conversation TYPE string;
	DEFINE FIELD IF NOT EXISTS coaching_style ON conversation TYPE string;
	DEFINE FIELD IF NOT EXISTS message_count ON conversation TYPE int DEFAULT 0;
	DEFINE FIELD IF NOT EXISTS created_at ON conversation TYPE datetime DEFAULT time::now();
	DEFINE FIELD IF NOT EXISTS last_activity ON conversation TYPE option<datetime>;
	DEFINE FIELD IF NOT EXISTS updated_at ON conversation TYPE option<datetime>;

	DEFINE TABLE IF NOT EXISTS message SCHEMAFULL;
	DEFINE FIELD IF NOT EXISTS conversation_id ON message TYPE string;
	DEFINE FIELD IF NOT EXISTS user_id ON message TYPE string;
	DEFINE FIELD IF NOT EXISTS content ON message TYPE string;
	DEFINE FIELD IF NOT EXISTS type ON message TYPE string;
	DEFINE FIELD IF NOT EXISTS timestamp ON message TYPE datetime DEFAULT time::now();
	DEFINE FIELD IF NOT EXISTS language ON message TYPE string;
	DEFINE FIELD IF NOT EXISTS coaching_style ON message TYPE option<string>;
	DEFINE INDEX IF NOT EXISTS message_conversation ON message FIELDS conversation_id, timestamp;
`

// SurrealConfig holds SurrealDB connection configuration.
type SurrealConfig struct {
	URL       string
	Namespace string
	Database  string
	Username  string
	Password  string
	AuthLevel string // "root" or "database"
}

// SurrealStore implements Repository on SurrealDB over an auto-reconnecting WebSocket.
type SurrealStore struct {
	conn   *rews.Connection[*gorillaws.Connection]
	db     *surrealdb.DB
	logger logger.Logger
}

type planRow struct {
	ID        surrealmodels.RecordID `json:"id"`
	CreatedAt time.Time              `json:"created_at"`
}

type conversationRow struct {
	ID            surrealmodels.RecordID `json:"id"`
	UserID        string                 `json:"user_id"`
	Language      string                 `json:"language"`
	CoachingStyle string                 `json:"coaching_style"`
	MessageCount  int                    `json:"message_count"`
	CreatedAt     time.Time              `json:"created_at"`
	LastActivity  *time.Time             `json:"last_activity,omitempty"`
	UpdatedAt     *time.Time             `json:"updated_at,omitempty"`
}

type messageRow struct {
	ID             surrealmodels.RecordID `json:"id"`
	ConversationID string                 `json:"conversation_id"`
	UserID         string                 `json:"user_id"`
	Content        string                 `json:"content"`
	Type           string                 `json:"type"`
	Timestamp      time.Time              `json:"timestamp"`
	Language       string                 `json:"language"`
	CoachingStyle  *string                `json:"coaching_style,omitempty"`
}

// NewSurreal connects to SurrealDB, signs in, selects the namespace and applies the schema.
func NewSurreal(ctx context.Context, cfg SurrealConfig) (Repository, error) {
	sdkLogger := logger.New(slog.Default().Handler())
	codec := surrealcbor.New()

	// gorillaws appends /rpc itself.
	baseURL := strings.TrimSuffix(cfg.URL, "/rpc")

	conn := rews.New(
		func(ctx context.Context) (*gorillaws.Connection, error) {
			return gorillaws.New(&connection.Config{
				BaseURL:     baseURL,
				Marshaler:   codec,
				Unmarshaler: codec,
				Logger:      sdkLogger,
			}), nil
		},
		5*time.Second,
		codec,
		sdkLogger,
	)

	retryer := rews.NewExponentialBackoffRetryer()
	retryer.InitialDelay = 1 * time.Second
	retryer.MaxDelay = 30 * time.Second
	retryer.Multiplier = 2.0
	retryer.MaxRetries = 10
	conn.Retryer = retryer

	sdkLogger.Info("connecting to SurrealDB", "url", cfg.URL)
	if err := conn.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	db, err := surrealdb.FromConnection(ctx, conn)
	if err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("from connection: %w", err)
	}

	auth := surrealdb.Auth{Username: cfg.Username, Password: cfg.Password}
	if cfg.AuthLevel == "database" {
		auth.Namespace = cfg.Namespace
		auth.Database = cfg.Database
	}
	if _, err := db.SignIn(ctx, auth); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("signin: %w", err)
	}

	if err := db.Use(ctx, cfg.Namespace, cfg.Database); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("use: %w", err)
	}

	s := &SurrealStore{conn: conn, db: db, logger: sdkLogger}
	if _, err := surrealdb.Query[any](ctx, db, surrealSchema, nil); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("init schema: %w", err)
	}

	sdkLogger.Info("SurrealDB connection established", "namespace", cfg.Namespace, "database", cfg.Database)
	return s, nil
}

// SaveStudyPlan appends a study plan record.
func (s *SurrealStore) SaveStudyPlan(ctx context.Context, rec *domain.StudyPlanRecord) (string, error) {
	goals := rec.Goals
	if goals == nil {
		goals = []string{}
	}

	results, err := surrealdb.Query[[]planRow](ctx, s.db, `
		CREATE study_plan CONTENT {
			user_id: $user_id,
			language: $language,
			level: $level,
			goals: $goals,
			study_plan: $study_plan
		} RETURN id, created_at
	`, map[string]any{
		"user_id":    rec.UserID,
		"language":   rec.Language,
		"level":      rec.Level,
		"goals":      goals,
		"study_plan": rec.StudyPlan,
	})
	if err != nil {
		return "", fmt.Errorf("create study plan: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return "", fmt.Errorf("create study plan: no result returned")
	}

	row := (*results)[0].Result[0]
	id, err := recordIDString(row.ID)
	if err != nil {
		return "", fmt.Errorf("create study plan: %w", err)
	}
	rec.ID = id
	rec.CreatedAt = row.CreatedAt
	return id, nil
}

// GetConversation retrieves a conversation by ID. Returns nil, nil if not found.
func (s *SurrealStore) GetConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	results, err := surrealdb.Query[[]conversationRow](ctx, s.db, `
		SELECT * FROM type::record("conversation", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return (*results)[0].Result[0].toDomain()
}

// CreateConversation inserts a conversation if absent.
func (s *SurrealStore) CreateConversation(ctx context.Context, conv *domain.Conversation) (*domain.Conversation, error) {
	vars := map[string]any{
		"user_id":        conv.UserID,
		"language":       conv.Language,
		"coaching_style": string(conv.CoachingStyle),
		"message_count":  conv.MessageCount,
	}
	target := "conversation"
	if conv.ID != "" {
		target = `type::record("conversation", $id)`
		vars["id"] = conv.ID
	}

	results, err := surrealdb.Query[[]conversationRow](ctx, s.db, `
		CREATE `+target+` CONTENT {
			user_id: $user_id,
			language: $language,
			coaching_style: $coaching_style,
			message_count: $message_count
		}
	`, vars)
	if err != nil {
		err = wrapQueryError(err)
		if conv.ID != "" && errors.Is(err, ErrAlreadyExists) {
			s.logger.Warn("conversation already exists, returning stored record", "conversation_id", conv.ID)
			return s.GetConversation(ctx, conv.ID)
		}
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("create conversation: no result returned")
	}
	return (*results)[0].Result[0].toDomain()
}

// RecentMessages returns up to limit messages, newest first.
func (s *SurrealStore) RecentMessages(ctx context.Context, conversationID string, limit int) ([]domain.Message, error) {
	results, err := surrealdb.Query[[]messageRow](ctx, s.db, `
		SELECT * FROM message
		WHERE conversation_id = $cid
		ORDER BY timestamp DESC
		LIMIT $limit
	`, map[string]any{"cid": conversationID, "limit": limit})
	if err != nil {
		return nil, fmt.Errorf("recent messages: %w", err)
	}

	if results == nil || len(*results) == 0 {
		return []domain.Message{}, nil
	}

	rows := (*results)[0].Result
	messages := make([]domain.Message, 0, len(rows))
	for _, row := range rows {
		msg, err := row.toDomain()
		if err != nil {
			return nil, fmt.Errorf("recent messages: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// AddMessage appends a message.
func (s *SurrealStore) AddMessage(ctx context.Context, msg *domain.Message) error {
	vars := map[string]any{
		"conversation_id": msg.ConversationID,
		"user_id":         msg.UserID,
		"content":         msg.Content,
		"type":            string(msg.Type),
		"language":        msg.Language,
	}
	styleClause := ""
	if msg.CoachingStyle != "" {
		styleClause = ", coaching_style: $coaching_style"
		vars["coaching_style"] = string(msg.CoachingStyle)
	}

	results, err := surrealdb.Query[[]messageRow](ctx, s.db, `
		CREATE message CONTENT {
			conversation_id: $conversation_id,
			user_id: $user_id,
			content: $content,
			type: $type,
			language: $language`+styleClause+`
		}
	`, vars)
	if err != nil {
		return fmt.Errorf("create message: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return fmt.Errorf("create message: no result returned")
	}

	row := (*results)[0].Result[0]
	id, err := recordIDString(row.ID)
	if err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	msg.ID = id
	msg.Timestamp = row.Timestamp
	return nil
}

// RecordTurn increments the message count and refreshes activity timestamps.
func (s *SurrealStore) RecordTurn(ctx context.Context, conversationID string, delta int) error {
	results, err := surrealdb.Query[[]conversationRow](ctx, s.db, `
		UPDATE type::record("conversation", $id) SET
			message_count += $delta,
			last_activity = time::now(),
			updated_at = time::now()
		RETURN AFTER
	`, map[string]any{"id": conversationID, "delta": delta})
	if err != nil {
		return fmt.Errorf("record turn: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return fmt.Errorf("conversation %s: %w", conversationID, ErrNotFound)
	}
	return nil
}

// Ping issues a trivial query.
func (s *SurrealStore) Ping(ctx context.Context) error {
	if _, err := surrealdb.Query[any](ctx, s.db, "RETURN 1", nil); err != nil {
		return fmt.Errorf("ping surrealdb: %w", err)
	}
	return nil
}

// Close closes the SurrealDB connection.
func (s *SurrealStore) Close() error {
	s.logger.Info("closing SurrealDB connection")
	return s.conn.Close(context.Background())
}

func (r conversationRow) toDomain() (*domain.Conversation, error) {
	id, err := recordIDString(r.ID)
	if err != nil {
		return nil, err
	}
	return &domain.Conversation{
		ID:            id,
		UserID:        r.UserID,
		Language:      r.Language,
		CoachingStyle: domain.CoachingStyle(r.CoachingStyle),
		MessageCount:  r.MessageCount,
		CreatedAt:     r.CreatedAt,
		LastActivity:  r.LastActivity,
		UpdatedAt:     r.UpdatedAt,
	}, nil
}

func (r messageRow) toDomain() (domain.Message, error) {
	id, err := recordIDString(r.ID)
	if err != nil {
		return domain.Message{}, err
	}
	msg := domain.Message{
		ID:             id,
		ConversationID: r.ConversationID,
		UserID:         r.UserID,
		Content:        r.Content,
		Type:           domain.MessageType(r.Type),
		Timestamp:      r.Timestamp,
		Language:       r.Language,
	}
	if r.CoachingStyle != nil {
		msg.CoachingStyle = domain.CoachingStyle(*r.CoachingStyle)
	}
	return msg, nil
}

// recordIDString extracts the string key of a SurrealDB record ID.
func recordIDString(id surrealmodels.RecordID) (string, error) {
	s, ok := id.ID.(string)
	if !ok {
		return "", fmt.Errorf("unexpected ID type: %T (expected string)", id.ID)
	}
	return s, nil
}
