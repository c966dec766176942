package tutor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/ashureev/lingua-tutor/internal/domain"
	"github.com/ashureev/lingua-tutor/internal/llm"
	"github.com/ashureev/lingua-tutor/internal/prompt"
	"github.com/ashureev/lingua-tutor/internal/store"
	"github.com/ashureev/lingua-tutor/internal/transcript"
)

// HistoryLimit is the number of prior messages sent as context.
const HistoryLimit = 10

// ChatRequest is one learner turn.
type ChatRequest struct {
	Message        string               `json:"message"`
	ConversationID string               `json:"conversationId"`
	UserID         string               `json:"userId"`
	Language       string               `json:"language"`
	CoachingStyle  domain.CoachingStyle `json:"coachingStyle"`
	// IncludeCorrections defaults to true when nil.
	IncludeCorrections *bool `json:"includeCorrections"`
}

// Validate checks the required fields and applies defaults.
func (r *ChatRequest) Validate() error {
	if r.Message == "" || r.UserID == "" || r.Language == "" {
		return fmt.Errorf("%w: message, userId and language are required", ErrInvalidInput)
	}
	if r.CoachingStyle == "" {
		r.CoachingStyle = domain.DefaultCoachingStyle
	}
	return nil
}

func (r *ChatRequest) wantsCorrections() bool {
	return r.CoachingStyle == domain.StyleCorrective &&
		(r.IncludeCorrections == nil || *r.IncludeCorrections)
}

// ChatReply is the result of a completed turn.
type ChatReply struct {
	Reply          string
	ConversationID string
	MessageID      string
	Timestamp      time.Time
	// Corrections is nil when correction analysis did not run.
	Corrections []domain.Correction
}

// Coach runs tutoring conversations.
type Coach struct {
	llm        llm.Completer
	repo       store.Repository
	catalog    *prompt.Catalog
	transcript transcript.Recorder
	now        func() time.Time
	logger     *slog.Logger
}

// NewCoach creates a Coach. A nil recorder disables transcripts.
func NewCoach(completer llm.Completer, repo store.Repository, catalog *prompt.Catalog, rec transcript.Recorder, logger *slog.Logger) *Coach {
	if rec == nil {
		rec = transcript.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coach{
		llm:        completer,
		repo:       repo,
		catalog:    catalog,
		transcript: rec,
		now:        time.Now,
		logger:     logger,
	}
}

// Reply answers one learner message and records the turn.
func (c *Coach) Reply(ctx context.Context, req ChatRequest) (*ChatReply, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	conv, err := c.resolveConversation(ctx, req)
	if err != nil {
		return nil, err
	}

	recent, err := c.repo.RecentMessages(ctx, conv.ID, HistoryLimit)
	if err != nil {
		return nil, upstream("load history", err)
	}

	messages := make([]llm.Message, 0, len(recent)+2)
	messages = append(messages, llm.Message{
		Role:    llm.RoleSystem,
		Content: c.catalog.Persona(req.CoachingStyle, req.Language),
	})
	messages = append(messages, historyMessages(recent)...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: req.Message})

	start := time.Now()
	temp := c.catalog.Chat.Temperature
	reply, err := c.llm.Complete(ctx, messages, llm.Options{
		MaxTokens:   c.catalog.Chat.MaxTokens,
		Temperature: &temp,
	})
	if err != nil {
		return nil, upstream("complete chat", err)
	}

	userMsg := &domain.Message{
		ConversationID: conv.ID,
		UserID:         req.UserID,
		Content:        req.Message,
		Type:           domain.MessageTypeUser,
		Language:       req.Language,
	}
	if err := c.repo.AddMessage(ctx, userMsg); err != nil {
		return nil, upstream("save user message", err)
	}

	assistantMsg := &domain.Message{
		ConversationID: conv.ID,
		UserID:         req.UserID,
		Content:        reply,
		Type:           domain.MessageTypeAssistant,
		Language:       req.Language,
		CoachingStyle:  req.CoachingStyle,
	}
	if err := c.repo.AddMessage(ctx, assistantMsg); err != nil {
		return nil, upstream("save assistant message", err)
	}

	if err := c.repo.RecordTurn(ctx, conv.ID, 2); err != nil {
		return nil, upstream("update conversation", err)
	}

	c.logger.Info("chat turn completed",
		"user_id", req.UserID,
		"conversation_id", conv.ID,
		"coaching_style", req.CoachingStyle,
		"history", len(recent),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	c.recordTranscript(req, conv.ID, userMsg, assistantMsg)

	out := &ChatReply{
		Reply:          reply,
		ConversationID: conv.ID,
		MessageID:      assistantMsg.ID,
		Timestamp:      c.now(),
	}
	if req.wantsCorrections() {
		out.Corrections = c.corrections(ctx, req, conv.ID)
	}
	return out, nil
}

func (c *Coach) resolveConversation(ctx context.Context, req ChatRequest) (*domain.Conversation, error) {
	if req.ConversationID != "" {
		conv, err := c.repo.GetConversation(ctx, req.ConversationID)
		if err != nil {
			return nil, upstream("load conversation", err)
		}
		if conv != nil {
			return conv, nil
		}
	}

	conv, err := c.repo.CreateConversation(ctx, &domain.Conversation{
		ID:            req.ConversationID,
		UserID:        req.UserID,
		Language:      req.Language,
		CoachingStyle: req.CoachingStyle,
		MessageCount:  0,
	})
	if err != nil {
		return nil, upstream("create conversation", err)
	}
	c.logger.Info("conversation created", "conversation_id", conv.ID, "user_id", req.UserID)
	return conv, nil
}

// historyMessages converts newest-first records to chronological chat messages.
func historyMessages(recent []domain.Message) []llm.Message {
	ordered := slices.Clone(recent)
	slices.Reverse(ordered)

	out := make([]llm.Message, 0, len(ordered))
	for _, m := range ordered {
		role := llm.RoleAssistant
		if m.Type == domain.MessageTypeUser {
			role = llm.RoleUser
		}
		out = append(out, llm.Message{Role: role, Content: m.Content})
	}
	return out
}

// corrections runs the best-effort correction analysis. Any failure yields an empty list.
func (c *Coach) corrections(ctx context.Context, req ChatRequest, conversationID string) []domain.Correction {
	temp := c.catalog.Corrections.Temperature
	raw, err := c.llm.Complete(ctx, []llm.Message{
		{Role: llm.RoleUser, Content: c.catalog.CorrectionPrompt(req.Language, req.Message)},
	}, llm.Options{
		MaxTokens:   c.catalog.Corrections.MaxTokens,
		Temperature: &temp,
	})
	if err != nil {
		c.logger.Warn("correction analysis failed",
			"conversation_id", conversationID,
			"error", err,
		)
		return []domain.Correction{}
	}

	parsed, err := ParseCorrections(raw)
	if err != nil {
		c.logger.Warn("could not parse corrections",
			"conversation_id", conversationID,
			"error", err,
		)
		return []domain.Correction{}
	}
	return parsed
}

// ParseCorrections decodes a JSON array of corrections, tolerating a
// surrounding markdown code fence.
func ParseCorrections(raw string) ([]domain.Correction, error) {
	text := stripCodeFence(raw)

	var out []domain.Correction
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	if out == nil {
		out = []domain.Correction{}
	}
	return out, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func (c *Coach) recordTranscript(req ChatRequest, conversationID string, userMsg, assistantMsg *domain.Message) {
	meta := map[string]any{
		"language":       req.Language,
		"coaching_style": string(req.CoachingStyle),
	}
	c.transcript.Log(transcript.Event{
		Timestamp:      userMsg.Timestamp.UTC().Format(time.RFC3339Nano),
		UserID:         req.UserID,
		ConversationID: conversationID,
		Channel:        "chat_http",
		Direction:      "inbound",
		EventType:      "chat_user_message",
		ContentRaw:     userMsg.Content,
		Meta:           meta,
	})
	c.transcript.Log(transcript.Event{
		Timestamp:      assistantMsg.Timestamp.UTC().Format(time.RFC3339Nano),
		UserID:         req.UserID,
		ConversationID: conversationID,
		Channel:        "chat_http",
		Direction:      "outbound",
		EventType:      "chat_assistant_message",
		ContentRaw:     assistantMsg.Content,
		Meta:           meta,
	})
}
