package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ashureev/lingua-tutor/internal/domain"
	"github.com/ashureev/lingua-tutor/internal/llm"
	"github.com/ashureev/lingua-tutor/internal/tutor"
)

const (
	msgMissingChatFields = "Missing required fields: message, userId, language"
	msgChatFailed        = "Failed to generate chat response."
)

type chatResponse struct {
	Reply          string              `json:"reply"`
	ConversationID string              `json:"conversationId"`
	MessageID      string              `json:"messageId"`
	Timestamp      string              `json:"timestamp"`
	Corrections    []domain.Correction `json:"corrections,omitzero"`
}

type chatErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}

// Chat handles POST /chat.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	body, err := h.readBody(w, r)
	if err != nil {
		slog.Warn("Rejected chat request", "error", err)
		Error(w, http.StatusBadRequest, msgMissingChatFields)
		return
	}

	var req tutor.ChatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		slog.Warn("Rejected chat request", "error", err)
		Error(w, http.StatusBadRequest, msgMissingChatFields)
		return
	}

	reply, err := h.chat.Reply(r.Context(), req)
	if err != nil {
		if errors.Is(err, tutor.ErrInvalidInput) {
			Error(w, http.StatusBadRequest, msgMissingChatFields)
			return
		}

		details := err.Error()
		var upErr *tutor.UpstreamError
		if errors.As(err, &upErr) {
			details = upErr.Err.Error()
		}
		slog.Error("Chat turn failed",
			"error", err,
			"user_id", req.UserID,
			"conversation_id", req.ConversationID,
			"fatal", errors.Is(err, llm.ErrFatalAPI),
		)
		JSON(w, http.StatusInternalServerError, chatErrorResponse{Error: msgChatFailed, Details: details})
		return
	}

	JSON(w, http.StatusOK, chatResponse{
		Reply:          reply.Reply,
		ConversationID: reply.ConversationID,
		MessageID:      reply.MessageID,
		Timestamp:      reply.Timestamp.UTC().Format(tutor.TimestampFormat),
		Corrections:    reply.Corrections,
	})
}

