// Package api provides HTTP handlers for the tutor API.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/lingua-tutor/internal/domain"
	"github.com/ashureev/lingua-tutor/internal/tutor"
)

// DefaultMaxBodyBytes caps request bodies when no limit is configured.
const DefaultMaxBodyBytes int64 = 1 << 20

// PlanGenerator produces study plans.
type PlanGenerator interface {
	Generate(ctx context.Context, req tutor.PlanRequest) (*domain.StudyPlan, error)
}

// ChatResponder answers chat turns.
type ChatResponder interface {
	Reply(ctx context.Context, req tutor.ChatRequest) (*tutor.ChatReply, error)
}

// Handler serves the tutor endpoints.
type Handler struct {
	plans        PlanGenerator
	chat         ChatResponder
	maxBodyBytes int64
}

// NewHandler creates a Handler. A non-positive maxBodyBytes selects DefaultMaxBodyBytes.
func NewHandler(plans PlanGenerator, chat ChatResponder, maxBodyBytes int64) *Handler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	return &Handler{plans: plans, chat: chat, maxBodyBytes: maxBodyBytes}
}

// RegisterRoutes registers the tutor routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/generateStudyPlan", h.GenerateStudyPlan)
	r.Post("/chat", h.Chat)
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// readBody reads at most h.maxBodyBytes of the request body.
func (h *Handler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", tutor.ErrInvalidInput, err)
	}
	return data, nil
}
