package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/ashureev/lingua-tutor/internal/domain"
	"github.com/ashureev/lingua-tutor/internal/llm"
	"github.com/ashureev/lingua-tutor/internal/tutor"
)

const (
	msgInvalidPlanRequest = "Invalid request data. Please ensure all fields are provided."
	msgPlanFailed         = "Failed to generate study plan."
)

type studyPlanResponse struct {
	Success bool              `json:"success"`
	Plan    *domain.StudyPlan `json:"plan"`
}

// GenerateStudyPlan handles POST /generateStudyPlan.
func (h *Handler) GenerateStudyPlan(w http.ResponseWriter, r *http.Request) {
	body, err := h.readBody(w, r)
	if err != nil {
		slog.Warn("Rejected study plan request", "error", err)
		Error(w, http.StatusBadRequest, msgInvalidPlanRequest)
		return
	}

	req, err := tutor.DecodePlanRequest(body)
	if err != nil {
		slog.Warn("Rejected study plan request", "error", err)
		Error(w, http.StatusBadRequest, msgInvalidPlanRequest)
		return
	}

	plan, err := h.plans.Generate(r.Context(), req)
	if err != nil {
		if errors.Is(err, tutor.ErrInvalidInput) {
			Error(w, http.StatusBadRequest, msgInvalidPlanRequest)
			return
		}
		slog.Error("Study plan generation failed",
			"error", err,
			"user_id", req.UserID,
			"fatal", errors.Is(err, llm.ErrFatalAPI),
		)
		Error(w, http.StatusInternalServerError, msgPlanFailed)
		return
	}

	JSON(w, http.StatusOK, studyPlanResponse{Success: true, Plan: plan})
}
