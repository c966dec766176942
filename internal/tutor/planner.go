// Package tutor implements study plan generation and tutoring conversations.
package tutor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/ashureev/lingua-tutor/internal/domain"
	"github.com/ashureev/lingua-tutor/internal/llm"
	"github.com/ashureev/lingua-tutor/internal/prompt"
	"github.com/ashureev/lingua-tutor/internal/store"
)

// Plan shape.
const (
	PlanWeeks          = 2
	DaysPerWeek        = 7
	PlanTimeCommitment = 30 // minutes per day
)

// TimestampFormat is ISO-8601 with millisecond precision.
const TimestampFormat = "2006-01-02T15:04:05.000Z07:00"

// Request defaults.
const (
	DefaultLanguage = "Spanish"
	DefaultLevel    = "Beginner"
	DefaultUserID   = "anonymous"
	DefaultGoal     = "General learning"
)

// PlanRequest holds the parameters of a study plan.
type PlanRequest struct {
	Language string
	Level    string
	Goals    []string
	UserID   string
}

// DefaultPlanRequest returns a request with every field at its default.
func DefaultPlanRequest() PlanRequest {
	return PlanRequest{
		Language: DefaultLanguage,
		Level:    DefaultLevel,
		Goals:    []string{DefaultGoal},
		UserID:   DefaultUserID,
	}
}

// DecodePlanRequest parses a JSON body. Absent fields take their defaults;
// present fields must have the right type.
func DecodePlanRequest(data []byte) (PlanRequest, error) {
	req := DefaultPlanRequest()

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return req, fmt.Errorf("%w: decode body: %v", ErrInvalidInput, err)
	}
	if fields == nil {
		return req, fmt.Errorf("%w: body must be a JSON object", ErrInvalidInput)
	}

	if raw, ok := fields["language"]; ok {
		if err := decodeString(raw, &req.Language); err != nil {
			return req, fmt.Errorf("%w: language: %v", ErrInvalidInput, err)
		}
	}
	if raw, ok := fields["level"]; ok {
		if err := decodeString(raw, &req.Level); err != nil {
			return req, fmt.Errorf("%w: level: %v", ErrInvalidInput, err)
		}
	}
	if raw, ok := fields["goals"]; ok {
		if isNull(raw) {
			return req, fmt.Errorf("%w: goals must be an array", ErrInvalidInput)
		}
		var goals []string
		if err := json.Unmarshal(raw, &goals); err != nil {
			return req, fmt.Errorf("%w: goals must be an array of strings", ErrInvalidInput)
		}
		req.Goals = goals
	}
	if raw, ok := fields["userId"]; ok {
		var userID string
		if err := decodeString(raw, &userID); err != nil {
			return req, fmt.Errorf("%w: userId: %v", ErrInvalidInput, err)
		}
		if userID != "" {
			req.UserID = userID
		}
	}

	return req, req.Validate()
}

// Validate checks that language and level are set and goals is non-nil.
func (r PlanRequest) Validate() error {
	if r.Language == "" {
		return fmt.Errorf("%w: language is required", ErrInvalidInput)
	}
	if r.Level == "" {
		return fmt.Errorf("%w: level is required", ErrInvalidInput)
	}
	if r.Goals == nil {
		return fmt.Errorf("%w: goals is required", ErrInvalidInput)
	}
	return nil
}

func decodeString(raw json.RawMessage, dst *string) error {
	if isNull(raw) {
		*dst = ""
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return errors.New("must be a string")
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// Planner generates study plans.
type Planner struct {
	llm     llm.Completer
	repo    store.Repository
	catalog *prompt.Catalog
	now     func() time.Time
	logger  *slog.Logger
}

// NewPlanner creates a Planner.
func NewPlanner(completer llm.Completer, repo store.Repository, catalog *prompt.Catalog, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{
		llm:     completer,
		repo:    repo,
		catalog: catalog,
		now:     time.Now,
		logger:  logger,
	}
}

// Generate asks the model for a plan, stores the exchange and returns the structured plan.
func (p *Planner) Generate(ctx context.Context, req PlanRequest) (*domain.StudyPlan, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	content, err := p.llm.Complete(ctx, []llm.Message{
		{Role: llm.RoleUser, Content: p.catalog.PlanPrompt(req.Language, req.Level, req.Goals)},
	}, llm.Options{MaxTokens: p.catalog.Plan.MaxTokens})
	if err != nil {
		return nil, upstream("complete study plan", err)
	}

	planID, err := p.repo.SaveStudyPlan(ctx, &domain.StudyPlanRecord{
		UserID:    req.UserID,
		Language:  req.Language,
		Level:     req.Level,
		Goals:     req.Goals,
		StudyPlan: content,
	})
	if err != nil {
		return nil, upstream("save study plan", err)
	}

	p.logger.Info("study plan generated",
		"user_id", req.UserID,
		"language", req.Language,
		"record_id", planID,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return BuildPlan(p.catalog, req, content, p.now()), nil
}

// BuildPlan lays out the fixed two-week skeleton starting at now.
// The model text is carried verbatim and does not shape the calendar.
func BuildPlan(c *prompt.Catalog, req PlanRequest, content string, now time.Time) *domain.StudyPlan {
	now = now.UTC()

	goals := make([]domain.PlanGoal, 0, len(req.Goals))
	for _, g := range req.Goals {
		goals = append(goals, domain.PlanGoal{Title: g, Category: c.Plan.GoalCategory})
	}

	weeks := make([]domain.PlanWeek, 0, PlanWeeks)
	for w := 1; w <= PlanWeeks; w++ {
		week := domain.PlanWeek{
			WeekNumber: w,
			Theme:      c.WeekTheme(w, req.Language),
			Days:       make([]domain.PlanDay, 0, DaysPerWeek),
		}
		for d := 1; d <= DaysPerWeek; d++ {
			offset := time.Duration((w-1)*DaysPerWeek+d-1) * 24 * time.Hour
			day := domain.PlanDay{
				DayNumber: d,
				Date:      now.Add(offset).Format(TimestampFormat),
				Tasks:     make([]domain.PlanTask, 0, len(c.Plan.Tasks)),
			}
			for i, t := range c.Plan.Tasks {
				day.Tasks = append(day.Tasks, domain.PlanTask{
					ID:          fmt.Sprintf("task-%d-%d-%d", w, d, i+1),
					Title:       t.Title,
					Description: t.Description,
					Duration:    t.Duration,
					Category:    t.Category,
				})
			}
			week.Days = append(week.Days, day)
		}
		weeks = append(weeks, week)
	}

	return &domain.StudyPlan{
		ID:             strconv.FormatInt(now.UnixMilli(), 10),
		Language:       domain.PlanLanguage{Name: req.Language, NativeName: req.Language},
		Level:          req.Level,
		Goals:          goals,
		Duration:       PlanWeeks,
		TimeCommitment: PlanTimeCommitment,
		Weeks:          weeks,
		Resources: domain.PlanResources{
			Apps:     nonNil(c.Plan.Resources.Apps),
			Websites: nonNil(c.Plan.Resources.Websites),
			Books:    nonNil(c.Plan.Resources.Books),
			Videos:   nonNil(c.Plan.Resources.Videos),
		},
		Tips:               nonNil(c.Plan.Tips),
		CulturalNotes:      nonNil(c.Plan.CulturalNotes),
		AIGeneratedContent: content,
		CreatedAt:          now.Format(TimestampFormat),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
