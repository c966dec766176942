// Package prompt loads the prompt templates and static plan content used by the tutor.
package prompt

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ashureev/lingua-tutor/internal/domain"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Catalog holds every model prompt and the fixed content of generated plans.
type Catalog struct {
	Plan        PlanSection        `yaml:"plan"`
	Chat        ChatSection        `yaml:"chat"`
	Corrections CorrectionsSection `yaml:"corrections"`
}

// PlanSection configures study plan generation.
type PlanSection struct {
	Prompt        string         `yaml:"prompt"`
	MaxTokens     int            `yaml:"max_tokens"`
	GoalCategory  string         `yaml:"goal_category"`
	WeekTheme     string         `yaml:"week_theme"`
	Tasks         []TaskTemplate `yaml:"tasks"`
	Resources     ResourceSet    `yaml:"resources"`
	Tips          []string       `yaml:"tips"`
	CulturalNotes []string       `yaml:"cultural_notes"`
}

// TaskTemplate is the template for one daily task.
type TaskTemplate struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Duration    int    `yaml:"duration"`
	Category    string `yaml:"category"`
}

// ResourceSet lists static learning resources.
type ResourceSet struct {
	Apps     []string `yaml:"apps"`
	Websites []string `yaml:"websites"`
	Books    []string `yaml:"books"`
	Videos   []string `yaml:"videos"`
}

// ChatSection configures tutor replies.
type ChatSection struct {
	MaxTokens      int               `yaml:"max_tokens"`
	Temperature    float64           `yaml:"temperature"`
	DefaultPersona string            `yaml:"default_persona"`
	Personas       map[string]string `yaml:"personas"`
}

// CorrectionsSection configures the correction analysis call.
type CorrectionsSection struct {
	Prompt      string  `yaml:"prompt"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog from path. An empty path selects the embedded catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompt catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse prompt catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks that the catalog can serve every prompt the tutor issues.
func (c *Catalog) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Plan.Prompt) == "" {
		errs = append(errs, errors.New("plan.prompt is required"))
	}
	if len(c.Plan.Tasks) != 2 {
		errs = append(errs, fmt.Errorf("plan.tasks must list 2 tasks, got %d", len(c.Plan.Tasks)))
	}
	if strings.TrimSpace(c.Corrections.Prompt) == "" {
		errs = append(errs, errors.New("corrections.prompt is required"))
	}
	for _, style := range []domain.CoachingStyle{domain.StyleConversational, domain.StyleCorrective, domain.StyleEncouraging} {
		if strings.TrimSpace(c.Chat.Personas[string(style)]) == "" {
			errs = append(errs, fmt.Errorf("chat.personas.%s is required", style))
		}
	}
	if _, ok := c.Chat.Personas[c.Chat.DefaultPersona]; !ok {
		errs = append(errs, fmt.Errorf("chat.default_persona %q has no persona", c.Chat.DefaultPersona))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid prompt catalog: %w", err)
	}
	return nil
}

// PlanPrompt renders the study plan request.
func (c *Catalog) PlanPrompt(language, level string, goals []string) string {
	return strings.NewReplacer(
		"{language}", language,
		"{level}", level,
		"{goals}", strings.Join(goals, ", "),
	).Replace(c.Plan.Prompt)
}

// WeekTheme renders the theme line for a plan week.
func (c *Catalog) WeekTheme(week int, language string) string {
	return strings.NewReplacer(
		"{week}", strconv.Itoa(week),
		"{language}", language,
	).Replace(c.Plan.WeekTheme)
}

// Persona renders the system prompt for style. Unknown styles fall back to the default persona.
func (c *Catalog) Persona(style domain.CoachingStyle, language string) string {
	tmpl, ok := c.Chat.Personas[string(style)]
	if !ok {
		tmpl = c.Chat.Personas[c.Chat.DefaultPersona]
	}
	return strings.ReplaceAll(tmpl, "{language}", language)
}

// CorrectionPrompt renders the correction analysis request for message.
func (c *Catalog) CorrectionPrompt(language, message string) string {
	return strings.NewReplacer(
		"{language}", language,
		"{message}", message,
	).Replace(c.Corrections.Prompt)
}
