package prompt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/lingua-tutor/internal/domain"
)

func TestDefaultCatalogPlanPrompt(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	got := c.PlanPrompt("Spanish", "beginner", []string{"travel", "ordering food"})
	want := "You are a language tutor. Your student is learning Spanish, at a beginner level.\n" +
		"Their goals are: travel, ordering food.\n" +
		"Create a 2-week study plan with daily tasks and tips. Include 3 cultural tips."
	assert.Equal(t, want, got)
	assert.Equal(t, 500, c.Plan.MaxTokens)
}

func TestDefaultCatalogPersonas(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	assert.Equal(t,
		"You are a friendly French conversation partner. Keep the conversation flowing naturally. "+
			"Only correct major errors that impede understanding. Focus on engaging topics and ask follow-up questions. "+
			"Respond naturally in French.",
		c.Persona(domain.StyleConversational, "French"))

	assert.Equal(t,
		"You are a detailed French tutor. Provide corrections for grammar, vocabulary, and syntax errors. "+
			"Explain the rules behind corrections. Always be constructive and educational. "+
			"Respond in French but provide explanations in English when correcting.",
		c.Persona(domain.StyleCorrective, "French"))

	encouraging := c.Persona(domain.StyleEncouraging, "French")
	assert.Equal(t,
		"You are a supportive French tutor. Celebrate the user's progress and effort. "+
			"Provide gentle corrections with positive framing. Focus on building confidence. "+
			"Respond in French with encouraging tone.",
		encouraging)

	assert.Equal(t, encouraging, c.Persona("pirate", "French"))
	assert.Equal(t, encouraging, c.Persona("", "French"))
}

func TestDefaultCatalogCorrectionPrompt(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	got := c.CorrectionPrompt("German", "Ich bin gehen")
	assert.Equal(t,
		`Analyze this German message for grammar, vocabulary, and syntax errors: "Ich bin gehen". `+
			`Return only a JSON array of corrections in this format: `+
			`[{"original": "text", "corrected": "text", "type": "grammar/vocabulary/punctuation", "explanation": "brief explanation"}]. `+
			`If no errors, return empty array [].`,
		got)
	assert.Equal(t, 200, c.Corrections.MaxTokens)
	assert.InDelta(t, 0.1, c.Corrections.Temperature, 1e-9)
	assert.Equal(t, 300, c.Chat.MaxTokens)
	assert.InDelta(t, 0.7, c.Chat.Temperature, 1e-9)
}

func TestWeekTheme(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	assert.Equal(t, "Week 2: Japanese Learning", c.WeekTheme(2, "Japanese"))
}

func TestPlaceholdersAreNotExpandedTwice(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	got := c.CorrectionPrompt("{message}", "hi")
	assert.Contains(t, got, "Analyze this {message} message")
}

func TestParseRejectsIncompleteCatalog(t *testing.T) {
	_, err := Parse([]byte(`
plan:
  prompt: "hi"
  tasks: []
chat:
  default_persona: encouraging
  personas:
    encouraging: "be nice"
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "plan.tasks")
	assert.Contains(t, err.Error(), "corrections.prompt")
	assert.Contains(t, err.Error(), "chat.personas.corrective")
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, defaultCatalog, 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, c.Plan.Tips, 5)
	assert.Len(t, c.Plan.CulturalNotes, 3)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
