package domain

import "time"

// StudyPlanRecord is the persisted exchange behind a generated plan.
// Records are append-only.
type StudyPlanRecord struct {
	ID        string
	UserID    string
	Language  string
	Level     string
	Goals     []string
	StudyPlan string
	CreatedAt time.Time
}

// StudyPlan is the structured plan returned to callers.
type StudyPlan struct {
	ID                 string        `json:"id"`
	Language           PlanLanguage  `json:"language"`
	Level              string        `json:"level"`
	Goals              []PlanGoal    `json:"goals"`
	Duration           int           `json:"duration"`
	TimeCommitment     int           `json:"timeCommitment"`
	Weeks              []PlanWeek    `json:"weeks"`
	Resources          PlanResources `json:"resources"`
	Tips               []string      `json:"tips"`
	CulturalNotes      []string      `json:"culturalNotes"`
	AIGeneratedContent string        `json:"aiGeneratedContent"`
	CreatedAt          string        `json:"createdAt"`
}

// PlanLanguage names the target language.
type PlanLanguage struct {
	Name       string `json:"name"`
	NativeName string `json:"nativeName"`
}

// PlanGoal is one learner goal.
type PlanGoal struct {
	Title    string `json:"title"`
	Category string `json:"category"`
}

// PlanWeek groups seven consecutive days.
type PlanWeek struct {
	WeekNumber int       `json:"weekNumber"`
	Theme      string    `json:"theme"`
	Days       []PlanDay `json:"days"`
}

// PlanDay is one calendar day of the plan.
type PlanDay struct {
	DayNumber int        `json:"dayNumber"`
	Date      string     `json:"date"`
	Tasks     []PlanTask `json:"tasks"`
}

// PlanTask is a single daily activity.
type PlanTask struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Duration    int    `json:"duration"`
	Completed   bool   `json:"completed"`
	Category    string `json:"category"`
}

// PlanResources lists static learning resources.
type PlanResources struct {
	Apps     []string `json:"apps"`
	Websites []string `json:"websites"`
	Books    []string `json:"books"`
	Videos   []string `json:"videos"`
}
