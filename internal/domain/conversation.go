// Package domain contains core domain types for the tutor service.
package domain

import (
	"time"
)

// MessageType tags who authored a stored message.
type MessageType string

const (
	// MessageTypeUser marks a learner-authored message.
	MessageTypeUser MessageType = "user"
	// MessageTypeAssistant marks a tutor reply.
	MessageTypeAssistant MessageType = "assistant"
)

// CoachingStyle selects the tutor persona.
type CoachingStyle string

const (
	StyleConversational CoachingStyle = "conversational"
	StyleCorrective     CoachingStyle = "corrective"
	StyleEncouraging    CoachingStyle = "encouraging"
)

// DefaultCoachingStyle is used when a request names no style.
const DefaultCoachingStyle = StyleEncouraging

// Conversation is the aggregate record for one tutoring thread.
// MessageCount grows by two per completed turn.
type Conversation struct {
	ID            string
	UserID        string
	Language      string
	CoachingStyle CoachingStyle
	MessageCount  int
	CreatedAt     time.Time
	LastActivity  *time.Time
	UpdatedAt     *time.Time
}

// Message is a single immutable entry in a conversation.
// Timestamp is assigned by the store on write.
type Message struct {
	ID             string
	ConversationID string
	UserID         string
	Content        string
	Type           MessageType
	Timestamp      time.Time
	Language       string
	CoachingStyle  CoachingStyle // assistant messages only
}

// Correction describes one language error found in learner input.
type Correction struct {
	Original    string `json:"original"`
	Corrected   string `json:"corrected"`
	Type        string `json:"type"`
	Explanation string `json:"explanation"`
}
