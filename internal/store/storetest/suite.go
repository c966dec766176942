// Package storetest provides a compliance suite shared by every store driver.
package storetest

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/ashureev/lingua-tutor/internal/domain"
	"github.com/ashureev/lingua-tutor/internal/store"
)

// Run exercises the Repository contract against a driver.
// makeStore must return a repository that is safe to write to for this test.
func Run(t *testing.T, makeStore func(t *testing.T) store.Repository) {
	t.Helper()

	s := makeStore(t)
	ctx := context.Background()
	userID := "u-" + uuid.NewString()

	// Study plans
	rec := &domain.StudyPlanRecord{
		UserID:    userID,
		Language:  "Spanish",
		Level:     "beginner",
		Goals:     []string{"travel", "food"},
		StudyPlan: "Week 1: greetings",
	}
	planID, err := s.SaveStudyPlan(ctx, rec)
	if err != nil {
		t.Fatalf("SaveStudyPlan: %v", err)
	}
	if planID == "" || rec.ID != planID {
		t.Fatalf("SaveStudyPlan: id=%q rec.ID=%q", planID, rec.ID)
	}
	if rec.CreatedAt.IsZero() {
		t.Fatalf("SaveStudyPlan: CreatedAt not assigned")
	}
	second, err := s.SaveStudyPlan(ctx, &domain.StudyPlanRecord{UserID: userID, Language: "Spanish", Level: "beginner"})
	if err != nil {
		t.Fatalf("SaveStudyPlan second: %v", err)
	}
	if second == planID {
		t.Fatalf("SaveStudyPlan: duplicate id %q", second)
	}

	// Missing conversation
	if got, err := s.GetConversation(ctx, "missing-"+uuid.NewString()); err != nil || got != nil {
		t.Fatalf("GetConversation missing: got=%v err=%v", got, err)
	}

	// Store-assigned conversation id
	conv, err := s.CreateConversation(ctx, &domain.Conversation{
		UserID:        userID,
		Language:      "Spanish",
		CoachingStyle: domain.StyleEncouraging,
	})
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}
	if conv.ID == "" || conv.MessageCount != 0 || conv.CreatedAt.IsZero() {
		t.Fatalf("CreateConversation: got=%+v", conv)
	}
	if conv.LastActivity != nil {
		t.Fatalf("CreateConversation: LastActivity set before first turn")
	}

	// Caller-chosen conversation id
	convID := "conv-" + uuid.NewString()
	named, err := s.CreateConversation(ctx, &domain.Conversation{
		ID:            convID,
		UserID:        userID,
		Language:      "French",
		CoachingStyle: domain.StyleCorrective,
	})
	if err != nil {
		t.Fatalf("CreateConversation named: %v", err)
	}
	if named.ID != convID || named.Language != "French" || named.CoachingStyle != domain.StyleCorrective {
		t.Fatalf("CreateConversation named: got=%+v", named)
	}

	// Insert-if-absent keeps the first record
	again, err := s.CreateConversation(ctx, &domain.Conversation{
		ID:            convID,
		UserID:        "someone-else",
		Language:      "German",
		CoachingStyle: domain.StyleConversational,
	})
	if err != nil {
		t.Fatalf("CreateConversation existing: %v", err)
	}
	if again.UserID != userID || again.Language != "French" {
		t.Fatalf("CreateConversation existing overwritten: got=%+v", again)
	}

	got, err := s.GetConversation(ctx, convID)
	if err != nil || got == nil || got.ID != convID {
		t.Fatalf("GetConversation: got=%v err=%v", got, err)
	}

	// Messages
	if msgs, err := s.RecentMessages(ctx, convID, 10); err != nil || len(msgs) != 0 {
		t.Fatalf("RecentMessages empty: n=%d err=%v", len(msgs), err)
	}

	contents := []string{"hola", "¡Hola! ¿Qué tal?", "bien", "¡Qué bueno!"}
	for i, c := range contents {
		msg := &domain.Message{
			ConversationID: convID,
			UserID:         userID,
			Content:        c,
			Type:           domain.MessageTypeUser,
			Language:       "French",
		}
		if i%2 == 1 {
			msg.Type = domain.MessageTypeAssistant
			msg.CoachingStyle = domain.StyleCorrective
		}
		if err := s.AddMessage(ctx, msg); err != nil {
			t.Fatalf("AddMessage %d: %v", i, err)
		}
		if msg.ID == "" || msg.Timestamp.IsZero() {
			t.Fatalf("AddMessage %d: id/timestamp not assigned: %+v", i, msg)
		}
	}

	recent, err := s.RecentMessages(ctx, convID, 3)
	if err != nil {
		t.Fatalf("RecentMessages: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("RecentMessages: want 3 got %d", len(recent))
	}
	if recent[0].Content != "¡Qué bueno!" || recent[2].Content != "¡Hola! ¿Qué tal?" {
		t.Fatalf("RecentMessages order: got %q, %q, %q", recent[0].Content, recent[1].Content, recent[2].Content)
	}
	if recent[0].Type != domain.MessageTypeAssistant || recent[0].CoachingStyle != domain.StyleCorrective {
		t.Fatalf("RecentMessages assistant fields: got=%+v", recent[0])
	}
	if recent[1].Type != domain.MessageTypeUser || recent[1].CoachingStyle != "" {
		t.Fatalf("RecentMessages user fields: got=%+v", recent[1])
	}
	for i := 1; i < len(recent); i++ {
		if recent[i].Timestamp.After(recent[i-1].Timestamp) {
			t.Fatalf("RecentMessages not newest first at %d", i)
		}
	}

	// Other conversations are isolated
	if msgs, err := s.RecentMessages(ctx, conv.ID, 10); err != nil || len(msgs) != 0 {
		t.Fatalf("RecentMessages isolation: n=%d err=%v", len(msgs), err)
	}

	// Turn accounting
	if err := s.RecordTurn(ctx, convID, 2); err != nil {
		t.Fatalf("RecordTurn: %v", err)
	}
	if err := s.RecordTurn(ctx, convID, 2); err != nil {
		t.Fatalf("RecordTurn second: %v", err)
	}
	got, err = s.GetConversation(ctx, convID)
	if err != nil || got == nil {
		t.Fatalf("GetConversation after turn: got=%v err=%v", got, err)
	}
	if got.MessageCount != 4 {
		t.Fatalf("RecordTurn: want message_count 4 got %d", got.MessageCount)
	}
	if got.LastActivity == nil || got.UpdatedAt == nil {
		t.Fatalf("RecordTurn: activity timestamps not set: %+v", got)
	}

	if err := s.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}
