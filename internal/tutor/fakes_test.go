package tutor

import (
	"context"
	"sync"
	"testing"

	"github.com/ashureev/lingua-tutor/internal/domain"
	"github.com/ashureev/lingua-tutor/internal/llm"
	"github.com/ashureev/lingua-tutor/internal/prompt"
	"github.com/ashureev/lingua-tutor/internal/store"
)

type completion struct {
	text string
	err  error
}

type completerCall struct {
	messages []llm.Message
	opts     llm.Options
}

// fakeCompleter replays scripted completions in order and records every call.
// The last script entry repeats once the script is exhausted.
type fakeCompleter struct {
	mu     sync.Mutex
	script []completion
	calls  []completerCall
}

func newFakeCompleter(script ...completion) *fakeCompleter {
	return &fakeCompleter{script: script}
}

func (f *fakeCompleter) Complete(_ context.Context, messages []llm.Message, opts llm.Options) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, completerCall{messages: append([]llm.Message(nil), messages...), opts: opts})
	if len(f.script) == 0 {
		return "", nil
	}
	i := min(len(f.calls)-1, len(f.script)-1)
	return f.script[i].text, f.script[i].err
}

func (f *fakeCompleter) Calls() []completerCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]completerCall(nil), f.calls...)
}

// spyRepo counts writes and remembers created conversations.
type spyRepo struct {
	store.Repository

	mu      sync.Mutex
	writes  int
	created []domain.Conversation
}

func newSpyRepo() *spyRepo {
	return &spyRepo{Repository: store.NewMemory()}
}

func (s *spyRepo) SaveStudyPlan(ctx context.Context, rec *domain.StudyPlanRecord) (string, error) {
	s.count()
	return s.Repository.SaveStudyPlan(ctx, rec)
}

func (s *spyRepo) CreateConversation(ctx context.Context, conv *domain.Conversation) (*domain.Conversation, error) {
	s.mu.Lock()
	s.writes++
	s.created = append(s.created, *conv)
	s.mu.Unlock()
	return s.Repository.CreateConversation(ctx, conv)
}

func (s *spyRepo) AddMessage(ctx context.Context, msg *domain.Message) error {
	s.count()
	return s.Repository.AddMessage(ctx, msg)
}

func (s *spyRepo) RecordTurn(ctx context.Context, conversationID string, delta int) error {
	s.count()
	return s.Repository.RecordTurn(ctx, conversationID, delta)
}

func (s *spyRepo) count() {
	s.mu.Lock()
	s.writes++
	s.mu.Unlock()
}

func (s *spyRepo) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func (s *spyRepo) Created() []domain.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Conversation(nil), s.created...)
}

func testCatalog(t *testing.T) *prompt.Catalog {
	t.Helper()
	c, err := prompt.Default()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return c
}
