package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/fake"
)

func TestIsFatalAPIError(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		fatal bool
	}{
		{"nil error", nil, false},
		{"generic error", errors.New("connection reset"), false},
		{"credit balance", errors.New("insufficient credit balance"), true},
		{"rate limit", errors.New("Rate limit exceeded"), true},
		{"quota exceeded", errors.New("quota exceeded for model"), true},
		{"billing issue", errors.New("billing account inactive"), true},
		{"invalid api key", errors.New("Invalid API key"), true},
		{"authentication failed", errors.New("authentication failed"), true},
		{"unauthorized", errors.New("unauthorized request"), true},
		{"401 status", errors.New("HTTP 401: not allowed"), true},
		{"403 status", errors.New("HTTP 403: forbidden"), true},
		{"wrapped error", fmt.Errorf("complete: %w", errors.New("credit balance too low")), true},
		{"404 not fatal", errors.New("HTTP 404: not found"), false},
		{"timeout not fatal", errors.New("context deadline exceeded"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := isFatalAPIError(tt.err)
			if got != tt.fatal {
				t.Errorf("isFatalAPIError(%v) = %v, want %v", tt.err, got, tt.fatal)
			}
		})
	}
}

func TestWrapFatalError(t *testing.T) {
	t.Run("wraps fatal error", func(t *testing.T) {
		err := errors.New("invalid api key provided")
		wrapped := wrapFatalError(err)
		if !errors.Is(wrapped, ErrFatalAPI) {
			t.Errorf("expected wrapped error to match ErrFatalAPI")
		}
		if !errors.Is(wrapped, err) {
			t.Errorf("expected wrapped error to keep the cause")
		}
	})

	t.Run("passes through non-fatal error", func(t *testing.T) {
		err := errors.New("network timeout")
		result := wrapFatalError(err)
		if result != err {
			t.Errorf("expected original error returned, got %v", result)
		}
	})

	t.Run("nil error", func(t *testing.T) {
		if result := wrapFatalError(nil); result != nil {
			t.Errorf("expected nil, got %v", result)
		}
	})
}

func TestModelComplete(t *testing.T) {
	m := newModel(fake.NewFakeLLM([]string{"¡Hola! ¿Cómo estás?"}), "fake")

	temp := 0.7
	got, err := m.Complete(context.Background(), []Message{
		{Role: RoleSystem, Content: "You are a tutor."},
		{Role: RoleUser, Content: "hola"},
	}, Options{MaxTokens: 300, Temperature: &temp})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "¡Hola! ¿Cómo estás?" {
		t.Errorf("Complete = %q", got)
	}
	if m.Name() != "fake" {
		t.Errorf("Name = %q", m.Name())
	}
}

type failingModel struct{ err error }

func (f failingModel) GenerateContent(context.Context, []llms.MessageContent, ...llms.CallOption) (*llms.ContentResponse, error) {
	return nil, f.err
}

func (f failingModel) Call(context.Context, string, ...llms.CallOption) (string, error) {
	return "", f.err
}

type emptyModel struct{}

func (emptyModel) GenerateContent(context.Context, []llms.MessageContent, ...llms.CallOption) (*llms.ContentResponse, error) {
	return &llms.ContentResponse{}, nil
}

func (emptyModel) Call(context.Context, string, ...llms.CallOption) (string, error) {
	return "", nil
}

func TestModelCompleteErrors(t *testing.T) {
	m := newModel(failingModel{err: errors.New("HTTP 401: invalid api key")}, "fake")
	_, err := m.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, Options{})
	if !errors.Is(err, ErrFatalAPI) {
		t.Errorf("expected ErrFatalAPI, got %v", err)
	}

	m = newModel(failingModel{err: errors.New("connection refused")}, "fake")
	_, err = m.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, Options{})
	if err == nil || errors.Is(err, ErrFatalAPI) {
		t.Errorf("expected non-fatal error, got %v", err)
	}

	m = newModel(emptyModel{}, "fake")
	if _, err := m.Complete(context.Background(), nil, Options{}); err == nil {
		t.Error("expected error for empty choices")
	}
}

func TestChatMessageType(t *testing.T) {
	if chatMessageType(RoleSystem) != llms.ChatMessageTypeSystem {
		t.Error("system role mapped incorrectly")
	}
	if chatMessageType(RoleAssistant) != llms.ChatMessageTypeAI {
		t.Error("assistant role mapped incorrectly")
	}
	if chatMessageType(RoleUser) != llms.ChatMessageTypeHuman {
		t.Error("user role mapped incorrectly")
	}
}

func TestNewModelValidation(t *testing.T) {
	ctx := context.Background()
	if _, err := NewModel(ctx, Config{Provider: ProviderOpenAI, Model: "gpt-4o"}); err == nil {
		t.Error("expected error when OpenAI key is missing")
	}
	if _, err := NewModel(ctx, Config{Provider: ProviderAnthropic}); err == nil {
		t.Error("expected error when Anthropic key is missing")
	}
	if _, err := NewModel(ctx, Config{Provider: "cohere"}); err == nil {
		t.Error("expected error for unsupported provider")
	}
}
