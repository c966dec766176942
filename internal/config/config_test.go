package config

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.StoreDriver != "sqlite" || cfg.DBPath != "./data/tutor.db" {
		t.Errorf("store defaults = %q %q", cfg.StoreDriver, cfg.DBPath)
	}
	if cfg.LLMProvider != "openai" || cfg.LLMModel != "gpt-4o" {
		t.Errorf("llm defaults = %q %q", cfg.LLMProvider, cfg.LLMModel)
	}
	if cfg.MaxRequestBodyBytes != 1<<20 {
		t.Errorf("MaxRequestBodyBytes = %d", cfg.MaxRequestBodyBytes)
	}
	if cfg.SurrealURL != "ws://localhost:8000/rpc" || cfg.SurrealAuthLevel != "root" {
		t.Errorf("surreal defaults = %q %q", cfg.SurrealURL, cfg.SurrealAuthLevel)
	}
	if cfg.ConversationLogEnabled || cfg.ConversationLogQueueSize != 1000 {
		t.Errorf("transcript defaults = %v %d", cfg.ConversationLogEnabled, cfg.ConversationLogQueueSize)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("STORE_DRIVER", "surrealdb")
	t.Setenv("SURREALDB_AUTH_LEVEL", "database")
	t.Setenv("LLM_PROVIDER", "ollama")
	t.Setenv("LLM_MODEL", "llama3")
	t.Setenv("CONVERSATION_LOG_ENABLED", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != "9000" || cfg.StoreDriver != "surrealdb" || cfg.LLMModel != "llama3" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if !cfg.ConversationLogEnabled {
		t.Error("expected conversation log enabled")
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Port:                     "8080",
			LogLevel:                 "info",
			MaxRequestBodyBytes:      1024,
			StoreDriver:              "memory",
			LLMProvider:              "openai",
			LLMModel:                 "gpt-4o",
			OpenAIAPIKey:             "sk-test",
			ConversationLogDir:       "./logs",
			ConversationLogQueueSize: 10,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"empty port", func(c *Config) { c.Port = "" }, "PORT"},
		{"bad body limit", func(c *Config) { c.MaxRequestBodyBytes = 0 }, "MAX_REQUEST_BODY_BYTES"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "LOG_LEVEL"},
		{"unknown store", func(c *Config) { c.StoreDriver = "mongo" }, "STORE_DRIVER"},
		{"sqlite without path", func(c *Config) { c.StoreDriver = "sqlite" }, "DB_PATH"},
		{"bad auth level", func(c *Config) {
			c.StoreDriver = "surrealdb"
			c.SurrealURL = "ws://x"
			c.SurrealAuthLevel = "namespace"
		}, "SURREALDB_AUTH_LEVEL"},
		{"openai without key", func(c *Config) { c.OpenAIAPIKey = "" }, "OPENAI_API_KEY"},
		{"anthropic without key", func(c *Config) { c.LLMProvider = "anthropic" }, "ANTHROPIC_API_KEY"},
		{"ollama needs no key", func(c *Config) { c.LLMProvider = "ollama"; c.OpenAIAPIKey = "" }, ""},
		{"unknown provider", func(c *Config) { c.LLMProvider = "cohere" }, "LLM_PROVIDER"},
		{"transcript queue", func(c *Config) {
			c.ConversationLogEnabled = true
			c.ConversationLogQueueSize = 0
		}, "CONVERSATION_LOG_QUEUE_SIZE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"":      slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range cases {
		got, err := ParseLogLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLogLevel(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseLogLevel("trace"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestSetupLoggerWithWritersFansOut(t *testing.T) {
	var stdout, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stdout, &file, slog.LevelInfo)

	logger.Debug("hidden")
	logger.Info("chat turn completed", "conversation_id", "c1")

	for name, buf := range map[string]*bytes.Buffer{"stdout": &stdout, "file": &file} {
		out := buf.String()
		if !strings.Contains(out, `"conversation_id":"c1"`) {
			t.Errorf("%s missing record: %s", name, out)
		}
		if strings.Contains(out, "hidden") {
			t.Errorf("%s contains debug record", name)
		}
	}
}
