// Package config provides application configuration.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Port                string `envconfig:"PORT" default:"8080"`
	LogLevel            string `envconfig:"LOG_LEVEL" default:"info"`
	LogFile             string `envconfig:"LOG_FILE"`
	MaxRequestBodyBytes int64  `envconfig:"MAX_REQUEST_BODY_BYTES" default:"1048576"`

	// Store
	StoreDriver      string `envconfig:"STORE_DRIVER" default:"sqlite"`
	DBPath           string `envconfig:"DB_PATH" default:"./data/tutor.db"`
	SurrealURL       string `envconfig:"SURREALDB_URL" default:"ws://localhost:8000/rpc"`
	SurrealNamespace string `envconfig:"SURREALDB_NAMESPACE" default:"tutor"`
	SurrealDatabase  string `envconfig:"SURREALDB_DATABASE" default:"tutor"`
	SurrealUser      string `envconfig:"SURREALDB_USER" default:"root"`
	SurrealPass      string `envconfig:"SURREALDB_PASS" default:"root"`
	SurrealAuthLevel string `envconfig:"SURREALDB_AUTH_LEVEL" default:"root"`

	// Completion API
	LLMProvider     string `envconfig:"LLM_PROVIDER" default:"openai"`
	LLMModel        string `envconfig:"LLM_MODEL" default:"gpt-4o"`
	OpenAIAPIKey    string `envconfig:"OPENAI_API_KEY"`
	AnthropicAPIKey string `envconfig:"ANTHROPIC_API_KEY"`
	OllamaHost      string `envconfig:"OLLAMA_HOST" default:"http://localhost:11434"`

	PromptCatalogPath string `envconfig:"PROMPT_CATALOG_PATH"`

	// Conversation transcripts
	ConversationLogEnabled   bool   `envconfig:"CONVERSATION_LOG_ENABLED" default:"false"`
	ConversationLogDir       string `envconfig:"CONVERSATION_LOG_DIR" default:"./data/logs/conversations"`
	ConversationLogQueueSize int    `envconfig:"CONVERSATION_LOG_QUEUE_SIZE" default:"1000"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT cannot be empty")
	}
	if c.MaxRequestBodyBytes <= 0 {
		return errors.New("MAX_REQUEST_BODY_BYTES must be > 0")
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}

	switch c.StoreDriver {
	case "sqlite":
		if c.DBPath == "" {
			return errors.New("DB_PATH cannot be empty")
		}
	case "surrealdb":
		if c.SurrealURL == "" {
			return errors.New("SURREALDB_URL cannot be empty")
		}
		if c.SurrealAuthLevel != "root" && c.SurrealAuthLevel != "database" {
			return fmt.Errorf("SURREALDB_AUTH_LEVEL must be root or database, got %q", c.SurrealAuthLevel)
		}
	case "memory":
	default:
		return fmt.Errorf("unsupported STORE_DRIVER: %s", c.StoreDriver)
	}

	switch c.LLMProvider {
	case "openai":
		if c.OpenAIAPIKey == "" {
			return errors.New("OPENAI_API_KEY is required for the openai provider")
		}
	case "anthropic":
		if c.AnthropicAPIKey == "" {
			return errors.New("ANTHROPIC_API_KEY is required for the anthropic provider")
		}
	case "ollama", "bedrock":
	default:
		return fmt.Errorf("unsupported LLM_PROVIDER: %s", c.LLMProvider)
	}
	if c.LLMModel == "" {
		return errors.New("LLM_MODEL cannot be empty")
	}

	if c.ConversationLogEnabled {
		if strings.TrimSpace(c.ConversationLogDir) == "" {
			return errors.New("CONVERSATION_LOG_DIR cannot be empty")
		}
		if c.ConversationLogQueueSize <= 0 {
			return errors.New("CONVERSATION_LOG_QUEUE_SIZE must be > 0")
		}
	}
	return nil
}
