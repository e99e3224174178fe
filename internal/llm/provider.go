package llm

import (
	"context"
	"fmt"

	"message-triage/internal/gemini"
	"message-triage/internal/groq"
	"message-triage/internal/openrouter"

	"go.uber.org/zap"
)

// ProviderType represents the type of LLM provider
type ProviderType string

const (
	ProviderGemini     ProviderType = "gemini"
	ProviderGroq       ProviderType = "groq"
	ProviderOpenRouter ProviderType = "openrouter"
)

// Valid reports whether t names a supported provider
func (t ProviderType) Valid() bool {
	switch t {
	case ProviderGemini, ProviderGroq, ProviderOpenRouter:
		return true
	}
	return false
}

// ProviderConfig holds configuration for a single provider instance
type ProviderConfig struct {
	Type      ProviderType `yaml:"type"`
	APIKey    string       `yaml:"api_key"`
	ModelName string       `yaml:"model_name"`
	BaseURL   string       `yaml:"base_url"`
}

// Provider is a classifier collaborator. Classify makes exactly one request
// and returns the model's raw text.
type Provider interface {
	Classify(ctx context.Context, message string) (string, error)
	Close() error
	GetModelInfo() map[string]interface{}
}

var (
	_ Provider = (*gemini.Client)(nil)
	_ Provider = (*groq.Client)(nil)
	_ Provider = (*openrouter.Client)(nil)
)

// NewProvider builds a provider from its configuration
func NewProvider(cfg ProviderConfig, logger *zap.Logger) (Provider, error) {
	switch cfg.Type {
	case ProviderGemini:
		return gemini.NewClient(gemini.Config{
			APIKey:    cfg.APIKey,
			ModelName: cfg.ModelName,
		}, logger)
	case ProviderGroq:
		return groq.NewClient(groq.Config{
			APIKey:    cfg.APIKey,
			ModelName: cfg.ModelName,
			BaseURL:   cfg.BaseURL,
		}, logger)
	case ProviderOpenRouter:
		return openrouter.NewClient(openrouter.Config{
			APIKey:    cfg.APIKey,
			ModelName: cfg.ModelName,
			BaseURL:   cfg.BaseURL,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown provider type %q", cfg.Type)
	}
}
