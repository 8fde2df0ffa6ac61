// Package llm provides the text-generation collaborator used by the AI
// analyzer. The analyzer tolerates this backend being unavailable, slow or
// returning malformed text; clients here only need to return the raw response
// or an error.
package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Client generates text from a prompt.
type Client interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
	Provider() string
}

// ErrNotConfigured is returned by NewFromEnv when no provider credentials are
// present. Callers treat this as "AI disabled", not a startup failure.
var ErrNotConfigured = errors.New("no LLM provider configured")

// Provider names accepted in config and LLM_PROVIDER.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// New creates a client for the named provider.
func New(provider, apiKey, model string) (Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%s: API key is required", provider)
	}
	switch provider {
	case ProviderAnthropic:
		return NewAnthropic(apiKey, model), nil
	case ProviderOpenAI:
		return NewOpenAI(apiKey, model), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}
}

// NewFromEnv builds a client from LLM_PROVIDER plus the provider's usual key
// variable. An empty environment yields ErrNotConfigured.
func NewFromEnv() (Client, error) {
	provider := strings.ToLower(os.Getenv("LLM_PROVIDER"))

	switch provider {
	case ProviderOpenAI:
		return New(ProviderOpenAI, os.Getenv("OPENAI_API_KEY"), os.Getenv("OPENAI_MODEL"))
	case ProviderAnthropic:
		return New(ProviderAnthropic, os.Getenv("ANTHROPIC_API_KEY"), os.Getenv("ANTHROPIC_MODEL"))
	case "":
		if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
			return New(ProviderAnthropic, key, os.Getenv("ANTHROPIC_MODEL"))
		}
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			return New(ProviderOpenAI, key, os.Getenv("OPENAI_MODEL"))
		}
		return nil, ErrNotConfigured
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}
}
