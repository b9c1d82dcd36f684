// Package llm provides a provider-agnostic LLM adapter: one Provider
// interface backed by direct net/http calls (no vendor SDK) against
// OpenAI, Anthropic, Google AI Studio, and OpenRouter, selected by an
// opaque "provider:model" name.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
)

// Provider is the interface for LLM completions.
type Provider interface {
	// Complete sends a prompt and returns the response text.
	Complete(ctx context.Context, prompt string, opts CompletionOpts) (string, error)
	// Name returns a human-readable provider name (e.g., "anthropic/claude-3-opus-20240229").
	Name() string
}

// CompletionOpts configures a single completion request.
type CompletionOpts struct {
	MaxTokens   int     // Max tokens to generate (0 = provider default)
	Temperature float64 // 0.0-2.0 (0 = deterministic)
	Model       string  // Override model for this request (empty = use provider default)
	Format      string  // "json" for structured output, empty for plain text
	System      string  // System prompt (optional)
}

// Config holds provider configuration.
type Config struct {
	Provider string // "openai", "anthropic", "google", "openrouter"
	Model    string
	APIKey   string // API key (empty = read from env)
	BaseURL  string // Optional URL override
}

// NewProvider creates an LLM provider from the given config.
func NewProvider(cfg Config) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		key := firstNonEmpty(cfg.APIKey, os.Getenv("OPENAI_API_KEY"))
		if key == "" {
			return nil, fmt.Errorf("openai provider requires OPENAI_API_KEY env var")
		}
		model := firstNonEmpty(cfg.Model, "gpt-3.5-turbo-0125")
		baseURL := firstNonEmpty(cfg.BaseURL, "https://api.openai.com/v1")
		return &openAIProvider{apiKey: key, model: model, baseURL: baseURL}, nil

	case "anthropic":
		key := firstNonEmpty(cfg.APIKey, os.Getenv("ANTHROPIC_API_KEY"))
		if key == "" {
			return nil, fmt.Errorf("anthropic provider requires ANTHROPIC_API_KEY env var")
		}
		model := firstNonEmpty(cfg.Model, "claude-3-haiku-20240307")
		baseURL := firstNonEmpty(cfg.BaseURL, "https://api.anthropic.com/v1")
		return &anthropicProvider{apiKey: key, model: model, baseURL: baseURL}, nil

	case "google":
		key := firstNonEmpty(cfg.APIKey, os.Getenv("GEMINI_API_KEY"), os.Getenv("GOOGLE_API_KEY"))
		if key == "" {
			return nil, fmt.Errorf("google provider requires GEMINI_API_KEY or GOOGLE_API_KEY env var")
		}
		model := firstNonEmpty(cfg.Model, "gemini-2.5-flash")
		baseURL := firstNonEmpty(cfg.BaseURL, "https://generativelanguage.googleapis.com/v1beta")
		return &googleProvider{apiKey: key, model: model, baseURL: baseURL}, nil

	case "openrouter":
		key := firstNonEmpty(cfg.APIKey, os.Getenv("OPENROUTER_API_KEY"))
		if key == "" {
			return nil, fmt.Errorf("openrouter provider requires OPENROUTER_API_KEY env var")
		}
		model := firstNonEmpty(cfg.Model, "openai/gpt-4o-mini")
		baseURL := firstNonEmpty(cfg.BaseURL, "https://openrouter.ai/api/v1")
		return &openrouterProvider{apiKey: key, model: model, baseURL: baseURL}, nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %q (supported: openai, anthropic, google, openrouter)", cfg.Provider)
	}
}

// ParseModelName parses an opaque "provider:model" name (e.g.
// "openai:gpt-4-0125-preview", "anthropic:claude-3-opus-20240229") into a
// Config.
func ParseModelName(name string) (Config, error) {
	parts := strings.SplitN(name, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Config{}, fmt.Errorf("invalid model name %q: expected provider:model (e.g. openai:gpt-4-0125-preview)", name)
	}
	return Config{Provider: strings.ToLower(parts[0]), Model: parts[1]}, nil
}

// nonRetriableStatus reports whether an HTTP status code indicates a
// request that will never succeed by retrying unchanged: bad input or bad
// credentials, as opposed to rate limiting (429) or a server-side hiccup
// (5xx), both of which the caller's retry.Do loop should keep retrying.
func nonRetriableStatus(code int) bool {
	return code >= 400 && code < 500 && code != http.StatusTooManyRequests
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
