package llm

import (
	"fmt"
	"net/http"
	"time"
)

// Config selects and configures a backend
type Config struct {
	Backend string
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// NewFromConfig creates the configured backend
func NewFromConfig(cfg Config) (Service, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s backend requires an API key", cfg.Backend)
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}

	switch cfg.Backend {
	case "", "gemini":
		opts := []GeminiOption{WithGeminiHTTPClient(httpClient)}
		if cfg.Model != "" {
			opts = append(opts, WithGeminiModel(cfg.Model))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, WithGeminiBaseURL(cfg.BaseURL))
		}
		return NewGemini(cfg.APIKey, opts...), nil
	case "openrouter":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = OpenRouterBaseURL
		}
		o := NewOpenRouterWithBaseURL(cfg.APIKey, cfg.Model, baseURL)
		o.httpClient = httpClient
		return o, nil
	default:
		return nil, fmt.Errorf("unknown generation backend: %s", cfg.Backend)
	}
}
