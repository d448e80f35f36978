package provider

import (
	"context"
	"fmt"
	"strings"
)

// ListProviders returns available provider names
func ListProviders() []string {
	return []string{"gemini", "openai", "polly", "gcp", "none"}
}

// NewProvider creates a provider instance from configuration. The "none"
// provider yields a nil Provider and no error.
func NewProvider(ctx context.Context, cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "", "gemini":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("gemini speech requires an API key")
		}
		p := NewGeminiProvider(cfg.APIKey)
		if cfg.Model != "" {
			p.model = cfg.Model
		}
		if cfg.BaseURL != "" {
			p.baseURL = strings.TrimSuffix(cfg.BaseURL, "/")
		}
		return p, nil
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("OpenAI API key not found in config or OPENAI_API_KEY environment variable")
		}
		p := NewOpenAIProvider(cfg.APIKey)
		if cfg.Model != "" {
			p.model = cfg.Model
		}
		if cfg.BaseURL != "" {
			p.baseURL = strings.TrimSuffix(cfg.BaseURL, "/")
		}
		return p, nil
	case "polly":
		return NewPollyProvider(ctx, cfg.Region)
	case "gcp":
		var opts []GCPProviderOption
		if cfg.CredentialsFile != "" {
			opts = append(opts, WithGCPCredentialsFile(cfg.CredentialsFile))
		}
		if cfg.ProjectID != "" {
			opts = append(opts, WithGCPProjectID(cfg.ProjectID))
		}
		return NewGCPProvider(ctx, opts...)
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.Provider)
	}
}

// New creates a Synthesizer from configuration. It returns nil for the
// "none" provider, which disables speech.
func New(ctx context.Context, cfg Config) (*Synthesizer, error) {
	p, err := NewProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, nil
	}
	return NewSynthesizer(p, cfg.Voices), nil
}
