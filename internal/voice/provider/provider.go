package provider

import (
	"context"

	"github.com/daikw/agora/internal/voice"
)

// Provider defines the interface for TTS providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// ListVoices returns available voices for this provider
	ListVoices(ctx context.Context) ([]Voice, error)

	// Synthesize generates raw 16-bit PCM from text
	Synthesize(ctx context.Context, text string, options SynthesizeOptions) (*voice.Audio, error)
}

// Voice represents a voice option
type Voice struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Language    string `json:"language"`
	Gender      string `json:"gender,omitempty"`
	Description string `json:"description,omitempty"`
}

// SynthesizeOptions contains options for text synthesis
type SynthesizeOptions struct {
	Voice    string  `json:"voice"`
	Speed    float64 `json:"speed,omitempty"`    // Speed multiplier (0.25-4.0)
	Language string  `json:"language,omitempty"` // Language code
	Model    string  `json:"model,omitempty"`
}

// Config contains provider configuration
type Config struct {
	Provider        string            `json:"provider"`
	APIKey          string            `json:"apiKey,omitempty"`
	Model           string            `json:"model,omitempty"`
	Region          string            `json:"region,omitempty"`
	ProjectID       string            `json:"projectID,omitempty"`
	CredentialsFile string            `json:"credentialsFile,omitempty"`
	BaseURL         string            `json:"baseURL,omitempty"`
	Voices          map[string]string `json:"voices,omitempty"`
}

func clampSpeed(speed float64) float64 {
	if speed <= 0 {
		return 1.0
	}
	if speed < 0.25 {
		return 0.25
	}
	if speed > 4.0 {
		return 4.0
	}
	return speed
}
