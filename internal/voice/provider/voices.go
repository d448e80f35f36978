package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/daikw/agora/internal/voice"
)

// VoiceMap maps council voice names (Puck, Charon, Kore, Fenrir, Zephyr) to
// provider voice ids
type VoiceMap map[string]string

// DefaultVoiceMap returns the built-in mapping for a provider
func DefaultVoiceMap(providerName string) VoiceMap {
	switch providerName {
	case "openai":
		return VoiceMap{
			"Puck":   "alloy",
			"Charon": "onyx",
			"Kore":   "nova",
			"Fenrir": "echo",
			"Zephyr": "fable",
		}
	case "polly":
		return VoiceMap{
			"Puck":   "Matthew",
			"Charon": "Brian",
			"Kore":   "Joanna",
			"Fenrir": "Joey",
			"Zephyr": "Stephen",
		}
	case "gcp":
		return VoiceMap{
			"Puck":   "en-US-Neural2-D",
			"Charon": "en-US-Neural2-J",
			"Kore":   "en-US-Neural2-F",
			"Fenrir": "en-US-Neural2-A",
			"Zephyr": "en-US-Neural2-I",
		}
	default:
		// Gemini speaks the council voices natively
		return VoiceMap{}
	}
}

// Resolve returns the provider voice for a council voice name. Unmapped
// names pass through unchanged.
func (m VoiceMap) Resolve(name string) string {
	if v, ok := m[name]; ok {
		return v
	}
	for k, v := range m {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return name
}

// Synthesizer adapts a Provider to voice.Synthesizer, translating council
// voice names through a VoiceMap
type Synthesizer struct {
	provider Provider
	voices   VoiceMap
}

var _ voice.Synthesizer = (*Synthesizer)(nil)

// NewSynthesizer wraps p using the default voice map for p, with overrides
// taking precedence
func NewSynthesizer(p Provider, overrides map[string]string) *Synthesizer {
	voices := DefaultVoiceMap(p.Name())
	for k, v := range overrides {
		voices[k] = v
	}
	return &Synthesizer{provider: p, voices: voices}
}

// Provider returns the wrapped provider
func (s *Synthesizer) Provider() Provider {
	return s.provider
}

// Synthesize implements voice.Synthesizer
func (s *Synthesizer) Synthesize(ctx context.Context, text, voiceName string) (*voice.Audio, error) {
	resolved := s.voices.Resolve(voiceName)
	log.Debug().
		Str("provider", s.provider.Name()).
		Str("voice", voiceName).
		Str("resolved", resolved).
		Msg("Synthesizing speech")

	audio, err := s.provider.Synthesize(ctx, text, SynthesizeOptions{Voice: resolved})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.provider.Name(), err)
	}
	return audio, nil
}
