package voice

import "context"

// Synthesizer turns text into speech for one of the council voices
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string) (*Audio, error)
}

// SynthesizerFunc adapts a function to the Synthesizer interface
type SynthesizerFunc func(ctx context.Context, text, voice string) (*Audio, error)

// Synthesize calls f
func (f SynthesizerFunc) Synthesize(ctx context.Context, text, voice string) (*Audio, error) {
	return f(ctx, text, voice)
}
