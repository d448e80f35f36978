package council

import (
	"context"
	"math/rand/v2"
	"time"
)

// Default pacing of a round
const (
	DefaultRevealJitter = time.Second
	DefaultDebateStep   = 1500 * time.Millisecond
	DefaultHighlight    = 2 * time.Second
)

// Pacer decides how long the council waits between reveals
type Pacer interface {
	// RevealDelay is waited before an opinion that was not addressed is shown
	RevealDelay() time.Duration
	// DebateStep is waited before each debate turn is shown
	DebateStep() time.Duration
	// Highlight is how long a speaker stays highlighted. Zero keeps the
	// highlight until the next speaker takes over.
	Highlight() time.Duration
}

// RandomPacer waits a uniformly random delay up to Jitter before each reveal
type RandomPacer struct {
	Jitter       time.Duration
	Step         time.Duration
	HighlightFor time.Duration
}

// NewPacer returns a RandomPacer, substituting defaults for zero durations
func NewPacer(jitter, step, highlight time.Duration) *RandomPacer {
	if jitter <= 0 {
		jitter = DefaultRevealJitter
	}
	if step <= 0 {
		step = DefaultDebateStep
	}
	if highlight <= 0 {
		highlight = DefaultHighlight
	}
	return &RandomPacer{Jitter: jitter, Step: step, HighlightFor: highlight}
}

func (p *RandomPacer) RevealDelay() time.Duration {
	if p.Jitter <= 0 {
		return 0
	}
	return rand.N(p.Jitter)
}

func (p *RandomPacer) DebateStep() time.Duration { return p.Step }

func (p *RandomPacer) Highlight() time.Duration { return p.HighlightFor }

type noPacing struct{}

func (noPacing) RevealDelay() time.Duration { return 0 }
func (noPacing) DebateStep() time.Duration  { return 0 }
func (noPacing) Highlight() time.Duration   { return 0 }

// NoPacing reveals everything immediately and never clears a highlight
var NoPacing Pacer = noPacing{}

// sleep waits for d or until ctx is done
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
