package council

import (
	"context"

	"github.com/daikw/agora/internal/generation"
	"github.com/daikw/agora/internal/persona"
	"github.com/daikw/agora/internal/transcript"
	"github.com/daikw/agora/internal/voice"
)

// Generator produces every piece of content the council needs. Each method
// is a single round trip; only RequestPersona reports failure, the others
// degrade to fallback content.
type Generator interface {
	RequestOpinion(ctx context.Context, p persona.Persona, topic, history string, addressed bool) transcript.Utterance
	RequestDebateRound(ctx context.Context, opinions []transcript.Utterance, roster persona.Roster) []transcript.Utterance
	RequestSummary(ctx context.Context, topic string, history []transcript.Message) string
	RequestVerdict(ctx context.Context, topic, summary string, roster persona.Roster, forcedID string) transcript.Message
	RequestSpeech(ctx context.Context, text, voiceName string) *voice.Audio
	RequestPersona(ctx context.Context, name, userContext string) (persona.Persona, error)
}

var _ Generator = (*generation.Client)(nil)
