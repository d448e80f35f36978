package council

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/daikw/agora/internal/generation"
	"github.com/daikw/agora/internal/llm"
	"github.com/daikw/agora/internal/persona"
	"github.com/daikw/agora/internal/transcript"
	"github.com/daikw/agora/internal/voice"
)

type opinionCall struct {
	id        string
	history   string
	addressed bool
}

// fakeGenerator answers every request with canned content and records what
// it was asked
type fakeGenerator struct {
	mu       sync.Mutex
	seq      int
	opinions []opinionCall
	summary  []transcript.Message
	forced   []string
	voices   []string

	opinionFn func(p persona.Persona) transcript.Utterance
	debateFn  func(opinions []transcript.Utterance) []transcript.Utterance
	verdictFn func(roster persona.Roster, forcedID string) transcript.Message
	speechFn  func(text, voiceName string) *voice.Audio
	personaFn func(name, userContext string) (persona.Persona, error)
}

func (f *fakeGenerator) nextID(prefix string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

func (f *fakeGenerator) RequestOpinion(_ context.Context, p persona.Persona, _, history string, addressed bool) transcript.Utterance {
	f.mu.Lock()
	f.opinions = append(f.opinions, opinionCall{id: p.ID, history: history, addressed: addressed})
	f.mu.Unlock()

	if f.opinionFn != nil {
		return f.opinionFn(p)
	}
	return transcript.Utterance{
		Header:    transcript.Header{ID: f.nextID("op"), SenderID: p.ID, SenderName: p.Name, Text: p.Name + " ponders."},
		Addressed: addressed,
	}
}

func (f *fakeGenerator) RequestDebateRound(_ context.Context, opinions []transcript.Utterance, _ persona.Roster) []transcript.Utterance {
	if f.debateFn != nil {
		return f.debateFn(opinions)
	}
	first := opinions[0]
	return []transcript.Utterance{{
		Header: transcript.Header{ID: f.nextID("turn"), SenderID: first.SenderID, SenderName: first.SenderName, Text: "I object."},
	}}
}

func (f *fakeGenerator) RequestSummary(_ context.Context, _ string, history []transcript.Message) string {
	f.mu.Lock()
	f.summary = history
	f.mu.Unlock()
	return "They disagreed."
}

func (f *fakeGenerator) RequestVerdict(_ context.Context, _, summary string, roster persona.Roster, forcedID string) transcript.Message {
	f.mu.Lock()
	f.forced = append(f.forced, forcedID)
	f.mu.Unlock()

	if f.verdictFn != nil {
		return f.verdictFn(roster, forcedID)
	}
	speaker := roster.List()[0]
	if p, ok := roster.Find(forcedID); ok {
		speaker = p
	}
	return transcript.Utterance{
		Header:  transcript.Header{ID: f.nextID("verdict"), SenderID: speaker.ID, SenderName: speaker.Name, Text: "Choose *peace*."},
		Verdict: true,
		Summary: summary,
	}
}

func (f *fakeGenerator) RequestSpeech(_ context.Context, text, voiceName string) *voice.Audio {
	f.mu.Lock()
	f.voices = append(f.voices, voiceName)
	f.mu.Unlock()

	if f.speechFn != nil {
		return f.speechFn(text, voiceName)
	}
	return voice.NewAudio([]byte{1, 0, 2, 0}, 0, 0)
}

func (f *fakeGenerator) RequestPersona(_ context.Context, name, userContext string) (persona.Persona, error) {
	if f.personaFn != nil {
		return f.personaFn(name, userContext)
	}
	return persona.Persona{
		ID:        persona.Slug(name) + "-1",
		Name:      name,
		Archetype: persona.DefaultArchetype,
		Voice:     persona.VoiceKore,
	}, nil
}

func (f *fakeGenerator) opinionCalls() []opinionCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]opinionCall(nil), f.opinions...)
}

func (f *fakeGenerator) speechVoices() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.voices...)
}

// scriptedService stands in for the language model behind a real
// generation client
func scriptedService(debate, verdict string) llm.Service {
	return llm.ServiceFunc(func(_ context.Context, req llm.Request) (string, error) {
		switch {
		case req.Schema == nil:
			return "Wisdom begins in wonder.", nil
		case req.Schema.Type == llm.TypeArray:
			return debate, nil
		default:
			return verdict, nil
		}
	})
}

func failingService() llm.Service {
	return llm.ServiceFunc(func(context.Context, llm.Request) (string, error) {
		return "", fmt.Errorf("service unavailable")
	})
}

func sequentialIDs(prefix string) func() string {
	var (
		mu sync.Mutex
		n  int
	)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s%d", prefix, n)
	}
}

var fixedTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestCouncil(gen Generator, opts ...Option) *Orchestrator {
	base := []Option{
		WithPacer(NoPacing),
		WithClock(func() time.Time { return fixedTime }),
		WithIDs(sequentialIDs("m")),
	}
	return New(gen, append(base, opts...)...)
}

func newClientCouncil(svc llm.Service, opts ...Option) *Orchestrator {
	client := generation.NewClient(svc, nil,
		generation.WithClock(func() time.Time { return fixedTime }),
		generation.WithIDs(sequentialIDs("g")),
	)
	return newTestCouncil(client, opts...)
}

// roundParts splits a transcript into the pieces every round leaves behind
func roundParts(t *testing.T, tr transcript.Transcript) (transcript.User, transcript.Deliberation, transcript.Message) {
	t.Helper()
	msgs := tr.Messages()
	if len(msgs) < 3 {
		t.Fatalf("expected at least 3 messages, got %d", len(msgs))
	}
	n := len(msgs)
	u, ok := msgs[n-3].(transcript.User)
	if !ok {
		t.Fatalf("expected user message, got %s", msgs[n-3].Kind())
	}
	d, ok := msgs[n-2].(transcript.Deliberation)
	if !ok {
		t.Fatalf("expected deliberation, got %s", msgs[n-2].Kind())
	}
	return u, d, msgs[n-1]
}

func senderIDs(msgs []transcript.Utterance) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.SenderID)
	}
	return out
}

func rosterIDs(r persona.Roster) []string {
	out := make([]string, 0, r.Len())
	for _, p := range r.List() {
		out = append(out, p.ID)
	}
	return out
}

func countKind(tr transcript.Transcript, k transcript.Kind) int {
	n := 0
	for _, m := range tr.Messages() {
		if m.Kind() == k {
			n++
		}
	}
	return n
}

func hasText(turns []transcript.Message, text string) bool {
	for _, m := range turns {
		if strings.Contains(m.Meta().Text, text) {
			return true
		}
	}
	return false
}
