// Package generation turns council questions into prompts for a text
// service and maps the replies back onto transcript messages. Every
// operation is a single round trip. Failures of opinions, debate rounds,
// summaries and speech degrade to fallback values; verdict failures become
// a system line; persona failures are returned.
package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/daikw/agora/internal/llm"
	"github.com/daikw/agora/internal/persona"
	"github.com/daikw/agora/internal/transcript"
	"github.com/daikw/agora/internal/voice"
)

// Fallback texts
const (
	OpinionFailedText  = "I cannot formulate my thoughts at this moment."
	OpinionEmptyText   = "I am currently lost in thought..."
	SummaryEmptyText   = "The philosophers debated the nature of the issue."
	SummaryFailedText  = "The discussion was complex and varied."
	VerdictDefaultName = "The Moderator"
	VerdictDefaultText = "The debate has concluded, but silence is the only answer."
	VerdictFailedText  = "The debate ended abruptly. The wisdom was lost."
	SystemSenderName   = "System"
)

// ErrPersonaGeneration marks a persona reply without usable data
var ErrPersonaGeneration = errors.New("failed to generate persona data")

var (
	debateSchema  = llm.ArrayOf(llm.Object("speaker", "text"))
	verdictSchema = llm.Object("speaker", "text")
	personaSchema = llm.Object("name", "quote", "archetype", "bio", "style", "gender")
)

// Client performs the council's generation calls
type Client struct {
	svc     llm.Service
	speech  voice.Synthesizer
	now     func() time.Time
	newID   func() string
	timeout time.Duration
}

// Option configures a Client
type Option func(*Client)

// WithClock sets the time source for message timestamps and persona ids
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// WithIDs sets the message id source
func WithIDs(newID func() string) Option {
	return func(c *Client) {
		c.newID = newID
	}
}

// WithTimeout bounds every call. Zero means no bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// NewClient creates a Client. speech may be nil, which disables audio.
func NewClient(svc llm.Service, speech voice.Synthesizer, opts ...Option) *Client {
	c := &Client{
		svc:    svc,
		speech: speech,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) header(senderID, senderName, text string) transcript.Header {
	return transcript.Header{
		ID:         c.newID(),
		SenderID:   senderID,
		SenderName: senderName,
		Text:       text,
		CreatedAt:  c.now(),
	}
}

func (c *Client) generate(ctx context.Context, req llm.Request) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return c.svc.Generate(ctx, req)
}

// RequestOpinion asks one persona for its opening opinion. history is the
// rendered recent conversation and may be empty.
func (c *Client) RequestOpinion(ctx context.Context, p persona.Persona, topic, history string, addressed bool) transcript.Utterance {
	text, err := c.generate(ctx, llm.Request{Prompt: opinionPrompt(p, topic, history, addressed)})
	switch {
	case err != nil:
		log.Warn().Err(err).Str("persona", p.ID).Msg("Opinion request failed")
		text = OpinionFailedText
	case strings.TrimSpace(text) == "":
		text = OpinionEmptyText
	default:
		text = strings.TrimSpace(text)
	}

	return transcript.Utterance{
		Header:    c.header(p.ID, p.Name, text),
		Addressed: addressed,
	}
}

type spokenLine struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// RequestDebateRound asks for a short scripted exchange reacting to the
// opinions. Speakers are resolved against the roster by name; unresolved
// speakers keep their returned name under the unknown sender id.
func (c *Client) RequestDebateRound(ctx context.Context, opinions []transcript.Utterance, roster persona.Roster) []transcript.Utterance {
	raw, err := c.generate(ctx, llm.Request{Prompt: debatePrompt(opinions), Schema: debateSchema})
	if err != nil {
		log.Warn().Err(err).Msg("Debate round request failed")
		return []transcript.Utterance{}
	}

	var lines []spokenLine
	if !parseArray(raw, &lines) {
		log.Warn().Str("reply", raw).Msg("Debate round reply is not a JSON array")
		return []transcript.Utterance{}
	}

	turns := make([]transcript.Utterance, 0, len(lines))
	for _, line := range lines {
		senderID := persona.UnknownID
		if p, ok := roster.FindByName(line.Speaker); ok {
			senderID = p.ID
		}
		turns = append(turns, transcript.Utterance{
			Header: c.header(senderID, line.Speaker, line.Text),
		})
	}

	log.Debug().Int("turns", len(turns)).Msg("Debate round generated")
	return turns
}

// RequestSummary condenses the persona lines of history into at most two
// sentences. Deliberations in history are skipped; callers pass the turns
// they want summarized as separate messages.
func (c *Client) RequestSummary(ctx context.Context, topic string, history []transcript.Message) string {
	var utterances []transcript.Utterance
	for _, m := range history {
		if u, ok := m.(transcript.Utterance); ok {
			utterances = append(utterances, u)
		}
	}

	text, err := c.generate(ctx, llm.Request{Prompt: summaryPrompt(topic, utterances)})
	if err != nil {
		log.Warn().Err(err).Msg("Summary request failed")
		return SummaryFailedText
	}
	if text = strings.TrimSpace(text); text == "" {
		return SummaryEmptyText
	}
	return text
}

// RequestVerdict asks for the closing word. When forcedID names a roster
// member, that member delivers it regardless of the speaker in the reply.
// The result is a verdict Utterance, or a System line when the call fails.
func (c *Client) RequestVerdict(ctx context.Context, topic, summary string, roster persona.Roster, forcedID string) transcript.Message {
	forced, hasForced := persona.Persona{}, false
	if forcedID != "" {
		forced, hasForced = roster.Find(forcedID)
	}

	forcedName := ""
	if hasForced {
		forcedName = forced.Name
	}

	failed := func() transcript.Message {
		return transcript.System{Header: c.header(persona.SystemID, SystemSenderName, VerdictFailedText)}
	}

	raw, err := c.generate(ctx, llm.Request{Prompt: verdictPrompt(topic, summary, forcedName), Schema: verdictSchema})
	if err != nil {
		log.Warn().Err(err).Msg("Verdict request failed")
		return failed()
	}

	var line spokenLine
	if !parseObject(raw, &line) {
		log.Warn().Str("reply", raw).Msg("Verdict reply is not a JSON object")
		return failed()
	}

	senderID, senderName := persona.UnknownID, line.Speaker
	switch {
	case hasForced:
		senderID, senderName = forced.ID, forced.Name
	case senderName == "":
		senderName = VerdictDefaultName
	default:
		if p, ok := roster.FindByName(senderName); ok {
			senderID = p.ID
		}
	}

	text := strings.TrimSpace(line.Text)
	if text == "" {
		text = VerdictDefaultText
	}

	return transcript.Utterance{
		Header:  c.header(senderID, senderName, text),
		Verdict: true,
		Summary: summary,
	}
}

// RequestSpeech synthesizes text in the given council voice. It returns nil
// when speech is disabled, fails, or yields no samples.
func (c *Client) RequestSpeech(ctx context.Context, text, voiceName string) *voice.Audio {
	if c.speech == nil {
		return nil
	}

	clean := voice.StripEmphasis(text)
	if clean == "" {
		return nil
	}
	if voiceName == "" {
		voiceName = persona.VoicePuck
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	audio, err := c.speech.Synthesize(ctx, clean, voiceName)
	if err != nil {
		log.Warn().Err(err).Str("voice", voiceName).Msg("Speech request failed")
		return nil
	}
	if audio.Empty() {
		log.Warn().Str("voice", voiceName).Msg("Speech request returned no audio")
		return nil
	}
	return audio
}

type personaReply struct {
	Name      string `json:"name"`
	Quote     string `json:"quote"`
	Archetype string `json:"archetype"`
	Bio       string `json:"bio"`
	Style     string `json:"style"`
	Gender    string `json:"gender"`
}

// RequestPersona invents a persona for name. userContext is optional
// guidance from the user.
func (c *Client) RequestPersona(ctx context.Context, name, userContext string) (persona.Persona, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return persona.Persona{}, fmt.Errorf("%w: empty name", ErrPersonaGeneration)
	}

	raw, err := c.generate(ctx, llm.Request{Prompt: personaPrompt(name, userContext), Schema: personaSchema})
	if err != nil {
		return persona.Persona{}, fmt.Errorf("failed to generate persona %s: %w", name, err)
	}

	var reply personaReply
	if !parseObject(raw, &reply) {
		return persona.Persona{}, fmt.Errorf("%w: reply is not a JSON object", ErrPersonaGeneration)
	}
	if strings.TrimSpace(reply.Name) == "" {
		return persona.Persona{}, fmt.Errorf("%w: reply has no name", ErrPersonaGeneration)
	}

	p := persona.Persona{
		ID:        persona.NewID(name, c.now()),
		Name:      strings.TrimSpace(reply.Name),
		Quote:     reply.Quote,
		Archetype: persona.NormalizeArchetype(reply.Archetype),
		Bio:       reply.Bio,
		Style:     reply.Style,
		Voice:     persona.VoiceForGender(reply.Gender),
	}
	p.Avatar = persona.AvatarURL(p.Name)

	log.Debug().Str("id", p.ID).Str("name", p.Name).Msg("Persona generated")
	return p, nil
}
