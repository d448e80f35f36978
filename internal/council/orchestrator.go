// Package council runs a submission through the opinion, debate and verdict
// phases and keeps the shared session state the surfaces render.
package council

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/daikw/agora/internal/persona"
	"github.com/daikw/agora/internal/transcript"
	"github.com/daikw/agora/internal/voice"
)

var (
	// ErrBusy is returned while a round or a summon is in progress
	ErrBusy = errors.New("the council is busy")
	// ErrNeedsReset is returned after a failed round until Reset is called
	ErrNeedsReset = errors.New("the council must be reset first")
	// ErrEmptyTopic rejects a blank submission
	ErrEmptyTopic = errors.New("topic cannot be empty")
	// ErrUnknownPersona is returned for ids missing from the roster
	ErrUnknownPersona = errors.New("unknown persona")
	// ErrSummonFailed wraps failures to generate or seat a persona
	ErrSummonFailed = errors.New("could not summon persona")
	// ErrRoundStarted is returned by a second Run of the same round
	ErrRoundStarted = errors.New("round already started")
)

// Narration shown in the transcript
const (
	UserName           = "You"
	CouncilName        = "Council"
	SystemName         = "System"
	DeliberatingText   = "Deliberating..."
	DebateOpeningText  = "The Council enters open debate..."
	ConnectionLostText = "The connection to the ethereal plane was lost."

	GreetingID   = "init-1"
	GreetingName = "The Agora"
	GreetingText = "The Council is assembled. We await your dilemma, be it of the heart, the career, or the soul."

	DefaultHistoryLines = 5
)

// SuggestedTopics are offered to users who do not know what to ask
var SuggestedTopics = []string{
	"Should I prioritize ambition or peace of mind?",
	"Is it ethical to lie to protect someone's feelings?",
	"How do I find meaning in a repetitive job?",
	"Is true altruism actually possible?",
}

// Orchestrator is the council session. All state sits behind one mutex.
type Orchestrator struct {
	gen          Generator
	pacer        Pacer
	now          func() time.Time
	newID        func() string
	historyLines int
	greeting     transcript.Message

	mu         sync.Mutex
	phase      Phase
	summoning  bool
	topic      string
	addressee  string
	speaking   string
	speakSeq   uint64
	roster     persona.Roster
	transcript transcript.Transcript

	subs       map[int]func(Event)
	nextSub    int
	pending    []Event
	delivering bool

	background sync.WaitGroup
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithRoster sets the initial roster
func WithRoster(r persona.Roster) Option {
	return func(o *Orchestrator) {
		o.roster = r
	}
}

// WithPacer sets the reveal pacing
func WithPacer(p Pacer) Option {
	return func(o *Orchestrator) {
		o.pacer = p
	}
}

// WithClock sets the time source for message timestamps
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// WithIDs sets the message id source
func WithIDs(newID func() string) Option {
	return func(o *Orchestrator) {
		o.newID = newID
	}
}

// WithHistoryLines sets how many transcript lines opinions see
func WithHistoryLines(n int) Option {
	return func(o *Orchestrator) {
		o.historyLines = n
	}
}

// WithGreeting replaces the message a fresh transcript starts with
func WithGreeting(m transcript.Message) Option {
	return func(o *Orchestrator) {
		o.greeting = m
	}
}

// New creates an idle council backed by gen
func New(gen Generator, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		gen:          gen,
		pacer:        NewPacer(0, 0, 0),
		now:          time.Now,
		newID:        uuid.NewString,
		historyLines: DefaultHistoryLines,
		roster:       persona.DefaultRoster(),
		phase:        PhaseIdle,
		subs:         make(map[int]func(Event)),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.greeting == nil {
		o.greeting = transcript.System{Header: transcript.Header{
			ID:         GreetingID,
			SenderID:   persona.SystemID,
			SenderName: GreetingName,
			Text:       GreetingText,
			CreatedAt:  o.now(),
		}}
	}
	o.transcript = transcript.New(o.greeting)
	return o
}

// Snapshot returns the current state
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

func (o *Orchestrator) snapshotLocked() Snapshot {
	return Snapshot{
		Phase:      o.phase,
		Topic:      o.topic,
		Addressee:  o.addressee,
		Speaking:   o.speaking,
		Summoning:  o.summoning,
		Roster:     o.roster.List(),
		Transcript: o.transcript,
	}
}

// Roster returns the current roster
func (o *Orchestrator) Roster() persona.Roster {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.roster
}

// Wait blocks until background speech synthesis has finished
func (o *Orchestrator) Wait() {
	o.background.Wait()
}

func (o *Orchestrator) header(senderID, senderName, text string) transcript.Header {
	return transcript.Header{
		ID:         o.newID(),
		SenderID:   senderID,
		SenderName: senderName,
		Text:       text,
		CreatedAt:  o.now(),
	}
}

func (o *Orchestrator) systemLine(text string) transcript.System {
	return transcript.System{Header: o.header(persona.SystemID, SystemName, text)}
}

// Address picks the persona that gives the next verdict. An empty id
// clears the choice.
func (o *Orchestrator) Address(id string) error {
	defer o.flush()
	o.mu.Lock()
	defer o.mu.Unlock()

	switch o.phase {
	case PhaseProcessing:
		return ErrBusy
	case PhaseError:
		return ErrNeedsReset
	}
	if id != "" {
		if _, ok := o.roster.Find(id); !ok {
			return fmt.Errorf("%w: %s", ErrUnknownPersona, id)
		}
	}
	if o.addressee == id {
		return nil
	}

	o.addressee = id
	o.emitLocked(EventAddresseeChanged, nil)
	return nil
}

// Reset starts a fresh transcript. The roster is kept.
func (o *Orchestrator) Reset() error {
	defer o.flush()
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.phase == PhaseProcessing {
		return ErrBusy
	}

	o.transcript = transcript.New(o.greeting)
	o.phase = PhaseIdle
	o.topic = ""
	o.addressee = ""
	o.speaking = ""
	o.speakSeq++
	o.emitLocked(EventReset, nil)
	log.Debug().Msg("Council reset")
	return nil
}

// Begin accepts a submission: it records the user message and an open
// deliberation, takes over the addressee and enters processing. The rest
// of the workflow is the returned Round.
func (o *Orchestrator) Begin(topic string) (*Round, error) {
	return o.BeginAddressed(topic, "")
}

// BeginAddressed is Begin with id as the addressee of the round. An empty id
// keeps the current addressee. The submission is checked before anything
// changes, so a refused one leaves the addressee as it was.
func (o *Orchestrator) BeginAddressed(topic, id string) (*Round, error) {
	defer o.flush()
	o.mu.Lock()
	defer o.mu.Unlock()

	switch {
	case o.phase == PhaseProcessing || o.summoning:
		return nil, ErrBusy
	case o.phase == PhaseError:
		return nil, ErrNeedsReset
	}

	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, ErrEmptyTopic
	}

	addressee := o.addressee
	if id != "" {
		if _, ok := o.roster.Find(id); !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownPersona, id)
		}
		addressee = id
	}

	prior := o.transcript
	round := &Round{
		o:         o,
		topic:     topic,
		addressee: addressee,
		roster:    o.roster,
		prior:     prior,
		history:   prior.History(o.historyLines),
	}

	text := DeliberatingText
	if p, ok := o.roster.Find(round.addressee); ok {
		text = fmt.Sprintf("Consulting %s...", p.Name)
	}
	round.user = transcript.User{Header: o.header(persona.UserID, UserName, topic)}
	delib := transcript.Deliberation{
		Header: o.header(persona.SystemID, CouncilName, text),
		Status: transcript.StatusThinking,
	}

	tr, err := prior.Append(round.user)
	if err == nil {
		tr, err = tr.Append(delib)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open deliberation: %w", err)
	}

	if o.phase == PhaseIdle {
		o.topic = topic
	}
	o.transcript = tr
	o.emitLocked(EventMessageAppended, round.user)
	o.emitLocked(EventMessageAppended, delib)

	o.phase = PhaseProcessing
	o.emitLocked(EventPhaseChanged, nil)

	if o.addressee != "" {
		o.addressee = ""
		o.emitLocked(EventAddresseeChanged, nil)
	}

	log.Debug().
		Str("topic", topic).
		Str("addressee", round.addressee).
		Msg("Submission accepted")
	return round, nil
}

// appendTurn nests turn in the open deliberation and highlights its
// speaker when the speaker is a persona
func (o *Orchestrator) appendTurn(turn transcript.Message) error {
	defer o.flush()
	o.mu.Lock()
	defer o.mu.Unlock()

	tr, err := o.transcript.AppendTurn(turn)
	if err != nil {
		return err
	}
	o.transcript = tr
	o.emitLocked(EventTurnAppended, turn)

	if u, ok := turn.(transcript.Utterance); ok {
		o.highlightLocked(u.SenderID, o.pacer.Highlight())
	}
	return nil
}

func (o *Orchestrator) setStatus(s transcript.Status) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	tr, err := o.transcript.SetStatus(s)
	if err != nil {
		return err
	}
	o.transcript = tr
	return nil
}

func (o *Orchestrator) completeDeliberation() error {
	defer o.flush()
	o.mu.Lock()
	defer o.mu.Unlock()

	d, open := o.transcript.Open()
	tr, err := o.transcript.Complete()
	if err != nil {
		return err
	}
	o.transcript = tr
	if open {
		d.Status = transcript.StatusCompleted
		o.emitLocked(EventDeliberationCompleted, d)
	}
	return nil
}

// appendVerdict records the verdict and, for a persona verdict, makes its
// speaker the lasting highlight
func (o *Orchestrator) appendVerdict(m transcript.Message) error {
	defer o.flush()
	o.mu.Lock()
	defer o.mu.Unlock()

	tr, err := o.transcript.Append(m)
	if err != nil {
		return err
	}
	o.transcript = tr
	o.emitLocked(EventMessageAppended, m)
	if u, ok := m.(transcript.Utterance); ok {
		o.highlightLocked(u.SenderID, 0)
	}
	return nil
}

func (o *Orchestrator) finish() {
	defer o.flush()
	o.mu.Lock()
	defer o.mu.Unlock()

	o.phase = PhaseFinished
	o.emitLocked(EventPhaseChanged, nil)
}

// fail records the generic failure line and parks the council in error
func (o *Orchestrator) fail(cause error) {
	defer o.flush()
	o.mu.Lock()
	defer o.mu.Unlock()

	log.Error().Err(cause).Msg("Council round failed")

	line := o.systemLine(ConnectionLostText)
	o.transcript, _ = o.transcript.Append(line)
	o.emitLocked(EventMessageAppended, line)

	o.phase = PhaseError
	o.emitLocked(EventPhaseChanged, nil)
}

// highlightLocked marks id as speaking. A positive d clears the highlight
// after d unless another highlight or a reset came first.
func (o *Orchestrator) highlightLocked(id string, d time.Duration) {
	o.speakSeq++
	seq := o.speakSeq
	if o.speaking != id {
		o.speaking = id
		o.emitLocked(EventSpeakerChanged, nil)
	}
	if d <= 0 {
		return
	}
	time.AfterFunc(d, func() {
		o.clearHighlight(seq)
	})
}

func (o *Orchestrator) clearHighlight(seq uint64) {
	defer o.flush()
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.speakSeq != seq || o.speaking == "" {
		return
	}
	o.speaking = ""
	o.emitLocked(EventSpeakerChanged, nil)
}

// patchAudio attaches clip to the message with the given id if it is still
// in the transcript
func (o *Orchestrator) patchAudio(id string, clip *voice.Audio) {
	defer o.flush()
	o.mu.Lock()
	defer o.mu.Unlock()

	tr, ok := o.transcript.PatchAudio(id, clip)
	if !ok {
		log.Debug().Str("id", id).Msg("Message gone before audio arrived")
		return
	}
	o.transcript = tr
	m, _ := tr.Find(id)
	o.emitLocked(EventAudioPatched, m)
}
