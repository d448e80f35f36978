package council

import (
	"runtime/debug"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/daikw/agora/internal/persona"
	"github.com/daikw/agora/internal/transcript"
)

// EventType names a state change
type EventType string

const (
	EventMessageAppended       EventType = "message_appended"
	EventTurnAppended          EventType = "turn_appended"
	EventDeliberationCompleted EventType = "deliberation_completed"
	EventAudioPatched          EventType = "audio_patched"
	EventPhaseChanged          EventType = "phase_changed"
	EventSpeakerChanged        EventType = "speaker_changed"
	EventAddresseeChanged      EventType = "addressee_changed"
	EventRosterChanged         EventType = "roster_changed"
	EventReset                 EventType = "reset"
)

// Phase is the state of the council workflow
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseProcessing Phase = "processing"
	PhaseFinished   Phase = "finished"
	PhaseError      Phase = "error"
)

// Snapshot is a copy of the council state at one instant
type Snapshot struct {
	Phase      Phase                 `json:"phase"`
	Topic      string                `json:"topic"`
	Addressee  string                `json:"addressee"`
	Speaking   string                `json:"speaking"`
	Summoning  bool                  `json:"summoning"`
	Roster     []persona.Persona     `json:"roster"`
	Transcript transcript.Transcript `json:"transcript"`
}

// Event reports one state change. Message is set for events about a single
// message: the appended message, the nested turn, the completed
// deliberation or the patched utterance.
type Event struct {
	Type     EventType          `json:"type"`
	Message  transcript.Message `json:"message,omitempty"`
	At       time.Time          `json:"at"`
	Snapshot Snapshot           `json:"snapshot"`
}

// Subscribe registers fn to be called after every state change. Calls are
// made in the order the changes happened and never while the council is
// locked, so fn may read the council. The returned func unsubscribes.
func (o *Orchestrator) Subscribe(fn func(Event)) (cancel func()) {
	o.mu.Lock()
	defer o.mu.Unlock()

	id := o.nextSub
	o.nextSub++
	o.subs[id] = fn

	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		delete(o.subs, id)
	}
}

// emitLocked queues an event carrying the current state. o.mu must be held.
func (o *Orchestrator) emitLocked(t EventType, m transcript.Message) {
	o.pending = append(o.pending, Event{
		Type:     t,
		Message:  m,
		At:       o.now(),
		Snapshot: o.snapshotLocked(),
	})
}

// flush delivers queued events. Only one goroutine delivers at a time; a
// flush that finds another delivery in progress leaves its events to it.
func (o *Orchestrator) flush() {
	o.mu.Lock()
	if o.delivering {
		o.mu.Unlock()
		return
	}
	o.delivering = true
	for len(o.pending) > 0 {
		batch := o.pending
		o.pending = nil
		subs := make([]func(Event), 0, len(o.subs))
		for _, id := range o.subOrder() {
			subs = append(subs, o.subs[id])
		}
		o.mu.Unlock()

		for _, e := range batch {
			for _, fn := range subs {
				safeCall(fn, e)
			}
		}

		o.mu.Lock()
	}
	o.delivering = false
	o.mu.Unlock()
}

// subOrder returns subscription ids in registration order. o.mu must be held.
func (o *Orchestrator) subOrder() []int {
	ids := make([]int, 0, len(o.subs))
	for id := 0; id < o.nextSub; id++ {
		if _, ok := o.subs[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

func safeCall(fn func(Event), e Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("event", string(e.Type)).
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("Event subscriber panicked")
		}
	}()
	fn(e)
}
