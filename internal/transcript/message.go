package transcript

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/daikw/agora/internal/voice"
)

// Kind discriminates the message variants
type Kind string

const (
	KindUser         Kind = "user"
	KindSystem       Kind = "system"
	KindUtterance    Kind = "utterance"
	KindDeliberation Kind = "deliberation"
)

// Status is the progress of a deliberation
type Status string

const (
	StatusThinking    Status = "thinking"
	StatusDebating    Status = "debating"
	StatusSummarizing Status = "summarizing"
	StatusCompleted   Status = "completed"
)

// Header holds the fields every message carries. SenderName is a snapshot
// taken when the message was created.
type Header struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"senderId"`
	SenderName string    `json:"senderName"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Meta returns the header
func (h Header) Meta() Header {
	return h
}

// Message is one of User, System, Utterance or Deliberation
type Message interface {
	Meta() Header
	Kind() Kind
}

// User is a question or remark typed by the user
type User struct {
	Header
}

// System is a narration line from the agora itself
type System struct {
	Header
}

// Utterance is something a persona said
type Utterance struct {
	Header
	Verdict      bool         `json:"verdict,omitempty"`
	Hidden       bool         `json:"hidden,omitempty"`
	Addressed    bool         `json:"addressed,omitempty"`
	Summary      string       `json:"summary,omitempty"`
	Audio        *voice.Audio `json:"audio,omitempty"`
	AudioPending bool         `json:"audioPending,omitempty"`
}

// Deliberation groups the opinions and debate turns of one user turn
type Deliberation struct {
	Header
	Status Status    `json:"status"`
	Turns  []Message `json:"turns"`
}

func (User) Kind() Kind         { return KindUser }
func (System) Kind() Kind       { return KindSystem }
func (Utterance) Kind() Kind    { return KindUtterance }
func (Deliberation) Kind() Kind { return KindDeliberation }

// Open reports whether turns may still be appended
func (d Deliberation) Open() bool {
	return d.Status != StatusCompleted
}

// Utterances returns the nested persona turns, skipping narration
func (d Deliberation) Utterances() []Utterance {
	var out []Utterance
	for _, m := range d.Turns {
		if u, ok := m.(Utterance); ok {
			out = append(out, u)
		}
	}
	return out
}

func (m User) MarshalJSON() ([]byte, error) {
	type alias User
	return json.Marshal(struct {
		Kind Kind `json:"kind"`
		alias
	}{KindUser, alias(m)})
}

func (m System) MarshalJSON() ([]byte, error) {
	type alias System
	return json.Marshal(struct {
		Kind Kind `json:"kind"`
		alias
	}{KindSystem, alias(m)})
}

func (m Utterance) MarshalJSON() ([]byte, error) {
	type alias Utterance
	return json.Marshal(struct {
		Kind Kind `json:"kind"`
		alias
	}{KindUtterance, alias(m)})
}

func (m Deliberation) MarshalJSON() ([]byte, error) {
	type alias Deliberation
	turns := m.Turns
	if turns == nil {
		turns = []Message{}
	}
	a := alias(m)
	a.Turns = turns
	return json.Marshal(struct {
		Kind Kind `json:"kind"`
		alias
	}{KindDeliberation, a})
}

// UnmarshalMessage decodes a message written by one of the MarshalJSON methods
func UnmarshalMessage(data []byte) (Message, error) {
	var probe struct {
		Kind Kind `json:"kind"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, err
	}

	switch probe.Kind {
	case KindUser:
		var m User
		err := json.Unmarshal(data, &m.Header)
		return m, err
	case KindSystem:
		var m System
		err := json.Unmarshal(data, &m.Header)
		return m, err
	case KindUtterance:
		type alias Utterance
		var m alias
		err := json.Unmarshal(data, &m)
		return Utterance(m), err
	case KindDeliberation:
		var raw struct {
			Header
			Status Status            `json:"status"`
			Turns  []json.RawMessage `json:"turns"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		d := Deliberation{Header: raw.Header, Status: raw.Status}
		for _, t := range raw.Turns {
			turn, err := UnmarshalMessage(t)
			if err != nil {
				return nil, err
			}
			d.Turns = append(d.Turns, turn)
		}
		return d, nil
	default:
		return nil, fmt.Errorf("unknown message kind %q", probe.Kind)
	}
}
