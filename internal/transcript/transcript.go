package transcript

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/daikw/agora/internal/voice"
)

var (
	ErrNoOpenDeliberation = errors.New("no open deliberation")
	ErrDeliberationClosed = errors.New("deliberation is completed")
	ErrDeliberationOpen   = errors.New("a deliberation is already open")
	ErrInvalidTurn        = errors.New("only utterances and system lines can be nested")
)

// Transcript is an ordered, immutable list of messages. Every edit returns
// a new value and leaves the receiver untouched, so a snapshot handed to a
// reader never changes under it.
type Transcript struct {
	msgs []Message
}

// New creates a transcript holding msgs
func New(msgs ...Message) Transcript {
	return Transcript{msgs: append([]Message(nil), msgs...)}
}

// Messages returns a copy of the top-level messages
func (t Transcript) Messages() []Message {
	return append([]Message(nil), t.msgs...)
}

// Len returns the number of top-level messages
func (t Transcript) Len() int {
	return len(t.msgs)
}

// Last returns the final top-level message
func (t Transcript) Last() (Message, bool) {
	if len(t.msgs) == 0 {
		return nil, false
	}
	return t.msgs[len(t.msgs)-1], true
}

// Append adds a top-level message. A second open deliberation is refused.
func (t Transcript) Append(m Message) (Transcript, error) {
	if d, ok := m.(Deliberation); ok && d.Open() {
		if _, open := t.Open(); open {
			return t, ErrDeliberationOpen
		}
	}

	out := make([]Message, len(t.msgs), len(t.msgs)+1)
	copy(out, t.msgs)
	return Transcript{msgs: append(out, m)}, nil
}

// lastDeliberation finds the most recent deliberation. Only the last one can be open.
func (t Transcript) lastDeliberation() (int, Deliberation, bool) {
	for i := len(t.msgs) - 1; i >= 0; i-- {
		if d, ok := t.msgs[i].(Deliberation); ok {
			return i, d, true
		}
	}
	return -1, Deliberation{}, false
}

// Open returns the open deliberation, if any
func (t Transcript) Open() (Deliberation, bool) {
	_, d, ok := t.lastDeliberation()
	if !ok || !d.Open() {
		return Deliberation{}, false
	}
	return d, true
}

func (t Transcript) replace(i int, m Message) Transcript {
	out := make([]Message, len(t.msgs))
	copy(out, t.msgs)
	out[i] = m
	return Transcript{msgs: out}
}

func (t Transcript) editOpen(edit func(d Deliberation) Deliberation) (Transcript, error) {
	i, d, ok := t.lastDeliberation()
	if !ok {
		return t, ErrNoOpenDeliberation
	}
	if !d.Open() {
		return t, ErrDeliberationClosed
	}
	return t.replace(i, edit(d)), nil
}

// AppendTurn nests an Utterance or System line in the open deliberation
func (t Transcript) AppendTurn(turn Message) (Transcript, error) {
	switch turn.(type) {
	case Utterance, System:
	default:
		return t, fmt.Errorf("%w: got %s", ErrInvalidTurn, turn.Kind())
	}

	return t.editOpen(func(d Deliberation) Deliberation {
		turns := make([]Message, len(d.Turns), len(d.Turns)+1)
		copy(turns, d.Turns)
		d.Turns = append(turns, turn)
		return d
	})
}

// SetStatus moves the open deliberation to status s
func (t Transcript) SetStatus(s Status) (Transcript, error) {
	return t.editOpen(func(d Deliberation) Deliberation {
		d.Status = s
		return d
	})
}

// Complete closes the open deliberation. Completing an already completed
// deliberation is a no-op.
func (t Transcript) Complete() (Transcript, error) {
	_, d, ok := t.lastDeliberation()
	if ok && !d.Open() {
		return t, nil
	}
	return t.SetStatus(StatusCompleted)
}

// PatchAudio attaches audio to the utterance with the given id and clears
// its pending flag. A nil audio only clears the flag. It reports false when
// no utterance has that id.
func (t Transcript) PatchAudio(id string, audio *voice.Audio) (Transcript, bool) {
	for i, m := range t.msgs {
		switch v := m.(type) {
		case Utterance:
			if v.ID != id {
				continue
			}
			if audio != nil {
				v.Audio = audio
			}
			v.AudioPending = false
			return t.replace(i, v), true
		case Deliberation:
			for j, turn := range v.Turns {
				u, ok := turn.(Utterance)
				if !ok || u.ID != id {
					continue
				}
				if audio != nil {
					u.Audio = audio
				}
				u.AudioPending = false
				turns := make([]Message, len(v.Turns))
				copy(turns, v.Turns)
				turns[j] = u
				v.Turns = turns
				return t.replace(i, v), true
			}
		}
	}
	return t, false
}

// Find looks a message up by id, descending into deliberations
func (t Transcript) Find(id string) (Message, bool) {
	for _, m := range t.msgs {
		if m.Meta().ID == id {
			return m, true
		}
		if d, ok := m.(Deliberation); ok {
			for _, turn := range d.Turns {
				if turn.Meta().ID == id {
					return turn, true
				}
			}
		}
	}
	return nil, false
}

// History renders the last n top-level lines that are neither narration
// nor deliberations, one "Name: text" per line
func (t Transcript) History(n int) string {
	if n <= 0 {
		return ""
	}

	var lines []string
	for i := len(t.msgs) - 1; i >= 0 && len(lines) < n; i-- {
		m := t.msgs[i]
		switch m.Kind() {
		case KindSystem, KindDeliberation:
			continue
		}
		h := m.Meta()
		lines = append(lines, h.SenderName+": "+h.Text)
	}

	// Collected newest first
	for i, j := 0, len(lines)-1; i < j; i, j = i+1, j-1 {
		lines[i], lines[j] = lines[j], lines[i]
	}
	return strings.Join(lines, "\n")
}

// Flatten returns top-level messages with deliberation turns expanded in place
func (t Transcript) Flatten() []Message {
	var out []Message
	for _, m := range t.msgs {
		if d, ok := m.(Deliberation); ok {
			out = append(out, d.Turns...)
			continue
		}
		out = append(out, m)
	}
	return out
}

// MarshalJSON writes the transcript as an array of tagged messages
func (t Transcript) MarshalJSON() ([]byte, error) {
	if t.msgs == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(t.msgs)
}

// UnmarshalJSON reads a transcript written by MarshalJSON
func (t *Transcript) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	msgs := make([]Message, 0, len(raw))
	for _, r := range raw {
		m, err := UnmarshalMessage(r)
		if err != nil {
			return err
		}
		msgs = append(msgs, m)
	}
	t.msgs = msgs
	return nil
}
