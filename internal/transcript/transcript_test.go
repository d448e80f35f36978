package transcript

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daikw/agora/internal/voice"
)

var at = time.Unix(1700000000, 0).UTC()

func header(id, sender, name, text string) Header {
	return Header{ID: id, SenderID: sender, SenderName: name, Text: text, CreatedAt: at}
}

func user(id, text string) User {
	return User{Header: header(id, "user", "You", text)}
}

func system(id, text string) System {
	return System{Header: header(id, "system", "The Agora", text)}
}

func utterance(id, sender, name, text string) Utterance {
	return Utterance{Header: header(id, sender, name, text)}
}

func deliberation(id string) Deliberation {
	return Deliberation{Header: header(id, "system", "Council", "Deliberating..."), Status: StatusThinking}
}

func mustAppend(t *testing.T, tr Transcript, m Message) Transcript {
	t.Helper()
	out, err := tr.Append(m)
	require.NoError(t, err)
	return out
}

func TestAppend_LeavesReceiverUntouched(t *testing.T) {
	base := New(system("s1", "Welcome"))
	next := mustAppend(t, base, user("u1", "Hello"))

	assert.Equal(t, 1, base.Len())
	assert.Equal(t, 2, next.Len())

	last, ok := next.Last()
	require.True(t, ok)
	assert.Equal(t, "u1", last.Meta().ID)
}

func TestAppend_RefusesSecondOpenDeliberation(t *testing.T) {
	tr := mustAppend(t, New(), deliberation("d1"))

	_, err := tr.Append(deliberation("d2"))
	assert.ErrorIs(t, err, ErrDeliberationOpen)

	// Once completed a new one may open
	tr, err = tr.Complete()
	require.NoError(t, err)
	tr = mustAppend(t, tr, deliberation("d2"))

	open, ok := tr.Open()
	require.True(t, ok)
	assert.Equal(t, "d2", open.ID)
}

func TestAppendTurn(t *testing.T) {
	t.Run("NoDeliberation", func(t *testing.T) {
		_, err := New(user("u1", "hi")).AppendTurn(utterance("o1", "kant", "Kant", "Duty."))
		assert.ErrorIs(t, err, ErrNoOpenDeliberation)
	})

	t.Run("NestsIntoOpen", func(t *testing.T) {
		tr := mustAppend(t, New(user("u1", "hi")), deliberation("d1"))
		before := tr

		tr, err := tr.AppendTurn(utterance("o1", "kant", "Kant", "Duty."))
		require.NoError(t, err)
		tr, err = tr.AppendTurn(system("s1", "The Council enters open debate..."))
		require.NoError(t, err)

		open, ok := tr.Open()
		require.True(t, ok)
		require.Len(t, open.Turns, 2)
		assert.Equal(t, "o1", open.Turns[0].Meta().ID)
		assert.Len(t, open.Utterances(), 1)

		// Earlier snapshot still has an empty container
		prev, _ := before.Open()
		assert.Empty(t, prev.Turns)
	})

	t.Run("RejectsNestedDeliberation", func(t *testing.T) {
		tr := mustAppend(t, New(), deliberation("d1"))
		_, err := tr.AppendTurn(deliberation("d2"))
		assert.ErrorIs(t, err, ErrInvalidTurn)
	})

	t.Run("ClosedDeliberation", func(t *testing.T) {
		tr := mustAppend(t, New(), deliberation("d1"))
		tr, err := tr.Complete()
		require.NoError(t, err)

		_, err = tr.AppendTurn(utterance("o1", "kant", "Kant", "Late."))
		assert.ErrorIs(t, err, ErrDeliberationClosed)
	})
}

func TestComplete_Idempotent(t *testing.T) {
	tr := mustAppend(t, New(), deliberation("d1"))
	tr, err := tr.SetStatus(StatusDebating)
	require.NoError(t, err)

	once, err := tr.Complete()
	require.NoError(t, err)
	twice, err := once.Complete()
	require.NoError(t, err)

	assert.Equal(t, once, twice)
	_, open := twice.Open()
	assert.False(t, open)

	_, err = New().Complete()
	assert.ErrorIs(t, err, ErrNoOpenDeliberation)
}

func TestPatchAudio(t *testing.T) {
	verdict := utterance("v1", "kant", "Kant", "Act well.")
	verdict.Verdict = true
	verdict.Summary = "They agreed."
	verdict.AudioPending = true
	tr := mustAppend(t, New(user("u1", "hi")), verdict)

	audio := voice.NewAudio([]byte{1, 0}, 0, 0)

	t.Run("AttachesAudio", func(t *testing.T) {
		patched, ok := tr.PatchAudio("v1", audio)
		require.True(t, ok)

		m, found := patched.Find("v1")
		require.True(t, found)
		u := m.(Utterance)
		assert.Same(t, audio, u.Audio)
		assert.False(t, u.AudioPending)
		// Text, summary and verdict flag are untouched
		assert.Equal(t, "Act well.", u.Text)
		assert.Equal(t, "They agreed.", u.Summary)
		assert.True(t, u.Verdict)

		orig, _ := tr.Find("v1")
		assert.True(t, orig.(Utterance).AudioPending)
	})

	t.Run("NilClearsPending", func(t *testing.T) {
		patched, ok := tr.PatchAudio("v1", nil)
		require.True(t, ok)
		m, _ := patched.Find("v1")
		assert.Nil(t, m.(Utterance).Audio)
		assert.False(t, m.(Utterance).AudioPending)
	})

	t.Run("UnknownID", func(t *testing.T) {
		patched, ok := tr.PatchAudio("missing", audio)
		assert.False(t, ok)
		assert.Equal(t, tr, patched)
	})

	t.Run("NestedUtterance", func(t *testing.T) {
		nested := mustAppend(t, New(), deliberation("d1"))
		nested, err := nested.AppendTurn(utterance("o1", "kant", "Kant", "Duty."))
		require.NoError(t, err)

		patched, ok := nested.PatchAudio("o1", audio)
		require.True(t, ok)
		m, _ := patched.Find("o1")
		assert.Same(t, audio, m.(Utterance).Audio)
	})
}

func TestHistory(t *testing.T) {
	tr := New(
		system("s0", "Welcome"),
		user("u1", "Is lying ever right?"),
		deliberation("d1"),
		utterance("v1", "kant", "Immanuel Kant", "Never."),
		user("u2", "Even to a murderer?"),
		utterance("v2", "kant", "Immanuel Kant", "Even then."),
		system("s1", "Hypatia has joined the Council."),
	)

	assert.Equal(t, "Immanuel Kant: Even then.", tr.History(1))
	assert.Equal(t,
		"You: Is lying ever right?\nImmanuel Kant: Never.\nYou: Even to a murderer?\nImmanuel Kant: Even then.",
		tr.History(5))
	assert.Equal(t, "", tr.History(0))
	assert.Equal(t, "", New().History(5))
}

func TestFlatten(t *testing.T) {
	tr := mustAppend(t, New(user("u1", "hi")), deliberation("d1"))
	tr, err := tr.AppendTurn(utterance("o1", "kant", "Kant", "Duty."))
	require.NoError(t, err)

	var ids []string
	for _, m := range tr.Flatten() {
		ids = append(ids, m.Meta().ID)
	}
	assert.Equal(t, []string{"u1", "o1"}, ids)
}

func TestJSON(t *testing.T) {
	verdict := utterance("v1", "kant", "Kant", "Act well.")
	verdict.Verdict = true
	verdict.Audio = voice.NewAudio([]byte{1, 0}, 24000, 1)

	tr := mustAppend(t, New(user("u1", "hi")), deliberation("d1"))
	tr, err := tr.AppendTurn(utterance("o1", "kant", "Kant", "Duty."))
	require.NoError(t, err)
	tr, err = tr.Complete()
	require.NoError(t, err)
	tr = mustAppend(t, tr, verdict)

	data, err := json.Marshal(tr)
	require.NoError(t, err)

	var raw []map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Len(t, raw, 3)
	assert.Equal(t, "user", raw[0]["kind"])
	assert.Equal(t, "deliberation", raw[1]["kind"])
	assert.Equal(t, "completed", raw[1]["status"])
	assert.Equal(t, "utterance", raw[1]["turns"].([]any)[0].(map[string]any)["kind"])
	assert.Equal(t, true, raw[2]["verdict"])
	assert.NotContains(t, raw[0], "audio")

	var decoded Transcript
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, tr, decoded)
}

func TestJSON_EmptyDeliberation(t *testing.T) {
	data, err := json.Marshal(deliberation("d1"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"turns":[]`)

	data, err = json.Marshal(New())
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestUnmarshalMessage_UnknownKind(t *testing.T) {
	_, err := UnmarshalMessage([]byte(`{"kind":"telegram"}`))
	assert.Error(t, err)
}
