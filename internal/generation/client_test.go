package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daikw/agora/internal/llm"
	"github.com/daikw/agora/internal/persona"
	"github.com/daikw/agora/internal/transcript"
	"github.com/daikw/agora/internal/voice"
)

var fixedNow = time.UnixMilli(1700000000123)

// scripted answers every request with reply, or fails with err
type scripted struct {
	reply    string
	err      error
	requests []llm.Request
}

func (s *scripted) Generate(ctx context.Context, req llm.Request) (string, error) {
	s.requests = append(s.requests, req)
	return s.reply, s.err
}

func newTestClient(svc llm.Service, speech voice.Synthesizer) *Client {
	n := 0
	return NewClient(svc, speech,
		WithClock(func() time.Time { return fixedNow }),
		WithIDs(func() string {
			n++
			return fmt.Sprintf("m%d", n)
		}),
	)
}

func kant(t *testing.T) persona.Persona {
	t.Helper()
	p, ok := persona.DefaultRoster().Find("kant")
	require.True(t, ok)
	return p
}

func TestRequestOpinion(t *testing.T) {
	tests := []struct {
		name      string
		reply     string
		err       error
		addressed bool
		expected  string
	}{
		{"reply is trimmed", "  Act only by that maxim.  ", nil, false, "Act only by that maxim."},
		{"empty reply", "   ", nil, false, OpinionEmptyText},
		{"service failure", "", errors.New("boom"), true, OpinionFailedText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &scripted{reply: tt.reply, err: tt.err}
			u := newTestClient(svc, nil).RequestOpinion(context.Background(), kant(t), "Is lying wrong?", "", tt.addressed)

			assert.Equal(t, tt.expected, u.Text)
			assert.Equal(t, "kant", u.SenderID)
			assert.Equal(t, "Immanuel Kant", u.SenderName)
			assert.Equal(t, tt.addressed, u.Addressed)
			assert.Equal(t, "m1", u.ID)
			assert.Equal(t, fixedNow, u.CreatedAt)
		})
	}
}

func TestRequestOpinion_Prompt(t *testing.T) {
	svc := &scripted{reply: "ok"}
	p := kant(t)
	c := newTestClient(svc, nil)

	c.RequestOpinion(context.Background(), p, "Is lying wrong?", "You: hello", true)
	require.Len(t, svc.requests, 1)
	prompt := svc.requests[0].Prompt
	assert.Contains(t, prompt, p.Style)
	assert.Contains(t, prompt, `"Is lying wrong?"`)
	assert.Contains(t, prompt, `Previous Discussion Summary: "You: hello"`)
	assert.Contains(t, prompt, "specifically addressed YOU")
	assert.Nil(t, svc.requests[0].Schema)

	c.RequestOpinion(context.Background(), p, "Is lying wrong?", "", false)
	assert.NotContains(t, svc.requests[1].Prompt, "Previous Discussion")
	assert.NotContains(t, svc.requests[1].Prompt, "addressed YOU")
}

func TestRequestDebateRound(t *testing.T) {
	roster := persona.DefaultRoster()
	opinions := []transcript.Utterance{
		{Header: transcript.Header{SenderName: "Socrates", Text: "I know nothing."}},
	}

	t.Run("resolves speakers and keeps unknown ones", func(t *testing.T) {
		svc := &scripted{reply: "```json\n" + `[
			{"speaker": "Socrates", "text": "But Kant, what is duty?"},
			{"speaker": "Immanuel Kant", "text": "The necessity of an action."},
			{"speaker": "Diogenes", "text": "Bah."}
		]` + "\n```"}

		turns := newTestClient(svc, nil).RequestDebateRound(context.Background(), opinions, roster)
		require.Len(t, turns, 3)
		assert.Equal(t, "socrates", turns[0].SenderID)
		assert.Equal(t, "kant", turns[1].SenderID)
		assert.Equal(t, persona.UnknownID, turns[2].SenderID)
		assert.Equal(t, "Diogenes", turns[2].SenderName)
		assert.Equal(t, "Bah.", turns[2].Text)

		require.NotNil(t, svc.requests[0].Schema)
		assert.Equal(t, llm.TypeArray, svc.requests[0].Schema.Type)
		assert.Contains(t, svc.requests[0].Prompt, `Socrates: "I know nothing."`)
	})

	t.Run("service failure yields no turns", func(t *testing.T) {
		turns := newTestClient(&scripted{err: errors.New("boom")}, nil).RequestDebateRound(context.Background(), opinions, roster)
		assert.NotNil(t, turns)
		assert.Empty(t, turns)
	})

	t.Run("unparseable reply yields no turns", func(t *testing.T) {
		turns := newTestClient(&scripted{reply: "The philosophers declined."}, nil).RequestDebateRound(context.Background(), opinions, roster)
		assert.Empty(t, turns)
	})
}

func TestRequestSummary(t *testing.T) {
	history := []transcript.Message{
		transcript.User{Header: transcript.Header{SenderName: "You", Text: "Secret question"}},
		transcript.System{Header: transcript.Header{SenderName: "The Agora", Text: "Narration"}},
		transcript.Utterance{Header: transcript.Header{SenderName: "Socrates", Text: "Ask why."}},
		transcript.Deliberation{Turns: []transcript.Message{
			transcript.Utterance{Header: transcript.Header{SenderName: "Hegel", Text: "Old round."}},
		}},
		transcript.Utterance{Header: transcript.Header{SenderName: "Kant", Text: "Duty."}},
	}

	t.Run("only persona lines reach the prompt", func(t *testing.T) {
		svc := &scripted{reply: " They disagreed about duty. "}
		summary := newTestClient(svc, nil).RequestSummary(context.Background(), "Lying", history)

		assert.Equal(t, "They disagreed about duty.", summary)
		prompt := svc.requests[0].Prompt
		assert.Contains(t, prompt, `Socrates: "Ask why."`)
		assert.Contains(t, prompt, `Kant: "Duty."`)
		assert.NotContains(t, prompt, "Secret question")
		assert.NotContains(t, prompt, "Narration")
		assert.NotContains(t, prompt, "Old round.")
		assert.Contains(t, prompt, "Maximum 2 sentences")
	})

	t.Run("empty reply", func(t *testing.T) {
		summary := newTestClient(&scripted{reply: ""}, nil).RequestSummary(context.Background(), "Lying", history)
		assert.Equal(t, SummaryEmptyText, summary)
	})

	t.Run("service failure", func(t *testing.T) {
		summary := newTestClient(&scripted{err: errors.New("boom")}, nil).RequestSummary(context.Background(), "Lying", history)
		assert.Equal(t, SummaryFailedText, summary)
	})
}

func TestRequestVerdict(t *testing.T) {
	roster := persona.DefaultRoster()

	tests := []struct {
		name         string
		reply        string
		err          error
		forcedID     string
		expectKind   transcript.Kind
		expectSender string
		expectName   string
		expectText   string
	}{
		{
			name:         "speaker resolved by name",
			reply:        `{"speaker":"Marcus Aurelius","text":"Accept what you cannot change."}`,
			expectKind:   transcript.KindUtterance,
			expectSender: "aurelius",
			expectName:   "Marcus Aurelius",
			expectText:   "Accept what you cannot change.",
		},
		{
			name:         "forced speaker overrides reply",
			reply:        `{"speaker":"Socrates","text":"Know thyself."}`,
			forcedID:     "beauvoir",
			expectKind:   transcript.KindUtterance,
			expectSender: "beauvoir",
			expectName:   "Simone de Beauvoir",
			expectText:   "Know thyself.",
		},
		{
			name:         "unknown forced id is ignored",
			reply:        `{"speaker":"Socrates","text":"Know thyself."}`,
			forcedID:     "plato",
			expectKind:   transcript.KindUtterance,
			expectSender: "socrates",
			expectName:   "Socrates",
			expectText:   "Know thyself.",
		},
		{
			name:         "defaults for empty object",
			reply:        `{}`,
			expectKind:   transcript.KindUtterance,
			expectSender: persona.UnknownID,
			expectName:   VerdictDefaultName,
			expectText:   VerdictDefaultText,
		},
		{
			name:         "unknown speaker keeps name",
			reply:        `Here you go: {"speaker":"Hegel","text":"Synthesis."}`,
			expectKind:   transcript.KindUtterance,
			expectSender: persona.UnknownID,
			expectName:   "Hegel",
			expectText:   "Synthesis.",
		},
		{
			name:         "service failure becomes system line",
			err:          errors.New("boom"),
			expectKind:   transcript.KindSystem,
			expectSender: persona.SystemID,
			expectName:   SystemSenderName,
			expectText:   VerdictFailedText,
		},
		{
			name:         "garbage becomes system line",
			reply:        "silence",
			expectKind:   transcript.KindSystem,
			expectSender: persona.SystemID,
			expectName:   SystemSenderName,
			expectText:   VerdictFailedText,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &scripted{reply: tt.reply, err: tt.err}
			m := newTestClient(svc, nil).RequestVerdict(context.Background(), "Ambition?", "They argued.", roster, tt.forcedID)

			require.Equal(t, tt.expectKind, m.Kind())
			h := m.Meta()
			assert.Equal(t, tt.expectSender, h.SenderID)
			assert.Equal(t, tt.expectName, h.SenderName)
			assert.Equal(t, tt.expectText, h.Text)

			if u, ok := m.(transcript.Utterance); ok {
				assert.True(t, u.Verdict)
				assert.Equal(t, "They argued.", u.Summary)
			}
		})
	}
}

func TestRequestVerdict_ForcedPrompt(t *testing.T) {
	svc := &scripted{reply: `{"speaker":"Kant","text":"x"}`}
	newTestClient(svc, nil).RequestVerdict(context.Background(), "Ambition?", "sum", persona.DefaultRoster(), "kant")
	assert.Contains(t, svc.requests[0].Prompt, "You MUST act as Immanuel Kant.")

	svc = &scripted{reply: `{"speaker":"Kant","text":"x"}`}
	newTestClient(svc, nil).RequestVerdict(context.Background(), "Ambition?", "sum", persona.DefaultRoster(), "")
	assert.Contains(t, svc.requests[0].Prompt, "Randomly select one")
}

func TestRequestSpeech(t *testing.T) {
	clip := voice.NewAudio([]byte{1, 0, 2, 0}, 0, 0)

	t.Run("strips emphasis and uses voice", func(t *testing.T) {
		var gotText, gotVoice string
		speech := voice.SynthesizerFunc(func(ctx context.Context, text, v string) (*voice.Audio, error) {
			gotText, gotVoice = text, v
			return clip, nil
		})

		audio := newTestClient(&scripted{}, speech).RequestSpeech(context.Background(), "**Know** # thyself", "Fenrir")
		assert.Same(t, clip, audio)
		assert.Equal(t, "Know  thyself", gotText)
		assert.Equal(t, "Fenrir", gotVoice)
	})

	t.Run("defaults to Puck", func(t *testing.T) {
		var gotVoice string
		speech := voice.SynthesizerFunc(func(ctx context.Context, text, v string) (*voice.Audio, error) {
			gotVoice = v
			return clip, nil
		})
		newTestClient(&scripted{}, speech).RequestSpeech(context.Background(), "hi", "")
		assert.Equal(t, persona.VoicePuck, gotVoice)
	})

	t.Run("nil cases", func(t *testing.T) {
		failing := voice.SynthesizerFunc(func(ctx context.Context, text, v string) (*voice.Audio, error) {
			return nil, errors.New("boom")
		})
		silent := voice.SynthesizerFunc(func(ctx context.Context, text, v string) (*voice.Audio, error) {
			return voice.NewAudio(nil, 0, 0), nil
		})

		assert.Nil(t, newTestClient(&scripted{}, nil).RequestSpeech(context.Background(), "hi", "Kore"))
		assert.Nil(t, newTestClient(&scripted{}, failing).RequestSpeech(context.Background(), "hi", "Kore"))
		assert.Nil(t, newTestClient(&scripted{}, silent).RequestSpeech(context.Background(), "hi", "Kore"))
		assert.Nil(t, newTestClient(&scripted{}, silent).RequestSpeech(context.Background(), "**", "Kore"))
	})
}

func TestRequestPersona(t *testing.T) {
	t.Run("builds persona", func(t *testing.T) {
		svc := &scripted{reply: `{"name":"Simone Weil","quote":"Attention is prayer.","archetype":"the mystic","bio":"French philosopher.","style":"Speak with austere compassion.","gender":"Female"}`}
		p, err := newTestClient(svc, nil).RequestPersona(context.Background(), "simone weil", "")
		require.NoError(t, err)

		assert.Equal(t, "simone-weil-1700000000123", p.ID)
		assert.Equal(t, "Simone Weil", p.Name)
		assert.Equal(t, "The Mystic", p.Archetype)
		assert.Equal(t, persona.VoiceKore, p.Voice)
		assert.Equal(t, "https://picsum.photos/seed/SimoneWeil/200/200", p.Avatar)
		assert.Equal(t, "Attention is prayer.", p.Quote)

		schema := svc.requests[0].Schema
		require.NotNil(t, schema)
		assert.ElementsMatch(t, []string{"name", "quote", "archetype", "bio", "style", "gender"}, schema.Required)
	})

	t.Run("context reaches prompt", func(t *testing.T) {
		svc := &scripted{reply: `{"name":"Hume","gender":"male"}`}
		p, err := newTestClient(svc, nil).RequestPersona(context.Background(), "Hume", "an empiricist")
		require.NoError(t, err)
		assert.Equal(t, persona.DefaultArchetype, p.Archetype)
		assert.Equal(t, persona.VoicePuck, p.Voice)
		assert.True(t, strings.Contains(svc.requests[0].Prompt, `Context provided by user: "an empiricist"`))
	})

	t.Run("errors propagate", func(t *testing.T) {
		tests := []struct {
			name  string
			input string
			svc   *scripted
		}{
			{"service failure", "Hume", &scripted{err: errors.New("boom")}},
			{"missing name", "Hume", &scripted{reply: `{"quote":"x"}`}},
			{"not json", "Hume", &scripted{reply: "who?"}},
			{"empty request", "  ", &scripted{reply: `{"name":"Hume"}`}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := newTestClient(tt.svc, nil).RequestPersona(context.Background(), tt.input, "")
				assert.Error(t, err)
			})
		}
	})
}

func TestClient_Timeout(t *testing.T) {
	svc := llm.ServiceFunc(func(ctx context.Context, req llm.Request) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	c := NewClient(svc, nil, WithTimeout(10*time.Millisecond))

	u := c.RequestOpinion(context.Background(), persona.Persona{ID: "kant", Name: "Kant"}, "t", "", false)
	assert.Equal(t, OpinionFailedText, u.Text)
}

func TestParseJSON(t *testing.T) {
	var lines []spokenLine
	assert.True(t, parseArray(`[{"speaker":"A","text":"b"}]`, &lines))
	assert.True(t, parseArray("```\n[{\"speaker\":\"A\",\"text\":\"b\"}]\n```", &lines))
	assert.True(t, parseArray(`Sure! [{"speaker":"A","text":"b"}] Hope that helps.`, &lines))
	assert.False(t, parseArray(`no json here`, &lines))

	var line spokenLine
	assert.True(t, parseObject(`prefix {"speaker":"A","text":"b"} suffix`, &line))
	assert.Equal(t, "A", line.Speaker)
}
