package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeminiProvider_Synthesize(t *testing.T) {
	t.Run("returns error for empty text", func(t *testing.T) {
		_, err := NewGeminiProvider("k").Synthesize(context.Background(), "", SynthesizeOptions{})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "text cannot be empty")
	})

	t.Run("successful synthesis", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/v1beta/models/"+GeminiTTSModel+":generateContent", r.URL.Path)
			assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

			var body geminiSpeechRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, []string{"AUDIO"}, body.GenerationConfig.ResponseModalities)
			assert.Equal(t, "Kore", body.GenerationConfig.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName)
			assert.Equal(t, "Hello", body.Contents[0].Parts[0].Text)

			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"inlineData":{"mimeType":"audio/L16;codec=pcm;rate=24000","data":"AQACAA=="}}]}}]}`))
		}))
		defer server.Close()

		p := NewGeminiProvider("test-key")
		p.baseURL = server.URL

		audio, err := p.Synthesize(context.Background(), "Hello", SynthesizeOptions{Voice: "Kore"})
		require.NoError(t, err)
		assert.Equal(t, []byte{1, 0, 2, 0}, audio.PCM)
		assert.Equal(t, 24000, audio.SampleRate)
	})

	t.Run("no audio in response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"sorry"}]}}]}`))
		}))
		defer server.Close()

		p := NewGeminiProvider("test-key")
		p.baseURL = server.URL

		_, err := p.Synthesize(context.Background(), "Hello", SynthesizeOptions{})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "no audio")
	})

	t.Run("API error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"quota"}}`))
		}))
		defer server.Close()

		p := NewGeminiProvider("test-key")
		p.baseURL = server.URL

		_, err := p.Synthesize(context.Background(), "Hello", SynthesizeOptions{})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "status 429")
	})
}

func TestSampleRateFromMime(t *testing.T) {
	tests := []struct {
		mime     string
		expected int
	}{
		{"audio/L16;codec=pcm;rate=24000", 24000},
		{"audio/L16; rate=16000", 16000},
		{"audio/L16", 24000},
		{"audio/L16;rate=abc", 24000},
		{"", 24000},
	}

	for _, tt := range tests {
		t.Run(tt.mime, func(t *testing.T) {
			assert.Equal(t, tt.expected, sampleRateFromMime(tt.mime))
		})
	}
}
