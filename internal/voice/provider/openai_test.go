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

func TestNewOpenAIProvider(t *testing.T) {
	provider := NewOpenAIProvider("test-api-key")

	assert.NotNil(t, provider)
	assert.Equal(t, "test-api-key", provider.apiKey)
	assert.Equal(t, OpenAIBaseURL, provider.baseURL)
	assert.NotNil(t, provider.httpClient)
	assert.Equal(t, "openai", provider.Name())
}

func TestOpenAIProvider_ListVoices(t *testing.T) {
	voices, err := NewOpenAIProvider("k").ListVoices(context.Background())
	require.NoError(t, err)
	assert.Len(t, voices, 6)

	// Every default mapping targets a real voice
	ids := make(map[string]bool)
	for _, v := range voices {
		ids[v.ID] = true
	}
	for name, id := range DefaultVoiceMap("openai") {
		assert.True(t, ids[id], "voice %s maps to unknown %s", name, id)
	}
}

func TestOpenAIProvider_Synthesize(t *testing.T) {
	t.Run("returns error for empty text", func(t *testing.T) {
		_, err := NewOpenAIProvider("test-api-key").Synthesize(context.Background(), "", SynthesizeOptions{})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "text cannot be empty")
	})

	t.Run("requests pcm", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "POST", r.Method)
			assert.Equal(t, OpenAITTSEndpoint, r.URL.Path)
			assert.Contains(t, r.Header.Get("Authorization"), "Bearer test-api-key")

			var body openAISpeechRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "pcm", body.ResponseFormat)
			assert.Equal(t, "onyx", body.Voice)
			assert.Equal(t, 1.0, body.Speed)

			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte{1, 0, 2, 0})
		}))
		defer server.Close()

		provider := NewOpenAIProvider("test-api-key")
		provider.baseURL = server.URL

		audio, err := provider.Synthesize(context.Background(), "Hello world", SynthesizeOptions{Voice: "onyx"})
		require.NoError(t, err)
		assert.Equal(t, []byte{1, 0, 2, 0}, audio.PCM)
		assert.Equal(t, 24000, audio.SampleRate)
	})

	t.Run("API error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"Invalid API key","type":"invalid_request_error","code":"invalid_api_key"}}`))
		}))
		defer server.Close()

		provider := NewOpenAIProvider("bad-key")
		provider.baseURL = server.URL

		_, err := provider.Synthesize(context.Background(), "Hello", SynthesizeOptions{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Invalid API key")
		assert.Contains(t, err.Error(), "status 401")
	})
}

func TestClampSpeed(t *testing.T) {
	assert.Equal(t, 1.0, clampSpeed(0))
	assert.Equal(t, 0.25, clampSpeed(0.1))
	assert.Equal(t, 4.0, clampSpeed(10))
	assert.Equal(t, 1.5, clampSpeed(1.5))
}
