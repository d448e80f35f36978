package provider

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/daikw/agora/internal/voice"
)

// MockGCPClient is a mock for the GCP TTS client
type MockGCPClient struct {
	mock.Mock
}

func (m *MockGCPClient) ListVoices(ctx context.Context, req *texttospeechpb.ListVoicesRequest, opts ...gax.CallOption) (*texttospeechpb.ListVoicesResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*texttospeechpb.ListVoicesResponse), args.Error(1)
}

func (m *MockGCPClient) SynthesizeSpeech(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest, opts ...gax.CallOption) (*texttospeechpb.SynthesizeSpeechResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*texttospeechpb.SynthesizeSpeechResponse), args.Error(1)
}

func (m *MockGCPClient) Close() error {
	return nil
}

func newTestGCPProvider(t *testing.T, client GCPClient) *GCPProvider {
	t.Helper()
	p, err := NewGCPProvider(context.Background(), WithGCPClient(client))
	require.NoError(t, err)
	return p
}

func TestGCPProvider_Name(t *testing.T) {
	p := newTestGCPProvider(t, &MockGCPClient{})
	assert.Equal(t, "gcp", p.Name())
}

func TestDetectEngineType(t *testing.T) {
	tests := []struct {
		voiceName string
		expected  string
	}{
		{"en-US-Wavenet-A", "WaveNet"},
		{"en-US-Neural2-D", "Neural2"},
		{"en-US-Studio-O", "Studio"},
		{"en-US-Chirp3-HD-Puck", "Chirp"},
		{"en-US-Standard-A", "Standard"},
	}

	for _, tt := range tests {
		t.Run(tt.voiceName, func(t *testing.T) {
			assert.Equal(t, tt.expected, detectEngineType(tt.voiceName))
		})
	}
}

func TestLanguageFromVoice(t *testing.T) {
	assert.Equal(t, "en-GB", languageFromVoice("en-GB-Neural2-B"))
	assert.Equal(t, "", languageFromVoice("Puck"))
}

func TestGCPProvider_ListVoices(t *testing.T) {
	mockClient := &MockGCPClient{}
	mockClient.On("ListVoices", mock.Anything, mock.MatchedBy(func(req *texttospeechpb.ListVoicesRequest) bool {
		return req.LanguageCode == "en-US"
	})).
		Return(&texttospeechpb.ListVoicesResponse{
			Voices: []*texttospeechpb.Voice{
				{Name: "en-US-Neural2-F", LanguageCodes: []string{"en-US"}, SsmlGender: texttospeechpb.SsmlVoiceGender_FEMALE},
			},
		}, nil)

	voices, err := newTestGCPProvider(t, mockClient).ListVoices(context.Background())
	require.NoError(t, err)
	require.Len(t, voices, 1)
	assert.Equal(t, "female", voices[0].Gender)
	assert.Equal(t, "Neural2 voice", voices[0].Description)
}

func TestGCPProvider_Synthesize(t *testing.T) {
	t.Run("strips the wav header", func(t *testing.T) {
		wav, err := voice.NewAudio([]byte{5, 0, 6, 0}, 24000, 1).WAV()
		require.NoError(t, err)

		mockClient := &MockGCPClient{}
		mockClient.On("SynthesizeSpeech", mock.Anything, mock.MatchedBy(func(req *texttospeechpb.SynthesizeSpeechRequest) bool {
			return req.Voice.Name == "en-GB-Neural2-B" &&
				req.Voice.LanguageCode == "en-GB" &&
				req.AudioConfig.AudioEncoding == texttospeechpb.AudioEncoding_LINEAR16 &&
				req.AudioConfig.SampleRateHertz == 24000 &&
				req.Input.GetText() == "Sapere aude"
		})).Return(&texttospeechpb.SynthesizeSpeechResponse{AudioContent: wav}, nil)

		audio, err := newTestGCPProvider(t, mockClient).Synthesize(context.Background(), "Sapere aude", SynthesizeOptions{Voice: "en-GB-Neural2-B"})
		require.NoError(t, err)
		assert.Equal(t, []byte{5, 0, 6, 0}, audio.PCM)
		assert.Equal(t, 24000, audio.SampleRate)
		mockClient.AssertExpectations(t)
	})

	t.Run("raw pcm passes through", func(t *testing.T) {
		mockClient := &MockGCPClient{}
		mockClient.On("SynthesizeSpeech", mock.Anything, mock.Anything).
			Return(&texttospeechpb.SynthesizeSpeechResponse{AudioContent: []byte{1, 0}}, nil)

		audio, err := newTestGCPProvider(t, mockClient).Synthesize(context.Background(), "Hi", SynthesizeOptions{})
		require.NoError(t, err)
		assert.Equal(t, []byte{1, 0}, audio.PCM)
	})

	t.Run("propagates errors", func(t *testing.T) {
		mockClient := &MockGCPClient{}
		mockClient.On("SynthesizeSpeech", mock.Anything, mock.Anything).Return(nil, errors.New("unavailable"))

		_, err := newTestGCPProvider(t, mockClient).Synthesize(context.Background(), "Hi", SynthesizeOptions{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unavailable")
	})

	t.Run("returns error for empty text", func(t *testing.T) {
		_, err := newTestGCPProvider(t, &MockGCPClient{}).Synthesize(context.Background(), "", SynthesizeOptions{})
		assert.Error(t, err)
	})
}
