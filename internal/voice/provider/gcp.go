package provider

import (
	"context"
	"fmt"
	"strings"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
	"google.golang.org/grpc"

	"github.com/daikw/agora/internal/voice"
)

const (
	gcpSampleRate = 24000

	// A long verdict at 24kHz LINEAR16 can exceed the 4MB gRPC default
	gcpMaxRecvBytes = 32 << 20
)

// GCPClient is the subset of the Cloud Text-to-Speech client the provider uses
type GCPClient interface {
	ListVoices(ctx context.Context, req *texttospeechpb.ListVoicesRequest, opts ...gax.CallOption) (*texttospeechpb.ListVoicesResponse, error)
	SynthesizeSpeech(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest, opts ...gax.CallOption) (*texttospeechpb.SynthesizeSpeechResponse, error)
	Close() error
}

// GCPProvider implements the Provider interface for Google Cloud Text-to-Speech
type GCPProvider struct {
	client          GCPClient
	credentialsFile string
	projectID       string
	voice           string
	language        string
}

// GCPProviderOption is a functional option for configuring GCPProvider
type GCPProviderOption func(*GCPProvider)

// WithGCPVoice sets the default voice
func WithGCPVoice(voice string) GCPProviderOption {
	return func(p *GCPProvider) {
		p.voice = voice
	}
}

// WithGCPLanguage sets the default language code
func WithGCPLanguage(language string) GCPProviderOption {
	return func(p *GCPProvider) {
		p.language = language
	}
}

// WithGCPCredentialsFile authenticates with a service account key file
// instead of Application Default Credentials
func WithGCPCredentialsFile(path string) GCPProviderOption {
	return func(p *GCPProvider) {
		p.credentialsFile = path
	}
}

// WithGCPProjectID bills requests to the given quota project
func WithGCPProjectID(projectID string) GCPProviderOption {
	return func(p *GCPProvider) {
		p.projectID = projectID
	}
}

// WithGCPClient uses an existing client
func WithGCPClient(client GCPClient) GCPProviderOption {
	return func(p *GCPProvider) {
		p.client = client
	}
}

// NewGCPProvider creates a new Google Cloud TTS provider
// Authentication is handled via GOOGLE_APPLICATION_CREDENTIALS environment variable,
// an explicit credentials file, or Application Default Credentials (ADC)
func NewGCPProvider(ctx context.Context, opts ...GCPProviderOption) (*GCPProvider, error) {
	p := &GCPProvider{
		voice:    "en-US-Neural2-D",
		language: "en-US",
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.client == nil {
		var clientOpts []option.ClientOption
		if p.credentialsFile != "" {
			clientOpts = append(clientOpts, option.WithCredentialsFile(p.credentialsFile))
		}
		if p.projectID != "" {
			clientOpts = append(clientOpts, option.WithQuotaProject(p.projectID))
		}

		client, err := texttospeech.NewClient(ctx, clientOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create GCP TTS client: %w", err)
		}
		p.client = client
	}

	return p, nil
}

// Name returns the provider name
func (p *GCPProvider) Name() string {
	return "gcp"
}

// ListVoices returns available voices for the provider language
func (p *GCPProvider) ListVoices(ctx context.Context) ([]Voice, error) {
	resp, err := p.client.ListVoices(ctx, &texttospeechpb.ListVoicesRequest{LanguageCode: p.language})
	if err != nil {
		return nil, fmt.Errorf("failed to list GCP voices: %w", err)
	}

	var voices []Voice
	for _, v := range resp.Voices {
		gender := "unknown"
		switch v.SsmlGender {
		case texttospeechpb.SsmlVoiceGender_MALE:
			gender = "male"
		case texttospeechpb.SsmlVoiceGender_FEMALE:
			gender = "female"
		case texttospeechpb.SsmlVoiceGender_NEUTRAL:
			gender = "neutral"
		}

		language := p.language
		if len(v.LanguageCodes) > 0 {
			language = v.LanguageCodes[0]
		}

		voices = append(voices, Voice{
			ID:          v.Name,
			Name:        v.Name,
			Language:    language,
			Gender:      gender,
			Description: fmt.Sprintf("%s voice", detectEngineType(v.Name)),
		})
	}

	log.Debug().Int("count", len(voices)).Msg("Listed GCP TTS voices")
	return voices, nil
}

// detectEngineType determines the engine type from voice name
func detectEngineType(voiceName string) string {
	name := strings.ToLower(voiceName)
	switch {
	case strings.Contains(name, "wavenet"):
		return "WaveNet"
	case strings.Contains(name, "neural2"):
		return "Neural2"
	case strings.Contains(name, "studio"):
		return "Studio"
	case strings.Contains(name, "chirp"):
		return "Chirp"
	default:
		return "Standard"
	}
}

// languageFromVoice extracts the language from a voice name (en-US-Neural2-D -> en-US)
func languageFromVoice(voiceName string) string {
	parts := strings.Split(voiceName, "-")
	if len(parts) >= 3 {
		return parts[0] + "-" + parts[1]
	}
	return ""
}

// Synthesize generates 24 kHz LINEAR16 audio from text using Google Cloud TTS
func (p *GCPProvider) Synthesize(ctx context.Context, text string, options SynthesizeOptions) (*voice.Audio, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	voiceName := p.voice
	if options.Voice != "" {
		voiceName = options.Voice
	}

	language := p.language
	if options.Language != "" {
		language = options.Language
	} else if fromVoice := languageFromVoice(voiceName); fromVoice != "" {
		language = fromVoice
	}

	req := &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: language,
			Name:         voiceName,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding:   texttospeechpb.AudioEncoding_LINEAR16,
			SpeakingRate:    clampSpeed(options.Speed),
			SampleRateHertz: gcpSampleRate,
		},
	}

	log.Debug().
		Str("voice", voiceName).
		Str("language", language).
		Msg("Making GCP TTS synthesis request")

	resp, err := p.client.SynthesizeSpeech(ctx, req,
		gax.WithGRPCOptions(grpc.MaxCallRecvMsgSize(gcpMaxRecvBytes)))
	if err != nil {
		return nil, fmt.Errorf("failed to synthesize speech: %w", err)
	}

	log.Debug().
		Int("audio_bytes", len(resp.AudioContent)).
		Msg("GCP TTS synthesis successful")

	// LINEAR16 responses carry a WAV header
	if audio, err := voice.ParseWAV(resp.AudioContent); err == nil {
		return audio, nil
	}
	return voice.NewAudio(resp.AudioContent, gcpSampleRate, 1), nil
}

// Close closes the GCP client
func (p *GCPProvider) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}
