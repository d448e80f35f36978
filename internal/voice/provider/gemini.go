package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/daikw/agora/internal/voice"
)

const (
	GeminiBaseURL  = "https://generativelanguage.googleapis.com"
	GeminiTTSModel = "gemini-2.5-flash-preview-tts"
)

// GeminiProvider synthesizes speech with the Gemini prebuilt voices
type GeminiProvider struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewGeminiProvider creates a new Gemini TTS provider
func NewGeminiProvider(apiKey string) *GeminiProvider {
	return &GeminiProvider{
		apiKey:  apiKey,
		baseURL: GeminiBaseURL,
		model:   GeminiTTSModel,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Name returns the provider name
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// ListVoices returns the prebuilt voices used by the council
func (p *GeminiProvider) ListVoices(ctx context.Context) ([]Voice, error) {
	return []Voice{
		{ID: "Puck", Name: "Puck", Language: "en", Description: "Upbeat"},
		{ID: "Charon", Name: "Charon", Language: "en", Description: "Informative"},
		{ID: "Kore", Name: "Kore", Language: "en", Description: "Firm"},
		{ID: "Fenrir", Name: "Fenrir", Language: "en", Description: "Excitable"},
		{ID: "Zephyr", Name: "Zephyr", Language: "en", Description: "Bright"},
	}, nil
}

type geminiSpeechRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiSpeechGeneration `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiSpeechGeneration struct {
	ResponseModalities []string           `json:"responseModalities"`
	SpeechConfig       geminiSpeechConfig `json:"speechConfig"`
}

type geminiSpeechConfig struct {
	VoiceConfig struct {
		PrebuiltVoiceConfig struct {
			VoiceName string `json:"voiceName"`
		} `json:"prebuiltVoiceConfig"`
	} `json:"voiceConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// Synthesize generates audio from text using the Gemini TTS model
func (p *GeminiProvider) Synthesize(ctx context.Context, text string, options SynthesizeOptions) (*voice.Audio, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	voiceName := options.Voice
	if voiceName == "" {
		voiceName = "Puck"
	}
	model := options.Model
	if model == "" {
		model = p.model
	}

	body := geminiSpeechRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: text}}}},
		GenerationConfig: geminiSpeechGeneration{
			ResponseModalities: []string{"AUDIO"},
		},
	}
	body.GenerationConfig.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName = voiceName

	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", p.baseURL, model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", p.apiKey)

	log.Debug().
		Str("model", model).
		Str("voice", voiceName).
		Int("chars", len(text)).
		Msg("Making Gemini TTS request")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gemini API error: status %d, body: %s", resp.StatusCode, string(data))
	}

	var parsed geminiResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	for _, c := range parsed.Candidates {
		for _, part := range c.Content.Parts {
			if part.InlineData == nil || part.InlineData.Data == "" {
				continue
			}
			audio, err := voice.DecodeBase64(part.InlineData.Data, sampleRateFromMime(part.InlineData.MimeType))
			if err != nil {
				return nil, err
			}
			log.Debug().Int("audio_bytes", len(audio.PCM)).Msg("Gemini TTS request successful")
			return audio, nil
		}
	}

	return nil, fmt.Errorf("gemini response contained no audio")
}

// sampleRateFromMime reads the rate parameter of "audio/L16;codec=pcm;rate=24000"
func sampleRateFromMime(mimeType string) int {
	for _, param := range strings.Split(mimeType, ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(param), "=")
		if !ok || !strings.EqualFold(key, "rate") {
			continue
		}
		if rate, err := strconv.Atoi(value); err == nil && rate > 0 {
			return rate
		}
	}
	return voice.DefaultSampleRate
}
