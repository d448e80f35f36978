package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	GeminiBaseURL   = "https://generativelanguage.googleapis.com"
	GeminiTextModel = "gemini-flash-lite-latest"
)

// Gemini calls the Gemini generateContent REST endpoint
type Gemini struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	model      string
}

// GeminiOption configures a Gemini backend
type GeminiOption func(*Gemini)

// WithGeminiBaseURL points the backend at another host (for testing)
func WithGeminiBaseURL(baseURL string) GeminiOption {
	return func(g *Gemini) {
		g.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithGeminiModel selects the model
func WithGeminiModel(model string) GeminiOption {
	return func(g *Gemini) {
		g.model = model
	}
}

// WithGeminiHTTPClient replaces the HTTP client
func WithGeminiHTTPClient(c *http.Client) GeminiOption {
	return func(g *Gemini) {
		g.httpClient = c
	}
}

// NewGemini creates a Gemini backend
func NewGemini(apiKey string, opts ...GeminiOption) *Gemini {
	g := &Gemini{
		httpClient: &http.Client{},
		apiKey:     apiKey,
		baseURL:    GeminiBaseURL,
		model:      GeminiTextModel,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type geminiRequest struct {
	Contents         []geminiContent   `json:"contents"`
	GenerationConfig *geminiGeneration `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGeneration struct {
	ResponseMimeType string          `json:"responseMimeType,omitempty"`
	ResponseSchema   *geminiSchemaJS `json:"responseSchema,omitempty"`
}

// geminiSchemaJS is the OpenAPI flavoured schema Gemini expects, with
// upper-case type names
type geminiSchemaJS struct {
	Type        string                     `json:"type"`
	Description string                     `json:"description,omitempty"`
	Properties  map[string]*geminiSchemaJS `json:"properties,omitempty"`
	Items       *geminiSchemaJS            `json:"items,omitempty"`
	Required    []string                   `json:"required,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
}

func toGeminiSchema(s *Schema) *geminiSchemaJS {
	if s == nil {
		return nil
	}
	out := &geminiSchemaJS{
		Type:        strings.ToUpper(s.Type),
		Description: s.Description,
		Items:       toGeminiSchema(s.Items),
		Required:    s.Required,
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*geminiSchemaJS, len(s.Properties))
		for k, v := range s.Properties {
			out.Properties[k] = toGeminiSchema(v)
		}
	}
	return out
}

// Generate implements Service
func (g *Gemini) Generate(ctx context.Context, req Request) (string, error) {
	reqBody := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: req.Prompt}}}},
	}
	if req.Schema != nil {
		reqBody.GenerationConfig = &geminiGeneration{
			ResponseMimeType: "application/json",
			ResponseSchema:   toGeminiSchema(req.Schema),
		}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.baseURL, g.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.apiKey)

	log.Debug().
		Str("model", g.model).
		Bool("structured", req.Schema != nil).
		Msg("Making Gemini generation request")

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("gemini: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var genResp geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	if len(genResp.Candidates) == 0 {
		return "", ErrEmptyResponse
	}

	var text strings.Builder
	for _, part := range genResp.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	if text.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return text.String(), nil
}
