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
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"
	OpenRouterModel   = "google/gemini-2.5-flash-lite"
)

// OpenRouter calls an OpenAI compatible chat completions endpoint
type OpenRouter struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	model      string
}

// NewOpenRouter creates an OpenRouter backend with the default base URL
func NewOpenRouter(apiKey, model string) *OpenRouter {
	return NewOpenRouterWithBaseURL(apiKey, model, OpenRouterBaseURL)
}

// NewOpenRouterWithBaseURL creates an OpenRouter backend with a custom base URL (for testing)
func NewOpenRouterWithBaseURL(apiKey, model, baseURL string) *OpenRouter {
	if model == "" {
		model = OpenRouterModel
	}
	return &OpenRouter{
		httpClient: &http.Client{},
		apiKey:     apiKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		model:      model,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string              `json:"model"`
	Messages       []chatMessage       `json:"messages"`
	ResponseFormat *chatResponseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// schemaInstruction renders a schema as a trailing prompt instruction
func schemaInstruction(s *Schema) (string, error) {
	rendered, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return "Respond only with JSON matching this JSON Schema:\n" + string(rendered), nil
}

// Generate implements Service
func (o *OpenRouter) Generate(ctx context.Context, req Request) (string, error) {
	reqBody := chatRequest{
		Model:    o.model,
		Messages: []chatMessage{{Role: "user", Content: req.Prompt}},
	}
	if req.Schema != nil {
		instruction, err := schemaInstruction(req.Schema)
		if err != nil {
			return "", fmt.Errorf("openrouter: %w", err)
		}
		reqBody.Messages = append([]chatMessage{{Role: "system", Content: instruction}}, reqBody.Messages...)
		reqBody.ResponseFormat = &chatResponseFormat{Type: "json_object"}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("openrouter: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("openrouter: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	log.Debug().
		Str("model", o.model).
		Bool("structured", req.Schema != nil).
		Msg("Making OpenRouter chat completion request")

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("openrouter: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("openrouter: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("openrouter: %w", err)
	}
	if len(chatResp.Choices) == 0 || chatResp.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}
	return chatResp.Choices[0].Message.Content, nil
}
