package openai_provider

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/mohammad-safakhou/remedy/internal/agent/core"
)

const (
	DefaultBaseURL = "https://api.openai.com"
	serviceName    = "OpenAI"
)

// client implements core.Reasoner over chat completions. It has no browsing
// tools, so it only reasons over the evidence already placed in the prompt.
type client struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
	http        *core.HTTPClient
}

// Message represents a message in a conversation
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type request struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type response struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func NewOpenAIClient(apiKey, baseURL, model string, temperature float64, maxTokens int, httpc *core.HTTPClient) *client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &client{
		apiKey:      apiKey,
		baseURL:     strings.TrimRight(baseURL, "/"),
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		http:        httpc,
	}
}

func (c *client) Run(ctx context.Context, prompt string, _ core.RunOptions) (core.RunResult, error) {
	body := request{
		Model:       c.model,
		Messages:    []Message{{Role: "user", Content: prompt}},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}
	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}

	var out response
	if err := c.http.DoJSON(ctx, serviceName, http.MethodPost, c.baseURL+"/v1/chat/completions", headers, body, &out); err != nil {
		return core.RunResult{}, err
	}
	if len(out.Choices) == 0 {
		return core.RunResult{}, errors.New("openai: no choices in response")
	}
	return core.RunResult{Output: []core.OutputItem{{Type: core.OutputTypeAnswer, Text: out.Choices[0].Message.Content}}}, nil
}
