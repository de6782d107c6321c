package provider

import (
	"errors"
	"fmt"
	"time"

	"github.com/mohammad-safakhou/remedy/internal/agent/core"
	openai_provider "github.com/mohammad-safakhou/remedy/provider/openai"
	"github.com/mohammad-safakhou/remedy/provider/you"
)

// Client names a reasoning backend.
type Client string

const (
	You    Client = "you"
	OpenAI Client = "openai"
)

// Options configure NewReasoner.
type Options struct {
	APIKey  string
	BaseURL string
	Model   string
	HTTP    *core.HTTPClient
}

// NewReasoner creates the reasoning client for the given backend.
func NewReasoner(client Client, opts Options) (core.Reasoner, error) {
	if opts.APIKey == "" {
		return nil, errors.New("reasoner api key not set")
	}
	if opts.HTTP == nil {
		// The synthesizer bounds each run; this only guards a hung transport.
		opts.HTTP = core.NewHTTPClient(2*time.Minute, 0, 0)
	}
	switch client {
	case You, "":
		return you.New(opts.APIKey, opts.BaseURL, opts.HTTP), nil
	case OpenAI:
		model := opts.Model
		if model == "" {
			model = "gpt-4o-mini"
		}
		return openai_provider.NewOpenAIClient(opts.APIKey, opts.BaseURL, model, 0.2, 4096, opts.HTTP), nil
	default:
		return nil, fmt.Errorf("unsupported reasoning provider %q", client)
	}
}
