package web_search

import (
	"fmt"
	"time"

	"github.com/mohammad-safakhou/remedy/internal/agent/core"
	"github.com/mohammad-safakhou/remedy/tools/web_search/brave"
	"github.com/mohammad-safakhou/remedy/tools/web_search/serper"
	"github.com/mohammad-safakhou/remedy/tools/web_search/you"
)

type Provider string

const (
	YouProvider    Provider = "you"
	SerperProvider Provider = "serper"
	BraveProvider  Provider = "brave"
)

// NewSearchProvider returns the search backend for provider. baseURL may be
// empty to use the provider's public endpoint.
func NewSearchProvider(provider Provider, apiKey, baseURL string, httpc *core.HTTPClient) (core.SearchProvider, error) {
	if httpc == nil {
		httpc = core.NewHTTPClient(15*time.Second, 1, 0)
	}
	switch provider {
	case YouProvider, "":
		return you.New(apiKey, baseURL, httpc), nil
	case SerperProvider:
		return serper.New(apiKey, baseURL, httpc), nil
	case BraveProvider:
		return brave.New(apiKey, baseURL, httpc), nil
	default:
		return nil, fmt.Errorf("unsupported search provider %q", provider)
	}
}
