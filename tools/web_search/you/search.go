package you

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/mohammad-safakhou/remedy/internal/agent/core"
)

const (
	DefaultBaseURL = "https://ydc-index.io"
	serviceName    = "You.com Search"
)

// Search queries the You.com web index.
type Search struct {
	APIKey  string
	BaseURL string
	HTTP    *core.HTTPClient
}

func New(apiKey, baseURL string, httpc *core.HTTPClient) *Search {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Search{APIKey: apiKey, BaseURL: strings.TrimRight(baseURL, "/"), HTTP: httpc}
}

type searchResponse struct {
	Results struct {
		Web  []core.SearchResult `json:"web"`
		News []core.SearchResult `json:"news"`
	} `json:"results"`
}

func (s *Search) Search(ctx context.Context, query string, opts core.SearchOptions) (core.SearchResponse, error) {
	if strings.TrimSpace(query) == "" {
		return core.SearchResponse{}, errors.New("empty query")
	}
	params := url.Values{}
	params.Set("query", query)
	if opts.Count > 0 {
		params.Set("count", strconv.Itoa(opts.Count))
	}
	if opts.Freshness != "" {
		params.Set("freshness", opts.Freshness)
	}
	if opts.CrawlMode != "" {
		params.Set("livecrawl", opts.CrawlMode)
		params.Set("livecrawl_formats", "markdown")
	}

	var raw searchResponse
	headers := map[string]string{"X-API-Key": s.APIKey}
	if err := s.HTTP.DoJSON(ctx, serviceName, http.MethodGet, s.BaseURL+"/v1/search?"+params.Encode(), headers, nil, &raw); err != nil {
		return core.SearchResponse{}, err
	}
	return core.SearchResponse{Web: raw.Results.Web, News: raw.Results.News}, nil
}
