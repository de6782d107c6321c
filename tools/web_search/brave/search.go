package brave

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/mohammad-safakhou/remedy/internal/agent/core"
)

const (
	DefaultBaseURL = "https://api.search.brave.com"
	serviceName    = "Brave Search"
)

// freshness maps the shared window names onto Brave's codes.
var freshness = map[string]string{"day": "pd", "week": "pw", "month": "pm", "year": "py"}

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

type braveResult struct {
	Title         string   `json:"title"`
	URL           string   `json:"url"`
	Description   string   `json:"description"`
	ExtraSnippets []string `json:"extra_snippets"`
	PageAge       string   `json:"page_age"`
	MetaURL       struct {
		Favicon string `json:"favicon"`
	} `json:"meta_url"`
}

func (s *Search) Search(ctx context.Context, query string, opts core.SearchOptions) (core.SearchResponse, error) {
	// https://api.search.brave.com/app/documentation/web-search
	params := url.Values{}
	params.Set("q", query)
	if opts.Count > 0 {
		params.Set("count", strconv.Itoa(opts.Count))
	}
	if f, ok := freshness[opts.Freshness]; ok {
		params.Set("freshness", f)
	}
	var raw struct {
		Web struct {
			Results []braveResult `json:"results"`
		} `json:"web"`
		News struct {
			Results []braveResult `json:"results"`
		} `json:"news"`
	}
	headers := map[string]string{"X-Subscription-Token": s.APIKey}
	if err := s.HTTP.DoJSON(ctx, serviceName, http.MethodGet, s.BaseURL+"/res/v1/web/search?"+params.Encode(), headers, nil, &raw); err != nil {
		return core.SearchResponse{}, err
	}
	return core.SearchResponse{Web: convert(raw.Web.Results), News: convert(raw.News.Results)}, nil
}

func convert(in []braveResult) []core.SearchResult {
	out := make([]core.SearchResult, 0, len(in))
	for _, r := range in {
		out = append(out, core.SearchResult{
			Title:       r.Title,
			URL:         r.URL,
			Description: r.Description,
			Snippets:    r.ExtraSnippets,
			FaviconURL:  r.MetaURL.Favicon,
			PageAge:     r.PageAge,
		})
	}
	return out
}
