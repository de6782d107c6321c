package serper

import (
	"context"
	"net/http"
	"strings"

	"github.com/mohammad-safakhou/remedy/internal/agent/core"
)

const (
	DefaultBaseURL = "https://google.serper.dev"
	serviceName    = "Serper"
)

var tbs = map[string]string{"day": "qdr:d", "week": "qdr:w", "month": "qdr:m", "year": "qdr:y"}

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

type organic struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
	Date    string `json:"date"`
}

func (s *Search) Search(ctx context.Context, query string, opts core.SearchOptions) (core.SearchResponse, error) {
	// https://serper.dev/ docs
	payload := map[string]any{"q": query}
	if opts.Count > 0 {
		payload["num"] = opts.Count
	}
	if v, ok := tbs[opts.Freshness]; ok {
		payload["tbs"] = v
	}
	var raw struct {
		Organic []organic `json:"organic"`
		News    []organic `json:"news"`
	}
	headers := map[string]string{"X-API-KEY": s.APIKey}
	if err := s.HTTP.DoJSON(ctx, serviceName, http.MethodPost, s.BaseURL+"/search", headers, payload, &raw); err != nil {
		return core.SearchResponse{}, err
	}
	return core.SearchResponse{Web: convert(raw.Organic), News: convert(raw.News)}, nil
}

func convert(in []organic) []core.SearchResult {
	out := make([]core.SearchResult, 0, len(in))
	for _, o := range in {
		r := core.SearchResult{Title: o.Title, URL: o.Link, Description: o.Snippet, PageAge: o.Date}
		if o.Snippet != "" {
			r.Snippets = []string{o.Snippet}
		}
		out = append(out, r)
	}
	return out
}
