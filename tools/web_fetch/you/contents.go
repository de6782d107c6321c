package you

import (
	"context"
	"net/http"
	"strings"

	"github.com/mohammad-safakhou/remedy/internal/agent/core"
)

const (
	DefaultBaseURL = "https://ydc-index.io"
	serviceName    = "You.com Contents"
	crawlTimeout   = 10
)

// Contents extracts page bodies through the You.com contents endpoint.
type Contents struct {
	APIKey  string
	BaseURL string
	HTTP    *core.HTTPClient
}

func New(apiKey, baseURL string, httpc *core.HTTPClient) *Contents {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Contents{APIKey: apiKey, BaseURL: strings.TrimRight(baseURL, "/"), HTTP: httpc}
}

type contentsRequest struct {
	URLs         []string `json:"urls"`
	Formats      []string `json:"formats"`
	CrawlTimeout int      `json:"crawl_timeout"`
}

type contentsResult struct {
	URL      string  `json:"url"`
	Title    string  `json:"title"`
	Markdown *string `json:"markdown"`
	HTML     *string `json:"html"`
}

func (c *Contents) Extract(ctx context.Context, urls []string, formats []string) ([]core.ExtractedPage, error) {
	if len(urls) == 0 {
		return nil, nil
	}
	if len(formats) == 0 {
		formats = []string{"markdown"}
	}
	body := contentsRequest{URLs: urls, Formats: formats, CrawlTimeout: crawlTimeout}
	headers := map[string]string{"X-API-Key": c.APIKey}

	var raw []contentsResult
	if err := c.HTTP.DoJSON(ctx, serviceName, http.MethodPost, c.BaseURL+"/v1/contents", headers, body, &raw); err != nil {
		return nil, err
	}
	pages := make([]core.ExtractedPage, 0, len(raw))
	for _, r := range raw {
		pages = append(pages, core.ExtractedPage{URL: r.URL, Title: r.Title, Markdown: r.Markdown, HTML: r.HTML})
	}
	return pages, nil
}
