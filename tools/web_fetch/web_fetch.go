package web_fetch

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mohammad-safakhou/remedy/internal/agent/core"
	"github.com/mohammad-safakhou/remedy/tools/web_fetch/chromedp"
	"github.com/mohammad-safakhou/remedy/tools/web_fetch/httpfetch"
	"github.com/mohammad-safakhou/remedy/tools/web_fetch/you"
)

const (
	DefaultTimeout  = 15 * time.Second
	MaxCharsDefault = 20000
)

type FetcherType string

const (
	YouFetcherType      FetcherType = "you"
	HTTPFetcherType     FetcherType = "http"
	ChromedpFetcherType FetcherType = "chromedp"
	NoFetcherType       FetcherType = "none"
)

// Options carry what every extractor kind may need.
type Options struct {
	APIKey   string
	BaseURL  string
	HTTP     *core.HTTPClient
	Timeout  time.Duration
	MaxChars int
	Logger   *zap.Logger
}

// NewContentExtractor builds the extractor for kind. NoFetcherType returns a
// nil extractor so the gatherer falls back to search snippets.
func NewContentExtractor(kind FetcherType, opts Options) (core.ContentExtractor, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxChars <= 0 {
		opts.MaxChars = MaxCharsDefault
	}
	switch kind {
	case YouFetcherType, "":
		if opts.HTTP == nil {
			opts.HTTP = core.NewHTTPClient(opts.Timeout, 1, 0)
		}
		return you.New(opts.APIKey, opts.BaseURL, opts.HTTP), nil
	case HTTPFetcherType:
		f := httpfetch.New(opts.Timeout, opts.Logger)
		f.MaxChars = opts.MaxChars
		return f, nil
	case ChromedpFetcherType:
		return chromedp.New(opts.Timeout, opts.MaxChars, opts.Logger), nil
	case NoFetcherType:
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported fetcher type %q", kind)
	}
}

// Filtered skips URLs rejected by Skip before calling Next. Skipped URLs come
// back as pages with nil Markdown, so their snippets stand in for them.
type Filtered struct {
	Next core.ContentExtractor
	Skip func(url string) bool
}

func (f Filtered) Extract(ctx context.Context, urls []string, formats []string) ([]core.ExtractedPage, error) {
	var allowed []string
	for _, u := range urls {
		if !f.Skip(u) {
			allowed = append(allowed, u)
		}
	}
	var fetched []core.ExtractedPage
	if len(allowed) > 0 {
		var err error
		if fetched, err = f.Next.Extract(ctx, allowed, formats); err != nil {
			return nil, err
		}
	}
	byURL := make(map[string]core.ExtractedPage, len(fetched))
	for _, p := range fetched {
		byURL[p.URL] = p
	}
	pages := make([]core.ExtractedPage, 0, len(urls))
	for _, u := range urls {
		if p, ok := byURL[u]; ok {
			pages = append(pages, p)
			continue
		}
		pages = append(pages, core.ExtractedPage{URL: u})
	}
	return pages, nil
}

// WithSkip wraps next with a Filtered extractor unless skip is nil.
func WithSkip(next core.ContentExtractor, skip func(string) bool) core.ContentExtractor {
	if next == nil || skip == nil {
		return next
	}
	return Filtered{Next: next, Skip: skip}
}
