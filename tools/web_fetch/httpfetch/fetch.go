// Package httpfetch extracts readable article text from pages with a plain
// HTTP GET and go-readability. It serves as the local ContentExtractor when
// the hosted contents endpoint is not used.
package httpfetch

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mohammad-safakhou/remedy/internal/agent/core"
	"github.com/mohammad-safakhou/remedy/internal/helpers"
)

const (
	DefaultUserAgent   = "RemedyResearch/1.0 (+https://github.com/mohammad-safakhou/remedy)"
	DefaultMaxBytes    = 2 << 20
	DefaultMaxChars    = 20000
	DefaultConcurrency = 3
)

var reSpaces = regexp.MustCompile(`[ \t\f\v]+`)

// Fetch downloads each URL and runs readability over the HTML.
type Fetch struct {
	Client      *http.Client
	UserAgent   string
	MaxBytes    int64
	MaxChars    int
	Concurrency int
	Logger      *zap.Logger
}

func New(timeout time.Duration, logger *zap.Logger) *Fetch {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetch{
		Client:      &http.Client{Timeout: timeout},
		UserAgent:   DefaultUserAgent,
		MaxBytes:    DefaultMaxBytes,
		MaxChars:    DefaultMaxChars,
		Concurrency: DefaultConcurrency,
		Logger:      logger.Named("httpfetch"),
	}
}

// Extract returns one page per URL in input order. A URL that cannot be
// fetched or parsed yields a page with nil Markdown; only cancellation is
// reported as an error.
func (f *Fetch) Extract(ctx context.Context, urls []string, _ []string) ([]core.ExtractedPage, error) {
	pages := make([]core.ExtractedPage, len(urls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, f.Concurrency))
	for i, u := range urls {
		pages[i] = core.ExtractedPage{URL: u}
		g.Go(func() (err error) {
			defer func() {
				if p := recover(); p != nil {
					f.logger().Warn("page extraction panicked", zap.String("url", u), zap.Any("panic", p))
					pages[i].Markdown = nil
					err = nil
				}
			}()
			title, text, err := f.fetchOne(gctx, u)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				f.logger().Debug("page extraction failed", zap.String("url", u), zap.Error(err))
				return nil
			}
			pages[i].Title = title
			pages[i].Markdown = &text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return pages, nil
}

func (f *Fetch) fetchOne(ctx context.Context, rawURL string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", "", err
	}
	req.Header.Set("User-Agent", f.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return "", "", fmt.Errorf("status %d", resp.StatusCode)
	}
	body, err := helpers.ReadAllAndClose(resp.Body, f.MaxBytes)
	if err != nil {
		return "", "", err
	}
	title, text, ok := ParseArticle(string(body), rawURL, f.MaxChars)
	if !ok {
		return "", "", fmt.Errorf("no readable content")
	}
	return title, text, nil
}

func (f *Fetch) logger() *zap.Logger {
	if f.Logger == nil {
		return zap.NewNop()
	}
	return f.Logger
}

// ParseArticle runs readability over html and returns the article title and
// its text as blank-line separated paragraphs, cut to maxChars runes.
func ParseArticle(html, pageURL string, maxChars int) (string, string, bool) {
	if strings.TrimSpace(html) == "" {
		return "", "", false
	}
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", "", false
	}
	article, err := readability.FromReader(bytes.NewReader([]byte(html)), u)
	if err != nil {
		return "", "", false
	}
	text := paragraphs(article.TextContent)
	if text == "" {
		return "", "", false
	}
	if maxChars > 0 {
		if r := []rune(text); len(r) > maxChars {
			text = strings.TrimSpace(string(r[:maxChars]))
		}
	}
	return strings.TrimSpace(article.Title), text, true
}

func paragraphs(s string) string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(reSpaces.ReplaceAllString(line, " "))
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n\n")
}
