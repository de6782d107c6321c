// Package chromedp renders pages in headless Chrome before readability
// extraction, for sources that build their content with JavaScript.
package chromedp

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/mohammad-safakhou/remedy/internal/agent/core"
	"github.com/mohammad-safakhou/remedy/tools/web_fetch/httpfetch"
)

type Fetch struct {
	Timeout   time.Duration // per page
	MaxChars  int
	UserAgent string
	Logger    *zap.Logger
}

func New(timeout time.Duration, maxChars int, logger *zap.Logger) *Fetch {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetch{Timeout: timeout, MaxChars: maxChars, UserAgent: httpfetch.DefaultUserAgent, Logger: logger.Named("chromedp")}
}

// Extract renders each URL in its own tab of one browser. Pages that fail to
// render keep a nil Markdown.
func (f *Fetch) Extract(ctx context.Context, urls []string, _ []string) ([]core.ExtractedPage, error) {
	if len(urls) == 0 {
		return nil, nil
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.UserAgent(f.UserAgent),
	)
	actx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	bctx, cancelBrowser := chromedp.NewContext(actx)
	defer cancelBrowser()

	pages := make([]core.ExtractedPage, len(urls))
	for i, u := range urls {
		pages[i] = core.ExtractedPage{URL: u}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		html, err := f.render(bctx, u)
		if err != nil {
			f.Logger.Debug("render failed", zap.String("url", u), zap.Error(err))
			continue
		}
		title, text, ok := httpfetch.ParseArticle(html, u, f.MaxChars)
		if !ok {
			continue
		}
		pages[i].Title = title
		pages[i].Markdown = &text
	}
	return pages, nil
}

func (f *Fetch) render(bctx context.Context, url string) (string, error) {
	if strings.TrimSpace(url) == "" {
		return "", errors.New("invalid url")
	}
	tctx, cancelTab := chromedp.NewContext(bctx)
	defer cancelTab()
	timeout := f.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	tctx, cancel := context.WithTimeout(tctx, timeout)
	defer cancel()

	var html string
	err := chromedp.Run(tctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	return html, err
}
