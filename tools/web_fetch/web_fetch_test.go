package web_fetch

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohammad-safakhou/remedy/internal/agent/core"
	"github.com/mohammad-safakhou/remedy/tools/web_fetch/chromedp"
	"github.com/mohammad-safakhou/remedy/tools/web_fetch/httpfetch"
	"github.com/mohammad-safakhou/remedy/tools/web_fetch/you"
)

func TestNewContentExtractor(t *testing.T) {
	e, err := NewContentExtractor(YouFetcherType, Options{APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &you.Contents{}, e)

	e, err = NewContentExtractor(HTTPFetcherType, Options{MaxChars: 500})
	require.NoError(t, err)
	require.IsType(t, &httpfetch.Fetch{}, e)
	assert.Equal(t, 500, e.(*httpfetch.Fetch).MaxChars)

	e, err = NewContentExtractor(ChromedpFetcherType, Options{})
	require.NoError(t, err)
	assert.IsType(t, &chromedp.Fetch{}, e)

	e, err = NewContentExtractor(NoFetcherType, Options{})
	require.NoError(t, err)
	assert.Nil(t, e)

	_, err = NewContentExtractor("selenium", Options{})
	assert.Error(t, err)
}

type recordingExtractor struct {
	got []string
}

func (r *recordingExtractor) Extract(_ context.Context, urls []string, _ []string) ([]core.ExtractedPage, error) {
	r.got = urls
	pages := make([]core.ExtractedPage, 0, len(urls))
	for _, u := range urls {
		body := "body of " + u
		pages = append(pages, core.ExtractedPage{URL: u, Markdown: &body})
	}
	return pages, nil
}

func TestFilteredSkipsPolicyHosts(t *testing.T) {
	next := &recordingExtractor{}
	ex := WithSkip(next, func(u string) bool { return strings.Contains(u, "nejm.org") })

	pages, err := ex.Extract(context.Background(), []string{"https://nih.gov/a", "https://nejm.org/b", "https://cdc.gov/c"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://nih.gov/a", "https://cdc.gov/c"}, next.got)
	require.Len(t, pages, 3)
	assert.NotNil(t, pages[0].Markdown)
	assert.Equal(t, "https://nejm.org/b", pages[1].URL)
	assert.Nil(t, pages[1].Markdown)
	assert.NotNil(t, pages[2].Markdown)

	next.got = nil
	pages, err = ex.Extract(context.Background(), []string{"https://nejm.org/only"}, nil)
	require.NoError(t, err)
	assert.Nil(t, next.got)
	require.Len(t, pages, 1)

	assert.Same(t, next, WithSkip(next, nil))
}
