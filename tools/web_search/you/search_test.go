package you

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohammad-safakhou/remedy/internal/agent/core"
)

func TestSearchSendsParamsAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/search", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))
		q := r.URL.Query()
		assert.Equal(t, "magnesium sleep", q.Get("query"))
		assert.Equal(t, "5", q.Get("count"))
		assert.Equal(t, "year", q.Get("freshness"))
		assert.Equal(t, "web", q.Get("livecrawl"))
		_, _ = w.Write([]byte(`{"results":{"web":[{"title":"Magnesium","url":"https://ods.od.nih.gov/m","description":"d","snippets":["s1"]}],"news":[{"title":"N","url":"https://news.example/x"}]}}`))
	}))
	defer srv.Close()

	s := New("secret", srv.URL+"/", core.NewHTTPClient(time.Second, 0, time.Millisecond))
	resp, err := s.Search(context.Background(), "magnesium sleep", core.SearchOptions{Count: 5, Freshness: "year", CrawlMode: "web"})
	require.NoError(t, err)
	require.Len(t, resp.Web, 1)
	assert.Equal(t, "https://ods.od.nih.gov/m", resp.Web[0].URL)
	assert.Equal(t, []string{"s1"}, resp.Web[0].Snippets)
	require.Len(t, resp.News, 1)
}

func TestSearchCreditsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"error":"credits"}`))
	}))
	defer srv.Close()

	s := New("k", srv.URL, core.NewHTTPClient(time.Second, 2, time.Millisecond))
	_, err := s.Search(context.Background(), "q", core.SearchOptions{})
	require.Error(t, err)
	assert.True(t, core.IsCreditsError(err))
	assert.Contains(t, err.Error(), "You.com Search API error 402")
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	s := New("k", "", core.NewHTTPClient(time.Second, 0, 0))
	_, err := s.Search(context.Background(), "  ", core.SearchOptions{})
	require.Error(t, err)
	assert.Equal(t, DefaultBaseURL, s.BaseURL)
}
