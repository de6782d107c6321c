package web_search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohammad-safakhou/remedy/internal/agent/core"
	"github.com/mohammad-safakhou/remedy/tools/web_search/you"
)

func TestNewSearchProviderDefaultsToYou(t *testing.T) {
	p, err := NewSearchProvider("", "k", "", nil)
	require.NoError(t, err)
	assert.IsType(t, &you.Search{}, p)

	_, err = NewSearchProvider("bing", "k", "", nil)
	assert.Error(t, err)
}

func TestBraveProviderMapsResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/res/v1/web/search", r.URL.Path)
		assert.Equal(t, "bk", r.Header.Get("X-Subscription-Token"))
		assert.Equal(t, "py", r.URL.Query().Get("freshness"))
		_, _ = w.Write([]byte(`{"web":{"results":[{"title":"T","url":"https://nih.gov/a","description":"D","extra_snippets":["e1"],"meta_url":{"favicon":"https://nih.gov/f.ico"}}]}}`))
	}))
	defer srv.Close()

	p, err := NewSearchProvider(BraveProvider, "bk", srv.URL, core.NewHTTPClient(time.Second, 0, 0))
	require.NoError(t, err)
	resp, err := p.Search(context.Background(), "q", core.SearchOptions{Count: 3, Freshness: "year"})
	require.NoError(t, err)
	require.Len(t, resp.Web, 1)
	assert.Equal(t, core.SearchResult{Title: "T", URL: "https://nih.gov/a", Description: "D", Snippets: []string{"e1"}, FaviconURL: "https://nih.gov/f.ico"}, resp.Web[0])
	assert.Empty(t, resp.News)
}

func TestSerperProviderMapsResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "sk", r.Header.Get("X-API-KEY"))
		var in map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "q", in["q"])
		assert.Equal(t, "qdr:m", in["tbs"])
		_, _ = w.Write([]byte(`{"organic":[{"title":"T","link":"https://mayoclinic.org/x","snippet":"S"}]}`))
	}))
	defer srv.Close()

	p, err := NewSearchProvider(SerperProvider, "sk", srv.URL, core.NewHTTPClient(time.Second, 0, 0))
	require.NoError(t, err)
	resp, err := p.Search(context.Background(), "q", core.SearchOptions{Freshness: "month"})
	require.NoError(t, err)
	require.Len(t, resp.Web, 1)
	assert.Equal(t, "https://mayoclinic.org/x", resp.Web[0].URL)
	assert.Equal(t, []string{"S"}, resp.Web[0].Snippets)
}
