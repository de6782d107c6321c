package openai_provider

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
)

func TestRunWrapsCompletionAsAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		var in request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "gpt-test", in.Model)
		require.Len(t, in.Messages, 1)
		assert.Equal(t, "evidence prompt", in.Messages[0].Content)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"## Safety Rating: Caution"}}]}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient("k", srv.URL, "gpt-test", 0.2, 0, core.NewHTTPClient(time.Second, 0, 0))
	res, err := c.Run(context.Background(), "evidence prompt", core.RunOptions{})
	require.NoError(t, err)
	require.Len(t, res.Output, 1)
	assert.Equal(t, core.OutputTypeAnswer, res.Output[0].Type)
	assert.Equal(t, "## Safety Rating: Caution", res.Output[0].Text)
}

func TestRunEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient("k", srv.URL, "m", 0, 0, core.NewHTTPClient(time.Second, 0, 0))
	_, err := c.Run(context.Background(), "p", core.RunOptions{})
	assert.Error(t, err)
}
