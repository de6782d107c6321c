package you

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

func TestRunPostsAgentRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/agents/runs", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		var in map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "advanced", in["agent"])
		assert.Equal(t, "prompt", in["input"])
		assert.Equal(t, false, in["stream"])
		assert.Equal(t, "medium", in["verbosity"])
		assert.Equal(t, map[string]any{"max_workflow_steps": float64(2)}, in["workflow_config"])
		tools := in["tools"].([]any)
		require.Len(t, tools, 1)
		assert.Equal(t, "research", tools[0].(map[string]any)["type"])
		_, _ = w.Write([]byte(`{"output":[
			{"type":"web_search.results","content":[{"url":"https://nih.gov/a","title":"A","snippet":"s"},{"citation_uri":"https://mayoclinic.org/b","title":"B"}]},
			{"type":"message.answer","text":"## Answer"}
		]}`))
	}))
	defer srv.Close()

	a := New("tok", srv.URL, core.NewHTTPClient(time.Second, 0, 0))
	res, err := a.Run(context.Background(), "prompt", core.RunOptions{
		Tools:    []core.ResearchTool{{Type: "research", SearchEffort: "low", ReportVerbosity: "medium"}},
		MaxSteps: 2,
	})
	require.NoError(t, err)
	require.Len(t, res.Output, 2)
	assert.Equal(t, core.OutputTypeResults, res.Output[0].Type)
	assert.Equal(t, "https://mayoclinic.org/b", res.Output[0].Content[1].CitationURI)
	assert.Equal(t, "## Answer", res.Output[1].Text)
}

func TestRunCreditsExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte("Payment Required"))
	}))
	defer srv.Close()

	a := New("tok", srv.URL, core.NewHTTPClient(time.Second, 1, time.Millisecond))
	_, err := a.Run(context.Background(), "prompt", core.RunOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrCreditsExhausted)
}
