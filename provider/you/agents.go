package you

import (
	"context"
	"net/http"
	"strings"

	"github.com/mohammad-safakhou/remedy/internal/agent/core"
)

const (
	DefaultBaseURL = "https://api.you.com"
	serviceName    = "You.com Agents"
	agentName      = "advanced"
	defaultSteps   = 3
)

// Agents runs the advanced research agent.
type Agents struct {
	APIKey  string
	BaseURL string
	HTTP    *core.HTTPClient
}

func New(apiKey, baseURL string, httpc *core.HTTPClient) *Agents {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Agents{APIKey: apiKey, BaseURL: strings.TrimRight(baseURL, "/"), HTTP: httpc}
}

type workflowConfig struct {
	MaxWorkflowSteps int `json:"max_workflow_steps"`
}

type runRequest struct {
	Agent          string              `json:"agent"`
	Input          string              `json:"input"`
	Stream         bool                `json:"stream"`
	Tools          []core.ResearchTool `json:"tools"`
	Verbosity      string              `json:"verbosity"`
	WorkflowConfig workflowConfig      `json:"workflow_config"`
}

// Run posts a non-streaming agent run. The caller bounds it with ctx.
func (a *Agents) Run(ctx context.Context, prompt string, opts core.RunOptions) (core.RunResult, error) {
	body := runRequest{
		Agent:          agentName,
		Input:          prompt,
		Tools:          opts.Tools,
		Verbosity:      opts.Verbosity,
		WorkflowConfig: workflowConfig{MaxWorkflowSteps: opts.MaxSteps},
	}
	if len(body.Tools) == 0 {
		body.Tools = []core.ResearchTool{{Type: "research", SearchEffort: "medium", ReportVerbosity: "medium"}}
	}
	if body.Verbosity == "" {
		body.Verbosity = "medium"
	}
	if body.WorkflowConfig.MaxWorkflowSteps <= 0 {
		body.WorkflowConfig.MaxWorkflowSteps = defaultSteps
	}
	headers := map[string]string{"Authorization": "Bearer " + a.APIKey}

	var out core.RunResult
	if err := a.HTTP.DoJSON(ctx, serviceName, http.MethodPost, a.BaseURL+"/v1/agents/runs", headers, body, &out); err != nil {
		return core.RunResult{}, err
	}
	return out, nil
}
