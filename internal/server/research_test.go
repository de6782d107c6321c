package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohammad-safakhou/remedy/internal/agent/core"
	"github.com/mohammad-safakhou/remedy/repository"
	"github.com/mohammad-safakhou/remedy/repository/inmemory"
)

// stubResearcher replays a fixed event list.
type stubResearcher struct {
	calls  int32
	events []core.Event
	last   core.Request
}

func (s *stubResearcher) Run(ctx context.Context, req core.Request, sink core.Sink) error {
	atomic.AddInt32(&s.calls, 1)
	s.last = req
	defer sink.Close()
	for _, ev := range s.events {
		if err := sink.Emit(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

func postResearch(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/research", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeFrames(t *testing.T, body string) []core.Event {
	t.Helper()
	var out []core.Event
	for _, frame := range strings.Split(strings.TrimSpace(body), "\n\n") {
		require.True(t, strings.HasPrefix(frame, "data: "), frame)
		var ev core.Event
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(frame, "data: ")), &ev))
		out = append(out, ev)
	}
	return out
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var m map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	return m["error"]
}

func TestResearchRejectsBlankQuestion(t *testing.T) {
	e := New(Deps{Researcher: &stubResearcher{}, APIKeyConfigured: true})
	rec := postResearch(t, e, `{"question":"   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Question is required", errorBody(t, rec))

	rec = postResearch(t, e, `{"question":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResearchRequiresKeyWhenOnline(t *testing.T) {
	r := &stubResearcher{}
	e := New(Deps{Researcher: r})
	rec := postResearch(t, e, `{"question":"Is zinc safe?"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, errorBody(t, rec), "not configured")
	assert.Zero(t, atomic.LoadInt32(&r.calls))
}

func TestResearchOfflineStreamsDegradedReport(t *testing.T) {
	cache := inmemory.NewReportCache(nil)
	orch := core.NewOrchestrator(nil, nil)
	e := New(Deps{Researcher: orch, Cache: cache})

	rec := postResearch(t, e, `{"question":"Is ashwagandha safe?","offline":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "keep-alive", rec.Header().Get("Connection"))

	events := decodeFrames(t, rec.Body.String())
	require.Len(t, events, 1)
	require.Equal(t, core.EventComplete, events[0].Type)
	assert.True(t, events[0].Report.CreditsUnavailable)
	assert.Empty(t, events[0].Report.Citations)
	assert.Equal(t, 0, cache.Len(), "degraded reports are not cached")
}

func TestResearchCachesCompletedReport(t *testing.T) {
	report := core.HealthReport{SafetyRating: core.SafetyCaution, EvidenceLevel: core.EvidenceModerate, RiskScore: 40, Citations: []core.Citation{}}
	r := &stubResearcher{events: []core.Event{
		core.PlanningEvent([]string{"Classify"}),
		core.SearchingEvent("magnesium lisinopril interaction"),
		core.CompleteEvent(report),
	}}
	cache := inmemory.NewReportCache(nil)
	e := New(Deps{Researcher: r, Cache: cache, CacheTTL: time.Hour, APIKeyConfigured: true})

	rec := postResearch(t, e, `{"question":"Is it safe to take magnesium with lisinopril?"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	events := decodeFrames(t, rec.Body.String())
	require.Len(t, events, 3)
	assert.Equal(t, core.EventPlanning, events[0].Type)
	assert.Equal(t, "Is it safe to take magnesium with lisinopril?", r.last.Question)
	assert.NotEmpty(t, r.last.RequestID)

	cached, ok, err := cache.Get(context.Background(), repository.CacheKey("is it safe to take magnesium with lisinopril?"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 40, cached.RiskScore)

	rec = postResearch(t, e, `{"question":"  IS IT SAFE TO TAKE MAGNESIUM WITH LISINOPRIL?  "}`)
	require.Equal(t, http.StatusOK, rec.Code)
	events = decodeFrames(t, rec.Body.String())
	require.Len(t, events, 1)
	assert.Equal(t, core.EventComplete, events[0].Type)
	assert.Equal(t, core.SafetyCaution, events[0].Report.SafetyRating)
	assert.Equal(t, int32(1), atomic.LoadInt32(&r.calls))
}

func TestResearchOfflineBypassesCache(t *testing.T) {
	question := "Is it safe to take magnesium with lisinopril?"
	cache := inmemory.NewReportCache(nil)
	live := core.HealthReport{SafetyRating: core.SafetyCaution, RiskScore: 40,
		Citations: []core.Citation{{Title: "NIH", URL: "https://ods.od.nih.gov/m"}}}
	require.NoError(t, repository.Store(context.Background(), cache, question, live, time.Hour))

	e := New(Deps{Researcher: core.NewOrchestrator(nil, nil), Cache: cache, APIKeyConfigured: true})
	rec := postResearch(t, e, `{"question":"Is it safe to take magnesium with lisinopril?","offline":true}`)
	require.Equal(t, http.StatusOK, rec.Code)

	events := decodeFrames(t, rec.Body.String())
	require.Len(t, events, 1)
	require.Equal(t, core.EventComplete, events[0].Type)
	assert.True(t, events[0].Report.CreditsUnavailable)
	assert.Empty(t, events[0].Report.Citations)
}

func TestCapturingSinkKeepsLastComplete(t *testing.T) {
	var n int
	s := &capturingSink{Sink: core.SinkFunc(func(context.Context, core.Event) error { n++; return nil })}
	_, ok := s.Report()
	assert.False(t, ok)

	require.NoError(t, s.Emit(context.Background(), core.ErrorEvent("boom")))
	require.NoError(t, s.Emit(context.Background(), core.CompleteEvent(core.HealthReport{RiskScore: 55})))
	got, ok := s.Report()
	require.True(t, ok)
	assert.Equal(t, 55, got.RiskScore)
	assert.Equal(t, 2, n)
}
