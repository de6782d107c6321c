package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/mohammad-safakhou/remedy/internal/agent/core"
	"github.com/mohammad-safakhou/remedy/internal/agent/telemetry"
	"github.com/mohammad-safakhou/remedy/repository"
)

var researchTracer = otel.Tracer("remedy/internal/server/research")

const cacheWriteTimeout = 5 * time.Second

// ResearchHandler streams research runs as server-sent events.
type ResearchHandler struct {
	researcher Researcher
	cache      repository.ReportCache
	ttl        time.Duration
	keyOK      bool
	timeout    time.Duration
	tel        *telemetry.Telemetry
	logger     *zap.Logger
}

type researchRequest struct {
	Question string `json:"question"`
	Offline  bool   `json:"offline"`
}

func (h *ResearchHandler) Register(g *echo.Group) {
	g.POST("/research", h.research)
}

func (h *ResearchHandler) research(c echo.Context) error {
	var body researchRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	question := strings.TrimSpace(body.Question)
	if question == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Question is required")
	}
	if !body.Offline && !h.keyOK {
		return echo.NewHTTPError(http.StatusInternalServerError, "YOU_API_KEY is not configured")
	}

	req := c.Request()
	ctx, span := researchTracer.Start(req.Context(), "ResearchHandler.research")
	defer span.End()
	span.SetAttributes(attribute.Bool("offline", body.Offline))
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}
	requestID := c.Response().Header().Get(echo.HeaderXRequestID)

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set(echo.HeaderCacheControl, "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.Header().Set("X-Accel-Buffering", "no")
	resp.WriteHeader(http.StatusOK)
	stream := newSSESink(resp)

	// Offline runs never touch the cache, so they always get the degraded report.
	if report, ok := h.lookupOnline(ctx, question, body.Offline); ok {
		span.SetAttributes(attribute.Bool("cache_hit", true))
		h.tel.RecordRun(telemetry.OutcomeCached)
		if err := stream.Emit(ctx, core.CompleteEvent(report)); err != nil {
			h.logger.Debug("cached report not delivered", zap.Error(err))
		}
		return stream.Close()
	}

	sink := &capturingSink{Sink: stream}
	// The response is committed from here on, so failures are only logged.
	err := h.researcher.Run(ctx, core.Request{Question: question, Offline: body.Offline, RequestID: requestID}, sink)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			h.logger.Warn("research run failed", zap.String("request_id", requestID), zap.Error(err))
		}
		return nil
	}
	if report, ok := sink.Report(); ok {
		h.store(ctx, question, report)
	}
	return nil
}

func (h *ResearchHandler) lookupOnline(ctx context.Context, question string, offline bool) (core.HealthReport, bool) {
	if h.cache == nil || offline {
		return core.HealthReport{}, false
	}
	report, ok, err := repository.Lookup(ctx, h.cache, question)
	if err != nil {
		h.logger.Warn("cache lookup failed", zap.Error(err))
		return core.HealthReport{}, false
	}
	return report, ok
}

func (h *ResearchHandler) store(ctx context.Context, question string, report core.HealthReport) {
	if h.cache == nil || !repository.Cacheable(report) {
		return
	}
	// The client may already be gone; the report is still worth keeping.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheWriteTimeout)
	defer cancel()
	if err := repository.Store(ctx, h.cache, question, report, h.ttl); err != nil {
		h.logger.Warn("cache store failed", zap.Error(err))
	}
}

// sseSink writes each event as a `data:` frame and flushes it.
type sseSink struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
}

func newSSESink(w http.ResponseWriter) *sseSink {
	f, _ := w.(http.Flusher)
	return &sseSink{w: w, flusher: f}
}

func (s *sseSink) Emit(_ context.Context, ev core.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write([]byte("data: " + string(data) + "\n\n")); err != nil {
		return err
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}

func (s *sseSink) Close() error { return nil }

// capturingSink remembers the complete event's report on its way through.
type capturingSink struct {
	core.Sink
	mu     sync.Mutex
	report *core.HealthReport
}

func (s *capturingSink) Emit(ctx context.Context, ev core.Event) error {
	if ev.Type == core.EventComplete && ev.Report != nil {
		s.mu.Lock()
		r := *ev.Report
		s.report = &r
		s.mu.Unlock()
	}
	return s.Sink.Emit(ctx, ev)
}

func (s *capturingSink) Report() (core.HealthReport, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.report == nil {
		return core.HealthReport{}, false
	}
	return *s.report, true
}
