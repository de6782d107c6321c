package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/mohammad-safakhou/remedy/internal/agent/telemetry"
	"github.com/mohammad-safakhou/remedy/internal/helpers"
	"github.com/mohammad-safakhou/remedy/internal/lexicon"
)

// Roles reported through agent_role events and AgentRolesUsed.
const (
	RoleClassifier = "Query Classifier"
	RoleResearch   = "Research Agent"
	RoleReader     = "Reader Agent"
	RoleReasoning  = "Reasoning Agent"
	RoleLocal      = "Local Synthesis"
	RoleSafety     = "Safety Analyst"
)

// CreditsErrorMessage precedes the degraded complete event of a run that hit
// exhausted credits.
const CreditsErrorMessage = "Live research credits are unavailable. Continuing with a degraded report."

// ErrEmptyQuestion is returned for blank questions.
var ErrEmptyQuestion = errors.New("question is required")

// Stage is a state of the research run.
type Stage string

const (
	StagePlanning   Stage = "planning"
	StageSearching  Stage = "searching"
	StageReading    Stage = "reading"
	StageReasoning  Stage = "reasoning"
	StageFinalizing Stage = "finalizing"
	StageComplete   Stage = "complete"
	StageError      Stage = "error"
)

var stageOrder = map[Stage]int{
	StagePlanning:   1,
	StageSearching:  2,
	StageReading:    3,
	StageReasoning:  4,
	StageFinalizing: 5,
	StageComplete:   6,
	StageError:      7,
}

var orchestratorTracer trace.Tracer = otel.Tracer("remedy/internal/agent/orchestrator")

// Request is one question to research.
type Request struct {
	Question string
	Offline  bool
	// RequestID correlates logs and spans; a random one is used when empty.
	RequestID string
}

// Orchestrator sequences the research stages and streams their events.
type Orchestrator struct {
	gatherer  *Gatherer
	synth     *Synthesizer
	logger    *zap.Logger
	telemetry *telemetry.Telemetry
	now       func() time.Time
}

// OrchestratorOption customizes an Orchestrator.
type OrchestratorOption func(*Orchestrator)

func WithLogger(l *zap.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

func WithTelemetry(t *telemetry.Telemetry) OrchestratorOption {
	return func(o *Orchestrator) { o.telemetry = t }
}

// WithClock overrides the time source used for GeneratedAt.
func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// NewOrchestrator creates an orchestrator. The gatherer and synthesizer may
// be nil only for offline use.
func NewOrchestrator(g *Gatherer, s *Synthesizer, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		gatherer: g,
		synth:    s,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.Named("orchestrator")
	return o
}

// run is the state of one research run.
type run struct {
	ctx     context.Context
	sink    Sink
	logger  *zap.Logger
	tel     *telemetry.Telemetry
	stage   Stage
	roles   []string
	credits bool
	flagged bool
}

// Run researches one question and streams its events to sink. Sink.Close is
// called exactly once before Run returns. A cancelled context stops the run
// silently and Run returns the context error.
func (o *Orchestrator) Run(ctx context.Context, req Request, sink Sink) (err error) {
	runID := req.RequestID
	if runID == "" {
		runID = uuid.NewString()
	}
	ctx, span := orchestratorTracer.Start(ctx, "research.run", trace.WithAttributes(
		attribute.String("run.id", runID),
		attribute.Bool("run.offline", req.Offline),
	))
	defer span.End()

	r := &run{
		ctx:    ctx,
		sink:   sink,
		logger: o.logger.With(zap.String("run_id", runID)),
		tel:    o.telemetry,
	}

	defer func() {
		if cerr := sink.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close sink: %w", cerr)
		}
	}()
	defer func() {
		p := recover()
		if p == nil {
			return
		}
		err = o.recoverRun(r, req, p)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	question := strings.TrimSpace(req.Question)
	switch {
	case ctx.Err() != nil:
		o.telemetry.RecordRun(telemetry.OutcomeAborted)
		return ctx.Err()
	case question == "":
		o.telemetry.RecordRun(telemetry.OutcomeError)
		_ = r.emit(ErrorEvent("Question is required"))
		return ErrEmptyQuestion
	case req.Offline:
		r.logger.Info("offline run, skipping live research")
		if err := r.emit(CompleteEvent(OfflineReport(question, o.now()))); err != nil {
			return o.abort(r, err)
		}
		o.telemetry.RecordRun(telemetry.OutcomeOffline)
		return nil
	}

	if err := o.research(r, question); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return o.abort(r, err)
	}
	span.SetStatus(codes.Ok, "completed")
	return nil
}

func (o *Orchestrator) research(r *run, question string) error {
	if o.gatherer == nil || o.synth == nil {
		panic("orchestrator: live research needs a gatherer and a synthesizer")
	}

	// Planning
	end, err := r.enter(StagePlanning)
	if err != nil {
		return err
	}
	plan := Classify(question)
	err = r.emit(PlanningEvent(plan.Tasks), r.role(RoleClassifier))
	end()
	if err != nil {
		return err
	}

	// Searching
	if end, err = r.enter(StageSearching); err != nil {
		return err
	}
	evs := []Event{r.role(RoleResearch)}
	for _, q := range plan.Queries {
		evs = append(evs, SearchingEvent(q))
	}
	if err := r.emit(evs...); err != nil {
		end()
		return err
	}
	found := o.gatherer.Search(r.ctx, plan)
	end()
	if err := r.emit(found.Events()...); err != nil {
		return err
	}
	r.credits = found.CreditsError
	r.logger.Info("search complete", zap.Int("sources", len(found.Citations)), zap.Bool("credits", found.CreditsError))

	// Reading
	if end, err = r.enter(StageReading); err != nil {
		return err
	}
	selected := o.gatherer.SelectDeepRead(found.Citations)
	if len(selected) > 0 {
		if err := r.emit(append([]Event{r.role(RoleReader)}, ReadingEvents(selected)...)...); err != nil {
			end()
			return err
		}
	}
	read := o.gatherer.Read(r.ctx, found.Citations, selected)
	end()
	if err := r.ctx.Err(); err != nil {
		return err
	}
	r.credits = r.credits || read.CreditsError

	// Reasoning
	if end, err = r.enter(StageReasoning); err != nil {
		return err
	}
	in := SynthesisInput{Question: question, Plan: plan, Citations: found.Citations, Extracted: read.Content}
	synth, err := o.reason(r, in)
	end()
	if err != nil {
		return err
	}

	// Finalizing
	if end, err = r.enter(StageFinalizing); err != nil {
		return err
	}
	safetyRole := r.role(RoleSafety)
	report := BuildReport(ReportInput{
		Question:           question,
		Plan:               plan,
		Analysis:           synth.Text,
		Extracted:          read.Content,
		Citations:          append(append([]Citation(nil), found.Citations...), synth.Citations...),
		Rejected:           read.Rejected,
		QueryLog:           found.QueryLog,
		Roles:              r.roles,
		Strategy:           synth.Strategy,
		CreditsUnavailable: r.credits,
		GeneratedAt:        o.now(),
	})
	err = r.emit(
		safetyRole,
		SafetyEvent(report.SafetyRating),
		EvidenceEvent(report.EvidenceLevel),
		ReportChunkEvent(synth.Text),
		CitationsEvent(report.Citations),
	)
	end()
	if err != nil {
		return err
	}

	if end, err = r.enter(StageComplete); err != nil {
		return err
	}
	err = r.emit(CompleteEvent(report))
	end()
	if err != nil {
		return err
	}
	outcome := telemetry.OutcomeComplete
	if report.CreditsUnavailable {
		outcome = telemetry.OutcomeDegraded
	}
	o.telemetry.RecordRun(outcome)
	r.logger.Info("research complete",
		zap.String("strategy", string(report.Strategy)),
		zap.String("safety", string(report.SafetyRating)),
		zap.String("evidence", string(report.EvidenceLevel)),
		zap.Int("risk_score", report.RiskScore),
		zap.Int("citations", len(report.Citations)),
	)
	return nil
}

// reason runs the synthesis stage. Once credits are known to be exhausted the
// reasoner is not called and the local template is used directly.
func (o *Orchestrator) reason(r *run, in SynthesisInput) (SynthesisResult, error) {
	if r.credits {
		if err := r.flagCredits(); err != nil {
			return SynthesisResult{}, err
		}
		res := o.synth.Local(in, NoticeLocal)
		return res, r.emit(r.role(RoleLocal), ReasoningEvent(res.Notice))
	}

	if o.synth.UsesRemote() {
		if err := r.emit(r.role(RoleReasoning), ReasoningEvent(ThoughtAnalyzing)); err != nil {
			return SynthesisResult{}, err
		}
	}
	res := o.synth.Synthesize(r.ctx, in)
	if err := r.ctx.Err(); err != nil {
		return SynthesisResult{}, err
	}
	if res.Strategy == StrategyFallback {
		if err := r.emit(r.role(RoleLocal), ReasoningEvent(res.Notice)); err != nil {
			return SynthesisResult{}, err
		}
	}
	if res.CreditsError {
		r.credits = true
		if err := r.flagCredits(); err != nil {
			return SynthesisResult{}, err
		}
	}
	return res, nil
}

// recoverRun turns a panic into a terminal error event. A panic caused by
// exhausted credits still yields a degraded complete event.
func (o *Orchestrator) recoverRun(r *run, req Request, p any) error {
	err, ok := p.(error)
	if !ok {
		err = fmt.Errorf("%v", p)
	}
	err = fmt.Errorf("research run failed: %w", err)
	if ctxErr := r.ctx.Err(); ctxErr != nil {
		o.telemetry.RecordRun(telemetry.OutcomeAborted)
		return ctxErr
	}
	r.logger.Error("research run panicked", zap.Any("panic", p), zap.Stack("stack"))
	if IsCreditsError(err) {
		if r.flagged || r.emit(ErrorEvent(CreditsErrorMessage)) == nil {
			_ = r.emit(CompleteEvent(o.degradedReport(req)))
		}
		o.telemetry.RecordRun(telemetry.OutcomeDegraded)
		return nil
	}
	_ = r.emit(ErrorEvent(err.Error()))
	o.telemetry.RecordRun(telemetry.OutcomeError)
	return err
}

func (o *Orchestrator) degradedReport(req Request) HealthReport {
	question := strings.TrimSpace(req.Question)
	plan := Classify(question)
	analysis := BuildFallbackReport(FallbackInput{Question: question, QueryType: plan.QueryType}, o.readability(), o.lex())
	return BuildReport(ReportInput{
		Question:           question,
		Plan:               plan,
		Analysis:           analysis,
		QueryLog:           plan.Queries,
		Strategy:           StrategyFallback,
		CreditsUnavailable: true,
		GeneratedAt:        o.now(),
	})
}

func (o *Orchestrator) lex() *lexicon.Lexicon {
	if o.synth != nil {
		return o.synth.lex
	}
	return nil
}

func (o *Orchestrator) readability() helpers.ReadabilityThresholds {
	if o.synth != nil {
		return o.synth.cfg.Readability
	}
	return helpers.DefaultReadability
}

func (o *Orchestrator) abort(r *run, err error) error {
	if r.ctx.Err() != nil {
		o.telemetry.RecordRun(telemetry.OutcomeAborted)
		r.logger.Info("research run cancelled", zap.String("stage", string(r.stage)))
		return r.ctx.Err()
	}
	o.telemetry.RecordRun(telemetry.OutcomeError)
	r.logger.Warn("research run aborted", zap.String("stage", string(r.stage)), zap.Error(err))
	return err
}

// enter moves the run forward to stage and starts its span. The returned
// func ends the span and records the stage duration.
func (r *run) enter(stage Stage) (func(), error) {
	if stageOrder[stage] <= stageOrder[r.stage] {
		return nil, fmt.Errorf("invalid stage transition %s -> %s", r.stage, stage)
	}
	if err := r.ctx.Err(); err != nil {
		return nil, err
	}
	r.stage = stage
	_, span := orchestratorTracer.Start(r.ctx, "research."+string(stage))
	start := time.Now()
	r.logger.Debug("stage entered", zap.String("stage", string(stage)))
	return func() {
		r.tel.ObserveStage(string(stage), time.Since(start))
		span.End()
	}, nil
}

// role records a contributing role and returns its event.
func (r *run) role(name string) Event {
	for _, existing := range r.roles {
		if existing == name {
			return AgentRoleEvent(name)
		}
	}
	r.roles = append(r.roles, name)
	return AgentRoleEvent(name)
}

// flagCredits emits the credits error event once per run.
func (r *run) flagCredits() error {
	if r.flagged {
		return nil
	}
	r.flagged = true
	return r.emit(ErrorEvent(CreditsErrorMessage))
}

// emit sends events in order. Nothing is sent once the context is done.
func (r *run) emit(evs ...Event) error {
	for _, ev := range evs {
		if err := r.ctx.Err(); err != nil {
			return err
		}
		if err := r.sink.Emit(r.ctx, ev); err != nil {
			return fmt.Errorf("emit %s event: %w", ev.Type, err)
		}
	}
	return nil
}
