package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mohammad-safakhou/remedy/internal/agent/telemetry"
	"github.com/mohammad-safakhou/remedy/internal/helpers"
	"github.com/mohammad-safakhou/remedy/internal/lexicon"
)

// Reasoning status strings emitted as reasoning events.
const (
	ThoughtAnalyzing  = "Analyzing evidence with AI reasoning engine..."
	NoticeTimeout     = "Research agent timed out; synthesizing report from gathered evidence..."
	NoticeUnavailable = "Research agent unavailable; building report from gathered medical sources..."
	NoticeLocal       = "Building report from gathered medical sources..."
)

var errEmptyAnswer = errors.New("reasoning run returned no answer")

// SynthesisConfig bounds the remote reasoning call and tunes the fallback.
type SynthesisConfig struct {
	Timeout              time.Duration
	MaxSteps             int
	Verbosity            string
	SearchEffort         string
	ReportVerbosity      string
	SnippetEvidenceCount int
	Readability          helpers.ReadabilityThresholds
}

// DefaultSynthesisConfig returns the production settings.
func DefaultSynthesisConfig() SynthesisConfig {
	return SynthesisConfig{
		Timeout:              45 * time.Second,
		MaxSteps:             2,
		Verbosity:            "medium",
		SearchEffort:         "low",
		ReportVerbosity:      "medium",
		SnippetEvidenceCount: 6,
		Readability:          helpers.DefaultReadability,
	}
}

// SynthesisInput is everything the synthesizer reads.
type SynthesisInput struct {
	Question  string
	Plan      ResearchPlan
	Citations []Citation
	Extracted ExtractedContent
}

// SynthesisResult is the tagged output of either strategy. Citations holds
// only the sources surfaced by the reasoning provider.
type SynthesisResult struct {
	Strategy     Strategy
	Text         string
	Citations    []Citation
	Notice       string
	CreditsError bool
}

// Synthesizer turns gathered evidence into report markdown, remotely when it
// can and locally otherwise.
type Synthesizer struct {
	reasoner  Reasoner
	cfg       SynthesisConfig
	force     Strategy
	lex       *lexicon.Lexicon
	logger    *zap.Logger
	telemetry *telemetry.Telemetry
}

// SynthesizerOption customizes a Synthesizer.
type SynthesizerOption func(*Synthesizer)

// WithStrategy forces one synthesis path. StrategyRemote still falls back
// when the remote call fails.
func WithStrategy(s Strategy) SynthesizerOption {
	return func(sy *Synthesizer) { sy.force = s }
}

func WithSynthesizerLogger(l *zap.Logger) SynthesizerOption {
	return func(sy *Synthesizer) {
		if l != nil {
			sy.logger = l
		}
	}
}

func WithSynthesizerTelemetry(t *telemetry.Telemetry) SynthesizerOption {
	return func(sy *Synthesizer) { sy.telemetry = t }
}

func WithSynthesizerLexicon(lex *lexicon.Lexicon) SynthesizerOption {
	return func(sy *Synthesizer) {
		if lex != nil {
			sy.lex = lex
		}
	}
}

// NewSynthesizer creates a synthesizer. A nil reasoner always uses the local
// fallback.
func NewSynthesizer(r Reasoner, cfg SynthesisConfig, opts ...SynthesizerOption) *Synthesizer {
	def := DefaultSynthesisConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = def.MaxSteps
	}
	if cfg.Verbosity == "" {
		cfg.Verbosity = def.Verbosity
	}
	if cfg.SearchEffort == "" {
		cfg.SearchEffort = def.SearchEffort
	}
	if cfg.ReportVerbosity == "" {
		cfg.ReportVerbosity = def.ReportVerbosity
	}
	if cfg.SnippetEvidenceCount <= 0 {
		cfg.SnippetEvidenceCount = def.SnippetEvidenceCount
	}
	if cfg.Readability == (helpers.ReadabilityThresholds{}) {
		cfg.Readability = def.Readability
	}
	sy := &Synthesizer{
		reasoner: r,
		cfg:      cfg,
		lex:      lexicon.Default(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(sy)
	}
	sy.logger = sy.logger.Named("synthesizer")
	return sy
}

// UsesRemote reports whether Synthesize will attempt the reasoning provider.
func (s *Synthesizer) UsesRemote() bool {
	return s.reasoner != nil && s.force != StrategyFallback
}

// Synthesize runs the remote path and falls back to the local template on
// timeout, error or an empty answer. It always returns usable text.
func (s *Synthesizer) Synthesize(ctx context.Context, in SynthesisInput) SynthesisResult {
	if !s.UsesRemote() {
		return s.Local(in, NoticeLocal)
	}
	remote, err := s.remote(ctx, in)
	if err == nil {
		s.telemetry.RecordSynthesis(string(StrategyRemote))
		return remote
	}
	notice := NoticeUnavailable
	if errors.Is(err, context.DeadlineExceeded) {
		notice = NoticeTimeout
	}
	credits := IsCreditsError(err)
	s.logger.Warn("remote synthesis failed, using local fallback", zap.Bool("credits", credits), zap.Error(err))
	res := s.Local(in, notice)
	res.CreditsError = credits
	return res
}

// Local builds the deterministic report without contacting the reasoner.
func (s *Synthesizer) Local(in SynthesisInput, notice string) SynthesisResult {
	text := BuildFallbackReport(FallbackInput{
		Question:  in.Question,
		QueryType: in.Plan.QueryType,
		Citations: in.Citations,
		Extracted: in.Extracted,
	}, s.cfg.Readability, s.lex)
	s.telemetry.RecordSynthesis(string(StrategyFallback))
	return SynthesisResult{
		Strategy: StrategyFallback,
		Text:     helpers.CleanAnalysis(text),
		Notice:   notice,
	}
}

func (s *Synthesizer) remote(ctx context.Context, in SynthesisInput) (SynthesisResult, error) {
	prompt := BuildEvidencePrompt(in.Question, in.Citations, in.Extracted, s.cfg.SnippetEvidenceCount)

	rctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	out, err := s.reasoner.Run(rctx, prompt, RunOptions{
		Tools:     []ResearchTool{{Type: "research", SearchEffort: s.cfg.SearchEffort, ReportVerbosity: s.cfg.ReportVerbosity}},
		Verbosity: s.cfg.Verbosity,
		MaxSteps:  s.cfg.MaxSteps,
		Timeout:   s.cfg.Timeout,
	})
	if err != nil {
		if errors.Is(rctx.Err(), context.DeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
		}
		return SynthesisResult{}, err
	}

	answer := firstAnswer(out.Output)
	if answer == "" {
		return SynthesisResult{}, errEmptyAnswer
	}
	text := helpers.CleanAnalysis(answer)
	if text == "" {
		return SynthesisResult{}, errEmptyAnswer
	}
	return SynthesisResult{
		Strategy:  StrategyRemote,
		Text:      text,
		Citations: s.citationsFromOutput(out.Output),
	}, nil
}

func firstAnswer(items []OutputItem) string {
	for _, it := range items {
		if it.Type == OutputTypeAnswer && strings.TrimSpace(it.Text) != "" {
			return it.Text
		}
	}
	return ""
}

func (s *Synthesizer) citationsFromOutput(items []OutputItem) []Citation {
	var out []Citation
	for _, it := range items {
		if it.Type != OutputTypeResults {
			continue
		}
		for _, ref := range it.Content {
			url := strings.TrimSpace(ref.URL)
			if url == "" {
				url = strings.TrimSpace(ref.CitationURI)
			}
			if url == "" {
				continue
			}
			title := helpers.CleanForDisplay(ref.Title)
			if title == "" {
				title = helpers.Host(url)
			}
			out = append(out, newCitation(s.lex, title, url, helpers.CleanForDisplay(ref.Snippet), ""))
		}
	}
	return DedupeCitations(out)
}
