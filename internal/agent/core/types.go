package core

import (
	"context"
	"time"
)

// QueryType is the intent assigned to a question by the classifier.
type QueryType string

const (
	QueryTypeInteraction QueryType = "INTERACTION"
	QueryTypeSupplement  QueryType = "SUPPLEMENT"
	QueryTypeWellness    QueryType = "WELLNESS"
	QueryTypeGeneral     QueryType = "GENERAL"
)

// Label returns the human readable heading used in locally synthesized reports.
func (q QueryType) Label() string {
	switch q {
	case QueryTypeInteraction:
		return "Interaction Analysis"
	case QueryTypeSupplement:
		return "Supplement Research"
	case QueryTypeWellness:
		return "Wellness Claim Analysis"
	default:
		return "Health Research"
	}
}

// SourceTier ranks the credibility of a citation. Lower Rank means more credible.
type SourceTier string

const (
	TierFDALabel      SourceTier = "fda_label"
	TierRCT           SourceTier = "rct"
	TierMetaAnalysis  SourceTier = "meta_analysis"
	TierObservational SourceTier = "observational"
	TierBlog          SourceTier = "blog"
	TierUnknown       SourceTier = "unknown"
)

var tierRank = map[SourceTier]int{
	TierFDALabel:      0,
	TierRCT:           1,
	TierMetaAnalysis:  2,
	TierObservational: 3,
	TierBlog:          4,
	TierUnknown:       5,
}

// Rank returns the position of the tier in the credibility precedence list.
func (t SourceTier) Rank() int {
	if r, ok := tierRank[t]; ok {
		return r
	}
	return tierRank[TierUnknown]
}

// SafetyLevel is ordered by increasing severity; unknown means insufficient signal.
type SafetyLevel string

const (
	SafetySafe    SafetyLevel = "safe"
	SafetyCaution SafetyLevel = "caution"
	SafetyWarning SafetyLevel = "warning"
	SafetyDanger  SafetyLevel = "danger"
	SafetyUnknown SafetyLevel = "unknown"
)

// EvidenceQuality is the strength-of-proof label of a report.
type EvidenceQuality string

const (
	EvidenceStrong   EvidenceQuality = "strong"
	EvidenceModerate EvidenceQuality = "moderate"
	EvidenceLimited  EvidenceQuality = "limited"
	EvidenceNone     EvidenceQuality = "none"
	EvidenceUnknown  EvidenceQuality = "unknown"
)

// Citation is a single evidence record. Values are never mutated after creation.
type Citation struct {
	Title      string     `json:"title"`
	URL        string     `json:"url"`
	Snippet    string     `json:"snippet"`
	FaviconURL string     `json:"favicon_url,omitempty"`
	SourceTier SourceTier `json:"source_tier,omitempty"`
	DOI        string     `json:"doi,omitempty"`
	PubMedID   string     `json:"pubmed_id,omitempty"`
}

// ResearchPlan is derived once per question and read-only afterwards.
type ResearchPlan struct {
	QueryType QueryType `json:"query_type"`
	Tasks     []string  `json:"tasks"`
	Queries   []string  `json:"queries"`
}

// ContraindicationAlert pairs a population with a caveat.
type ContraindicationAlert struct {
	Population string `json:"population"`
	Summary    string `json:"summary"`
}

// ConflictingEvidence holds two contradictory claims and their sources.
type ConflictingEvidence struct {
	ClaimA  string `json:"claim_a"`
	SourceA string `json:"source_a,omitempty"`
	ClaimB  string `json:"claim_b"`
	SourceB string `json:"source_b,omitempty"`
}

// RejectedSource is a discovered citation that was not deep-read.
type RejectedSource struct {
	Title  string `json:"title"`
	URL    string `json:"url"`
	Reason string `json:"reason"`
}

// Strategy tags which synthesis path produced a report.
type Strategy string

const (
	StrategyRemote   Strategy = "remote"
	StrategyFallback Strategy = "fallback"
)

// HealthReport is the terminal artifact of a run.
type HealthReport struct {
	SafetyRating           SafetyLevel             `json:"safety_rating"`
	EvidenceLevel          EvidenceQuality         `json:"evidence_level"`
	RiskScore              int                     `json:"risk_score"`
	Summary                string                  `json:"summary"`
	DetailedAnalysis       string                  `json:"detailed_analysis"`
	Citations              []Citation              `json:"citations"`
	Disclaimer             string                  `json:"disclaimer"`
	DisclaimerExtras       []string                `json:"disclaimer_extras,omitempty"`
	ContraindicationAlerts []ContraindicationAlert `json:"contraindication_alerts,omitempty"`
	ConflictingEvidence    []ConflictingEvidence   `json:"conflicting_evidence,omitempty"`
	RejectedSources        []RejectedSource        `json:"rejected_sources,omitempty"`
	QueryLog               []string                `json:"query_log"`
	AgentRolesUsed         []string                `json:"agent_roles_used"`
	CreditsUnavailable     bool                    `json:"credits_unavailable,omitempty"`
	Strategy               Strategy                `json:"strategy,omitempty"`
	GeneratedAt            time.Time               `json:"generated_at"`
}

// SearchOptions are the filters passed to a SearchProvider.
type SearchOptions struct {
	Count     int
	Freshness string
	CrawlMode string
}

// SearchResult is one ranked hit returned by a SearchProvider.
type SearchResult struct {
	Title        string   `json:"title"`
	URL          string   `json:"url"`
	Description  string   `json:"description"`
	Snippets     []string `json:"snippets"`
	ThumbnailURL string   `json:"thumbnail_url,omitempty"`
	FaviconURL   string   `json:"favicon_url,omitempty"`
	PageAge      string   `json:"page_age,omitempty"`
}

// SearchResponse groups web and news hits.
type SearchResponse struct {
	Web  []SearchResult
	News []SearchResult
}

// ExtractedPage is the per-URL result of a ContentExtractor. Markdown and HTML
// are nil when extraction failed for that URL.
type ExtractedPage struct {
	URL      string
	Title    string
	Markdown *string
	HTML     *string
}

// ResearchTool describes one tool enabled on a reasoning run.
type ResearchTool struct {
	Type            string `json:"type"`
	SearchEffort    string `json:"search_effort,omitempty"`
	ReportVerbosity string `json:"report_verbosity,omitempty"`
}

// RunOptions configure a single reasoning run.
type RunOptions struct {
	Tools     []ResearchTool
	Verbosity string
	MaxSteps  int
	Timeout   time.Duration
}

// SourceRef is a citation surfaced by the reasoning provider.
type SourceRef struct {
	URL         string `json:"url"`
	CitationURI string `json:"citation_uri"`
	Title       string `json:"title"`
	Snippet     string `json:"snippet"`
}

// OutputItem is one element of a reasoning run's output.
type OutputItem struct {
	Type    string      `json:"type"`
	Text    string      `json:"text,omitempty"`
	Content []SourceRef `json:"content,omitempty"`
}

// RunResult is the raw output of a reasoning run.
type RunResult struct {
	Output []OutputItem `json:"output"`
}

const (
	OutputTypeAnswer  = "message.answer"
	OutputTypeResults = "web_search.results"
)

// SearchProvider returns ranked web results for a query.
type SearchProvider interface {
	Search(ctx context.Context, query string, opts SearchOptions) (SearchResponse, error)
}

// ContentExtractor returns best-effort page content for a batch of URLs.
type ContentExtractor interface {
	Extract(ctx context.Context, urls []string, formats []string) ([]ExtractedPage, error)
}

// Reasoner runs an agentic reasoning call over a prompt.
type Reasoner interface {
	Run(ctx context.Context, prompt string, opts RunOptions) (RunResult, error)
}
