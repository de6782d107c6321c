package core

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

const maxReportCitations = 10

// Notices prefixed to degraded analyses. Metadata is always parsed from the
// analysis without them.
const (
	CreditsNotice = "> **Live research credits are unavailable.** This report was assembled from limited evidence and may be incomplete. Check back later for a fully sourced report."
	offlineNotice = "> **Live research was skipped.** Offline mode is on, so no searches, page reads or reasoning calls were made."
)

// ReportInput collects everything the finalizing stage needs.
type ReportInput struct {
	Question           string
	Plan               ResearchPlan
	Analysis           string
	Extracted          ExtractedContent
	Citations          []Citation
	Rejected           []RejectedSource
	QueryLog           []string
	Roles              []string
	Strategy           Strategy
	CreditsUnavailable bool
	GeneratedAt        time.Time
}

// BuildReport packages an analysis into the terminal HealthReport. Safety and
// evidence come from the analysis first; extracted page text is a secondary
// signal used only when the analysis is inconclusive.
func BuildReport(in ReportInput) HealthReport {
	citations := RankCitations(DedupeCitations(in.Citations))
	if len(citations) > maxReportCitations {
		citations = citations[:maxReportCitations]
	}

	safety := ParseSafety(in.Analysis)
	if safety == SafetyUnknown && !in.Extracted.Empty() {
		safety = ParseSafety(in.Extracted.Text())
	}
	evidence := ParseEvidence(in.Analysis)
	if evidence == EvidenceUnknown && !in.Extracted.Empty() {
		evidence = ParseEvidence(in.Extracted.Text())
	}

	detailed := in.Analysis
	if in.CreditsUnavailable {
		detailed = CreditsNotice + "\n\n" + in.Analysis
	}

	return HealthReport{
		SafetyRating:           safety,
		EvidenceLevel:          evidence,
		RiskScore:              ComputeRiskScore(safety, evidence, len(citations)),
		Summary:                Summarize(in.Analysis),
		DetailedAnalysis:       detailed,
		Citations:              nonNil(citations),
		Disclaimer:             Disclaimer,
		DisclaimerExtras:       DisclaimerExtras(in.Plan.QueryType, in.Question),
		ContraindicationAlerts: ParseContraindicationAlerts(in.Analysis),
		ConflictingEvidence:    ParseConflictingEvidence(in.Analysis),
		RejectedSources:        in.Rejected,
		QueryLog:               nonNil(append([]string(nil), in.QueryLog...)),
		AgentRolesUsed:         nonNil(append([]string(nil), in.Roles...)),
		CreditsUnavailable:     in.CreditsUnavailable,
		Strategy:               in.Strategy,
		GeneratedAt:            in.GeneratedAt.UTC(),
	}
}

// RankCitations orders citations by source tier, most credible first. Ties
// keep discovery order.
func RankCitations(cs []Citation) []Citation {
	out := append([]Citation(nil), cs...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SourceTier.Rank() < out[j].SourceTier.Rank()
	})
	return out
}

// OfflineReport is the fixed degraded report returned when live research is
// switched off. It carries no citations and no network-derived content.
func OfflineReport(question string, now time.Time) HealthReport {
	plan := Classify(question)
	analysis := fmt.Sprintf("## %s: %s\n\n%s\n\nTurn live research back on to get a sourced safety and evidence review for this question.",
		plan.QueryType.Label(), strings.TrimSpace(question), offlineNotice)
	return HealthReport{
		SafetyRating:       SafetyUnknown,
		EvidenceLevel:      EvidenceUnknown,
		RiskScore:          ComputeRiskScore(SafetyUnknown, EvidenceUnknown, 0),
		Summary:            Summarize(analysis),
		DetailedAnalysis:   analysis,
		Citations:          []Citation{},
		Disclaimer:         Disclaimer,
		DisclaimerExtras:   DisclaimerExtras(plan.QueryType, question),
		QueryLog:           []string{},
		AgentRolesUsed:     []string{},
		CreditsUnavailable: true,
		GeneratedAt:        now.UTC(),
	}
}
