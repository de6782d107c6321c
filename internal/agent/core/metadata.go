package core

import (
	"regexp"
	"strings"
)

// Disclaimer is attached to every report.
const Disclaimer = "This information is for educational purposes only and is not medical advice. Always consult your healthcare provider before making changes to medications or supplements."

const (
	defaultSummary      = "Analysis complete"
	maxContraAlerts     = 6
	riskCitationBonus   = 5
	riskCitationMinimum = 8
)

// phraseRule is one step of a first-match-wins keyword cascade.
type phraseRule[T any] struct {
	phrases []string
	result  T
}

func firstMatch[T any](text string, rules []phraseRule[T], fallback T) T {
	lower := strings.ToLower(text)
	for _, r := range rules {
		for _, p := range r.phrases {
			if strings.Contains(lower, p) {
				return r.result
			}
		}
	}
	return fallback
}

// safetyRules are ordered by severity; danger must be checked first.
var safetyRules = []phraseRule[SafetyLevel]{
	{[]string{"danger", "contraindicated", "do not take", "avoid"}, SafetyDanger},
	{[]string{"warning", "significant risk", "serious"}, SafetyWarning},
	{[]string{"caution", "moderate risk", "use with caution", "consult", "monitor"}, SafetyCaution},
	{[]string{"generally safe", "safe", "low risk", "well-tolerated", "no significant"}, SafetySafe},
}

var evidenceRules = []phraseRule[EvidenceQuality]{
	{[]string{"strong evidence", "well-established", "robust evidence", "clinical trials confirm", "widely supported", "well-documented", "extensively studied", "conclusive"}, EvidenceStrong},
	{[]string{"moderate evidence", "some evidence", "several studies", "research suggests", "studies show", "studies indicate", "evidence suggests", "research indicates", "clinical studies", "mixed evidence", "emerging evidence"}, EvidenceModerate},
	{[]string{"limited evidence", "insufficient", "few studies", "preliminary", "anecdotal", "early research", "small studies", "more research needed", "inconclusive"}, EvidenceLimited},
	{[]string{"no evidence", "no studies", "not studied", "not been studied"}, EvidenceNone},
}

var inlineCitationRe = regexp.MustCompile(`\[[^\]]*?\]\(https?://[^)]*?\)`)

// ParseSafety assigns a safety level using the severity-ordered cascade.
func ParseSafety(text string) SafetyLevel {
	return firstMatch(text, safetyRules, SafetyUnknown)
}

// ParseEvidence assigns an evidence level. Without a matching phrase the
// number of inline markdown citations decides.
func ParseEvidence(text string) EvidenceQuality {
	if level := firstMatch(text, evidenceRules, EvidenceUnknown); level != EvidenceUnknown {
		return level
	}
	switch n := len(inlineCitationRe.FindAllStringIndex(text, -1)); {
	case n >= 5:
		return EvidenceModerate
	case n >= 2:
		return EvidenceLimited
	default:
		return EvidenceUnknown
	}
}

var safetyBase = map[SafetyLevel]int{
	SafetyDanger:  85,
	SafetyWarning: 65,
	SafetyCaution: 45,
	SafetySafe:    18,
	SafetyUnknown: 55,
}

var evidenceAdjust = map[EvidenceQuality]int{
	EvidenceStrong:   -12,
	EvidenceModerate: -5,
	EvidenceLimited:  5,
	EvidenceNone:     15,
	EvidenceUnknown:  0,
}

// ComputeRiskScore is the deterministic 0-100 risk formula. Unrecognized
// levels score as unknown.
func ComputeRiskScore(safety SafetyLevel, evidence EvidenceQuality, citationCount int) int {
	base, ok := safetyBase[safety]
	if !ok {
		base = safetyBase[SafetyUnknown]
	}
	score := base + evidenceAdjust[evidence]
	if citationCount >= riskCitationMinimum {
		score -= riskCitationBonus
	}
	switch {
	case score < 0:
		return 0
	case score > 100:
		return 100
	}
	return score
}

var (
	headingLineRe = regexp.MustCompile(`^\s*(#{1,6})\s*(.*?)\s*#*\s*$`)
	boldHeadingRe = regexp.MustCompile(`^\s*\*\*([^*]+)\*\*:?\s*$`)
	alertLineRe   = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])?\s*\**([^*:\[\]()\n]{2,60}?)\**\s*:\s*\**\s*(.+?)\s*$`)
	conflictRe    = regexp.MustCompile(`["“]([^"”]+)["”]\s*(?:\(([^)]*)\))?\s*(?:vs\.?|versus)\s*["“]([^"”]+)["”]\s*(?:\(([^)]*)\))?`)
)

// sectionBody returns the lines under the first heading whose text contains
// name, up to the next heading. A bold-only line also counts as a heading.
func sectionBody(text, name string) ([]string, bool) {
	name = strings.ToLower(name)
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		title, ok := headingText(line)
		if !ok || !strings.Contains(strings.ToLower(title), name) {
			continue
		}
		var body []string
		for _, next := range lines[i+1:] {
			if isSectionHeading(next) {
				break
			}
			body = append(body, next)
		}
		return body, true
	}
	return nil, false
}

func headingText(line string) (string, bool) {
	if m := headingLineRe.FindStringSubmatch(line); m != nil {
		return m[2], true
	}
	if m := boldHeadingRe.FindStringSubmatch(line); m != nil {
		return m[1], true
	}
	return "", false
}

func isSectionHeading(line string) bool {
	_, ok := headingText(line)
	return ok
}

// ParseContraindicationAlerts reads "Population: summary" bullets from a
// Contraindication Alerts section.
func ParseContraindicationAlerts(text string) []ContraindicationAlert {
	body, ok := sectionBody(text, "contraindication alerts")
	if !ok {
		return nil
	}
	var alerts []ContraindicationAlert
	for _, line := range body {
		m := alertLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		pop := strings.TrimSpace(strings.Trim(m[1], "* "))
		summary := strings.TrimSpace(strings.Trim(m[2], "* "))
		if pop == "" || summary == "" || strings.HasPrefix(strings.ToLower(summary), "omit") {
			continue
		}
		alerts = append(alerts, ContraindicationAlert{Population: pop, Summary: summary})
		if len(alerts) == maxContraAlerts {
			break
		}
	}
	return alerts
}

// ParseConflictingEvidence extracts one quoted claim pair from a Conflicting
// Evidence section.
func ParseConflictingEvidence(text string) []ConflictingEvidence {
	body, ok := sectionBody(text, "conflicting evidence")
	if !ok {
		return nil
	}
	m := conflictRe.FindStringSubmatch(strings.Join(body, " "))
	if m == nil {
		return nil
	}
	return []ConflictingEvidence{{
		ClaimA:  strings.TrimSpace(m[1]),
		SourceA: strings.TrimSpace(m[2]),
		ClaimB:  strings.TrimSpace(m[3]),
		SourceB: strings.TrimSpace(m[4]),
	}}
}

type disclaimerRule struct {
	pattern *regexp.Regexp
	text    string
}

var disclaimerRules = []disclaimerRule{
	{regexp.MustCompile(`(?i)pregnan|breastfeed|nursing`), "Evidence in pregnancy/nursing is often limited. Discuss with your OB or provider."},
	{regexp.MustCompile(`(?i)child|pediatric|\bkids?\b|infant`), "Pediatric dosing and safety may differ from adults. Use under medical guidance."},
	{regexp.MustCompile(`(?i)crohn|\bibd\b|inflammatory bowel|ulcerative colitis`), "GI conditions can affect absorption and interactions. Confirm with your gastroenterologist."},
	{regexp.MustCompile(`(?i)multiple medications|polypharmacy|many drugs|several meds`), "Multiple medications increase interaction risk. A pharmacist review is recommended."},
}

// DisclaimerExtras returns the context-triggered caveats for a question in a
// fixed order. The query type does not affect the result today.
func DisclaimerExtras(_ QueryType, question string) []string {
	var extras []string
	for _, r := range disclaimerRules {
		if r.pattern.MatchString(question) {
			extras = append(extras, r.text)
		}
	}
	return extras
}

var listMarkerRe = regexp.MustCompile(`^([-*•>]|\d+[.)])\s+`)

// Summarize returns the first substantive non-heading line of an analysis.
func Summarize(text string) string {
	var firstHeading string
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if m := headingLineRe.FindStringSubmatch(trimmed); m != nil {
			if firstHeading == "" {
				firstHeading = m[2]
			}
			continue
		}
		if strings.HasPrefix(trimmed, ">") {
			continue
		}
		plain := strings.TrimSpace(strings.ReplaceAll(listMarkerRe.ReplaceAllString(trimmed, ""), "**", ""))
		if len(plain) > 20 {
			return plain
		}
	}
	if firstHeading != "" {
		return firstHeading
	}
	return defaultSummary
}
