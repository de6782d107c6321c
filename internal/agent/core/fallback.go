package core

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/mohammad-safakhou/remedy/internal/helpers"
	"github.com/mohammad-safakhou/remedy/internal/lexicon"
)

const (
	maxKeyPoints        = 4
	maxPros             = 3
	maxCons             = 3
	minSnippetSentences = 5
	minKeywordMatches   = 3
	minKeywordLength    = 4

	noSourcesBanner = "> **No sources retrieved.** Live research returned no usable evidence, so this report contains general guidance only. Verify any decision with a healthcare professional."
	noKeyPointsText = "No specific data found in the sources reviewed."
	noProsText      = "The evidence reviewed does not clearly state specific benefits; discuss with your doctor."
	noConsText      = "The evidence reviewed does not clearly state specific risks; discuss with your doctor."
)

var fallbackRecommendations = []string{
	"**Consult your doctor** before making changes: share these findings for personalized advice",
	"**Start conservatively** if your provider approves: lower doses, monitor your response",
	"**Check for interactions** with any current medications or supplements",
	"**Use reputable sources**: look for products with third-party testing (USP, NSF)",
	"**Track your response**: keep notes on any changes, positive or negative",
}

var doctorQuestions = []string{
	"Is this appropriate given my health history and current medications?",
	"What dose and duration would be reasonable for me, if any?",
	"Which symptoms or changes should prompt me to stop and call you?",
}

var keywordStopwords = map[string]struct{}{
	"with": {}, "that": {}, "this": {}, "what": {}, "does": {}, "from": {}, "have": {}, "take": {},
	"safe": {}, "about": {}, "should": {}, "there": {}, "their": {}, "which": {}, "when": {}, "into": {}, "your": {},
}

var markdownLeadRe = regexp.MustCompile(`^\s*(#{1,6}\s+|[-*•>]\s+|\d+[.)]\s+)+`)

// FallbackInput is the evidence available to the local synthesizer.
type FallbackInput struct {
	Question  string
	QueryType QueryType
	Citations []Citation
	Extracted ExtractedContent
}

// evidenceBuckets holds the classified sentences of a fallback report.
type evidenceBuckets struct {
	keyPoints []string
	pros      []string
	cons      []string
}

// fallbackComposer mines cleaned evidence sentences into a templated report.
type fallbackComposer struct {
	readability helpers.ReadabilityThresholds
	lex         *lexicon.Lexicon
}

// BuildFallbackReport produces the deterministic local report. It never
// returns an empty document, even without any evidence.
func BuildFallbackReport(in FallbackInput, th helpers.ReadabilityThresholds, lex *lexicon.Lexicon) string {
	if lex == nil {
		lex = lexicon.Default()
	}
	if th.Verbs == nil {
		th.Verbs = lex
	}
	fc := fallbackComposer{readability: th, lex: lex}
	candidates := fc.preferKeywords(in.Question, fc.candidates(in.Citations, in.Extracted))
	return fc.render(in, fc.classify(candidates))
}

// candidates collects readable, unique sentences. Snippets come first; the
// extracted pages only contribute when snippets yield too few sentences.
func (fc fallbackComposer) candidates(citations []Citation, extracted ExtractedContent) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(sentences []string) {
		for _, s := range sentences {
			s = strings.TrimSpace(s)
			if !fc.readability.Readable(s) {
				continue
			}
			key := strings.ToLower(s)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, s)
		}
	}
	for _, c := range citations {
		add(helpers.SplitSentences(helpers.CleanForDisplay(c.Snippet)))
	}
	if len(out) >= minSnippetSentences {
		return out
	}
	for _, b := range extracted.Blocks {
		if b.FromSnippet {
			continue
		}
		for _, line := range strings.Split(b.Text, "\n") {
			line = markdownLeadRe.ReplaceAllString(line, "")
			add(helpers.SplitSentences(helpers.CleanForDisplay(line)))
		}
	}
	return out
}

// preferKeywords narrows the pool to sentences mentioning the question's
// keywords when enough of them do.
func (fc fallbackComposer) preferKeywords(question string, pool []string) []string {
	keywords := questionKeywords(question)
	if len(keywords) == 0 {
		return pool
	}
	var matched []string
	for _, s := range pool {
		if lexicon.MatchesAny(s, keywords) {
			matched = append(matched, s)
		}
	}
	if len(matched) < minKeywordMatches {
		return pool
	}
	return matched
}

func questionKeywords(question string) []string {
	fields := strings.FieldsFunc(strings.ToLower(question), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})
	seen := make(map[string]struct{})
	var out []string
	for _, f := range fields {
		if len([]rune(f)) < minKeywordLength {
			continue
		}
		if _, stop := keywordStopwords[f]; stop {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

// classify buckets sentences in discovery order. Benefit vocabulary is
// checked before risk vocabulary.
func (fc fallbackComposer) classify(sentences []string) evidenceBuckets {
	var b evidenceBuckets
	for _, s := range sentences {
		switch {
		case lexicon.MatchesAny(s, fc.lex.Pros):
			if len(b.pros) < maxPros {
				b.pros = append(b.pros, s)
			}
		case lexicon.MatchesAny(s, fc.lex.Cons):
			if len(b.cons) < maxCons {
				b.cons = append(b.cons, s)
			}
		default:
			if len(b.keyPoints) < maxKeyPoints {
				b.keyPoints = append(b.keyPoints, s)
			}
		}
	}
	return b
}

func (fc fallbackComposer) render(in FallbackInput, b evidenceBuckets) string {
	var sb strings.Builder
	if len(in.Citations) == 0 {
		sb.WriteString(noSourcesBanner)
		sb.WriteString("\n\n")
	}
	fmt.Fprintf(&sb, "## %s: %s\n\n", in.QueryType.Label(), strings.TrimSpace(in.Question))

	sb.WriteString("### Summary\n")
	if n := len(in.Citations); n > 0 {
		fmt.Fprintf(&sb, "Based on a review of %d medical %s, here is a balanced overview of the evidence.\n\n", n, plural(n, "source", "sources"))
	} else {
		sb.WriteString("No medical sources could be retrieved for this question, so the points below are general guidance.\n\n")
	}

	writeBullets(&sb, "Key Points", b.keyPoints, noKeyPointsText)
	writeBullets(&sb, "Potential Benefits (Pros)", b.pros, noProsText)
	writeBullets(&sb, "Risks & Considerations (Cons)", b.cons, noConsText)
	writeBullets(&sb, "Recommendations", fallbackRecommendations, "")

	sb.WriteString("### Questions for Your Doctor\n")
	for i, q := range doctorQuestions {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, q)
	}
	return strings.TrimSpace(sb.String())
}

func writeBullets(sb *strings.Builder, heading string, items []string, empty string) {
	fmt.Fprintf(sb, "### %s\n", heading)
	if len(items) == 0 {
		items = []string{empty}
	}
	for _, it := range items {
		fmt.Fprintf(sb, "- %s\n", it)
	}
	sb.WriteString("\n")
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
