package helpers

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MinExtractedLineLength is the shortest non-blank line kept by CleanExtractedBlock.
const MinExtractedLineLength = 5

// lineRule decides whether a single trimmed, non-blank line is page chrome.
type lineRule struct {
	name string
	drop func(line, lower string) bool
}

// textRule is one transform step of a cleaning pipeline.
type textRule struct {
	name  string
	apply func(string) string
}

var (
	headingOnlyRe  = regexp.MustCompile(`^#{1,6}\s*$`)
	chromePrefixRe = regexp.MustCompile(`^(skip to|enable accessibility|open the|go to our|shop with|shipping to|sign in|sign up|log in|subscribe|newsletter|cookie|we use cookies|accept all|privacy|menu|navigation|breadcrumb|footer|copyright|©|all rights reserved|share|tweet|pin it|email this|print|save|bookmark|follow us|contact us|about us|terms of|advertisement|sponsored|related articles|read more|see also|jump to|back to top|table of contents|download pdf)`)
	reviewedByRe   = regexp.MustCompile(`^(medically|clinically|fact[- ]checked|expert)?\s*(reviewed|checked) by\b`)
	socialRe       = regexp.MustCompile(`^\[?\s*(facebook|twitter|x|instagram|youtube|linkedin|pinterest|tiktok|reddit|whatsapp)\s*\]?$`)
	appointmentRe  = regexp.MustCompile(`^(request (an )?appointment|find a doctor|schedule|book (an )?appointment|call us)`)
	bareURLRe      = regexp.MustCompile(`^<?(https?://|www\.)\S+>?$`)
	linkPathRe     = regexp.MustCompile(`^\(?/[\w\-./%]*\)?$`)
	trackingRe     = regexp.MustCompile(`[?&](utm_[a-z]+|fbclid|gclid|dclid|msclkid|mc_cid|mc_eid)=`)
	mdLinkRe       = regexp.MustCompile(`!?\[([^\]]*)\]\(([^)]*)\)`)
	mdImageRe      = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
	breadcrumbSeps = []string{" > ", " › ", " » ", " / ", " | "}
	sentencePunct  = ".!?:"
	blankRunRe     = regexp.MustCompile(`\n{3,}`)
)

var extractedLineRules = []lineRule{
	{"too_short", func(line, _ string) bool { return utf8.RuneCountInString(line) < MinExtractedLineLength }},
	{"heading_only", func(line, _ string) bool { return headingOnlyRe.MatchString(line) }},
	{"chrome", func(_, lower string) bool { return chromePrefixRe.MatchString(strings.TrimLeft(lower, "-*• ")) }},
	{"reviewed_by", func(_, lower string) bool { return reviewedByRe.MatchString(strings.TrimLeft(lower, "-*• ")) }},
	{"social", func(_, lower string) bool { return socialRe.MatchString(lower) }},
	{"appointment", func(_, lower string) bool { return appointmentRe.MatchString(lower) }},
	{"breadcrumb", isBreadcrumb},
	{"bare_url", func(line, _ string) bool { return bareURLRe.MatchString(line) }},
	{"link_only", isLinkOnly},
	{"link_path", func(line, _ string) bool { return linkPathRe.MatchString(line) }},
	{"tracking", func(_, lower string) bool { return trackingRe.MatchString(lower) }},
	{"few_words", func(line, _ string) bool {
		return alphaTokenCount(line) <= 2 && !strings.ContainsAny(line, sentencePunct)
	}},
}

// CleanExtractedBlock filters crawled markdown down to prose lines. Blank lines
// are kept as paragraph breaks and runs of them are collapsed. The result is
// never longer than the input.
func CleanExtractedBlock(markdown string) string {
	lines := strings.Split(markdown, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			kept = append(kept, "")
			continue
		}
		if dropExtractedLine(trimmed) {
			continue
		}
		kept = append(kept, strings.TrimRightFunc(line, unicode.IsSpace))
	}
	out := blankRunRe.ReplaceAllString(strings.Join(kept, "\n"), "\n\n")
	return strings.TrimSpace(out)
}

func dropExtractedLine(trimmed string) bool {
	lower := strings.ToLower(trimmed)
	for _, r := range extractedLineRules {
		if r.drop(trimmed, lower) {
			return true
		}
	}
	return false
}

func isBreadcrumb(line, _ string) bool {
	if strings.ContainsAny(line, ".!?") {
		return false
	}
	n := 0
	for _, sep := range breadcrumbSeps {
		n += strings.Count(line, sep)
	}
	return n >= 2
}

func isLinkOnly(line, _ string) bool {
	if !strings.Contains(line, "](") {
		return false
	}
	rest := mdLinkRe.ReplaceAllString(line, "")
	rest = strings.Trim(rest, " \t-*•·|,")
	return rest == ""
}

// alphaTokenCount counts whitespace tokens made only of letters, apostrophes
// and hyphens once surrounding punctuation is removed.
func alphaTokenCount(s string) int {
	n := 0
	for _, f := range strings.Fields(s) {
		if isAlphaToken(trimToken(f)) {
			n++
		}
	}
	return n
}

func trimToken(tok string) string {
	return strings.TrimFunc(tok, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })
}

func isAlphaToken(tok string) bool {
	if tok == "" {
		return false
	}
	for _, r := range tok {
		if !unicode.IsLetter(r) && r != '\'' && r != '-' && r != '’' {
			return false
		}
	}
	return true
}

var (
	rawURLRe      = regexp.MustCompile(`(https?://|www\.)\S+`)
	boldRe        = regexp.MustCompile(`\*\*|__`)
	redirectRe    = regexp.MustCompile(`(?i)(you are being redirected|click here if you are not redirected|if you are not redirected( automatically)?|redirecting( you)?( to)?)[^.!?]*[.!?]*`)
	monthNames    = `(?:jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|jun(?:e)?|jul(?:y)?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)`
	datePattern   = `(?:` + monthNames + `\.? \d{1,2},? \d{4}|\d{1,2} ` + monthNames + `\.? \d{4}|\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}/\d{2,4})`
	dateStampRe   = regexp.MustCompile(`(?i)(?:\b(?:last )?(?:updated|published|posted|reviewed)(?: on)?:?\s*)?\b` + datePattern + `\b\s*[-–—·|:]?\s*`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
	leadingJunkRe = regexp.MustCompile(`^[\s\-–—·|:,;]+`)
)

var displayRules = []textRule{
	{"html", StripHTML},
	{"images", func(s string) string { return mdImageRe.ReplaceAllString(s, " ") }},
	{"links", func(s string) string { return mdLinkRe.ReplaceAllString(s, "$1") }},
	{"raw_urls", func(s string) string { return rawURLRe.ReplaceAllString(s, " ") }},
	{"bold", func(s string) string { return boldRe.ReplaceAllString(s, "") }},
	{"redirects", func(s string) string { return redirectRe.ReplaceAllString(s, " ") }},
	{"date_stamps", func(s string) string { return dateStampRe.ReplaceAllString(s, " ") }},
	{"whitespace", func(s string) string { return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " ")) }},
	{"leading_junk", func(s string) string { return leadingJunkRe.ReplaceAllString(s, "") }},
}

// CleanForDisplay strips markup, URLs, redirect notices and date stamps from a
// search snippet. It never truncates the text.
func CleanForDisplay(text string) string {
	return applyRules(text, displayRules)
}

func applyRules(s string, rules []textRule) string {
	for _, r := range rules {
		s = r.apply(s)
	}
	return s
}

var (
	sourcesHeadingRe = regexp.MustCompile(`(?i)^(#{1,6})\s*\**\s*(sources|references|citations|bibliography|further reading)\s*\**:?\s*$`)
	sourcesBoldRe    = regexp.MustCompile(`(?i)^\*\*(sources|references|citations)\*\*:?\s*$`)
	anyHeadingRe     = regexp.MustCompile(`^(#{1,6})\s`)
	redirectLineRe   = regexp.MustCompile(`(?i)^\s*[-*]?\s*(redirecting|you are being redirected|click here if|if you are not redirected)`)
)

var analysisRules = []textRule{
	{"unwrap_fence", UnwrapFencedAnswer},
	{"sources_section", dropSourcesSection},
	{"noise_lines", dropAnalysisNoiseLines},
	{"blank_runs", func(s string) string { return strings.TrimSpace(blankRunRe.ReplaceAllString(s, "\n\n")) }},
}

// CleanAnalysis is the markdown cleaning pass applied to synthesized reports.
// It removes stray URL and redirect lines plus any trailing sources section.
func CleanAnalysis(markdown string) string {
	return applyRules(markdown, analysisRules)
}

func dropSourcesSection(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	skipLevel := -1
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if skipLevel >= 0 {
			m := anyHeadingRe.FindStringSubmatch(trimmed)
			if m == nil || (skipLevel > 0 && len(m[1]) > skipLevel) {
				continue
			}
			skipLevel = -1
		}
		if m := sourcesHeadingRe.FindStringSubmatch(trimmed); m != nil {
			skipLevel = len(m[1])
			continue
		}
		if sourcesBoldRe.MatchString(trimmed) {
			skipLevel = 0
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

func dropAnalysisNoiseLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*"))
		if trimmed != "" && (bareURLRe.MatchString(trimmed) || redirectLineRe.MatchString(line)) {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
