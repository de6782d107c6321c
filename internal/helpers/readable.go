package helpers

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mohammad-safakhou/remedy/internal/lexicon"
)

// ReadabilityThresholds are the tunable bounds of the readability gate.
type ReadabilityThresholds struct {
	MinLength     int
	MaxLength     int
	MinWords      int
	MinAlphaRatio float64
	// Verbs supplies the verb list; nil uses the embedded lexicon.
	Verbs *lexicon.Lexicon
}

// DefaultReadability holds the empirically tuned defaults.
var DefaultReadability = ReadabilityThresholds{
	MinLength:     30,
	MaxLength:     2000,
	MinWords:      5,
	MinAlphaRatio: 0.55,
}

type readabilityCheck struct {
	name string
	ok   func(th ReadabilityThresholds, s string, toks []string) bool
}

var (
	linkPrefixRe   = regexp.MustCompile(`^(https?://|ftp://|www\.|/|\[|!\[|<)`)
	purelyNumberRe = regexp.MustCompile(`^[\d\s.,%:;/+\-–()]+$`)
	openers        = "\"'“‘("
)

// readabilityChecks are evaluated in order; every one must pass.
var readabilityChecks = []readabilityCheck{
	{"length", func(th ReadabilityThresholds, s string, _ []string) bool {
		n := utf8.RuneCountInString(s)
		return n >= th.MinLength && n <= th.MaxLength
	}},
	{"no_link_prefix", func(_ ReadabilityThresholds, s string, _ []string) bool { return !linkPrefixRe.MatchString(s) }},
	{"not_numeric", func(_ ReadabilityThresholds, s string, _ []string) bool { return !purelyNumberRe.MatchString(s) }},
	{"opener", func(_ ReadabilityThresholds, s string, _ []string) bool {
		r, _ := utf8.DecodeRuneInString(s)
		return unicode.IsUpper(r) || strings.ContainsRune(openers, r)
	}},
	{"real_words", func(th ReadabilityThresholds, _ string, toks []string) bool {
		n := 0
		for _, tok := range toks {
			if isAlphaToken(tok) && utf8.RuneCountInString(tok) >= 3 {
				n++
			}
		}
		return n >= th.MinWords
	}},
	{"alpha_ratio", func(th ReadabilityThresholds, _ string, toks []string) bool {
		if len(toks) == 0 {
			return false
		}
		alpha := 0
		for _, tok := range toks {
			if isAlphaToken(tok) {
				alpha++
			}
		}
		return float64(alpha)/float64(len(toks)) >= th.MinAlphaRatio
	}},
	{"has_verb", func(th ReadabilityThresholds, _ string, toks []string) bool {
		lex := th.Verbs
		if lex == nil {
			lex = lexicon.Default()
		}
		for _, tok := range toks {
			if lex.IsVerb(tok) {
				return true
			}
		}
		return false
	}},
}

// Readable reports whether text looks like a genuine declarative sentence
// rather than navigation, labels or link noise.
func (th ReadabilityThresholds) Readable(text string) bool {
	s := strings.TrimSpace(text)
	fields := strings.Fields(s)
	toks := make([]string, len(fields))
	for i, f := range fields {
		toks[i] = trimToken(f)
	}
	for _, c := range readabilityChecks {
		if !c.ok(th, s, toks) {
			return false
		}
	}
	return true
}

// IsReadable applies the readability gate with DefaultReadability.
func IsReadable(text string) bool {
	return DefaultReadability.Readable(text)
}

var sentenceEndRe = regexp.MustCompile(`([.!?])\s+`)

// SplitSentences breaks prose into sentences, keeping terminal punctuation.
func SplitSentences(text string) []string {
	text = strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
	if text == "" {
		return nil
	}
	marked := sentenceEndRe.ReplaceAllString(text, "$1\x00")
	parts := strings.Split(marked, "\x00")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
