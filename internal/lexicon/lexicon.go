// Package lexicon holds the English vocabulary lists used to judge and mine
// evidence text. The lists are data, loaded from an embedded YAML document.
package lexicon

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed lexicon.yaml
var defaultDocument []byte

// Lexicon is the parsed vocabulary document.
type Lexicon struct {
	Verbs            []string `yaml:"verbs"`
	Pros             []string `yaml:"pros"`
	Cons             []string `yaml:"cons"`
	AuthorityDomains []string `yaml:"authority_domains"`
	BlogDomains      []string `yaml:"blog_domains"`

	verbSet map[string]struct{}
}

var (
	defaultOnce sync.Once
	defaultLex  *Lexicon
)

// Default returns the embedded lexicon. It panics if the embedded document is
// malformed, which can only happen at build time.
func Default() *Lexicon {
	defaultOnce.Do(func() {
		lex, err := Parse(defaultDocument)
		if err != nil {
			panic(fmt.Errorf("embedded lexicon: %w", err))
		}
		defaultLex = lex
	})
	return defaultLex
}

// Parse decodes a lexicon document and normalizes every entry to lower case.
func Parse(doc []byte) (*Lexicon, error) {
	var lex Lexicon
	if err := yaml.Unmarshal(doc, &lex); err != nil {
		return nil, err
	}
	if len(lex.Verbs) == 0 {
		return nil, fmt.Errorf("lexicon has no verbs")
	}
	lex.Verbs = normalize(lex.Verbs)
	lex.Pros = normalize(lex.Pros)
	lex.Cons = normalize(lex.Cons)
	lex.AuthorityDomains = normalize(lex.AuthorityDomains)
	lex.BlogDomains = normalize(lex.BlogDomains)
	lex.verbSet = make(map[string]struct{}, len(lex.Verbs))
	for _, v := range lex.Verbs {
		lex.verbSet[v] = struct{}{}
	}
	return &lex, nil
}

// IsVerb reports whether the lower-cased token is a known verb-like word.
func (l *Lexicon) IsVerb(token string) bool {
	_, ok := l.verbSet[strings.ToLower(token)]
	return ok
}

// MatchesAny reports whether lower-cased text contains any of the terms.
func MatchesAny(text string, terms []string) bool {
	lower := strings.ToLower(text)
	for _, t := range terms {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}

func normalize(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
