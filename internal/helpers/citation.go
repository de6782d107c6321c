package helpers

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// evidenceConfig controls evidence formatting.
type evidenceConfig struct {
	maxSnippet int
}

// EvidenceOption configures evidence line formatting.
type EvidenceOption func(*evidenceConfig)

// WithMaxSnippetLength truncates snippet lines to n runes (default unlimited).
func WithMaxSnippetLength(n int) EvidenceOption {
	return func(cfg *evidenceConfig) {
		if n > 0 {
			cfg.maxSnippet = n
		}
	}
}

// FormatSourceBlock renders one extracted block labeled with its source:
//
//	### Source: Title (URL)
//	text
func FormatSourceBlock(title, url, text string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		title = Host(url)
	}
	return fmt.Sprintf("### Source: %s (%s)\n%s", title, strings.TrimSpace(url), strings.TrimSpace(text))
}

// FormatEvidenceLine renders a snippet as a markdown bullet citing its source.
func FormatEvidenceLine(title, url, snippet string, opts ...EvidenceOption) string {
	var cfg evidenceConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	snippet = strings.TrimSpace(snippet)
	if cfg.maxSnippet > 0 && utf8.RuneCountInString(snippet) > cfg.maxSnippet {
		r := []rune(snippet)
		snippet = strings.TrimSpace(string(r[:cfg.maxSnippet])) + "…"
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = Host(url)
	}
	return fmt.Sprintf("- [%s](%s): %s", title, strings.TrimSpace(url), snippet)
}
