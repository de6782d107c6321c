package helpers

import (
	"strings"
)

var answerFenceLangs = map[string]struct{}{"": {}, "markdown": {}, "md": {}, "text": {}}

// UnwrapFencedAnswer returns the inner content when the whole text is a single
// fenced block tagged as markdown or untagged. Anything else is returned as is.
// Supports ``` and ~~~ fences.
func UnwrapFencedAnswer(s string) string {
	trim := trimBOM(strings.TrimSpace(s))
	for _, fence := range []string{"```", "~~~"} {
		if !strings.HasPrefix(trim, fence) || !strings.HasSuffix(trim, fence) || len(trim) < 2*len(fence) {
			continue
		}
		rest := trim[len(fence):]
		nl := strings.IndexByte(rest, '\n')
		if nl == -1 {
			return s
		}
		lang := strings.ToLower(strings.TrimSpace(rest[:nl]))
		if _, ok := answerFenceLangs[lang]; !ok {
			return s
		}
		inner := rest[nl+1 : len(rest)-len(fence)]
		if strings.Contains(inner, fence) {
			return s
		}
		return strings.TrimSpace(inner)
	}
	return s
}

func trimBOM(s string) string {
	return strings.TrimPrefix(s, "\uFEFF")
}
