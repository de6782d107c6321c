package helpers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractedLineRules(t *testing.T) {
	dropped := map[string]string{
		"too_short":    "Home",
		"heading_only": "### ",
		"chrome":       "Skip to main content",
		"cookie":       "We use cookies to improve your experience.",
		"reviewed_by":  "Medically reviewed by Jane Doe, MD",
		"social":       "[Facebook]",
		"appointment":  "Request an appointment today",
		"breadcrumb":   "Home > Drugs > Magnesium",
		"bare_url":     "https://www.example.com/path/to/page",
		"link_only":    "- [Vitamins](/vitamins) | [Minerals](/minerals)",
		"link_path":    "/health/drugs-supplements",
		"tracking":     "Read on https://x.com/a?utm_source=feed now",
		"few_words":    "Side effects",
	}
	for name, line := range dropped {
		line := line
		t.Run(name, func(t *testing.T) {
			assert.True(t, dropExtractedLine(strings.TrimSpace(line)), "expected %q dropped", line)
		})
	}

	kept := []string{
		"Magnesium may lower blood pressure slightly.",
		"Lisinopril can raise potassium levels in the blood.",
		"Dosage: 200 to 400 mg daily",
	}
	for _, line := range kept {
		assert.False(t, dropExtractedLine(line), "expected %q kept", line)
	}
}

func TestCleanExtractedBlock(t *testing.T) {
	in := strings.Join([]string{
		"Skip to main content",
		"Home > Health > Supplements",
		"# Magnesium",
		"",
		"Magnesium is a mineral that supports muscle and nerve function.",
		"",
		"",
		"",
		"",
		"Share",
		"High doses can cause diarrhea and cramping.   ",
		"https://example.com/next",
	}, "\n")

	got := CleanExtractedBlock(in)
	want := "Magnesium is a mineral that supports muscle and nerve function.\n\nHigh doses can cause diarrhea and cramping."
	assert.Equal(t, want, got)
	assert.LessOrEqual(t, len(got), len(in))
}

func TestCleanExtractedBlockNeverExpands(t *testing.T) {
	inputs := []string{
		"",
		"\n\n\n\n",
		"A line that is fine and stays in place.\r\nAnother proper sentence is here.\r\n",
		"x\ny\nz",
	}
	for _, in := range inputs {
		assert.LessOrEqual(t, len(CleanExtractedBlock(in)), len(in))
	}
}

func TestCleanForDisplay(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"html", "<b>Magnesium</b> may help &amp; soothe.", "Magnesium may help & soothe."},
		{"markdown link", "See [NIH fact sheet](https://ods.od.nih.gov/x) for details.", "See NIH fact sheet for details."},
		{"raw url", "Read more at https://example.com/a?b=c today.", "Read more at today."},
		{"bold", "**Magnesium** is an essential mineral.", "Magnesium is an essential mineral."},
		{"redirect", "Redirecting to the article. Zinc may shorten colds.", "Zinc may shorten colds."},
		{"date stamp", "Jan 5, 2024 — Zinc may shorten colds.", "Zinc may shorten colds."},
		{"iso date", "Updated 2023-11-02: Turmeric is generally safe.", "Turmeric is generally safe."},
		{"whitespace", "  Too   many\n spaces here.  ", "Too many spaces here."},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, CleanForDisplay(tt.in))
		})
	}
}

func TestCleanForDisplayDoesNotTruncate(t *testing.T) {
	long := strings.Repeat("Magnesium supports normal muscle function. ", 80)
	got := CleanForDisplay(long)
	assert.Equal(t, strings.TrimSpace(long), got)
}

func TestCleanAnalysis(t *testing.T) {
	in := "```markdown\n## Safety Assessment\nModerate evidence suggests use with caution.\n\nhttps://example.com/raw\nRedirecting you to the page...\n\n\n\n## Key Points\n- Point one is here.\n\n## Sources\n1. [A](https://a.org)\n2. [B](https://b.org)\n### Nested\nstill sources\n```"
	want := "## Safety Assessment\nModerate evidence suggests use with caution.\n\n## Key Points\n- Point one is here."
	assert.Equal(t, want, CleanAnalysis(in))
}

func TestCleanAnalysisKeepsSectionsAfterSources(t *testing.T) {
	in := "## Key Points\n- A point.\n**Sources**\n- [A](https://a.org)\n## Questions for Your Doctor\n1. Is it safe?"
	want := "## Key Points\n- A point.\n## Questions for Your Doctor\n1. Is it safe?"
	assert.Equal(t, want, CleanAnalysis(in))
}

func TestCleanAnalysisKeepsSourcesOfHeading(t *testing.T) {
	in := "## Sources of Magnesium\nLeafy greens contain magnesium."
	assert.Equal(t, in, CleanAnalysis(in))
}
