package core

import (
	"fmt"
	"strings"

	"github.com/mohammad-safakhou/remedy/internal/helpers"
)

const agentInstructions = `You are Remedy, a health research agent. Answer ONLY using the evidence provided below. Do not include raw URLs, redirect text, or navigation snippets in your answer.

Question: %s

Instructions:
- Base your answer only on the "Evidence already gathered" text below.
- Write short, clear bullets. Key Points and Pros/Cons must be direct takeaways from the articles and relevant to the question. If the evidence does not clearly state benefits or risks, say: "The evidence does not clearly state specific benefits/risks; discuss with your doctor."
- Cite every claim as [Source Title](url). Use plain language.
- Never make definitive medical recommendations.

Format your answer EXACTLY as follows:

## Safety Assessment
One sentence: safety rating (safe / caution / warning / danger) and evidence quality (e.g. "Moderate evidence suggests use with caution.").

## Key Points
- Short bullet from the evidence (what the sources say that is relevant).
- Up to 4 bullets. No URLs or redirect text.

## Potential Benefits (Pros)
- **Benefit**: One sentence with [Source](url). Or: "The evidence does not clearly state specific benefits; discuss with your doctor."

## Risks & Considerations (Cons)
- **Risk**: One sentence with [Source](url). Or: "The evidence does not clearly state specific risks; discuss with your doctor."

## Recommendations
- **Consult your doctor**: share these findings for personalized advice
- **Start conservatively** if approved: lower doses, monitor response
- 1-2 more specific recommendations

## Questions for Your Doctor
1. Specific question
2. Specific question

If the evidence mentions special populations (Pregnancy, Pediatrics, Polypharmacy, etc.), add a "## Contraindication Alerts" section with "**Population**: caution" bullets. If two sources disagree, add a "## Conflicting Evidence" section written as "Claim A" (Source A) vs "Claim B" (Source B). Otherwise omit both. Do not add a Sources or References section.`

const noEvidenceText = "No evidence could be gathered for this question."

// BuildAgentInput returns the instruction template for a question.
func BuildAgentInput(question string) string {
	return fmt.Sprintf(agentInstructions, strings.TrimSpace(question))
}

// BuildEvidencePrompt appends the gathered evidence to the instruction
// template. Extracted content is preferred over snippets.
func BuildEvidencePrompt(question string, citations []Citation, extracted ExtractedContent, snippetCount int) string {
	var b strings.Builder
	b.WriteString(BuildAgentInput(question))
	b.WriteString("\n\n## Evidence already gathered\n")
	b.WriteString(evidenceBlock(citations, extracted, snippetCount))
	return b.String()
}

func evidenceBlock(citations []Citation, extracted ExtractedContent, snippetCount int) string {
	if !extracted.Empty() {
		return extracted.String()
	}
	var lines []string
	for _, c := range citations {
		if strings.TrimSpace(c.Snippet) == "" {
			continue
		}
		lines = append(lines, helpers.FormatEvidenceLine(c.Title, c.URL, c.Snippet, helpers.WithMaxSnippetLength(400)))
		if len(lines) == snippetCount {
			break
		}
	}
	if len(lines) == 0 {
		return noEvidenceText
	}
	return strings.Join(lines, "\n")
}
