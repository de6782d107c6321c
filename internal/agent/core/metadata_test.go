package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSafetyCascade(t *testing.T) {
	tests := []struct {
		text string
		want SafetyLevel
	}{
		{"This is generally safe but use with extreme caution as it may be dangerous", SafetyDanger},
		{"Contraindicated in kidney failure.", SafetyDanger},
		{"Carries a significant risk of hyperkalemia; consult your doctor.", SafetyWarning},
		{"Moderate evidence suggests use with caution.", SafetyCaution},
		{"Monitor potassium levels.", SafetyCaution},
		{"Magnesium is well-tolerated at usual doses.", SafetySafe},
		{"Nothing relevant here.", SafetyUnknown},
		{"", SafetyUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseSafety(tt.text), tt.text)
	}
}

func TestParseEvidenceCascade(t *testing.T) {
	tests := []struct {
		text string
		want EvidenceQuality
	}{
		{"Strong evidence from trials. Limited evidence in children.", EvidenceStrong},
		{"Moderate evidence suggests use with caution.", EvidenceModerate},
		{"Only preliminary data exist.", EvidenceLimited},
		{"There is no evidence of benefit.", EvidenceNone},
		{"Plain text.", EvidenceUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseEvidence(tt.text), tt.text)
	}
}

func TestParseEvidenceCitationDensityFallback(t *testing.T) {
	link := "[NIH](https://nih.gov/x) "
	assert.Equal(t, EvidenceModerate, ParseEvidence(strings.Repeat(link, 5)))
	assert.Equal(t, EvidenceLimited, ParseEvidence(strings.Repeat(link, 2)))
	assert.Equal(t, EvidenceUnknown, ParseEvidence(link))
	assert.Equal(t, EvidenceUnknown, ParseEvidence("[local](/relative) [x](ftp://y)"))
}

var allSafety = []SafetyLevel{SafetySafe, SafetyCaution, SafetyWarning, SafetyDanger, SafetyUnknown}
var allEvidence = []EvidenceQuality{EvidenceStrong, EvidenceModerate, EvidenceLimited, EvidenceNone, EvidenceUnknown}

func TestComputeRiskScoreBounds(t *testing.T) {
	for _, s := range append(allSafety, SafetyLevel("bogus")) {
		for _, e := range append(allEvidence, EvidenceQuality("bogus")) {
			for _, n := range []int{-1, 0, 1, 7, 8, 9, 100} {
				score := ComputeRiskScore(s, e, n)
				assert.GreaterOrEqual(t, score, 0)
				assert.LessOrEqual(t, score, 100)
			}
		}
	}
}

func TestComputeRiskScoreMonotonicInSafety(t *testing.T) {
	for _, e := range allEvidence {
		for _, n := range []int{0, 3, 8, 20} {
			danger := ComputeRiskScore(SafetyDanger, e, n)
			warning := ComputeRiskScore(SafetyWarning, e, n)
			caution := ComputeRiskScore(SafetyCaution, e, n)
			safe := ComputeRiskScore(SafetySafe, e, n)
			assert.Greater(t, danger, warning)
			assert.Greater(t, warning, caution)
			assert.Greater(t, caution, safe)
		}
	}
}

func TestComputeRiskScoreFormula(t *testing.T) {
	assert.Equal(t, 40, ComputeRiskScore(SafetyCaution, EvidenceModerate, 3))
	assert.Equal(t, 35, ComputeRiskScore(SafetyCaution, EvidenceModerate, 8))
	assert.Equal(t, 100, ComputeRiskScore(SafetyDanger, EvidenceNone, 0))
	assert.Equal(t, 1, ComputeRiskScore(SafetySafe, EvidenceStrong, 8))
	assert.Equal(t, 55, ComputeRiskScore(SafetyUnknown, EvidenceUnknown, 0))
}

func TestParseContraindicationAlerts(t *testing.T) {
	text := `## Key Points
- Pregnancy: not in this section

## Contraindication Alerts
- **Pregnancy**: Limited safety data; avoid high doses [NIH](https://nih.gov/a).
- **Kidney disease**: Magnesium can accumulate.
Not a bullet line without colon
- Polypharmacy: Review all medicines with a pharmacist.

## Questions for Your Doctor
1. Question: should not be parsed`

	alerts := ParseContraindicationAlerts(text)
	require.Len(t, alerts, 3)
	assert.Equal(t, "Pregnancy", alerts[0].Population)
	assert.Equal(t, "Limited safety data; avoid high doses [NIH](https://nih.gov/a).", alerts[0].Summary)
	assert.Equal(t, "Kidney disease", alerts[1].Population)
	assert.Equal(t, "Polypharmacy", alerts[2].Population)
}

func TestParseContraindicationAlertsCapAndAbsence(t *testing.T) {
	assert.Empty(t, ParseContraindicationAlerts("## Key Points\n- Pregnancy: x"))

	var b strings.Builder
	b.WriteString("**Contraindication Alerts**\n")
	for i := 0; i < 9; i++ {
		b.WriteString("- **Group " + string(rune('A'+i)) + "**: caveat text\n")
	}
	b.WriteString("**Conflicting Evidence**\n**Conflict**: \"A\" vs \"B\"\n")
	alerts := ParseContraindicationAlerts(b.String())
	assert.Len(t, alerts, 6)
	for _, a := range alerts {
		assert.NotEqual(t, "Conflict", a.Population)
	}
}

func TestParseConflictingEvidence(t *testing.T) {
	text := "## Conflicting Evidence\n**Conflict**: \"Magnesium lowers blood pressure\" (Mayo Clinic) vs \"No effect on blood pressure\" (Cochrane)\n\n## Questions for Your Doctor\n1. x"
	got := ParseConflictingEvidence(text)
	require.Len(t, got, 1)
	assert.Equal(t, ConflictingEvidence{
		ClaimA:  "Magnesium lowers blood pressure",
		SourceA: "Mayo Clinic",
		ClaimB:  "No effect on blood pressure",
		SourceB: "Cochrane",
	}, got[0])

	assert.Empty(t, ParseConflictingEvidence("\"A\" vs \"B\" outside any section"))
	assert.Empty(t, ParseConflictingEvidence("## Conflicting Evidence\nSources disagree without quotes."))
}

func TestDisclaimerExtras(t *testing.T) {
	got := DisclaimerExtras(QueryTypeSupplement, "Is melatonin safe for kids while pregnant, with Crohn's and multiple medications?")
	require.Len(t, got, 4)
	assert.True(t, strings.HasPrefix(got[0], "Evidence in pregnancy"))
	assert.True(t, strings.HasPrefix(got[1], "Pediatric"))
	assert.True(t, strings.HasPrefix(got[2], "GI conditions"))
	assert.True(t, strings.HasPrefix(got[3], "Multiple medications"))

	assert.Empty(t, DisclaimerExtras(QueryTypeGeneral, "What is a migraine?"))
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, "Moderate evidence suggests use with caution.",
		Summarize("## Safety Assessment\nModerate evidence suggests use with caution."))
	assert.Equal(t, "Magnesium is generally well-tolerated by adults.",
		Summarize("> notice\n# Title\n- **Magnesium** is generally well-tolerated by adults."))
	assert.Equal(t, "Only a heading", Summarize("## Only a heading\nshort"))
	assert.Equal(t, "Analysis complete", Summarize(""))
}
