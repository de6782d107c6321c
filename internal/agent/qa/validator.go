// Package qa checks recorded research runs against the report and stream
// contract. It reads the JSON lines written by `remedy ask`.
package qa

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mohammad-safakhou/remedy/internal/agent/core"
)

const maxCitations = 10

var (
	safetyLevels = map[core.SafetyLevel]bool{
		core.SafetySafe: true, core.SafetyCaution: true, core.SafetyWarning: true,
		core.SafetyDanger: true, core.SafetyUnknown: true,
	}
	evidenceLevels = map[core.EvidenceQuality]bool{
		core.EvidenceStrong: true, core.EvidenceModerate: true, core.EvidenceLimited: true,
		core.EvidenceNone: true, core.EvidenceUnknown: true,
	}
)

// ValidateReport checks the structural constraints of a final report.
func ValidateReport(r core.HealthReport) error {
	var errs []error
	if !safetyLevels[r.SafetyRating] {
		errs = append(errs, fmt.Errorf("invalid safety_rating %q", r.SafetyRating))
	}
	if !evidenceLevels[r.EvidenceLevel] {
		errs = append(errs, fmt.Errorf("invalid evidence_level %q", r.EvidenceLevel))
	}
	if r.RiskScore < 0 || r.RiskScore > 100 {
		errs = append(errs, fmt.Errorf("risk_score %d out of range", r.RiskScore))
	}
	if r.Citations == nil {
		errs = append(errs, errors.New("citations missing"))
	}
	if len(r.Citations) > maxCitations {
		errs = append(errs, fmt.Errorf("%d citations exceed the cap of %d", len(r.Citations), maxCitations))
	}
	seen := make(map[string]bool, len(r.Citations))
	for i, c := range r.Citations {
		if strings.TrimSpace(c.URL) == "" {
			errs = append(errs, fmt.Errorf("citation %d has no url", i))
			continue
		}
		if seen[c.URL] {
			errs = append(errs, fmt.Errorf("citation %d duplicates %s", i, c.URL))
		}
		seen[c.URL] = true
	}
	if strings.TrimSpace(r.Disclaimer) == "" {
		errs = append(errs, errors.New("disclaimer missing"))
	}
	if strings.TrimSpace(r.DetailedAnalysis) == "" {
		errs = append(errs, errors.New("detailed_analysis empty"))
	}
	return errors.Join(errs...)
}

// Summary describes a validated event stream.
type Summary struct {
	Events   int
	Errors   int
	Complete bool
	Degraded bool
}

// ValidateEvents checks a stream of JSON-lines events: at most one complete
// event, nothing after it, a valid report, and an error event whenever the
// stream ends without a report.
func ValidateEvents(r io.Reader) (Summary, error) {
	var s Summary
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 8<<20)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var ev core.Event
		if err := json.Unmarshal([]byte(text), &ev); err != nil {
			return s, fmt.Errorf("line %d: invalid json: %w", line, err)
		}
		if ev.Type == "" {
			return s, fmt.Errorf("line %d: event has no type", line)
		}
		if s.Complete {
			return s, fmt.Errorf("line %d: %s event after complete", line, ev.Type)
		}
		s.Events++
		switch ev.Type {
		case core.EventError:
			s.Errors++
		case core.EventComplete:
			if ev.Report == nil {
				return s, fmt.Errorf("line %d: complete event without report", line)
			}
			if err := ValidateReport(*ev.Report); err != nil {
				return s, fmt.Errorf("line %d: %w", line, err)
			}
			s.Complete = true
			s.Degraded = ev.Report.CreditsUnavailable
		}
	}
	if err := sc.Err(); err != nil {
		return s, err
	}
	if s.Events == 0 {
		return s, errors.New("no events")
	}
	if !s.Complete && s.Errors == 0 {
		return s, errors.New("stream ended without a complete or error event")
	}
	return s, nil
}

// ValidateEventsFile runs ValidateEvents over a file.
func ValidateEventsFile(path string) (Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return Summary{}, err
	}
	defer f.Close()
	return ValidateEvents(f)
}
