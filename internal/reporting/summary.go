package reporting

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spboyer/faeval/internal/models"
	"github.com/spboyer/faeval/internal/statistics"
)

// InterpretAccuracy returns a plain-language label for an accuracy percentage.
func InterpretAccuracy(pct float64) string {
	switch {
	case pct > 90:
		return "Excellent (>90%)"
	case pct >= 70:
		return "Good (70-90%)"
	case pct >= 50:
		return "Needs Work (50-70%)"
	default:
		return "Poor (<50%)"
	}
}

// FormatFailures renders failure counts as "kind=n" pairs sorted by kind,
// or "none".
func FormatFailures(failures map[models.ErrorKind]int) string {
	if len(failures) == 0 {
		return "none"
	}
	kinds := make([]string, 0, len(failures))
	for k := range failures {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)

	parts := make([]string, 0, len(kinds))
	for _, k := range kinds {
		parts = append(parts, fmt.Sprintf("%s=%d", k, failures[models.ErrorKind(k)]))
	}
	return strings.Join(parts, ", ")
}

// WriteSummary prints the evaluation counters followed by the final
// accuracy results.
func WriteSummary(w io.Writer, report *models.EvaluationReport) error {
	s := report.Summary
	var b strings.Builder

	b.WriteString("--- Evaluation Summary ---\n")
	fmt.Fprintf(&b, "Total reference files in data_path: %d\n", s.TotalReferences)
	fmt.Fprintf(&b, "Predictions parsed from eval file:  %d\n", s.Predictions)
	fmt.Fprintf(&b, "Files evaluated (prediction found & actual data read): %d\n", s.Evaluated)
	fmt.Fprintf(&b, "Correct Agent Predictions: %d\n", s.CorrectAgent)
	fmt.Fprintf(&b, "Correct Step Predictions:  %d\n", s.CorrectStep)
	fmt.Fprintf(&b, "Failures: %s\n", FormatFailures(s.Failures))

	b.WriteString("\n--- Final Accuracy Results ---\n")
	fmt.Fprintf(&b, "Evaluation File: %s\n", report.EvalFile)
	fmt.Fprintf(&b, "Data Path:       %s\n", report.DataPath)
	fmt.Fprintf(&b, "Agent Accuracy: %.2f%%%s\n", s.AgentAccuracy, formatCI(s.AgentCI))
	fmt.Fprintf(&b, "Step Accuracy:  %.2f%%%s\n", s.StepAccuracy, formatCI(s.StepCI))
	fmt.Fprintf(&b, "(Accuracy calculated based on %d total files in data path)\n", s.TotalReferences)

	_, err := io.WriteString(w, b.String())
	return err
}

func formatCI(ci *statistics.ConfidenceInterval) string {
	if ci == nil {
		return ""
	}
	return fmt.Sprintf(" [%.0f%% CI %.2f%% - %.2f%%]", ci.ConfidenceLevel*100, ci.Lower, ci.Upper)
}
