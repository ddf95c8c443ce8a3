package reporting

import (
	"fmt"
	"strings"

	"github.com/spboyer/faeval/internal/models"
)

// FormatMarkdown formats an EvaluationReport as a markdown comment suitable
// for a pull request.
func FormatMarkdown(report *models.EvaluationReport) string {
	var b strings.Builder
	s := report.Summary

	b.WriteString("## 🔎 Failure Attribution Results\n\n")

	b.WriteString(fmt.Sprintf("**Agent Accuracy:** %.2f%%%s | **Step Accuracy:** %.2f%%%s\n\n",
		s.AgentAccuracy, formatCI(s.AgentCI), s.StepAccuracy, formatCI(s.StepCI)))

	b.WriteString(fmt.Sprintf("- **References:** %d total, %d evaluated, %d without prediction\n",
		s.TotalReferences, s.Evaluated, s.Unpredicted))
	b.WriteString(fmt.Sprintf("- **Predictions:** %d parsed, %d unparsed blocks, %d without reference\n",
		s.Predictions, s.UnparsedBlocks, s.MissingReferences))
	b.WriteString(fmt.Sprintf("- **Agent:** %s\n", InterpretAccuracy(s.AgentAccuracy)))
	b.WriteString(fmt.Sprintf("- **Step:** %s\n\n", InterpretAccuracy(s.StepAccuracy)))

	var misses []models.CaseResult
	for _, c := range report.Cases {
		if c.Status == models.StatusScored && (!c.AgentCorrect || !c.StepCorrect) {
			misses = append(misses, c)
		}
	}
	if len(misses) > 0 {
		b.WriteString("### Incorrect Predictions\n\n")
		b.WriteString("| Case | Predicted | Actual | Agent | Step |\n")
		b.WriteString("|------|-----------|--------|-------|------|\n")
		for _, c := range misses {
			b.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s |\n",
				c.CaseID,
				pair(c.PredictedAgent, c.PredictedStep),
				pair(c.ActualAgent, c.ActualStep),
				icon(c.AgentCorrect),
				icon(c.StepCorrect)))
		}
		b.WriteString("\n")
	}

	if len(report.Diagnostics) > 0 {
		b.WriteString("### ⚠️ Input Problems\n\n")
		for _, d := range report.Diagnostics {
			target := d.CaseID
			if target == "" {
				target = d.Path
			}
			b.WriteString(fmt.Sprintf("- `%s` **%s**: %s\n", d.Kind, target, d.Message))
		}
		b.WriteString("\n")
	}

	b.WriteString("---\n\n")
	b.WriteString(fmt.Sprintf("**Eval File:** %s | **Data Path:** %s | **Match:** %s\n",
		report.EvalFile, report.DataPath, report.MatchMode))

	return b.String()
}

func icon(ok bool) string {
	if ok {
		return "✅"
	}
	return "❌"
}
