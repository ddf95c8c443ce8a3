package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spboyer/faeval/internal/models"
	"github.com/spboyer/faeval/internal/reporting"
	"github.com/spboyer/faeval/internal/statistics"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func newCompareCommand(fs afero.Fs) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "compare <report1.json> <report2.json> [report3.json ...]",
		Short: "Compare saved evaluation reports",
		Long: `Compare reports saved with --output side by side.

Loads two or more report JSON files and prints agent and step accuracy for
each, the change relative to the first report, and the cases whose outcome
differs between reports.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "table" && format != "json" {
				return fmt.Errorf("unsupported format %q: must be table or json", format)
			}

			reports := make([]*models.EvaluationReport, 0, len(args))
			for _, path := range args {
				r, err := models.LoadReport(fs, path)
				if err != nil {
					return fmt.Errorf("failed to load %s: %w", path, err)
				}
				reports = append(reports, r)
			}

			cmp := buildComparison(args, reports)
			if format == "json" {
				return printComparisonJSON(cmd.OutOrStdout(), cmp)
			}
			return printComparisonTable(cmd.OutOrStdout(), cmp)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format: table or json")

	return cmd
}

// reportMetrics holds the headline figures of one report.
type reportMetrics struct {
	File            string  `json:"file"`
	EvalFile        string  `json:"eval_file"`
	MatchMode       string  `json:"match_mode"`
	TotalReferences int     `json:"total_references"`
	AgentAccuracy   float64 `json:"agent_accuracy"`
	StepAccuracy    float64 `json:"step_accuracy"`
	// Deltas are relative to the first report.
	AgentDelta float64 `json:"agent_delta"`
	StepDelta  float64 `json:"step_delta"`
	// Set only when both reports carry confidence intervals. True when the
	// intervals do not overlap.
	AgentSignificant *bool `json:"agent_significant,omitempty"`
	StepSignificant  *bool `json:"step_significant,omitempty"`
}

// caseComparison lists one case's outcome in every report.
type caseComparison struct {
	CaseID   string   `json:"case_id"`
	Outcomes []string `json:"outcomes"`
}

type comparison struct {
	Reports      []reportMetrics  `json:"reports"`
	ChangedCases []caseComparison `json:"changed_cases"`
}

func buildComparison(files []string, reports []*models.EvaluationReport) *comparison {
	cmp := &comparison{}
	base := reports[0].Summary

	for i, r := range reports {
		cmp.Reports = append(cmp.Reports, reportMetrics{
			File:             files[i],
			EvalFile:         r.EvalFile,
			MatchMode:        r.MatchMode,
			TotalReferences:  r.Summary.TotalReferences,
			AgentAccuracy:    r.Summary.AgentAccuracy,
			StepAccuracy:     r.Summary.StepAccuracy,
			AgentDelta:       r.Summary.AgentAccuracy - base.AgentAccuracy,
			StepDelta:        r.Summary.StepAccuracy - base.StepAccuracy,
			AgentSignificant: significant(base.AgentCI, r.Summary.AgentCI),
			StepSignificant:  significant(base.StepCI, r.Summary.StepCI),
		})
	}

	var ids []string
	seen := make(map[string]bool)
	for _, r := range reports {
		for _, c := range r.Cases {
			if !seen[c.CaseID] {
				seen[c.CaseID] = true
				ids = append(ids, c.CaseID)
			}
		}
	}

	for _, id := range ids {
		cc := caseComparison{CaseID: id}
		changed := false
		for _, r := range reports {
			cc.Outcomes = append(cc.Outcomes, caseOutcome(r.FindCase(id)))
			if cc.Outcomes[len(cc.Outcomes)-1] != cc.Outcomes[0] {
				changed = true
			}
		}
		if changed {
			cmp.ChangedCases = append(cmp.ChangedCases, cc)
		}
	}

	return cmp
}

func significant(a, b *statistics.ConfidenceInterval) *bool {
	if a == nil || b == nil {
		return nil
	}
	s := !statistics.Overlaps(*a, *b)
	return &s
}

// caseOutcome renders a case as "agent✓ step✗" when scored, otherwise its
// status.
func caseOutcome(c *models.CaseResult) string {
	if c == nil {
		return string(models.StatusNA)
	}
	if c.Status != models.StatusScored {
		return string(c.Status)
	}
	return fmt.Sprintf("agent%s step%s", mark(c.AgentCorrect), mark(c.StepCorrect))
}

func mark(ok bool) string {
	if ok {
		return "✓"
	}
	return "✗"
}

// maxFileWidth bounds the report column of the comparison table.
const maxFileWidth = 40

func printComparisonTable(w io.Writer, cmp *comparison) error {
	fmt.Fprintln(w, strings.Repeat("=", 70))
	fmt.Fprintln(w, " COMPARISON REPORT")
	fmt.Fprintln(w, strings.Repeat("=", 70))
	fmt.Fprintln(w)

	summary := reporting.NewTable([]string{"#", "Report", "Match", "Refs", "Agent %", "Δ Agent", "Step %", "Δ Step"}, w)
	for i, m := range cmp.Reports {
		row := []string{
			fmt.Sprintf("[%d]", i+1),
			runewidth.Truncate(m.File, maxFileWidth, "..."),
			m.MatchMode,
			fmt.Sprintf("%d", m.TotalReferences),
			fmt.Sprintf("%.2f", m.AgentAccuracy),
			formatDelta(m.AgentDelta, m.AgentSignificant),
			fmt.Sprintf("%.2f", m.StepAccuracy),
			formatDelta(m.StepDelta, m.StepSignificant),
		}
		if err := summary.Append(row); err != nil {
			return err
		}
	}
	if err := summary.Render(); err != nil {
		return err
	}
	fmt.Fprintln(w)

	if len(cmp.ChangedCases) == 0 {
		fmt.Fprintln(w, "No case outcomes changed.")
		return nil
	}

	headers := []string{"Case"}
	for i := range cmp.Reports {
		headers = append(headers, fmt.Sprintf("[%d]", i+1))
	}
	cases := reporting.NewTable(headers, w)
	for _, cc := range cmp.ChangedCases {
		if err := cases.Append(append([]string{cc.CaseID}, cc.Outcomes...)); err != nil {
			return err
		}
	}
	return cases.Render()
}

// formatDelta marks significant changes with a trailing "*".
func formatDelta(d float64, sig *bool) string {
	var s string
	switch {
	case d > 0:
		s = fmt.Sprintf("↑%+.2f", d)
	case d < 0:
		s = fmt.Sprintf("↓%+.2f", d)
	default:
		s = "0.00"
	}
	if sig != nil && *sig {
		s += " *"
	}
	return s
}

func printComparisonJSON(w io.Writer, cmp *comparison) error {
	data, err := json.MarshalIndent(cmp, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal comparison report: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
