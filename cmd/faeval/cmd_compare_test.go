package main

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/spboyer/faeval/internal/models"
	"github.com/spboyer/faeval/internal/statistics"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport(agentAcc, stepAcc float64, cases ...models.CaseResult) *models.EvaluationReport {
	return &models.EvaluationReport{
		EvalFile:  "eval.txt",
		DataPath:  "/data",
		MatchMode: "contains",
		Summary: models.Summary{
			TotalReferences: 2,
			AgentAccuracy:   agentAcc,
			StepAccuracy:    stepAcc,
		},
		Cases: cases,
	}
}

func writeReports(t *testing.T) (afero.Fs, string, string) {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/runs", 0o755))

	before := sampleReport(50, 50,
		models.CaseResult{CaseID: "1.json", Status: models.StatusScored, AgentCorrect: true, StepCorrect: true},
		models.CaseResult{CaseID: "2.json", Status: models.StatusScored},
	)
	after := sampleReport(100, 50,
		models.CaseResult{CaseID: "1.json", Status: models.StatusScored, AgentCorrect: true, StepCorrect: true},
		models.CaseResult{CaseID: "2.json", Status: models.StatusScored, AgentCorrect: true},
		models.CaseResult{CaseID: "3.json", Status: models.StatusMissingReference},
	)
	require.NoError(t, models.SaveReport(fs, before, "/runs/before.json"))
	require.NoError(t, models.SaveReport(fs, after, "/runs/after.json"))
	return fs, "/runs/before.json", "/runs/after.json"
}

func TestCompareCommand_RequiresAtLeastTwoArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no args", []string{"compare"}},
		{"one arg", []string{"compare", "one.json"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runCLI(t, afero.NewMemMapFs(), tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestCompareCommand_MissingFile(t *testing.T) {
	_, _, err := runCLI(t, afero.NewMemMapFs(), "compare", "a.json", "b.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load")
}

func TestCompareCommand_InvalidFormat(t *testing.T) {
	fs, a, b := writeReports(t)

	_, _, err := runCLI(t, fs, "compare", a, b, "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")
}

func TestCompareCommand_TableOutput(t *testing.T) {
	fs, a, b := writeReports(t)

	out, _, err := runCLI(t, fs, "compare", a, b)
	require.NoError(t, err)

	assert.Contains(t, out, "COMPARISON REPORT")
	assert.Contains(t, out, "/runs/before.json")
	assert.Contains(t, out, "↑+50.00")
	assert.Contains(t, out, "2.json")
	assert.Contains(t, out, "agent✓ step✗")
	assert.Contains(t, out, "n/a")
	assert.NotContains(t, out, "| 1.json")
}

func TestCompareCommand_JSONOutput(t *testing.T) {
	fs, a, b := writeReports(t)

	out, _, err := runCLI(t, fs, "compare", a, b, "-f", "json")
	require.NoError(t, err)

	var cmp comparison
	require.NoError(t, json.Unmarshal([]byte(out), &cmp))
	require.Len(t, cmp.Reports, 2)
	assert.Equal(t, 0.0, cmp.Reports[0].AgentDelta)
	assert.Equal(t, 50.0, cmp.Reports[1].AgentDelta)
	assert.Equal(t, 0.0, cmp.Reports[1].StepDelta)

	require.Len(t, cmp.ChangedCases, 2)
	assert.Equal(t, "2.json", cmp.ChangedCases[0].CaseID)
	assert.Equal(t, []string{"agent✗ step✗", "agent✓ step✗"}, cmp.ChangedCases[0].Outcomes)
	assert.Equal(t, []string{"n/a", "missing_reference"}, cmp.ChangedCases[1].Outcomes)
}

func TestCompareCommand_NoChanges(t *testing.T) {
	fs, a, _ := writeReports(t)

	out, _, err := runCLI(t, fs, "compare", a, a)
	require.NoError(t, err)
	assert.Contains(t, out, "No case outcomes changed.")
}

func TestCompareCommand_SignificantDelta(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/runs", 0o755))

	before := sampleReport(20, 40)
	before.Summary.AgentCI = &statistics.ConfidenceInterval{Lower: 10, Upper: 30, ConfidenceLevel: 0.95}
	before.Summary.StepCI = &statistics.ConfidenceInterval{Lower: 30, Upper: 50, ConfidenceLevel: 0.95}
	after := sampleReport(80, 45)
	after.Summary.AgentCI = &statistics.ConfidenceInterval{Lower: 70, Upper: 90, ConfidenceLevel: 0.95}
	after.Summary.StepCI = &statistics.ConfidenceInterval{Lower: 35, Upper: 55, ConfidenceLevel: 0.95}
	require.NoError(t, models.SaveReport(fs, before, "/runs/a.json"))
	require.NoError(t, models.SaveReport(fs, after, "/runs/b.json"))

	out, _, err := runCLI(t, fs, "compare", "/runs/a.json", "/runs/b.json")
	require.NoError(t, err)
	assert.Contains(t, out, "↑+60.00 *")
	assert.Contains(t, out, "↑+5.00")
	assert.NotContains(t, out, "↑+5.00 *")

	out, _, err = runCLI(t, fs, "compare", "/runs/a.json", "/runs/b.json", "--format", "json")
	require.NoError(t, err)
	var cmp comparison
	require.NoError(t, json.Unmarshal([]byte(out), &cmp))
	require.NotNil(t, cmp.Reports[1].AgentSignificant)
	assert.True(t, *cmp.Reports[1].AgentSignificant)
	assert.False(t, *cmp.Reports[1].StepSignificant)
}

func TestCompareCommand_NoIntervals(t *testing.T) {
	fs, a, b := writeReports(t)

	out, _, err := runCLI(t, fs, "compare", a, b, "--format", "json")
	require.NoError(t, err)

	var cmp comparison
	require.NoError(t, json.Unmarshal([]byte(out), &cmp))
	assert.Nil(t, cmp.Reports[1].AgentSignificant)
}

func TestCompareCommand_TruncatesLongPaths(t *testing.T) {
	fs, a, _ := writeReports(t)
	long := "/runs/" + strings.Repeat("nested/", 8) + "after.json"
	require.NoError(t, fs.MkdirAll("/runs/"+strings.Repeat("nested/", 8), 0o755))
	require.NoError(t, models.SaveReport(fs, sampleReport(50, 50), long))

	out, _, err := runCLI(t, fs, "compare", a, long)
	require.NoError(t, err)
	assert.NotContains(t, out, long)
	assert.Contains(t, out, "/runs/nested/")
	assert.Contains(t, out, "...")
}
