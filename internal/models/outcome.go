package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spboyer/faeval/internal/statistics"
	"github.com/spf13/afero"
)

// CaseStatus represents how a single case took part in scoring.
type CaseStatus string

const (
	// StatusScored means a prediction and its ground truth were compared.
	StatusScored CaseStatus = "scored"
	// StatusSkipped means the reference file exists but could not be used.
	StatusSkipped CaseStatus = "skipped"
	// StatusMissingReference means a prediction has no reference file.
	StatusMissingReference CaseStatus = "missing_reference"
	// StatusNoPrediction means a reference file has no prediction. It still
	// counts toward the denominator.
	StatusNoPrediction CaseStatus = "no_prediction"
	// StatusNA is used in comparison reports when a case is absent from a report.
	StatusNA CaseStatus = "n/a"
)

// PredictionRecord is one predicted (agent, step) pair parsed from the log.
// PredictedStep is kept as text so comparisons stay textual.
type PredictionRecord struct {
	CaseID         string `json:"case_id"`
	PredictedAgent string `json:"predicted_agent"`
	PredictedStep  string `json:"predicted_step"`
}

// GroundTruthRecord is the labelled (agent, step) pair for one case.
type GroundTruthRecord struct {
	CaseID      string `json:"case_id"`
	ActualAgent string `json:"actual_agent"`
	ActualStep  string `json:"actual_step"`
}

// CaseResult is the per-case outcome of an evaluation run.
type CaseResult struct {
	CaseID         string     `json:"case_id"`
	Status         CaseStatus `json:"status"`
	PredictedAgent string     `json:"predicted_agent,omitempty"`
	PredictedStep  string     `json:"predicted_step,omitempty"`
	ActualAgent    string     `json:"actual_agent,omitempty"`
	ActualStep     string     `json:"actual_step,omitempty"`
	AgentCorrect   bool       `json:"agent_correct"`
	StepCorrect    bool       `json:"step_correct"`
	// Error holds the failure message when Status is StatusSkipped or
	// StatusMissingReference.
	Error string `json:"error,omitempty"`
}

// EvaluationReport is the complete result of one evaluation run.
type EvaluationReport struct {
	EvalFile    string       `json:"eval_file"`
	DataPath    string       `json:"data_path"`
	MatchMode   string       `json:"match_mode"`
	Timestamp   time.Time    `json:"timestamp"`
	Summary     Summary      `json:"summary"`
	Cases       []CaseResult `json:"cases"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// Summary holds the aggregate counters and accuracy figures for a run.
type Summary struct {
	// TotalReferences is the number of reference files, and the denominator
	// for both accuracy figures.
	TotalReferences   int     `json:"total_references"`
	Blocks            int     `json:"blocks"`
	Predictions       int     `json:"predictions"`
	UnparsedBlocks    int     `json:"unparsed_blocks"`
	Evaluated         int     `json:"evaluated"`
	Scored            int     `json:"scored"`
	MissingReferences int     `json:"missing_references"`
	Unpredicted       int     `json:"unpredicted"`
	CorrectAgent      int     `json:"correct_agent"`
	CorrectStep       int     `json:"correct_step"`
	AgentAccuracy     float64 `json:"agent_accuracy"`
	StepAccuracy      float64 `json:"step_accuracy"`

	// Percentile bootstrap intervals, in percent, when requested.
	AgentCI *statistics.ConfidenceInterval `json:"agent_ci,omitempty"`
	StepCI  *statistics.ConfidenceInterval `json:"step_ci,omitempty"`

	Failures map[ErrorKind]int `json:"failures,omitempty"`
}

// FailureCount returns the total number of diagnostics recorded for the run.
func (s Summary) FailureCount() int {
	n := 0
	for _, c := range s.Failures {
		n += c
	}
	return n
}

// CountFailures tallies diagnostics by kind. Returns nil for no diagnostics.
func CountFailures(diags []Diagnostic) map[ErrorKind]int {
	if len(diags) == 0 {
		return nil
	}
	counts := make(map[ErrorKind]int)
	for _, d := range diags {
		counts[d.Kind]++
	}
	return counts
}

// FindCase returns the case result with the given id, or nil.
func (r *EvaluationReport) FindCase(caseID string) *CaseResult {
	for i := range r.Cases {
		if r.Cases[i].CaseID == caseID {
			return &r.Cases[i]
		}
	}
	return nil
}

// LoadReport reads an EvaluationReport previously saved as JSON.
func LoadReport(fs afero.Fs, path string) (*EvaluationReport, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading report %s: %w", path, err)
	}
	var report EvaluationReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("parsing report %s: %w", path, err)
	}
	return &report, nil
}

// SaveReport writes report as indented JSON to path.
func SaveReport(fs afero.Fs, report *EvaluationReport, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	return afero.WriteFile(fs, path, data, 0644)
}
