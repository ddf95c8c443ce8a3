package orchestration

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/spboyer/faeval/internal/accuracy"
	"github.com/spboyer/faeval/internal/groundtruth"
	"github.com/spboyer/faeval/internal/models"
	"github.com/spboyer/faeval/internal/prediction"
	"github.com/spboyer/faeval/internal/statistics"
	"github.com/spf13/afero"
)

// Options configures one evaluation run.
type Options struct {
	// Fs is the filesystem to read from. Defaults to the OS filesystem.
	Fs       afero.Fs
	EvalFile string
	DataPath string
	Match    accuracy.MatchMode
	// Confidence is the bootstrap confidence level in (0, 1). Zero disables
	// confidence intervals.
	Confidence float64
	// Seed makes confidence intervals reproducible. Negative is random.
	Seed int64
	// Strict turns an unusable data directory into an error instead of an
	// empty reference set.
	Strict bool
	// CaseFilters restricts the run to case ids matching any glob pattern.
	// The accuracy denominator counts only matching reference files.
	CaseFilters []string
}

// Runner evaluates a prediction log against a directory of reference files.
type Runner struct {
	opts Options
	now  func() time.Time

	progressMu sync.Mutex
	listeners  []ProgressListener
}

// ProgressListener receives progress updates
type ProgressListener func(event ProgressEvent)

// EventType represents the type of progress event
type EventType string

// EventType constants
const (
	EventReferencesListed   EventType = "references_listed"
	EventPredictionsParsed  EventType = "predictions_parsed"
	EventBlockUnparsed      EventType = "block_unparsed"
	EventEvaluationComplete EventType = "evaluation_complete"
)

// ProgressEvent represents a progress update
type ProgressEvent struct {
	EventType EventType
	CaseID    string
	Path      string
	Count     int
	Message   string
}

// NewRunner creates a Runner for opts.
func NewRunner(opts Options) *Runner {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Match == "" {
		opts.Match = accuracy.DefaultMatchMode
	}
	return &Runner{opts: opts, now: time.Now}
}

// OnProgress registers a progress listener
func (r *Runner) OnProgress(listener ProgressListener) {
	r.progressMu.Lock()
	defer r.progressMu.Unlock()
	r.listeners = append(r.listeners, listener)
}

func (r *Runner) notifyProgress(event ProgressEvent) {
	r.progressMu.Lock()
	listeners := r.listeners
	r.progressMu.Unlock()

	for _, listener := range listeners {
		listener(event)
	}
}

// Run lists the reference files, parses the prediction log and scores every
// prediction. Input failures are recorded as diagnostics on the report. An
// error is returned only when ctx is cancelled, a case filter is malformed
// or, with Strict set, when the data directory cannot be used.
func (r *Runner) Run(ctx context.Context) (*models.EvaluationReport, error) {
	if err := ValidatePatterns(r.opts.CaseFilters); err != nil {
		return nil, err
	}

	var diags []models.Diagnostic

	loader := groundtruth.NewLoader(r.opts.Fs, r.opts.DataPath)
	refs, err := loader.References()
	if err != nil {
		if r.opts.Strict {
			return nil, fmt.Errorf("invalid data path: %w", err)
		}
		slog.ErrorContext(ctx, "reading data directory", "path", r.opts.DataPath, "error", err)
		diags = append(diags, models.DiagnosticFromError("", err))
		refs = nil
	}
	refs, _ = FilterCaseIDs(refs, r.opts.CaseFilters)
	r.notifyProgress(ProgressEvent{EventType: EventReferencesListed, Path: r.opts.DataPath, Count: len(refs)})

	extraction, err := prediction.ReadFile(r.opts.Fs, r.opts.EvalFile)
	if err != nil {
		slog.ErrorContext(ctx, "reading evaluation file", "path", r.opts.EvalFile, "error", err)
		diags = append(diags, models.DiagnosticFromError("", err))
		extraction = prediction.Extract("")
	}
	for _, u := range extraction.Unparsed {
		slog.WarnContext(ctx, "could not parse Agent Name/Step Number", "case", u.CaseID, "file", r.opts.EvalFile)
		r.notifyProgress(ProgressEvent{EventType: EventBlockUnparsed, CaseID: u.CaseID, Path: r.opts.EvalFile})
	}
	diags = append(diags, extraction.Diagnostics()...)
	extraction.Predictions, _ = FilterPredictions(extraction.Predictions, r.opts.CaseFilters)
	slog.InfoContext(ctx, "parsed predictions", "file", r.opts.EvalFile, "blocks", extraction.Blocks, "cases", len(extraction.Predictions))
	r.notifyProgress(ProgressEvent{EventType: EventPredictionsParsed, Path: r.opts.EvalFile, Count: len(extraction.Predictions)})

	res, err := accuracy.ScoreContext(ctx, extraction.Predictions, len(refs), loader, accuracy.WithMatchMode(r.opts.Match))
	if err != nil {
		return nil, err
	}
	diags = append(diags, res.Diagnostics...)

	cases := append([]models.CaseResult(nil), res.Cases...)
	unpredicted := 0
	for _, name := range refs {
		if _, ok := extraction.Predictions[name]; ok {
			continue
		}
		unpredicted++
		cases = append(cases, models.CaseResult{CaseID: name, Status: models.StatusNoPrediction})
	}
	sort.SliceStable(cases, func(i, j int) bool { return cases[i].CaseID < cases[j].CaseID })

	summary := models.Summary{
		TotalReferences:   res.Total,
		Blocks:            extraction.Blocks,
		Predictions:       len(extraction.Predictions),
		UnparsedBlocks:    len(extraction.Unparsed),
		Evaluated:         res.Evaluated,
		Scored:            res.Scored,
		MissingReferences: res.MissingReferences,
		Unpredicted:       unpredicted,
		CorrectAgent:      res.CorrectAgent,
		CorrectStep:       res.CorrectStep,
		AgentAccuracy:     res.AgentAccuracy,
		StepAccuracy:      res.StepAccuracy,
		Failures:          models.CountFailures(diags),
	}
	if r.opts.Confidence > 0 {
		summary.AgentCI = statistics.AccuracyCI(res.CorrectAgent, res.Total, r.opts.Confidence, r.opts.Seed)
		summary.StepCI = statistics.AccuracyCI(res.CorrectStep, res.Total, r.opts.Confidence, r.opts.Seed)
	}

	report := &models.EvaluationReport{
		EvalFile:    r.opts.EvalFile,
		DataPath:    r.opts.DataPath,
		MatchMode:   string(res.MatchMode),
		Timestamp:   r.now().UTC(),
		Summary:     summary,
		Cases:       cases,
		Diagnostics: diags,
	}

	r.notifyProgress(ProgressEvent{
		EventType: EventEvaluationComplete,
		Count:     res.Scored,
		Message:   fmt.Sprintf("agent %.2f%%, step %.2f%%", res.AgentAccuracy, res.StepAccuracy),
	})

	return report, nil
}
