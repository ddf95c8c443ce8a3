// Package accuracy joins parsed predictions with their ground truth and
// computes agent and step accuracy over the whole reference set.
package accuracy

import (
	"context"
	"log/slog"
	"sort"

	"github.com/spboyer/faeval/internal/models"
)

// Result holds the counters and accuracy figures of one scoring pass.
type Result struct {
	// Total is the number of reference cases and the accuracy denominator.
	Total       int
	Predictions int
	// Evaluated counts predictions whose reference file exists, readable or not.
	Evaluated         int
	Scored            int
	MissingReferences int
	CorrectAgent      int
	CorrectStep       int

	// AgentAccuracy and StepAccuracy are percentages of Total.
	AgentAccuracy float64
	StepAccuracy  float64

	MatchMode   MatchMode
	Cases       []models.CaseResult
	Diagnostics []models.Diagnostic
}

type scoreOptions struct {
	match MatchMode
}

// Option configures Score.
type Option func(*scoreOptions)

// WithMatchMode sets the comparison used for both agent and step.
func WithMatchMode(m MatchMode) Option {
	return func(o *scoreOptions) {
		if m != "" {
			o.match = m
		}
	}
}

// Score compares every prediction with the ground truth returned by source
// and computes accuracy against total. Cases are visited in case id order.
//
// A prediction whose reference is missing, or whose reference cannot be
// loaded, adds nothing to the correct counters. References with no
// prediction are not visited here but still count in total.
func Score(predictions map[string]models.PredictionRecord, total int, source Source, opts ...Option) *Result {
	// A background context is never cancelled.
	res, _ := ScoreContext(context.Background(), predictions, total, source, opts...)
	return res
}

// ScoreContext is Score with cancellation checked between cases. On
// cancellation it returns the partial result along with ctx.Err().
func ScoreContext(ctx context.Context, predictions map[string]models.PredictionRecord, total int, source Source, opts ...Option) (*Result, error) {
	o := scoreOptions{match: DefaultMatchMode}
	for _, opt := range opts {
		opt(&o)
	}

	res := &Result{
		Total:       total,
		Predictions: len(predictions),
		MatchMode:   o.match,
	}

	if total == 0 {
		slog.ErrorContext(ctx, "no reference files found to evaluate against")
		res.Diagnostics = append(res.Diagnostics, models.Diagnostic{
			Kind:    models.KindNoReferences,
			Message: "no reference files found in the data path",
		})
		return res, nil
	}

	slog.InfoContext(ctx, "starting evaluation", "references", total, "predictions", len(predictions), "match", o.match)

	ids := make([]string, 0, len(predictions))
	for id := range predictions {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			res.finish()
			return res, err
		}

		pred := predictions[id]
		cr := models.CaseResult{
			CaseID:         id,
			PredictedAgent: pred.PredictedAgent,
			PredictedStep:  pred.PredictedStep,
		}

		actual, err := source.Lookup(id)
		if err != nil {
			diag := models.DiagnosticFromError(id, err)
			res.Diagnostics = append(res.Diagnostics, diag)
			cr.Error = err.Error()
			if diag.Kind == models.KindNotFound {
				slog.WarnContext(ctx, "reference file not found for prediction", "case", id, "path", diag.Path)
				cr.Status = models.StatusMissingReference
				res.MissingReferences++
			} else {
				slog.WarnContext(ctx, "skipping case: could not read ground truth", "case", id, "kind", diag.Kind, "error", err)
				cr.Status = models.StatusSkipped
				res.Evaluated++
			}
			res.Cases = append(res.Cases, cr)
			continue
		}

		res.Evaluated++
		res.Scored++
		cr.Status = models.StatusScored
		cr.ActualAgent = actual.ActualAgent
		cr.ActualStep = actual.ActualStep
		cr.AgentCorrect = o.match.Matches(actual.ActualAgent, pred.PredictedAgent)
		cr.StepCorrect = o.match.Matches(actual.ActualStep, pred.PredictedStep)
		if cr.AgentCorrect {
			res.CorrectAgent++
		}
		if cr.StepCorrect {
			res.CorrectStep++
		}
		slog.DebugContext(ctx, "scored case", "case", id, "agent_correct", cr.AgentCorrect, "step_correct", cr.StepCorrect)
		res.Cases = append(res.Cases, cr)
	}

	res.finish()
	return res, nil
}

func (r *Result) finish() {
	if r.Total <= 0 {
		return
	}
	r.AgentAccuracy = percent(r.CorrectAgent, r.Total)
	r.StepAccuracy = percent(r.CorrectStep, r.Total)
}

func percent(n, total int) float64 {
	return float64(n) / float64(total) * 100
}
