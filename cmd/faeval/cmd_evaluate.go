package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spboyer/faeval/internal/accuracy"
	"github.com/spboyer/faeval/internal/models"
	"github.com/spboyer/faeval/internal/orchestration"
	"github.com/spboyer/faeval/internal/projectconfig"
	"github.com/spboyer/faeval/internal/reporting"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

type evaluateOptions struct {
	evalFile   string
	dataPath   string
	match      string
	confidence float64
	seed       int64
	outputPath string
	junitPath  string
	format     string
	verbose    bool
	strict     bool
	minAgent   float64
	minStep    float64
	cases      []string
}

func newEvaluateCommand(fs afero.Fs) *cobra.Command {
	opts := &evaluateOptions{}

	cmd := &cobra.Command{
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEvaluate(cmd, fs, opts)
		},
	}

	cmd.Flags().StringVar(&opts.evalFile, "eval_file", "", "Path to the evaluation log containing the predictions")
	cmd.Flags().StringVar(&opts.dataPath, "data_path", projectconfig.DefaultDataPath, "Directory holding the labelled reference JSON files")
	cmd.Flags().StringVar(&opts.match, "match", projectconfig.DefaultMatch, "Comparison mode: contains or exact")
	cmd.Flags().Float64Var(&opts.confidence, "confidence", projectconfig.DefaultConfidence, "Bootstrap confidence level in (0, 1); 0 disables intervals")
	cmd.Flags().Int64Var(&opts.seed, "seed", projectconfig.DefaultSeed, "Random seed for confidence intervals (negative for random)")
	cmd.Flags().StringVarP(&opts.outputPath, "output", "o", "", "Write the full report as JSON to this file")
	cmd.Flags().StringVar(&opts.junitPath, "junit", "", "Write a JUnit XML report to this file")
	cmd.Flags().StringVar(&opts.format, "format", projectconfig.DefaultFormat, "Output format: text, markdown or json")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Print progress and a per-case table")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Fail with exit code 2 on an unusable data path or any input failure")
	cmd.Flags().Float64Var(&opts.minAgent, "min-agent-accuracy", 0, "Exit with code 1 when agent accuracy (percent) is below this value")
	cmd.Flags().Float64Var(&opts.minStep, "min-step-accuracy", 0, "Exit with code 1 when step accuracy (percent) is below this value")
	cmd.Flags().StringArrayVar(&opts.cases, "case", nil, "Only evaluate case ids matching this glob pattern (can be repeated)")
	_ = cmd.MarkFlagRequired("eval_file")

	return cmd
}

func runEvaluate(cmd *cobra.Command, fs afero.Fs, opts *evaluateOptions) error {
	ctx := cmd.Context()

	cfg, err := projectconfig.Load(ctx, fs, ".")
	if err != nil {
		return err
	}
	applyFlags(cmd, cfg, opts)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := checkThreshold("min-agent-accuracy", opts.minAgent); err != nil {
		return err
	}
	if err := checkThreshold("min-step-accuracy", opts.minStep); err != nil {
		return err
	}

	match, err := accuracy.ParseMatchMode(cfg.Scoring.Match)
	if err != nil {
		return err
	}
	strict := cfg.Report.Strict != nil && *cfg.Report.Strict

	runner := orchestration.NewRunner(orchestration.Options{
		Fs:          fs,
		EvalFile:    opts.evalFile,
		DataPath:    cfg.Paths.Data,
		Match:       match,
		Confidence:  cfg.Statistics.Confidence,
		Seed:        *cfg.Statistics.Seed,
		Strict:      strict,
		CaseFilters: opts.cases,
	})
	if opts.verbose {
		runner.OnProgress(progressListener(cmd.ErrOrStderr()))
	}

	report, err := runner.Run(ctx)
	if err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if err := writeReport(out, cfg.Report.Format, report, opts.verbose); err != nil {
		return err
	}

	if opts.outputPath != "" {
		if err := models.SaveReport(fs, report, opts.outputPath); err != nil {
			return fmt.Errorf("failed to save report: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Report saved to: %s\n", opts.outputPath)
	}
	if opts.junitPath != "" {
		if err := reporting.WriteJUnitXML(fs, report, opts.junitPath); err != nil {
			return fmt.Errorf("failed to write JUnit report: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "JUnit report saved to: %s\n", opts.junitPath)
	}

	if strict && report.Summary.FailureCount() > 0 {
		return fmt.Errorf("strict mode: %d input failure(s): %s",
			report.Summary.FailureCount(), reporting.FormatFailures(report.Summary.Failures))
	}

	return checkGates(report.Summary, opts)
}

// applyFlags overlays explicitly set flags onto the loaded configuration.
func applyFlags(cmd *cobra.Command, cfg *projectconfig.ProjectConfig, opts *evaluateOptions) {
	flags := cmd.Flags()
	if flags.Changed("data_path") {
		cfg.Paths.Data = opts.dataPath
	}
	if flags.Changed("match") {
		cfg.Scoring.Match = opts.match
	}
	if flags.Changed("confidence") {
		cfg.Statistics.Confidence = opts.confidence
	}
	if flags.Changed("seed") {
		seed := opts.seed
		cfg.Statistics.Seed = &seed
	}
	if flags.Changed("format") {
		cfg.Report.Format = opts.format
	}
	if flags.Changed("strict") {
		strict := opts.strict
		cfg.Report.Strict = &strict
	}
}

func checkThreshold(name string, v float64) error {
	if v < 0 || v > 100 {
		return fmt.Errorf("--%s must be between 0 and 100, got %v", name, v)
	}
	return nil
}

func checkGates(s models.Summary, opts *evaluateOptions) error {
	if opts.minAgent > 0 && s.AgentAccuracy < opts.minAgent {
		return &TestFailureError{
			Message: fmt.Sprintf("agent accuracy %.2f%% is below the required %.2f%%", s.AgentAccuracy, opts.minAgent),
		}
	}
	if opts.minStep > 0 && s.StepAccuracy < opts.minStep {
		return &TestFailureError{
			Message: fmt.Sprintf("step accuracy %.2f%% is below the required %.2f%%", s.StepAccuracy, opts.minStep),
		}
	}
	return nil
}

func writeReport(w io.Writer, format string, report *models.EvaluationReport, verbose bool) error {
	switch format {
	case "markdown":
		_, err := io.WriteString(w, reporting.FormatMarkdown(report))
		return err
	case "json":
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal report: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	default:
		if verbose && len(report.Cases) > 0 {
			if err := reporting.WriteCaseTable(w, report.Cases); err != nil {
				return err
			}
			fmt.Fprintln(w)
		}
		return reporting.WriteSummary(w, report)
	}
}

func progressListener(w io.Writer) orchestration.ProgressListener {
	return func(event orchestration.ProgressEvent) {
		switch event.EventType {
		case orchestration.EventReferencesListed:
			fmt.Fprintf(w, "Found %d reference file(s) in %s\n", event.Count, event.Path)
		case orchestration.EventBlockUnparsed:
			fmt.Fprintf(w, "  ✗ %s: could not parse Agent Name/Step Number\n", event.CaseID)
		case orchestration.EventPredictionsParsed:
			fmt.Fprintf(w, "Parsed %d prediction(s) from %s\n", event.Count, event.Path)
		case orchestration.EventEvaluationComplete:
			fmt.Fprintf(w, "Scored %d case(s): %s\n\n", event.Count, event.Message)
		}
	}
}
