package main

import (
	"log/slog"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var version = "dev"

func newRootCommand(fs afero.Fs) *cobra.Command {
	cmd := newEvaluateCommand(fs)
	cmd.Use = "faeval --eval_file <log> [--data_path <dir>]"
	cmd.Short = "faeval - score failure-attribution predictions against labelled data"
	cmd.Long = `faeval scores a failure-attribution prediction log against a directory of
labelled reference files.

Each "Prediction for <case>:" block in the log names the agent and step
blamed for a failed multi-agent run. faeval compares those predictions with
the mistake_agent and mistake_step recorded in <data_path>/<case> and reports
agent-level and step-level accuracy over every reference file.`
	cmd.Version = version
	cmd.SilenceUsage = true

	debugLogging := cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if *debugLogging {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
	}

	cmd.AddCommand(newCompareCommand(fs))
	cmd.SetGlobalNormalizationFunc(normalizeFlagName)

	return cmd
}

// normalizeFlagName accepts hyphenated spellings of the underscore flags.
func normalizeFlagName(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	switch name {
	case "data-path":
		name = "data_path"
	case "eval-file":
		name = "eval_file"
	}
	return pflag.NormalizedName(name)
}

func execute() error {
	rootCmd := newRootCommand(afero.NewOsFs())
	return rootCmd.Execute()
}
