package reporting

import (
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spboyer/faeval/internal/models"
)

// NewTable creates a table writer with the markdown-style formatting shared
// by all reports.
func NewTable(headers []string, w io.Writer) *tablewriter.Table {
	cfg := tablewriter.Config{
		Header: tw.CellConfig{
			Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			Formatting: tw.CellFormatting{AutoFormat: tw.Off},
		},
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignLeft},
		},
		Behavior: tw.Behavior{TrimSpace: tw.Off},
	}
	return tablewriter.NewTable(w,
		tablewriter.WithConfig(cfg),
		tablewriter.WithHeader(headers),
		tablewriter.WithRenderer(renderer.NewBlueprint()),
		tablewriter.WithRendition(tw.Rendition{
			Symbols: tw.NewSymbols(tw.StyleMarkdown),
			Borders: tw.Border{
				Left:   tw.On,
				Top:    tw.Off,
				Right:  tw.On,
				Bottom: tw.Off,
			},
		}),
		tablewriter.WithRowAutoWrap(tw.WrapNone),
	)
}

// WriteCaseTable renders one row per case with predicted and actual values.
func WriteCaseTable(w io.Writer, cases []models.CaseResult) error {
	table := NewTable([]string{"Case", "Status", "Predicted", "Actual", "Agent", "Step"}, w)
	for _, c := range cases {
		agent, step := "-", "-"
		if c.Status == models.StatusScored {
			agent, step = checkmark(c.AgentCorrect), checkmark(c.StepCorrect)
		}
		row := []string{
			c.CaseID,
			string(c.Status),
			pair(c.PredictedAgent, c.PredictedStep),
			pair(c.ActualAgent, c.ActualStep),
			agent,
			step,
		}
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}

func pair(agent, step string) string {
	if agent == "" && step == "" {
		return "-"
	}
	return agent + " @ " + step
}

func checkmark(ok bool) string {
	if ok {
		return "✓"
	}
	return "✗"
}
