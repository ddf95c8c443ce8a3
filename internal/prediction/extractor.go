// Package prediction parses the free-text evaluation log produced by an
// attribution run into per-case predicted (agent, step) pairs.
package prediction

import (
	"errors"
	"io/fs"
	"regexp"
	"strings"

	"github.com/spboyer/faeval/internal/models"
	"github.com/spf13/afero"
)

// blockTerminator ends a block body. It is matched literally so that any
// later "Prediction for" text closes the current block, marker or not.
const blockTerminator = "Prediction for"

var (
	markerRe = regexp.MustCompile(`Prediction for ([^:\r\n]+):`)
	agentRe  = regexp.MustCompile(`(?i)Agent Name:\s*([\p{L}\p{N}_]+)`)
	stepRe   = regexp.MustCompile(`(?i)Step Number:\s*([0-9]+)`)
)

// UnparsedBlock identifies a block that lacked one or both fields.
type UnparsedBlock struct {
	CaseID       string `json:"case_id"`
	MissingAgent bool   `json:"missing_agent"`
	MissingStep  bool   `json:"missing_step"`
}

// Extraction is the result of parsing one evaluation log.
type Extraction struct {
	// Predictions maps case id to the last well-formed block for that id.
	Predictions map[string]models.PredictionRecord
	// Blocks counts well-formed blocks, including duplicates.
	Blocks   int
	Unparsed []UnparsedBlock
}

// Diagnostics returns one unparsable_block diagnostic per unparsed block.
func (e *Extraction) Diagnostics() []models.Diagnostic {
	diags := make([]models.Diagnostic, 0, len(e.Unparsed))
	for _, u := range e.Unparsed {
		diags = append(diags, models.Diagnostic{
			Kind:    models.KindUnparsableBlock,
			CaseID:  u.CaseID,
			Message: u.reason(),
		})
	}
	return diags
}

func (u UnparsedBlock) reason() string {
	switch {
	case u.MissingAgent && u.MissingStep:
		return "could not parse Agent Name or Step Number"
	case u.MissingAgent:
		return "could not parse Agent Name"
	default:
		return "could not parse Step Number"
	}
}

// Extract splits text into prediction blocks and pulls the agent name and
// step number out of each. Blocks missing either field are recorded in
// Unparsed and produce no record. A repeated case id overwrites the earlier
// record.
func Extract(text string) *Extraction {
	out := &Extraction{Predictions: make(map[string]models.PredictionRecord)}

	pos := 0
	for pos < len(text) {
		loc := markerRe.FindStringSubmatchIndex(text[pos:])
		if loc == nil {
			break
		}
		caseID := strings.TrimSpace(text[pos+loc[2] : pos+loc[3]])
		bodyStart := pos + loc[1]
		bodyEnd := len(text)
		if i := strings.Index(text[bodyStart:], blockTerminator); i >= 0 {
			bodyEnd = bodyStart + i
		}
		body := text[bodyStart:bodyEnd]
		pos = bodyEnd

		if caseID == "" {
			continue
		}

		agent := agentRe.FindStringSubmatch(body)
		step := stepRe.FindStringSubmatch(body)
		if agent == nil || step == nil {
			out.Unparsed = append(out.Unparsed, UnparsedBlock{
				CaseID:       caseID,
				MissingAgent: agent == nil,
				MissingStep:  step == nil,
			})
			continue
		}

		out.Predictions[caseID] = models.PredictionRecord{
			CaseID:         caseID,
			PredictedAgent: strings.TrimSpace(agent[1]),
			PredictedStep:  step[1],
		}
		out.Blocks++
	}

	return out
}

// ReadFile reads the log at path and extracts its predictions. A missing
// file yields a not_found *models.EvalError, any other read failure an
// io_failure one.
func ReadFile(fsys afero.Fs, path string) (*Extraction, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		kind := models.KindIOFailure
		if errors.Is(err, fs.ErrNotExist) {
			kind = models.KindNotFound
		}
		return nil, &models.EvalError{Kind: kind, Path: path, Err: err}
	}
	return Extract(string(data)), nil
}
