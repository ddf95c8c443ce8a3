package prediction

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spboyer/faeval/internal/models"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func block(caseID, agent, step string) string {
	return fmt.Sprintf("Prediction for %s:\nAgent Name: %s\nStep Number: %s\nReason: looked wrong\n\n", caseID, agent, step)
}

func TestExtract_WellFormedBlocks(t *testing.T) {
	log := "Run started\n" +
		block("case_3.json", "WebSurfer", "12") +
		block("case_1.json", "Coder", "3") +
		block("case_2.json", "Orchestrator", "0")

	got := Extract(log)

	want := map[string]models.PredictionRecord{
		"case_1.json": {CaseID: "case_1.json", PredictedAgent: "Coder", PredictedStep: "3"},
		"case_2.json": {CaseID: "case_2.json", PredictedAgent: "Orchestrator", PredictedStep: "0"},
		"case_3.json": {CaseID: "case_3.json", PredictedAgent: "WebSurfer", PredictedStep: "12"},
	}
	if diff := cmp.Diff(want, got.Predictions); diff != "" {
		t.Errorf("predictions mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 3, got.Blocks)
	assert.Empty(t, got.Unparsed)
}

func TestExtract_OrderIndependent(t *testing.T) {
	blocks := []string{
		block("a.json", "Alpha", "1"),
		block("b.json", "Beta", "2"),
		block("c.json", "Gamma", "3"),
	}
	forward := Extract(strings.Join(blocks, ""))
	reverse := Extract(blocks[2] + blocks[1] + blocks[0])

	if diff := cmp.Diff(forward.Predictions, reverse.Predictions); diff != "" {
		t.Errorf("block order changed the result (-forward +reverse):\n%s", diff)
	}
}

func TestExtract_DuplicateLastWins(t *testing.T) {
	log := block("case_1.json", "Planner", "2") + block("case_1.json", "Coder", "5")

	got := Extract(log)

	require.Len(t, got.Predictions, 1)
	assert.Equal(t, models.PredictionRecord{CaseID: "case_1.json", PredictedAgent: "Coder", PredictedStep: "5"}, got.Predictions["case_1.json"])
	assert.Equal(t, 2, got.Blocks)
}

func TestExtract_MalformedBlockSkipped(t *testing.T) {
	log := block("good_1.json", "Coder", "3") +
		"Prediction for bad.json:\nAgent Name: Coder\nNo step here\n" +
		block("good_2.json", "Planner", "7")

	got := Extract(log)

	assert.Len(t, got.Predictions, 2)
	assert.Contains(t, got.Predictions, "good_1.json")
	assert.Contains(t, got.Predictions, "good_2.json")
	assert.NotContains(t, got.Predictions, "bad.json")
	require.Len(t, got.Unparsed, 1)
	assert.Equal(t, UnparsedBlock{CaseID: "bad.json", MissingStep: true}, got.Unparsed[0])

	diags := got.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, models.KindUnparsableBlock, diags[0].Kind)
	assert.Equal(t, "bad.json", diags[0].CaseID)
	assert.Equal(t, "could not parse Step Number", diags[0].Message)
}

func TestExtract_FieldsAnyOrderAndCase(t *testing.T) {
	log := "Prediction for case_9.json:\nsome reasoning first\nSTEP NUMBER: 14\nagent name: Data_Analyst\n"

	got := Extract(log)

	assert.Equal(t, models.PredictionRecord{CaseID: "case_9.json", PredictedAgent: "Data_Analyst", PredictedStep: "14"}, got.Predictions["case_9.json"])
}

func TestExtract_ValueOnNextLine(t *testing.T) {
	log := "Prediction for case_4.json:\nAgent Name:\n  Verifier\nStep Number:\n  8\n"

	got := Extract(log)

	assert.Equal(t, "Verifier", got.Predictions["case_4.json"].PredictedAgent)
	assert.Equal(t, "8", got.Predictions["case_4.json"].PredictedStep)
}

func TestExtract_TokenBoundaries(t *testing.T) {
	log := "Prediction for case_5.json:\nAgent Name: Expert_1 (the verifier)\nStep Number: 007th\n"

	got := Extract(log)

	assert.Equal(t, "Expert_1", got.Predictions["case_5.json"].PredictedAgent)
	assert.Equal(t, "007", got.Predictions["case_5.json"].PredictedStep)
}

func TestExtract_CaseIDTrimmed(t *testing.T) {
	got := Extract("Prediction for   spaced.json  :\nAgent Name: A\nStep Number: 1\n")

	assert.Contains(t, got.Predictions, "spaced.json")
}

func TestExtract_BodyEndsAtNextPredictionFor(t *testing.T) {
	// The second "Prediction for" is not a marker, but it still closes the first block.
	log := "Prediction for case_1.json:\nAgent Name: Coder\nPrediction for the step was unclear\nStep Number: 2\n"

	got := Extract(log)

	assert.Empty(t, got.Predictions)
	require.Len(t, got.Unparsed, 1)
	assert.True(t, got.Unparsed[0].MissingStep)
}

func TestExtract_MarkerIsCaseSensitive(t *testing.T) {
	got := Extract("prediction for case_1.json:\nAgent Name: Coder\nStep Number: 2\n")

	assert.Empty(t, got.Predictions)
	assert.Empty(t, got.Unparsed)
}

func TestExtract_Empty(t *testing.T) {
	got := Extract("")

	assert.NotNil(t, got.Predictions)
	assert.Empty(t, got.Predictions)
	assert.Zero(t, got.Blocks)
}

func TestReadFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/logs/eval.txt", []byte(block("case_1.json", "Coder", "3")), 0o644))

	got, err := ReadFile(fs, "/logs/eval.txt")
	require.NoError(t, err)
	assert.Len(t, got.Predictions, 1)
}

func TestReadFile_NotFound(t *testing.T) {
	fs := afero.NewMemMapFs()

	got, err := ReadFile(fs, "/logs/missing.txt")

	require.Error(t, err)
	assert.Nil(t, got)
	assert.Equal(t, models.KindNotFound, models.KindOf(err))
	assert.Contains(t, err.Error(), "/logs/missing.txt")
}
