package orchestration

import (
	"testing"

	"github.com/spboyer/faeval/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleIDs() []string {
	return []string{"1.json", "12.json", "2.json", "hand_3.json"}
}

func TestFilterCaseIDs_NoPatterns(t *testing.T) {
	result, err := FilterCaseIDs(sampleIDs(), nil)
	require.NoError(t, err)
	assert.Len(t, result, 4, "empty patterns should return all ids")
}

func TestFilterCaseIDs_Exact(t *testing.T) {
	result, err := FilterCaseIDs(sampleIDs(), []string{"2.json"})
	require.NoError(t, err)
	assert.Equal(t, []string{"2.json"}, result)
}

func TestFilterCaseIDs_GlobPattern(t *testing.T) {
	result, err := FilterCaseIDs(sampleIDs(), []string{"1*.json"})
	require.NoError(t, err)
	assert.Equal(t, []string{"1.json", "12.json"}, result)
}

func TestFilterCaseIDs_MultiplePatterns(t *testing.T) {
	result, err := FilterCaseIDs(sampleIDs(), []string{"hand_*", "2.json"})
	require.NoError(t, err)
	assert.Equal(t, []string{"2.json", "hand_3.json"}, result)
}

func TestFilterCaseIDs_NoMatch(t *testing.T) {
	result, err := FilterCaseIDs(sampleIDs(), []string{"nothing*"})
	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestFilterCaseIDs_InvalidPattern(t *testing.T) {
	_, err := FilterCaseIDs(sampleIDs(), []string{"[invalid"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid case filter pattern")
}

func TestFilterPredictions(t *testing.T) {
	preds := map[string]models.PredictionRecord{
		"1.json":      {CaseID: "1.json"},
		"hand_3.json": {CaseID: "hand_3.json"},
	}

	all, err := FilterPredictions(preds, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	hand, err := FilterPredictions(preds, []string{"hand_*"})
	require.NoError(t, err)
	assert.Equal(t, map[string]models.PredictionRecord{"hand_3.json": {CaseID: "hand_3.json"}}, hand)
}

func TestValidatePatterns(t *testing.T) {
	assert.NoError(t, ValidatePatterns([]string{"*.json", "a?.json"}))
	assert.Error(t, ValidatePatterns([]string{"ok", "[bad"}))
}
