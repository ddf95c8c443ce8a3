package orchestration

import (
	"fmt"
	"path/filepath"

	"github.com/spboyer/faeval/internal/models"
)

// FilterCaseIDs returns the ids that match at least one of the given glob
// patterns, in their original order. An empty patterns slice returns ids
// unchanged.
func FilterCaseIDs(ids []string, patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		return ids, nil
	}

	var matched []string
	for _, id := range ids {
		ok, err := matchesAny(id, patterns)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, id)
		}
	}
	return matched, nil
}

// FilterPredictions drops predictions whose case id matches none of the
// patterns.
func FilterPredictions(preds map[string]models.PredictionRecord, patterns []string) (map[string]models.PredictionRecord, error) {
	if len(patterns) == 0 {
		return preds, nil
	}

	matched := make(map[string]models.PredictionRecord)
	for id, p := range preds {
		ok, err := matchesAny(id, patterns)
		if err != nil {
			return nil, err
		}
		if ok {
			matched[id] = p
		}
	}
	return matched, nil
}

// ValidatePatterns reports the first malformed glob pattern.
func ValidatePatterns(patterns []string) error {
	for _, p := range patterns {
		if _, err := filepath.Match(p, ""); err != nil {
			return fmt.Errorf("invalid case filter pattern %q: %w", p, err)
		}
	}
	return nil
}

func matchesAny(id string, patterns []string) (bool, error) {
	for _, p := range patterns {
		ok, err := filepath.Match(p, id)
		if err != nil {
			return false, fmt.Errorf("invalid case filter pattern %q: %w", p, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
