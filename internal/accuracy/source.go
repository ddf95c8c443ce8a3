package accuracy

import "github.com/spboyer/faeval/internal/models"

//go:generate go tool mockgen -source=source.go -destination=mock_source_test.go -package=accuracy

// Source resolves the ground truth for a case id. Implementations report
// failures as *models.EvalError so the kind can be recovered.
type Source interface {
	Lookup(caseID string) (models.GroundTruthRecord, error)
}

// SourceFunc adapts a plain function to Source.
type SourceFunc func(caseID string) (models.GroundTruthRecord, error)

// Lookup calls f(caseID).
func (f SourceFunc) Lookup(caseID string) (models.GroundTruthRecord, error) {
	return f(caseID)
}
