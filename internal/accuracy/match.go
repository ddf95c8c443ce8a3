package accuracy

import (
	"fmt"
	"strings"
)

// MatchMode selects how a predicted value is compared to the actual one.
type MatchMode string

const (
	// MatchContains counts a prediction as correct when the actual value
	// occurs inside the predicted value. Predicted step "13" therefore
	// matches actual step "1".
	MatchContains MatchMode = "contains"
	// MatchExact requires the two values to be identical.
	MatchExact MatchMode = "exact"
)

// DefaultMatchMode is the comparison used when none is configured.
const DefaultMatchMode = MatchContains

// ParseMatchMode validates s as a MatchMode. The empty string selects the default.
func ParseMatchMode(s string) (MatchMode, error) {
	switch MatchMode(s) {
	case "":
		return DefaultMatchMode, nil
	case MatchContains, MatchExact:
		return MatchMode(s), nil
	default:
		return "", fmt.Errorf("unsupported match mode %q: must be %s or %s", s, MatchContains, MatchExact)
	}
}

// Matches reports whether predicted is correct for actual under m.
func (m MatchMode) Matches(actual, predicted string) bool {
	if m == MatchExact {
		return actual == predicted
	}
	return strings.Contains(predicted, actual)
}
