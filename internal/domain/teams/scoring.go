package teams

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/okian/starbot/internal/domain/model"
)

// ErrUnknownScoringRule is returned for scoring rule names other than sum
// and mean.
var ErrUnknownScoringRule = errors.New("unknown scoring rule")

// ScoringRule reduces a team's member star counts to one comparable number.
type ScoringRule string

// Supported scoring rules.
const (
	RuleSum  ScoringRule = "sum"
	RuleMean ScoringRule = "mean"
)

// ParseScoringRule parses a rule name (case-insensitive).
func ParseScoringRule(s string) (ScoringRule, error) {
	switch ScoringRule(strings.ToLower(strings.TrimSpace(s))) {
	case RuleSum:
		return RuleSum, nil
	case RuleMean:
		return RuleMean, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownScoringRule, s)
	}
}

// Valid reports whether r is a supported rule.
func (r ScoringRule) Valid() bool {
	return r == RuleSum || r == RuleMean
}

// Score computes the team score. The second result is false for teams with
// no members, which cannot be ranked.
func (r ScoringRule) Score(members []model.Participant) (float64, bool) {
	if len(members) == 0 {
		return 0, false
	}
	total := 0
	for _, m := range members {
		total += m.Stars
	}
	if r == RuleMean {
		return float64(total) / float64(len(members)), true
	}
	return float64(total), true
}

// RoundScore rounds a score to one decimal place for display.
func RoundScore(score float64) float64 {
	return math.Round(score*10) / 10
}
