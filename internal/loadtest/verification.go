package loadtest

import (
	"errors"
	"fmt"

	"github.com/okian/callscout/internal/domain/model"
)

// ErrInconsistent reports a ranking that breaks an ordering or range rule.
var ErrInconsistent = errors.New("inconsistent results")

const maxScore = 10

// VerifyResults checks that results are ordered best first, carry known
// recommendations, stay within the score range and do not repeat an ID.
func VerifyResults(results []model.AnalyzedOpportunity) error {
	seen := make(map[string]bool, len(results))
	for i, r := range results {
		if seen[r.ID] {
			return fmt.Errorf("%w: duplicate id %s", ErrInconsistent, r.ID)
		}
		seen[r.ID] = true

		if r.Score.Total < 0 || r.Score.Total > maxScore {
			return fmt.Errorf("%w: %s score %.2f out of range", ErrInconsistent, r.ID, r.Score.Total)
		}
		switch r.Score.Recommendation {
		case model.RecommendApply, model.RecommendConsider, model.RecommendMonitor, model.RecommendSkip:
		default:
			return fmt.Errorf("%w: %s has recommendation %q", ErrInconsistent, r.ID, r.Score.Recommendation)
		}
		if i > 0 && r.Score.Total > results[i-1].Score.Total {
			return fmt.Errorf("%w: entry %d scores higher than entry %d", ErrInconsistent, i, i-1)
		}
	}
	return nil
}
