package reflection

import (
	"math"
	"strings"

	"github.com/okian/callscout/internal/domain/model"
)

const (
	completenessFields  = 5.0
	highCompleteness    = 0.9
	mediumCompleteness  = 0.7
	highMaxDeviation    = 2.0
	mediumMaxDeviation  = 3.0
	consistentDeviation = 2.5
)

// Confidence is the overall trust in a run's final result set.
type Confidence struct {
	Level        model.Confidence `json:"level"`
	Completeness float64          `json:"data_completeness"`
	Consistency  string           `json:"score_consistency"`
	StdDeviation float64          `json:"std_deviation"`
	Reason       string           `json:"reason,omitempty"`
}

// EvaluateConfidence grades the results by data completeness and score
// spread.
func EvaluateConfidence(results []model.AnalyzedOpportunity) Confidence {
	if len(results) == 0 {
		return Confidence{Level: model.ConfidenceLow, Consistency: "consistent", Reason: "No results to evaluate"}
	}

	completeness := 0.0
	mean := 0.0
	for _, r := range results {
		n := 0.0
		if strings.TrimSpace(r.Title) != "" {
			n++
		}
		if strings.TrimSpace(r.Deadline) != "" {
			n++
		}
		if r.HasBudget {
			n++
		}
		if r.Insights != nil && strings.TrimSpace(r.Insights.MatchSummary) != "" {
			n++
		}
		if r.Score.Total > 0 {
			n++
		}
		completeness += n / completenessFields
		mean += r.Score.Total
	}
	completeness /= float64(len(results))
	mean /= float64(len(results))

	variance := 0.0
	for _, r := range results {
		d := r.Score.Total - mean
		variance += d * d
	}
	std := math.Sqrt(variance / float64(len(results)))

	c := Confidence{
		Completeness: math.Round(completeness*1000) / 10,
		StdDeviation: math.Round(std*100) / 100,
		Consistency:  "consistent",
	}
	if std >= consistentDeviation {
		c.Consistency = "variable"
	}
	switch {
	case completeness >= highCompleteness && std < highMaxDeviation:
		c.Level = model.ConfidenceHigh
	case completeness >= mediumCompleteness && std < mediumMaxDeviation:
		c.Level = model.ConfidenceMedium
	default:
		c.Level = model.ConfidenceLow
	}
	return c
}
