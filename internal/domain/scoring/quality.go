package scoring

import (
	"math"
	"strings"

	"github.com/okian/callscout/internal/domain/model"
)

const (
	qualitySignals       = 6
	minDescriptionLength = 80
	minKeywordCount      = 3
	highCoverage         = 0.84
	mediumCoverage       = 0.50
	mediumPenalty        = 0.3
	lowPenalty           = 0.8
)

// AssessQuality grades how much of the record's data is present.
func AssessQuality(r model.OpportunityRecord) model.DataQuality {
	var missing []string
	if strings.TrimSpace(r.Title) == "" {
		missing = append(missing, "missing title")
	}
	if len(strings.TrimSpace(r.Content.Description)) < minDescriptionLength {
		missing = append(missing, "description shorter than 80 characters")
	}
	if len(r.Keywords) < minKeywordCount {
		missing = append(missing, "fewer than 3 keywords")
	}
	if len(r.RequiredDomains) == 0 {
		missing = append(missing, "no required domains")
	}
	if !r.Budget.HasNumbers() {
		missing = append(missing, "no budget figures")
	}
	if strings.TrimSpace(r.Programme.Deadline) == "" {
		missing = append(missing, "no deadline")
	}

	coverage := float64(qualitySignals-len(missing)) / qualitySignals
	q := model.DataQuality{
		Coverage: math.Round(coverage * 100),
		Reasons:  missing,
	}
	switch {
	case coverage >= highCoverage:
		q.Level = model.QualityHigh
	case coverage >= mediumCoverage:
		q.Level = model.QualityMedium
	default:
		q.Level = model.QualityLow
	}
	return q
}

// Penalty is the amount subtracted from the raw total for a quality level.
func Penalty(l model.QualityLevel) float64 {
	switch l {
	case model.QualityMedium:
		return mediumPenalty
	case model.QualityLow:
		return lowPenalty
	}
	return 0
}
