package scoring

import (
	"strings"

	"github.com/okian/callscout/internal/domain/model"
)

// Strategy selects how the semantic criteria are scored. It is sealed:
// the only implementations are Assisted and Deterministic.
type Strategy interface {
	semantic(r model.OpportunityRecord, p model.OrganizationProfile) semanticScores
}

type semanticScores struct {
	domain    float64
	keyword   float64
	strategic float64
	mode      model.ScoringMode
}

// Assisted scores from reasoning-service insights.
type Assisted struct {
	Insights model.Insights
}

// Deterministic scores from string containment and the equivalence table.
type Deterministic struct{}

var strengthScores = map[model.Strength]float64{ //nolint:gochecknoglobals // read-only lookup table
	model.StrengthStrong:   9.0,
	model.StrengthModerate: 6.5,
	model.StrengthWeak:     4.0,
}

var confidenceMultipliers = map[model.Confidence]float64{ //nolint:gochecknoglobals // read-only lookup table
	model.ConfidenceHigh:   1.0,
	model.ConfidenceMedium: 0.95,
	model.ConfidenceLow:    0.90,
}

func (a Assisted) semantic(_ model.OpportunityRecord, _ model.OrganizationProfile) semanticScores {
	in := a.Insights

	domain := 2.0
	strong := 0
	if len(in.DomainMatches) > 0 {
		sum := 0.0
		for _, m := range in.DomainMatches {
			s := normStrength(m.Strength)
			if s == model.StrengthStrong {
				strong++
			}
			sum += strengthScores[s]
		}
		domain = sum / float64(len(in.DomainMatches))
		if strong >= 2 {
			domain += 1.0
		}
	}

	strategic := 5.0
	switch {
	case len(in.RelevantPastProjects) >= 2:
		strategic = 9.5
	case len(in.RelevantPastProjects) == 1:
		strategic = 8.0
	case strong > 0:
		strategic = 7.0
	}

	mult, ok := confidenceMultipliers[model.Confidence(strings.ToLower(string(in.Confidence)))]
	if !ok {
		mult = confidenceMultipliers[model.ConfidenceMedium]
	}
	return semanticScores{
		domain:    round1(clamp(domain * mult)),
		keyword:   round1(clamp(countBand(len(in.KeywordHits)) * mult)),
		strategic: round1(clamp(strategic * mult)),
		mode:      model.ModeAssisted,
	}
}

// normStrength folds unknown labels to weak.
func normStrength(s model.Strength) model.Strength {
	s = model.Strength(strings.ToLower(strings.TrimSpace(string(s))))
	if _, ok := strengthScores[s]; ok {
		return s
	}
	return model.StrengthWeak
}

func (Deterministic) semantic(r model.OpportunityRecord, p model.OrganizationProfile) semanticScores {
	return semanticScores{
		domain:    DomainMatch(r, p),
		keyword:   KeywordMatch(r, p),
		strategic: StrategicValue(r, p),
		mode:      model.ModeDeterministic,
	}
}
