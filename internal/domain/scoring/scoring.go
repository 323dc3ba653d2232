// Package scoring computes the weighted multi-criteria score of an
// opportunity record for an organization profile.
package scoring

import (
	"math"
	"time"

	"github.com/okian/callscout/internal/domain/eligibility"
	"github.com/okian/callscout/internal/domain/model"
)

// Criterion weights. They sum to 1.0.
const (
	WeightDomain      = 0.30
	WeightKeyword     = 0.15
	WeightEligibility = 0.20
	WeightBudget      = 0.15
	WeightStrategic   = 0.10
	WeightDeadline    = 0.10
)

const (
	minScore     = 1.0
	maxScore     = 10.0
	neutralScore = 5.0
)

// Thresholds are the lower bounds of each recommendation band.
type Thresholds struct {
	Apply    float64
	Consider float64
	Monitor  float64
}

// DefaultThresholds returns the canonical 8/6/4 bands.
func DefaultThresholds() Thresholds {
	return Thresholds{Apply: 8.0, Consider: 6.0, Monitor: 4.0}
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithClock sets the time source used for deadline comfort.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithThresholds sets the recommendation bands. Bands that are not strictly
// descending are ignored.
func WithThresholds(t Thresholds) Option {
	return func(e *Engine) {
		if t.Apply > t.Consider && t.Consider > t.Monitor {
			e.thresholds = t
		}
	}
}

// Engine scores records. It is safe for concurrent use.
type Engine struct {
	now        func() time.Time
	thresholds Thresholds
}

// NewEngine creates a scoring engine with configuration options.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		now:        time.Now,
		thresholds: DefaultThresholds(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Thresholds returns the active recommendation bands.
func (e *Engine) Thresholds() Thresholds { return e.thresholds }

// Score computes the breakdown of r for p. The strategy decides how the
// semantic criteria (domain, keyword, strategic) are scored; the remaining
// criteria are always deterministic.
func (e *Engine) Score(r model.OpportunityRecord, p model.OrganizationProfile, s Strategy) model.ScoreBreakdown {
	if s == nil {
		s = Deterministic{}
	}
	sem := s.semantic(r, p)
	elig := eligibility.Evaluate(r, p)

	b := model.ScoreBreakdown{
		DomainMatch:       sem.domain,
		KeywordMatch:      sem.keyword,
		EligibilityFit:    EligibilityFit(elig),
		BudgetFeasibility: BudgetFeasibility(r, p),
		StrategicValue:    sem.strategic,
		DeadlineComfort:   e.DeadlineComfort(r),
		Mode:              sem.mode,
	}
	b.Raw = round1(b.DomainMatch*WeightDomain +
		b.KeywordMatch*WeightKeyword +
		b.EligibilityFit*WeightEligibility +
		b.BudgetFeasibility*WeightBudget +
		b.StrategicValue*WeightStrategic +
		b.DeadlineComfort*WeightDeadline)

	b.Quality = AssessQuality(r)
	b.Penalty = Penalty(b.Quality.Level)
	b.Total = round1(clamp(b.Raw - b.Penalty))
	b.Recommendation = e.Recommend(b.Total)
	return b
}

// Neutral returns the substitute breakdown used when scoring a record
// failed. Every criterion is 5.0; data quality is still assessed.
func (e *Engine) Neutral(r model.OpportunityRecord) model.ScoreBreakdown {
	return model.ScoreBreakdown{
		DomainMatch:       neutralScore,
		KeywordMatch:      neutralScore,
		EligibilityFit:    neutralScore,
		BudgetFeasibility: neutralScore,
		StrategicValue:    neutralScore,
		DeadlineComfort:   neutralScore,
		Raw:               neutralScore,
		Quality:           AssessQuality(r),
		Total:             neutralScore,
		Recommendation:    model.RecommendMonitor,
		Mode:              model.ModeNeutral,
	}
}

// Recommend maps a total to its recommendation band.
func (e *Engine) Recommend(total float64) model.Recommendation {
	switch {
	case total >= e.thresholds.Apply:
		return model.RecommendApply
	case total >= e.thresholds.Consider:
		return model.RecommendConsider
	case total >= e.thresholds.Monitor:
		return model.RecommendMonitor
	}
	return model.RecommendSkip
}

func clamp(v float64) float64 {
	return math.Max(minScore, math.Min(maxScore, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// countBand maps a match count to a score.
func countBand(n int) float64 {
	switch {
	case n >= 6:
		return 9.5
	case n >= 4:
		return 8.5
	case n == 3:
		return 7.0
	case n == 2:
		return 5.5
	case n == 1:
		return 4.0
	}
	return 2.5
}
