package scoring

import (
	"math"
	"strings"

	"github.com/okian/callscout/internal/domain/model"
)

// Eligibility-fit check weights. Consortium is not part of the fit.
const (
	fitCountryWeight = 3.0
	fitTypeWeight    = 2.5
	fitTRLWeight     = 1.5
	fitBudgetWeight  = 1.0
	fitSMEBonus      = 0.5
)

const (
	budgetUnknownScore   = 6.0
	budgetFallbackScore  = 5.0
	largeProgrammeLeeway = 1.5
	deadlineUnknownScore = 5.0
	hoursPerDay          = 24
)

// EligibilityFit turns the eligibility checks into a soft 1-10 signal.
func EligibilityFit(res model.EligibilityResult) float64 {
	const total = fitCountryWeight + fitTypeWeight + fitTRLWeight + fitBudgetWeight
	passed := 0.0
	if res.CountryOK {
		passed += fitCountryWeight
	}
	if res.TypeOK {
		passed += fitTypeWeight
	}
	if res.TRLOK {
		passed += fitTRLWeight
	}
	if res.BudgetOK {
		passed += fitBudgetWeight
	}
	v := 1 + passed/total*9
	if res.SMEEncouraged {
		v += fitSMEBonus
	}
	return round1(math.Min(maxScore, v))
}

// BudgetFeasibility grades the distance between the record budget and the
// preferred budget. Horizon and EIC programmes get extra leeway above the
// preferred range.
func BudgetFeasibility(r model.OpportunityRecord, p model.OrganizationProfile) float64 {
	if !r.Budget.HasNumbers() || !p.PreferredBudget.HasNumbers() {
		return budgetUnknownScore
	}
	callMin, callMax := openRange(r.Budget.EUR())
	prefMin, prefMax := openRange(p.PreferredBudget.EUR())

	lo, hi := math.Max(callMin, prefMin), math.Min(callMax, prefMax)
	if hi >= lo {
		ratio := overlapRatio(hi-lo, callMax-callMin)
		switch {
		case ratio >= 0.8:
			return 9.0
		case ratio >= 0.5:
			return 8.0
		}
		return 7.0
	}

	if callMin > prefMax {
		ratio := math.Inf(1)
		if prefMax > 0 {
			ratio = callMin / prefMax
		}
		ratio /= programmeLeeway(r)
		switch {
		case ratio <= 2:
			return 7.0
		case ratio <= 4:
			return 5.5
		case ratio <= 8:
			return 4.0
		case ratio <= 15:
			return 2.5
		}
		return 1.5
	}

	if callMax < prefMin {
		ratio := math.Inf(1)
		if callMax > 0 {
			ratio = prefMin / callMax
		}
		switch {
		case ratio <= 2:
			return 7.0
		case ratio <= 4:
			return 5.0
		}
		return 3.5
	}
	return budgetFallbackScore
}

// overlapRatio is the overlap's share of the record range. A point or
// unbounded record range counts as fully covered when the overlap is too.
func overlapRatio(overlap, width float64) float64 {
	switch {
	case width <= 0:
		return 1
	case math.IsInf(width, 1):
		if math.IsInf(overlap, 1) {
			return 1
		}
		return 0
	}
	return overlap / width
}

func openRange(b model.BudgetRange) (float64, float64) {
	lo, hi := math.Max(0, b.Min), b.Max
	if hi <= 0 {
		hi = math.Inf(1)
	}
	return lo, hi
}

func programmeLeeway(r model.OpportunityRecord) float64 {
	name := strings.ToLower(r.Programme.Name)
	if strings.Contains(name, "horizon") || strings.Contains(name, "eic") {
		return largeProgrammeLeeway
	}
	return 1
}

// DeadlineComfort grades the days left until the record deadline.
func (e *Engine) DeadlineComfort(r model.OpportunityRecord) float64 {
	days, ok := e.DaysUntil(r.Programme.Deadline)
	if !ok {
		return deadlineUnknownScore
	}
	return deadlineBand(days)
}

func deadlineBand(days int) float64 {
	switch {
	case days >= 270:
		return 9.0
	case days >= 180:
		return 8.5
	case days >= 90:
		return 7.5
	case days >= 60:
		return 6.5
	case days >= 30:
		return 5.5
	case days >= 14:
		return 4.5
	case days >= 7:
		return 3.5
	}
	return 2.0
}

// DaysUntil returns whole days from now to the deadline, and false when the
// deadline does not parse.
func (e *Engine) DaysUntil(deadline string) (int, bool) {
	t, ok := ParseDeadline(deadline)
	if !ok {
		return 0, false
	}
	return int(math.Floor(t.Sub(e.now()).Hours() / hoursPerDay)), true
}
