// Package eligibility evaluates the hard constraints that decide whether an
// organization may apply to an opportunity at all.
//
// Every check passes when the record does not state the relevant field:
// absence never restricts.
package eligibility

import (
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/okian/callscout/internal/domain/model"
)

// Capability is the TRL range an organization is assumed to work in.
var Capability = TRLRange{Min: 4, Max: 8} //nolint:gochecknoglobals // read-only default

const (
	budgetLowerTolerance = 0.5
	budgetUpperTolerance = 2.0
	largeEmployeeCount   = 50
	moderatePartnerCount = 5
	maxPartnerCount      = 10
	maxCountryCount      = 5
)

// TRLRange is an inclusive technology readiness range.
type TRLRange struct {
	Min, Max int
}

var (
	trlRangeRe  = regexp.MustCompile(`^\s*(?:TRL\s*)?(\d{1,2})\s*(?:-|–|TO)\s*(?:TRL\s*)?(\d{1,2})\s*$`)
	trlSingleRe = regexp.MustCompile(`^\s*(?:TRL\s*)?(\d{1,2})\s*$`)
)

// ParseTRL parses "a-b" or a single level. ok is false when s is not a TRL.
func ParseTRL(s string) (TRLRange, bool) {
	if m := trlRangeRe.FindStringSubmatch(strings.ToUpper(s)); m != nil {
		lo, _ := strconv.Atoi(m[1])
		hi, _ := strconv.Atoi(m[2])
		if lo > hi {
			lo, hi = hi, lo
		}
		return TRLRange{Min: lo, Max: hi}, true
	}
	if m := trlSingleRe.FindStringSubmatch(strings.ToUpper(s)); m != nil {
		v, _ := strconv.Atoi(m[1])
		return TRLRange{Min: v, Max: v}, true
	}
	return TRLRange{}, false
}

// Evaluate runs every check of record r against profile p.
func Evaluate(r model.OpportunityRecord, p model.OrganizationProfile) model.EligibilityResult {
	res := model.EligibilityResult{Messages: make(map[string]string, 6)}

	res.TypeOK = CheckType(r, p)
	if res.TypeOK {
		res.Messages[model.CheckType] = fmt.Sprintf("Organization type '%s' is eligible", p.Type)
	} else {
		res.Messages[model.CheckType] = fmt.Sprintf("Organization type '%s' may not be eligible", p.Type)
	}

	res.CountryOK = CheckCountry(r, p)
	if res.CountryOK {
		res.Messages[model.CheckCountry] = fmt.Sprintf("Country '%s' is eligible", p.Country)
	} else {
		res.Messages[model.CheckCountry] = fmt.Sprintf("Country '%s' may not be eligible", p.Country)
	}

	res.BudgetOK = CheckBudget(r, p)
	switch {
	case !res.BudgetOK:
		res.Messages[model.CheckBudget] = "Budget may be outside preferred range"
	case r.Budget.HasNumbers():
		res.Messages[model.CheckBudget] = fmt.Sprintf("Budget range %s-%s EUR is feasible", amount(r.Budget.Min), amount(r.Budget.Max))
	default:
		res.Messages[model.CheckBudget] = "No budget constraint stated"
	}

	res.TRLOK = CheckTRL(r)
	trl := r.TRL
	if strings.TrimSpace(trl) == "" {
		trl = "N/A"
	}
	if res.TRLOK {
		res.Messages[model.CheckTRL] = fmt.Sprintf("TRL %s is compatible with company capabilities", trl)
	} else {
		res.Messages[model.CheckTRL] = fmt.Sprintf("TRL %s may not align with company experience", trl)
	}

	res.ConsortiumOK = CheckConsortium(r, p)
	partners := 1
	if r.Consortium != nil && r.Consortium.MinPartners > 0 {
		partners = r.Consortium.MinPartners
	}
	switch {
	case partners <= 1:
		res.Messages[model.CheckConsortium] = "Single applicant allowed"
	case res.ConsortiumOK:
		res.Messages[model.CheckConsortium] = fmt.Sprintf("Consortium of %d+ partners is feasible", partners)
	default:
		res.Messages[model.CheckConsortium] = fmt.Sprintf("Consortium of %d+ partners may be challenging", partners)
	}

	res.SMEEncouraged, res.SMERequired = SMEFlags(r, p)
	switch {
	case res.SMERequired:
		res.Messages[model.CheckSME] = "SME participation required"
	case res.SMEEncouraged:
		res.Messages[model.CheckSME] = "SME participation encouraged"
	}

	res.AllPassed = res.TypeOK && res.CountryOK && res.BudgetOK && res.TRLOK && res.ConsortiumOK
	return res
}

// CheckType matches the profile type against the record's eligible types
// through the synonym table. An eligible entry admits the profile only when
// it names the profile type or one of its accepted synonyms exactly, so
// "Large enterprises" admits nobody while "Large" admits LARGE.
func CheckType(r model.OpportunityRecord, p model.OrganizationProfile) bool {
	if len(r.EligibleOrgTypes) == 0 {
		return true
	}
	own := p.Type.Normalize()
	accepted := AcceptedTypes(own)
	for _, raw := range r.EligibleOrgTypes {
		eligible := model.OrgType(raw).Normalize()
		if eligible == own || slices.Contains(accepted, string(eligible)) {
			return true
		}
	}
	return false
}

// CheckCountry matches the profile country against the eligible countries,
// honoring EU-wide markers for member states.
func CheckCountry(r model.OpportunityRecord, p model.OrganizationProfile) bool {
	if len(r.EligibleCountries) == 0 {
		return true
	}
	own := normalize(p.Country)
	open := false
	for _, c := range r.EligibleCountries {
		n := normalize(c)
		if n == own {
			return true
		}
		if _, ok := openMarkers[n]; ok {
			open = true
		}
	}
	return open && IsEUMember(own)
}

// CheckBudget fails only when the ranges are disjoint and further apart than
// the tolerance window.
func CheckBudget(r model.OpportunityRecord, p model.OrganizationProfile) bool {
	if !r.Budget.HasNumbers() || !p.PreferredBudget.HasNumbers() {
		return true
	}
	callMin, callMax := openBounds(r.Budget.EUR())
	prefMin, prefMax := openBounds(p.PreferredBudget.EUR())

	if callMax < prefMin || callMin > prefMax {
		if callMax < prefMin*budgetLowerTolerance || callMin > prefMax*budgetUpperTolerance {
			return false
		}
	}
	return true
}

// CheckTRL requires the record's TRL range to overlap Capability.
// An unparsable value passes.
func CheckTRL(r model.OpportunityRecord) bool {
	if strings.TrimSpace(r.TRL) == "" {
		return true
	}
	trl, ok := ParseTRL(r.TRL)
	if !ok {
		return true
	}
	return !(trl.Max < Capability.Min || trl.Min > Capability.Max)
}

// CheckConsortium judges whether the partnership requirement is reachable.
func CheckConsortium(r model.OpportunityRecord, p model.OrganizationProfile) bool {
	partners, countries := 1, 1
	if r.Consortium != nil {
		if r.Consortium.MinPartners > 0 {
			partners = r.Consortium.MinPartners
		}
		if r.Consortium.MinCountries > 0 {
			countries = r.Consortium.MinCountries
		}
	}
	switch {
	case partners <= 1:
		return true
	case len(p.PastProjects) > 0:
		return true
	case p.Employees >= largeEmployeeCount && partners <= moderatePartnerCount:
		return true
	case partners > maxPartnerCount || countries > maxCountryCount:
		return false
	}
	return true
}

// SMEFlags derives the informational SME flags from the funding-rate text.
// encouraged is only reported for SME profiles.
func SMEFlags(r model.OpportunityRecord, p model.OrganizationProfile) (encouraged, required bool) {
	text := strings.ToLower(r.FundingRate)
	if !strings.Contains(text, "sme") {
		return false, false
	}
	if strings.Contains(text, "encouraged") || strings.Contains(text, "preference") {
		encouraged = true
	}
	if strings.Contains(text, "required") || strings.Contains(text, "mandatory") {
		required = true
	}
	if strings.Contains(text, "70%") || strings.Contains(text, "high") {
		encouraged = true
	}
	return encouraged && p.Type.IsSME(), required
}

func openBounds(b model.BudgetRange) (float64, float64) {
	lo, hi := b.Min, b.Max
	if hi <= 0 {
		hi = math.Inf(1)
	}
	if lo < 0 {
		lo = 0
	}
	return lo, hi
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func amount(v float64) string {
	if v <= 0 {
		return "N/A"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
