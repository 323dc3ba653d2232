// Package intake validates organization profiles before a workflow run starts.
package intake

import (
	"fmt"
	"math"
	"strings"

	"github.com/okian/callscout/internal/domain/model"
	"github.com/okian/callscout/internal/domain/safety"
)

const (
	minNameLength        = 2
	minDescriptionLength = 20
	baseScore            = 5.0
)

// Assessment grades a profile that passed validation. Score is in [0,10]
// and grows with description detail and domain breadth.
type Assessment struct {
	Score  float64 `json:"score"`
	Reason string  `json:"reason"`
}

// Validate checks the structural minimum of a profile and screens its text
// with the safety checks. On failure it returns a model.ErrInput error whose
// MissingFields names every offending field, or every failed safety check as
// "safety.<check>".
func Validate(p *model.OrganizationProfile) (Assessment, error) {
	const op = "intake.validate"
	if p == nil {
		return Assessment{}, model.NewInputError(op, []string{"company"}).WithMsg("profile is required")
	}

	var missing []string
	if len(strings.TrimSpace(p.Name)) < minNameLength {
		missing = append(missing, "company.name")
	}
	if len(strings.TrimSpace(p.Description)) < minDescriptionLength {
		missing = append(missing, fmt.Sprintf("company.description (minimum %d characters)", minDescriptionLength))
	}
	if strings.TrimSpace(string(p.Type)) == "" {
		missing = append(missing, "company.type")
	}
	if p.Employees < 1 {
		missing = append(missing, "company.employees")
	}
	if strings.TrimSpace(p.Country) == "" {
		missing = append(missing, "company.country")
	}
	if len(p.Domains) == 0 {
		missing = append(missing, "company.domains (at least one domain required)")
	}
	for i, d := range p.Domains {
		if strings.TrimSpace(d.Name) == "" {
			missing = append(missing, fmt.Sprintf("company.domains[%d].name", i))
		}
	}
	if len(missing) > 0 {
		return Assessment{}, model.NewInputError(op, missing)
	}
	if v := safety.Check(p); !v.Safe {
		fields := make([]string, 0, len(v.Findings))
		for _, t := range v.Threats() {
			fields = append(fields, "safety."+t)
		}
		return Assessment{}, model.NewInputError(op, fields).WithMsg(v.Reason)
	}

	score := baseScore
	switch n := len(strings.TrimSpace(p.Description)); {
	case n >= 100:
		score += 2
	case n >= 50:
		score++
	}
	if len(p.Domains) >= 2 {
		score++
	}
	for _, d := range p.Domains {
		if len(d.SubDomains) > 0 {
			score++
			break
		}
	}
	return Assessment{
		Score:  math.Min(10, score),
		Reason: "profile passed structural validation",
	}, nil
}
