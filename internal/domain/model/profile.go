// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// OrgType is the legal form of an applying organization.
type OrgType string

// Organization types. SMALL, MEDIUM, RESEARCH INSTITUTE and CLUSTER are the
// finer-grained forms used by eligibility matching.
const (
	OrgSME               OrgType = "SME"
	OrgSmall             OrgType = "SMALL"
	OrgMedium            OrgType = "MEDIUM"
	OrgLarge             OrgType = "LARGE"
	OrgNGO               OrgType = "NGO"
	OrgUniversity        OrgType = "UNIVERSITY"
	OrgResearchInstitute OrgType = "RESEARCH INSTITUTE"
	OrgPublic            OrgType = "PUBLIC"
	OrgCluster           OrgType = "CLUSTER"
	OrgOther             OrgType = "OTHER"
)

// Normalize upper-cases the type and folds the common spellings.
func (t OrgType) Normalize() OrgType {
	s := strings.ToUpper(strings.Join(strings.Fields(string(t)), " "))
	switch s {
	case "PUBLIC BODY", "PUBLICBODY", "PUBLIC_BODY":
		return OrgPublic
	case "RESEARCH_INSTITUTE", "RESEARCHINSTITUTE":
		return OrgResearchInstitute
	}
	return OrgType(s)
}

// IsSME reports whether the type counts as a small or medium enterprise.
func (t OrgType) IsSME() bool {
	switch t.Normalize() {
	case OrgSME, OrgSmall, OrgMedium:
		return true
	}
	return false
}

// Level is the self-assessed expertise in a domain.
type Level string

// Expertise levels.
const (
	LevelBeginner     Level = "beginner"
	LevelIntermediate Level = "intermediate"
	LevelAdvanced     Level = "advanced"
	LevelExpert       Level = "expert"
)

// Domain is one area of expertise of the organization.
type Domain struct {
	Name       string   `json:"name" yaml:"name"`
	SubDomains []string `json:"sub_domains,omitempty" yaml:"sub_domains"`
	Level      Level    `json:"level" yaml:"level"`
}

// Keywords are optional include/exclude term sets.
type Keywords struct {
	Include []string `json:"include,omitempty" yaml:"include"`
	Exclude []string `json:"exclude,omitempty" yaml:"exclude"`
}

// PastProject is one entry of the organization's project history.
type PastProject struct {
	Name      string `json:"name" yaml:"name"`
	Programme string `json:"programme,omitempty" yaml:"programme"`
	Year      int    `json:"year,omitempty" yaml:"year"`
	Role      string `json:"role,omitempty" yaml:"role"`
	Partners  int    `json:"partners,omitempty" yaml:"partners"`
}

// BudgetRange is an amount range in a currency. Currency defaults to EUR.
type BudgetRange struct {
	Min      float64 `json:"min" yaml:"min"`
	Max      float64 `json:"max" yaml:"max"`
	Currency string  `json:"currency,omitempty" yaml:"currency"`
}

// HasNumbers reports whether at least one bound is set.
func (b *BudgetRange) HasNumbers() bool {
	return b != nil && (b.Min > 0 || b.Max > 0)
}

const bgnPerEUR = 1.95

// EUR returns the range converted to euros. Only BGN is converted; other
// currencies are assumed to already be EUR-comparable.
func (b BudgetRange) EUR() BudgetRange {
	if strings.EqualFold(strings.TrimSpace(b.Currency), "BGN") {
		return BudgetRange{Min: b.Min / bgnPerEUR, Max: b.Max / bgnPerEUR, Currency: "EUR"}
	}
	return b
}

// Bounds returns (min, max) with a missing bound filled from the other.
func (b BudgetRange) Bounds() (float64, float64) {
	lo, hi := b.Min, b.Max
	if hi <= 0 {
		hi = lo
	}
	if lo <= 0 {
		lo = 0
	}
	if lo > hi {
		lo, hi = hi, lo
	}
	return lo, hi
}

// OrganizationProfile describes the applying organization. It is read-only
// for the duration of a workflow run.
type OrganizationProfile struct {
	Name            string        `json:"name" yaml:"name"`
	Description     string        `json:"description" yaml:"description"`
	Type            OrgType       `json:"type" yaml:"type"`
	Employees       int           `json:"employees" yaml:"employees"`
	Country         string        `json:"country" yaml:"country"`
	City            string        `json:"city,omitempty" yaml:"city"`
	Domains         []Domain      `json:"domains" yaml:"domains"`
	Keywords        Keywords      `json:"keywords" yaml:"keywords"`
	PastProjects    []PastProject `json:"past_projects,omitempty" yaml:"past_projects"`
	PreferredBudget *BudgetRange  `json:"preferred_budget,omitempty" yaml:"preferred_budget"`
}

// LoadProfile reads a profile from a YAML (or JSON) file.
func LoadProfile(path string) (OrganizationProfile, error) {
	var p OrganizationProfile
	raw, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read profile %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("decode profile %s: %w", path, err)
	}
	return p, nil
}
