package loadtest

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
	"github.com/okian/callscout/internal/domain/model"
)

var (
	domainPool = []model.Domain{ //nolint:gochecknoglobals // read-only fixture
		{Name: "Artificial Intelligence", SubDomains: []string{"machine learning", "computer vision"}},
		{Name: "Cybersecurity", SubDomains: []string{"network security", "cryptography"}},
		{Name: "Renewable Energy", SubDomains: []string{"solar", "energy storage"}},
		{Name: "Health", SubDomains: []string{"medical devices", "digital health"}},
		{Name: "Agriculture", SubDomains: []string{"precision farming"}},
		{Name: "Education", SubDomains: []string{"digital skills"}},
		{Name: "Manufacturing", SubDomains: []string{"robotics", "industry 4.0"}},
	}
	levels    = []model.Level{model.LevelBeginner, model.LevelIntermediate, model.LevelAdvanced, model.LevelExpert}                       //nolint:gochecknoglobals // read-only fixture
	orgTypes  = []model.OrgType{model.OrgSME, model.OrgLarge, model.OrgNGO, model.OrgUniversity, model.OrgResearchInstitute, model.OrgPublic} //nolint:gochecknoglobals // read-only fixture
	countries = []string{"Bulgaria", "Germany", "Greece", "Romania", "Spain", "Netherlands"}                                                  //nolint:gochecknoglobals // read-only fixture
	keywords  = []string{"pilot", "open data", "interoperability", "training", "testbed", "sustainability", "innovation"}                     //nolint:gochecknoglobals // read-only fixture
)

const (
	maxDomains   = 3
	maxEmployees = 2000
	maxKeywords  = 3
	budgetStep   = 250_000
	budgetSteps  = 8
)

// randomIndex returns a uniform index in [0, n) using crypto/rand.
func randomIndex(n int) int {
	if n <= 1 {
		return 0
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0
	}
	return int(v.Int64())
}

func pick[T any](xs []T) T { return xs[randomIndex(len(xs))] }

// GenerateProfiles builds n complete, valid organization profiles.
func GenerateProfiles(n int) []model.OrganizationProfile {
	out := make([]model.OrganizationProfile, 0, max(n, 0))
	for i := range n {
		out = append(out, generateProfile(i))
	}
	return out
}

func generateProfile(i int) model.OrganizationProfile {
	p := model.OrganizationProfile{
		Name:      fmt.Sprintf("Loadtest Org %d-%s", i+1, uuid.NewString()[:8]),
		Type:      pick(orgTypes),
		Employees: 1 + randomIndex(maxEmployees),
		Country:   pick(countries),
	}

	seen := map[string]bool{}
	for range 1 + randomIndex(maxDomains) {
		d := pick(domainPool)
		if seen[d.Name] {
			continue
		}
		seen[d.Name] = true
		d.Level = pick(levels)
		d.SubDomains = append([]string(nil), d.SubDomains...)
		p.Domains = append(p.Domains, d)
	}
	p.Description = fmt.Sprintf("%s organization working on %s.", p.Type, p.Domains[0].Name)

	for range randomIndex(maxKeywords + 1) {
		p.Keywords.Include = append(p.Keywords.Include, pick(keywords))
	}
	if randomIndex(2) == 0 {
		lo := float64(1+randomIndex(budgetSteps)) * budgetStep
		p.PreferredBudget = &model.BudgetRange{Min: lo, Max: lo * 2, Currency: "EUR"}
	}
	return p
}
