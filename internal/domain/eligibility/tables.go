package eligibility

import "github.com/okian/callscout/internal/domain/model"

// typeSynonyms lists, per profile type, the tokens an eligible-types entry may
// contain for the profile to qualify.
var typeSynonyms = map[model.OrgType][]string{ //nolint:gochecknoglobals // read-only lookup table
	model.OrgSME:               {"SME", "SMALL", "MEDIUM", "SMALL AND MEDIUM ENTERPRISE"},
	model.OrgSmall:             {"SME", "SMALL"},
	model.OrgMedium:            {"SME", "MEDIUM"},
	model.OrgLarge:             {"LARGE", "BIG ENTERPRISE"},
	model.OrgUniversity:        {"UNIVERSITY", "ACADEMIC", "RESEARCH"},
	model.OrgResearchInstitute: {"RESEARCH", "INSTITUTE", "ACADEMIC"},
	model.OrgNGO:               {"NGO", "NON-PROFIT"},
	model.OrgPublic:            {"PUBLIC", "GOVERNMENT"},
	model.OrgCluster:           {"CLUSTER"},
}

var euMembers = map[string]struct{}{ //nolint:gochecknoglobals // read-only lookup table
	"austria": {}, "belgium": {}, "bulgaria": {}, "croatia": {}, "cyprus": {},
	"czech republic": {}, "czechia": {}, "denmark": {}, "estonia": {}, "finland": {},
	"france": {}, "germany": {}, "greece": {}, "hungary": {}, "ireland": {},
	"italy": {}, "latvia": {}, "lithuania": {}, "luxembourg": {}, "malta": {},
	"netherlands": {}, "poland": {}, "portugal": {}, "romania": {}, "slovakia": {},
	"slovenia": {}, "spain": {}, "sweden": {},
}

var openMarkers = map[string]struct{}{ //nolint:gochecknoglobals // read-only lookup table
	"eu": {}, "european union": {}, "all": {}, "all member states": {},
}

// AcceptedTypes returns the eligible-type tokens that admit t.
func AcceptedTypes(t model.OrgType) []string {
	t = t.Normalize()
	if s, ok := typeSynonyms[t]; ok {
		return s
	}
	return []string{string(t)}
}

// IsEUMember reports whether the normalized country name is an EU member state.
func IsEUMember(country string) bool {
	_, ok := euMembers[normalize(country)]
	return ok
}
