package scoring

import (
	"sort"
	"strings"

	"github.com/okian/callscout/internal/domain/model"
)

const (
	neutralDomainScore  = 3.0
	noDomainMatchScore  = 2.0
	synonymMatchScore   = 4.0
	strongDomainScore   = 7.0
	noIncludeKeywords   = 3.0
	shortTermMaxLength  = 3
	multiStrongDomainUp = 1.0
)

// DomainMatch scores the profile domains against the record's required
// domains, or against its title and description when none are listed.
// The best two matches are averaged.
func DomainMatch(r model.OpportunityRecord, p model.OrganizationProfile) float64 {
	reqs := make([]string, 0, len(r.RequiredDomains))
	for _, d := range r.RequiredDomains {
		if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
			reqs = append(reqs, d)
		}
	}
	if len(reqs) == 0 {
		if text := recordText(r); text != "" {
			reqs = append(reqs, text)
		}
	}
	if len(p.Domains) == 0 || len(reqs) == 0 {
		return neutralDomainScore
	}

	var matches []float64
	for _, d := range p.Domains {
		for _, req := range reqs {
			if s := domainPairScore(d, req); s > 0 {
				matches = append(matches, s)
			}
		}
	}
	if len(matches) == 0 {
		return noDomainMatchScore
	}

	sort.Sort(sort.Reverse(sort.Float64Slice(matches)))
	top := matches
	if len(top) > 2 {
		top = top[:2]
	}
	avg := 0.0
	for _, m := range top {
		avg += m
	}
	avg /= float64(len(top))

	strong := 0
	for _, m := range matches {
		if m >= strongDomainScore {
			strong++
		}
	}
	if strong >= 2 {
		avg += multiStrongDomainUp
	}
	return round1(clamp(avg))
}

func domainPairScore(d model.Domain, req string) float64 {
	name := strings.ToLower(strings.TrimSpace(d.Name))
	if name == "" {
		return 0
	}
	if ContainsTerm(req, name) || ContainsTerm(name, req) {
		switch d.Level {
		case model.LevelExpert:
			return 8.0
		case model.LevelAdvanced:
			return 7.0
		}
		return 5.5
	}
	for _, sub := range d.SubDomains {
		if sub = strings.ToLower(strings.TrimSpace(sub)); sub != "" && ContainsTerm(req, sub) {
			if d.Level == model.LevelExpert || d.Level == model.LevelAdvanced {
				return 6.5
			}
			return 4.5
		}
	}
	for _, eq := range Expand(name) {
		if eq != name && ContainsTerm(req, eq) {
			return synonymMatchScore
		}
	}
	return 0
}

// KeywordMatch counts the expanded include keywords found in the record's
// keywords or free text.
func KeywordMatch(r model.OpportunityRecord, p model.OrganizationProfile) float64 {
	if len(p.Keywords.Include) == 0 {
		return noIncludeKeywords
	}

	expanded := make(map[string]struct{})
	for _, kw := range p.Keywords.Include {
		for _, e := range Expand(kw) {
			expanded[e] = struct{}{}
		}
	}

	recordKW := make([]string, 0, len(r.Keywords))
	for _, k := range r.Keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			recordKW = append(recordKW, k)
		}
	}
	text := recordText(r)

	hits := 0
	for kw := range expanded {
		if keywordHit(kw, recordKW, text) {
			hits++
		}
	}
	return countBand(hits)
}

func keywordHit(kw string, recordKW []string, text string) bool {
	for _, ck := range recordKW {
		if ContainsTerm(ck, kw) || ContainsTerm(kw, ck) {
			return true
		}
	}
	return ContainsTerm(text, kw)
}

// StrategicValue rewards prior work in the same programme, then domain
// names appearing in the title.
func StrategicValue(r model.OpportunityRecord, p model.OrganizationProfile) float64 {
	programme := strings.ToLower(strings.TrimSpace(r.Programme.Name))
	if programme != "" {
		n := 0
		for _, pp := range p.PastProjects {
			if strings.Contains(strings.ToLower(pp.Programme), programme) {
				n++
			}
		}
		switch {
		case n >= 2:
			return 9.5
		case n == 1:
			return 8.0
		}
	}

	title := strings.ToLower(r.Title)
	inTitle := 0
	for _, d := range p.Domains {
		if name := strings.ToLower(strings.TrimSpace(d.Name)); name != "" && strings.Contains(title, name) {
			inTitle++
		}
	}
	switch {
	case inTitle >= 2:
		return 7.5
	case inTitle == 1:
		return 6.5
	}
	return 5.0
}

func recordText(r model.OpportunityRecord) string {
	return strings.TrimSpace(strings.ToLower(r.Title + " " + r.Content.Description))
}

// ContainsTerm reports whether term occurs in text. Short terms such as "ai"
// must match a whole word.
func ContainsTerm(text, term string) bool {
	if len(term) > shortTermMaxLength {
		return strings.Contains(text, term)
	}
	for _, w := range strings.FieldsFunc(text, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	}) {
		if w == term {
			return true
		}
	}
	return false
}
