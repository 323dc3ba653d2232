// Package reasoning provides ReasoningService implementations: a
// deterministic rule-based analyst and a client for an Ollama-style
// completion endpoint.
package reasoning

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/okian/callscout/internal/domain/model"
	"github.com/okian/callscout/internal/domain/scoring"
)

const (
	largeBudget   = 3_000_000
	mediumBudget  = 1_000_000
	programmeHit  = 3
	domainWordHit = 2
	relevantScore = 2
)

// RuleBased derives insights from the profile and record text alone. It
// never fails unless the context is done.
type RuleBased struct{}

// NewRuleBased returns the rule-based reasoning service.
func NewRuleBased() RuleBased { return RuleBased{} }

// Analyze implements analysis.ReasoningService.
func (RuleBased) Analyze(ctx context.Context, r model.OpportunityRecord, p model.OrganizationProfile) (model.Insights, error) { //nolint:gocritic // hugeParam: interface signature
	if err := ctx.Err(); err != nil {
		return model.Insights{}, model.WrapKind("reasoning.rules", model.ErrReasoning, err)
	}
	matches := DomainMatches(r, p)
	hits := KeywordHits(r, p)
	return model.Insights{
		MatchSummary:         summary(matches, len(hits)),
		DomainMatches:        matches,
		KeywordHits:          hits,
		RelevantPastProjects: pastProjects(r, p),
		SuggestedPartners:    partners(r),
		EstimatedEffort:      effort(r),
		Confidence:           model.ConfidenceMedium,
	}, nil
}

// DomainMatches pairs every profile domain with every required domain it
// relates to. Unrelated pairs are omitted.
func DomainMatches(r model.OpportunityRecord, p model.OrganizationProfile) []model.DomainMatch { //nolint:gocritic // hugeParam: read-only
	var out []model.DomainMatch
	for _, d := range p.Domains {
		for _, req := range r.RequiredDomains {
			s, ok := strength(d, req)
			if !ok {
				continue
			}
			out = append(out, model.DomainMatch{
				Domain:      d.Name,
				Requirement: req,
				Strength:    s,
				Reasoning:   matchReasoning(d, req, s),
			})
		}
	}
	return out
}

func strength(d model.Domain, requirement string) (model.Strength, bool) {
	name := strings.ToLower(strings.TrimSpace(d.Name))
	req := strings.ToLower(strings.TrimSpace(requirement))
	if name == "" || req == "" {
		return "", false
	}

	if scoring.ContainsTerm(req, name) || scoring.ContainsTerm(name, req) {
		if d.Level == model.LevelExpert || d.Level == model.LevelAdvanced {
			return model.StrengthStrong, true
		}
		return model.StrengthModerate, true
	}

	subs := 0
	for _, sd := range d.SubDomains {
		if sd = strings.ToLower(strings.TrimSpace(sd)); sd != "" && scoring.ContainsTerm(req, sd) {
			subs++
		}
	}
	switch {
	case subs >= 2:
		return model.StrengthStrong, true
	case subs == 1:
		return model.StrengthModerate, true
	}

	reqWords := make(map[string]struct{})
	for _, w := range significantWords(req) {
		reqWords[w] = struct{}{}
	}
	for _, w := range significantWords(name) {
		if _, ok := reqWords[w]; ok {
			return model.StrengthModerate, true
		}
	}

	for _, t := range RelatedTerms(name) {
		if scoring.ContainsTerm(req, t) {
			return model.StrengthWeak, true
		}
	}
	return "", false
}

func matchReasoning(d model.Domain, req string, s model.Strength) string {
	switch s {
	case model.StrengthStrong:
		return fmt.Sprintf("Your %s expertise in %s directly aligns with the requirement for '%s'.", d.Level, d.Name, req)
	case model.StrengthModerate:
		return fmt.Sprintf("Your experience in %s is relevant to '%s'.", d.Name, req)
	default:
		return fmt.Sprintf("Some overlap between %s and '%s'.", d.Name, req)
	}
}

// KeywordHits returns the profile's include keywords found in the record's
// title, description or keyword list, sorted.
func KeywordHits(r model.OpportunityRecord, p model.OrganizationProfile) []string { //nolint:gocritic // hugeParam: read-only
	text := strings.ToLower(r.Title + " " + r.Content.Description)
	tags := make(map[string]struct{}, len(r.Keywords))
	for _, k := range r.Keywords {
		tags[strings.ToLower(strings.TrimSpace(k))] = struct{}{}
	}

	seen := make(map[string]struct{})
	var hits []string
	for _, k := range p.Keywords.Include {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		_, tagged := tags[k]
		if tagged || scoring.ContainsTerm(text, k) {
			seen[k] = struct{}{}
			hits = append(hits, k)
		}
	}
	sort.Strings(hits)
	return hits
}

func summary(matches []model.DomainMatch, keywordHits int) string {
	var strong, moderate []string
	for _, m := range matches {
		switch m.Strength {
		case model.StrengthStrong:
			strong = append(strong, m.Domain)
		case model.StrengthModerate:
			moderate = append(moderate, m.Domain)
		}
	}
	switch {
	case len(strong) >= 2:
		return fmt.Sprintf("Excellent match. The call combines %s and %s, your strongest domains. High relevance with %d keyword matches.",
			strong[0], strong[1], keywordHits)
	case len(strong) == 1:
		return fmt.Sprintf("Strong match in %s. Good alignment with your core competencies.", strong[0])
	case len(moderate) >= 2:
		return fmt.Sprintf("Good overall match with %d relevant domains and %d keyword matches.", len(moderate), keywordHits)
	case len(moderate) == 1:
		return fmt.Sprintf("Moderate match in %s. Worth considering.", moderate[0])
	}
	return "Weak match. Limited alignment with your expertise."
}

func pastProjects(r model.OpportunityRecord, p model.OrganizationProfile) []string { //nolint:gocritic // hugeParam: read-only
	programme := strings.ToLower(strings.TrimSpace(r.Programme.Name))
	var out []string
	for _, pp := range p.PastProjects {
		score := 0
		if programme != "" && strings.Contains(strings.ToLower(pp.Programme), programme) {
			score += programmeHit
		}
		name := strings.ToLower(pp.Name)
		for _, req := range r.RequiredDomains {
			for _, w := range significantWords(req) {
				if strings.Contains(name, w) {
					score += domainWordHit
					break
				}
			}
		}
		if score < relevantScore {
			continue
		}
		label := pp.Name
		if pp.Programme != "" {
			label += " (" + pp.Programme
			if pp.Year > 0 {
				label += ", " + strconv.Itoa(pp.Year)
			}
			label += ")"
		}
		out = append(out, label)
	}
	return out
}

func partners(r model.OpportunityRecord) []string { //nolint:gocritic // hugeParam: read-only
	if r.Consortium != nil && r.Consortium.MinPartners <= 1 {
		return nil
	}
	return []string{
		"Research organisation as scientific partner",
		"University partners from eligible countries",
		"Industry partners from complementary sectors",
	}
}

func effort(r model.OpportunityRecord) string { //nolint:gocritic // hugeParam: read-only
	var top float64
	if r.Budget != nil {
		_, top = r.Budget.EUR().Bounds()
	}
	action := r.Programme.ActionType
	if strings.Contains(action, "RIA") || strings.Contains(action, "Innovation Action") {
		if top > largeBudget {
			return "200-300 hours"
		}
		return "100-200 hours"
	}
	if top > mediumBudget {
		return "80-150 hours"
	}
	return "40-80 hours"
}
