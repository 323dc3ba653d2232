// Package retriever fetches opportunity records and normalizes them at the
// boundary so the rest of the pipeline sees clean, typed records.
package retriever

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"

	"github.com/okian/callscout/internal/domain/model"
)

var sanitizer = newSanitizer() //nolint:gochecknoglobals // policies are safe for concurrent use

func newSanitizer() *bluemonday.Policy {
	p := bluemonday.StrictPolicy()
	p.AddSpaceWhenStrippingTag(true)
	return p
}

// HTMLToText strips all markup from s, decodes entities and collapses
// whitespace. Plain text passes through with whitespace collapsed.
func HTMLToText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return collapse(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(sanitizer.Sanitize(s)))
	if err != nil {
		return collapse(s)
	}
	return collapse(doc.Text())
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Normalize validates and cleans records in place of the source's raw
// shape. Records without an ID or title are dropped, as are repeated IDs.
// source fills records that do not name their own.
func Normalize(records []model.OpportunityRecord, source string) (out []model.OpportunityRecord, dropped int) {
	seen := make(map[string]struct{}, len(records))
	out = make([]model.OpportunityRecord, 0, len(records))
	for _, r := range records {
		r.ID = strings.TrimSpace(r.ID)
		r.Title = HTMLToText(r.Title)
		if r.ID == "" || r.Title == "" {
			dropped++
			continue
		}
		if _, dup := seen[r.ID]; dup {
			dropped++
			continue
		}
		seen[r.ID] = struct{}{}
		out = append(out, normalizeRecord(r, source))
	}
	return out, dropped
}

func normalizeRecord(r model.OpportunityRecord, source string) model.OpportunityRecord { //nolint:gocritic // hugeParam: value in, value out
	r.URL = strings.TrimSpace(r.URL)
	r.Status = strings.ToLower(collapse(r.Status))
	r.Source = collapse(r.Source)
	if r.Source == "" {
		r.Source = source
	}

	r.Programme.Name = collapse(r.Programme.Name)
	r.Programme.Call = collapse(r.Programme.Call)
	r.Programme.ActionType = collapse(r.Programme.ActionType)
	r.Programme.DeadlineModel = collapse(r.Programme.DeadlineModel)
	r.Programme.OpeningDate = collapse(r.Programme.OpeningDate)
	r.Programme.Deadline = collapse(r.Programme.Deadline)

	r.Content.Description = HTMLToText(r.Content.Description)
	r.Content.Destination = HTMLToText(r.Content.Destination)
	r.Content.Conditions = HTMLToText(r.Content.Conditions)
	r.Content.BudgetOverview = HTMLToText(r.Content.BudgetOverview)

	r.RequiredDomains = cleanList(r.RequiredDomains)
	r.Keywords = cleanList(r.Keywords)
	r.EligibleCountries = cleanList(r.EligibleCountries)
	r.EligibleOrgTypes = cleanList(r.EligibleOrgTypes)
	r.TRL = collapse(r.TRL)
	r.FundingRate = collapse(r.FundingRate)

	if r.Budget != nil {
		b := *r.Budget
		b.Min, b.Max = max(0, b.Min), max(0, b.Max)
		b.Currency = strings.ToUpper(strings.TrimSpace(b.Currency))
		if b.Currency == "" {
			b.Currency = "EUR"
		}
		if b.Min > 0 && b.Max > 0 && b.Min > b.Max {
			b.Min, b.Max = b.Max, b.Min
		}
		r.Budget = &b
		if !r.Budget.HasNumbers() {
			r.Budget = nil
		}
	}
	if r.Consortium != nil && r.Consortium.MinPartners <= 0 && r.Consortium.MinCountries <= 0 {
		r.Consortium = nil
	}
	return r
}

func cleanList(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = collapse(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// matches reports whether r satisfies a boolean query of the form
// `"a b" AND c`. Every AND-ed term must occur in the record's text.
func matches(r model.OpportunityRecord, query string) bool { //nolint:gocritic // hugeParam: read-only
	hay := strings.ToLower(strings.Join([]string{
		r.Title,
		r.Content.Description,
		strings.Join(r.Keywords, " "),
		strings.Join(r.RequiredDomains, " "),
	}, " "))
	terms := strings.Split(query, " AND ")
	nonEmpty := false
	for _, t := range terms {
		t = strings.ToLower(strings.Trim(strings.TrimSpace(t), `"`))
		if t == "" {
			continue
		}
		nonEmpty = true
		if !strings.Contains(hay, t) {
			return false
		}
	}
	return nonEmpty
}
