// Package types contains the ranked views shared by the API and reporter.
package types

import (
	"sort"

	"github.com/okian/callscout/internal/domain/model"
)

// Entry is one row of a run's ranked result list.
type Entry struct {
	Rank           int                  `json:"rank"`
	ID             string               `json:"id"`
	Title          string               `json:"title"`
	URL            string               `json:"url,omitempty"`
	Source         string               `json:"source,omitempty"`
	Programme      string               `json:"programme,omitempty"`
	Deadline       string               `json:"deadline,omitempty"`
	Score          float64              `json:"score"`
	Recommendation model.Recommendation `json:"recommendation"`
	Eligible       bool                 `json:"eligible"`
	Degraded       bool                 `json:"degraded"`
}

// Sort returns a copy of results ordered best first. Ties keep the eligible
// record first, then order by ID so ranking is deterministic.
func Sort(results []model.AnalyzedOpportunity) []model.AnalyzedOpportunity {
	sorted := make([]model.AnalyzedOpportunity, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Score.Total != b.Score.Total {
			return a.Score.Total > b.Score.Total
		}
		if a.Eligibility.AllPassed != b.Eligibility.AllPassed {
			return a.Eligibility.AllPassed
		}
		return a.ID < b.ID
	})
	return sorted
}

// Rank orders results with Sort and numbers them from 1.
func Rank(results []model.AnalyzedOpportunity) []Entry {
	sorted := Sort(results)
	out := make([]Entry, len(sorted))
	for i, a := range sorted {
		out[i] = Entry{
			Rank:           i + 1,
			ID:             a.ID,
			Title:          a.Title,
			URL:            a.URL,
			Source:         a.Source,
			Programme:      a.Programme,
			Deadline:       a.Deadline,
			Score:          a.Score.Total,
			Recommendation: a.Score.Recommendation,
			Eligible:       a.Eligibility.AllPassed,
			Degraded:       a.Degraded(),
		}
	}
	return out
}

// Top returns at most n entries. n <= 0 returns all of them.
func Top(entries []Entry, n int) []Entry {
	if n <= 0 || n >= len(entries) {
		return entries
	}
	return entries[:n]
}
