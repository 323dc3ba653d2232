// Package reflection judges an iteration's analyzed batch and decides
// whether the workflow should finalize, widen its search, or narrow it.
package reflection

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/okian/callscout/internal/domain/model"
)

// Score bands. A gap between low and medium is intentional: scores in
// [5,6) count toward neither.
const (
	HighScore   = 8.0
	MediumScore = 6.0
	LowScore    = 5.0
)

const (
	defaultMaxIterations  = 3
	defaultTargetQuantity = 30
	quantityCap           = 10
	refineAverage         = 4.0
	refineMinResults      = 5
	minCoverage           = 0.5
	earlyIterationLimit   = 2
	topRecommendations    = 5
)

// Target describes what the run is aiming for.
type Target struct {
	MaxIterations  int
	TargetQuantity int
	TargetSources  []string
}

func (t Target) maxIterations() int {
	if t.MaxIterations <= 0 {
		return defaultMaxIterations
	}
	return t.MaxIterations
}

func (t Target) targetQuantity() int {
	if t.TargetQuantity <= 0 {
		return defaultTargetQuantity
	}
	return t.TargetQuantity
}

// Reflect decides the next step for the batch analyzed in iteration.
func Reflect(batch []model.AnalyzedOpportunity, target Target, iteration int) model.ReflectionDecision {
	st := Stats(batch, target.TargetSources)
	d := decide(st, target, iteration)
	d.Stats = st
	return d
}

// Stats summarizes a batch. Coverage is the share of target sources that
// returned at least one record; it is 1 when there is no target.
func Stats(batch []model.AnalyzedOpportunity, targetSources []string) model.ReflectionStats {
	st := model.ReflectionStats{Total: len(batch)}

	seen := make(map[string]struct{})
	sum := 0.0
	for i, a := range batch {
		s := a.Score.Total
		sum += s
		if i == 0 || s > st.Max {
			st.Max = s
		}
		switch {
		case s >= HighScore:
			st.High++
		case s >= MediumScore:
			st.Medium++
		case s < LowScore:
			st.Low++
		}
		if src := normSource(a.Source); src != "" {
			if _, ok := seen[src]; !ok {
				seen[src] = struct{}{}
				st.SourcesCovered = append(st.SourcesCovered, a.Source)
			}
		}
	}
	if st.Total > 0 {
		st.Average = math.Round(sum/float64(st.Total)*100) / 100
	}
	sort.Strings(st.SourcesCovered)

	st.Coverage = 1
	targets := make(map[string]struct{}, len(targetSources))
	for _, t := range targetSources {
		if n := normSource(t); n != "" {
			targets[n] = struct{}{}
		}
	}
	if len(targets) > 0 {
		hit := 0
		for t := range targets {
			if _, ok := seen[t]; ok {
				hit++
			}
		}
		st.Coverage = float64(hit) / float64(len(targets))
	}
	return st
}

func decide(st model.ReflectionStats, target Target, iteration int) model.ReflectionDecision {
	good := st.High >= 2 || (st.High >= 1 && st.Medium >= 3)
	enough := st.Total >= min(target.targetQuantity(), quantityCap)

	switch {
	case iteration >= target.maxIterations():
		if st.Total == 0 {
			return model.ReflectionDecision{
				Decision:  model.DecisionFinalize,
				Reasoning: fmt.Sprintf("Maximum iterations (%d) reached with no results. Finalizing empty.", iteration),
				Recommendations: []string{
					"Consider broadening search criteria for future searches",
					"Check if target portals have active calls",
				},
			}
		}
		return model.ReflectionDecision{
			Decision:  model.DecisionFinalize,
			Reasoning: fmt.Sprintf("Maximum iterations (%d) reached. Using %d results found.", iteration, st.Total),
			Recommendations: []string{
				fmt.Sprintf("Top result scored %.1f/10", st.Max),
				fmt.Sprintf("Average score: %.1f/10", st.Average),
			},
		}

	case st.Total == 0:
		return model.ReflectionDecision{
			Decision:  model.DecisionExpand,
			Reasoning: "No results found in initial search. Need to expand to additional portals.",
			Recommendations: []string{
				"Search additional portals not in initial list",
				"Broaden keyword criteria",
				"Consider alternative search terms",
			},
		}

	case st.Average < refineAverage && st.Total >= refineMinResults:
		return model.ReflectionDecision{
			Decision:  model.DecisionRefine,
			Reasoning: fmt.Sprintf("Found %d results but average score is only %.1f/10. Criteria may be too broad.", st.Total, st.Average),
			Recommendations: []string{
				"Tighten domain requirements",
				"Add more specific keywords",
				"Increase minimum score threshold",
				"Focus on specific programs",
			},
		}

	case st.Coverage < minCoverage && iteration < earlyIterationLimit:
		return model.ReflectionDecision{
			Decision:  model.DecisionExpand,
			Reasoning: fmt.Sprintf("Only %.0f%% of target portals returned results. Need to search remaining portals.", st.Coverage*100),
			Recommendations: []string{
				"Retry failed portal connections",
				"Search remaining target portals",
				"Check for API rate limits",
			},
		}

	case good && st.Total < target.targetQuantity() && iteration < earlyIterationLimit:
		return model.ReflectionDecision{
			Decision:  model.DecisionExpand,
			Reasoning: fmt.Sprintf("Good quality results (%d high scores) but only %d total. Can search for more.", st.High, st.Total),
			Recommendations: []string{
				"Expand search to additional pages",
				"Search broader date ranges",
				"Include more programs",
			},
		}

	case good && enough:
		return model.ReflectionDecision{
			Decision:  model.DecisionFinalize,
			Reasoning: fmt.Sprintf("Results are sufficient: %d high-quality matches found with average score %.1f/10.", st.High, st.Average),
			Recommendations: []string{
				fmt.Sprintf("Proceed with top %d recommendations", min(st.High, topRecommendations)),
				"Prepare detailed analysis for high-scoring calls",
				"Consider setting up monitoring for similar future calls",
			},
		}
	}

	return model.ReflectionDecision{
		Decision:  model.DecisionFinalize,
		Reasoning: fmt.Sprintf("Search completed with %d results. Quality acceptable (avg: %.1f/10).", st.Total, st.Average),
		Recommendations: []string{
			fmt.Sprintf("Review %d high-priority and %d medium-priority calls", st.High, st.Medium),
			"Consider manual review of borderline cases",
		},
	}
}

// Feedback renders a decision as planner feedback text.
func Feedback(d model.ReflectionDecision) string {
	var b strings.Builder
	b.WriteString(string(d.Decision))
	b.WriteString(": ")
	b.WriteString(d.Reasoning)
	for _, r := range d.Recommendations {
		b.WriteString("\n- ")
		b.WriteString(r)
	}
	return b.String()
}

func normSource(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
