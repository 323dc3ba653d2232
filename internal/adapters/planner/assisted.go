package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/okian/callscout/internal/domain/model"
	"github.com/okian/callscout/pkg/logger"
)

const (
	maxAssistedQueries = 6
	maxQueryLength     = 100
	minQueryLength     = 3
)

var queryLabel = regexp.MustCompile(`(?i)^(query\s*\d+\s*:|\d+[.)])\s*`)

// Generator completes a prompt in JSON mode.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Assisted asks a language model for search queries and keeps the rest of
// the plan from a Fallback planner. Any model failure yields the fallback
// plan unchanged.
type Assisted struct {
	gen      Generator
	fallback *Fallback
	logger   logger.Logger
}

// NewAssisted returns a planner asking gen for queries. A nil fallback is
// replaced by New().
func NewAssisted(gen Generator, fallback *Fallback) *Assisted {
	if fallback == nil {
		fallback = New()
	}
	return &Assisted{gen: gen, fallback: fallback, logger: fallback.logger.Named("assisted")}
}

type queryAnswer struct {
	Queries []string `json:"queries"`
}

// Plan implements workflow.Planner.
func (a *Assisted) Plan(ctx context.Context, p model.OrganizationProfile, feedback string) (model.Plan, error) { //nolint:gocritic // hugeParam: interface signature
	const op = "planner.assisted"
	base, err := a.fallback.Plan(ctx, p, feedback)
	if err != nil {
		return model.Plan{}, err
	}

	raw, err := a.gen.Generate(ctx, assistedPrompt(&p, feedback))
	if err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return model.Plan{}, model.WrapKind(op, model.ErrPlanning, cerr)
		}
		a.logger.Warn(ctx, "query generation failed, using fallback plan", logger.Error(err))
		return base, nil
	}

	var ans queryAnswer
	if err := json.Unmarshal([]byte(raw), &ans); err != nil {
		a.logger.Warn(ctx, "undecodable query answer, using fallback plan", logger.Error(err))
		return base, nil
	}
	queries := cleanQueries(ans.Queries)
	if len(queries) == 0 {
		a.logger.Warn(ctx, "model returned no usable queries, using fallback plan")
		return base, nil
	}

	plan := base
	plan.Queries = queries
	plan.Reasoning = "Model-assisted plan: queries generated from the full profile."
	if strings.TrimSpace(feedback) != "" {
		plan.Reasoning = "Model-assisted plan: queries regenerated to address reflection feedback."
	}
	a.logger.Debug(ctx, "plan created", logger.Int("queries", len(plan.Queries)))
	return plan, nil
}

func cleanQueries(in []string) []string {
	out := make([]string, 0, len(in))
	for _, q := range in {
		q = strings.TrimSpace(queryLabel.ReplaceAllString(strings.TrimSpace(q), ""))
		if utf8.RuneCountInString(q) < minQueryLength {
			continue
		}
		if utf8.RuneCountInString(q) > maxQueryLength {
			q = strings.TrimSpace(string([]rune(q)[:maxQueryLength]))
		}
		out = append(out, q)
	}
	out = dedupe(out)
	if len(out) > maxAssistedQueries {
		out = out[:maxAssistedQueries]
	}
	return out
}

func assistedPrompt(p *model.OrganizationProfile, feedback string) string {
	var b strings.Builder
	b.WriteString("You are an expert EU funding search strategist. Generate search queries for EU funding calls.\n\n")

	b.WriteString("COMPANY:\n")
	fmt.Fprintf(&b, "Name: %s (%s, %s, %d employees)\n", p.Name, p.Type, p.Country, p.Employees)
	fmt.Fprintf(&b, "Description: %s\n", p.Description)
	b.WriteString("Domains:\n")
	for _, d := range p.Domains {
		fmt.Fprintf(&b, "- %s (%s)", d.Name, d.Level)
		if len(d.SubDomains) > 0 {
			fmt.Fprintf(&b, ": %s", strings.Join(d.SubDomains, ", "))
		}
		b.WriteString("\n")
	}
	if len(p.Keywords.Include) > 0 {
		fmt.Fprintf(&b, "Keywords: %s\n", strings.Join(p.Keywords.Include, ", "))
	}
	if len(p.Keywords.Exclude) > 0 {
		fmt.Fprintf(&b, "Avoid: %s\n", strings.Join(p.Keywords.Exclude, ", "))
	}

	if fb := strings.TrimSpace(feedback); fb != "" {
		b.WriteString("\nFEEDBACK FROM PREVIOUS SEARCHES:\n")
		b.WriteString(fb)
		b.WriteString("\nAddress every point of the feedback with more targeted queries.\n")
	}

	fmt.Fprintf(&b, `
Rules:
- Use space-separated keywords, no AND/OR operators or parentheses.
- Quote multi-word concepts, e.g. "machine learning" healthcare.
- Keep each query under %d characters with 2-4 terms.

Reply with JSON only: {"queries": ["...", "..."]} with %d queries.
`, maxQueryLength, maxAssistedQueries)
	return b.String()
}
