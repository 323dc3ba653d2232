// Package planner builds retrieval plans from an organization profile
// without any external model. Feedback from reflection widens or narrows
// the query set on later iterations.
package planner

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/callscout/internal/domain/model"
	"github.com/okian/callscout/pkg/logger"
)

// DefaultProgramme is always targeted.
const DefaultProgramme = "Horizon Europe"

type mode int

const (
	modeInitial mode = iota
	modeExpand
	modeRefine
)

// staticFilters mirror the portal-side filter every plan carries.
func staticFilters() map[string]string {
	return map[string]string{
		"type":             "grant,prize",
		"status":           "open,forthcoming",
		"programme_period": "2021 - 2027",
	}
}

// Option applies a configuration option to the Fallback planner.
type Option func(*Fallback)

// WithProgrammes adds programmes to every plan.
func WithProgrammes(programmes ...string) Option {
	return func(f *Fallback) {
		f.programmes = append(f.programmes, programmes...)
	}
}

// WithSources sets the sources every plan targets.
func WithSources(sources ...string) Option {
	return func(f *Fallback) {
		f.sources = append(f.sources, sources...)
	}
}

// WithLogger sets a custom logger for the planner.
func WithLogger(l logger.Logger) Option {
	return func(f *Fallback) {
		if l != nil {
			f.logger = l
		}
	}
}

// Fallback is a deterministic planner working from domain names.
type Fallback struct {
	programmes []string
	sources    []string
	logger     logger.Logger
}

// New creates a planner.
func New(opts ...Option) *Fallback {
	f := &Fallback{logger: logger.Get().Named("planner")}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Plan returns the queries for the next retrieval.
func (f *Fallback) Plan(ctx context.Context, p model.OrganizationProfile, feedback string) (model.Plan, error) {
	const op = "planner.plan"
	if err := ctx.Err(); err != nil {
		return model.Plan{}, model.WrapKind(op, model.ErrPlanning, err)
	}

	var domains []string
	for _, d := range p.Domains {
		if n := strings.TrimSpace(d.Name); n != "" {
			domains = append(domains, n)
		}
	}
	if len(domains) == 0 {
		return model.Plan{}, model.NewKind(op, model.ErrPlanning).WithMsg("profile has no domains to plan from")
	}

	m := modeFromFeedback(feedback)
	var queries []string
	var reasoning string
	switch m {
	case modeRefine:
		queries = refineQueries(domains, p.Keywords.Include)
		reasoning = "Refined plan: narrowed to combined domain and keyword queries."
	case modeExpand:
		queries = baseQueries(domains)
		for _, d := range p.Domains {
			for _, s := range d.SubDomains {
				queries = append(queries, quote(s))
			}
		}
		for _, k := range p.Keywords.Include {
			queries = append(queries, quote(k))
		}
		reasoning = "Expanded plan: added sub-domain and keyword queries."
	default:
		queries = baseQueries(domains)
		reasoning = "Initial plan: generated from domain names."
	}

	plan := model.Plan{
		Queries:        dedupe(queries),
		TargetPrograms: dedupe(append([]string{DefaultProgramme}, f.programmes...)),
		TargetSources:  dedupe(f.sources),
		Reasoning:      reasoning,
		Filters:        staticFilters(),
	}
	f.logger.Debug(ctx, "plan created",
		logger.Int("queries", len(plan.Queries)),
		logger.String("reasoning", reasoning),
	)
	return plan, nil
}

func baseQueries(domains []string) []string {
	out := make([]string, 0, len(domains)+1)
	for _, d := range domains {
		out = append(out, quote(d))
	}
	if len(domains) >= 2 {
		out = append(out, fmt.Sprintf("%s AND %s", quote(domains[0]), quote(domains[1])))
	}
	return out
}

func refineQueries(domains, keywords []string) []string {
	var out []string
	for i := 0; i < len(domains); i++ {
		for j := i + 1; j < len(domains); j++ {
			out = append(out, fmt.Sprintf("%s AND %s", quote(domains[i]), quote(domains[j])))
		}
		for _, k := range keywords {
			if k = strings.TrimSpace(k); k != "" {
				out = append(out, fmt.Sprintf("%s AND %s", quote(domains[i]), quote(k)))
			}
		}
	}
	if len(out) == 0 {
		return baseQueries(domains)
	}
	return out
}

// modeFromFeedback reads the most recent decision in the feedback text.
func modeFromFeedback(feedback string) mode {
	fb := strings.ToLower(feedback)
	e, r := strings.LastIndex(fb, "expand:"), strings.LastIndex(fb, "refine:")
	switch {
	case e < 0 && r < 0:
		return modeInitial
	case r > e:
		return modeRefine
	}
	return modeExpand
}

func quote(term string) string {
	term = strings.TrimSpace(term)
	if strings.Contains(term, " ") {
		return `"` + term + `"`
	}
	return term
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[strings.ToLower(s)]; ok {
			continue
		}
		seen[strings.ToLower(s)] = struct{}{}
		out = append(out, s)
	}
	return out
}
