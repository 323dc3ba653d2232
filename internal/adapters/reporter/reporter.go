// Package reporter renders a run's final results as a ranked text table
// and keeps the latest report per run in memory.
package reporter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/okian/callscout/internal/domain/model"
	"github.com/okian/callscout/internal/domain/reflection"
	"github.com/okian/callscout/internal/domain/types"
	"github.com/okian/callscout/pkg/logger"
)

const titleWidth = 60

// ErrNotFound is returned when no report exists for a run.
var ErrNotFound = errors.New("report not found")

// Report is the rendered outcome of one run.
type Report struct {
	RunID        string                       `json:"run_id"`
	Organization string                       `json:"organization"`
	GeneratedAt  time.Time                    `json:"generated_at"`
	Entries      []types.Entry                `json:"entries"`
	Counts       map[model.Recommendation]int `json:"counts"`
	Degraded     int                          `json:"degraded"`
	Confidence   reflection.Confidence        `json:"confidence"`
	Text         string                       `json:"text"`
}

// Option configures a TableReporter.
type Option func(*TableReporter)

// WithOutput mirrors every rendered report to w.
func WithOutput(w io.Writer) Option {
	return func(r *TableReporter) {
		r.out = w
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(r *TableReporter) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithClock overrides the report timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *TableReporter) {
		if now != nil {
			r.now = now
		}
	}
}

// TableReporter implements workflow.Reporter. It is safe for concurrent use.
type TableReporter struct {
	mu      sync.RWMutex
	reports map[string]Report
	out     io.Writer
	now     func() time.Time
	logger  logger.Logger
}

// New creates a reporter.
func New(opts ...Option) *TableReporter {
	r := &TableReporter{
		reports: make(map[string]Report),
		now:     time.Now,
		logger:  logger.Get().Named("reporter"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Report ranks results, renders them and stores the report under runID.
func (r *TableReporter) Report(ctx context.Context, runID string, p model.OrganizationProfile, results []model.AnalyzedOpportunity) error { //nolint:gocritic // hugeParam: interface signature
	const op = "reporter.report"
	if err := ctx.Err(); err != nil {
		return model.WrapKind(op, model.ErrReporting, err)
	}
	if strings.TrimSpace(runID) == "" {
		return model.NewKind(op, model.ErrReporting).WithMsg("empty run id")
	}

	rep := Build(runID, p.Name, results, r.now())
	if r.out != nil {
		if _, err := io.WriteString(r.out, rep.Text); err != nil {
			return model.WrapKind(op, model.ErrReporting, err)
		}
	}

	r.mu.Lock()
	r.reports[runID] = rep
	r.mu.Unlock()

	r.logger.Info(ctx, "report generated",
		logger.String("run_id", runID),
		logger.Int("results", len(rep.Entries)),
		logger.String("confidence", string(rep.Confidence.Level)),
	)
	return nil
}

// Get returns the stored report of a run.
func (r *TableReporter) Get(runID string) (Report, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rep, ok := r.reports[runID]
	if !ok {
		return Report{}, ErrNotFound
	}
	return rep, nil
}

// Forget drops the stored report of a run. Unknown IDs are ignored.
func (r *TableReporter) Forget(runID string) {
	r.mu.Lock()
	delete(r.reports, runID)
	r.mu.Unlock()
}

// Build assembles a report without storing it.
func Build(runID, organization string, results []model.AnalyzedOpportunity, at time.Time) Report {
	rep := Report{
		RunID:        runID,
		Organization: organization,
		GeneratedAt:  at.UTC(),
		Entries:      types.Rank(results),
		Counts:       make(map[model.Recommendation]int, 4),
		Confidence:   reflection.EvaluateConfidence(results),
	}
	for _, e := range rep.Entries {
		rep.Counts[e.Recommendation]++
		if e.Degraded {
			rep.Degraded++
		}
	}
	rep.Text = Render(rep)
	return rep
}

// Render formats a report as a table followed by a summary.
func Render(rep Report) string { //nolint:gocritic // hugeParam: read-only
	var b strings.Builder
	fmt.Fprintf(&b, "Funding opportunities for %s (run %s, %s)\n",
		orDash(rep.Organization), rep.RunID, rep.GeneratedAt.Format(time.RFC3339))

	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Score", "Recommendation", "Eligible", "Deadline", "ID", "Title"})
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 7, WidthMax: titleWidth}})
	for _, e := range rep.Entries {
		score := fmt.Sprintf("%.1f", e.Score)
		if e.Degraded {
			score += "*"
		}
		t.AppendRow(table.Row{e.Rank, score, e.Recommendation, yesNo(e.Eligible), orDash(e.Deadline), e.ID, e.Title})
	}
	t.AppendFooter(table.Row{"", "", "", "", "", "Total", len(rep.Entries)})
	b.WriteString(t.Render())
	b.WriteString("\n")

	fmt.Fprintf(&b, "apply: %d  consider: %d  monitor: %d  skip: %d\n",
		rep.Counts[model.RecommendApply], rep.Counts[model.RecommendConsider],
		rep.Counts[model.RecommendMonitor], rep.Counts[model.RecommendSkip])
	if rep.Degraded > 0 {
		fmt.Fprintf(&b, "* %d result(s) scored in degraded mode\n", rep.Degraded)
	}
	fmt.Fprintf(&b, "confidence: %s (completeness %.1f%%, %s scores)\n",
		rep.Confidence.Level, rep.Confidence.Completeness, rep.Confidence.Consistency)
	return b.String()
}

func yesNo(ok bool) string {
	if ok {
		return "yes"
	}
	return "no"
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
