// Package analysis turns one retrieved record into an AnalyzedOpportunity:
// eligibility, insights from the reasoning service when it answers, and a
// score whose strategy follows from that outcome.
package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/callscout/internal/domain/eligibility"
	"github.com/okian/callscout/internal/domain/model"
	"github.com/okian/callscout/internal/domain/scoring"
	"github.com/okian/callscout/pkg/logger"
	"github.com/okian/callscout/pkg/metrics"
)

const defaultReasoningTimeout = 20 * time.Second

// ReasoningService produces qualitative insights for a record.
type ReasoningService interface {
	Analyze(ctx context.Context, r model.OpportunityRecord, p model.OrganizationProfile) (model.Insights, error)
}

// Option applies a configuration option to the Analyzer.
type Option func(*Analyzer)

// WithReasoning sets the reasoning service. Without one every record is
// scored deterministically.
func WithReasoning(rs ReasoningService) Option {
	return func(a *Analyzer) {
		a.reasoning = rs
	}
}

// WithReasoningTimeout bounds each reasoning call.
func WithReasoningTimeout(d time.Duration) Option {
	return func(a *Analyzer) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithLogger sets a custom logger for the analyzer.
func WithLogger(l logger.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

// Analyzer analyzes single records. It is safe for concurrent use.
type Analyzer struct {
	engine    *scoring.Engine
	reasoning ReasoningService
	timeout   time.Duration
	logger    logger.Logger
}

// New creates an analyzer scoring with engine.
func New(engine *scoring.Engine, opts ...Option) *Analyzer {
	if engine == nil {
		engine = scoring.NewEngine()
	}
	a := &Analyzer{
		engine:  engine,
		timeout: defaultReasoningTimeout,
		logger:  logger.Get().Named("analysis"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze never fails: reasoning errors degrade to deterministic scoring and
// a failure inside eligibility or scoring yields the neutral breakdown.
func (a *Analyzer) Analyze(ctx context.Context, r model.OpportunityRecord, p model.OrganizationProfile, iteration int) model.AnalyzedOpportunity {
	start := time.Now()
	out := model.AnalyzedOpportunity{
		ID:        r.ID,
		Title:     r.Title,
		URL:       r.URL,
		Source:    r.Source,
		Programme: r.Programme.Name,
		Deadline:  r.Programme.Deadline,
		HasBudget: r.Budget.HasNumbers(),
		Iteration: iteration,
	}

	var strategy scoring.Strategy = scoring.Deterministic{}
	if a.reasoning != nil {
		in, err := a.insights(ctx, r, p)
		if err != nil {
			metrics.RecordReasoningFallback()
			a.logger.Warn(ctx, "reasoning failed, scoring deterministically",
				logger.String("record_id", r.ID),
				logger.Error(err),
			)
			out.Degradations = append(out.Degradations, model.Degradation{
				Kind:   model.DegradedReasoning,
				Reason: err.Error(),
			})
		} else {
			out.Insights = &in
			strategy = scoring.Assisted{Insights: in}
		}
	}

	elig, score, err := a.evaluate(r, p, strategy)
	if err != nil {
		metrics.RecordScoringError()
		metrics.RecordErrorByComponent("analysis", "scoring_error")
		a.logger.Error(ctx, "scoring failed, using neutral score",
			logger.String("record_id", r.ID),
			logger.Error(err),
		)
		score = a.engine.Neutral(r)
		out.Degradations = append(out.Degradations, model.Degradation{
			Kind:   model.DegradedScoring,
			Reason: err.Error(),
		})
	}
	out.Eligibility = elig
	out.Score = score

	metrics.RecordRecordAnalyzed(string(score.Mode), string(score.Recommendation))
	metrics.RecordAnalysisLatency(float64(time.Since(start).Milliseconds()))
	return out
}

func (a *Analyzer) insights(ctx context.Context, r model.OpportunityRecord, p model.OrganizationProfile) (in model.Insights, err error) {
	const op = "analysis.reasoning"
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	defer func() {
		if rec := recover(); rec != nil {
			err = model.NewKind(op, model.ErrReasoning).WithMsg(fmt.Sprintf("panic: %v", rec))
		}
	}()

	in, err = a.reasoning.Analyze(ctx, r, p)
	if err != nil {
		return model.Insights{}, model.WrapKind(op, model.ErrReasoning, err)
	}
	return in, nil
}

// evaluate runs the pure steps and converts a panic into a scoring error.
func (a *Analyzer) evaluate(r model.OpportunityRecord, p model.OrganizationProfile, s scoring.Strategy) (elig model.EligibilityResult, score model.ScoreBreakdown, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = model.NewKind("analysis.score", model.ErrScoring).WithMsg(fmt.Sprintf("panic: %v", rec))
		}
	}()
	elig = eligibility.Evaluate(r, p)
	score = a.engine.Score(r, p, s)
	return elig, score, nil
}
