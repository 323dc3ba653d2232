// Package workflow drives a discovery run through an explicit state
// machine: intake, then planning, retrieval and analysis until reflection
// finalizes or the iteration bound is hit, then reporting.
package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/okian/callscout/internal/domain/dedupe"
	"github.com/okian/callscout/internal/domain/intake"
	"github.com/okian/callscout/internal/domain/model"
	"github.com/okian/callscout/internal/domain/reflection"
	"github.com/okian/callscout/pkg/logger"
	"github.com/okian/callscout/pkg/metrics"
)

// Controller runs workflows. One Controller may run many runs concurrently;
// each run owns its own state.
type Controller struct {
	planner   Planner
	retriever Retriever
	analyzer  BatchAnalyzer
	reporter  Reporter

	maxIterations  int
	targetQuantity int
	targetSources  []string
	policy         FailurePolicy
	timeouts       Timeouts
	observer       Observer
	logger         logger.Logger
	now            func() time.Time
}

// New creates a controller over its collaborators.
func New(pl Planner, rt Retriever, an BatchAnalyzer, rp Reporter, opts ...Option) *Controller {
	c := &Controller{
		planner:        pl,
		retriever:      rt,
		analyzer:       an,
		reporter:       rp,
		maxIterations:  defaultMaxIterations,
		targetQuantity: defaultTargetQuantity,
		policy:         PolicyDegrade,
		timeouts: Timeouts{
			Planner:   defaultPlannerTimeout,
			Retriever: defaultRetrieverTimeout,
			Reporter:  defaultReporterTimeout,
		},
		logger: logger.Get().Named("workflow"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// run is the per-run mutable state. Only the goroutine executing Run
// touches it.
type run struct {
	id      string
	state   State
	profile model.OrganizationProfile
	it      IterationState
	status  RunStatus
	seen    dedupe.Deduper
	results map[string]model.AnalyzedOpportunity
	log     logger.Logger
	err     error
}

// Run executes one workflow to a terminal state. The returned error is
// non-nil exactly when the run failed.
func (c *Controller) Run(ctx context.Context, runID string, p *model.OrganizationProfile) (Result, error) {
	r := &run{
		id:      runID,
		state:   StateIntake,
		it:      IterationState{MaxIterations: c.maxIterations},
		seen:    dedupe.NewInMemoryDeduper(),
		results: make(map[string]model.AnalyzedOpportunity),
		log:     c.logger.With(logger.String("run_id", runID)),
		status: RunStatus{
			RunID:        runID,
			Status:       StatusRunning,
			CurrentStage: StateIntake,
			Degradations: []model.Degradation{},
			StartedAt:    c.now().UTC(),
		},
	}
	metrics.RecordRunStarted()
	r.log.Info(ctx, "run started", logger.Int("max_iterations", c.maxIterations))
	c.publish(r)

	for !r.state.Terminal() {
		if err := ctx.Err(); err != nil {
			c.fail(ctx, r, fmt.Errorf("run cancelled in %s: %w", r.state, err))
			continue
		}
		start := time.Now()
		stage := r.state

		var (
			next State
			err  error
		)
		switch r.state {
		case StateIntake:
			next, err = c.intake(r, p)
		case StatePlanning:
			next, err = c.plan(ctx, r)
		case StateRetrieval:
			next, err = c.retrieve(ctx, r)
		case StateAnalysis:
			next, err = c.analyze(ctx, r)
		case StateReporting:
			next, err = c.report(ctx, r)
		}
		metrics.RecordStageDuration(stage.String(), float64(time.Since(start).Milliseconds()))

		if err != nil {
			c.fail(ctx, r, err)
			continue
		}
		if err := c.transition(r, next); err != nil {
			c.fail(ctx, r, err)
		}
	}

	metrics.RecordRunFinished(string(r.status.Status), r.it.Iteration)
	res := Result{
		Status:    snapshot(r.status),
		Results:   append([]model.AnalyzedOpportunity(nil), r.it.Accumulated...),
		Decisions: append([]model.ReflectionDecision(nil), r.it.Decisions...),
	}
	return res, r.err
}

func (c *Controller) intake(r *run, p *model.OrganizationProfile) (State, error) {
	if _, err := intake.Validate(p); err != nil {
		return StateFailed, err
	}
	r.profile = *p
	return StatePlanning, nil
}

func (c *Controller) plan(ctx context.Context, r *run) (State, error) {
	const op = "workflow.plan"
	pctx, cancel := context.WithTimeout(ctx, c.timeouts.Planner)
	defer cancel()

	plan, err := c.planner.Plan(pctx, r.profile, r.it.Feedback)
	if err != nil {
		return StateFailed, ensureKind(op, model.ErrPlanning, err)
	}
	r.it.Plan = plan
	r.it.Iteration++
	r.status.IterationCount = r.it.Iteration
	r.log.Info(ctx, "plan ready",
		logger.Int("iteration", r.it.Iteration),
		logger.Int("queries", len(plan.Queries)),
	)
	return StateRetrieval, nil
}

func (c *Controller) retrieve(ctx context.Context, r *run) (State, error) {
	const op = "workflow.retrieve"
	rctx, cancel := context.WithTimeout(ctx, c.timeouts.Retriever)
	defer cancel()

	records, err := c.retriever.Retrieve(rctx, r.it.Plan)
	if err != nil {
		err = ensureKind(op, model.ErrRetrieval, err)
		if c.policy == PolicyFail || ctx.Err() != nil {
			return StateFailed, err
		}
		metrics.RecordErrorByComponent("workflow", "retrieval_degraded")
		r.log.Warn(ctx, "retrieval failed, continuing with no records",
			logger.Int("iteration", r.it.Iteration),
			logger.Error(err),
		)
		r.status.Degradations = append(r.status.Degradations, model.Degradation{
			Kind:   model.DegradedRetrieval,
			Reason: fmt.Sprintf("iteration %d: %v", r.it.Iteration, err),
		})
		records = nil
	}
	r.it.Records = records
	metrics.RecordRetrievedRecords(len(records))
	return StateAnalysis, nil
}

func (c *Controller) analyze(ctx context.Context, r *run) (State, error) {
	batch := make([]model.AnalyzedOpportunity, 0, len(r.it.Records))
	fresh := make([]model.OpportunityRecord, 0, len(r.it.Records))
	inBatch := dedupe.NewInMemoryDeduper()
	for _, rec := range r.it.Records {
		if inBatch.SeenAndRecord(ctx, rec.ID) {
			continue
		}
		if r.seen.SeenAndRecord(ctx, rec.ID) {
			batch = append(batch, r.results[rec.ID])
			continue
		}
		fresh = append(fresh, rec)
	}

	if len(fresh) > 0 {
		analyzed, err := c.analyzer.AnalyzeBatch(ctx, fresh, r.profile, r.it.Iteration)
		if err != nil {
			return StateFailed, err
		}
		for _, a := range analyzed {
			batch = append(batch, a)
			r.seen.SeenAndRecord(ctx, a.ID)
			if _, ok := r.results[a.ID]; !ok {
				r.results[a.ID] = a
			}
		}
		// A dispatched record without a result is retried on a later
		// iteration.
		for _, rec := range fresh {
			if _, ok := r.results[rec.ID]; !ok {
				r.seen.Unrecord(ctx, rec.ID)
			}
		}
		r.it.Accumulated = r.accumulated()
	}

	d := reflection.Reflect(batch, reflection.Target{
		MaxIterations:  r.it.MaxIterations,
		TargetQuantity: c.targetQuantity,
		TargetSources:  c.targetSources,
	}, r.it.Iteration)
	r.it.Decisions = append(r.it.Decisions, d)
	metrics.RecordReflectionDecision(string(d.Decision))
	r.log.Info(ctx, "iteration reflected",
		logger.Int("iteration", r.it.Iteration),
		logger.Int("batch", len(batch)),
		logger.Int("analyzed", len(fresh)),
		logger.Int("known", int(r.seen.Size())),
		logger.String("decision", string(d.Decision)),
		logger.Float64("average", d.Stats.Average),
	)

	if d.Decision == model.DecisionFinalize || r.it.Iteration >= r.it.MaxIterations {
		return StateReporting, nil
	}
	fb := reflection.Feedback(d)
	if r.it.Feedback != "" {
		fb = r.it.Feedback + "\n" + fb
	}
	r.it.Feedback = fb
	return StatePlanning, nil
}

func (c *Controller) report(ctx context.Context, r *run) (State, error) {
	const op = "workflow.report"
	rctx, cancel := context.WithTimeout(ctx, c.timeouts.Reporter)
	defer cancel()

	if err := c.reporter.Report(rctx, r.id, r.profile, r.it.Accumulated); err != nil {
		return StateFailed, ensureKind(op, model.ErrReporting, err)
	}
	return StateCompleted, nil
}

func (c *Controller) transition(r *run, to State) error {
	if !CanTransition(r.state, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, r.state, to)
	}
	r.state = to
	r.status.CurrentStage = to
	if to == StateCompleted {
		r.status.Status = StatusCompleted
		r.finish(c.now())
		r.log.Info(context.Background(), "run completed",
			logger.Int("iterations", r.it.Iteration),
			logger.Int("results", len(r.it.Accumulated)),
		)
	}
	c.publish(r)
	return nil
}

// fail moves the run to Failed from any state. It bypasses the table only
// for the terminal edge every state owns.
func (c *Controller) fail(ctx context.Context, r *run, err error) {
	r.err = err
	r.state = StateFailed
	r.status.CurrentStage = StateFailed
	r.status.Status = StatusFailed
	r.status.ErrorMessage = err.Error()
	r.finish(c.now())
	metrics.RecordErrorByComponent("workflow", "run_failed")
	r.log.Error(ctx, "run failed", logger.Int("iteration", r.it.Iteration), logger.Error(err))
	c.publish(r)
}

// accumulated returns every analyzed record of the run in first-seen order.
func (r *run) accumulated() []model.AnalyzedOpportunity {
	ids := r.seen.IDs()
	out := make([]model.AnalyzedOpportunity, 0, len(ids))
	for _, id := range ids {
		if a, ok := r.results[id]; ok {
			out = append(out, a)
		}
	}
	return out
}

func (r *run) finish(at time.Time) {
	t := at.UTC()
	r.status.FinishedAt = &t
}

func (c *Controller) publish(r *run) {
	if c.observer != nil {
		c.observer(snapshot(r.status))
	}
}

func snapshot(s RunStatus) RunStatus {
	s.Degradations = append([]model.Degradation{}, s.Degradations...)
	if s.FinishedAt != nil {
		t := *s.FinishedAt
		s.FinishedAt = &t
	}
	return s
}

// ensureKind tags err with kind unless it already carries a known kind.
func ensureKind(op string, kind, err error) error {
	if model.KindOf(err) != nil {
		return err
	}
	return model.WrapKind(op, kind, err)
}

// Summary renders a one-line description of a finished run.
func Summary(res Result) string { //nolint:gocritic // hugeParam: read-only
	var b strings.Builder
	fmt.Fprintf(&b, "run %s %s after %d iteration(s) with %d result(s)",
		res.Status.RunID, res.Status.Status, res.Status.IterationCount, len(res.Results))
	if n := len(res.Status.Degradations); n > 0 {
		fmt.Fprintf(&b, ", %d degradation(s)", n)
	}
	if res.Status.ErrorMessage != "" {
		fmt.Fprintf(&b, ": %s", res.Status.ErrorMessage)
	}
	return b.String()
}
