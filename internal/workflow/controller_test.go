package workflow_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/okian/callscout/internal/adapters/mq/queue"
	"github.com/okian/callscout/internal/adapters/mq/worker"
	"github.com/okian/callscout/internal/adapters/planner"
	"github.com/okian/callscout/internal/adapters/reasoning"
	"github.com/okian/callscout/internal/adapters/reporter"
	"github.com/okian/callscout/internal/adapters/retriever"
	"github.com/okian/callscout/internal/domain/analysis"
	"github.com/okian/callscout/internal/domain/model"
	"github.com/okian/callscout/internal/domain/scoring"
	"github.com/okian/callscout/internal/workflow"
	"github.com/okian/callscout/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

type stubPlanner struct {
	mu       sync.Mutex
	feedback []string
	err      error
}

func (p *stubPlanner) Plan(_ context.Context, _ model.OrganizationProfile, feedback string) (model.Plan, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.feedback = append(p.feedback, feedback)
	if p.err != nil {
		return model.Plan{}, p.err
	}
	return model.Plan{Queries: []string{"ai"}}, nil
}

func (p *stubPlanner) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.feedback)
}

// scriptedRetriever returns batches[i] on the i-th call and nothing after.
type scriptedRetriever struct {
	batches [][]model.OpportunityRecord
	err     error
	calls   int
}

func (r *scriptedRetriever) Retrieve(ctx context.Context, _ model.Plan) ([]model.OpportunityRecord, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	if r.calls <= len(r.batches) {
		return r.batches[r.calls-1], nil
	}
	return nil, ctx.Err()
}

// stubAnalyzer scores each record from a fixed table.
type stubAnalyzer struct {
	scores map[string]float64
	seen   [][]string
}

func (a *stubAnalyzer) AnalyzeBatch(_ context.Context, recs []model.OpportunityRecord, _ model.OrganizationProfile, iteration int) ([]model.AnalyzedOpportunity, error) {
	ids := make([]string, 0, len(recs))
	out := make([]model.AnalyzedOpportunity, 0, len(recs))
	for _, r := range recs {
		ids = append(ids, r.ID)
		out = append(out, model.AnalyzedOpportunity{
			ID:          r.ID,
			Title:       r.Title,
			Source:      r.Source,
			Iteration:   iteration,
			Eligibility: model.EligibilityResult{AllPassed: true},
			Score:       model.ScoreBreakdown{Total: a.scores[r.ID]},
		})
	}
	a.seen = append(a.seen, ids)
	return out, nil
}

type stubReporter struct {
	runID   string
	results []model.AnalyzedOpportunity
	err     error
}

func (r *stubReporter) Report(_ context.Context, runID string, _ model.OrganizationProfile, results []model.AnalyzedOpportunity) error {
	r.runID = runID
	r.results = results
	return r.err
}

func validProfile() *model.OrganizationProfile {
	return &model.OrganizationProfile{
		Name:        "Acme Analytics",
		Description: "Applied machine learning for manufacturers across the Balkans.",
		Type:        model.OrgSME,
		Employees:   40,
		Country:     "Bulgaria",
		Domains: []model.Domain{
			{Name: "Artificial Intelligence", Level: model.LevelExpert},
			{Name: "Cybersecurity", Level: model.LevelAdvanced},
		},
		Keywords: model.Keywords{Include: []string{"machine learning"}},
	}
}

func recs(ids ...string) []model.OpportunityRecord {
	out := make([]model.OpportunityRecord, len(ids))
	for i, id := range ids {
		out[i] = model.OpportunityRecord{ID: id, Title: "Call " + id, Source: "ec-portal"}
	}
	return out
}

func TestController(t *testing.T) {
	Convey("Given a controller with stub collaborators", t, func() {
		ctx := context.Background()
		pl := &stubPlanner{}
		rt := &scriptedRetriever{}
		an := &stubAnalyzer{scores: map[string]float64{}}
		rp := &stubReporter{}
		var (
			mu     sync.Mutex
			stages []string
		)
		observe := workflow.WithObserver(func(s workflow.RunStatus) {
			mu.Lock()
			defer mu.Unlock()
			stages = append(stages, s.CurrentStage.String())
		})
		opts := []workflow.Option{observe, workflow.WithLogger(logger.Nop())}
		build := func(extra ...workflow.Option) *workflow.Controller {
			return workflow.New(pl, rt, an, rp, append(opts, extra...)...)
		}

		Convey("When the profile is missing required fields", func() {
			p := validProfile()
			p.Description = "too short"
			res, err := build().Run(ctx, "run-1", p)

			Convey("Then the run fails at intake without planning", func() {
				So(errors.Is(err, model.ErrInput), ShouldBeTrue)
				So(model.MissingFields(err), ShouldContain, "company.description (minimum 20 characters)")
				So(res.Status.Status, ShouldEqual, workflow.StatusFailed)
				So(res.Status.ErrorMessage, ShouldNotBeEmpty)
				So(res.Status.FinishedAt, ShouldNotBeNil)
				So(pl.calls(), ShouldEqual, 0)
			})
		})

		Convey("When the profile is nil", func() {
			_, err := build().Run(ctx, "run-1", nil)
			So(errors.Is(err, model.ErrInput), ShouldBeTrue)
		})

		Convey("When the first batch is plentiful and strong", func() {
			rt.batches = [][]model.OpportunityRecord{recs("a", "b", "c", "d", "e")}
			for i, id := range []string{"a", "b", "c", "d", "e"} {
				an.scores[id] = 8.5 + float64(i)*0.1
			}
			res, err := build(workflow.WithTargetQuantity(5)).Run(ctx, "run-1", validProfile())

			Convey("Then it finalizes after one iteration and reports", func() {
				So(err, ShouldBeNil)
				So(res.Status.Status, ShouldEqual, workflow.StatusCompleted)
				So(res.Status.IterationCount, ShouldEqual, 1)
				So(res.Decisions, ShouldHaveLength, 1)
				So(res.Decisions[0].Decision, ShouldEqual, model.DecisionFinalize)
				So(res.Decisions[0].Stats.High, ShouldEqual, 5)
				So(rp.runID, ShouldEqual, "run-1")
				So(rp.results, ShouldHaveLength, 5)
			})

			Convey("Then every transition is observed in order", func() {
				mu.Lock()
				defer mu.Unlock()
				So(stages, ShouldResemble, []string{"intake", "planning", "retrieval", "analysis", "reporting", "completed"})
			})
		})

		Convey("When nothing is ever found", func() {
			res, err := build().Run(ctx, "run-1", validProfile())

			Convey("Then it expands until the bound and reports empty", func() {
				So(err, ShouldBeNil)
				So(res.Status.Status, ShouldEqual, workflow.StatusCompleted)
				So(res.Status.IterationCount, ShouldEqual, 3)
				So(pl.calls(), ShouldEqual, 3)
				So(res.Decisions[0].Decision, ShouldEqual, model.DecisionExpand)
				So(res.Decisions[2].Decision, ShouldEqual, model.DecisionFinalize)
				So(pl.feedback[0], ShouldBeEmpty)
				So(pl.feedback[1], ShouldStartWith, "expand: ")
				So(strings.Count(pl.feedback[2], "expand: "), ShouldEqual, 2)
				So(res.Results, ShouldBeEmpty)
			})
		})

		Convey("When a later iteration returns known records", func() {
			rt.batches = [][]model.OpportunityRecord{recs("a", "b"), recs("a", "b", "c", "c")}
			an.scores = map[string]float64{"a": 8.5, "b": 8.6, "c": 8.1}
			res, err := build().Run(ctx, "run-1", validProfile())

			Convey("Then only new records are analyzed and results stay unique", func() {
				So(err, ShouldBeNil)
				So(an.seen, ShouldResemble, [][]string{{"a", "b"}, {"c"}})
				So(res.Results, ShouldHaveLength, 3)
				So(res.Decisions[0].Decision, ShouldEqual, model.DecisionExpand)
				So(res.Decisions[1].Stats.Total, ShouldEqual, 3)
				So(res.Results[0].Iteration, ShouldEqual, 1)
				So(res.Results[2].Iteration, ShouldEqual, 2)
			})
		})

		Convey("When retrieval fails under the degrade policy", func() {
			rt.err = errors.New("portal unreachable")
			res, err := build(workflow.WithMaxIterations(2)).Run(ctx, "run-1", validProfile())

			Convey("Then the run completes with retrieval degradations", func() {
				So(err, ShouldBeNil)
				So(res.Status.Status, ShouldEqual, workflow.StatusCompleted)
				So(res.Status.Degradations, ShouldHaveLength, 2)
				So(res.Status.Degradations[0].Kind, ShouldEqual, model.DegradedRetrieval)
				So(res.Status.Degradations[0].Reason, ShouldContainSubstring, "portal unreachable")
				So(res.Decisions[0].Decision, ShouldEqual, model.DecisionExpand)
			})
		})

		Convey("When retrieval fails under the fail policy", func() {
			rt.err = errors.New("portal unreachable")
			res, err := build(workflow.WithFailurePolicy(workflow.PolicyFail)).Run(ctx, "run-1", validProfile())
			So(errors.Is(err, model.ErrRetrieval), ShouldBeTrue)
			So(res.Status.Status, ShouldEqual, workflow.StatusFailed)
			So(res.Status.CurrentStage, ShouldEqual, workflow.StateFailed)
			So(rp.runID, ShouldBeEmpty)
		})

		Convey("When the planner fails", func() {
			pl.err = errors.New("model offline")
			_, err := build().Run(ctx, "run-1", validProfile())
			So(errors.Is(err, model.ErrPlanning), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "model offline")
		})

		Convey("When the reporter fails", func() {
			rp.err = errors.New("disk full")
			res, err := build(workflow.WithMaxIterations(1)).Run(ctx, "run-1", validProfile())
			So(errors.Is(err, model.ErrReporting), ShouldBeTrue)
			So(res.Status.Status, ShouldEqual, workflow.StatusFailed)
		})

		Convey("When poor results keep arriving at the bound", func() {
			rt.batches = [][]model.OpportunityRecord{recs("a", "b", "c", "d", "e")}
			an.scores = map[string]float64{"a": 1, "b": 2, "c": 2, "d": 3, "e": 1}
			res, err := build(workflow.WithMaxIterations(1)).Run(ctx, "run-1", validProfile())
			So(err, ShouldBeNil)
			So(res.Decisions[0].Decision, ShouldEqual, model.DecisionFinalize)
			So(pl.calls(), ShouldEqual, 1)
		})

		Convey("When the run context is already cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			res, err := build().Run(cctx, "run-1", validProfile())
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
			So(res.Status.Status, ShouldEqual, workflow.StatusFailed)
			So(workflow.Summary(res), ShouldContainSubstring, "run run-1 failed")
		})
	})
}

// droppingAnalyzer loses the result of each listed record the first time
// it is analyzed.
type droppingAnalyzer struct {
	stubAnalyzer
	drop map[string]bool
}

func (a *droppingAnalyzer) AnalyzeBatch(ctx context.Context, recs []model.OpportunityRecord, p model.OrganizationProfile, iteration int) ([]model.AnalyzedOpportunity, error) {
	all, err := a.stubAnalyzer.AnalyzeBatch(ctx, recs, p, iteration)
	out := all[:0]
	for _, r := range all {
		if a.drop[r.ID] {
			delete(a.drop, r.ID)
			continue
		}
		out = append(out, r)
	}
	return out, err
}

func TestControllerRetriesLostAnalyses(t *testing.T) {
	Convey("Given an analyzer that loses one result", t, func() {
		an := &droppingAnalyzer{stubAnalyzer: stubAnalyzer{scores: map[string]float64{"a": 5, "b": 5}}, drop: map[string]bool{"b": true}}
		rt := &scriptedRetriever{batches: [][]model.OpportunityRecord{recs("a", "b"), recs("a", "b")}}
		ctrl := workflow.New(&stubPlanner{}, rt, an, &stubReporter{}, workflow.WithLogger(logger.Nop()), workflow.WithMaxIterations(2))
		res, err := ctrl.Run(context.Background(), "run-1", validProfile())

		Convey("Then the lost record is analyzed again and kept once", func() {
			So(err, ShouldBeNil)
			So(an.seen, ShouldResemble, [][]string{{"a", "b"}, {"b"}})
			So(res.Results, ShouldHaveLength, 2)
			So(res.Results[0].ID, ShouldEqual, "a")
			So(res.Results[1].ID, ShouldEqual, "b")
			So(res.Results[1].Iteration, ShouldEqual, 2)
		})
	})
}

// stall blocks every collaborator call until its context ends.
type stall struct{}

func (stall) Plan(ctx context.Context, _ model.OrganizationProfile, _ string) (model.Plan, error) {
	<-ctx.Done()
	return model.Plan{}, ctx.Err()
}

func (stall) Retrieve(ctx context.Context, _ model.Plan) ([]model.OpportunityRecord, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (stall) Report(ctx context.Context, _ string, _ model.OrganizationProfile, _ []model.AnalyzedOpportunity) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestControllerTimeouts(t *testing.T) {
	Convey("Given collaborator timeouts of 50ms", t, func() {
		ctx := context.Background()
		const bound = 2 * time.Second
		an := &stubAnalyzer{scores: map[string]float64{}}
		timeouts := workflow.WithTimeouts(workflow.Timeouts{
			Planner:   50 * time.Millisecond,
			Retriever: 50 * time.Millisecond,
			Reporter:  50 * time.Millisecond,
		})
		opts := []workflow.Option{timeouts, workflow.WithLogger(logger.Nop()), workflow.WithMaxIterations(2)}

		Convey("When the planner stalls", func() {
			start := time.Now()
			res, err := workflow.New(stall{}, &scriptedRetriever{}, an, &stubReporter{}, opts...).Run(ctx, "run-1", validProfile())

			Convey("Then the run fails with the planner deadline", func() {
				So(time.Since(start), ShouldBeLessThan, bound)
				So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
				So(errors.Is(err, model.ErrPlanning), ShouldBeTrue)
				So(res.Status.Status, ShouldEqual, workflow.StatusFailed)
			})
		})

		Convey("When the retriever stalls under the fail policy", func() {
			start := time.Now()
			ctrl := workflow.New(&stubPlanner{}, stall{}, an, &stubReporter{},
				append(opts, workflow.WithFailurePolicy(workflow.PolicyFail))...)
			res, err := ctrl.Run(ctx, "run-1", validProfile())

			Convey("Then the run fails with the retriever deadline", func() {
				So(time.Since(start), ShouldBeLessThan, bound)
				So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
				So(errors.Is(err, model.ErrRetrieval), ShouldBeTrue)
				So(res.Status.Status, ShouldEqual, workflow.StatusFailed)
			})
		})

		Convey("When the retriever stalls under the degrade policy", func() {
			start := time.Now()
			rp := &stubReporter{}
			res, err := workflow.New(&stubPlanner{}, stall{}, an, rp, opts...).Run(ctx, "run-1", validProfile())

			Convey("Then every iteration degrades and the run still reports", func() {
				So(time.Since(start), ShouldBeLessThan, bound)
				So(err, ShouldBeNil)
				So(res.Status.Status, ShouldEqual, workflow.StatusCompleted)
				So(res.Status.Degradations, ShouldHaveLength, 2)
				So(res.Status.Degradations[0].Reason, ShouldContainSubstring, context.DeadlineExceeded.Error())
				So(rp.runID, ShouldEqual, "run-1")
			})
		})

		Convey("When the reporter stalls", func() {
			start := time.Now()
			res, err := workflow.New(&stubPlanner{}, &scriptedRetriever{}, an, stall{}, opts...).Run(ctx, "run-1", validProfile())

			Convey("Then the run fails with the reporter deadline", func() {
				So(time.Since(start), ShouldBeLessThan, bound)
				So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
				So(errors.Is(err, model.ErrReporting), ShouldBeTrue)
				So(res.Status.Status, ShouldEqual, workflow.StatusFailed)
				So(res.Status.IterationCount, ShouldEqual, 2)
			})
		})
	})
}

const catalog = `
source: ec-portal
records:
  - id: HORIZON-CL4-2026-AI-01
    title: Trustworthy Artificial Intelligence for manufacturing
    programme: {name: Horizon Europe, deadline: "2026-09-18", action_type: HORIZON-RIA}
    content: {description: "Pilots of machine learning and cybersecurity in factories across Europe, with open testing facilities."}
    required_domains: [Artificial Intelligence, Cybersecurity]
    keywords: [machine learning, manufacturing, pilots]
    eligible_countries: [EU Member States]
    budget_per_project: {min: 2000000, max: 4000000}
  - id: DIGITAL-2026-CYBER-02
    title: Cybersecurity skills academies
    programme: {name: Digital Europe, deadline: "2026-05-01"}
    required_domains: [Cybersecurity]
  - id: LIFE-2026-NAT-03
    title: Wetland restoration
    required_domains: [Nature conservation]
`

func TestControllerEndToEnd(t *testing.T) {
	Convey("Given the real planner, catalog, analyzer pool and reporter", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		c, err := retrieverFromYAML(catalog)
		So(err, ShouldBeNil)

		engine := scoring.NewEngine(scoring.WithClock(func() time.Time {
			return time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
		}))
		an := analysis.New(engine,
			analysis.WithReasoning(reasoning.NewRuleBased()),
			analysis.WithLogger(logger.Nop()),
		)
		pool := worker.NewPool(2, queue.NewInMemoryQueue(queue.WithCapacity(4)), an, worker.WithLogger(logger.Nop()))
		pool.Start(ctx)
		defer func() { _ = pool.Shutdown(context.Background()) }()

		rep := reporter.New(reporter.WithLogger(logger.Nop()))
		ctrl := workflow.New(
			planner.New(planner.WithLogger(logger.Nop())),
			c, pool, rep,
			workflow.WithLogger(logger.Nop()),
		)

		res, err := ctrl.Run(ctx, "e2e", validProfile())

		So(err, ShouldBeNil)
		So(res.Status.Status, ShouldEqual, workflow.StatusCompleted)
		So(res.Status.IterationCount, ShouldBeBetweenOrEqual, 1, 3)
		So(len(res.Results), ShouldBeBetweenOrEqual, 2, 3)

		ids := map[string]model.AnalyzedOpportunity{}
		for _, r := range res.Results {
			ids[r.ID] = r
		}
		top, ok := ids["HORIZON-CL4-2026-AI-01"]
		So(ok, ShouldBeTrue)
		So(top.Score.Mode, ShouldEqual, model.ModeAssisted)
		So(top.Insights, ShouldNotBeNil)

		report, err := rep.Get("e2e")
		So(err, ShouldBeNil)
		So(report.Entries[0].ID, ShouldEqual, "HORIZON-CL4-2026-AI-01")
		So(report.Text, ShouldContainSubstring, fmt.Sprintf("%.1f", top.Score.Total))
	})
}

func retrieverFromYAML(doc string) (*retriever.FileRetriever, error) {
	c, err := retriever.ParseCatalog([]byte(doc))
	if err != nil {
		return nil, err
	}
	return retriever.NewFromCatalog(c, retriever.WithFileLogger(logger.Nop())), nil
}
