// Package service wires the workflow, its collaborators and the run store
// into the operations served by the HTTP API and the CLI.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/okian/callscout/internal/adapters/mq/queue"
	"github.com/okian/callscout/internal/adapters/mq/worker"
	"github.com/okian/callscout/internal/adapters/planner"
	"github.com/okian/callscout/internal/adapters/reasoning"
	"github.com/okian/callscout/internal/adapters/reporter"
	"github.com/okian/callscout/internal/adapters/repository"
	"github.com/okian/callscout/internal/adapters/retriever"
	"github.com/okian/callscout/internal/config"
	"github.com/okian/callscout/internal/domain/analysis"
	"github.com/okian/callscout/internal/domain/intake"
	"github.com/okian/callscout/internal/domain/model"
	"github.com/okian/callscout/internal/domain/scoring"
	"github.com/okian/callscout/internal/domain/types"
	"github.com/okian/callscout/internal/workflow"
	"github.com/okian/callscout/pkg/logger"
	"github.com/okian/callscout/pkg/metrics"
)

// Sentinel errors of the service.
var (
	ErrNotStarted = errors.New("service not started")
	ErrNotRunning = errors.New("run is not running")
)

// Service runs workflows in the background and answers queries about them.
type Service struct {
	mu sync.RWMutex

	cfg *config.Config

	// Collaborators; nil ones are built from cfg on Start.
	planner   workflow.Planner
	retriever workflow.Retriever
	reasoning analysis.ReasoningService
	runs      repository.Store

	queue      *queue.InMemoryQueue
	pool       *worker.Pool
	reporter   *reporter.TableReporter
	controller *workflow.Controller

	started bool
	runCtx  context.Context //nolint:containedctx // parent of every background run
	stop    context.CancelFunc
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithConfig sets the configuration. Defaults come from config.New.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg != nil {
			s.cfg = cfg
		}
	}
}

// WithPlanner overrides the planner built from configuration.
func WithPlanner(p workflow.Planner) Option {
	return func(s *Service) { s.planner = p }
}

// WithRetriever overrides the retriever built from configuration.
func WithRetriever(r workflow.Retriever) Option {
	return func(s *Service) { s.retriever = r }
}

// WithReasoning overrides the reasoning service built from configuration.
func WithReasoning(rs analysis.ReasoningService) Option {
	return func(s *Service) { s.reasoning = rs }
}

// WithRunStore overrides the in-memory run store.
func WithRunStore(st repository.Store) Option {
	return func(s *Service) { s.runs = st }
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service. Nothing runs until Start.
func New(opts ...Option) *Service {
	s := &Service{
		cfg:     config.New(context.Background()),
		cancels: make(map[string]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the collaborators and starts the analysis worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.logger.Info(ctx, "starting discovery service...")

	if err := s.buildCollaborators(ctx); err != nil {
		return err
	}
	s.reporter = reporter.New()
	if s.runs == nil {
		s.runs = repository.NewMemoryStore(
			repository.WithMaxRuns(s.cfg.MaxRuns),
			repository.WithOnEvict(s.reporter.Forget),
		)
	}

	engine := scoring.NewEngine(scoring.WithThresholds(scoring.Thresholds{
		Apply:    s.cfg.Scoring.ApplyThreshold,
		Consider: s.cfg.Scoring.ConsiderThreshold,
		Monitor:  s.cfg.Scoring.MonitorThreshold,
	}))
	aopts := []analysis.Option{analysis.WithReasoningTimeout(s.cfg.Timeouts.Reasoning)}
	if s.reasoning != nil {
		aopts = append(aopts, analysis.WithReasoning(s.reasoning))
	}
	analyzer := analysis.New(engine, aopts...)

	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.cfg.QueueSize))
	s.pool = worker.NewPool(s.cfg.WorkerCount, s.queue, analyzer)
	s.runCtx, s.stop = context.WithCancel(context.WithoutCancel(ctx))
	s.pool.Start(s.runCtx)

	s.controller = workflow.New(s.planner, s.retriever, s.pool, s.reporter,
		workflow.WithMaxIterations(s.cfg.Workflow.MaxIterations),
		workflow.WithTargetQuantity(s.cfg.Workflow.TargetQuantity),
		workflow.WithTargetSources(s.cfg.Workflow.TargetSources...),
		workflow.WithFailurePolicy(workflow.FailurePolicy(s.cfg.Workflow.RetrievalFailurePolicy)),
		workflow.WithTimeouts(workflow.Timeouts{
			Planner:   s.cfg.Timeouts.Planner,
			Retriever: s.cfg.Timeouts.Retriever,
			Reporter:  s.cfg.Timeouts.Reporter,
		}),
		workflow.WithObserver(s.observe),
	)

	metrics.UpdateWorkerCount(s.pool.Size())
	metrics.UpdateQueueCapacity(s.cfg.QueueSize)

	s.started = true
	s.logger.Info(ctx, "discovery service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.cfg.QueueSize),
		logger.String("planner", s.cfg.Planner.Kind),
		logger.String("retriever", s.cfg.Retriever.Kind),
		logger.String("reasoning", s.cfg.Reasoning.Kind),
	)
	return nil
}

func (s *Service) buildCollaborators(ctx context.Context) error {
	if s.planner == nil {
		fallback := planner.New(
			planner.WithProgrammes(s.cfg.Planner.Programmes...),
			planner.WithSources(s.cfg.Workflow.TargetSources...),
		)
		s.planner = fallback
		if s.cfg.Planner.Kind == "ollama" {
			s.planner = planner.NewAssisted(reasoning.NewOllama(s.cfg.Planner.BaseURL, s.cfg.Planner.Model), fallback)
		}
	}

	if s.retriever == nil {
		switch s.cfg.Retriever.Kind {
		case "http":
			s.retriever = retriever.NewHTTP(s.cfg.Retriever.BaseURL,
				retriever.WithMaxRetries(s.cfg.Retriever.MaxRetries),
			)
		default:
			if s.cfg.Retriever.CatalogPath == "" {
				s.logger.Warn(ctx, "no catalog configured, runs will find nothing")
				s.retriever = retriever.NewFromCatalog(retriever.Catalog{})
				break
			}
			f, err := retriever.NewFile(s.cfg.Retriever.CatalogPath)
			if err != nil {
				return fmt.Errorf("build retriever: %w", err)
			}
			s.retriever = f
		}
	}

	if s.reasoning == nil {
		switch s.cfg.Reasoning.Kind {
		case "ollama":
			s.reasoning = reasoning.NewOllama(s.cfg.Reasoning.BaseURL, s.cfg.Reasoning.Model)
		case "rules":
			s.reasoning = reasoning.NewRuleBased()
		}
	}
	return nil
}

// Stop cancels running workflows, waits for them and drains the pool.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	s.stop()
	s.mu.Unlock()

	s.logger.Info(ctx, "stopping discovery service...")
	s.wg.Wait()
	err := s.pool.Shutdown(ctx)
	s.logger.Info(ctx, "discovery service stopped")
	return err
}

// StartRun validates the profile and starts a run in the background. An
// invalid profile fails synchronously with a model.ErrInput error.
func (s *Service) StartRun(ctx context.Context, p model.OrganizationProfile) (string, error) { //nolint:gocritic // hugeParam: copied into the run
	if _, err := intake.Validate(&p); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return "", ErrNotStarted
	}

	id := uuid.NewString()
	err := s.runs.Create(ctx, repository.Run{
		Organization: p.Name,
		Status: workflow.RunStatus{
			RunID:        id,
			Status:       workflow.StatusRunning,
			CurrentStage: workflow.StateIntake,
			Degradations: []model.Degradation{},
		},
	})
	if err != nil {
		return "", err
	}

	runCtx, cancel := context.WithCancel(s.runCtx)
	s.cancels[id] = cancel
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.forget(id)
		res, err := s.controller.Run(runCtx, id, &p)
		if ferr := s.runs.Finish(context.Background(), res); ferr != nil {
			s.logger.Error(runCtx, "failed to store run result", logger.String("run_id", id), logger.Error(ferr))
		}
		if err != nil {
			s.logger.Warn(runCtx, "run failed", logger.String("run_id", id), logger.Error(err))
		}
	}()

	s.logger.Info(ctx, "run accepted", logger.String("run_id", id), logger.String("organization", p.Name))
	return id, nil
}

// Execute runs a workflow synchronously and returns its result and report.
func (s *Service) Execute(ctx context.Context, p model.OrganizationProfile) (workflow.Result, reporter.Report, error) { //nolint:gocritic // hugeParam: copied into the run
	s.mu.RLock()
	started, ctrl, rep := s.started, s.controller, s.reporter
	s.mu.RUnlock()
	if !started {
		return workflow.Result{}, reporter.Report{}, ErrNotStarted
	}

	id := uuid.NewString()
	if err := s.runs.Create(ctx, repository.Run{Organization: p.Name, Status: workflow.RunStatus{RunID: id, Status: workflow.StatusRunning}}); err != nil {
		return workflow.Result{}, reporter.Report{}, err
	}
	res, err := ctrl.Run(ctx, id, &p)
	if ferr := s.runs.Finish(context.WithoutCancel(ctx), res); ferr != nil {
		s.logger.Error(ctx, "failed to store run result", logger.String("run_id", id), logger.Error(ferr))
	}
	if err != nil {
		return res, reporter.Report{}, err
	}
	report, err := rep.Get(id)
	return res, report, err
}

// CancelRun cancels a running run. It ends as failed with the context error.
func (s *Service) CancelRun(_ context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cancel, ok := s.cancels[runID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotRunning, runID)
	}
	cancel()
	return nil
}

func (s *Service) forget(runID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cancel, ok := s.cancels[runID]; ok {
		cancel()
		delete(s.cancels, runID)
	}
}

// observe mirrors progress into the store. Terminal snapshots are skipped:
// Finish stores them together with the results.
func (s *Service) observe(st workflow.RunStatus) {
	if st.Status != workflow.StatusRunning {
		return
	}
	if err := s.runs.UpdateStatus(context.Background(), st); err != nil {
		s.logger.Debug(context.Background(), "status update for unknown run", logger.String("run_id", st.RunID))
	}
	if s.queue != nil {
		metrics.UpdateQueueSize(s.queue.Len(context.Background()))
	}
}

// Run returns the tracked state of a run.
func (s *Service) Run(ctx context.Context, runID string) (repository.Run, error) {
	if err := s.ready(); err != nil {
		return repository.Run{}, err
	}
	return s.runs.Get(ctx, runID)
}

// Runs lists every tracked run, newest first.
func (s *Service) Runs(ctx context.Context) ([]workflow.RunStatus, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	runs := s.runs.List(ctx)
	out := make([]workflow.RunStatus, len(runs))
	for i, r := range runs {
		out[i] = r.Status
	}
	return out, nil
}

// Results returns a run's accumulated results ranked best first.
func (s *Service) Results(ctx context.Context, runID string) ([]model.AnalyzedOpportunity, error) {
	r, err := s.Run(ctx, runID)
	if err != nil {
		return nil, err
	}
	return types.Sort(r.Results), nil
}

// Report returns the rendered report of a completed run.
func (s *Service) Report(ctx context.Context, runID string) (reporter.Report, error) {
	if _, err := s.Run(ctx, runID); err != nil {
		return reporter.Report{}, err
	}
	return s.reporter.Get(runID)
}

func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.runs == nil || s.reporter == nil {
		return ErrNotStarted
	}
	return nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]any{
		"started":     s.started,
		"workerCount": s.cfg.WorkerCount,
		"queueSize":   s.cfg.QueueSize,
	}
	if s.started {
		queueLen := s.queue.Len(ctx)
		stats["queueLength"] = queueLen
		stats["activeRuns"] = len(s.cancels)
		counts := s.runs.Count(ctx)
		stats["runs"] = map[string]int{
			string(workflow.StatusRunning):   counts[workflow.StatusRunning],
			string(workflow.StatusCompleted): counts[workflow.StatusCompleted],
			string(workflow.StatusFailed):    counts[workflow.StatusFailed],
		}
		metrics.UpdateQueueSize(queueLen)
	}
	return stats
}
