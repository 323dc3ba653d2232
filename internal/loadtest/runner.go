package loadtest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/okian/callscout/internal/domain/model"
	"github.com/okian/callscout/internal/workflow"
	"github.com/okian/callscout/pkg/logger"
	"golang.org/x/sync/errgroup"
)

const (
	directoryPermission = 0o750
	filePermission      = 0o600
	percent             = 100
)

// ErrRunsFailed is returned when at least one run did not complete cleanly.
var ErrRunsFailed = errors.New("load test found failing runs")

type counters struct {
	accepted, rejected, completed, failed, timedOut, results, inconsistent atomic.Int64
}

// Run executes the complete load test.
func Run(ctx context.Context, cfg Config) (*Stats, error) { //nolint:gocritic // hugeParam: copied once
	cfg.Defaults()
	log := logger.Named("loadtest")
	stats := &Stats{StartTime: time.Now()}

	log.Info(ctx, "starting callscout load test",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("runs", cfg.NumRuns),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout))

	client := NewClient(cfg.BaseURL, cfg.Timeout)
	if err := client.Health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	profiles := GenerateProfiles(cfg.NumRuns)
	stats.ProfilesGenerated = len(profiles)
	if cfg.OutputFile != "" {
		if err := saveProfiles(cfg.OutputFile, profiles); err != nil {
			log.Warn(ctx, "failed to save profiles to file", logger.Error(err))
		}
	}

	var c counters
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for i := range profiles {
		g.Go(func() error {
			exercise(gctx, log, client, &cfg, &profiles[i], &c)
			return gctx.Err()
		})
	}
	err := g.Wait()

	stats.RunsAccepted = int(c.accepted.Load())
	stats.RunsRejected = int(c.rejected.Load())
	stats.RunsCompleted = int(c.completed.Load())
	stats.RunsFailed = int(c.failed.Load())
	stats.RunsTimedOut = int(c.timedOut.Load())
	stats.ResultsRetrieved = int(c.results.Load())
	stats.Inconsistent = int(c.inconsistent.Load())
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats)

	if err != nil {
		return stats, fmt.Errorf("load test interrupted: %w", err)
	}
	if stats.RunsRejected+stats.RunsFailed+stats.RunsTimedOut+stats.Inconsistent > 0 {
		return stats, ErrRunsFailed
	}
	log.Info(ctx, "load test completed successfully")
	return stats, nil
}

// exercise drives one profile through create, wait and verify.
func exercise(ctx context.Context, log logger.Logger, client *Client, cfg *Config, p *model.OrganizationProfile, c *counters) {
	id, err := client.CreateRun(ctx, *p)
	if err != nil {
		c.rejected.Add(1)
		log.Warn(ctx, "run rejected", logger.String("organization", p.Name), logger.Error(err))
		return
	}
	c.accepted.Add(1)

	wctx, cancel := context.WithTimeout(ctx, cfg.WaitTimeout)
	defer cancel()
	st, err := client.Wait(wctx, id, cfg.PollInterval)
	if err != nil {
		c.timedOut.Add(1)
		log.Warn(ctx, "run did not finish", logger.String("run_id", id), logger.Error(err))
		return
	}
	if st.Status != workflow.StatusCompleted {
		c.failed.Add(1)
		log.Warn(ctx, "run failed", logger.String("run_id", id), logger.String("error", st.ErrorMessage))
		return
	}
	c.completed.Add(1)

	results, err := client.Results(ctx, id)
	if err != nil {
		c.failed.Add(1)
		log.Warn(ctx, "results unavailable", logger.String("run_id", id), logger.Error(err))
		return
	}
	c.results.Add(int64(len(results)))
	if err := VerifyResults(results); err != nil {
		c.inconsistent.Add(1)
		log.Error(ctx, "ranking verification failed", logger.String("run_id", id), logger.Error(err))
		return
	}
	if cfg.Verbose {
		log.Info(ctx, "run verified",
			logger.String("run_id", id),
			logger.Int("iterations", st.IterationCount),
			logger.Int("results", len(results)))
	}
}

// saveProfiles writes the generated profiles as a JSON array.
func saveProfiles(filename string, profiles []model.OrganizationProfile) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	raw, err := json.MarshalIndent(profiles, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal profiles: %w", err)
	}
	if err := os.WriteFile(filename, raw, filePermission); err != nil {
		return fmt.Errorf("failed to write profiles: %w", err)
	}
	return nil
}

// displayFinalStats logs the final test statistics.
func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var successRate, runsPerSecond float64
	if stats.RunsAccepted > 0 {
		successRate = float64(stats.RunsCompleted) / float64(stats.RunsAccepted) * percent
	}
	if stats.Duration > 0 {
		runsPerSecond = float64(stats.RunsCompleted) / stats.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.Int("profilesGenerated", stats.ProfilesGenerated),
		logger.Int("runsAccepted", stats.RunsAccepted),
		logger.Int("runsRejected", stats.RunsRejected),
		logger.Int("runsCompleted", stats.RunsCompleted),
		logger.Int("runsFailed", stats.RunsFailed),
		logger.Int("runsTimedOut", stats.RunsTimedOut),
		logger.Int("resultsRetrieved", stats.ResultsRetrieved),
		logger.Int("inconsistent", stats.Inconsistent),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("runsPerSecond", runsPerSecond))
}
