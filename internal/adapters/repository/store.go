// Package repository keeps workflow runs, their status and results.
package repository

import (
	"context"

	"github.com/okian/callscout/internal/domain/model"
	"github.com/okian/callscout/internal/workflow"
)

// Run is one tracked workflow run.
type Run struct {
	Status       workflow.RunStatus          `json:"status"`
	Organization string                      `json:"organization"`
	Results      []model.AnalyzedOpportunity `json:"results,omitempty"`
	Decisions    []model.ReflectionDecision  `json:"decisions,omitempty"`
}

// Store provides read/write access to runs.
type Store interface {
	// Create registers a new run. Returns ErrExists for a duplicate ID.
	Create(ctx context.Context, r Run) error

	// UpdateStatus replaces the status of a known run.
	UpdateStatus(ctx context.Context, s workflow.RunStatus) error

	// Finish stores the final result of a run.
	Finish(ctx context.Context, res workflow.Result) error

	// Get returns a run. Returns ErrNotFound if the run is unknown.
	Get(ctx context.Context, runID string) (Run, error)

	// List returns runs newest first.
	List(ctx context.Context) []Run

	// Count returns the number of runs per status.
	Count(ctx context.Context) map[workflow.Status]int
}
