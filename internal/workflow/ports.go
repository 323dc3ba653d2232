package workflow

import (
	"context"

	"github.com/okian/callscout/internal/domain/analysis"
	"github.com/okian/callscout/internal/domain/model"
)

// Planner turns a profile and accumulated feedback into a retrieval plan.
type Planner interface {
	Plan(ctx context.Context, p model.OrganizationProfile, feedback string) (model.Plan, error)
}

// Retriever fetches records for a plan. Zero records is not an error.
type Retriever interface {
	Retrieve(ctx context.Context, plan model.Plan) ([]model.OpportunityRecord, error)
}

// ReasoningService produces qualitative insights for one record.
type ReasoningService = analysis.ReasoningService

// Reporter publishes the final result set of a run.
type Reporter interface {
	Report(ctx context.Context, runID string, p model.OrganizationProfile, results []model.AnalyzedOpportunity) error
}

// BatchAnalyzer analyzes a batch of records and returns once every record
// has a result, in input order.
type BatchAnalyzer interface {
	AnalyzeBatch(ctx context.Context, records []model.OpportunityRecord, p model.OrganizationProfile, iteration int) ([]model.AnalyzedOpportunity, error)
}

// Observer receives a status snapshot after every transition.
type Observer func(RunStatus)
