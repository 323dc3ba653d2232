// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/callscout/internal/adapters/reporter"
	"github.com/okian/callscout/internal/adapters/repository"
	"github.com/okian/callscout/internal/domain/model"
	"github.com/okian/callscout/internal/workflow"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// StartRun validates the profile and starts a background run.
	StartRun(ctx context.Context, p model.OrganizationProfile) (string, error)
	CancelRun(ctx context.Context, runID string) error

	// Read operations expose run state and outcomes.
	Run(ctx context.Context, runID string) (repository.Run, error)
	Runs(ctx context.Context) ([]workflow.RunStatus, error)
	Results(ctx context.Context, runID string) ([]model.AnalyzedOpportunity, error)
	Report(ctx context.Context, runID string) (reporter.Report, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	runsHandler   *RunsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(statsProvider),
		runsHandler:   NewRunsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("POST /runs", MetricsMiddleware(s.runsHandler.HandleCreate, "runs"))
	mux.HandleFunc("GET /runs", MetricsMiddleware(s.runsHandler.HandleList, "runs"))
	mux.HandleFunc("GET /runs/{id}", MetricsMiddleware(s.runsHandler.HandleGet, "run"))
	mux.HandleFunc("DELETE /runs/{id}", MetricsMiddleware(s.runsHandler.HandleCancel, "run"))
	mux.HandleFunc("GET /runs/{id}/results", MetricsMiddleware(s.runsHandler.HandleResults, "results"))
	mux.HandleFunc("GET /runs/{id}/report", MetricsMiddleware(s.runsHandler.HandleReport, "report"))
}

type errorResponse struct {
	Code          string   `json:"code"`
	Message       string   `json:"message"`
	MissingFields []string `json:"missing_fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg, MissingFields: model.MissingFields(err)})
}

func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound) || errors.Is(err, reporter.ErrNotFound)
}
