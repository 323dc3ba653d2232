package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/okian/callscout/internal/domain/model"
	"github.com/okian/callscout/internal/workflow"
)

const maxProfileBytes = 1 << 20

// RunsHandler serves the run lifecycle endpoints.
type RunsHandler struct {
	deps Dependencies
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(deps Dependencies) *RunsHandler {
	return &RunsHandler{deps: deps}
}

type createResponse struct {
	RunID string `json:"run_id"`
}

// HandleCreate handles POST /runs. The body is an organization profile.
func (h *RunsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var p model.OrganizationProfile
	dec := json.NewDecoder(io.LimitReader(r.Body, maxProfileBytes))
	if err := dec.Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	id, err := h.deps.StartRun(r.Context(), p)
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, createResponse{RunID: id})
	case errors.Is(err, model.ErrInput):
		writeError(w, http.StatusBadRequest, "invalid_profile", err)
	default:
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	}
}

// HandleList handles GET /runs.
func (h *RunsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	runs, err := h.deps.Runs(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// HandleGet handles GET /runs/{id}.
func (h *RunsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	run, err := h.deps.Run(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run.Status)
}

// HandleCancel handles DELETE /runs/{id}.
func (h *RunsHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := h.deps.Run(r.Context(), id); err != nil {
		h.fail(w, err)
		return
	}
	if err := h.deps.CancelRun(r.Context(), id); err != nil {
		writeError(w, http.StatusConflict, "not_running", err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// HandleResults handles GET /runs/{id}/results.
func (h *RunsHandler) HandleResults(w http.ResponseWriter, r *http.Request) {
	results, err := h.deps.Results(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	if results == nil {
		results = []model.AnalyzedOpportunity{}
	}
	writeJSON(w, http.StatusOK, results)
}

// HandleReport handles GET /runs/{id}/report. Plain text by default,
// JSON with ?format=json.
func (h *RunsHandler) HandleReport(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	run, err := h.deps.Run(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	if run.Status.Status == workflow.StatusRunning {
		writeError(w, http.StatusConflict, "report_not_ready", ErrReportNotReady)
		return
	}
	rep, err := h.deps.Report(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	if r.URL.Query().Get("format") == "json" {
		writeJSON(w, http.StatusOK, rep)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, rep.Text)
}

func (h *RunsHandler) fail(w http.ResponseWriter, err error) {
	if isNotFound(err) {
		writeError(w, http.StatusNotFound, "not_found", err)
		return
	}
	writeError(w, http.StatusInternalServerError, "internal_error", err)
}
