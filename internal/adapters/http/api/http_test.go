package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/callscout/internal/adapters/http/api"
	"github.com/okian/callscout/internal/adapters/reporter"
	"github.com/okian/callscout/internal/adapters/repository"
	"github.com/okian/callscout/internal/domain/model"
	"github.com/okian/callscout/internal/workflow"
	. "github.com/smartystreets/goconvey/convey"
)

type mockDeps struct {
	runs      map[string]repository.Run
	reports   map[string]reporter.Report
	startErr  error
	cancelErr error
	started   []model.OrganizationProfile
	cancelled []string
}

func newMockDeps() *mockDeps {
	return &mockDeps{runs: map[string]repository.Run{}, reports: map[string]reporter.Report{}}
}

func (m *mockDeps) StartRun(_ context.Context, p model.OrganizationProfile) (string, error) { //nolint:gocritic // test double
	if m.startErr != nil {
		return "", m.startErr
	}
	m.started = append(m.started, p)
	id := fmt.Sprintf("run-%d", len(m.started))
	m.runs[id] = repository.Run{Status: workflow.RunStatus{RunID: id, Status: workflow.StatusRunning}}
	return id, nil
}

func (m *mockDeps) CancelRun(_ context.Context, runID string) error {
	if m.cancelErr != nil {
		return m.cancelErr
	}
	m.cancelled = append(m.cancelled, runID)
	return nil
}

func (m *mockDeps) Run(_ context.Context, runID string) (repository.Run, error) {
	r, ok := m.runs[runID]
	if !ok {
		return repository.Run{}, fmt.Errorf("%w: %s", repository.ErrNotFound, runID)
	}
	return r, nil
}

func (m *mockDeps) Runs(_ context.Context) ([]workflow.RunStatus, error) {
	out := make([]workflow.RunStatus, 0, len(m.runs))
	for _, r := range m.runs {
		out = append(out, r.Status)
	}
	return out, nil
}

func (m *mockDeps) Results(ctx context.Context, runID string) ([]model.AnalyzedOpportunity, error) {
	r, err := m.Run(ctx, runID)
	if err != nil {
		return nil, err
	}
	return r.Results, nil
}

func (m *mockDeps) Report(_ context.Context, runID string) (reporter.Report, error) {
	rep, ok := m.reports[runID]
	if !ok {
		return reporter.Report{}, reporter.ErrNotFound
	}
	return rep, nil
}

type mockStats struct{}

func (mockStats) GetStats() map[string]any {
	return map[string]any{"started": true, "workerCount": 2}
}

func newMux(deps api.Dependencies) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, mockStats{}).Register(mux)
	return mux
}

func do(mux *http.ServeMux, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

const validProfile = `{
  "name": "Acme Robotics",
  "type": "SME",
  "employees": 40,
  "country": "BG",
  "domains": [{"name": "robotics", "level": "expert"}]
}`

func TestCreateRun(t *testing.T) {
	Convey("Given an API server", t, func() {
		deps := newMockDeps()
		mux := newMux(deps)

		Convey("When posting a valid profile", func() {
			w := do(mux, http.MethodPost, "/runs", validProfile)

			Convey("Then the run should be accepted", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				var body map[string]string
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body["run_id"], ShouldEqual, "run-1")
				So(deps.started, ShouldHaveLength, 1)
				So(deps.started[0].Name, ShouldEqual, "Acme Robotics")
			})
		})

		Convey("When the body is not JSON", func() {
			w := do(mux, http.MethodPost, "/runs", "{not json")

			Convey("Then it should be a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(w.Body.String(), ShouldContainSubstring, "bad_request")
				So(deps.started, ShouldBeEmpty)
			})
		})

		Convey("When the profile is incomplete", func() {
			deps.startErr = model.NewInputError("intake", []string{"country", "domains"})
			w := do(mux, http.MethodPost, "/runs", `{"name":"x"}`)

			Convey("Then the missing fields should be listed", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				var body struct {
					Code          string   `json:"code"`
					MissingFields []string `json:"missing_fields"`
				}
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body.Code, ShouldEqual, "invalid_profile")
				So(body.MissingFields, ShouldResemble, []string{"country", "domains"})
			})
		})

		Convey("When the service is unavailable", func() {
			deps.startErr = errors.New("service not started")
			w := do(mux, http.MethodPost, "/runs", validProfile)

			Convey("Then it should respond 503", func() {
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			})
		})
	})
}

func TestRunQueries(t *testing.T) {
	Convey("Given a server with one finished and one running run", t, func() {
		deps := newMockDeps()
		done := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		deps.runs["done"] = repository.Run{
			Status: workflow.RunStatus{RunID: "done", Status: workflow.StatusCompleted, CurrentStage: workflow.StateCompleted, FinishedAt: &done},
			Results: []model.AnalyzedOpportunity{
				{ID: "c1", Title: "Robotics call", Score: model.ScoreBreakdown{Total: 8.4, Recommendation: model.RecommendApply}},
			},
		}
		deps.runs["busy"] = repository.Run{Status: workflow.RunStatus{RunID: "busy", Status: workflow.StatusRunning, CurrentStage: workflow.StateRetrieval}}
		deps.reports["done"] = reporter.Report{RunID: "done", Organization: "Acme", Text: "ranked report\n"}
		mux := newMux(deps)

		Convey("When listing runs", func() {
			w := do(mux, http.MethodGet, "/runs", "")

			Convey("Then both runs should be returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var body []workflow.RunStatus
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body, ShouldHaveLength, 2)
			})
		})

		Convey("When fetching a run status", func() {
			w := do(mux, http.MethodGet, "/runs/busy", "")

			Convey("Then the stage should be rendered by name", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"current_stage":"retrieval"`)
				So(w.Body.String(), ShouldContainSubstring, `"status":"running"`)
			})
		})

		Convey("When fetching an unknown run", func() {
			w := do(mux, http.MethodGet, "/runs/nope", "")

			Convey("Then it should be not found", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(w.Body.String(), ShouldContainSubstring, "not_found")
			})
		})

		Convey("When fetching results", func() {
			w := do(mux, http.MethodGet, "/runs/done/results", "")

			Convey("Then the analyzed opportunities should be returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var body []model.AnalyzedOpportunity
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body, ShouldHaveLength, 1)
				So(body[0].Score.Recommendation, ShouldEqual, model.RecommendApply)
			})
		})

		Convey("When fetching results of a run without any", func() {
			w := do(mux, http.MethodGet, "/runs/busy/results", "")

			Convey("Then an empty array should be returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(strings.TrimSpace(w.Body.String()), ShouldEqual, "[]")
			})
		})

		Convey("When fetching the text report", func() {
			w := do(mux, http.MethodGet, "/runs/done/report", "")

			Convey("Then the rendered text should be returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldStartWith, "text/plain")
				So(w.Body.String(), ShouldEqual, "ranked report\n")
			})
		})

		Convey("When fetching the JSON report", func() {
			w := do(mux, http.MethodGet, "/runs/done/report?format=json", "")

			Convey("Then the structured report should be returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var body reporter.Report
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body.Organization, ShouldEqual, "Acme")
			})
		})

		Convey("When fetching the report of a running run", func() {
			w := do(mux, http.MethodGet, "/runs/busy/report", "")

			Convey("Then it should conflict", func() {
				So(w.Code, ShouldEqual, http.StatusConflict)
				So(w.Body.String(), ShouldContainSubstring, "report_not_ready")
			})
		})

		Convey("When a finished run has no stored report", func() {
			delete(deps.reports, "done")
			w := do(mux, http.MethodGet, "/runs/done/report", "")

			Convey("Then it should be not found", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestCancelRun(t *testing.T) {
	Convey("Given a server with a running run", t, func() {
		deps := newMockDeps()
		deps.runs["busy"] = repository.Run{Status: workflow.RunStatus{RunID: "busy", Status: workflow.StatusRunning}}
		mux := newMux(deps)

		Convey("When cancelling it", func() {
			w := do(mux, http.MethodDelete, "/runs/busy", "")

			Convey("Then cancellation should be requested", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(deps.cancelled, ShouldResemble, []string{"busy"})
			})
		})

		Convey("When cancelling an unknown run", func() {
			w := do(mux, http.MethodDelete, "/runs/nope", "")

			Convey("Then it should be not found", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(deps.cancelled, ShouldBeEmpty)
			})
		})

		Convey("When the run already finished", func() {
			deps.cancelErr = errors.New("run is not running")
			w := do(mux, http.MethodDelete, "/runs/busy", "")

			Convey("Then it should conflict", func() {
				So(w.Code, ShouldEqual, http.StatusConflict)
			})
		})
	})
}

func TestHealthAndStats(t *testing.T) {
	Convey("Given an API server", t, func() {
		mux := newMux(newMockDeps())

		Convey("When requesting /healthz", func() {
			do(mux, http.MethodGet, "/runs", "")
			w := do(mux, http.MethodGet, "/healthz", "")

			Convey("Then Prometheus metrics should be exposed", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, "http_requests_total")
			})
		})

		Convey("When requesting /stats", func() {
			w := do(mux, http.MethodGet, "/stats", "")

			Convey("Then the provider's stats should be encoded", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var body map[string]any
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body["started"], ShouldEqual, true)
				So(body["workerCount"], ShouldEqual, float64(2))
			})
		})

		Convey("When using the wrong method", func() {
			w := do(mux, http.MethodPost, "/stats", "")

			Convey("Then the mux should reject it", func() {
				So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
			})
		})
	})
}
