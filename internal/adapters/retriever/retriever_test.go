package retriever_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/callscout/internal/adapters/retriever"
	"github.com/okian/callscout/internal/domain/model"
	"github.com/okian/callscout/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

const catalogYAML = `
source: ec-portal
records:
  - id: HORIZON-CL4-2026-AI-01
    title: "Trustworthy <b>Artificial Intelligence</b> pilots"
    programme:
      name: Horizon Europe
      deadline: "2026-09-18"
    content:
      description: "<p>Pilots of AI &amp; data spaces</p><p>for manufacturing.</p>"
    required_domains: [Artificial Intelligence]
    keywords: [machine learning, "  ", pilots]
    budget_per_project:
      min: 2000000
      max: 4000000
  - id: DIGITAL-2026-CYBER-02
    title: Cybersecurity skills
    source: national
    required_domains: [Cybersecurity]
  - id: ""
    title: no identifier
  - id: DIGITAL-2026-CYBER-02
    title: duplicate
`

func TestHTMLToText(t *testing.T) {
	Convey("Given free text from a portal", t, func() {
		So(retriever.HTMLToText("  plain   text\n here "), ShouldEqual, "plain text here")
		So(retriever.HTMLToText("<p>Hello</p><p>world</p>"), ShouldEqual, "Hello world")
		So(retriever.HTMLToText("AI &amp; data"), ShouldEqual, "AI & data")
		So(retriever.HTMLToText("<script>alert(1)</script>Safe"), ShouldNotContainSubstring, "alert")
	})
}

func TestNormalize(t *testing.T) {
	Convey("Given raw records", t, func() {
		raw := []model.OpportunityRecord{
			{ID: " a ", Title: "<i>First</i>", Keywords: []string{" x ", ""}, Budget: &model.BudgetRange{Min: 500, Max: 100, Currency: "bgn"}},
			{ID: "b", Title: "   "},
			{ID: "a", Title: "Duplicate"},
			{ID: "c", Title: "Third", Source: "national", Budget: &model.BudgetRange{}, Consortium: &model.Consortium{}},
		}
		out, dropped := retriever.Normalize(raw, "ec-portal")

		So(dropped, ShouldEqual, 2)
		So(out, ShouldHaveLength, 2)
		So(out[0].ID, ShouldEqual, "a")
		So(out[0].Title, ShouldEqual, "First")
		So(out[0].Source, ShouldEqual, "ec-portal")
		So(out[0].Keywords, ShouldResemble, []string{"x"})
		So(out[0].Budget.Min, ShouldEqual, 100)
		So(out[0].Budget.Max, ShouldEqual, 500)
		So(out[0].Budget.Currency, ShouldEqual, "BGN")
		So(out[1].Source, ShouldEqual, "national")
		So(out[1].Budget, ShouldBeNil)
		So(out[1].Consortium, ShouldBeNil)
	})
}

func TestFileRetriever(t *testing.T) {
	Convey("Given a catalog on disk", t, func() {
		path := filepath.Join(t.TempDir(), "catalog.yaml")
		So(os.WriteFile(path, []byte(catalogYAML), 0o600), ShouldBeNil)

		f, err := retriever.NewFile(path, retriever.WithFileLogger(logger.Nop()))
		So(err, ShouldBeNil)
		So(f.Len(), ShouldEqual, 2)
		ctx := context.Background()

		Convey("When the plan has no queries", func() {
			recs, err := f.Retrieve(ctx, model.Plan{})
			So(err, ShouldBeNil)
			So(recs, ShouldHaveLength, 2)
			So(recs[0].Content.Description, ShouldEqual, "Pilots of AI & data spaces for manufacturing.")
			So(recs[0].Keywords, ShouldResemble, []string{"machine learning", "pilots"})
		})

		Convey("When a quoted query matches one record", func() {
			recs, err := f.Retrieve(ctx, model.Plan{Queries: []string{`"Artificial Intelligence"`}})
			So(err, ShouldBeNil)
			So(recs, ShouldHaveLength, 1)
			So(recs[0].Source, ShouldEqual, "ec-portal")
		})

		Convey("When an AND query has one missing term", func() {
			recs, err := f.Retrieve(ctx, model.Plan{Queries: []string{`"Artificial Intelligence" AND Cybersecurity`}})
			So(err, ShouldBeNil)
			So(recs, ShouldBeEmpty)
		})

		Convey("When any of several queries matches", func() {
			recs, _ := f.Retrieve(ctx, model.Plan{Queries: []string{"quantum", "cybersecurity"}})
			So(recs, ShouldHaveLength, 1)
			So(recs[0].ID, ShouldEqual, "DIGITAL-2026-CYBER-02")
		})

		Convey("When the context is already cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := f.Retrieve(cctx, model.Plan{})
			So(errors.Is(err, model.ErrRetrieval), ShouldBeTrue)
		})
	})

	Convey("Given a missing catalog", t, func() {
		_, err := retriever.NewFile(filepath.Join(t.TempDir(), "absent.yaml"))
		So(errors.Is(err, model.ErrRetrieval), ShouldBeTrue)
	})
}

func TestHTTPRetriever(t *testing.T) {
	Convey("Given a search service", t, func() {
		var calls atomic.Int32
		limited := atomic.Int32{}
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			q := r.URL.Query().Get("q")
			switch q {
			case "busy":
				if limited.Add(1) <= 2 {
					w.WriteHeader(http.StatusTooManyRequests)
					return
				}
			case "broken":
				http.Error(w, "boom", http.StatusInternalServerError)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"records": []model.OpportunityRecord{
				{ID: "rec-" + q, Title: "Result for " + q},
				{ID: "shared", Title: "Shared result"},
			}})
		}))
		defer srv.Close()

		h := retriever.NewHTTP(srv.URL,
			retriever.WithRetryBaseDelay(time.Millisecond),
			retriever.WithSourceName("search"),
			retriever.WithHTTPLogger(logger.Nop()),
		)
		ctx := context.Background()

		Convey("When two queries share a record", func() {
			recs, err := h.Retrieve(ctx, model.Plan{Queries: []string{"ai", "data"}})
			So(err, ShouldBeNil)
			So(recs, ShouldHaveLength, 3)
			So(recs[0].Source, ShouldEqual, "search")
		})

		Convey("When the service rate limits twice", func() {
			recs, err := h.Retrieve(ctx, model.Plan{Queries: []string{"busy"}})
			So(err, ShouldBeNil)
			So(recs, ShouldHaveLength, 2)
			So(calls.Load(), ShouldEqual, 3)
		})

		Convey("When one of two queries fails", func() {
			recs, err := h.Retrieve(ctx, model.Plan{Queries: []string{"broken", "ai"}})
			So(err, ShouldBeNil)
			So(recs, ShouldHaveLength, 2)
		})

		Convey("When every query fails", func() {
			_, err := h.Retrieve(ctx, model.Plan{Queries: []string{"broken"}})
			So(errors.Is(err, model.ErrRetrieval), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "500")
		})

		Convey("When retries are exhausted", func() {
			strict := retriever.NewHTTP(srv.URL,
				retriever.WithMaxRetries(1),
				retriever.WithRetryBaseDelay(time.Millisecond),
				retriever.WithHTTPLogger(logger.Nop()),
			)
			_, err := strict.Retrieve(ctx, model.Plan{Queries: []string{"busy"}})
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "429")
		})
	})
}
