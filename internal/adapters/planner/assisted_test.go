package planner_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/callscout/internal/adapters/planner"
	"github.com/okian/callscout/internal/adapters/reasoning"
	"github.com/okian/callscout/internal/domain/model"
	"github.com/okian/callscout/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

type stubGenerator struct {
	answer  string
	err     error
	prompts []string
}

func (g *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	return g.answer, ctx.Err()
}

func TestAssisted(t *testing.T) {
	Convey("Given a model-assisted planner", t, func() {
		ctx := context.Background()
		gen := &stubGenerator{}
		fallback := planner.New(planner.WithLogger(logger.Nop()), planner.WithSources("ec-portal"))
		p := planner.NewAssisted(gen, fallback)

		Convey("When the model answers with queries", func() {
			gen.answer = `{"queries": ["QUERY 1: \"computer vision\" robotics", "2. \"machine learning\" SME", ` +
				`"\"Computer Vision\" Robotics", "ai", "` + strings.Repeat("x", 120) + `"]}`
			plan, err := p.Plan(ctx, profile(), "")

			Convey("Then they replace the fallback queries after cleanup", func() {
				So(err, ShouldBeNil)
				So(plan.Queries, ShouldHaveLength, 3)
				So(plan.Queries[0], ShouldEqual, `"computer vision" robotics`)
				So(plan.Queries[1], ShouldEqual, `"machine learning" SME`)
				So(len(plan.Queries[2]), ShouldEqual, 100)
				So(plan.Reasoning, ShouldStartWith, "Model-assisted plan")
			})

			Convey("Then the rest of the plan comes from the fallback", func() {
				So(plan.TargetPrograms, ShouldResemble, []string{"Horizon Europe"})
				So(plan.TargetSources, ShouldResemble, []string{"ec-portal"})
				So(plan.Filters["type"], ShouldEqual, "grant,prize")
			})

			Convey("Then the prompt carries the profile", func() {
				So(gen.prompts[0], ShouldContainSubstring, "Artificial Intelligence")
				So(gen.prompts[0], ShouldContainSubstring, "computer vision")
				So(gen.prompts[0], ShouldNotContainSubstring, "FEEDBACK")
			})
		})

		Convey("When feedback is present", func() {
			gen.answer = `{"queries": ["\"edge computing\" robotics"]}`
			plan, err := p.Plan(ctx, profile(), "refine: Too many low-quality results.")
			So(err, ShouldBeNil)
			So(plan.Reasoning, ShouldContainSubstring, "reflection feedback")
			So(gen.prompts[0], ShouldContainSubstring, "Too many low-quality results.")
		})

		Convey("When the model fails", func() {
			gen.err = errors.New("connection refused")
			plan, err := p.Plan(ctx, profile(), "")

			Convey("Then the fallback plan is returned", func() {
				So(err, ShouldBeNil)
				So(plan.Queries, ShouldResemble, []string{
					`"Artificial Intelligence"`,
					"Robotics",
					`"Artificial Intelligence" AND Robotics`,
				})
			})
		})

		Convey("When the model answers prose or nothing usable", func() {
			for _, answer := range []string{"Here are some ideas", `{"queries": []}`, `{"queries": ["", "ok"]}`} {
				gen.answer = answer
				plan, err := p.Plan(ctx, profile(), "")
				So(err, ShouldBeNil)
				So(plan.Reasoning, ShouldStartWith, "Initial plan")
			}
		})

		Convey("When the planning deadline passes during generation", func() {
			gen.err = errors.New("request aborted")
			dctx, cancel := context.WithTimeout(ctx, time.Millisecond)
			defer cancel()
			<-dctx.Done()
			_, err := p.Plan(dctx, profile(), "")
			So(errors.Is(err, model.ErrPlanning), ShouldBeTrue)
		})

		Convey("When the profile has no domains", func() {
			_, err := p.Plan(ctx, model.OrganizationProfile{}, "")
			So(errors.Is(err, model.ErrPlanning), ShouldBeTrue)
			So(gen.prompts, ShouldBeEmpty)
		})
	})

	Convey("Given the assisted planner over an Ollama-style endpoint", t, func() {
		var got map[string]any
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewDecoder(r.Body).Decode(&got)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"response": `{"queries": ["\"computer vision\" manufacturing", "robotics SME"]}`,
				"done":     true,
			})
		}))
		defer srv.Close()

		gen := reasoning.NewOllama(srv.URL, "tiny", reasoning.WithOllamaLogger(logger.Nop()))
		p := planner.NewAssisted(gen, planner.New(planner.WithLogger(logger.Nop())))
		plan, err := p.Plan(context.Background(), profile(), "")

		So(err, ShouldBeNil)
		So(plan.Queries, ShouldResemble, []string{`"computer vision" manufacturing`, "robotics SME"})
		So(got["format"], ShouldEqual, "json")
		So(got["prompt"], ShouldContainSubstring, "search queries")
	})
}
