package types_test

import (
	"testing"

	"github.com/okian/callscout/internal/domain/model"
	"github.com/okian/callscout/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func analyzed(id string, total float64, eligible bool) model.AnalyzedOpportunity {
	return model.AnalyzedOpportunity{
		ID:          id,
		Title:       "Call " + id,
		Eligibility: model.EligibilityResult{AllPassed: eligible},
		Score:       model.ScoreBreakdown{Total: total, Recommendation: model.RecommendConsider},
	}
}

func TestRank(t *testing.T) {
	Convey("Given analyzed results", t, func() {
		results := []model.AnalyzedOpportunity{
			analyzed("b", 6.1, true),
			analyzed("a", 8.4, true),
			analyzed("d", 6.1, false),
			analyzed("c", 6.1, true),
		}
		results[3].Degradations = []model.Degradation{{Kind: model.DegradedReasoning}}

		Convey("When ranking them", func() {
			entries := types.Rank(results)

			Convey("Then the best total comes first and ties are stable", func() {
				So(entries, ShouldHaveLength, 4)
				So(entries[0].ID, ShouldEqual, "a")
				So(entries[0].Rank, ShouldEqual, 1)
				So(entries[1].ID, ShouldEqual, "b")
				So(entries[2].ID, ShouldEqual, "c")
				So(entries[2].Degraded, ShouldBeTrue)
				So(entries[3].ID, ShouldEqual, "d")
				So(entries[3].Eligible, ShouldBeFalse)
			})

			Convey("Then the input is left untouched", func() {
				So(results[0].ID, ShouldEqual, "b")
			})
		})

		Convey("When taking the top entries", func() {
			entries := types.Rank(results)
			So(types.Top(entries, 2), ShouldHaveLength, 2)
			So(types.Top(entries, 0), ShouldHaveLength, 4)
			So(types.Top(entries, 10), ShouldHaveLength, 4)
		})

		Convey("When there are no results", func() {
			So(types.Rank(nil), ShouldBeEmpty)
		})
	})
}
