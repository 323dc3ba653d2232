package workflow

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestTransitions(t *testing.T) {
	Convey("Given the transition table", t, func() {
		Convey("Then the forward path is legal", func() {
			So(CanTransition(StateIntake, StatePlanning), ShouldBeTrue)
			So(CanTransition(StatePlanning, StateRetrieval), ShouldBeTrue)
			So(CanTransition(StateRetrieval, StateAnalysis), ShouldBeTrue)
			So(CanTransition(StateAnalysis, StatePlanning), ShouldBeTrue)
			So(CanTransition(StateAnalysis, StateReporting), ShouldBeTrue)
			So(CanTransition(StateReporting, StateCompleted), ShouldBeTrue)
		})

		Convey("Then shortcuts and exits from terminal states are not", func() {
			So(CanTransition(StateIntake, StateAnalysis), ShouldBeFalse)
			So(CanTransition(StateRetrieval, StateReporting), ShouldBeFalse)
			So(CanTransition(StatePlanning, StatePlanning), ShouldBeFalse)
			So(CanTransition(StateCompleted, StatePlanning), ShouldBeFalse)
			So(CanTransition(StateFailed, StateIntake), ShouldBeFalse)
		})

		Convey("Then every non-terminal state may fail", func() {
			for s := StateIntake; s < StateCompleted; s++ {
				So(CanTransition(s, StateFailed), ShouldBeTrue)
			}
		})

		Convey("Then an illegal edge is rejected by the controller", func() {
			c := New(nil, nil, nil, nil)
			r := &run{state: StateIntake}
			err := c.transition(r, StateReporting)
			So(errors.Is(err, ErrIllegalTransition), ShouldBeTrue)
			So(r.state, ShouldEqual, StateIntake)
		})
	})

	Convey("Given state names", t, func() {
		So(StateAnalysis.String(), ShouldEqual, "analysis")
		So(State(42).String(), ShouldEqual, "unknown")
		b, _ := StateReporting.MarshalText()
		So(string(b), ShouldEqual, "reporting")
		var s State
		So(s.UnmarshalText([]byte("retrieval")), ShouldBeNil)
		So(s, ShouldEqual, StateRetrieval)
		So(s.UnmarshalText([]byte("nowhere")), ShouldNotBeNil)
		So(StateCompleted.Terminal(), ShouldBeTrue)
		So(StateAnalysis.Terminal(), ShouldBeFalse)
	})
}
