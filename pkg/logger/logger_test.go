package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given the global logger", t, func() {
		Convey("When initialized with defaults", func() {
			So(Init(), ShouldBeNil)
			So(Get(), ShouldNotBeNil)
			So(Sync(), ShouldBeNil)
		})

		Convey("When initialized with an unknown format", func() {
			err := InitWith(Options{Format: "xml"})

			Convey("Then it should fail", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "xml")
			})
		})
	})
}

func TestLoggerJSONOutput(t *testing.T) {
	Convey("Given a JSON logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		So(InitWith(Options{Format: "json", Output: &buf}), ShouldBeNil)
		SetLevel(0)
		defer func() { _ = Init() }()

		Convey("When logging through a named child with fields", func() {
			Named("planner").With(String("run_id", "r-1")).Info(context.Background(), "plan ready",
				Int("queries", 3),
				Bool("fallback", true),
				Duration("took", 1500*time.Millisecond),
				Error(errors.New("boom")),
			)

			var line map[string]any
			So(json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line), ShouldBeNil)

			Convey("Then every field is present", func() {
				So(line["msg"], ShouldEqual, "plan ready")
				So(line["component"], ShouldEqual, "planner")
				So(line["run_id"], ShouldEqual, "r-1")
				So(line["queries"], ShouldEqual, 3.0)
				So(line["fallback"], ShouldEqual, true)
				So(line["took"], ShouldEqual, "1.5s")
				So(line["source"], ShouldContainSubstring, "logger_test.go")
			})
		})

		Convey("When the level filters debug output", func() {
			So(SetLevelString("warn"), ShouldBeNil)
			Get().Debug(context.Background(), "hidden")
			Get().Warn(context.Background(), "shown")

			Convey("Then only the warning is written", func() {
				out := buf.String()
				So(strings.Contains(out, "hidden"), ShouldBeFalse)
				So(out, ShouldContainSubstring, "shown")
			})
			So(SetLevelString("info"), ShouldBeNil)
		})
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("Given level strings", t, func() {
		for _, lvl := range []string{"debug", "info", "", "warn", "warning", "ERROR"} {
			So(SetLevelString(lvl), ShouldBeNil)
		}
		So(SetLevelString("verbose"), ShouldNotBeNil)
		So(SetLevelString("info"), ShouldBeNil)
	})
}

func TestNop(t *testing.T) {
	Convey("Given a nop logger", t, func() {
		l := Nop()
		So(func() {
			l.Named("x").With(String("k", "v")).Error(context.Background(), "dropped")
		}, ShouldNotPanic)
	})
}
