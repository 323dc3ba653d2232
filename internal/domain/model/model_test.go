package model_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/callscout/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestOrgType(t *testing.T) {
	Convey("Given organization types", t, func() {
		Convey("When normalizing spellings", func() {
			So(model.OrgType(" sme ").Normalize(), ShouldEqual, model.OrgSME)
			So(model.OrgType("Public Body").Normalize(), ShouldEqual, model.OrgPublic)
			So(model.OrgType("research   institute").Normalize(), ShouldEqual, model.OrgResearchInstitute)
		})

		Convey("When classifying SMEs", func() {
			So(model.OrgType("small").IsSME(), ShouldBeTrue)
			So(model.OrgMedium.IsSME(), ShouldBeTrue)
			So(model.OrgLarge.IsSME(), ShouldBeFalse)
			So(model.OrgUniversity.IsSME(), ShouldBeFalse)
		})
	})
}

func TestErrors(t *testing.T) {
	Convey("Given kind-tagged errors", t, func() {
		cause := errors.New("connection refused")

		Convey("When wrapping a cause", func() {
			err := model.WrapKind("workflow.retrieve", model.ErrRetrieval, cause)

			Convey("Then both kind and cause match", func() {
				So(errors.Is(err, model.ErrRetrieval), ShouldBeTrue)
				So(errors.Is(err, cause), ShouldBeTrue)
				So(errors.Is(err, model.ErrInput), ShouldBeFalse)
				So(model.KindOf(err), ShouldEqual, model.ErrRetrieval)
				So(err.Error(), ShouldEqual, "workflow.retrieve: retrieval failed: connection refused")
			})
		})

		Convey("When wrapping nil", func() {
			So(model.WrapKind("op", model.ErrScoring, nil), ShouldBeNil)
		})

		Convey("When building an input error", func() {
			err := model.NewInputError("intake.validate", []string{"company.name"})

			Convey("Then the missing fields are recoverable", func() {
				So(errors.Is(err, model.ErrInput), ShouldBeTrue)
				So(model.MissingFields(err), ShouldResemble, []string{"company.name"})
				So(err.Error(), ShouldContainSubstring, "missing company.name")
			})
		})

		Convey("When the error carries no kind", func() {
			So(model.KindOf(cause), ShouldBeNil)
			So(model.MissingFields(cause), ShouldBeNil)
		})
	})
}

func TestLoadProfile(t *testing.T) {
	Convey("Given a YAML profile on disk", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "profile.yaml")
		content := `
name: Acme Analytics
description: Applied machine learning for industrial quality control.
type: SME
employees: 25
country: Germany
domains:
  - name: Artificial Intelligence
    sub_domains: [machine learning, computer vision]
    level: expert
keywords:
  include: [ai, automation]
preferred_budget:
  min: 100000
  max: 2000000
  currency: EUR
`
		So(os.WriteFile(path, []byte(content), 0o600), ShouldBeNil)

		Convey("When loading it", func() {
			p, err := model.LoadProfile(path)

			Convey("Then every section is decoded", func() {
				So(err, ShouldBeNil)
				So(p.Name, ShouldEqual, "Acme Analytics")
				So(p.Type, ShouldEqual, model.OrgSME)
				So(p.Domains, ShouldHaveLength, 1)
				So(p.Domains[0].Level, ShouldEqual, model.LevelExpert)
				So(p.Domains[0].SubDomains, ShouldContain, "computer vision")
				So(p.Keywords.Include, ShouldResemble, []string{"ai", "automation"})
				So(p.PreferredBudget.HasNumbers(), ShouldBeTrue)
			})
		})

		Convey("When the file is missing", func() {
			_, err := model.LoadProfile(filepath.Join(dir, "nope.yaml"))
			So(err, ShouldNotBeNil)
		})
	})
}
