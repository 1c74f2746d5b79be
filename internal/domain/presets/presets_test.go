package presets_test

import (
	"errors"
	"testing"

	"github.com/okian/veloperf/internal/domain/presets"
	"github.com/smartystreets/goconvey/convey"
)

func TestTable(t *testing.T) {
	convey.Convey("Given the default preset table", t, func() {
		tbl := presets.Default()

		convey.Convey("Then rolling resistance is looked up by bike and terrain", func() {
			v, err := tbl.Crr("road", "asphalt")
			convey.So(err, convey.ShouldBeNil)
			convey.So(v, convey.ShouldEqual, presets.DefaultCrr)

			v, err = tbl.Crr(" MTB ", "Sand")
			convey.So(err, convey.ShouldBeNil)
			convey.So(v, convey.ShouldEqual, 0.038)
		})

		convey.Convey("Then unknown keys are reported", func() {
			_, err := tbl.Crr("tandem", "asphalt")
			convey.So(errors.Is(err, presets.ErrUnknownPreset), convey.ShouldBeTrue)
			_, err = tbl.Crr("road", "ice")
			convey.So(errors.Is(err, presets.ErrUnknownPreset), convey.ShouldBeTrue)
		})

		convey.Convey("Then positions are described by CdA band", func() {
			convey.So(tbl.PositionFor(0.20), convey.ShouldEqual, "Elite time trial equipment and positioning")
			convey.So(tbl.PositionFor(0.25), convey.ShouldEqual, "Good time trial / Triathlon positioning")
			convey.So(tbl.PositionFor(0.32), convey.ShouldEqual, "Road bike racing / Drop bar lows")
			convey.So(tbl.PositionFor(presets.DefaultCdA), convey.ShouldEqual, "Road climbing / Mountain bike XC")
			convey.So(tbl.PositionFor(0.50), convey.ShouldEqual, "Upright position with casual clothing")
		})

		convey.Convey("Then listings are sorted", func() {
			convey.So(tbl.Bikes(), convey.ShouldResemble, []string{"mtb", "road"})
			convey.So(tbl.Terrains("road"), convey.ShouldResemble, []string{"asphalt", "grass", "gravel", "offroad", "sand"})
			convey.So(tbl.Bands(), convey.ShouldHaveLength, 5)
		})

		convey.Convey("Then copies do not leak into the table", func() {
			c := tbl.CrrTable()
			c["road"]["asphalt"] = 1
			v, _ := tbl.Crr("road", "asphalt")
			convey.So(v, convey.ShouldEqual, presets.DefaultCrr)
		})
	})

	convey.Convey("Given a table with a bad coefficient", t, func() {
		_, err := presets.New(map[string]map[string]float64{"road": {"asphalt": 0}}, nil)
		convey.So(errors.Is(err, presets.ErrInvalidTable), convey.ShouldBeTrue)
	})
}
