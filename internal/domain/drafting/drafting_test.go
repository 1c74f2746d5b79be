package drafting_test

import (
	"errors"
	"math"
	"testing"

	"github.com/okian/veloperf/internal/domain/drafting"
	"github.com/smartystreets/goconvey/convey"
)

const kmh40 = 40 / 3.6

func TestDynamicMultiplier(t *testing.T) {
	convey.Convey("Given the dynamic draft model", t, func() {
		m := drafting.Dynamic{}

		convey.Convey("When the rider is on the front", func() {
			convey.Convey("Then the multiplier is exactly 1 for any group, speed and gap", func() {
				for _, n := range []int{1, 2, 5, 20, 50} {
					for _, v := range []float64{0, 5, kmh40, 25} {
						for _, g := range []float64{0, 0.3, 2, 200} {
							c := drafting.Config{Riders: n, Position: 1, Speed: v, Gap: g}
							convey.So(m.Multiplier(c), convey.ShouldEqual, 1.0)
						}
					}
				}
			})
		})

		convey.Convey("When two riders ride 0.45 m apart at 40 km/h", func() {
			mult := m.Multiplier(drafting.Config{Riders: 2, Position: 2, Speed: kmh40, Gap: 0.45})

			convey.Convey("Then the follower saves about a third of the drag", func() {
				convey.So(mult, convey.ShouldAlmostEqual, 0.67398, 1e-4)
				convey.So(drafting.EffectiveCdA(0.35, mult), convey.ShouldBeLessThan, 0.35)
			})
		})

		convey.Convey("When the gap widens", func() {
			convey.Convey("Then the multiplier never decreases", func() {
				for _, pos := range []int{2, 3, 6} {
					prev := 0.0
					for g := 0.0; g <= 120; g += 0.25 {
						cur := m.Multiplier(drafting.Config{Riders: 6, Position: pos, Speed: kmh40, Gap: g})
						convey.So(cur, convey.ShouldBeGreaterThanOrEqualTo, prev)
						prev = cur
					}
				}
			})

			convey.Convey("Then very large gaps approach no benefit", func() {
				mult := m.Multiplier(drafting.Config{Riders: 4, Position: 3, Speed: kmh40, Gap: 100})
				convey.So(mult, convey.ShouldBeGreaterThan, 0.98)
				convey.So(mult, convey.ShouldBeLessThanOrEqualTo, 1.0)
			})
		})

		convey.Convey("When riding very slowly", func() {
			mult := m.Multiplier(drafting.Config{Riders: 4, Position: 2, Speed: 1, Gap: 0.5})
			convey.So(mult, convey.ShouldBeGreaterThan, 0.97)
			convey.So(m.Multiplier(drafting.Config{Riders: 4, Position: 2, Speed: 0, Gap: 0.5}), convey.ShouldEqual, 1.0)
		})

		convey.Convey("When deep in a large fast bunch", func() {
			mult := m.Multiplier(drafting.Config{Riders: 8, Position: 4, Speed: 15, Gap: 0.15})

			convey.Convey("Then the reduction is capped", func() {
				convey.So(mult, convey.ShouldAlmostEqual, 0.2, 1e-12)
			})
		})

		convey.Convey("When moving back in the line", func() {
			convey.Convey("Then the position factor grows and saturates", func() {
				f2 := m.PositionFactor(6, 2)
				f3 := m.PositionFactor(6, 3)
				f6 := m.PositionFactor(6, 6)
				convey.So(f3, convey.ShouldBeGreaterThan, f2)
				convey.So(f6, convey.ShouldBeGreaterThan, f3)
				convey.So(f6-f3, convey.ShouldBeLessThan, f3-f2)
			})
		})

		convey.Convey("Then the speed factor is clamped to [0, 1]", func() {
			convey.So(m.SpeedFactor(-3), convey.ShouldEqual, 0)
			convey.So(m.SpeedFactor(15), convey.ShouldAlmostEqual, 1.0, 1e-12)
			convey.So(m.SpeedFactor(30), convey.ShouldEqual, 1.0)
		})

		convey.Convey("Then invalid placements fall back to no benefit", func() {
			convey.So(m.Multiplier(drafting.Config{Riders: 3, Position: 5, Speed: kmh40}), convey.ShouldEqual, 1.0)
			convey.So(m.Multiplier(drafting.Config{Riders: 0, Position: 0}), convey.ShouldEqual, 1.0)
		})
	})
}

func TestLegacyMultiplier(t *testing.T) {
	convey.Convey("Given the legacy draft model", t, func() {
		m := drafting.Legacy{}

		convey.Convey("Then the table values are reproduced", func() {
			convey.So(m.Multiplier(drafting.Config{Riders: 2, Position: 2}), convey.ShouldAlmostEqual, 0.955, 1e-12)
			convey.So(m.Multiplier(drafting.Config{Riders: 4, Position: 3}), convey.ShouldAlmostEqual, 0.8176, 1e-12)
		})

		convey.Convey("Then large groups are mapped onto eight riders", func() {
			convey.So(m.Multiplier(drafting.Config{Riders: 20, Position: 12}), convey.ShouldAlmostEqual, 0.685, 1e-12)
			convey.So(m.Multiplier(drafting.Config{Riders: 16, Position: 2}), convey.ShouldEqual, 1.0)
		})

		convey.Convey("Then speed and gap are ignored", func() {
			a := m.Multiplier(drafting.Config{Riders: 5, Position: 3, Speed: 5, Gap: 0.2})
			b := m.Multiplier(drafting.Config{Riders: 5, Position: 3, Speed: 20, Gap: 3})
			convey.So(a, convey.ShouldEqual, b)
		})

		convey.Convey("Then the front is unchanged", func() {
			convey.So(m.Multiplier(drafting.Config{Riders: 8, Position: 1}), convey.ShouldEqual, 1.0)
		})
	})
}

func TestEffectiveAndLookup(t *testing.T) {
	convey.Convey("Given a sheltered multiplier of 0.6", t, func() {
		convey.Convey("Then a rotating rider averages with the front", func() {
			convey.So(drafting.Effective(0.6, 0.25), convey.ShouldAlmostEqual, 0.7, 1e-12)
			convey.So(drafting.Effective(0.6, 0), convey.ShouldEqual, 0.6)
			convey.So(drafting.Effective(0.6, 1), convey.ShouldEqual, 1.0)
			convey.So(drafting.Effective(0.6, 3), convey.ShouldEqual, 1.0)
		})

		convey.Convey("Then duty cycles outside [0, 1] are rejected", func() {
			convey.So(drafting.ValidateDutyCycle(0), convey.ShouldBeNil)
			convey.So(drafting.ValidateDutyCycle(1), convey.ShouldBeNil)
			for _, f := range []float64{-0.1, 1.7, math.NaN()} {
				convey.So(errors.Is(drafting.ValidateDutyCycle(f), drafting.ErrInvalidConfig), convey.ShouldBeTrue)
			}
		})
	})

	convey.Convey("Given model names", t, func() {
		dyn, err := drafting.ByName("Dynamic")
		convey.So(err, convey.ShouldBeNil)
		convey.So(dyn.Name(), convey.ShouldEqual, drafting.NameDynamic)

		leg, err := drafting.ByName("legacy")
		convey.So(err, convey.ShouldBeNil)
		convey.So(leg.Name(), convey.ShouldEqual, drafting.NameLegacy)

		_, err = drafting.ByName("magic")
		convey.So(errors.Is(err, drafting.ErrUnknownModel), convey.ShouldBeTrue)
	})

	convey.Convey("Given draft configs", t, func() {
		convey.So(drafting.Config{Riders: 3, Position: 2, Gap: 0.5}.Validate(), convey.ShouldBeNil)
		err := drafting.Config{Riders: 3, Position: 4}.Validate()
		convey.So(errors.Is(err, drafting.ErrInvalidConfig), convey.ShouldBeTrue)
		err = drafting.Config{Riders: 3, Position: 2, Gap: -1}.Validate()
		convey.So(errors.Is(err, drafting.ErrInvalidConfig), convey.ShouldBeTrue)
	})
}
