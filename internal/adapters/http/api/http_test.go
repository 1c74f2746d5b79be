package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/veloperf/internal/adapters/http/api"
	service "github.com/okian/veloperf/internal/app"
	"github.com/okian/veloperf/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

const climbCourse = `"weight_kg":70,"bike_weight_kg":8,"distance_km":5,"grade_pct":6,` +
	`"start_elevation_m":-150,"cda_m2":0.35,"crr":0.005,"loss":0.025`

func newTestServer(t *testing.T, start bool, opts ...service.Option) (*http.ServeMux, *service.Service) {
	t.Helper()
	svc := service.New(append([]service.Option{service.WithWorkerCount(2)}, opts...)...)
	if start {
		if err := svc.Start(context.Background()); err != nil {
			t.Fatalf("start service: %v", err)
		}
		t.Cleanup(svc.Stop)
	}
	mux := http.NewServeMux()
	api.NewServer(svc).Register(context.Background(), mux)
	return mux, svc
}

func do(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decode(w *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return out
}

func TestPredict(t *testing.T) {
	Convey("Given the API over a service", t, func() {
		mux, _ := newTestServer(t, false)

		Convey("When predicting power for a climb time", func() {
			w := do(mux, "POST", "/v1/predict", `{`+climbCourse+`,"time":"7:30"}`)
			body := decode(w)

			Convey("Then the power and boundary units are reported", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldEqual, "application/json; charset=utf-8")
				So(body["mode"], ShouldEqual, "time_to_power")
				So(body["power_w"], ShouldAlmostEqual, 867.19, 0.5)
				So(body["speed_kmh"], ShouldAlmostEqual, 40.0, 1e-9)
				So(body["time_formatted"], ShouldEqual, "7:30")
				So(body["position"], ShouldEqual, "Road climbing / Mountain bike XC")
			})
		})

		Convey("When predicting time for a power with a reference time", func() {
			w := do(mux, "POST", "/v1/predict", `{`+climbCourse+`,"power_w":250,"reference_time":"10:00"}`)
			body := decode(w)

			Convey("Then the time and its delta are reported", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(body["mode"], ShouldEqual, "power_to_time")
				So(body["time_s"], ShouldBeGreaterThan, 600)
				So(body["time_delta_formatted"], ShouldStartWith, "+")
			})
		})

		Convey("When the rolling resistance comes from presets", func() {
			w := do(mux, "POST", "/v1/predict",
				`{"weight_kg":70,"bike_weight_kg":8,"distance_km":10,"power_w":200,"bike":"road","terrain":"asphalt"}`)
			body := decode(w)

			Convey("Then defaults fill the rest", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(body["effective_cda_m2"], ShouldAlmostEqual, 0.40, 1e-12)
			})
		})

		Convey("When drafting behind a rider", func() {
			w := do(mux, "POST", "/v1/predict",
				`{`+climbCourse+`,"time":"7:30","draft":{"riders":2,"position":2,"gap_m":0.45}}`)
			body := decode(w)

			Convey("Then the multiplier and group are included", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(body["multiplier"], ShouldBeLessThan, 1)
				So(body["group"], ShouldNotBeNil)
			})
		})

		Convey("When the request is malformed", func() {
			cases := []struct {
				name string
				body string
			}{
				{"not json", `{`},
				{"unknown field", `{"weight":70}`},
				{"no target", `{` + climbCourse + `}`},
				{"both targets", `{` + climbCourse + `,"power_w":250,"time":"7:30"}`},
				{"bad clock", `{` + climbCourse + `,"time":"7:75"}`},
				{"unknown terrain", `{"weight_kg":70,"distance_km":5,"power_w":200,"bike":"road","terrain":"ice"}`},
				{"zero distance", `{"weight_kg":70,"bike_weight_kg":8,"distance_km":0,"power_w":200}`},
				{"no bike weight", `{"weight_kg":70,"distance_km":5,"grade_pct":6,"crr":0.005,"power_w":200}`},
				{"bad draft", `{` + climbCourse + `,"power_w":250,"draft":{"riders":2,"position":3}}`},
			}
			for _, tc := range cases {
				w := do(mux, "POST", "/v1/predict", tc.body)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decode(w)["code"], ShouldEqual, "bad_request")
			}
		})

		Convey("When the power cannot be reached below the ceiling", func() {
			w := do(mux, "POST", "/v1/predict", `{`+climbCourse+`,"power_w":1e9}`)
			body := decode(w)

			Convey("Then the divergence is reported with solver details", func() {
				So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
				So(body["code"], ShouldEqual, "solver_divergence")
				details, ok := body["details"].(map[string]any)
				So(ok, ShouldBeTrue)
				So(details["reason"], ShouldEqual, "bracket ceiling exceeded")
				So(details["last_estimate_ms"], ShouldEqual, 150.0)
			})
		})

		Convey("When zero power leaves the rider standing on a climb", func() {
			w := do(mux, "POST", "/v1/predict", `{`+climbCourse+`,"power_w":0}`)

			Convey("Then the solution is degenerate", func() {
				So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
				So(decode(w)["code"], ShouldEqual, "degenerate_solution")
			})
		})

		Convey("When the method is wrong", func() {
			w := do(mux, "GET", "/v1/predict", "")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestGroup(t *testing.T) {
	Convey("Given the API over a service", t, func() {
		mux, _ := newTestServer(t, false)

		Convey("When estimating a pair at a fixed speed", func() {
			w := do(mux, "POST", "/v1/group", `{`+climbCourse+`,"riders":2,"gap_m":0.45,"speed_kmh":40}`)
			var body struct {
				Velocity float64 `json:"velocity_ms"`
				SpeedKmh float64 `json:"speed_kmh"`
				TimeS    float64 `json:"time_s"`
				Riders   []struct {
					Position     int     `json:"position"`
					EffectiveCdA float64 `json:"effective_cda_m2"`
					Power        float64 `json:"power_w"`
				} `json:"riders"`
			}
			So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)

			Convey("Then the second rider uses less drag area", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(body.SpeedKmh, ShouldAlmostEqual, 40.0, 1e-9)
				So(body.TimeS, ShouldAlmostEqual, 450.0, 1e-6)
				So(body.Riders, ShouldHaveLength, 2)
				So(body.Riders[0].EffectiveCdA, ShouldAlmostEqual, 0.35, 1e-12)
				So(body.Riders[1].EffectiveCdA, ShouldBeLessThan, 0.35)
				So(body.Riders[1].Power, ShouldBeLessThan, body.Riders[0].Power)
			})
		})

		Convey("When solving for a mean power", func() {
			w := do(mux, "POST", "/v1/group", `{`+climbCourse+`,"riders":4,"gap_m":0.5,"rotating":true,"power_w":300}`)
			body := decode(w)

			Convey("Then the group mean hits the target", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(body["mean_w"], ShouldAlmostEqual, 300.0, 0.5)
				So(body["iterations"], ShouldBeGreaterThan, 0)
			})
		})

		Convey("When solving for a time with member overrides", func() {
			w := do(mux, "POST", "/v1/group", `{`+climbCourse+`,"members":[{"position":1},{"position":2,"mass_kg":90}],"gap_m":0.45,"time":"7:30"}`)

			Convey("Then the group rides at the implied speed", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode(w)["speed_kmh"], ShouldAlmostEqual, 40.0, 1e-9)
			})
		})

		Convey("When the target power is zero", func() {
			w := do(mux, "POST", "/v1/group", `{`+climbCourse+`,"riders":3,"gap_m":0.5,"power_w":0}`)

			Convey("Then the standstill is reported as degenerate", func() {
				So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
				So(decode(w)["code"], ShouldEqual, "degenerate_solution")
			})
		})

		Convey("When the group speed is zero", func() {
			w := do(mux, "POST", "/v1/group", `{`+climbCourse+`,"riders":3,"gap_m":0.5,"speed_kmh":0}`)
			So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
			So(decode(w)["code"], ShouldEqual, "degenerate_solution")
		})

		Convey("When the request is invalid", func() {
			cases := []string{
				`{` + climbCourse + `,"riders":2,"gap_m":0.45}`,
				`{` + climbCourse + `,"riders":2,"speed_kmh":30,"power_w":200}`,
				`{` + climbCourse + `,"speed_kmh":30}`,
				`{` + climbCourse + `,"members":[{"position":1},{"position":3}],"speed_kmh":30}`,
				`{` + climbCourse + `,"riders":2,"gap_m":-1,"speed_kmh":30}`,
			}
			for _, body := range cases {
				w := do(mux, "POST", "/v1/group", body)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			}
		})
	})
}

func TestDraft(t *testing.T) {
	Convey("Given the API over a service", t, func() {
		mux, _ := newTestServer(t, false)

		Convey("When asking the dynamic model about a pair", func() {
			w := do(mux, "POST", "/v1/draft", `{"riders":2,"position":2,"speed_kmh":40,"gap_m":0.45,"cda_m2":0.35}`)
			body := decode(w)

			Convey("Then the regression multiplier comes back", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(body["model"], ShouldEqual, "dynamic")
				So(body["multiplier"], ShouldAlmostEqual, 0.67398, 1e-4)
				So(body["effective_cda_m2"], ShouldAlmostEqual, 0.35*0.67398, 1e-4)
			})
		})

		Convey("When asking the legacy model", func() {
			w := do(mux, "POST", "/v1/draft", `{"model":"legacy","riders":2,"position":2,"speed_kmh":40}`)
			body := decode(w)

			Convey("Then the table value comes back", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(body["model"], ShouldEqual, "legacy")
				So(body["multiplier"], ShouldAlmostEqual, 0.955, 1e-9)
			})
		})

		Convey("When the front rider shares no time at the front", func() {
			w := do(mux, "POST", "/v1/draft", `{"riders":3,"position":1,"speed_kmh":40,"gap_m":0.5}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["multiplier"], ShouldEqual, 1.0)
		})

		Convey("When the model or position is wrong", func() {
			So(do(mux, "POST", "/v1/draft", `{"model":"tailwind","riders":2,"position":2}`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, "POST", "/v1/draft", `{"riders":2,"position":5}`).Code, ShouldEqual, http.StatusBadRequest)
			for _, duty := range []string{"1.7", "-0.2"} {
				w := do(mux, "POST", "/v1/draft",
					`{"riders":2,"position":2,"speed_kmh":40,"gap_m":0.45,"duty_cycle":`+duty+`}`)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decode(w)["code"], ShouldEqual, "bad_request")
			}
		})
	})
}

func TestJobs(t *testing.T) {
	Convey("Given the API over a started service", t, func() {
		mux, _ := newTestServer(t, true)

		scenarioJSON := func(id string) string {
			return `{"id":"` + id + `","mode":"time_to_power","rider":{"body_mass_kg":70,"gear_mass_kg":8},` +
				`"segment":{"grade":0.06,"distance_m":5000,"start_elevation_m":-150},` +
				`"resistance":{"crr":0.005,"cda_m2":0.35},"loss":0.025,"target":450}`
		}

		Convey("When submitting a batch with a duplicate and an invalid item", func() {
			batch := `{"scenarios":[` + scenarioJSON("job-1") + `,` + scenarioJSON("job-1") +
				`,{"id":"job-bad","mode":"sideways"}]}`
			w := do(mux, "POST", "/v1/jobs", batch)
			body := decode(w)

			Convey("Then each item reports its own status", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(body["accepted"], ShouldEqual, 1.0)
				So(body["duplicates"], ShouldEqual, 1.0)
				So(body["rejected"], ShouldEqual, 1.0)
			})

			Convey("Then the job result can be fetched", func() {
				var rec map[string]any
				deadline := time.Now().Add(5 * time.Second)
				for time.Now().Before(deadline) {
					g := do(mux, "GET", "/v1/jobs/job-1", "")
					rec = decode(g)
					if rec["status"] == "done" {
						break
					}
					time.Sleep(5 * time.Millisecond)
				}
				So(rec["status"], ShouldEqual, "done")
				result, ok := rec["result"].(map[string]any)
				So(ok, ShouldBeTrue)
				So(result["power_w"], ShouldAlmostEqual, 867.19, 0.5)

				l := do(mux, "GET", "/v1/jobs?status=done&limit=10", "")
				So(l.Code, ShouldEqual, http.StatusOK)
				So(decode(l)["count"], ShouldEqual, 1.0)
			})
		})

		Convey("When fetching an unknown job", func() {
			w := do(mux, "GET", "/v1/jobs/nope", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(decode(w)["code"], ShouldEqual, "not_found")
		})

		Convey("When listing with bad parameters", func() {
			So(do(mux, "GET", "/v1/jobs?status=lost", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, "GET", "/v1/jobs?limit=-2", "").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the batch is empty", func() {
			So(do(mux, "POST", "/v1/jobs", `{"scenarios":[]}`).Code, ShouldEqual, http.StatusBadRequest)
		})
	})

	Convey("Given a service that was never started", t, func() {
		mux, _ := newTestServer(t, false)

		Convey("Then batch endpoints are unavailable", func() {
			w := do(mux, "POST", "/v1/jobs", `{"scenarios":[{"mode":"time_to_power"}]}`)
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			So(do(mux, "GET", "/v1/jobs/x", "").Code, ShouldEqual, http.StatusServiceUnavailable)
		})
	})
}

func TestPresetsAndRoute(t *testing.T) {
	Convey("Given the API over a service", t, func() {
		mux, _ := newTestServer(t, false)

		Convey("When reading presets", func() {
			w := do(mux, "GET", "/v1/presets", "")
			var body struct {
				Crr       map[string]map[string]float64 `json:"crr"`
				Positions []map[string]any              `json:"positions"`
				Defaults  map[string]float64            `json:"defaults"`
			}
			So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)

			Convey("Then tables and defaults are listed", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(body.Crr["road"]["asphalt"], ShouldEqual, 0.0050)
				So(len(body.Positions), ShouldBeGreaterThan, 0)
				So(body.Defaults["cda_m2"], ShouldEqual, 0.40)
				So(body.Defaults["loss"], ShouldEqual, 0.035)
			})
		})

		Convey("When uploading a GPX track", func() {
			doc := `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1">
  <trk><name>ramp</name><trkseg>
    <trkpt lat="46.0000" lon="7.0000"><ele>500</ele></trkpt>
    <trkpt lat="46.0090" lon="7.0000"><ele>550</ele></trkpt>
  </trkseg></trk>
</gpx>`
			req := httptest.NewRequest("POST", "/v1/route/gpx", bytes.NewBufferString(doc))
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			body := decode(w)

			Convey("Then the segment is derived", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(body["name"], ShouldEqual, "ramp")
				So(body["distance_km"], ShouldAlmostEqual, 1.0, 0.01)
				So(body["grade_pct"], ShouldAlmostEqual, 5.0, 0.1)
			})
		})

		Convey("When uploading garbage", func() {
			w := do(mux, "POST", "/v1/route/gpx", "not xml at all")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestHealthAndStats(t *testing.T) {
	Convey("Given the API over a started service", t, func() {
		mux, _ := newTestServer(t, true)

		Convey("When scraping health after a request", func() {
			_ = do(mux, "GET", "/v1/presets", "")
			w := do(mux, "GET", "/healthz", "")

			Convey("Then Prometheus metrics are exposed", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, "veloperf_predictor_http_requests_total")
			})
		})

		Convey("When reading stats", func() {
			w := do(mux, "GET", "/stats", "")
			body := decode(w)

			Convey("Then service state is reported", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(body["started"], ShouldBeTrue)
				So(body["workerCount"], ShouldEqual, 2.0)
				So(body["draftingModel"], ShouldEqual, "dynamic")
			})
		})
	})
}
