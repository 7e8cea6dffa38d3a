package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/starbot/internal/adapters/http/api"
	service "github.com/okian/starbot/internal/app"
	"github.com/okian/starbot/pkg/metrics"
	. "github.com/smartystreets/goconvey/convey"
)

type mockDependencies struct {
	last   *service.Result
	runErr error
	runs   int
	stats  map[string]interface{}
}

func (m *mockDependencies) GetStats() map[string]interface{} { return m.stats }

func (m *mockDependencies) LastResult() (service.Result, bool) {
	if m.last == nil {
		return service.Result{}, false
	}
	return *m.last, true
}

func (m *mockDependencies) RunOnce(context.Context) (service.Result, error) {
	m.runs++
	res := service.Result{RunID: "run-1", Outcome: service.OutcomeQuiet}
	if m.runErr != nil {
		res.Outcome = service.OutcomeFailed
		res.Error = m.runErr.Error()
	}
	m.last = &res
	return res, m.runErr
}

func serve(deps *mockDependencies, method, path string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	api.NewServer(deps).Register(context.Background(), mux)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := &mockDependencies{stats: map[string]interface{}{"runs": 3, "started": true}}

		Convey("When requesting /healthz", func() {
			metrics.RecordNotification("sent")
			w := serve(deps, http.MethodGet, "/healthz")

			Convey("Then Prometheus metrics are served", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, "starbot_leaderboard_notifications_total")
			})
		})

		Convey("When requesting /stats", func() {
			w := serve(deps, http.MethodGet, "/stats")

			Convey("Then service stats are returned as JSON", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldStartWith, "application/json")
				var body map[string]interface{}
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body["runs"], ShouldEqual, 3)
				So(body["started"], ShouldEqual, true)
			})
		})

		Convey("When posting to /stats", func() {
			w := serve(deps, http.MethodPost, "/stats")

			Convey("Then the method is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
			})
		})
	})
}

func TestReportHandler(t *testing.T) {
	Convey("Given no completed run", t, func() {
		w := serve(&mockDependencies{}, http.MethodGet, "/report")

		Convey("Then /report answers not found", func() {
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(w.Body.String(), ShouldContainSubstring, "not_found")
		})
	})

	Convey("Given a completed run", t, func() {
		deps := &mockDependencies{last: &service.Result{RunID: "abc", Outcome: service.OutcomeNotified, Text: "hi", Delivered: true}}
		w := serve(deps, http.MethodGet, "/report")

		Convey("Then the run is returned", func() {
			So(w.Code, ShouldEqual, http.StatusOK)
			var res service.Result
			So(json.Unmarshal(w.Body.Bytes(), &res), ShouldBeNil)
			So(res.RunID, ShouldEqual, "abc")
			So(res.Outcome, ShouldEqual, service.OutcomeNotified)
			So(res.Delivered, ShouldBeTrue)
		})
	})
}

func TestRunHandler(t *testing.T) {
	Convey("Given the run endpoint", t, func() {
		deps := &mockDependencies{}

		Convey("When called with GET", func() {
			w := serve(deps, http.MethodGet, "/run")

			Convey("Then nothing runs", func() {
				So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
				So(deps.runs, ShouldEqual, 0)
			})
		})

		Convey("When a run succeeds", func() {
			w := serve(deps, http.MethodPost, "/run")

			Convey("Then its result is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.runs, ShouldEqual, 1)
				So(w.Body.String(), ShouldContainSubstring, `"run_id":"run-1"`)
			})
		})

		Convey("When a run fails", func() {
			deps.runErr = errors.New("leaderboard down")
			w := serve(deps, http.MethodPost, "/run")

			Convey("Then the failure is reported as a bad gateway", func() {
				So(w.Code, ShouldEqual, http.StatusBadGateway)
				So(strings.Contains(w.Body.String(), "leaderboard down"), ShouldBeTrue)
			})
		})
	})
}
