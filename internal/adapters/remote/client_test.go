package remote_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/wellness/internal/adapters/remote"
	"github.com/okian/wellness/internal/domain/model"
	"github.com/okian/wellness/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// recorded captures what the fake service received.
type recorded struct {
	method string
	path   string
	rawURI string
	query  string
	body   map[string]any
	header http.Header
}

func newServer(t *testing.T, status int, body string) (*httptest.Server, *[]recorded) {
	t.Helper()
	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{method: r.Method, path: r.URL.Path, rawURI: r.RequestURI, query: r.URL.RawQuery, header: r.Header.Clone()}
		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			_ = json.Unmarshal(data, &rec.body)
		}
		calls = append(calls, rec)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newClient(t *testing.T, baseURL string, opts ...remote.Option) *remote.Client {
	t.Helper()
	c, err := remote.New(baseURL, append([]remote.Option{remote.WithLogger(logger.Nop())}, opts...)...)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestNew(t *testing.T) {
	Convey("Given client construction", t, func() {
		Convey("When the base url is relative", func() {
			_, err := remote.New("localhost:9090")

			Convey("Then it is rejected", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When the base url has a trailing slash", func() {
			srv, calls := newServer(t, http.StatusOK, `{"message":"ok"}`)
			c := newClient(t, srv.URL+"/")
			c.CreateIdentity(context.Background(), "Ada", "ada@example.com")

			Convey("Then paths are not doubled", func() {
				So((*calls)[0].path, ShouldEqual, "/create_user")
			})
		})
	})
}

func TestCreateIdentity(t *testing.T) {
	Convey("Given a service that accepts registrations", t, func() {
		srv, calls := newServer(t, http.StatusOK, `{"message":"User Ada added successfully","user":1}`)
		c := newClient(t, srv.URL, remote.WithRequestIDFunc(func() string { return "req-1" }))

		Convey("When creating an identity", func() {
			res := c.CreateIdentity(context.Background(), " Ada ", "ada@example.com")

			Convey("Then the service message is returned", func() {
				So(res.OK(), ShouldBeTrue)
				So(res.Message, ShouldEqual, "User Ada added successfully")
				So(res.Status, ShouldEqual, http.StatusOK)
			})

			Convey("And the request matches the wire contract", func() {
				So(*calls, ShouldHaveLength, 1)
				call := (*calls)[0]
				So(call.method, ShouldEqual, http.MethodPost)
				So(call.path, ShouldEqual, "/create_user")
				So(call.body["name"], ShouldEqual, "Ada")
				So(call.body["email"], ShouldEqual, "ada@example.com")
				So(call.header.Get("Content-Type"), ShouldEqual, "application/json")
				So(call.header.Get("X-Request-ID"), ShouldEqual, "req-1")
			})
		})

		Convey("When the email is blank", func() {
			res := c.CreateIdentity(context.Background(), "Ada", " ")

			Convey("Then no request is sent", func() {
				So(res.Kind, ShouldEqual, remote.KindGuardViolation)
				So(*calls, ShouldBeEmpty)
			})
		})
	})

	Convey("Given a service that reports duplicates in-band", t, func() {
		srv, _ := newServer(t, http.StatusOK, `{"error":"An error occurred: UNIQUE constraint failed: users.email"}`)
		c := newClient(t, srv.URL)

		Convey("When creating an identity", func() {
			res := c.CreateIdentity(context.Background(), "Ada", "ada@example.com")

			Convey("Then it is a service failure with the detail kept", func() {
				So(res.OK(), ShouldBeFalse)
				So(res.Kind, ShouldEqual, remote.KindServiceFailure)
				So(errors.Is(res.Err, remote.ErrService), ShouldBeTrue)
				So(res.Message, ShouldEqual, remote.MsgCreateFailed)
				So(res.Detail, ShouldContainSubstring, "UNIQUE constraint")
			})
		})
	})
}

func TestSubmitMetrics(t *testing.T) {
	Convey("Given a service that stores metrics", t, func() {
		srv, calls := newServer(t, http.StatusOK, `{"message":"Metrics with id 3 created for user 1"}`)
		c := newClient(t, srv.URL)
		entry := model.MetricEntry{Steps: 10000, CaloriesBurned: 500, SleepHours: 7}

		Convey("When submitting for an email with a plus sign", func() {
			res := c.SubmitMetrics(context.Background(), "ada+fit@example.com", entry)

			Convey("Then the body uses the service field names", func() {
				So(res.OK(), ShouldBeTrue)
				call := (*calls)[0]
				So(call.path, ShouldEqual, "/health_metrics/ada+fit@example.com")
				So(call.body["steps"], ShouldEqual, float64(10000))
				So(call.body["calories_burnt_per_day"], ShouldEqual, float64(500))
				So(call.body["sleep_hrs"], ShouldEqual, float64(7))
			})
		})

		Convey("When submitting without an email", func() {
			res := c.SubmitMetrics(context.Background(), "", entry)

			Convey("Then it is a guard violation without network", func() {
				So(res.Kind, ShouldEqual, remote.KindGuardViolation)
				So(res.Message, ShouldEqual, remote.MsgRegisterFirst)
				So(errors.Is(res.Err, remote.ErrGuardViolation), ShouldBeTrue)
				So(*calls, ShouldBeEmpty)
			})
		})
	})

	Convey("Given a service that rejects the body", t, func() {
		srv, _ := newServer(t, http.StatusUnprocessableEntity, `{"detail":"steps must be an integer"}`)
		c := newClient(t, srv.URL)

		Convey("When submitting", func() {
			res := c.SubmitMetrics(context.Background(), "ada@example.com", model.MetricEntry{})

			Convey("Then it is a service failure", func() {
				So(res.Kind, ShouldEqual, remote.KindServiceFailure)
				So(res.Status, ShouldEqual, http.StatusUnprocessableEntity)
				So(res.Detail, ShouldEqual, "steps must be an integer")
				So(res.Message, ShouldEqual, remote.MsgSubmitFailed)
			})
		})
	})

	Convey("Given a service that answers 200 without a message", t, func() {
		srv, _ := newServer(t, http.StatusOK, `{}`)
		c := newClient(t, srv.URL)

		Convey("When submitting", func() {
			res := c.SubmitMetrics(context.Background(), "ada@example.com", model.MetricEntry{})

			Convey("Then it is a malformed response", func() {
				So(res.Kind, ShouldEqual, remote.KindMalformedResponse)
				So(errors.Is(res.Err, remote.ErrMalformedResponse), ShouldBeTrue)
			})
		})
	})
}

func TestFetchHistory(t *testing.T) {
	Convey("Given different history shapes", t, func() {
		cases := []struct {
			name  string
			body  string
			count int
		}{
			{"array", `{"metrics":[{"steps":10000,"calories_burnt_per_day":500,"sleep_hrs":7},{"steps":8000,"calories":2000,"sleep_hours":6.5}]}`, 2},
			{"single object", `{"metrics":{"id":4,"steps":10000,"calories":500,"sleep_hours":7,"date":"2024-11-02T08:30:00.123456"}}`, 1},
			{"null", `{"metrics":null}`, 0},
			{"missing", `{}`, 0},
			{"empty array", `{"metrics":[]}`, 0},
		}

		for _, tc := range cases {
			Convey("When the service returns "+tc.name, func() {
				srv, _ := newServer(t, http.StatusOK, tc.body)
				c := newClient(t, srv.URL)
				res := c.FetchHistory(context.Background(), "ada@example.com")

				Convey("Then it is normalised to a slice", func() {
					So(res.OK(), ShouldBeTrue)
					So(res.Value, ShouldNotBeNil)
					So(res.Value, ShouldHaveLength, tc.count)
				})
			})
		}
	})

	Convey("Given a single-object history with storage field names", t, func() {
		srv, calls := newServer(t, http.StatusOK, `{"metrics":{"id":4,"steps":10000,"calories":500,"sleep_hours":7,"date":"2024-11-02T08:30:00.123456"}}`)
		c := newClient(t, srv.URL)
		res := c.FetchHistory(context.Background(), "ada@example.com")

		Convey("Then aliases and timestamps are decoded", func() {
			So((*calls)[0].method, ShouldEqual, http.MethodGet)
			e := res.Value[0]
			So(e.ID, ShouldEqual, "4")
			So(e.Owner, ShouldEqual, "ada@example.com")
			So(e.SameMeasurements(model.MetricEntry{Steps: 10000, CaloriesBurned: 500, SleepHours: 7}), ShouldBeTrue)
			So(e.Timestamp.Equal(time.Date(2024, 11, 2, 8, 30, 0, 123456000, time.UTC)), ShouldBeTrue)
		})
	})

	Convey("Given broken history payloads", t, func() {
		for _, tc := range []struct{ name, body string }{
			{"a string", `{"metrics":"none"}`},
			{"a scalar element", `{"metrics":[1]}`},
			{"non-numeric steps", `{"metrics":{"steps":"many"}}`},
			{"non-JSON", `<html>oops</html>`},
		} {
			Convey("When metrics is "+tc.name, func() {
				srv, _ := newServer(t, http.StatusOK, tc.body)
				c := newClient(t, srv.URL)
				res := c.FetchHistory(context.Background(), "ada@example.com")

				Convey("Then it is a malformed response", func() {
					So(res.Kind, ShouldEqual, remote.KindMalformedResponse)
					So(res.Message, ShouldEqual, remote.MsgFetchFailed)
				})
			})
		}
	})

	Convey("Given a history body larger than the read limit", t, func() {
		big := `{"metrics":[` + strings.Repeat(`{"steps":1,"calories":1,"sleep_hours":1},`, remote.MaxResponseBytes/40) + `{"steps":1}]}`
		srv, _ := newServer(t, http.StatusOK, big)
		c := newClient(t, srv.URL)
		res := c.FetchHistory(context.Background(), "ada@example.com")

		Convey("Then it is reported as too large, not as broken JSON", func() {
			So(len(big), ShouldBeGreaterThan, remote.MaxResponseBytes)
			So(res.Kind, ShouldEqual, remote.KindMalformedResponse)
			So(errors.Is(res.Err, remote.ErrMalformedResponse), ShouldBeTrue)
			So(errors.Is(res.Err, remote.ErrResponseTooLarge), ShouldBeTrue)
			So(res.Message, ShouldEqual, remote.MsgFetchFailed)
		})
	})

	Convey("Given a body exactly at the read limit", t, func() {
		prefix, suffix := `{"metrics":[],"pad":"`, `"}`
		body := prefix + strings.Repeat("x", remote.MaxResponseBytes-len(prefix)-len(suffix)) + suffix
		srv, _ := newServer(t, http.StatusOK, body)
		c := newClient(t, srv.URL)
		res := c.FetchHistory(context.Background(), "ada@example.com")

		Convey("Then it is still parsed", func() {
			So(len(body), ShouldEqual, remote.MaxResponseBytes)
			So(res.OK(), ShouldBeTrue)
			So(res.Value, ShouldBeEmpty)
		})
	})

	Convey("Given no identity", t, func() {
		srv, calls := newServer(t, http.StatusOK, `{}`)
		c := newClient(t, srv.URL)
		res := c.FetchHistory(context.Background(), "")

		Convey("Then it is an explicit no-op", func() {
			So(res.Kind, ShouldEqual, remote.KindGuardViolation)
			So(*calls, ShouldBeEmpty)
		})
	})
}

func TestDeleteHistory(t *testing.T) {
	Convey("Given a service that deletes with an empty 204", t, func() {
		srv, calls := newServer(t, http.StatusNoContent, ``)
		c := newClient(t, srv.URL)
		res := c.DeleteHistory(context.Background(), "ada@example.com")

		Convey("Then delete succeeds without a body", func() {
			So(res.OK(), ShouldBeTrue)
			So(res.Value, ShouldBeTrue)
			So(res.Message, ShouldEqual, remote.MsgDeleted)
			So((*calls)[0].method, ShouldEqual, http.MethodDelete)
			So((*calls)[0].path, ShouldEqual, "/health_metrics/ada@example.com")
		})
	})

	Convey("Given a service that does not know the user", t, func() {
		srv, _ := newServer(t, http.StatusNotFound, `{"detail":"Email not found"}`)
		c := newClient(t, srv.URL)
		res := c.DeleteHistory(context.Background(), "ada@example.com")

		Convey("Then delete fails as a service failure", func() {
			So(res.Kind, ShouldEqual, remote.KindServiceFailure)
			So(res.Value, ShouldBeFalse)
			So(res.Message, ShouldEqual, remote.MsgDeleteFailed)
		})
	})
}

func TestRequestScore(t *testing.T) {
	Convey("Given a predictor returning a score", t, func() {
		srv, calls := newServer(t, http.StatusOK, `{"pred":72.5}`)
		c := newClient(t, srv.URL, remote.WithModelID("1"))
		res := c.RequestScore(context.Background(), "ada@example.com")

		Convey("Then the value is typed and the model id is in the path", func() {
			So(res.OK(), ShouldBeTrue)
			So(res.Value.Value, ShouldEqual, 72.5)
			call := (*calls)[0]
			So(call.method, ShouldEqual, http.MethodPost)
			So(call.path, ShouldEqual, "/predict-wellness/1")
			So(call.query, ShouldEqual, "email=ada%40example.com")
		})
	})

	Convey("Given predictor responses without a usable value", t, func() {
		for _, tc := range []struct{ name, body string }{
			{"missing pred", `{"prediction":70}`},
			{"string pred", `{"pred":"70"}`},
			{"null pred", `{"pred":null}`},
			{"in-band error", `{"error":"model not loaded"}`},
		} {
			Convey("When the response has "+tc.name, func() {
				srv, _ := newServer(t, http.StatusOK, tc.body)
				c := newClient(t, srv.URL)
				res := c.RequestScore(context.Background(), "ada@example.com")

				Convey("Then the score is unavailable", func() {
					So(res.OK(), ShouldBeFalse)
					So(res.Message, ShouldEqual, remote.MsgScoreUnavailable)
				})
			})
		}
	})

	Convey("Given a predictor that is down", t, func() {
		srv, _ := newServer(t, http.StatusInternalServerError, `Internal Server Error`)
		c := newClient(t, srv.URL)
		res := c.RequestScore(context.Background(), "ada@example.com")

		Convey("Then the failure is a service failure", func() {
			So(res.Kind, ShouldEqual, remote.KindServiceFailure)
			So(res.Status, ShouldEqual, http.StatusInternalServerError)
		})
	})
}

func TestTransportFailure(t *testing.T) {
	Convey("Given a server that is no longer listening", t, func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()
		c := newClient(t, url, remote.WithTimeout(time.Second))

		Convey("When any call is made", func() {
			res := c.FetchHistory(context.Background(), "ada@example.com")

			Convey("Then it is a transport failure, not a panic", func() {
				So(res.Kind, ShouldEqual, remote.KindTransportFailure)
				So(errors.Is(res.Err, remote.ErrTransport), ShouldBeTrue)
				So(res.Status, ShouldEqual, 0)
				So(remote.KindOf(res.Err), ShouldEqual, remote.KindTransportFailure)
			})
		})
	})

	Convey("Given a slow server and a short timeout", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-time.After(2 * time.Second):
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()
		c := newClient(t, srv.URL, remote.WithTimeout(50*time.Millisecond))

		Convey("Then the single attempt fails without retry", func() {
			res := c.RequestScore(context.Background(), "ada@example.com")
			So(res.Kind, ShouldEqual, remote.KindTransportFailure)
		})
	})
}

func TestSingleRoundTrip(t *testing.T) {
	Convey("Given a failing service", t, func() {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()
		c := newClient(t, srv.URL)

		Convey("Then each operation makes exactly one request", func() {
			ctx := context.Background()
			c.CreateIdentity(ctx, "Ada", "ada@example.com")
			c.SubmitMetrics(ctx, "ada@example.com", model.MetricEntry{})
			c.FetchHistory(ctx, "ada@example.com")
			c.DeleteHistory(ctx, "ada@example.com")
			c.RequestScore(ctx, "ada@example.com")
			So(hits.Load(), ShouldEqual, int32(5))
		})
	})
}

func TestRateLimit(t *testing.T) {
	Convey("Given a client limited to one request per second with burst one", t, func() {
		srv, _ := newServer(t, http.StatusOK, `{"metrics":[]}`)
		c := newClient(t, srv.URL, remote.WithRateLimit(1, 1))

		Convey("When the context expires while waiting for a token", func() {
			So(c.FetchHistory(context.Background(), "ada@example.com").OK(), ShouldBeTrue)
			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()
			res := c.FetchHistory(ctx, "ada@example.com")

			Convey("Then the call fails as transport without reaching the server", func() {
				So(res.Kind, ShouldEqual, remote.KindTransportFailure)
			})
		})
	})
}
