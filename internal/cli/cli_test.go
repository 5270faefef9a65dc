package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/okian/zscore/internal/adapters/http/api"
	service "github.com/okian/zscore/internal/app"
	"github.com/okian/zscore/internal/cli"
	"github.com/okian/zscore/internal/domain/zscore"
	"github.com/okian/zscore/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(logger.WithOutput(io.Discard)); err != nil {
		panic(err)
	}
}

func newAPIServer() *httptest.Server {
	svc := service.New()
	_ = svc.Start(context.Background())
	mux := http.NewServeMux()
	api.NewServer(svc, svc).Register(context.Background(), mux)
	return httptest.NewServer(mux)
}

// execute runs the CLI with args and returns stdout, stderr and the error.
func execute(args ...string) (string, string, error) {
	var stdout, stderr bytes.Buffer
	cmd := cli.NewRootCmd("test", &stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestCalcCommand(t *testing.T) {
	Convey("Given the local calc command", t, func() {
		Convey("When computing with table output", func() {
			stdout, stderr, err := execute("calc", "--observed", "85", "--mean", "75", "--sd", "5")

			Convey("Then the result row and interpretation are printed", func() {
				So(err, ShouldBeNil)
				So(stdout, ShouldContainSubstring, "Z-SCORE")
				So(stdout, ShouldContainSubstring, "2.000")
				So(stdout, ShouldContainSubstring, "SignificantlyAbove")
				So(stderr, ShouldContainSubstring, zscore.SignificantlyAbove.Interpretation())
			})
		})

		Convey("When computing with JSON output", func() {
			stdout, _, err := execute("calc", "--observed", "70", "--mean", "75", "--sd", "5", "-o", "json")

			Convey("Then the full result is encoded", func() {
				So(err, ShouldBeNil)
				var v map[string]interface{}
				So(json.Unmarshal([]byte(stdout), &v), ShouldBeNil)
				So(v["zScore"], ShouldEqual, -1.0)
				So(v["zScoreText"], ShouldEqual, "-1.000")
				So(v["interpretationTier"], ShouldEqual, "Below")
				So(v["qualifier"], ShouldEqual, "negative")
			})
		})

		Convey("When computing with YAML output", func() {
			stdout, _, err := execute("calc", "--observed", "75", "--mean", "75", "--sd", "5", "--output", "yaml")

			Convey("Then the result is YAML", func() {
				So(err, ShouldBeNil)
				var v map[string]interface{}
				So(yaml.Unmarshal([]byte(stdout), &v), ShouldBeNil)
				So(v["interpretationTier"], ShouldEqual, "AtMean")
				So(v["magnitudeDescription"], ShouldEqual, "exactly at the mean")
			})
		})

		Convey("When the spread is zero", func() {
			_, _, err := execute("calc", "--observed", "80", "--mean", "75", "--sd", "0")

			Convey("Then a validation error is returned", func() {
				So(errors.Is(err, zscore.ErrValidation), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "standardDeviation=NonPositiveSpread")
			})
		})

		Convey("When a flag is missing", func() {
			_, _, err := execute("calc", "--observed", "80", "--mean", "75")

			Convey("Then cobra rejects the call", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "sd")
			})
		})

		Convey("When the output format is unknown", func() {
			_, _, err := execute("calc", "--observed", "1", "--mean", "1", "--sd", "1", "-o", "xml")

			Convey("Then the call fails before computing", func() {
				So(errors.Is(err, cli.ErrUnknownFormat), ShouldBeTrue)
			})
		})
	})
}

func TestRemoteCommands(t *testing.T) {
	Convey("Given a running API server", t, func() {
		srv := newAPIServer()
		defer srv.Close()

		Convey("When calculating remotely", func() {
			stdout, _, err := execute("--api-url", srv.URL, "remote", "calc",
				"--observed", "85", "--mean", "75", "--sd", "5", "-o", "json")

			Convey("Then the server's result is printed", func() {
				So(err, ShouldBeNil)
				So(stdout, ShouldContainSubstring, `"interpretationTier": "SignificantlyAbove"`)
			})
		})

		Convey("When calculating through the query endpoint", func() {
			stdout, _, err := execute("--api-url", srv.URL, "remote", "calc", "--query",
				"--observed", "72.5", "--mean", "75", "--sd", "5")

			Convey("Then the same result is printed", func() {
				So(err, ShouldBeNil)
				So(stdout, ShouldContainSubstring, "-0.500")
				So(stdout, ShouldContainSubstring, "SlightlyBelow")
			})
		})

		Convey("When the server rejects the inputs", func() {
			_, _, err := execute("--api-url", srv.URL, "remote", "calc",
				"--observed", "abc", "--mean", "75", "--sd", "5")

			Convey("Then the API error names the field", func() {
				var apiErr *cli.APIError
				So(errors.As(err, &apiErr), ShouldBeTrue)
				So(apiErr.Status, ShouldEqual, http.StatusUnprocessableEntity)
				So(apiErr.Errors[zscore.FieldObservedValue], ShouldEqual, zscore.InvalidNumber)
				So(err.Error(), ShouldEqual, "validation_failed: observedValue=InvalidNumber")
			})
		})

		Convey("When validating remotely", func() {
			stdout, _, err := execute("--api-url", srv.URL, "remote", "validate",
				"--observed", "1", "--mean", "2", "--sd", "-1")

			Convey("Then each field's status is listed", func() {
				So(err, ShouldBeNil)
				So(stdout, ShouldContainSubstring, "FIELD")
				So(stdout, ShouldContainSubstring, "NonPositiveSpread")
				So(strings.Count(stdout, "ok"), ShouldEqual, 2)
			})
		})
	})
}

func TestProbeCommand(t *testing.T) {
	Convey("Given a correct server", t, func() {
		srv := newAPIServer()
		defer srv.Close()

		Convey("When probing it", func() {
			stdout, stderr, err := execute("--api-url", srv.URL, "probe")

			Convey("Then every scenario passes", func() {
				So(err, ShouldBeNil)
				So(strings.Count(stdout, "PASS"), ShouldEqual, len(cli.Scenarios()))
				So(stdout, ShouldNotContainSubstring, "FAIL")
				So(stderr, ShouldContainSubstring, "All 5 scenarios passed")
			})
		})
	})

	Convey("Given a server that answers every calculation at the mean", t, func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {})
		mux.HandleFunc("/api/v1/zscore/calculate", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"zScore":0,"zScoreText":"0.000","interpretationTier":"AtMean",` +
				`"magnitudeDescription":"exactly at the mean","interpretation":"` +
				zscore.AtMean.Interpretation() + `","qualifier":"neutral"}`))
		})
		srv := httptest.NewServer(mux)
		defer srv.Close()

		Convey("When probing it", func() {
			stdout, _, err := execute("--api-url", srv.URL, "probe", "-o", "json")

			Convey("Then the mismatches fail the probe", func() {
				So(errors.Is(err, cli.ErrProbeFailed), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "4 of 5")

				var results []cli.ProbeResult
				So(json.Unmarshal([]byte(stdout), &results), ShouldBeNil)
				So(results, ShouldHaveLength, 5)
				So(results[2].Passed, ShouldBeTrue)
				So(results[0].Detail, ShouldContainSubstring, "want z=2.000")
				So(results[3].Detail, ShouldContainSubstring, "standardDeviation=NonPositiveSpread")
			})
		})
	})

	Convey("Given no server", t, func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		Convey("When probing", func() {
			_, _, err := execute("--api-url", url, "probe")

			Convey("Then the probe fails on the health check", func() {
				So(errors.Is(err, cli.ErrProbeFailed), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "not healthy")
			})
		})
	})
}

func TestParseFormat(t *testing.T) {
	Convey("Given output format names", t, func() {
		for in, want := range map[string]string{"": "table", "TABLE": "table", "json": "json", " yaml ": "yaml"} {
			got, err := cli.ParseFormat(in)
			So(err, ShouldBeNil)
			So(got, ShouldEqual, want)
		}
		_, err := cli.ParseFormat("csv")
		So(errors.Is(err, cli.ErrUnknownFormat), ShouldBeTrue)
	})
}
