package live_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okian/zscore/internal/adapters/http/live"
	service "github.com/okian/zscore/internal/app"
	"github.com/okian/zscore/internal/domain/form"
	"github.com/okian/zscore/internal/domain/zscore"
	"github.com/okian/zscore/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(logger.WithOutput(io.Discard)); err != nil {
		panic(err)
	}
}

// startHub serves a hub from a test server and returns its ws:// URL.
func startHub(t *testing.T, opts ...live.Option) (string, *live.Hub) {
	t.Helper()
	svc := service.New()
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start service: %v", err)
	}
	hub := live.New(svc, opts...)
	mux := http.NewServeMux()
	hub.Register(context.Background(), mux)
	srv := httptest.NewServer(mux)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws", hub
}

func dial(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// readMessage reads one envelope from conn with a short deadline.
func readMessage(t *testing.T, conn *websocket.Conn) live.Message {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	var msg live.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal %s: %v", data, err)
	}
	return msg
}

func send(t *testing.T, conn *websocket.Conn, a form.Action) live.Message {
	t.Helper()
	if err := conn.WriteJSON(a); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	return readMessage(t, conn)
}

func waitForCount(hub *live.Hub, n int) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.Count() == n {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

func TestHub_Session(t *testing.T) {
	Convey("Given a connected live session", t, func() {
		wsURL, hub := startHub(t)
		conn := dial(t, wsURL)
		initial := readMessage(t, conn)

		Convey("Then the empty form is sent on connect", func() {
			So(initial.Event, ShouldEqual, live.EventForm)
			So(initial.Data, ShouldNotBeNil)
			So(initial.Data.Ready, ShouldBeFalse)
			So(initial.Data.Result, ShouldBeNil)
			So(waitForCount(hub, 1), ShouldBeTrue)
		})

		Convey("When the three fields are entered", func() {
			send(t, conn, form.Action{Type: form.ActionSet, Field: "observedValue", Value: "65"})
			send(t, conn, form.Action{Type: form.ActionSet, Field: "mean", Value: "75"})
			msg := send(t, conn, form.Action{Type: form.ActionSet, Field: "standardDeviation", Value: "5"})

			Convey("Then the result is pushed without an explicit calculate", func() {
				So(msg.Event, ShouldEqual, live.EventForm)
				So(msg.Data.Ready, ShouldBeTrue)
				So(msg.Data.ZScoreText, ShouldEqual, "-2.000")
				So(msg.Data.Result.Tier, ShouldEqual, zscore.SignificantlyBelow)
				So(msg.Data.Result.Qualifier, ShouldEqual, zscore.Negative)
			})

			Convey("And a reset clears the session", func() {
				reset := send(t, conn, form.Action{Type: form.ActionReset})
				So(reset.Data.Result, ShouldBeNil)
				So(reset.Data.Input, ShouldResemble, zscore.Input{})
			})
		})

		Convey("When calculating an incomplete form", func() {
			msg := send(t, conn, form.Action{Type: form.ActionCalculate})

			Convey("Then the notice is raised once", func() {
				So(msg.Data.Notice, ShouldNotBeNil)
				So(msg.Data.Notice.Title, ShouldEqual, form.NoticeValidationTitle)
				So(msg.Data.Errors, ShouldContainKey, zscore.FieldMean)

				next := send(t, conn, form.Action{Type: form.ActionSet, Field: "mean", Value: "1"})
				So(next.Data.Notice, ShouldBeNil)
				So(next.Data.Errors, ShouldNotContainKey, zscore.FieldMean)
				So(next.Data.Errors, ShouldContainKey, zscore.FieldObservedValue)
			})
		})

		Convey("When the entered values overflow the score", func() {
			send(t, conn, form.Action{Type: form.ActionSet, Field: "observedValue", Value: "1e10"})
			send(t, conn, form.Action{Type: form.ActionSet, Field: "mean", Value: "0"})
			send(t, conn, form.Action{Type: form.ActionSet, Field: "standardDeviation", Value: "1e-300"})
			msg := send(t, conn, form.Action{Type: form.ActionCalculate})

			Convey("Then the reply flags the observed value instead of going silent", func() {
				So(msg.Event, ShouldEqual, live.EventForm)
				So(msg.Data.Result, ShouldBeNil)
				So(msg.Data.Errors[zscore.FieldObservedValue], ShouldEqual, form.MessageInvalidNumber)
				So(msg.Data.Notice, ShouldNotBeNil)
			})
		})

		Convey("When a frame is malformed", func() {
			So(conn.WriteMessage(websocket.TextMessage, []byte("{not json")), ShouldBeNil)
			msg := readMessage(t, conn)

			Convey("Then an error event is sent and the session survives", func() {
				So(msg.Event, ShouldEqual, live.EventError)
				So(msg.Message, ShouldContainSubstring, "malformed frame")

				next := send(t, conn, form.Action{Type: form.ActionSet, Field: "mean", Value: "3"})
				So(next.Event, ShouldEqual, live.EventForm)
				So(next.Data.Input.Mean, ShouldEqual, "3")
			})
		})

		Convey("When an action names an unknown field", func() {
			msg := send(t, conn, form.Action{Type: form.ActionSet, Field: "median", Value: "3"})

			Convey("Then an error event is sent", func() {
				So(msg.Event, ShouldEqual, live.EventError)
				So(msg.Message, ShouldContainSubstring, "median")
			})
		})

		Convey("When the client disconnects", func() {
			So(waitForCount(hub, 1), ShouldBeTrue)
			_ = conn.Close()

			Convey("Then the session is removed", func() {
				So(waitForCount(hub, 0), ShouldBeTrue)
			})
		})
	})
}

func TestHub_Isolation(t *testing.T) {
	Convey("Given two live sessions", t, func() {
		wsURL, _ := startHub(t)
		a := dial(t, wsURL)
		b := dial(t, wsURL)
		readMessage(t, a)
		readMessage(t, b)

		Convey("When one session edits its form", func() {
			send(t, a, form.Action{Type: form.ActionSet, Field: "mean", Value: "10"})
			msg := send(t, b, form.Action{Type: form.ActionSet, Field: "observedValue", Value: "4"})

			Convey("Then the other session's form is unaffected", func() {
				So(msg.Data.Input.Mean, ShouldBeEmpty)
				So(msg.Data.Input.ObservedValue, ShouldEqual, "4")
			})
		})
	})
}

func TestHub_Origins(t *testing.T) {
	Convey("Given a hub allowing one cross origin", t, func() {
		wsURL, _ := startHub(t, live.WithAllowedOrigins([]string{"https://app.example"}))

		dialFrom := func(origin string) (*websocket.Conn, *http.Response, error) {
			h := http.Header{}
			h.Set("Origin", origin)
			return websocket.DefaultDialer.Dial(wsURL, h)
		}

		Convey("Then the allowed origin connects", func() {
			conn, _, err := dialFrom("https://app.example")
			So(err, ShouldBeNil)
			_ = conn.Close()
		})

		Convey("Then other origins are refused", func() {
			conn, resp, err := dialFrom("https://other.example")
			So(err, ShouldNotBeNil)
			So(conn, ShouldBeNil)
			So(resp, ShouldNotBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusForbidden)
		})
	})
}

func TestHub_Shutdown(t *testing.T) {
	Convey("Given a hub with a connected session", t, func() {
		svc := service.New()
		hub := live.New(svc, live.WithPingInterval(50*time.Millisecond), live.WithReadLimit(64))
		srv := httptest.NewServer(hub)
		defer srv.Close()
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			hub.Run(ctx)
			close(done)
		}()

		conn := dial(t, "ws"+strings.TrimPrefix(srv.URL, "http"))
		readMessage(t, conn)

		Convey("When a frame exceeds the read limit", func() {
			big := `{"type":"set","field":"mean","value":"` + strings.Repeat("9", 128) + `"}`
			So(conn.WriteMessage(websocket.TextMessage, []byte(big)), ShouldBeNil)

			Convey("Then the session is dropped", func() {
				So(waitForCount(hub, 0), ShouldBeTrue)
				cancel()
				<-done
			})
		})

		Convey("When the hub is stopped", func() {
			So(waitForCount(hub, 1), ShouldBeTrue)
			cancel()
			<-done

			Convey("Then every session is closed", func() {
				So(hub.Count(), ShouldEqual, 0)
				_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
				_, _, err := conn.ReadMessage()
				So(err, ShouldNotBeNil)
			})
		})
	})
}
