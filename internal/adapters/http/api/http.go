// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/okian/zscore/internal/domain/form"
	"github.com/okian/zscore/internal/domain/zscore"
)

// maxBodyBytes caps every JSON request body.
const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Validate(ctx context.Context, in zscore.Input) zscore.FieldErrors
	Calculate(ctx context.Context, in zscore.Input) (*zscore.Result, zscore.FieldErrors)
	ApplyForm(ctx context.Context, f form.Form, a form.Action) (form.Form, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	calculateHandler *CalculateHandler
	formHandler      *FormHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(statsProvider),
		calculateHandler: NewCalculateHandler(deps),
		formHandler:      NewFormHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/api/v1/zscore/validate", MetricsMiddleware(s.calculateHandler.HandleValidate, "validate"))
	mux.HandleFunc("/api/v1/zscore/calculate", MetricsMiddleware(s.calculateHandler.HandleCalculate, "calculate"))
	mux.HandleFunc("/api/v1/zscore", MetricsMiddleware(s.calculateHandler.HandleQuery, "query"))
	mux.HandleFunc("/api/v1/form", MetricsMiddleware(s.formHandler.HandleForm, "form"))
}

// inputRequest mirrors the OpenAPI schema for the calculator endpoints. Each
// field accepts either a JSON string or a JSON number.
type inputRequest struct {
	ObservedValue     rawNumber `json:"observedValue"`
	Mean              rawNumber `json:"mean"`
	StandardDeviation rawNumber `json:"standardDeviation"`
}

func (r inputRequest) input() zscore.Input {
	return zscore.Input{
		ObservedValue:     string(r.ObservedValue),
		Mean:              string(r.Mean),
		StandardDeviation: string(r.StandardDeviation),
	}
}

// rawNumber keeps the literal text of a JSON string or number so it can go
// through the same validation as typed input. null decodes to "".
type rawNumber string

func (n *rawNumber) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	switch {
	case s == "null":
		*n = ""
	case strings.HasPrefix(s, `"`):
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*n = rawNumber(str)
	default:
		var num json.Number
		if err := json.Unmarshal(b, &num); err != nil {
			return fmt.Errorf("expected a string or number, got %s", s)
		}
		*n = rawNumber(num.String())
	}
	return nil
}

type validateResponse struct {
	Valid  bool               `json:"valid"`
	Errors zscore.FieldErrors `json:"errors"`
}

type calculateResponse struct {
	zscore.Result
	ZScoreText string `json:"zScoreText"`
}

func newCalculateResponse(r *zscore.Result) calculateResponse {
	return calculateResponse{Result: *r, ZScoreText: zscore.FormatScore(r.ZScore)}
}

type errorResponse struct {
	Code    string             `json:"code"`
	Message string             `json:"message"`
	Errors  zscore.FieldErrors `json:"errors,omitempty"`
}

// writeJSON encodes v before committing status, so an unencodable value
// becomes a 500 rather than an empty success.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body, _ = json.Marshal(errorResponse{
			Code:    "internal",
			Message: WrapKind("encode", ErrInternal, err).Error(),
		})
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

func writeValidation(w http.ResponseWriter, errs zscore.FieldErrors) {
	writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
		Code:    "validation_failed",
		Message: errs.Err().Error(),
		Errors:  errs,
	})
}

// writeDecodeError reports a decodeJSON failure.
func writeDecodeError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrTooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "too_large", err)
		return
	}
	writeError(w, http.StatusBadRequest, "bad_request", err)
}

// allowMethod writes 405 with an Allow header unless r uses method.
func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed",
		NewKind(r.Method+" "+r.URL.Path, ErrMethodNotAllowed))
	return false
}

// decodeJSON reads a single JSON document from the capped request body.
func decodeJSON(w http.ResponseWriter, r *http.Request, op string, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return WrapKind(op, ErrTooLarge, err)
		}
		if errors.Is(err, io.EOF) {
			return WrapKind(op, ErrBadRequest, errors.New("empty body"))
		}
		return WrapKind(op, ErrBadRequest, err)
	}
	if dec.More() {
		return WrapKind(op, ErrBadRequest, errors.New("trailing data after JSON body"))
	}
	return nil
}
