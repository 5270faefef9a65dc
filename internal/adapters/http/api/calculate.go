package api

import (
	"net/http"

	"github.com/okian/zscore/internal/domain/zscore"
)

// CalculateHandler serves the stateless calculator endpoints.
type CalculateHandler struct {
	deps Dependencies
}

// NewCalculateHandler creates a new calculator handler.
func NewCalculateHandler(deps Dependencies) *CalculateHandler {
	return &CalculateHandler{deps: deps}
}

// HandleValidate handles POST /api/v1/zscore/validate. Invalid inputs are
// reported in the body with status 200.
func (h *CalculateHandler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var req inputRequest
	if err := decodeJSON(w, r, "validate", &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	errs := h.deps.Validate(r.Context(), req.input())
	if errs == nil {
		errs = zscore.FieldErrors{}
	}
	writeJSON(w, http.StatusOK, validateResponse{Valid: errs.Valid(), Errors: errs})
}

// HandleCalculate handles POST /api/v1/zscore/calculate.
func (h *CalculateHandler) HandleCalculate(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var req inputRequest
	if err := decodeJSON(w, r, "calculate", &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	h.respond(w, r, req.input())
}

// HandleQuery handles GET /api/v1/zscore with the inputs as query parameters.
func (h *CalculateHandler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	q := r.URL.Query()
	h.respond(w, r, zscore.Input{
		ObservedValue:     q.Get(string(zscore.FieldObservedValue)),
		Mean:              q.Get(string(zscore.FieldMean)),
		StandardDeviation: q.Get(string(zscore.FieldStandardDeviation)),
	})
}

func (h *CalculateHandler) respond(w http.ResponseWriter, r *http.Request, in zscore.Input) {
	res, errs := h.deps.Calculate(r.Context(), in)
	if !errs.Valid() {
		writeValidation(w, errs)
		return
	}
	writeJSON(w, http.StatusOK, newCalculateResponse(res))
}
