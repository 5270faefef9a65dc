package api

import (
	"errors"
	"net/http"

	"github.com/okian/zscore/internal/domain/form"
)

// formRequest carries the caller's current form and the interaction to run.
type formRequest struct {
	Form   form.Form   `json:"form"`
	Action form.Action `json:"action"`
}

// FormHandler runs form interactions for pages without a live connection.
type FormHandler struct {
	deps Dependencies
}

// NewFormHandler creates a new form handler.
func NewFormHandler(deps Dependencies) *FormHandler {
	return &FormHandler{deps: deps}
}

// HandleForm handles POST /api/v1/form and returns the next form view.
func (h *FormHandler) HandleForm(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var req formRequest
	if err := decodeJSON(w, r, "form", &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	// Results are always derived server side.
	req.Form.Result = nil
	req.Form.Notice = nil

	next, err := h.deps.ApplyForm(r.Context(), req.Form, req.Action)
	if err != nil {
		if errors.Is(err, form.ErrUnknownAction) || errors.Is(err, form.ErrUnknownField) {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind("form", ErrBadRequest, err))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal", WrapKind("form", ErrInternal, err))
		return
	}
	writeJSON(w, http.StatusOK, next.View())
}
