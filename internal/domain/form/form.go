// Package form models the transient state of the calculator page: the raw
// text of each field, the error message shown under it, and the last result.
//
// A Form is a value. Every operation returns a new Form and leaves the
// receiver untouched, so hosts (the live WebSocket session, the stateless
// HTTP endpoint, tests) own the state explicitly and pass it back in on each
// interaction.
package form

import (
	"github.com/okian/zscore/internal/domain/zscore"
)

// User-facing messages shown beneath an invalid field.
const (
	MessageInvalidNumber  = "Please enter a valid number"
	MessageSpreadPositive = "Standard deviation must be greater than 0"
)

// Notice texts raised when an explicit calculation is rejected.
const (
	NoticeValidationTitle       = "Validation Error"
	NoticeValidationDescription = "Please correct the errors before calculating."
)

// Notice is a one-shot message for the host to surface (e.g. a toast). It is
// only ever set on the Form returned by the action that raised it.
type Notice struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Form is the calculator page state.
type Form struct {
	Input  zscore.Input            `json:"input"`
	Errors map[zscore.Field]string `json:"errors,omitempty"`
	Result *zscore.Result          `json:"result,omitempty"`
	Notice *Notice                 `json:"notice,omitempty"`
}

// New returns an empty form.
func New() Form { return Form{} }

// Ready reports whether every field has text, which is when the page enables
// its Calculate button. It says nothing about validity.
func (f Form) Ready() bool {
	return f.Input.ObservedValue != "" && f.Input.Mean != "" && f.Input.StandardDeviation != ""
}

// Set stores raw as the text of field and clears that field's message. The
// result is recomputed when all three inputs are valid and dropped otherwise.
func (f Form) Set(field zscore.Field, raw string) Form {
	next := Form{
		Input:  f.Input.With(field, raw),
		Errors: withoutField(f.Errors, field),
	}
	if r, errs := zscore.Calculate(next.Input); errs.Valid() {
		next.Result = r
		next.Errors = nil
	}
	return next
}

// Calculate is the explicit Calculate action. On failure every invalid field
// gets its message, the result is dropped and a validation Notice is raised;
// ok is false. On success messages are cleared and the result is set.
func (f Form) Calculate() (next Form, ok bool) {
	next = Form{Input: f.Input}
	r, errs := zscore.Calculate(f.Input)
	if !errs.Valid() {
		next.Errors = Messages(errs)
		next.Notice = &Notice{Title: NoticeValidationTitle, Description: NoticeValidationDescription}
		return next, false
	}
	next.Result = r
	return next, true
}

// Reset discards all inputs, messages and the result.
func (f Form) Reset() Form { return New() }

// Messages maps validation failures to the text displayed under each field.
// Any standard deviation failure reads as the positivity requirement.
func Messages(errs zscore.FieldErrors) map[zscore.Field]string {
	if errs.Valid() {
		return nil
	}
	out := make(map[zscore.Field]string, len(errs))
	for field := range errs {
		if field == zscore.FieldStandardDeviation {
			out[field] = MessageSpreadPositive
			continue
		}
		out[field] = MessageInvalidNumber
	}
	return out
}

func withoutField(msgs map[zscore.Field]string, field zscore.Field) map[zscore.Field]string {
	if len(msgs) == 0 {
		return nil
	}
	out := make(map[zscore.Field]string, len(msgs))
	for k, v := range msgs {
		if k != field {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// View is the form as sent to a page: the state plus the flags the page
// renders directly.
type View struct {
	Form
	Ready      bool   `json:"ready"`
	ZScoreText string `json:"zScoreText,omitempty"`
}

// View returns the client rendering of f.
func (f Form) View() View {
	v := View{Form: f, Ready: f.Ready()}
	if f.Result != nil {
		v.ZScoreText = zscore.FormatScore(f.Result.ZScore)
	}
	return v
}
