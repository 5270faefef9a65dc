package form

import (
	"errors"
	"fmt"

	"github.com/okian/zscore/internal/domain/zscore"
)

// Sentinel errors for invalid actions.
var (
	ErrUnknownAction = errors.New("unknown form action")
	ErrUnknownField  = zscore.ErrUnknownField
)

// ActionType names a user interaction with the page.
type ActionType string

// Supported interactions.
const (
	ActionSet       ActionType = "set"
	ActionCalculate ActionType = "calculate"
	ActionReset     ActionType = "reset"
)

// Action is a serialisable user interaction. Field and Value are only read
// for ActionSet.
type Action struct {
	Type  ActionType `json:"type"`
	Field string     `json:"field,omitempty"`
	Value string     `json:"value,omitempty"`
}

// Apply runs a onto f and returns the resulting form. Invalid actions return
// f unchanged alongside the error.
func Apply(f Form, a Action) (Form, error) {
	switch a.Type {
	case ActionSet:
		field, err := zscore.ParseField(a.Field)
		if err != nil {
			return f, err
		}
		return f.Set(field, a.Value), nil
	case ActionCalculate:
		next, _ := f.Calculate()
		return next, nil
	case ActionReset:
		return f.Reset(), nil
	default:
		return f, fmt.Errorf("%w: %q", ErrUnknownAction, a.Type)
	}
}
