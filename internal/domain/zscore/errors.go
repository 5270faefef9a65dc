package zscore

import "errors"

// Sentinel error kinds for this package. These allow errors.Is from callers.
var (
	ErrInvalidNumber = errors.New("invalid number")
	ErrValidation    = errors.New("validation failed")
	ErrUnknownField  = errors.New("unknown field")
	ErrUnknownTier   = errors.New("unknown tier")
)
