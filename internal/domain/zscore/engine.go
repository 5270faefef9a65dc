// Package zscore validates raw calculator inputs and computes the z-score of
// an observed value against a reference mean and standard deviation.
//
// Everything in this package is a pure function of its arguments. Callers own
// any form state and re-invoke Validate/Compute whenever their inputs change.
package zscore

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Field names one of the three calculator inputs.
type Field string

// Calculator input fields. The string values are the wire names used by the
// HTTP API and the live form.
const (
	FieldObservedValue     Field = "observedValue"
	FieldMean              Field = "mean"
	FieldStandardDeviation Field = "standardDeviation"
)

// Fields returns the input fields in display order.
func Fields() []Field {
	return []Field{FieldObservedValue, FieldMean, FieldStandardDeviation}
}

// ParseField maps a wire name to a Field.
func ParseField(name string) (Field, error) {
	switch f := Field(name); f {
	case FieldObservedValue, FieldMean, FieldStandardDeviation:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
}

// ErrorKind classifies why a single input failed validation.
type ErrorKind string

// Validation outcomes.
const (
	// InvalidNumber means the raw text is not a finite real number.
	InvalidNumber ErrorKind = "InvalidNumber"
	// NonPositiveSpread means the standard deviation parsed but is <= 0.
	NonPositiveSpread ErrorKind = "NonPositiveSpread"
)

// FieldErrors maps each failing field to its error kind. An empty map means
// every input is valid.
type FieldErrors map[Field]ErrorKind

// Valid reports whether no field failed.
func (e FieldErrors) Valid() bool { return len(e) == 0 }

// Err converts the mapping into an error wrapping ErrValidation, or nil when
// all inputs are valid. Fields are listed in display order.
func (e FieldErrors) Err() error {
	if e.Valid() {
		return nil
	}
	parts := make([]string, 0, len(e))
	for _, f := range Fields() {
		if kind, ok := e[f]; ok {
			parts = append(parts, string(f)+"="+string(kind))
		}
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(parts, ", "))
}

// Input carries the three raw text fields exactly as the user typed them.
type Input struct {
	ObservedValue     string `json:"observedValue"`
	Mean              string `json:"mean"`
	StandardDeviation string `json:"standardDeviation"`
}

// Value returns the raw text of field f.
func (in Input) Value(f Field) string {
	switch f {
	case FieldObservedValue:
		return in.ObservedValue
	case FieldMean:
		return in.Mean
	case FieldStandardDeviation:
		return in.StandardDeviation
	default:
		return ""
	}
}

// With returns a copy of in with field f set to raw.
func (in Input) With(f Field, raw string) Input {
	switch f {
	case FieldObservedValue:
		in.ObservedValue = raw
	case FieldMean:
		in.Mean = raw
	case FieldStandardDeviation:
		in.StandardDeviation = raw
	}
	return in
}

// ParseNumber parses raw as a finite float64. Surrounding whitespace is
// ignored; empty text, NaN, infinities and out-of-range values are rejected
// with ErrInvalidNumber.
func ParseNumber(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("%w: empty input", ErrInvalidNumber)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNumber, raw)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q is not finite", ErrInvalidNumber, raw)
	}
	return v, nil
}

// Validate checks each raw input independently and returns the failing
// fields. It has no side effects.
//
// When all three parse but the score itself is not a finite float64, the
// observed value is reported as InvalidNumber: it lies too far from the mean
// for the given spread.
func Validate(observedValue, mean, standardDeviation string) FieldErrors {
	errs := FieldErrors{}
	x, errX := ParseNumber(observedValue)
	if errX != nil {
		errs[FieldObservedValue] = InvalidNumber
	}
	m, errM := ParseNumber(mean)
	if errM != nil {
		errs[FieldMean] = InvalidNumber
	}
	sd, err := ParseNumber(standardDeviation)
	switch {
	case err != nil:
		errs[FieldStandardDeviation] = InvalidNumber
	case sd <= 0:
		errs[FieldStandardDeviation] = NonPositiveSpread
	}
	if errs.Valid() && !finite((x-m)/sd) {
		errs[FieldObservedValue] = InvalidNumber
	}
	return errs
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// ValidateInput is Validate over an Input.
func ValidateInput(in Input) FieldErrors {
	return Validate(in.ObservedValue, in.Mean, in.StandardDeviation)
}

// Compute derives the z-score and its interpretation. standardDeviation must
// be positive and the quotient finite; callers establish that with Validate
// first.
func Compute(observedValue, mean, standardDeviation float64) Result {
	z := (observedValue - mean) / standardDeviation
	tier := Classify(z)
	return Result{
		ZScore:               z,
		MagnitudeDescription: DescribeMagnitude(z),
		Tier:                 tier,
		Interpretation:       tier.Interpretation(),
		Qualifier:            QualifierOf(z),
	}
}

// Calculate validates in and, only when every field is valid, computes the
// result. The returned FieldErrors is empty exactly when the result is set.
func Calculate(in Input) (*Result, FieldErrors) {
	errs := ValidateInput(in)
	if !errs.Valid() {
		return nil, errs
	}
	// Validation guarantees these parse.
	x, _ := ParseNumber(in.ObservedValue)
	m, _ := ParseNumber(in.Mean)
	s, _ := ParseNumber(in.StandardDeviation)
	r := Compute(x, m, s)
	return &r, errs
}

// Result is a single z-score calculation.
type Result struct {
	ZScore               float64   `json:"zScore"`
	MagnitudeDescription string    `json:"magnitudeDescription"`
	Tier                 Tier      `json:"interpretationTier"`
	Interpretation       string    `json:"interpretation"`
	Qualifier            Qualifier `json:"qualifier"`
}

// FormatScore renders z to three decimal places, the precision shown to
// users.
func FormatScore(z float64) string {
	if z == 0 {
		z = 0 // drop the sign of -0
	}
	return strconv.FormatFloat(z, 'f', 3, 64)
}

// DescribeMagnitude states the absolute distance of z from the mean in
// standard deviations, to three decimal places.
func DescribeMagnitude(z float64) string {
	switch {
	case z > 0:
		return fmt.Sprintf("%.3f standard deviations above the mean", math.Abs(z))
	case z < 0:
		return fmt.Sprintf("%.3f standard deviations below the mean", math.Abs(z))
	default:
		return "exactly at the mean"
	}
}
