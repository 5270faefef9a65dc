package cli

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/okian/zscore/internal/domain/zscore"
)

// Sentinel errors for the CLI.
var (
	ErrUnknownFormat = errors.New("unknown output format")
	ErrProbeFailed   = errors.New("probe failed")
)

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Code    string
	Message string
	Errors  zscore.FieldErrors
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("API error: HTTP %d", e.Status)
	}
	if len(e.Errors) == 0 {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	fields := make([]string, 0, len(e.Errors))
	for f, kind := range e.Errors {
		fields = append(fields, string(f)+"="+string(kind))
	}
	sort.Strings(fields)
	return fmt.Sprintf("%s: %s", e.Code, strings.Join(fields, ", "))
}
