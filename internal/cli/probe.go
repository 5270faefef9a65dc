package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/okian/zscore/internal/domain/zscore"
)

// Scenario is one known input and the response a correct server gives.
// Either the result fields or WantField/WantKind are set.
type Scenario struct {
	Name  string
	Input zscore.Input

	WantText      string
	WantTier      zscore.Tier
	WantMagnitude string

	WantField zscore.Field
	WantKind  zscore.ErrorKind
}

// Scenarios returns the reference cases checked by probe.
func Scenarios() []Scenario {
	return []Scenario{
		{
			Name:          "two deviations above",
			Input:         zscore.Input{ObservedValue: "85", Mean: "75", StandardDeviation: "5"},
			WantText:      "2.000",
			WantTier:      zscore.SignificantlyAbove,
			WantMagnitude: "2.000 standard deviations above the mean",
		},
		{
			Name:          "one deviation below",
			Input:         zscore.Input{ObservedValue: "70", Mean: "75", StandardDeviation: "5"},
			WantText:      "-1.000",
			WantTier:      zscore.Below,
			WantMagnitude: "1.000 standard deviations below the mean",
		},
		{
			Name:          "at the mean",
			Input:         zscore.Input{ObservedValue: "75", Mean: "75", StandardDeviation: "5"},
			WantText:      "0.000",
			WantTier:      zscore.AtMean,
			WantMagnitude: "exactly at the mean",
		},
		{
			Name:      "zero spread",
			Input:     zscore.Input{ObservedValue: "80", Mean: "75", StandardDeviation: "0"},
			WantField: zscore.FieldStandardDeviation,
			WantKind:  zscore.NonPositiveSpread,
		},
		{
			Name:      "not a number",
			Input:     zscore.Input{ObservedValue: "x", Mean: "75", StandardDeviation: "5"},
			WantField: zscore.FieldObservedValue,
			WantKind:  zscore.InvalidNumber,
		},
	}
}

// Check compares a server response with the scenario and describes the
// first mismatch, or returns nil.
func (s Scenario) Check(res *CalculationResponse, err error) error {
	if s.WantKind != "" {
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			if err != nil {
				return err
			}
			return fmt.Errorf("want %s=%s, got z=%s", s.WantField, s.WantKind, res.ZScoreText)
		}
		if apiErr.Status != http.StatusUnprocessableEntity {
			return fmt.Errorf("want status 422, got %d", apiErr.Status)
		}
		if got := apiErr.Errors[s.WantField]; got != s.WantKind {
			return fmt.Errorf("want %s=%s, got %q", s.WantField, s.WantKind, got)
		}
		return nil
	}

	if err != nil {
		return err
	}
	switch {
	case res.ZScoreText != s.WantText:
		return fmt.Errorf("want z=%s, got %s", s.WantText, res.ZScoreText)
	case res.Tier != s.WantTier:
		return fmt.Errorf("want tier %s, got %s", s.WantTier, res.Tier)
	case res.MagnitudeDescription != s.WantMagnitude:
		return fmt.Errorf("want %q, got %q", s.WantMagnitude, res.MagnitudeDescription)
	case res.Interpretation != s.WantTier.Interpretation():
		return fmt.Errorf("interpretation does not match tier %s", s.WantTier)
	}
	return nil
}

// ProbeResult is the outcome of one scenario.
type ProbeResult struct {
	Name   string `json:"name" yaml:"name"`
	Passed bool   `json:"passed" yaml:"passed"`
	Detail string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// Probe runs every scenario against the server behind client.
func Probe(ctx context.Context, client *Client, scenarios []Scenario) []ProbeResult {
	results := make([]ProbeResult, 0, len(scenarios))
	for _, s := range scenarios {
		res, err := client.Calculate(ctx, s.Input)
		r := ProbeResult{Name: s.Name, Passed: true}
		if err := s.Check(res, err); err != nil {
			r.Passed = false
			r.Detail = err.Error()
		}
		results = append(results, r)
	}
	return results
}

// NewProbeCmd creates the probe command.
func NewProbeCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Check a running server against reference scenarios",
		Long: `Runs known calculations against the server and compares the answers.
Exits non-zero when the server is unreachable or any scenario fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.Health(cmd.Context()); err != nil {
				return fmt.Errorf("%w: server not healthy: %w", ErrProbeFailed, err)
			}

			results := Probe(cmd.Context(), client, Scenarios())

			failed := 0
			rows := make([][]string, len(results))
			for i, r := range results {
				status := "PASS"
				if !r.Passed {
					status = "FAIL"
					failed++
				}
				rows[i] = []string{r.Name, status, r.Detail}
			}
			if err := out.Print([]string{"SCENARIO", "STATUS", "DETAIL"}, rows, results); err != nil {
				return err
			}

			if failed > 0 {
				return fmt.Errorf("%w: %d of %d scenarios", ErrProbeFailed, failed, len(results))
			}
			out.Success(fmt.Sprintf("All %d scenarios passed", len(results)))
			return nil
		},
	}
}
