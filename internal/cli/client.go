package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/okian/zscore/internal/domain/zscore"
)

// CalculationResponse is a successful calculation from the API.
type CalculationResponse struct {
	zscore.Result
	ZScoreText string `json:"zScoreText"`
}

// ValidationResponse is the outcome of POST /api/v1/zscore/validate.
type ValidationResponse struct {
	Valid  bool               `json:"valid"`
	Errors zscore.FieldErrors `json:"errors"`
}

type errorResponse struct {
	Code    string             `json:"code"`
	Message string             `json:"message"`
	Errors  zscore.FieldErrors `json:"errors"`
}

// Client is an HTTP client for the calculator API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the API at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Calculate computes a z-score on the server. Invalid inputs return an
// *APIError carrying the per-field kinds.
func (c *Client) Calculate(ctx context.Context, in zscore.Input) (*CalculationResponse, error) {
	var out CalculationResponse
	if err := c.post(ctx, "/api/v1/zscore/calculate", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Query computes a z-score through the GET endpoint.
func (c *Client) Query(ctx context.Context, in zscore.Input) (*CalculationResponse, error) {
	params := url.Values{}
	params.Set(string(zscore.FieldObservedValue), in.ObservedValue)
	params.Set(string(zscore.FieldMean), in.Mean)
	params.Set(string(zscore.FieldStandardDeviation), in.StandardDeviation)

	var out CalculationResponse
	if err := c.get(ctx, "/api/v1/zscore?"+params.Encode(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Validate checks inputs on the server without computing.
func (c *Client) Validate(ctx context.Context, in zscore.Input) (*ValidationResponse, error) {
	var out ValidationResponse
	if err := c.post(ctx, "/api/v1/zscore/validate", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health reports whether the server's metrics endpoint answers.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return &APIError{Status: resp.StatusCode}
	}
	return nil
}

// --- HTTP helpers ---

func (c *Client) get(ctx context.Context, path string, result any) error {
	return c.doJSON(ctx, http.MethodGet, path, nil, result)
}

func (c *Client) post(ctx context.Context, path string, body any, result any) error {
	return c.doJSON(ctx, http.MethodPost, path, body, result)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, result any) error {
	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkError(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

func checkError(resp *http.Response) error {
	if resp.StatusCode < http.StatusBadRequest {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return &APIError{Status: resp.StatusCode}
	}
	return &APIError{Status: resp.StatusCode, Code: er.Code, Message: er.Message, Errors: er.Errors}
}
