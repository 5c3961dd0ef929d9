// Package captcha solves login captcha images through an external OCR
// service.
package captcha

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"
)

// ErrNoText is returned when the OCR service answered without any text.
var ErrNoText = errors.New("ocr returned no text")

// Solver turns a captcha image into its guessed text.
type Solver interface {
	Solve(ctx context.Context, image []byte) (string, error)
}

// SolverFunc adapts a function to Solver.
type SolverFunc func(ctx context.Context, image []byte) (string, error)

// Solve implements Solver.
func (f SolverFunc) Solve(ctx context.Context, image []byte) (string, error) {
	return f(ctx, image)
}

// HTTPSolver posts the image, base64 encoded, to an OCR endpoint such as a
// ddddocr HTTP wrapper. The endpoint may answer with JSON
// ({"result": "..."}) or with the bare text.
type HTTPSolver struct {
	endpoint string
	client   *http.Client
}

// HTTPSolverOption configures the HTTPSolver.
type HTTPSolverOption func(*HTTPSolver)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(c *http.Client) HTTPSolverOption {
	return func(s *HTTPSolver) {
		s.client = c
	}
}

// NewHTTPSolver creates a solver for endpoint.
func NewHTTPSolver(endpoint string, opts ...HTTPSolverOption) *HTTPSolver {
	s := &HTTPSolver{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type ocrRequest struct {
	Image string `json:"image"`
}

type ocrResponse struct {
	Result string `json:"result"`
	Error  string `json:"error"`
}

// Solve implements Solver.
func (s *HTTPSolver) Solve(ctx context.Context, image []byte) (string, error) {
	if len(image) == 0 {
		return "", errors.New("empty captcha image")
	}

	body, err := json.Marshal(ocrRequest{Image: base64.StdEncoding.EncodeToString(image)})
	if err != nil {
		return "", fmt.Errorf("marshaling ocr request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating ocr request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("executing ocr request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading ocr response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ocr service error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	text := strings.TrimSpace(string(data))
	if mt, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")); mt == "application/json" {
		var r ocrResponse
		if err := json.Unmarshal(data, &r); err != nil {
			return "", fmt.Errorf("parsing ocr response: %w", err)
		}
		if r.Error != "" {
			return "", fmt.Errorf("ocr service: %s", r.Error)
		}
		text = strings.TrimSpace(r.Result)
	}

	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}
