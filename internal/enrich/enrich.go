// Package enrich labels invoice items with a spending category and writes
// a one-line comment about each invoice, using a pluggable LLM backend.
package enrich

import (
	"context"
	"errors"

	domain "github.com/donaldgifford/einvoice-tracker/pkg/types"
)

// ErrUnavailable marks an enrichment that could not be produced. Callers
// degrade to an empty label instead of failing.
var ErrUnavailable = errors.New("enrichment unavailable")

// Enricher produces the categorize and describe labels of an invoice.
type Enricher interface {
	Categorize(ctx context.Context, item domain.InvoiceItem) (string, error)
	Describe(ctx context.Context, inv *domain.Invoice) (string, error)
}

// GenerateRequest defines the input for an LLM generation call.
type GenerateRequest struct {
	Model       string // empty selects the backend's default model
	Prompt      string
	SystemMsg   string
	Temperature float64
	MaxTokens   int
}

// TokenUsage tracks LLM token consumption.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// GenerateResponse holds the result of an LLM generation call.
type GenerateResponse struct {
	Content string
	Model   string
	Usage   TokenUsage
}

// LLMBackend defines the interface for LLM text generation.
type LLMBackend interface {
	Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error)
	Name() string
}

// Noop is the Enricher used when no backend is configured. It returns
// empty labels without error.
type Noop struct{}

// Categorize implements Enricher.
func (Noop) Categorize(context.Context, domain.InvoiceItem) (string, error) { return "", nil }

// Describe implements Enricher.
func (Noop) Describe(context.Context, *domain.Invoice) (string, error) { return "", nil }
