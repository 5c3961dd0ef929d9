package enrich

import (
	"context"
	"fmt"
	"strings"
	"time"

	domain "github.com/donaldgifford/einvoice-tracker/pkg/types"
)

// DefaultCategories is the category list offered to the model.
var DefaultCategories = []string{
	"Dining", "Groceries", "Shopping", "Transit", "Entertainment",
	"Bills & Fees", "Gifts", "Beauty", "Work", "Travel",
}

// LLMEnricher implements Enricher on top of an LLMBackend.
type LLMEnricher struct {
	backend         LLMBackend
	categories      []string
	persona         string
	categorizeModel string
	describeModel   string
	timeout         time.Duration
}

// LLMEnricherOption configures the LLMEnricher.
type LLMEnricherOption func(*LLMEnricher)

// WithCategories overrides the category list.
func WithCategories(c []string) LLMEnricherOption {
	return func(e *LLMEnricher) {
		e.categories = c
	}
}

// WithPersona sets the voice of the invoice description.
func WithPersona(p string) LLMEnricherOption {
	return func(e *LLMEnricher) {
		e.persona = p
	}
}

// WithModels selects per-task models. Empty keeps the backend default.
func WithModels(categorize, describe string) LLMEnricherOption {
	return func(e *LLMEnricher) {
		e.categorizeModel = categorize
		e.describeModel = describe
	}
}

// WithTimeout bounds each backend call.
func WithTimeout(d time.Duration) LLMEnricherOption {
	return func(e *LLMEnricher) {
		e.timeout = d
	}
}

// NewLLMEnricher creates an LLMEnricher.
func NewLLMEnricher(backend LLMBackend, opts ...LLMEnricherOption) *LLMEnricher {
	e := &LLMEnricher{
		backend:    backend,
		categories: DefaultCategories,
		persona:    "路邊的可愛高中妹妹",
		timeout:    60 * time.Second,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Categorize returns the category of item, spelled as in the configured
// list. Any failure, including a reply outside the list, wraps
// ErrUnavailable.
func (e *LLMEnricher) Categorize(ctx context.Context, item domain.InvoiceItem) (string, error) {
	prompt, err := RenderCategorizePrompt(e.categories, item)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	reply, err := e.generate(ctx, e.categorizeModel, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: categorizing %q: %w", ErrUnavailable, item.Name, err)
	}

	label := normalizeLabel(reply)
	for _, c := range e.categories {
		if strings.EqualFold(label, c) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: unknown category %q for %q", ErrUnavailable, label, item.Name)
}

// Describe returns a one-line comment about inv.
func (e *LLMEnricher) Describe(ctx context.Context, inv *domain.Invoice) (string, error) {
	prompt, err := RenderDescribePrompt(e.persona, inv)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	reply, err := e.generate(ctx, e.describeModel, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: describing %s: %w", ErrUnavailable, inv.Number, err)
	}

	desc := strings.TrimSpace(reply)
	if desc == "" {
		return "", fmt.Errorf("%w: empty description for %s", ErrUnavailable, inv.Number)
	}
	return desc, nil
}

func (e *LLMEnricher) generate(ctx context.Context, model, prompt string) (string, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	resp, err := e.backend.Generate(ctx, GenerateRequest{Model: model, Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("%s: %w", e.backend.Name(), err)
	}
	return resp.Content, nil
}

// normalizeLabel strips the quoting and punctuation models tend to wrap a
// bare answer in.
func normalizeLabel(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.Trim(s, " \t\"'`.*。「」")
}
