package enrich_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/einvoice-tracker/internal/enrich"
	domain "github.com/donaldgifford/einvoice-tracker/pkg/types"
)

// stubBackend replies with reply/err and records each request.
type stubBackend struct {
	reply    string
	err      error
	requests []enrich.GenerateRequest
}

func (b *stubBackend) Name() string { return "stub" }

func (b *stubBackend) Generate(_ context.Context, req enrich.GenerateRequest) (enrich.GenerateResponse, error) {
	b.requests = append(b.requests, req)
	if b.err != nil {
		return enrich.GenerateResponse{}, b.err
	}
	return enrich.GenerateResponse{Content: b.reply}, nil
}

var latte = domain.InvoiceItem{Name: "Latte", Quantity: 2, UnitPrice: 65, TotalPrice: 130}

func TestLLMEnricher_Categorize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		reply   string
		err     error
		want    string
		wantErr bool
	}{
		{name: "exact", reply: "Dining", want: "Dining"},
		{name: "case and punctuation", reply: "  \"dining.\"\n", want: "Dining"},
		{name: "multi word category", reply: "bills & fees", want: "Bills & Fees"},
		{name: "first line only", reply: "Groceries\nBecause it is food.", want: "Groceries"},
		{name: "outside the list", reply: "Coffee", wantErr: true},
		{name: "backend failure", err: errors.New("429 too many requests"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			backend := &stubBackend{reply: tt.reply, err: tt.err}
			e := enrich.NewLLMEnricher(backend, enrich.WithModels("cat-model", "desc-model"))

			got, err := e.Categorize(context.Background(), latte)
			if tt.wantErr {
				require.ErrorIs(t, err, enrich.ErrUnavailable)
				assert.Empty(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			require.Len(t, backend.requests, 1)
			assert.Equal(t, "cat-model", backend.requests[0].Model)
			assert.Contains(t, backend.requests[0].Prompt, `"item":"Latte"`)
		})
	}
}

func TestLLMEnricher_Describe(t *testing.T) {
	t.Parallel()

	inv, err := domain.NewInvoice("AB12345678", "Cafe", 130,
		time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC), "", []domain.InvoiceItem{latte})
	require.NoError(t, err)

	backend := &stubBackend{reply: "  咖啡買兩杯是要約會嗎 (≧▽≦)  "}
	e := enrich.NewLLMEnricher(backend, enrich.WithPersona("barista"), enrich.WithModels("", "desc-model"))

	got, err := e.Describe(context.Background(), inv)
	require.NoError(t, err)
	assert.Equal(t, "咖啡買兩杯是要約會嗎 (≧▽≦)", got)

	require.Len(t, backend.requests, 1)
	assert.Equal(t, "desc-model", backend.requests[0].Model)
	assert.Contains(t, backend.requests[0].Prompt, "barista")
	assert.Contains(t, backend.requests[0].Prompt, "AB12345678")

	backend.reply = "   "
	_, err = e.Describe(context.Background(), inv)
	require.ErrorIs(t, err, enrich.ErrUnavailable)
}

func TestNoop(t *testing.T) {
	t.Parallel()

	var e enrich.Enricher = enrich.Noop{}
	c, err := e.Categorize(context.Background(), latte)
	require.NoError(t, err)
	assert.Empty(t, c)

	d, err := e.Describe(context.Background(), &domain.Invoice{})
	require.NoError(t, err)
	assert.Empty(t, d)
}
