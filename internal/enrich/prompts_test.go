package enrich_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/einvoice-tracker/internal/enrich"
	domain "github.com/donaldgifford/einvoice-tracker/pkg/types"
)

func TestRenderCategorizePrompt(t *testing.T) {
	t.Parallel()

	got, err := enrich.RenderCategorizePrompt(
		[]string{"Dining", "Bills & Fees"},
		domain.InvoiceItem{Name: "Latte <hot>", Quantity: 1, UnitPrice: 65, TotalPrice: 65, Category: "ignored"},
	)
	require.NoError(t, err)

	assert.Equal(t,
		"Give the categories: Dining, Bills & Fees\n"+
			"Which category should the following record be in? Reply only the raw category name, no other context allowed.\n"+
			`{"item":"Latte <hot>","quantity":1,"unitPrice":65,"amount":65}`,
		got,
	)
}

func TestRenderDescribePrompt(t *testing.T) {
	t.Parallel()

	inv := &domain.Invoice{
		Number:     "AB12345678",
		SellerName: "全家便利商店",
		Datetime:   time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC),
	}

	got, err := enrich.RenderDescribePrompt("貓咪", inv)
	require.NoError(t, err)

	assert.Contains(t, got, "想像你是貓咪，請用貓咪的語氣")
	assert.Contains(t, got, `"seller_name":"全家便利商店"`)
	assert.Contains(t, got, `"invoice_number":"AB12345678"`)
}
