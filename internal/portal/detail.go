package portal

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	domain "github.com/donaldgifford/einvoice-tracker/pkg/types"
)

const (
	portalDateLayout = "20060102"
	portalTimeLayout = "15:04:05"
)

// FetchItems returns the line items of the invoice identified by
// detailToken. Items are returned as the portal lists them, zero-amount
// lines included, with no category.
func (c *Client) FetchItems(ctx context.Context, s *Session, detailToken string) ([]domain.InvoiceItem, error) {
	cl := call{
		op: "detail", method: http.MethodPost, path: detailPath,
		query: url.Values{"size": {strconv.Itoa(detailPageSize)}},
		body:  detailToken,
	}
	r, err := c.do(ctx, s, cl)
	if err != nil {
		return nil, err
	}
	if err := expectSuccess(cl, r); err != nil {
		return nil, err
	}

	var page detailPage
	if err := decodeReply(cl, r, &page); err != nil {
		return nil, err
	}

	items := make([]domain.InvoiceItem, 0, len(page.Content))
	for _, it := range page.Content {
		items = append(items, domain.InvoiceItem{
			Name:       strings.TrimSpace(it.Item),
			Quantity:   int(it.Quantity),
			UnitPrice:  float64(it.UnitPrice),
			TotalPrice: float64(it.Amount),
		})
	}
	return items, nil
}

// FetchDatetime returns when the invoice identified by detailToken was
// issued, interpreted in the client's location.
func (c *Client) FetchDatetime(ctx context.Context, s *Session, detailToken string) (time.Time, error) {
	cl := call{op: "datetime", method: http.MethodPost, path: datetimePath, body: detailToken}
	r, err := c.do(ctx, s, cl)
	if err != nil {
		return time.Time{}, err
	}
	if err := expectSuccess(cl, r); err != nil {
		return time.Time{}, err
	}

	var dt datetimeReply
	if err := decodeReply(cl, r, &dt); err != nil {
		return time.Time{}, err
	}

	t, err := time.ParseInLocation(
		portalDateLayout+" "+portalTimeLayout,
		strings.TrimSpace(dt.InvoiceDate)+" "+strings.TrimSpace(dt.InvoiceTime),
		c.loc,
	)
	if err != nil {
		return time.Time{}, &TransportError{
			Op: cl.op, Method: cl.method, URL: r.url, StatusCode: r.status,
			Err: fmt.Errorf("parsing invoice datetime: %w", err),
		}
	}
	return t, nil
}
