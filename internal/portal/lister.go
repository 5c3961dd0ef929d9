package portal

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// ListInvoices returns every invoice summary visible to tok, across all
// pages, in portal order. The first page is requested without a page
// parameter; later pages are requested as page=2..N, each preceded by the
// page delay. A 204 means no invoices. Any status of 400 or above fails the
// whole listing with a *TransportError.
func (c *Client) ListInvoices(ctx context.Context, s *Session, tok AuthToken) ([]InvoiceSummary, error) {
	body := listRequest{Token: string(tok)}
	size := strconv.Itoa(c.pageSize)

	preflight := call{
		op: "list", method: http.MethodOptions, path: listPath,
		query: url.Values{"size": {size}}, body: body,
	}
	r, err := c.do(ctx, s, preflight)
	if err != nil {
		return nil, err
	}
	if r.status >= http.StatusBadRequest {
		return nil, expectSuccess(preflight, r)
	}

	first, err := c.fetchListPage(ctx, s, body, size, 1)
	if err != nil || first == nil {
		return nil, err
	}

	out := append([]InvoiceSummary(nil), first.Content...)
	for page := 2; page <= first.TotalPages; page++ {
		if err := c.sleep(ctx, c.pageDelay); err != nil {
			return nil, err
		}
		p, err := c.fetchListPage(ctx, s, body, size, page)
		if err != nil {
			return nil, err
		}
		if p == nil {
			break
		}
		out = append(out, p.Content...)
	}

	c.log.Info("listed invoices",
		"count", len(out),
		"pages", max(first.TotalPages, 1),
		"total_elements", first.TotalElements,
	)
	return out, nil
}

// fetchListPage returns nil without error on 204.
func (c *Client) fetchListPage(
	ctx context.Context,
	s *Session,
	body listRequest,
	size string,
	page int,
) (*listPage, error) {
	q := url.Values{"size": {size}}
	if page > 1 {
		q.Set("page", strconv.Itoa(page))
	}
	cl := call{op: "list", method: http.MethodPost, path: listPath, query: q, body: body}

	r, err := c.do(ctx, s, cl)
	if err != nil {
		return nil, err
	}
	if r.status == http.StatusNoContent {
		return nil, nil
	}
	if r.status >= http.StatusBadRequest {
		return nil, expectSuccess(cl, r)
	}

	var p listPage
	if err := decodeReply(cl, r, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
