// Package portal talks to the e-invoice portal: it acquires a browser
// session through the captcha login, exchanges it for a search token, and
// lists and fetches carrier invoices over the portal's JSON API.
package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/donaldgifford/einvoice-tracker/internal/metrics"
)

const (
	defaultAPIURL    = "https://service-mc.einvoice.nat.gov.tw/btc/cloud/api"
	defaultLoginURL  = "https://www.einvoice.nat.gov.tw/accounts/login/mw"
	defaultSearchURL = "https://www.einvoice.nat.gov.tw/portal/btc/mobile/btc502w/search"
	defaultOrigin    = "https://www.einvoice.nat.gov.tw"

	tokenPath    = "/btc502w/getSearchCarrierInvoiceListJWT"
	listPath     = "/btc502w/searchCarrierInvoice"
	datetimePath = "/common/getCarrierInvoiceData"
	detailPath   = "/common/getCarrierInvoiceDetail"

	detailPageSize = 100
	maxErrorBody   = 512
)

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the real Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Client issues portal API calls on behalf of a Session.
type Client struct {
	apiURL         string
	transport      http.RoundTripper
	timeout        time.Duration
	limiter        *RateLimiter
	sleep          Sleeper
	loc            *time.Location
	pageSize       int
	maxRelogin     int
	preflightDelay time.Duration
	pageDelay      time.Duration
	log            *slog.Logger
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithAPIURL overrides the portal API base URL.
func WithAPIURL(u string) ClientOption {
	return func(c *Client) {
		c.apiURL = strings.TrimRight(u, "/")
	}
}

// WithTransport overrides the HTTP transport.
func WithTransport(rt http.RoundTripper) ClientOption {
	return func(c *Client) {
		c.transport = rt
	}
}

// WithRequestTimeout sets the per-call timeout.
func WithRequestTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithRateLimiter makes every portal call wait on r first.
func WithRateLimiter(r *RateLimiter) ClientOption {
	return func(c *Client) {
		c.limiter = r
	}
}

// WithSleeper overrides how pacing delays are waited out.
func WithSleeper(s Sleeper) ClientOption {
	return func(c *Client) {
		c.sleep = s
	}
}

// WithLocation sets the zone invoice dates and times are interpreted in.
func WithLocation(loc *time.Location) ClientOption {
	return func(c *Client) {
		c.loc = loc
	}
}

// WithPageSize sets the listing page size.
func WithPageSize(n int) ClientOption {
	return func(c *Client) {
		c.pageSize = n
	}
}

// WithMaxRelogin caps how many times a token exchange may re-login.
func WithMaxRelogin(n int) ClientOption {
	return func(c *Client) {
		c.maxRelogin = n
	}
}

// WithPacing sets the delay after a token preflight and the delay before
// every listing page after the first.
func WithPacing(preflight, page time.Duration) ClientOption {
	return func(c *Client) {
		c.preflightDelay = preflight
		c.pageDelay = page
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		c.log = l
	}
}

// NewClient creates a portal API client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		apiURL:         defaultAPIURL,
		transport:      http.DefaultTransport,
		timeout:        30 * time.Second,
		sleep:          Sleep,
		loc:            time.UTC,
		pageSize:       100,
		maxRelogin:     10,
		preflightDelay: 1500 * time.Millisecond,
		pageDelay:      3 * time.Second,
		log:            slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type call struct {
	op     string
	method string
	path   string
	query  url.Values
	body   any
}

type reply struct {
	url    string
	status int
	body   []byte
}

func (r *reply) snippet() string {
	s := strings.TrimSpace(string(r.body))
	if len(s) > maxErrorBody {
		return s[:maxErrorBody] + "..."
	}
	return s
}

// do performs one portal call. A returned error is a transport failure;
// any HTTP status is reported through the reply for the caller to judge.
func (c *Client) do(ctx context.Context, s *Session, cl call) (*reply, error) {
	u := c.apiURL + cl.path
	if len(cl.query) > 0 {
		u += "?" + cl.query.Encode()
	}
	fail := func(status int, err error) error {
		return &TransportError{Op: cl.op, Method: cl.method, URL: u, StatusCode: status, Err: err}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fail(0, err)
		}
	}

	var body io.Reader = http.NoBody
	if cl.body != nil {
		b, err := json.Marshal(cl.body)
		if err != nil {
			return nil, fail(0, fmt.Errorf("encoding body: %w", err))
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, u, body)
	if err != nil {
		return nil, fail(0, fmt.Errorf("creating request: %w", err))
	}
	s.applyHeaders(req)

	hc := &http.Client{Jar: s.jar, Transport: c.transport, Timeout: c.timeout}
	resp, err := hc.Do(req)
	if err != nil {
		metrics.PortalCallsTotal.WithLabelValues(cl.op, cl.method, "error").Inc()
		return nil, fail(0, err)
	}
	defer resp.Body.Close()

	metrics.PortalCallsTotal.WithLabelValues(cl.op, cl.method, strconv.Itoa(resp.StatusCode)).Inc()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fail(resp.StatusCode, fmt.Errorf("reading body: %w", err))
	}

	c.log.Debug("portal call",
		"op", cl.op,
		"method", cl.method,
		"status", resp.StatusCode,
		"bytes", len(data),
	)

	return &reply{url: u, status: resp.StatusCode, body: data}, nil
}

// expectSuccess turns a non-2xx reply into a TransportError.
func expectSuccess(cl call, r *reply) error {
	if isSuccess(r.status) {
		return nil
	}
	return &TransportError{Op: cl.op, Method: cl.method, URL: r.url, StatusCode: r.status, Body: r.snippet()}
}

func decodeReply(cl call, r *reply, v any) error {
	if err := json.Unmarshal(r.body, v); err != nil {
		return &TransportError{
			Op: cl.op, Method: cl.method, URL: r.url, StatusCode: r.status,
			Err: fmt.Errorf("decoding response: %w", err),
		}
	}
	return nil
}
