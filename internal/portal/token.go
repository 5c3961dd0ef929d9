package portal

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/donaldgifford/einvoice-tracker/internal/metrics"
	domain "github.com/donaldgifford/einvoice-tracker/pkg/types"
)

// AuthToken is the search token returned by the exchange. It is only valid
// for the time range it was requested with.
type AuthToken string

// ExpiresAt reads the exp claim without verifying the signature. ok is
// false when the token is not a JWT or carries no expiry.
func (t AuthToken) ExpiresAt() (exp time.Time, ok bool) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(string(t), &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// ReloginFunc acquires a fresh Session after the portal rejected the
// current one.
type ReloginFunc func(ctx context.Context) (*Session, error)

// ExchangeToken trades a Session for an AuthToken scoped to tr. A 401 or
// 403 on the preflight triggers relogin, at most WithMaxRelogin times. The
// returned Session is the one the token was issued to, which differs from
// s when a relogin happened. Every failure is an *AuthExchangeFatalError.
func (c *Client) ExchangeToken(
	ctx context.Context,
	s *Session,
	tr domain.TimeRange,
	relogin ReloginFunc,
) (*Session, AuthToken, error) {
	payload := tokenRequest{
		SearchStartDate: tr.WireStart(),
		SearchEndDate:   tr.WireEnd(),
		InvoiceStatus:   "0",
		IsSearchAll:     "true",
	}
	preflight := call{op: "token", method: http.MethodOptions, path: tokenPath, body: payload}
	commit := call{op: "token", method: http.MethodPost, path: tokenPath, body: payload}

	relogins := 0
	fatal := func(err error) (*Session, AuthToken, error) {
		return s, "", &AuthExchangeFatalError{Relogins: relogins, Cause: err}
	}

	for {
		r, err := c.do(ctx, s, preflight)
		if err != nil {
			return fatal(err)
		}
		if err := c.sleep(ctx, c.preflightDelay); err != nil {
			return fatal(err)
		}
		if isSuccess(r.status) {
			break
		}
		if !isAuthStatus(r.status) {
			return fatal(expectSuccess(preflight, r))
		}

		expired := &AuthExpiredError{StatusCode: r.status, Body: r.snippet()}
		if relogin == nil || relogins >= c.maxRelogin {
			return fatal(fmt.Errorf("relogin limit (%d) reached: %w", c.maxRelogin, expired))
		}
		relogins++
		metrics.ReloginsTotal.Inc()
		c.log.Warn("session rejected, logging in again",
			"status", r.status,
			"relogin", relogins,
			"max_relogin", c.maxRelogin,
		)

		fresh, err := relogin(ctx)
		if err != nil {
			return fatal(fmt.Errorf("relogin: %w", err))
		}
		s = fresh
	}

	r, err := c.do(ctx, s, commit)
	if err != nil {
		return fatal(err)
	}
	if err := expectSuccess(commit, r); err != nil {
		return fatal(err)
	}

	tok := AuthToken(strings.TrimSpace(string(r.body)))
	if tok == "" {
		return fatal(ErrEmptyToken)
	}

	attrs := []any{"range", tr.String(), "relogins", relogins}
	if exp, ok := tok.ExpiresAt(); ok {
		attrs = append(attrs, "expires_at", exp)
	}
	c.log.Info("search token issued", attrs...)

	return s, tok, nil
}
