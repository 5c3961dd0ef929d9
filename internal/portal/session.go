package portal

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// Session is an authenticated portal session lifted out of the browser: its
// cookies, the bearer token read from browser storage, and the browser's
// user agent. A Session belongs to the caller that acquired it and is
// discarded once the token exchange is done with it.
type Session struct {
	jar       http.CookieJar
	bearer    string
	userAgent string
	origin    string
	referer   string
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithOrigin sets the Origin header sent with every portal call.
func WithOrigin(origin string) SessionOption {
	return func(s *Session) {
		s.origin = origin
	}
}

// WithReferer sets the Referer header sent with every portal call.
func WithReferer(referer string) SessionOption {
	return func(s *Session) {
		s.referer = referer
	}
}

// NewSession builds a Session from browser cookies. Cookies whose domain
// starts with a dot are scoped to that domain and its subdomains; the rest
// are host-only.
func NewSession(
	cookies []*http.Cookie,
	bearer, userAgent string,
	opts ...SessionOption,
) (*Session, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}

	byHost := make(map[string][]*http.Cookie)
	for _, c := range cookies {
		if c == nil || c.Domain == "" {
			continue
		}
		host := strings.TrimPrefix(c.Domain, ".")
		cp := *c
		if !strings.HasPrefix(c.Domain, ".") {
			cp.Domain = ""
		}
		byHost[host] = append(byHost[host], &cp)
	}
	for host, cs := range byHost {
		jar.SetCookies(&url.URL{Scheme: "https", Host: host, Path: "/"}, cs)
	}

	s := &Session{
		jar:       jar,
		bearer:    bearer,
		userAgent: userAgent,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Bearer returns the raw portal token carried by the session.
func (s *Session) Bearer() string {
	return s.bearer
}

// UserAgent returns the browser-reported user agent.
func (s *Session) UserAgent() string {
	return s.userAgent
}

// Cookies returns the cookies the session would send to u.
func (s *Session) Cookies(u *url.URL) []*http.Cookie {
	return s.jar.Cookies(u)
}

func (s *Session) applyHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+s.bearer)
	req.Header.Set("Content-Type", "application/json")
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}
	if s.origin != "" {
		req.Header.Set("Origin", s.origin)
	}
	if s.referer != "" {
		req.Header.Set("Referer", s.referer)
	}
}
