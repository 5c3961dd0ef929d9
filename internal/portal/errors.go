package portal

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrCaptchaWidgetMissing is returned when the login page never renders
	// the captcha widget within the element timeout.
	ErrCaptchaWidgetMissing = errors.New("captcha widget did not appear")

	// ErrStorageTokenMissing is returned when a login succeeded but neither
	// local nor session storage holds the portal token.
	ErrStorageTokenMissing = errors.New("portal token not found in browser storage")

	// ErrEmptyToken is returned when the token exchange commit succeeds but
	// its body is blank.
	ErrEmptyToken = errors.New("token exchange returned an empty token")

	// ErrDailyLimitReached is returned when the daily portal call budget has
	// been exhausted.
	ErrDailyLimitReached = errors.New("daily portal call limit reached")
)

// CaptchaRejectedError is a retryable login failure: the portal rejected
// the submitted captcha text, or the OCR service could not produce one.
type CaptchaRejectedError struct {
	Attempt int
	Err     error // OCR failure, nil when the portal rejected the guess
}

func (e *CaptchaRejectedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("captcha attempt %d: solving failed: %v", e.Attempt, e.Err)
	}
	return fmt.Sprintf("captcha attempt %d rejected by portal", e.Attempt)
}

func (e *CaptchaRejectedError) Unwrap() error { return e.Err }

// AuthFatalError is returned when session acquisition gives up.
type AuthFatalError struct {
	Attempts int
	Cause    error
}

func (e *AuthFatalError) Error() string {
	return fmt.Sprintf("login failed after %d attempt(s): %v", e.Attempts, e.Cause)
}

func (e *AuthFatalError) Unwrap() error { return e.Cause }

// AuthExpiredError is a 401/403 from the token exchange preflight. It is
// recoverable by logging in again.
type AuthExpiredError struct {
	StatusCode int
	Body       string
}

func (e *AuthExpiredError) Error() string {
	return fmt.Sprintf("portal rejected session (status %d): %s", e.StatusCode, e.Body)
}

// AuthExchangeFatalError is returned when the token exchange gives up,
// either because re-login was exhausted or because of a non-auth failure.
type AuthExchangeFatalError struct {
	Relogins int
	Cause    error
}

func (e *AuthExchangeFatalError) Error() string {
	return fmt.Sprintf("token exchange failed after %d relogin(s): %v", e.Relogins, e.Cause)
}

func (e *AuthExchangeFatalError) Unwrap() error { return e.Cause }

// TransportError is any non-retryable portal call failure: an unexpected
// status, a network error, or a malformed success body.
type TransportError struct {
	Op         string
	Method     string
	URL        string
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.Err != nil && e.StatusCode != 0:
		return fmt.Sprintf("%s [%s]: status %d: %v", e.Op, e.Method, e.StatusCode, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s [%s]: %v", e.Op, e.Method, e.Err)
	default:
		return fmt.Sprintf("%s [%s]: status %d: %s", e.Op, e.Method, e.StatusCode, e.Body)
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// isAuthStatus reports whether status is an authorization failure.
func isAuthStatus(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}

// isSuccess reports whether status is 2xx.
func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
