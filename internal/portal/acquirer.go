package portal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/donaldgifford/einvoice-tracker/internal/browser"
	"github.com/donaldgifford/einvoice-tracker/internal/captcha"
	"github.com/donaldgifford/einvoice-tracker/internal/metrics"
)

// Credentials are the portal mobile-barcode login credentials.
type Credentials struct {
	Phone    string
	Password string
}

// LoginForm names the elements of the portal login page.
type LoginForm struct {
	Widget        string // captcha container; its appearance means the form is ready
	Image         string
	Phone         string
	Password      string
	Captcha       string
	Submit        string
	FailureMarker string // literal text present in the page after a rejected submit
	TokenKey      string // browser storage key holding the bearer token
}

// DefaultLoginForm returns the selectors of the mobile login page.
func DefaultLoginForm() LoginForm {
	return LoginForm{
		Widget:        ".code_num",
		Image:         ".code_num img",
		Phone:         "#mobile_phone",
		Password:      "#password",
		Captcha:       "#captcha",
		Submit:        "#submitBtn",
		FailureMarker: "驗證失敗",
		TokenKey:      "token",
	}
}

// SessionAcquirer logs into the portal through a browser and lifts the
// resulting session out of it.
type SessionAcquirer struct {
	launcher browser.Launcher
	solver   captcha.Solver
	creds    Credentials
	form     LoginForm

	loginURL  string
	searchURL string
	origin    string

	maxAttempts    int
	retryDelay     time.Duration
	settleDelay    time.Duration
	elementTimeout time.Duration

	sleep Sleeper
	log   *slog.Logger
}

// AcquirerOption configures the SessionAcquirer.
type AcquirerOption func(*SessionAcquirer)

// WithPortalURLs overrides the login page, the search page (used as the
// API Referer) and the API Origin.
func WithPortalURLs(login, search, origin string) AcquirerOption {
	return func(a *SessionAcquirer) {
		a.loginURL = login
		a.searchURL = search
		a.origin = origin
	}
}

// WithLoginForm overrides the login page selectors.
func WithLoginForm(f LoginForm) AcquirerOption {
	return func(a *SessionAcquirer) {
		a.form = f
	}
}

// WithCaptchaAttempts sets the maximum number of captcha submissions and
// the delay between them.
func WithCaptchaAttempts(n int, delay time.Duration) AcquirerOption {
	return func(a *SessionAcquirer) {
		a.maxAttempts = n
		a.retryDelay = delay
	}
}

// WithBrowserTimings sets how long to wait for the login form and how long
// to let the page settle after a submit.
func WithBrowserTimings(elementTimeout, settle time.Duration) AcquirerOption {
	return func(a *SessionAcquirer) {
		a.elementTimeout = elementTimeout
		a.settleDelay = settle
	}
}

// WithAcquirerSleeper overrides how delays are waited out.
func WithAcquirerSleeper(s Sleeper) AcquirerOption {
	return func(a *SessionAcquirer) {
		a.sleep = s
	}
}

// WithAcquirerLogger sets the logger.
func WithAcquirerLogger(l *slog.Logger) AcquirerOption {
	return func(a *SessionAcquirer) {
		a.log = l
	}
}

// NewSessionAcquirer creates a SessionAcquirer.
func NewSessionAcquirer(
	launcher browser.Launcher,
	solver captcha.Solver,
	creds Credentials,
	opts ...AcquirerOption,
) *SessionAcquirer {
	a := &SessionAcquirer{
		launcher:       launcher,
		solver:         solver,
		creds:          creds,
		form:           DefaultLoginForm(),
		loginURL:       defaultLoginURL,
		searchURL:      defaultSearchURL,
		origin:         defaultOrigin,
		maxAttempts:    5,
		retryDelay:     10 * time.Second,
		settleDelay:    3 * time.Second,
		elementTimeout: 10 * time.Second,
		sleep:          Sleep,
		log:            slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Acquire runs the login flow in a fresh browser and returns the resulting
// Session. The browser is always closed before Acquire returns. Rejected
// captchas are retried after the retry delay, up to the attempt limit;
// every failure is an *AuthFatalError.
func (a *SessionAcquirer) Acquire(ctx context.Context) (*Session, error) {
	drv, err := a.launcher.Launch(ctx)
	if err != nil {
		metrics.LoginFailuresTotal.Inc()
		return nil, &AuthFatalError{Cause: fmt.Errorf("launching browser: %w", err)}
	}
	defer func() {
		if cerr := drv.Close(); cerr != nil {
			a.log.Warn("closing browser", "error", cerr)
		}
	}()

	s, attempts, err := a.login(ctx, drv)
	if err != nil {
		metrics.LoginFailuresTotal.Inc()
		return nil, &AuthFatalError{Attempts: attempts, Cause: err}
	}
	a.log.Info("login succeeded", "attempts", attempts)
	return s, nil
}

func (a *SessionAcquirer) login(ctx context.Context, drv browser.Driver) (*Session, int, error) {
	if err := drv.Navigate(ctx, a.loginURL); err != nil {
		return nil, 0, err
	}

	for attempt := 1; ; attempt++ {
		if attempt > 1 {
			if err := drv.Reload(ctx); err != nil {
				return nil, attempt - 1, err
			}
		}

		rejected, err := a.submit(ctx, drv, attempt)
		if err != nil {
			return nil, attempt, err
		}
		if rejected == nil {
			s, err := a.liftSession(ctx, drv)
			return s, attempt, err
		}

		metrics.CaptchaRejectionsTotal.Inc()
		a.log.Warn("captcha rejected",
			"attempt", attempt,
			"max_attempts", a.maxAttempts,
			"error", rejected,
		)
		if attempt >= a.maxAttempts {
			return nil, attempt, rejected
		}
		if err := a.sleep(ctx, a.retryDelay); err != nil {
			return nil, attempt, err
		}
	}
}

// submit fills and submits the login form once. It returns a non-nil
// *CaptchaRejectedError when the attempt should be retried, and an error
// when the flow cannot continue at all.
func (a *SessionAcquirer) submit(ctx context.Context, drv browser.Driver, attempt int) (*CaptchaRejectedError, error) {
	metrics.LoginAttemptsTotal.Inc()
	a.log.Info("login attempt", "attempt", attempt, "max_attempts", a.maxAttempts)

	if err := drv.WaitVisible(ctx, a.form.Widget, a.elementTimeout); err != nil {
		return nil, errors.Join(ErrCaptchaWidgetMissing, err)
	}
	if err := drv.Fill(ctx, a.form.Phone, a.creds.Phone); err != nil {
		return nil, err
	}
	if err := drv.Fill(ctx, a.form.Password, a.creds.Password); err != nil {
		return nil, err
	}

	img, err := drv.Screenshot(ctx, a.form.Image)
	if err != nil {
		return nil, err
	}
	guess, err := a.solver.Solve(ctx, img)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return &CaptchaRejectedError{Attempt: attempt, Err: err}, nil
	}

	if err := drv.Fill(ctx, a.form.Captcha, guess); err != nil {
		return nil, err
	}
	if err := drv.Click(ctx, a.form.Submit); err != nil {
		return nil, err
	}
	if err := a.sleep(ctx, a.settleDelay); err != nil {
		return nil, err
	}

	page, err := drv.HTML(ctx)
	if err != nil {
		return nil, err
	}
	if strings.Contains(page, a.form.FailureMarker) {
		return &CaptchaRejectedError{Attempt: attempt}, nil
	}
	return nil, nil
}

// liftSession opens the search page so the portal writes its token, then
// copies cookies, token and user agent out of the browser.
func (a *SessionAcquirer) liftSession(ctx context.Context, drv browser.Driver) (*Session, error) {
	if err := drv.Navigate(ctx, a.searchURL); err != nil {
		return nil, err
	}

	cookies, err := drv.Cookies(ctx)
	if err != nil {
		return nil, err
	}

	token, err := a.readToken(ctx, drv)
	if err != nil {
		return nil, err
	}

	ua, err := drv.UserAgent(ctx)
	if err != nil {
		return nil, err
	}

	return NewSession(cookies, token, ua, WithOrigin(a.origin), WithReferer(a.searchURL))
}

func (a *SessionAcquirer) readToken(ctx context.Context, drv browser.Driver) (string, error) {
	for _, area := range []browser.StorageArea{browser.LocalStorage, browser.SessionStorage} {
		v, ok, err := drv.ReadStorage(ctx, area, a.form.TokenKey)
		if err != nil {
			return "", err
		}
		if ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), nil
		}
	}
	return "", ErrStorageTokenMissing
}
