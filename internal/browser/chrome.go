package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// ChromeOptions configures ChromeLauncher.
type ChromeOptions struct {
	ExecPath     string
	Headless     bool
	UserAgent    string
	WindowWidth  int
	WindowHeight int
}

// ChromeLauncher starts headless Chrome through the DevTools protocol.
type ChromeLauncher struct {
	allocOpts []chromedp.ExecAllocatorOption
	log       *slog.Logger
}

// NewChromeLauncher creates a launcher from opts.
func NewChromeLauncher(opts ChromeOptions, log *slog.Logger) *ChromeLauncher {
	alloc := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	alloc = append(alloc,
		chromedp.Flag("headless", opts.Headless),
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-plugins", true),
	)
	if opts.WindowWidth > 0 && opts.WindowHeight > 0 {
		alloc = append(alloc, chromedp.WindowSize(opts.WindowWidth, opts.WindowHeight))
	}
	if opts.UserAgent != "" {
		alloc = append(alloc, chromedp.UserAgent(opts.UserAgent))
	}
	if opts.ExecPath != "" {
		alloc = append(alloc, chromedp.ExecPath(opts.ExecPath))
	}
	if log == nil {
		log = slog.Default()
	}
	return &ChromeLauncher{allocOpts: alloc, log: log}
}

// Launch implements Launcher. The browser lives until Close is called on
// the returned Driver.
func (l *ChromeLauncher) Launch(ctx context.Context) (Driver, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.WithoutCancel(ctx), l.allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			l.log.Debug(fmt.Sprintf(format, args...), "component", "chromedp")
		}),
	)

	// The first Run starts the browser process.
	if err := chromedp.Run(tabCtx); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("starting chrome: %w", err)
	}

	return &ChromeDriver{
		ctx: tabCtx,
		cancel: func() {
			cancelTab()
			cancelAlloc()
		},
	}, nil
}

// ChromeDriver implements Driver on top of a chromedp tab.
type ChromeDriver struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// run executes actions on the tab, aborting when either ctx is done or
// timeout elapses. A zero timeout means no extra deadline.
func (d *ChromeDriver) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(d.ctx, timeout)
	} else {
		runCtx, cancel = context.WithCancel(d.ctx)
	}
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

// Navigate implements Driver.
func (d *ChromeDriver) Navigate(ctx context.Context, url string) error {
	if err := d.run(ctx, 0, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}
	return nil
}

// Reload implements Driver.
func (d *ChromeDriver) Reload(ctx context.Context) error {
	if err := d.run(ctx, 0, chromedp.Reload()); err != nil {
		return fmt.Errorf("reloading page: %w", err)
	}
	return nil
}

// WaitVisible implements Driver.
func (d *ChromeDriver) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	if err := d.run(ctx, timeout, chromedp.WaitVisible(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("waiting for %s: %w", selector, err)
	}
	return nil
}

// Fill implements Driver.
func (d *ChromeDriver) Fill(ctx context.Context, selector, value string) error {
	err := d.run(ctx, 0,
		chromedp.Clear(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, value, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("filling %s: %w", selector, err)
	}
	return nil
}

// Click implements Driver.
func (d *ChromeDriver) Click(ctx context.Context, selector string) error {
	if err := d.run(ctx, 0, chromedp.Click(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("clicking %s: %w", selector, err)
	}
	return nil
}

// Screenshot implements Driver.
func (d *ChromeDriver) Screenshot(ctx context.Context, selector string) ([]byte, error) {
	var buf []byte
	if err := d.run(ctx, 0, chromedp.Screenshot(selector, &buf, chromedp.NodeVisible, chromedp.ByQuery)); err != nil {
		return nil, fmt.Errorf("capturing %s: %w", selector, err)
	}
	return buf, nil
}

// HTML implements Driver.
func (d *ChromeDriver) HTML(ctx context.Context) (string, error) {
	var html string
	if err := d.run(ctx, 0, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("reading page source: %w", err)
	}
	return html, nil
}

type storageValue struct {
	Found bool   `json:"found"`
	Value string `json:"value"`
}

// ReadStorage implements Driver.
func (d *ChromeDriver) ReadStorage(ctx context.Context, area StorageArea, key string) (string, bool, error) {
	k, err := json.Marshal(key)
	if err != nil {
		return "", false, fmt.Errorf("encoding storage key: %w", err)
	}
	expr := fmt.Sprintf(
		`(() => { const v = window.%s.getItem(%s); return v === null ? {found: false, value: ""} : {found: true, value: v}; })()`,
		area, k,
	)

	var out storageValue
	if err := d.run(ctx, 0, chromedp.Evaluate(expr, &out)); err != nil {
		return "", false, fmt.Errorf("reading %s[%s]: %w", area, key, err)
	}
	return out.Value, out.Found, nil
}

// Cookies implements Driver. It returns every cookie the tab can see.
func (d *ChromeDriver) Cookies(ctx context.Context) ([]*http.Cookie, error) {
	var raw []*network.Cookie
	err := d.run(ctx, 0, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		raw, err = network.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("reading cookies: %w", err)
	}

	out := make([]*http.Cookie, 0, len(raw))
	for _, c := range raw {
		out = append(out, convertCookie(c))
	}
	return out, nil
}

// UserAgent implements Driver.
func (d *ChromeDriver) UserAgent(ctx context.Context) (string, error) {
	var ua string
	if err := d.run(ctx, 0, chromedp.Evaluate("navigator.userAgent", &ua)); err != nil {
		return "", fmt.Errorf("reading user agent: %w", err)
	}
	return ua, nil
}

// Close shuts the browser down.
func (d *ChromeDriver) Close() error {
	d.cancel()
	return nil
}

func convertCookie(c *network.Cookie) *http.Cookie {
	hc := &http.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Domain:   c.Domain,
		Path:     c.Path,
		Secure:   c.Secure,
		HttpOnly: c.HTTPOnly,
	}
	if !c.Session && c.Expires > 0 {
		sec, frac := math.Modf(c.Expires)
		hc.Expires = time.Unix(int64(sec), int64(frac*1e9)).UTC()
	}
	switch c.SameSite {
	case network.CookieSameSiteStrict:
		hc.SameSite = http.SameSiteStrictMode
	case network.CookieSameSiteLax:
		hc.SameSite = http.SameSiteLaxMode
	case network.CookieSameSiteNone:
		hc.SameSite = http.SameSiteNoneMode
	}
	return hc
}
