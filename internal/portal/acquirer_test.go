package portal_test

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/einvoice-tracker/internal/browser"
	captchaMocks "github.com/donaldgifford/einvoice-tracker/internal/captcha/mocks"
	"github.com/donaldgifford/einvoice-tracker/internal/portal"
)

const (
	loginURL  = "https://www.example.com/login"
	searchURL = "https://www.example.com/search"
	rejected  = `<html><body><div class="alert">驗證失敗</div></body></html>`
	accepted  = `<html><body>welcome</body></html>`
)

var captchaPNG = []byte("png-bytes")

// scriptedDriver plays back a fixed login page script. pages holds the
// HTML returned after each submit; the last entry repeats.
type scriptedDriver struct {
	mu sync.Mutex

	widgetMissing bool
	pages         []string
	storage       map[browser.StorageArea]string
	cookies       []*http.Cookie

	calls   []string
	filled  map[string][]string
	submits int
	closed  bool
}

func newScriptedDriver(pages ...string) *scriptedDriver {
	return &scriptedDriver{
		pages:   pages,
		storage: map[browser.StorageArea]string{browser.LocalStorage: "bearer-from-storage"},
		cookies: []*http.Cookie{{Name: "JSESSIONID", Value: "s1", Domain: ".example.com", Path: "/"}},
		filled:  make(map[string][]string),
	}
}

func (d *scriptedDriver) record(call string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, call)
}

func (d *scriptedDriver) count(call string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, c := range d.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (d *scriptedDriver) Navigate(_ context.Context, u string) error {
	d.record("navigate " + u)
	return nil
}

func (d *scriptedDriver) Reload(context.Context) error {
	d.record("reload")
	return nil
}

func (d *scriptedDriver) WaitVisible(_ context.Context, sel string, _ time.Duration) error {
	d.record("wait " + sel)
	if d.widgetMissing {
		return context.DeadlineExceeded
	}
	return nil
}

func (d *scriptedDriver) Fill(_ context.Context, sel, value string) error {
	d.record("fill " + sel)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.filled[sel] = append(d.filled[sel], value)
	return nil
}

func (d *scriptedDriver) Click(_ context.Context, sel string) error {
	d.record("click " + sel)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.submits++
	return nil
}

func (d *scriptedDriver) Screenshot(_ context.Context, sel string) ([]byte, error) {
	d.record("screenshot " + sel)
	return captchaPNG, nil
}

func (d *scriptedDriver) HTML(context.Context) (string, error) {
	d.record("html")
	d.mu.Lock()
	defer d.mu.Unlock()
	idx := min(d.submits, len(d.pages)) - 1
	return d.pages[max(idx, 0)], nil
}

func (d *scriptedDriver) ReadStorage(_ context.Context, area browser.StorageArea, key string) (string, bool, error) {
	d.record("storage " + string(area) + " " + key)
	v, ok := d.storage[area]
	return v, ok, nil
}

func (d *scriptedDriver) Cookies(context.Context) ([]*http.Cookie, error) {
	d.record("cookies")
	return d.cookies, nil
}

func (d *scriptedDriver) UserAgent(context.Context) (string, error) {
	return "HeadlessChrome/120", nil
}

func (d *scriptedDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

type driverLauncher struct {
	drv *scriptedDriver
	err error
}

func (l *driverLauncher) Launch(context.Context) (browser.Driver, error) {
	if l.err != nil {
		return nil, l.err
	}
	return l.drv, nil
}

func newAcquirer(drv *scriptedDriver, solver *captchaMocks.MockSolver, sleeper *recordingSleeper) *portal.SessionAcquirer {
	return portal.NewSessionAcquirer(
		&driverLauncher{drv: drv},
		solver,
		portal.Credentials{Phone: "0912345678", Password: "secret"},
		portal.WithPortalURLs(loginURL, searchURL, "https://www.example.com"),
		portal.WithCaptchaAttempts(5, 10*time.Second),
		portal.WithBrowserTimings(10*time.Second, 3*time.Second),
		portal.WithAcquirerSleeper(sleeper.Sleep),
		portal.WithAcquirerLogger(discardLogger()),
	)
}

func TestAcquire_FirstAttempt(t *testing.T) {
	t.Parallel()

	drv := newScriptedDriver(accepted)
	solver := captchaMocks.NewMockSolver(t)
	solver.EXPECT().Solve(mock.Anything, captchaPNG).Return("4k7p", nil).Once()
	sleeper := &recordingSleeper{}

	s, err := newAcquirer(drv, solver, sleeper).Acquire(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "bearer-from-storage", s.Bearer())
	assert.Equal(t, "HeadlessChrome/120", s.UserAgent())
	cookies := s.Cookies(&url.URL{Scheme: "https", Host: "api.example.com", Path: "/"})
	require.Len(t, cookies, 1)
	assert.Equal(t, "JSESSIONID", cookies[0].Name)

	assert.Equal(t, []string{
		"navigate " + loginURL,
		"wait .code_num",
		"fill #mobile_phone",
		"fill #password",
		"screenshot .code_num img",
		"fill #captcha",
		"click #submitBtn",
		"html",
		"navigate " + searchURL,
		"cookies",
		"storage localStorage token",
	}, drv.calls)
	assert.Equal(t, []string{"0912345678"}, drv.filled["#mobile_phone"])
	assert.Equal(t, []string{"4k7p"}, drv.filled["#captcha"])
	assert.Equal(t, []time.Duration{3 * time.Second}, sleeper.Delays())
	assert.True(t, drv.closed)
}

func TestAcquire_RetriesRejectedCaptcha(t *testing.T) {
	t.Parallel()

	drv := newScriptedDriver(rejected, rejected, rejected, rejected, accepted)
	solver := captchaMocks.NewMockSolver(t)
	solver.EXPECT().Solve(mock.Anything, captchaPNG).Return("guess", nil).Times(5)
	sleeper := &recordingSleeper{}

	s, err := newAcquirer(drv, solver, sleeper).Acquire(context.Background())
	require.NoError(t, err)
	require.NotNil(t, s)

	assert.Equal(t, 4, drv.count("reload"))
	assert.Equal(t, 5, drv.count("click #submitBtn"))
	assert.Equal(t, 4, sleeper.Count(10*time.Second))
	assert.Equal(t, 5, sleeper.Count(3*time.Second))
	assert.Len(t, drv.filled["#mobile_phone"], 5)
	assert.True(t, drv.closed)
}

func TestAcquire_ExhaustsAttempts(t *testing.T) {
	t.Parallel()

	drv := newScriptedDriver(rejected)
	solver := captchaMocks.NewMockSolver(t)
	solver.EXPECT().Solve(mock.Anything, captchaPNG).Return("wrong", nil).Times(5)
	sleeper := &recordingSleeper{}

	s, err := newAcquirer(drv, solver, sleeper).Acquire(context.Background())
	require.Error(t, err)
	assert.Nil(t, s)

	var fatal *portal.AuthFatalError
	require.ErrorAs(t, err, &fatal)
	assert.Equal(t, 5, fatal.Attempts)

	var rej *portal.CaptchaRejectedError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, 5, rej.Attempt)

	assert.Equal(t, 5, drv.count("click #submitBtn"))
	assert.Equal(t, 4, drv.count("reload"))
	assert.Equal(t, 4, sleeper.Count(10*time.Second))
	assert.Zero(t, drv.count("navigate "+searchURL))
	assert.True(t, drv.closed)
}

func TestAcquire_OCRFailureCountsAsAttempt(t *testing.T) {
	t.Parallel()

	drv := newScriptedDriver(accepted)
	solver := captchaMocks.NewMockSolver(t)
	solver.EXPECT().Solve(mock.Anything, captchaPNG).Return("", errors.New("ocr down")).Once()
	solver.EXPECT().Solve(mock.Anything, captchaPNG).Return("ok12", nil).Once()
	sleeper := &recordingSleeper{}

	_, err := newAcquirer(drv, solver, sleeper).Acquire(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, drv.count("click #submitBtn"))
	assert.Equal(t, 1, drv.count("reload"))
	assert.Equal(t, 2, drv.count("screenshot .code_num img"))
	assert.Equal(t, []time.Duration{10 * time.Second, 3 * time.Second}, sleeper.Delays())
}

func TestAcquire_WidgetMissing(t *testing.T) {
	t.Parallel()

	drv := newScriptedDriver(accepted)
	drv.widgetMissing = true
	solver := captchaMocks.NewMockSolver(t)

	_, err := newAcquirer(drv, solver, &recordingSleeper{}).Acquire(context.Background())
	require.ErrorIs(t, err, portal.ErrCaptchaWidgetMissing)

	var fatal *portal.AuthFatalError
	require.ErrorAs(t, err, &fatal)
	assert.Equal(t, 1, fatal.Attempts)
	assert.Zero(t, drv.count("click #submitBtn"))
	assert.True(t, drv.closed)
}

func TestAcquire_TokenStorage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		storage map[browser.StorageArea]string
		want    string
		wantErr error
	}{
		{
			name:    "session storage fallback",
			storage: map[browser.StorageArea]string{browser.SessionStorage: "from-session"},
			want:    "from-session",
		},
		{
			name:    "blank local value falls through",
			storage: map[browser.StorageArea]string{browser.LocalStorage: "  ", browser.SessionStorage: "s"},
			want:    "s",
		},
		{
			name:    "missing everywhere",
			storage: map[browser.StorageArea]string{},
			wantErr: portal.ErrStorageTokenMissing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			drv := newScriptedDriver(accepted)
			drv.storage = tt.storage
			solver := captchaMocks.NewMockSolver(t)
			solver.EXPECT().Solve(mock.Anything, mock.Anything).Return("ok", nil).Once()

			s, err := newAcquirer(drv, solver, &recordingSleeper{}).Acquire(context.Background())
			assert.True(t, drv.closed)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				var fatal *portal.AuthFatalError
				require.ErrorAs(t, err, &fatal)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.Bearer())
		})
	}
}

func TestAcquire_LaunchFailure(t *testing.T) {
	t.Parallel()

	a := portal.NewSessionAcquirer(
		&driverLauncher{err: errors.New("chrome not found")},
		captchaMocks.NewMockSolver(t),
		portal.Credentials{Phone: "p", Password: "pw"},
		portal.WithAcquirerLogger(discardLogger()),
	)

	_, err := a.Acquire(context.Background())
	var fatal *portal.AuthFatalError
	require.ErrorAs(t, err, &fatal)
	assert.Equal(t, 0, fatal.Attempts)
	assert.Contains(t, err.Error(), "chrome not found")
}
