package portal_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/einvoice-tracker/internal/portal"
)

// recordingSleeper records requested delays instead of waiting.
type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return ctx.Err()
}

func (r *recordingSleeper) Delays() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

func (r *recordingSleeper) Count(d time.Duration) int {
	n := 0
	for _, got := range r.Delays() {
		if got == d {
			n++
		}
	}
	return n
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSession(t *testing.T, bearer string) *portal.Session {
	t.Helper()
	s, err := portal.NewSession(nil, bearer, "test-agent/1.0",
		portal.WithOrigin("https://www.example.com"),
		portal.WithReferer("https://www.example.com/search"),
	)
	require.NoError(t, err)
	return s
}

func newTestClient(apiURL string, sleeper *recordingSleeper, opts ...portal.ClientOption) *portal.Client {
	base := []portal.ClientOption{
		portal.WithAPIURL(apiURL),
		portal.WithSleeper(sleeper.Sleep),
		portal.WithLogger(discardLogger()),
	}
	return portal.NewClient(append(base, opts...)...)
}
