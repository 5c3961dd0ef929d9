package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, h echo.HandlerFunc, method, path, reqID string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, http.NoBody)
	if reqID != "" {
		req.Header.Set(requestIDHeader, reqID)
	}
	rec := httptest.NewRecorder()
	require.NoError(t, h(echo.New().NewContext(req, rec)))
	return rec
}

func TestRequestLog(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		path          string
		status        int
		providedReqID string
		wantLogFields []string
	}{
		{
			name:   "generates a request ID",
			path:   "/debug/vars",
			status: http.StatusOK,
			wantLogFields: []string{
				"level=INFO",
				"method=GET",
				"path=/debug/vars",
				"status=200",
				"duration_ms=",
				"request_id=",
			},
		},
		{
			name:          "keeps the caller's request ID",
			path:          "/debug/vars",
			status:        http.StatusOK,
			providedReqID: "req-42",
			wantLogFields: []string{"request_id=req-42"},
		},
		{
			name:          "client errors log at warn",
			path:          "/nope",
			status:        http.StatusNotFound,
			wantLogFields: []string{"level=WARN", "status=404"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			h := RequestLog(slog.New(slog.NewTextHandler(&buf, nil)))(func(c echo.Context) error {
				return c.NoContent(tt.status)
			})

			rec := serve(t, h, http.MethodGet, tt.path, tt.providedReqID)

			for _, field := range tt.wantLogFields {
				assert.Contains(t, buf.String(), field)
			}
			respID := rec.Header().Get(requestIDHeader)
			assert.NotEmpty(t, respID)
			if tt.providedReqID != "" {
				assert.Equal(t, tt.providedReqID, respID)
			}
		})
	}
}

func TestRequestLog_ProbeSuccessLoggedOnce(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	h := RequestLog(slog.New(slog.NewTextHandler(&buf, nil)))(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	for range 3 {
		serve(t, h, http.MethodGet, "/healthz", "")
	}
	serve(t, h, http.MethodGet, "/metrics", "")

	assert.Equal(t, 1, strings.Count(buf.String(), "path=/healthz"))
	assert.Equal(t, 1, strings.Count(buf.String(), "path=/metrics"))
}

func TestRequestLog_ProbeFailureAlwaysLogged(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	calls := 0
	h := RequestLog(slog.New(slog.NewTextHandler(&buf, nil)))(func(c echo.Context) error {
		calls++
		if calls <= 2 {
			return c.NoContent(http.StatusOK)
		}
		return c.NoContent(http.StatusServiceUnavailable)
	})

	for range 4 {
		serve(t, h, http.MethodGet, "/readyz", "")
	}

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "status=200"), "repeated successes are suppressed")
	assert.Equal(t, 2, strings.Count(out, "status=503"), "every failure is logged")
	assert.Contains(t, out, "level=WARN")
}
