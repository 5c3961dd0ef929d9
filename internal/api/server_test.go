package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	storeMocks "github.com/donaldgifford/einvoice-tracker/internal/store/mocks"
)

func TestNewServer_Routes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		path     string
		ping     bool
		pingErr  error
		wantCode int
		wantBody string
	}{
		{name: "healthz", path: "/healthz", wantCode: http.StatusOK, wantBody: `"status":"ok"`},
		{name: "ready", path: "/readyz", ping: true, wantCode: http.StatusOK, wantBody: `"status":"ready"`},
		{
			name:     "store unreachable",
			path:     "/readyz",
			ping:     true,
			pingErr:  errors.New("connection refused"),
			wantCode: http.StatusServiceUnavailable,
			wantBody: "connection refused",
		},
		{name: "metrics", path: "/metrics", wantCode: http.StatusOK, wantBody: "einvoice_"},
		{name: "unknown route", path: "/watches", wantCode: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ms := storeMocks.NewMockStore(t)
			if tt.ping {
				ms.EXPECT().Ping(mock.Anything).Return(tt.pingErr).Once()
			}

			srv := NewServer(ms, slog.New(slog.NewTextHandler(io.Discard, nil)))
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, http.NoBody))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
			assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
		})
	}
}
