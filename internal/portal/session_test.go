package portal_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/einvoice-tracker/internal/portal"
)

func cookieNames(cs []*http.Cookie) []string {
	names := make([]string, 0, len(cs))
	for _, c := range cs {
		names = append(names, c.Name)
	}
	return names
}

func TestNewSession_CookieScoping(t *testing.T) {
	t.Parallel()

	s, err := portal.NewSession([]*http.Cookie{
		{Name: "shared", Value: "1", Domain: ".example.com", Path: "/"},
		{Name: "www-only", Value: "2", Domain: "www.example.com", Path: "/"},
		{Name: "no-domain", Value: "3"},
		nil,
	}, "bearer", "ua")
	require.NoError(t, err)

	api := &url.URL{Scheme: "https", Host: "api.example.com", Path: "/"}
	www := &url.URL{Scheme: "https", Host: "www.example.com", Path: "/"}

	assert.ElementsMatch(t, []string{"shared"}, cookieNames(s.Cookies(api)))
	assert.ElementsMatch(t, []string{"shared", "www-only"}, cookieNames(s.Cookies(www)))
}

func TestSession_RequestHeaders(t *testing.T) {
	t.Parallel()

	seen := make(chan *http.Request, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen <- r.Clone(context.Background())
		_, _ = w.Write([]byte(`{"content":[]}`))
	}))
	defer srv.Close()

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	s, err := portal.NewSession(
		[]*http.Cookie{{Name: "JSESSIONID", Value: "abc", Domain: u.Hostname(), Path: "/"}},
		"bearer-xyz", "Mozilla/5.0 test",
		portal.WithOrigin("https://www.example.com"),
		portal.WithReferer("https://www.example.com/search"),
	)
	require.NoError(t, err)

	c := newTestClient(srv.URL, &recordingSleeper{})
	_, err = c.FetchItems(context.Background(), s, "dt")
	require.NoError(t, err)

	req := <-seen
	got := req.Header
	gotCookies := req.Cookies()

	assert.Equal(t, "Bearer bearer-xyz", got.Get("Authorization"))
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Equal(t, "Mozilla/5.0 test", got.Get("User-Agent"))
	assert.Equal(t, "https://www.example.com", got.Get("Origin"))
	assert.Equal(t, "https://www.example.com/search", got.Get("Referer"))

	require.Len(t, gotCookies, 1)
	assert.Equal(t, "JSESSIONID", gotCookies[0].Name)
	assert.Equal(t, "abc", gotCookies[0].Value)
}
