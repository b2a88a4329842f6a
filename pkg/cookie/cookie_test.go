package cookie_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/keelframework/keel/pkg/cookie"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func requestWithCookies(rec *httptest.ResponseRecorder) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, ck := range rec.Result().Cookies() {
		req.AddCookie(ck)
	}
	return req
}

func TestPlainCookies(t *testing.T) {
	t.Parallel()

	t.Run("set and get", func(t *testing.T) {
		t.Parallel()

		m := cookie.New()
		rec := httptest.NewRecorder()
		m.Set(rec, "theme", "dark", 3600)

		v, err := m.Get(requestWithCookies(rec), "theme")
		require.NoError(t, err)
		require.Equal(t, "dark", v)
	})

	t.Run("missing cookie", func(t *testing.T) {
		t.Parallel()

		m := cookie.New()
		_, err := m.Get(httptest.NewRequest(http.MethodGet, "/", nil), "nope")
		require.ErrorIs(t, err, cookie.ErrNotFound)
	})

	t.Run("delete expires the cookie", func(t *testing.T) {
		t.Parallel()

		m := cookie.New()
		rec := httptest.NewRecorder()
		m.Delete(rec, "theme")

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		require.Negative(t, cookies[0].MaxAge)
		require.Empty(t, cookies[0].Value)
	})

	t.Run("manager defaults", func(t *testing.T) {
		t.Parallel()

		m := cookie.New()
		rec := httptest.NewRecorder()
		m.Set(rec, "a", "b", 0)

		ck := rec.Result().Cookies()[0]
		require.Equal(t, "/", ck.Path)
		require.True(t, ck.HttpOnly)
		require.Equal(t, http.SameSiteLaxMode, ck.SameSite)
	})

	t.Run("attribute options", func(t *testing.T) {
		t.Parallel()

		m := cookie.New(
			cookie.WithDomain("example.com"),
			cookie.WithPath("/app"),
			cookie.WithSecure(true),
			cookie.WithHTTPOnly(false),
			cookie.WithSameSite(http.SameSiteStrictMode),
		)
		rec := httptest.NewRecorder()
		m.Set(rec, "a", "b", 0)

		ck := rec.Result().Cookies()[0]
		require.Equal(t, "example.com", ck.Domain)
		require.Equal(t, "/app", ck.Path)
		require.True(t, ck.Secure)
		require.False(t, ck.HttpOnly)
	})
}

func TestSignedCookies(t *testing.T) {
	t.Parallel()

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()

		m := cookie.New(cookie.WithSecret(testSecret))
		rec := httptest.NewRecorder()
		require.NoError(t, m.SetSigned(rec, "sid", "session-token", 3600))

		v, err := m.GetSigned(requestWithCookies(rec), "sid")
		require.NoError(t, err)
		require.Equal(t, "session-token", v)
	})

	t.Run("no secret configured", func(t *testing.T) {
		t.Parallel()

		m := cookie.New()
		require.ErrorIs(t, m.SetSigned(httptest.NewRecorder(), "sid", "v", 0), cookie.ErrNoSecret)
		_, err := m.GetSigned(httptest.NewRequest(http.MethodGet, "/", nil), "sid")
		require.ErrorIs(t, err, cookie.ErrNoSecret)
	})

	t.Run("short secrets are rejected", func(t *testing.T) {
		t.Parallel()

		m := cookie.New(cookie.WithSecret("too-short"))
		require.ErrorIs(t, m.SetSigned(httptest.NewRecorder(), "sid", "v", 0), cookie.ErrNoSecret)
	})

	t.Run("tampered value fails verification", func(t *testing.T) {
		t.Parallel()

		m := cookie.New(cookie.WithSecret(testSecret))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "sid", Value: "forged-value"})

		_, err := m.GetSigned(req, "sid")
		require.ErrorIs(t, err, cookie.ErrBadSig)
	})

	t.Run("different secret fails verification", func(t *testing.T) {
		t.Parallel()

		signer := cookie.New(cookie.WithSecret(testSecret))
		rec := httptest.NewRecorder()
		require.NoError(t, signer.SetSigned(rec, "sid", "v", 0))

		verifier := cookie.New(cookie.WithSecret("ffffffffffffffffffffffffffffffff"))
		_, err := verifier.GetSigned(requestWithCookies(rec), "sid")
		require.ErrorIs(t, err, cookie.ErrBadSig)
	})

	t.Run("missing signed cookie", func(t *testing.T) {
		t.Parallel()

		m := cookie.New(cookie.WithSecret(testSecret))
		_, err := m.GetSigned(httptest.NewRequest(http.MethodGet, "/", nil), "sid")
		require.ErrorIs(t, err, cookie.ErrNotFound)
	})
}
