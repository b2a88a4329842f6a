package internal

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/keelframework/keel/pkg/cookie"
)

func TestExtractors(t *testing.T) {
	t.Parallel()

	t.Run("from header", func(t *testing.T) {
		t.Parallel()

		c, _ := newTestContext(t, http.MethodGet, "/")
		c.Request().Header.Set("X-API-Key", "key-1")
		require.Equal(t, "key-1", FromHeader("X-API-Key")(c))
		require.Empty(t, FromHeader("X-Other")(c))
	})

	t.Run("from bearer token", func(t *testing.T) {
		t.Parallel()

		cases := map[string]struct {
			header string
			want   string
		}{
			"standard":        {"Bearer abc.def", "abc.def"},
			"lowercase":       {"bearer abc.def", "abc.def"},
			"wrong scheme":    {"Basic abc", ""},
			"bare token":      {"abc.def", ""},
			"empty header":    {"", ""},
			"prefix no token": {"Bearer ", ""},
		}
		for name, tc := range cases {
			t.Run(name, func(t *testing.T) {
				t.Parallel()

				c, _ := newTestContext(t, http.MethodGet, "/")
				if tc.header != "" {
					c.Request().Header.Set("Authorization", tc.header)
				}
				require.Equal(t, tc.want, FromBearerToken()(c))
			})
		}
	})

	t.Run("from query and form", func(t *testing.T) {
		t.Parallel()

		c, _ := newTestContext(t, http.MethodGet, "/?token=q-tok")
		require.Equal(t, "q-tok", FromQuery("token")(c))

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("token=f-tok"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		fc := newContext(rec, req, New(), nil)
		require.Equal(t, "f-tok", FromForm("token")(fc))
	})

	t.Run("from path parameter", func(t *testing.T) {
		t.Parallel()

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/t/p-tok", nil)
		c := newContext(rec, req, New(), map[string]string{"token": "p-tok"})
		require.Equal(t, "p-tok", FromParam("token")(c))
	})

	t.Run("from signed cookie rejects tampering", func(t *testing.T) {
		t.Parallel()

		cm := cookie.New(cookie.WithSecret(testCookieSecret))
		rec := httptest.NewRecorder()
		require.NoError(t, cm.SetSigned(rec, "auth", "c-tok", 0))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		for _, ck := range rec.Result().Cookies() {
			req.AddCookie(ck)
		}
		c := newContext(httptest.NewRecorder(), req, New(WithCookieOptions(cookie.WithSecret(testCookieSecret))), nil)
		require.Equal(t, "c-tok", FromCookieSigned("auth")(c))

		// A different signing secret must yield nothing.
		other := newContext(httptest.NewRecorder(), req, New(WithCookieOptions(cookie.WithSecret("another-secret-another-secret-xx"))), nil)
		require.Empty(t, FromCookieSigned("auth")(other))
	})

	t.Run("chain returns the first hit", func(t *testing.T) {
		t.Parallel()

		c, _ := newTestContext(t, http.MethodGet, "/?fallback=q-tok")
		chain := ChainExtractors(FromHeader("X-Token"), FromQuery("fallback"))
		require.Equal(t, "q-tok", chain(c))

		c.Request().Header.Set("X-Token", "h-tok")
		require.Equal(t, "h-tok", chain(c))

		empty := ChainExtractors(FromHeader("A"), FromHeader("B"))
		require.Empty(t, empty(c))
	})
}
