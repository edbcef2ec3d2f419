package httpserver

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/skincare_shop/pkg/httpx"
	jwthelp "github.com/Skotchmaster/skincare_shop/pkg/jwt"
	"github.com/Skotchmaster/skincare_shop/pkg/middleware/csrf"
	"github.com/Skotchmaster/skincare_shop/pkg/tokens"
)

var secret = []byte("gw-secret")

const csrfToken = "csrf-token-value"

// upstream answers with "<name> <path>" so tests can see where a request landed.
func upstream(t *testing.T, name string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, name+" "+r.URL.Path)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newGateway(t *testing.T) *echo.Echo {
	t.Helper()
	cfg := csrf.DefaultConfig()
	cfg.SkipPaths = []string{"/api/v1/auth/login", "/api/v1/auth/register", "/api/v1/auth/refresh"}

	e := echo.New()
	e.HTTPErrorHandler = httpx.ErrorHandler
	require.NoError(t, Register(e, &Deps{
		AuthURL:    upstream(t, "auth").URL,
		CatalogURL: upstream(t, "catalog").URL,
		OrderURL:   upstream(t, "order").URL,
		ContactURL: upstream(t, "contact").URL,
		CSRFConfig: cfg,
		JWTSecret:  secret,
	}))
	return e
}

type reqOpt func(*http.Request)

func withCSRF() reqOpt {
	return func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: "XSRF-TOKEN", Value: csrfToken})
		r.Header.Set("X-CSRF-Token", csrfToken)
		r.Header.Set("Origin", "http://example.com")
	}
}

func withAccess(t *testing.T, exp time.Time) reqOpt {
	tok, err := tokens.SignAccess("u-1", tokens.RoleClient, exp, secret)
	require.NoError(t, err)
	return func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: jwthelp.AccessCookie, Value: tok})
	}
}

func withRefresh() reqOpt {
	return func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: jwthelp.RefreshCookie, Value: "opaque"})
	}
}

func do(e *echo.Echo, method, path string, opts ...reqOpt) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader("{}"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for _, o := range opts {
		o(req)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRouting(t *testing.T) {
	e := newGateway(t)
	future := time.Now().Add(time.Minute)

	tests := []struct {
		name   string
		method string
		path   string
		opts   []reqOpt
		want   string
	}{
		{"catalog read is public", http.MethodGet, "/api/v1/catalog/products", nil, "catalog /catalog/products"},
		{"login skips csrf", http.MethodPost, "/api/v1/auth/login", nil, "auth /auth/login"},
		{"logout needs csrf only", http.MethodPost, "/api/v1/auth/logout", []reqOpt{withCSRF()}, "auth /auth/logout"},
		{"cart quote is public", http.MethodPost, "/api/v1/cart/quote", []reqOpt{withCSRF()}, "order /cart/quote"},
		{"order with access token", http.MethodPost, "/api/v1/order/capturePayment", []reqOpt{withCSRF(), withAccess(t, future)}, "order /order/capturePayment"},
		{"contact submit is public", http.MethodPost, "/api/v1/contact", []reqOpt{withCSRF()}, "contact /contact"},
		{"contact list with token", http.MethodGet, "/api/v1/contact", []reqOpt{withAccess(t, future)}, "contact /contact"},
		{"catalog write with token", http.MethodPatch, "/api/v1/catalog/products/1", []reqOpt{withCSRF(), withAccess(t, future)}, "catalog /catalog/products/1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(e, tt.method, tt.path, tt.opts...)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, tt.want, rec.Body.String())
		})
	}
}

func TestAuthPrecheck(t *testing.T) {
	e := newGateway(t)
	past := time.Now().Add(-time.Minute)

	rec := do(e, http.MethodPost, "/api/v1/order/verifyPayment", withCSRF())
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(e, http.MethodGet, "/api/v1/contact")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(e, http.MethodPost, "/api/v1/catalog/products", withCSRF())
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// expired access token alone is rejected, with a refresh cookie the service gets to rotate it
	rec = do(e, http.MethodGet, "/api/v1/order/get/u-1", withAccess(t, past))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(e, http.MethodGet, "/api/v1/order/get/u-1", withAccess(t, past), withRefresh())
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "order /order/get/u-1", rec.Body.String())

	forged, err := tokens.SignAccess("u-1", tokens.RoleAdmin, time.Now().Add(time.Minute), []byte("other"))
	require.NoError(t, err)
	rec = do(e, http.MethodGet, "/api/v1/order/getAll", withRefresh(), func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: jwthelp.AccessCookie, Value: forged})
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCSRF(t *testing.T) {
	e := newGateway(t)

	rec := do(e, http.MethodPost, "/api/v1/contact")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(e, http.MethodPost, "/api/v1/contact", func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: "XSRF-TOKEN", Value: csrfToken})
		r.Header.Set("X-CSRF-Token", "wrong")
		r.Header.Set("Origin", "http://example.com")
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(e, http.MethodGet, "/api/v1/catalog/products")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-CSRF-Token"))
}

func TestUpstreamDown(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	e := echo.New()
	e.HTTPErrorHandler = httpx.ErrorHandler
	require.NoError(t, Register(e, &Deps{
		AuthURL: deadURL, CatalogURL: deadURL, OrderURL: deadURL, ContactURL: deadURL,
		CSRFConfig: csrf.DefaultConfig(), JWTSecret: secret,
	}))

	rec := do(e, http.MethodGet, "/api/v1/catalog/products")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), httpx.CodeUpstream)
}
