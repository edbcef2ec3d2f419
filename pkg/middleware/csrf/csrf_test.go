package csrf

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/skincare_shop/pkg/httpx"
)

func newServer(cfg Config) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = httpx.ErrorHandler
	e.Use(Middleware(cfg))
	h := func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }
	e.GET("/x", h)
	e.POST("/x", h)
	e.POST("/login", h)
	return e
}

func TestCSRF(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SkipPaths = []string{"/login"}
	e := newServer(cfg)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
	token := rec.Header().Get("X-CSRF-Token")
	require.NotEmpty(t, token)

	post := func(header string) int {
		req := httptest.NewRequest(http.MethodPost, "http://shop.test/x", nil)
		req.Host = "shop.test"
		req.Header.Set("Origin", "http://shop.test")
		req.AddCookie(&http.Cookie{Name: "XSRF-TOKEN", Value: token})
		if header != "" {
			req.Header.Set("X-CSRF-Token", header)
		}
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusNoContent, post(token))
	require.Equal(t, http.StatusForbidden, post(""))
	require.Equal(t, http.StatusForbidden, post(token+"x"))

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCSRF_CrossOrigin(t *testing.T) {
	e := newServer(DefaultConfig())

	req := httptest.NewRequest(http.MethodPost, "http://shop.test/x", nil)
	req.Host = "shop.test"
	req.Header.Set("Origin", "http://evil.test")
	req.AddCookie(&http.Cookie{Name: "XSRF-TOKEN", Value: "t"})
	req.Header.Set("X-CSRF-Token", "t")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
}
