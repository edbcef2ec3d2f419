package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/skincare_shop/gateway/internal/middleware"
	"github.com/Skotchmaster/skincare_shop/pkg/middleware/csrf"
)

type Deps struct {
	AuthURL    string
	CatalogURL string
	OrderURL   string
	ContactURL string

	CSRFConfig csrf.Config
	JWTSecret  []byte
	Logger     *slog.Logger
}

var writeMethods = []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete}

func Register(e *echo.Echo, d *Deps) error {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	for _, m := range middleware.Common(logger) {
		e.Use(m)
	}

	authProxy, err := newProxy(d.AuthURL, "/api/v1")
	if err != nil {
		return err
	}
	catalogProxy, err := newProxy(d.CatalogURL, "/api/v1")
	if err != nil {
		return err
	}
	orderProxy, err := newProxy(d.OrderURL, "/api/v1")
	if err != nil {
		return err
	}
	contactProxy, err := newProxy(d.ContactURL, "/api/v1")
	if err != nil {
		return err
	}

	api := e.Group("/api/v1", csrf.Middleware(d.CSRFConfig))
	jwtMW := middleware.Middleware(d.JWTSecret)

	api.Any("/auth/*", authProxy)

	api.GET("/catalog/*", catalogProxy)
	api.Match(writeMethods, "/catalog/*", catalogProxy, jwtMW)

	api.Any("/cart/*", orderProxy)

	api.Any("/order/*", orderProxy, jwtMW)

	api.POST("/contact", contactProxy)
	api.GET("/contact", contactProxy, jwtMW)
	api.PATCH("/contact/*", contactProxy, jwtMW)

	return nil
}
