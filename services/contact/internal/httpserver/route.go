package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	middleware "github.com/Skotchmaster/skincare_shop/pkg/middleware/auth"
)

type Deps struct {
	ContactHandler *ContactHTTP
	JWTSecret      []byte
	AuthClient     middleware.Refresher
	Ready          func() error
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready != nil {
			if err := d.Ready(); err != nil {
				return c.NoContent(http.StatusServiceUnavailable)
			}
		}
		return c.NoContent(http.StatusOK)
	})

	authMW := middleware.NewAutoRefreshMiddleware(d.JWTSecret, d.AuthClient)

	e.POST("/contact", d.ContactHandler.Submit)
	e.GET("/contact", d.ContactHandler.List, authMW.RequireAdmin)
	e.PATCH("/contact/:id/resolve", d.ContactHandler.Resolve, authMW.RequireAdmin)
}
