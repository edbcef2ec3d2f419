package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/skincare_shop/services/auth/internal/middleware"
)

type Deps struct {
	AuthHandler *AuthHTTP
	JWTSecret   []byte
	Ready       func() error
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

	authMw := middleware.NewSimpleAuth(d.JWTSecret)

	g := e.Group("/auth")
	g.POST("/register", d.AuthHandler.Register)
	g.POST("/login", d.AuthHandler.Login)
	g.POST("/refresh", d.AuthHandler.Refresh)
	g.POST("/logout", d.AuthHandler.LogOut)
	g.GET("/me", d.AuthHandler.Me, authMw.RequireAuth)
}
