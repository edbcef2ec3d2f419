package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/skincare_shop/pkg/httpx"
	jwthelp "github.com/Skotchmaster/skincare_shop/pkg/jwt"
	"github.com/Skotchmaster/skincare_shop/pkg/tokens"
)

// SimpleAuth validates the access cookie only. It never calls the refresh endpoint,
// which this service serves itself.
type SimpleAuth struct {
	JWTSecret []byte
}

func NewSimpleAuth(secret []byte) *SimpleAuth {
	return &SimpleAuth{JWTSecret: secret}
}

func (m *SimpleAuth) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		accessCookie, err := c.Cookie(jwthelp.AccessCookie)
		if err != nil || accessCookie.Value == "" {
			return httpx.Fail(http.StatusUnauthorized, httpx.CodeUnauthorized, "missing access token")
		}

		claims, err := tokens.AccessClaimsFromToken(accessCookie.Value, m.JWTSecret)
		if err != nil || claims == nil || claims.Subject == "" {
			c.SetCookie(jwthelp.DeleteCookie(jwthelp.AccessCookie, "/"))
			return httpx.Fail(http.StatusUnauthorized, httpx.CodeUnauthorized, "invalid or expired token")
		}

		c.Set(httpx.CtxUserID, claims.Subject)
		c.Set(httpx.CtxRole, claims.Role)

		return next(c)
	}
}
