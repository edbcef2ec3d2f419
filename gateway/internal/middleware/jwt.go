package middleware

import (
	"errors"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/skincare_shop/pkg/httpx"
	jwthelp "github.com/Skotchmaster/skincare_shop/pkg/jwt"
	"github.com/Skotchmaster/skincare_shop/pkg/tokens"
)

// Middleware rejects requests that cannot possibly authenticate downstream.
// An expired access token passes when a refresh cookie is present so the
// target service can rotate the pair.
func Middleware(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			accessCookie, err := c.Cookie(jwthelp.AccessCookie)
			if err != nil || accessCookie.Value == "" {
				return httpx.Fail(http.StatusUnauthorized, httpx.CodeUnauthorized, "missing access token")
			}

			claims, err := tokens.AccessClaimsFromToken(accessCookie.Value, secret)
			if err == nil && claims != nil && claims.Subject != "" {
				c.Set(httpx.CtxUserID, claims.Subject)
				c.Set(httpx.CtxRole, claims.Role)
				return next(c)
			}
			if !errors.Is(err, jwt.ErrTokenExpired) {
				return httpx.Fail(http.StatusUnauthorized, httpx.CodeUnauthorized, "invalid access token")
			}

			if refreshCookie, err := c.Cookie(jwthelp.RefreshCookie); err == nil && refreshCookie.Value != "" {
				return next(c)
			}
			return httpx.Fail(http.StatusUnauthorized, httpx.CodeUnauthorized, "access token expired")
		}
	}
}
