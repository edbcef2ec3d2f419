package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/skincare_shop/pkg/httpx"
	jwthelp "github.com/Skotchmaster/skincare_shop/pkg/jwt"
	"github.com/Skotchmaster/skincare_shop/pkg/logging"
	"github.com/Skotchmaster/skincare_shop/services/auth/internal/service"
	"github.com/Skotchmaster/skincare_shop/services/auth/internal/transport"
)

type AuthHTTP struct {
	Svc *service.AuthService
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.register")

	var req transport.RegisterRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "error", err)
		return httpx.Fail(http.StatusBadRequest, httpx.CodeValidation, "invalid body")
	}

	user, err := h.Svc.Register(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			l.Warn("register_error", "status", 400, "error", err)
			return httpx.Fail(http.StatusBadRequest, httpx.CodeValidation, err.Error())
		case errors.Is(err, service.ErrConflict):
			return httpx.Fail(http.StatusConflict, httpx.CodeConflict, "email already registered")
		default:
			return httpx.Fail(http.StatusInternalServerError, httpx.CodeInternal, "register failed")
		}
	}

	l.Info("register_successful", "user_id", user.ID)
	return c.JSON(http.StatusCreated, user)
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	var req transport.LoginRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return httpx.Fail(http.StatusBadRequest, httpx.CodeValidation, "invalid body")
	}

	res, err := h.Svc.Login(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			return httpx.Fail(http.StatusBadRequest, httpx.CodeValidation, err.Error())
		case errors.Is(err, service.ErrInvalidCredentials):
			l.Warn("login_failed", "status", 401)
			return httpx.Fail(http.StatusUnauthorized, httpx.CodeUnauthorized, "invalid email or password")
		default:
			l.Error("login_failed", "status", 500, "error", err)
			return httpx.Fail(http.StatusInternalServerError, httpx.CodeInternal, "login failed")
		}
	}

	setAuthCookies(c, res)
	l.Info("login_successful")

	return c.JSON(http.StatusOK, echo.Map{
		"is_admin": res.IsAdmin,
	})
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.refresh")

	refreshCookie, err := c.Cookie(jwthelp.RefreshCookie)
	if err != nil || refreshCookie.Value == "" {
		return httpx.Fail(http.StatusUnauthorized, httpx.CodeUnauthorized, "missing refresh token")
	}

	res, err := h.Svc.Refresh(ctx, refreshCookie.Value)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRefreshToken) {
			l.Warn("refresh_failed", "status", 401, "error", err)
			clearAuthCookies(c)
			return httpx.Fail(http.StatusUnauthorized, httpx.CodeUnauthorized, "invalid or expired refresh token")
		}
		l.Error("refresh_failed", "status", 500, "error", err)
		return httpx.Fail(http.StatusInternalServerError, httpx.CodeInternal, "refresh failed")
	}

	setAuthCookies(c, res)
	return c.JSON(http.StatusOK, transport.RefreshResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		AccessExp:    res.AccessExp.Unix(),
		RefreshExp:   res.RefreshExp.Unix(),
		IsAdmin:      res.IsAdmin,
	})
}

func (h *AuthHTTP) LogOut(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.logout")

	if refreshCookie, err := c.Cookie(jwthelp.RefreshCookie); err == nil {
		if err := h.Svc.LogOut(ctx, refreshCookie.Value); err != nil {
			clearAuthCookies(c)
			l.Error("logout_failed", "status", 500, "reason", "cannot revoke refreshToken", "error", err)
			return httpx.Fail(http.StatusInternalServerError, httpx.CodeInternal, "logout failed")
		}
	}

	clearAuthCookies(c)
	l.Info("successful_logout")
	return c.JSON(http.StatusOK, echo.Map{
		"message": "logged out",
	})
}

func (h *AuthHTTP) Me(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := httpx.UserID(c)
	if err != nil {
		return httpx.Fail(http.StatusUnauthorized, httpx.CodeUnauthorized, "unauthorized")
	}

	user, err := h.Svc.Me(ctx, userID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return httpx.Fail(http.StatusNotFound, httpx.CodeNotFound, "user not found")
		}
		logging.FromContext(ctx).With("handler", "auth.me").Error("me_failed", "status", 500, "error", err)
		return httpx.Fail(http.StatusInternalServerError, httpx.CodeInternal, "internal error")
	}
	return c.JSON(http.StatusOK, user)
}

func setAuthCookies(c echo.Context, res *transport.LoginResult) {
	c.SetCookie(jwthelp.CreateCookie(jwthelp.AccessCookie, res.AccessToken, "/", res.AccessExp))
	c.SetCookie(jwthelp.CreateCookie(jwthelp.RefreshCookie, res.RefreshToken, "/", res.RefreshExp))
}

func clearAuthCookies(c echo.Context) {
	c.SetCookie(jwthelp.DeleteCookie(jwthelp.RefreshCookie, "/"))
	c.SetCookie(jwthelp.DeleteCookie(jwthelp.AccessCookie, "/"))
}
