package httpx

import (
	"errors"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	CtxUserID = "user_id"
	CtxRole   = "role"
)

var ErrNoIdentity = errors.New("unauthorized")

// UserID returns the authenticated user placed in the context by the auth middleware.
func UserID(c echo.Context) (uuid.UUID, error) {
	s, ok := c.Get(CtxUserID).(string)
	if !ok || s == "" {
		return uuid.Nil, ErrNoIdentity
	}

	userID, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, ErrNoIdentity
	}
	return userID, nil
}

func IsAdmin(c echo.Context) bool {
	role, _ := c.Get(CtxRole).(string)
	return role == "admin"
}
