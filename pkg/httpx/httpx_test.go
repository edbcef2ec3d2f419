package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, err error) (int, Envelope) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	ErrorHandler(err, c)

	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec.Code, env
}

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"envelope", Fail(http.StatusConflict, CodeInsufficientStock, "out of stock"), http.StatusConflict, CodeInsufficientStock},
		{"string message", echo.NewHTTPError(http.StatusUnauthorized, "missing access token"), http.StatusUnauthorized, CodeUnauthorized},
		{"echo not found", echo.ErrNotFound, http.StatusNotFound, CodeNotFound},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := render(t, tt.err)
			require.Equal(t, tt.status, status)
			require.False(t, env.Success)
			require.Equal(t, tt.code, env.Code)
			require.NotEmpty(t, env.Message)
		})
	}
}

func TestCalculateAndMeta(t *testing.T) {
	offset, limit := Calculate(0, 0)
	require.Equal(t, 0, offset)
	require.Equal(t, DefaultPageSize, limit)

	offset, limit = Calculate(3, 10)
	require.Equal(t, 20, offset)
	require.Equal(t, 10, limit)

	meta := NewPageMeta(3, offset, limit, 25)
	require.EqualValues(t, 3, meta.TotalPages)
	require.True(t, meta.HasPrev)
	require.False(t, meta.HasNext)

	_, limit = Calculate(1, MaxPageSize+1)
	require.Equal(t, DefaultPageSize, limit)
}

func TestUserID(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	_, err := UserID(c)
	require.ErrorIs(t, err, ErrNoIdentity)

	c.Set(CtxUserID, "not-a-uuid")
	_, err = UserID(c)
	require.ErrorIs(t, err, ErrNoIdentity)

	c.Set(CtxUserID, "7f1c9f43-2f1f-4b8e-9b2a-6d0a3e8f2d11")
	id, err := UserID(c)
	require.NoError(t, err)
	require.Equal(t, "7f1c9f43-2f1f-4b8e-9b2a-6d0a3e8f2d11", id.String())

	c.Set(CtxRole, "admin")
	require.True(t, IsAdmin(c))
}
