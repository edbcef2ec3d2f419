package httpx

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

const (
	CodeValidation        = "validation_error"
	CodeUnauthorized      = "unauthorized"
	CodeForbidden         = "forbidden"
	CodeNotFound          = "not_found"
	CodeConflict          = "conflict"
	CodeSignatureMismatch = "signature_mismatch"
	CodeAmountMismatch    = "amount_mismatch"
	CodeInsufficientStock = "insufficient_stock"
	CodeInvalidTransition = "invalid_transition"
	CodeUpstream          = "upstream_failure"
	CodeUnavailable       = "unavailable"
	CodeInternal          = "internal_error"
)

// Envelope is the JSON body shape shared by every endpoint that reports success explicitly.
type Envelope struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Meta    any    `json:"meta,omitempty"`
}

func OK(c echo.Context, status int, message string, data any) error {
	return c.JSON(status, Envelope{Success: true, Message: message, Data: data})
}

func OKPage(c echo.Context, data any, meta any) error {
	return c.JSON(http.StatusOK, Envelope{Success: true, Data: data, Meta: meta})
}

// Fail builds an error that ErrorHandler renders as a failure envelope.
func Fail(status int, code, message string) *echo.HTTPError {
	return echo.NewHTTPError(status, Envelope{Success: false, Code: code, Message: message})
}

// ErrorHandler replaces echo's default handler so that every error leaves as an Envelope.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	env := Envelope{Success: false, Code: CodeInternal, Message: "internal error"}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		switch m := he.Message.(type) {
		case Envelope:
			env = m
		case string:
			env = Envelope{Success: false, Code: codeForStatus(status), Message: m}
		case error:
			env = Envelope{Success: false, Code: codeForStatus(status), Message: m.Error()}
		default:
			env = Envelope{Success: false, Code: codeForStatus(status), Message: http.StatusText(status)}
		}
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, env)
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return CodeValidation
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return CodeNotFound
	case http.StatusConflict:
		return CodeConflict
	case http.StatusBadGateway, http.StatusGatewayTimeout:
		return CodeUpstream
	case http.StatusServiceUnavailable:
		return CodeUnavailable
	default:
		return CodeInternal
	}
}
