package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/skincare_shop/pkg/httpx"
	"github.com/Skotchmaster/skincare_shop/pkg/logging"
	"github.com/Skotchmaster/skincare_shop/services/order/internal/transport"
)

func (h *OrderHTTP) Quote(c echo.Context) error {
	const handler = "cart.quote"
	ctx := c.Request().Context()

	var req transport.QuoteRequest
	if err := c.Bind(&req); err != nil {
		logging.FromContext(ctx).With("handler", handler).
			Warn("quote_error", "status", 400, "reason", "invalid body", "error", err)
		return httpx.Fail(http.StatusBadRequest, httpx.CodeValidation, "invalid body")
	}

	quote, err := h.Svc.Quote(ctx, req)
	if err != nil {
		return fail(c, handler, "quote_error", err)
	}
	return httpx.OK(c, http.StatusOK, "", quote)
}
