package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/skincare_shop/pkg/httpx"
	"github.com/Skotchmaster/skincare_shop/pkg/logging"
	"github.com/Skotchmaster/skincare_shop/services/contact/internal/service"
	"github.com/Skotchmaster/skincare_shop/services/contact/internal/transport"
)

type ContactHTTP struct {
	Svc *service.ContactService
}

func (h *ContactHTTP) Submit(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "contact.submit")

	var req transport.EnquiryRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("submit_error", "status", 400, "reason", "invalid body", "error", err)
		return httpx.Fail(http.StatusBadRequest, httpx.CodeValidation, "invalid body")
	}

	e, err := h.Svc.Submit(ctx, req)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			l.Warn("submit_error", "status", 400, "error", err)
			return httpx.Fail(http.StatusBadRequest, httpx.CodeValidation, err.Error())
		}
		return httpx.Fail(http.StatusInternalServerError, httpx.CodeInternal, "internal error")
	}

	l.Info("enquiry_received", "enquiry_id", e.ID.Hex(), "kind", e.Kind)
	return httpx.OK(c, http.StatusCreated, "thanks, we will get back to you", e)
}

func (h *ContactHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "contact.list")

	page := httpx.ParseIntDefault(c.QueryParam("page"), 1)
	size := httpx.ParseIntDefault(c.QueryParam("size"), httpx.DefaultPageSize)
	offset, limit := httpx.Calculate(page, size)

	total, items, err := h.Svc.List(ctx, c.QueryParam("status"), offset, limit)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			return httpx.Fail(http.StatusBadRequest, httpx.CodeValidation, err.Error())
		}
		l.Error("list_error", "status", 500, "error", err)
		return httpx.Fail(http.StatusInternalServerError, httpx.CodeInternal, "internal error")
	}

	return httpx.OKPage(c, items, httpx.NewPageMeta(page, offset, limit, total))
}

func (h *ContactHTTP) Resolve(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "contact.resolve")

	e, err := h.Svc.Resolve(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return httpx.Fail(http.StatusNotFound, httpx.CodeNotFound, "enquiry not found")
		}
		l.Error("resolve_error", "status", 500, "error", err)
		return httpx.Fail(http.StatusInternalServerError, httpx.CodeInternal, "internal error")
	}
	return httpx.OK(c, http.StatusOK, "enquiry resolved", e)
}
