package httpserver

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/skincare_shop/pkg/httpx"
	"github.com/Skotchmaster/skincare_shop/pkg/logging"
	"github.com/Skotchmaster/skincare_shop/services/order/internal/models"
	"github.com/Skotchmaster/skincare_shop/services/order/internal/service"
	"github.com/Skotchmaster/skincare_shop/services/order/internal/transport"
)

type OrderHTTP struct {
	Svc *service.OrderService
}

type mapping struct {
	target error
	status int
	code   string
}

var errorMap = []mapping{
	{service.ErrValidation, http.StatusBadRequest, httpx.CodeValidation},
	{service.ErrSignatureMismatch, http.StatusBadRequest, httpx.CodeSignatureMismatch},
	{service.ErrAmountMismatch, http.StatusBadRequest, httpx.CodeAmountMismatch},
	{service.ErrUnauthorized, http.StatusUnauthorized, httpx.CodeUnauthorized},
	{service.ErrForbidden, http.StatusForbidden, httpx.CodeForbidden},
	{service.ErrNotFound, http.StatusNotFound, httpx.CodeNotFound},
	{service.ErrInsufficientStock, http.StatusConflict, httpx.CodeInsufficientStock},
	{service.ErrInvalidTransition, http.StatusConflict, httpx.CodeInvalidTransition},
	{service.ErrUpstream, http.StatusBadGateway, httpx.CodeUpstream},
}

// fail logs err under event and converts it to the matching failure envelope.
func fail(c echo.Context, handler, event string, err error) error {
	l := logging.FromContext(c.Request().Context()).With("handler", handler)
	for _, m := range errorMap {
		if errors.Is(err, m.target) {
			msg := err.Error()
			if m.status == http.StatusBadGateway {
				msg = "payment gateway unavailable, payment pending"
			}
			l.Warn(event, "status", m.status, "reason", m.code, "error", err)
			return httpx.Fail(m.status, m.code, msg)
		}
	}
	l.Error(event, "status", 500, "reason", "internal", "error", err)
	return httpx.Fail(http.StatusInternalServerError, httpx.CodeInternal, "internal error")
}

func actor(c echo.Context) (service.Actor, error) {
	id, err := httpx.UserID(c)
	if err != nil {
		return service.Actor{}, httpx.Fail(http.StatusUnauthorized, httpx.CodeUnauthorized, "unauthorized")
	}
	return service.Actor{UserID: id, Admin: httpx.IsAdmin(c)}, nil
}

func pageParams(c echo.Context) (page, offset, limit int) {
	page = httpx.ParseIntDefault(c.QueryParam("page"), 1)
	size := httpx.ParseIntDefault(c.QueryParam("size"), httpx.DefaultPageSize)
	offset, limit = httpx.Calculate(page, size)
	return page, offset, limit
}

func (h *OrderHTTP) CapturePayment(c echo.Context) error {
	const handler = "order.capture_payment"
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", handler)

	who, err := actor(c)
	if err != nil {
		return err
	}

	var req transport.CapturePaymentRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("capture_payment_error", "status", 400, "reason", "invalid body", "error", err)
		return httpx.Fail(http.StatusBadRequest, httpx.CodeValidation, "invalid body")
	}

	gwOrder, err := h.Svc.CapturePayment(ctx, who.UserID, req)
	if err != nil {
		return fail(c, handler, "capture_payment_error", err)
	}

	l.Info("capture_payment_success", "gateway_order_id", gwOrder.ID)
	return httpx.OK(c, http.StatusOK, "", gwOrder)
}

func (h *OrderHTTP) VerifyPayment(c echo.Context) error {
	const handler = "order.verify_payment"
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", handler)

	who, err := actor(c)
	if err != nil {
		return err
	}

	var req transport.VerifyPaymentRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("verify_payment_error", "status", 400, "reason", "invalid body", "error", err)
		return httpx.Fail(http.StatusBadRequest, httpx.CodeValidation, "invalid body")
	}

	order, created, err := h.Svc.VerifyPayment(ctx, who.UserID, req)
	if err != nil {
		return fail(c, handler, "verify_payment_error", err)
	}

	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	l.Info("verify_payment_success", "order_id", order.ID, "created", created)
	return httpx.OK(c, status, "payment verified", order)
}

func (h *OrderHTTP) GetAll(c echo.Context) error {
	page, offset, limit := pageParams(c)

	total, orders, err := h.Svc.ListAll(c.Request().Context(), c.QueryParam("status"), offset, limit)
	if err != nil {
		return fail(c, "order.get_all", "get_orders_error", err)
	}
	return httpx.OKPage(c, nonNil(orders), httpx.NewPageMeta(page, offset, limit, total))
}

func (h *OrderHTTP) GetForUser(c echo.Context) error {
	const handler = "order.get_for_user"
	who, err := actor(c)
	if err != nil {
		return err
	}
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		logging.FromContext(c.Request().Context()).With("handler", handler).
			Warn("get_orders_error", "status", 400, "reason", "userId is not a uuid", "error", err)
		return httpx.Fail(http.StatusBadRequest, httpx.CodeValidation, "userId is not a uuid")
	}

	page, offset, limit := pageParams(c)
	total, orders, err := h.Svc.ListForUser(c.Request().Context(), who, userID, offset, limit)
	if err != nil {
		return fail(c, handler, "get_orders_error", err)
	}
	return httpx.OKPage(c, nonNil(orders), httpx.NewPageMeta(page, offset, limit, total))
}

func (h *OrderHTTP) GetOrder(c echo.Context) error {
	who, err := actor(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return httpx.Fail(http.StatusBadRequest, httpx.CodeValidation, "id is not a uuid")
	}

	order, err := h.Svc.GetOrder(c.Request().Context(), who, id)
	if err != nil {
		return fail(c, "order.get_order", "get_order_error", err)
	}
	return httpx.OK(c, http.StatusOK, "", order)
}

func (h *OrderHTTP) UpdateOrder(c echo.Context) error {
	const handler = "order.update_order"
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", handler)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		l.Warn("update_order_error", "status", 400, "reason", "id is not a uuid", "error", err)
		return httpx.Fail(http.StatusBadRequest, httpx.CodeValidation, "id is not a uuid")
	}

	var req transport.UpdateOrderRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("update_order_error", "status", 400, "reason", "invalid body", "error", err)
		return httpx.Fail(http.StatusBadRequest, httpx.CodeValidation, "invalid body")
	}

	order, err := h.Svc.UpdateStatus(ctx, id, req)
	if err != nil {
		return fail(c, handler, "update_order_error", err)
	}

	l.Info("update_order_success", "order_id", id, "status", order.Status)
	return httpx.OK(c, http.StatusOK, "order updated", order)
}

func nonNil(orders []models.Order) []models.Order {
	if orders == nil {
		return []models.Order{}
	}
	return orders
}
