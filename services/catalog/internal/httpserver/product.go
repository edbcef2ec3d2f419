package httpserver

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/skincare_shop/pkg/httpx"
	"github.com/Skotchmaster/skincare_shop/pkg/logging"
	"github.com/Skotchmaster/skincare_shop/services/catalog/internal/service"
	"github.com/Skotchmaster/skincare_shop/services/catalog/internal/transport"
)

type CatalogHTTP struct {
	Svc *service.CatalogService
}

// fail maps service errors to HTTP failures and logs them under event.
func fail(c echo.Context, handler, event string, err error) error {
	l := logging.FromContext(c.Request().Context()).With("handler", handler)
	switch {
	case errors.Is(err, service.ErrValidation):
		l.Warn(event, "status", 400, "reason", "validation", "error", err)
		return httpx.Fail(http.StatusBadRequest, httpx.CodeValidation, err.Error())
	case errors.Is(err, service.ErrNotFound):
		l.Warn(event, "status", 404, "reason", "product not found", "error", err)
		return httpx.Fail(http.StatusNotFound, httpx.CodeNotFound, "product not found")
	case errors.Is(err, service.ErrConflict):
		l.Warn(event, "status", 409, "reason", "slug conflict", "error", err)
		return httpx.Fail(http.StatusConflict, httpx.CodeConflict, err.Error())
	case errors.Is(err, service.ErrSearchDisabled):
		l.Warn(event, "status", 503, "reason", "search disabled", "error", err)
		return httpx.Fail(http.StatusServiceUnavailable, httpx.CodeUnavailable, "search is not available")
	default:
		l.Error(event, "status", 500, "reason", "internal", "error", err)
		return httpx.Fail(http.StatusInternalServerError, httpx.CodeInternal, "internal error")
	}
}

func parseID(c echo.Context, handler, event string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		logging.FromContext(c.Request().Context()).With("handler", handler).
			Warn(event, "status", 400, "reason", "id is not a uuid", "error", err)
		return uuid.Nil, httpx.Fail(http.StatusBadRequest, httpx.CodeValidation, "id is not a uuid")
	}
	return id, nil
}

func (h *CatalogHTTP) GetProduct(c echo.Context) error {
	const handler = "product.get_product"
	id, err := parseID(c, handler, "get_product_failed")
	if err != nil {
		return err
	}

	product, err := h.Svc.GetProduct(c.Request().Context(), id)
	if err != nil {
		return fail(c, handler, "get_product_failed", err)
	}
	return c.JSON(http.StatusOK, product)
}

func (h *CatalogHTTP) GetProductBySlug(c echo.Context) error {
	product, err := h.Svc.GetProductBySlug(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return fail(c, "product.get_by_slug", "get_product_failed", err)
	}
	return c.JSON(http.StatusOK, product)
}

func (h *CatalogHTTP) GetProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.get_products")

	page := httpx.ParseIntDefault(c.QueryParam("page"), 1)
	size := httpx.ParseIntDefault(c.QueryParam("size"), httpx.DefaultPageSize)
	offset, limit := httpx.Calculate(page, size)

	total, items, err := h.Svc.GetProducts(ctx, c.QueryParam("category"), offset, limit)
	if err != nil {
		return fail(c, "product.get_products", "get_products_error", err)
	}

	l.Debug("get_products_success", "total", total)
	return c.JSON(http.StatusOK, map[string]any{
		"data": items,
		"meta": httpx.NewPageMeta(page, offset, limit, total),
	})
}

func (h *CatalogHTTP) SearchProducts(c echo.Context) error {
	ctx := c.Request().Context()

	page := httpx.ParseIntDefault(c.QueryParam("page"), 1)
	size := httpx.ParseIntDefault(c.QueryParam("size"), httpx.DefaultPageSize)
	offset, limit := httpx.Calculate(page, size)

	total, items, err := h.Svc.SearchProducts(ctx, c.QueryParam("q"), offset, limit)
	if err != nil {
		return fail(c, "product.search", "search_products_error", err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"data": items,
		"meta": httpx.NewPageMeta(page, offset, limit, total),
	})
}

func (h *CatalogHTTP) CreateProduct(c echo.Context) error {
	const handler = "product.create_product"
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", handler)

	var req transport.CreateProductRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("product_create_error", "status", 400, "reason", "invalid body", "error", err)
		return httpx.Fail(http.StatusBadRequest, httpx.CodeValidation, "invalid body")
	}

	created, err := h.Svc.CreateProduct(ctx, req)
	if err != nil {
		return fail(c, handler, "product_create_error", err)
	}

	l.Info("create_product_success", "product_id", created.ID, "slug", created.Slug)
	return c.JSON(http.StatusCreated, created)
}

func (h *CatalogHTTP) PatchProduct(c echo.Context) error {
	const handler = "product.patch_product"
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", handler)

	id, err := parseID(c, handler, "product_patch_error")
	if err != nil {
		return err
	}

	var req transport.PatchProductRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("product_patch_error", "status", 400, "reason", "invalid body", "error", err)
		return httpx.Fail(http.StatusBadRequest, httpx.CodeValidation, "invalid body")
	}

	prod, err := h.Svc.PatchProduct(ctx, req, id)
	if err != nil {
		return fail(c, handler, "product_patch_error", err)
	}

	l.Info("patch_product_success", "product_id", prod.ID)
	return c.JSON(http.StatusOK, prod)
}

func (h *CatalogHTTP) DeleteProduct(c echo.Context) error {
	const handler = "product.delete_product"
	ctx := c.Request().Context()

	id, err := parseID(c, handler, "product_delete_error")
	if err != nil {
		return err
	}
	if err := h.Svc.DeleteProduct(ctx, id); err != nil {
		return fail(c, handler, "product_delete_error", err)
	}

	logging.FromContext(ctx).With("handler", handler).Info("delete_product_success", "product_id", id)
	return c.NoContent(http.StatusNoContent)
}
