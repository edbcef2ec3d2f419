package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	middleware "github.com/Skotchmaster/skincare_shop/pkg/middleware/auth"
)

type Deps struct {
	OrderHandler *OrderHTTP
	JWTSecret    []byte
	AuthClient   middleware.Refresher
	Ready        func() error
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready != nil {
			if err := d.Ready(); err != nil {
				return c.NoContent(http.StatusServiceUnavailable)
			}
		}
		return c.NoContent(http.StatusOK)
	})

	authMW := middleware.NewAutoRefreshMiddleware(d.JWTSecret, d.AuthClient)

	e.POST("/cart/quote", d.OrderHandler.Quote)

	orders := e.Group("/order", authMW.RequireAuth)
	orders.POST("/capturePayment", d.OrderHandler.CapturePayment)
	orders.POST("/verifyPayment", d.OrderHandler.VerifyPayment)
	orders.GET("/get/:userId", d.OrderHandler.GetForUser)
	orders.GET("/:id", d.OrderHandler.GetOrder)

	e.GET("/order/getAll", d.OrderHandler.GetAll, authMW.RequireAdmin)
	e.PUT("/order/update/:id", d.OrderHandler.UpdateOrder, authMW.RequireAdmin)
}
