package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo, opts Options, h Handlers) {
	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})
	if opts.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(opts.Metrics.Handler()))
	}

	h.Store.RegisterRoutes(e, opts.JWTSecret)
	h.Product.RegisterRoutes(e, opts.JWTSecret)
	h.Inventory.RegisterRoutes(e, opts.JWTSecret)
	h.Sale.RegisterRoutes(e, opts.JWTSecret)
}
