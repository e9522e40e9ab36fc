package handler

import (
	"context"
	"net/http"

	"storepos/internal/domain/model"
	"storepos/internal/middleware"
	"storepos/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// /product
type ProductHandler struct {
	uc *usecase.CatalogUsecase
}

// DI
func NewProductHandler(uc *usecase.CatalogUsecase) *ProductHandler {
	return &ProductHandler{uc: uc}
}

// price accepts "12.50" or 12.5
type ProductRequest struct {
	Name  *string          `json:"name"`
	Unit  *string          `json:"unit"`
	Price *decimal.Decimal `json:"price"`
}

func (r ProductRequest) input() usecase.ProductInput {
	return usecase.ProductInput{Name: r.Name, Unit: r.Unit, Price: r.Price}
}

func (h *ProductHandler) RegisterRoutes(e *echo.Echo, secret string) {
	g := e.Group("/product")
	g.Use(middleware.AuthJWT(secret))

	g.GET("", h.list, middleware.RequirePermission("view_product"))
	g.GET("/:id", h.detail, middleware.RequirePermission("view_product"))
	g.POST("", h.create, middleware.RequirePermission("add_product"))
	g.PUT("/:id", h.update, middleware.RequirePermission("change_product"))
	g.PATCH("/:id", h.patch, middleware.RequirePermission("change_product"))

	g.DELETE("", notAllowed)
	g.DELETE("/:id", notAllowed)
}

func (h *ProductHandler) list(c echo.Context) error {
	page, limit, err := pageParams(c)
	if err != nil {
		return writeError(c, err)
	}

	var price *decimal.Decimal
	if v := c.QueryParam("price"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return writeError(c, usecase.ValidationError("price", "A valid number is required."))
		}
		price = &d
	}

	out, err := h.uc.ListProducts(c.Request().Context(), usecase.ListProductsInput{
		Page:   page,
		Limit:  limit,
		Search: c.QueryParam("search"),
		Price:  price,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ProductHandler) detail(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}

	out, err := h.uc.GetProduct(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ProductHandler) create(c echo.Context) error {
	var req ProductRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	out, err := h.uc.CreateProduct(c.Request().Context(), req.input())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *ProductHandler) update(c echo.Context) error {
	return h.save(c, h.uc.UpdateProduct)
}

func (h *ProductHandler) patch(c echo.Context) error {
	return h.save(c, h.uc.PatchProduct)
}

func (h *ProductHandler) save(c echo.Context, fn func(ctx context.Context, id int64, in usecase.ProductInput) (model.Product, error)) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}

	var req ProductRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	out, err := fn(c.Request().Context(), id, req.input())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
