package handler

import (
	"context"
	"net/http"

	"storepos/internal/middleware"
	"storepos/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /sale and /sale-detail
type SaleHandler struct {
	uc *usecase.SaleUsecase
}

// DI
func NewSaleHandler(uc *usecase.SaleUsecase) *SaleHandler {
	return &SaleHandler{uc: uc}
}

type SaleLineRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

type SaleCreateRequest struct {
	Number  string            `json:"number"`
	Store   int64             `json:"store"`
	Details []SaleLineRequest `json:"details"`
}

func (h *SaleHandler) RegisterRoutes(e *echo.Echo, secret string) {
	g := e.Group("/sale")
	g.Use(middleware.AuthJWT(secret))

	g.GET("", h.list, middleware.RequirePermission("view_sale"))
	g.GET("/:id", h.detail, middleware.RequirePermission("view_sale"))
	g.POST("", h.create, middleware.RequirePermission("add_sale"))

	// committed sales are immutable
	g.PUT("/:id", h.update)
	g.PATCH("/:id", h.patch)
	g.DELETE("/:id", h.delete)
	g.PUT("", notAllowed)
	g.PATCH("", notAllowed)
	g.DELETE("", notAllowed)

	d := e.Group("/sale-detail")
	d.Use(middleware.AuthJWT(secret))

	d.GET("", h.listDetails, middleware.RequirePermission("view_saledetail"))
	d.GET("/:id", h.detailLine, middleware.RequirePermission("view_saledetail"))
	for _, p := range []string{"", "/:id"} {
		d.POST(p, notAllowed)
		d.PUT(p, notAllowed)
		d.PATCH(p, notAllowed)
		d.DELETE(p, notAllowed)
	}
}

func (h *SaleHandler) create(c echo.Context) error {
	actor, ok := middleware.Subject(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req SaleCreateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	lines := make([]usecase.SaleLineInput, 0, len(req.Details))
	for _, d := range req.Details {
		lines = append(lines, usecase.SaleLineInput{ProductID: d.ProductID, Quantity: d.Quantity})
	}

	out, err := h.uc.CreateSale(c.Request().Context(), usecase.CreateSaleInput{
		Actor:   actor,
		Number:  req.Number,
		StoreID: req.Store,
		Details: lines,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *SaleHandler) list(c echo.Context) error {
	page, limit, err := pageParams(c)
	if err != nil {
		return writeError(c, err)
	}
	date, err := queryDate(c, "date")
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.ListSales(c.Request().Context(), usecase.ListSalesInput{
		Page:   page,
		Limit:  limit,
		Number: c.QueryParam("number"),
		Date:   date,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *SaleHandler) detail(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}

	out, err := h.uc.GetSale(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *SaleHandler) update(c echo.Context) error {
	return h.mutate(c, h.uc.UpdateSale)
}

func (h *SaleHandler) patch(c echo.Context) error {
	return h.mutate(c, h.uc.PatchSale)
}

func (h *SaleHandler) delete(c echo.Context) error {
	return h.mutate(c, h.uc.DeleteSale)
}

func (h *SaleHandler) mutate(c echo.Context, fn func(ctx context.Context, id int64) error) error {
	id, _ := pathID(c)
	return writeError(c, fn(c.Request().Context(), id))
}

func (h *SaleHandler) listDetails(c echo.Context) error {
	page, limit, err := pageParams(c)
	if err != nil {
		return writeError(c, err)
	}
	saleID, err := queryID(c, "sale")
	if err != nil {
		return writeError(c, err)
	}
	productID, err := queryID(c, "product")
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.ListSaleDetails(c.Request().Context(), usecase.ListSaleDetailsInput{
		Page:       page,
		Limit:      limit,
		SaleID:     saleID,
		SaleNumber: c.QueryParam("sale_number"),
		ProductID:  productID,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *SaleHandler) detailLine(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}

	out, err := h.uc.GetSaleDetail(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
