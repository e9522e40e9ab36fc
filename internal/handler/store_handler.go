package handler

import (
	"context"
	"net/http"

	"storepos/internal/domain/model"
	"storepos/internal/middleware"
	"storepos/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /store
type StoreHandler struct {
	uc *usecase.CatalogUsecase
}

// DI
func NewStoreHandler(uc *usecase.CatalogUsecase) *StoreHandler {
	return &StoreHandler{uc: uc}
}

type StoreRequest struct {
	Name    *string `json:"name"`
	Address *string `json:"address"`
	Phone   *string `json:"phone"`
}

func (r StoreRequest) input() usecase.StoreInput {
	return usecase.StoreInput{Name: r.Name, Address: r.Address, Phone: r.Phone}
}

func (h *StoreHandler) RegisterRoutes(e *echo.Echo, secret string) {
	g := e.Group("/store")
	g.Use(middleware.AuthJWT(secret))

	g.GET("", h.list, middleware.RequirePermission("view_store"))
	g.GET("/:id", h.detail, middleware.RequirePermission("view_store"))
	g.POST("", h.create, middleware.RequirePermission("add_store"))
	g.PUT("/:id", h.update, middleware.RequirePermission("change_store"))
	g.PATCH("/:id", h.patch, middleware.RequirePermission("change_store"))

	// stores referenced by inventory or sales stay
	g.DELETE("", notAllowed)
	g.DELETE("/:id", notAllowed)
}

func (h *StoreHandler) list(c echo.Context) error {
	page, limit, err := pageParams(c)
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.ListStores(c.Request().Context(), usecase.ListStoresInput{
		Page:   page,
		Limit:  limit,
		Search: c.QueryParam("search"),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *StoreHandler) detail(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}

	out, err := h.uc.GetStore(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *StoreHandler) create(c echo.Context) error {
	var req StoreRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	out, err := h.uc.CreateStore(c.Request().Context(), req.input())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *StoreHandler) update(c echo.Context) error {
	return h.save(c, h.uc.UpdateStore)
}

func (h *StoreHandler) patch(c echo.Context) error {
	return h.save(c, h.uc.PatchStore)
}

func (h *StoreHandler) save(c echo.Context, fn func(ctx context.Context, id int64, in usecase.StoreInput) (model.Store, error)) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}

	var req StoreRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	out, err := fn(c.Request().Context(), id, req.input())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
