package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"storepos/internal/middleware"
	"storepos/internal/sheet"
	"storepos/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /inventory is read-only over HTTP. Stock is set by the stockload command
// and moved by sales.
type InventoryHandler struct {
	uc *usecase.InventoryUsecase
}

// DI
func NewInventoryHandler(uc *usecase.InventoryUsecase) *InventoryHandler {
	return &InventoryHandler{uc: uc}
}

func (h *InventoryHandler) RegisterRoutes(e *echo.Echo, secret string) {
	g := e.Group("/inventory")
	g.Use(middleware.AuthJWT(secret))

	g.GET("", h.list, middleware.RequirePermission("view_inventory"))
	g.GET("/export", h.export, middleware.RequirePermission("view_inventory"))
	g.GET("/:id", h.detail, middleware.RequirePermission("view_inventory"))

	for _, p := range []string{"", "/:id"} {
		g.POST(p, notAllowed)
		g.PUT(p, notAllowed)
		g.PATCH(p, notAllowed)
		g.DELETE(p, notAllowed)
	}
}

func (h *InventoryHandler) list(c echo.Context) error {
	page, limit, err := pageParams(c)
	if err != nil {
		return writeError(c, err)
	}
	storeID, productID, err := inventoryFilter(c)
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.ListInventory(c.Request().Context(), usecase.ListInventoryInput{
		Page:      page,
		Limit:     limit,
		StoreID:   storeID,
		ProductID: productID,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *InventoryHandler) detail(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}

	out, err := h.uc.GetInventory(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// xlsx of the filtered listing
func (h *InventoryHandler) export(c echo.Context) error {
	storeID, productID, err := inventoryFilter(c)
	if err != nil {
		return writeError(c, err)
	}

	rows, err := h.uc.ExportInventory(c.Request().Context(), storeID, productID)
	if err != nil {
		return writeError(c, err)
	}

	buf := &bytes.Buffer{}
	if err := sheet.WriteInventory(buf, rows); err != nil {
		return writeError(c, err)
	}

	fileName := fmt.Sprintf("inventory_%s.xlsx", time.Now().Format("20060102_150405"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, fileName))
	return c.Blob(http.StatusOK, sheet.ContentType, buf.Bytes())
}

func inventoryFilter(c echo.Context) (*int64, *int64, error) {
	storeID, err := queryID(c, "store")
	if err != nil {
		return nil, nil, err
	}
	productID, err := queryID(c, "product")
	if err != nil {
		return nil, nil, err
	}
	return storeID, productID, nil
}
