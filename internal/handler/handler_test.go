package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"storepos/internal/domain/model"
	"storepos/internal/handler"
	"storepos/internal/repository/repotest"
	"storepos/internal/sheet"
	"storepos/internal/usecase"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "handler-secret"

type clock struct{}

func (clock) Now() time.Time { return time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC) }

var allPerms = []string{
	"view_store", "add_store", "change_store",
	"view_product", "add_product", "change_product",
	"view_inventory",
	"view_sale", "add_sale",
	"view_saledetail",
}

type testAPI struct {
	e   *echo.Echo
	mem *repotest.Memory

	store model.Store
	p1    model.Product
	p2    model.Product
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	mem := repotest.NewMemory()
	api := &testAPI{e: echo.New(), mem: mem}
	api.store = mem.AddStore(model.Store{Name: "S1"})
	api.p1 = mem.AddProduct(model.Product{Name: "P1", Unit: model.UnitUnity, Price: decimal.RequireFromString("10.00")})
	api.p2 = mem.AddProduct(model.Product{Name: "P2", Unit: model.UnitGram, Price: decimal.RequireFromString("0.50")})
	mem.AddInventory(api.store.ID, api.p1.ID, 5)

	catalog := usecase.NewCatalogUsecase(mem.StoreRepo(), mem.ProductRepo(), clock{})
	handler.NewStoreHandler(catalog).RegisterRoutes(api.e, secret)
	handler.NewProductHandler(catalog).RegisterRoutes(api.e, secret)
	handler.NewInventoryHandler(usecase.NewInventoryUsecase(mem.InventoryRepo())).RegisterRoutes(api.e, secret)
	handler.NewSaleHandler(usecase.NewSaleUsecase(mem, clock{}, false, nil, nil)).RegisterRoutes(api.e, secret)
	return api
}

func token(t *testing.T, perms ...string) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "cashier",
		"perms": perms,
		"exp":   time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	return raw
}

func (a *testAPI) do(t *testing.T, method, path, body, tok string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) handler.ErrorResponse {
	t.Helper()
	var r handler.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &r))
	return r
}

// =====================
// auth
// =====================

func TestAuth_Gating(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/store", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(t, http.MethodGet, "/store", "", token(t, "view_product"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(t, http.MethodPost, "/sale", `{"number":"1","store":1,"details":[{"product_id":1,"quantity":1}]}`, token(t, "view_sale"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	n, _ := api.mem.Available(api.store.ID, api.p1.ID)
	assert.Equal(t, int64(5), n)

	rec = api.do(t, http.MethodGet, "/store", "", token(t, "view_store"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

// =====================
// 405
// =====================

func TestNotAllowedVerbs(t *testing.T) {
	api := newTestAPI(t)
	tok := token(t, allPerms...)

	cases := []struct {
		method string
		path   string
	}{
		{http.MethodDelete, "/store/1"},
		{http.MethodDelete, "/product/1"},
		{http.MethodPost, "/inventory"},
		{http.MethodPut, "/inventory/1"},
		{http.MethodPatch, "/inventory/1"},
		{http.MethodDelete, "/inventory/1"},
		{http.MethodPut, "/sale/1"},
		{http.MethodPatch, "/sale/1"},
		{http.MethodDelete, "/sale/1"},
		{http.MethodPost, "/sale-detail"},
		{http.MethodPut, "/sale-detail/1"},
		{http.MethodDelete, "/sale-detail/1"},
	}

	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rec := api.do(t, tc.method, tc.path, `{"available":99}`, tok)
			assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
			assert.Equal(t, usecase.CodeNotAllowed, decodeError(t, rec).Code)
		})
	}

	// storage unchanged
	n, _ := api.mem.Available(api.store.ID, api.p1.ID)
	assert.Equal(t, int64(5), n)
	rec := api.do(t, http.MethodGet, "/store/1", "", tok)
	assert.Equal(t, http.StatusOK, rec.Code)
}

// =====================
// /sale
// =====================

func TestSale_Create(t *testing.T) {
	api := newTestAPI(t)
	tok := token(t, allPerms...)

	rec := api.do(t, http.MethodPost, "/sale", `{"number":"1","store":1,"details":[{"product_id":1,"quantity":2}]}`, tok)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var out usecase.SaleOutput
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "1", out.Number)
	assert.Equal(t, "2026-03-14", out.Date)
	assert.Equal(t, []usecase.SaleLineOutput{{Product: api.p1.ID, Quantity: 2, Value: "20.00"}}, out.Details)

	n, _ := api.mem.Available(api.store.ID, api.p1.ID)
	assert.Equal(t, int64(3), n)

	audits := api.mem.AuditRows()
	require.Len(t, audits, 1)
	assert.Equal(t, "cashier", audits[0].Actor)

	rec = api.do(t, http.MethodGet, "/sale/1", "", tok)
	require.Equal(t, http.StatusOK, rec.Code)
	var got usecase.SaleOutput
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, out, got)

	rec = api.do(t, http.MethodGet, "/sale-detail?sale=1", "", tok)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"value":"20.00"`)
}

func TestSale_Create_InventoryUnavailable(t *testing.T) {
	api := newTestAPI(t)
	tok := token(t, allPerms...)

	rec := api.do(t, http.MethodPost, "/sale",
		`{"number":"1","store":1,"details":[{"product_id":1,"quantity":2},{"product_id":2,"quantity":1}]}`, tok)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeError(t, rec)
	assert.Equal(t, usecase.CodeInventoryUnavailable, body.Code)
	assert.Equal(t, "product not in inventory for this store", body.Fields["details[1].product_id"])

	n, _ := api.mem.Available(api.store.ID, api.p1.ID)
	assert.Equal(t, int64(5), n)
	assert.Empty(t, api.mem.SaleRows())
}

func TestSale_Create_BadRequests(t *testing.T) {
	api := newTestAPI(t)
	tok := token(t, allPerms...)

	rec := api.do(t, http.MethodPost, "/sale", `{"number":`, tok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid body", decodeError(t, rec).Error)

	rec = api.do(t, http.MethodPost, "/sale", `{"number":"","store":1,"details":[]}`, tok)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, usecase.CodeValidation, body.Code)
	assert.Contains(t, body.Fields, "number")
	assert.Equal(t, "This list is required.", body.Fields["details"])

	rec = api.do(t, http.MethodGet, "/sale?date=14-03-2026", "", tok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodGet, "/sale/abc", "", tok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =====================
// catalog
// =====================

func TestProduct_CreateAndFilter(t *testing.T) {
	api := newTestAPI(t)
	tok := token(t, allPerms...)

	rec := api.do(t, http.MethodPost, "/product", `{"name":"Arroz","unit":"paq","price":"0"}`, tok)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "price cannot be less than or equals zero", decodeError(t, rec).Fields["price"])

	rec = api.do(t, http.MethodPost, "/product", `{"name":"Arroz","unit":"paq","price":"2.50"}`, tok)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = api.do(t, http.MethodGet, "/product?price=2.5", "", tok)
	require.Equal(t, http.StatusOK, rec.Code)
	var list usecase.ListOutput[model.Product]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Equal(t, int64(1), list.Total)
	assert.Equal(t, "Arroz", list.Items[0].Name)

	rec = api.do(t, http.MethodGet, "/product?search=p", "", tok)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, int64(2), list.Total)

	rec = api.do(t, http.MethodGet, "/product?price=abc", "", tok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStore_UpdateAndPatch(t *testing.T) {
	api := newTestAPI(t)
	tok := token(t, allPerms...)

	rec := api.do(t, http.MethodPatch, "/store/1", `{"phone":"3001234567"}`, tok)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var s model.Store
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
	assert.Equal(t, "S1", s.Name)
	assert.Equal(t, "3001234567", s.Phone)

	rec = api.do(t, http.MethodPut, "/store/1", `{"phone":"1"}`, tok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodPut, "/store/9", `{"name":"x"}`, tok)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =====================
// /inventory
// =====================

func TestInventory_ListAndExport(t *testing.T) {
	api := newTestAPI(t)
	tok := token(t, allPerms...)

	rec := api.do(t, http.MethodGet, "/inventory?store=1", "", tok)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"available":5`)
	assert.Contains(t, rec.Body.String(), `"name":"S1"`)

	rec = api.do(t, http.MethodGet, "/inventory?store=x", "", tok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodGet, "/inventory/export?store=1", "", tok)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, sheet.ContentType, rec.Header().Get(echo.HeaderContentType))
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), ".xlsx")

	levels, err := sheet.ReadStockLevels(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	require.Len(t, levels, 1)
	assert.Equal(t, int64(5), levels[0].Available)
}
