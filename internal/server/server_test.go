package server_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"storepos/internal/domain/model"
	"storepos/internal/handler"
	"storepos/internal/metrics"
	"storepos/internal/repository/repotest"
	"storepos/internal/server"
	"storepos/internal/usecase"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const secret = "server-secret"

type clock struct{}

func (clock) Now() time.Time { return time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC) }

func newServer(t *testing.T, m *metrics.Metrics, log *zap.Logger) *echo.Echo {
	t.Helper()
	mem := repotest.NewMemory()
	s := mem.AddStore(model.Store{Name: "S1"})
	p := mem.AddProduct(model.Product{Name: "P1", Unit: model.UnitUnity, Price: decimal.RequireFromString("10.00")})
	mem.AddInventory(s.ID, p.ID, 5)

	var obs usecase.SaleObserver
	if m != nil {
		obs = m
	}
	catalog := usecase.NewCatalogUsecase(mem.StoreRepo(), mem.ProductRepo(), clock{})
	return server.New(server.Options{JWTSecret: secret, Metrics: m, Log: log}, server.Handlers{
		Store:     handler.NewStoreHandler(catalog),
		Product:   handler.NewProductHandler(catalog),
		Inventory: handler.NewInventoryHandler(usecase.NewInventoryUsecase(mem.InventoryRepo())),
		Sale:      handler.NewSaleHandler(usecase.NewSaleUsecase(mem, clock{}, false, obs, log)),
	})
}

func serve(e *echo.Echo, method, path, body, tok string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	e := newServer(t, nil, nil)

	rec := serve(e, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))

	// no metrics configured
	assert.Equal(t, http.StatusNotFound, serve(e, http.MethodGet, "/metrics", "", "").Code)
}

func TestMetricsAndRequestLog(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	m := metrics.New(prometheus.NewRegistry())
	e := newServer(t, m, zap.New(core))

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "cashier",
		"perms": []string{"add_sale"},
		"exp":   time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))
	require.NoError(t, err)

	rec := serve(e, http.MethodPost, "/sale", `{"number":"1","store":1,"details":[{"product_id":1,"quantity":2}]}`, tok)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = serve(e, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "pos_sales_committed_total 1")
	assert.Contains(t, body, `pos_http_request_duration_seconds_count{method="POST",route="/sale",status="201"} 1`)

	var subjects []string
	for _, entry := range logs.FilterMessage("request").All() {
		if s, ok := entry.ContextMap()["subject"].(string); ok {
			subjects = append(subjects, s)
		}
	}
	assert.Contains(t, subjects, "cashier")
}

func TestStart_ShutsDownOnCancel(t *testing.T) {
	e := newServer(t, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- server.Start(ctx, e, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
