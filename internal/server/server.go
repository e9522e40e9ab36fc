package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"storepos/internal/handler"
	"storepos/internal/metrics"
	mw "storepos/internal/middleware"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

type Options struct {
	JWTSecret string
	// nil skips request metrics and /metrics
	Metrics *metrics.Metrics
	Log     *zap.Logger
}

type Handlers struct {
	Store     *handler.StoreHandler
	Product   *handler.ProductHandler
	Inventory *handler.InventoryHandler
	Sale      *handler.SaleHandler
}

// New builds the echo instance with middleware and every route.
func New(opts Options, h Handlers) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(echomw.Recover())
	if opts.Log != nil {
		e.Use(mw.RequestLogger(opts.Log))
	}
	if opts.Metrics != nil {
		e.Use(opts.Metrics.Middleware())
	}

	RegisterRoutes(e, opts, h)
	return e
}

// Start serves until ctx is cancelled, then drains in-flight requests.
func Start(ctx context.Context, e *echo.Echo, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
