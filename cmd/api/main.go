package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storepos/internal/config"
	"storepos/internal/handler"
	"storepos/internal/infra/db"
	"storepos/internal/infra/logger"
	infraRepo "storepos/internal/infra/repository"
	"storepos/internal/metrics"
	"storepos/internal/server"
	"storepos/internal/usecase"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

type realClock struct{}

func (c *realClock) Now() time.Time {
	return time.Now()
}

func main() {
	cfg, err := config.Load(".env", "../.env")
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.GoEnv)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MigrateOnStart {
		if err := db.Migrate(cfg.DSN(), log); err != nil {
			return err
		}
	}

	// DB
	gormDB, err := db.Connect(cfg.DSN(), log)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// repositories
	storeRepo := infraRepo.NewStoreGormRepository(gormDB)
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	inventoryRepo := infraRepo.NewInventoryGormRepository(gormDB)
	txm := infraRepo.NewTxManagerGorm(gormDB)

	clock := &realClock{}

	// usecases
	catalogUC := usecase.NewCatalogUsecase(storeRepo, productRepo, clock)
	inventoryUC := usecase.NewInventoryUsecase(inventoryRepo)
	saleUC := usecase.NewSaleUsecase(txm, clock, cfg.InventoryAllowNegative, m, log.Named("sale"))

	// handlers
	h := server.Handlers{
		Store:     handler.NewStoreHandler(catalogUC),
		Product:   handler.NewProductHandler(catalogUC),
		Inventory: handler.NewInventoryHandler(inventoryUC),
		Sale:      handler.NewSaleHandler(saleUC),
	}

	opts := server.Options{JWTSecret: cfg.JWTSecret, Log: log.Named("http")}
	if cfg.MetricsEnabled {
		opts.Metrics = m
	}
	e := server.New(opts, h)

	log.Info("listening",
		zap.String("addr", cfg.Addr()),
		zap.String("env", cfg.GoEnv),
		zap.Bool("allow_negative_stock", cfg.InventoryAllowNegative))
	return server.Start(ctx, e, cfg.Addr())
}
