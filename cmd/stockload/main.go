// Command stockload sets absolute inventory levels from an xlsx sheet with
// store_id, product_id and available columns. A sheet exported from
// GET /inventory/export can be edited and loaded back as is.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"storepos/internal/config"
	"storepos/internal/infra/db"
	"storepos/internal/infra/logger"
	infraRepo "storepos/internal/infra/repository"
	"storepos/internal/sheet"
	"storepos/internal/usecase"

	"go.uber.org/zap"
)

type realClock struct{}

func (c *realClock) Now() time.Time {
	return time.Now()
}

func main() {
	file := flag.String("file", "", "xlsx workbook to load")
	reason := flag.String("reason", "stock load", "reason recorded on every adjustment")
	flag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "usage: stockload -file stock.xlsx [-reason text]")
		os.Exit(2)
	}

	cfg, err := config.Load(".env", "../.env")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.GoEnv)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log, *file, *reason); err != nil {
		log.Error("stock load failed", zap.Error(err))
		if he, ok := usecase.AsHTTPError(err); ok {
			for field, msg := range he.Fields {
				fmt.Fprintf(os.Stderr, "%s: %s\n", field, msg)
			}
		}
		os.Exit(1)
	}
}

func run(cfg config.Config, log *zap.Logger, path, reason string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	levels, err := sheet.ReadStockLevels(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	if cfg.MigrateOnStart {
		if err := db.Migrate(cfg.DSN(), log); err != nil {
			return err
		}
	}
	gormDB, err := db.Connect(cfg.DSN(), log)
	if err != nil {
		return err
	}

	uc := usecase.NewStockLoadUsecase(infraRepo.NewTxManagerGorm(gormDB), &realClock{}, log)
	res, err := uc.Load(context.Background(), reason, levels)
	if err != nil {
		return err
	}

	fmt.Printf("rows=%d created=%d changed=%d unchanged=%d\n",
		len(levels), res.Created, res.Changed, res.Unchanged)
	return nil
}
