package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"storepos/internal/domain/model"
	repo "storepos/internal/repository"

	"go.uber.org/zap"
)

// one line of an operator stock sheet
type StockLevel struct {
	Row       int
	StoreID   int64
	ProductID int64
	Available int64
}

type StockLoadResult struct {
	Created   int
	Changed   int
	Unchanged int
}

type StockLoadUsecase struct {
	tx    repo.TransactionManager
	clock Clock
	log   *zap.Logger
}

func NewStockLoadUsecase(tx repo.TransactionManager, clock Clock, log *zap.Logger) *StockLoadUsecase {
	if log == nil {
		log = zap.NewNop()
	}
	return &StockLoadUsecase{tx: tx, clock: clock, log: log}
}

// Load sets absolute stock levels. The whole sheet is applied in one
// transaction; a bad row rejects every row.
func (u *StockLoadUsecase) Load(ctx context.Context, reason string, levels []StockLevel) (StockLoadResult, error) {
	if len(levels) == 0 {
		return StockLoadResult{}, ValidationError("rows", msgListRequired)
	}
	if reason == "" {
		reason = "stock load"
	}

	fe := fieldErrors{}
	seen := make(map[[2]int64]int, len(levels))
	for _, l := range levels {
		field := rowField(l.Row)
		switch {
		case l.StoreID <= 0:
			fe.add(field, "invalid store id")
		case l.ProductID <= 0:
			fe.add(field, "invalid product id")
		case l.Available < 0:
			fe.add(field, "availability cannot be less than zero")
		}
		key := [2]int64{l.StoreID, l.ProductID}
		if first, dup := seen[key]; dup {
			fe.add(field, fmt.Sprintf("duplicate of row %d", first))
		}
		seen[key] = l.Row
	}
	if err := fe.err(); err != nil {
		return StockLoadResult{}, err
	}

	var res StockLoadResult
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		for _, l := range levels {
			if _, err := r.Stores().FindByID(ctx, l.StoreID); err != nil {
				return rowLookupError(err, l.Row, "store")
			}
			if _, err := r.Products().FindByID(ctx, l.ProductID); err != nil {
				return rowLookupError(err, l.Row, "product")
			}

			_, getErr := r.Inventory().Get(ctx, l.StoreID, l.ProductID)
			existed := getErr == nil
			if getErr != nil && !errors.Is(getErr, repo.ErrNotFound) {
				return dbError(getErr)
			}

			before, err := r.Inventory().Upsert(ctx, l.StoreID, l.ProductID, l.Available)
			if err != nil {
				return dbError(err)
			}

			delta := l.Available - before
			switch {
			case !existed:
				res.Created++
			case delta != 0:
				res.Changed++
			default:
				res.Unchanged++
				continue
			}

			if err := r.Inventory().CreateAdjustment(ctx, model.InventoryAdjustment{
				StoreID:   l.StoreID,
				ProductID: l.ProductID,
				Delta:     delta,
				Reason:    reason,
				CreatedAt: u.clock.Now(),
			}); err != nil {
				return dbError(err)
			}
		}
		return nil
	})
	if err != nil {
		return StockLoadResult{}, err
	}

	u.log.Info("stock loaded",
		zap.Int("created", res.Created),
		zap.Int("changed", res.Changed),
		zap.Int("unchanged", res.Unchanged),
		zap.String("reason", reason))
	return res, nil
}

func rowField(row int) string {
	return fmt.Sprintf("row[%d]", row)
}

func rowLookupError(err error, row int, what string) error {
	if errors.Is(err, repo.ErrNotFound) {
		msg := what + " not found"
		return &HTTPError{
			Status:  http.StatusNotFound,
			Code:    CodeNotFound,
			Message: msg,
			Fields:  map[string]string{rowField(row): msg},
		}
	}
	return dbError(err)
}
