package repository

import (
	"context"

	"storepos/internal/domain/model"
)

type InventoryFilter struct {
	Pagination
	StoreID   *int64
	ProductID *int64
}

// The inventory ledger. Decrements only happen inside a sale transaction.
type InventoryRepository interface {
	List(ctx context.Context, f InventoryFilter) ([]model.Inventory, int64, error)
	FindByID(ctx context.Context, id int64) (model.Inventory, error)
	Get(ctx context.Context, storeID, productID int64) (model.Inventory, error)

	// Locks the (store, product) row for the rest of the transaction.
	// ErrNotInInventory when the row is absent. With allowNegative=false a
	// short row yields ErrInsufficientStock and nothing is written.
	TryDecrement(ctx context.Context, storeID, productID, qty int64, allowNegative bool) (model.Inventory, error)

	// stockload only
	Upsert(ctx context.Context, storeID, productID, available int64) (before int64, err error)
	CreateAdjustment(ctx context.Context, adj model.InventoryAdjustment) error
}
