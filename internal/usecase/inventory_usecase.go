package usecase

import (
	"context"
	"errors"
	"fmt"

	"storepos/internal/domain/model"
	repo "storepos/internal/repository"
)

// row cap for the xlsx export
const maxExportRows = 10000

// Read-only surface of the inventory ledger. Stock only moves through sales
// and the operator stock loader.
type InventoryUsecase struct {
	inventory repo.InventoryRepository
}

func NewInventoryUsecase(inventory repo.InventoryRepository) *InventoryUsecase {
	return &InventoryUsecase{inventory: inventory}
}

type ListInventoryInput struct {
	Page      int
	Limit     int
	StoreID   *int64
	ProductID *int64
}

func (u *InventoryUsecase) ListInventory(ctx context.Context, in ListInventoryInput) (ListOutput[model.Inventory], error) {
	p, err := checkPage(in.Page, in.Limit)
	if err != nil {
		return ListOutput[model.Inventory]{}, err
	}

	items, total, err := u.inventory.List(ctx, repo.InventoryFilter{
		Pagination: p,
		StoreID:    in.StoreID,
		ProductID:  in.ProductID,
	})
	if err != nil {
		return ListOutput[model.Inventory]{}, dbError(err)
	}
	return ListOutput[model.Inventory]{Items: items, Total: total, Page: p.Page, Limit: p.Limit}, nil
}

func (u *InventoryUsecase) GetInventory(ctx context.Context, id int64) (model.Inventory, error) {
	if err := checkID(id, "inventory"); err != nil {
		return model.Inventory{}, err
	}
	inv, err := u.inventory.FindByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Inventory{}, NotFoundError("inventory")
	}
	if err != nil {
		return model.Inventory{}, dbError(err)
	}
	return inv, nil
}

// Collects every page of the filtered listing for the xlsx export.
func (u *InventoryUsecase) ExportInventory(ctx context.Context, storeID, productID *int64) ([]model.Inventory, error) {
	out := make([]model.Inventory, 0)
	page := repo.Pagination{Page: 1, Limit: repo.MaxLimit}

	for {
		items, total, err := u.inventory.List(ctx, repo.InventoryFilter{
			Pagination: page,
			StoreID:    storeID,
			ProductID:  productID,
		})
		if err != nil {
			return nil, dbError(err)
		}
		if total > maxExportRows {
			return nil, ValidationError("store", fmt.Sprintf("export limited to %d rows, narrow the filter", maxExportRows))
		}

		out = append(out, items...)
		if len(items) < page.Limit || int64(len(out)) >= total {
			return out, nil
		}
		page.Page++
	}
}
