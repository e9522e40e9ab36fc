package repository

import (
	"context"
	"time"

	"storepos/internal/domain/model"
	repo "storepos/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InventoryGormRepository struct {
	db *gorm.DB
}

func NewInventoryGormRepository(db *gorm.DB) *InventoryGormRepository {
	return &InventoryGormRepository{db: db}
}

func (r *InventoryGormRepository) List(ctx context.Context, f repo.InventoryFilter) ([]model.Inventory, int64, error) {
	var items []model.Inventory
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Inventory{})
	if f.StoreID != nil {
		q = q.Where("store_id = ?", *f.StoreID)
	}
	if f.ProductID != nil {
		q = q.Where("product_id = ?", *f.ProductID)
	}

	if err := q.Count(&total).Error; err != nil {
		return []model.Inventory{}, 0, translate(err)
	}

	p := f.Normalize()
	err := q.Preload("Store").Preload("Product").
		Order("store_id asc").Order("product_id asc").
		Offset(p.Offset()).Limit(p.Limit).
		Find(&items).Error
	if err != nil {
		return []model.Inventory{}, 0, translate(err)
	}
	return items, total, nil
}

func (r *InventoryGormRepository) FindByID(ctx context.Context, id int64) (model.Inventory, error) {
	var inv model.Inventory
	if err := r.db.WithContext(ctx).Preload("Store").Preload("Product").First(&inv, id).Error; err != nil {
		return model.Inventory{}, translate(err)
	}
	return inv, nil
}

func (r *InventoryGormRepository) Get(ctx context.Context, storeID, productID int64) (model.Inventory, error) {
	var inv model.Inventory
	err := r.db.WithContext(ctx).
		Preload("Store").Preload("Product").
		Where("store_id = ? AND product_id = ?", storeID, productID).
		First(&inv).Error
	if err != nil {
		return model.Inventory{}, translate(err)
	}
	return inv, nil
}

// Takes FOR UPDATE on the row first; the lock is held until the surrounding tx ends.
func (r *InventoryGormRepository) TryDecrement(ctx context.Context, storeID, productID, qty int64, allowNegative bool) (model.Inventory, error) {
	inv, err := r.lock(ctx, storeID, productID)
	if isNotFound(err) {
		return model.Inventory{}, repo.ErrNotInInventory
	}
	if err != nil {
		return model.Inventory{}, translate(err)
	}

	if !allowNegative && inv.Available < qty {
		return inv, repo.ErrInsufficientStock
	}

	now := time.Now()
	res := r.db.WithContext(ctx).Model(&model.Inventory{}).
		Where("id = ?", inv.ID).
		Updates(map[string]interface{}{
			"available": gorm.Expr("available - ?", qty),
			"date_lst":  now,
		})
	if res.Error != nil {
		return model.Inventory{}, translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return model.Inventory{}, repo.ErrNotInInventory
	}

	inv.Available -= qty
	inv.DateLst = now
	return inv, nil
}

// Sets the absolute level, creating the row if needed. Returns the previous level.
func (r *InventoryGormRepository) Upsert(ctx context.Context, storeID, productID, available int64) (int64, error) {
	inv, err := r.lock(ctx, storeID, productID)
	now := time.Now()

	if isNotFound(err) {
		row := model.Inventory{
			StoreID:   storeID,
			ProductID: productID,
			Available: available,
			DateLst:   now,
		}
		if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(&row).Error; err != nil {
			return 0, translate(err)
		}
		return 0, nil
	}
	if err != nil {
		return 0, translate(err)
	}

	res := r.db.WithContext(ctx).Model(&model.Inventory{}).
		Where("id = ?", inv.ID).
		Updates(map[string]interface{}{"available": available, "date_lst": now})
	if res.Error != nil {
		return 0, translate(res.Error)
	}
	return inv.Available, nil
}

func (r *InventoryGormRepository) CreateAdjustment(ctx context.Context, adj model.InventoryAdjustment) error {
	if err := r.db.WithContext(ctx).Create(&adj).Error; err != nil {
		return translate(err)
	}
	return nil
}

func (r *InventoryGormRepository) lock(ctx context.Context, storeID, productID int64) (model.Inventory, error) {
	var inv model.Inventory
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("store_id = ? AND product_id = ?", storeID, productID).
		Take(&inv).Error
	return inv, err
}
