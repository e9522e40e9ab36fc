package repository

import (
	"context"
	"strings"

	"storepos/internal/domain/model"
	repo "storepos/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SaleDetailGormRepository struct {
	db *gorm.DB
}

func NewSaleDetailGormRepository(db *gorm.DB) *SaleDetailGormRepository {
	return &SaleDetailGormRepository{db: db}
}

func (r *SaleDetailGormRepository) Create(ctx context.Context, d model.SaleDetail) (model.SaleDetail, error) {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(&d).Error; err != nil {
		return model.SaleDetail{}, translate(err)
	}
	return d, nil
}

func (r *SaleDetailGormRepository) FindByID(ctx context.Context, id int64) (model.SaleDetail, error) {
	var d model.SaleDetail
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&d).Error; err != nil {
		return model.SaleDetail{}, translate(err)
	}
	return d, nil
}

// Insertion order, which is the request line order.
func (r *SaleDetailGormRepository) ListBySaleID(ctx context.Context, saleID int64) ([]model.SaleDetail, error) {
	var items []model.SaleDetail
	if err := r.db.WithContext(ctx).Where("sale_id = ?", saleID).Order("id asc").Find(&items).Error; err != nil {
		return []model.SaleDetail{}, translate(err)
	}
	return items, nil
}

func (r *SaleDetailGormRepository) List(ctx context.Context, f repo.SaleDetailFilter) ([]model.SaleDetail, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.SaleDetail{}).
		Joins("JOIN inventory_sale ON inventory_sale.id = inventory_sale_detail.sale_id").
		Joins("JOIN inventory_product ON inventory_product.id = inventory_sale_detail.product_id")

	if f.SaleID != nil {
		q = q.Where("inventory_sale_detail.sale_id = ?", *f.SaleID)
	}
	if n := strings.TrimSpace(f.SaleNumber); n != "" {
		q = q.Where("inventory_sale.number = ?", n)
	}
	if f.ProductID != nil {
		q = q.Where("inventory_sale_detail.product_id = ?", *f.ProductID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return []model.SaleDetail{}, 0, translate(err)
	}

	var items []model.SaleDetail
	p := f.Normalize()
	err := q.Select("inventory_sale_detail.*").
		Order("inventory_sale_detail.sale_id asc").
		Order("inventory_product.name asc").
		Order("inventory_sale_detail.id asc").
		Offset(p.Offset()).Limit(p.Limit).
		Find(&items).Error
	if err != nil {
		return []model.SaleDetail{}, 0, translate(err)
	}
	return items, total, nil
}
