package repository

import (
	"context"
	"strings"

	"storepos/internal/domain/model"
	repo "storepos/internal/repository"

	"gorm.io/gorm"
)

type ProductGormRepository struct {
	db *gorm.DB
}

// DI
func NewProductGormRepository(db *gorm.DB) *ProductGormRepository {
	return &ProductGormRepository{db: db}
}

func (r *ProductGormRepository) List(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	var products []model.Product
	var total int64

	tx := r.db.WithContext(ctx).Model(&model.Product{})

	if s := strings.TrimSpace(q.Search); s != "" {
		tx = tx.Where("name ILIKE ?", prefixPattern(s))
	}
	// exact price
	if q.Price != nil {
		tx = tx.Where("price = ?", *q.Price)
	}

	if err := tx.Count(&total).Error; err != nil {
		return []model.Product{}, 0, translate(err)
	}

	p := q.Normalize()
	if err := tx.Order("name asc").Order("id asc").Offset(p.Offset()).Limit(p.Limit).Find(&products).Error; err != nil {
		return []model.Product{}, 0, translate(err)
	}
	return products, total, nil
}

func (r *ProductGormRepository) FindByID(ctx context.Context, id int64) (model.Product, error) {
	var p model.Product
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return model.Product{}, translate(err)
	}
	return p, nil
}

func (r *ProductGormRepository) Create(ctx context.Context, p model.Product) (model.Product, error) {
	if err := r.db.WithContext(ctx).Create(&p).Error; err != nil {
		return model.Product{}, translate(err)
	}
	return p, nil
}

func (r *ProductGormRepository) Update(ctx context.Context, p model.Product) (model.Product, error) {
	res := r.db.WithContext(ctx).Model(&model.Product{}).Where("id = ?", p.ID).Updates(map[string]interface{}{
		"name":     p.Name,
		"unit":     p.Unit,
		"price":    p.Price,
		"date_lst": p.DateLst,
	})
	if res.Error != nil {
		return model.Product{}, translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return model.Product{}, repo.ErrNotFound
	}
	return r.FindByID(ctx, p.ID)
}
