package repository

import (
	"context"
	"strings"

	"storepos/internal/domain/model"
	repo "storepos/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SaleGormRepository struct {
	db *gorm.DB
}

func NewSaleGormRepository(db *gorm.DB) *SaleGormRepository {
	return &SaleGormRepository{db: db}
}

func (r *SaleGormRepository) Create(ctx context.Context, s model.Sale) (model.Sale, error) {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(&s).Error; err != nil {
		return model.Sale{}, translate(err)
	}
	return s, nil
}

func (r *SaleGormRepository) FindByID(ctx context.Context, id int64) (model.Sale, error) {
	var s model.Sale
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return model.Sale{}, translate(err)
	}
	return s, nil
}

func (r *SaleGormRepository) List(ctx context.Context, f repo.SaleListFilter) ([]model.Sale, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Sale{})

	if n := strings.TrimSpace(f.Number); n != "" {
		q = q.Where("number = ?", n)
	}
	if f.Date != nil {
		q = q.Where("date = ?", f.Date.Format("2006-01-02"))
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return []model.Sale{}, 0, translate(err)
	}

	var items []model.Sale
	p := f.Normalize()
	if err := q.Order("id desc").Offset(p.Offset()).Limit(p.Limit).Find(&items).Error; err != nil {
		return []model.Sale{}, 0, translate(err)
	}
	return items, total, nil
}
