package repository

import (
	"context"
	"strings"

	"storepos/internal/domain/model"
	repo "storepos/internal/repository"

	"gorm.io/gorm"
)

type StoreGormRepository struct {
	db *gorm.DB
}

// DI
func NewStoreGormRepository(db *gorm.DB) *StoreGormRepository {
	return &StoreGormRepository{db: db}
}

// Name prefix search, ordered by name.
func (r *StoreGormRepository) List(ctx context.Context, q repo.StoreListQuery) ([]model.Store, int64, error) {
	var stores []model.Store
	var total int64

	tx := r.db.WithContext(ctx).Model(&model.Store{})
	if s := strings.TrimSpace(q.Search); s != "" {
		tx = tx.Where("name ILIKE ?", prefixPattern(s))
	}

	if err := tx.Count(&total).Error; err != nil {
		return []model.Store{}, 0, translate(err)
	}

	p := q.Normalize()
	if err := tx.Order("name asc").Order("id asc").Offset(p.Offset()).Limit(p.Limit).Find(&stores).Error; err != nil {
		return []model.Store{}, 0, translate(err)
	}
	return stores, total, nil
}

func (r *StoreGormRepository) FindByID(ctx context.Context, id int64) (model.Store, error) {
	var s model.Store
	if err := r.db.WithContext(ctx).First(&s, id).Error; err != nil {
		return model.Store{}, translate(err)
	}
	return s, nil
}

func (r *StoreGormRepository) Create(ctx context.Context, s model.Store) (model.Store, error) {
	if err := r.db.WithContext(ctx).Create(&s).Error; err != nil {
		return model.Store{}, translate(err)
	}
	return s, nil
}

func (r *StoreGormRepository) Update(ctx context.Context, s model.Store) (model.Store, error) {
	res := r.db.WithContext(ctx).Model(&model.Store{}).Where("id = ?", s.ID).Updates(map[string]interface{}{
		"name":     s.Name,
		"address":  s.Address,
		"phone":    s.Phone,
		"date_lst": s.DateLst,
	})
	if res.Error != nil {
		return model.Store{}, translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return model.Store{}, repo.ErrNotFound
	}
	return r.FindByID(ctx, s.ID)
}
