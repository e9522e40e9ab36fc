package repository

import (
	"context"

	"storepos/internal/domain/model"
)

type StoreListQuery struct {
	Pagination
	// name prefix
	Search string
}

type StoreRepository interface {
	List(ctx context.Context, q StoreListQuery) ([]model.Store, int64, error)
	FindByID(ctx context.Context, id int64) (model.Store, error)
	Create(ctx context.Context, s model.Store) (model.Store, error)
	Update(ctx context.Context, s model.Store) (model.Store, error)
}
