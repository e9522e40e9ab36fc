package repository

import (
	"context"

	"storepos/internal/domain/model"

	"github.com/shopspring/decimal"
)

type ProductListQuery struct {
	Pagination
	Search string
	Price  *decimal.Decimal
}

type ProductRepository interface {
	List(ctx context.Context, q ProductListQuery) ([]model.Product, int64, error)
	FindByID(ctx context.Context, id int64) (model.Product, error)
	Create(ctx context.Context, p model.Product) (model.Product, error)
	Update(ctx context.Context, p model.Product) (model.Product, error)
}
