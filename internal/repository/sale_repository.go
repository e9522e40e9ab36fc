package repository

import (
	"context"
	"time"

	"storepos/internal/domain/model"
)

type SaleListFilter struct {
	Pagination
	Number string
	Date   *time.Time
}

type SaleDetailFilter struct {
	Pagination
	SaleID     *int64
	SaleNumber string
	ProductID  *int64
}

// No Update/Delete: sales are immutable once created.
type SaleRepository interface {
	Create(ctx context.Context, s model.Sale) (model.Sale, error)
	FindByID(ctx context.Context, id int64) (model.Sale, error)
	List(ctx context.Context, f SaleListFilter) ([]model.Sale, int64, error)
}

type SaleDetailRepository interface {
	Create(ctx context.Context, d model.SaleDetail) (model.SaleDetail, error)
	FindByID(ctx context.Context, id int64) (model.SaleDetail, error)
	ListBySaleID(ctx context.Context, saleID int64) ([]model.SaleDetail, error)
	List(ctx context.Context, f SaleDetailFilter) ([]model.SaleDetail, int64, error)
}
