package repository

import (
	"context"

	repo "storepos/internal/repository"

	"gorm.io/gorm"
)

type txReposGorm struct {
	stores      repo.StoreRepository
	products    repo.ProductRepository
	inventory   repo.InventoryRepository
	sales       repo.SaleRepository
	saleDetails repo.SaleDetailRepository
	auditLogs   repo.AuditLogRepository
}

func (r *txReposGorm) Stores() repo.StoreRepository           { return r.stores }
func (r *txReposGorm) Products() repo.ProductRepository       { return r.products }
func (r *txReposGorm) Inventory() repo.InventoryRepository    { return r.inventory }
func (r *txReposGorm) Sales() repo.SaleRepository             { return r.sales }
func (r *txReposGorm) SaleDetails() repo.SaleDetailRepository { return r.saleDetails }
func (r *txReposGorm) AuditLogs() repo.AuditLogRepository     { return r.auditLogs }

type TxManagerGorm struct {
	db *gorm.DB
}

func NewTxManagerGorm(db *gorm.DB) *TxManagerGorm {
	return &TxManagerGorm{db: db}
}

func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	err := tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// every repo is rebuilt on the tx handle
		return fn(newTxRepos(tx))
	})
	return translate(err)
}

func newTxRepos(db *gorm.DB) *txReposGorm {
	return &txReposGorm{
		stores:      NewStoreGormRepository(db),
		products:    NewProductGormRepository(db),
		inventory:   NewInventoryGormRepository(db),
		sales:       NewSaleGormRepository(db),
		saleDetails: NewSaleDetailGormRepository(db),
		auditLogs:   NewAuditLogGormRepository(db),
	}
}
