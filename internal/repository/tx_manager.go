package repository

import "context"

// Repositories bound to one transaction.
type TxRepos interface {
	Stores() StoreRepository
	Products() ProductRepository
	Inventory() InventoryRepository
	Sales() SaleRepository
	SaleDetails() SaleDetailRepository
	AuditLogs() AuditLogRepository
}

// Hides begin/commit/rollback from the usecases. A non-nil error from fn
// rolls back everything fn wrote.
type TransactionManager interface {
	WithinTx(ctx context.Context, fn func(r TxRepos) error) error
}
