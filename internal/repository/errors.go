package repository

import "errors"

var (
	ErrNotFound = errors.New("not found")

	// (store, product) has no inventory row at all
	ErrNotInInventory = errors.New("product not in inventory for this store")

	// row exists but available < requested quantity
	ErrInsufficientStock = errors.New("insufficient stock")

	// FK RESTRICT: the row is still referenced by inventory/sale rows
	ErrReferenced = errors.New("referenced by other records")

	// deadlock or serialization failure; the caller may resubmit
	ErrConcurrentUpdate = errors.New("concurrent update")
)
