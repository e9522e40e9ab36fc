package usecase

import (
	"errors"
	"fmt"
	"net/http"

	repo "storepos/internal/repository"
)

const (
	CodeValidation           = "validation_error"
	CodeNotFound             = "not_found"
	CodeInventoryUnavailable = "inventory_unavailable"
	CodeInsufficientStock    = "insufficient_stock"
	CodeNotAllowed           = "operation_not_allowed"
	CodeConflict             = "concurrent_update"
	CodeInternal             = "internal"
)

// HTTPError carries a rejection from a usecase to the handler. Fields is keyed by request field.
type HTTPError struct {
	Status  int
	Code    string
	Message string
	Fields  map[string]string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func NewHTTPError(status int, code, message string) error {
	return &HTTPError{
		Status:  status,
		Code:    code,
		Message: message,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

func ValidationError(field, message string) error {
	return &HTTPError{
		Status:  http.StatusBadRequest,
		Code:    CodeValidation,
		Message: message,
		Fields:  map[string]string{field: message},
	}
}

func NotFoundError(resource string) error {
	return NewHTTPError(http.StatusNotFound, CodeNotFound, resource+" not found")
}

func InventoryUnavailableError(field string) error {
	msg := repo.ErrNotInInventory.Error()
	return &HTTPError{
		Status:  http.StatusBadRequest,
		Code:    CodeInventoryUnavailable,
		Message: msg,
		Fields:  map[string]string{field: msg},
	}
}

func InsufficientStockError(field string, available, requested int64) error {
	msg := fmt.Sprintf("insufficient stock: available %d, requested %d", available, requested)
	return &HTTPError{
		Status:  http.StatusBadRequest,
		Code:    CodeInsufficientStock,
		Message: msg,
		Fields:  map[string]string{field: msg},
	}
}

func OperationNotAllowedError() error {
	return NewHTTPError(http.StatusMethodNotAllowed, CodeNotAllowed, "method not allowed")
}

func ConflictError() error {
	return NewHTTPError(http.StatusConflict, CodeConflict, "concurrent update, retry the request")
}

// maps a repository failure onto 409 or 500
func dbError(err error) error {
	if errors.Is(err, repo.ErrConcurrentUpdate) {
		return ConflictError()
	}
	return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
}

// fieldErrors collects every invalid field of one request.
type fieldErrors map[string]string

func (f fieldErrors) add(field, message string) {
	if _, exists := f[field]; !exists {
		f[field] = message
	}
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return &HTTPError{
		Status:  http.StatusBadRequest,
		Code:    CodeValidation,
		Message: "validation error",
		Fields:  map[string]string(f),
	}
}
