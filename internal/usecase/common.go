package usecase

import (
	"net/http"
	"time"

	repo "storepos/internal/repository"
)

const (
	msgRequired     = "This field is required."
	msgListRequired = "This list is required."
	maxListLimit    = 100
)

type Clock interface {
	Now() time.Time
}

type ListOutput[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

func checkPage(page, limit int) (repo.Pagination, error) {
	if page < 1 {
		return repo.Pagination{}, NewHTTPError(http.StatusBadRequest, CodeValidation, "invalid page")
	}
	if limit < 1 || limit > maxListLimit {
		return repo.Pagination{}, NewHTTPError(http.StatusBadRequest, CodeValidation, "invalid limit")
	}
	return repo.Pagination{Page: page, Limit: limit}, nil
}

func checkID(id int64, what string) error {
	if id <= 0 {
		return NewHTTPError(http.StatusBadRequest, CodeValidation, "invalid "+what+" id")
	}
	return nil
}
