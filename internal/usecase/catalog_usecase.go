package usecase

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"unicode/utf8"

	"storepos/internal/domain/model"
	repo "storepos/internal/repository"

	"github.com/shopspring/decimal"
)

const (
	maxNameLen    = 250
	maxAddressLen = 250
	maxPhoneLen   = 10
	maxSearchLen  = 100

	msgPricePositive = "price cannot be less than or equals zero"
)

// numeric(12,2)
var maxPrice = decimal.New(1, 10)

type CatalogUsecase struct {
	stores   repo.StoreRepository
	products repo.ProductRepository
	clock    Clock
}

// DI
func NewCatalogUsecase(stores repo.StoreRepository, products repo.ProductRepository, clock Clock) *CatalogUsecase {
	return &CatalogUsecase{stores: stores, products: products, clock: clock}
}

// A nil field was absent from the request body.
type StoreInput struct {
	Name    *string
	Address *string
	Phone   *string
}

type ProductInput struct {
	Name  *string
	Unit  *string
	Price *decimal.Decimal
}

type ListStoresInput struct {
	Page   int
	Limit  int
	Search string
}

type ListProductsInput struct {
	Page   int
	Limit  int
	Search string
	Price  *decimal.Decimal
}

/* Stores */

func (u *CatalogUsecase) ListStores(ctx context.Context, in ListStoresInput) (ListOutput[model.Store], error) {
	p, err := checkPage(in.Page, in.Limit)
	if err != nil {
		return ListOutput[model.Store]{}, err
	}
	if len(in.Search) > maxSearchLen {
		return ListOutput[model.Store]{}, ValidationError("search", "search too long")
	}

	items, total, err := u.stores.List(ctx, repo.StoreListQuery{Pagination: p, Search: strings.TrimSpace(in.Search)})
	if err != nil {
		return ListOutput[model.Store]{}, dbError(err)
	}
	return ListOutput[model.Store]{Items: items, Total: total, Page: p.Page, Limit: p.Limit}, nil
}

func (u *CatalogUsecase) GetStore(ctx context.Context, id int64) (model.Store, error) {
	if err := checkID(id, "store"); err != nil {
		return model.Store{}, err
	}
	s, err := u.stores.FindByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Store{}, NotFoundError("store")
	}
	if err != nil {
		return model.Store{}, dbError(err)
	}
	return s, nil
}

func (u *CatalogUsecase) CreateStore(ctx context.Context, in StoreInput) (model.Store, error) {
	s := applyStore(model.Store{}, in)
	if err := validateStore(in, s, true); err != nil {
		return model.Store{}, err
	}

	s.DateLst = u.clock.Now()
	created, err := u.stores.Create(ctx, s)
	if err != nil {
		return model.Store{}, dbError(err)
	}
	return created, nil
}

// PUT: name must be present, other absent fields keep their value.
func (u *CatalogUsecase) UpdateStore(ctx context.Context, id int64, in StoreInput) (model.Store, error) {
	return u.updateStore(ctx, id, in, false)
}

// PATCH
func (u *CatalogUsecase) PatchStore(ctx context.Context, id int64, in StoreInput) (model.Store, error) {
	return u.updateStore(ctx, id, in, true)
}

func (u *CatalogUsecase) updateStore(ctx context.Context, id int64, in StoreInput, partial bool) (model.Store, error) {
	current, err := u.GetStore(ctx, id)
	if err != nil {
		return model.Store{}, err
	}

	s := applyStore(current, in)
	if err := validateStore(in, s, !partial); err != nil {
		return model.Store{}, err
	}

	s.DateLst = u.clock.Now()
	updated, err := u.stores.Update(ctx, s)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Store{}, NotFoundError("store")
	}
	if err != nil {
		return model.Store{}, dbError(err)
	}
	return updated, nil
}

func applyStore(s model.Store, in StoreInput) model.Store {
	if in.Name != nil {
		s.Name = strings.TrimSpace(*in.Name)
	}
	if in.Address != nil {
		s.Address = strings.TrimSpace(*in.Address)
	}
	if in.Phone != nil {
		s.Phone = strings.TrimSpace(*in.Phone)
	}
	return s
}

func validateStore(in StoreInput, s model.Store, requireAll bool) error {
	fe := fieldErrors{}
	if requireAll && in.Name == nil {
		fe.add("name", msgRequired)
	}
	if s.Name == "" {
		fe.add("name", "This field may not be blank.")
	}
	checkLen(fe, "name", s.Name, maxNameLen)
	checkLen(fe, "address", s.Address, maxAddressLen)
	checkLen(fe, "phone", s.Phone, maxPhoneLen)
	return fe.err()
}

/* Products */

func (u *CatalogUsecase) ListProducts(ctx context.Context, in ListProductsInput) (ListOutput[model.Product], error) {
	p, err := checkPage(in.Page, in.Limit)
	if err != nil {
		return ListOutput[model.Product]{}, err
	}
	if len(in.Search) > maxSearchLen {
		return ListOutput[model.Product]{}, ValidationError("search", "search too long")
	}

	items, total, err := u.products.List(ctx, repo.ProductListQuery{
		Pagination: p,
		Search:     strings.TrimSpace(in.Search),
		Price:      in.Price,
	})
	if err != nil {
		return ListOutput[model.Product]{}, dbError(err)
	}
	return ListOutput[model.Product]{Items: items, Total: total, Page: p.Page, Limit: p.Limit}, nil
}

func (u *CatalogUsecase) GetProduct(ctx context.Context, id int64) (model.Product, error) {
	if err := checkID(id, "product"); err != nil {
		return model.Product{}, err
	}
	p, err := u.products.FindByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, NotFoundError("product")
	}
	if err != nil {
		return model.Product{}, dbError(err)
	}
	return p, nil
}

func (u *CatalogUsecase) CreateProduct(ctx context.Context, in ProductInput) (model.Product, error) {
	p := applyProduct(model.Product{}, in)
	if err := validateProduct(in, p, true); err != nil {
		return model.Product{}, err
	}

	p.DateLst = u.clock.Now()
	created, err := u.products.Create(ctx, p)
	if err != nil {
		return model.Product{}, dbError(err)
	}
	return created, nil
}

func (u *CatalogUsecase) UpdateProduct(ctx context.Context, id int64, in ProductInput) (model.Product, error) {
	return u.updateProduct(ctx, id, in, false)
}

func (u *CatalogUsecase) PatchProduct(ctx context.Context, id int64, in ProductInput) (model.Product, error) {
	return u.updateProduct(ctx, id, in, true)
}

func (u *CatalogUsecase) updateProduct(ctx context.Context, id int64, in ProductInput, partial bool) (model.Product, error) {
	current, err := u.GetProduct(ctx, id)
	if err != nil {
		return model.Product{}, err
	}

	p := applyProduct(current, in)
	if err := validateProduct(in, p, !partial); err != nil {
		return model.Product{}, err
	}

	p.DateLst = u.clock.Now()
	updated, err := u.products.Update(ctx, p)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, NotFoundError("product")
	}
	if err != nil {
		return model.Product{}, dbError(err)
	}
	return updated, nil
}

func applyProduct(p model.Product, in ProductInput) model.Product {
	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Unit != nil {
		p.Unit = model.Unit(strings.TrimSpace(*in.Unit))
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	return p
}

func validateProduct(in ProductInput, p model.Product, requireAll bool) error {
	fe := fieldErrors{}
	if requireAll {
		if in.Name == nil {
			fe.add("name", msgRequired)
		}
		if in.Unit == nil {
			fe.add("unit", msgRequired)
		}
		if in.Price == nil {
			fe.add("price", msgRequired)
		}
	}

	if p.Name == "" {
		fe.add("name", "This field may not be blank.")
	}
	checkLen(fe, "name", p.Name, maxNameLen)

	if !p.Unit.Valid() {
		fe.add("unit", `"`+string(p.Unit)+`" is not a valid choice.`)
	}

	switch {
	case !p.Price.IsPositive():
		fe.add("price", msgPricePositive)
	case !p.Price.Equal(p.Price.Round(2)):
		fe.add("price", "Ensure that there are no more than 2 decimal places.")
	case p.Price.GreaterThanOrEqual(maxPrice):
		fe.add("price", "Ensure that there are no more than 12 digits in total.")
	}
	return fe.err()
}

func checkLen(fe fieldErrors, field, v string, limit int) {
	if utf8.RuneCountInString(v) > limit {
		fe.add(field, "Ensure this field has no more than "+strconv.Itoa(limit)+" characters.")
	}
}
