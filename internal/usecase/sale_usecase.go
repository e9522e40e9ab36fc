package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"storepos/internal/domain/model"
	repo "storepos/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	maxNumberLen = 250
	// smallint
	maxLineQuantity = math.MaxInt16

	dateLayout = "2006-01-02"
)

// SaleObserver receives the outcome of every sale creation attempt.
type SaleObserver interface {
	SaleCommitted(lines int)
	SaleRejected(reason string)
}

type nopObserver struct{}

func (nopObserver) SaleCommitted(int)   {}
func (nopObserver) SaleRejected(string) {}

type SaleUsecase struct {
	tx            repo.TransactionManager
	clock         Clock
	allowNegative bool
	observer      SaleObserver
	log           *zap.Logger
}

// allowNegative=true keeps the existence-only ledger check: a line larger
// than the available quantity drives the row negative instead of failing.
func NewSaleUsecase(tx repo.TransactionManager, clock Clock, allowNegative bool, observer SaleObserver, log *zap.Logger) *SaleUsecase {
	if observer == nil {
		observer = nopObserver{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &SaleUsecase{
		tx:            tx,
		clock:         clock,
		allowNegative: allowNegative,
		observer:      observer,
		log:           log,
	}
}

type SaleLineInput struct {
	ProductID int64
	Quantity  int64
}

type CreateSaleInput struct {
	// JWT subject, recorded in the audit log
	Actor   string
	Number  string
	StoreID int64
	Details []SaleLineInput
}

type SaleLineOutput struct {
	Product  int64  `json:"product"`
	Quantity int64  `json:"quantity"`
	Value    string `json:"value"`
}

type SaleOutput struct {
	ID      int64            `json:"id"`
	Number  string           `json:"number"`
	Store   int64            `json:"store"`
	Date    string           `json:"date"`
	Details []SaleLineOutput `json:"details"`
}

type SaleDetailOutput struct {
	ID       int64     `json:"id"`
	Sale     int64     `json:"sale"`
	Product  int64     `json:"product"`
	Quantity int64     `json:"quantity"`
	Value    string    `json:"value"`
	DateLst  time.Time `json:"date_lst"`
}

type ListSalesInput struct {
	Page   int
	Limit  int
	Number string
	Date   *time.Time
}

type ListSaleDetailsInput struct {
	Page       int
	Limit      int
	SaleID     *int64
	SaleNumber string
	ProductID  *int64
}

// CreateSale records a sale and decrements inventory for every line, all in
// one transaction. The first failing line aborts the sale; on any error
// nothing of the attempt is persisted.
func (u *SaleUsecase) CreateSale(ctx context.Context, in CreateSaleInput) (SaleOutput, error) {
	if err := validateSale(in); err != nil {
		u.reject(in, err)
		return SaleOutput{}, err
	}

	var out SaleOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// resolve references before any write
		store, err := r.Stores().FindByID(ctx, in.StoreID)
		if errors.Is(err, repo.ErrNotFound) {
			return &HTTPError{
				Status:  http.StatusNotFound,
				Code:    CodeNotFound,
				Message: "store not found",
				Fields:  map[string]string{"store": "store not found"},
			}
		}
		if err != nil {
			return dbError(err)
		}

		products := make([]model.Product, len(in.Details))
		for i, d := range in.Details {
			p, err := r.Products().FindByID(ctx, d.ProductID)
			if errors.Is(err, repo.ErrNotFound) {
				field := lineField(i, "product_id")
				return &HTTPError{
					Status:  http.StatusNotFound,
					Code:    CodeNotFound,
					Message: "product not found",
					Fields:  map[string]string{field: "product not found"},
				}
			}
			if err != nil {
				return dbError(err)
			}
			products[i] = p
		}

		now := u.clock.Now()
		sale, err := r.Sales().Create(ctx, model.Sale{
			Number:  strings.TrimSpace(in.Number),
			StoreID: store.ID,
			Date:    truncateToDate(now),
		})
		if err != nil {
			return dbError(err)
		}

		// decrement in request order, stop at the first failure
		for i, d := range in.Details {
			inv, err := r.Inventory().TryDecrement(ctx, store.ID, d.ProductID, d.Quantity, u.allowNegative)
			switch {
			case errors.Is(err, repo.ErrNotInInventory):
				return InventoryUnavailableError(lineField(i, "product_id"))
			case errors.Is(err, repo.ErrInsufficientStock):
				return InsufficientStockError(lineField(i, "quantity"), inv.Available, d.Quantity)
			case err != nil:
				return dbError(err)
			}

			value := products[i].Price.Mul(decimal.NewFromInt(d.Quantity))
			if _, err := r.SaleDetails().Create(ctx, model.SaleDetail{
				SaleID:    sale.ID,
				ProductID: d.ProductID,
				Quantity:  d.Quantity,
				Value:     value,
				DateLst:   now,
			}); err != nil {
				return dbError(err)
			}
		}

		// re-read what was persisted
		details, err := r.SaleDetails().ListBySaleID(ctx, sale.ID)
		if err != nil {
			return dbError(err)
		}
		out = toSaleOutput(sale, details)

		after, err := json.Marshal(out)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, CodeInternal, "encode error")
		}
		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			Actor:        in.Actor,
			Action:       model.AuditActionCreateSale,
			ResourceType: model.AuditResourceSale,
			ResourceID:   sale.ID,
			AfterJSON:    string(after),
			CreatedAt:    now,
		}); err != nil {
			return dbError(err)
		}
		return nil
	})

	if err != nil {
		// conflicts at commit come back from WithinTx as bare sentinels
		if _, ok := AsHTTPError(err); !ok {
			err = dbError(err)
		}
		u.reject(in, err)
		return SaleOutput{}, err
	}

	u.observer.SaleCommitted(len(out.Details))
	u.log.Info("sale committed",
		zap.Int64("sale_id", out.ID),
		zap.String("number", out.Number),
		zap.Int64("store", out.Store),
		zap.Int("lines", len(out.Details)),
		zap.String("actor", in.Actor))
	return out, nil
}

// Sales are immutable once committed.
func (u *SaleUsecase) UpdateSale(context.Context, int64) error { return OperationNotAllowedError() }
func (u *SaleUsecase) PatchSale(context.Context, int64) error  { return OperationNotAllowedError() }
func (u *SaleUsecase) DeleteSale(context.Context, int64) error { return OperationNotAllowedError() }

func (u *SaleUsecase) reject(in CreateSaleInput, err error) {
	code := CodeInternal
	if he, ok := AsHTTPError(err); ok {
		code = he.Code
	}
	u.observer.SaleRejected(code)
	u.log.Warn("sale rejected",
		zap.String("reason", code),
		zap.String("number", in.Number),
		zap.Int64("store", in.StoreID),
		zap.String("actor", in.Actor),
		zap.Error(err))
}

func validateSale(in CreateSaleInput) error {
	fe := fieldErrors{}

	number := strings.TrimSpace(in.Number)
	if number == "" {
		fe.add("number", msgRequired)
	} else if len([]rune(number)) > maxNumberLen {
		fe.add("number", fmt.Sprintf("Ensure this field has no more than %d characters.", maxNumberLen))
	}

	if in.StoreID == 0 {
		fe.add("store", msgRequired)
	} else if in.StoreID < 0 {
		fe.add("store", "invalid store id")
	}

	if len(in.Details) == 0 {
		fe.add("details", msgListRequired)
	}
	for i, d := range in.Details {
		switch {
		case d.ProductID == 0:
			fe.add(lineField(i, "product_id"), msgRequired)
		case d.ProductID < 0:
			fe.add(lineField(i, "product_id"), "invalid product id")
		}
		switch {
		case d.Quantity == 0:
			fe.add(lineField(i, "quantity"), msgRequired)
		case d.Quantity < 0:
			fe.add(lineField(i, "quantity"), "Ensure this value is greater than or equal to 1.")
		case d.Quantity > maxLineQuantity:
			fe.add(lineField(i, "quantity"), fmt.Sprintf("Ensure this value is less than or equal to %d.", maxLineQuantity))
		}
	}
	return fe.err()
}

func lineField(i int, name string) string {
	return fmt.Sprintf("details[%d].%s", i, name)
}

func truncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

/* Read projection */

func (u *SaleUsecase) GetSale(ctx context.Context, saleID int64) (SaleOutput, error) {
	if err := checkID(saleID, "sale"); err != nil {
		return SaleOutput{}, err
	}

	var out SaleOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		s, err := r.Sales().FindByID(ctx, saleID)
		if errors.Is(err, repo.ErrNotFound) {
			return NotFoundError("sale")
		}
		if err != nil {
			return dbError(err)
		}

		details, err := r.SaleDetails().ListBySaleID(ctx, saleID)
		if err != nil {
			return dbError(err)
		}
		out = toSaleOutput(s, details)
		return nil
	})
	if err != nil {
		return SaleOutput{}, err
	}
	return out, nil
}

func (u *SaleUsecase) ListSales(ctx context.Context, in ListSalesInput) (ListOutput[SaleOutput], error) {
	p, err := checkPage(in.Page, in.Limit)
	if err != nil {
		return ListOutput[SaleOutput]{}, err
	}

	var out ListOutput[SaleOutput]
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		sales, total, err := r.Sales().List(ctx, repo.SaleListFilter{
			Pagination: p,
			Number:     in.Number,
			Date:       in.Date,
		})
		if err != nil {
			return dbError(err)
		}

		items := make([]SaleOutput, 0, len(sales))
		for _, s := range sales {
			details, err := r.SaleDetails().ListBySaleID(ctx, s.ID)
			if err != nil {
				return dbError(err)
			}
			items = append(items, toSaleOutput(s, details))
		}
		out = ListOutput[SaleOutput]{Items: items, Total: total, Page: p.Page, Limit: p.Limit}
		return nil
	})
	if err != nil {
		return ListOutput[SaleOutput]{}, err
	}
	return out, nil
}

func (u *SaleUsecase) GetSaleDetail(ctx context.Context, id int64) (SaleDetailOutput, error) {
	if err := checkID(id, "sale detail"); err != nil {
		return SaleDetailOutput{}, err
	}

	var out SaleDetailOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		d, err := r.SaleDetails().FindByID(ctx, id)
		if errors.Is(err, repo.ErrNotFound) {
			return NotFoundError("sale detail")
		}
		if err != nil {
			return dbError(err)
		}
		out = toSaleDetailOutput(d)
		return nil
	})
	if err != nil {
		return SaleDetailOutput{}, err
	}
	return out, nil
}

func (u *SaleUsecase) ListSaleDetails(ctx context.Context, in ListSaleDetailsInput) (ListOutput[SaleDetailOutput], error) {
	p, err := checkPage(in.Page, in.Limit)
	if err != nil {
		return ListOutput[SaleDetailOutput]{}, err
	}

	var out ListOutput[SaleDetailOutput]
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		rows, total, err := r.SaleDetails().List(ctx, repo.SaleDetailFilter{
			Pagination: p,
			SaleID:     in.SaleID,
			SaleNumber: in.SaleNumber,
			ProductID:  in.ProductID,
		})
		if err != nil {
			return dbError(err)
		}

		items := make([]SaleDetailOutput, 0, len(rows))
		for _, d := range rows {
			items = append(items, toSaleDetailOutput(d))
		}
		out = ListOutput[SaleDetailOutput]{Items: items, Total: total, Page: p.Page, Limit: p.Limit}
		return nil
	})
	if err != nil {
		return ListOutput[SaleDetailOutput]{}, err
	}
	return out, nil
}

func toSaleOutput(s model.Sale, details []model.SaleDetail) SaleOutput {
	lines := make([]SaleLineOutput, 0, len(details))
	for _, d := range details {
		lines = append(lines, SaleLineOutput{
			Product:  d.ProductID,
			Quantity: d.Quantity,
			Value:    d.Value.StringFixed(2),
		})
	}

	return SaleOutput{
		ID:      s.ID,
		Number:  s.Number,
		Store:   s.StoreID,
		Date:    s.Date.Format(dateLayout),
		Details: lines,
	}
}

func toSaleDetailOutput(d model.SaleDetail) SaleDetailOutput {
	return SaleDetailOutput{
		ID:       d.ID,
		Sale:     d.SaleID,
		Product:  d.ProductID,
		Quantity: d.Quantity,
		Value:    d.Value.StringFixed(2),
		DateLst:  d.DateLst,
	}
}
