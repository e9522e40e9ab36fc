package usecase_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"storepos/internal/domain/model"
	repo "storepos/internal/repository"
	"storepos/internal/repository/repotest"
	"storepos/internal/usecase"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// =====================
// helpers
// =====================

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

var testNow = time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

type recordingObserver struct {
	mu        sync.Mutex
	committed []int
	rejected  []string
}

func (o *recordingObserver) SaleCommitted(lines int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.committed = append(o.committed, lines)
}

func (o *recordingObserver) SaleRejected(reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rejected = append(o.rejected, reason)
}

type saleFixture struct {
	mem *repotest.Memory
	obs *recordingObserver
	uc  *usecase.SaleUsecase

	store model.Store
	p1    model.Product
	p2    model.Product
}

// S1 with Inventory(S1,P1,5); P2 exists but has no inventory row.
func newSaleFixture(t *testing.T, allowNegative bool) *saleFixture {
	t.Helper()

	mem := repotest.NewMemory()
	f := &saleFixture{mem: mem, obs: &recordingObserver{}}

	f.store = mem.AddStore(model.Store{Name: "S1"})
	f.p1 = mem.AddProduct(model.Product{Name: "P1", Unit: model.UnitUnity, Price: decimal.RequireFromString("10.00")})
	f.p2 = mem.AddProduct(model.Product{Name: "P2", Unit: model.UnitUnity, Price: decimal.RequireFromString("3.25")})
	mem.AddInventory(f.store.ID, f.p1.ID, 5)

	f.uc = usecase.NewSaleUsecase(mem, fixedClock{testNow}, allowNegative, f.obs, zap.NewNop())
	return f
}

func (f *saleFixture) available(t *testing.T, productID int64) int64 {
	t.Helper()
	n, ok := f.mem.Available(f.store.ID, productID)
	require.True(t, ok)
	return n
}

func requireHTTPError(t *testing.T, err error, status int, code string) *usecase.HTTPError {
	t.Helper()
	require.Error(t, err)
	he, ok := usecase.AsHTTPError(err)
	require.True(t, ok, "expected HTTPError, got %T: %v", err, err)
	assert.Equal(t, status, he.Status)
	assert.Equal(t, code, he.Code)
	return he
}

func assertNothingPersisted(t *testing.T, mem *repotest.Memory) {
	t.Helper()
	assert.Empty(t, mem.SaleRows())
	assert.Empty(t, mem.SaleDetailRows())
	assert.Empty(t, mem.AuditRows())
}

// =====================
// CreateSale
// =====================

func TestSaleUsecase_CreateSale_Success(t *testing.T) {
	f := newSaleFixture(t, false)

	out, err := f.uc.CreateSale(context.Background(), usecase.CreateSaleInput{
		Actor:   "cashier",
		Number:  "1",
		StoreID: f.store.ID,
		Details: []usecase.SaleLineInput{{ProductID: f.p1.ID, Quantity: 2}},
	})
	require.NoError(t, err)

	assert.Equal(t, "1", out.Number)
	assert.Equal(t, f.store.ID, out.Store)
	assert.Equal(t, "2026-03-14", out.Date)
	assert.Equal(t, []usecase.SaleLineOutput{{Product: f.p1.ID, Quantity: 2, Value: "20.00"}}, out.Details)

	assert.Equal(t, int64(3), f.available(t, f.p1.ID))

	details := f.mem.SaleDetailRows()
	require.Len(t, details, 1)
	assert.True(t, details[0].Value.Equal(decimal.RequireFromString("20")))
	assert.Equal(t, out.ID, details[0].SaleID)

	audits := f.mem.AuditRows()
	require.Len(t, audits, 1)
	assert.Equal(t, "cashier", audits[0].Actor)
	assert.Equal(t, model.AuditActionCreateSale, audits[0].Action)
	assert.Equal(t, out.ID, audits[0].ResourceID)

	var logged usecase.SaleOutput
	require.NoError(t, json.Unmarshal([]byte(audits[0].AfterJSON), &logged))
	assert.Equal(t, out, logged)

	assert.Equal(t, []int{1}, f.obs.committed)
	assert.Empty(t, f.obs.rejected)
}

// P1 is decremented before P2 fails; the rollback must restore it.
func TestSaleUsecase_CreateSale_RollsBackOnMissingInventory(t *testing.T) {
	f := newSaleFixture(t, false)

	_, err := f.uc.CreateSale(context.Background(), usecase.CreateSaleInput{
		Number:  "1",
		StoreID: f.store.ID,
		Details: []usecase.SaleLineInput{
			{ProductID: f.p1.ID, Quantity: 2},
			{ProductID: f.p2.ID, Quantity: 1},
		},
	})

	he := requireHTTPError(t, err, http.StatusBadRequest, usecase.CodeInventoryUnavailable)
	assert.Equal(t, "product not in inventory for this store", he.Message)
	assert.Contains(t, he.Fields, "details[1].product_id")

	assert.Equal(t, int64(5), f.available(t, f.p1.ID))
	assertNothingPersisted(t, f.mem)
	assert.Equal(t, []string{usecase.CodeInventoryUnavailable}, f.obs.rejected)
}

func TestSaleUsecase_CreateSale_FirstFailureStopsProcessing(t *testing.T) {
	f := newSaleFixture(t, false)
	p3 := f.mem.AddProduct(model.Product{Name: "P3", Unit: model.UnitGram, Price: decimal.RequireFromString("1")})
	f.mem.AddInventory(f.store.ID, p3.ID, 10)

	var decrements int
	f.mem.FailOn = func(op string) error {
		if op == "inventory.decrement" {
			decrements++
		}
		return nil
	}

	_, err := f.uc.CreateSale(context.Background(), usecase.CreateSaleInput{
		Number:  "1",
		StoreID: f.store.ID,
		Details: []usecase.SaleLineInput{
			{ProductID: f.p2.ID, Quantity: 1},
			{ProductID: p3.ID, Quantity: 1},
		},
	})
	requireHTTPError(t, err, http.StatusBadRequest, usecase.CodeInventoryUnavailable)

	assert.Equal(t, 1, decrements)
	n, _ := f.mem.Available(f.store.ID, p3.ID)
	assert.Equal(t, int64(10), n)
}

func TestSaleUsecase_CreateSale_InsufficientStock(t *testing.T) {
	f := newSaleFixture(t, false)

	_, err := f.uc.CreateSale(context.Background(), usecase.CreateSaleInput{
		Number:  "1",
		StoreID: f.store.ID,
		Details: []usecase.SaleLineInput{{ProductID: f.p1.ID, Quantity: 6}},
	})

	he := requireHTTPError(t, err, http.StatusBadRequest, usecase.CodeInsufficientStock)
	assert.Contains(t, he.Fields["details[0].quantity"], "available 5, requested 6")
	assert.Equal(t, int64(5), f.available(t, f.p1.ID))
	assertNothingPersisted(t, f.mem)
}

func TestSaleUsecase_CreateSale_AllowNegative(t *testing.T) {
	f := newSaleFixture(t, true)

	out, err := f.uc.CreateSale(context.Background(), usecase.CreateSaleInput{
		Number:  "1",
		StoreID: f.store.ID,
		Details: []usecase.SaleLineInput{{ProductID: f.p1.ID, Quantity: 7}},
	})
	require.NoError(t, err)
	assert.Equal(t, "70.00", out.Details[0].Value)
	assert.Equal(t, int64(-2), f.available(t, f.p1.ID))
}

func TestSaleUsecase_CreateSale_DecrementCorrectness(t *testing.T) {
	for _, q := range []int64{1, 3, 5} {
		f := newSaleFixture(t, false)

		out, err := f.uc.CreateSale(context.Background(), usecase.CreateSaleInput{
			Number:  "n",
			StoreID: f.store.ID,
			Details: []usecase.SaleLineInput{{ProductID: f.p1.ID, Quantity: q}},
		})
		require.NoError(t, err)

		assert.Equal(t, 5-q, f.available(t, f.p1.ID))
		require.Len(t, f.mem.SaleDetailRows(), 1)
		want := f.p1.Price.Mul(decimal.NewFromInt(q))
		assert.True(t, f.mem.SaleDetailRows()[0].Value.Equal(want))
		assert.Equal(t, want.StringFixed(2), out.Details[0].Value)
	}
}

func TestSaleUsecase_CreateSale_SameProductTwice(t *testing.T) {
	f := newSaleFixture(t, false)

	_, err := f.uc.CreateSale(context.Background(), usecase.CreateSaleInput{
		Number:  "1",
		StoreID: f.store.ID,
		Details: []usecase.SaleLineInput{
			{ProductID: f.p1.ID, Quantity: 3},
			{ProductID: f.p1.ID, Quantity: 3},
		},
	})

	// second line sees the first decrement
	he := requireHTTPError(t, err, http.StatusBadRequest, usecase.CodeInsufficientStock)
	assert.Contains(t, he.Fields, "details[1].quantity")
	assert.Equal(t, int64(5), f.available(t, f.p1.ID))
}

// A failure after every line was written still leaves no trace.
func TestSaleUsecase_CreateSale_LateFailureRollsBack(t *testing.T) {
	f := newSaleFixture(t, false)
	f.mem.FailOn = func(op string) error {
		if op == "audit_log.create" {
			return errors.New("disk full")
		}
		return nil
	}

	_, err := f.uc.CreateSale(context.Background(), usecase.CreateSaleInput{
		Number:  "1",
		StoreID: f.store.ID,
		Details: []usecase.SaleLineInput{{ProductID: f.p1.ID, Quantity: 2}},
	})
	requireHTTPError(t, err, http.StatusInternalServerError, usecase.CodeInternal)

	assert.Equal(t, int64(5), f.available(t, f.p1.ID))
	assertNothingPersisted(t, f.mem)
}

func TestSaleUsecase_CreateSale_ConcurrentUpdateIsConflict(t *testing.T) {
	f := newSaleFixture(t, false)
	f.mem.FailOn = func(op string) error {
		if op == "inventory.decrement" {
			return repo.ErrConcurrentUpdate
		}
		return nil
	}

	_, err := f.uc.CreateSale(context.Background(), usecase.CreateSaleInput{
		Number:  "1",
		StoreID: f.store.ID,
		Details: []usecase.SaleLineInput{{ProductID: f.p1.ID, Quantity: 1}},
	})
	requireHTTPError(t, err, http.StatusConflict, usecase.CodeConflict)
	assertNothingPersisted(t, f.mem)
}

func TestSaleUsecase_CreateSale_NotFound(t *testing.T) {
	t.Run("store", func(t *testing.T) {
		f := newSaleFixture(t, false)
		_, err := f.uc.CreateSale(context.Background(), usecase.CreateSaleInput{
			Number:  "1",
			StoreID: 999,
			Details: []usecase.SaleLineInput{{ProductID: f.p1.ID, Quantity: 1}},
		})
		he := requireHTTPError(t, err, http.StatusNotFound, usecase.CodeNotFound)
		assert.Contains(t, he.Fields, "store")
		assertNothingPersisted(t, f.mem)
	})

	t.Run("product", func(t *testing.T) {
		f := newSaleFixture(t, false)
		_, err := f.uc.CreateSale(context.Background(), usecase.CreateSaleInput{
			Number:  "1",
			StoreID: f.store.ID,
			Details: []usecase.SaleLineInput{
				{ProductID: f.p1.ID, Quantity: 1},
				{ProductID: 999, Quantity: 1},
			},
		})
		he := requireHTTPError(t, err, http.StatusNotFound, usecase.CodeNotFound)
		assert.Contains(t, he.Fields, "details[1].product_id")
		assert.Equal(t, int64(5), f.available(t, f.p1.ID))
		assertNothingPersisted(t, f.mem)
	})
}

func TestSaleUsecase_CreateSale_Validation(t *testing.T) {
	cases := []struct {
		name  string
		in    usecase.CreateSaleInput
		field string
	}{
		{"number missing", usecase.CreateSaleInput{StoreID: 1, Details: []usecase.SaleLineInput{{ProductID: 1, Quantity: 1}}}, "number"},
		{"number blank", usecase.CreateSaleInput{Number: "   ", StoreID: 1, Details: []usecase.SaleLineInput{{ProductID: 1, Quantity: 1}}}, "number"},
		{"store missing", usecase.CreateSaleInput{Number: "1", Details: []usecase.SaleLineInput{{ProductID: 1, Quantity: 1}}}, "store"},
		{"details empty", usecase.CreateSaleInput{Number: "1", StoreID: 1}, "details"},
		{"product missing", usecase.CreateSaleInput{Number: "1", StoreID: 1, Details: []usecase.SaleLineInput{{Quantity: 1}}}, "details[0].product_id"},
		{"quantity zero", usecase.CreateSaleInput{Number: "1", StoreID: 1, Details: []usecase.SaleLineInput{{ProductID: 1}}}, "details[0].quantity"},
		{"quantity negative", usecase.CreateSaleInput{Number: "1", StoreID: 1, Details: []usecase.SaleLineInput{{ProductID: 1, Quantity: 1}, {ProductID: 1, Quantity: -2}}}, "details[1].quantity"},
		{"quantity too large", usecase.CreateSaleInput{Number: "1", StoreID: 1, Details: []usecase.SaleLineInput{{ProductID: 1, Quantity: 40000}}}, "details[0].quantity"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newSaleFixture(t, false)
			_, err := f.uc.CreateSale(context.Background(), tc.in)

			he := requireHTTPError(t, err, http.StatusBadRequest, usecase.CodeValidation)
			assert.Contains(t, he.Fields, tc.field)
			assert.Equal(t, int64(5), f.available(t, f.p1.ID))
			assertNothingPersisted(t, f.mem)
			assert.Equal(t, []string{usecase.CodeValidation}, f.obs.rejected)
		})
	}
}

func TestSaleUsecase_CreateSale_Concurrent(t *testing.T) {
	f := newSaleFixture(t, false)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.uc.CreateSale(context.Background(), usecase.CreateSaleInput{
				Number:  "c",
				StoreID: f.store.ID,
				Details: []usecase.SaleLineInput{{ProductID: f.p1.ID, Quantity: 1}},
			})
		}(i)
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		requireHTTPError(t, err, http.StatusBadRequest, usecase.CodeInsufficientStock)
	}
	assert.Equal(t, 5, ok)
	assert.Equal(t, int64(0), f.available(t, f.p1.ID))
	assert.Len(t, f.mem.SaleRows(), 5)
}

func TestSaleUsecase_CreateSale_Logs(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	f := newSaleFixture(t, false)
	uc := usecase.NewSaleUsecase(f.mem, fixedClock{testNow}, false, nil, zap.New(core))

	_, err := uc.CreateSale(context.Background(), usecase.CreateSaleInput{
		Actor: "cashier", Number: "1", StoreID: f.store.ID,
		Details: []usecase.SaleLineInput{{ProductID: f.p1.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	_, err = uc.CreateSale(context.Background(), usecase.CreateSaleInput{
		Actor: "cashier", Number: "2", StoreID: f.store.ID,
		Details: []usecase.SaleLineInput{{ProductID: f.p2.ID, Quantity: 1}},
	})
	require.Error(t, err)

	assert.Equal(t, 1, logs.FilterMessage("sale committed").Len())
	rejected := logs.FilterMessage("sale rejected").All()
	require.Len(t, rejected, 1)
	assert.Equal(t, usecase.CodeInventoryUnavailable, rejected[0].ContextMap()["reason"])
}

// =====================
// immutability
// =====================

func TestSaleUsecase_MutationsNotAllowed(t *testing.T) {
	f := newSaleFixture(t, false)
	out, err := f.uc.CreateSale(context.Background(), usecase.CreateSaleInput{
		Number: "1", StoreID: f.store.ID,
		Details: []usecase.SaleLineInput{{ProductID: f.p1.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	for _, fn := range []func(context.Context, int64) error{f.uc.UpdateSale, f.uc.PatchSale, f.uc.DeleteSale} {
		requireHTTPError(t, fn(context.Background(), out.ID), http.StatusMethodNotAllowed, usecase.CodeNotAllowed)
	}

	assert.Len(t, f.mem.SaleRows(), 1)
	assert.Len(t, f.mem.SaleDetailRows(), 1)
	assert.Equal(t, int64(4), f.available(t, f.p1.ID))
}

// =====================
// read projection
// =====================

func TestSaleUsecase_Reads(t *testing.T) {
	f := newSaleFixture(t, false)
	f.mem.AddInventory(f.store.ID, f.p2.ID, 10)
	ctx := context.Background()

	first, err := f.uc.CreateSale(ctx, usecase.CreateSaleInput{
		Number: "A-1", StoreID: f.store.ID,
		Details: []usecase.SaleLineInput{{ProductID: f.p1.ID, Quantity: 1}, {ProductID: f.p2.ID, Quantity: 4}},
	})
	require.NoError(t, err)
	second, err := f.uc.CreateSale(ctx, usecase.CreateSaleInput{
		Number: "A-2", StoreID: f.store.ID,
		Details: []usecase.SaleLineInput{{ProductID: f.p2.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	t.Run("get", func(t *testing.T) {
		got, err := f.uc.GetSale(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, first, got)
		assert.Equal(t, "13.00", got.Details[1].Value)

		_, err = f.uc.GetSale(ctx, 999)
		requireHTTPError(t, err, http.StatusNotFound, usecase.CodeNotFound)

		_, err = f.uc.GetSale(ctx, 0)
		requireHTTPError(t, err, http.StatusBadRequest, usecase.CodeValidation)
	})

	t.Run("list by number", func(t *testing.T) {
		out, err := f.uc.ListSales(ctx, usecase.ListSalesInput{Page: 1, Limit: 20, Number: "A-2"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), out.Total)
		assert.Equal(t, second.ID, out.Items[0].ID)
	})

	t.Run("list by date", func(t *testing.T) {
		d := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
		out, err := f.uc.ListSales(ctx, usecase.ListSalesInput{Page: 1, Limit: 20, Date: &d})
		require.NoError(t, err)
		assert.Equal(t, int64(2), out.Total)

		other := d.AddDate(0, 0, 1)
		out, err = f.uc.ListSales(ctx, usecase.ListSalesInput{Page: 1, Limit: 20, Date: &other})
		require.NoError(t, err)
		assert.Equal(t, int64(0), out.Total)
	})

	t.Run("details by product", func(t *testing.T) {
		out, err := f.uc.ListSaleDetails(ctx, usecase.ListSaleDetailsInput{Page: 1, Limit: 20, ProductID: &f.p2.ID})
		require.NoError(t, err)
		assert.Equal(t, int64(2), out.Total)
	})

	t.Run("details by sale number", func(t *testing.T) {
		out, err := f.uc.ListSaleDetails(ctx, usecase.ListSaleDetailsInput{Page: 1, Limit: 20, SaleNumber: "A-1"})
		require.NoError(t, err)
		require.Equal(t, int64(2), out.Total)
		for _, d := range out.Items {
			assert.Equal(t, first.ID, d.Sale)
		}

		one, err := f.uc.GetSaleDetail(ctx, out.Items[0].ID)
		require.NoError(t, err)
		assert.Equal(t, out.Items[0], one)
	})

	t.Run("details by sale id", func(t *testing.T) {
		out, err := f.uc.ListSaleDetails(ctx, usecase.ListSaleDetailsInput{Page: 1, Limit: 20, SaleID: &second.ID})
		require.NoError(t, err)
		require.Equal(t, int64(1), out.Total)
		assert.Equal(t, "3.25", out.Items[0].Value)
	})

	t.Run("invalid page", func(t *testing.T) {
		_, err := f.uc.ListSales(ctx, usecase.ListSalesInput{Page: 0, Limit: 20})
		requireHTTPError(t, err, http.StatusBadRequest, usecase.CodeValidation)
	})
}
