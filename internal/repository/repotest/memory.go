// Package repotest provides an in-memory, transactional implementation of
// the repository interfaces for tests.
package repotest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"storepos/internal/domain/model"
	repo "storepos/internal/repository"
)

// Memory keeps committed state and runs each WithinTx on a private copy
// that replaces it only when fn succeeds. Transactions are serialised,
// which is at least as strict as the row locks of the real store.
type Memory struct {
	mu sync.Mutex
	st *state

	// FailOn, when set, is called before every write with an operation
	// name such as "sale.create" or "sale_detail.create". A non-nil
	// result fails that write.
	FailOn func(op string) error
}

type state struct {
	seq         map[string]int64
	stores      map[int64]model.Store
	products    map[int64]model.Product
	inventory   map[int64]model.Inventory
	sales       map[int64]model.Sale
	details     map[int64]model.SaleDetail
	audits      []model.AuditLog
	adjustments []model.InventoryAdjustment
}

func newState() *state {
	return &state{
		seq:       map[string]int64{},
		stores:    map[int64]model.Store{},
		products:  map[int64]model.Product{},
		inventory: map[int64]model.Inventory{},
		sales:     map[int64]model.Sale{},
		details:   map[int64]model.SaleDetail{},
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.seq {
		c.seq[k] = v
	}
	for k, v := range s.stores {
		c.stores[k] = v
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.inventory {
		c.inventory[k] = v
	}
	for k, v := range s.sales {
		c.sales[k] = v
	}
	for k, v := range s.details {
		c.details[k] = v
	}
	c.audits = append([]model.AuditLog(nil), s.audits...)
	c.adjustments = append([]model.InventoryAdjustment(nil), s.adjustments...)
	return c
}

func (s *state) next(table string) int64 {
	s.seq[table]++
	return s.seq[table]
}

func NewMemory() *Memory {
	return &Memory{st: newState()}
}

var _ repo.TransactionManager = (*Memory)(nil)

func (m *Memory) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	work := m.st.clone()
	if err := fn(&txRepos{m: m, st: work}); err != nil {
		return err
	}
	*m.st = *work
	return nil
}

// Repositories outside any transaction, each call sees committed state.
func (m *Memory) StoreRepo() repo.StoreRepository { return &storeRepo{base{m: m}} }
func (m *Memory) ProductRepo() repo.ProductRepository {
	return &productRepo{base{m: m}}
}
func (m *Memory) InventoryRepo() repo.InventoryRepository {
	return &inventoryRepo{base{m: m}}
}

/* seeding and inspection */

func (m *Memory) AddStore(s model.Store) model.Store {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == 0 {
		s.ID = m.st.next("store")
	} else if s.ID > m.st.seq["store"] {
		m.st.seq["store"] = s.ID
	}
	m.st.stores[s.ID] = s
	return s
}

func (m *Memory) AddProduct(p model.Product) model.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == 0 {
		p.ID = m.st.next("product")
	} else if p.ID > m.st.seq["product"] {
		m.st.seq["product"] = p.ID
	}
	m.st.products[p.ID] = p
	return p
}

func (m *Memory) AddInventory(storeID, productID, available int64) model.Inventory {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv := model.Inventory{
		ID:        m.st.next("inventory"),
		StoreID:   storeID,
		ProductID: productID,
		Available: available,
	}
	m.st.inventory[inv.ID] = inv
	return inv
}

// Available reports the committed quantity of a (store, product) row.
func (m *Memory) Available(storeID, productID int64) (int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inv := range m.st.inventory {
		if inv.StoreID == storeID && inv.ProductID == productID {
			return inv.Available, true
		}
	}
	return 0, false
}

func (m *Memory) SaleRows() []model.Sale {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Sale, 0, len(m.st.sales))
	for _, s := range m.st.sales {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Memory) SaleDetailRows() []model.SaleDetail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sortedDetails(m.st.details, func(model.SaleDetail) bool { return true })
}

func (m *Memory) AuditRows() []model.AuditLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.AuditLog(nil), m.st.audits...)
}

func (m *Memory) AdjustmentRows() []model.InventoryAdjustment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.InventoryAdjustment(nil), m.st.adjustments...)
}

/* repositories */

// base runs against a transaction copy (st set) or, outside a
// transaction, against committed state under the lock.
type base struct {
	m  *Memory
	st *state
}

func (b base) do(fn func(st *state) error) error {
	if b.st != nil {
		return fn(b.st)
	}
	b.m.mu.Lock()
	defer b.m.mu.Unlock()
	return fn(b.m.st)
}

func (b base) fail(op string) error {
	if b.m.FailOn == nil {
		return nil
	}
	return b.m.FailOn(op)
}

type txRepos struct {
	m  *Memory
	st *state
}

func (t *txRepos) b() base { return base{m: t.m, st: t.st} }

func (t *txRepos) Stores() repo.StoreRepository           { return &storeRepo{t.b()} }
func (t *txRepos) Products() repo.ProductRepository       { return &productRepo{t.b()} }
func (t *txRepos) Inventory() repo.InventoryRepository    { return &inventoryRepo{t.b()} }
func (t *txRepos) Sales() repo.SaleRepository             { return &saleRepo{t.b()} }
func (t *txRepos) SaleDetails() repo.SaleDetailRepository { return &saleDetailRepo{t.b()} }
func (t *txRepos) AuditLogs() repo.AuditLogRepository     { return &auditRepo{t.b()} }

func page[T any](items []T, p repo.Pagination) []T {
	p = p.Normalize()
	start := p.Offset()
	if start >= len(items) {
		return []T{}
	}
	end := start + p.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func hasPrefixFold(s, prefix string) bool {
	return strings.HasPrefix(strings.ToLower(s), strings.ToLower(prefix))
}

type storeRepo struct{ base }

func (r *storeRepo) List(ctx context.Context, q repo.StoreListQuery) ([]model.Store, int64, error) {
	var out []model.Store
	err := r.do(func(st *state) error {
		for _, s := range st.stores {
			if q.Search == "" || hasPrefixFold(s.Name, q.Search) {
				out = append(out, s)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return page(out, q.Pagination), int64(len(out)), err
}

func (r *storeRepo) FindByID(ctx context.Context, id int64) (model.Store, error) {
	var out model.Store
	err := r.do(func(st *state) error {
		s, ok := st.stores[id]
		if !ok {
			return repo.ErrNotFound
		}
		out = s
		return nil
	})
	return out, err
}

func (r *storeRepo) Create(ctx context.Context, s model.Store) (model.Store, error) {
	if err := r.fail("store.create"); err != nil {
		return model.Store{}, err
	}
	err := r.do(func(st *state) error {
		s.ID = st.next("store")
		st.stores[s.ID] = s
		return nil
	})
	return s, err
}

func (r *storeRepo) Update(ctx context.Context, s model.Store) (model.Store, error) {
	if err := r.fail("store.update"); err != nil {
		return model.Store{}, err
	}
	err := r.do(func(st *state) error {
		if _, ok := st.stores[s.ID]; !ok {
			return repo.ErrNotFound
		}
		st.stores[s.ID] = s
		return nil
	})
	return s, err
}

type productRepo struct{ base }

func (r *productRepo) List(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	var out []model.Product
	err := r.do(func(st *state) error {
		for _, p := range st.products {
			if q.Search != "" && !hasPrefixFold(p.Name, q.Search) {
				continue
			}
			if q.Price != nil && !p.Price.Equal(*q.Price) {
				continue
			}
			out = append(out, p)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return page(out, q.Pagination), int64(len(out)), err
}

func (r *productRepo) FindByID(ctx context.Context, id int64) (model.Product, error) {
	var out model.Product
	err := r.do(func(st *state) error {
		p, ok := st.products[id]
		if !ok {
			return repo.ErrNotFound
		}
		out = p
		return nil
	})
	return out, err
}

func (r *productRepo) Create(ctx context.Context, p model.Product) (model.Product, error) {
	if err := r.fail("product.create"); err != nil {
		return model.Product{}, err
	}
	err := r.do(func(st *state) error {
		p.ID = st.next("product")
		st.products[p.ID] = p
		return nil
	})
	return p, err
}

func (r *productRepo) Update(ctx context.Context, p model.Product) (model.Product, error) {
	if err := r.fail("product.update"); err != nil {
		return model.Product{}, err
	}
	err := r.do(func(st *state) error {
		if _, ok := st.products[p.ID]; !ok {
			return repo.ErrNotFound
		}
		st.products[p.ID] = p
		return nil
	})
	return p, err
}

type inventoryRepo struct{ base }

func withRefs(st *state, inv model.Inventory) model.Inventory {
	inv.Store = st.stores[inv.StoreID]
	inv.Product = st.products[inv.ProductID]
	return inv
}

func findInventory(st *state, storeID, productID int64) (model.Inventory, bool) {
	for _, inv := range st.inventory {
		if inv.StoreID == storeID && inv.ProductID == productID {
			return inv, true
		}
	}
	return model.Inventory{}, false
}

func (r *inventoryRepo) List(ctx context.Context, f repo.InventoryFilter) ([]model.Inventory, int64, error) {
	var out []model.Inventory
	err := r.do(func(st *state) error {
		for _, inv := range st.inventory {
			if f.StoreID != nil && inv.StoreID != *f.StoreID {
				continue
			}
			if f.ProductID != nil && inv.ProductID != *f.ProductID {
				continue
			}
			out = append(out, withRefs(st, inv))
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return page(out, f.Pagination), int64(len(out)), err
}

func (r *inventoryRepo) FindByID(ctx context.Context, id int64) (model.Inventory, error) {
	var out model.Inventory
	err := r.do(func(st *state) error {
		inv, ok := st.inventory[id]
		if !ok {
			return repo.ErrNotFound
		}
		out = withRefs(st, inv)
		return nil
	})
	return out, err
}

func (r *inventoryRepo) Get(ctx context.Context, storeID, productID int64) (model.Inventory, error) {
	var out model.Inventory
	err := r.do(func(st *state) error {
		inv, ok := findInventory(st, storeID, productID)
		if !ok {
			return repo.ErrNotFound
		}
		out = withRefs(st, inv)
		return nil
	})
	return out, err
}

func (r *inventoryRepo) TryDecrement(ctx context.Context, storeID, productID, qty int64, allowNegative bool) (model.Inventory, error) {
	if err := r.fail("inventory.decrement"); err != nil {
		return model.Inventory{}, err
	}
	var out model.Inventory
	err := r.do(func(st *state) error {
		inv, ok := findInventory(st, storeID, productID)
		if !ok {
			return repo.ErrNotInInventory
		}
		if !allowNegative && inv.Available < qty {
			out = inv
			return repo.ErrInsufficientStock
		}
		inv.Available -= qty
		inv.DateLst = time.Now()
		st.inventory[inv.ID] = inv
		out = inv
		return nil
	})
	return out, err
}

func (r *inventoryRepo) Upsert(ctx context.Context, storeID, productID, available int64) (int64, error) {
	if err := r.fail("inventory.upsert"); err != nil {
		return 0, err
	}
	var before int64
	err := r.do(func(st *state) error {
		inv, ok := findInventory(st, storeID, productID)
		if !ok {
			inv = model.Inventory{ID: st.next("inventory"), StoreID: storeID, ProductID: productID}
		}
		before = inv.Available
		inv.Available = available
		inv.DateLst = time.Now()
		st.inventory[inv.ID] = inv
		return nil
	})
	return before, err
}

func (r *inventoryRepo) CreateAdjustment(ctx context.Context, adj model.InventoryAdjustment) error {
	if err := r.fail("inventory.adjustment"); err != nil {
		return err
	}
	return r.do(func(st *state) error {
		adj.ID = st.next("adjustment")
		st.adjustments = append(st.adjustments, adj)
		return nil
	})
}

type saleRepo struct{ base }

func (r *saleRepo) Create(ctx context.Context, s model.Sale) (model.Sale, error) {
	if err := r.fail("sale.create"); err != nil {
		return model.Sale{}, err
	}
	err := r.do(func(st *state) error {
		s.ID = st.next("sale")
		st.sales[s.ID] = s
		return nil
	})
	return s, err
}

func (r *saleRepo) FindByID(ctx context.Context, id int64) (model.Sale, error) {
	var out model.Sale
	err := r.do(func(st *state) error {
		s, ok := st.sales[id]
		if !ok {
			return repo.ErrNotFound
		}
		out = s
		return nil
	})
	return out, err
}

func (r *saleRepo) List(ctx context.Context, f repo.SaleListFilter) ([]model.Sale, int64, error) {
	var out []model.Sale
	err := r.do(func(st *state) error {
		for _, s := range st.sales {
			if f.Number != "" && s.Number != f.Number {
				continue
			}
			if f.Date != nil && !sameDay(s.Date, *f.Date) {
				continue
			}
			out = append(out, s)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return page(out, f.Pagination), int64(len(out)), err
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

type saleDetailRepo struct{ base }

func sortedDetails(all map[int64]model.SaleDetail, keep func(model.SaleDetail) bool) []model.SaleDetail {
	out := make([]model.SaleDetail, 0)
	for _, d := range all {
		if keep(d) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *saleDetailRepo) Create(ctx context.Context, d model.SaleDetail) (model.SaleDetail, error) {
	if err := r.fail("sale_detail.create"); err != nil {
		return model.SaleDetail{}, err
	}
	err := r.do(func(st *state) error {
		d.ID = st.next("sale_detail")
		st.details[d.ID] = d
		return nil
	})
	return d, err
}

func (r *saleDetailRepo) FindByID(ctx context.Context, id int64) (model.SaleDetail, error) {
	var out model.SaleDetail
	err := r.do(func(st *state) error {
		d, ok := st.details[id]
		if !ok {
			return repo.ErrNotFound
		}
		out = d
		return nil
	})
	return out, err
}

func (r *saleDetailRepo) ListBySaleID(ctx context.Context, saleID int64) ([]model.SaleDetail, error) {
	var out []model.SaleDetail
	err := r.do(func(st *state) error {
		out = sortedDetails(st.details, func(d model.SaleDetail) bool { return d.SaleID == saleID })
		return nil
	})
	return out, err
}

func (r *saleDetailRepo) List(ctx context.Context, f repo.SaleDetailFilter) ([]model.SaleDetail, int64, error) {
	var out []model.SaleDetail
	err := r.do(func(st *state) error {
		out = sortedDetails(st.details, func(d model.SaleDetail) bool {
			if f.SaleID != nil && d.SaleID != *f.SaleID {
				return false
			}
			if f.ProductID != nil && d.ProductID != *f.ProductID {
				return false
			}
			if f.SaleNumber != "" && st.sales[d.SaleID].Number != f.SaleNumber {
				return false
			}
			return true
		})
		return nil
	})
	return page(out, f.Pagination), int64(len(out)), err
}

type auditRepo struct{ base }

func (r *auditRepo) Create(ctx context.Context, log model.AuditLog) error {
	if err := r.fail("audit_log.create"); err != nil {
		return err
	}
	return r.do(func(st *state) error {
		log.ID = st.next("audit_log")
		st.audits = append(st.audits, log)
		return nil
	})
}
