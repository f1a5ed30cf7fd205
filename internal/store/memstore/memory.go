// Package memstore is an in-memory store.Ledger used by tests. Transactions
// are serialised by one mutex and applied copy-on-commit, so a failed
// transaction leaves no trace.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"inventory-service/internal/models"
	"inventory-service/internal/store"

	"github.com/shopspring/decimal"
)

// Store implements store.Ledger in memory.
type Store struct {
	mu    sync.Mutex
	state *state

	// BeforeInsertSaleItem, when set, runs before every line item insert and
	// aborts the transaction if it returns an error.
	BeforeInsertSaleItem func(item *models.SaleItem) error
}

type state struct {
	products  map[int64]models.Product
	customers map[int64]models.Customer
	sales     map[int64]models.Sale
	items     []models.SaleItem
	nextID    int64
}

var _ store.Ledger = (*Store)(nil)

// New returns an empty store
func New() *Store {
	return &Store{state: &state{
		products:  make(map[int64]models.Product),
		customers: make(map[int64]models.Customer),
		sales:     make(map[int64]models.Sale),
	}}
}

// PutProduct inserts or replaces a product
func (s *Store) PutProduct(p models.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.products[p.ID] = p
}

// PutCustomer inserts or replaces a customer
func (s *Store) PutCustomer(c models.Customer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.customers[c.ID] = c
}

// Product returns the committed product
func (s *Store) Product(id int64) (models.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.state.products[id]
	return p, ok
}

// Sale returns the committed sale
func (s *Store) Sale(id int64) (models.Sale, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sale, ok := s.state.sales[id]
	return sale, ok
}

// SaleCount returns the number of committed sales
func (s *Store) SaleCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.sales)
}

// Items returns the committed line items of a sale
func (s *Store) Items(saleID int64) []models.SaleItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.SaleItem
	for _, it := range s.state.items {
		if it.SaleID == saleID {
			out = append(out, it)
		}
	}
	return out
}

// WithTx runs fn against a private copy and publishes it on success
func (s *Store) WithTx(ctx context.Context, fn func(store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return models.StorageError("begin tx", err)
	}

	work := s.state.clone()
	if err := fn(&memTx{owner: s, st: work}); err != nil {
		return err
	}
	s.state = work
	return nil
}

// GetProductByID retrieves an active product
func (s *Store) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.state.products[id]
	if !ok || p.ArchivedAt != nil {
		return nil, models.NewNotFoundError("product", id)
	}
	return &p, nil
}

// GetProducts retrieves all active products ordered by id
func (s *Store) GetProducts(ctx context.Context) ([]models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Product, 0, len(s.state.products))
	for _, p := range s.state.products {
		if p.ArchivedAt == nil {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetSaleView projects a committed sale
func (s *Store) GetSaleView(ctx context.Context, id int64) (*models.SaleView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sale, ok := s.state.sales[id]
	if !ok {
		return nil, models.NewNotFoundError("sale", id)
	}
	var name *string
	if c, ok := s.state.customers[sale.CustomerID]; ok {
		n := c.Name
		name = &n
	}
	return models.NewSaleView(&sale, name), nil
}

// GetSaleByIdempotencyKey finds a sale by key, nil if absent
func (s *Store) GetSaleByIdempotencyKey(ctx context.Context, key string) (*models.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sale := range s.state.sales {
		if sale.IdempotencyKey != nil && *sale.IdempotencyKey == key {
			found := sale
			return &found, nil
		}
	}
	return nil, nil
}

// GetSaleItems returns the committed line items of a sale
func (s *Store) GetSaleItems(ctx context.Context, saleID int64) ([]models.SaleItem, error) {
	return s.Items(saleID), nil
}

func (st *state) clone() *state {
	c := &state{
		products:  make(map[int64]models.Product, len(st.products)),
		customers: make(map[int64]models.Customer, len(st.customers)),
		sales:     make(map[int64]models.Sale, len(st.sales)),
		items:     append([]models.SaleItem(nil), st.items...),
		nextID:    st.nextID,
	}
	for k, v := range st.products {
		c.products[k] = v
	}
	for k, v := range st.customers {
		c.customers[k] = v
	}
	for k, v := range st.sales {
		c.sales[k] = v
	}
	return c
}

type memTx struct {
	owner *Store
	st    *state
}

func (t *memTx) GetCustomer(ctx context.Context, id int64) (*models.Customer, error) {
	c, ok := t.st.customers[id]
	if !ok || c.ArchivedAt != nil {
		return nil, models.NewNotFoundError("customer", id)
	}
	return &c, nil
}

func (t *memTx) LockProducts(ctx context.Context, ids []int64) (map[int64]*models.Product, error) {
	locked := make(map[int64]*models.Product, len(ids))
	for _, id := range ids {
		p, ok := t.st.products[id]
		if !ok || p.ArchivedAt != nil {
			return nil, models.NewNotFoundError("product", id)
		}
		locked[id] = &p
	}
	return locked, nil
}

func (t *memTx) AdjustStock(ctx context.Context, productID int64, delta int) (*models.Product, error) {
	p, ok := t.st.products[productID]
	if !ok || p.ArchivedAt != nil {
		return nil, models.NewNotFoundError("product", productID)
	}
	if p.Quantity+delta < 0 {
		return nil, &models.InsufficientStockError{ProductID: productID, Available: p.Quantity, Requested: -delta}
	}
	p.Quantity += delta
	p.StockVersion++
	t.st.products[productID] = p
	return &p, nil
}

func (t *memTx) InsertSale(ctx context.Context, sale *models.Sale) error {
	if sale.AmountPaid.IsNegative() || sale.AmountPaid.GreaterThan(sale.TotalAmount) {
		return models.NewValidationError("amount_paid", "out of bounds")
	}
	if sale.IdempotencyKey != nil {
		for _, existing := range t.st.sales {
			if existing.IdempotencyKey != nil && *existing.IdempotencyKey == *sale.IdempotencyKey {
				return models.ErrConflict
			}
		}
	}
	t.st.nextID++
	sale.ID = t.st.nextID
	sale.SaleDate = time.Now().UTC()
	t.st.sales[sale.ID] = *sale
	return nil
}

func (t *memTx) InsertSaleItem(ctx context.Context, item *models.SaleItem) error {
	if hook := t.owner.BeforeInsertSaleItem; hook != nil {
		if err := hook(item); err != nil {
			return err
		}
	}
	if _, ok := t.st.sales[item.SaleID]; !ok {
		return models.NewNotFoundError("sale", item.SaleID)
	}
	t.st.nextID++
	item.ID = t.st.nextID
	t.st.items = append(t.st.items, *item)
	return nil
}

func (t *memTx) GetSaleForUpdate(ctx context.Context, id int64) (*models.Sale, error) {
	sale, ok := t.st.sales[id]
	if !ok {
		return nil, models.NewNotFoundError("sale", id)
	}
	return &sale, nil
}

func (t *memTx) UpdateSalePayment(ctx context.Context, saleID int64, amountPaid decimal.Decimal, status models.PaymentStatus) error {
	sale, ok := t.st.sales[saleID]
	if !ok {
		return models.NewNotFoundError("sale", saleID)
	}
	if amountPaid.IsNegative() || amountPaid.GreaterThan(sale.TotalAmount) {
		return models.NewValidationError("amount_paid", "out of bounds")
	}
	sale.AmountPaid = amountPaid
	sale.PaymentStatus = status
	t.st.sales[saleID] = sale
	return nil
}
