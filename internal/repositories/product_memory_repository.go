package repositories

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"inventory/internal/models"

	"github.com/shopspring/decimal"
)

// MemoryProductRepository is an in-memory implementation of ProductRepository.
type MemoryProductRepository struct {
	products map[uint]models.Product
	nextID   uint
	now      func() time.Time
	mu       sync.RWMutex
	txMu     sync.Mutex
}

// NewMemoryProductRepository creates a new instance of MemoryProductRepository.
func NewMemoryProductRepository() *MemoryProductRepository {
	return &MemoryProductRepository{
		products: make(map[uint]models.Product),
		nextID:   1,
		now:      defaultClock,
	}
}

// WithClock replaces the clock used to stamp timestamps.
func (r *MemoryProductRepository) WithClock(now func() time.Time) *MemoryProductRepository {
	r.now = now
	return r
}

// FindAll returns all products.
func (r *MemoryProductRepository) FindAll(_ context.Context) ([]models.Product, error) {
	return r.filter(func(models.Product) bool { return true }), nil
}

// FindByID returns a product by its ID.
func (r *MemoryProductRepository) FindByID(_ context.Context, id uint) (*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.products[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &product, nil
}

// ExistsByID reports whether a product with the given ID exists.
func (r *MemoryProductRepository) ExistsByID(_ context.Context, id uint) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.products[id]
	return ok, nil
}

// Save adds a new product or replaces an existing one. Replacing a product
// that is no longer stored returns models.ErrNotFound.
func (r *MemoryProductRepository) Save(_ context.Context, product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !product.IsNew() {
		stored, ok := r.products[product.ID]
		if !ok {
			return models.ErrNotFound
		}
		product.CreatedAt = stored.CreatedAt
	}
	product.Stamp(r.now())
	if product.IsNew() {
		product.ID = r.nextID
		r.nextID++
	}
	r.products[product.ID] = *product
	return nil
}

// DeleteByID removes a product by its ID. Deleting a missing product is a no-op.
func (r *MemoryProductRepository) DeleteByID(_ context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.products, id)
	return nil
}

// FindByName returns the first product whose name matches exactly.
func (r *MemoryProductRepository) FindByName(_ context.Context, name string) (*models.Product, error) {
	matches := r.filter(func(p models.Product) bool { return p.Name == name })
	if len(matches) == 0 {
		return nil, models.ErrNotFound
	}
	return &matches[0], nil
}

// FindByCategory returns the products in a category.
func (r *MemoryProductRepository) FindByCategory(_ context.Context, category string) ([]models.Product, error) {
	return r.filter(func(p models.Product) bool { return p.Category == category }), nil
}

// FindByStockLessThanEqual returns the products with at most stock units.
func (r *MemoryProductRepository) FindByStockLessThanEqual(_ context.Context, stock int) ([]models.Product, error) {
	return r.filter(func(p models.Product) bool { return p.Stock <= stock }), nil
}

// FindByPriceBetween returns the products priced within [min, max].
func (r *MemoryProductRepository) FindByPriceBetween(_ context.Context, min, max decimal.Decimal) ([]models.Product, error) {
	return r.filter(func(p models.Product) bool {
		return p.Price.GreaterThanOrEqual(min) && p.Price.LessThanOrEqual(max)
	}), nil
}

// FindByNameContainingIgnoreCase returns the products whose name contains keyword, ignoring case.
func (r *MemoryProductRepository) FindByNameContainingIgnoreCase(_ context.Context, keyword string) ([]models.Product, error) {
	keyword = strings.ToLower(keyword)
	return r.filter(func(p models.Product) bool {
		return strings.Contains(strings.ToLower(p.Name), keyword)
	}), nil
}

// Transaction serializes fn against other transactions and restores the
// previous contents when fn fails.
func (r *MemoryProductRepository) Transaction(ctx context.Context, fn func(repo ProductRepository) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()

	r.mu.RLock()
	snapshot := make(map[uint]models.Product, len(r.products))
	for id, p := range r.products {
		snapshot[id] = p
	}
	nextID := r.nextID
	r.mu.RUnlock()

	if err := fn(r); err != nil {
		r.mu.Lock()
		r.products = snapshot
		r.nextID = nextID
		r.mu.Unlock()
		return err
	}
	return nil
}

func (r *MemoryProductRepository) filter(keep func(models.Product) bool) []models.Product {
	r.mu.RLock()
	defer r.mu.RUnlock()

	productList := make([]models.Product, 0, len(r.products))
	for _, p := range r.products {
		if keep(p) {
			productList = append(productList, p)
		}
	}
	sort.Slice(productList, func(i, j int) bool { return productList[i].ID < productList[j].ID })
	return productList
}
