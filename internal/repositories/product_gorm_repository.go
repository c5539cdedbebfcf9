package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"inventory/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// likeEscaper escapes LIKE wildcards so a keyword always matches literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// GORMProductRepository is a GORM implementation of ProductRepository.
type GORMProductRepository struct {
	db  *gorm.DB
	now func() time.Time
	// lock is set inside transactions so reads by ID hold the row until commit.
	lock bool
}

// NewGORMProductRepository creates a new instance of GORMProductRepository.
func NewGORMProductRepository(db *gorm.DB) *GORMProductRepository {
	return &GORMProductRepository{
		db:  db,
		now: defaultClock,
	}
}

// WithClock replaces the clock used to stamp timestamps.
func (r *GORMProductRepository) WithClock(now func() time.Time) *GORMProductRepository {
	r.now = now
	return r
}

// FindAll retrieves all products from the database.
func (r *GORMProductRepository) FindAll(ctx context.Context) ([]models.Product, error) {
	products := []models.Product{}
	if err := r.db.WithContext(ctx).Order("id").Find(&products).Error; err != nil {
		return nil, models.NewStorageError("failed to get all products", err)
	}
	return products, nil
}

// FindByID retrieves a single product by its ID from the database.
func (r *GORMProductRepository) FindByID(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	db := r.db.WithContext(ctx)
	if r.lock {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := db.First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, models.NewStorageError(fmt.Sprintf("failed to get product by ID %d", id), err)
	}
	return &product, nil
}

// ExistsByID reports whether a product with the given ID exists.
func (r *GORMProductRepository) ExistsByID(ctx context.Context, id uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Limit(1).Count(&count).Error; err != nil {
		return false, models.NewStorageError(fmt.Sprintf("failed to check product %d", id), err)
	}
	return count > 0, nil
}

// Save creates the product when it is new and replaces every column otherwise.
// Replacing a row that no longer exists returns models.ErrNotFound.
func (r *GORMProductRepository) Save(ctx context.Context, product *models.Product) error {
	product.Stamp(r.now())
	if product.IsNew() {
		if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
			return models.NewStorageError("failed to create product", err)
		}
		return nil
	}
	// Select("*") writes zero values too; created_at is create-only.
	res := r.db.WithContext(ctx).Model(product).Select("*").Updates(product)
	if res.Error != nil {
		return models.NewStorageError(fmt.Sprintf("failed to update product %d", product.ID), res.Error)
	}
	if res.RowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}

// DeleteByID deletes a product by its ID from the database.
func (r *GORMProductRepository) DeleteByID(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id).Error; err != nil {
		return models.NewStorageError(fmt.Sprintf("failed to delete product %d", id), err)
	}
	return nil
}

// FindByName retrieves the product whose name matches exactly.
func (r *GORMProductRepository) FindByName(ctx context.Context, name string) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Where("name = ?", name).Order("id").First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, models.NewStorageError(fmt.Sprintf("failed to get product by name %q", name), err)
	}
	return &product, nil
}

// FindByCategory retrieves the products in a category.
func (r *GORMProductRepository) FindByCategory(ctx context.Context, category string) ([]models.Product, error) {
	return r.list(ctx, "failed to get products by category", "category = ?", category)
}

// FindByStockLessThanEqual retrieves the products with at most stock units.
func (r *GORMProductRepository) FindByStockLessThanEqual(ctx context.Context, stock int) ([]models.Product, error) {
	return r.list(ctx, "failed to get products by stock", "stock <= ?", stock)
}

// FindByPriceBetween retrieves the products priced within [min, max].
func (r *GORMProductRepository) FindByPriceBetween(ctx context.Context, min, max decimal.Decimal) ([]models.Product, error) {
	return r.list(ctx, "failed to get products by price range", "price BETWEEN ? AND ?", min, max)
}

// FindByNameContainingIgnoreCase retrieves the products whose name contains keyword, ignoring case.
func (r *GORMProductRepository) FindByNameContainingIgnoreCase(ctx context.Context, keyword string) ([]models.Product, error) {
	const op = "failed to search products by name"
	keyword = strings.ToLower(keyword)
	if r.db.Dialector.Name() != "sqlite" {
		pattern := "%" + likeEscaper.Replace(keyword) + "%"
		return r.list(ctx, op, `LOWER(name) LIKE ? ESCAPE '\'`, pattern)
	}

	// SQLite's LOWER only folds ASCII, so names are folded here instead.
	products, err := r.list(ctx, op, "1 = 1")
	if err != nil {
		return nil, err
	}
	matched := products[:0]
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Name), keyword) {
			matched = append(matched, p)
		}
	}
	return matched, nil
}

// Transaction runs fn inside a database transaction.
func (r *GORMProductRepository) Transaction(ctx context.Context, fn func(repo ProductRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GORMProductRepository{db: tx, now: r.now, lock: true})
	})
}

func (r *GORMProductRepository) list(ctx context.Context, op string, query string, args ...interface{}) ([]models.Product, error) {
	products := []models.Product{}
	if err := r.db.WithContext(ctx).Where(query, args...).Order("id").Find(&products).Error; err != nil {
		return nil, models.NewStorageError(op, err)
	}
	return products, nil
}

func defaultClock() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
