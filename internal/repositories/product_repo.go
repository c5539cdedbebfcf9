package repositories

import (
	"context"

	"inventory/internal/models"

	"github.com/shopspring/decimal"
)

// ProductRepository defines the interface for product data access.
//
// Single-record lookups return models.ErrNotFound when nothing matches.
// List queries return records in ascending id order.
type ProductRepository interface {
	FindAll(ctx context.Context) ([]models.Product, error)
	FindByID(ctx context.Context, id uint) (*models.Product, error)
	ExistsByID(ctx context.Context, id uint) (bool, error)
	// Save inserts the product when its ID is zero and fully replaces the
	// stored record otherwise. A replace never inserts: if the record is gone
	// it returns models.ErrNotFound. Timestamps are stamped on the passed product.
	Save(ctx context.Context, product *models.Product) error
	DeleteByID(ctx context.Context, id uint) error

	FindByName(ctx context.Context, name string) (*models.Product, error)
	FindByCategory(ctx context.Context, category string) ([]models.Product, error)
	FindByStockLessThanEqual(ctx context.Context, stock int) ([]models.Product, error)
	FindByPriceBetween(ctx context.Context, min, max decimal.Decimal) ([]models.Product, error)
	FindByNameContainingIgnoreCase(ctx context.Context, keyword string) ([]models.Product, error)

	// Transaction runs fn against a repository bound to a single store
	// transaction. A non-nil error from fn rolls the transaction back. Inside
	// fn, FindByID holds the row until the transaction ends.
	Transaction(ctx context.Context, fn func(repo ProductRepository) error) error
}
