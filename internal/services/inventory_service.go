package services

import (
	"context"
	"encoding/json"
	"errors"

	"inventory/internal/models"
	"inventory/internal/repositories"
	"inventory/pkg/logger"

	"github.com/shopspring/decimal"
)

// ProductResult is the outcome of an operation addressing a single product.
// Found is false when no product matched; Product is then the zero value.
type ProductResult struct {
	Product models.Product
	Found   bool
}

// DeleteOutcome reports whether a delete removed a product.
type DeleteOutcome int

const (
	NotDeleted DeleteOutcome = iota
	Deleted
)

func (o DeleteOutcome) String() string {
	if o == Deleted {
		return "deleted"
	}
	return "not deleted"
}

// InventoryService handles business logic related to products.
type InventoryService struct {
	repo      repositories.ProductRepository
	publisher EventPublisher
}

// NewInventoryService creates a new InventoryService. publisher may be nil,
// in which case no events are emitted.
func NewInventoryService(repo repositories.ProductRepository, publisher EventPublisher) *InventoryService {
	return &InventoryService{
		repo:      repo,
		publisher: publisher,
	}
}

// GetAllProducts retrieves all products.
func (s *InventoryService) GetAllProducts(ctx context.Context) ([]models.Product, error) {
	return s.repo.FindAll(ctx)
}

// GetProduct retrieves a single product by its ID.
func (s *InventoryService) GetProduct(ctx context.Context, id uint) (ProductResult, error) {
	return lookup(s.repo.FindByID(ctx, id))
}

// AddProduct validates and persists a new product. Identity and timestamps
// supplied by the caller are ignored.
func (s *InventoryService) AddProduct(ctx context.Context, input models.Product) (models.Product, error) {
	if err := input.Validate(); err != nil {
		return models.Product{}, err
	}

	product := models.Product{}
	product.ReplaceWith(input)
	if err := s.repo.Save(ctx, &product); err != nil {
		return models.Product{}, err
	}

	s.publish(ctx, newProductEvent(EventProductCreated, product.ID, &product))
	return product, nil
}

// UpdateProduct replaces every mutable field of an existing product with the
// values from input. The lookup and the write share one transaction; when the
// product does not exist nothing is written and Found is false.
func (s *InventoryService) UpdateProduct(ctx context.Context, id uint, input models.Product) (ProductResult, error) {
	if err := input.Validate(); err != nil {
		return ProductResult{}, err
	}

	var result ProductResult
	err := s.repo.Transaction(ctx, func(tx repositories.ProductRepository) error {
		existing, err := tx.FindByID(ctx, id)
		if errors.Is(err, models.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		existing.ReplaceWith(input)
		// The row can vanish between the read and the write.
		if err := tx.Save(ctx, existing); errors.Is(err, models.ErrNotFound) {
			return nil
		} else if err != nil {
			return err
		}
		result = ProductResult{Product: *existing, Found: true}
		return nil
	})
	if err != nil {
		return ProductResult{}, err
	}

	if result.Found {
		s.publish(ctx, newProductEvent(EventProductUpdated, id, &result.Product))
	}
	return result, nil
}

// DeleteProduct removes a product if it exists. The existence check and the
// delete share one transaction.
func (s *InventoryService) DeleteProduct(ctx context.Context, id uint) (DeleteOutcome, error) {
	outcome := NotDeleted
	err := s.repo.Transaction(ctx, func(tx repositories.ProductRepository) error {
		exists, err := tx.ExistsByID(ctx, id)
		if err != nil || !exists {
			return err
		}
		if err := tx.DeleteByID(ctx, id); err != nil {
			return err
		}
		outcome = Deleted
		return nil
	})
	if err != nil {
		return NotDeleted, err
	}

	if outcome == Deleted {
		s.publish(ctx, newProductEvent(EventProductDeleted, id, nil))
	}
	return outcome, nil
}

// FindByName retrieves the product with exactly the given name.
func (s *InventoryService) FindByName(ctx context.Context, name string) (ProductResult, error) {
	return lookup(s.repo.FindByName(ctx, name))
}

// FindByCategory retrieves the products in a category.
func (s *InventoryService) FindByCategory(ctx context.Context, category string) ([]models.Product, error) {
	return s.repo.FindByCategory(ctx, category)
}

// FindByStockLessThanEqual retrieves the products with at most stock units.
func (s *InventoryService) FindByStockLessThanEqual(ctx context.Context, stock int) ([]models.Product, error) {
	return s.repo.FindByStockLessThanEqual(ctx, stock)
}

// FindByPriceBetween retrieves the products priced within [min, max].
func (s *InventoryService) FindByPriceBetween(ctx context.Context, min, max decimal.Decimal) ([]models.Product, error) {
	return s.repo.FindByPriceBetween(ctx, min, max)
}

// FindByNameContainingIgnoreCase retrieves the products whose name contains keyword in any case.
func (s *InventoryService) FindByNameContainingIgnoreCase(ctx context.Context, keyword string) ([]models.Product, error) {
	logger.Debug(ctx).Str("keyword", keyword).Msg("Searching products by keyword")
	return s.repo.FindByNameContainingIgnoreCase(ctx, keyword)
}

// publish emits a product event. Failures are logged; the mutation has
// already committed.
func (s *InventoryService) publish(ctx context.Context, event ProductEvent) {
	if s.publisher == nil {
		return
	}

	body, err := json.Marshal(event)
	if err != nil {
		logger.Error(ctx).Err(err).Str("event_type", event.Type).Msg("Failed to marshal product event")
		return
	}
	if err := s.publisher.Publish(ctx, event.Type, body); err != nil {
		logger.Warn(ctx).Err(err).
			Str("event_type", event.Type).
			Uint("product_id", event.ProductID).
			Msg("Failed to publish product event")
		return
	}
	logger.Debug(ctx).Str("event_type", event.Type).Uint("product_id", event.ProductID).Msg("Published product event")
}

func lookup(product *models.Product, err error) (ProductResult, error) {
	if errors.Is(err, models.ErrNotFound) {
		return ProductResult{}, nil
	}
	if err != nil {
		return ProductResult{}, err
	}
	return ProductResult{Product: *product, Found: true}, nil
}
