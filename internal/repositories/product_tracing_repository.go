package repositories

import (
	"context"
	"errors"
	"strings"

	"inventory/internal/models"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "inventory/repositories"

// TracingProductRepository wraps a ProductRepository with tracing
type TracingProductRepository struct {
	next   ProductRepository
	tracer trace.Tracer
}

// NewTracingProductRepository creates a new repository with tracing. A nil
// provider falls back to the global one.
func NewTracingProductRepository(next ProductRepository, tp trace.TracerProvider) *TracingProductRepository {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &TracingProductRepository{
		next:   next,
		tracer: tp.Tracer(tracerName),
	}
}

func (r *TracingProductRepository) FindAll(ctx context.Context) ([]models.Product, error) {
	ctx, span := r.tracer.Start(ctx, "repository.FindAll")
	defer span.End()

	products, err := r.next.FindAll(ctx)
	return products, endList(span, products, err)
}

func (r *TracingProductRepository) FindByID(ctx context.Context, id uint) (*models.Product, error) {
	ctx, span := r.tracer.Start(ctx, "repository.FindByID",
		trace.WithAttributes(attribute.Int64("product.id", int64(id))),
	)
	defer span.End()

	product, err := r.next.FindByID(ctx, id)
	return product, endOne(span, product, err)
}

func (r *TracingProductRepository) ExistsByID(ctx context.Context, id uint) (bool, error) {
	ctx, span := r.tracer.Start(ctx, "repository.ExistsByID",
		trace.WithAttributes(attribute.Int64("product.id", int64(id))),
	)
	defer span.End()

	exists, err := r.next.ExistsByID(ctx, id)
	if err != nil {
		recordError(span, err)
		return false, err
	}
	span.SetAttributes(attribute.Bool("product.exists", exists))
	return exists, nil
}

func (r *TracingProductRepository) Save(ctx context.Context, product *models.Product) error {
	ctx, span := r.tracer.Start(ctx, "repository.Save",
		trace.WithAttributes(
			attribute.Bool("product.new", product.IsNew()),
			textAttr("product.name", product.Name),
			textAttr("product.category", product.Category),
			attribute.String("product.price", product.Price.String()),
			attribute.Int("product.stock", product.Stock),
		),
	)
	defer span.End()

	if err := r.next.Save(ctx, product); err != nil {
		recordError(span, err)
		return err
	}
	span.SetAttributes(attribute.Int64("product.id", int64(product.ID)))
	return nil
}

func (r *TracingProductRepository) DeleteByID(ctx context.Context, id uint) error {
	ctx, span := r.tracer.Start(ctx, "repository.DeleteByID",
		trace.WithAttributes(attribute.Int64("product.id", int64(id))),
	)
	defer span.End()

	if err := r.next.DeleteByID(ctx, id); err != nil {
		recordError(span, err)
		return err
	}
	return nil
}

func (r *TracingProductRepository) FindByName(ctx context.Context, name string) (*models.Product, error) {
	ctx, span := r.tracer.Start(ctx, "repository.FindByName",
		trace.WithAttributes(textAttr("query.name", name)),
	)
	defer span.End()

	product, err := r.next.FindByName(ctx, name)
	return product, endOne(span, product, err)
}

func (r *TracingProductRepository) FindByCategory(ctx context.Context, category string) ([]models.Product, error) {
	ctx, span := r.tracer.Start(ctx, "repository.FindByCategory",
		trace.WithAttributes(textAttr("query.category", category)),
	)
	defer span.End()

	products, err := r.next.FindByCategory(ctx, category)
	return products, endList(span, products, err)
}

func (r *TracingProductRepository) FindByStockLessThanEqual(ctx context.Context, stock int) ([]models.Product, error) {
	ctx, span := r.tracer.Start(ctx, "repository.FindByStockLessThanEqual",
		trace.WithAttributes(attribute.Int("query.stock", stock)),
	)
	defer span.End()

	products, err := r.next.FindByStockLessThanEqual(ctx, stock)
	return products, endList(span, products, err)
}

func (r *TracingProductRepository) FindByPriceBetween(ctx context.Context, min, max decimal.Decimal) ([]models.Product, error) {
	ctx, span := r.tracer.Start(ctx, "repository.FindByPriceBetween",
		trace.WithAttributes(
			attribute.String("query.min_price", min.String()),
			attribute.String("query.max_price", max.String()),
		),
	)
	defer span.End()

	products, err := r.next.FindByPriceBetween(ctx, min, max)
	return products, endList(span, products, err)
}

func (r *TracingProductRepository) FindByNameContainingIgnoreCase(ctx context.Context, keyword string) ([]models.Product, error) {
	ctx, span := r.tracer.Start(ctx, "repository.FindByNameContainingIgnoreCase",
		trace.WithAttributes(textAttr("query.keyword", keyword)),
	)
	defer span.End()

	products, err := r.next.FindByNameContainingIgnoreCase(ctx, keyword)
	return products, endList(span, products, err)
}

// Transaction traces the whole unit of work. Calls made through the
// transactional repository are traced as well.
func (r *TracingProductRepository) Transaction(ctx context.Context, fn func(repo ProductRepository) error) error {
	ctx, span := r.tracer.Start(ctx, "repository.Transaction")
	defer span.End()

	err := r.next.Transaction(ctx, func(tx ProductRepository) error {
		return fn(&TracingProductRepository{next: tx, tracer: r.tracer})
	})
	if err != nil {
		recordError(span, err)
	}
	return err
}

func endOne(span trace.Span, product *models.Product, err error) error {
	if err != nil {
		recordError(span, err)
		return err
	}
	span.SetAttributes(
		attribute.Int64("product.id", int64(product.ID)),
		textAttr("product.name", product.Name),
	)
	return nil
}

func endList(span trace.Span, products []models.Product, err error) error {
	if err != nil {
		recordError(span, err)
		return err
	}
	span.SetAttributes(attribute.Int("result.count", len(products)))
	return nil
}

// recordError marks the span failed. Absence is an expected outcome and only
// annotated.
func recordError(span trace.Span, err error) {
	if errors.Is(err, models.ErrNotFound) {
		span.SetAttributes(attribute.Bool("product.found", false))
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// textAttr copies v, which may alias a request buffer that is reused once
// the request completes.
func textAttr(key, v string) attribute.KeyValue {
	return attribute.String(key, strings.Clone(v))
}
