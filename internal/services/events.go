package services

import (
	"context"
	"encoding/json"
	"time"

	"inventory/internal/models"
	"inventory/pkg/logger"

	"github.com/google/uuid"
)

// Product event types, also used as routing keys.
const (
	EventProductCreated = "product.created"
	EventProductUpdated = "product.updated"
	EventProductDeleted = "product.deleted"
)

// EventPublisher delivers serialized events to a message broker.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
}

// ProductEvent is the message published after a product mutation commits.
type ProductEvent struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	ProductID  uint            `json:"productId"`
	Product    *models.Product `json:"product,omitempty"`
	OccurredAt time.Time       `json:"occurredAt"`
}

func newProductEvent(eventType string, productID uint, product *models.Product) ProductEvent {
	return ProductEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		ProductID:  productID,
		Product:    product,
		OccurredAt: time.Now().UTC(),
	}
}

// AuditProductEvent records a consumed product event in the log. Bodies that
// cannot be decoded are logged and dropped so they are not redelivered.
func AuditProductEvent(ctx context.Context, body []byte) error {
	var event ProductEvent
	if err := json.Unmarshal(body, &event); err != nil {
		logger.Warn(ctx).Err(err).Msg("Discarding malformed product event")
		return nil
	}
	logger.Info(ctx).
		Str("event_id", event.ID).
		Str("type", event.Type).
		Uint("product_id", event.ProductID).
		Time("occurred_at", event.OccurredAt).
		Msg("Product event received")
	return nil
}
