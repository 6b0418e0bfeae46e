package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Shopify/sarama"

	"github.com/ocakbasi/order-sync/internal/models"
	"github.com/ocakbasi/order-sync/pkg/logger"
)

// OrderEventsHandler consumes the order status topic. The store itself is
// the producer of these events; consuming them here keeps a live audit
// trail in the logs and gives downstream integrations a template to copy.
type OrderEventsHandler struct {
	logger logger.Logger
}

// NewOrderEventsHandler creates a new OrderEventsHandler
func NewOrderEventsHandler(logger logger.Logger) *OrderEventsHandler {
	return &OrderEventsHandler{
		logger: logger,
	}
}

// HandleMessage handles incoming order events from Kafka messages
func (h *OrderEventsHandler) HandleMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var event models.OutboxMessageEvent

	if err := json.Unmarshal(msg.Value, &event); err != nil {
		h.logger.Error("failed to unmarshal message", "error", err)
		return fmt.Errorf("failed to unmarshal message: %w", err)
	}

	h.logger.Info("Handling order event",
		"eventType", event.EventType,
		"eventId", event.EventID,
		"aggregateId", event.AggregateID,
		"occurredAt", event.OccurredAt,
	)

	switch event.EventType {
	case models.EventOrderCreated:
		return h.handleOrderCreated(event)
	case models.EventOrderStatusChanged:
		return h.handleOrderStatusChanged(event)
	default:
		h.logger.Warn("unknown event type", "eventType", event.EventType)
		return nil
	}
}

// handleOrderCreated handles the order_created event
func (h *OrderEventsHandler) handleOrderCreated(event models.OutboxMessageEvent) error {
	h.logger.Info("Order entered the queue",
		"orderID", event.AggregateID,
		"eventID", event.EventID,
	)

	return nil
}

// handleOrderStatusChanged handles the order_status_changed event
func (h *OrderEventsHandler) handleOrderStatusChanged(event models.OutboxMessageEvent) error {
	data, ok := event.Data.(map[string]interface{})

	if !ok {
		h.logger.Error("Invalid event data format", "eventID", event.EventID)
		return fmt.Errorf("invalid event data format")
	}

	oldStatus, _ := data["old_status"].(string)
	newStatus, _ := data["new_status"].(string)
	source, _ := data["source"].(string)

	h.logger.Info("Order status changed",
		"orderID", event.AggregateID,
		"source", source,
		"oldStatus", oldStatus,
		"newStatus", newStatus)

	return nil
}
