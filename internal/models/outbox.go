package models

import (
	"encoding/json"
	"time"
)

// OutboxStatus represents the status of an outbox message
type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "pending"
	OutboxStatusProcessing OutboxStatus = "processing"
	OutboxStatusCompleted  OutboxStatus = "completed"
	OutboxStatusFailed     OutboxStatus = "failed"
)

// Event types published through the outbox
const (
	EventOrderCreated       = "order_created"
	EventOrderStatusChanged = "order_status_changed"
)

// OutboxMessage represents a message to be published from the outbox table
type OutboxMessage struct {
	ID                 int64        `db:"id" json:"id"`
	AggregateType      string       `db:"aggregate_type" json:"aggregate_type"`
	AggregateID        string       `db:"aggregate_id" json:"aggregate_id"`
	EventType          string       `db:"event_type" json:"event_type"`
	Payload            []byte       `db:"payload" json:"payload"`
	CreatedAt          time.Time    `db:"created_at" json:"created_at"`
	ProcessedAt        *time.Time   `db:"processed_at" json:"processed_at,omitempty"`
	ProcessingAttempts int          `db:"processing_attempts" json:"processing_attempts"`
	LastError          *string      `db:"last_error" json:"last_error,omitempty"`
	Status             OutboxStatus `db:"status" json:"status"`
}

// OutboxMessageEvent represents the event data in the outbox message
type OutboxMessageEvent struct {
	EventType   string      `json:"event_type"`
	EventID     string      `json:"event_id"`
	AggregateID string      `json:"aggregate_id"`
	OccurredAt  time.Time   `json:"occurred_at"`
	Data        interface{} `json:"data"`
}

// StatusChangeData is the payload of an order_status_changed event
type StatusChangeData struct {
	OrderID     string `json:"order_id"`
	OldStatus   Status `json:"old_status"`
	NewStatus   Status `json:"new_status"`
	Source      Source `json:"source"`
	DisplaySeq  int    `json:"display_seq"`
	BusinessDay string `json:"business_day"`
}

// NewOrderCreatedEvent creates an outbox message for a freshly created order
func NewOrderCreatedEvent(order *Order) (*OutboxMessage, error) {
	event := OutboxMessageEvent{
		EventType:   EventOrderCreated,
		EventID:     GenerateID("evt"),
		AggregateID: order.ID,
		OccurredAt:  GetCurrentTime(),
		Data:        order,
	}

	payload, err := json.Marshal(event)

	if err != nil {
		return nil, err
	}

	return &OutboxMessage{
		EventType:          event.EventType,
		Payload:            payload,
		AggregateType:      "order",
		AggregateID:        order.ID,
		CreatedAt:          GetCurrentTime(),
		ProcessingAttempts: 0,
		Status:             OutboxStatusPending,
	}, nil
}

// NewOrderStatusChangedEvent creates an outbox message for a lifecycle
// transition that was actually applied
func NewOrderStatusChangedEvent(order *Order, oldStatus Status) (*OutboxMessage, error) {
	event := OutboxMessageEvent{
		EventType:   EventOrderStatusChanged,
		EventID:     GenerateID("evt"),
		AggregateID: order.ID,
		OccurredAt:  GetCurrentTime(),
		Data: StatusChangeData{
			OrderID:     order.ID,
			OldStatus:   oldStatus,
			NewStatus:   order.Status,
			Source:      order.Source,
			DisplaySeq:  order.Seq,
			BusinessDay: order.BusinessDay,
		},
	}

	payload, err := json.Marshal(event)

	if err != nil {
		return nil, err
	}

	return &OutboxMessage{
		EventType:          event.EventType,
		Payload:            payload,
		AggregateType:      "order",
		AggregateID:        order.ID,
		CreatedAt:          GetCurrentTime(),
		ProcessingAttempts: 0,
		Status:             OutboxStatusPending,
	}, nil
}
