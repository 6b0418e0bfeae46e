package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Source is the channel an order originated from. It is immutable once
// set and drives both the display code prefix and the channel color used
// by the display surfaces.
type Source string

const (
	SourceTable   Source = "table"
	SourcePackage Source = "package"
	SourceOnline  Source = "online"
	SourceKiosk   Source = "kiosk"
)

// ValidSource reports whether s is one of the known order sources
func ValidSource(s Source) bool {
	switch s {
	case SourceTable, SourcePackage, SourceOnline, SourceKiosk:
		return true
	}
	return false
}

// Order represents an order in the system
type Order struct {
	ID          string          `db:"id" json:"id"`
	Source      Source          `db:"source" json:"source"`
	Status      Status          `db:"status" json:"status"`
	TableName   *string         `db:"table_name" json:"table_name,omitempty"`
	Seq         int             `db:"seq" json:"seq"`
	BusinessDay string          `db:"business_day" json:"business_day"`
	Total       decimal.Decimal `db:"total" json:"total"`
	Items       []OrderItem     `db:"-" json:"items,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// OrderItem represents a single line of an order. Items are immutable
// after creation; edits are an administrative action outside this system.
type OrderItem struct {
	ID        int64           `db:"id" json:"id"`
	OrderID   string          `db:"order_id" json:"order_id"`
	ProductID string          `db:"product_id" json:"product_id"`
	Name      string          `db:"name" json:"name"`
	Quantity  int             `db:"quantity" json:"quantity"`
	UnitPrice decimal.Decimal `db:"unit_price" json:"unit_price"`
	Note      *string         `db:"note" json:"note,omitempty"`
}

// NewOrder creates a new order in status pending. The display sequence is
// assigned by the repository at insert time, not here.
func NewOrder(source Source, tableName *string, items []OrderItem) (*Order, error) {
	if !ValidSource(source) {
		return nil, fmt.Errorf("invalid order source: %q", source)
	}

	if source == SourceTable && (tableName == nil || *tableName == "") {
		return nil, fmt.Errorf("table orders require a table name")
	}

	if source != SourceTable && tableName != nil {
		return nil, fmt.Errorf("table name is only valid for table orders")
	}

	if len(items) < 1 || len(items) > 50 {
		return nil, fmt.Errorf("order must have 1-50 items, got %d", len(items))
	}

	total := decimal.Zero
	for _, item := range items {
		if item.Quantity < 1 {
			return nil, fmt.Errorf("item %q quantity must be positive", item.Name)
		}
		if item.UnitPrice.IsNegative() {
			return nil, fmt.Errorf("item %q price must not be negative", item.Name)
		}
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	now := GetCurrentTime()

	return &Order{
		ID:          GenerateID("ord"),
		Source:      source,
		Status:      StatusPending,
		TableName:   tableName,
		BusinessDay: BusinessDay(now),
		Total:       total,
		Items:       items,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Elapsed returns how long the order has been open as of now. Always
// derived from CreatedAt; never cached on the order.
func (o *Order) Elapsed(now time.Time) time.Duration {
	return now.Sub(o.CreatedAt)
}

// Terminal reports whether the order is in a terminal status
func (o *Order) Terminal() bool {
	return o.Status == StatusServed || o.Status == StatusCancelled
}
