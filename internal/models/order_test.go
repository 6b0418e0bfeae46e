package models

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func testItems() []OrderItem {
	return []OrderItem{
		{ProductID: "p-1", Name: "Adana Dürüm", Quantity: 2, UnitPrice: decimal.NewFromFloat(145.50)},
		{ProductID: "p-2", Name: "Ayran", Quantity: 1, UnitPrice: decimal.NewFromFloat(25.00)},
	}
}

func strptr(s string) *string { return &s }

func TestNewOrderTableRequiresTableName(t *testing.T) {
	if _, err := NewOrder(SourceTable, nil, testItems()); err == nil {
		t.Error("table order without table name should be rejected")
	}

	if _, err := NewOrder(SourceTable, strptr(""), testItems()); err == nil {
		t.Error("table order with empty table name should be rejected")
	}

	order, err := NewOrder(SourceTable, strptr("Bahçe 3"), testItems())

	if err != nil {
		t.Fatalf("valid table order rejected: %v", err)
	}

	if order.TableName == nil || *order.TableName != "Bahçe 3" {
		t.Errorf("table name not carried: %v", order.TableName)
	}
}

func TestNewOrderTableNameOnlyForTables(t *testing.T) {
	if _, err := NewOrder(SourceKiosk, strptr("5"), testItems()); err == nil {
		t.Error("kiosk order with table name should be rejected")
	}
}

func TestNewOrderDefaults(t *testing.T) {
	order, err := NewOrder(SourceOnline, nil, testItems())

	if err != nil {
		t.Fatalf("NewOrder failed: %v", err)
	}

	if order.Status != StatusPending {
		t.Errorf("new order status = %s, want pending", order.Status)
	}

	if !strings.HasPrefix(order.ID, "ord-") {
		t.Errorf("order ID %q missing prefix", order.ID)
	}

	if order.BusinessDay == "" {
		t.Error("business day not assigned")
	}

	want := decimal.NewFromFloat(316.00)

	if !order.Total.Equal(want) {
		t.Errorf("total = %s, want %s", order.Total, want)
	}
}

func TestNewOrderItemValidation(t *testing.T) {
	if _, err := NewOrder(SourceKiosk, nil, nil); err == nil {
		t.Error("order without items should be rejected")
	}

	many := make([]OrderItem, 51)
	for i := range many {
		many[i] = OrderItem{Name: "x", Quantity: 1, UnitPrice: decimal.NewFromInt(1)}
	}

	if _, err := NewOrder(SourceKiosk, nil, many); err == nil {
		t.Error("order with 51 items should be rejected")
	}

	zeroQty := []OrderItem{{Name: "x", Quantity: 0, UnitPrice: decimal.NewFromInt(1)}}

	if _, err := NewOrder(SourceKiosk, nil, zeroQty); err == nil {
		t.Error("zero quantity item should be rejected")
	}

	negPrice := []OrderItem{{Name: "x", Quantity: 1, UnitPrice: decimal.NewFromInt(-1)}}

	if _, err := NewOrder(SourceKiosk, nil, negPrice); err == nil {
		t.Error("negative price item should be rejected")
	}
}

func TestNewOrderUnknownSource(t *testing.T) {
	if _, err := NewOrder(Source("drive_thru"), nil, testItems()); err == nil {
		t.Error("unknown source should be rejected")
	}
}
