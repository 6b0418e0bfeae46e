package surfaces

import (
	"context"
	"time"

	"github.com/ocakbasi/order-sync/internal/displaycode"
	"github.com/ocakbasi/order-sync/internal/escalation"
	"github.com/ocakbasi/order-sync/internal/models"
	"github.com/ocakbasi/order-sync/internal/repository"
)

// OrderStore is the store boundary a surface sees. The HTTP client
// satisfies it in production; tests use an in-memory fake. Surfaces hold
// only possibly-stale snapshots fetched through it and never treat a
// local copy as authoritative.
type OrderStore interface {
	ListOrders(ctx context.Context, filter repository.OrderFilter) ([]*models.Order, error)
	ApplyTransition(ctx context.Context, orderID string, requested models.Status, changedBy string) (*models.Order, error)
	PrintTicket(ctx context.Context, orderID string) error
}

// Row is one renderable line of a surface: the order plus everything
// derived for presentation. Tier is computed from the caller's clock at
// build time and must be rebuilt on every render.
type Row struct {
	Order *models.Order
	Code  string
	Color string
	Tier  escalation.Tier
}

// buildRows derives presentation rows from a snapshot
func buildRows(orders []*models.Order, thresholds escalation.Thresholds, now time.Time) []Row {
	rows := make([]Row, 0, len(orders))

	for _, order := range orders {
		rows = append(rows, Row{
			Order: order,
			Code:  displaycode.Resolve(order),
			Color: displaycode.ChannelColor(order.Source),
			Tier:  thresholds.Tier(order.CreatedAt, now),
		})
	}

	return rows
}
