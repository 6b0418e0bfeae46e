package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/ocakbasi/order-sync/internal/models"
	"github.com/ocakbasi/order-sync/pkg/logger"
)

// TicketPrinter sends a kitchen ticket to a physical printer. Fire and
// forget: the caller treats failures as warnings, never as reasons to
// touch order state.
type TicketPrinter interface {
	Print(ctx context.Context, order *models.Order) error
}

// LogPrinter writes tickets to the log. Stands in for a real printer
// driver in development and tests.
type LogPrinter struct {
	logger logger.Logger
}

// NewLogPrinter creates a LogPrinter
func NewLogPrinter(logger logger.Logger) *LogPrinter {
	return &LogPrinter{logger: logger}
}

// Print renders the ticket and logs it
func (p *LogPrinter) Print(ctx context.Context, order *models.Order) error {
	var b strings.Builder

	fmt.Fprintf(&b, "order %s (%s)", order.ID, order.Source)
	for _, item := range order.Items {
		fmt.Fprintf(&b, " | %dx %s", item.Quantity, item.Name)
		if item.Note != nil && *item.Note != "" {
			fmt.Fprintf(&b, " (%s)", *item.Note)
		}
	}

	p.logger.Info("TICKET", "ticket", b.String())
	return nil
}
