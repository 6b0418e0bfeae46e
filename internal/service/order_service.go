package service

import (
	"context"
	"fmt"

	"github.com/ocakbasi/order-sync/internal/models"
	"github.com/ocakbasi/order-sync/internal/repository"
	apperrors "github.com/ocakbasi/order-sync/pkg/errors"
	"github.com/ocakbasi/order-sync/pkg/logger"
)

// OrderService owns the order lifecycle. It is the only writer of order
// status; display surfaces are strictly downstream readers.
type OrderService struct {
	orderRepo  *repository.OrderRepository
	outboxRepo *repository.OutboxRepository
	printer    TicketPrinter
	logger     logger.Logger
}

// NewOrderService creates a new OrderService
func NewOrderService(
	orderRepo *repository.OrderRepository,
	outboxRepo *repository.OutboxRepository,
	printer TicketPrinter,
	logger logger.Logger,
) *OrderService {
	return &OrderService{
		orderRepo:  orderRepo,
		outboxRepo: outboxRepo,
		printer:    printer,
		logger:     logger,
	}
}

// CreateOrder creates a new pending order, assigns its display sequence
// for (source, business day), and publishes an outbox message, all in one
// transaction.
func (s *OrderService) CreateOrder(
	ctx context.Context,
	source models.Source,
	tableName *string,
	items []models.OrderItem,
) (*models.Order, error) {
	order, err := models.NewOrder(source, tableName, items)

	if err != nil {
		return nil, apperrors.NewInvalidInputError(err.Error())
	}

	outboxMsg, err := models.NewOrderCreatedEvent(order)

	if err != nil {
		s.logger.Error("Failed to create outbox message", "error", err)
		return nil, fmt.Errorf("failed to create outbox message: %w", err)
	}

	tx, err := s.orderRepo.BeginTx(ctx)

	if err != nil {
		return nil, err
	}

	// Rollback transaction if any error occurs
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Error("Failed to rollback transaction", "error", rbErr)
			}
		}
	}()

	seq, err := s.orderRepo.NextSeqInTx(tx, order.Source, order.BusinessDay)

	if err != nil {
		return nil, err
	}

	order.Seq = seq

	if err = s.orderRepo.CreateInTx(tx, order); err != nil {
		return nil, err
	}

	if err = s.outboxRepo.CreateInTx(tx, outboxMsg); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		s.logger.Error("Failed to commit transaction", "error", err)
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Info("Order created",
		"orderID", order.ID,
		"source", order.Source,
		"seq", order.Seq,
		"outboxID", outboxMsg.ID)
	return order, nil
}

// ApplyTransition moves an order to the requested status. Disallowed
// edges are rejected with ErrInvalidTransition and leave the stored
// status untouched. Re-requesting the current status succeeds as a no-op,
// so duplicate taps and retried network calls are harmless. Applied
// transitions append to the status log and queue an outbox event in the
// same transaction.
func (s *OrderService) ApplyTransition(
	ctx context.Context,
	orderID string,
	requested models.Status,
	changedBy string,
) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)

	if err != nil {
		return nil, err
	}

	oldStatus := order.Status
	next, changed, err := models.NextStatus(order.Status, requested)

	if err != nil {
		s.logger.Warn("Rejected status transition",
			"orderID", orderID,
			"from", oldStatus,
			"requested", requested,
			"error", err)
		return nil, err
	}

	if !changed {
		// Idempotent retry; nothing to write
		s.logger.Debug("Transition is a no-op", "orderID", orderID, "status", requested)
		return order, nil
	}

	order.Status = next

	outboxMsg, err := models.NewOrderStatusChangedEvent(order, oldStatus)

	if err != nil {
		s.logger.Error("Failed to create outbox message", "error", err)
		return nil, fmt.Errorf("failed to create outbox message: %w", err)
	}

	tx, err := s.orderRepo.BeginTx(ctx)

	if err != nil {
		return nil, err
	}

	// Rollback transaction in case of error
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Error("Failed to rollback transaction", "error", rbErr)
			}
		}
	}()

	if err = s.orderRepo.UpdateStatusInTx(tx, order); err != nil {
		return nil, err
	}

	statusLog := &models.StatusLog{
		OrderID:   order.ID,
		OldStatus: oldStatus,
		NewStatus: order.Status,
		ChangedBy: changedBy,
		ChangedAt: models.GetCurrentTime(),
	}

	if err = s.orderRepo.LogStatusInTx(tx, statusLog); err != nil {
		return nil, err
	}

	if err = s.outboxRepo.CreateInTx(tx, outboxMsg); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		s.logger.Error("Failed to commit transaction", "error", err)
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Info("Order status updated",
		"orderID", order.ID,
		"oldStatus", oldStatus,
		"newStatus", order.Status,
		"changedBy", changedBy,
		"outboxID", outboxMsg.ID)

	return order, nil
}

// PrintTicket prints a physical ticket for an order. Printing is
// independent of the lifecycle: a failure here is reported to the caller
// but never blocks or rolls back a status change.
func (s *OrderService) PrintTicket(ctx context.Context, orderID string) error {
	order, err := s.orderRepo.GetByID(ctx, orderID)

	if err != nil {
		return err
	}

	if err := s.printer.Print(ctx, order); err != nil {
		s.logger.Warn("Ticket print failed", "orderID", orderID, "error", err)
		return apperrors.NewPrintFailedError(fmt.Sprintf("print failed for order %s: %v", orderID, err))
	}

	s.logger.Info("Ticket printed", "orderID", orderID)
	return nil
}

// GetOrder retrieves an order by ID
func (s *OrderService) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	return s.orderRepo.GetByID(ctx, id)
}

// ListOrders retrieves orders matching the filter
func (s *OrderService) ListOrders(ctx context.Context, filter repository.OrderFilter) ([]*models.Order, error) {
	return s.orderRepo.List(ctx, filter)
}

// GetStatusHistory returns the transition history of an order
func (s *OrderService) GetStatusHistory(ctx context.Context, orderID string) ([]*models.StatusLog, error) {
	return s.orderRepo.GetStatusHistory(ctx, orderID)
}
