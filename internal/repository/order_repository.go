package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ocakbasi/order-sync/internal/database"
	"github.com/ocakbasi/order-sync/internal/models"
	"github.com/ocakbasi/order-sync/pkg/logger"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrDatabase = errors.New("database error")
)

// OrderFilter selects the subset of orders a caller cares about. Zero
// values mean "no constraint" for that field.
type OrderFilter struct {
	StatusIn []models.Status
	SourceIn []models.Source
	IDEquals string
}

// OrderRepository handles database operations for orders
type OrderRepository struct {
	db     *database.Database
	logger logger.Logger
}

// NewOrderRepository creates a new OrderRepository
func NewOrderRepository(db *database.Database, logger logger.Logger) *OrderRepository {
	return &OrderRepository{
		db:     db,
		logger: logger,
	}
}

// BeginTx starts a new database transaction
func (r *OrderRepository) BeginTx(ctx context.Context) (*sql.Tx, error) {
	tx, err := r.db.DB.BeginTx(ctx, nil)

	if err != nil {
		r.logger.Error("Failed to begin transaction", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return tx, nil
}

// NextSeqInTx assigns the next display sequence for (source, business day)
// inside a transaction. The upsert keeps the counter row per scope, so
// two concurrent creations can never hand out the same sequence.
func (r *OrderRepository) NextSeqInTx(tx *sql.Tx, source models.Source, businessDay string) (int, error) {
	query := `
		INSERT INTO source_sequences (source, business_day, last_seq)
		VALUES ($1, $2, 1)
		ON CONFLICT (source, business_day)
		DO UPDATE SET last_seq = source_sequences.last_seq + 1
		RETURNING last_seq
	`

	var seq int
	err := tx.QueryRow(query, source, businessDay).Scan(&seq)

	if err != nil {
		return 0, fmt.Errorf("failed to assign display sequence: %w", err)
	}

	return seq, nil
}

// CreateInTx inserts a new order and its items within a transaction. The
// order's Seq must already be assigned via NextSeqInTx.
func (r *OrderRepository) CreateInTx(tx *sql.Tx, order *models.Order) error {
	query := `
		INSERT INTO orders (id, source, status, table_name, seq, business_day, total, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := tx.Exec(
		query,
		order.ID,
		order.Source,
		order.Status,
		order.TableName,
		order.Seq,
		order.BusinessDay,
		order.Total,
		order.CreatedAt,
		order.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create order in transaction: %w", err)
	}

	itemQuery := `
		INSERT INTO order_items (order_id, product_id, name, quantity, unit_price, note)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID

		if _, err := tx.Exec(itemQuery, item.OrderID, item.ProductID, item.Name, item.Quantity, item.UnitPrice, item.Note); err != nil {
			return fmt.Errorf("failed to create order item in transaction: %w", err)
		}
	}

	return nil
}

// GetByID retrieves an order with its items by ID
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	query := `
		SELECT id, source, status, table_name, seq, business_day, total, created_at, updated_at
		FROM orders
		WHERE id = $1
	`

	var order models.Order
	err := r.db.DB.GetContext(ctx, &order, query, id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to get order by ID", "error", err, "orderID", id)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	items, err := r.getItems(ctx, id)

	if err != nil {
		return nil, err
	}

	order.Items = items
	return &order, nil
}

// getItems loads the item lines of an order
func (r *OrderRepository) getItems(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	query := `
		SELECT id, order_id, product_id, name, quantity, unit_price, note
		FROM order_items
		WHERE order_id = $1
		ORDER BY id ASC
	`

	var items []models.OrderItem
	err := r.db.DB.SelectContext(ctx, &items, query, orderID)

	if err != nil {
		r.logger.Error("Failed to get order items", "error", err, "orderID", orderID)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return items, nil
}

// List retrieves orders matching the given filter, oldest first so the
// kitchen works the queue in creation order
func (r *OrderRepository) List(ctx context.Context, filter OrderFilter) ([]*models.Order, error) {
	query := `
		SELECT id, source, status, table_name, seq, business_day, total, created_at, updated_at
		FROM orders
	`

	var conditions []string
	var args []interface{}

	if filter.IDEquals != "" {
		args = append(args, filter.IDEquals)
		conditions = append(conditions, fmt.Sprintf("id = $%d", len(args)))
	}

	if len(filter.StatusIn) > 0 {
		placeholders := make([]string, 0, len(filter.StatusIn))
		for _, s := range filter.StatusIn {
			args = append(args, s)
			placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ", ")))
	}

	if len(filter.SourceIn) > 0 {
		placeholders := make([]string, 0, len(filter.SourceIn))
		for _, s := range filter.SourceIn {
			args = append(args, s)
			placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
		}
		conditions = append(conditions, fmt.Sprintf("source IN (%s)", strings.Join(placeholders, ", ")))
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY created_at ASC"

	var orders []*models.Order
	err := r.db.DB.SelectContext(ctx, &orders, query, args...)

	if err != nil {
		r.logger.Error("Failed to list orders", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return orders, nil
}

// UpdateStatusInTx updates an order's status within a transaction
func (r *OrderRepository) UpdateStatusInTx(tx *sql.Tx, order *models.Order) error {
	query := `
		UPDATE orders
		SET status = $1, updated_at = $2
		WHERE id = $3
	`

	result, err := tx.Exec(query, order.Status, models.GetCurrentTime(), order.ID)

	if err != nil {
		return fmt.Errorf("failed to update order status in transaction: %w", err)
	}

	rowsAffected, err := result.RowsAffected()

	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// LogStatusInTx appends a status log row within a transaction
func (r *OrderRepository) LogStatusInTx(tx *sql.Tx, log *models.StatusLog) error {
	query := `
		INSERT INTO status_log (order_id, old_status, new_status, changed_by, changed_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := tx.QueryRow(query, log.OrderID, log.OldStatus, log.NewStatus, log.ChangedBy, log.ChangedAt).Scan(&log.ID)

	if err != nil {
		return fmt.Errorf("failed to append status log in transaction: %w", err)
	}

	return nil
}

// GetStatusHistory returns the full transition history of an order,
// oldest first
func (r *OrderRepository) GetStatusHistory(ctx context.Context, orderID string) ([]*models.StatusLog, error) {
	query := `
		SELECT id, order_id, old_status, new_status, changed_by, changed_at
		FROM status_log
		WHERE order_id = $1
		ORDER BY changed_at ASC, id ASC
	`

	var history []*models.StatusLog
	err := r.db.DB.SelectContext(ctx, &history, query, orderID)

	if err != nil {
		r.logger.Error("Failed to get status history", "error", err, "orderID", orderID)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return history, nil
}

// Count counts the total number of orders
func (r *OrderRepository) Count(ctx context.Context) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM orders`

	err := r.db.DB.GetContext(ctx, &count, query)

	if err != nil {
		r.logger.Error("Failed to count orders", "error", err)
		return 0, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return count, nil
}
