package models

import "time"

// StatusLog is one row of an order's transition history. Appended by the
// transition engine for every applied change; the customer track surface
// renders it as the order timeline.
type StatusLog struct {
	ID        int64     `db:"id" json:"id"`
	OrderID   string    `db:"order_id" json:"order_id"`
	OldStatus Status    `db:"old_status" json:"old_status"`
	NewStatus Status    `db:"new_status" json:"new_status"`
	ChangedBy string    `db:"changed_by" json:"changed_by"`
	ChangedAt time.Time `db:"changed_at" json:"changed_at"`
}
