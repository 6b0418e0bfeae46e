package displaycode

import (
	"fmt"

	"github.com/ocakbasi/order-sync/internal/models"
)

// Resolve derives the human-facing display code for an order from its
// source channel and assigned sequence. Stable: the same order always
// resolves to the same code. Codes may collide across sources on the
// same day (a table "5" and online "W5" can coexist) because surfaces
// also render the source as color and icon; within one source and
// business day the sequence assignment keeps codes unique.
func Resolve(order *models.Order) string {
	switch order.Source {
	case models.SourceTable:
		if order.TableName != nil && *order.TableName != "" {
			return *order.TableName
		}
		return fmt.Sprintf("T%d", order.Seq)
	case models.SourcePackage:
		return fmt.Sprintf("P%d", order.Seq)
	case models.SourceKiosk:
		return fmt.Sprintf("K%d", order.Seq)
	case models.SourceOnline:
		return fmt.Sprintf("W%d", order.Seq)
	default:
		// Unknown sources cannot reach here through the store, but a
		// bare sequence is still renderable
		return fmt.Sprintf("%d", order.Seq)
	}
}

// ChannelColor returns the accent color every surface uses for a source
func ChannelColor(source models.Source) string {
	switch source {
	case models.SourceTable:
		return "#2e7d32"
	case models.SourcePackage:
		return "#ef6c00"
	case models.SourceOnline:
		return "#1565c0"
	case models.SourceKiosk:
		return "#6a1b9a"
	default:
		return "#616161"
	}
}
