package reconcile

import "reconciler/internal/models"

// Сырые статусы площадки, имеющие отдельный смысл
const (
	VenueStatusFilled    = "FILLED"
	VenueStatusCancelled = "CANCELLED"
	VenueStatusExpired   = "EXPIRED"
	VenueStatusFailed    = "FAILED"
)

// MapStatus переводит статус площадки в локальный.
// Сравнение регистрозависимое; всё нераспознанное остаётся PENDING.
func MapStatus(venueStatus string) models.OrderStatus {
	switch venueStatus {
	case VenueStatusFilled:
		return models.OrderStatusCompleted
	case VenueStatusCancelled, VenueStatusExpired:
		return models.OrderStatusCancelled
	case VenueStatusFailed:
		return models.OrderStatusFailed
	default:
		return models.OrderStatusPending
	}
}
