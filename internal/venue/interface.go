// Package venue - клиенты торговых площадок для сверки исполнения ордеров.
package venue

import (
	"context"
	"errors"
	"net/http"

	"github.com/shopspring/decimal"
)

// Venue - площадка, у которой можно узнать состояние ордера
type Venue interface {
	// Name возвращает имя площадки
	Name() string

	// GetOrder возвращает нормализованное состояние ордера по внешнему идентификатору
	GetOrder(ctx context.Context, externalOrderID string) (*OrderStatus, error)

	// Close закрывает соединения
	Close() error
}

// OrderStatus - каноническое состояние ордера на площадке.
// Отсутствующие числовые поля равны нулю.
type OrderStatus struct {
	OrderID            string          `json:"order_id"`
	ProductID          string          `json:"product_id"`
	Status             string          `json:"status"` // сырой статус площадки: FILLED, OPEN, CANCELLED, ...
	FilledSize         decimal.Decimal `json:"filled_size"`
	FilledValue        decimal.Decimal `json:"filled_value"`
	AverageFilledPrice decimal.Decimal `json:"average_filled_price"`
	TotalFees          decimal.Decimal `json:"total_fees"`
}

// Ошибки площадки
var (
	ErrOrderNotFound    = errors.New("order not found on venue")
	ErrMalformedPayload = errors.New("malformed venue payload")
)

// VenueError - ошибка от площадки
type VenueError struct {
	Venue      string
	StatusCode int    // HTTP статус, 0 для сетевых ошибок
	Code       string // код ошибки площадки
	Message    string
	Original   error
}

func (e *VenueError) Error() string {
	if e.Code != "" {
		return e.Venue + ": " + e.Code + ": " + e.Message
	}
	return e.Venue + ": " + e.Message
}

// Unwrap возвращает оригинальную ошибку для поддержки errors.Is() и errors.As()
func (e *VenueError) Unwrap() error {
	return e.Original
}

// Retryable: сетевые ошибки, 429 и 5xx повторяются, остальные 4xx нет
func (e *VenueError) Retryable() bool {
	if e.StatusCode == 0 {
		return true
	}
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}
