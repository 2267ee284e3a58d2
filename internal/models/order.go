package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus - локальный статус ордера
type OrderStatus string

// Статусы ордера. Терминальные: COMPLETED, FAILED, CANCELLED
const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusCompleted OrderStatus = "COMPLETED"
	OrderStatusFailed    OrderStatus = "FAILED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// IsTerminal - ордер больше не сверяется
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusCompleted, OrderStatusFailed, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// OrderSide - направление сделки относительно базового актива
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// Order - локальная запись ордера, отправленного на площадку
type Order struct {
	ID              string          `json:"id" db:"id"`
	UserID          string          `json:"user_id" db:"user_id"`
	ExternalOrderID *string         `json:"external_order_id,omitempty" db:"external_order_id"`
	BaseAsset       string          `json:"base_asset" db:"base_asset"`   // BTC в паре BTC-USD
	QuoteAsset      string          `json:"quote_asset" db:"quote_asset"` // USD в паре BTC-USD
	Side            OrderSide       `json:"side" db:"side"`
	Amount          decimal.Decimal `json:"amount" db:"amount"` // запрошенный объём

	// Результаты исполнения, заполняются сверкой
	FilledAmount decimal.NullDecimal `json:"filled_amount" db:"filled_amount"`
	Price        decimal.NullDecimal `json:"price" db:"price"`             // средняя цена исполнения
	TotalValue   decimal.NullDecimal `json:"total_value" db:"total_value"` // номинал в котируемой валюте
	PlatformFee  decimal.NullDecimal `json:"platform_fee" db:"platform_fee"`
	VenueFee     decimal.NullDecimal `json:"venue_fee" db:"venue_fee"`

	Status           OrderStatus `json:"status" db:"status"`
	VenueStatus      string      `json:"venue_status,omitempty" db:"venue_status"` // последний сырой статус площадки
	CreatedAt        time.Time   `json:"created_at" db:"created_at"`
	CompletedAt      *time.Time  `json:"completed_at,omitempty" db:"completed_at"`
	LastReconciledAt *time.Time  `json:"last_reconciled_at,omitempty" db:"last_reconciled_at"`
}

// ExternalID возвращает идентификатор на площадке или пустую строку
func (o *Order) ExternalID() string {
	if o.ExternalOrderID == nil {
		return ""
	}
	return *o.ExternalOrderID
}

// Symbol - пара в формате площадки, например BTC-USD
func (o *Order) Symbol() string {
	return o.BaseAsset + "-" + o.QuoteAsset
}

// OrderUpdate - результат сверки одного ордера, записываемый одним UPDATE.
//
// Если Fill == nil, обновляются только VenueStatus и ReconciledAt:
// поля исполнения не трогаются, ордер остаётся PENDING.
type OrderUpdate struct {
	OrderID      string
	Status       OrderStatus
	VenueStatus  string
	Fill         *Fill
	CompletedAt  *time.Time
	ReconciledAt time.Time
}

// Fill - нормализованные результаты исполнения
type Fill struct {
	FilledAmount decimal.Decimal
	Price        decimal.Decimal
	TotalValue   decimal.Decimal
	PlatformFee  decimal.Decimal
	VenueFee     decimal.Decimal
}
