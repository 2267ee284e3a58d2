package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Balance - строка леджера пользователя по одному активу.
// Ключ (user_id, asset). Создаётся лениво, никогда не удаляется.
type Balance struct {
	UserID           string          `json:"user_id" db:"user_id"`
	Asset            string          `json:"asset" db:"asset"`
	Balance          decimal.Decimal `json:"balance" db:"balance"`
	AvailableBalance decimal.Decimal `json:"available_balance" db:"available_balance"`
	LockedBalance    decimal.Decimal `json:"locked_balance" db:"locked_balance"` // сверкой не меняется
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`
}

// BalanceDelta - одна нога изменения баланса
type BalanceDelta struct {
	UserID string          `json:"user_id"`
	Asset  string          `json:"asset"`
	Delta  decimal.Decimal `json:"delta"` // знак задаёт направление
}

// IsCredit - нога зачисления
func (d BalanceDelta) IsCredit() bool {
	return d.Delta.IsPositive()
}

// Settlement - экономический эффект исполненного ордера.
// Legs упорядочены: сначала зачисление, потом списание.
type Settlement struct {
	OrderID         string
	ExternalOrderID string
	UserID          string
	Side            OrderSide
	BaseAsset       string
	QuoteAsset      string
	FilledAmount    decimal.Decimal
	TotalValue      decimal.Decimal
	PlatformFee     decimal.Decimal
	Legs            []BalanceDelta
}

// LedgerFill - запись о применённом исполнении.
// Уникальна по external_order_id: исполнение проводится по леджеру один раз.
type LedgerFill struct {
	ID              int64           `json:"id" db:"id"`
	ExternalOrderID string          `json:"external_order_id" db:"external_order_id"`
	OrderID         string          `json:"order_id" db:"order_id"`
	UserID          string          `json:"user_id" db:"user_id"`
	Side            OrderSide       `json:"side" db:"side"`
	BaseAsset       string          `json:"base_asset" db:"base_asset"`
	QuoteAsset      string          `json:"quote_asset" db:"quote_asset"`
	FilledAmount    decimal.Decimal `json:"filled_amount" db:"filled_amount"`
	TotalValue      decimal.Decimal `json:"total_value" db:"total_value"`
	PlatformFee     decimal.Decimal `json:"platform_fee" db:"platform_fee"`
	AppliedAt       time.Time       `json:"applied_at" db:"applied_at"`
}

// FeeOverride - ставка комиссии платформы для базового актива (таблица fee_schedule)
type FeeOverride struct {
	Asset     string          `json:"asset" db:"asset"`
	Rate      decimal.Decimal `json:"rate" db:"rate"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// ApplyResult - итог транзакции сверки одного ордера
type ApplyResult struct {
	OrderUpdated    bool           // ордер был в PENDING и обновлён
	Settled         bool           // ноги проведены по леджеру
	AlreadySettled  bool           // исполнение уже было проведено ранее, ноги пропущены
	NegativeCreates []BalanceDelta // строки баланса, созданные с отрицательным значением
}
