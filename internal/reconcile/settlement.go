package reconcile

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"reconciler/internal/models"
)

// ErrUnknownSide - у ордера сторона не BUY и не SELL
var ErrUnknownSide = errors.New("unknown order side")

// ComputeSettlement считает ноги баланса для исполненного ордера.
//
//	BUY:  base += filled; quote -= value + fee
//	SELL: quote += value - fee; base -= filled
//
// Зачисление всегда идёт первым.
func ComputeSettlement(order *models.Order, filled, value, fee decimal.Decimal) (*models.Settlement, error) {
	s := &models.Settlement{
		OrderID:         order.ID,
		ExternalOrderID: order.ExternalID(),
		UserID:          order.UserID,
		Side:            order.Side,
		BaseAsset:       order.BaseAsset,
		QuoteAsset:      order.QuoteAsset,
		FilledAmount:    filled,
		TotalValue:      value,
		PlatformFee:     fee,
	}

	switch order.Side {
	case models.OrderSideBuy:
		s.Legs = []models.BalanceDelta{
			{UserID: order.UserID, Asset: order.BaseAsset, Delta: filled},
			{UserID: order.UserID, Asset: order.QuoteAsset, Delta: value.Add(fee).Neg()},
		}
	case models.OrderSideSell:
		s.Legs = []models.BalanceDelta{
			{UserID: order.UserID, Asset: order.QuoteAsset, Delta: value.Sub(fee)},
			{UserID: order.UserID, Asset: order.BaseAsset, Delta: filled.Neg()},
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSide, order.Side)
	}

	return s, nil
}

// FillPrice - средняя цена: value / filled, если оба положительны, иначе цена площадки
func FillPrice(filled, value, venuePrice decimal.Decimal) decimal.Decimal {
	if filled.IsPositive() && value.IsPositive() {
		return value.Div(filled)
	}
	return venuePrice
}
