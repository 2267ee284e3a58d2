package venue

import (
	"bytes"
	"fmt"
	"strconv"

	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// flexDecimal принимает число как JSON-строку, JSON-число, "" или null
// Set = true, если поле пришло с непустым значением
type flexDecimal struct {
	decimal.Decimal
	Set bool
}

func (d *flexDecimal) UnmarshalJSON(data []byte) error {
	d.Set = false
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		d.Decimal = decimal.Zero
		return nil
	}

	s := string(data)
	if data[0] == '"' {
		unquoted, err := strconv.Unquote(s)
		if err != nil {
			return fmt.Errorf("invalid decimal string %s: %w", s, err)
		}
		s = unquoted
	}

	if s == "" {
		d.Decimal = decimal.Zero
		return nil
	}

	v, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("invalid decimal %q: %w", s, err)
	}
	d.Decimal = v
	d.Set = true
	return nil
}

// or возвращает d, если значение пришло, иначе fallback
func (d flexDecimal) or(fallback flexDecimal) flexDecimal {
	if d.Set {
		return d
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// rawOrder - поля ордера в ответе площадки
type rawOrder struct {
	OrderID            string      `json:"order_id"`
	ProductID          string      `json:"product_id"`
	Status             string      `json:"status"`
	FilledSize         flexDecimal `json:"filled_size"`
	FilledValue        flexDecimal `json:"filled_value"`
	AverageFilledPrice flexDecimal `json:"average_filled_price"`
	TotalFees          flexDecimal `json:"total_fees"`
}

// orderEnvelope - форма ответа {"order": {...}}
type orderEnvelope struct {
	Order jsoniter.RawMessage `json:"order"`
}

// NormalizeOrder разбирает тело ответа площадки в OrderStatus.
// Ордер может лежать под ключом "order", на верхнем уровне или частично
// и там и там: каждое поле берётся из "order", а при отсутствии с верхнего уровня.
func NormalizeOrder(body []byte) (*OrderStatus, error) {
	var env orderEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	top := &rawOrder{}
	if err := json.Unmarshal(body, top); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	nested := &rawOrder{}
	if len(env.Order) > 0 && !bytes.Equal(bytes.TrimSpace(env.Order), []byte("null")) {
		if err := json.Unmarshal(env.Order, nested); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
	}

	status := firstNonEmpty(nested.Status, top.Status)
	if status == "" {
		return nil, fmt.Errorf("%w: missing order status", ErrMalformedPayload)
	}

	return &OrderStatus{
		OrderID:            firstNonEmpty(nested.OrderID, top.OrderID),
		ProductID:          firstNonEmpty(nested.ProductID, top.ProductID),
		Status:             status,
		FilledSize:         nested.FilledSize.or(top.FilledSize).Decimal,
		FilledValue:        nested.FilledValue.or(top.FilledValue).Decimal,
		AverageFilledPrice: nested.AverageFilledPrice.or(top.AverageFilledPrice).Decimal,
		TotalFees:          nested.TotalFees.or(top.TotalFees).Decimal,
	}, nil
}
