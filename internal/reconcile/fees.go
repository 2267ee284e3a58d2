package reconcile

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultFeeRate - ставка платформы по умолчанию, 0.5%
var DefaultFeeRate = decimal.RequireFromString("0.005")

// DefaultFeeScale - знаков после запятой в комиссии
const DefaultFeeScale int32 = 8

// FeeSchedule - ставка комиссии платформы по базовому активу.
// Неизменяемый: WithOverrides возвращает новое расписание.
type FeeSchedule struct {
	defaultRate decimal.Decimal
	overrides   map[string]decimal.Decimal
	scale       int32
}

// NewFeeSchedule создаёт расписание; ключи overrides приводятся к верхнему регистру
func NewFeeSchedule(defaultRate decimal.Decimal, overrides map[string]decimal.Decimal, scale int32) *FeeSchedule {
	fs := &FeeSchedule{
		defaultRate: defaultRate,
		overrides:   make(map[string]decimal.Decimal, len(overrides)),
		scale:       scale,
	}
	for asset, rate := range overrides {
		fs.overrides[strings.ToUpper(asset)] = rate
	}
	return fs
}

// DefaultFeeSchedule - 0.5% для всех активов
func DefaultFeeSchedule() *FeeSchedule {
	return NewFeeSchedule(DefaultFeeRate, nil, DefaultFeeScale)
}

// WithOverrides возвращает копию расписания, где overrides перекрывают текущие значения
func (fs *FeeSchedule) WithOverrides(overrides map[string]decimal.Decimal) *FeeSchedule {
	merged := make(map[string]decimal.Decimal, len(fs.overrides)+len(overrides))
	for asset, rate := range fs.overrides {
		merged[asset] = rate
	}
	for asset, rate := range overrides {
		merged[strings.ToUpper(asset)] = rate
	}
	return &FeeSchedule{defaultRate: fs.defaultRate, overrides: merged, scale: fs.scale}
}

// Rate возвращает ставку для базового актива
func (fs *FeeSchedule) Rate(asset string) decimal.Decimal {
	if rate, ok := fs.overrides[strings.ToUpper(asset)]; ok {
		return rate
	}
	return fs.defaultRate
}

// Fee = value * rate(asset), округление half away from zero до scale знаков
func (fs *FeeSchedule) Fee(asset string, value decimal.Decimal) decimal.Decimal {
	return value.Mul(fs.Rate(asset)).Round(fs.scale)
}
