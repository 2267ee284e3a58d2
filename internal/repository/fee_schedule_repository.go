package repository

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"reconciler/internal/models"
)

// FeeScheduleRepository - переопределения ставки комиссии по базовому активу (таблица fee_schedule)
type FeeScheduleRepository struct {
	db DBTX
}

// NewFeeScheduleRepository создает новый экземпляр репозитория
func NewFeeScheduleRepository(db DBTX) *FeeScheduleRepository {
	return &FeeScheduleRepository{db: db}
}

// GetAll возвращает все переопределения, упорядоченные по активу
func (r *FeeScheduleRepository) GetAll(ctx context.Context) ([]*models.FeeOverride, error) {
	query := `
		SELECT asset, rate, updated_at
		FROM fee_schedule
		ORDER BY asset`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	overrides := []*models.FeeOverride{}
	for rows.Next() {
		o := &models.FeeOverride{}
		if err := rows.Scan(&o.Asset, &o.Rate, &o.UpdatedAt); err != nil {
			return nil, err
		}
		overrides = append(overrides, o)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return overrides, nil
}

// Rates возвращает переопределения в виде map актив -> ставка
func (r *FeeScheduleRepository) Rates(ctx context.Context) (map[string]decimal.Decimal, error) {
	overrides, err := r.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	rates := make(map[string]decimal.Decimal, len(overrides))
	for _, o := range overrides {
		rates[strings.ToUpper(o.Asset)] = o.Rate
	}
	return rates, nil
}

// Set создаёт или заменяет ставку для актива
func (r *FeeScheduleRepository) Set(ctx context.Context, asset string, rate decimal.Decimal) error {
	query := `
		INSERT INTO fee_schedule (asset, rate, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (asset) DO UPDATE
		SET rate = EXCLUDED.rate, updated_at = EXCLUDED.updated_at`

	_, err := r.db.ExecContext(ctx, query, strings.ToUpper(asset), rate, time.Now())
	return err
}

// Delete удаляет переопределение. Отсутствие записи не ошибка.
func (r *FeeScheduleRepository) Delete(ctx context.Context, asset string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM fee_schedule WHERE asset = $1`, strings.ToUpper(asset))
	return err
}
