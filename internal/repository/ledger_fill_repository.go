package repository

import (
	"context"
	"database/sql"
	"errors"

	"reconciler/internal/models"
)

// LedgerFillRepository - работа с таблицей ledger_fills.
// Уникальность external_order_id гарантирует однократное проведение исполнения.
type LedgerFillRepository struct {
	db DBTX
}

// NewLedgerFillRepository создает новый экземпляр репозитория
func NewLedgerFillRepository(db DBTX) *LedgerFillRepository {
	return &LedgerFillRepository{db: db}
}

// Insert записывает исполнение. Возвращает false, если оно уже было проведено.
func (r *LedgerFillRepository) Insert(ctx context.Context, fill *models.LedgerFill) (bool, error) {
	query := `
		INSERT INTO ledger_fills (external_order_id, order_id, user_id, side, base_asset, quote_asset,
			filled_amount, total_value, platform_fee, applied_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (external_order_id) DO NOTHING
		RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		fill.ExternalOrderID,
		fill.OrderID,
		fill.UserID,
		fill.Side,
		fill.BaseAsset,
		fill.QuoteAsset,
		fill.FilledAmount,
		fill.TotalValue,
		fill.PlatformFee,
		fill.AppliedAt,
	).Scan(&fill.ID)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}
