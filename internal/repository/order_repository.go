package repository

import (
	"context"
	"database/sql"
	"errors"

	"reconciler/internal/models"
)

// Ошибки репозитория ордеров
var (
	ErrOrderNotFound = errors.New("order not found")
)

const orderColumns = `id, user_id, external_order_id, base_asset, quote_asset, side, amount,
	filled_amount, price, total_value, platform_fee, venue_fee,
	status, venue_status, created_at, completed_at, last_reconciled_at`

// OrderRepository - работа с таблицей orders
type OrderRepository struct {
	db DBTX
}

// NewOrderRepository создает новый экземпляр репозитория
func NewOrderRepository(db DBTX) *OrderRepository {
	return &OrderRepository{db: db}
}

// GetPendingWithExternalID возвращает ордера в статусе PENDING, уже отправленные на площадку.
// Порядок детерминирован: created_at, затем id.
func (r *OrderRepository) GetPendingWithExternalID(ctx context.Context) ([]*models.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE status = $1 AND external_order_id IS NOT NULL
		ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, models.OrderStatusPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return orders, nil
}

// GetByID возвращает ордер по ID
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE id = $1`

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	return order, nil
}

// ApplyUpdate записывает результат сверки одним UPDATE.
//
// Обновление условное (status = 'PENDING'): поля исполнения пишутся один раз.
// Возвращает false, если ордер уже не в PENDING.
func (r *OrderRepository) ApplyUpdate(ctx context.Context, upd models.OrderUpdate) (bool, error) {
	var (
		result sql.Result
		err    error
	)

	if upd.Fill == nil {
		query := `
			UPDATE orders
			SET venue_status = $2, last_reconciled_at = $3
			WHERE id = $1 AND status = 'PENDING'`

		result, err = r.db.ExecContext(ctx, query, upd.OrderID, upd.VenueStatus, upd.ReconciledAt)
	} else {
		query := `
			UPDATE orders
			SET filled_amount = $2, price = $3, total_value = $4, platform_fee = $5, venue_fee = $6,
				status = $7, venue_status = $8, completed_at = $9, last_reconciled_at = $10
			WHERE id = $1 AND status = 'PENDING'`

		result, err = r.db.ExecContext(ctx, query,
			upd.OrderID,
			upd.Fill.FilledAmount,
			upd.Fill.Price,
			upd.Fill.TotalValue,
			upd.Fill.PlatformFee,
			upd.Fill.VenueFee,
			upd.Status,
			upd.VenueStatus,
			upd.CompletedAt,
			upd.ReconciledAt,
		)
	}
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rowsAffected > 0, nil
}

// rowScanner - общий интерфейс *sql.Row и *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	order := &models.Order{}
	err := row.Scan(
		&order.ID,
		&order.UserID,
		&order.ExternalOrderID,
		&order.BaseAsset,
		&order.QuoteAsset,
		&order.Side,
		&order.Amount,
		&order.FilledAmount,
		&order.Price,
		&order.TotalValue,
		&order.PlatformFee,
		&order.VenueFee,
		&order.Status,
		&order.VenueStatus,
		&order.CreatedAt,
		&order.CompletedAt,
		&order.LastReconciledAt,
	)
	if err != nil {
		return nil, err
	}
	return order, nil
}
