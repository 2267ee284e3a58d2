package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"reconciler/internal/models"
)

// BalanceRepository - работа с таблицей balances
//
// Строка создаётся лениво со значением дельты, дальше только инкременты.
// locked_balance сверкой не меняется. Строки не удаляются.
type BalanceRepository struct {
	db DBTX
}

// NewBalanceRepository создает новый экземпляр репозитория
func NewBalanceRepository(db DBTX) *BalanceRepository {
	return &BalanceRepository{db: db}
}

// UpsertResult - итог одного инкремента
type UpsertResult struct {
	Created bool            // строка создана этим вызовом
	Balance decimal.Decimal // баланс после изменения
}

// Upsert прибавляет delta к balance и available_balance одним оператором.
// Если строки нет, она создаётся со значением delta.
func (r *BalanceRepository) Upsert(ctx context.Context, d models.BalanceDelta) (UpsertResult, error) {
	query := `
		INSERT INTO balances (user_id, asset, balance, available_balance, locked_balance, created_at, updated_at)
		VALUES ($1, $2, $3, $3, 0, $4, $4)
		ON CONFLICT (user_id, asset) DO UPDATE
		SET balance = balances.balance + EXCLUDED.balance,
			available_balance = balances.available_balance + EXCLUDED.available_balance,
			updated_at = EXCLUDED.updated_at
		RETURNING balance, (xmax = 0) AS inserted`

	var res UpsertResult
	err := r.db.QueryRowContext(ctx, query, d.UserID, d.Asset, d.Delta, time.Now()).
		Scan(&res.Balance, &res.Created)
	if err != nil {
		return UpsertResult{}, err
	}

	return res, nil
}

// GetByUser возвращает все балансы пользователя, упорядоченные по активу
func (r *BalanceRepository) GetByUser(ctx context.Context, userID string) ([]*models.Balance, error) {
	query := `
		SELECT user_id, asset, balance, available_balance, locked_balance, created_at, updated_at
		FROM balances
		WHERE user_id = $1
		ORDER BY asset`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	balances := []*models.Balance{}
	for rows.Next() {
		b := &models.Balance{}
		err := rows.Scan(
			&b.UserID,
			&b.Asset,
			&b.Balance,
			&b.AvailableBalance,
			&b.LockedBalance,
			&b.CreatedAt,
			&b.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		balances = append(balances, b)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return balances, nil
}
