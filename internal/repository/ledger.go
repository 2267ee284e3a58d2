package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"reconciler/internal/models"
)

// Ошибки леджера
var (
	ErrNegativeBalanceCreate = errors.New("balance row would be created with negative value")
)

// Ledger проводит результат сверки ордера в одной транзакции:
//
//  1. условный UPDATE ордера (только из PENDING)
//  2. запись ledger_fills (ключ идемпотентности)
//  3. ноги баланса: сначала зачисление, затем списание
//
// Ошибка любого шага откатывает всю транзакцию.
type Ledger struct {
	db                   *sql.DB
	rejectNegativeCreate bool
	now                  func() time.Time
}

// NewLedger создает леджер.
// rejectNegativeCreate: создание строки с отрицательным балансом откатывает транзакцию.
func NewLedger(db *sql.DB, rejectNegativeCreate bool) *Ledger {
	return &Ledger{
		db:                   db,
		rejectNegativeCreate: rejectNegativeCreate,
		now:                  time.Now,
	}
}

// Apply записывает обновление ордера и, если settlement != nil, проводит его по леджеру
func (l *Ledger) Apply(ctx context.Context, upd models.OrderUpdate, settlement *models.Settlement) (models.ApplyResult, error) {
	var result models.ApplyResult

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	updated, err := NewOrderRepository(tx).ApplyUpdate(ctx, upd)
	if err != nil {
		return result, fmt.Errorf("update order %s: %w", upd.OrderID, err)
	}
	if !updated {
		// ордер уже не PENDING: ничего не пишем
		return result, nil
	}
	result.OrderUpdated = true

	if settlement != nil {
		if err := l.settle(ctx, tx, settlement, &result); err != nil {
			return models.ApplyResult{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return models.ApplyResult{}, fmt.Errorf("commit: %w", err)
	}

	return result, nil
}

func (l *Ledger) settle(ctx context.Context, tx *sql.Tx, s *models.Settlement, result *models.ApplyResult) error {
	fill := &models.LedgerFill{
		ExternalOrderID: s.ExternalOrderID,
		OrderID:         s.OrderID,
		UserID:          s.UserID,
		Side:            s.Side,
		BaseAsset:       s.BaseAsset,
		QuoteAsset:      s.QuoteAsset,
		FilledAmount:    s.FilledAmount,
		TotalValue:      s.TotalValue,
		PlatformFee:     s.PlatformFee,
		AppliedAt:       l.now(),
	}

	inserted, err := NewLedgerFillRepository(tx).Insert(ctx, fill)
	if err != nil {
		return fmt.Errorf("record ledger fill %s: %w", s.ExternalOrderID, err)
	}
	if !inserted {
		result.AlreadySettled = true
		return nil
	}

	balances := NewBalanceRepository(tx)
	for _, leg := range s.Legs {
		res, err := balances.Upsert(ctx, leg)
		if err != nil {
			return fmt.Errorf("apply %s leg %s: %w", leg.Asset, leg.Delta, err)
		}

		if res.Created && res.Balance.IsNegative() {
			if l.rejectNegativeCreate {
				return fmt.Errorf("%w: user %s asset %s delta %s", ErrNegativeBalanceCreate, leg.UserID, leg.Asset, leg.Delta)
			}
			result.NegativeCreates = append(result.NegativeCreates, leg)
		}
	}

	result.Settled = true
	return nil
}
