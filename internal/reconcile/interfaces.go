package reconcile

import (
	"context"

	"github.com/shopspring/decimal"

	"reconciler/internal/models"
	"reconciler/internal/repository"
	"reconciler/internal/venue"
)

// OrderFetcher возвращает ордера, ожидающие сверки
type OrderFetcher interface {
	GetPendingWithExternalID(ctx context.Context) ([]*models.Order, error)
}

// LedgerWriter записывает результат сверки ордера одной транзакцией
type LedgerWriter interface {
	Apply(ctx context.Context, upd models.OrderUpdate, settlement *models.Settlement) (models.ApplyResult, error)
}

// FeeOverrideSource - переопределения ставок комиссии из хранилища
type FeeOverrideSource interface {
	Rates(ctx context.Context) (map[string]decimal.Decimal, error)
}

// RunRecorder - журнал проходов сверки
type RunRecorder interface {
	Create(ctx context.Context, run *models.Run) error
	Finish(ctx context.Context, run *models.Run) error
}

// Publisher получает результаты сверки для наблюдателей (websocket)
type Publisher interface {
	PublishOrderOutcome(outcome models.OrderOutcome)
	PublishRunCompleted(run *models.Run)
}

// Проверка соответствия реализаций интерфейсам
var (
	_ OrderFetcher      = (*repository.OrderRepository)(nil)
	_ LedgerWriter      = (*repository.Ledger)(nil)
	_ FeeOverrideSource = (*repository.FeeScheduleRepository)(nil)
	_ RunRecorder       = (*repository.RunRepository)(nil)
	_ venue.Venue       = (*venue.Coinbase)(nil)
)
