package cli

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"reconciler/internal/config"
	"reconciler/internal/reconcile"
	"reconciler/internal/repository"
	"reconciler/internal/venue"
	"reconciler/pkg/utils"
)

// app - собранные зависимости прохода сверки
type app struct {
	db       *sql.DB
	venue    venue.Venue
	orders   *repository.OrderRepository
	balances *repository.BalanceRepository
	runs     *repository.RunRepository
	fees     *repository.FeeScheduleRepository
	runner   *reconcile.Runner
}

// newApp открывает БД и площадку и собирает Runner.
// publisher может быть nil (интерфейс без значения).
func newApp(ctx context.Context, cfg *config.Config, publisher reconcile.Publisher) (*app, error) {
	db, err := repository.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	v, err := venue.NewVenue(cfg.Venue)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create venue: %w", err)
	}

	a := &app{
		db:       db,
		venue:    v,
		orders:   repository.NewOrderRepository(db),
		balances: repository.NewBalanceRepository(db),
		runs:     repository.NewRunRepository(db),
		fees:     repository.NewFeeScheduleRepository(db),
	}

	cfgRunner := reconcile.RunnerConfig{
		Fetcher:    a.orders,
		Reconciler: reconcile.NewReconciler(v, repository.NewLedger(db, cfg.Ledger.RejectNegativeCreate)),
		Fees:       reconcile.NewFeeSchedule(cfg.Fees.DefaultRate, cfg.Fees.Overrides, cfg.Fees.Scale),
		FeeSource:  a.fees,
		Recorder:   a.runs,
		Publisher:  publisher,
		Timeout:    cfg.Run.Timeout,
	}
	a.runner = reconcile.NewRunner(cfgRunner)

	utils.L().Info("reconciler initialized",
		utils.Venue(v.Name()),
		zap.String("database", cfg.Database.DSNWithoutPassword()),
		zap.Bool("reject_negative_create", cfg.Ledger.RejectNegativeCreate),
		zap.Duration("run_timeout", cfg.Run.Timeout),
	)
	return a, nil
}

// Close закрывает площадку и БД
func (a *app) Close() {
	if err := a.venue.Close(); err != nil {
		utils.L().Warn("failed to close venue client", zap.Error(err))
	}
	if err := a.db.Close(); err != nil {
		utils.L().Warn("failed to close database", zap.Error(err))
	}
}
