package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"reconciler/internal/models"
	"reconciler/pkg/utils"
)

// Ошибки прохода
var (
	ErrRunInProgress = errors.New("reconciliation pass already in progress")
)

// RunnerConfig - зависимости и параметры Runner.
// FeeSource, Recorder и Publisher необязательны.
type RunnerConfig struct {
	Fetcher    OrderFetcher
	Reconciler *Reconciler
	Fees       *FeeSchedule
	FeeSource  FeeOverrideSource
	Recorder   RunRecorder
	Publisher  Publisher
	Timeout    time.Duration // 0 = без ограничения
}

// Runner выполняет проход сверки: выборка PENDING ордеров и
// последовательная обработка каждого. Два прохода одновременно не выполняются.
type Runner struct {
	fetcher    OrderFetcher
	reconciler *Reconciler
	fees       *FeeSchedule
	feeSource  FeeOverrideSource
	recorder   RunRecorder
	publisher  Publisher
	timeout    time.Duration

	mu      sync.Mutex
	running bool
	wg      sync.WaitGroup // фоновые проходы Start

	logger *utils.Logger
	now    func() time.Time
}

// NewRunner создаёт Runner
func NewRunner(cfg RunnerConfig) *Runner {
	fees := cfg.Fees
	if fees == nil {
		fees = DefaultFeeSchedule()
	}

	return &Runner{
		fetcher:    cfg.Fetcher,
		reconciler: cfg.Reconciler,
		fees:       fees,
		feeSource:  cfg.FeeSource,
		recorder:   cfg.Recorder,
		publisher:  cfg.Publisher,
		timeout:    cfg.Timeout,
		logger:     utils.L().WithComponent("runner"),
		now:        time.Now,
	}
}

// Running - выполняется ли сейчас проход
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *Runner) acquire() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return false
	}
	r.running = true
	return true
}

func (r *Runner) release() {
	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
}

// Run выполняет один проход.
//
// Ошибка возвращается только для фатальных сбоев (выборка ордеров) и
// ErrRunInProgress. Ошибки отдельных ордеров учитываются в Run.Errors.
// При истечении таймаута или отмене контекста оставшиеся ордера
// не обрабатываются, Run.Aborted = true.
func (r *Runner) Run(ctx context.Context, trigger string) (*models.Run, error) {
	if !r.acquire() {
		return nil, ErrRunInProgress
	}
	defer r.release()

	return r.run(ctx, trigger)
}

// Start запускает проход в фоне и сразу возвращается.
// ErrRunInProgress возвращается синхронно, если проход уже идёт.
func (r *Runner) Start(ctx context.Context, trigger string) error {
	if !r.acquire() {
		return ErrRunInProgress
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.release()
		if _, err := r.run(ctx, trigger); err != nil {
			r.logger.Error("background pass failed", zap.String("trigger", trigger), zap.Error(err))
		}
	}()
	return nil
}

// Wait дожидается завершения проходов, запущенных через Start
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) run(ctx context.Context, trigger string) (*models.Run, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	run := &models.Run{StartedAt: r.now(), Trigger: trigger}
	r.recordStart(ctx, run)

	log := r.logger.With(utils.RunID(run.ID), zap.String("trigger", trigger))
	log.Info("reconciliation pass started")

	orders, err := r.fetcher.GetPendingWithExternalID(ctx)
	if err != nil {
		run.Aborted = true
		run.LastError = err.Error()
		r.finish(run)
		return run, fmt.Errorf("fetch pending orders: %w", err)
	}
	run.Total = len(orders)

	fees := r.loadFees(ctx)

	for _, order := range orders {
		if ctx.Err() != nil {
			run.Aborted = true
			run.LastError = ctx.Err().Error()
			log.Warn("pass interrupted, remaining orders left pending",
				zap.Int("processed", run.Completed+run.Cancelled+run.Failed+run.StillPending+run.Skipped+run.Errors),
				zap.Int("total", run.Total),
				zap.Error(ctx.Err()),
			)
			break
		}

		outcome, err := r.reconciler.Reconcile(ctx, order, fees)
		outcome.RunID = run.ID
		if err != nil {
			run.Errors++
			run.LastError = err.Error()
			log.Error("order reconciliation failed",
				utils.OrderID(order.ID),
				utils.ExternalOrderID(order.ExternalID()),
				zap.Error(err),
			)
		} else {
			tally(run, outcome)
		}

		if r.publisher != nil {
			r.publisher.PublishOrderOutcome(outcome)
		}
	}

	r.finish(run)

	log.Info("reconciliation pass finished",
		zap.Int("total", run.Total),
		zap.Int("completed", run.Completed),
		zap.Int("cancelled", run.Cancelled),
		zap.Int("failed", run.Failed),
		zap.Int("still_pending", run.StillPending),
		zap.Int("skipped", run.Skipped),
		zap.Int("settled", run.Settled),
		zap.Int("errors", run.Errors),
		zap.Bool("aborted", run.Aborted),
		zap.Duration("duration", run.Duration()),
	)

	return run, nil
}

func tally(run *models.Run, outcome models.OrderOutcome) {
	switch outcome.Outcome {
	case models.OutcomeCompleted:
		run.Completed++
	case models.OutcomeCancelled:
		run.Cancelled++
	case models.OutcomeFailed:
		run.Failed++
	case models.OutcomePending:
		run.StillPending++
	case models.OutcomeSkipped:
		run.Skipped++
	}
	if outcome.Settled {
		run.Settled++
	}
}

// loadFees накладывает переопределения из хранилища на базовое расписание.
// Сбой загрузки не фатален: используется расписание из конфигурации.
func (r *Runner) loadFees(ctx context.Context) *FeeSchedule {
	if r.feeSource == nil {
		return r.fees
	}

	overrides, err := r.feeSource.Rates(ctx)
	if err != nil {
		r.logger.Warn("failed to load fee schedule, using configured rates", zap.Error(err))
		return r.fees
	}
	return r.fees.WithOverrides(overrides)
}

func (r *Runner) recordStart(ctx context.Context, run *models.Run) {
	if r.recorder == nil {
		return
	}
	if err := r.recorder.Create(ctx, run); err != nil {
		r.logger.Warn("failed to record pass start", zap.Error(err))
	}
}

// finish фиксирует итог: журнал, метрики, публикация
func (r *Runner) finish(run *models.Run) {
	finished := r.now()
	run.FinishedAt = &finished

	RecordRun(run.Duration(), run.Errors, finished)

	// итог пишется и после таймаута прохода
	if r.recorder != nil && run.ID != 0 {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.recorder.Finish(ctx, run); err != nil {
			r.logger.Warn("failed to record pass result", utils.RunID(run.ID), zap.Error(err))
		}
	}

	if r.publisher != nil {
		r.publisher.PublishRunCompleted(run)
	}
}

// Schedule запускает проход сразу и затем с интервалом interval до отмены ctx.
// Если проход ещё идёт (например, запущен через API), тик пропускается.
func (r *Runner) Schedule(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		r.scheduledRun(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (r *Runner) scheduledRun(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	_, err := r.Run(ctx, models.RunTriggerSchedule)
	switch {
	case errors.Is(err, ErrRunInProgress):
		r.logger.Info("previous pass still running, tick skipped")
	case err != nil:
		r.logger.Error("scheduled pass failed", zap.Error(err))
	}
}
