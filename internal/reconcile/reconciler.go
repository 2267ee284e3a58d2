package reconcile

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"reconciler/internal/models"
	"reconciler/internal/venue"
	"reconciler/pkg/utils"
)

// Reconciler сверяет один ордер с площадкой и проводит результат по леджеру
type Reconciler struct {
	venue  venue.Venue
	ledger LedgerWriter
	logger *utils.Logger
	now    func() time.Time
}

// NewReconciler создаёт Reconciler
func NewReconciler(v venue.Venue, ledger LedgerWriter) *Reconciler {
	return &Reconciler{
		venue:  v,
		ledger: ledger,
		logger: utils.L().WithComponent("reconciler").WithVenue(v.Name()),
		now:    time.Now,
	}
}

// Reconcile обрабатывает один ордер.
//
// Ошибка означает, что ордер не обработан и остался в прежнем состоянии;
// outcome при этом заполнен (Outcome = error) для публикации.
func (r *Reconciler) Reconcile(ctx context.Context, order *models.Order, fees *FeeSchedule) (models.OrderOutcome, error) {
	outcome := models.OrderOutcome{
		OrderID:         order.ID,
		ExternalOrderID: order.ExternalID(),
		UserID:          order.UserID,
		Outcome:         models.OutcomeError,
	}

	start := r.now()
	vs, err := r.venue.GetOrder(ctx, order.ExternalID())
	RecordVenueLatency(r.venue.Name(), r.now().Sub(start), err)
	if err != nil {
		return r.fail(outcome, fmt.Errorf("venue lookup: %w", err))
	}

	now := r.now()
	status := MapStatus(vs.Status)
	outcome.Status = status
	outcome.VenueStatus = vs.Status

	upd, settlement, err := buildUpdate(order, vs, status, fees, now)
	if err != nil {
		return r.fail(outcome, err)
	}

	result, err := r.ledger.Apply(ctx, upd, settlement)
	if err != nil {
		return r.fail(outcome, fmt.Errorf("apply reconciliation: %w", err))
	}

	log := r.logger.With(utils.OrderID(order.ID), utils.ExternalOrderID(order.ExternalID()))

	for _, leg := range result.NegativeCreates {
		RecordNegativeCreate(leg.Asset)
		log.Warn("balance row created with negative value",
			utils.UserID(leg.UserID),
			utils.Asset(leg.Asset),
			utils.Amount("delta", leg.Delta),
		)
	}

	switch {
	case !result.OrderUpdated:
		log.Warn("order is no longer pending, skipped", utils.Status(string(status)))
		outcome.Outcome = models.OutcomeSkipped
	case result.AlreadySettled:
		DuplicateFills.Inc()
		log.Warn("fill already settled, balance legs skipped")
		outcome.Outcome = models.OutcomeSkipped
	default:
		outcome.Outcome = outcomeFor(status)
	}

	if result.Settled {
		outcome.Settled = true
		for _, leg := range settlement.Legs {
			RecordBalanceMutation(leg.IsCredit())
		}
		log.Info("order settled",
			utils.Side(string(order.Side)),
			utils.Amount("filled_amount", settlement.FilledAmount),
			utils.Amount("total_value", settlement.TotalValue),
			utils.Amount("platform_fee", settlement.PlatformFee),
		)
	} else {
		log.Debug("order reconciled", utils.Status(string(status)), zap.String("venue_status", vs.Status))
	}

	RecordOrderOutcome(outcome.Outcome)
	outcome.Timestamp = now
	return outcome, nil
}

func (r *Reconciler) fail(outcome models.OrderOutcome, err error) (models.OrderOutcome, error) {
	RecordOrderOutcome(models.OutcomeError)
	outcome.Error = err.Error()
	outcome.Timestamp = r.now()
	return outcome, err
}

// buildUpdate строит обновление ордера и, для исполненного COMPLETED, проводку
func buildUpdate(order *models.Order, vs *venue.OrderStatus, status models.OrderStatus, fees *FeeSchedule, now time.Time) (models.OrderUpdate, *models.Settlement, error) {
	upd := models.OrderUpdate{
		OrderID:      order.ID,
		Status:       status,
		VenueStatus:  vs.Status,
		ReconciledAt: now,
	}

	if status == models.OrderStatusPending {
		return upd, nil, nil
	}

	fee := fees.Fee(order.BaseAsset, vs.FilledValue)
	upd.Fill = &models.Fill{
		FilledAmount: vs.FilledSize,
		Price:        FillPrice(vs.FilledSize, vs.FilledValue, vs.AverageFilledPrice),
		TotalValue:   vs.FilledValue,
		PlatformFee:  fee,
		VenueFee:     vs.TotalFees,
	}

	if status != models.OrderStatusCompleted {
		return upd, nil, nil
	}

	completedAt := now
	upd.CompletedAt = &completedAt

	if !vs.FilledSize.IsPositive() {
		return upd, nil, nil
	}

	settlement, err := ComputeSettlement(order, vs.FilledSize, vs.FilledValue, fee)
	if err != nil {
		return models.OrderUpdate{}, nil, err
	}
	return upd, settlement, nil
}

func outcomeFor(status models.OrderStatus) string {
	switch status {
	case models.OrderStatusCompleted:
		return models.OutcomeCompleted
	case models.OrderStatusCancelled:
		return models.OutcomeCancelled
	case models.OrderStatusFailed:
		return models.OutcomeFailed
	default:
		return models.OutcomePending
	}
}
