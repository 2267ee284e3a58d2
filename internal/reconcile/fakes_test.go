package reconcile

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"reconciler/internal/models"
	"reconciler/internal/venue"
)

// ============ fakeVenue ============

type fakeVenue struct {
	mu       sync.Mutex
	statuses map[string]*venue.OrderStatus
	errs     map[string]error
	calls    []string
	onCall   func(externalID string)
}

func newFakeVenue() *fakeVenue {
	return &fakeVenue{
		statuses: make(map[string]*venue.OrderStatus),
		errs:     make(map[string]error),
	}
}

func (v *fakeVenue) Name() string { return "fake" }
func (v *fakeVenue) Close() error { return nil }

func (v *fakeVenue) GetOrder(ctx context.Context, externalOrderID string) (*venue.OrderStatus, error) {
	v.mu.Lock()
	v.calls = append(v.calls, externalOrderID)
	onCall := v.onCall
	status, ok := v.statuses[externalOrderID]
	err := v.errs[externalOrderID]
	v.mu.Unlock()

	if onCall != nil {
		onCall(externalOrderID)
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &venue.VenueError{Venue: "fake", StatusCode: 404, Message: "not found", Original: venue.ErrOrderNotFound}
	}
	copied := *status
	return &copied, nil
}

func (v *fakeVenue) set(externalID, status, size, value, price, fees string) {
	v.statuses[externalID] = &venue.OrderStatus{
		OrderID:            externalID,
		Status:             status,
		FilledSize:         dec(size),
		FilledValue:        dec(value),
		AverageFilledPrice: dec(price),
		TotalFees:          dec(fees),
	}
}

// ============ memLedger ============

// memLedger повторяет семантику repository.Ledger в памяти:
// условное обновление, ключ идемпотентности, атомарность ног
type memLedger struct {
	mu             sync.Mutex
	orders         map[string]*models.Order
	fills          map[string]bool
	balances       map[string]decimal.Decimal
	mutations      []models.BalanceDelta
	updates        []models.OrderUpdate
	failAsset      string
	rejectNegative bool
}

func newMemLedger(orders ...*models.Order) *memLedger {
	l := &memLedger{
		orders:   make(map[string]*models.Order),
		fills:    make(map[string]bool),
		balances: make(map[string]decimal.Decimal),
	}
	for _, o := range orders {
		l.orders[o.ID] = o
	}
	return l
}

func balanceKey(userID, asset string) string { return userID + "|" + asset }

func (l *memLedger) Apply(ctx context.Context, upd models.OrderUpdate, s *models.Settlement) (models.ApplyResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var result models.ApplyResult

	order, ok := l.orders[upd.OrderID]
	if !ok || order.Status != models.OrderStatusPending {
		return result, nil
	}
	result.OrderUpdated = true

	// расчёт в копии: при ошибке ничего не меняется
	staged := make(map[string]decimal.Decimal)
	if s != nil {
		if l.fills[s.ExternalOrderID] {
			result.AlreadySettled = true
		} else {
			for _, leg := range s.Legs {
				if leg.Asset == l.failAsset {
					return models.ApplyResult{}, errors.New("leg failed")
				}
				key := balanceKey(leg.UserID, leg.Asset)
				current, exists := staged[key]
				if !exists {
					current, exists = l.balances[key]
				}
				if !exists && leg.Delta.IsNegative() {
					if l.rejectNegative {
						return models.ApplyResult{}, errors.New("negative create rejected")
					}
					result.NegativeCreates = append(result.NegativeCreates, leg)
				}
				staged[key] = current.Add(leg.Delta)
			}
			result.Settled = true
		}
	}

	// commit
	l.updates = append(l.updates, upd)
	order.VenueStatus = upd.VenueStatus
	reconciled := upd.ReconciledAt
	order.LastReconciledAt = &reconciled
	if upd.Fill != nil {
		order.Status = upd.Status
		order.FilledAmount = decimal.NewNullDecimal(upd.Fill.FilledAmount)
		order.Price = decimal.NewNullDecimal(upd.Fill.Price)
		order.TotalValue = decimal.NewNullDecimal(upd.Fill.TotalValue)
		order.PlatformFee = decimal.NewNullDecimal(upd.Fill.PlatformFee)
		order.VenueFee = decimal.NewNullDecimal(upd.Fill.VenueFee)
		order.CompletedAt = upd.CompletedAt
	}
	if result.Settled {
		l.fills[s.ExternalOrderID] = true
		for key, value := range staged {
			l.balances[key] = value
		}
		l.mutations = append(l.mutations, s.Legs...)
	}

	return result, nil
}

func (l *memLedger) balance(userID, asset string) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[balanceKey(userID, asset)]
}

// ============ fetcher / recorder / publisher ============

type fakeFetcher struct {
	ledger *memLedger
	err    error
}

// GetPendingWithExternalID возвращает PENDING ордера с external id в порядке вставки id
func (f *fakeFetcher) GetPendingWithExternalID(ctx context.Context) ([]*models.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.ledger.mu.Lock()
	defer f.ledger.mu.Unlock()

	var pending []*models.Order
	for _, id := range sortedOrderIDs(f.ledger.orders) {
		o := f.ledger.orders[id]
		if o.Status == models.OrderStatusPending && o.ExternalOrderID != nil {
			pending = append(pending, o)
		}
	}
	return pending, nil
}

func sortedOrderIDs(orders map[string]*models.Order) []string {
	ids := make([]string, 0, len(orders))
	for id := range orders {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

type fakeRecorder struct {
	mu        sync.Mutex
	nextID    int64
	created   int
	finished  []*models.Run
	createErr error
}

func (r *fakeRecorder) Create(ctx context.Context, run *models.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.nextID++
	r.created++
	run.ID = r.nextID
	return nil
}

func (r *fakeRecorder) Finish(ctx context.Context, run *models.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *run
	r.finished = append(r.finished, &copied)
	return nil
}

type fakePublisher struct {
	mu       sync.Mutex
	outcomes []models.OrderOutcome
	runs     []*models.Run
}

func (p *fakePublisher) PublishOrderOutcome(outcome models.OrderOutcome) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.outcomes = append(p.outcomes, outcome)
}

func (p *fakePublisher) PublishRunCompleted(run *models.Run) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.runs = append(p.runs, run)
}

type fakeFeeSource struct {
	rates map[string]decimal.Decimal
	err   error
}

func (f *fakeFeeSource) Rates(ctx context.Context) (map[string]decimal.Decimal, error) {
	return f.rates, f.err
}

// ============ helpers ============

func dec(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	return decimal.RequireFromString(s)
}

func newOrder(id, userID, externalID string, side models.OrderSide, base, quote, amount string) *models.Order {
	o := &models.Order{
		ID:         id,
		UserID:     userID,
		BaseAsset:  base,
		QuoteAsset: quote,
		Side:       side,
		Amount:     dec(amount),
		Status:     models.OrderStatusPending,
	}
	if externalID != "" {
		ext := externalID
		o.ExternalOrderID = &ext
	}
	return o
}
