package handlers

import (
	"context"
	"errors"
	"sync"

	"reconciler/internal/models"
	"reconciler/internal/reconcile"
	"reconciler/internal/repository"
)

// ErrMockDatabase - ошибка хранилища для тестов
var ErrMockDatabase = errors.New("mock database error")

// ============ Mock Runner ============

// MockRunner мок для RunStarter
type MockRunner struct {
	mu       sync.Mutex
	running  bool
	startErr error
	triggers []string
	lastCtx  context.Context
}

func (m *MockRunner) Start(ctx context.Context, trigger string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.startErr != nil {
		return m.startErr
	}
	if m.running {
		return reconcile.ErrRunInProgress
	}
	m.running = true
	m.lastCtx = ctx
	m.triggers = append(m.triggers, trigger)
	return nil
}

// ============ Mock Run Store ============

// MockRunStore мок для RunStore
type MockRunStore struct {
	runs      []*models.Run
	err       error
	lastLimit int
}

func (m *MockRunStore) GetRecent(ctx context.Context, limit int) ([]*models.Run, error) {
	m.lastLimit = limit
	if m.err != nil {
		return nil, m.err
	}
	if len(m.runs) > limit {
		return m.runs[:limit], nil
	}
	return m.runs, nil
}

func (m *MockRunStore) GetByID(ctx context.Context, id int64) (*models.Run, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, run := range m.runs {
		if run.ID == id {
			return run, nil
		}
	}
	return nil, repository.ErrRunNotFound
}

// ============ Mock Ledger Stores ============

// MockBalanceStore мок для BalanceStore
type MockBalanceStore struct {
	balances map[string][]*models.Balance
	err      error
}

func (m *MockBalanceStore) GetByUser(ctx context.Context, userID string) ([]*models.Balance, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.balances[userID], nil
}

// MockOrderStore мок для OrderStore
type MockOrderStore struct {
	orders map[string]*models.Order
	err    error
}

func (m *MockOrderStore) GetByID(ctx context.Context, id string) (*models.Order, error) {
	if m.err != nil {
		return nil, m.err
	}
	order, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return order, nil
}
