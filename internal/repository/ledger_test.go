package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"

	"reconciler/internal/models"
)

// ============================================================
// Ledger Tests
// ============================================================

func buySettlement() *models.Settlement {
	return &models.Settlement{
		OrderID:         "o-1",
		ExternalOrderID: "cb-1",
		UserID:          "u-1",
		Side:            models.OrderSideBuy,
		BaseAsset:       "BTC",
		QuoteAsset:      "USD",
		FilledAmount:    decimal.RequireFromString("0.001"),
		TotalValue:      decimal.RequireFromString("100"),
		PlatformFee:     decimal.RequireFromString("0.5"),
		Legs: []models.BalanceDelta{
			{UserID: "u-1", Asset: "BTC", Delta: decimal.RequireFromString("0.001")},
			{UserID: "u-1", Asset: "USD", Delta: decimal.RequireFromString("-100.5")},
		},
	}
}

func completedUpdate() models.OrderUpdate {
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	return models.OrderUpdate{
		OrderID:     "o-1",
		Status:      models.OrderStatusCompleted,
		VenueStatus: "FILLED",
		Fill: &models.Fill{
			FilledAmount: decimal.RequireFromString("0.001"),
			Price:        decimal.RequireFromString("100000"),
			TotalValue:   decimal.RequireFromString("100"),
			PlatformFee:  decimal.RequireFromString("0.5"),
			VenueFee:     decimal.Zero,
		},
		CompletedAt:  &now,
		ReconciledAt: now,
	}
}

func expectLeg(mock sqlmock.Sqlmock, asset, delta, balanceAfter string, inserted bool) {
	mock.ExpectQuery(`INSERT INTO balances`).
		WithArgs("u-1", asset, decimal.RequireFromString(delta), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"balance", "inserted"}).AddRow(balanceAfter, inserted))
}

func TestLedgerApply(t *testing.T) {
	tests := []struct {
		name           string
		update         models.OrderUpdate
		settlement     *models.Settlement
		rejectNegative bool
		mockSetup      func(mock sqlmock.Sqlmock)
		expectedErr    error
		expectError    bool
		expected       models.ApplyResult
		negativeCount  int
	}{
		{
			name:       "buy fill settles both legs credit first",
			update:     completedUpdate(),
			settlement: buySettlement(),
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(`UPDATE orders`).WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectQuery(`INSERT INTO ledger_fills .+ON CONFLICT \(external_order_id\) DO NOTHING`).
					WithArgs("cb-1", "o-1", "u-1", models.OrderSideBuy, "BTC", "USD",
						decimal.RequireFromString("0.001"), decimal.RequireFromString("100"), decimal.RequireFromString("0.5"),
						sqlmock.AnyArg()).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
				expectLeg(mock, "BTC", "0.001", "1.001", false)
				expectLeg(mock, "USD", "-100.5", "899.5", false)
				mock.ExpectCommit()
			},
			expected: models.ApplyResult{OrderUpdated: true, Settled: true},
		},
		{
			name:   "pending update without settlement",
			update: models.OrderUpdate{OrderID: "o-1", Status: models.OrderStatusPending, VenueStatus: "OPEN", ReconciledAt: time.Now()},
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(`UPDATE orders\s+SET venue_status`).WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			},
			expected: models.ApplyResult{OrderUpdated: true},
		},
		{
			name:       "order no longer pending writes nothing",
			update:     completedUpdate(),
			settlement: buySettlement(),
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(`UPDATE orders`).WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectRollback()
			},
			expected: models.ApplyResult{},
		},
		{
			name:       "already settled fill skips legs",
			update:     completedUpdate(),
			settlement: buySettlement(),
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(`UPDATE orders`).WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectQuery(`INSERT INTO ledger_fills`).WillReturnRows(sqlmock.NewRows([]string{"id"}))
				mock.ExpectCommit()
			},
			expected: models.ApplyResult{OrderUpdated: true, AlreadySettled: true},
		},
		{
			name:       "leg failure rolls back",
			update:     completedUpdate(),
			settlement: buySettlement(),
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(`UPDATE orders`).WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectQuery(`INSERT INTO ledger_fills`).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
				expectLeg(mock, "BTC", "0.001", "0.001", true)
				mock.ExpectQuery(`INSERT INTO balances`).WillReturnError(errors.New("deadlock detected"))
				mock.ExpectRollback()
			},
			expectError: true,
		},
		{
			name:       "negative create allowed and reported",
			update:     completedUpdate(),
			settlement: buySettlement(),
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(`UPDATE orders`).WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectQuery(`INSERT INTO ledger_fills`).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
				expectLeg(mock, "BTC", "0.001", "0.001", true)
				expectLeg(mock, "USD", "-100.5", "-100.5", true)
				mock.ExpectCommit()
			},
			expected:      models.ApplyResult{OrderUpdated: true, Settled: true},
			negativeCount: 1,
		},
		{
			name:           "negative create rejected rolls back",
			update:         completedUpdate(),
			settlement:     buySettlement(),
			rejectNegative: true,
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(`UPDATE orders`).WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectQuery(`INSERT INTO ledger_fills`).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
				expectLeg(mock, "BTC", "0.001", "0.001", true)
				expectLeg(mock, "USD", "-100.5", "-100.5", true)
				mock.ExpectRollback()
			},
			expectedErr: ErrNegativeBalanceCreate,
			expectError: true,
		},
		{
			name:       "commit failure",
			update:     completedUpdate(),
			settlement: buySettlement(),
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(`UPDATE orders`).WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectQuery(`INSERT INTO ledger_fills`).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
				expectLeg(mock, "BTC", "0.001", "0.001", false)
				expectLeg(mock, "USD", "-100.5", "0", false)
				mock.ExpectCommit().WillReturnError(errors.New("connection reset"))
			},
			expectError: true,
		},
		{
			name:       "begin failure",
			update:     completedUpdate(),
			settlement: buySettlement(),
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin().WillReturnError(errors.New("too many connections"))
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			if err != nil {
				t.Fatalf("failed to create mock: %v", err)
			}
			defer db.Close()

			tt.mockSetup(mock)

			ledger := NewLedger(db, tt.rejectNegative)
			result, err := ledger.Apply(context.Background(), tt.update, tt.settlement)

			if tt.expectError {
				if err == nil {
					t.Error("expected error, got nil")
				}
				if tt.expectedErr != nil && !errors.Is(err, tt.expectedErr) {
					t.Errorf("expected %v, got %v", tt.expectedErr, err)
				}
			} else {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				if result.OrderUpdated != tt.expected.OrderUpdated ||
					result.Settled != tt.expected.Settled ||
					result.AlreadySettled != tt.expected.AlreadySettled {
					t.Errorf("expected %+v, got %+v", tt.expected, result)
				}
				if len(result.NegativeCreates) != tt.negativeCount {
					t.Errorf("expected %d negative creates, got %d", tt.negativeCount, len(result.NegativeCreates))
				}
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unfulfilled expectations: %v", err)
			}
		})
	}
}
