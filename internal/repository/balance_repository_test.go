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
// BalanceRepository Tests
// ============================================================

func TestBalanceRepositoryUpsert(t *testing.T) {
	delta := models.BalanceDelta{UserID: "u-1", Asset: "BTC", Delta: decimal.RequireFromString("0.001")}

	tests := []struct {
		name            string
		mockSetup       func(mock sqlmock.Sqlmock)
		expectError     bool
		expectedCreated bool
		expectedBalance string
	}{
		{
			name: "creates missing row at delta",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO balances .+ON CONFLICT \(user_id, asset\) DO UPDATE`).
					WithArgs("u-1", "BTC", delta.Delta, sqlmock.AnyArg()).
					WillReturnRows(sqlmock.NewRows([]string{"balance", "inserted"}).AddRow("0.001", true))
			},
			expectedCreated: true,
			expectedBalance: "0.001",
		},
		{
			name: "increments existing row",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO balances`).
					WithArgs("u-1", "BTC", delta.Delta, sqlmock.AnyArg()).
					WillReturnRows(sqlmock.NewRows([]string{"balance", "inserted"}).AddRow("1.001", false))
			},
			expectedCreated: false,
			expectedBalance: "1.001",
		},
		{
			name: "database error",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO balances`).
					WillReturnError(errors.New("database error"))
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

			res, err := NewBalanceRepository(db).Upsert(context.Background(), delta)

			if tt.expectError {
				if err == nil {
					t.Error("expected error, got nil")
				}
			} else {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				if res.Created != tt.expectedCreated {
					t.Errorf("expected created=%v, got %v", tt.expectedCreated, res.Created)
				}
				if !res.Balance.Equal(decimal.RequireFromString(tt.expectedBalance)) {
					t.Errorf("expected balance %s, got %s", tt.expectedBalance, res.Balance)
				}
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unfulfilled expectations: %v", err)
			}
		})
	}
}

func TestBalanceRepositoryGetByUser(t *testing.T) {
	now := time.Now()
	columns := []string{"user_id", "asset", "balance", "available_balance", "locked_balance", "created_at", "updated_at"}

	tests := []struct {
		name          string
		mockSetup     func(mock sqlmock.Sqlmock)
		expectError   bool
		expectedCount int
	}{
		{
			name: "two assets",
			mockSetup: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows(columns).
					AddRow("u-1", "BTC", "0.001", "0.001", "0", now, now).
					AddRow("u-1", "USD", "-100.5", "-100.5", "0", now, now)
				mock.ExpectQuery(`SELECT .+ FROM balances\s+WHERE user_id = \$1\s+ORDER BY asset`).
					WithArgs("u-1").
					WillReturnRows(rows)
			},
			expectedCount: 2,
		},
		{
			name: "unknown user",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT .+ FROM balances`).
					WithArgs("u-1").
					WillReturnRows(sqlmock.NewRows(columns))
			},
			expectedCount: 0,
		},
		{
			name: "database error",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT .+ FROM balances`).
					WithArgs("u-1").
					WillReturnError(errors.New("database error"))
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

			balances, err := NewBalanceRepository(db).GetByUser(context.Background(), "u-1")

			if tt.expectError {
				if err == nil {
					t.Error("expected error, got nil")
				}
			} else {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				if balances == nil {
					t.Fatal("expected non-nil slice")
				}
				if len(balances) != tt.expectedCount {
					t.Errorf("expected %d balances, got %d", tt.expectedCount, len(balances))
				}
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unfulfilled expectations: %v", err)
			}
		})
	}
}
