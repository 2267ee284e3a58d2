package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"reconciler/internal/models"
)

// ============================================================
// RunRepository Tests
// ============================================================

var runColumnNames = []string{
	"id", "started_at", "finished_at", "trigger", "total", "completed", "cancelled", "failed",
	"still_pending", "errors", "settled", "skipped", "aborted", "last_error",
}

func TestRunRepositoryCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	started := time.Now()
	mock.ExpectQuery(`INSERT INTO reconcile_runs`).
		WithArgs(started, models.RunTriggerCLI).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

	run := &models.Run{StartedAt: started, Trigger: models.RunTriggerCLI}
	if err := NewRunRepository(db).Create(context.Background(), run); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.ID != 42 {
		t.Errorf("expected ID=42, got %d", run.ID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestRunRepositoryFinish(t *testing.T) {
	finished := time.Now()
	run := &models.Run{
		ID:           7,
		FinishedAt:   &finished,
		Total:        4,
		Completed:    1,
		Cancelled:    1,
		StillPending: 1,
		Errors:       1,
		Settled:      1,
		LastError:    "venue unavailable",
	}

	tests := []struct {
		name        string
		mockSetup   func(mock sqlmock.Sqlmock)
		expectedErr error
		expectError bool
	}{
		{
			name: "success",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE reconcile_runs`).
					WithArgs(int64(7), &finished, 4, 1, 1, 0, 1, 1, 1, 0, false, "venue unavailable").
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "not found",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE reconcile_runs`).
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
			expectedErr: ErrRunNotFound,
			expectError: true,
		},
		{
			name: "database error",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE reconcile_runs`).
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

			err = NewRunRepository(db).Finish(context.Background(), run)

			if tt.expectError {
				if err == nil {
					t.Error("expected error, got nil")
				}
				if tt.expectedErr != nil && !errors.Is(err, tt.expectedErr) {
					t.Errorf("expected %v, got %v", tt.expectedErr, err)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unfulfilled expectations: %v", err)
			}
		})
	}
}

func TestRunRepositoryGetRecent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows(runColumnNames).
		AddRow(2, now, now, "schedule", 3, 1, 0, 0, 2, 0, 1, 0, false, "").
		AddRow(1, now.Add(-time.Minute), nil, "cli", 0, 0, 0, 0, 0, 0, 0, 0, true, "context deadline exceeded")
	mock.ExpectQuery(`SELECT .+ FROM reconcile_runs\s+ORDER BY started_at DESC, id DESC\s+LIMIT \$1`).
		WithArgs(20).
		WillReturnRows(rows)

	runs, err := NewRunRepository(db).GetRecent(context.Background(), 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != 2 || runs[0].Settled != 1 {
		t.Errorf("unexpected first run: %+v", runs[0])
	}
	if runs[1].FinishedAt != nil || !runs[1].Aborted {
		t.Errorf("second run must be unfinished and aborted: %+v", runs[1])
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestRunRepositoryGetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT .+ FROM reconcile_runs\s+WHERE id = \$1`).
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows(runColumnNames))

	_, err = NewRunRepository(db).GetByID(context.Background(), 99)
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
