package repository

import (
	"context"
	"database/sql"
	"errors"

	"reconciler/internal/models"
)

// Ошибки репозитория проходов
var (
	ErrRunNotFound = errors.New("reconcile run not found")
)

// RunRepository - журнал проходов сверки (таблица reconcile_runs)
type RunRepository struct {
	db DBTX
}

// NewRunRepository создает новый экземпляр репозитория
func NewRunRepository(db DBTX) *RunRepository {
	return &RunRepository{db: db}
}

// Create записывает начало прохода и заполняет run.ID
func (r *RunRepository) Create(ctx context.Context, run *models.Run) error {
	query := `
		INSERT INTO reconcile_runs (started_at, trigger)
		VALUES ($1, $2)
		RETURNING id`

	return r.db.QueryRowContext(ctx, query, run.StartedAt, run.Trigger).Scan(&run.ID)
}

// Finish записывает итог прохода
func (r *RunRepository) Finish(ctx context.Context, run *models.Run) error {
	query := `
		UPDATE reconcile_runs
		SET finished_at = $2, total = $3, completed = $4, cancelled = $5, failed = $6,
			still_pending = $7, errors = $8, settled = $9, skipped = $10, aborted = $11, last_error = $12
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query,
		run.ID,
		run.FinishedAt,
		run.Total,
		run.Completed,
		run.Cancelled,
		run.Failed,
		run.StillPending,
		run.Errors,
		run.Settled,
		run.Skipped,
		run.Aborted,
		run.LastError,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrRunNotFound
	}

	return nil
}

// GetRecent возвращает последние N проходов, новые первыми
func (r *RunRepository) GetRecent(ctx context.Context, limit int) ([]*models.Run, error) {
	query := `
		SELECT id, started_at, finished_at, trigger, total, completed, cancelled, failed,
			still_pending, errors, settled, skipped, aborted, last_error
		FROM reconcile_runs
		ORDER BY started_at DESC, id DESC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []*models.Run{}
	for rows.Next() {
		run := &models.Run{}
		err := rows.Scan(
			&run.ID,
			&run.StartedAt,
			&run.FinishedAt,
			&run.Trigger,
			&run.Total,
			&run.Completed,
			&run.Cancelled,
			&run.Failed,
			&run.StillPending,
			&run.Errors,
			&run.Settled,
			&run.Skipped,
			&run.Aborted,
			&run.LastError,
		)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return runs, nil
}

// GetByID возвращает проход по ID
func (r *RunRepository) GetByID(ctx context.Context, id int64) (*models.Run, error) {
	query := `
		SELECT id, started_at, finished_at, trigger, total, completed, cancelled, failed,
			still_pending, errors, settled, skipped, aborted, last_error
		FROM reconcile_runs
		WHERE id = $1`

	run := &models.Run{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&run.ID,
		&run.StartedAt,
		&run.FinishedAt,
		&run.Trigger,
		&run.Total,
		&run.Completed,
		&run.Cancelled,
		&run.Failed,
		&run.StillPending,
		&run.Errors,
		&run.Settled,
		&run.Skipped,
		&run.Aborted,
		&run.LastError,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}

	return run, nil
}
