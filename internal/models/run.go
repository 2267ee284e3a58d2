package models

import "time"

// Run - итог одного прохода сверки (таблица reconcile_runs)
type Run struct {
	ID           int64      `json:"id" db:"id"`
	StartedAt    time.Time  `json:"started_at" db:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty" db:"finished_at"`
	Trigger      string     `json:"trigger" db:"trigger"` // cli, schedule, api
	Total        int        `json:"total" db:"total"`
	Completed    int        `json:"completed" db:"completed"`
	Cancelled    int        `json:"cancelled" db:"cancelled"`
	Failed       int        `json:"failed" db:"failed"` // ордера с маппингом FAILED
	StillPending int        `json:"still_pending" db:"still_pending"`
	Errors       int        `json:"errors" db:"errors"`   // ошибки обработки (ордер пропущен)
	Settled      int        `json:"settled" db:"settled"` // проведено по леджеру
	Skipped      int        `json:"skipped" db:"skipped"` // исполнение уже было проведено
	Aborted      bool       `json:"aborted" db:"aborted"` // проход прерван по таймауту/отмене
	LastError    string     `json:"last_error,omitempty" db:"last_error"`
}

// Триггеры запуска
const (
	RunTriggerCLI      = "cli"
	RunTriggerSchedule = "schedule"
	RunTriggerAPI      = "api"
)

// Duration длительность прохода (0 если не завершён)
func (r *Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// HasErrors - хотя бы один ордер не удалось обработать
func (r *Run) HasErrors() bool {
	return r.Errors > 0
}

// Исходы обработки одного ордера
const (
	OutcomeCompleted = "completed"
	OutcomeCancelled = "cancelled"
	OutcomeFailed    = "failed"
	OutcomePending   = "pending"
	OutcomeSkipped   = "skipped" // ордер уже не PENDING или исполнение уже проведено
	OutcomeError     = "error"
)

// OrderOutcome - результат сверки одного ордера, публикуется наблюдателям
type OrderOutcome struct {
	RunID           int64       `json:"run_id"`
	OrderID         string      `json:"order_id"`
	ExternalOrderID string      `json:"external_order_id"`
	UserID          string      `json:"user_id"`
	Outcome         string      `json:"outcome"`
	Status          OrderStatus `json:"status,omitempty"`
	VenueStatus     string      `json:"venue_status,omitempty"`
	Settled         bool        `json:"settled"`
	Error           string      `json:"error,omitempty"`
	Timestamp       time.Time   `json:"timestamp"`
}
