package websocket

import (
	"time"

	"reconciler/internal/models"
)

// MessageType определяет тип WebSocket сообщения
type MessageType string

// Типы WebSocket сообщений
const (
	// MessageTypeOrderReconciled - ордер обработан в проходе сверки.
	// Отправляется для каждого ордера, включая ошибки.
	MessageTypeOrderReconciled MessageType = "orderReconciled"

	// MessageTypeRunCompleted - проход сверки завершён
	MessageTypeRunCompleted MessageType = "runCompleted"
)

// BaseMessage - базовая структура для всех WebSocket сообщений
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
}

// OrderReconciledMessage - результат сверки одного ордера
type OrderReconciledMessage struct {
	BaseMessage
	Data *models.OrderOutcome `json:"data"`
}

// RunCompletedMessage - итог прохода
type RunCompletedMessage struct {
	BaseMessage
	Data *RunSummary `json:"data"`
}

// RunSummary - итог прохода для наблюдателей
type RunSummary struct {
	RunID        int64  `json:"run_id"`
	Trigger      string `json:"trigger"`
	Total        int    `json:"total"`
	Completed    int    `json:"completed"`
	Cancelled    int    `json:"cancelled"`
	Failed       int    `json:"failed"`
	StillPending int    `json:"still_pending"`
	Skipped      int    `json:"skipped"`
	Settled      int    `json:"settled"`
	Errors       int    `json:"errors"`
	Aborted      bool   `json:"aborted"`
	DurationMs   int64  `json:"duration_ms"`
}

// ============ Фабричные функции для создания сообщений ============

// NewOrderReconciledMessage создает сообщение о сверке ордера
func NewOrderReconciledMessage(outcome models.OrderOutcome) *OrderReconciledMessage {
	return &OrderReconciledMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeOrderReconciled,
			Timestamp: time.Now(),
		},
		Data: &outcome,
	}
}

// NewRunCompletedMessage создает сообщение об итоге прохода
func NewRunCompletedMessage(run *models.Run) *RunCompletedMessage {
	return &RunCompletedMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeRunCompleted,
			Timestamp: time.Now(),
		},
		Data: &RunSummary{
			RunID:        run.ID,
			Trigger:      run.Trigger,
			Total:        run.Total,
			Completed:    run.Completed,
			Cancelled:    run.Cancelled,
			Failed:       run.Failed,
			StillPending: run.StillPending,
			Skipped:      run.Skipped,
			Settled:      run.Settled,
			Errors:       run.Errors,
			Aborted:      run.Aborted,
			DurationMs:   run.Duration().Milliseconds(),
		},
	}
}
