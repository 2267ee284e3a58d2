package handlers

import (
	"context"
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"reconciler/internal/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrorResponse стандартный формат ответа об ошибке для всех API endpoints
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// SuccessResponse стандартный формат успешного ответа
type SuccessResponse struct {
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// ============ Зависимости handlers ============

// RunStarter запускает проход сверки в фоне
type RunStarter interface {
	Start(ctx context.Context, trigger string) error
}

// RunStore - журнал проходов
type RunStore interface {
	GetRecent(ctx context.Context, limit int) ([]*models.Run, error)
	GetByID(ctx context.Context, id int64) (*models.Run, error)
}

// BalanceStore - балансы пользователей
type BalanceStore interface {
	GetByUser(ctx context.Context, userID string) ([]*models.Balance, error)
}

// OrderStore - ордера
type OrderStore interface {
	GetByID(ctx context.Context, id string) (*models.Order, error)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	resp := ErrorResponse{Error: msg}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
