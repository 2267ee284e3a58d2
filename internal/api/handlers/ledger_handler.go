package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"reconciler/internal/models"
	"reconciler/internal/repository"
)

// LedgerHandler отдаёт состояние леджера: балансы и ордера.
//
// Endpoints:
// - GET /api/v1/balances/{userId} - балансы пользователя
// - GET /api/v1/orders/{id} - ордер с полями исполнения
type LedgerHandler struct {
	balances BalanceStore
	orders   OrderStore
}

// NewLedgerHandler создает новый LedgerHandler
func NewLedgerHandler(balances BalanceStore, orders OrderStore) *LedgerHandler {
	return &LedgerHandler{
		balances: balances,
		orders:   orders,
	}
}

// GetBalances возвращает балансы пользователя по всем активам.
//
// GET /api/v1/balances/{userId}
//
// Response 200 OK:
//
//	[{"user_id": "u-1", "asset": "BTC", "balance": "0.001", ...}]
func (h *LedgerHandler) GetBalances(w http.ResponseWriter, r *http.Request) {
	if h.balances == nil {
		writeError(w, http.StatusInternalServerError, "balance store not initialized", nil)
		return
	}

	userID := strings.TrimSpace(mux.Vars(r)["userId"])
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user id is required", nil)
		return
	}

	balances, err := h.balances.GetByUser(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get balances", err)
		return
	}

	if balances == nil {
		balances = []*models.Balance{}
	}
	writeJSON(w, http.StatusOK, balances)
}

// GetOrder возвращает ордер.
//
// GET /api/v1/orders/{id}
//
// Response 404 Not Found:
//
//	{"error": "order not found"}
func (h *LedgerHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	if h.orders == nil {
		writeError(w, http.StatusInternalServerError, "order store not initialized", nil)
		return
	}

	id := strings.TrimSpace(mux.Vars(r)["id"])
	if id == "" {
		writeError(w, http.StatusBadRequest, "order id is required", nil)
		return
	}

	order, err := h.orders.GetByID(r.Context(), id)
	if errors.Is(err, repository.ErrOrderNotFound) {
		writeError(w, http.StatusNotFound, "order not found", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get order", err)
		return
	}

	writeJSON(w, http.StatusOK, order)
}
