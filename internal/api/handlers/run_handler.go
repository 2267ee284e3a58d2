package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"reconciler/internal/models"
	"reconciler/internal/reconcile"
	"reconciler/internal/repository"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 100
)

// RunHandler обрабатывает HTTP запросы к проходам сверки.
//
// Endpoints:
// - GET /api/v1/runs?limit=N - последние проходы
// - GET /api/v1/runs/{id} - один проход
// - POST /api/v1/runs - запустить проход сейчас
type RunHandler struct {
	runner  RunStarter
	runs    RunStore
	baseCtx context.Context
}

// NewRunHandler создает новый RunHandler
func NewRunHandler(runner RunStarter, runs RunStore) *RunHandler {
	return &RunHandler{
		runner:  runner,
		runs:    runs,
		baseCtx: context.Background(),
	}
}

// WithContext задаёт контекст фоновых проходов: его отмена прерывает проход,
// запущенный через POST /api/v1/runs
func (h *RunHandler) WithContext(ctx context.Context) *RunHandler {
	if ctx != nil {
		h.baseCtx = ctx
	}
	return h
}

// GetRuns возвращает последние проходы, новые первыми.
//
// GET /api/v1/runs?limit=20
//
// Query Parameters:
// - limit (optional): по умолчанию 20, максимум 100
//
// Response 200 OK:
//
//	[{"id": 12, "trigger": "schedule", "total": 4, "completed": 2, ...}]
func (h *RunHandler) GetRuns(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		writeError(w, http.StatusInternalServerError, "run store not initialized", nil)
		return
	}

	limit := defaultRunsLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit", err)
			return
		}
		limit = parsed
		if limit > maxRunsLimit {
			limit = maxRunsLimit
		}
	}

	runs, err := h.runs.GetRecent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get runs", err)
		return
	}

	// пустой список возвращается как [], а не null
	if runs == nil {
		runs = []*models.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// GetRun возвращает проход по id.
//
// GET /api/v1/runs/{id}
//
// Response 404 Not Found:
//
//	{"error": "run not found"}
func (h *RunHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		writeError(w, http.StatusInternalServerError, "run store not initialized", nil)
		return
	}

	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid run id", err)
		return
	}

	run, err := h.runs.GetByID(r.Context(), id)
	if errors.Is(err, repository.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, "run not found", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get run", err)
		return
	}

	writeJSON(w, http.StatusOK, run)
}

// TriggerRun запускает проход в фоне.
//
// POST /api/v1/runs
//
// Response 202 Accepted:
//
//	{"message": "reconciliation pass started"}
//
// Response 409 Conflict:
//
//	{"error": "reconciliation pass already in progress"}
func (h *RunHandler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	if h.runner == nil {
		writeError(w, http.StatusInternalServerError, "runner not initialized", nil)
		return
	}

	// проход не привязан к запросу: клиент может отключиться
	err := h.runner.Start(h.baseCtx, models.RunTriggerAPI)
	if errors.Is(err, reconcile.ErrRunInProgress) {
		writeError(w, http.StatusConflict, err.Error(), nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to start pass", err)
		return
	}

	writeJSON(w, http.StatusAccepted, SuccessResponse{Message: "reconciliation pass started"})
}
