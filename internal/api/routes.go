package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"reconciler/internal/api/handlers"
	"reconciler/internal/api/middleware"
	"reconciler/internal/websocket"
)

// Dependencies содержит все зависимости для API handlers.
// Nil-зависимость отключает соответствующую группу маршрутов.
type Dependencies struct {
	Runner         handlers.RunStarter
	Runs           handlers.RunStore
	Balances       handlers.BalanceStore
	Orders         handlers.OrderStore
	Hub            *websocket.Hub
	AllowedOrigins string

	// Context - контекст фоновых проходов, запущенных через API
	Context context.Context
}

// SetupRoutes настраивает операторский HTTP интерфейс режима watch.
//
// Структура маршрутов:
//
//	/health              - GET, проверка живости
//	/metrics             - GET, Prometheus
//	/api/v1/
//	├── /runs            - GET последние проходы, POST запустить проход
//	├── /runs/{id}       - GET один проход
//	├── /balances/{userId} - GET балансы пользователя
//	└── /orders/{id}     - GET ордер
//	/ws/stream           - WebSocket поток orderReconciled / runCompleted
//
// Middleware применяется в следующем порядке:
// 1. Recovery
// 2. Logging
// 3. CORS
func SetupRoutes(deps *Dependencies) *mux.Router {
	if deps == nil {
		deps = &Dependencies{}
	}

	router := mux.NewRouter()

	router.Use(middleware.Recovery)
	router.Use(middleware.Logging)
	router.Use(middleware.CORS(deps.AllowedOrigins))

	api := router.PathPrefix("/api/v1").Subrouter()

	if deps.Runs != nil {
		runHandler := handlers.NewRunHandler(deps.Runner, deps.Runs).WithContext(deps.Context)
		api.HandleFunc("/runs", runHandler.GetRuns).Methods("GET")
		api.HandleFunc("/runs/{id:[0-9]+}", runHandler.GetRun).Methods("GET")
		if deps.Runner != nil {
			api.HandleFunc("/runs", runHandler.TriggerRun).Methods("POST")
		}
	}

	if deps.Balances != nil || deps.Orders != nil {
		ledgerHandler := handlers.NewLedgerHandler(deps.Balances, deps.Orders)
		if deps.Balances != nil {
			api.HandleFunc("/balances/{userId}", ledgerHandler.GetBalances).Methods("GET")
		}
		if deps.Orders != nil {
			api.HandleFunc("/orders/{id}", ledgerHandler.GetOrder).Methods("GET")
		}
	}

	if deps.Hub != nil {
		router.HandleFunc("/ws/stream", deps.Hub.ServeWS).Methods("GET")
	}

	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	return router
}
