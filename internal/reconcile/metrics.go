package reconcile

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ============================================================
// Prometheus метрики сверки
// ============================================================

// ============ Ордера ============

// OrdersProcessed - обработанные ордера по исходу
var OrdersProcessed = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "reconciler",
		Subsystem: "orders",
		Name:      "processed_total",
		Help:      "Total number of reconciled orders by outcome",
	},
	[]string{"outcome"},
)

// VenueRequestLatency - время запроса состояния ордера на площадке
var VenueRequestLatency = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "reconciler",
		Subsystem: "venue",
		Name:      "request_latency_ms",
		Help:      "Venue GetOrder latency in milliseconds",
		Buckets:   []float64{25, 50, 100, 200, 400, 800, 1600, 3200, 6400},
	},
	[]string{"venue", "result"},
)

// ============ Леджер ============

// BalanceMutations - применённые ноги баланса
var BalanceMutations = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "reconciler",
		Subsystem: "ledger",
		Name:      "balance_mutations_total",
		Help:      "Total number of applied balance legs",
	},
	[]string{"direction"}, // credit, debit
)

// NegativeBalanceCreates - строки баланса, созданные с отрицательным значением
var NegativeBalanceCreates = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "reconciler",
		Subsystem: "ledger",
		Name:      "negative_balance_creates_total",
		Help:      "Balance rows created with a negative value",
	},
	[]string{"asset"},
)

// DuplicateFills - исполнения, которые уже были проведены
var DuplicateFills = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "reconciler",
		Subsystem: "ledger",
		Name:      "duplicate_fills_total",
		Help:      "Fills skipped because they were already settled",
	},
)

// ============ Проходы ============

// RunDuration - длительность прохода
var RunDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "reconciler",
		Subsystem: "run",
		Name:      "duration_seconds",
		Help:      "Duration of a reconciliation pass in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
	},
)

// LastRunTimestamp - время завершения последнего прохода
var LastRunTimestamp = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "reconciler",
		Subsystem: "run",
		Name:      "last_completed_timestamp_seconds",
		Help:      "Unix time of the last completed pass",
	},
)

// RunErrors - ошибки обработки ордеров в последнем проходе
var RunErrors = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "reconciler",
		Subsystem: "run",
		Name:      "last_errors",
		Help:      "Number of per-order errors in the last pass",
	},
)

// ============ Вспомогательные функции ============

// RecordOrderOutcome записывает исход обработки ордера
func RecordOrderOutcome(outcome string) {
	OrdersProcessed.WithLabelValues(outcome).Inc()
}

// RecordVenueLatency записывает латентность запроса к площадке
func RecordVenueLatency(venueName string, d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	VenueRequestLatency.WithLabelValues(venueName, result).Observe(float64(d.Microseconds()) / 1000)
}

// RecordBalanceMutation записывает применённую ногу
func RecordBalanceMutation(credit bool) {
	direction := "debit"
	if credit {
		direction = "credit"
	}
	BalanceMutations.WithLabelValues(direction).Inc()
}

// RecordNegativeCreate записывает создание отрицательного баланса
func RecordNegativeCreate(asset string) {
	NegativeBalanceCreates.WithLabelValues(asset).Inc()
}

// RecordRun записывает итог прохода
func RecordRun(d time.Duration, errCount int, finishedAt time.Time) {
	RunDuration.Observe(d.Seconds())
	RunErrors.Set(float64(errCount))
	LastRunTimestamp.Set(float64(finishedAt.Unix()))
}
