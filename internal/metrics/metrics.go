// Package metrics 帳本操作的 Prometheus 指標
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
)

var (
	// OperationsTotal 每種操作的次數，依結果分類
	OperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bank_ledger",
		Name:      "operations_total",
		Help:      "Ledger operations by operation and result.",
	}, []string{"operation", "result"})

	// OperationDuration 操作耗時 (含資料庫交易)
	OperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "bank_ledger",
		Name:      "operation_duration_seconds",
		Help:      "Ledger operation latency.",
		Buckets:   []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"operation"})

	// EventsPublishFailed 事件發佈失敗次數
	EventsPublishFailed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bank_ledger",
		Name:      "events_publish_failed_total",
		Help:      "Ledger events that could not be published after commit.",
	})
)

// Observe 記錄一次操作
func Observe(operation string, start time.Time, err error) {
	OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	OperationsTotal.WithLabelValues(operation, Result(err)).Inc()
}

// Result 把錯誤轉成 label
func Result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, domain.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, domain.ErrTransferFailed):
		return "transfer_failed"
	case errors.Is(err, domain.ErrStoreUnavailable):
		return "store_unavailable"
	default:
		return "error"
	}
}
