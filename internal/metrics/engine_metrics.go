package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics содержит метрики операций движка заказов.
type EngineMetrics struct {
	// Счётчики жизненного цикла
	ordersCreated   prometheus.Counter
	ordersPaid      prometheus.Counter
	ordersCancelled prometheus.Counter
	ordersShipped   prometheus.Counter
	ordersCompleted prometheus.Counter
	ordersRefunded  prometheus.Counter

	// Счётчики отказов
	lockContention    prometheus.Counter
	permissionDenials prometheus.Counter
	rollbacks         prometheus.Counter

	// Гистограмма времени выполнения операций
	operationDuration *prometheus.HistogramVec
}

// NewEngineMetrics создаёт метрики движка в default registry.
func NewEngineMetrics() *EngineMetrics {
	return newEngineMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newEngineMetricsWithRegisterer(registerer prometheus.Registerer) *EngineMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &EngineMetrics{
		ordersCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "market_orders_created_total",
			Help: "Total number of orders created",
		}),
		ordersPaid: registerCounter(registerer, prometheus.CounterOpts{
			Name: "market_orders_paid_total",
			Help: "Total number of orders transitioned to awaiting shipping after payment",
		}),
		ordersCancelled: registerCounter(registerer, prometheus.CounterOpts{
			Name: "market_orders_cancelled_total",
			Help: "Total number of orders cancelled",
		}),
		ordersShipped: registerCounter(registerer, prometheus.CounterOpts{
			Name: "market_orders_shipped_total",
			Help: "Total number of orders shipped by sellers",
		}),
		ordersCompleted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "market_orders_completed_total",
			Help: "Total number of orders completed by buyers",
		}),
		ordersRefunded: registerCounter(registerer, prometheus.CounterOpts{
			Name: "market_orders_refunded_total",
			Help: "Total number of orders refunded through the return flow",
		}),
		lockContention: registerCounter(registerer, prometheus.CounterOpts{
			Name: "market_product_lock_contention_total",
			Help: "Total number of failed conditional product status updates",
		}),
		permissionDenials: registerCounter(registerer, prometheus.CounterOpts{
			Name: "market_permission_denials_total",
			Help: "Total number of operations rejected due to actor mismatch",
		}),
		rollbacks: registerCounter(registerer, prometheus.CounterOpts{
			Name: "market_create_rollbacks_total",
			Help: "Total number of product lock rollbacks during failed order creation",
		}),
		operationDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "market_engine_operation_duration_seconds",
			Help:    "Duration of order engine operations in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"operation"}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

// RecordOrderCreated увеличивает счётчик созданных заказов.
func (m *EngineMetrics) RecordOrderCreated() {
	m.ordersCreated.Inc()
}

// RecordOrderPaid увеличивает счётчик оплаченных заказов.
func (m *EngineMetrics) RecordOrderPaid() {
	m.ordersPaid.Inc()
}

// RecordOrderCancelled увеличивает счётчик отменённых заказов.
func (m *EngineMetrics) RecordOrderCancelled() {
	m.ordersCancelled.Inc()
}

// RecordOrderShipped увеличивает счётчик отправленных заказов.
func (m *EngineMetrics) RecordOrderShipped() {
	m.ordersShipped.Inc()
}

// RecordOrderCompleted увеличивает счётчик завершённых заказов.
func (m *EngineMetrics) RecordOrderCompleted() {
	m.ordersCompleted.Inc()
}

// RecordOrderRefunded увеличивает счётчик возвращённых заказов.
func (m *EngineMetrics) RecordOrderRefunded() {
	m.ordersRefunded.Inc()
}

// RecordLockContention фиксирует проигранную гонку за блокировку товара.
func (m *EngineMetrics) RecordLockContention() {
	m.lockContention.Inc()
}

// RecordPermissionDenied фиксирует отказ из-за несовпадения актора.
func (m *EngineMetrics) RecordPermissionDenied() {
	m.permissionDenials.Inc()
}

// RecordRollback фиксирует откат блокировок при неудачном создании заказов.
func (m *EngineMetrics) RecordRollback() {
	m.rollbacks.Inc()
}

// RecordOperationDuration записывает время выполнения операции движка.
func (m *EngineMetrics) RecordOperationDuration(operation string, duration time.Duration) {
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
