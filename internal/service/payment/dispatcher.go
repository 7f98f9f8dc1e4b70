// Package payment связывает уведомления платёжного шлюза с движком заказов.
package payment

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/campus-market/internal/domain"
)

// OrderBatchUpdater — подмножество движка, которое нужно диспетчеру.
type OrderBatchUpdater interface {
	UpdateOrderStatusAfterPayment(ctx context.Context, orderIDs []int64, paymentID string) (domain.BatchResult, error)
	CancelOrdersAfterPaymentFailure(ctx context.Context, orderIDs []int64, reason string) (domain.BatchResult, error)
}

// Dispatcher буферизует уведомления платёжного шлюза и применяет их к заказам
// пакетами. Результаты платежей приходят асинхронно и неравномерно, батчинг
// сглаживает нагрузку на хранилище.
type Dispatcher struct {
	engine OrderBatchUpdater
	logger *log.Entry

	// Конфигурация батчинга
	batchSize      int
	flushTimeout   time.Duration
	maxParallelOps int

	successCh chan successNotice
	failureCh chan failureNotice
	stopCh    chan struct{}
	wg        sync.WaitGroup

	successBatch []successNotice
	failureBatch []failureNotice
	mu           sync.Mutex
}

type successNotice struct {
	paymentID string
	orderIDs  []int64
}

type failureNotice struct {
	orderIDs []int64
	reason   string
}

// NewDispatcher создаёт диспетчер платёжных уведомлений.
func NewDispatcher(engine OrderBatchUpdater, logger *log.Entry) *Dispatcher {
	if logger == nil {
		logger = log.New().WithField("component", "payment-dispatcher")
	}

	return &Dispatcher{
		engine:         engine,
		logger:         logger,
		batchSize:      10,
		flushTimeout:   100 * time.Millisecond,
		maxParallelOps: 8,
		successCh:      make(chan successNotice, 100),
		failureCh:      make(chan failureNotice, 100),
		stopCh:         make(chan struct{}),
	}
}

// Start запускает воркеры диспетчера.
func (d *Dispatcher) Start(ctx context.Context) {
	d.wg.Add(2)

	go d.processSuccessBatch(ctx)
	go d.processFailureBatch(ctx)

	d.logger.Info("Payment dispatcher started")
}

// Stop останавливает диспетчер, дожидаясь обработки буферов.
func (d *Dispatcher) Stop() {
	close(d.stopCh)
	d.wg.Wait()
	d.logger.Info("Payment dispatcher stopped")
}

// PaymentSucceeded ставит успешный платёж в очередь на применение.
func (d *Dispatcher) PaymentSucceeded(paymentID string, orderIDs []int64) {
	notice := successNotice{paymentID: paymentID, orderIDs: orderIDs}
	select {
	case d.successCh <- notice:
	default:
		// Канал переполнен, применяем синхронно.
		d.logger.WithField("payment_id", paymentID).Warn("Success channel full, processing synchronously")
		d.applySuccess(notice)
	}
}

// PaymentFailed ставит неуспешный платёж в очередь на отмену заказов.
func (d *Dispatcher) PaymentFailed(orderIDs []int64, reason string) {
	notice := failureNotice{orderIDs: orderIDs, reason: reason}
	select {
	case d.failureCh <- notice:
	default:
		d.logger.WithField("order_ids", orderIDs).Warn("Failure channel full, processing synchronously")
		d.applyFailure(notice)
	}
}

func (d *Dispatcher) processSuccessBatch(ctx context.Context) {
	defer d.wg.Done()

	ticker := time.NewTicker(d.flushTimeout)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.flushSuccessBatch()
			return
		case <-d.stopCh:
			d.flushSuccessBatch()
			return
		case notice := <-d.successCh:
			d.mu.Lock()
			d.successBatch = append(d.successBatch, notice)
			shouldFlush := len(d.successBatch) >= d.batchSize
			d.mu.Unlock()

			if shouldFlush {
				d.flushSuccessBatch()
			}
		case <-ticker.C:
			d.flushSuccessBatch()
		}
	}
}

func (d *Dispatcher) processFailureBatch(ctx context.Context) {
	defer d.wg.Done()

	ticker := time.NewTicker(d.flushTimeout)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.flushFailureBatch()
			return
		case <-d.stopCh:
			d.flushFailureBatch()
			return
		case notice := <-d.failureCh:
			d.mu.Lock()
			d.failureBatch = append(d.failureBatch, notice)
			shouldFlush := len(d.failureBatch) >= d.batchSize
			d.mu.Unlock()

			if shouldFlush {
				d.flushFailureBatch()
			}
		case <-ticker.C:
			d.flushFailureBatch()
		}
	}
}

func (d *Dispatcher) flushSuccessBatch() {
	d.mu.Lock()
	batch := d.successBatch
	d.successBatch = nil
	d.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	d.logger.WithField("batch_size", len(batch)).Debug("Processing success batch")

	d.processInParallel(len(batch), func(index int) {
		d.applySuccess(batch[index])
	})
}

func (d *Dispatcher) flushFailureBatch() {
	d.mu.Lock()
	batch := d.failureBatch
	d.failureBatch = nil
	d.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	d.logger.WithField("batch_size", len(batch)).Debug("Processing failure batch")

	d.processInParallel(len(batch), func(index int) {
		d.applyFailure(batch[index])
	})
}

func (d *Dispatcher) applySuccess(notice successNotice) {
	result, err := d.engine.UpdateOrderStatusAfterPayment(context.Background(), notice.orderIDs, notice.paymentID)
	if err != nil {
		d.logger.WithError(err).WithField("payment_id", notice.paymentID).Error("Failed to apply payment")
		return
	}
	for _, failure := range result.Failed {
		d.logger.WithFields(log.Fields{
			"payment_id": notice.paymentID,
			"order_id":   failure.OrderID,
			"error_code": failure.Code,
		}).Warn("Order was not marked as paid")
	}
}

func (d *Dispatcher) applyFailure(notice failureNotice) {
	result, err := d.engine.CancelOrdersAfterPaymentFailure(context.Background(), notice.orderIDs, notice.reason)
	if err != nil {
		d.logger.WithError(err).WithField("order_ids", notice.orderIDs).Error("Failed to cancel orders")
		return
	}
	for _, failure := range result.Failed {
		d.logger.WithFields(log.Fields{
			"order_id":   failure.OrderID,
			"error_code": failure.Code,
		}).Warn("Order was not cancelled")
	}
}

func (d *Dispatcher) processInParallel(size int, processFn func(index int)) {
	if size == 0 {
		return
	}

	limit := d.maxParallelOps
	if limit <= 0 {
		limit = 1
	}
	if limit > size {
		limit = size
	}

	semaphore := make(chan struct{}, limit)
	var wg sync.WaitGroup
	for idx := 0; idx < size; idx++ {
		wg.Add(1)
		semaphore <- struct{}{}
		go func(index int) {
			defer wg.Done()
			defer func() { <-semaphore }()
			processFn(index)
		}(idx)
	}

	wg.Wait()
}
