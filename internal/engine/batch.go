package engine

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/campus-market/internal/domain"
	"github.com/vladislavdragonenkov/campus-market/internal/messaging/kafka"
)

// Батч-операции платёжного адаптера намеренно не атомарны между заказами:
// один платёж может покрывать несколько заказов из корзины, но претензия
// каждого заказа на товар независима. Ошибка по одному идентификатору не
// блокирует остальные, повторный вызов по уже переведённому заказу — чистый
// no-op отказ, а не порча данных.

// UpdateOrderStatusAfterPayment переводит заказы из AWAITING_PAYMENT в
// AWAITING_SHIPPING после подтверждения оплаты, фиксируя paymentID.
func (e *Engine) UpdateOrderStatusAfterPayment(ctx context.Context, orderIDs []int64, paymentID string) (domain.BatchResult, error) {
	start := time.Now()
	defer e.observeOp("payment_batch", start)

	if len(orderIDs) == 0 || paymentID == "" {
		return domain.BatchResult{}, domain.ErrInvalidParams
	}

	var result domain.BatchResult
	for _, orderID := range orderIDs {
		if err := e.markOrderPaid(ctx, orderID, paymentID); err != nil {
			result.AddFailure(orderID, err)
			continue
		}
		result.Succeeded = append(result.Succeeded, orderID)
	}

	return result, nil
}

func (e *Engine) markOrderPaid(ctx context.Context, orderID int64, paymentID string) error {
	if orderID <= 0 {
		return domain.ErrInvalidParams
	}

	order, err := e.orders.Get(ctx, orderID)
	if err != nil {
		if !errors.Is(err, domain.ErrOrderNotFound) {
			e.logger.WithError(err).WithField("order_id", orderID).Error("failed to load order for payment")
		}
		return err
	}

	if _, err := domain.Transition(order.Status, domain.OperationPayment); err != nil {
		return err
	}

	ok, err := e.orders.MarkPaid(ctx, orderID, paymentID)
	if err != nil {
		e.logger.WithError(err).WithField("order_id", orderID).Error("failed to mark order paid")
		return err
	}
	if !ok {
		// Статус ушёл между чтением и CAS — конкурирующий вызов успел раньше.
		return domain.WrongStateError(domain.OperationPayment)
	}

	if e.metrics != nil {
		e.metrics.RecordOrderPaid()
	}
	order.Status = domain.OrderStatusAwaitingShipping
	order.PaymentID = paymentID
	e.publishOrderEvent(kafka.EventTypeOrderPaid, order, map[string]interface{}{
		"payment_id": paymentID,
	})

	return nil
}

// CancelOrdersAfterPaymentFailure отменяет заказы после неуспешной оплаты и
// возвращает их товары в продажу.
func (e *Engine) CancelOrdersAfterPaymentFailure(ctx context.Context, orderIDs []int64, reason string) (domain.BatchResult, error) {
	start := time.Now()
	defer e.observeOp("cancel_batch", start)

	if len(orderIDs) == 0 {
		return domain.BatchResult{}, domain.ErrInvalidParams
	}

	var result domain.BatchResult
	for _, orderID := range orderIDs {
		if err := e.cancelOrder(ctx, orderID, reason); err != nil {
			result.AddFailure(orderID, err)
			continue
		}
		result.Succeeded = append(result.Succeeded, orderID)
	}

	return result, nil
}

func (e *Engine) cancelOrder(ctx context.Context, orderID int64, reason string) error {
	if orderID <= 0 {
		return domain.ErrInvalidParams
	}

	order, err := e.orders.Get(ctx, orderID)
	if err != nil {
		if !errors.Is(err, domain.ErrOrderNotFound) {
			e.logger.WithError(err).WithField("order_id", orderID).Error("failed to load order for cancel")
		}
		return err
	}

	next, err := domain.Transition(order.Status, domain.OperationCancel)
	if err != nil {
		return err
	}

	ok, err := e.orders.UpdateStatus(ctx, orderID, order.Status, next)
	if err != nil {
		e.logger.WithError(err).WithField("order_id", orderID).Error("failed to cancel order")
		return err
	}
	if !ok {
		return domain.WrongStateError(domain.OperationCancel)
	}

	// Снимаем претензию заказа на товар. Неудача не отменяет отмену:
	// товар мог быть уже разблокирован или снят с продажи модерацией.
	e.releaseProduct(ctx, order.ProductID)

	if e.metrics != nil {
		e.metrics.RecordOrderCancelled()
	}
	order.Status = domain.OrderStatusCancelled
	e.publishOrderEvent(kafka.EventTypeOrderCancelled, order, map[string]interface{}{
		"reason": reason,
	})

	return nil
}

// releaseProduct возвращает товар в продажу из LOCKED; best-effort.
func (e *Engine) releaseProduct(ctx context.Context, productID int64) {
	ok, err := e.products.UpdateStatus(ctx, productID, domain.ProductStatusLocked, domain.ProductStatusOnSale)
	if err != nil || !ok {
		e.logger.WithError(err).WithFields(log.Fields{
			"product_id": productID,
		}).Warn("failed to release product back to sale")
	}
}
