package engine

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/campus-market/internal/domain"
	"github.com/vladislavdragonenkov/campus-market/internal/messaging/kafka"
)

// ShipOrder фиксирует отправку товара продавцом: AWAITING_SHIPPING → SHIPPED.
func (e *Engine) ShipOrder(ctx context.Context, orderID, sellerID int64) (domain.Result, error) {
	start := time.Now()
	defer e.observeOp("ship_order", start)

	if orderID <= 0 || sellerID <= 0 {
		return domain.Fail(domain.ErrInvalidParams), nil
	}

	order, err := e.loadOrder(ctx, orderID, "ShipOrder")
	if err != nil {
		return e.failOrInfra(err)
	}

	// Авторизация проверяется раньше статуса: чужой актор не должен узнавать
	// состояние заказа по коду ошибки.
	if order.SellerID != sellerID {
		e.denyPermission("ShipOrder", orderID, sellerID)
		return domain.Fail(domain.ErrShipPermissionDenied), nil
	}

	next, err := domain.Transition(order.Status, domain.OperationShip)
	if err != nil {
		return domain.Fail(err), nil
	}

	ok, err := e.orders.UpdateStatus(ctx, orderID, order.Status, next)
	if err != nil {
		return domain.Result{}, err
	}
	if !ok {
		return domain.Fail(domain.WrongStateError(domain.OperationShip)), nil
	}

	if e.metrics != nil {
		e.metrics.RecordOrderShipped()
	}
	order.Status = next
	e.publishOrderEvent(kafka.EventTypeOrderShipped, order, nil)

	return domain.OK(domain.NewOrderData(order)), nil
}

// ConfirmReceipt подтверждает получение покупателем: SHIPPED → COMPLETED,
// товар переводится в SOLD.
func (e *Engine) ConfirmReceipt(ctx context.Context, orderID, buyerID int64) (domain.Result, error) {
	start := time.Now()
	defer e.observeOp("confirm_receipt", start)

	if orderID <= 0 || buyerID <= 0 {
		return domain.Fail(domain.ErrInvalidParams), nil
	}

	order, err := e.loadOrder(ctx, orderID, "ConfirmReceipt")
	if err != nil {
		return e.failOrInfra(err)
	}

	if order.BuyerID != buyerID {
		e.denyPermission("ConfirmReceipt", orderID, buyerID)
		return domain.Fail(domain.ErrConfirmReceiptPermissionDenied), nil
	}

	next, err := domain.Transition(order.Status, domain.OperationConfirmReceipt)
	if err != nil {
		return domain.Fail(err), nil
	}

	// Сначала товар: если его не удаётся перевести в SOLD, заказ не трогаем.
	sold, err := e.products.UpdateStatus(ctx, order.ProductID, domain.ProductStatusLocked, domain.ProductStatusSold)
	if err != nil {
		return domain.Result{}, err
	}
	if !sold {
		e.logger.WithFields(log.Fields{
			"order_id":   orderID,
			"product_id": order.ProductID,
		}).Error("product was not locked when confirming receipt")
		return domain.Fail(domain.ErrUpdateProductToSoldFailed), nil
	}

	ok, err := e.orders.UpdateStatus(ctx, orderID, order.Status, next)
	if err != nil || !ok {
		// Компенсация: заказ не перешёл, возвращаем товар в LOCKED.
		if _, rbErr := e.products.UpdateStatus(ctx, order.ProductID, domain.ProductStatusSold, domain.ProductStatusLocked); rbErr != nil {
			e.logger.WithError(rbErr).WithField("product_id", order.ProductID).Error("failed to roll back product to locked")
		}
		if err != nil {
			return domain.Result{}, err
		}
		return domain.Fail(domain.WrongStateError(domain.OperationConfirmReceipt)), nil
	}

	if e.metrics != nil {
		e.metrics.RecordOrderCompleted()
	}
	order.Status = next
	e.publishOrderEvent(kafka.EventTypeOrderCompleted, order, nil)

	data := domain.NewOrderData(order)
	data.ProductStatus = domain.ProductStatusSold
	return domain.OK(data), nil
}

// ApplyForReturn регистрирует запрос возврата покупателем из SHIPPED или COMPLETED.
func (e *Engine) ApplyForReturn(ctx context.Context, orderID int64, reason string, buyerID int64) (domain.Result, error) {
	start := time.Now()
	defer e.observeOp("apply_return", start)

	if orderID <= 0 || buyerID <= 0 {
		return domain.Fail(domain.ErrInvalidParams), nil
	}

	order, err := e.loadOrder(ctx, orderID, "ApplyForReturn")
	if err != nil {
		return e.failOrInfra(err)
	}

	if order.BuyerID != buyerID {
		e.denyPermission("ApplyForReturn", orderID, buyerID)
		return domain.Fail(domain.ErrApplyReturnPermissionDenied), nil
	}

	if _, err := domain.Transition(order.Status, domain.OperationApplyReturn); err != nil {
		return domain.Fail(err), nil
	}

	ok, err := e.orders.RequestReturn(ctx, orderID, reason)
	if err != nil {
		return domain.Result{}, err
	}
	if !ok {
		return domain.Fail(domain.WrongStateError(domain.OperationApplyReturn)), nil
	}

	order.StatusBeforeReturn = order.Status
	order.Status = domain.OrderStatusReturnRequested
	order.ReturnReason = reason
	e.publishOrderEvent(kafka.EventTypeOrderReturnRequested, order, map[string]interface{}{
		"reason": reason,
	})

	return domain.OK(domain.NewOrderData(order)), nil
}

// ProcessReturnRequest закрывает запрос возврата решением продавца.
// Одобрение запускает процессор возвратов и завершает заказ в REFUNDED;
// отказ возвращает заказ в статус до запроса возврата.
func (e *Engine) ProcessReturnRequest(ctx context.Context, orderID int64, approved bool, rejectReason string, sellerID int64) (domain.Result, error) {
	start := time.Now()
	defer e.observeOp("process_return", start)

	if orderID <= 0 || sellerID <= 0 {
		return domain.Fail(domain.ErrInvalidParams), nil
	}

	order, err := e.loadOrder(ctx, orderID, "ProcessReturnRequest")
	if err != nil {
		return e.failOrInfra(err)
	}

	if order.SellerID != sellerID {
		e.denyPermission("ProcessReturnRequest", orderID, sellerID)
		return domain.Fail(domain.ErrProcessReturnPermissionDenied), nil
	}

	if order.Status != domain.OrderStatusReturnRequested {
		return domain.Fail(domain.WrongStateError(domain.OperationApproveReturn)), nil
	}

	if !approved {
		return e.rejectReturn(ctx, order, rejectReason)
	}

	return e.approveReturn(ctx, order)
}

func (e *Engine) approveReturn(ctx context.Context, order domain.Order) (domain.Result, error) {
	next, err := domain.Transition(order.Status, domain.OperationApproveReturn)
	if err != nil {
		return domain.Fail(err), nil
	}

	// Сначала CAS: заказ переходит в REFUNDED до движения денег, чтобы
	// запрос, проигравший гонку за RETURN_REQUESTED, не успел провести
	// второй возврат.
	ok, err := e.orders.ResolveReturn(ctx, order.ID, next, "")
	if err != nil {
		return domain.Result{}, err
	}
	if !ok {
		return domain.Fail(domain.WrongStateError(domain.OperationApproveReturn)), nil
	}

	refundTx, err := e.refunds.ProcessRefund(ctx, &order, order.ReturnReason)
	if err != nil || refundTx == nil {
		e.logger.WithError(err).WithField("order_id", order.ID).Error("refund processing failed")
		// Компенсация: заказ возвращается в RETURN_REQUESTED, запрос возврата
		// можно обработать повторно.
		if rolled, rbErr := e.orders.UpdateStatus(ctx, order.ID, next, domain.OrderStatusReturnRequested); rbErr != nil || !rolled {
			e.logger.WithError(rbErr).WithField("order_id", order.ID).Error("failed to roll back order to return requested")
		}
		return domain.Fail(domain.ErrRefundFailed), nil
	}

	// Претензия возвращённого заказа на товар снята: товар возвращается в
	// продажу и из LOCKED, и из SOLD.
	from := domain.ProductStatusLocked
	if order.StatusBeforeReturn == domain.OrderStatusCompleted {
		from = domain.ProductStatusSold
	}
	if released, relErr := e.products.UpdateStatus(ctx, order.ProductID, from, domain.ProductStatusOnSale); relErr != nil || !released {
		e.logger.WithError(relErr).WithField("product_id", order.ProductID).Warn("failed to relist product after refund")
	}

	if e.metrics != nil {
		e.metrics.RecordOrderRefunded()
	}
	order.Status = next
	e.publishOrderEvent(kafka.EventTypeOrderRefunded, order, map[string]interface{}{
		"refund_id": refundTx.RefundID,
	})

	return domain.OK(domain.NewOrderData(order)), nil
}

func (e *Engine) rejectReturn(ctx context.Context, order domain.Order, rejectReason string) (domain.Result, error) {
	restored := order.StatusBeforeReturn
	if restored != domain.OrderStatusShipped && restored != domain.OrderStatusCompleted {
		// Метаданные возврата повреждены; безопасный статус — COMPLETED.
		e.logger.WithFields(log.Fields{
			"order_id": order.ID,
			"restored": restored,
		}).Warn("return metadata missing prior status")
		restored = domain.OrderStatusCompleted
	}

	ok, err := e.orders.ResolveReturn(ctx, order.ID, restored, rejectReason)
	if err != nil {
		return domain.Result{}, err
	}
	if !ok {
		return domain.Fail(domain.WrongStateError(domain.OperationRejectReturn)), nil
	}

	order.Status = restored
	order.RejectReason = rejectReason
	e.publishOrderEvent(kafka.EventTypeOrderReturnRejected, order, map[string]interface{}{
		"reject_reason": rejectReason,
	})

	return domain.OK(domain.NewOrderData(order)), nil
}

func (e *Engine) loadOrder(ctx context.Context, orderID int64, operation string) (domain.Order, error) {
	order, err := e.orders.Get(ctx, orderID)
	if err == nil {
		return order, nil
	}
	if !errors.Is(err, domain.ErrOrderNotFound) {
		e.logger.WithError(err).WithFields(log.Fields{
			"operation": operation,
			"order_id":  orderID,
		}).Error("failed to load order")
	}
	return domain.Order{}, err
}

// failOrInfra превращает бизнес-ошибку в Result, а инфраструктурный сбой
// пробрасывает наверх.
func (e *Engine) failOrInfra(err error) (domain.Result, error) {
	var derr *domain.Error
	if errors.As(err, &derr) {
		return domain.Fail(derr), nil
	}
	return domain.Result{}, err
}

// denyPermission логирует несовпадение актора как потенциальное событие безопасности.
func (e *Engine) denyPermission(operation string, orderID, actorID int64) {
	if e.metrics != nil {
		e.metrics.RecordPermissionDenied()
	}
	e.logger.WithFields(log.Fields{
		"operation": operation,
		"order_id":  orderID,
		"actor_id":  actorID,
	}).Warn("actor mismatch, operation denied")
}
