package domain

import "errors"

// Error — бизнес-ошибка со стабильным машинным кодом для слоя контроллеров.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

var (
	// ErrInvalidParams — отсутствующие или некорректные входные параметры.
	ErrInvalidParams = &Error{Code: "INVALID_PARAMS", Message: "invalid or missing parameters"}
	// ErrProductNotFound — товар не найден в каталоге.
	ErrProductNotFound = &Error{Code: "PRODUCT_NOT_FOUND", Message: "product not found"}
	// ErrProductNotAvailable — товар существует, но не в статусе ON_SALE.
	ErrProductNotAvailable = &Error{Code: "PRODUCT_NOT_AVAILABLE", Message: "product is not available for sale"}
	// ErrCantBuyOwnProduct — покупатель пытается купить собственный товар.
	ErrCantBuyOwnProduct = &Error{Code: "CANT_BUY_OWN_PRODUCT", Message: "cannot buy your own product"}
	// ErrUpdateProductStatusFailed — условное обновление статуса товара не прошло (конкуренция за блокировку).
	ErrUpdateProductStatusFailed = &Error{Code: "UPDATE_PRODUCT_STATUS_FAILED", Message: "failed to lock product, it may be taken by another order"}
	// ErrCreateOrderFailed — запись заказа не сохранилась; уже заблокированные товары откатываются.
	ErrCreateOrderFailed = &Error{Code: "CREATE_ORDER_FAILED", Message: "failed to create order"}
	// ErrOrderNotFound — заказ не найден.
	ErrOrderNotFound = &Error{Code: "ORDER_NOT_FOUND", Message: "order not found"}
	// ErrShipPermissionDenied — отправку запросил не продавец заказа.
	ErrShipPermissionDenied = &Error{Code: "SHIP_PERMISSION_DENIED", Message: "only the seller of the order can ship it"}
	// ErrConfirmReceiptPermissionDenied — получение подтверждает не покупатель заказа.
	ErrConfirmReceiptPermissionDenied = &Error{Code: "CONFIRM_RECEIPT_PERMISSION_DENIED", Message: "only the buyer of the order can confirm receipt"}
	// ErrApplyReturnPermissionDenied — возврат запросил не покупатель заказа.
	ErrApplyReturnPermissionDenied = &Error{Code: "APPLY_RETURN_PERMISSION_DENIED", Message: "only the buyer of the order can apply for return"}
	// ErrProcessReturnPermissionDenied — решение по возврату принимает не продавец заказа.
	ErrProcessReturnPermissionDenied = &Error{Code: "PROCESS_RETURN_PERMISSION_DENIED", Message: "only the seller of the order can process the return request"}
	// ErrOrderStatusNotAwaitingPayment — заказ не ожидает оплату.
	ErrOrderStatusNotAwaitingPayment = &Error{Code: "ORDER_STATUS_NOT_AWAITING_PAYMENT", Message: "order is not awaiting payment"}
	// ErrOrderStatusNotAwaitingShipping — заказ не ожидает отправку.
	ErrOrderStatusNotAwaitingShipping = &Error{Code: "ORDER_STATUS_NOT_AWAITING_SHIPPING", Message: "order is not awaiting shipping"}
	// ErrOrderStatusNotShipped — заказ ещё не отправлен.
	ErrOrderStatusNotShipped = &Error{Code: "ORDER_STATUS_NOT_SHIPPED", Message: "order is not shipped"}
	// ErrOrderStatusNotCancellable — статус заказа не допускает отмену.
	ErrOrderStatusNotCancellable = &Error{Code: "ORDER_STATUS_NOT_CANCELLABLE", Message: "order cannot be cancelled in its current status"}
	// ErrOrderStatusNotReturnable — возврат возможен только из SHIPPED или COMPLETED.
	ErrOrderStatusNotReturnable = &Error{Code: "ORDER_STATUS_NOT_RETURNABLE", Message: "order is not eligible for return"}
	// ErrOrderStatusNotReturnRequested — по заказу нет активного запроса возврата.
	ErrOrderStatusNotReturnRequested = &Error{Code: "ORDER_STATUS_NOT_RETURN_REQUESTED", Message: "order has no pending return request"}
	// ErrUpdateProductToSoldFailed — товар не удалось перевести в SOLD при подтверждении получения.
	ErrUpdateProductToSoldFailed = &Error{Code: "UPDATE_PRODUCT_TO_SOLD_FAILED", Message: "failed to mark product as sold"}
	// ErrRefundFailed — реверс платежа не выполнился.
	ErrRefundFailed = &Error{Code: "REFUND_FAILED", Message: "failed to process refund"}

	// Инварианты заказа.
	ErrBuyerRequired   = &Error{Code: "INVALID_PARAMS", Message: "buyer_id is required"}
	ErrSellerRequired  = &Error{Code: "INVALID_PARAMS", Message: "seller_id is required"}
	ErrProductRequired = &Error{Code: "INVALID_PARAMS", Message: "product_id is required"}
	ErrPriceNegative   = &Error{Code: "INVALID_PARAMS", Message: "price must be non-negative"}
)

// CodeInternal — код для непредвиденных инфраструктурных сбоев; контроллеры
// обязаны отдавать по нему общий internal-error ответ.
const CodeInternal = "INTERNAL_ERROR"

// CodeOf извлекает стабильный код из ошибки; для инфраструктурных сбоев
// возвращает CodeInternal.
func CodeOf(err error) string {
	var derr *Error
	if errors.As(err, &derr) {
		return derr.Code
	}
	return CodeInternal
}
