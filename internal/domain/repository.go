package domain

import "context"

// OrderRepository описывает требования движка к хранилищу заказов.
// Все переходы статуса условные: false у CAS-методов означает, что заказ уже
// не в ожидаемом статусе, и это штатный исход при конкурентных вызовах.
type OrderRepository interface {
	// Create сохраняет новый заказ и возвращает присвоенный идентификатор.
	Create(ctx context.Context, order Order) (int64, error)
	// Get возвращает заказ по идентификатору или ErrOrderNotFound.
	Get(ctx context.Context, id int64) (Order, error)
	// UpdateStatus атомарно переводит заказ из from в to.
	UpdateStatus(ctx context.Context, id int64, from, to OrderStatus) (bool, error)
	// MarkPaid переводит заказ из AWAITING_PAYMENT в AWAITING_SHIPPING,
	// одновременно фиксируя идентификатор платежа.
	MarkPaid(ctx context.Context, id int64, paymentID string) (bool, error)
	// RequestReturn переводит заказ в RETURN_REQUESTED из SHIPPED или
	// COMPLETED, запоминая причину и статус до возврата.
	RequestReturn(ctx context.Context, id int64, reason string) (bool, error)
	// ResolveReturn закрывает запрос возврата: переводит заказ из
	// RETURN_REQUESTED в to и сохраняет причину отказа (может быть пустой).
	ResolveReturn(ctx context.Context, id int64, to OrderStatus, rejectReason string) (bool, error)
	// Delete удаляет заказ. Используется только компенсацией прерванного
	// батча создания: частично созданные заказы не должны быть видимы.
	Delete(ctx context.Context, id int64) error
	// ListByBuyer возвращает заказы покупателя, новые первыми; limit>0 ограничивает выборку.
	ListByBuyer(ctx context.Context, buyerID int64, limit int) ([]Order, error)
	// ListBySeller возвращает заказы продавца, новые первыми; limit>0 ограничивает выборку.
	ListBySeller(ctx context.Context, sellerID int64, limit int) ([]Order, error)
}

// RefundRepository хранит append-only журнал транзакций возврата.
type RefundRepository interface {
	// Create сохраняет новую транзакцию возврата.
	Create(ctx context.Context, tx RefundTransaction) error
	// GetByRefundID возвращает транзакцию или nil, если записи нет.
	GetByRefundID(ctx context.Context, refundID string) (*RefundTransaction, error)
	// GetByOrderID возвращает транзакцию по заказу или nil; на заказ
	// приходится не больше одной активной транзакции.
	GetByOrderID(ctx context.Context, orderID int64) (*RefundTransaction, error)
}
