package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus описывает жизненный цикл сделки на маркетплейсе.
// Числовые коды фиксированы: они попадают в ответы контроллерам и в БД.
type OrderStatus int

const (
	// OrderStatusAwaitingPayment — заказ создан, товар заблокирован, ждём оплату.
	OrderStatusAwaitingPayment OrderStatus = 1
	// OrderStatusAwaitingShipping — оплата подтверждена, продавец должен отправить товар.
	OrderStatusAwaitingShipping OrderStatus = 2
	// OrderStatusShipped — продавец отправил товар покупателю.
	OrderStatusShipped OrderStatus = 3
	// OrderStatusCompleted — покупатель подтвердил получение, товар продан.
	OrderStatusCompleted OrderStatus = 4
	// OrderStatusCancelled — заказ отменён, блокировка товара снята. Терминальный статус.
	OrderStatusCancelled OrderStatus = 5
	// OrderStatusReturnRequested — покупатель запросил возврат, ждём решения продавца.
	OrderStatusReturnRequested OrderStatus = 6
	// OrderStatusRefunded — возврат одобрен, средства возвращены. Терминальный статус.
	OrderStatusRefunded OrderStatus = 7
)

// String возвращает стабильный текст статуса для payload контроллеров.
func (s OrderStatus) String() string {
	switch s {
	case OrderStatusAwaitingPayment:
		return "AWAITING_PAYMENT"
	case OrderStatusAwaitingShipping:
		return "AWAITING_SHIPPING"
	case OrderStatusShipped:
		return "SHIPPED"
	case OrderStatusCompleted:
		return "COMPLETED"
	case OrderStatusCancelled:
		return "CANCELLED"
	case OrderStatusReturnRequested:
		return "RETURN_REQUESTED"
	case OrderStatusRefunded:
		return "REFUNDED"
	default:
		return "UNKNOWN"
	}
}

// Terminal сообщает, допускает ли статус дальнейшие переходы.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCancelled || s == OrderStatusRefunded
}

// Operation — операция движка, инициирующая переход статуса.
type Operation string

const (
	OperationPayment        Operation = "payment"
	OperationCancel         Operation = "cancel"
	OperationShip           Operation = "ship"
	OperationConfirmReceipt Operation = "confirm_receipt"
	OperationApplyReturn    Operation = "apply_return"
	OperationApproveReturn  Operation = "approve_return"
	OperationRejectReturn   Operation = "reject_return"
)

// transitions задаёт легальные переходы таблицей (операция, текущий статус) → новый статус.
// Отклонения возврата в таблице нет: целевой статус берётся из
// Order.StatusBeforeReturn, проверка текущего статуса остаётся общей.
var transitions = map[Operation]map[OrderStatus]OrderStatus{
	OperationPayment: {
		OrderStatusAwaitingPayment: OrderStatusAwaitingShipping,
	},
	OperationCancel: {
		OrderStatusAwaitingPayment:  OrderStatusCancelled,
		OrderStatusAwaitingShipping: OrderStatusCancelled,
	},
	OperationShip: {
		OrderStatusAwaitingShipping: OrderStatusShipped,
	},
	OperationConfirmReceipt: {
		OrderStatusShipped: OrderStatusCompleted,
	},
	OperationApplyReturn: {
		OrderStatusShipped:   OrderStatusReturnRequested,
		OrderStatusCompleted: OrderStatusReturnRequested,
	},
	OperationApproveReturn: {
		OrderStatusReturnRequested: OrderStatusRefunded,
	},
	OperationRejectReturn: {},
}

// wrongStateErrors сопоставляет операции код ошибки для попытки из неподходящего статуса.
var wrongStateErrors = map[Operation]*Error{
	OperationPayment:        ErrOrderStatusNotAwaitingPayment,
	OperationCancel:         ErrOrderStatusNotCancellable,
	OperationShip:           ErrOrderStatusNotAwaitingShipping,
	OperationConfirmReceipt: ErrOrderStatusNotShipped,
	OperationApplyReturn:    ErrOrderStatusNotReturnable,
	OperationApproveReturn:  ErrOrderStatusNotReturnRequested,
	OperationRejectReturn:   ErrOrderStatusNotReturnRequested,
}

// Transition возвращает целевой статус для операции либо wrong-state ошибку
// с кодом, специфичным для операции.
func Transition(current OrderStatus, op Operation) (OrderStatus, error) {
	table, ok := transitions[op]
	if !ok {
		return 0, ErrInvalidParams
	}
	next, ok := table[current]
	if !ok {
		return 0, WrongStateError(op)
	}
	return next, nil
}

// WrongStateError возвращает ошибку для попытки операции из неподходящего статуса.
func WrongStateError(op Operation) *Error {
	if err, ok := wrongStateErrors[op]; ok {
		return err
	}
	return ErrInvalidParams
}

// ListingSnapshot — неизменяемая копия карточки товара на момент покупки.
// Объявление может измениться или исчезнуть после сделки; заказ хранит то,
// что реально покупалось.
type ListingSnapshot struct {
	Title       string
	Description string
	Price       decimal.Decimal
	ImageURLs   []string
}

// Order агрегирует одну сделку покупатель-продавец-товар.
type Order struct {
	ID        int64
	BuyerID   int64
	SellerID  int64
	ProductID int64

	Snapshot ListingSnapshot
	Status   OrderStatus

	// PaymentID заполняется при подтверждении оплаты платёжным адаптером.
	PaymentID string

	// Метаданные возврата. StatusBeforeReturn хранит статус, в который заказ
	// вернётся при отклонении возврата продавцом.
	ReturnReason       string
	RejectReason       string
	StatusBeforeReturn OrderStatus

	CreateTime time.Time
	UpdateTime time.Time
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.BuyerID <= 0 {
		errs = append(errs, ErrBuyerRequired)
	}
	if o.SellerID <= 0 {
		errs = append(errs, ErrSellerRequired)
	}
	if o.ProductID <= 0 {
		errs = append(errs, ErrProductRequired)
	}
	// Запрет сделки с самим собой действует независимо от статуса товара.
	if o.BuyerID > 0 && o.BuyerID == o.SellerID {
		errs = append(errs, ErrCantBuyOwnProduct)
	}
	if o.Snapshot.Price.IsNegative() {
		errs = append(errs, ErrPriceNegative)
	}

	return errs
}
