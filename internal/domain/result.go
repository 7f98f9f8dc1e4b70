package domain

import "github.com/shopspring/decimal"

// OrderData — данные успешной операции для слоя контроллеров: числовой код
// статуса дублируется человекочитаемым текстом.
type OrderData struct {
	OrderID         int64
	ProductID       int64
	PriceAtPurchase decimal.Decimal
	OrderStatus     OrderStatus
	OrderStatusText string
	// ProductStatus заполняется операциями, которые меняют статус товара.
	ProductStatus ProductStatus
}

// NewOrderData строит payload по текущему состоянию заказа.
func NewOrderData(order Order) OrderData {
	return OrderData{
		OrderID:         order.ID,
		ProductID:       order.ProductID,
		PriceAtPurchase: order.Snapshot.Price,
		OrderStatus:     order.Status,
		OrderStatusText: order.Status.String(),
	}
}

// Result — единая форма ответа движка для одиночных операций.
type Result struct {
	Success      bool
	Data         *OrderData
	ErrorCode    string
	ErrorMessage string
}

// OK упаковывает успешный результат.
func OK(data OrderData) Result {
	return Result{Success: true, Data: &data}
}

// Fail упаковывает бизнес-ошибку в результат со стабильным кодом.
func Fail(err error) Result {
	return Result{
		Success:      false,
		ErrorCode:    CodeOf(err),
		ErrorMessage: err.Error(),
	}
}

// CreateResult — ответ на создание заказов: одна запись на каждый товар.
type CreateResult struct {
	Success      bool
	Orders       []OrderData
	ErrorCode    string
	ErrorMessage string
}

// CreateOK упаковывает успешное создание заказов.
func CreateOK(orders []OrderData) CreateResult {
	return CreateResult{Success: true, Orders: orders}
}

// CreateFail упаковывает бизнес-ошибку создания заказов.
func CreateFail(err error) CreateResult {
	return CreateResult{
		Success:      false,
		ErrorCode:    CodeOf(err),
		ErrorMessage: err.Error(),
	}
}

// BatchFailure описывает неудачу по одному идентификатору внутри батча.
type BatchFailure struct {
	OrderID int64
	Code    string
	Message string
}

// BatchResult — ответ батч-операций. Успехи и неудачи независимы по каждому
// идентификатору: частичный успех — штатный исход, а не компромисс.
type BatchResult struct {
	Succeeded []int64
	Failed    []BatchFailure
}

// AllSucceeded сообщает, прошли ли все идентификаторы батча.
func (r BatchResult) AllSucceeded() bool {
	return len(r.Failed) == 0
}

// AddFailure фиксирует неудачу по заказу.
func (r *BatchResult) AddFailure(orderID int64, err error) {
	r.Failed = append(r.Failed, BatchFailure{
		OrderID: orderID,
		Code:    CodeOf(err),
		Message: err.Error(),
	})
}
