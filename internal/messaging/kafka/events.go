package kafka

import "time"

// EventType определяет тип события
type EventType string

const (
	// События жизненного цикла заказа
	EventTypeOrderCreated         EventType = "order.created"
	EventTypeOrderPaid            EventType = "order.paid"
	EventTypeOrderCancelled       EventType = "order.cancelled"
	EventTypeOrderShipped         EventType = "order.shipped"
	EventTypeOrderCompleted       EventType = "order.completed"
	EventTypeOrderReturnRequested EventType = "order.return_requested"
	EventTypeOrderReturnRejected  EventType = "order.return_rejected"
	EventTypeOrderRefunded        EventType = "order.refunded"
)

// Topics для Kafka
const (
	TopicOrderEvents    = "market.order.events"
	TopicPaymentResults = "market.payment.results"
	// Dead Letter Queue для сообщений, исчерпавших retry
	TopicDeadLetterQueue = "market.dlq"
)

// Kafka headers для retry логики
const (
	HeaderRetryCount    = "x-retry-count"
	HeaderOriginalTopic = "x-original-topic"
	HeaderErrorMessage  = "x-error-message"
	HeaderFailedAt      = "x-failed-at"
)

// OrderEvent представляет событие жизненного цикла заказа.
type OrderEvent struct {
	EventType EventType              `json:"event_type"`
	OrderID   int64                  `json:"order_id"`
	ProductID int64                  `json:"product_id"`
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// PaymentResult — асинхронное уведомление платёжного шлюза. Один платёж может
// покрывать несколько заказов из корзины.
type PaymentResult struct {
	PaymentID string    `json:"payment_id"`
	OrderIDs  []int64   `json:"order_ids"`
	Success   bool      `json:"success"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewOrderEvent создает новое событие заказа.
func NewOrderEvent(eventType EventType, orderID, productID int64, status string, metadata map[string]interface{}) *OrderEvent {
	return &OrderEvent{
		EventType: eventType,
		OrderID:   orderID,
		ProductID: productID,
		Status:    status,
		Timestamp: time.Now(),
		Metadata:  metadata,
	}
}
