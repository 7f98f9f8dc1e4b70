package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RefundStatus описывает состояние транзакции возврата.
type RefundStatus string

const (
	// RefundStatusCompleted — реверс платежа выполнен и зафиксирован.
	RefundStatusCompleted RefundStatus = "completed"
)

// RefundTransaction — запись в append-only журнале возвратов. Создаётся один
// раз при успешном реверсе и никогда не изменяется.
type RefundTransaction struct {
	RefundID   string
	OrderID    int64
	Amount     decimal.Decimal
	Reason     string
	Status     RefundStatus
	CreateTime time.Time
}
