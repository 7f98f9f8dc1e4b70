// Package refund реализует обработку возвратов средств по заказам.
package refund

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/campus-market/internal/domain"
)

// Validator — необязательный хук строгой проверки заказа перед возвратом.
// Базовый процессор намеренно снисходителен: он проверяет только наличие
// заказа, остальные правила подключаются через этот хук.
type Validator func(order *domain.Order) error

// Processor проводит возврат средств через сервис взаиморасчётов и хранит
// журнал транзакций возврата.
type Processor struct {
	settlement domain.SettlementService
	refunds    domain.RefundRepository
	validate   Validator
	logger     *log.Entry
}

// NewProcessor создает процессор возвратов.
func NewProcessor(settlement domain.SettlementService, refunds domain.RefundRepository, logger *log.Entry) *Processor {
	if logger == nil {
		logger = log.New().WithField("component", "refund_processor")
	}
	return &Processor{
		settlement: settlement,
		refunds:    refunds,
		logger:     logger,
	}
}

// WithValidator возвращает копию процессора с подключенной строгой проверкой.
func (p *Processor) WithValidator(v Validator) *Processor {
	clone := *p
	clone.validate = v
	return &clone
}

// ProcessRefund проводит возврат средств по заказу. Для nil-заказа возвращает
// (nil, nil): вызывающая сторона сама решает, считать ли это ошибкой. Сумма
// возврата берется из снимка заказа, нулевая сумма допустима.
func (p *Processor) ProcessRefund(ctx context.Context, order *domain.Order, reason string) (*domain.RefundTransaction, error) {
	if order == nil {
		return nil, nil
	}
	if p.validate != nil {
		if err := p.validate(order); err != nil {
			return nil, fmt.Errorf("refund validation: %w", err)
		}
	}

	amount := order.Snapshot.Price
	status, err := p.settlement.Reverse(ctx, order.ID, amount)
	if err != nil {
		return nil, fmt.Errorf("reverse settlement for order %d: %w", order.ID, err)
	}
	if status != domain.SettlementStatusReversed {
		return nil, fmt.Errorf("settlement for order %d not reversed: %s", order.ID, status)
	}

	tx := &domain.RefundTransaction{
		RefundID:   uuid.New().String(),
		OrderID:    order.ID,
		Amount:     amount,
		Reason:     reason,
		Status:     domain.RefundStatusCompleted,
		CreateTime: time.Now(),
	}

	if err := p.refunds.Create(ctx, *tx); err != nil {
		// Деньги уже возвращены, потеря записи журнала — отдельный инцидент.
		p.logger.WithError(err).WithFields(log.Fields{
			"order_id":  order.ID,
			"refund_id": tx.RefundID,
		}).Error("settlement reversed but refund record was not persisted")
		return nil, fmt.Errorf("persist refund for order %d: %w", order.ID, err)
	}

	p.logger.WithFields(log.Fields{
		"order_id":  order.ID,
		"refund_id": tx.RefundID,
		"amount":    amount.String(),
	}).Info("refund completed")

	return tx, nil
}

// GetRefundTransaction возвращает транзакцию возврата по ее идентификатору,
// nil — если транзакция не найдена.
func (p *Processor) GetRefundTransaction(ctx context.Context, refundID string) (*domain.RefundTransaction, error) {
	if refundID == "" {
		return nil, nil
	}
	return p.refunds.GetByRefundID(ctx, refundID)
}

// GetRefundByOrderID возвращает транзакцию возврата по заказу, nil — если
// возврата по заказу не было.
func (p *Processor) GetRefundByOrderID(ctx context.Context, orderID int64) (*domain.RefundTransaction, error) {
	if orderID <= 0 {
		return nil, nil
	}
	return p.refunds.GetByOrderID(ctx, orderID)
}
