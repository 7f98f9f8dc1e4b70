package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/vladislavdragonenkov/campus-market/internal/domain"
)

// refundRepositoryInMemory — in-memory журнал транзакций возврата.
type refundRepositoryInMemory struct {
	mu       sync.RWMutex
	byRefund map[string]domain.RefundTransaction
	byOrder  map[int64]string
}

// NewRefundRepository возвращает in-memory репозиторий возвратов.
func NewRefundRepository() domain.RefundRepository {
	return &refundRepositoryInMemory{
		byRefund: make(map[string]domain.RefundTransaction),
		byOrder:  make(map[int64]string),
	}
}

// Create сохраняет транзакцию; повторная запись с тем же refund_id или второй
// возврат по тому же заказу — ошибка, как и при UNIQUE(order_id) в postgres.
func (r *refundRepositoryInMemory) Create(ctx context.Context, tx domain.RefundTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byRefund[tx.RefundID]; exists {
		return fmt.Errorf("refund %s already exists", tx.RefundID)
	}
	if existing, exists := r.byOrder[tx.OrderID]; exists {
		return fmt.Errorf("order %d already refunded by %s", tx.OrderID, existing)
	}
	r.byRefund[tx.RefundID] = tx
	r.byOrder[tx.OrderID] = tx.RefundID
	return nil
}

// GetByRefundID возвращает транзакцию или nil, если записи нет.
func (r *refundRepositoryInMemory) GetByRefundID(ctx context.Context, refundID string) (*domain.RefundTransaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tx, ok := r.byRefund[refundID]
	if !ok {
		return nil, nil
	}
	return &tx, nil
}

// GetByOrderID возвращает транзакцию по заказу или nil.
func (r *refundRepositoryInMemory) GetByOrderID(ctx context.Context, orderID int64) (*domain.RefundTransaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	refundID, ok := r.byOrder[orderID]
	if !ok {
		return nil, nil
	}
	tx := r.byRefund[refundID]
	return &tx, nil
}
