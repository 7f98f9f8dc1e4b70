// Package memory содержит in-memory реализации хранилищ для локальной
// разработки и тестов.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/campus-market/internal/domain"
)

// orderRepositoryInMemory — простая in-memory реализация OrderRepository.
type orderRepositoryInMemory struct {
	mu     sync.RWMutex
	items  map[int64]domain.Order
	nextID int64
}

// NewOrderRepository возвращает in-memory репозиторий заказов.
func NewOrderRepository() domain.OrderRepository {
	return &orderRepositoryInMemory{
		items:  make(map[int64]domain.Order),
		nextID: 1,
	}
}

// Create сохраняет новый заказ и присваивает ему идентификатор.
func (r *orderRepositoryInMemory) Create(ctx context.Context, order domain.Order) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order.ID = r.nextID
	r.nextID++
	now := time.Now()
	if order.CreateTime.IsZero() {
		order.CreateTime = now
	}
	order.UpdateTime = now

	// Сохраняем копию, чтобы избежать непредсказуемых мутаций извне.
	r.items[order.ID] = order
	return order.ID, nil
}

// Get возвращает заказ или ErrOrderNotFound, если его нет.
func (r *orderRepositoryInMemory) Get(ctx context.Context, id int64) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.items[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return order, nil
}

// UpdateStatus атомарно переводит заказ из from в to.
func (r *orderRepositoryInMemory) UpdateStatus(ctx context.Context, id int64, from, to domain.OrderStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.items[id]
	if !ok {
		return false, domain.ErrOrderNotFound
	}
	if order.Status != from {
		return false, nil
	}
	order.Status = to
	order.UpdateTime = time.Now()
	r.items[id] = order
	return true, nil
}

// MarkPaid переводит заказ в AWAITING_SHIPPING, записывая идентификатор платежа.
func (r *orderRepositoryInMemory) MarkPaid(ctx context.Context, id int64, paymentID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.items[id]
	if !ok {
		return false, domain.ErrOrderNotFound
	}
	if order.Status != domain.OrderStatusAwaitingPayment {
		return false, nil
	}
	order.Status = domain.OrderStatusAwaitingShipping
	order.PaymentID = paymentID
	order.UpdateTime = time.Now()
	r.items[id] = order
	return true, nil
}

// RequestReturn переводит заказ в RETURN_REQUESTED из SHIPPED или COMPLETED.
func (r *orderRepositoryInMemory) RequestReturn(ctx context.Context, id int64, reason string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.items[id]
	if !ok {
		return false, domain.ErrOrderNotFound
	}
	if order.Status != domain.OrderStatusShipped && order.Status != domain.OrderStatusCompleted {
		return false, nil
	}
	order.StatusBeforeReturn = order.Status
	order.Status = domain.OrderStatusReturnRequested
	order.ReturnReason = reason
	order.UpdateTime = time.Now()
	r.items[id] = order
	return true, nil
}

// ResolveReturn закрывает запрос возврата переходом из RETURN_REQUESTED в to.
func (r *orderRepositoryInMemory) ResolveReturn(ctx context.Context, id int64, to domain.OrderStatus, rejectReason string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.items[id]
	if !ok {
		return false, domain.ErrOrderNotFound
	}
	if order.Status != domain.OrderStatusReturnRequested {
		return false, nil
	}
	order.Status = to
	order.RejectReason = rejectReason
	order.UpdateTime = time.Now()
	r.items[id] = order
	return true, nil
}

// Delete удаляет заказ. Используется компенсацией прерванного батча создания.
func (r *orderRepositoryInMemory) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return domain.ErrOrderNotFound
	}
	delete(r.items, id)
	return nil
}

// ListByBuyer возвращает заказы покупателя, новые первыми.
func (r *orderRepositoryInMemory) ListByBuyer(ctx context.Context, buyerID int64, limit int) ([]domain.Order, error) {
	return r.list(func(o domain.Order) bool { return o.BuyerID == buyerID }, limit), nil
}

// ListBySeller возвращает заказы продавца, новые первыми.
func (r *orderRepositoryInMemory) ListBySeller(ctx context.Context, sellerID int64, limit int) ([]domain.Order, error) {
	return r.list(func(o domain.Order) bool { return o.SellerID == sellerID }, limit), nil
}

func (r *orderRepositoryInMemory) list(match func(domain.Order) bool, limit int) []domain.Order {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Order, 0, len(r.items))
	for _, order := range r.items {
		if match(order) {
			result = append(result, order)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreateTime.Equal(result[j].CreateTime) {
			return result[i].CreateTime.After(result[j].CreateTime)
		}
		return result[i].ID > result[j].ID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}
