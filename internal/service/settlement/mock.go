// Package settlement содержит клиентов сервиса взаиморасчётов.
package settlement

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/campus-market/internal/domain"
)

// MockService — конфигурируемая заглушка SettlementService для тестов
// и локального окружения без реального сервиса взаиморасчётов.
type MockService struct {
	mu sync.Mutex

	ReverseStatus domain.SettlementStatus
	ReverseErr    error

	ReverseCalls int
	// Reversed хранит суммы по заказам, для которых был выполнен разворот.
	Reversed map[int64]decimal.Decimal
}

// NewMockService возвращает mock с успешным сценарием по умолчанию.
func NewMockService() *MockService {
	return &MockService{
		ReverseStatus: domain.SettlementStatusReversed,
		Reversed:      make(map[int64]decimal.Decimal),
	}
}

// Reverse возвращает заранее настроенный результат и считает вызовы.
func (m *MockService) Reverse(ctx context.Context, orderID int64, amount decimal.Decimal) (domain.SettlementStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ReverseCalls++
	if m.ReverseErr == nil && m.ReverseStatus == domain.SettlementStatusReversed {
		m.Reversed[orderID] = amount
	}
	return m.ReverseStatus, m.ReverseErr
}

var _ domain.SettlementService = (*MockService)(nil)
