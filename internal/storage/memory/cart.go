package memory

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/campus-market/internal/domain"
)

// CartService — in-memory корзина покупателя.
type CartService struct {
	mu sync.Mutex
	// items: buyerID -> множество productID
	items map[int64]map[int64]struct{}

	RemoveCalls int
}

// NewCartService возвращает пустую in-memory корзину.
func NewCartService() *CartService {
	return &CartService{
		items: make(map[int64]map[int64]struct{}),
	}
}

// Add кладет товар в корзину покупателя.
func (c *CartService) Add(buyerID, productID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.items[buyerID] == nil {
		c.items[buyerID] = make(map[int64]struct{})
	}
	c.items[buyerID][productID] = struct{}{}
}

// Contains сообщает, лежит ли товар в корзине покупателя.
func (c *CartService) Contains(buyerID, productID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.items[buyerID][productID]
	return ok
}

// RemoveFromCart убирает товар из корзины; false — товара в корзине не было.
func (c *CartService) RemoveFromCart(ctx context.Context, buyerID, productID int64) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.RemoveCalls++
	if _, ok := c.items[buyerID][productID]; !ok {
		return false, nil
	}
	delete(c.items[buyerID], productID)
	return true, nil
}

var _ domain.CartService = (*CartService)(nil)
