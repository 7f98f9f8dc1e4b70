package memory

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/campus-market/internal/domain"
)

// ProductGateway — in-memory шлюз каталога товаров. Экспортируется как
// конкретный тип: тесты и локальное окружение добавляют товары и изображения
// напрямую.
type ProductGateway struct {
	mu     sync.RWMutex
	items  map[int64]domain.Product
	images map[int64][]string

	// FailUpdateStatus при ненулевом значении заставляет следующие N вызовов
	// UpdateStatus вернуть false. Используется тестами для имитации
	// проигранной гонки за товар.
	FailUpdateStatus int
}

// NewProductGateway возвращает пустой in-memory шлюз каталога.
func NewProductGateway() *ProductGateway {
	return &ProductGateway{
		items:  make(map[int64]domain.Product),
		images: make(map[int64][]string),
	}
}

// Put добавляет или заменяет товар в каталоге.
func (g *ProductGateway) Put(product domain.Product) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.items[product.ID] = product
}

// PutImages задает изображения товара.
func (g *ProductGateway) PutImages(productID int64, urls []string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.images[productID] = urls
}

// FindByID возвращает товар или nil, если товара нет.
func (g *ProductGateway) FindByID(ctx context.Context, productID int64) (*domain.Product, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	product, ok := g.items[productID]
	if !ok {
		return nil, nil
	}
	return &product, nil
}

// UpdateStatus выполняет compare-and-swap статуса товара.
func (g *ProductGateway) UpdateStatus(ctx context.Context, productID int64, from, to domain.ProductStatus) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.FailUpdateStatus > 0 {
		g.FailUpdateStatus--
		return false, nil
	}

	product, ok := g.items[productID]
	if !ok {
		return false, nil
	}
	if product.Status != from {
		return false, nil
	}
	product.Status = to
	g.items[productID] = product
	return true, nil
}

// FindImages возвращает URL изображений товара.
func (g *ProductGateway) FindImages(ctx context.Context, productID int64) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	urls := g.images[productID]
	out := make([]string, len(urls))
	copy(out, urls)
	return out, nil
}

var _ domain.ProductGateway = (*ProductGateway)(nil)
