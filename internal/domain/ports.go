package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// ProductGateway описывает взаимодействие со шлюзом каталога товаров.
// Вся взаимная блокировка заказов сведена к условному переходу статуса:
// движок не держит собственных блокировок между вызовами.
type ProductGateway interface {
	// FindByID возвращает товар или nil, если товара нет. Ошибка означает
	// инфраструктурный сбой, а не отсутствие записи.
	FindByID(ctx context.Context, productID int64) (*Product, error)
	// UpdateStatus выполняет атомарный compare-and-swap статуса товара.
	// false означает, что товар не был в ожидаемом статусе (проигранная гонка).
	UpdateStatus(ctx context.Context, productID int64, from, to ProductStatus) (bool, error)
	// FindImages возвращает URL изображений товара для снапшота заказа.
	FindImages(ctx context.Context, productID int64) ([]string, error)
}

// CartService — корзина покупателя. Удаление best-effort: неудача не
// прерывает создание заказа.
type CartService interface {
	RemoveFromCart(ctx context.Context, buyerID, productID int64) (bool, error)
}

// SettlementService описывает реверс платежа у провайдера.
type SettlementService interface {
	// Reverse инициирует возврат средств по заказу.
	Reverse(ctx context.Context, orderID int64, amount decimal.Decimal) (SettlementStatus, error)
}
