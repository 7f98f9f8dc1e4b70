package domain

import "github.com/shopspring/decimal"

// ProductStatus описывает состояние товара в каталоге. Товар принадлежит
// шлюзу каталога; движок заказов лишь запрашивает условные переходы.
type ProductStatus string

const (
	// ProductStatusOnSale — товар выставлен на продажу.
	ProductStatusOnSale ProductStatus = "ON_SALE"
	// ProductStatusLocked — товар заблокирован под незавершённый заказ.
	ProductStatusLocked ProductStatus = "LOCKED"
	// ProductStatusSold — сделка по товару завершена.
	ProductStatusSold ProductStatus = "SOLD"
	// ProductStatusDelisted — товар снят с продажи продавцом или модерацией.
	ProductStatusDelisted ProductStatus = "DELISTED"
)

// Product — проекция товара, видимая движку заказов: только поля,
// участвующие в блокировке и снапшоте.
type Product struct {
	ID          int64
	SellerID    int64
	Status      ProductStatus
	Price       decimal.Decimal
	Title       string
	Description string
}
