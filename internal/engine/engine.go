package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/campus-market/internal/domain"
	"github.com/vladislavdragonenkov/campus-market/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/campus-market/internal/metrics"
)

// RefundProcessor — контракт процессора возвратов, который движок вызывает
// при одобрении возврата продавцом.
type RefundProcessor interface {
	ProcessRefund(ctx context.Context, order *domain.Order, reason string) (*domain.RefundTransaction, error)
}

// Engine — движок жизненного цикла заказов: единственная точка, через которую
// проходят легальные переходы статусов. Собственных блокировок движок не
// держит; взаимное исключение обеспечивает условное обновление статуса товара
// на стороне хранилища.
type Engine struct {
	orders   domain.OrderRepository
	products domain.ProductGateway
	cart     domain.CartService
	refunds  RefundProcessor

	logger        *log.Entry
	metrics       *metrics.EngineMetrics
	kafkaProducer *kafka.Producer // опциональный producer для событий жизненного цикла
}

// NewEngine создаёт рабочий экземпляр движка.
func NewEngine(
	orders domain.OrderRepository,
	products domain.ProductGateway,
	cart domain.CartService,
	refunds RefundProcessor,
	logger *log.Entry,
) *Engine {
	if logger == nil {
		logger = log.New().WithField("component", "order-engine")
	}
	return &Engine{
		orders:   orders,
		products: products,
		cart:     cart,
		refunds:  refunds,
		logger:   logger,
		metrics:  metrics.NewEngineMetrics(),
	}
}

// NewEngineWithKafka создаёт движок с Kafka producer для событий жизненного цикла.
func NewEngineWithKafka(
	orders domain.OrderRepository,
	products domain.ProductGateway,
	cart domain.CartService,
	refunds RefundProcessor,
	kafkaProducer *kafka.Producer,
	logger *log.Entry,
) *Engine {
	e := NewEngine(orders, products, cart, refunds, logger)
	e.kafkaProducer = kafkaProducer
	return e
}

// NewEngineWithoutMetrics создаёт движок без метрик (для тестов).
func NewEngineWithoutMetrics(
	orders domain.OrderRepository,
	products domain.ProductGateway,
	cart domain.CartService,
	refunds RefundProcessor,
	logger *log.Entry,
) *Engine {
	e := NewEngine(orders, products, cart, refunds, logger)
	e.metrics = nil
	return e
}

// lockedProduct запоминает блокировку, взятую внутри одного вызова CreateOrders,
// чтобы при сбое откатить её обратно в ON_SALE.
type lockedProduct struct {
	product *domain.Product
	images  []string
}

// CreateOrders создаёт по заказу на каждый товар из списка: валидирует,
// блокирует товары условным переходом ON_SALE → LOCKED в порядке, заданном
// вызывающим, снимает снапшот карточки и сохраняет заказы. Любой сбой внутри
// батча откатывает уже взятые блокировки в обратном порядке (LIFO), частично
// созданные заказы не сохраняются.
//
// Бизнес-отказы возвращаются внутри CreateResult; ошибка возврата означает
// инфраструктурный сбой после попытки отката.
func (e *Engine) CreateOrders(ctx context.Context, buyerID int64, productIDs []int64) (domain.CreateResult, error) {
	start := time.Now()
	defer e.observeOp("create_order", start)

	if buyerID <= 0 || len(productIDs) == 0 || lo.SomeBy(productIDs, func(id int64) bool { return id <= 0 }) {
		return domain.CreateFail(domain.ErrInvalidParams), nil
	}

	locked := make([]lockedProduct, 0, len(productIDs))

	// Фаза 1: валидация и блокировка товаров в порядке вызова.
	for _, productID := range productIDs {
		product, err := e.products.FindByID(ctx, productID)
		if err != nil {
			e.rollbackLocks(ctx, locked)
			return domain.CreateResult{}, fmt.Errorf("find product %d: %w", productID, err)
		}
		if product == nil {
			e.rollbackLocks(ctx, locked)
			return domain.CreateFail(domain.ErrProductNotFound), nil
		}
		if product.SellerID == buyerID {
			e.rollbackLocks(ctx, locked)
			return domain.CreateFail(domain.ErrCantBuyOwnProduct), nil
		}
		if product.Status != domain.ProductStatusOnSale {
			e.rollbackLocks(ctx, locked)
			return domain.CreateFail(domain.ErrProductNotAvailable), nil
		}

		// Снапшот изображений снимается до блокировки: карточка ещё наша.
		images, err := e.products.FindImages(ctx, productID)
		if err != nil {
			e.rollbackLocks(ctx, locked)
			return domain.CreateResult{}, fmt.Errorf("find product images %d: %w", productID, err)
		}

		ok, err := e.products.UpdateStatus(ctx, productID, domain.ProductStatusOnSale, domain.ProductStatusLocked)
		if err != nil {
			e.rollbackLocks(ctx, locked)
			return domain.CreateResult{}, fmt.Errorf("lock product %d: %w", productID, err)
		}
		if !ok {
			// Условное обновление не прошло — товар забрал конкурирующий заказ.
			if e.metrics != nil {
				e.metrics.RecordLockContention()
			}
			e.logger.WithFields(log.Fields{
				"product_id": productID,
				"buyer_id":   buyerID,
			}).Warn("product lock lost to concurrent order")
			e.rollbackLocks(ctx, locked)
			return domain.CreateFail(domain.ErrUpdateProductStatusFailed), nil
		}

		locked = append(locked, lockedProduct{product: product, images: images})
	}

	// Фаза 2: сохранение заказов. Сбой записи откатывает и заказы, и блокировки.
	now := time.Now().UTC()
	created := make([]domain.Order, 0, len(locked))
	for _, lp := range locked {
		order := domain.Order{
			BuyerID:   buyerID,
			SellerID:  lp.product.SellerID,
			ProductID: lp.product.ID,
			Snapshot: domain.ListingSnapshot{
				Title:       lp.product.Title,
				Description: lp.product.Description,
				Price:       lp.product.Price,
				ImageURLs:   lp.images,
			},
			Status:     domain.OrderStatusAwaitingPayment,
			CreateTime: now,
			UpdateTime: now,
		}
		if errs := order.ValidateInvariants(); len(errs) > 0 {
			e.rollbackCreated(ctx, created)
			e.rollbackLocks(ctx, locked)
			return domain.CreateFail(errs[0]), nil
		}

		id, err := e.orders.Create(ctx, order)
		if err != nil || id <= 0 {
			e.logger.WithError(err).WithFields(log.Fields{
				"product_id": lp.product.ID,
				"buyer_id":   buyerID,
			}).Error("failed to persist order")
			e.rollbackCreated(ctx, created)
			e.rollbackLocks(ctx, locked)
			return domain.CreateFail(domain.ErrCreateOrderFailed), nil
		}
		order.ID = id
		created = append(created, order)
	}

	// Побочные эффекты после фиксации: корзина и события — best-effort.
	for _, order := range created {
		if e.cart != nil {
			if removed, err := e.cart.RemoveFromCart(ctx, buyerID, order.ProductID); err != nil || !removed {
				e.logger.WithError(err).WithFields(log.Fields{
					"buyer_id":   buyerID,
					"product_id": order.ProductID,
				}).Debug("cart cleanup skipped")
			}
		}
		if e.metrics != nil {
			e.metrics.RecordOrderCreated()
		}
		e.publishOrderEvent(kafka.EventTypeOrderCreated, order, map[string]interface{}{
			"buyer_id":  order.BuyerID,
			"seller_id": order.SellerID,
		})
	}

	return domain.CreateOK(lo.Map(created, func(order domain.Order, _ int) domain.OrderData {
		data := domain.NewOrderData(order)
		data.ProductStatus = domain.ProductStatusLocked
		return data
	})), nil
}

// rollbackLocks откатывает блокировки в обратном порядке взятия (LIFO),
// сужая окно несогласованности.
func (e *Engine) rollbackLocks(ctx context.Context, locked []lockedProduct) {
	for i := len(locked) - 1; i >= 0; i-- {
		productID := locked[i].product.ID
		ok, err := e.products.UpdateStatus(ctx, productID, domain.ProductStatusLocked, domain.ProductStatusOnSale)
		if err != nil || !ok {
			e.logger.WithError(err).WithField("product_id", productID).Error("failed to roll back product lock")
			continue
		}
		if e.metrics != nil {
			e.metrics.RecordRollback()
		}
	}
}

// rollbackCreated удаляет заказы, созданные в прерванном батче.
func (e *Engine) rollbackCreated(ctx context.Context, created []domain.Order) {
	for i := len(created) - 1; i >= 0; i-- {
		if err := e.orders.Delete(ctx, created[i].ID); err != nil {
			e.logger.WithError(err).WithField("order_id", created[i].ID).Error("failed to roll back created order")
		}
	}
}

// GetOrder возвращает заказ по идентификатору.
func (e *Engine) GetOrder(ctx context.Context, orderID int64) (domain.Order, error) {
	if orderID <= 0 {
		return domain.Order{}, domain.ErrInvalidParams
	}
	return e.orders.Get(ctx, orderID)
}

// ListOrdersByBuyer возвращает заказы покупателя, новые первыми.
func (e *Engine) ListOrdersByBuyer(ctx context.Context, buyerID int64, limit int) ([]domain.Order, error) {
	if buyerID <= 0 {
		return nil, domain.ErrInvalidParams
	}
	return e.orders.ListByBuyer(ctx, buyerID, limit)
}

// ListOrdersBySeller возвращает заказы продавца, новые первыми.
func (e *Engine) ListOrdersBySeller(ctx context.Context, sellerID int64, limit int) ([]domain.Order, error) {
	if sellerID <= 0 {
		return nil, domain.ErrInvalidParams
	}
	return e.orders.ListBySeller(ctx, sellerID, limit)
}

func (e *Engine) observeOp(operation string, start time.Time) {
	if e.metrics != nil {
		e.metrics.RecordOperationDuration(operation, time.Since(start))
	}
}

// publishOrderEvent публикует событие жизненного цикла в Kafka (если producer настроен).
// Публикация best-effort и никогда не блокирует переход.
func (e *Engine) publishOrderEvent(eventType kafka.EventType, order domain.Order, metadata map[string]interface{}) {
	if e.kafkaProducer == nil {
		return
	}

	event := kafka.NewOrderEvent(eventType, order.ID, order.ProductID, order.Status.String(), metadata)
	if err := e.kafkaProducer.PublishOrderEvent(event); err != nil {
		e.logger.WithError(err).WithFields(log.Fields{
			"event_type": eventType,
			"order_id":   order.ID,
		}).Warn("failed to publish order event to kafka")
	}
}
