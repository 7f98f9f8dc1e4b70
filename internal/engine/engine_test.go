package engine_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/campus-market/internal/domain"
	"github.com/vladislavdragonenkov/campus-market/internal/engine"
	"github.com/vladislavdragonenkov/campus-market/internal/service/refund"
	"github.com/vladislavdragonenkov/campus-market/internal/service/settlement"
	"github.com/vladislavdragonenkov/campus-market/internal/storage/memory"
)

const (
	sellerID  = int64(100)
	buyerID   = int64(200)
	productID = int64(300)
)

type fixture struct {
	engine     *engine.Engine
	orders     domain.OrderRepository
	products   *memory.ProductGateway
	cart       *memory.CartService
	settlement *settlement.MockService
	refunds    domain.RefundRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	orders := memory.NewOrderRepository()
	products := memory.NewProductGateway()
	cart := memory.NewCartService()
	settlementMock := settlement.NewMockService()
	refundRepo := memory.NewRefundRepository()
	processor := refund.NewProcessor(settlementMock, refundRepo, nil)

	return &fixture{
		engine:     engine.NewEngineWithoutMetrics(orders, products, cart, processor, nil),
		orders:     orders,
		products:   products,
		cart:       cart,
		settlement: settlementMock,
		refunds:    refundRepo,
	}
}

func (f *fixture) addProduct(id, seller int64, price string) {
	f.products.Put(domain.Product{
		ID:       id,
		SellerID: seller,
		Status:   domain.ProductStatusOnSale,
		Price:    decimal.RequireFromString(price),
		Title:    gofakeit.BookTitle(),
	})
}

// createOrder прогоняет успешное создание одного заказа и возвращает его ID.
func (f *fixture) createOrder(t *testing.T) int64 {
	t.Helper()

	result, err := f.engine.CreateOrders(context.Background(), buyerID, []int64{productID})
	if err != nil {
		t.Fatalf("create orders failed: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %s: %s", result.ErrorCode, result.ErrorMessage)
	}
	return result.Orders[0].OrderID
}

// payOrder доводит заказ до AWAITING_SHIPPING.
func (f *fixture) payOrder(t *testing.T, orderID int64) {
	t.Helper()

	batch, err := f.engine.UpdateOrderStatusAfterPayment(context.Background(), []int64{orderID}, "pay-1")
	if err != nil {
		t.Fatalf("payment batch failed: %v", err)
	}
	if !batch.AllSucceeded() {
		t.Fatalf("expected payment to succeed, failures: %+v", batch.Failed)
	}
}

// shipOrder доводит заказ до SHIPPED.
func (f *fixture) shipOrder(t *testing.T, orderID int64) {
	t.Helper()

	result, err := f.engine.ShipOrder(context.Background(), orderID, sellerID)
	if err != nil || !result.Success {
		t.Fatalf("ship failed: err=%v code=%s", err, result.ErrorCode)
	}
}

func TestCreateOrders_Success(t *testing.T) {
	f := newFixture(t)
	f.addProduct(productID, sellerID, "99.99")
	f.products.PutImages(productID, []string{"https://img.example/1.jpg"})
	f.cart.Add(buyerID, productID)

	result, err := f.engine.CreateOrders(context.Background(), buyerID, []int64{productID})
	if err != nil {
		t.Fatalf("create orders failed: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %s", result.ErrorCode)
	}
	if len(result.Orders) != 1 {
		t.Fatalf("expected 1 order, got %d", len(result.Orders))
	}

	data := result.Orders[0]
	if data.OrderID <= 0 {
		t.Fatalf("expected positive order id, got %d", data.OrderID)
	}
	if !data.PriceAtPurchase.Equal(decimal.RequireFromString("99.99")) {
		t.Fatalf("expected price 99.99, got %s", data.PriceAtPurchase)
	}
	if data.OrderStatusText != "AWAITING_PAYMENT" {
		t.Fatalf("expected AWAITING_PAYMENT, got %s", data.OrderStatusText)
	}
	if data.ProductStatus != domain.ProductStatusLocked {
		t.Fatalf("expected product LOCKED, got %s", data.ProductStatus)
	}

	// Товар действительно заблокирован в каталоге.
	product, _ := f.products.FindByID(context.Background(), productID)
	if product.Status != domain.ProductStatusLocked {
		t.Fatalf("expected catalog status LOCKED, got %s", product.Status)
	}

	// Корзина почищена best-effort.
	if f.cart.Contains(buyerID, productID) {
		t.Fatal("expected product removed from cart")
	}

	// Снапшот содержит изображения.
	order, err := f.engine.GetOrder(context.Background(), data.OrderID)
	if err != nil {
		t.Fatalf("get order failed: %v", err)
	}
	if len(order.Snapshot.ImageURLs) != 1 {
		t.Fatalf("expected snapshot with 1 image, got %d", len(order.Snapshot.ImageURLs))
	}
}

func TestCreateOrders_InvalidParams(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		name       string
		buyerID    int64
		productIDs []int64
	}{
		{"zero buyer", 0, []int64{productID}},
		{"empty products", buyerID, nil},
		{"negative product id", buyerID, []int64{productID, -1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := f.engine.CreateOrders(context.Background(), tc.buyerID, tc.productIDs)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.Success || result.ErrorCode != "INVALID_PARAMS" {
				t.Fatalf("expected INVALID_PARAMS, got success=%v code=%s", result.Success, result.ErrorCode)
			}
		})
	}
}

func TestCreateOrders_ProductNotFound(t *testing.T) {
	f := newFixture(t)

	result, err := f.engine.CreateOrders(context.Background(), buyerID, []int64{404})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ErrorCode != "PRODUCT_NOT_FOUND" {
		t.Fatalf("expected PRODUCT_NOT_FOUND, got %s", result.ErrorCode)
	}
}

func TestCreateOrders_CantBuyOwnProduct(t *testing.T) {
	f := newFixture(t)
	f.addProduct(productID, sellerID, "99.99")

	result, err := f.engine.CreateOrders(context.Background(), sellerID, []int64{productID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ErrorCode != "CANT_BUY_OWN_PRODUCT" {
		t.Fatalf("expected CANT_BUY_OWN_PRODUCT, got %s", result.ErrorCode)
	}

	// Товар остался в продаже.
	product, _ := f.products.FindByID(context.Background(), productID)
	if product.Status != domain.ProductStatusOnSale {
		t.Fatalf("expected product to stay ON_SALE, got %s", product.Status)
	}
}

func TestCreateOrders_ProductNotAvailable(t *testing.T) {
	f := newFixture(t)
	f.products.Put(domain.Product{
		ID:       productID,
		SellerID: sellerID,
		Status:   domain.ProductStatusSold,
		Price:    decimal.RequireFromString("10"),
	})

	result, err := f.engine.CreateOrders(context.Background(), buyerID, []int64{productID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ErrorCode != "PRODUCT_NOT_AVAILABLE" {
		t.Fatalf("expected PRODUCT_NOT_AVAILABLE, got %s", result.ErrorCode)
	}
}

func TestCreateOrders_LostRaceRollsBackLocks(t *testing.T) {
	f := newFixture(t)
	f.addProduct(301, sellerID, "10.00")
	f.addProduct(302, sellerID, "20.00")
	f.addProduct(303, sellerID, "30.00")

	// Первые два товара блокируются, третий проигрывает гонку.
	f.products.FailUpdateStatus = 0
	ctx := context.Background()
	if ok, _ := f.products.UpdateStatus(ctx, 303, domain.ProductStatusOnSale, domain.ProductStatusLocked); !ok {
		t.Fatal("setup: failed to pre-lock product 303")
	}

	result, err := f.engine.CreateOrders(ctx, buyerID, []int64{301, 302, 303})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ErrorCode != "PRODUCT_NOT_AVAILABLE" {
		t.Fatalf("expected PRODUCT_NOT_AVAILABLE, got %s", result.ErrorCode)
	}

	// Взятые блокировки откатаны: 301 и 302 снова ON_SALE.
	for _, id := range []int64{301, 302} {
		product, _ := f.products.FindByID(ctx, id)
		if product.Status != domain.ProductStatusOnSale {
			t.Fatalf("expected product %d rolled back to ON_SALE, got %s", id, product.Status)
		}
	}

	// Частично созданных заказов нет.
	orders, _ := f.engine.ListOrdersByBuyer(ctx, buyerID, 0)
	if len(orders) != 0 {
		t.Fatalf("expected no partial orders, got %d", len(orders))
	}
}

func TestCreateOrders_CASFailureReportsLockError(t *testing.T) {
	f := newFixture(t)
	f.addProduct(productID, sellerID, "99.99")
	f.products.FailUpdateStatus = 1

	result, err := f.engine.CreateOrders(context.Background(), buyerID, []int64{productID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ErrorCode != "UPDATE_PRODUCT_STATUS_FAILED" {
		t.Fatalf("expected UPDATE_PRODUCT_STATUS_FAILED, got %s", result.ErrorCode)
	}
}

// failingOrderRepository ломает запись заказа после первых n успехов.
type failingOrderRepository struct {
	domain.OrderRepository
	allow int
}

func (r *failingOrderRepository) Create(ctx context.Context, order domain.Order) (int64, error) {
	if r.allow <= 0 {
		return 0, fmt.Errorf("storage unavailable")
	}
	r.allow--
	return r.OrderRepository.Create(ctx, order)
}

func TestCreateOrders_PersistFailureRollsBackEverything(t *testing.T) {
	f := newFixture(t)
	f.addProduct(301, sellerID, "10.00")
	f.addProduct(302, sellerID, "20.00")

	orders := &failingOrderRepository{OrderRepository: f.orders, allow: 1}
	eng := engine.NewEngineWithoutMetrics(orders, f.products, f.cart, nil, nil)

	ctx := context.Background()
	result, err := eng.CreateOrders(ctx, buyerID, []int64{301, 302})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ErrorCode != "CREATE_ORDER_FAILED" {
		t.Fatalf("expected CREATE_ORDER_FAILED, got %s", result.ErrorCode)
	}

	// Первый успешно записанный заказ удалён компенсацией.
	listed, _ := f.orders.ListByBuyer(ctx, buyerID, 0)
	if len(listed) != 0 {
		t.Fatalf("expected no surviving orders, got %d", len(listed))
	}

	// Оба товара вернулись в продажу.
	for _, id := range []int64{301, 302} {
		product, _ := f.products.FindByID(ctx, id)
		if product.Status != domain.ProductStatusOnSale {
			t.Fatalf("expected product %d back ON_SALE, got %s", id, product.Status)
		}
	}
}

func TestCreateOrders_MutualExclusion(t *testing.T) {
	f := newFixture(t)
	f.addProduct(productID, sellerID, "99.99")

	const attempts = 16
	results := make([]domain.CreateResult, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			buyer := int64(1000 + idx)
			result, err := f.engine.CreateOrders(context.Background(), buyer, []int64{productID})
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			results[idx] = result
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, result := range results {
		if result.Success {
			winners++
		} else if result.ErrorCode != "PRODUCT_NOT_AVAILABLE" && result.ErrorCode != "UPDATE_PRODUCT_STATUS_FAILED" {
			t.Fatalf("unexpected loser code: %s", result.ErrorCode)
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d", winners)
	}
}

func TestSnapshotImmutableAfterListingEdit(t *testing.T) {
	f := newFixture(t)
	f.addProduct(productID, sellerID, "99.99")
	orderID := f.createOrder(t)

	// Продавец меняет карточку после создания заказа.
	f.products.Put(domain.Product{
		ID:       productID,
		SellerID: sellerID,
		Status:   domain.ProductStatusLocked,
		Price:    decimal.RequireFromString("149.99"),
		Title:    "новая цена",
	})

	order, err := f.engine.GetOrder(context.Background(), orderID)
	if err != nil {
		t.Fatalf("get order failed: %v", err)
	}
	if !order.Snapshot.Price.Equal(decimal.RequireFromString("99.99")) {
		t.Fatalf("expected snapshot price 99.99, got %s", order.Snapshot.Price)
	}
}

func TestUpdateOrderStatusAfterPayment(t *testing.T) {
	f := newFixture(t)
	f.addProduct(productID, sellerID, "99.99")
	orderID := f.createOrder(t)

	batch, err := f.engine.UpdateOrderStatusAfterPayment(context.Background(), []int64{orderID, 404}, "pay-1")
	if err != nil {
		t.Fatalf("payment batch failed: %v", err)
	}
	if len(batch.Succeeded) != 1 || batch.Succeeded[0] != orderID {
		t.Fatalf("expected order %d to succeed, got %+v", orderID, batch.Succeeded)
	}
	if len(batch.Failed) != 1 || batch.Failed[0].OrderID != 404 || batch.Failed[0].Code != "ORDER_NOT_FOUND" {
		t.Fatalf("unexpected failures: %+v", batch.Failed)
	}

	order, _ := f.engine.GetOrder(context.Background(), orderID)
	if order.Status != domain.OrderStatusAwaitingShipping {
		t.Fatalf("expected AWAITING_SHIPPING, got %s", order.Status)
	}
	if order.PaymentID != "pay-1" {
		t.Fatalf("expected payment id recorded, got %q", order.PaymentID)
	}
}

func TestUpdateOrderStatusAfterPayment_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.addProduct(productID, sellerID, "99.99")
	orderID := f.createOrder(t)
	f.payOrder(t, orderID)

	batch, err := f.engine.UpdateOrderStatusAfterPayment(context.Background(), []int64{orderID}, "pay-2")
	if err != nil {
		t.Fatalf("payment batch failed: %v", err)
	}
	if len(batch.Failed) != 1 || batch.Failed[0].Code != "ORDER_STATUS_NOT_AWAITING_PAYMENT" {
		t.Fatalf("expected ORDER_STATUS_NOT_AWAITING_PAYMENT, got %+v", batch.Failed)
	}

	// Первый платёж не затёрт повторным вызовом.
	order, _ := f.engine.GetOrder(context.Background(), orderID)
	if order.PaymentID != "pay-1" {
		t.Fatalf("expected original payment id, got %q", order.PaymentID)
	}
}

func TestUpdateOrderStatusAfterPayment_EmptyInput(t *testing.T) {
	f := newFixture(t)

	if _, err := f.engine.UpdateOrderStatusAfterPayment(context.Background(), nil, "pay-1"); !errors.Is(err, domain.ErrInvalidParams) {
		t.Fatalf("expected ErrInvalidParams, got %v", err)
	}
	if _, err := f.engine.UpdateOrderStatusAfterPayment(context.Background(), []int64{1}, ""); !errors.Is(err, domain.ErrInvalidParams) {
		t.Fatalf("expected ErrInvalidParams, got %v", err)
	}
}

func TestCancelOrdersAfterPaymentFailure(t *testing.T) {
	f := newFixture(t)
	f.addProduct(productID, sellerID, "99.99")
	orderID := f.createOrder(t)

	batch, err := f.engine.CancelOrdersAfterPaymentFailure(context.Background(), []int64{orderID}, "card declined")
	if err != nil {
		t.Fatalf("cancel batch failed: %v", err)
	}
	if !batch.AllSucceeded() {
		t.Fatalf("expected cancel to succeed, failures: %+v", batch.Failed)
	}

	order, _ := f.engine.GetOrder(context.Background(), orderID)
	if order.Status != domain.OrderStatusCancelled {
		t.Fatalf("expected CANCELLED, got %s", order.Status)
	}

	// Товар вернулся в продажу.
	product, _ := f.products.FindByID(context.Background(), productID)
	if product.Status != domain.ProductStatusOnSale {
		t.Fatalf("expected product ON_SALE, got %s", product.Status)
	}
}

func TestCancelOrders_ShippedOrderNotCancellable(t *testing.T) {
	f := newFixture(t)
	f.addProduct(productID, sellerID, "99.99")
	orderID := f.createOrder(t)
	f.payOrder(t, orderID)
	f.shipOrder(t, orderID)

	batch, err := f.engine.CancelOrdersAfterPaymentFailure(context.Background(), []int64{orderID}, "late failure")
	if err != nil {
		t.Fatalf("cancel batch failed: %v", err)
	}
	if len(batch.Failed) != 1 || batch.Failed[0].Code != "ORDER_STATUS_NOT_CANCELLABLE" {
		t.Fatalf("expected ORDER_STATUS_NOT_CANCELLABLE, got %+v", batch)
	}

	order, _ := f.engine.GetOrder(context.Background(), orderID)
	if order.Status != domain.OrderStatusShipped {
		t.Fatalf("expected order untouched in SHIPPED, got %s", order.Status)
	}
}
