package postgres

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/campus-market/internal/domain"
)

func sampleOrder(buyerID, sellerID, productID int64) domain.Order {
	return domain.Order{
		BuyerID:   buyerID,
		SellerID:  sellerID,
		ProductID: productID,
		Snapshot: domain.ListingSnapshot{
			Title:       "Велосипед Stels",
			Description: "после одного сезона",
			Price:       decimal.RequireFromString("149.50"),
			ImageURLs:   []string{"https://img.example/bike.jpg"},
		},
		Status: domain.OrderStatusAwaitingPayment,
	}
}

func TestOrderRepository_PostgresCreateGetList(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOrderRepository(store)
	ctx := context.Background()

	id1, err := repo.Create(ctx, sampleOrder(200, 100, 300))
	if err != nil {
		t.Fatalf("create order1: %v", err)
	}
	id2, err := repo.Create(ctx, sampleOrder(200, 100, 301))
	if err != nil {
		t.Fatalf("create order2: %v", err)
	}
	if id1 == id2 {
		t.Fatalf("expected distinct ids, got %d twice", id1)
	}

	got, err := repo.Get(ctx, id1)
	if err != nil {
		t.Fatalf("get order1: %v", err)
	}
	if got.BuyerID != 200 || got.Status != domain.OrderStatusAwaitingPayment {
		t.Fatalf("unexpected order payload: %+v", got)
	}
	if !got.Snapshot.Price.Equal(decimal.RequireFromString("149.50")) {
		t.Fatalf("unexpected snapshot price: %s", got.Snapshot.Price)
	}
	if len(got.Snapshot.ImageURLs) != 1 {
		t.Fatalf("unexpected snapshot images: %+v", got.Snapshot.ImageURLs)
	}

	listed, err := repo.ListByBuyer(ctx, 200, 1)
	if err != nil {
		t.Fatalf("list by buyer with limit: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("expected 1 order with limit, got %d", len(listed))
	}

	all, err := repo.ListBySeller(ctx, 100, 0)
	if err != nil {
		t.Fatalf("list by seller: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 orders for seller, got %d", len(all))
	}
}

func TestOrderRepository_PostgresGetNotFound(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOrderRepository(store)

	if _, err := repo.Get(context.Background(), 424242); err != domain.ErrOrderNotFound {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestOrderRepository_PostgresStatusCAS(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOrderRepository(store)
	ctx := context.Background()

	id, err := repo.Create(ctx, sampleOrder(200, 100, 300))
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	ok, err := repo.MarkPaid(ctx, id, "pay-1")
	if err != nil || !ok {
		t.Fatalf("mark paid: ok=%v err=%v", ok, err)
	}

	// Повторная оплата проигрывает CAS.
	ok, err = repo.MarkPaid(ctx, id, "pay-2")
	if err != nil {
		t.Fatalf("mark paid retry: %v", err)
	}
	if ok {
		t.Fatal("expected second mark paid to fail")
	}

	got, err := repo.Get(ctx, id)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if got.PaymentID != "pay-1" {
		t.Fatalf("expected first payment id to win, got %q", got.PaymentID)
	}

	ok, err = repo.UpdateStatus(ctx, id, domain.OrderStatusAwaitingShipping, domain.OrderStatusShipped)
	if err != nil || !ok {
		t.Fatalf("update status: ok=%v err=%v", ok, err)
	}
	ok, err = repo.UpdateStatus(ctx, id, domain.OrderStatusAwaitingShipping, domain.OrderStatusShipped)
	if err != nil {
		t.Fatalf("update status retry: %v", err)
	}
	if ok {
		t.Fatal("expected stale CAS to fail")
	}
}

func TestOrderRepository_PostgresReturnFlow(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOrderRepository(store)
	ctx := context.Background()

	order := sampleOrder(200, 100, 300)
	order.Status = domain.OrderStatusAwaitingPayment
	id, err := repo.Create(ctx, order)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if _, err := repo.MarkPaid(ctx, id, "pay-1"); err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if _, err := repo.UpdateStatus(ctx, id, domain.OrderStatusAwaitingShipping, domain.OrderStatusShipped); err != nil {
		t.Fatalf("ship: %v", err)
	}

	ok, err := repo.RequestReturn(ctx, id, "царапина на раме")
	if err != nil || !ok {
		t.Fatalf("request return: ok=%v err=%v", ok, err)
	}

	got, err := repo.Get(ctx, id)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if got.Status != domain.OrderStatusReturnRequested {
		t.Fatalf("expected RETURN_REQUESTED, got %s", got.Status)
	}
	if got.StatusBeforeReturn != domain.OrderStatusShipped {
		t.Fatalf("expected prior status SHIPPED, got %s", got.StatusBeforeReturn)
	}
	if got.ReturnReason != "царапина на раме" {
		t.Fatalf("unexpected return reason: %q", got.ReturnReason)
	}

	ok, err = repo.ResolveReturn(ctx, id, got.StatusBeforeReturn, "следы эксплуатации")
	if err != nil || !ok {
		t.Fatalf("resolve return: ok=%v err=%v", ok, err)
	}

	got, _ = repo.Get(ctx, id)
	if got.Status != domain.OrderStatusShipped {
		t.Fatalf("expected order restored to SHIPPED, got %s", got.Status)
	}
	if got.RejectReason != "следы эксплуатации" {
		t.Fatalf("unexpected reject reason: %q", got.RejectReason)
	}
}

func TestOrderRepository_PostgresDelete(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOrderRepository(store)
	ctx := context.Background()

	id, err := repo.Create(ctx, sampleOrder(200, 100, 300))
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	if err := repo.Delete(ctx, id); err != nil {
		t.Fatalf("delete order: %v", err)
	}
	if err := repo.Delete(ctx, id); err != domain.ErrOrderNotFound {
		t.Fatalf("expected ErrOrderNotFound on second delete, got %v", err)
	}
}
