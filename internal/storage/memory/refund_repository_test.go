package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/campus-market/internal/domain"
	"github.com/vladislavdragonenkov/campus-market/internal/storage/memory"
)

func TestRefundRepository_CreateAndLookups(t *testing.T) {
	repo := memory.NewRefundRepository()
	ctx := context.Background()

	tx := domain.RefundTransaction{
		RefundID:   "refund-1",
		OrderID:    42,
		Amount:     decimal.RequireFromString("99.99"),
		Reason:     "не подошёл размер",
		Status:     domain.RefundStatusCompleted,
		CreateTime: time.Now(),
	}
	if err := repo.Create(ctx, tx); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	byRefund, err := repo.GetByRefundID(ctx, "refund-1")
	if err != nil {
		t.Fatalf("get by refund id failed: %v", err)
	}
	if byRefund == nil || byRefund.OrderID != 42 {
		t.Fatalf("unexpected transaction: %+v", byRefund)
	}

	byOrder, err := repo.GetByOrderID(ctx, 42)
	if err != nil {
		t.Fatalf("get by order id failed: %v", err)
	}
	if byOrder == nil || byOrder.RefundID != "refund-1" {
		t.Fatalf("unexpected transaction: %+v", byOrder)
	}
}

func TestRefundRepository_MissingIsNil(t *testing.T) {
	repo := memory.NewRefundRepository()
	ctx := context.Background()

	tx, err := repo.GetByRefundID(ctx, "nope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tx != nil {
		t.Fatal("expected nil for missing refund id")
	}

	tx, err = repo.GetByOrderID(ctx, 404)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tx != nil {
		t.Fatal("expected nil for missing order id")
	}
}

func TestRefundRepository_DuplicateRefundID(t *testing.T) {
	repo := memory.NewRefundRepository()
	ctx := context.Background()

	tx := domain.RefundTransaction{RefundID: "refund-1", OrderID: 42}
	if err := repo.Create(ctx, tx); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := repo.Create(ctx, tx); err == nil {
		t.Fatal("expected duplicate refund id to fail")
	}
}

func TestRefundRepository_SecondRefundForOrderRejected(t *testing.T) {
	repo := memory.NewRefundRepository()
	ctx := context.Background()

	first := domain.RefundTransaction{RefundID: "refund-1", OrderID: 42}
	if err := repo.Create(ctx, first); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// По заказу допустим только один возврат, как и в postgres-схеме.
	second := domain.RefundTransaction{RefundID: "refund-2", OrderID: 42}
	if err := repo.Create(ctx, second); err == nil {
		t.Fatal("expected second refund for the same order to fail")
	}

	// Первая запись осталась нетронутой.
	tx, err := repo.GetByOrderID(ctx, 42)
	if err != nil {
		t.Fatalf("get by order id failed: %v", err)
	}
	if tx == nil || tx.RefundID != "refund-1" {
		t.Fatalf("unexpected transaction: %+v", tx)
	}
	if orphan, _ := repo.GetByRefundID(ctx, "refund-2"); orphan != nil {
		t.Fatalf("rejected refund must not be stored, got %+v", orphan)
	}
}
