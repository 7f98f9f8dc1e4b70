package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/campus-market/internal/domain"
)

type refundRepository struct {
	db *sql.DB
}

// NewRefundRepository создаёт PostgreSQL-реализацию RefundRepository.
func NewRefundRepository(store *Store) domain.RefundRepository {
	return &refundRepository{db: store.DB()}
}

func (r *refundRepository) Create(ctx context.Context, tx domain.RefundTransaction) error {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := r.db.ExecContext(opCtx, `
		INSERT INTO refund_transactions (
			refund_id, order_id, amount, reason, status, create_time
		) VALUES ($1,$2,$3,$4,$5,$6)
	`, tx.RefundID, tx.OrderID, tx.Amount, tx.Reason, string(tx.Status), tx.CreateTime)
	if err != nil {
		return fmt.Errorf("insert refund transaction: %w", err)
	}
	return nil
}

func (r *refundRepository) GetByRefundID(ctx context.Context, refundID string) (*domain.RefundTransaction, error) {
	return r.get(ctx, `WHERE refund_id = $1`, refundID)
}

func (r *refundRepository) GetByOrderID(ctx context.Context, orderID int64) (*domain.RefundTransaction, error) {
	return r.get(ctx, `WHERE order_id = $1`, orderID)
}

func (r *refundRepository) get(ctx context.Context, where string, arg interface{}) (*domain.RefundTransaction, error) {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var (
		tx     domain.RefundTransaction
		status string
	)
	err := r.db.QueryRowContext(opCtx, `
		SELECT refund_id, order_id, amount, reason, status, create_time
		FROM refund_transactions
	`+where, arg).Scan(&tx.RefundID, &tx.OrderID, &tx.Amount, &tx.Reason, &status, &tx.CreateTime)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query refund transaction: %w", err)
	}

	tx.Status = domain.RefundStatus(status)
	return &tx, nil
}
