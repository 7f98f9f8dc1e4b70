package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/campus-market/internal/domain"
)

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{db: store.DB()}
}

func (r *orderRepository) Create(ctx context.Context, order domain.Order) (int64, error) {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	images, err := json.Marshal(order.Snapshot.ImageURLs)
	if err != nil {
		return 0, fmt.Errorf("marshal image urls: %w", err)
	}

	var id int64
	err = r.db.QueryRowContext(opCtx, `
		INSERT INTO orders (
			buyer_id, seller_id, product_id,
			title, description, price, image_urls,
			status, create_time, update_time
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NOW(),NOW())
		RETURNING id
	`,
		order.BuyerID, order.SellerID, order.ProductID,
		order.Snapshot.Title, order.Snapshot.Description, order.Snapshot.Price, images,
		int(order.Status),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert order: %w", err)
	}

	return id, nil
}

func (r *orderRepository) Get(ctx context.Context, id int64) (domain.Order, error) {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return scanOrder(r.db.QueryRowContext(opCtx, `
		SELECT id, buyer_id, seller_id, product_id,
		       title, description, price, image_urls,
		       status, payment_id, return_reason, reject_reason,
		       status_before_return, create_time, update_time
		FROM orders
		WHERE id = $1
	`, id))
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id int64, from, to domain.OrderStatus) (bool, error) {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	// Условное обновление: совпадение ожидаемого статуса проверяет сама БД.
	res, err := r.db.ExecContext(opCtx, `
		UPDATE orders
		SET status = $1, update_time = NOW()
		WHERE id = $2 AND status = $3
	`, int(to), id, int(from))
	if err != nil {
		return false, fmt.Errorf("update order status: %w", err)
	}
	return affected(res)
}

func (r *orderRepository) MarkPaid(ctx context.Context, id int64, paymentID string) (bool, error) {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(opCtx, `
		UPDATE orders
		SET status = $1, payment_id = $2, update_time = NOW()
		WHERE id = $3 AND status = $4
	`, int(domain.OrderStatusAwaitingShipping), paymentID, id, int(domain.OrderStatusAwaitingPayment))
	if err != nil {
		return false, fmt.Errorf("mark order paid: %w", err)
	}
	return affected(res)
}

func (r *orderRepository) RequestReturn(ctx context.Context, id int64, reason string) (bool, error) {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(opCtx, `
		UPDATE orders
		SET status = $1, return_reason = $2,
		    status_before_return = status, update_time = NOW()
		WHERE id = $3 AND status IN ($4, $5)
	`, int(domain.OrderStatusReturnRequested), reason, id,
		int(domain.OrderStatusShipped), int(domain.OrderStatusCompleted))
	if err != nil {
		return false, fmt.Errorf("request return: %w", err)
	}
	return affected(res)
}

func (r *orderRepository) ResolveReturn(ctx context.Context, id int64, to domain.OrderStatus, rejectReason string) (bool, error) {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(opCtx, `
		UPDATE orders
		SET status = $1, reject_reason = $2, update_time = NOW()
		WHERE id = $3 AND status = $4
	`, int(to), rejectReason, id, int(domain.OrderStatusReturnRequested))
	if err != nil {
		return false, fmt.Errorf("resolve return: %w", err)
	}
	return affected(res)
}

func (r *orderRepository) Delete(ctx context.Context, id int64) error {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(opCtx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if ok, err := affected(res); err != nil {
		return err
	} else if !ok {
		return domain.ErrOrderNotFound
	}
	return nil
}

func (r *orderRepository) ListByBuyer(ctx context.Context, buyerID int64, limit int) ([]domain.Order, error) {
	return r.list(ctx, "buyer_id", buyerID, limit)
}

func (r *orderRepository) ListBySeller(ctx context.Context, sellerID int64, limit int) ([]domain.Order, error) {
	return r.list(ctx, "seller_id", sellerID, limit)
}

func (r *orderRepository) list(ctx context.Context, column string, actorID int64, limit int) ([]domain.Order, error) {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	query := fmt.Sprintf(`
		SELECT id, buyer_id, seller_id, product_id,
		       title, description, price, image_urls,
		       status, payment_id, return_reason, reject_reason,
		       status_before_return, create_time, update_time
		FROM orders
		WHERE %s = $1
		ORDER BY create_time DESC, id DESC
	`, column)

	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = r.db.QueryContext(opCtx, query+" LIMIT $2", actorID, limit)
	} else {
		rows, err = r.db.QueryContext(opCtx, query, actorID)
	}
	if err != nil {
		return nil, fmt.Errorf("query orders by %s: %w", column, err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}

	return orders, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var (
		order              domain.Order
		status             int
		statusBeforeReturn int
		images             []byte
	)
	err := row.Scan(
		&order.ID, &order.BuyerID, &order.SellerID, &order.ProductID,
		&order.Snapshot.Title, &order.Snapshot.Description, &order.Snapshot.Price, &images,
		&status, &order.PaymentID, &order.ReturnReason, &order.RejectReason,
		&statusBeforeReturn, &order.CreateTime, &order.UpdateTime,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("scan order: %w", err)
	}

	order.Status = domain.OrderStatus(status)
	order.StatusBeforeReturn = domain.OrderStatus(statusBeforeReturn)
	if len(images) > 0 {
		if err := json.Unmarshal(images, &order.Snapshot.ImageURLs); err != nil {
			return domain.Order{}, fmt.Errorf("unmarshal image urls: %w", err)
		}
	}

	return order, nil
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
