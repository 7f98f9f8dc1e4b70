package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/campus-market/internal/domain"
)

type productGateway struct {
	db *sql.DB
}

// NewProductGateway создаёт PostgreSQL-реализацию ProductGateway поверх
// локальной проекции каталога.
func NewProductGateway(store *Store) domain.ProductGateway {
	return &productGateway{db: store.DB()}
}

func (g *productGateway) FindByID(ctx context.Context, productID int64) (*domain.Product, error) {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var (
		product domain.Product
		status  string
	)
	err := g.db.QueryRowContext(opCtx, `
		SELECT id, seller_id, status, price, title, description
		FROM products
		WHERE id = $1
	`, productID).Scan(
		&product.ID, &product.SellerID, &status,
		&product.Price, &product.Title, &product.Description,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query product: %w", err)
	}

	product.Status = domain.ProductStatus(status)
	return &product, nil
}

func (g *productGateway) UpdateStatus(ctx context.Context, productID int64, from, to domain.ProductStatus) (bool, error) {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	// CAS на строке товара: конкурирующие заказы разрешает сама БД.
	res, err := g.db.ExecContext(opCtx, `
		UPDATE products
		SET status = $1
		WHERE id = $2 AND status = $3
	`, string(to), productID, string(from))
	if err != nil {
		return false, fmt.Errorf("update product status: %w", err)
	}
	return affected(res)
}

func (g *productGateway) FindImages(ctx context.Context, productID int64) ([]string, error) {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var raw []byte
	err := g.db.QueryRowContext(opCtx, `
		SELECT image_urls FROM products WHERE id = $1
	`, productID).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query product images: %w", err)
	}

	var urls []string
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &urls); err != nil {
			return nil, fmt.Errorf("unmarshal product images: %w", err)
		}
	}
	return urls, nil
}

// UpsertProduct записывает товар в локальную проекцию каталога. Используется
// миграциями данных и интеграционными тестами.
func UpsertProduct(ctx context.Context, store *Store, product domain.Product, imageURLs []string) error {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	images, err := json.Marshal(imageURLs)
	if err != nil {
		return fmt.Errorf("marshal image urls: %w", err)
	}
	if imageURLs == nil {
		images = []byte("[]")
	}

	_, err = store.DB().ExecContext(opCtx, `
		INSERT INTO products (id, seller_id, status, price, title, description, image_urls)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (id) DO UPDATE
		SET seller_id = EXCLUDED.seller_id,
		    status = EXCLUDED.status,
		    price = EXCLUDED.price,
		    title = EXCLUDED.title,
		    description = EXCLUDED.description,
		    image_urls = EXCLUDED.image_urls
	`, product.ID, product.SellerID, string(product.Status),
		product.Price, product.Title, product.Description, images)
	if err != nil {
		return fmt.Errorf("upsert product: %w", err)
	}
	return nil
}
