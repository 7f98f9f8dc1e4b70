package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/campus-market/internal/domain"
	"github.com/vladislavdragonenkov/campus-market/internal/service/settlement"
	"github.com/vladislavdragonenkov/campus-market/internal/storage/memory"
	"github.com/vladislavdragonenkov/campus-market/internal/storage/postgres"
)

// Dependencies содержит все зависимости приложения.
type Dependencies struct {
	Orders     domain.OrderRepository
	Products   domain.ProductGateway
	Cart       domain.CartService
	Refunds    domain.RefundRepository
	Settlement domain.SettlementService
	Logger     *log.Entry

	// Store не nil только при postgres-хранилище.
	Store *postgres.Store
}

// newDependencies собирает хранилище по конфигурации.
// NOTE: settlement и корзина — mock-реализации; в production их заменяют
// клиенты платёжного провайдера и сервиса корзины.
func newDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	deps := &Dependencies{
		Settlement: settlement.NewMockService(),
		Logger:     logger,
	}

	switch cfg.StorageDriver {
	case StorageDriverPostgres:
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres storage requires a DSN")
		}
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres store: %w", err)
		}
		if cfg.PostgresAutoMigrate {
			if err := store.EnsureSchema(ctx); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("failed to apply migrations: %w", err)
			}
		}
		deps.Store = store
		deps.Orders = postgres.NewOrderRepository(store)
		deps.Products = postgres.NewProductGateway(store)
		deps.Refunds = postgres.NewRefundRepository(store)
		deps.Cart = memory.NewCartService()
		logger.Info("postgres storage initialized")
	case StorageDriverMemory, "":
		deps.Orders = memory.NewOrderRepository()
		deps.Products = memory.NewProductGateway()
		deps.Refunds = memory.NewRefundRepository()
		deps.Cart = memory.NewCartService()
		logger.Info("in-memory storage initialized")
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.StorageDriver)
	}

	return deps, nil
}

// Close освобождает ресурсы хранилища.
func (d *Dependencies) Close(logger *log.Entry) {
	if d.Store == nil {
		return
	}
	if err := d.Store.Close(); err != nil {
		logger.WithError(err).Warn("failed to close postgres store")
	} else {
		logger.Info("postgres store closed")
	}
}
