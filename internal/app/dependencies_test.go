package app

import (
	"context"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"
)

func TestNewDependencies_Memory(t *testing.T) {
	logger := log.WithField("test", "dependencies")

	deps, err := newDependencies(context.Background(), DefaultConfig(), logger)
	if err != nil {
		t.Fatalf("newDependencies failed: %v", err)
	}

	if deps.Orders == nil {
		t.Error("Orders should not be nil")
	}

	if deps.Products == nil {
		t.Error("Products should not be nil")
	}

	if deps.Cart == nil {
		t.Error("Cart should not be nil")
	}

	if deps.Refunds == nil {
		t.Error("Refunds should not be nil")
	}

	if deps.Settlement == nil {
		t.Error("Settlement should not be nil")
	}

	if deps.Logger == nil {
		t.Error("Logger should not be nil")
	}

	if deps.Store != nil {
		t.Error("Store should be nil for memory storage")
	}

	// Close без postgres — no-op.
	deps.Close(logger)
}

func TestNewDependencies_WithNilLogger(t *testing.T) {
	deps, err := newDependencies(context.Background(), DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("newDependencies failed: %v", err)
	}

	if deps.Logger == nil {
		t.Error("Logger should be initialized even when nil is passed")
	}
}

func TestNewDependencies_PostgresWithoutDSN(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StorageDriver = StorageDriverPostgres

	_, err := newDependencies(context.Background(), cfg, log.WithField("test", "dependencies"))
	if err == nil || !strings.Contains(err.Error(), "DSN") {
		t.Fatalf("expected DSN error, got %v", err)
	}
}

func TestNewDependencies_UnsupportedDriver(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StorageDriver = "cassandra"

	_, err := newDependencies(context.Background(), cfg, log.WithField("test", "dependencies"))
	if err == nil || !strings.Contains(err.Error(), "unsupported storage driver") {
		t.Fatalf("expected unsupported storage driver error, got %v", err)
	}
}
