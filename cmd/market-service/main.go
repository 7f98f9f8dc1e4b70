package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/campus-market/internal/app"
)

const (
	envMetricsAddr  = "MARKET_METRICS_ADDR"
	envPostgresDSN  = "MARKET_POSTGRES_DSN"
	envKafkaBrokers = "KAFKA_BROKERS"
	envKafkaGroupID = "MARKET_KAFKA_GROUP_ID"
)

// envLookup абстрагирует os.LookupEnv для тестов.
type envLookup func(key string) (string, bool)

// setupLogger настраивает формат и уровень логирования для сервиса.
func setupLogger() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)
}

// readConfigFromEnv формирует конфигурацию приложения из переменных окружения.
// DSN постгреса автоматически переключает драйвер хранилища.
func readConfigFromEnv(lookup envLookup) app.Config {
	cfg := app.DefaultConfig()

	if v, ok := lookup(envMetricsAddr); ok && strings.TrimSpace(v) != "" {
		cfg.MetricsAddr = strings.TrimSpace(v)
	}
	if v, ok := lookup(envPostgresDSN); ok && strings.TrimSpace(v) != "" {
		cfg.StorageDriver = app.StorageDriverPostgres
		cfg.PostgresDSN = strings.TrimSpace(v)
	}
	if v, ok := lookup(envKafkaBrokers); ok {
		cfg.KafkaBrokers = strings.TrimSpace(v)
	}
	if v, ok := lookup(envKafkaGroupID); ok && strings.TrimSpace(v) != "" {
		cfg.KafkaGroupID = strings.TrimSpace(v)
	}

	return cfg
}

func main() {
	setupLogger()
	cfg := readConfigFromEnv(os.LookupEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"storage":      cfg.StorageDriver,
		"metrics_addr": cfg.MetricsAddr,
	}).Info("запускаем движок заказов")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("приложение завершилось с ошибкой")
	}

	log.Info("движок заказов остановлен")
}
