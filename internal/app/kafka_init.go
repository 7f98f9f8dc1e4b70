package app

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/campus-market/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/campus-market/internal/service/payment"
)

const paymentConsumerMaxRetries = 3

// initKafkaProducer инициализирует Kafka producer если brokers не пустой.
// Возвращает nil если brokers пустой или producer не удалось создать:
// приложение продолжает работу без событий жизненного цикла.
func initKafkaProducer(brokers string, logger *log.Entry) *kafka.Producer {
	if brokers == "" {
		return nil
	}

	brokerList := strings.Split(brokers, ",")
	producer, err := kafka.NewProducer(brokerList)
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		return nil
	}

	logger.WithField("brokers", brokerList).Info("kafka producer initialized")
	return producer
}

// initPaymentConsumer подписывает диспетчер на уведомления платёжного шлюза.
// Producer переиспользуется как DLQ-отправитель для сообщений, исчерпавших retry.
func initPaymentConsumer(ctx context.Context, cfg Config, dispatcher *payment.Dispatcher, dlqProducer *kafka.Producer, logger *log.Entry) (*kafka.Consumer, error) {
	handler := payment.NewPaymentResultHandler(dispatcher, logger.WithField("component", "payment-result-handler"))

	consumer, err := kafka.NewConsumerWithDLQ(
		strings.Split(cfg.KafkaBrokers, ","),
		cfg.KafkaGroupID,
		[]string{kafka.TopicPaymentResults},
		handler,
		dlqProducer,
		paymentConsumerMaxRetries,
	)
	if err != nil {
		return nil, err
	}

	if err := consumer.Start(ctx); err != nil {
		return nil, err
	}

	logger.WithField("group_id", cfg.KafkaGroupID).Info("payment results consumer started")
	return consumer, nil
}

// closeKafka закрывает Kafka producer если он не nil.
func closeKafka(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}

	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
	} else {
		logger.Info("kafka producer closed")
	}
}
