package payment

import (
	"context"
	"fmt"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/campus-market/internal/messaging/kafka"
)

// NewPaymentResultHandler возвращает обработчик сообщений из TopicPaymentResults,
// который раскладывает уведомления шлюза по очередям диспетчера.
func NewPaymentResultHandler(dispatcher *Dispatcher, logger *log.Entry) kafka.MessageHandler {
	if logger == nil {
		logger = log.New().WithField("component", "payment-result-handler")
	}

	return func(ctx context.Context, message *sarama.ConsumerMessage) error {
		result, err := kafka.ParsePaymentResult(message)
		if err != nil {
			// Невалидное сообщение уйдёт в DLQ после исчерпания retry.
			return fmt.Errorf("parse payment result: %w", err)
		}

		logger.WithFields(log.Fields{
			"payment_id": result.PaymentID,
			"order_ids":  result.OrderIDs,
			"success":    result.Success,
		}).Info("Payment result received")

		if result.Success {
			dispatcher.PaymentSucceeded(result.PaymentID, result.OrderIDs)
		} else {
			dispatcher.PaymentFailed(result.OrderIDs, result.Reason)
		}
		return nil
	}
}
