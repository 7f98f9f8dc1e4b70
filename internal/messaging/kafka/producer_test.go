package kafka

import (
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	log "github.com/sirupsen/logrus"
)

func TestProducer_PublishEvent(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)

	producer := &Producer{
		producer: mockProducer,
		logger:   log.WithField("component", "kafka-producer-test"),
	}

	mockProducer.ExpectSendMessageAndSucceed()

	event := NewOrderEvent(
		EventTypeOrderCreated,
		1,
		42,
		"AWAITING_PAYMENT",
		map[string]interface{}{
			"buyer_id": int64(7),
		},
	)

	err := producer.PublishEvent(TopicOrderEvents, "1", event)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// Проверяем, что все ожидания выполнены
	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestProducer_PublishEvent_Error(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)

	producer := &Producer{
		producer: mockProducer,
		logger:   log.WithField("component", "kafka-producer-test"),
	}

	mockProducer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	event := NewOrderEvent(EventTypeOrderCreated, 1, 42, "AWAITING_PAYMENT", nil)

	err := producer.PublishEvent(TopicOrderEvents, "1", event)
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestProducer_PublishOrderEvent(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)
	producer := &Producer{
		producer: mockProducer,
		logger:   log.WithField("component", "kafka-producer-test"),
	}

	mockProducer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		return nil
	})

	event := NewOrderEvent(EventTypeOrderShipped, 15, 42, "SHIPPED", nil)
	if err := producer.PublishOrderEvent(event); err != nil {
		t.Fatalf("PublishOrderEvent failed: %v", err)
	}

	if err := producer.PublishOrderEvent(nil); err == nil {
		t.Fatal("expected error for nil order event")
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestProducer_PublishPaymentResult(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)
	producer := &Producer{
		producer: mockProducer,
		logger:   log.WithField("component", "kafka-producer-test"),
	}

	mockProducer.ExpectSendMessageAndSucceed()

	result := &PaymentResult{
		PaymentID: "pay-1",
		OrderIDs:  []int64{1, 2, 3},
		Success:   true,
		Timestamp: time.Now(),
	}
	if err := producer.PublishPaymentResult(result); err != nil {
		t.Fatalf("PublishPaymentResult failed: %v", err)
	}

	if err := producer.PublishPaymentResult(nil); err == nil {
		t.Fatal("expected error for nil payment result")
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestNewOrderEvent(t *testing.T) {
	metadata := map[string]interface{}{
		"reason": "передумал",
	}

	event := NewOrderEvent(EventTypeOrderReturnRequested, 10, 20, "RETURN_REQUESTED", metadata)

	if event.EventType != EventTypeOrderReturnRequested {
		t.Errorf("expected event type %s, got %s", EventTypeOrderReturnRequested, event.EventType)
	}

	if event.OrderID != 10 {
		t.Errorf("expected order id 10, got %d", event.OrderID)
	}

	if event.ProductID != 20 {
		t.Errorf("expected product id 20, got %d", event.ProductID)
	}

	if event.Status != "RETURN_REQUESTED" {
		t.Errorf("expected status RETURN_REQUESTED, got %s", event.Status)
	}

	if event.Metadata["reason"] != "передумал" {
		t.Error("metadata not set correctly")
	}

	// Проверяем, что timestamp установлен
	if event.Timestamp.IsZero() {
		t.Error("timestamp should not be zero")
	}

	if time.Since(event.Timestamp) > time.Second {
		t.Error("timestamp should be close to current time")
	}
}
