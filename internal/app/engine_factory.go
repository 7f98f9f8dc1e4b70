package app

import (
	"github.com/vladislavdragonenkov/campus-market/internal/engine"
	"github.com/vladislavdragonenkov/campus-market/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/campus-market/internal/service/refund"
)

// createEngine создаёт движок заказов с или без Kafka в зависимости
// от наличия kafka producer.
func createEngine(deps *Dependencies, kafkaProducer *kafka.Producer) *engine.Engine {
	processor := refund.NewProcessor(
		deps.Settlement,
		deps.Refunds,
		deps.Logger.WithField("component", "refund-processor"),
	)

	if kafkaProducer != nil {
		return engine.NewEngineWithKafka(
			deps.Orders,
			deps.Products,
			deps.Cart,
			processor,
			kafkaProducer,
			deps.Logger.WithField("component", "order-engine"),
		)
	}

	return engine.NewEngine(
		deps.Orders,
		deps.Products,
		deps.Cart,
		processor,
		deps.Logger.WithField("component", "order-engine"),
	)
}
