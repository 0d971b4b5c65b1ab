package app

import (
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
)

// eventSink: куда outbox-воркер отправляет события заказов.
// Нулевое значение означает работу без брокера: события копятся в outbox.
type eventSink struct {
	producer  *kafka.Producer
	publisher domain.OutboxPublisher
}

// openEventSink подключает Kafka, если заданы брокеры. Ошибка подключения не фатальна.
func openEventSink(cfg Config, logger *log.Entry) eventSink {
	brokers := cfg.KafkaBrokerList()
	if len(brokers) == 0 {
		logger.Info("kafka brokers are not configured, order events stay in outbox")
		return eventSink{}
	}

	producer, err := kafka.NewProducer(brokers, logger.WithField("component", "kafka-producer"))
	if err != nil {
		logger.WithError(err).WithField("brokers", brokers).Warn("kafka is unavailable, order events stay in outbox")
		return eventSink{}
	}

	logger.WithFields(log.Fields{"brokers": brokers, "topic": cfg.KafkaTopic}).Info("kafka producer connected")
	return eventSink{
		producer:  producer,
		publisher: kafka.NewOutboxPublisher(producer, cfg.KafkaTopic),
	}
}

// close закрывает producer после остановки outbox-воркера.
func (s eventSink) close(logger *log.Entry) {
	if s.producer == nil {
		return
	}
	if err := s.producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
		return
	}
	logger.Info("kafka producer closed")
}
