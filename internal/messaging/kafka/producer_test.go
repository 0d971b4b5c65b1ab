package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	log "github.com/sirupsen/logrus"
)

func TestProducer_Send(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)
	producer := NewProducerFromSync(mockProducer, log.WithField("component", "kafka-producer-test"))

	mockProducer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		key, _ := msg.Key.Encode()
		if msg.Topic != TopicOrderEvents || string(key) != "order-123" {
			return errors.New("unexpected topic or key")
		}
		if len(msg.Headers) != 2 || string(msg.Headers[0].Key) != "a" || string(msg.Headers[1].Key) != "b" {
			return errors.New("headers must be sorted by key")
		}
		return nil
	})

	err := producer.Send(context.Background(), Record{
		Topic:   TopicOrderEvents,
		Key:     "order-123",
		Value:   []byte(`{"order_id":"order-123"}`),
		Headers: map[string]string{"b": "2", "a": "1"},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestProducer_Send_BrokerError(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)
	producer := NewProducerFromSync(mockProducer, nil)

	mockProducer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	err := producer.Send(context.Background(), Record{Topic: TopicOrderEvents, Key: "order-123"})
	if !errors.Is(err, sarama.ErrOutOfBrokers) {
		t.Fatalf("expected ErrOutOfBrokers, got %v", err)
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestProducer_Send_RejectsBeforeBroker(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)
	producer := NewProducerFromSync(mockProducer, nil)

	if err := producer.Send(context.Background(), Record{Key: "k"}); err == nil {
		t.Fatal("expected error for record without topic")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := producer.Send(ctx, Record{Topic: TopicOrderEvents}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestProducerConfig_Idempotent(t *testing.T) {
	cfg := producerConfig("test-client")
	if !cfg.Producer.Idempotent || cfg.Net.MaxOpenRequests != 1 || cfg.Producer.RequiredAcks != sarama.WaitForAll {
		t.Fatalf("unexpected producer config: %+v", cfg.Producer)
	}
	if cfg.ClientID != "test-client" {
		t.Fatalf("unexpected client id %q", cfg.ClientID)
	}
}

func TestRecordHeaders_Empty(t *testing.T) {
	if recordHeaders(nil) != nil {
		t.Fatal("expected nil headers")
	}
}
