// pkg/mq/kafka.go
package mq

import (
	"fmt"

	"github.com/IBM/sarama"
)

// Producer publishes messages to Kafka. It is a thin wrapper around a
// sarama.SyncProducer so the rest of the code depends on a small
// interface it can fake in tests.
type Producer interface {
	Send(topic, key, value string) error
	Close() error
}

type kafkaProducer struct {
	producer sarama.SyncProducer
}

// NewKafkaProducer creates a synchronous Kafka producer that waits for
// full ISR acknowledgement before reporting success.
func NewKafkaProducer(brokers []string) (Producer, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 3
	cfg.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}
	return &kafkaProducer{producer: producer}, nil
}

// Send publishes one message keyed by key.
func (p *kafkaProducer) Send(topic, key, value string) error {
	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.StringEncoder(value),
	}
	if _, _, err := p.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("failed to send message to topic %s: %w", topic, err)
	}
	return nil
}

// Close shuts the underlying producer down.
func (p *kafkaProducer) Close() error {
	return p.producer.Close()
}
