package mq

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/dkeye/Nearby/internal/core"
	"github.com/rs/zerolog/log"
)

// KafkaPublisher writes domain events to a single topic, keyed so that all
// events of one user land on the same partition.
type KafkaPublisher struct {
	producer *kafka.Producer
	topic    string
	doneCh   chan struct{}
}

var _ core.EventPublisher = (*KafkaPublisher)(nil)

func NewKafkaPublisher(brokers, topic string) (*KafkaPublisher, error) {
	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": brokers,
		"acks":              "1",
		"linger.ms":         5,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	kp := &KafkaPublisher{
		producer: p,
		topic:    topic,
		doneCh:   make(chan struct{}),
	}
	go kp.deliveryReports()

	log.Info().Str("module", "mq").Str("brokers", brokers).Str("topic", topic).Msg("kafka publisher ready")
	return kp, nil
}

func (kp *KafkaPublisher) deliveryReports() {
	for e := range kp.producer.Events() {
		if m, ok := e.(*kafka.Message); ok && m.TopicPartition.Error != nil {
			log.Warn().Err(m.TopicPartition.Error).Str("module", "mq").Str("key", string(m.Key)).Msg("kafka delivery failed")
		}
	}
	close(kp.doneCh)
}

func (kp *KafkaPublisher) Publish(ctx context.Context, key string, event any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg, err := buildMessage(&kp.topic, key, event)
	if err != nil {
		return err
	}
	if err := kp.producer.Produce(msg, nil); err != nil {
		return fmt.Errorf("failed to produce message: %w", err)
	}
	return nil
}

func buildMessage(topic *string, key string, event any) (*kafka.Message, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	return &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: topic, Partition: kafka.PartitionAny},
		Key:            []byte(key),
		Value:          value,
	}, nil
}

func (kp *KafkaPublisher) Close() error {
	if left := kp.producer.Flush(5000); left > 0 {
		log.Warn().Str("module", "mq").Int("pending", left).Msg("kafka flush timed out")
	}
	kp.producer.Close()
	<-kp.doneCh
	return nil
}

// NoopPublisher discards events. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, any) error { return nil }
func (NoopPublisher) Close() error { return nil }
