package mq

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMessage(t *testing.T) {
	topic := "nearby.events"
	msg, err := buildMessage(&topic, "u1", map[string]any{"kind": "proximity", "event_type": "entered"})
	require.NoError(t, err)

	assert.Equal(t, "u1", string(msg.Key))
	assert.Equal(t, &topic, msg.TopicPartition.Topic)
	assert.Equal(t, kafka.PartitionAny, msg.TopicPartition.Partition)

	var got map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, "entered", got["event_type"])

	_, err = buildMessage(&topic, "u1", make(chan int))
	assert.Error(t, err)
}

func TestNoopPublisher(t *testing.T) {
	var p NoopPublisher
	assert.NoError(t, p.Publish(context.Background(), "k", struct{}{}))
	assert.NoError(t, p.Close())
}
