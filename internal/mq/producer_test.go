package mq

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dembasy/jokko/internal/config"
	"github.com/dembasy/jokko/internal/events"
	"github.com/dembasy/jokko/pkg/logger"
)

// ! These tests require a running Kafka instance and skip otherwise.

func TestNewProducer(t *testing.T) {
	cfg := &config.KafkaConfig{
		Brokers: []string{"127.0.0.1:9092"},
		Topic:   "jokko.events.test",
	}

	producer, err := NewProducer(cfg, logger.NewNop())
	if err != nil {
		t.Skipf("Skipping test: Kafka not available: %v", err)
		return
	}
	defer producer.Close()

	assert.NotNil(t, producer)
	assert.Equal(t, cfg.Topic, producer.topic)
}

func TestProducerPublishEvent(t *testing.T) {
	cfg := &config.KafkaConfig{
		Brokers: []string{"127.0.0.1:9092"},
		Topic:   "jokko.events.test",
	}

	producer, err := NewProducer(cfg, logger.NewNop())
	if err != nil {
		t.Skipf("Skipping test: Kafka not available: %v", err)
		return
	}
	defer producer.Close()

	err = producer.PublishEvent(context.Background(), "user-1", events.Event{
		Type:    events.GroupCreated,
		Payload: map[string]string{"group_id": "g1"},
	})
	assert.NoError(t, err)
}

func TestProducerRelayDrainsChannel(t *testing.T) {
	cfg := &config.KafkaConfig{
		Brokers: []string{"127.0.0.1:9092"},
		Topic:   "jokko.events.test",
	}

	producer, err := NewProducer(cfg, logger.NewNop())
	if err != nil {
		t.Skipf("Skipping test: Kafka not available: %v", err)
		return
	}
	defer producer.Close()

	ch := make(chan events.Event, 2)
	ch <- events.Event{Type: events.GroupLeft, Payload: "g1"}
	ch <- events.Event{Type: events.GroupDeleted, Payload: "g1"}
	close(ch)

	// Returns once the channel is drained.
	producer.Relay("user-1", ch)
}
