package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/dembasy/jokko/internal/config"
	"github.com/dembasy/jokko/internal/events"
	"github.com/dembasy/jokko/pkg/logger"
)

// Producer publishes domain events to Kafka so other services can react
// to membership and contact changes. The server runs fine without it;
// when the brokers are unreachable at startup the caller keeps a nil
// producer and skips publishing.
type Producer struct {
	producer sarama.SyncProducer
	topic    string
	log      *logger.Logger
}

// envelope is the wire shape of a published event. Keyed by user so one
// user's events stay ordered within a partition.
type envelope struct {
	UserID    string    `json:"user_id"`
	Type      string    `json:"type"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewProducer(cfg *config.KafkaConfig, log *logger.Logger) (*Producer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = 3
	saramaConfig.Producer.Retry.Backoff = 250 * time.Millisecond
	saramaConfig.Producer.Compression = sarama.CompressionSnappy
	saramaConfig.Producer.Idempotent = true
	saramaConfig.Net.MaxOpenRequests = 1
	saramaConfig.Net.DialTimeout = 10 * time.Second
	saramaConfig.Net.ReadTimeout = 10 * time.Second
	saramaConfig.Net.WriteTimeout = 10 * time.Second
	saramaConfig.Metadata.Retry.Max = 3
	saramaConfig.Metadata.Retry.Backoff = 250 * time.Millisecond
	saramaConfig.Metadata.Timeout = 10 * time.Second

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return &Producer{producer: producer, topic: cfg.Topic, log: log}, nil
}

// PublishEvent sends one domain event, keyed by the owning user.
func (p *Producer) PublishEvent(ctx context.Context, userID string, ev events.Event) error {
	value, err := json.Marshal(envelope{
		UserID:    userID,
		Type:      string(ev.Type),
		Payload:   ev.Payload,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode event %s: %w", ev.Type, err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(userID),
		Value: sarama.ByteEncoder(value),
	}
	if _, _, err := p.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("failed to send event %s: %w", ev.Type, err)
	}
	return nil
}

// Relay drains the channel into Kafka until it closes. Meant to run as
// a goroutine over a session bus subscription; publish failures are
// logged and skipped so a broker outage never stalls the session.
func (p *Producer) Relay(userID string, ch <-chan events.Event) {
	for ev := range ch {
		if err := p.PublishEvent(context.Background(), userID, ev); err != nil {
			p.log.Warn("failed to relay event to kafka",
				zap.String("user_id", userID),
				zap.String("type", string(ev.Type)),
				zap.Error(err))
		}
	}
}

func (p *Producer) Close() error {
	if p.producer != nil {
		if err := p.producer.Close(); err != nil {
			return fmt.Errorf("failed to close kafka producer: %w", err)
		}
	}
	return nil
}
