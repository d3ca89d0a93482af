package kafka

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"

	"github.com/labflow/sanidad/pkg/metrics"
)

// Producer publishes messages to Kafka
type Producer struct {
	writer *kafka.Writer
	logger ectologger.Logger
	config ProducerConfig
}

// NewProducer creates a new Kafka producer
func NewProducer(config ProducerConfig, logger ectologger.Logger) (*Producer, error) {
	if len(config.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}

	var compression kafka.Compression
	switch config.Compression {
	case "gzip":
		compression = kafka.Gzip
	case "snappy":
		compression = kafka.Snappy
	case "lz4":
		compression = kafka.Lz4
	case "zstd":
		compression = kafka.Zstd
	default:
		compression = 0 // No compression
	}

	// Topic stays unset on the Writer so each message can pick its own topic.
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(config.Brokers...),
		Balancer:               &kafka.Hash{}, // Hash by key for partition affinity
		BatchSize:              config.BatchSize,
		BatchTimeout:           config.BatchTimeout,
		MaxAttempts:            config.MaxAttempts,
		WriteTimeout:           config.WriteTimeout,
		Async:                  config.Async,
		Compression:            compression,
		RequiredAcks:           kafka.RequiredAcks(config.RequiredAcks),
		AllowAutoTopicCreation: true,
	}

	return &Producer{
		writer: writer,
		logger: logger,
		config: config,
	}, nil
}

// Publish publishes a lifecycle message to the default topic
func (p *Producer) Publish(ctx context.Context, msg *LifecycleMessage) error {
	return p.PublishToTopic(ctx, p.config.Topic, msg)
}

// PublishToTopic publishes a lifecycle message to a specific topic. Messages
// are keyed by jornada so a session's events land on one partition in order.
func (p *Producer) PublishToTopic(ctx context.Context, topic string, msg *LifecycleMessage) error {
	data, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize message: %w", err)
	}

	headers := MessageHeaders{
		EventType: msg.EventType,
		JornadaID: msg.JornadaID,
		EntityID:  msg.EntityID,
	}
	if msg.TraceID != "" {
		headers.TraceParent = fmt.Sprintf("00-%s-%s-01", msg.TraceID, msg.SpanID)
	}

	kafkaHeaders := make([]kafka.Header, 0)
	for _, h := range headers.ToKafkaHeaders() {
		kafkaHeaders = append(kafkaHeaders, kafka.Header{Key: h.Key, Value: h.Value})
	}

	kafkaMsg := kafka.Message{
		Topic:   topic,
		Key:     []byte(msg.JornadaID),
		Value:   data,
		Headers: kafkaHeaders,
		Time:    msg.Timestamp,
	}

	if err := p.writer.WriteMessages(ctx, kafkaMsg); err != nil {
		metrics.RecordKafkaPublish(topic, "error")
		return fmt.Errorf("failed to publish message: %w", err)
	}

	metrics.RecordKafkaPublish(topic, "ok")
	return nil
}

// PublishBatch publishes multiple messages in a batch
func (p *Producer) PublishBatch(ctx context.Context, messages []*LifecycleMessage) error {
	if len(messages) == 0 {
		return nil
	}

	kafkaMessages := make([]kafka.Message, 0, len(messages))

	for _, msg := range messages {
		data, err := msg.ToJSON()
		if err != nil {
			p.logger.WithError(err).Error("Failed to serialize message in batch, skipping")
			continue
		}

		headers := MessageHeaders{
			EventType: msg.EventType,
			JornadaID: msg.JornadaID,
			EntityID:  msg.EntityID,
		}
		if msg.TraceID != "" {
			headers.TraceParent = fmt.Sprintf("00-%s-%s-01", msg.TraceID, msg.SpanID)
		}

		kafkaHeaders := make([]kafka.Header, 0)
		for _, h := range headers.ToKafkaHeaders() {
			kafkaHeaders = append(kafkaHeaders, kafka.Header{Key: h.Key, Value: h.Value})
		}

		kafkaMessages = append(kafkaMessages, kafka.Message{
			Topic:   p.config.Topic,
			Key:     []byte(msg.JornadaID),
			Value:   data,
			Headers: kafkaHeaders,
			Time:    msg.Timestamp,
		})
	}

	if err := p.writer.WriteMessages(ctx, kafkaMessages...); err != nil {
		metrics.RecordKafkaPublish(p.config.Topic, "error")
		return fmt.Errorf("failed to publish batch: %w", err)
	}

	metrics.RecordKafkaPublish(p.config.Topic, "ok")
	return nil
}

// Close closes the producer
func (p *Producer) Close() error {
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close producer: %w", err)
	}
	p.logger.Info("Kafka producer closed")
	return nil
}

// Stats returns producer statistics
func (p *Producer) Stats() kafka.WriterStats {
	return p.writer.Stats()
}
