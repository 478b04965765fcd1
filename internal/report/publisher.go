package report

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"fleetscan/internal/config"
)

type kafkaZapLogger struct {
	log *zap.Logger
}

func (l kafkaZapLogger) Printf(msg string, args ...interface{}) {
	l.log.Info(fmt.Sprintf(msg, args...))
}

type kafkaZapErrorLogger struct {
	log *zap.Logger
}

func (l kafkaZapErrorLogger) Printf(msg string, args ...interface{}) {
	l.log.Error(fmt.Sprintf(msg, args...))
}

// Publisher emits result rows to the platform's Kafka bus so downstream
// consumers (dashboards, archival jobs) can pick them up without parsing
// the CSV output.
type Publisher struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// NewPublisher creates a Kafka publisher from configuration.
func NewPublisher(cfg config.PublisherConfig, logger *zap.Logger) (*Publisher, error) {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		logger.Error("Publisher configuration validation failed",
			zap.Strings("brokers", cfg.Brokers),
			zap.String("topic", cfg.Topic),
		)
		return nil, ErrInvalidPublisherConfig
	}

	w := &kafka.Writer{
		Addr:        kafka.TCP(cfg.Brokers...),
		Topic:       cfg.Topic,
		Balancer:    &kafka.LeastBytes{},
		Logger:      kafkaZapLogger{logger.Named("kafka-writer").WithOptions(zap.AddCallerSkip(1))},
		ErrorLogger: kafkaZapErrorLogger{logger.Named("kafka-writer-error").WithOptions(zap.AddCallerSkip(1))},
	}

	logger.Info("Result publisher created",
		zap.String("topic", cfg.Topic),
		zap.Strings("brokers", cfg.Brokers),
	)

	return &Publisher{writer: w, logger: logger}, nil
}

// Publish sends every row as one JSON message keyed by vehicle id.
func (p *Publisher) Publish(ctx context.Context, vehicleID string, rows []Row) error {
	msgs := make([]kafka.Message, 0, len(rows))
	for _, row := range rows {
		value, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrPublishFailed, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(vehicleID),
			Value: value,
		})
	}
	if len(msgs) == 0 {
		return nil
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	p.logger.Debug("Published result rows", zap.Int("rows", len(msgs)))
	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer: %w", err)
	}
	return nil
}
