package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/fechamento-diario/internal/config"
	"github.com/segmentio/kafka-go"
)

// AlertMessage is the payload published to the alert topic when a settlement
// ingest crosses the critical-divergence thresholds.
type AlertMessage struct {
	Title   string    `json:"title"`
	Content string    `json:"content"`
	SentAt  time.Time `json:"sent_at"`
}

// AlertMessageProducer publishes reconciliation alerts to Kafka. The writer is
// asynchronous: a failed delivery surfaces in the completion callback log, not
// to the caller.
type AlertMessageProducer struct {
	logger *slog.Logger
	writer KafkaWriter // Interface for testability
	topic  string
}

// NewAlertMessageProducer creates the alert producer and ensures the topic exists
func NewAlertMessageProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*AlertMessageProducer, error) {
	if cfg.AlertTopic == "" {
		return nil, fmt.Errorf("kafka alert topic is not configured")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for alert producer: %w", err)
	}
	defer conn.Close()

	err = createKafkaTopicIfNotExists(conn, cfg.AlertTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure alert topic %s exists: %w", cfg.AlertTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.AlertTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        true, // Alerts must never block the ingest path
		WriteTimeout: cfg.MaxWait,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Error("Failed to write alert messages asynchronously", "topic", cfg.AlertTopic, "error", err, "count", len(messages))
			} else {
				logger.Debug("Successfully wrote alert messages asynchronously", "topic", cfg.AlertTopic, "count", len(messages))
			}
		},
	}

	return &AlertMessageProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.AlertTopic,
	}, nil
}

// Notify publishes a single alert. Errors are returned for logging but the
// caller is expected to swallow them.
func (p *AlertMessageProducer) Notify(ctx context.Context, title, content string) error {
	payload, err := json.Marshal(AlertMessage{
		Title:   title,
		Content: content,
		SentAt:  time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal alert message: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(title),
		Value: payload,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish alert",
			"topic", p.topic,
			"title", title,
			"error", err,
		)
		return fmt.Errorf("failed to publish alert to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published alert", "topic", p.topic, "title", title)
	return nil
}

func (p *AlertMessageProducer) Close() error {
	p.logger.Info("Closing alert Kafka producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close alert kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
