package producers

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// AlertNotifier publishes escalation alerts. Delivery is best-effort:
// callers log failures and never propagate them.
type AlertNotifier interface {
	Notify(ctx context.Context, title, content string) error
	Close() error
}

// KafkaWriter wraps kafka.Writer methods for testing
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}
