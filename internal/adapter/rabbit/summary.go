package rabbit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/stridelab/activity-tracker/internal/domain/models"
	"github.com/stridelab/activity-tracker/pkg/logger"
	wrap "github.com/stridelab/activity-tracker/pkg/logger/wrapper"
	"github.com/stridelab/activity-tracker/pkg/rabbit"
)

const (
	SummaryExchange = "session_topic"

	KeySessionCompleted = "session.completed"
)

// SummaryBroker publishes completed session summaries for downstream
// consumers (analytics, leaderboards). It only ever emits raw figures;
// scoring belongs to the consumers.
type SummaryBroker struct {
	client   *rabbit.RabbitMQ
	exchange string

	l logger.Logger
}

func NewSummaryBroker(ctx context.Context, client *rabbit.RabbitMQ, log logger.Logger) (*SummaryBroker, error) {
	if err := client.Channel.ExchangeDeclare(
		SummaryExchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return nil, fmt.Errorf("failed to declare summary exchange: %w", err)
	}

	return &SummaryBroker{
		client:   client,
		exchange: SummaryExchange,
		l:        log,
	}, nil
}

// PublishSummaryCompleted publishes the summary of an ended session with the
// routing key 'session.completed'.
func (b *SummaryBroker) PublishSummaryCompleted(ctx context.Context, msg models.SummaryCompletedMessage) error {
	ctx = wrap.WithAction(ctx, "rabbitmq_publish_summary_completed")

	if err := b.client.EnsureConnection(ctx); err != nil {
		b.l.Error(ctx, "ensure connection failed", err)
		return wrap.Error(ctx, err)
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return wrap.Error(ctx, fmt.Errorf("failed to marshal message: %w", err))
	}

	if err := retry(5, time.Second, func() error {
		if err := b.client.Channel.PublishWithContext(
			ctx,
			b.exchange,          // exchange
			KeySessionCompleted, // routing key
			false,               // mandatory
			false,               // immediate
			amqp091.Publishing{
				ContentType:   "application/json",
				CorrelationId: msg.CorrelationID,
				Body:          body,
				Timestamp:     time.Now(),
			},
		); err != nil {
			return fmt.Errorf("failed to publish with context: %w", err)
		}

		return nil
	}); err != nil {
		return wrap.Error(ctx, err)
	}

	return nil
}
