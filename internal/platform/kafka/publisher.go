package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"loyalty-points-backend/internal/domain/ledger"
)

// Publisher emits committed awards to downstream consumers.
type Publisher interface {
	PublishAward(ctx context.Context, event ledger.AwardEvent) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// AwardPublisher writes award events keyed by user so one user's events stay
// on one partition in order.
type AwardPublisher struct {
	writer messageWriter
}

func NewAwardPublisher(brokers []string, topic string) *AwardPublisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireAll,
		BatchSize:              100,
		BatchTimeout:           10 * time.Millisecond,
	}
	return &AwardPublisher{writer: writer}
}

func (p *AwardPublisher) PublishAward(ctx context.Context, event ledger.AwardEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal award event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(event.UserID, 10)),
		Value: payload,
		Time:  event.CreatedAt,
		Headers: []kafka.Header{
			{Key: "reason", Value: []byte(event.Reason)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write error: %w", err)
	}
	return nil
}

func (p *AwardPublisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher is used when no brokers are configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishAward(context.Context, ledger.AwardEvent) error { return nil }
func (NoopPublisher) Close() error                                          { return nil }

// New returns a Kafka publisher, or a no-op one when brokers is empty.
func New(brokers []string, topic string) Publisher {
	if len(brokers) == 0 {
		return NoopPublisher{}
	}
	return NewAwardPublisher(brokers, topic)
}
