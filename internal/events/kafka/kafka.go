// Package kafka carries StateChanged messages over a Kafka topic.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"cartera/internal/events"
)

const publishTimeout = 5 * time.Second

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Publisher struct {
	writer messageWriter
	topic  string
}

func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
		topic: topic,
	}
}

// PublishStateChanged writes msg keyed by its storage key so updates to one
// blob stay ordered within a partition.
func (p *Publisher) PublishStateChanged(ctx context.Context, msg *events.StateChanged) error {
	data, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.Key),
		Value: data,
		Time:  msg.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("write kafka message: %w", err)
	}

	slog.InfoContext(ctx, "Published state changed message",
		"key", msg.Key,
		"operation", msg.Operation,
		"revision", msg.Revision,
		"topic", p.topic)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

type Consumer struct {
	reader messageReader
}

func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: brokers,
			Topic:   topic,
			GroupID: groupID,
		}),
	}
}

// ConsumeStateChanged fetches messages until ctx is done. Offsets are only
// committed after the handler succeeds or the message is undecodable, so a
// failed message is redelivered after a restart.
func (c *Consumer) ConsumeStateChanged(ctx context.Context, handler events.Handler) error {
	slog.InfoContext(ctx, "Started consuming state changed messages from Kafka")

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
				return ctx.Err()
			}
			return fmt.Errorf("fetch kafka message: %w", err)
		}

		msg, err := events.StateChangedFromJSON(m.Value)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to unmarshal message", "offset", m.Offset, "error", err)
		} else if err := handler(ctx, msg); err != nil {
			slog.ErrorContext(ctx, "Failed to handle message",
				"key", msg.Key,
				"revision", msg.Revision,
				"error", err)
			continue
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil {
			return fmt.Errorf("commit kafka message: %w", err)
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

var (
	_ events.Publisher = (*Publisher)(nil)
	_ events.Consumer  = (*Consumer)(nil)
)
