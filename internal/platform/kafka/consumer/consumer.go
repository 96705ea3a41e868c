// Package consumer wraps a franz-go consumer group member with
// auto-commit disabled. Offsets are committed per record, only after the
// handler reports success, so a crash between processing and commit
// results in redelivery rather than loss.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"enrolld/internal/platform/config"
)

// Message is the transport-neutral view of a consumed record that
// handlers receive.
type Message struct {
	Topic     string
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Partition int32
	Offset    int64
}

// Handler processes one message. Returning nil commits the offset.
// Returning an error stops the consumer without committing, so the
// message is redelivered after the loop is restarted.
type Handler interface {
	Handle(ctx context.Context, msg *Message) error
}

// Consumer is a single-topic consumer group member. Each lane owns its
// own Consumer (and underlying connection); lanes never share clients.
type Consumer struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// New joins the group and subscribes to topic.
func New(cfg config.KafkaConfig, group, topic string, logger *slog.Logger) (*Consumer, error) {
	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(group),
		kgo.ConsumeTopics(topic),
		kgo.DisableAutoCommit(),
	}
	if cfg.PollTimeout > 0 {
		opts = append(opts, kgo.FetchMaxWait(cfg.PollTimeout))
	}
	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer for %s: %w", topic, err)
	}
	return &Consumer{client: client, topic: topic, logger: logger}, nil
}

// Run polls until ctx is done or the handler fails. A handler error is
// returned without committing the offending record.
func (c *Consumer) Run(ctx context.Context, handler Handler) error {
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		fetches.EachError(func(topic string, partition int32, err error) {
			c.logger.ErrorContext(ctx, "kafka fetch error",
				"topic", topic,
				"partition", partition,
				"error", err,
			)
		})

		iter := fetches.RecordIter()
		for !iter.Done() {
			rec := iter.Next()
			msg := fromRecord(rec)

			if err := handler.Handle(ctx, msg); err != nil {
				return fmt.Errorf("handle %s offset %d: %w", msg.Topic, msg.Offset, err)
			}
			if err := c.client.CommitRecords(ctx, rec); err != nil {
				if errors.Is(err, context.Canceled) {
					return err
				}
				return fmt.Errorf("commit %s offset %d: %w", msg.Topic, msg.Offset, err)
			}
		}
	}
}

// Close leaves the group and releases the client.
func (c *Consumer) Close() {
	c.client.Close()
}

func fromRecord(rec *kgo.Record) *Message {
	msg := &Message{
		Topic:     rec.Topic,
		Key:       rec.Key,
		Value:     rec.Value,
		Partition: rec.Partition,
		Offset:    rec.Offset,
	}
	if len(rec.Headers) > 0 {
		msg.Headers = make(map[string]string, len(rec.Headers))
		for _, h := range rec.Headers {
			msg.Headers[h.Key] = string(h.Value)
		}
	}
	return msg
}
