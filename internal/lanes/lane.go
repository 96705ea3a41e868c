// Package lanes runs one consumer loop per job kind. Lanes are isolated:
// each owns its consumer group member and connection, so a stall or
// crash in one lane never blocks the others.
package lanes

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"enrolld/internal/batch"
	"enrolld/internal/platform/config"
	"enrolld/internal/platform/kafka/consumer"
	"enrolld/internal/platform/metrics"
	"enrolld/internal/progress"
)

const attemptHeader = "attempt"

// JobHandler executes one lane's domain operation. Returned errors are
// classified by Classify; handlers must be idempotent under redelivery.
type JobHandler interface {
	Handle(ctx context.Context, job batch.Job) error
}

// ConsumerFactory lets tests substitute the Kafka consumer.
type ConsumerFactory func(cfg config.KafkaConfig, group, topic string, logger *slog.Logger) (*consumer.Consumer, error)

// Lane consumes one topic and applies its handler with the pipeline's
// acknowledgment rules: durable status write, then progress update, then
// commit.
type Lane struct {
	kind  batch.Kind
	topic string
	group string

	kafkaCfg  config.KafkaConfig
	workerCfg config.WorkerConfig

	handler   JobHandler
	publisher batch.Publisher
	tracker   progress.Tracker
	consumers ConsumerFactory
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func New(
	kind batch.Kind,
	kafkaCfg config.KafkaConfig,
	workerCfg config.WorkerConfig,
	handler JobHandler,
	publisher batch.Publisher,
	tracker progress.Tracker,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Lane {
	return &Lane{
		kind:      kind,
		topic:     kind.Topic(kafkaCfg.TopicPrefix),
		group:     kafkaCfg.GroupPrefix + "." + string(kind),
		kafkaCfg:  kafkaCfg,
		workerCfg: workerCfg,
		handler:   handler,
		publisher: publisher,
		tracker:   tracker,
		consumers: consumer.New,
		metrics:   m,
		logger:    logger.With("lane", string(kind)),
	}
}

// Run supervises the consumer loop until ctx is done. A failed loop
// restarts after a backoff; uncommitted records are then redelivered.
func (l *Lane) Run(ctx context.Context) error {
	for {
		c, err := l.consumers(l.kafkaCfg, l.group, l.topic, l.logger)
		if err != nil {
			l.logger.ErrorContext(ctx, "lane consumer connect failed", "error", err)
		} else {
			err = c.Run(ctx, l)
			c.Close()
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			l.logger.ErrorContext(ctx, "lane consumer restarting", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.workerCfg.RetryBackoff):
		}
	}
}

// Handle implements consumer.Handler. Returning nil commits (acks) the
// record; returning an error leaves it uncommitted for redelivery.
func (l *Lane) Handle(ctx context.Context, msg *consumer.Message) error {
	job, err := batch.DecodeJob(msg.Value)
	if err != nil {
		// Poison message: undecodable payloads can never succeed, commit
		// and move on.
		l.metrics.JobsProcessed.WithLabelValues(string(l.kind), string(OutcomePermanent)).Inc()
		l.logger.ErrorContext(ctx, "dropping undecodable job",
			"key", string(msg.Key),
			"offset", msg.Offset,
			"error", err,
		)
		return nil
	}

	attempt := attemptFrom(msg.Headers)
	handlerErr := l.handler.Handle(ctx, job)
	outcome := Classify(handlerErr)

	switch outcome {
	case OutcomeSuccess:
		l.recordOutcome(ctx, job, progress.FieldSuccess)
		l.metrics.JobsProcessed.WithLabelValues(string(l.kind), string(OutcomeSuccess)).Inc()
		return nil

	case OutcomePermanent:
		l.logger.WarnContext(ctx, "job failed permanently",
			"key", job.Key(),
			"attempt", attempt,
			"error", handlerErr,
		)
		l.recordOutcome(ctx, job, progress.FieldFailed)
		l.metrics.JobsProcessed.WithLabelValues(string(l.kind), string(OutcomePermanent)).Inc()
		return nil

	default: // transient
		if attempt >= l.workerCfg.MaxAttempts {
			// Poison-loop guard: out of attempts, demote to permanent. The
			// handler only saw transient failures, so the owning record has
			// no terminal status yet; it must get one before the ack or
			// progress can no longer be rebuilt from record statuses.
			if rec, ok := l.handler.(TerminalRecorder); ok {
				if err := rec.RecordTerminalFailure(ctx, job); err != nil {
					return fmt.Errorf("record terminal failure %s: %w", job.Key(), err)
				}
			}
			l.logger.ErrorContext(ctx, "job exhausted retries",
				"key", job.Key(),
				"attempt", attempt,
				"error", handlerErr,
			)
			l.recordOutcome(ctx, job, progress.FieldFailed)
			l.metrics.JobsProcessed.WithLabelValues(string(l.kind), string(OutcomePermanent)).Inc()
			return nil
		}

		headers := map[string]string{attemptHeader: strconv.Itoa(attempt + 1)}
		if err := l.publisher.Produce(ctx, l.topic, msg.Key, msg.Value, headers); err != nil {
			// Cannot requeue: leave the record uncommitted so the broker
			// redelivers it after the loop restarts.
			return fmt.Errorf("requeue %s attempt %d: %w", job.Key(), attempt+1, err)
		}
		l.metrics.JobRetries.WithLabelValues(string(l.kind)).Inc()
		l.logger.InfoContext(ctx, "job requeued",
			"key", job.Key(),
			"attempt", attempt+1,
			"error", handlerErr,
		)
		return nil
	}
}

// recordOutcome bumps current plus the terminal counter in one call, so
// success+failed can never exceed current.
func (l *Lane) recordOutcome(ctx context.Context, job batch.Job, field progress.Field) {
	if job.ProgressKey == "" {
		return
	}
	if err := l.tracker.Increment(ctx, job.ProgressKey, progress.FieldCurrent, field); err != nil {
		l.logger.WarnContext(ctx, "progress increment failed",
			"progress_key", job.ProgressKey,
			"error", err,
		)
	}
}

func attemptFrom(headers map[string]string) int {
	v, ok := headers[attemptHeader]
	if !ok {
		return 1
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 1
	}
	return n
}
