package batch

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"enrolld/internal/platform/metrics"
	"enrolld/internal/progress"
	"enrolld/internal/upload"
	uploadstore "enrolld/internal/upload/store"
	dErrors "enrolld/pkg/domain-errors"
	"enrolld/pkg/platform/sentinel"
)

// Publisher is the queue-facing dependency, satisfied by the kafka
// producer. Injected so dispatch logic tests against a fake.
type Publisher interface {
	Produce(ctx context.Context, topic string, key, value []byte, headers map[string]string) error
}

// ArtifactOpener locates assembled roster artifacts; satisfied by the
// staging layer.
type ArtifactOpener interface {
	AssembledPath(assembledName string) string
}

// DispatchResult reports a fan-out: Published < Total means degraded,
// not failed, submission — visible to the caller, never swallowed.
type DispatchResult struct {
	Total     int
	Published int
}

// Partial reports whether some rows could not be published.
func (r DispatchResult) Partial() bool { return r.Published < r.Total }

// Dispatcher parses completed uploads and fans rows out onto lanes.
type Dispatcher struct {
	publisher   Publisher
	tracker     progress.Tracker
	uploads     uploadstore.Store
	artifacts   ArtifactOpener
	topicPrefix string
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

func NewDispatcher(
	publisher Publisher,
	tracker progress.Tracker,
	uploads uploadstore.Store,
	artifacts ArtifactOpener,
	topicPrefix string,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		publisher:   publisher,
		tracker:     tracker,
		uploads:     uploads,
		artifacts:   artifacts,
		topicPrefix: topicPrefix,
		metrics:     m,
		logger:      logger,
	}
}

// DispatchUpload parses the upload's assembled roster and publishes one
// create-identity job per row. The upload record transitions to Sync
// once fan-out completes (Failed when nothing could be published).
func (d *Dispatcher) DispatchUpload(ctx context.Context, uploadID uuid.UUID) (DispatchResult, error) {
	record, err := d.uploads.Get(ctx, uploadID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return DispatchResult{}, dErrors.New(dErrors.CodeNotFound, "unknown upload")
		}
		return DispatchResult{}, dErrors.Wrap(dErrors.CodeInternal, "load upload record", err)
	}
	if record.AssembledFileName == "" {
		return DispatchResult{}, dErrors.New(dErrors.CodePrecondition, "upload is not fully assembled")
	}

	f, err := os.Open(d.artifacts.AssembledPath(record.AssembledFileName))
	if err != nil {
		return DispatchResult{}, dErrors.Wrap(dErrors.CodeInternal, "open assembled roster", err)
	}
	defer f.Close()

	rows, err := ParseRoster(f)
	if err != nil {
		return DispatchResult{}, err
	}

	jobs := make([]Job, 0, len(rows))
	progressKey := progress.RowKey(uploadID.String())
	for _, row := range rows {
		jobs = append(jobs, Job{
			Kind:        KindCreateIdentity,
			UploadID:    uploadID.String(),
			RowNumber:   row.RowNumber,
			ProgressKey: progressKey,
			Create: &CreatePayload{
				Email:    row.Email,
				FullName: row.FullName,
				Role:     row.Role,
			},
		})
	}

	result, err := d.Dispatch(ctx, progressKey, jobs)
	if err != nil {
		if statusErr := d.uploads.SetStatus(ctx, uploadID, upload.StatusFailed); statusErr != nil {
			d.logger.ErrorContext(ctx, "mark upload failed after dispatch error",
				"upload_id", uploadID,
				"error", statusErr,
			)
		}
		return result, err
	}

	if err := d.uploads.SetStatus(ctx, uploadID, upload.StatusSync); err != nil {
		d.logger.ErrorContext(ctx, "mark upload sync after fan-out",
			"upload_id", uploadID,
			"error", err,
		)
	}
	return result, nil
}

// Dispatch publishes the given jobs under progressKey. The total is set
// and counters reset before the first publish so a consumer never
// observes a count against an uninitialized total. Individual publish
// failures are counted and logged but do not abort remaining rows; only
// a fully failed fan-out (the queue is unreachable) is an error.
func (d *Dispatcher) Dispatch(ctx context.Context, progressKey string, jobs []Job) (DispatchResult, error) {
	result := DispatchResult{Total: len(jobs)}
	if len(jobs) == 0 {
		return result, nil
	}

	if err := d.tracker.SetTotal(ctx, progressKey, int64(len(jobs))); err != nil {
		return result, dErrors.Wrap(dErrors.CodeInternal, "initialize progress", err)
	}

	var firstErr error
	for _, job := range jobs {
		value, err := job.Encode()
		if err != nil {
			d.metrics.RowsDispatched.WithLabelValues("failed").Inc()
			d.logger.ErrorContext(ctx, "encode job",
				"kind", job.Kind,
				"row_number", job.RowNumber,
				"error", err,
			)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		topic := job.Kind.Topic(d.topicPrefix)
		if err := d.publisher.Produce(ctx, topic, []byte(job.Key()), value, map[string]string{"attempt": "1"}); err != nil {
			d.metrics.RowsDispatched.WithLabelValues("failed").Inc()
			d.logger.ErrorContext(ctx, "publish job",
				"topic", topic,
				"row_number", job.RowNumber,
				"error", err,
			)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		d.metrics.RowsDispatched.WithLabelValues("published").Inc()
		result.Published++
	}

	if result.Published == 0 {
		return result, dErrors.Wrap(dErrors.CodeUnavailable, "no rows could be published", firstErr)
	}
	return result, nil
}
