package services

import (
	"context"
	"errors"
	"time"

	"dataplug/internal/core/domain"
	"dataplug/internal/core/ports"
	apperrors "dataplug/pkg/errors"
	"dataplug/pkg/tracing"

	"go.uber.org/zap"
)

type usageService struct {
	repo     ports.StreamRepository
	recorder ports.UsageRecorder
	metrics  ports.Metrics
	logger   *zap.SugaredLogger
	now      func() time.Time
}

func NewUsageService(
	repo ports.StreamRepository,
	recorder ports.UsageRecorder,
	metrics ports.Metrics,
	logger *zap.SugaredLogger,
) ports.UsageService {
	return &usageService{
		repo:     repo,
		recorder: recorder,
		metrics:  metricsOrNop(metrics),
		logger:   logger,
		now:      time.Now,
	}
}

// Increment bumps a stream's counter through the store's atomic increment
// and verifies the write landed. A write the store acknowledged but did not
// apply is reported as forbidden. Concurrent increments can only raise the
// observed value, so the check holds under contention.
func (s *usageService) Increment(ctx context.Context, id domain.StreamID, bucketName string) error {
	ctx, span := tracing.StartSpan(ctx, "usage.increment")
	defer span.End()
	span.SetAttributes(tracing.StreamIDKey.String(string(id)), tracing.BucketKey.String(bucketName))

	if id == "" || bucketName == "" {
		s.metrics.RecordClick(bucketName, "invalid")
		return apperrors.NewInvalidInputError("missing stream id or counter type")
	}

	bucket, err := domain.ParseCounterBucket(bucketName)
	if err != nil {
		s.metrics.RecordClick(bucketName, "invalid")
		return apperrors.NewInvalidTypeError(bucketName)
	}

	outcome, err := s.increment(ctx, id, bucket)
	s.metrics.RecordClick(string(bucket), outcome)
	if err != nil {
		tracing.RecordError(ctx, err)
		s.logger.Warnw("click not counted",
			"stream_id", id,
			"type", bucket,
			"outcome", outcome,
			"error", err,
		)
		return err
	}

	s.recorder.Record(&domain.UsageEvent{
		StreamID:  id,
		Type:      bucket,
		CreatedAt: s.now().UTC(),
	})
	return nil
}

func (s *usageService) increment(ctx context.Context, id domain.StreamID, bucket domain.CounterBucket) (string, error) {
	before, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, domain.ErrStreamNotFound) {
		return "not_found", apperrors.NewNotFoundError("stream")
	}
	if err != nil {
		return "error", apperrors.NewInternalError("failed to read stream", err)
	}

	if !bucket.HasColumn() {
		// event-only bucket
		return "ok", nil
	}

	base := before.Counter(bucket)

	affected, err := s.repo.IncrementCounter(ctx, id, bucket)
	if err != nil {
		return "error", apperrors.NewInternalError("failed to update counter", err)
	}

	after, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "error", apperrors.NewInternalError("failed to verify counter update", err)
	}

	if affected == 0 || after.Counter(bucket) < base+1 {
		return "denied", apperrors.NewForbiddenError("access denied by store policy").
			WithCause(domain.ErrWriteNotApplied)
	}
	return "ok", nil
}
