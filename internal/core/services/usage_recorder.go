package services

import (
	"context"
	"time"

	"dataplug/internal/core/domain"
	"dataplug/internal/core/ports"
	"dataplug/pkg/batch"

	"go.uber.org/zap"
)

// RecorderOptions controls batching of usage events.
type RecorderOptions struct {
	BatchSize     int
	FlushInterval time.Duration
	WriteTimeout  time.Duration
}

// UsageRecorder persists usage events in the background. Insert failures
// are logged and counted; they never reach the request that produced them.
type UsageRecorder struct {
	repo         ports.UsageEventRepository
	batcher      *batch.Batcher[*domain.UsageEvent]
	writeTimeout time.Duration
	metrics      ports.Metrics
	logger       *zap.SugaredLogger
}

func NewUsageRecorder(
	repo ports.UsageEventRepository,
	opts RecorderOptions,
	metrics ports.Metrics,
	logger *zap.SugaredLogger,
) *UsageRecorder {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = 2 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}

	r := &UsageRecorder{
		repo:         repo,
		writeTimeout: opts.WriteTimeout,
		metrics:      metricsOrNop(metrics),
		logger:       logger,
	}
	r.batcher = batch.NewBatcher(opts.BatchSize, opts.FlushInterval, r.write)
	return r
}

var _ ports.UsageRecorder = (*UsageRecorder)(nil)

// Record queues an event without blocking.
func (r *UsageRecorder) Record(event *domain.UsageEvent) {
	if !r.batcher.Add(event) {
		r.logger.Warnw("usage event dropped after shutdown",
			"stream_id", event.StreamID,
			"type", event.Type,
		)
		r.metrics.RecordUsageEvents(0, 1)
	}
}

func (r *UsageRecorder) write(ctx context.Context, events []*domain.UsageEvent) {
	ctx, cancel := context.WithTimeout(ctx, r.writeTimeout)
	defer cancel()

	written, failed := 0, 0
	for _, event := range events {
		if err := r.repo.Insert(ctx, event); err != nil {
			failed++
			r.logger.Warnw("failed to record usage event",
				"stream_id", event.StreamID,
				"type", event.Type,
				"error", err,
			)
			continue
		}
		written++
	}
	r.metrics.RecordUsageEvents(written, failed)
}

// Stop flushes queued events and waits for the final write or ctx expiry.
func (r *UsageRecorder) Stop(ctx context.Context) error {
	return r.batcher.Stop(ctx)
}
