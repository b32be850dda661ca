package reliability

import (
	"context"
	"errors"

	"dataplug/internal/core/domain"
	"dataplug/internal/core/ports"
	"dataplug/pkg/circuitbreaker"
	"dataplug/pkg/retry"
	"dataplug/pkg/tracing"

	"go.uber.org/zap"
)

const storeName = "streams"

// domainErrors are answers from a healthy store, not faults.
var domainErrors = []error{
	domain.ErrStreamNotFound,
	domain.ErrStreamExists,
	domain.ErrInvalidCounterBucket,
}

func isStoreFault(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return false
		}
	}
	return true
}

// StreamRepositoryWrapper guards a StreamRepository with a circuit breaker
// and retries idempotent reads.
type StreamRepositoryWrapper struct {
	repo           ports.StreamRepository
	logger         *zap.SugaredLogger
	retryConfig    retry.Config
	circuitBreaker *circuitbreaker.CircuitBreaker
}

func NewStreamRepositoryWrapper(
	repo ports.StreamRepository,
	retryConfig retry.Config,
	cbConfig circuitbreaker.Config,
	logger *zap.SugaredLogger,
) *StreamRepositoryWrapper {
	nonRetryable := append([]error{}, retryConfig.NonRetryableErrors...)
	retryConfig.NonRetryableErrors = append(append(nonRetryable, domainErrors...), circuitbreaker.ErrOpen)
	cbConfig.IsFailure = isStoreFault

	w := &StreamRepositoryWrapper{
		repo:           repo,
		logger:         logger,
		retryConfig:    retryConfig,
		circuitBreaker: circuitbreaker.New(cbConfig),
	}

	w.circuitBreaker.OnStateChange(func(from, to circuitbreaker.State) {
		logger.Warnw("stream store circuit breaker state changed",
			"from", from.String(),
			"to", to.String(),
		)
	})

	return w
}

var _ ports.StreamRepository = (*StreamRepositoryWrapper)(nil)

// State exposes the breaker state for readiness checks.
func (w *StreamRepositoryWrapper) State() circuitbreaker.State {
	return w.circuitBreaker.State()
}

// Create is not retried: a timed-out insert may have landed.
func (w *StreamRepositoryWrapper) Create(ctx context.Context, stream *domain.Stream) error {
	ctx, span := tracing.TraceStoreOperation(ctx, storeName, "create")
	defer span.End()

	err := w.circuitBreaker.Execute(func() error {
		return w.repo.Create(ctx, stream)
	})
	recordFault(ctx, err)
	return err
}

func (w *StreamRepositoryWrapper) GetByID(ctx context.Context, id domain.StreamID) (*domain.Stream, error) {
	ctx, span := tracing.TraceStoreOperation(ctx, storeName, "get_by_id")
	defer span.End()

	stream, err := retry.RetryWithResult(ctx, w.retryConfig, func() (*domain.Stream, error) {
		return circuitbreaker.Execute(w.circuitBreaker, func() (*domain.Stream, error) {
			return w.repo.GetByID(ctx, id)
		})
	})
	recordFault(ctx, err)
	return stream, err
}

func (w *StreamRepositoryWrapper) List(ctx context.Context, limit int) ([]*domain.Stream, error) {
	ctx, span := tracing.TraceStoreOperation(ctx, storeName, "list")
	defer span.End()

	streams, err := retry.RetryWithResult(ctx, w.retryConfig, func() ([]*domain.Stream, error) {
		return circuitbreaker.Execute(w.circuitBreaker, func() ([]*domain.Stream, error) {
			return w.repo.List(ctx, limit)
		})
	})
	recordFault(ctx, err)
	return streams, err
}

// IncrementCounter is never retried; a second attempt could count twice.
func (w *StreamRepositoryWrapper) IncrementCounter(ctx context.Context, id domain.StreamID, bucket domain.CounterBucket) (int64, error) {
	ctx, span := tracing.TraceStoreOperation(ctx, storeName, "increment_counter")
	defer span.End()

	affected, err := circuitbreaker.Execute(w.circuitBreaker, func() (int64, error) {
		return w.repo.IncrementCounter(ctx, id, bucket)
	})
	recordFault(ctx, err)
	return affected, err
}

func recordFault(ctx context.Context, err error) {
	if err != nil && isStoreFault(err) {
		tracing.RecordError(ctx, err)
	}
}
