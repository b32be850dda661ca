package reliability

import (
	"context"
	"errors"
	"testing"
	"time"

	"dataplug/internal/core/domain"
	"dataplug/pkg/circuitbreaker"
	"dataplug/pkg/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockStreamRepository struct {
	mock.Mock
}

func (m *mockStreamRepository) Create(ctx context.Context, stream *domain.Stream) error {
	return m.Called(ctx, stream).Error(0)
}

func (m *mockStreamRepository) GetByID(ctx context.Context, id domain.StreamID) (*domain.Stream, error) {
	args := m.Called(ctx, id)
	s, _ := args.Get(0).(*domain.Stream)
	return s, args.Error(1)
}

func (m *mockStreamRepository) List(ctx context.Context, limit int) ([]*domain.Stream, error) {
	args := m.Called(ctx, limit)
	s, _ := args.Get(0).([]*domain.Stream)
	return s, args.Error(1)
}

func (m *mockStreamRepository) IncrementCounter(ctx context.Context, id domain.StreamID, bucket domain.CounterBucket) (int64, error) {
	args := m.Called(ctx, id, bucket)
	return args.Get(0).(int64), args.Error(1)
}

func newWrapper(repo *mockStreamRepository, threshold int) *StreamRepositoryWrapper {
	return NewStreamRepositoryWrapper(repo,
		retry.Config{Enabled: true, MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1},
		circuitbreaker.Config{FailureThreshold: threshold, SuccessThreshold: 1, Timeout: time.Hour, MaxRequestsHalfOpen: 1},
		zap.NewNop().Sugar(),
	)
}

func TestWrapper_RetriesTransientReads(t *testing.T) {
	repo := &mockStreamRepository{}
	repo.On("List", mock.Anything, 50).Return(nil, errors.New("connection reset")).Once()
	repo.On("List", mock.Anything, 50).Return([]*domain.Stream{{ID: "1"}}, nil).Once()

	streams, err := newWrapper(repo, 10).List(context.Background(), 50)
	require.NoError(t, err)
	assert.Len(t, streams, 1)
	repo.AssertNumberOfCalls(t, "List", 2)
}

func TestWrapper_NotFoundIsNotRetriedOrCounted(t *testing.T) {
	repo := &mockStreamRepository{}
	repo.On("GetByID", mock.Anything, domain.StreamID("x")).Return(nil, domain.ErrStreamNotFound)

	w := newWrapper(repo, 1)
	for i := 0; i < 3; i++ {
		_, err := w.GetByID(context.Background(), "x")
		assert.ErrorIs(t, err, domain.ErrStreamNotFound)
	}
	repo.AssertNumberOfCalls(t, "GetByID", 3)
	assert.Equal(t, circuitbreaker.StateClosed, w.State())
}

func TestWrapper_IncrementIsNeverRetried(t *testing.T) {
	repo := &mockStreamRepository{}
	repo.On("IncrementCounter", mock.Anything, domain.StreamID("1"), domain.BucketNode).
		Return(int64(0), errors.New("timeout"))

	_, err := newWrapper(repo, 10).IncrementCounter(context.Background(), "1", domain.BucketNode)
	assert.Error(t, err)
	repo.AssertNumberOfCalls(t, "IncrementCounter", 1)
}

func TestWrapper_OpensAfterStoreFaults(t *testing.T) {
	repo := &mockStreamRepository{}
	repo.On("Create", mock.Anything, mock.Anything).Return(errors.New("disk I/O error"))

	w := newWrapper(repo, 2)
	ctx := context.Background()
	assert.Error(t, w.Create(ctx, &domain.Stream{ID: "1"}))
	assert.Error(t, w.Create(ctx, &domain.Stream{ID: "2"}))

	err := w.Create(ctx, &domain.Stream{ID: "3"})
	assert.ErrorIs(t, err, circuitbreaker.ErrOpen)
	repo.AssertNumberOfCalls(t, "Create", 2)
	assert.Equal(t, circuitbreaker.StateOpen, w.State())
}
