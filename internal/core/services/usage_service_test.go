package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"dataplug/internal/core/domain"
	"dataplug/internal/core/services"
	apperrors "dataplug/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func solanaAndGas() []*domain.Stream {
	return []*domain.Stream{
		{ID: "1", Name: "Solana Mempool", Endpoint: "wss://sol", Description: "pending", ClicksNode: 5, ClicksPython: 2},
		{ID: "2", Name: "ETH Gas", Endpoint: "wss://gas", Description: "gas"},
	}
}

func TestUsageService_IncrementPython(t *testing.T) {
	repo := newSeededRepo(solanaAndGas()...)
	recorder := &captureRecorder{}
	svc := services.NewUsageService(repo, recorder, nil, testLogger())

	require.NoError(t, svc.Increment(context.Background(), "1", "python"))

	got, err := repo.GetByID(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.ClicksPython)
	assert.Equal(t, int64(5), got.ClicksNode)

	events := recorder.Events()
	require.Len(t, events, 1)
	assert.Equal(t, domain.BucketPython, events[0].Type)
	assert.Equal(t, domain.StreamID("1"), events[0].StreamID)
}

func TestUsageService_VibeRecordsEventOnly(t *testing.T) {
	repo := newSeededRepo(solanaAndGas()...)
	recorder := &captureRecorder{}
	svc := services.NewUsageService(repo, recorder, nil, testLogger())

	require.NoError(t, svc.Increment(context.Background(), "2", "vibe"))

	got, _ := repo.GetByID(context.Background(), "2")
	assert.Equal(t, int64(0), got.TotalClicks())
	require.Len(t, recorder.Events(), 1)
	assert.Equal(t, domain.BucketVibe, recorder.Events()[0].Type)
}

func TestUsageService_Failures(t *testing.T) {
	repo := newSeededRepo(solanaAndGas()...)
	recorder := &captureRecorder{}
	svc := services.NewUsageService(repo, recorder, nil, testLogger())
	ctx := context.Background()

	tests := []struct {
		name   string
		id     domain.StreamID
		bucket string
		code   apperrors.ErrorCode
	}{
		{"missing id", "", "node", apperrors.ErrCodeInvalidInput},
		{"missing type", "1", "", apperrors.ErrCodeInvalidInput},
		{"unknown type", "1", "rust", apperrors.ErrCodeInvalidType},
		{"unknown stream", "99", "node", apperrors.ErrCodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.Increment(ctx, tt.id, tt.bucket)
			assert.True(t, apperrors.HasCode(err, tt.code), "got %v", err)
		})
	}

	got, _ := repo.GetByID(ctx, "1")
	assert.Equal(t, int64(5), got.ClicksNode)
	assert.Equal(t, int64(2), got.ClicksPython)
	assert.Empty(t, recorder.Events())
}

func TestUsageService_SilentPolicyRejectionIsForbidden(t *testing.T) {
	repo := newSeededRepo(solanaAndGas()...)
	repo.SetWritePolicy(func(domain.StreamID, domain.CounterBucket) bool { return false })
	recorder := &captureRecorder{}
	svc := services.NewUsageService(repo, recorder, nil, testLogger())

	err := svc.Increment(context.Background(), "1", "node")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeForbidden))
	assert.ErrorIs(t, err, domain.ErrWriteNotApplied)
	assert.Empty(t, recorder.Events())
}

func TestUsageService_AcknowledgedButInvisibleWriteIsForbidden(t *testing.T) {
	repo := &MockStreamRepository{}
	stream := &domain.Stream{ID: "1", ClicksNode: 5}
	repo.On("GetByID", mock.Anything, domain.StreamID("1")).Return(stream, nil)
	repo.On("IncrementCounter", mock.Anything, domain.StreamID("1"), domain.BucketNode).Return(int64(1), nil)

	svc := services.NewUsageService(repo, &captureRecorder{}, nil, testLogger())
	err := svc.Increment(context.Background(), "1", "node")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeForbidden))
	repo.AssertNumberOfCalls(t, "GetByID", 2)
}

func TestUsageService_StoreFaultIsInternal(t *testing.T) {
	repo := &MockStreamRepository{}
	repo.On("GetByID", mock.Anything, domain.StreamID("1")).Return(&domain.Stream{ID: "1"}, nil)
	repo.On("IncrementCounter", mock.Anything, domain.StreamID("1"), domain.BucketPython).
		Return(int64(0), errors.New("connection reset"))

	svc := services.NewUsageService(repo, &captureRecorder{}, nil, testLogger())
	err := svc.Increment(context.Background(), "1", "python")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInternal))
}

func TestUsageService_ConcurrentIncrementsAreNotLost(t *testing.T) {
	repo := newSeededRepo(solanaAndGas()...)
	recorder := &captureRecorder{}
	svc := services.NewUsageService(repo, recorder, nil, testLogger())

	const n = 100
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, svc.Increment(context.Background(), "1", "node"))
		}()
	}
	wg.Wait()

	got, _ := repo.GetByID(context.Background(), "1")
	assert.Equal(t, int64(5+n), got.ClicksNode)
	assert.Len(t, recorder.Events(), n)
}
