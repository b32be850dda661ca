package services_test

import (
	"context"
	"sync"
	"time"

	"dataplug/internal/core/domain"
	"dataplug/internal/infrastructure/repositories/memory"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type MockStreamRepository struct {
	mock.Mock
}

func (m *MockStreamRepository) Create(ctx context.Context, stream *domain.Stream) error {
	args := m.Called(ctx, stream)
	return args.Error(0)
}

func (m *MockStreamRepository) GetByID(ctx context.Context, id domain.StreamID) (*domain.Stream, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Stream), args.Error(1)
}

func (m *MockStreamRepository) List(ctx context.Context, limit int) ([]*domain.Stream, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Stream), args.Error(1)
}

func (m *MockStreamRepository) IncrementCounter(ctx context.Context, id domain.StreamID, bucket domain.CounterBucket) (int64, error) {
	args := m.Called(ctx, id, bucket)
	return args.Get(0).(int64), args.Error(1)
}

type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) List(ctx context.Context) ([]*domain.Account, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Account), args.Error(1)
}

type MockUsageEventRepository struct {
	mock.Mock
}

func (m *MockUsageEventRepository) Insert(ctx context.Context, event *domain.UsageEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// captureRecorder keeps recorded events in memory.
type captureRecorder struct {
	mu     sync.Mutex
	events []domain.UsageEvent
}

func (r *captureRecorder) Record(event *domain.UsageEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *event)
}

func (r *captureRecorder) Events() []domain.UsageEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.UsageEvent(nil), r.events...)
}

type countingListener struct {
	mu    sync.Mutex
	added []domain.StreamID
}

func (l *countingListener) StreamAdded(ctx context.Context, stream *domain.Stream) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.added = append(l.added, stream.ID)
}

func testLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

var catalogEpoch = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

// newSeededRepo returns a memory catalog holding the given streams in order.
func newSeededRepo(streams ...*domain.Stream) *memory.MemoryStreamRepository {
	repo := memory.NewMemoryStreamRepository()
	for i, s := range streams {
		if s.CreatedAt.IsZero() {
			s.CreatedAt = catalogEpoch.Add(time.Duration(i) * time.Second)
		}
		if err := repo.Create(context.Background(), s); err != nil {
			panic(err)
		}
	}
	return repo
}
