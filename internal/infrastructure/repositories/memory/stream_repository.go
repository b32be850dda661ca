package memory

import (
	"context"
	"sort"
	"sync"

	"dataplug/internal/core/domain"
	"dataplug/internal/core/ports"
)

// WritePolicy decides whether a counter write is applied. A rejected write
// is acknowledged with zero rows affected, the way row-level security
// behaves in a hosted store.
type WritePolicy func(id domain.StreamID, bucket domain.CounterBucket) bool

type MemoryStreamRepository struct {
	streams map[domain.StreamID]*domain.Stream
	policy  WritePolicy
	mu      sync.RWMutex
}

func NewMemoryStreamRepository() *MemoryStreamRepository {
	return &MemoryStreamRepository{
		streams: make(map[domain.StreamID]*domain.Stream),
	}
}

var _ ports.StreamRepository = (*MemoryStreamRepository)(nil)

// SetWritePolicy installs a policy consulted on every counter write; nil allows all.
func (r *MemoryStreamRepository) SetWritePolicy(policy WritePolicy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.policy = policy
}

func (r *MemoryStreamRepository) Create(ctx context.Context, stream *domain.Stream) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.streams[stream.ID]; exists {
		return domain.ErrStreamExists
	}

	r.streams[stream.ID] = stream.Clone()
	return nil
}

func (r *MemoryStreamRepository) GetByID(ctx context.Context, id domain.StreamID) (*domain.Stream, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stream, exists := r.streams[id]
	if !exists {
		return nil, domain.ErrStreamNotFound
	}

	return stream.Clone(), nil
}

func (r *MemoryStreamRepository) List(ctx context.Context, limit int) ([]*domain.Stream, error) {
	r.mu.RLock()
	streams := make([]*domain.Stream, 0, len(r.streams))
	for _, stream := range r.streams {
		streams = append(streams, stream.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(streams, func(i, j int) bool {
		if !streams[i].CreatedAt.Equal(streams[j].CreatedAt) {
			return streams[i].CreatedAt.Before(streams[j].CreatedAt)
		}
		return streams[i].ID < streams[j].ID
	})

	if limit > 0 && len(streams) > limit {
		streams = streams[:limit]
	}
	return streams, nil
}

func (r *MemoryStreamRepository) IncrementCounter(ctx context.Context, id domain.StreamID, bucket domain.CounterBucket) (int64, error) {
	if !bucket.HasColumn() {
		return 0, domain.ErrInvalidCounterBucket
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stream, exists := r.streams[id]
	if !exists {
		return 0, nil
	}
	if r.policy != nil && !r.policy(id, bucket) {
		return 0, nil
	}

	switch bucket {
	case domain.BucketNode:
		stream.ClicksNode++
	case domain.BucketPython:
		stream.ClicksPython++
	}
	return 1, nil
}
