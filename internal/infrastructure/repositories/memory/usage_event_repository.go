package memory

import (
	"context"
	"sync"

	"dataplug/internal/core/domain"
)

type MemoryUsageEventRepository struct {
	events []domain.UsageEvent
	mu     sync.Mutex
}

func NewMemoryUsageEventRepository() *MemoryUsageEventRepository {
	return &MemoryUsageEventRepository{}
}

func (r *MemoryUsageEventRepository) Insert(ctx context.Context, event *domain.UsageEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, *event)
	return nil
}

// Events returns a snapshot of recorded events in insertion order.
func (r *MemoryUsageEventRepository) Events() []domain.UsageEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]domain.UsageEvent(nil), r.events...)
}
