package ports

import (
	"context"

	"dataplug/internal/core/domain"
)

// StreamRepository is the persisted stream catalog. List returns records in
// store order (created_at, then id); limit <= 0 means no limit.
//
// IncrementCounter adds one to a column bucket at the store and reports the
// number of rows the store says it changed. Adapters subject to row-level
// policies may report zero without an error.
type StreamRepository interface {
	Create(ctx context.Context, stream *domain.Stream) error
	GetByID(ctx context.Context, id domain.StreamID) (*domain.Stream, error)
	List(ctx context.Context, limit int) ([]*domain.Stream, error)
	IncrementCounter(ctx context.Context, id domain.StreamID, bucket domain.CounterBucket) (int64, error)
}

type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	List(ctx context.Context) ([]*domain.Account, error)
}

type UsageEventRepository interface {
	Insert(ctx context.Context, event *domain.UsageEvent) error
}
