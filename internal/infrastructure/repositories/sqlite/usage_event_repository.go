package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"dataplug/internal/core/domain"
)

type UsageEventRepository struct {
	db *sql.DB
}

func NewUsageEventRepository(db *sql.DB) *UsageEventRepository {
	return &UsageEventRepository{db: db}
}

func (r *UsageEventRepository) Insert(ctx context.Context, event *domain.UsageEvent) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO usage_events (stream_id, type, created_at) VALUES (?, ?, ?)`,
		string(event.StreamID), string(event.Type), event.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert usage event: %w", err)
	}
	return nil
}

// CountByStream returns the number of recorded events for a stream.
func (r *UsageEventRepository) CountByStream(ctx context.Context, id domain.StreamID) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM usage_events WHERE stream_id = ?`, string(id)).Scan(&n)
	return n, err
}
