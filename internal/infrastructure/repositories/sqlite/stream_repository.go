package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"dataplug/internal/core/domain"
	"dataplug/internal/core/ports"
)

type StreamRepository struct {
	db *sql.DB
}

func NewStreamRepository(db *sql.DB) *StreamRepository {
	return &StreamRepository{db: db}
}

var _ ports.StreamRepository = (*StreamRepository)(nil)

const streamColumns = `id, name, endpoint, description, tags, clicks_node, clicks_python, created_at`

func (r *StreamRepository) Create(ctx context.Context, stream *domain.Stream) error {
	query := `INSERT INTO streams (` + streamColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	tagsJSON, err := json.Marshal(stream.Tags)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, query,
		string(stream.ID), stream.Name, stream.Endpoint, stream.Description, string(tagsJSON),
		stream.ClicksNode, stream.ClicksPython, stream.CreatedAt.UnixNano(),
	)
	if isUniqueViolation(err) {
		return domain.ErrStreamExists
	}
	if err != nil {
		return fmt.Errorf("insert stream: %w", err)
	}
	return nil
}

func (r *StreamRepository) GetByID(ctx context.Context, id domain.StreamID) (*domain.Stream, error) {
	query := `SELECT ` + streamColumns + ` FROM streams WHERE id = ?`

	stream, err := scanStream(r.db.QueryRowContext(ctx, query, string(id)))
	if err == sql.ErrNoRows {
		return nil, domain.ErrStreamNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get stream: %w", err)
	}
	return stream, nil
}

func (r *StreamRepository) List(ctx context.Context, limit int) ([]*domain.Stream, error) {
	query := `SELECT ` + streamColumns + ` FROM streams ORDER BY created_at ASC, id ASC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list streams: %w", err)
	}
	defer rows.Close()

	var streams []*domain.Stream
	for rows.Next() {
		stream, err := scanStream(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stream: %w", err)
		}
		streams = append(streams, stream)
	}
	return streams, rows.Err()
}

func (r *StreamRepository) IncrementCounter(ctx context.Context, id domain.StreamID, bucket domain.CounterBucket) (int64, error) {
	var query string
	switch bucket {
	case domain.BucketNode:
		query = `UPDATE streams SET clicks_node = clicks_node + 1 WHERE id = ?`
	case domain.BucketPython:
		query = `UPDATE streams SET clicks_python = clicks_python + 1 WHERE id = ?`
	default:
		return 0, domain.ErrInvalidCounterBucket
	}

	res, err := r.db.ExecContext(ctx, query, string(id))
	if err != nil {
		return 0, fmt.Errorf("increment %s counter: %w", bucket, err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanStream(row rowScanner) (*domain.Stream, error) {
	var (
		stream    domain.Stream
		id        string
		tagsJSON  sql.NullString
		createdAt int64
	)
	err := row.Scan(&id, &stream.Name, &stream.Endpoint, &stream.Description, &tagsJSON,
		&stream.ClicksNode, &stream.ClicksPython, &createdAt)
	if err != nil {
		return nil, err
	}

	stream.ID = domain.StreamID(id)
	stream.CreatedAt = time.Unix(0, createdAt).UTC()
	if tagsJSON.Valid {
		if err := json.Unmarshal([]byte(tagsJSON.String), &stream.Tags); err != nil {
			return nil, fmt.Errorf("decode tags for stream %s: %w", id, err)
		}
	}
	return &stream, nil
}
