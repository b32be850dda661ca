package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"dataplug/internal/core/domain"
	"dataplug/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

const (
	streamKeyPrefix = keyPrefix + "stream:"
	streamIndexKey  = keyPrefix + "streams:by_created"
)

// incrementScript bumps a counter field only when the stream hash exists,
// returning the number of records changed.
var incrementScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return 0
end
redis.call('HINCRBY', KEYS[1], ARGV[1], 1)
return 1
`)

// createScript writes the stream hash and its index entry in one step,
// refusing when the hash already exists.
var createScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 0
end
redis.call('HSET', KEYS[1], unpack(ARGV, 3))
redis.call('ZADD', KEYS[2], ARGV[1], ARGV[2])
return 1
`)

// StreamRepository stores each stream as a hash and keeps a sorted set of
// IDs scored by creation time in milliseconds. Members with equal scores
// are ordered by ID, which gives the (created_at, id) store order.
type StreamRepository struct {
	client *redis.Client
}

func NewStreamRepository(client *redis.Client) *StreamRepository {
	return &StreamRepository{client: client}
}

var _ ports.StreamRepository = (*StreamRepository)(nil)

func streamKey(id domain.StreamID) string {
	return streamKeyPrefix + string(id)
}

func (r *StreamRepository) Create(ctx context.Context, stream *domain.Stream) error {
	tags, err := json.Marshal(stream.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	created, err := createScript.Run(ctx, r.client,
		[]string{streamKey(stream.ID), streamIndexKey},
		stream.CreatedAt.UnixMilli(),
		string(stream.ID),
		"id", string(stream.ID),
		"name", stream.Name,
		"endpoint", stream.Endpoint,
		"description", stream.Description,
		"tags", string(tags),
		"clicks_node", stream.ClicksNode,
		"clicks_python", stream.ClicksPython,
		"created_at", stream.CreatedAt.UnixNano(),
	).Int()
	if err != nil {
		return fmt.Errorf("failed to store stream in Redis: %w", err)
	}
	if created == 0 {
		return domain.ErrStreamExists
	}
	return nil
}

func (r *StreamRepository) GetByID(ctx context.Context, id domain.StreamID) (*domain.Stream, error) {
	fields, err := r.client.HGetAll(ctx, streamKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get stream from Redis: %w", err)
	}
	if len(fields) == 0 {
		return nil, domain.ErrStreamNotFound
	}
	return decodeStream(fields)
}

func (r *StreamRepository) List(ctx context.Context, limit int) ([]*domain.Stream, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}

	ids, err := r.client.ZRange(ctx, streamIndexKey, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read stream index: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, streamKey(domain.StreamID(id)))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load streams: %w", err)
	}

	streams := make([]*domain.Stream, 0, len(ids))
	for _, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			// index entry without a record
			continue
		}
		stream, err := decodeStream(fields)
		if err != nil {
			return nil, err
		}
		streams = append(streams, stream)
	}
	return streams, nil
}

func (r *StreamRepository) IncrementCounter(ctx context.Context, id domain.StreamID, bucket domain.CounterBucket) (int64, error) {
	var field string
	switch bucket {
	case domain.BucketNode:
		field = "clicks_node"
	case domain.BucketPython:
		field = "clicks_python"
	default:
		return 0, domain.ErrInvalidCounterBucket
	}

	n, err := incrementScript.Run(ctx, r.client, []string{streamKey(id)}, field).Int64()
	if err != nil {
		return 0, fmt.Errorf("failed to increment %s: %w", field, err)
	}
	return n, nil
}

func decodeStream(fields map[string]string) (*domain.Stream, error) {
	stream := &domain.Stream{
		ID:          domain.StreamID(fields["id"]),
		Name:        fields["name"],
		Endpoint:    fields["endpoint"],
		Description: fields["description"],
	}

	if raw := fields["tags"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &stream.Tags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
		}
	}

	var err error
	if stream.ClicksNode, err = parseInt(fields["clicks_node"]); err != nil {
		return nil, err
	}
	if stream.ClicksPython, err = parseInt(fields["clicks_python"]); err != nil {
		return nil, err
	}
	createdAt, err := parseInt(fields["created_at"])
	if err != nil {
		return nil, err
	}
	stream.CreatedAt = time.Unix(0, createdAt).UTC()
	return stream, nil
}

func parseInt(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed integer field %q: %w", s, err)
	}
	return v, nil
}
