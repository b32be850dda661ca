package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	schemaVersionKey     = keyPrefix + "schema:version"
	currentSchemaVersion = 1
)

// Migration is one step of the Redis key layout.
type Migration struct {
	Version int
	Up      func(ctx context.Context, client *redis.Client) error
}

// Migrate runs all pending migrations
func Migrate(ctx context.Context, client *redis.Client, logger *zap.SugaredLogger) error {
	currentVersion, err := getSchemaVersion(ctx, client)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	if currentVersion >= currentSchemaVersion {
		if logger != nil {
			logger.Debugw("schema is up to date", "version", currentVersion)
		}
		return nil
	}

	for _, migration := range migrations() {
		if migration.Version <= currentVersion {
			continue
		}
		if logger != nil {
			logger.Infow("running migration", "version", migration.Version)
		}
		if err := migration.Up(ctx, client); err != nil {
			return fmt.Errorf("migration %d failed: %w", migration.Version, err)
		}
		if err := client.Set(ctx, schemaVersionKey, migration.Version, 0).Err(); err != nil {
			return fmt.Errorf("failed to update schema version: %w", err)
		}
	}

	if logger != nil {
		logger.Infow("all migrations completed", "final_version", currentSchemaVersion)
	}
	return nil
}

func getSchemaVersion(ctx context.Context, client *redis.Client) (int, error) {
	val, err := client.Get(ctx, schemaVersionKey).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return val, nil
}

func migrations() []Migration {
	return []Migration{
		{
			// Version 1 indexes stream hashes written before the sorted-set index existed.
			Version: 1,
			Up:      rebuildStreamIndex,
		},
	}
}

func rebuildStreamIndex(ctx context.Context, client *redis.Client) error {
	iter := client.Scan(ctx, 0, streamKeyPrefix+"*", 200).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		id := strings.TrimPrefix(key, streamKeyPrefix)

		raw, err := client.HGet(ctx, key, "created_at").Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return err
		}
		nanos, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("stream %s has malformed created_at: %w", id, err)
		}
		if err := client.ZAdd(ctx, streamIndexKey, redis.Z{Score: float64(nanos / 1e6), Member: id}).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}
