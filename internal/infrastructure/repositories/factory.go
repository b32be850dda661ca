package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"dataplug/internal/core/ports"
	"dataplug/internal/infrastructure/repositories/memory"
	redisrepo "dataplug/internal/infrastructure/repositories/redis"
	sqliterepo "dataplug/internal/infrastructure/repositories/sqlite"
	"dataplug/pkg/config"
	"dataplug/pkg/distributed"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// lockPrefix namespaces the Redis locks taken by DataPlug instances.
const lockPrefix = "dataplug:lock:"

// RepositoryFactory opens the configured store and hands out its repositories.
type RepositoryFactory struct {
	driver      string
	db          *sql.DB
	redisClient *redis.Client
	logger      *zap.SugaredLogger

	streams  ports.StreamRepository
	accounts ports.AccountRepository
	events   ports.UsageEventRepository
}

// NewRepositoryFactory connects to the configured store. An unreachable
// Redis falls back to memory repositories; a broken SQLite URL is fatal.
func NewRepositoryFactory(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) (*RepositoryFactory, error) {
	f := &RepositoryFactory{driver: cfg.Storage.Driver, logger: logger}

	switch cfg.Storage.Driver {
	case DriverSQLite:
		db, err := sqliterepo.Open(cfg.Storage.SQLiteURL)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		f.db = db
		f.streams = sqliterepo.NewStreamRepository(db)
		f.accounts = sqliterepo.NewAccountRepository(db)
		f.events = sqliterepo.NewUsageEventRepository(db)
		logger.Infow("using sqlite repositories", "url", cfg.Storage.SQLiteURL)

	case DriverRedis:
		client, err := redisrepo.NewClient(ctx, redisrepo.Options{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		}, logger)
		if err != nil {
			logger.Warnw("failed to connect to Redis, falling back to memory repositories",
				"error", err,
			)
			f.useMemory()
			break
		}
		f.redisClient = client
		f.streams = redisrepo.NewStreamRepository(client)
		f.accounts = redisrepo.NewAccountRepository(client)
		f.events = redisrepo.NewUsageEventRepository(client)
		logger.Info("using Redis repositories")

	default:
		f.useMemory()
	}

	if cfg.Storage.SeedFile != "" {
		seed, err := LoadSeed(cfg.Storage.SeedFile)
		if err != nil {
			f.Close()
			return nil, err
		}
		if err := f.applySeed(ctx, seed); err != nil {
			f.Close()
			return nil, err
		}
		logger.Infow("catalog seeded",
			"file", cfg.Storage.SeedFile,
			"streams", len(seed.Streams),
			"accounts", len(seed.Accounts),
		)
	}

	return f, nil
}

// applySeed runs under a shared lock on Redis so that instances starting
// together do not interleave their inserts.
func (f *RepositoryFactory) applySeed(ctx context.Context, seed *Seed) error {
	if f.redisClient == nil {
		return seed.Apply(ctx, f.streams, f.accounts)
	}

	lock := distributed.NewLockManager(f.redisClient, lockPrefix).AcquireLock("seed", 30*time.Second)
	lockCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	if err := lock.Lock(lockCtx); err != nil {
		return fmt.Errorf("acquire seed lock: %w", err)
	}
	defer func() {
		if err := lock.Unlock(context.Background()); err != nil {
			f.logger.Warnw("failed to release seed lock", "error", err)
		}
	}()
	return seed.Apply(ctx, f.streams, f.accounts)
}

func (f *RepositoryFactory) useMemory() {
	f.driver = DriverMemory
	f.streams = memory.NewMemoryStreamRepository()
	f.accounts = memory.NewMemoryAccountRepository()
	f.events = memory.NewMemoryUsageEventRepository()
	f.logger.Info("using memory repositories")
}

// Driver reports the store actually in use after any fallback.
func (f *RepositoryFactory) Driver() string {
	return f.driver
}

func (f *RepositoryFactory) StreamRepository() ports.StreamRepository {
	return f.streams
}

func (f *RepositoryFactory) AccountRepository() ports.AccountRepository {
	return f.accounts
}

func (f *RepositoryFactory) UsageEventRepository() ports.UsageEventRepository {
	return f.events
}

// SnapshotLock returns a cross-instance lock for snapshot runs, or nil when
// the store is not shared.
func (f *RepositoryFactory) SnapshotLock(ttl time.Duration) *distributed.DistributedLock {
	if f.redisClient == nil {
		return nil
	}
	return distributed.NewLockManager(f.redisClient, lockPrefix).AcquireLock("snapshot", ttl)
}

// RedisClient is nil unless the Redis driver is active.
func (f *RepositoryFactory) RedisClient() *redis.Client {
	return f.redisClient
}

// Close releases the store connection
func (f *RepositoryFactory) Close() error {
	if f.redisClient != nil {
		return f.redisClient.Close()
	}
	if f.db != nil {
		return f.db.Close()
	}
	return nil
}

// HealthCheck pings the backing store
func (f *RepositoryFactory) HealthCheck(ctx context.Context) error {
	switch {
	case f.redisClient != nil:
		return f.redisClient.Ping(ctx).Err()
	case f.db != nil:
		return f.db.PingContext(ctx)
	}
	return nil
}
