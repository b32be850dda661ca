package backup

import (
	"context"
	"errors"
	"testing"
	"time"

	"dataplug/internal/core/domain"
	"dataplug/internal/core/ports"
	"dataplug/internal/infrastructure/repositories/memory"
	"dataplug/pkg/backup"
	"dataplug/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubLock struct {
	free     bool
	err      error
	unlocked int
}

func (l *stubLock) TryLock(ctx context.Context) (bool, error) {
	return l.free, l.err
}

func (l *stubLock) Unlock(ctx context.Context) error {
	l.unlocked++
	return nil
}

func seededStores(t *testing.T) (*memory.MemoryStreamRepository, ports.AccountRepository) {
	t.Helper()
	ctx := context.Background()
	streams := memory.NewMemoryStreamRepository()
	accounts := memory.NewMemoryAccountRepository()

	epoch := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, streams.Create(ctx, &domain.Stream{
		ID: "solana-mempool", Name: "Solana Mempool", Endpoint: "wss://sol.example.com",
		Description: "mempool", ClicksNode: 5, ClicksPython: 2, CreatedAt: epoch,
	}))
	require.NoError(t, streams.Create(ctx, &domain.Stream{
		ID: "eth-gas", Name: "ETH Gas", Endpoint: "wss://gas.example.com",
		Description: "gas", CreatedAt: epoch.Add(time.Minute),
	}))
	require.NoError(t, accounts.Create(ctx, &domain.Account{ID: "acct_ops", Email: "ops@dataplug.dev", CreatedAt: epoch}))
	return streams, accounts
}

func testArchive(t *testing.T) *backup.Archive {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Snapshots.Directory = t.TempDir()
	archive, err := NewArchive(context.Background(), cfg)
	require.NoError(t, err)
	return archive
}

func TestScheduler_SnapshotThenRestoreIntoEmptyStores(t *testing.T) {
	log := zap.NewNop().Sugar()
	archive := testArchive(t)
	streams, accounts := seededStores(t)

	name, err := NewScheduler(archive, streams, accounts, Config{Interval: time.Hour}, log).RunOnce(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, name)

	freshStreams := memory.NewMemoryStreamRepository()
	freshAccounts := memory.NewMemoryAccountRepository()
	result, err := NewRestoreService(archive, freshStreams, freshAccounts, log).Restore(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, name, result.Snapshot)
	assert.Equal(t, 2, result.StreamsRestored)
	assert.Equal(t, 1, result.Accounts)

	restored, err := freshStreams.GetByID(context.Background(), "solana-mempool")
	require.NoError(t, err)
	assert.Equal(t, int64(5), restored.ClicksNode)
	assert.Equal(t, int64(2), restored.ClicksPython)

	list, err := freshStreams.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, domain.StreamID("solana-mempool"), list[0].ID)
}

func TestRestore_KeepsLiveCounters(t *testing.T) {
	log := zap.NewNop().Sugar()
	archive := testArchive(t)
	streams, accounts := seededStores(t)
	ctx := context.Background()

	_, err := NewScheduler(archive, streams, accounts, Config{Interval: time.Hour}, log).RunOnce(ctx)
	require.NoError(t, err)

	_, err = streams.IncrementCounter(ctx, "solana-mempool", domain.BucketNode)
	require.NoError(t, err)

	result, err := NewRestoreService(archive, streams, accounts, log).Restore(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 0, result.StreamsRestored)
	assert.Equal(t, 2, result.StreamsSkipped)

	stream, err := streams.GetByID(ctx, "solana-mempool")
	require.NoError(t, err)
	assert.Equal(t, int64(6), stream.ClicksNode)
}

func TestRestore_NoSnapshots(t *testing.T) {
	streams, accounts := seededStores(t)
	_, err := NewRestoreService(testArchive(t), streams, accounts, zap.NewNop().Sugar()).Restore(context.Background(), "")
	assert.ErrorIs(t, err, backup.ErrNoSnapshots)
}

func TestScheduler_SkipsWhenLockHeldElsewhere(t *testing.T) {
	archive := testArchive(t)
	streams, accounts := seededStores(t)
	lock := &stubLock{free: false}

	s := NewScheduler(archive, streams, accounts, Config{Interval: time.Hour}, zap.NewNop().Sugar()).WithLock(lock)
	name, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Empty(t, name)
	assert.Zero(t, lock.unlocked)

	names, err := archive.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, names)

	lock.err = errors.New("redis down")
	_, err = s.RunOnce(context.Background())
	assert.Error(t, err)
}

func TestScheduler_ReleasesLockAndPrunes(t *testing.T) {
	archive := testArchive(t)
	streams, accounts := seededStores(t)
	lock := &stubLock{free: true}

	s := NewScheduler(archive, streams, accounts, Config{Interval: time.Hour, Retention: time.Hour}, zap.NewNop().Sugar()).WithLock(lock)

	first, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, lock.unlocked)

	names, err := archive.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{first}, names)

	// two hours later every snapshot written so far is past retention
	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, lock.unlocked)

	names, err = archive.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestScheduler_StartAndStop(t *testing.T) {
	archive := testArchive(t)
	streams, accounts := seededStores(t)

	s := NewScheduler(archive, streams, accounts, Config{Interval: time.Hour}, zap.NewNop().Sugar())
	go s.Start(context.Background())

	require.Eventually(t, func() bool {
		names, err := archive.List(context.Background())
		return err == nil && len(names) == 1
	}, 2*time.Second, 10*time.Millisecond)

	s.Stop()
	s.Stop()
}
