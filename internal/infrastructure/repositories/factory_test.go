package repositories

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"dataplug/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const seedYAML = `
streams:
  - id: "1"
    name: Solana Mempool
    endpoint: wss://mempool.example/ws
    description: pending transactions
    tags: [solana, mempool]
    clicks_node: 5
    clicks_python: 2
  - id: "2"
    name: ETH Gas
    endpoint: wss://gas.example/ws
    description: gas oracle
accounts:
  - id: u1
    email: admin@dataplug.dev
`

func writeSeed(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seedYAML), 0o600))
	return path
}

func TestFactory_MemoryWithSeed(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Storage.Driver = DriverMemory
	cfg.Storage.SeedFile = writeSeed(t)

	f, err := NewRepositoryFactory(context.Background(), cfg, zap.NewNop().Sugar())
	require.NoError(t, err)
	defer f.Close()

	streams, err := f.StreamRepository().List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, streams, 2)
	assert.Equal(t, "Solana Mempool", streams[0].Name)
	assert.Equal(t, int64(5), streams[0].ClicksNode)

	accounts, err := f.AccountRepository().List(context.Background())
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
	assert.NoError(t, f.HealthCheck(context.Background()))
}

func TestFactory_SQLiteSeedIsIdempotent(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Storage.Driver = DriverSQLite
	cfg.Storage.SQLiteURL = filepath.Join(t.TempDir(), "dataplug.db")
	cfg.Storage.SeedFile = writeSeed(t)
	log := zap.NewNop().Sugar()

	first, err := NewRepositoryFactory(context.Background(), cfg, log)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := NewRepositoryFactory(context.Background(), cfg, log)
	require.NoError(t, err)
	defer second.Close()

	assert.Equal(t, DriverSQLite, second.Driver())
	streams, err := second.StreamRepository().List(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, streams, 2)
	assert.NoError(t, second.HealthCheck(context.Background()))
}

func TestFactory_MissingSeedFails(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Storage.SeedFile = filepath.Join(t.TempDir(), "absent.yaml")

	_, err := NewRepositoryFactory(context.Background(), cfg, zap.NewNop().Sugar())
	assert.Error(t, err)
}

func TestLoadSeed_ShippedCatalog(t *testing.T) {
	seed, err := LoadSeed(filepath.Join("..", "..", "..", "configs", "seed.yaml"))
	require.NoError(t, err)
	require.Len(t, seed.Streams, 3)
	assert.Equal(t, "Solana Mempool", seed.Streams[0].Name)
	assert.False(t, seed.Streams[0].CreatedAt.IsZero())
	require.Len(t, seed.Accounts, 1)
}
