package backup

import (
	"context"
	"errors"
	"fmt"

	"dataplug/internal/core/domain"
	"dataplug/internal/core/ports"
	"dataplug/pkg/backup"

	"go.uber.org/zap"
)

// RestoreResult counts what a restore wrote.
type RestoreResult struct {
	Snapshot        string
	StreamsRestored int
	StreamsSkipped  int
	Accounts        int
}

// RestoreService loads a catalog snapshot back into the stores.
type RestoreService struct {
	archive  *backup.Archive
	streams  ports.StreamRepository
	accounts ports.AccountRepository
	logger   *zap.SugaredLogger
}

func NewRestoreService(
	archive *backup.Archive,
	streams ports.StreamRepository,
	accounts ports.AccountRepository,
	logger *zap.SugaredLogger,
) *RestoreService {
	return &RestoreService{
		archive:  archive,
		streams:  streams,
		accounts: accounts,
		logger:   logger,
	}
}

// Restore applies the named snapshot, or the newest one when name is empty.
// Streams that already exist are left untouched so live counters are never
// rolled back; accounts are upserted.
func (rs *RestoreService) Restore(ctx context.Context, name string) (*RestoreResult, error) {
	if name == "" {
		latest, err := rs.archive.Latest(ctx)
		if err != nil {
			return nil, err
		}
		name = latest
	}

	var snapshot CatalogSnapshot
	env, err := rs.archive.Load(ctx, name, &snapshot)
	if err != nil {
		return nil, err
	}
	if env.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported snapshot version %q", env.Version)
	}

	rs.logger.Infow("restoring catalog snapshot",
		"snapshot", name,
		"taken_at", env.TakenAt,
		"streams", len(snapshot.Streams),
		"accounts", len(snapshot.Accounts),
	)

	result := &RestoreResult{Snapshot: name}
	for _, stream := range snapshot.Streams {
		err := rs.streams.Create(ctx, stream)
		if errors.Is(err, domain.ErrStreamExists) {
			result.StreamsSkipped++
			continue
		}
		if err != nil {
			return result, fmt.Errorf("failed to restore stream %s: %w", stream.ID, err)
		}
		result.StreamsRestored++
	}

	for _, account := range snapshot.Accounts {
		if err := rs.accounts.Create(ctx, account); err != nil {
			return result, fmt.Errorf("failed to restore account %s: %w", account.ID, err)
		}
		result.Accounts++
	}

	rs.logger.Infow("restore completed",
		"snapshot", name,
		"streams_restored", result.StreamsRestored,
		"streams_skipped", result.StreamsSkipped,
		"accounts", result.Accounts,
	)
	return result, nil
}
