package backup

import (
	"context"
	"fmt"
	"time"

	"dataplug/internal/core/domain"
	"dataplug/internal/core/ports"
	"dataplug/pkg/backup"

	"go.uber.org/zap"
)

// FormatVersion is written into every catalog snapshot envelope.
const FormatVersion = "1"

// CatalogSnapshot is the payload of a catalog snapshot.
type CatalogSnapshot struct {
	Streams  []*domain.Stream  `json:"streams"`
	Accounts []*domain.Account `json:"accounts"`
}

// Locker serializes snapshot runs across instances.
type Locker interface {
	TryLock(ctx context.Context) (bool, error)
	Unlock(ctx context.Context) error
}

type Config struct {
	Interval  time.Duration
	Retention time.Duration
}

// Scheduler takes periodic catalog snapshots and prunes expired ones.
type Scheduler struct {
	archive  *backup.Archive
	streams  ports.StreamRepository
	accounts ports.AccountRepository
	lock     Locker
	cfg      Config
	logger   *zap.SugaredLogger
	now      func() time.Time
	stopChan chan struct{}
	done     chan struct{}
}

func NewScheduler(
	archive *backup.Archive,
	streams ports.StreamRepository,
	accounts ports.AccountRepository,
	cfg Config,
	logger *zap.SugaredLogger,
) *Scheduler {
	return &Scheduler{
		archive:  archive,
		streams:  streams,
		accounts: accounts,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// WithLock makes runs skip when another instance holds l.
func (s *Scheduler) WithLock(l Locker) *Scheduler {
	s.lock = l
	return s
}

// Start runs a snapshot immediately and then on every interval until Stop
// or ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ticker.C:
			s.tick(ctx)
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop ends the loop and waits for an in-flight run.
func (s *Scheduler) Stop() {
	select {
	case <-s.stopChan:
	default:
		close(s.stopChan)
	}
	<-s.done
}

func (s *Scheduler) tick(ctx context.Context) {
	name, err := s.RunOnce(ctx)
	switch {
	case err != nil:
		s.logger.Errorw("catalog snapshot failed", "error", err)
	case name == "":
		s.logger.Debug("catalog snapshot skipped; another instance holds the lock")
	default:
		s.logger.Infow("catalog snapshot written", "snapshot", name)
	}
}

// RunOnce writes one snapshot and prunes expired ones. It returns an empty
// name without error when the lock is held elsewhere.
func (s *Scheduler) RunOnce(ctx context.Context) (string, error) {
	if s.lock != nil {
		acquired, err := s.lock.TryLock(ctx)
		if err != nil {
			return "", err
		}
		if !acquired {
			return "", nil
		}
		defer func() {
			if err := s.lock.Unlock(context.Background()); err != nil {
				s.logger.Warnw("failed to release snapshot lock", "error", err)
			}
		}()
	}

	snapshot, err := s.collect(ctx)
	if err != nil {
		return "", err
	}

	name, err := s.archive.Save(ctx, snapshot)
	if err != nil {
		return "", err
	}

	if s.cfg.Retention > 0 {
		deleted, err := s.archive.Prune(ctx, s.now().Add(-s.cfg.Retention))
		if err != nil {
			s.logger.Warnw("failed to prune old snapshots", "error", err)
		}
		if deleted > 0 {
			s.logger.Infow("pruned old snapshots", "deleted", deleted)
		}
	}
	return name, nil
}

func (s *Scheduler) collect(ctx context.Context) (*CatalogSnapshot, error) {
	streams, err := s.streams.List(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list streams: %w", err)
	}
	accounts, err := s.accounts.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return &CatalogSnapshot{Streams: streams, Accounts: accounts}, nil
}
