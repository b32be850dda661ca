// Command dataplug-snapshot lists, takes and restores catalog snapshots
// using the server's storage and snapshot configuration.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	backupinfra "dataplug/internal/infrastructure/backup"
	repositories "dataplug/internal/infrastructure/repositories"
	"dataplug/pkg/config"
	"dataplug/pkg/logger"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the server configuration")
	list := flag.Bool("list", false, "list available snapshots")
	take := flag.Bool("take", false, "take a snapshot now")
	restore := flag.Bool("restore", false, "restore a snapshot into the configured store")
	name := flag.String("name", "", "snapshot to restore (newest when empty)")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall deadline")
	flag.Parse()

	log := logger.New("info").Sugar()
	defer log.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalw("failed to load configuration", "error", err)
	}
	// one-shot runs must not re-apply the seed over restored data
	cfg.Storage.SeedFile = ""

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	archive, err := backupinfra.NewArchive(ctx, cfg)
	if err != nil {
		log.Fatalw("failed to open snapshot storage", "error", err)
	}

	switch {
	case *list:
		names, err := archive.List(ctx)
		if err != nil {
			log.Fatalw("failed to list snapshots", "error", err)
		}
		for _, n := range names {
			fmt.Fprintln(os.Stdout, n)
		}

	case *take, *restore:
		factory, err := repositories.NewRepositoryFactory(ctx, cfg, log)
		if err != nil {
			log.Fatalw("failed to open store", "error", err)
		}
		defer factory.Close()

		if *take {
			scheduler := backupinfra.NewScheduler(archive, factory.StreamRepository(), factory.AccountRepository(), backupinfra.Config{
				Retention: cfg.Snapshots.Retention,
			}, log)
			if lock := factory.SnapshotLock(time.Minute); lock != nil {
				scheduler.WithLock(lock)
			}
			snapshot, err := scheduler.RunOnce(ctx)
			if err != nil {
				log.Fatalw("snapshot failed", "error", err)
			}
			if snapshot == "" {
				log.Warn("another instance is taking a snapshot; nothing written")
				return
			}
			fmt.Fprintln(os.Stdout, snapshot)
			return
		}

		result, err := backupinfra.NewRestoreService(archive, factory.StreamRepository(), factory.AccountRepository(), log).
			Restore(ctx, *name)
		if err != nil {
			log.Fatalw("restore failed", "error", err)
		}
		fmt.Fprintf(os.Stdout, "%s: %d streams restored, %d skipped, %d accounts\n",
			result.Snapshot, result.StreamsRestored, result.StreamsSkipped, result.Accounts)

	default:
		flag.Usage()
		os.Exit(2)
	}
}
