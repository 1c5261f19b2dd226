package mirror

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofrs/flock"
	"github.com/wesm/zenhub-mirror/internal/db"
	"github.com/wesm/zenhub-mirror/internal/server"
	"github.com/wesm/zenhub-mirror/internal/store"
	"github.com/wesm/zenhub-mirror/internal/sync"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// Instance is a built mirror. It owns the store lock and the change event
// log until Close.
type Instance struct {
	syncer    *sync.Syncer
	scheduler *sync.Scheduler
	server    *server.Server
	selection sync.Selection
	workers   int
	db        store.Database
	events    *db.DB
	lock      *flock.Flock
	log       *slog.Logger
}

// DB returns the cached store the mirror writes to.
func (i *Instance) DB() store.Database {
	return i.db
}

// Selection returns the resolved owners and repositories.
func (i *Instance) Selection() sync.Selection {
	return i.selection
}

// Run starts the workers, the scheduler and, when configured, the HTTP
// server, and blocks until ctx is done or one of them fails.
func (i *Instance) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	i.log.Info("starting mirror", "workers", i.workers,
		"owners", len(i.selection.Owners), "repositories", len(i.selection.Repositories))

	for id := 1; id <= i.workers; id++ {
		g.Go(func() error {
			return i.syncer.RunWorker(gctx, id)
		})
	}
	g.Go(func() error {
		return i.scheduler.Run(gctx)
	})

	if i.server != nil {
		g.Go(func() error {
			if err := i.server.Start(); err != nil {
				return fmt.Errorf("failed to serve http: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return i.server.Shutdown(shutdownCtx)
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Close releases the change event log and the store lock.
func (i *Instance) Close() error {
	var errs []error
	if err := i.events.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close change event log: %w", err))
	}
	if err := i.lock.Unlock(); err != nil {
		errs = append(errs, fmt.Errorf("failed to release store lock: %w", err))
	}
	return errors.Join(errs...)
}
