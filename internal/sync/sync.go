package sync

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wesm/zenhub-mirror/internal/api"
	"github.com/wesm/zenhub-mirror/internal/models"
	"github.com/wesm/zenhub-mirror/internal/queue"
	"github.com/wesm/zenhub-mirror/internal/store"
)

const (
	// DefaultCooldown is how long a worker or retry loop pauses after a failure.
	DefaultCooldown = 60 * time.Second

	// retryAttempts bounds RetryOnRateLimit.
	retryAttempts = 3

	// incrementalRetries is how many extra attempts an incremental scan gives each repository.
	incrementalRetries = 3
)

// Syncer mirrors ZenHub resources of queued repositories and issues into a store.
type Syncer struct {
	queue    *queue.Queue
	db       store.Database
	github   api.GitHub
	zenhub   api.ZenHub
	cooldown time.Duration
	now      func() time.Time
	log      *slog.Logger
}

// New creates a new syncer
func New(q *queue.Queue, db store.Database, gh api.GitHub, zh api.ZenHub) *Syncer {
	return &Syncer{
		queue:    q,
		db:       db,
		github:   gh,
		zenhub:   zh,
		cooldown: DefaultCooldown,
		now:      time.Now,
		log:      slog.Default(),
	}
}

// SetCooldown sets the pause applied after failures and between rate-limit retries.
func (s *Syncer) SetCooldown(d time.Duration) {
	if d <= 0 {
		d = time.Millisecond
	}
	s.cooldown = d
}

// Queue returns the work queue the syncer drains.
func (s *Syncer) Queue() *queue.Queue {
	return s.queue
}

// DB returns the store the syncer writes to.
func (s *Syncer) DB() store.Database {
	return s.db
}

// changeTracker remembers whether any repository-level resource changed
// during one pass. Once a change is seen, further comparisons are skipped.
type changeTracker struct {
	changed bool
}

func (s *Syncer) recordChange(repoID int64) error {
	event := models.RepositoryChangeEvent{
		RepoID: repoID,
		Time:   s.now().UnixMilli(),
		UUID:   uuid.NewString(),
	}
	if err := s.db.PersistChangeEvent(event); err != nil {
		return fmt.Errorf("failed to record change event for repository %d: %w", repoID, err)
	}
	s.log.Debug("repository changed", "repo_id", repoID, "uuid", event.UUID)
	return nil
}

// safely runs fn, converting a panic into an error.
func safely(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	return fn()
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ParseRepositoryString parses a repository string in the format "owner/name"
func ParseRepositoryString(repoStr string) (string, string, error) {
	parts := strings.Split(repoStr, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository format, expected 'owner/name', got '%s'", repoStr)
	}
	return parts[0], parts[1], nil
}
