package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/wesm/zenhub-mirror/internal/api"
	"github.com/wesm/zenhub-mirror/internal/diff"
	"github.com/wesm/zenhub-mirror/internal/models"
	"github.com/wesm/zenhub-mirror/internal/queue"
	"github.com/wesm/zenhub-mirror/internal/store"
)

// RunWorker drains the queue until ctx is done, preferring repository tasks
// over issue tasks. A failed task is logged, the worker pauses for the
// cooldown, and the task is put back on the queue. There is no retry limit:
// a task stays in the system until it succeeds or the process exits.
func (s *Syncer) RunWorker(ctx context.Context, id int) error {
	log := s.log.With("worker", id)
	log.Debug("worker started")

	for {
		if err := s.queue.WaitForAvailableWork(ctx); err != nil {
			log.Debug("worker stopped")
			return nil
		}

		if task, ok := s.queue.PollRepository(); ok {
			err := safely(func() error { return s.ProcessRepository(ctx, task) })
			if err != nil {
				s.logFailure(log, err, "repository", task.Owner.Name+"/"+task.Name)
				_ = sleep(ctx, s.cooldown)
				s.queue.AddRepositoryFromRetry(task)
			}
			continue
		}

		if task, ok := s.queue.PollIssue(); ok {
			err := safely(func() error { return s.ProcessIssue(ctx, task) })
			if err != nil {
				s.logFailure(log, err, "issue", task.Repo.GetName()+"/"+strconv.Itoa(task.Issue.GetNumber()))
				_ = sleep(ctx, s.cooldown)
				s.queue.AddIssueFromRetry(task)
			}
		}
	}
}

func (s *Syncer) logFailure(log *slog.Logger, err error, kind, name string) {
	if api.IsRateLimit(err) {
		log.Error("zenhub rate limit hit", "kind", kind, "target", name, "err", err,
			"queued", s.queue.AvailableWork(), "retry_in", s.cooldown)
		return
	}
	log.Error("task failed", "kind", kind, "target", name, "err", err,
		"queued", s.queue.AvailableWork(), "retry_in", s.cooldown)
}

// ProcessRepository fetches and persists the epics (with every epic they
// list), board and dependencies of a repository, records a change event if
// any of them differ from the stored copy, and queues an issue task for
// every issue that is not a pull request.
func (s *Syncer) ProcessRepository(ctx context.Context, task queue.RepositoryTask) error {
	repoID := task.ID
	filter := s.queue.Filter()
	s.log.Debug("processing repository", "owner", task.Owner.String(), "repo", task.Name, "repo_id", repoID)

	tracker := &changeTracker{}

	epics, err := s.syncEpics(ctx, repoID, tracker)
	if err != nil {
		return err
	}
	if epics != nil {
		for _, e := range epics.EpicIssues {
			if !filter.ProcessIssue(task.Owner, task.Name, e.IssueNumber) {
				continue
			}
			if err := s.syncEpic(ctx, repoID, e.IssueNumber); err != nil {
				return err
			}
		}
	}
	if err := s.syncBoard(ctx, repoID, tracker); err != nil {
		return err
	}
	if err := s.syncDependencies(ctx, repoID, tracker); err != nil {
		return err
	}
	if tracker.changed {
		if err := s.recordChange(repoID); err != nil {
			return err
		}
	}

	repo := task.Repo
	if repo == nil {
		repo, err = s.github.GetRepository(ctx, task.Owner.Name, task.Name)
		if err != nil {
			return err
		}
	}
	owner := task.Owner.Name
	if login := repo.GetOwner().GetLogin(); login != "" {
		owner = login
	}

	issues, err := s.github.ListIssues(ctx, owner, task.Name)
	if err != nil {
		return err
	}
	for _, issue := range issues {
		if issue.IsPullRequest() {
			continue
		}
		s.queue.AddIssue(task.Owner, repo, issue)
	}
	return nil
}

// ProcessIssue fetches and persists the ZenHub data and events of one issue.
func (s *Syncer) ProcessIssue(ctx context.Context, task queue.IssueTask) error {
	repoID := task.Repo.GetID()
	number := task.Issue.GetNumber()
	s.log.Debug("processing issue", "repo", task.Repo.GetName(), "issue", number)

	data, err := s.zenhub.GetIssueData(ctx, repoID, number)
	if err != nil {
		return fmt.Errorf("failed to fetch issue data %d#%d: %w", repoID, number, err)
	}
	if data != nil {
		if err := s.db.PersistIssueData(data, repoID, number); err != nil {
			return err
		}
	}

	events, err := s.zenhub.GetIssueEvents(ctx, repoID, number)
	if err != nil {
		return fmt.Errorf("failed to fetch issue events %d#%d: %w", repoID, number, err)
	}
	if events != nil {
		if err := s.db.PersistIssueEvents(events, repoID, number); err != nil {
			return err
		}
	}
	return nil
}

// ScanRepositoryResources refreshes only the board, dependencies and epic
// list of a repository and records a change event when any of them moved.
func (s *Syncer) ScanRepositoryResources(ctx context.Context, repoID int64) error {
	tracker := &changeTracker{}
	if err := s.syncBoard(ctx, repoID, tracker); err != nil {
		return err
	}
	if err := s.syncDependencies(ctx, repoID, tracker); err != nil {
		return err
	}
	if _, err := s.syncEpics(ctx, repoID, tracker); err != nil {
		return err
	}
	if tracker.changed {
		return s.recordChange(repoID)
	}
	return nil
}

func (s *Syncer) syncEpics(ctx context.Context, repoID int64, tracker *changeTracker) (*models.Epics, error) {
	return syncResource(ctx, s, tracker, "epics", repoID,
		func(ctx context.Context) (*models.Epics, error) { return s.zenhub.GetEpics(ctx, repoID) },
		func() (*models.Epics, error) { return s.db.GetEpics(repoID) },
		func(v *models.Epics) error { return s.db.PersistEpics(v, repoID) },
	)
}

func (s *Syncer) syncBoard(ctx context.Context, repoID int64, tracker *changeTracker) error {
	_, err := syncResource(ctx, s, tracker, "board", repoID,
		func(ctx context.Context) (*models.Board, error) { return s.zenhub.GetBoard(ctx, repoID) },
		func() (*models.Board, error) { return s.db.GetBoard(repoID) },
		func(v *models.Board) error { return s.db.PersistBoard(v, repoID) },
	)
	return err
}

func (s *Syncer) syncDependencies(ctx context.Context, repoID int64, tracker *changeTracker) error {
	_, err := syncResource(ctx, s, tracker, "dependencies", repoID,
		func(ctx context.Context) (*models.Dependencies, error) { return s.zenhub.GetDependencies(ctx, repoID) },
		func() (*models.Dependencies, error) { return s.db.GetDependencies(repoID) },
		func(v *models.Dependencies) error { return s.db.PersistDependencies(v, repoID) },
	)
	return err
}

func (s *Syncer) syncEpic(ctx context.Context, repoID int64, number int) error {
	label := fmt.Sprintf("epic->issues->%d", number)
	return s.RetryOnRateLimit(ctx, label, func(ctx context.Context) error {
		epic, err := s.zenhub.GetEpic(ctx, repoID, number)
		if err != nil {
			return fmt.Errorf("failed to fetch epic %d#%d: %w", repoID, number, err)
		}
		if epic == nil {
			return nil
		}
		return s.db.PersistEpic(epic, repoID, number)
	})
}

// syncResource fetches one repository-level resource with rate-limit
// retries, compares it with the stored copy unless a change was already
// seen, and persists it. An absent upstream result is skipped.
func syncResource[T any](
	ctx context.Context,
	s *Syncer,
	tracker *changeTracker,
	kind string,
	repoID int64,
	fetch func(context.Context) (*T, error),
	load func() (*T, error),
	persist func(*T) error,
) (*T, error) {
	var fresh *T
	err := s.RetryOnRateLimit(ctx, kind+"->"+strconv.FormatInt(repoID, 10), func(ctx context.Context) error {
		var err error
		fresh, err = fetch(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s of repository %d: %w", kind, repoID, err)
	}
	if fresh == nil {
		return nil, nil
	}

	if !tracker.changed {
		old, err := load()
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		if diff.Changed(old, fresh) {
			tracker.changed = true
		}
	}

	if err := persist(fresh); err != nil {
		return nil, err
	}
	return fresh, nil
}
