package sync

import (
	"context"
	"math/rand/v2"

	"github.com/wesm/zenhub-mirror/internal/models"
	"github.com/wesm/zenhub-mirror/internal/queue"
)

// Selection is the configured set of repositories to mirror.
type Selection struct {
	// Owners are organizations and users whose every repository is mirrored.
	Owners []models.Owner
	// Repositories are individually named repositories.
	Repositories []queue.RepositoryTask
}

// IncrementalScan refreshes the board, dependencies and epic list of every
// selected repository. Each owner's repositories, and the individual
// repositories as a group, are visited in random order. A failing repository
// is retried a few times after the cooldown, then skipped; errors never
// escape, because the next scan covers the same ground.
func (s *Syncer) IncrementalScan(ctx context.Context, sel Selection) {
	for _, owner := range sel.Owners {
		if ctx.Err() != nil {
			return
		}
		if err := s.scanOwner(ctx, owner); err != nil {
			s.log.Error("resource scan failed", "owner", owner.String(), "err", err)
		}
	}
	if len(sel.Repositories) > 0 {
		s.log.Info("beginning resource scan on individual repositories", "count", len(sel.Repositories))
		s.scanRepositories(ctx, sel.Repositories)
		s.log.Info("resource scan complete on individual repositories")
	}
}

func (s *Syncer) scanOwner(ctx context.Context, owner models.Owner) error {
	s.log.Info("beginning resource scan", "owner", owner.String())

	repos, err := s.github.ListOwnerRepositories(ctx, owner)
	if err != nil {
		return err
	}
	filter := s.queue.Filter()
	tasks := make([]queue.RepositoryTask, 0, len(repos))
	for _, r := range repos {
		if !filter.ProcessRepo(owner, r.GetName()) {
			continue
		}
		tasks = append(tasks, queue.NewRepositoryTask(owner, r, r.GetName(), r.GetID()))
	}
	s.scanRepositories(ctx, tasks)

	s.log.Info("resource scan complete", "owner", owner.String(), "repositories", len(tasks))
	return nil
}

func (s *Syncer) scanRepositories(ctx context.Context, tasks []queue.RepositoryTask) {
	shuffled := make([]queue.RepositoryTask, len(tasks))
	copy(shuffled, tasks)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	for _, t := range shuffled {
		for retries := 0; retries <= incrementalRetries; retries++ {
			err := safely(func() error { return s.ScanRepositoryResources(ctx, t.ID) })
			if err == nil {
				break
			}
			s.log.Error("resource scan of repository failed", "repo", t.Name, "repo_id", t.ID,
				"attempt", retries+1, "err", err, "retry_in", s.cooldown)
			if sleep(ctx, s.cooldown) != nil {
				return
			}
		}
	}
}
