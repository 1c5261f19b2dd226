// Package mirror assembles a running ZenHub mirror from its configuration:
// upstream clients, the locked store, the work queue, workers, scheduler
// and the optional HTTP server.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/wesm/zenhub-mirror/config"
	"github.com/wesm/zenhub-mirror/internal/api"
	"github.com/wesm/zenhub-mirror/internal/db"
	"github.com/wesm/zenhub-mirror/internal/models"
	"github.com/wesm/zenhub-mirror/internal/queue"
	"github.com/wesm/zenhub-mirror/internal/server"
	"github.com/wesm/zenhub-mirror/internal/store"
	"github.com/wesm/zenhub-mirror/internal/sync"
)

// DefaultResolveRetryInterval is the pause between attempts to resolve a
// configured owner or repository after a transient failure.
const DefaultResolveRetryInterval = 60 * time.Second

// Builder collects the settings of a mirror. Setters return the builder so
// calls can be chained; Build validates everything at once.
type Builder struct {
	githubServer   string
	githubCreds    api.GitHubCredentials
	zenhubServer   string
	zenhubKey      string
	issueLister    string
	orgs           []string
	userRepos      []string
	individual     []string
	dbDir          string
	eventsDBPath   string
	filter         queue.Filter
	workers        int
	httpAddr       string
	presharedKey   string
	github         api.GitHub
	zenhub         api.ZenHub
	resolveRetry   time.Duration
	cooldown       time.Duration
	schedulerEvery time.Duration
}

// NewBuilder returns a builder with the default servers and two workers.
func NewBuilder() *Builder {
	return &Builder{
		githubServer:   config.DefaultGitHubServer,
		zenhubServer:   config.DefaultZenHubServer,
		issueLister:    config.IssueListerREST,
		workers:        config.DefaultWorkers,
		resolveRetry:   DefaultResolveRetryInterval,
		cooldown:       sync.DefaultCooldown,
		schedulerEvery: sync.DefaultTickInterval,
	}
}

// FromConfig returns a builder populated from cfg. An http_addr of "-"
// disables the HTTP server.
func FromConfig(cfg *config.Config) *Builder {
	addr := cfg.HTTPAddr
	if addr == config.HTTPAddrDisabled {
		addr = ""
	}
	return NewBuilder().
		GitHubServer(cfg.GitHubServer).
		GitHubToken(cfg.GitHubToken).
		GitHubUser(cfg.GitHubUsername).
		GitHubPassword(cfg.GitHubPassword).
		ZenHubServer(cfg.ZenHubServer).
		ZenHubKey(cfg.ZenHubAPIKey).
		IssueLister(cfg.IssueLister).
		Orgs(cfg.OrgList...).
		UserRepos(cfg.UserRepoList...).
		IndividualRepos(cfg.IndividualRepoList...).
		DBDir(cfg.DBPath).
		EventsDBPath(cfg.EventsDBPath).
		Workers(cfg.Workers).
		HTTPAddr(addr).
		PresharedKey(cfg.PresharedKey)
}

func (b *Builder) GitHubServer(s string) *Builder   { b.githubServer = s; return b }
func (b *Builder) GitHubToken(s string) *Builder    { b.githubCreds.Token = s; return b }
func (b *Builder) GitHubUser(s string) *Builder     { b.githubCreds.Username = s; return b }
func (b *Builder) GitHubPassword(s string) *Builder { b.githubCreds.Password = s; return b }
func (b *Builder) ZenHubServer(s string) *Builder   { b.zenhubServer = s; return b }
func (b *Builder) ZenHubKey(s string) *Builder      { b.zenhubKey = s; return b }

// IssueLister selects "rest" or "graphql" issue enumeration.
func (b *Builder) IssueLister(kind string) *Builder { b.issueLister = kind; return b }

// Orgs adds organizations whose every repository is mirrored.
func (b *Builder) Orgs(names ...string) *Builder { b.orgs = append(b.orgs, names...); return b }

// UserRepos adds users whose every repository is mirrored.
func (b *Builder) UserRepos(names ...string) *Builder {
	b.userRepos = append(b.userRepos, names...)
	return b
}

// IndividualRepos adds "owner/name" repositories.
func (b *Builder) IndividualRepos(repos ...string) *Builder {
	b.individual = append(b.individual, repos...)
	return b
}

// DBDir sets the JSON store root.
func (b *Builder) DBDir(dir string) *Builder { b.dbDir = dir; return b }

// EventsDBPath sets the SQLite change event log, default <db dir>.events.db.
func (b *Builder) EventsDBPath(path string) *Builder { b.eventsDBPath = path; return b }

func (b *Builder) Filter(f queue.Filter) *Builder { b.filter = f; return b }
func (b *Builder) Workers(n int) *Builder         { b.workers = n; return b }

// HTTPAddr enables the HTTP server on addr. Empty disables it.
func (b *Builder) HTTPAddr(addr string) *Builder    { b.httpAddr = addr; return b }
func (b *Builder) PresharedKey(key string) *Builder { b.presharedKey = key; return b }

// WithGitHub replaces the GitHub client built from the server and credentials.
func (b *Builder) WithGitHub(gh api.GitHub) *Builder { b.github = gh; return b }

// WithZenHub replaces the ZenHub client built from the server and key.
func (b *Builder) WithZenHub(zh api.ZenHub) *Builder { b.zenhub = zh; return b }

func (b *Builder) ResolveRetryInterval(d time.Duration) *Builder { b.resolveRetry = d; return b }
func (b *Builder) Cooldown(d time.Duration) *Builder             { b.cooldown = d; return b }
func (b *Builder) SchedulerInterval(d time.Duration) *Builder    { b.schedulerEvery = d; return b }

func (b *Builder) validate() error {
	var errs []error
	if b.dbDir == "" {
		errs = append(errs, errors.New("database directory is required"))
	}
	if b.zenhub == nil && b.zenhubKey == "" {
		errs = append(errs, errors.New("zenhub api key is required"))
	}
	if b.workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be positive, got %d", b.workers))
	}
	if len(b.orgs)+len(b.userRepos)+len(b.individual) == 0 {
		errs = append(errs, errors.New("no organizations, users or repositories selected"))
	}
	if err := config.ValidateSelection(b.orgs, b.userRepos, b.individual); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (b *Builder) clients() (api.GitHub, api.ZenHub, error) {
	gh, zh := b.github, b.zenhub
	if gh == nil {
		client, err := api.NewGitHubClient(b.githubServer, b.githubCreds)
		if err != nil {
			return nil, nil, err
		}
		switch b.issueLister {
		case config.IssueListerGraphQL:
			client.SetIssueLister(api.NewGraphQLIssueLister(b.githubServer, b.githubCreds))
		case config.IssueListerREST, "":
		default:
			return nil, nil, fmt.Errorf("unknown issue lister %q", b.issueLister)
		}
		gh = client
	}
	if zh == nil {
		zh = api.NewZenHubClient(b.zenhubServer, b.zenhubKey)
	}
	return gh, zh, nil
}

// Build validates the settings, locks and opens the store, invalidates it
// if the selection changed since the last run, and resolves every
// configured owner and repository. Unknown owners or repositories are
// fatal; transient upstream failures are retried until ctx is done.
func (b *Builder) Build(ctx context.Context) (inst *Instance, err error) {
	if err := b.validate(); err != nil {
		return nil, fmt.Errorf("invalid mirror configuration: %w", err)
	}
	gh, zh, err := b.clients()
	if err != nil {
		return nil, err
	}

	lock, err := store.LockDir(b.dbDir)
	if err != nil {
		return nil, err
	}
	var events *db.DB
	defer func() {
		if err != nil {
			if events != nil {
				events.Close()
			}
			lock.Unlock()
		}
	}()

	eventsPath := b.eventsDBPath
	if eventsPath == "" {
		eventsPath = b.dbDir + ".events.db"
	}
	events, err = db.New(eventsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open change event log: %w", err)
	}
	if err = events.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize change event log: %w", err)
	}

	js, err := store.NewJSONStore(b.dbDir, events)
	if err != nil {
		return nil, err
	}
	cache, err := store.NewCache(js, 0)
	if err != nil {
		return nil, err
	}
	if err = cache.InvalidateIfConfigurationChanged(b.orgs, b.userRepos, b.individual); err != nil {
		return nil, err
	}

	sel, err := b.resolve(ctx, gh)
	if err != nil {
		return nil, err
	}

	q := queue.New(b.filter)
	syncer := sync.New(q, cache, gh, zh)
	syncer.SetCooldown(b.cooldown)
	scheduler := sync.NewScheduler(syncer, sel, store.Fingerprint(b.orgs, b.userRepos, b.individual))
	scheduler.SetInterval(b.schedulerEvery)

	inst = &Instance{
		syncer:    syncer,
		scheduler: scheduler,
		selection: sel,
		workers:   b.workers,
		db:        cache,
		events:    events,
		lock:      lock,
		log:       slog.Default(),
	}
	if b.httpAddr != "" {
		inst.server = server.NewServer(b.httpAddr, cache, b.presharedKey)
	}
	return inst, nil
}

func (b *Builder) resolve(ctx context.Context, gh api.GitHub) (sync.Selection, error) {
	var sel sync.Selection

	owners := make([]models.Owner, 0, len(b.orgs)+len(b.userRepos))
	for _, name := range b.orgs {
		owners = append(owners, models.Org(name))
	}
	for _, name := range b.userRepos {
		owners = append(owners, models.User(name))
	}
	for _, owner := range owners {
		err := b.retryTransient(ctx, owner.String(), func() error {
			return gh.ResolveOwner(ctx, owner)
		})
		if err != nil {
			return sel, fmt.Errorf("failed to resolve %s: %w", owner, err)
		}
		sel.Owners = append(sel.Owners, owner)
	}

	for _, full := range b.individual {
		ownerName, repoName, err := sync.ParseRepositoryString(full)
		if err != nil {
			return sel, err
		}
		var task queue.RepositoryTask
		err = b.retryTransient(ctx, full, func() error {
			repo, err := gh.GetRepository(ctx, ownerName, repoName)
			if err != nil {
				return err
			}
			owner := models.User(repo.GetOwner().GetLogin())
			if repo.GetOwner().GetType() == "Organization" {
				owner = models.Org(repo.GetOwner().GetLogin())
			}
			if owner.Name == "" {
				owner.Name = ownerName
			}
			task = queue.NewRepositoryTask(owner, repo, repo.GetName(), repo.GetID())
			return nil
		})
		if err != nil {
			return sel, fmt.Errorf("failed to resolve repository %s: %w", full, err)
		}
		sel.Repositories = append(sel.Repositories, task)
	}
	return sel, nil
}

// retryTransient runs fn until it succeeds, fails with api.ErrNotFound, or
// ctx is done, pausing resolveRetry between attempts.
func (b *Builder) retryTransient(ctx context.Context, label string, fn func() error) error {
	for {
		err := fn()
		if err == nil || errors.Is(err, api.ErrNotFound) {
			return err
		}
		slog.Error("unable to resolve, retrying", "target", label, "err", err, "retry_in", b.resolveRetry)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(b.resolveRetry):
		}
	}
}
