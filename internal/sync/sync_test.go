package sync

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/wesm/zenhub-mirror/internal/api"
	"github.com/wesm/zenhub-mirror/internal/db"
	"github.com/wesm/zenhub-mirror/internal/models"
	"github.com/wesm/zenhub-mirror/internal/queue"
	"github.com/wesm/zenhub-mirror/internal/store"
	"go.uber.org/mock/gomock"
)

type fixture struct {
	queue  *queue.Queue
	store  store.Database
	github *api.MockGitHub
	zenhub *api.MockZenHub
	syncer *Syncer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	dir := t.TempDir()

	events, err := db.New(filepath.Join(dir, "events.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { events.Close() })
	if err := events.Initialize(); err != nil {
		t.Fatal(err)
	}
	js, err := store.NewJSONStore(filepath.Join(dir, "db"), events)
	if err != nil {
		t.Fatal(err)
	}
	cache, err := store.NewCache(js, 100)
	if err != nil {
		t.Fatal(err)
	}

	f := &fixture{
		queue:  queue.New(nil),
		store:  cache,
		github: api.NewMockGitHub(ctrl),
		zenhub: api.NewMockZenHub(ctrl),
	}
	f.syncer = New(f.queue, f.store, f.github, f.zenhub)
	f.syncer.SetCooldown(time.Millisecond)
	return f
}

func testRepo(id int64, name, owner string) *github.Repository {
	return &github.Repository{
		ID:    github.Int64(id),
		Name:  github.String(name),
		Owner: &github.User{Login: github.String(owner)},
	}
}

var errRateLimited = &api.RateLimitError{StatusCode: http.StatusForbidden, Message: "403 for URL"}

func TestProcessRepository_EndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := models.Org("acme")
	repo := testRepo(42, "widgets", "acme")

	f.zenhub.EXPECT().GetEpics(gomock.Any(), int64(42)).Return(&models.Epics{
		EpicIssues: []models.EpicIssue{{IssueNumber: 7, RepoID: 42}},
	}, nil)
	f.zenhub.EXPECT().GetEpic(gomock.Any(), int64(42), 7).Return(&models.Epic{
		Issues: []models.EpicChild{{IssueNumber: 8, RepoID: 42}},
	}, nil)
	f.zenhub.EXPECT().GetBoard(gomock.Any(), int64(42)).Return(&models.Board{
		Pipelines: []models.Pipeline{{ID: "p1", Name: "Backlog"}},
	}, nil)
	f.zenhub.EXPECT().GetDependencies(gomock.Any(), int64(42)).Return(nil, nil)
	f.github.EXPECT().ListIssues(gomock.Any(), "acme", "widgets").Return([]*github.Issue{
		{Number: github.Int(7)},
		{Number: github.Int(9), PullRequestLinks: &github.PullRequestLinks{URL: github.String("x")}},
	}, nil)
	f.zenhub.EXPECT().GetIssueData(gomock.Any(), int64(42), 7).Return(&models.IssueData{
		Estimate: &models.Estimate{Value: 3},
	}, nil)
	f.zenhub.EXPECT().GetIssueEvents(gomock.Any(), int64(42), 7).Return([]models.IssueEvent{
		{Type: "estimateIssue", ToEstimate: &models.Estimate{Value: 3}},
	}, nil)

	f.queue.AddRepository(owner, repo, "widgets", 42)
	task, ok := f.queue.PollRepository()
	if !ok {
		t.Fatal("repository task not queued")
	}
	if err := f.syncer.ProcessRepository(ctx, task); err != nil {
		t.Fatal(err)
	}

	events, err := f.store.RecentChangeEvents(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].RepoID != 42 || events[0].UUID == "" {
		t.Fatalf("want exactly one change event for repo 42 got %+v", events)
	}
	if _, err := f.store.GetEpic(42, 7); err != nil {
		t.Errorf("epic 7 not persisted: %v", err)
	}
	if _, err := f.store.GetDependencies(42); !store.IsNotFound(err) {
		t.Errorf("absent dependencies must not be persisted, got %v", err)
	}

	if got := f.queue.AvailableWork(); got != 1 {
		t.Fatalf("want only issue 7 queued (pull request skipped) got %d", got)
	}
	issueTask, ok := f.queue.PollIssue()
	if !ok || issueTask.Issue.GetNumber() != 7 {
		t.Fatalf("want issue 7 got %+v", issueTask)
	}
	if err := f.syncer.ProcessIssue(ctx, issueTask); err != nil {
		t.Fatal(err)
	}

	data, err := f.store.GetIssueData(42, 7)
	if err != nil || data.Estimate == nil || data.Estimate.Value != 3 {
		t.Errorf("issue data for (42,7) want estimate 3 got %+v err %v", data, err)
	}
	evs, err := f.store.GetIssueEvents(42, 7)
	if err != nil || len(evs) != 1 {
		t.Errorf("issue events for (42,7) want 1 got %+v err %v", evs, err)
	}
}

// loadCounter counts repository-level loads that reach the wrapped store.
type loadCounter struct {
	store.Database
	epics, board, deps int
}

func (c *loadCounter) GetEpics(repoID int64) (*models.Epics, error) {
	c.epics++
	return c.Database.GetEpics(repoID)
}

func (c *loadCounter) GetBoard(repoID int64) (*models.Board, error) {
	c.board++
	return c.Database.GetBoard(repoID)
}

func (c *loadCounter) GetDependencies(repoID int64) (*models.Dependencies, error) {
	c.deps++
	return c.Database.GetDependencies(repoID)
}

func TestProcessRepository_ChangeSkipsLaterComparisons(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	counter := &loadCounter{Database: f.store}
	syncer := New(f.queue, counter, f.github, f.zenhub)
	syncer.SetCooldown(time.Millisecond)

	board := &models.Board{Pipelines: []models.Pipeline{{ID: "p1", Name: "Backlog"}}}
	deps := &models.Dependencies{Dependencies: []models.Dependency{{
		Blocking: models.IssueRef{IssueNumber: 1, RepoID: 42},
		Blocked:  models.IssueRef{IssueNumber: 2, RepoID: 42},
	}}}
	f.zenhub.EXPECT().GetEpics(gomock.Any(), int64(42)).Return(&models.Epics{}, nil)
	f.zenhub.EXPECT().GetBoard(gomock.Any(), int64(42)).Return(board, nil)
	f.zenhub.EXPECT().GetDependencies(gomock.Any(), int64(42)).Return(deps, nil)
	f.github.EXPECT().ListIssues(gomock.Any(), "acme", "widgets").Return(nil, nil)

	f.queue.AddRepository(models.Org("acme"), testRepo(42, "widgets", "acme"), "widgets", 42)
	task, ok := f.queue.PollRepository()
	if !ok {
		t.Fatal("repository task not queued")
	}
	if err := syncer.ProcessRepository(ctx, task); err != nil {
		t.Fatal(err)
	}

	if counter.epics != 1 {
		t.Errorf("epics must be compared once, got %d loads", counter.epics)
	}
	if counter.board != 0 || counter.deps != 0 {
		t.Errorf("comparisons after a change must be skipped, got board=%d deps=%d loads", counter.board, counter.deps)
	}
	if got, err := f.store.GetBoard(42); err != nil || len(got.Pipelines) != 1 {
		t.Errorf("board must still be persisted, got %+v err %v", got, err)
	}
	if got, err := f.store.GetDependencies(42); err != nil || len(got.Dependencies) != 1 {
		t.Errorf("dependencies must still be persisted, got %+v err %v", got, err)
	}
	events, err := f.store.RecentChangeEvents(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].RepoID != 42 {
		t.Errorf("want exactly one change event for repo 42 got %+v", events)
	}
}

func TestProcessRepository_UnchangedRecordsNoEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	board := &models.Board{Pipelines: []models.Pipeline{{ID: "p", Name: "Done"}}}
	epics := &models.Epics{}
	deps := &models.Dependencies{}

	if err := f.store.PersistBoard(board, 5); err != nil {
		t.Fatal(err)
	}
	if err := f.store.PersistEpics(epics, 5); err != nil {
		t.Fatal(err)
	}
	if err := f.store.PersistDependencies(deps, 5); err != nil {
		t.Fatal(err)
	}

	f.zenhub.EXPECT().GetEpics(gomock.Any(), int64(5)).Return(&models.Epics{}, nil)
	f.zenhub.EXPECT().GetBoard(gomock.Any(), int64(5)).Return(&models.Board{Pipelines: []models.Pipeline{{Name: "Done", ID: "p"}}}, nil)
	f.zenhub.EXPECT().GetDependencies(gomock.Any(), int64(5)).Return(&models.Dependencies{}, nil)
	f.github.EXPECT().ListIssues(gomock.Any(), "bob", "tools").Return(nil, nil)

	task := queue.NewRepositoryTask(models.User("bob"), testRepo(5, "tools", "bob"), "tools", 5)
	if err := f.syncer.ProcessRepository(ctx, task); err != nil {
		t.Fatal(err)
	}
	events, _ := f.store.RecentChangeEvents(0)
	if len(events) != 0 {
		t.Errorf("unchanged resources must not record events, got %+v", events)
	}
}

func TestProcessRepository_RateLimitRecoversWithinNestedRetry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	gomock.InOrder(
		f.zenhub.EXPECT().GetEpics(gomock.Any(), int64(42)).Return(nil, errRateLimited),
		f.zenhub.EXPECT().GetEpics(gomock.Any(), int64(42)).Return(nil, errRateLimited),
		f.zenhub.EXPECT().GetEpics(gomock.Any(), int64(42)).Return(&models.Epics{}, nil),
	)
	f.zenhub.EXPECT().GetBoard(gomock.Any(), int64(42)).Return(nil, nil)
	f.zenhub.EXPECT().GetDependencies(gomock.Any(), int64(42)).Return(nil, nil)
	f.github.EXPECT().ListIssues(gomock.Any(), "acme", "widgets").Return(nil, nil)

	task := queue.NewRepositoryTask(models.Org("acme"), testRepo(42, "widgets", "acme"), "widgets", 42)
	if err := f.syncer.ProcessRepository(ctx, task); err != nil {
		t.Fatalf("third attempt succeeds, want nil error got %v", err)
	}
	if f.queue.AvailableWork() != 0 {
		t.Error("successful task must not be requeued")
	}
}

func TestProcessRepository_EpicNonRateLimitAborts(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("boom")

	f.zenhub.EXPECT().GetEpics(gomock.Any(), int64(1)).Return(&models.Epics{
		EpicIssues: []models.EpicIssue{{IssueNumber: 2}, {IssueNumber: 3}},
	}, nil)
	f.zenhub.EXPECT().GetEpic(gomock.Any(), int64(1), 2).Return(nil, boom).Times(1)

	task := queue.NewRepositoryTask(models.Org("acme"), testRepo(1, "r", "acme"), "r", 1)
	err := f.syncer.ProcessRepository(context.Background(), task)
	if !errors.Is(err, boom) {
		t.Fatalf("want boom got %v", err)
	}
}

func TestRetryOnRateLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	calls := 0
	err := f.syncer.RetryOnRateLimit(ctx, "always-limited", func(context.Context) error {
		calls++
		return errRateLimited
	})
	if !api.IsRateLimit(err) || calls != 3 {
		t.Errorf("want rate limit after 3 calls, got %v after %d", err, calls)
	}

	calls = 0
	boom := errors.New("boom")
	err = f.syncer.RetryOnRateLimit(ctx, "fails", func(context.Context) error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) || calls != 1 {
		t.Errorf("non rate-limit error must not be retried, got %v after %d", err, calls)
	}
}

func TestRunWorker_NoRetryCeiling(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	const failures = 7
	done := make(chan struct{})
	f.zenhub.EXPECT().GetIssueData(gomock.Any(), int64(3), 4).Return(nil, errors.New("upstream down")).Times(failures)
	f.zenhub.EXPECT().GetIssueData(gomock.Any(), int64(3), 4).Return(&models.IssueData{IsEpic: true}, nil)
	f.zenhub.EXPECT().GetIssueEvents(gomock.Any(), int64(3), 4).DoAndReturn(
		func(context.Context, int64, int) ([]models.IssueEvent, error) {
			close(done)
			return []models.IssueEvent{}, nil
		})

	f.queue.AddIssue(models.Org("acme"), testRepo(3, "r", "acme"), &github.Issue{Number: github.Int(4)})

	workerDone := make(chan error, 1)
	go func() { workerDone <- f.syncer.RunWorker(ctx, 1) }()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("task was dropped instead of retried until success")
	}
	cancel()
	if err := <-workerDone; err != nil {
		t.Errorf("worker must stop cleanly, got %v", err)
	}

	data, err := f.store.GetIssueData(3, 4)
	if err != nil || !data.IsEpic {
		t.Errorf("issue data not persisted after retries: %+v %v", data, err)
	}
}

func TestRunWorker_RecoversPanic(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	gomock.InOrder(
		f.zenhub.EXPECT().GetIssueData(gomock.Any(), int64(3), 4).DoAndReturn(
			func(context.Context, int64, int) (*models.IssueData, error) { panic("bad payload") }),
		f.zenhub.EXPECT().GetIssueData(gomock.Any(), int64(3), 4).Return(nil, nil),
	)
	f.zenhub.EXPECT().GetIssueEvents(gomock.Any(), int64(3), 4).DoAndReturn(
		func(context.Context, int64, int) ([]models.IssueEvent, error) {
			close(done)
			return nil, nil
		})

	f.queue.AddIssue(models.Org("acme"), testRepo(3, "r", "acme"), &github.Issue{Number: github.Int(4)})
	go f.syncer.RunWorker(ctx, 1)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not survive a panicking task")
	}
}

func TestParseRepositoryString(t *testing.T) {
	owner, name, err := ParseRepositoryString("acme/widgets")
	if err != nil || owner != "acme" || name != "widgets" {
		t.Errorf("got %q %q %v", owner, name, err)
	}
	for _, bad := range []string{"acme", "acme/", "/widgets", "a/b/c"} {
		if _, _, err := ParseRepositoryString(bad); err == nil {
			t.Errorf("want error for %q", bad)
		}
	}
}
