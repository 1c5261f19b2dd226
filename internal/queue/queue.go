package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/wesm/zenhub-mirror/internal/models"
)

// pollInterval bounds every wait so that a missed wakeup costs at most one interval.
const pollInterval = 20 * time.Millisecond

// Filter restricts which repositories and issues are ever scanned.
type Filter interface {
	ProcessRepo(owner models.Owner, repoName string) bool
	ProcessIssue(owner models.Owner, repoName string, issue int) bool
}

// PermissiveFilter accepts every repository and issue.
type PermissiveFilter struct{}

func (PermissiveFilter) ProcessRepo(models.Owner, string) bool       { return true }
func (PermissiveFilter) ProcessIssue(models.Owner, string, int) bool { return true }

// RepositoryTask asks a worker to scan every resource of a repository.
type RepositoryTask struct {
	Owner   models.Owner
	Name    string
	ID      int64
	Repo    *github.Repository
	hashKey string
}

// Key is the identity of the task, used for deduplication.
func (t RepositoryTask) Key() string {
	if t.hashKey != "" {
		return t.hashKey
	}
	return fmt.Sprintf("%s-%s-%d", t.Owner, t.Name, t.ID)
}

// NewRepositoryTask builds a task and fixes its identity key.
func NewRepositoryTask(owner models.Owner, repo *github.Repository, name string, id int64) RepositoryTask {
	t := RepositoryTask{Owner: owner, Name: name, ID: id, Repo: repo}
	t.hashKey = t.Key()
	return t
}

// IssueTask asks a worker to fetch the data and events of one issue.
type IssueTask struct {
	Owner models.Owner
	Repo  *github.Repository
	Issue *github.Issue
}

// Key is the identity of the task, used for deduplication.
func (t IssueTask) Key() string {
	return fmt.Sprintf("%s-%s-%d", t.Owner, t.Repo.GetName(), t.Issue.GetNumber())
}

// Queue holds pending repository and issue tasks. Each identity key is
// present at most once while pending.
type Queue struct {
	mu           sync.Mutex
	repositories []RepositoryTask
	issues       []IssueTask
	pending      map[string]struct{}
	wake         chan struct{}
	filter       Filter
	log          *slog.Logger
}

// New returns an empty queue. A nil filter accepts everything.
func New(filter Filter) *Queue {
	if filter == nil {
		filter = PermissiveFilter{}
	}
	return &Queue{
		pending: make(map[string]struct{}),
		wake:    make(chan struct{}, 1),
		filter:  filter,
		log:     slog.Default(),
	}
}

// Filter returns the filter the queue was created with.
func (q *Queue) Filter() Filter {
	return q.filter
}

// AddRepository enqueues a repository scan unless the filter rejects it or
// the same task is already pending.
func (q *Queue) AddRepository(owner models.Owner, repo *github.Repository, name string, id int64) {
	if !q.filter.ProcessRepo(owner, name) {
		return
	}
	if q.addRepository(NewRepositoryTask(owner, repo, name, id)) {
		q.log.Debug("adding repository", "owner", owner.Name, "repo", name)
	}
}

// AddRepositoryFromRetry re-submits a task that already passed the filter.
func (q *Queue) AddRepositoryFromRetry(task RepositoryTask) {
	if q.addRepository(task) {
		q.log.Debug("adding repository (from retry)", "owner", task.Owner.Name, "repo", task.Name)
	}
}

func (q *Queue) addRepository(task RepositoryTask) bool {
	key := task.Key()
	q.mu.Lock()
	if _, ok := q.pending[key]; ok {
		q.mu.Unlock()
		return false
	}
	q.pending[key] = struct{}{}
	q.repositories = append(q.repositories, task)
	q.mu.Unlock()
	q.notify()
	return true
}

// AddIssue enqueues an issue scan unless the filter rejects it or the same
// task is already pending.
func (q *Queue) AddIssue(owner models.Owner, repo *github.Repository, issue *github.Issue) {
	if !q.filter.ProcessIssue(owner, repo.GetName(), issue.GetNumber()) {
		return
	}
	if q.addIssue(IssueTask{Owner: owner, Repo: repo, Issue: issue}) {
		q.log.Debug("adding issue", "repo", repo.GetName(), "issue", issue.GetNumber())
	}
}

// AddIssueFromRetry re-submits a task that already passed the filter.
func (q *Queue) AddIssueFromRetry(task IssueTask) {
	if q.addIssue(task) {
		q.log.Debug("adding issue (from retry)", "repo", task.Repo.GetName(), "issue", task.Issue.GetNumber())
	}
}

func (q *Queue) addIssue(task IssueTask) bool {
	key := task.Key()
	q.mu.Lock()
	if _, ok := q.pending[key]; ok {
		q.mu.Unlock()
		return false
	}
	q.pending[key] = struct{}{}
	q.issues = append(q.issues, task)
	q.mu.Unlock()
	q.notify()
	return true
}

func (q *Queue) notify() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// PollRepository removes and returns the oldest pending repository task.
func (q *Queue) PollRepository() (RepositoryTask, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.repositories) == 0 {
		return RepositoryTask{}, false
	}
	task := q.repositories[0]
	q.repositories[0] = RepositoryTask{}
	q.repositories = q.repositories[1:]
	delete(q.pending, task.Key())
	return task, true
}

// PollIssue removes and returns the oldest pending issue task.
func (q *Queue) PollIssue() (IssueTask, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.issues) == 0 {
		return IssueTask{}, false
	}
	task := q.issues[0]
	q.issues[0] = IssueTask{}
	q.issues = q.issues[1:]
	delete(q.pending, task.Key())
	return task, true
}

// AvailableWork is the number of pending tasks of both kinds.
func (q *Queue) AvailableWork() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.repositories) + len(q.issues)
}

// WaitForAvailableWork blocks until at least one task is pending or ctx is done.
func (q *Queue) WaitForAvailableWork(ctx context.Context) error {
	timer := time.NewTimer(pollInterval)
	defer timer.Stop()
	for {
		if q.AvailableWork() > 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-q.wake:
		case <-timer.C:
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(pollInterval)
	}
}
