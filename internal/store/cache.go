package store

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/goccy/go-json"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/wesm/zenhub-mirror/internal/models"
)

// DefaultCacheSize is the number of resources the cache keeps when no size is given.
const DefaultCacheSize = 50000

// statsInterval is how many lookups pass between hit-rate log lines.
const statsInterval = 300

// Cache is a read-through, write-through LRU in front of another Database.
// Entries are kept in encoded form so every hit decodes a fresh snapshot.
type Cache struct {
	inner    Database
	entries  *lru.Cache[string, []byte]
	attempts atomic.Int64
	hits     atomic.Int64
	log      *slog.Logger
}

// NewCache wraps inner with an LRU holding up to size resources.
func NewCache(inner Database, size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	entries, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}
	return &Cache{inner: inner, entries: entries, log: slog.Default()}, nil
}

// Stats returns the lookup and hit counters.
func (c *Cache) Stats() (attempts, hits int64) {
	return c.attempts.Load(), c.hits.Load()
}

func (c *Cache) lookup(key string) ([]byte, bool) {
	b, ok := c.entries.Get(key)
	attempts := c.attempts.Add(1)
	hits := c.hits.Load()
	if ok {
		hits = c.hits.Add(1)
	}
	if attempts%statsInterval == 0 {
		c.log.Debug("zh-cache hit rate", "percent", 100*hits/attempts, "attempts", attempts)
	}
	return b, ok
}

func (c *Cache) put(key string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		c.entries.Remove(key)
		return
	}
	c.entries.Add(key, b)
}

// cachedGet serves key from the cache, falling back to load on a miss. Misses
// are not cached.
func cachedGet[T any](c *Cache, key string, load func() (T, error)) (T, error) {
	if b, ok := c.lookup(key); ok {
		var v T
		if err := json.Unmarshal(b, &v); err == nil {
			return v, nil
		}
		c.entries.Remove(key)
	}
	v, err := load()
	if err != nil {
		return v, err
	}
	c.put(key, v)
	return v, nil
}

// GetIssueData serves issue data from the cache or the inner store.
func (c *Cache) GetIssueData(repoID int64, issue int) (*models.IssueData, error) {
	return cachedGet(c, IssueDataKey(repoID, issue), func() (*models.IssueData, error) {
		return c.inner.GetIssueData(repoID, issue)
	})
}

// PersistIssueData writes through to the inner store and caches data.
func (c *Cache) PersistIssueData(data *models.IssueData, repoID int64, issue int) error {
	if err := c.inner.PersistIssueData(data, repoID, issue); err != nil {
		return err
	}
	c.put(IssueDataKey(repoID, issue), data)
	return nil
}

// GetIssueEvents serves issue events from the cache or the inner store.
func (c *Cache) GetIssueEvents(repoID int64, issue int) ([]models.IssueEvent, error) {
	return cachedGet(c, IssueEventsKey(repoID, issue), func() ([]models.IssueEvent, error) {
		return c.inner.GetIssueEvents(repoID, issue)
	})
}

// PersistIssueEvents writes through to the inner store and caches events.
func (c *Cache) PersistIssueEvents(events []models.IssueEvent, repoID int64, issue int) error {
	if err := c.inner.PersistIssueEvents(events, repoID, issue); err != nil {
		return err
	}
	if events == nil {
		events = []models.IssueEvent{}
	}
	c.put(IssueEventsKey(repoID, issue), events)
	return nil
}

// GetBoard serves a board from the cache or the inner store.
func (c *Cache) GetBoard(repoID int64) (*models.Board, error) {
	return cachedGet(c, BoardKey(repoID), func() (*models.Board, error) {
		return c.inner.GetBoard(repoID)
	})
}

// PersistBoard writes through to the inner store and caches board.
func (c *Cache) PersistBoard(board *models.Board, repoID int64) error {
	if err := c.inner.PersistBoard(board, repoID); err != nil {
		return err
	}
	c.put(BoardKey(repoID), board)
	return nil
}

// GetDependencies serves dependencies from the cache or the inner store.
func (c *Cache) GetDependencies(repoID int64) (*models.Dependencies, error) {
	return cachedGet(c, DependenciesKey(repoID), func() (*models.Dependencies, error) {
		return c.inner.GetDependencies(repoID)
	})
}

// PersistDependencies writes through to the inner store and caches deps.
func (c *Cache) PersistDependencies(deps *models.Dependencies, repoID int64) error {
	if err := c.inner.PersistDependencies(deps, repoID); err != nil {
		return err
	}
	c.put(DependenciesKey(repoID), deps)
	return nil
}

// GetEpics serves an epic list from the cache or the inner store.
func (c *Cache) GetEpics(repoID int64) (*models.Epics, error) {
	return cachedGet(c, EpicsKey(repoID), func() (*models.Epics, error) {
		return c.inner.GetEpics(repoID)
	})
}

// PersistEpics writes through to the inner store and caches epics.
func (c *Cache) PersistEpics(epics *models.Epics, repoID int64) error {
	if err := c.inner.PersistEpics(epics, repoID); err != nil {
		return err
	}
	c.put(EpicsKey(repoID), epics)
	return nil
}

// GetEpic serves epic details from the cache or the inner store.
func (c *Cache) GetEpic(repoID int64, issue int) (*models.Epic, error) {
	return cachedGet(c, EpicKey(repoID, issue), func() (*models.Epic, error) {
		return c.inner.GetEpic(repoID, issue)
	})
}

// PersistEpic writes through to the inner store and caches epic.
func (c *Cache) PersistEpic(epic *models.Epic, repoID int64, issue int) error {
	if err := c.inner.PersistEpic(epic, repoID, issue); err != nil {
		return err
	}
	c.put(EpicKey(repoID, issue), epic)
	return nil
}

// PersistChangeEvent is not cached.
func (c *Cache) PersistChangeEvent(event models.RepositoryChangeEvent) error {
	return c.inner.PersistChangeEvent(event)
}

// RecentChangeEvents is not cached.
func (c *Cache) RecentChangeEvents(since int64) ([]models.RepositoryChangeEvent, error) {
	return c.inner.RecentChangeEvents(since)
}

// GetLong serves a numeric key value from the cache or the inner store.
func (c *Cache) GetLong(key string) (int64, error) {
	return cachedGet(c, "long-"+key, func() (int64, error) {
		return c.inner.GetLong(key)
	})
}

// PersistLong writes through and caches the value. A cached string view of key is dropped.
func (c *Cache) PersistLong(key string, value int64) error {
	if err := c.inner.PersistLong(key, value); err != nil {
		return err
	}
	c.entries.Remove("string-" + key)
	c.put("long-"+key, value)
	return nil
}

// GetString serves a key value from the cache or the inner store.
func (c *Cache) GetString(key string) (string, error) {
	return cachedGet(c, "string-"+key, func() (string, error) {
		return c.inner.GetString(key)
	})
}

// PersistString writes through and caches the value. A cached numeric view of key is dropped.
func (c *Cache) PersistString(key string, value string) error {
	if err := c.inner.PersistString(key, value); err != nil {
		return err
	}
	c.entries.Remove("long-" + key)
	c.put("string-"+key, value)
	return nil
}

// IsInitialized delegates to the inner store.
func (c *Cache) IsInitialized() bool {
	return c.inner.IsInitialized()
}

// Initialize delegates to the inner store.
func (c *Cache) Initialize() {
	c.inner.Initialize()
}

// InvalidateIfConfigurationChanged delegates to the inner store and drops
// every cached entry if the inner store moved its contents aside.
func (c *Cache) InvalidateIfConfigurationChanged(orgs, userRepos, individualRepos []string) error {
	wasInitialized := c.inner.IsInitialized()
	if err := c.inner.InvalidateIfConfigurationChanged(orgs, userRepos, individualRepos); err != nil {
		return err
	}
	if wasInitialized && !c.inner.IsInitialized() {
		c.entries.Purge()
	}
	return nil
}
