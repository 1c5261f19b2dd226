package store

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	natomic "github.com/natefinch/atomic"
	"github.com/wesm/zenhub-mirror/internal/models"
)

const (
	keysDir = "keys"
	oldDir  = "old"
)

// JSONStore persists one JSON file per resource key under a root directory.
// A single read/write lock guards the whole tree.
type JSONStore struct {
	root        string
	events      EventLog
	mu          sync.RWMutex
	initialized atomic.Bool
	log         *slog.Logger
}

// NewJSONStore opens the store rooted at root. The store is initialized when
// root already exists and holds at least one entry. events receives change
// events and must not live under root.
func NewJSONStore(root string, events EventLog) (*JSONStore, error) {
	if events == nil {
		return nil, errors.New("change event log is required")
	}
	s := &JSONStore{root: root, events: events, log: slog.Default()}

	entries, err := os.ReadDir(root)
	switch {
	case err == nil:
		s.initialized.Store(len(entries) > 0)
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read store root %s: %w", root, err)
	}
	return s, nil
}

// Root returns the directory the store writes to.
func (s *JSONStore) Root() string {
	return s.root
}

func (s *JSONStore) resourcePath(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key)+".json")
}

func (s *JSONStore) keyPath(key string) string {
	return filepath.Join(s.root, keysDir, key+".txt")
}

func (s *JSONStore) read(path string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return b, nil
}

func (s *JSONStore) write(path string, contents []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	if err := natomic.WriteFile(path, bytes.NewReader(contents)); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func (s *JSONStore) readJSON(key string, out any) error {
	b, err := s.read(s.resourcePath(key))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return nil
}

func (s *JSONStore) writeJSON(key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return s.write(s.resourcePath(key), b)
}

// GetIssueData reads the stored GitHub data of an issue.
func (s *JSONStore) GetIssueData(repoID int64, issue int) (*models.IssueData, error) {
	var v models.IssueData
	if err := s.readJSON(IssueDataKey(repoID, issue), &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// PersistIssueData writes the GitHub data of an issue.
func (s *JSONStore) PersistIssueData(data *models.IssueData, repoID int64, issue int) error {
	return s.writeJSON(IssueDataKey(repoID, issue), data)
}

// GetIssueEvents reads the stored ZenHub events of an issue, never nil.
func (s *JSONStore) GetIssueEvents(repoID int64, issue int) ([]models.IssueEvent, error) {
	var v []models.IssueEvent
	if err := s.readJSON(IssueEventsKey(repoID, issue), &v); err != nil {
		return nil, err
	}
	if v == nil {
		v = []models.IssueEvent{}
	}
	return v, nil
}

// PersistIssueEvents writes the ZenHub events of an issue.
func (s *JSONStore) PersistIssueEvents(events []models.IssueEvent, repoID int64, issue int) error {
	if events == nil {
		events = []models.IssueEvent{}
	}
	return s.writeJSON(IssueEventsKey(repoID, issue), events)
}

// GetBoard reads the stored board of a repository.
func (s *JSONStore) GetBoard(repoID int64) (*models.Board, error) {
	var v models.Board
	if err := s.readJSON(BoardKey(repoID), &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// PersistBoard writes the board of a repository.
func (s *JSONStore) PersistBoard(board *models.Board, repoID int64) error {
	return s.writeJSON(BoardKey(repoID), board)
}

// GetDependencies reads the stored dependencies of a repository.
func (s *JSONStore) GetDependencies(repoID int64) (*models.Dependencies, error) {
	var v models.Dependencies
	if err := s.readJSON(DependenciesKey(repoID), &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// PersistDependencies writes the dependencies of a repository.
func (s *JSONStore) PersistDependencies(deps *models.Dependencies, repoID int64) error {
	return s.writeJSON(DependenciesKey(repoID), deps)
}

// GetEpics reads the stored epic list of a repository.
func (s *JSONStore) GetEpics(repoID int64) (*models.Epics, error) {
	var v models.Epics
	if err := s.readJSON(EpicsKey(repoID), &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// PersistEpics writes the epic list of a repository.
func (s *JSONStore) PersistEpics(epics *models.Epics, repoID int64) error {
	return s.writeJSON(EpicsKey(repoID), epics)
}

// GetEpic reads the stored details of one epic.
func (s *JSONStore) GetEpic(repoID int64, issue int) (*models.Epic, error) {
	var v models.Epic
	if err := s.readJSON(EpicKey(repoID, issue), &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// PersistEpic writes the details of one epic.
func (s *JSONStore) PersistEpic(epic *models.Epic, repoID int64, issue int) error {
	return s.writeJSON(EpicKey(repoID, issue), epic)
}

// PersistChangeEvent appends event to the change event log.
func (s *JSONStore) PersistChangeEvent(event models.RepositoryChangeEvent) error {
	return s.events.SaveChangeEvent(event)
}

// RecentChangeEvents returns logged events at or after since.
func (s *JSONStore) RecentChangeEvents(since int64) ([]models.RepositoryChangeEvent, error) {
	return s.events.ChangeEventsSince(since)
}

// GetLong reads a numeric key value.
func (s *JSONStore) GetLong(key string) (int64, error) {
	v, err := s.GetString(key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s as integer: %w", key, err)
	}
	return n, nil
}

// PersistLong writes a numeric key value.
func (s *JSONStore) PersistLong(key string, value int64) error {
	return s.PersistString(key, strconv.FormatInt(value, 10))
}

// GetString reads a key value.
func (s *JSONStore) GetString(key string) (string, error) {
	b, err := s.read(s.keyPath(key))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// PersistString writes a key value.
func (s *JSONStore) PersistString(key string, value string) error {
	return s.write(s.keyPath(key), []byte(value))
}

// IsInitialized reports whether a full scan has populated the store.
func (s *JSONStore) IsInitialized() bool {
	return s.initialized.Load()
}

// Initialize marks the store as populated.
func (s *JSONStore) Initialize() {
	s.initialized.Store(true)
}

// InvalidateIfConfigurationChanged moves stored resources aside when the selection fingerprint changed.
func (s *JSONStore) InvalidateIfConfigurationChanged(orgs, userRepos, individualRepos []string) error {
	if !s.IsInitialized() {
		return nil
	}

	fingerprint := Fingerprint(orgs, userRepos, individualRepos)
	stored, err := s.GetString(FingerprintKey)
	switch {
	case err == nil && stored == fingerprint:
		return nil
	case err != nil && !errors.Is(err, ErrNotFound):
		return err
	}

	if err := s.moveAside(time.Now()); err != nil {
		return err
	}
	s.initialized.Store(false)
	return nil
}

// moveAside renames every top-level entry except the old directory to
// old/<name>.old.<millis>.
func (s *JSONStore) moveAside(now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := filepath.Join(s.root, oldDir)
	if err := os.MkdirAll(old, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", old, err)
	}

	entries, err := os.ReadDir(s.root)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", s.root, err)
	}

	suffix := ".old." + strconv.FormatInt(now.UnixMilli(), 10)
	for _, e := range entries {
		if e.Name() == oldDir {
			continue
		}
		from := filepath.Join(s.root, e.Name())
		if err := os.Rename(from, filepath.Join(old, e.Name()+suffix)); err != nil {
			return fmt.Errorf("failed to move %s: %w", from, err)
		}
	}

	s.log.Info("old database has been moved", "dir", old)
	return nil
}
