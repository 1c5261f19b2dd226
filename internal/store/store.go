package store

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"slices"
	"strings"

	"github.com/wesm/zenhub-mirror/internal/models"
)

// ErrNotFound is returned by every getter when the key has never been persisted.
var ErrNotFound = errors.New("not found")

// IsNotFound reports whether err means the key was never persisted.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

const (
	// LastFullScanKey holds the unix millisecond time the last full scan drained.
	LastFullScanKey = "lastFullScan"

	// FingerprintKey holds the fingerprint of the configured repository selection.
	FingerprintKey = "ZenHubContentsHash"
)

// Database is the persistence contract shared by the JSON store and the
// cache that wraps it. Values returned are plain snapshots; mutating them
// never affects stored state.
type Database interface {
	GetIssueData(repoID int64, issue int) (*models.IssueData, error)
	PersistIssueData(data *models.IssueData, repoID int64, issue int) error

	GetIssueEvents(repoID int64, issue int) ([]models.IssueEvent, error)
	PersistIssueEvents(events []models.IssueEvent, repoID int64, issue int) error

	GetBoard(repoID int64) (*models.Board, error)
	PersistBoard(board *models.Board, repoID int64) error

	GetDependencies(repoID int64) (*models.Dependencies, error)
	PersistDependencies(deps *models.Dependencies, repoID int64) error

	GetEpics(repoID int64) (*models.Epics, error)
	PersistEpics(epics *models.Epics, repoID int64) error

	GetEpic(repoID int64, issue int) (*models.Epic, error)
	PersistEpic(epic *models.Epic, repoID int64, issue int) error

	PersistChangeEvent(event models.RepositoryChangeEvent) error
	// RecentChangeEvents returns events with Time >= since, oldest first.
	RecentChangeEvents(since int64) ([]models.RepositoryChangeEvent, error)

	GetLong(key string) (int64, error)
	PersistLong(key string, value int64) error
	GetString(key string) (string, error)
	PersistString(key string, value string) error

	IsInitialized() bool
	Initialize()

	// InvalidateIfConfigurationChanged moves all stored resources aside and
	// marks the store uninitialized when the selection fingerprint differs
	// from the one last persisted under FingerprintKey.
	InvalidateIfConfigurationChanged(orgs, userRepos, individualRepos []string) error
}

// EventLog is the append-only log behind change event persistence.
type EventLog interface {
	SaveChangeEvent(event models.RepositoryChangeEvent) error
	ChangeEventsSince(since int64) ([]models.RepositoryChangeEvent, error)
}

// Fingerprint hashes the lower-cased, sorted repository selection lists.
func Fingerprint(orgs, userRepos, individualRepos []string) string {
	normalize := func(in []string) []string {
		out := make([]string, 0, len(in))
		for _, s := range in {
			out = append(out, strings.ToLower(s))
		}
		slices.Sort(out)
		return out
	}

	parts := []string{"orgs:"}
	parts = append(parts, normalize(orgs)...)
	parts = append(parts, "user-repos:")
	parts = append(parts, normalize(userRepos)...)
	parts = append(parts, "individual-repos:")
	parts = append(parts, normalize(individualRepos)...)

	sum := sha256.Sum256([]byte(strings.Join(parts, " ")))
	return base64.StdEncoding.EncodeToString(sum[:])
}
