package api

//go:generate go run go.uber.org/mock/mockgen -destination api_mock.gen.go -package api . GitHub,ZenHub

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/wesm/zenhub-mirror/internal/models"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrRateLimited = errors.New("rate limited")
)

// RateLimitError is returned when an upstream API signals quota exhaustion.
type RateLimitError struct {
	StatusCode int
	ResetTime  time.Time
	Message    string
}

func (e *RateLimitError) Error() string {
	if e.ResetTime.IsZero() {
		return fmt.Sprintf("rate limited (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("rate limited (status %d, resets %s): %s",
		e.StatusCode, e.ResetTime.Format(time.RFC3339), e.Message)
}

// Is lets errors.Is(err, ErrRateLimited) match any *RateLimitError.
func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// IsRateLimit reports whether err, or anything it wraps, is a rate-limit signal.
func IsRateLimit(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// GitHub is the repository and issue listing side of the upstream boundary.
type GitHub interface {
	// ResolveOwner checks that the organization or user exists.
	ResolveOwner(ctx context.Context, owner models.Owner) error
	ListOwnerRepositories(ctx context.Context, owner models.Owner) ([]*github.Repository, error)
	GetRepository(ctx context.Context, owner, name string) (*github.Repository, error)
	// ListIssues returns every issue of the repository. Pull requests may be
	// included and are recognised with (*github.Issue).IsPullRequest.
	ListIssues(ctx context.Context, owner, name string) ([]*github.Issue, error)
}

// ZenHub is the tracking side of the upstream boundary. A nil result with a
// nil error means the upstream had no content for the request.
type ZenHub interface {
	GetBoard(ctx context.Context, repoID int64) (*models.Board, error)
	GetDependencies(ctx context.Context, repoID int64) (*models.Dependencies, error)
	GetEpics(ctx context.Context, repoID int64) (*models.Epics, error)
	GetEpic(ctx context.Context, repoID int64, epicNumber int) (*models.Epic, error)
	GetIssueData(ctx context.Context, repoID int64, issueNumber int) (*models.IssueData, error)
	GetIssueEvents(ctx context.Context, repoID int64, issueNumber int) ([]models.IssueEvent, error)
}
