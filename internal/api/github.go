package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/wesm/zenhub-mirror/internal/models"
	"golang.org/x/oauth2"
)

// IssueLister enumerates the issues of a repository.
type IssueLister interface {
	ListIssues(ctx context.Context, owner, name string) ([]*github.Issue, error)
}

// GitHubCredentials selects how the GitHub clients authenticate. A token
// takes precedence over username and password.
type GitHubCredentials struct {
	Token    string
	Username string
	Password string
}

// HTTPClient returns an authenticated HTTP client for the credentials, or
// nil for anonymous access.
func (c GitHubCredentials) HTTPClient(ctx context.Context) *http.Client {
	switch {
	case c.Token != "":
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: c.Token})
		return oauth2.NewClient(ctx, ts)
	case c.Username != "":
		tp := &github.BasicAuthTransport{Username: c.Username, Password: c.Password}
		return tp.Client()
	default:
		return nil
	}
}

// GitHubClient implements GitHub over the REST API.
type GitHubClient struct {
	client *github.Client
	issues IssueLister
}

// NewGitHubClient creates a REST client for server. An empty server or
// github.com talks to the public API; anything else is treated as a GitHub
// Enterprise host.
func NewGitHubClient(server string, creds GitHubCredentials) (*GitHubClient, error) {
	client := github.NewClient(creds.HTTPClient(context.Background()))
	if base := enterpriseBaseURL(server); base != "" {
		var err error
		client, err = client.WithEnterpriseURLs(base, base)
		if err != nil {
			return nil, fmt.Errorf("failed to configure enterprise server %s: %w", server, err)
		}
	}
	return &GitHubClient{client: client}, nil
}

func enterpriseBaseURL(server string) string {
	s := strings.TrimSuffix(strings.TrimSpace(server), "/")
	switch s {
	case "", "github.com", "api.github.com", "https://github.com", "https://api.github.com":
		return ""
	}
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		s = "https://" + s
	}
	return s + "/"
}

// SetIssueLister replaces the REST issue enumeration, e.g. with a GraphQLIssueLister.
func (c *GitHubClient) SetIssueLister(l IssueLister) {
	c.issues = l
}

// ResolveOwner checks that the organization or user exists.
func (c *GitHubClient) ResolveOwner(ctx context.Context, owner models.Owner) error {
	var err error
	if owner.Kind == models.OwnerOrg {
		_, _, err = c.client.Organizations.Get(ctx, owner.Name)
	} else {
		_, _, err = c.client.Users.Get(ctx, owner.Name)
	}
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", owner, mapGitHubError(err))
	}
	return nil
}

// ListOwnerRepositories lists every repository of an organization or user.
func (c *GitHubClient) ListOwnerRepositories(ctx context.Context, owner models.Owner) ([]*github.Repository, error) {
	var all []*github.Repository
	if owner.Kind == models.OwnerOrg {
		opts := &github.RepositoryListByOrgOptions{
			Type:        "all",
			ListOptions: github.ListOptions{PerPage: 100},
		}
		for {
			repos, resp, err := c.client.Repositories.ListByOrg(ctx, owner.Name, opts)
			if err != nil {
				return nil, fmt.Errorf("failed to list repositories of %s: %w", owner, mapGitHubError(err))
			}
			all = append(all, repos...)
			if resp.NextPage == 0 {
				break
			}
			opts.Page = resp.NextPage
		}
		return all, nil
	}

	opts := &github.RepositoryListOptions{
		Type:        "owner",
		ListOptions: github.ListOptions{PerPage: 100},
	}
	for {
		repos, resp, err := c.client.Repositories.List(ctx, owner.Name, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list repositories of %s: %w", owner, mapGitHubError(err))
		}
		all = append(all, repos...)
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}

// GetRepository gets a repository by owner and name
func (c *GitHubClient) GetRepository(ctx context.Context, owner, name string) (*github.Repository, error) {
	repo, _, err := c.client.Repositories.Get(ctx, owner, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get repository %s/%s: %w", owner, name, mapGitHubError(err))
	}
	return repo, nil
}

// ListIssues lists open and closed issues of a repository, pull requests included.
func (c *GitHubClient) ListIssues(ctx context.Context, owner, name string) ([]*github.Issue, error) {
	if c.issues != nil {
		return c.issues.ListIssues(ctx, owner, name)
	}

	var allIssues []*github.Issue
	opts := &github.IssueListByRepoOptions{
		State: "all",
		ListOptions: github.ListOptions{
			PerPage: 100,
		},
	}

	for {
		issues, resp, err := c.client.Issues.ListByRepo(ctx, owner, name, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list issues of %s/%s: %w", owner, name, mapGitHubError(err))
		}

		allIssues = append(allIssues, issues...)

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allIssues, nil
}

// mapGitHubError converts go-github quota and not-found errors into the
// package sentinels so callers can classify them with errors.Is.
func mapGitHubError(err error) error {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return &RateLimitError{
			StatusCode: http.StatusForbidden,
			ResetTime:  rateErr.Rate.Reset.Time,
			Message:    rateErr.Message,
		}
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		rl := &RateLimitError{StatusCode: http.StatusForbidden, Message: abuseErr.Message}
		if abuseErr.RetryAfter != nil {
			rl.ResetTime = time.Now().Add(*abuseErr.RetryAfter)
		}
		return rl
	}
	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil && respErr.Response.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, respErr.Message)
	}
	return err
}
