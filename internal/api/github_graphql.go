package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/shurcooL/githubv4"
)

// GraphQLIssueLister enumerates issues through the GitHub GraphQL API. The
// issues connection never contains pull requests, so fewer items cross the
// wire than with the REST listing.
type GraphQLIssueLister struct {
	client *githubv4.Client
	log    *slog.Logger
}

// NewGraphQLIssueLister creates a lister for server using the given credentials.
func NewGraphQLIssueLister(server string, creds GitHubCredentials) *GraphQLIssueLister {
	httpClient := creds.HTTPClient(context.Background())
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	var client *githubv4.Client
	if base := enterpriseBaseURL(server); base != "" {
		client = githubv4.NewEnterpriseClient(strings.TrimSuffix(base, "/")+"/api/graphql", httpClient)
	} else {
		client = githubv4.NewClient(httpClient)
	}
	return &GraphQLIssueLister{client: client, log: slog.Default()}
}

// graphQLIssue is the subset of an issue node the mirror needs.
type graphQLIssue struct {
	DatabaseID githubv4.Int
	Number     githubv4.Int
	Title      githubv4.String
	State      githubv4.String
	UpdatedAt  githubv4.DateTime
}

// ListIssues lists every open and closed issue of the repository.
func (l *GraphQLIssueLister) ListIssues(ctx context.Context, owner, name string) ([]*github.Issue, error) {
	var all []*github.Issue
	var cursor *githubv4.String

	for {
		issues, hasNext, endCursor, err := l.fetchIssuesBatch(ctx, owner, name, cursor)
		if err != nil {
			return nil, err
		}
		all = append(all, issues...)
		if !hasNext {
			break
		}
		cursor = endCursor
	}

	l.log.Debug("listed issues via graphql", "owner", owner, "repo", name, "count", len(all))
	return all, nil
}

func (l *GraphQLIssueLister) fetchIssuesBatch(
	ctx context.Context,
	owner, name string,
	afterCursor *githubv4.String,
) ([]*github.Issue, bool, *githubv4.String, error) {
	var query struct {
		RateLimit struct {
			Limit     githubv4.Int
			Remaining githubv4.Int
			ResetAt   githubv4.DateTime
		}
		Repository struct {
			Issues struct {
				Nodes    []graphQLIssue
				PageInfo struct {
					EndCursor   githubv4.String
					HasNextPage githubv4.Boolean
				}
			} `graphql:"issues(first: $issuesPerPage, after: $issuesEndCursor)"`
		} `graphql:"repository(owner: $owner, name: $name)"`
	}

	variables := map[string]interface{}{
		"owner":           githubv4.String(owner),
		"name":            githubv4.String(name),
		"issuesPerPage":   githubv4.Int(100),
		"issuesEndCursor": afterCursor,
	}

	if err := l.client.Query(ctx, &query, variables); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "rate limit") {
			return nil, false, nil, &RateLimitError{StatusCode: http.StatusForbidden, Message: err.Error()}
		}
		return nil, false, nil, fmt.Errorf("failed to query issues of %s/%s: %w", owner, name, err)
	}

	if remaining := int(query.RateLimit.Remaining); remaining < 1000 {
		l.log.Info("graphql rate limit status",
			"remaining", remaining,
			"limit", int(query.RateLimit.Limit),
			"reset_at", query.RateLimit.ResetAt.Format(time.RFC3339))
	}

	result := make([]*github.Issue, 0, len(query.Repository.Issues.Nodes))
	for _, node := range query.Repository.Issues.Nodes {
		result = append(result, &github.Issue{
			ID:        github.Int64(int64(node.DatabaseID)),
			Number:    github.Int(int(node.Number)),
			Title:     github.String(string(node.Title)),
			State:     github.String(strings.ToLower(string(node.State))),
			UpdatedAt: &github.Timestamp{Time: node.UpdatedAt.Time},
		})
	}

	hasNext := bool(query.Repository.Issues.PageInfo.HasNextPage)
	var endCursor *githubv4.String
	if hasNext {
		c := query.Repository.Issues.PageInfo.EndCursor
		endCursor = &c
	}
	return result, hasNext, endCursor, nil
}
