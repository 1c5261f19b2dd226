package api

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/wesm/zenhub-mirror/internal/models"
)

const defaultZenHubServer = "api.zenhub.io"

// ZenHubClient implements ZenHub over the ZenHub public REST API.
type ZenHubClient struct {
	httpClient *http.Client
	token      string
	// BaseURL replaces the scheme and host derived from the server name, e.g. httptest.Server.URL.
	BaseURL string
	log     *slog.Logger
}

// NewZenHubClient returns a client for server (a bare hostname such as
// api.zenhub.io, or a full URL) authenticated with the given API token.
func NewZenHubClient(server, token string) *ZenHubClient {
	if server == "" {
		server = defaultZenHubServer
	}
	base := server
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}
	return &ZenHubClient{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		token:      token,
		BaseURL:    strings.TrimSuffix(base, "/"),
		log:        slog.Default(),
	}
}

func (c *ZenHubClient) repoURL(repoID int64, suffix string) string {
	return fmt.Sprintf("%s/p1/repositories/%d/%s", strings.TrimSuffix(c.BaseURL, "/"), repoID, suffix)
}

// GetBoard fetches the pipelines of a repository board.
func (c *ZenHubClient) GetBoard(ctx context.Context, repoID int64) (*models.Board, error) {
	var board models.Board
	ok, err := c.get(ctx, c.repoURL(repoID, "board"), &board)
	if err != nil || !ok {
		return nil, err
	}
	return &board, nil
}

// GetDependencies fetches the issue dependencies of a repository.
func (c *ZenHubClient) GetDependencies(ctx context.Context, repoID int64) (*models.Dependencies, error) {
	var deps models.Dependencies
	ok, err := c.get(ctx, c.repoURL(repoID, "dependencies"), &deps)
	if err != nil || !ok {
		return nil, err
	}
	return &deps, nil
}

// GetEpics fetches the epic list of a repository.
func (c *ZenHubClient) GetEpics(ctx context.Context, repoID int64) (*models.Epics, error) {
	var epics models.Epics
	ok, err := c.get(ctx, c.repoURL(repoID, "epics"), &epics)
	if err != nil || !ok {
		return nil, err
	}
	return &epics, nil
}

// GetEpic fetches a single epic.
func (c *ZenHubClient) GetEpic(ctx context.Context, repoID int64, epicNumber int) (*models.Epic, error) {
	var epic models.Epic
	ok, err := c.get(ctx, c.repoURL(repoID, "epics/"+strconv.Itoa(epicNumber)), &epic)
	if err != nil || !ok {
		return nil, err
	}
	return &epic, nil
}

// GetIssueData fetches the ZenHub data of an issue.
func (c *ZenHubClient) GetIssueData(ctx context.Context, repoID int64, issueNumber int) (*models.IssueData, error) {
	var data models.IssueData
	ok, err := c.get(ctx, c.repoURL(repoID, "issues/"+strconv.Itoa(issueNumber)), &data)
	if err != nil || !ok {
		return nil, err
	}
	return &data, nil
}

// GetIssueEvents fetches the ZenHub event history of an issue.
func (c *ZenHubClient) GetIssueEvents(ctx context.Context, repoID int64, issueNumber int) ([]models.IssueEvent, error) {
	var events []models.IssueEvent
	ok, err := c.get(ctx, c.repoURL(repoID, "issues/"+strconv.Itoa(issueNumber)+"/events"), &events)
	if err != nil || !ok {
		return nil, err
	}
	if events == nil {
		events = []models.IssueEvent{}
	}
	return events, nil
}

// get decodes the response body into out. It returns false when the
// upstream has no content for the request.
func (c *ZenHubClient) get(ctx context.Context, url string, out any) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("X-Authentication-Token", c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to request %s: %w", url, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return false, fmt.Errorf("failed to read response from %s: %w", url, err)
		}
		if len(strings.TrimSpace(string(body))) == 0 {
			return false, nil
		}
		if err := json.Unmarshal(body, out); err != nil {
			return false, fmt.Errorf("failed to decode response from %s: %w", url, err)
		}
		return true, nil
	case http.StatusNoContent, http.StatusNotFound:
		return false, nil
	case http.StatusForbidden, http.StatusTooManyRequests:
		rl := &RateLimitError{StatusCode: resp.StatusCode, Message: resp.Status}
		if reset := resp.Header.Get("X-RateLimit-Reset"); reset != "" {
			if ts, _ := strconv.ParseInt(reset, 10, 64); ts > 0 {
				rl.ResetTime = time.Unix(ts, 0)
			}
		}
		c.log.Debug("zenhub rate limited", "url", url, "status", resp.StatusCode, "reset", rl.ResetTime)
		return false, rl
	default:
		return false, fmt.Errorf("zenhub API %s: %s", url, resp.Status)
	}
}
