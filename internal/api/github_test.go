package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/wesm/zenhub-mirror/internal/models"
)

func newTestGitHub(t *testing.T, mux *http.ServeMux) *GitHubClient {
	t.Helper()
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	c, err := NewGitHubClient("", GitHubCredentials{Token: "t"})
	if err != nil {
		t.Fatal(err)
	}
	base, _ := url.Parse(ts.URL + "/")
	c.client.BaseURL = base
	return c
}

func TestGitHubClient_ListIssuesPaginates(t *testing.T) {
	mux := http.NewServeMux()
	var serverURL string
	mux.HandleFunc("/repos/o/r/issues", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != "all" {
			t.Errorf("state want all got %s", r.URL.Query().Get("state"))
		}
		if r.URL.Query().Get("page") == "" {
			w.Header().Set("Link", fmt.Sprintf(`<%s/repos/o/r/issues?state=all&page=2>; rel="next"`, serverURL))
			_, _ = w.Write([]byte(`[{"number":1},{"number":2,"pull_request":{"url":"x"}}]`))
			return
		}
		_, _ = w.Write([]byte(`[{"number":3}]`))
	})
	c := newTestGitHub(t, mux)
	serverURL = c.client.BaseURL.String()
	serverURL = serverURL[:len(serverURL)-1]

	issues, err := c.ListIssues(context.Background(), "o", "r")
	if err != nil {
		t.Fatal(err)
	}
	if len(issues) != 3 {
		t.Fatalf("issues want 3 got %d", len(issues))
	}
	if !issues[1].IsPullRequest() || issues[0].IsPullRequest() {
		t.Error("pull request detection mismatch")
	}
}

func TestGitHubClient_GetRepositoryNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/o/missing", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Not Found"}`))
	})
	c := newTestGitHub(t, mux)

	_, err := c.GetRepository(context.Background(), "o", "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("want ErrNotFound got %v", err)
	}
}

func TestGitHubClient_RateLimitMapped(t *testing.T) {
	reset := time.Now().Add(time.Hour).Unix()
	mux := http.NewServeMux()
	mux.HandleFunc("/orgs/acme", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Limit", "5000")
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset, 10))
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"API rate limit exceeded"}`))
	})
	c := newTestGitHub(t, mux)

	err := c.ResolveOwner(context.Background(), models.Org("acme"))
	if !IsRateLimit(err) {
		t.Fatalf("want rate limit got %v", err)
	}
	var rl *RateLimitError
	if errors.As(err, &rl) && rl.ResetTime.Unix() != reset {
		t.Errorf("reset want %d got %d", reset, rl.ResetTime.Unix())
	}
}

func TestEnterpriseBaseURL(t *testing.T) {
	tests := []struct {
		server string
		want   string
	}{
		{"", ""},
		{"github.com", ""},
		{"https://api.github.com/", ""},
		{"ghe.example.com", "https://ghe.example.com/"},
		{"http://ghe.local", "http://ghe.local/"},
	}
	for _, tt := range tests {
		if got := enterpriseBaseURL(tt.server); got != tt.want {
			t.Errorf("enterpriseBaseURL(%q) want %q got %q", tt.server, tt.want, got)
		}
	}
}
