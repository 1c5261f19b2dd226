package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func TestLoadConfigYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mirror.yaml")
	writeFile(t, path, `github_token: gh-token
zenhub_api_key: zh-key
org_list: [acme]
individual_repo_list: [bob/tools]
db_path: data
workers: 4
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.GitHubToken != "gh-token" || cfg.ZenHubAPIKey != "zh-key" {
		t.Errorf("credentials not loaded: %+v", cfg)
	}
	if cfg.Workers != 4 {
		t.Errorf("workers want 4 got %d", cfg.Workers)
	}
	if want := filepath.Join(dir, "data"); cfg.DBPath != want {
		t.Errorf("db path want %q got %q", want, cfg.DBPath)
	}
	if want := filepath.Join(dir, "data") + ".events.db"; cfg.EventsDBPath != want {
		t.Errorf("events db path want %q got %q", want, cfg.EventsDBPath)
	}
	if cfg.GitHubServer != DefaultGitHubServer || cfg.ZenHubServer != DefaultZenHubServer {
		t.Errorf("servers not defaulted: %q %q", cfg.GitHubServer, cfg.ZenHubServer)
	}
	if cfg.IssueLister != IssueListerREST || cfg.HTTPAddr != DefaultHTTPAddr {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestLoadConfigHTTPAddr(t *testing.T) {
	tests := []struct {
		name, line, want string
	}{
		{"omitted", "", DefaultHTTPAddr},
		{"explicit", "http_addr: 127.0.0.1:9090\n", "127.0.0.1:9090"},
		{"disabled", "http_addr: \"-\"\n", HTTPAddrDisabled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "mirror.yaml")
			writeFile(t, path, "zenhub_api_key: k\norg_list: [acme]\n"+tt.line)

			cfg, err := LoadConfig(path)
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if cfg.HTTPAddr != tt.want {
				t.Errorf("http addr want %q got %q", tt.want, cfg.HTTPAddr)
			}
		})
	}
}

func TestLoadConfigTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mirror.toml")
	writeFile(t, path, `zenhub_api_key = "zh-key"
user_repo_list = ["bob"]
issue_lister = "graphql"
db_path = "/var/lib/zh"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.UserRepoList) != 1 || cfg.UserRepoList[0] != "bob" {
		t.Errorf("user_repo_list want [bob] got %v", cfg.UserRepoList)
	}
	if cfg.IssueLister != IssueListerGraphQL {
		t.Errorf("issue_lister want graphql got %q", cfg.IssueLister)
	}
	if cfg.DBPath != "/var/lib/zh" {
		t.Errorf("absolute db path must be kept, got %q", cfg.DBPath)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mirror.yaml")
	writeFile(t, path, "zenhub_api_key: file-key\norg_list: [acme]\n")

	t.Setenv(EnvGitHubToken, "env-token")
	t.Setenv(EnvZenHubAPIKey, "env-key")
	t.Setenv(EnvPresharedKey, "psk")
	t.Setenv(EnvDBPath, "/srv/zh")
	t.Setenv(EnvHTTPAddr, "127.0.0.1:9000")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.GitHubToken != "env-token" || cfg.ZenHubAPIKey != "env-key" || cfg.PresharedKey != "psk" {
		t.Errorf("env credentials not applied: %+v", cfg)
	}
	if cfg.DBPath != "/srv/zh" || cfg.EventsDBPath != "/srv/zh.events.db" {
		t.Errorf("env db path not applied: %q %q", cfg.DBPath, cfg.EventsDBPath)
	}
	if cfg.HTTPAddr != "127.0.0.1:9000" {
		t.Errorf("env http addr not applied: %q", cfg.HTTPAddr)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing key", func(c *Config) { c.ZenHubAPIKey = "" }, "zenhub_api_key"},
		{"empty selection", func(c *Config) { c.OrgList = nil }, "at least one"},
		{"bad repo", func(c *Config) { c.IndividualRepoList = []string{"justaname"} }, "owner/name"},
		{"nested repo", func(c *Config) { c.IndividualRepoList = []string{"a/b/c"} }, "owner/name"},
		{"repo under org", func(c *Config) { c.IndividualRepoList = []string{"ACME/widgets"} }, "organization acme"},
		{"repo under user", func(c *Config) {
			c.UserRepoList = []string{"bob"}
			c.IndividualRepoList = []string{"bob/tools"}
		}, "user bob"},
		{"bad lister", func(c *Config) { c.IssueLister = "soap" }, "issue_lister"},
		{"no workers", func(c *Config) { c.Workers = -1 }, "workers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.ZenHubAPIKey = "k"
			cfg.OrgList = []string{"acme"}
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("want no error got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("want error containing %q got %v", tt.wantErr, err)
			}
		})
	}
}

func TestCreateDefaultConfig(t *testing.T) {
	for _, name := range []string{"mirror.yaml", "mirror.toml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)
			if err := CreateDefaultConfig(path); err != nil {
				t.Fatalf("create: %v", err)
			}

			// A default config has no ZenHub key, so loading it must fail validation
			// until one is supplied.
			if _, err := LoadConfig(path); err == nil {
				t.Fatal("want validation error for missing zenhub key")
			}
			t.Setenv(EnvZenHubAPIKey, "k")
			cfg, err := LoadConfig(path)
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if len(cfg.OrgList) != 1 || cfg.Workers != DefaultWorkers {
				t.Errorf("unexpected default config %+v", cfg)
			}

			info, err := os.Stat(path)
			if err != nil {
				t.Fatal(err)
			}
			if info.Mode().Perm() != 0o600 {
				t.Errorf("config mode want 0600 got %v", info.Mode().Perm())
			}
		})
	}
}

func TestCreateDefaultConfigKeepsExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mirror.yaml")
	writeFile(t, path, "zenhub_api_key: mine\n")
	if err := CreateDefaultConfig(path); err != nil {
		t.Fatal(err)
	}
	b, _ := os.ReadFile(path)
	if string(b) != "zenhub_api_key: mine\n" {
		t.Errorf("existing config overwritten: %q", b)
	}
}
