package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	// Environment variables that override file values.
	EnvGitHubToken  = "ZHMIRROR_GITHUB_TOKEN"
	EnvZenHubAPIKey = "ZHMIRROR_ZENHUB_API_KEY"
	EnvPresharedKey = "ZHMIRROR_PRESHARED_KEY"
	EnvDBPath       = "ZHMIRROR_DB_PATH"
	EnvHTTPAddr     = "ZHMIRROR_HTTP_ADDR"
	EnvLogLevel     = "ZHMIRROR_LOG_LEVEL"

	DefaultGitHubServer = "github.com"
	DefaultZenHubServer = "api.zenhub.io"
	DefaultDBPath       = "zenhub-mirror-db"
	DefaultHTTPAddr     = ":8080"
	DefaultWorkers      = 2
	DefaultIssueLister  = IssueListerREST
	DefaultLogLevel     = "info"

	IssueListerREST    = "rest"
	IssueListerGraphQL = "graphql"

	// HTTPAddrDisabled as http_addr turns the HTTP server off.
	HTTPAddrDisabled = "-"
)

// Config represents the application configuration
type Config struct {
	GitHubServer   string `yaml:"github_server" toml:"github_server"`
	GitHubToken    string `yaml:"github_token" toml:"github_token"`
	GitHubUsername string `yaml:"github_username" toml:"github_username"`
	GitHubPassword string `yaml:"github_password" toml:"github_password"`

	ZenHubServer string `yaml:"zenhub_server" toml:"zenhub_server"`
	ZenHubAPIKey string `yaml:"zenhub_api_key" toml:"zenhub_api_key"`

	// Organizations and users whose every repository is mirrored.
	OrgList      []string `yaml:"org_list" toml:"org_list"`
	UserRepoList []string `yaml:"user_repo_list" toml:"user_repo_list"`
	// Individually mirrored repositories in the format "owner/name".
	IndividualRepoList []string `yaml:"individual_repo_list" toml:"individual_repo_list"`

	PresharedKey string `yaml:"preshared_key" toml:"preshared_key"`

	// Root directory of the JSON store
	DBPath string `yaml:"db_path" toml:"db_path"`
	// SQLite change event log; defaults to DBPath + ".events.db"
	EventsDBPath string `yaml:"events_db_path,omitempty" toml:"events_db_path,omitempty"`

	HTTPAddr    string `yaml:"http_addr" toml:"http_addr"`
	Workers     int    `yaml:"workers" toml:"workers"`
	IssueLister string `yaml:"issue_lister" toml:"issue_lister"`
	LogLevel    string `yaml:"log_level" toml:"log_level"`
}

// Default returns default configuration values.
func Default() Config {
	return Config{
		GitHubServer: DefaultGitHubServer,
		ZenHubServer: DefaultZenHubServer,
		DBPath:       DefaultDBPath,
		HTTPAddr:     DefaultHTTPAddr,
		Workers:      DefaultWorkers,
		IssueLister:  DefaultIssueLister,
		LogLevel:     DefaultLogLevel,
	}
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// LoadConfig loads the configuration from a YAML file, or a TOML file when
// the path ends in .toml, then applies environment overrides and validates.
func LoadConfig(path string) (*Config, error) {
	config, err := ReadFile(path)
	if err != nil {
		return nil, err
	}

	config.applyEnv()
	config.applyDefaults()

	// Relative database paths are relative to the config file
	configDir := filepath.Dir(path)
	if !filepath.IsAbs(config.DBPath) {
		config.DBPath = filepath.Join(configDir, config.DBPath)
	}
	if config.EventsDBPath == "" {
		config.EventsDBPath = filepath.Clean(config.DBPath) + ".events.db"
	} else if !filepath.IsAbs(config.EventsDBPath) {
		config.EventsDBPath = filepath.Join(configDir, config.EventsDBPath)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// ReadFile decodes the file at path without env overrides, defaults or
// validation, so that it can be edited and saved back unchanged.
func ReadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if isTOML(path) {
		err = toml.Unmarshal(data, &config)
	} else {
		err = yaml.Unmarshal(data, &config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &config, nil
}

func (c *Config) applyEnv() {
	override := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	override(&c.GitHubToken, EnvGitHubToken)
	override(&c.ZenHubAPIKey, EnvZenHubAPIKey)
	override(&c.PresharedKey, EnvPresharedKey)
	override(&c.DBPath, EnvDBPath)
	override(&c.HTTPAddr, EnvHTTPAddr)
}

func (c *Config) applyDefaults() {
	def := Default()
	if c.GitHubServer == "" {
		c.GitHubServer = def.GitHubServer
	}
	if c.ZenHubServer == "" {
		c.ZenHubServer = def.ZenHubServer
	}
	if c.DBPath == "" {
		c.DBPath = def.DBPath
	}
	if c.HTTPAddr == "" {
		c.HTTPAddr = def.HTTPAddr
	}
	if c.Workers == 0 {
		c.Workers = def.Workers
	}
	if c.IssueLister == "" {
		c.IssueLister = def.IssueLister
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
}

// Validate reports configuration errors that must stop startup.
func (c *Config) Validate() error {
	var errs []error

	if c.ZenHubAPIKey == "" {
		errs = append(errs, fmt.Errorf("zenhub_api_key is required (or set %s)", EnvZenHubAPIKey))
	}
	if len(c.OrgList)+len(c.UserRepoList)+len(c.IndividualRepoList) == 0 {
		errs = append(errs, errors.New("at least one of org_list, user_repo_list or individual_repo_list must be set"))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be positive, got %d", c.Workers))
	}
	switch c.IssueLister {
	case IssueListerREST, IssueListerGraphQL:
	default:
		errs = append(errs, fmt.Errorf("issue_lister must be %q or %q, got %q",
			IssueListerREST, IssueListerGraphQL, c.IssueLister))
	}
	if err := ValidateSelection(c.OrgList, c.UserRepoList, c.IndividualRepoList); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ValidateSelection checks that every individual repository is "owner/name"
// and that none belongs to an organization or user that is already
// mirrored in full.
func ValidateSelection(orgs, users, individual []string) error {
	var errs []error
	for _, repo := range individual {
		owner, name, ok := strings.Cut(repo, "/")
		if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
			errs = append(errs, fmt.Errorf("invalid repository format, expected 'owner/name', got '%s'", repo))
			continue
		}
		for _, o := range orgs {
			if strings.EqualFold(o, owner) {
				errs = append(errs, fmt.Errorf("individual repository %s belongs to organization %s, which is already mirrored", repo, o))
			}
		}
		for _, u := range users {
			if strings.EqualFold(u, owner) {
				errs = append(errs, fmt.Errorf("individual repository %s belongs to user %s, which is already mirrored", repo, u))
			}
		}
	}
	return errors.Join(errs...)
}

// SaveConfig saves the configuration as YAML, or TOML for a .toml path.
func SaveConfig(config *Config, path string) error {
	var data []byte
	if isTOML(path) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(config); err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		data = buf.Bytes()
	} else {
		var err error
		data, err = yaml.Marshal(config)
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
	}

	// Holds credentials
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// CreateDefaultConfig creates a default configuration file if it doesn't exist
func CreateDefaultConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil // File exists, don't overwrite
	}

	config := Default()
	config.OrgList = []string{"example-org"}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return SaveConfig(&config, path)
}
