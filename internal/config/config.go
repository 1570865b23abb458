package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/compozy/autotag/internal/domain"
	"github.com/go-git/go-git/v5"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

const (
	PushViaGit    = "git"
	PushViaGithub = "github"
)

// Rule maps a gitignore-style path pattern to an update type name.
type Rule struct {
	Pattern string `mapstructure:"pattern"`
	Update  string `mapstructure:"update"`
}

type Config struct {
	Push          bool   `mapstructure:"push"`
	Remote        string `mapstructure:"remote"`
	PushVia       string `mapstructure:"push_via"`
	FetchTags     bool   `mapstructure:"fetch_tags"`
	TagMessage    string `mapstructure:"tag_message"`
	TaggerName    string `mapstructure:"tagger_name"`
	TaggerEmail   string `mapstructure:"tagger_email"`
	GithubToken   string `mapstructure:"github_token"`
	GithubOwner   string `mapstructure:"github_owner"`
	GithubRepo    string `mapstructure:"github_repo"`
	LogLevel      string `mapstructure:"log_level"`
	Journal       bool   `mapstructure:"journal"`
	JournalDir    string `mapstructure:"journal_dir"`
	DefaultUpdate string `mapstructure:"default_update"`
	ReseatOnEmpty bool   `mapstructure:"reseat_on_empty"`
	Rules         []Rule `mapstructure:"rules"`
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		Remote:        "origin",
		PushVia:       PushViaGit,
		TaggerName:    "autotag",
		TaggerEmail:   "autotag@users.noreply.github.com",
		LogLevel:      "info",
		JournalDir:    ".autotag",
		DefaultUpdate: "patch",
		ReseatOnEmpty: true,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Remote) == "" {
		return fmt.Errorf("remote cannot be empty")
	}
	if c.PushVia != PushViaGit && c.PushVia != PushViaGithub {
		return fmt.Errorf("invalid push_via %q: expected %q or %q", c.PushVia, PushViaGit, PushViaGithub)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level: %w", err)
	}
	if c.JournalDir == "" {
		return fmt.Errorf("journal_dir cannot be empty")
	}
	// Check for path traversal in journal directory
	if strings.Contains(c.JournalDir, "..") {
		return fmt.Errorf("journal_dir contains invalid path traversal")
	}
	if _, err := domain.ParseUpdateType(c.DefaultUpdate); err != nil {
		return fmt.Errorf("invalid default_update: %w", err)
	}
	for i, rule := range c.Rules {
		if strings.TrimSpace(rule.Pattern) == "" {
			return fmt.Errorf("rules[%d]: pattern cannot be empty", i)
		}
		if _, err := domain.ParseUpdateType(rule.Update); err != nil {
			return fmt.Errorf("rules[%d]: %w", i, err)
		}
	}
	if c.TagMessage != "" && (c.TaggerName == "" || c.TaggerEmail == "") {
		return fmt.Errorf("tagger_name and tagger_email are required for annotated tags")
	}
	if c.Push && c.PushVia == PushViaGithub {
		return c.ValidateForGitHubOperations()
	}
	return nil
}

// ValidateForGitHubOperations validates that GitHub credentials are present for operations that require them
func (c *Config) ValidateForGitHubOperations() error {
	if c.GithubToken == "" {
		return fmt.Errorf("github_token is required for GitHub operations")
	}
	if err := ValidateGitHubToken(c.GithubToken); err != nil {
		return fmt.Errorf("invalid github_token: %w", err)
	}
	if err := ValidateGitHubOwnerRepo(c.GithubOwner, c.GithubRepo); err != nil {
		return fmt.Errorf("invalid github configuration: %w", err)
	}
	return nil
}

// ValidateGitHubToken validates GitHub token format (exported for reuse)
func ValidateGitHubToken(token string) error {
	token = strings.TrimSpace(token)
	if len(token) < 40 {
		return fmt.Errorf("token too short: expected at least 40 characters")
	}
	// Validate token format patterns
	classicPAT := regexp.MustCompile(`^[a-fA-F0-9]{40}$`)
	fineGrainedPAT := regexp.MustCompile(`^github_pat_[a-zA-Z0-9_]{82}$`)
	appToken := regexp.MustCompile(`^ghs_[a-zA-Z0-9]{36}$`)
	oauthToken := regexp.MustCompile(`^gho_[a-zA-Z0-9]{36}$`)
	if !classicPAT.MatchString(token) &&
		!fineGrainedPAT.MatchString(token) &&
		!appToken.MatchString(token) &&
		!oauthToken.MatchString(token) {
		return fmt.Errorf("invalid token format")
	}
	return nil
}

// ValidateGitHubOwnerRepo validates GitHub owner and repository names (exported for reuse)
func ValidateGitHubOwnerRepo(owner, repo string) error {
	if owner == "" {
		return fmt.Errorf("owner cannot be empty")
	}
	if repo == "" {
		return fmt.Errorf("repository cannot be empty")
	}
	validName := regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9\-_.]*[a-zA-Z0-9]$|^[a-zA-Z0-9]$`)
	if !validName.MatchString(owner) {
		return fmt.Errorf("invalid owner format: %s", owner)
	}
	if len(owner) > 39 {
		return fmt.Errorf("owner too long: maximum 39 characters")
	}
	if !validName.MatchString(repo) {
		return fmt.Errorf("invalid repository format: %s", repo)
	}
	if len(repo) > 100 {
		return fmt.Errorf("repository too long: maximum 100 characters")
	}
	return nil
}

// LoadConfig reads path, or .autotag.yaml in the working directory when path
// is empty, applies flags set on the command line and validates the result.
// flags may be nil.
func LoadConfig(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(".autotag")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	// Configure environment variables
	v.SetEnvPrefix("AUTOTAG")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	// BindEnv allows multiple env vars - it will check them in order
	if err := v.BindEnv("github_token", "GITHUB_TOKEN", "AUTOTAG_GITHUB_TOKEN"); err != nil {
		return nil, fmt.Errorf("failed to bind github_token env: %w", err)
	}
	if err := v.BindEnv("github_owner", "GITHUB_OWNER", "AUTOTAG_GITHUB_OWNER"); err != nil {
		return nil, fmt.Errorf("failed to bind github_owner env: %w", err)
	}
	if err := v.BindEnv("github_repo", "GITHUB_REPO", "AUTOTAG_GITHUB_REPO"); err != nil {
		return nil, fmt.Errorf("failed to bind github_repo env: %w", err)
	}
	defaults := DefaultConfig()
	v.SetDefault("push", defaults.Push)
	v.SetDefault("remote", defaults.Remote)
	v.SetDefault("push_via", defaults.PushVia)
	v.SetDefault("fetch_tags", defaults.FetchTags)
	v.SetDefault("tag_message", defaults.TagMessage)
	v.SetDefault("tagger_name", defaults.TaggerName)
	v.SetDefault("tagger_email", defaults.TaggerEmail)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("journal", defaults.Journal)
	v.SetDefault("journal_dir", defaults.JournalDir)
	v.SetDefault("default_update", defaults.DefaultUpdate)
	v.SetDefault("reseat_on_empty", defaults.ReseatOnEmpty)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if flags != nil {
		MergeFlags(&config, flags)
	}
	if err := populateRepositoryDefaults(&config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &config, nil
}

// MergeFlags overrides config values with flags set on the command line.
func MergeFlags(cfg *Config, flags *pflag.FlagSet) *Config {
	if flags.Changed("push") {
		if v, err := flags.GetBool("push"); err == nil {
			cfg.Push = v
		}
	}
	if flags.Changed("fetch-tags") {
		if v, err := flags.GetBool("fetch-tags"); err == nil {
			cfg.FetchTags = v
		}
	}
	if flags.Changed("journal") {
		if v, err := flags.GetBool("journal"); err == nil {
			cfg.Journal = v
		}
	}
	if v, err := flags.GetString("remote"); err == nil && v != "" {
		cfg.Remote = v
	}
	if v, err := flags.GetString("push-via"); err == nil && v != "" {
		cfg.PushVia = v
	}
	if v, err := flags.GetString("log-level"); err == nil && v != "" {
		cfg.LogLevel = v
	}
	return cfg
}

// populateRepositoryDefaults fills GitHub owner/repo from the Actions
// environment, falling back to the URL of the configured remote.
func populateRepositoryDefaults(cfg *Config) error {
	if cfg.GithubOwner != "" && cfg.GithubRepo != "" {
		return nil
	}
	owner := os.Getenv("GITHUB_REPOSITORY_OWNER")
	repo := os.Getenv("GITHUB_REPOSITORY_NAME")
	if slug := os.Getenv("GITHUB_REPOSITORY"); slug != "" {
		if idx := strings.Index(slug, "/"); idx > 0 && idx < len(slug)-1 {
			if owner == "" {
				owner = slug[:idx]
			}
			if repo == "" {
				repo = slug[idx+1:]
			}
		}
	}
	if owner == "" || repo == "" {
		remoteOwner, remoteRepo := ownerRepoFromRemote(cfg.Remote)
		if owner == "" {
			owner = remoteOwner
		}
		if repo == "" {
			repo = remoteRepo
		}
	}
	if cfg.GithubOwner == "" {
		cfg.GithubOwner = owner
	}
	if cfg.GithubRepo == "" {
		cfg.GithubRepo = repo
	}
	return nil
}

// ownerRepoFromRemote reads the first URL of the remote. A missing
// repository or remote, or a URL without an owner/repo path, is not an
// error; the values stay empty and only GitHub pushes require them.
func ownerRepoFromRemote(remoteName string) (string, string) {
	if remoteName == "" {
		remoteName = "origin"
	}
	repo, err := git.PlainOpenWithOptions(".", &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", ""
	}
	remote, err := repo.Remote(remoteName)
	if err != nil || len(remote.Config().URLs) == 0 {
		return "", ""
	}
	owner, name, err := parseGitRemoteURL(remote.Config().URLs[0])
	if err != nil {
		return "", ""
	}
	return owner, name
}

var scpLikeURL = regexp.MustCompile(`^(?:[\w.-]+@)?[\w.-]+:([^/].*)$`)

// parseGitRemoteURL extracts owner and repository from https, ssh, scp-like or path remotes.
func parseGitRemoteURL(raw string) (string, string, error) {
	trimmed := strings.TrimSpace(raw)
	var path string
	switch {
	case strings.Contains(trimmed, "://"):
		u, err := url.Parse(trimmed)
		if err != nil {
			return "", "", fmt.Errorf("invalid remote url %q: %w", raw, err)
		}
		path = u.Path
	case scpLikeURL.MatchString(trimmed) && filepath.VolumeName(trimmed) == "":
		path = scpLikeURL.FindStringSubmatch(trimmed)[1]
	default:
		path = filepath.ToSlash(trimmed)
	}
	path = strings.TrimSuffix(strings.Trim(path, "/"), ".git")
	parts := strings.Split(path, "/")
	if len(parts) < 2 || parts[len(parts)-2] == "" || parts[len(parts)-1] == "" {
		return "", "", fmt.Errorf("cannot determine owner and repository from %q", raw)
	}
	return parts[len(parts)-2], parts[len(parts)-1], nil
}
