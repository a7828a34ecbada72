// Package config provides configuration management for DevSync.
package config

import (
	"time"
)

// ConfigFileNames are the base names searched for configuration files.
var ConfigFileNames = []string{".devsync", "devsync"}

// ConfigFileExtensions are the recognized configuration file extensions.
var ConfigFileExtensions = []string{"yaml", "yml", "json", "toml"}

// Config is the root configuration for DevSync.
type Config struct {
	// Project configures project file locations.
	Project ProjectConfig `mapstructure:"project" json:"project"`
	// Git configures repository access and authentication.
	Git GitConfig `mapstructure:"git" json:"git"`
	// Hosting configures the release host.
	Hosting HostingConfig `mapstructure:"hosting" json:"hosting"`
	// Deploy configures the deployment pipeline.
	Deploy DeployConfig `mapstructure:"deploy" json:"deploy"`
	// Output configures output settings.
	Output OutputConfig `mapstructure:"output" json:"output"`
}

// ProjectConfig configures project file locations.
type ProjectConfig struct {
	// Name is the project display name, used for release titles.
	Name string `mapstructure:"name" json:"name,omitempty"`
	// VersionFile is the path to the current version file.
	VersionFile string `mapstructure:"version_file" json:"version_file"`
	// HistoryFile is the path to the deployment history file.
	HistoryFile string `mapstructure:"history_file" json:"history_file"`
	// ChangelogFile is the path to the changelog.
	ChangelogFile string `mapstructure:"changelog_file" json:"changelog_file"`
}

// GitConfig configures repository access and authentication.
type GitConfig struct {
	// RepoPath is the repository root (default: current directory).
	RepoPath string `mapstructure:"repo_path" json:"repo_path,omitempty"`
	// Remote is the remote name (default: "origin").
	Remote string `mapstructure:"remote" json:"remote"`
	// MainBranch is the integration branch (default: "main").
	MainBranch string `mapstructure:"main_branch" json:"main_branch"`
	// RequireClean refuses to deploy from a dirty working tree.
	RequireClean bool `mapstructure:"require_clean" json:"require_clean,omitempty"`
	// CommitterName overrides the commit author name.
	CommitterName string `mapstructure:"committer_name" json:"committer_name,omitempty"`
	// CommitterEmail overrides the commit author email.
	CommitterEmail string `mapstructure:"committer_email" json:"committer_email,omitempty"`
}

// HostingConfig configures the release host.
type HostingConfig struct {
	// Provider is the hosting provider; only "github" is supported.
	Provider string `mapstructure:"provider" json:"provider"`
	// BaseURL overrides the API base URL for enterprise installs.
	BaseURL string `mapstructure:"base_url" json:"base_url,omitempty"`
	// UploadURL overrides the asset upload URL for enterprise installs.
	UploadURL string `mapstructure:"upload_url" json:"upload_url,omitempty"`
	// Owner is the repository owner; derived from the remote when empty.
	Owner string `mapstructure:"owner" json:"owner,omitempty"`
	// Repo is the repository name; derived from the remote when empty.
	Repo string `mapstructure:"repo" json:"repo,omitempty"`
	// Token is the API token (can use env var expansion).
	Token string `mapstructure:"token" json:"token,omitempty"`
	// RetryAttempts bounds retries on transient API failures.
	RetryAttempts int `mapstructure:"retry_attempts" json:"retry_attempts"`
	// RateLimitRPM caps outbound API requests per minute. Zero disables
	// client-side limiting.
	RateLimitRPM int `mapstructure:"rate_limit_rpm" json:"rate_limit_rpm"`
}

// DeployConfig configures the deployment pipeline.
type DeployConfig struct {
	// TagPrefix prefixes release tags (default: "v").
	TagPrefix string `mapstructure:"tag_prefix" json:"tag_prefix"`
	// WaitForCI blocks the merge on a green pipeline.
	WaitForCI bool `mapstructure:"wait_for_ci" json:"wait_for_ci"`
	// CIPollInterval is the pipeline polling interval.
	CIPollInterval time.Duration `mapstructure:"ci_poll_interval" json:"ci_poll_interval"`
	// CITimeout bounds pipeline waiting.
	CITimeout time.Duration `mapstructure:"ci_timeout" json:"ci_timeout"`
	// SkipMerge leaves the working branch unmerged by default.
	SkipMerge bool `mapstructure:"skip_merge" json:"skip_merge"`
	// SkipRelease skips publishing hosted releases by default.
	SkipRelease bool `mapstructure:"skip_release" json:"skip_release"`
	// DraftRelease publishes releases as drafts by default.
	DraftRelease bool `mapstructure:"draft_release" json:"draft_release"`
}

// OutputConfig configures output settings.
type OutputConfig struct {
	// Format is the output format (text, json).
	Format string `mapstructure:"format" json:"format"`
	// Color enables colored output.
	Color bool `mapstructure:"color" json:"color"`
	// Verbose enables debug logging.
	Verbose bool `mapstructure:"verbose" json:"verbose"`
	// LogLevel is the log level (debug, info, warn, error).
	LogLevel string `mapstructure:"log_level" json:"log_level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Project: ProjectConfig{
			VersionFile:   "version.txt",
			HistoryFile:   "deploy_history.json",
			ChangelogFile: "CHANGELOG.md",
		},
		Git: GitConfig{
			RepoPath:   ".",
			Remote:     "origin",
			MainBranch: "main",
		},
		Hosting: HostingConfig{
			Provider:      "github",
			RetryAttempts: 3,
			RateLimitRPM:  60,
		},
		Deploy: DeployConfig{
			TagPrefix:      "v",
			CIPollInterval: 5 * time.Second,
			CITimeout:      10 * time.Minute,
		},
		Output: OutputConfig{
			Format:   "text",
			Color:    true,
			LogLevel: "info",
		},
	}
}
