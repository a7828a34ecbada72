// Package config provides configuration management for DevSync.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/viper"

	dserrors "github.com/devsync-tools/devsync/internal/errors"
)

// Pre-compiled patterns for environment variable expansion.
var (
	// envVarPattern matches ${VAR} or ${VAR:-default} syntax.
	envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)
	// simpleEnvVarPattern matches $VAR syntax.
	simpleEnvVarPattern = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)
)

// Loader handles configuration loading and merging.
type Loader struct {
	v           *viper.Viper
	configPath  string
	searchPaths []string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	v := viper.New()
	v.SetEnvPrefix("DEVSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	return &Loader{
		v:           v,
		searchPaths: []string{"."},
	}
}

// WithConfigPath sets an explicit config file path.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithSearchPaths adds directories to search for config files.
func (l *Loader) WithSearchPaths(paths ...string) *Loader {
	l.searchPaths = append(l.searchPaths, paths...)
	return l
}

// Load loads the configuration from defaults, file, and environment.
func (l *Loader) Load() (*Config, error) {
	const op = "config.Load"

	l.setDefaults()

	if err := l.loadConfigFile(); err != nil {
		return nil, dserrors.ConfigWrap(err, op, "failed to load config file")
	}

	cfg := &Config{}
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, dserrors.ConfigWrap(err, op, "failed to unmarshal config")
	}

	l.expandEnvVars(cfg)

	return cfg, nil
}

// setDefaults sets default values using Viper.
func (l *Loader) setDefaults() {
	defaults := DefaultConfig()

	l.v.SetDefault("project.version_file", defaults.Project.VersionFile)
	l.v.SetDefault("project.history_file", defaults.Project.HistoryFile)
	l.v.SetDefault("project.changelog_file", defaults.Project.ChangelogFile)

	l.v.SetDefault("git.repo_path", defaults.Git.RepoPath)
	l.v.SetDefault("git.remote", defaults.Git.Remote)
	l.v.SetDefault("git.main_branch", defaults.Git.MainBranch)

	l.v.SetDefault("hosting.provider", defaults.Hosting.Provider)
	l.v.SetDefault("hosting.retry_attempts", defaults.Hosting.RetryAttempts)
	l.v.SetDefault("hosting.rate_limit_rpm", defaults.Hosting.RateLimitRPM)

	l.v.SetDefault("deploy.tag_prefix", defaults.Deploy.TagPrefix)
	l.v.SetDefault("deploy.wait_for_ci", defaults.Deploy.WaitForCI)
	l.v.SetDefault("deploy.ci_poll_interval", defaults.Deploy.CIPollInterval)
	l.v.SetDefault("deploy.ci_timeout", defaults.Deploy.CITimeout)

	l.v.SetDefault("output.format", defaults.Output.Format)
	l.v.SetDefault("output.color", defaults.Output.Color)
	l.v.SetDefault("output.verbose", defaults.Output.Verbose)
	l.v.SetDefault("output.log_level", defaults.Output.LogLevel)
}

// loadConfigFile loads the configuration file, if any exists.
func (l *Loader) loadConfigFile() error {
	if l.configPath != "" {
		l.v.SetConfigFile(l.configPath)
		if err := l.v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %s: %w", l.configPath, err)
		}
		return nil
	}

	for _, searchPath := range l.searchPaths {
		for _, name := range ConfigFileNames {
			for _, ext := range ConfigFileExtensions {
				configFile := filepath.Join(searchPath, name+"."+ext)
				if _, err := os.Stat(configFile); err == nil {
					l.v.SetConfigFile(configFile)
					if err := l.v.ReadInConfig(); err != nil {
						return fmt.Errorf("reading config file %s: %w", configFile, err)
					}
					return nil
				}
			}
		}
	}

	// No config file found, defaults apply.
	return nil
}

// expandEnvVars expands environment variables in sensitive fields.
func (l *Loader) expandEnvVars(cfg *Config) {
	cfg.Hosting.Token = expandEnvVar(cfg.Hosting.Token)
	cfg.Hosting.BaseURL = expandEnvVar(cfg.Hosting.BaseURL)
	cfg.Hosting.UploadURL = expandEnvVar(cfg.Hosting.UploadURL)
	cfg.Git.RepoPath = expandEnvVar(cfg.Git.RepoPath)
}

// expandEnvVar expands environment variables in a string.
// Supports both ${VAR} and $VAR syntax, plus ${VAR:-default}.
func expandEnvVar(s string) string {
	if s == "" {
		return s
	}

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		submatch := envVarPattern.FindStringSubmatch(match)
		if len(submatch) < 2 {
			return match
		}

		varName := submatch[1]
		defaultValue := ""
		if len(submatch) > 2 {
			defaultValue = submatch[2]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultValue
	})

	result = simpleEnvVarPattern.ReplaceAllStringFunc(result, func(match string) string {
		varName := match[1:]
		if value := os.Getenv(varName); value != "" {
			return value
		}
		return match
	})

	return result
}

// GetConfigPath returns the path to the loaded config file, if any.
func (l *Loader) GetConfigPath() string {
	return l.v.ConfigFileUsed()
}

// LoadFromFile loads configuration from a specific file.
func LoadFromFile(path string) (*Config, error) {
	return NewLoader().WithConfigPath(path).Load()
}

// LoadFromDirectory loads configuration from a directory.
func LoadFromDirectory(dir string) (*Config, error) {
	return NewLoader().WithSearchPaths(dir).Load()
}

// WriteConfig writes the configuration to a file. Keys are written
// individually so the file round-trips through the loader.
func WriteConfig(cfg *Config, path string) error {
	const op = "config.WriteConfig"

	v := viper.New()

	v.Set("project.name", cfg.Project.Name)
	v.Set("project.version_file", cfg.Project.VersionFile)
	v.Set("project.history_file", cfg.Project.HistoryFile)
	v.Set("project.changelog_file", cfg.Project.ChangelogFile)

	v.Set("git.repo_path", cfg.Git.RepoPath)
	v.Set("git.remote", cfg.Git.Remote)
	v.Set("git.main_branch", cfg.Git.MainBranch)
	v.Set("git.require_clean", cfg.Git.RequireClean)
	v.Set("git.committer_name", cfg.Git.CommitterName)
	v.Set("git.committer_email", cfg.Git.CommitterEmail)

	v.Set("hosting.provider", cfg.Hosting.Provider)
	v.Set("hosting.base_url", cfg.Hosting.BaseURL)
	v.Set("hosting.upload_url", cfg.Hosting.UploadURL)
	v.Set("hosting.owner", cfg.Hosting.Owner)
	v.Set("hosting.repo", cfg.Hosting.Repo)
	v.Set("hosting.token", cfg.Hosting.Token)
	v.Set("hosting.retry_attempts", cfg.Hosting.RetryAttempts)
	v.Set("hosting.rate_limit_rpm", cfg.Hosting.RateLimitRPM)

	v.Set("deploy.tag_prefix", cfg.Deploy.TagPrefix)
	v.Set("deploy.wait_for_ci", cfg.Deploy.WaitForCI)
	v.Set("deploy.ci_poll_interval", cfg.Deploy.CIPollInterval.String())
	v.Set("deploy.ci_timeout", cfg.Deploy.CITimeout.String())
	v.Set("deploy.skip_merge", cfg.Deploy.SkipMerge)
	v.Set("deploy.skip_release", cfg.Deploy.SkipRelease)
	v.Set("deploy.draft_release", cfg.Deploy.DraftRelease)

	v.Set("output.format", cfg.Output.Format)
	v.Set("output.color", cfg.Output.Color)
	v.Set("output.verbose", cfg.Output.Verbose)
	v.Set("output.log_level", cfg.Output.LogLevel)

	if err := v.WriteConfigAs(path); err != nil {
		return dserrors.ConfigWrap(err, op, "failed to write config file")
	}
	return nil
}

// WriteDefaultConfig writes the default configuration to a file.
func WriteDefaultConfig(path string) error {
	return WriteConfig(DefaultConfig(), path)
}

// FindConfigFile searches for a config file and returns its path.
func FindConfigFile(searchPaths ...string) (string, error) {
	if len(searchPaths) == 0 {
		searchPaths = []string{"."}
	}

	for _, searchPath := range searchPaths {
		for _, name := range ConfigFileNames {
			for _, ext := range ConfigFileExtensions {
				configFile := filepath.Join(searchPath, name+"."+ext)
				if _, err := os.Stat(configFile); err == nil {
					return configFile, nil
				}
			}
		}
	}

	return "", dserrors.NotFound("config.FindConfigFile", "no config file found")
}

// ConfigExists returns true if a config file exists in the given directory.
func ConfigExists(dir string) bool {
	_, err := FindConfigFile(dir)
	return err == nil
}
