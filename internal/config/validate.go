// Package config provides configuration management for DevSync.
package config

import (
	"fmt"
	"net/url"
	"os"
	"slices"
	"strings"

	dserrors "github.com/devsync-tools/devsync/internal/errors"
)

// ValidationError contains all validation errors and warnings.
type ValidationError struct {
	Errors   []string
	Warnings []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	var parts []string

	if len(e.Errors) > 0 {
		parts = append(parts, fmt.Sprintf("Errors:\n  - %s", strings.Join(e.Errors, "\n  - ")))
	}
	if len(e.Warnings) > 0 {
		parts = append(parts, fmt.Sprintf("Warnings:\n  - %s", strings.Join(e.Warnings, "\n  - ")))
	}

	return fmt.Sprintf("configuration validation failed:\n%s", strings.Join(parts, "\n"))
}

// HasErrors returns true if there are validation errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// HasWarnings returns true if there are validation warnings.
func (e *ValidationError) HasWarnings() bool {
	return len(e.Warnings) > 0
}

// Addf adds a formatted error to the validation error.
func (e *ValidationError) Addf(format string, args ...any) {
	e.Errors = append(e.Errors, fmt.Sprintf(format, args...))
}

// Warnf adds a formatted warning to the validation error.
func (e *ValidationError) Warnf(format string, args ...any) {
	e.Warnings = append(e.Warnings, fmt.Sprintf(format, args...))
}

// Validator validates configuration.
type Validator struct {
	errors *ValidationError
}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{
		errors: &ValidationError{},
	}
}

// Validate validates the configuration.
func (v *Validator) Validate(cfg *Config) error {
	v.validateProject(cfg.Project)
	v.validateGit(cfg.Git)
	v.validateHosting(cfg.Hosting)
	v.validateDeploy(cfg.Deploy)
	v.validateOutput(cfg.Output)

	// Warnings go to stderr even when validation passes.
	if v.errors.HasWarnings() {
		fmt.Fprintf(os.Stderr, "\nConfiguration warnings:\n")
		for _, warning := range v.errors.Warnings {
			fmt.Fprintf(os.Stderr, "  - %s\n", warning)
		}
		fmt.Fprintf(os.Stderr, "\n")
	}

	if v.errors.HasErrors() {
		return dserrors.Validation("config.Validate", v.errors.Error())
	}
	return nil
}

func (v *Validator) validateProject(cfg ProjectConfig) {
	if cfg.VersionFile == "" {
		v.errors.Addf("project.version_file must not be empty")
	}
	if cfg.HistoryFile == "" {
		v.errors.Addf("project.history_file must not be empty")
	}
	if cfg.ChangelogFile == "" {
		v.errors.Warnf("project.changelog_file is empty; changelog updates will be skipped")
	}
}

func (v *Validator) validateGit(cfg GitConfig) {
	if cfg.Remote == "" {
		v.errors.Addf("git.remote must not be empty")
	}
	if cfg.MainBranch == "" {
		v.errors.Addf("git.main_branch must not be empty")
	}
	if strings.HasPrefix(cfg.MainBranch, "develop-") {
		v.errors.Addf("git.main_branch %q collides with the deploy branch namespace", cfg.MainBranch)
	}
}

func (v *Validator) validateHosting(cfg HostingConfig) {
	if cfg.Provider != "" && cfg.Provider != "github" {
		v.errors.Addf("hosting.provider %q is not supported; only \"github\"", cfg.Provider)
	}
	for _, u := range []struct {
		key   string
		value string
	}{
		{"hosting.base_url", cfg.BaseURL},
		{"hosting.upload_url", cfg.UploadURL},
	} {
		if u.value == "" {
			continue
		}
		parsed, err := url.Parse(u.value)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			v.errors.Addf("%s %q is not a valid URL", u.key, u.value)
		}
	}
	if cfg.RetryAttempts < 0 {
		v.errors.Addf("hosting.retry_attempts must not be negative")
	}
	if cfg.RateLimitRPM < 0 {
		v.errors.Addf("hosting.rate_limit_rpm must not be negative")
	}
	if (cfg.Owner == "") != (cfg.Repo == "") {
		v.errors.Addf("hosting.owner and hosting.repo must be set together")
	}
	if cfg.Token != "" && strings.HasPrefix(cfg.Token, "${") {
		v.errors.Warnf("hosting.token still contains an unexpanded variable reference")
	}
}

func (v *Validator) validateDeploy(cfg DeployConfig) {
	if cfg.CIPollInterval < 0 {
		v.errors.Addf("deploy.ci_poll_interval must not be negative")
	}
	if cfg.CITimeout < 0 {
		v.errors.Addf("deploy.ci_timeout must not be negative")
	}
	if cfg.CITimeout > 0 && cfg.CIPollInterval > cfg.CITimeout {
		v.errors.Warnf("deploy.ci_poll_interval exceeds deploy.ci_timeout; the pipeline is polled at most once")
	}
}

func (v *Validator) validateOutput(cfg OutputConfig) {
	if cfg.Format != "" && !slices.Contains([]string{"text", "json"}, cfg.Format) {
		v.errors.Addf("output.format %q is not supported; use \"text\" or \"json\"", cfg.Format)
	}
	if cfg.LogLevel != "" && !slices.Contains([]string{"debug", "info", "warn", "error"}, cfg.LogLevel) {
		v.errors.Addf("output.log_level %q is invalid", cfg.LogLevel)
	}
}

// Validate validates a configuration with a fresh validator.
func Validate(cfg *Config) error {
	return NewValidator().Validate(cfg)
}
