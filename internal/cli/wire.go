package cli

import (
	"context"
	"path/filepath"

	"github.com/devsync-tools/devsync/internal/application/deploy"
	"github.com/devsync-tools/devsync/internal/changelog"
	"github.com/devsync-tools/devsync/internal/infrastructure/git"
	"github.com/devsync-tools/devsync/internal/infrastructure/github"
	"github.com/devsync-tools/devsync/internal/infrastructure/persistence"
	"github.com/devsync-tools/devsync/internal/secrets"
)

// projectPath resolves a project file path relative to the repository
// root.
func projectPath(file string) string {
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(cfg.Git.RepoPath, file)
}

// newVersionStore builds the version store from the project config.
func newVersionStore() *persistence.VersionStore {
	return persistence.NewVersionStore(
		projectPath(cfg.Project.VersionFile),
		projectPath(cfg.Project.HistoryFile),
	)
}

// newChangelogStore builds the changelog store from the project config.
func newChangelogStore() *changelog.Store {
	return changelog.NewStore(projectPath(cfg.Project.ChangelogFile))
}

// newGitClient builds the source-control client from the git config.
func newGitClient() (*git.Client, error) {
	gitCfg := git.DefaultClientConfig()
	gitCfg.RepoPath = cfg.Git.RepoPath
	gitCfg.Remote = cfg.Git.Remote
	gitCfg.MainBranch = cfg.Git.MainBranch
	gitCfg.RequireCleanTree = cfg.Git.RequireClean
	gitCfg.CommitterName = cfg.Git.CommitterName
	gitCfg.CommitterEmail = cfg.Git.CommitterEmail
	if token, ok := secrets.ResolveGitHubToken(cfg.Hosting.Token); ok {
		gitCfg.Token = token
	}
	return git.NewClient(gitCfg)
}

// newHostClient builds the hosting client, or returns nil when no token
// is available. Owner and repo fall back to the git remote URL.
func newHostClient(ctx context.Context, gitClient *git.Client) (*github.Client, error) {
	token, ok := secrets.ResolveGitHubToken(cfg.Hosting.Token)
	if !ok {
		return nil, nil
	}

	hostCfg := github.DefaultConfig()
	hostCfg.Token = token
	hostCfg.Owner = cfg.Hosting.Owner
	hostCfg.Repo = cfg.Hosting.Repo
	hostCfg.RetryAttempts = cfg.Hosting.RetryAttempts
	hostCfg.RateLimitRPM = cfg.Hosting.RateLimitRPM
	if cfg.Hosting.BaseURL != "" {
		hostCfg.BaseURL = cfg.Hosting.BaseURL
	}
	if cfg.Hosting.UploadURL != "" {
		hostCfg.UploadURL = cfg.Hosting.UploadURL
	}

	if hostCfg.Owner == "" || hostCfg.Repo == "" {
		remote, err := gitClient.RemoteURL(ctx)
		if err != nil {
			return nil, err
		}
		owner, repo, err := github.ParseRemoteURL(remote)
		if err != nil {
			return nil, err
		}
		hostCfg.Owner = owner
		hostCfg.Repo = repo
	}

	return github.NewClient(hostCfg)
}

// newOrchestrator wires the deployment orchestrator and its
// collaborators. The returned cleanup releases the hosting client.
func newOrchestrator(ctx context.Context) (*deploy.Orchestrator, func(), error) {
	gitClient, err := newGitClient()
	if err != nil {
		return nil, nil, err
	}

	host, err := newHostClient(ctx, gitClient)
	if err != nil {
		return nil, nil, err
	}

	orchCfg := deploy.DefaultConfig()
	orchCfg.MainBranch = cfg.Git.MainBranch
	orchCfg.TagPrefix = cfg.Deploy.TagPrefix
	orchCfg.CIPollInterval = cfg.Deploy.CIPollInterval
	orchCfg.CITimeout = cfg.Deploy.CITimeout
	if token, ok := secrets.ResolveGitHubToken(cfg.Hosting.Token); ok {
		orchCfg.Token = token
	}

	cleanup := func() {}
	var orch *deploy.Orchestrator
	if host != nil {
		orch = deploy.New(orchCfg, gitClient, host, host, newVersionStore(), newChangelogStore(), logger)
		cleanup = func() { _ = host.Close() }
	} else {
		orch = deploy.New(orchCfg, gitClient, nil, nil, newVersionStore(), newChangelogStore(), logger)
	}
	return orch, cleanup, nil
}
