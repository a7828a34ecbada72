// Package git provides the go-git implementation of the source control
// port.
package git

import (
	"context"
	"errors"
	"fmt"
	"os/user"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	gogit "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"

	deverrors "github.com/devsync-tools/devsync/internal/errors"
	"github.com/devsync-tools/devsync/internal/domain/sourcecontrol"
)

// Default timeouts for git operations to prevent hangs on slow or
// unreachable remotes.
const (
	// DefaultLocalTimeout is the timeout for local git operations.
	DefaultLocalTimeout = 30 * time.Second

	// DefaultRemoteTimeout is the timeout for network git operations.
	DefaultRemoteTimeout = 60 * time.Second
)

// ClientConfig configures the git client.
type ClientConfig struct {
	// RepoPath is the repository root, defaulting to the working
	// directory.
	RepoPath string
	// Remote is the remote name, defaulting to origin.
	Remote string
	// MainBranch is the integration branch, defaulting to main.
	MainBranch string
	// RequireCleanTree makes ValidateRepo reject a dirty working tree.
	RequireCleanTree bool
	// Token authenticates pushes over HTTPS when set.
	Token string
	// CommitterName overrides the configured committer for tags.
	CommitterName string
	// CommitterEmail overrides the configured committer email.
	CommitterEmail string
}

// DefaultClientConfig returns the default client configuration.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		RepoPath:   ".",
		Remote:     "origin",
		MainBranch: "main",
	}
}

// Ensure Client implements the domain port.
var _ sourcecontrol.Client = (*Client)(nil)

// Client is the go-git implementation of sourcecontrol.Client.
type Client struct {
	cfg      ClientConfig
	repo     *gogit.Repository
	worktree *gogit.Worktree
	auth     transport.AuthMethod
}

// NewClient opens the repository at cfg.RepoPath.
func NewClient(cfg ClientConfig) (*Client, error) {
	const op = "git.NewClient"

	if cfg.RepoPath == "" {
		cfg.RepoPath = "."
	}
	if cfg.Remote == "" {
		cfg.Remote = "origin"
	}
	if cfg.MainBranch == "" {
		cfg.MainBranch = "main"
	}

	absPath, err := filepath.Abs(cfg.RepoPath)
	if err != nil {
		return nil, deverrors.GitWrap(err, op, "failed to get absolute path")
	}

	repo, err := gogit.PlainOpen(absPath)
	if err != nil {
		if errors.Is(err, gogit.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%w: %s", sourcecontrol.ErrNotARepository, absPath)
		}
		return nil, deverrors.GitWrap(err, op, "failed to open repository")
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return nil, deverrors.GitWrap(err, op, "failed to get worktree")
	}

	c := &Client{cfg: cfg, repo: repo, worktree: worktree}
	if cfg.Token != "" {
		c.auth = &githttp.BasicAuth{Username: "git", Password: cfg.Token}
	}
	return c, nil
}

// ValidateRepo checks that the repository has a HEAD commit and the
// configured remote.
func (c *Client) ValidateRepo(ctx context.Context) error {
	const op = "git.ValidateRepo"
	ctx, cancel := withLocalTimeout(ctx)
	defer cancel()

	if err := checkContext(ctx); err != nil {
		return err
	}

	if _, err := c.repo.Head(); err != nil {
		return deverrors.GitWrap(err, op, "repository has no commits")
	}
	if _, err := c.repo.Remote(c.cfg.Remote); err != nil {
		return fmt.Errorf("%w: %s", sourcecontrol.ErrRemoteNotFound, c.cfg.Remote)
	}

	if c.cfg.RequireCleanTree {
		status, err := c.worktree.Status()
		if err != nil {
			return deverrors.GitWrap(err, op, "failed to get worktree status")
		}
		if !status.IsClean() {
			return fmt.Errorf("%w: commit or stash before deploying", sourcecontrol.ErrWorkingTreeDirty)
		}
	}
	return nil
}

// CurrentBranch returns the name of the checked-out branch.
func (c *Client) CurrentBranch(_ context.Context) (string, error) {
	const op = "git.CurrentBranch"

	head, err := c.repo.Head()
	if err != nil {
		return "", deverrors.GitWrap(err, op, "failed to get HEAD")
	}
	if !head.Name().IsBranch() {
		return "", deverrors.Git(op, "HEAD is not on a branch (detached HEAD)")
	}
	return head.Name().Short(), nil
}

// Status reports the working tree state.
func (c *Client) Status(ctx context.Context) (*sourcecontrol.WorkingTreeStatus, error) {
	const op = "git.Status"

	status, err := c.worktree.Status()
	if err != nil {
		return nil, deverrors.GitWrap(err, op, "failed to get worktree status")
	}

	result := &sourcecontrol.WorkingTreeStatus{IsClean: status.IsClean()}
	if branch, err := c.CurrentBranch(ctx); err == nil {
		result.Branch = branch
	}
	for path, st := range status {
		switch {
		case st.Worktree == gogit.Untracked:
			result.Untracked = append(result.Untracked, path)
		case st.Worktree != gogit.Unmodified || st.Staging != gogit.Unmodified:
			result.Modified = append(result.Modified, path)
		}
	}
	sort.Strings(result.Modified)
	sort.Strings(result.Untracked)
	return result, nil
}

// CreateAndCheckoutBranch creates the branch from HEAD and checks it
// out. An existing branch of the same name is checked out instead.
func (c *Client) CreateAndCheckoutBranch(ctx context.Context, branch string) error {
	const op = "git.CreateAndCheckoutBranch"

	if err := checkContext(ctx); err != nil {
		return err
	}

	refName := plumbing.NewBranchReferenceName(branch)
	opts := &gogit.CheckoutOptions{Branch: refName, Keep: true}
	if _, err := c.repo.Reference(refName, true); err != nil {
		opts.Create = true
	}
	if err := c.worktree.Checkout(opts); err != nil {
		return deverrors.GitWrap(err, op, fmt.Sprintf("failed to check out branch %s", branch))
	}
	return nil
}

// CommitAndPush stages, commits, and pushes the current branch.
func (c *Client) CommitAndPush(ctx context.Context, req sourcecontrol.CommitRequest) (sourcecontrol.CommitHash, error) {
	const op = "git.CommitAndPush"
	ctx, cancel := withRemoteTimeout(ctx)
	defer cancel()

	if err := checkContext(ctx); err != nil {
		return "", err
	}

	if len(req.Paths) == 0 {
		if err := c.worktree.AddWithOptions(&gogit.AddOptions{All: true}); err != nil {
			return "", deverrors.GitWrap(err, op, "failed to stage changes")
		}
	} else {
		for _, path := range req.Paths {
			if _, err := c.worktree.Add(path); err != nil {
				return "", deverrors.GitWrap(err, op, fmt.Sprintf("failed to stage %s", path))
			}
		}
	}

	status, err := c.worktree.Status()
	if err != nil {
		return "", deverrors.GitWrap(err, op, "failed to get worktree status")
	}
	if status.IsClean() {
		return "", sourcecontrol.ErrNothingToCommit
	}

	sig, err := c.signature(ctx)
	if err != nil {
		return "", err
	}

	hash, err := c.worktree.Commit(req.Message, &gogit.CommitOptions{Author: sig})
	if err != nil {
		return "", deverrors.GitWrap(err, op, "failed to commit")
	}

	branch, err := c.CurrentBranch(ctx)
	if err != nil {
		return "", err
	}
	if err := c.pushBranch(branch); err != nil {
		return "", err
	}

	return sourcecontrol.CommitHash(hash.String()), nil
}

// MergeToMain checks out the main branch, fast-forwards it to the given
// branch, and pushes the result. HEAD stays on main so tagging happens
// on the merged commit.
func (c *Client) MergeToMain(ctx context.Context, branch string) error {
	const op = "git.MergeToMain"
	ctx, cancel := withRemoteTimeout(ctx)
	defer cancel()

	if err := checkContext(ctx); err != nil {
		return err
	}

	main := c.cfg.MainBranch
	if err := c.worktree.Checkout(&gogit.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(main),
	}); err != nil {
		return deverrors.GitWrap(err, op, fmt.Sprintf("failed to check out %s", main))
	}

	pullErr := c.worktree.Pull(&gogit.PullOptions{
		RemoteName:    c.cfg.Remote,
		ReferenceName: plumbing.NewBranchReferenceName(main),
		Auth:          c.auth,
	})
	if pullErr != nil &&
		!errors.Is(pullErr, gogit.NoErrAlreadyUpToDate) &&
		!errors.Is(pullErr, transport.ErrEmptyRemoteRepository) {
		return deverrors.GitWrap(pullErr, op, fmt.Sprintf("failed to pull %s", main))
	}

	ref, err := c.repo.Reference(plumbing.NewBranchReferenceName(branch), true)
	if err != nil {
		return fmt.Errorf("%w: %s", sourcecontrol.ErrBranchNotFound, branch)
	}

	if err := c.repo.Merge(*ref, gogit.MergeOptions{
		Strategy: gogit.FastForwardMerge,
	}); err != nil {
		if errors.Is(err, gogit.ErrFastForwardMergeNotPossible) {
			return &sourcecontrol.MergeConflictError{Branch: branch, Target: main}
		}
		return deverrors.GitWrap(err, op, fmt.Sprintf("failed to merge %s into %s", branch, main))
	}

	return c.pushBranch(main)
}

// CreateTag creates an annotated tag at HEAD and pushes it.
func (c *Client) CreateTag(ctx context.Context, name, message string) error {
	const op = "git.CreateTag"
	ctx, cancel := withRemoteTimeout(ctx)
	defer cancel()

	if err := checkContext(ctx); err != nil {
		return err
	}

	head, err := c.repo.Head()
	if err != nil {
		return deverrors.GitWrap(err, op, "failed to get HEAD")
	}

	sig, err := c.signature(ctx)
	if err != nil {
		return err
	}

	_, err = c.repo.CreateTag(name, head.Hash(), &gogit.CreateTagOptions{
		Message: message,
		Tagger:  sig,
	})
	if err != nil {
		if errors.Is(err, gogit.ErrTagExists) {
			return fmt.Errorf("%w: %s", sourcecontrol.ErrTagAlreadyExists, name)
		}
		return deverrors.GitWrap(err, op, fmt.Sprintf("failed to create tag %s", name))
	}

	refSpec := gitconfig.RefSpec(fmt.Sprintf("refs/tags/%s:refs/tags/%s", name, name))
	err = c.repo.Push(&gogit.PushOptions{
		RemoteName: c.cfg.Remote,
		RefSpecs:   []gitconfig.RefSpec{refSpec},
		Auth:       c.auth,
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return c.mapPushError(err, op, fmt.Sprintf("failed to push tag %s", name))
	}
	return nil
}

// HeadCommitHash returns the hash of the current HEAD.
func (c *Client) HeadCommitHash(_ context.Context) (sourcecontrol.CommitHash, error) {
	head, err := c.repo.Head()
	if err != nil {
		return "", deverrors.GitWrap(err, "git.HeadCommitHash", "failed to get HEAD")
	}
	return sourcecontrol.CommitHash(head.Hash().String()), nil
}

// Username returns the configured committer name, falling back to the
// OS user.
func (c *Client) Username(_ context.Context) (string, error) {
	if c.cfg.CommitterName != "" {
		return c.cfg.CommitterName, nil
	}

	if cfg, err := c.repo.ConfigScoped(gitconfig.SystemScope); err == nil && cfg.User.Name != "" {
		return cfg.User.Name, nil
	}

	u, err := user.Current()
	if err != nil {
		return "", deverrors.GitWrap(err, "git.Username", "no committer name configured and OS user unavailable")
	}
	return u.Username, nil
}

// RemoteURL returns the URL of the configured remote.
func (c *Client) RemoteURL(_ context.Context) (string, error) {
	remote, err := c.repo.Remote(c.cfg.Remote)
	if err != nil {
		return "", fmt.Errorf("%w: %s", sourcecontrol.ErrRemoteNotFound, c.cfg.Remote)
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", fmt.Errorf("%w: remote %s has no URLs", sourcecontrol.ErrRemoteNotFound, c.cfg.Remote)
	}
	return urls[0], nil
}

// VersionTag pairs a tag name with its parsed version.
type VersionTag struct {
	Name    string
	Version *semver.Version
	Hash    string
}

// ListVersionTags returns all tags matching the prefix that parse as
// versions, newest first.
func (c *Client) ListVersionTags(ctx context.Context, prefix string) ([]VersionTag, error) {
	const op = "git.ListVersionTags"

	iter, err := c.repo.Tags()
	if err != nil {
		return nil, deverrors.GitWrap(err, op, "failed to get tags iterator")
	}
	defer iter.Close()

	var tags []VersionTag
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		name := ref.Name().Short()
		if prefix != "" && !strings.HasPrefix(name, prefix) {
			return nil
		}
		v, parseErr := semver.NewVersion(strings.TrimPrefix(name, prefix))
		if parseErr != nil {
			return nil
		}
		tags = append(tags, VersionTag{Name: name, Version: v, Hash: ref.Hash().String()})
		return nil
	})
	if err != nil {
		return nil, deverrors.GitWrap(err, op, "failed to iterate tags")
	}

	sort.Slice(tags, func(i, j int) bool {
		return tags[i].Version.GreaterThan(tags[j].Version)
	})
	return tags, nil
}

// LatestVersionTag returns the newest version tag with the prefix, or
// nil when none exist.
func (c *Client) LatestVersionTag(ctx context.Context, prefix string) (*VersionTag, error) {
	tags, err := c.ListVersionTags(ctx, prefix)
	if err != nil {
		return nil, err
	}
	if len(tags) == 0 {
		return nil, nil
	}
	return &tags[0], nil
}

// Helper methods

func (c *Client) pushBranch(branch string) error {
	const op = "git.pushBranch"

	refSpec := gitconfig.RefSpec(fmt.Sprintf("refs/heads/%s:refs/heads/%s", branch, branch))
	err := c.repo.Push(&gogit.PushOptions{
		RemoteName: c.cfg.Remote,
		RefSpecs:   []gitconfig.RefSpec{refSpec},
		Auth:       c.auth,
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return c.mapPushError(err, op, fmt.Sprintf("failed to push %s", branch))
	}
	return nil
}

func (c *Client) mapPushError(err error, op, msg string) error {
	if errors.Is(err, transport.ErrAuthenticationRequired) || errors.Is(err, transport.ErrAuthorizationFailed) {
		return fmt.Errorf("%w: %v", sourcecontrol.ErrAuthenticationRequired, err)
	}
	if strings.Contains(err.Error(), "non-fast-forward") {
		return fmt.Errorf("%w: %v", sourcecontrol.ErrPushRejected, err)
	}
	return deverrors.GitWrap(err, op, msg)
}

func (c *Client) signature(ctx context.Context) (*object.Signature, error) {
	name := c.cfg.CommitterName
	email := c.cfg.CommitterEmail

	if name == "" || email == "" {
		if cfg, err := c.repo.ConfigScoped(gitconfig.SystemScope); err == nil {
			if name == "" {
				name = cfg.User.Name
			}
			if email == "" {
				email = cfg.User.Email
			}
		}
	}
	if name == "" {
		n, err := c.Username(ctx)
		if err != nil {
			return nil, err
		}
		name = n
	}
	if email == "" {
		email = name + "@localhost"
	}

	return &object.Signature{Name: name, Email: email, When: time.Now()}, nil
}

func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// withLocalTimeout applies a timeout for local git operations.
func withLocalTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if deadline, ok := ctx.Deadline(); ok {
		if time.Until(deadline) < DefaultLocalTimeout {
			return ctx, func() {}
		}
	}
	return context.WithTimeout(ctx, DefaultLocalTimeout)
}

// withRemoteTimeout applies a timeout for network git operations.
func withRemoteTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if deadline, ok := ctx.Deadline(); ok {
		if time.Until(deadline) < DefaultRemoteTimeout {
			return ctx, func() {}
		}
	}
	return context.WithTimeout(ctx, DefaultRemoteTimeout)
}
