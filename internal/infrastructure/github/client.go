// Package github provides the GitHub REST implementation of the
// hosting port.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/ratelimit"
	"github.com/felixgeelhaar/fortify/retry"

	"github.com/devsync-tools/devsync/internal/domain/hosting"
)

// DefaultBaseURL is the GitHub REST API endpoint.
const DefaultBaseURL = "https://api.github.com"

// DefaultUploadURL is the GitHub asset upload endpoint.
const DefaultUploadURL = "https://uploads.github.com"

// maxResponseBody caps API response reads (8MB).
const maxResponseBody = 8 << 20

// maxAssetSize is the GitHub release asset limit (2GB).
const maxAssetSize = 2 << 30

// Config configures the GitHub client.
type Config struct {
	// BaseURL overrides the API endpoint, for GitHub Enterprise or
	// tests.
	BaseURL string
	// UploadURL overrides the asset upload endpoint.
	UploadURL string
	// Token is the API token. Required.
	Token string
	// Owner and Repo identify the repository.
	Owner string
	Repo  string
	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client

	// RetryAttempts bounds request retries (0 disables retry).
	RetryAttempts int
	// RateLimitRPM bounds outgoing requests per minute (0 disables).
	RateLimitRPM int
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:       DefaultBaseURL,
		UploadURL:     DefaultUploadURL,
		RetryAttempts: 3,
		RateLimitRPM:  60,
	}
}

// Ensure Client implements the domain ports.
var (
	_ hosting.Client         = (*Client)(nil)
	_ hosting.PipelineWaiter = (*Client)(nil)
)

// Client talks to the GitHub REST API v3.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter ratelimit.RateLimiter
	retrier retry.Retry[[]byte]
	breaker circuitbreaker.CircuitBreaker[[]byte]
}

// NewClient creates a GitHub client for owner/repo.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Token == "" {
		return nil, hosting.ErrNoToken
	}
	if cfg.Owner == "" || cfg.Repo == "" {
		return nil, fmt.Errorf("github: owner and repo are required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.UploadURL == "" {
		cfg.UploadURL = DefaultUploadURL
	}

	c := &Client{cfg: cfg, http: cfg.HTTPClient}
	if c.http == nil {
		c.http = &http.Client{Timeout: 30 * time.Second}
	}

	if cfg.RateLimitRPM > 0 {
		c.limiter = ratelimit.New(&ratelimit.Config{
			Rate:     cfg.RateLimitRPM,
			Burst:    cfg.RateLimitRPM * 2,
			Interval: time.Minute,
		})
	}
	if cfg.RetryAttempts > 0 {
		c.retrier = retry.New[[]byte](retry.Config{
			MaxAttempts:   cfg.RetryAttempts,
			InitialDelay:  500 * time.Millisecond,
			MaxDelay:      10 * time.Second,
			BackoffPolicy: retry.BackoffExponential,
			Multiplier:    2.0,
			Jitter:        true,
			IsRetryable:   isRetryable,
		})
	}
	c.breaker = circuitbreaker.New[[]byte](circuitbreaker.Config{
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts circuitbreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return c, nil
}

// Close releases resilience resources.
func (c *Client) Close() error {
	if c.limiter != nil {
		return c.limiter.Close()
	}
	return nil
}

// ParseRemoteURL extracts owner and repo from a git remote URL.
// Supports https://github.com/owner/repo.git, git@github.com:owner/repo
// and ssh://git@github.com/owner/repo.
func ParseRemoteURL(remote string) (owner, repo string, err error) {
	s := strings.TrimSuffix(strings.TrimSpace(remote), ".git")

	// SCP-like syntax: git@host:owner/repo
	if at := strings.Index(s, "@"); at != -1 && !strings.Contains(s, "://") {
		if colon := strings.Index(s[at:], ":"); colon != -1 {
			s = s[at+colon+1:]
			parts := strings.Split(s, "/")
			if len(parts) >= 2 {
				return parts[0], parts[1], nil
			}
		}
		return "", "", fmt.Errorf("github: cannot parse remote url %q", remote)
	}

	u, parseErr := url.Parse(s)
	if parseErr != nil {
		return "", "", fmt.Errorf("github: cannot parse remote url %q: %w", remote, parseErr)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("github: cannot parse remote url %q", remote)
	}
	return parts[0], parts[1], nil
}

// releaseRequest is the create-release payload.
type releaseRequest struct {
	TagName    string `json:"tag_name"`
	Name       string `json:"name,omitempty"`
	Body       string `json:"body,omitempty"`
	Draft      bool   `json:"draft"`
	Prerelease bool   `json:"prerelease"`
}

// releaseResponse is the subset of the release resource we use.
type releaseResponse struct {
	ID         int64     `json:"id"`
	TagName    string    `json:"tag_name"`
	Name       string    `json:"name"`
	HTMLURL    string    `json:"html_url"`
	Draft      bool      `json:"draft"`
	Prerelease bool      `json:"prerelease"`
	CreatedAt  time.Time `json:"created_at"`
}

// CreateRelease publishes a release and returns its web URL.
func (c *Client) CreateRelease(ctx context.Context, desc hosting.ReleaseDescriptor) (string, error) {
	const op = "github.CreateRelease"

	payload, err := json.Marshal(releaseRequest{
		TagName:    desc.TagName,
		Name:       desc.Name,
		Body:       desc.Body,
		Draft:      desc.Draft,
		Prerelease: desc.Prerelease,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	body, err := c.execute(ctx, op, http.MethodPost,
		c.apiURL("/releases"), "application/json", payload)
	if err != nil {
		return "", err
	}

	var rel releaseResponse
	if err := json.Unmarshal(body, &rel); err != nil {
		return "", fmt.Errorf("%s: failed to decode response: %w", op, err)
	}
	return rel.HTMLURL, nil
}

// ListReleases returns the most recent releases, newest first.
func (c *Client) ListReleases(ctx context.Context, limit int) ([]hosting.Release, error) {
	const op = "github.ListReleases"

	if limit <= 0 || limit > 100 {
		limit = 30
	}
	body, err := c.execute(ctx, op, http.MethodGet,
		c.apiURL("/releases")+"?per_page="+strconv.Itoa(limit), "", nil)
	if err != nil {
		return nil, err
	}

	var raw []releaseResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%s: failed to decode response: %w", op, err)
	}

	releases := make([]hosting.Release, len(raw))
	for i, r := range raw {
		releases[i] = hosting.Release{
			ID:         r.ID,
			TagName:    r.TagName,
			Name:       r.Name,
			URL:        r.HTMLURL,
			Draft:      r.Draft,
			Prerelease: r.Prerelease,
			CreatedAt:  r.CreatedAt,
		}
	}
	return releases, nil
}

// UploadAsset attaches a file to a release.
func (c *Client) UploadAsset(ctx context.Context, releaseID int64, asset hosting.Asset) error {
	const op = "github.UploadAsset"

	info, err := os.Stat(asset.Path)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if info.Size() > maxAssetSize {
		return fmt.Errorf("%s: %w", op, hosting.ErrAssetTooLarge)
	}

	data, err := os.ReadFile(asset.Path)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	name := asset.Name
	if name == "" {
		name = filepath.Base(asset.Path)
	}
	contentType := asset.ContentType
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(name))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	uploadURL := fmt.Sprintf("%s/repos/%s/%s/releases/%d/assets?name=%s",
		strings.TrimSuffix(c.cfg.UploadURL, "/"),
		c.cfg.Owner, c.cfg.Repo, releaseID, url.QueryEscape(name))

	_, err = c.execute(ctx, op, http.MethodPost, uploadURL, contentType, data)
	return err
}

// statusResponse is the combined status resource.
type statusResponse struct {
	State      string `json:"state"`
	TotalCount int    `json:"total_count"`
}

// PipelineStatus reports the combined CI state for a ref.
func (c *Client) PipelineStatus(ctx context.Context, ref string) (hosting.PipelineState, error) {
	const op = "github.PipelineStatus"

	body, err := c.execute(ctx, op, http.MethodGet,
		c.apiURL("/commits/"+url.PathEscape(ref)+"/status"), "", nil)
	if err != nil {
		return hosting.PipelinePending, err
	}

	var status statusResponse
	if err := json.Unmarshal(body, &status); err != nil {
		return hosting.PipelinePending, fmt.Errorf("%s: failed to decode response: %w", op, err)
	}

	// No checks configured counts as success.
	if status.TotalCount == 0 {
		return hosting.PipelineSuccess, nil
	}
	switch status.State {
	case "success":
		return hosting.PipelineSuccess, nil
	case "failure", "error":
		return hosting.PipelineFailure, nil
	default:
		return hosting.PipelinePending, nil
	}
}

// WaitForPipeline polls the combined status until it settles or the
// timeout passes.
func (c *Client) WaitForPipeline(ctx context.Context, ref string, interval, timeout time.Duration) (hosting.PipelineState, error) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		state, err := c.PipelineStatus(ctx, ref)
		if err != nil {
			if ctx.Err() != nil {
				return hosting.PipelinePending, pollExitErr(ctx, err)
			}
			return hosting.PipelinePending, err
		}
		if state != hosting.PipelinePending {
			return state, nil
		}

		select {
		case <-ctx.Done():
			return hosting.PipelinePending, pollExitErr(ctx, nil)
		case <-ticker.C:
		}
	}
}

func pollExitErr(ctx context.Context, cause error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return hosting.ErrCITimeout
	}
	if cause != nil {
		return cause
	}
	return ctx.Err()
}

// Request plumbing

func (c *Client) apiURL(path string) string {
	return fmt.Sprintf("%s/repos/%s/%s%s",
		strings.TrimSuffix(c.cfg.BaseURL, "/"), c.cfg.Owner, c.cfg.Repo, path)
}

// execute runs one API call through the rate limiter, circuit breaker,
// and retrier, returning the response body.
func (c *Client) execute(ctx context.Context, op, method, rawURL, contentType string, payload []byte) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, "github-api"); err != nil {
			return nil, err
		}
	}

	do := func(ctx context.Context) ([]byte, error) {
		return c.doRequest(ctx, op, method, rawURL, contentType, payload)
	}

	return c.breaker.Execute(ctx, func(ctx context.Context) ([]byte, error) {
		if c.retrier != nil {
			return c.retrier.Do(ctx, do)
		}
		return do(ctx)
	})
}

func (c *Client) doRequest(ctx context.Context, op, method, rawURL, contentType string, payload []byte) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &hosting.NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, &hosting.NetworkError{Op: op, Err: err}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}
	return nil, mapStatusError(resp, body)
}

// apiError is the GitHub error envelope.
type apiError struct {
	Message string `json:"message"`
	Errors  []struct {
		Code  string `json:"code"`
		Field string `json:"field"`
	} `json:"errors"`
}

func mapStatusError(resp *http.Response, body []byte) error {
	var apiErr apiError
	_ = json.Unmarshal(body, &apiErr)
	msg := apiErr.Message
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return &hosting.AuthError{StatusCode: resp.StatusCode, Message: msg}
	case http.StatusForbidden, http.StatusTooManyRequests:
		if resp.Header.Get("X-RateLimit-Remaining") == "0" ||
			resp.StatusCode == http.StatusTooManyRequests ||
			strings.Contains(strings.ToLower(msg), "rate limit") {
			retryAfter, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
			return &hosting.RateLimitedError{RetryAfter: retryAfter}
		}
		return &hosting.AuthError{StatusCode: resp.StatusCode, Message: msg}
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", hosting.ErrReleaseNotFound, msg)
	case http.StatusRequestEntityTooLarge:
		return fmt.Errorf("%w: %s", hosting.ErrAssetTooLarge, msg)
	case http.StatusUnprocessableEntity:
		for _, e := range apiErr.Errors {
			if e.Code == "already_exists" {
				return fmt.Errorf("%w: %s", hosting.ErrDuplicateTag, e.Field)
			}
		}
		return fmt.Errorf("github: validation failed (status 422): %s", msg)
	default:
		return fmt.Errorf("github: unexpected status %d: %s", resp.StatusCode, msg)
	}
}

// isRetryable reports whether a request error is worth retrying.
// Auth failures, duplicates, and validation errors are final.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr *hosting.NetworkError
	if errors.As(err, &netErr) {
		return true
	}
	var rateErr *hosting.RateLimitedError
	if errors.As(err, &rateErr) {
		return true
	}
	var authErr *hosting.AuthError
	if errors.As(err, &authErr) {
		return false
	}
	if errors.Is(err, hosting.ErrDuplicateTag) || errors.Is(err, hosting.ErrAssetTooLarge) ||
		errors.Is(err, hosting.ErrReleaseNotFound) {
		return false
	}

	return strings.Contains(err.Error(), "unexpected status 5")
}
