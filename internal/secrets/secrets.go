// Package secrets resolves credentials such as the code-hosting API
// token from layered sources.
package secrets

import (
	"os"
	"strings"
	"sync"
)

// GitHubTokenEnv is the environment variable consulted when no token is
// configured explicitly.
const GitHubTokenEnv = "GITHUB_TOKEN"

// Store looks up named secrets.
type Store interface {
	// Get returns the secret for key and whether it was found.
	Get(key string) (string, bool)
}

// Static is an in-memory store seeded from configuration.
type Static struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewStatic creates a static store from the given values.
func NewStatic(values map[string]string) *Static {
	copied := make(map[string]string, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return &Static{values: copied}
}

// Get returns the stored secret for key.
func (s *Static) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok && v != ""
}

// Set stores a secret under key.
func (s *Static) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// Env resolves secrets from environment variables. Keys are mapped to
// variable names verbatim.
type Env struct{}

// Get returns the environment variable named key.
func (Env) Get(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	return v, ok && v != ""
}

// Chain queries stores in order and returns the first hit.
type Chain []Store

// Get returns the first non-empty secret found across the chain.
func (c Chain) Get(key string) (string, bool) {
	for _, s := range c {
		if v, ok := s.Get(key); ok {
			return v, true
		}
	}
	return "", false
}

// ResolveGitHubToken returns the hosting token: an explicitly configured
// value wins, then the GITHUB_TOKEN environment variable. An empty
// result means release publication should be skipped.
func ResolveGitHubToken(configured string) (string, bool) {
	chain := Chain{
		NewStatic(map[string]string{GitHubTokenEnv: strings.TrimSpace(configured)}),
		Env{},
	}
	return chain.Get(GitHubTokenEnv)
}

// Redact replaces every occurrence of each secret in s with a mask so
// tokens never reach logs or event payloads.
func Redact(s string, secretValues ...string) string {
	for _, secret := range secretValues {
		if secret == "" {
			continue
		}
		s = strings.ReplaceAll(s, secret, "***")
	}
	return s
}
