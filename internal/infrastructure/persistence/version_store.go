// Package persistence provides file-based storage for the current
// version and the deployment history.
package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/devsync-tools/devsync/internal/domain/deployment"
	"github.com/devsync-tools/devsync/internal/domain/version"
	"github.com/devsync-tools/devsync/internal/fileutil"
)

// MaxVersionFileSize caps the version file read (1KB is generous for a
// single version string).
const MaxVersionFileSize = 1 << 10

// MaxHistoryFileSize caps the history file read (4MB).
const MaxHistoryFileSize = 4 << 20

// ErrVersionFileMissing indicates no version file exists yet.
var ErrVersionFileMissing = fmt.Errorf("version file missing")

// checkContext returns the context error when it is already canceled.
func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// VersionStore persists the current version and an append-only
// deployment history as files next to the project.
type VersionStore struct {
	versionPath string
	historyPath string
	mu          sync.RWMutex
}

// NewVersionStore creates a store over the given file paths. Neither
// file needs to exist yet.
func NewVersionStore(versionPath, historyPath string) *VersionStore {
	return &VersionStore{versionPath: versionPath, historyPath: historyPath}
}

// VersionPath returns the version file path.
func (s *VersionStore) VersionPath() string { return s.versionPath }

// HistoryPath returns the history file path.
func (s *VersionStore) HistoryPath() string { return s.historyPath }

// Current reads the version file. A missing file returns
// ErrVersionFileMissing so callers can fall back to an initial version.
func (s *VersionStore) Current(ctx context.Context) (version.Version, error) {
	if err := checkContext(ctx); err != nil {
		return version.Zero, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := fileutil.ReadFileLimited(s.versionPath, MaxVersionFileSize)
	if err != nil {
		if os.IsNotExist(err) {
			return version.Zero, ErrVersionFileMissing
		}
		return version.Zero, fmt.Errorf("failed to read version file: %w", err)
	}

	v, err := version.Parse(strings.TrimSpace(string(data)))
	if err != nil {
		return version.Zero, fmt.Errorf("version file %s: %w", s.versionPath, err)
	}
	return v, nil
}

// WriteCurrent atomically replaces the version file.
func (s *VersionStore) WriteCurrent(ctx context.Context, v version.Version) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := fileutil.AtomicWriteFile(s.versionPath, []byte(v.String()+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write version file: %w", err)
	}
	return nil
}

// AppendHistory adds a record to the end of the history file. Existing
// records are never rewritten.
func (s *VersionStore) AppendHistory(ctx context.Context, rec deployment.Record) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.readHistory()
	if err != nil {
		return err
	}
	records = append(records, rec)
	return s.writeHistory(records)
}

// History returns all deployment records, oldest first. A missing file
// yields an empty history.
func (s *VersionStore) History(ctx context.Context) ([]deployment.Record, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.readHistory()
}

// Rollback sets the current version to target and appends a rollback
// record. When the target matches a past successful deployment, its
// branch and commit carry over onto the record; otherwise the record
// has neither.
func (s *VersionStore) Rollback(ctx context.Context, target version.Version, user string) (deployment.Record, error) {
	if err := checkContext(ctx); err != nil {
		return deployment.Record{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.readHistory()
	if err != nil {
		return deployment.Record{}, err
	}

	var branch, commit string
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].Success && records[i].Version == target.String() {
			branch = records[i].Branch
			commit = records[i].CommitHash
			break
		}
	}

	if err := fileutil.AtomicWriteFile(s.versionPath, []byte(target.String()+"\n"), 0o644); err != nil {
		return deployment.Record{}, fmt.Errorf("failed to write version file: %w", err)
	}

	rec := deployment.NewRecord(target, branch, commit, user, true, "rollback")
	records = append(records, rec)
	if err := s.writeHistory(records); err != nil {
		return deployment.Record{}, err
	}
	return rec, nil
}

func (s *VersionStore) readHistory() ([]deployment.Record, error) {
	data, err := fileutil.ReadFileLimited(s.historyPath, MaxHistoryFileSize)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read history file: %w", err)
	}

	var records []deployment.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to unmarshal history: %w", err)
	}
	return records, nil
}

func (s *VersionStore) writeHistory(records []deployment.Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}
	if err := fileutil.AtomicWriteFile(s.historyPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write history file: %w", err)
	}
	return nil
}
