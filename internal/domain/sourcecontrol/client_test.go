package sourcecontrol

import (
	"errors"
	"strings"
	"testing"
)

func TestDevelopBranch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		username string
		want     string
	}{
		{"simple", "alice", "develop-alice"},
		{"uppercase", "Alice", "develop-alice"},
		{"full name", "Alice Smith", "develop-alice-smith"},
		{"extra whitespace", "  Alice   Smith  ", "develop-alice-smith"},
		{"illegal characters", "alice~^:?*[smith", "develop-alicesmith"},
		{"empty", "", "develop-unknown"},
		{"only illegal", "~~~", "develop-unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := DevelopBranch(tt.username); got != tt.want {
				t.Errorf("DevelopBranch(%q) = %q, want %q", tt.username, got, tt.want)
			}
		})
	}
}

func TestCommitHashShort(t *testing.T) {
	t.Parallel()

	h := CommitHash("0123456789abcdef")
	if h.Short() != "0123456" {
		t.Errorf("Short() = %q, want 0123456", h.Short())
	}
	if CommitHash("abc").Short() != "abc" {
		t.Error("short hashes pass through unchanged")
	}
}

func TestMergeConflictError(t *testing.T) {
	t.Parallel()

	err := &MergeConflictError{
		Branch: "develop-alice",
		Target: "main",
		Paths:  []string{"version.txt", "CHANGELOG.md"},
	}

	var conflict *MergeConflictError
	if !errors.As(error(err), &conflict) {
		t.Fatal("errors.As should match MergeConflictError")
	}
	if !strings.Contains(err.Error(), "version.txt") {
		t.Errorf("Error() should list conflicting paths, got %q", err.Error())
	}
	if !strings.Contains(err.Error(), "develop-alice into main") {
		t.Errorf("Error() should name branches, got %q", err.Error())
	}
}
