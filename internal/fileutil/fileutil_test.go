package fileutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestReadFileLimited(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "small.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	data, err := ReadFileLimited(path, 1024)
	if err != nil {
		t.Fatalf("ReadFileLimited() unexpected error: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("ReadFileLimited() = %q, want hello", data)
	}
}

func TestReadFileLimitedTooLarge(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "big.txt")
	if err := os.WriteFile(path, []byte("0123456789"), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	if _, err := ReadFileLimited(path, 5); err == nil {
		t.Error("ReadFileLimited() should reject files larger than the limit")
	}
}

func TestReadFileLimitedMissing(t *testing.T) {
	t.Parallel()

	if _, err := ReadFileLimited(filepath.Join(t.TempDir(), "nope"), 16); !os.IsNotExist(err) {
		t.Errorf("ReadFileLimited(missing) error = %v, want not-exist", err)
	}
}

func TestAtomicWriteFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "out.json")

	if err := AtomicWriteFile(path, []byte("first"), 0o644); err != nil {
		t.Fatalf("AtomicWriteFile() unexpected error: %v", err)
	}
	if err := AtomicWriteFile(path, []byte("second"), 0o644); err != nil {
		t.Fatalf("AtomicWriteFile() overwrite error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "second" {
		t.Errorf("content = %q, want second", data)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %d entries", len(entries))
	}
}

func TestAtomicWriteFilePermissions(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("permission bits not honored on windows")
	}

	path := filepath.Join(t.TempDir(), "secret")
	if err := AtomicWriteFile(path, []byte("x"), 0o600); err != nil {
		t.Fatalf("AtomicWriteFile() unexpected error: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("perm = %o, want 600", info.Mode().Perm())
	}
}
