package changelog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "CHANGELOG.md"))
}

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return d
}

func TestAddEntryCreatesFile(t *testing.T) {
	t.Parallel()

	store := testStore(t)
	err := store.AddEntry(Entry{
		Version: "1.0.0",
		Date:    date(t, "2026-08-27"),
		Body:    "- Initial release",
	})
	if err != nil {
		t.Fatalf("AddEntry() unexpected error: %v", err)
	}

	data, err := os.ReadFile(store.Path())
	if err != nil {
		t.Fatalf("read changelog: %v", err)
	}
	content := string(data)

	if !strings.HasPrefix(content, Header+"\n") {
		t.Errorf("changelog should start with header, got %q", content)
	}
	if !strings.Contains(content, "## [1.0.0] - 2026-08-27") {
		t.Errorf("missing entry heading in %q", content)
	}
	if !strings.Contains(content, "- Initial release") {
		t.Errorf("missing entry body in %q", content)
	}
}

func TestAddEntryNewestFirst(t *testing.T) {
	t.Parallel()

	store := testStore(t)
	for _, v := range []string{"1.0.0", "1.0.1a", "1.0.1"} {
		err := store.AddEntry(Entry{Version: v, Date: date(t, "2026-08-27"), Body: "notes for " + v})
		if err != nil {
			t.Fatalf("AddEntry(%s): %v", v, err)
		}
	}

	entries, err := store.Entries()
	if err != nil {
		t.Fatalf("Entries() unexpected error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("len(entries) = %d, want 3", len(entries))
	}

	want := []string{"1.0.1", "1.0.1a", "1.0.0"}
	for i, v := range want {
		if entries[i].Version != v {
			t.Errorf("entries[%d].Version = %s, want %s", i, entries[i].Version, v)
		}
	}

	data, _ := os.ReadFile(store.Path())
	if strings.Count(string(data), Header) != 1 {
		t.Errorf("header should appear exactly once:\n%s", data)
	}
}

func TestAddEntryPreservesPreamble(t *testing.T) {
	t.Parallel()

	store := testStore(t)
	seed := "# Changelog\n\nAll notable changes are documented here.\n\n## [0.9.0] - 2026-01-01\n\n- old stuff\n"
	if err := os.WriteFile(store.Path(), []byte(seed), 0o644); err != nil {
		t.Fatalf("seed changelog: %v", err)
	}

	if err := store.AddEntry(Entry{Version: "1.0.0", Date: date(t, "2026-08-27"), Body: "- new stuff"}); err != nil {
		t.Fatalf("AddEntry(): %v", err)
	}

	data, _ := os.ReadFile(store.Path())
	content := string(data)

	if !strings.Contains(content, "All notable changes are documented here.") {
		t.Error("preamble text was dropped")
	}
	newIdx := strings.Index(content, "## [1.0.0]")
	oldIdx := strings.Index(content, "## [0.9.0]")
	if newIdx < 0 || oldIdx < 0 || newIdx > oldIdx {
		t.Errorf("new entry must precede old entry:\n%s", content)
	}
}

func TestEntriesParsesBodiesAndDates(t *testing.T) {
	t.Parallel()

	store := testStore(t)
	body := "- Added deploy command\n- Fixed changelog ordering"
	if err := store.AddEntry(Entry{Version: "2.0.0rc1", Date: date(t, "2026-03-15"), Body: body}); err != nil {
		t.Fatalf("AddEntry(): %v", err)
	}

	latest, err := store.Latest()
	if err != nil {
		t.Fatalf("Latest(): %v", err)
	}
	if latest == nil {
		t.Fatal("Latest() = nil, want entry")
	}
	if latest.Version != "2.0.0rc1" {
		t.Errorf("Version = %s, want 2.0.0rc1", latest.Version)
	}
	if !latest.Date.Equal(date(t, "2026-03-15")) {
		t.Errorf("Date = %s, want 2026-03-15", latest.Date.Format(DateLayout))
	}
	if latest.Body != body {
		t.Errorf("Body = %q, want %q", latest.Body, body)
	}
}

func TestEntriesMissingFile(t *testing.T) {
	t.Parallel()

	store := testStore(t)
	entries, err := store.Entries()
	if err != nil {
		t.Fatalf("Entries() on missing file: %v", err)
	}
	if entries != nil {
		t.Errorf("Entries() = %v, want nil", entries)
	}

	latest, err := store.Latest()
	if err != nil || latest != nil {
		t.Errorf("Latest() = %v, %v, want nil, nil", latest, err)
	}
}

func TestAddEntryEmptyVersion(t *testing.T) {
	t.Parallel()

	if err := testStore(t).AddEntry(Entry{Body: "body"}); err == nil {
		t.Error("AddEntry with empty version should fail")
	}
}
