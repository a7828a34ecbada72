package deployment

import (
	"encoding/json"
	"testing"

	"github.com/devsync-tools/devsync/internal/domain/version"
)

func TestNewRecord(t *testing.T) {
	t.Parallel()

	rec := NewRecord(version.MustParse("1.2.3"), "develop-alice", "abc1234", "alice", true, "first deploy")

	if rec.ID == "" {
		t.Error("record must get an ID")
	}
	if rec.Version != "1.2.3" {
		t.Errorf("Version = %q, want 1.2.3", rec.Version)
	}
	if rec.Timestamp.IsZero() {
		t.Error("Timestamp must be set")
	}
}

func TestRecordJSONFieldNames(t *testing.T) {
	t.Parallel()

	rec := NewRecord(version.MustParse("1.0.0"), "develop-bob", "deadbeef", "bob", false, "push failed")
	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	for _, field := range []string{"id", "version", "timestamp", "branch", "commit_hash", "user", "success", "notes"} {
		if _, ok := raw[field]; !ok {
			t.Errorf("missing JSON field %q in %s", field, data)
		}
	}
}
