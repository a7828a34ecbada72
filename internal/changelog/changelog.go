// Package changelog maintains a markdown changelog file with
// newest-first release entries.
package changelog

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/devsync-tools/devsync/internal/errors"
	"github.com/devsync-tools/devsync/internal/fileutil"
)

const (
	// Header is the first line of every changelog file.
	Header = "# Changelog"

	// DateLayout is the date format used in entry headings.
	DateLayout = "2006-01-02"

	maxChangelogSize = 10 << 20 // 10 MiB
)

var entryHeadingRegex = regexp.MustCompile(`^## \[([^\]]+)\](?: - (\d{4}-\d{2}-\d{2}))?\s*$`)

// Entry is a single release section in the changelog.
type Entry struct {
	Version string
	Date    time.Time
	Body    string
}

// Heading renders the entry's "## [version] - date" line.
func (e Entry) Heading() string {
	if e.Date.IsZero() {
		return fmt.Sprintf("## [%s]", e.Version)
	}
	return fmt.Sprintf("## [%s] - %s", e.Version, e.Date.Format(DateLayout))
}

// Store reads and updates a changelog file on disk. The file keeps a
// "# Changelog" header followed by entries ordered newest first; writes
// replace the file atomically.
type Store struct {
	path string
}

// NewStore creates a store for the changelog at path. The file does not
// need to exist yet.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the changelog file path.
func (s *Store) Path() string {
	return s.path
}

// AddEntry prepends a release entry below the header, creating the file
// with a fresh header when it does not exist. Existing entries and any
// preamble text between the header and the first entry are preserved.
func (s *Store) AddEntry(entry Entry) error {
	if entry.Version == "" {
		return errors.Validation("changelog.AddEntry", "entry version is empty")
	}

	existing, err := s.read()
	if err != nil {
		return err
	}

	var sb strings.Builder
	sb.WriteString(entry.Heading())
	sb.WriteString("\n\n")
	body := strings.TrimRight(entry.Body, "\n")
	if body != "" {
		sb.WriteString(body)
		sb.WriteString("\n")
	}
	block := sb.String()

	var content string
	switch {
	case existing == "":
		content = Header + "\n\n" + block
	default:
		content = insertAfterPreamble(existing, block)
	}

	if err := fileutil.AtomicWriteFile(s.path, []byte(content), 0o644); err != nil {
		return errors.IOWrap(err, "changelog.AddEntry", "failed to write changelog")
	}
	return nil
}

// Entries parses the changelog and returns its entries newest first.
// A missing file yields no entries and no error.
func (s *Store) Entries() ([]Entry, error) {
	content, err := s.read()
	if err != nil {
		return nil, err
	}
	if content == "" {
		return nil, nil
	}

	var entries []Entry
	var current *Entry
	var body strings.Builder

	flush := func() {
		if current == nil {
			return
		}
		current.Body = strings.TrimSpace(body.String())
		entries = append(entries, *current)
		current = nil
		body.Reset()
	}

	for _, line := range strings.Split(content, "\n") {
		if m := entryHeadingRegex.FindStringSubmatch(line); m != nil {
			flush()
			e := Entry{Version: m[1]}
			if m[2] != "" {
				if d, err := time.Parse(DateLayout, m[2]); err == nil {
					e.Date = d
				}
			}
			current = &e
			continue
		}
		if current != nil {
			body.WriteString(line)
			body.WriteString("\n")
		}
	}
	flush()

	return entries, nil
}

// Latest returns the newest entry, or nil when the changelog is empty.
func (s *Store) Latest() (*Entry, error) {
	entries, err := s.Entries()
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}

func (s *Store) read() (string, error) {
	data, err := fileutil.ReadFileLimited(s.path, maxChangelogSize)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", errors.IOWrap(err, "changelog.read", "failed to read changelog")
	}
	return string(data), nil
}

// insertAfterPreamble places block before the first existing entry
// heading, keeping the header and any introductory text above it.
func insertAfterPreamble(content, block string) string {
	lines := strings.Split(content, "\n")
	insertAt := len(lines)
	for i, line := range lines {
		if entryHeadingRegex.MatchString(line) {
			insertAt = i
			break
		}
	}

	preamble := strings.TrimRight(strings.Join(lines[:insertAt], "\n"), "\n")
	rest := strings.TrimRight(strings.Join(lines[insertAt:], "\n"), "\n")

	var sb strings.Builder
	if preamble == "" {
		sb.WriteString(Header)
	} else {
		sb.WriteString(preamble)
	}
	sb.WriteString("\n\n")
	sb.WriteString(strings.TrimRight(block, "\n"))
	sb.WriteString("\n")
	if rest != "" {
		sb.WriteString("\n")
		sb.WriteString(rest)
		sb.WriteString("\n")
	}
	return sb.String()
}
