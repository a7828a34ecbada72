// Package version provides domain types for DevSync versioning.
package version

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// SuffixKind identifies the pre-release stage of a version.
type SuffixKind uint8

const (
	// SuffixNone marks a stable version with no pre-release suffix.
	SuffixNone SuffixKind = iota
	// SuffixAlpha marks an alpha pre-release ("a").
	SuffixAlpha
	// SuffixBeta marks a beta pre-release ("b").
	SuffixBeta
	// SuffixRC marks a release candidate ("rc").
	SuffixRC
	// SuffixCustom marks an arbitrary caller-supplied suffix token.
	SuffixCustom
)

// String returns the human-readable name of the suffix kind.
func (k SuffixKind) String() string {
	switch k {
	case SuffixNone:
		return "stable"
	case SuffixAlpha:
		return "alpha"
	case SuffixBeta:
		return "beta"
	case SuffixRC:
		return "rc"
	case SuffixCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// token returns the wire form of the suffix kind.
func (k SuffixKind) token() string {
	switch k {
	case SuffixAlpha:
		return "a"
	case SuffixBeta:
		return "b"
	case SuffixRC:
		return "rc"
	default:
		return ""
	}
}

// chainRank orders the fixed suffix kinds for comparison.
// Stable sorts above rc, which sorts above beta, above alpha.
// Custom suffixes rank below everything and are unordered among
// themselves; they are only ever compared for equality.
func (k SuffixKind) chainRank() int {
	switch k {
	case SuffixNone:
		return 4
	case SuffixRC:
		return 3
	case SuffixBeta:
		return 2
	case SuffixAlpha:
		return 1
	default:
		return 0
	}
}

// Suffix is the pre-release portion of a version.
// For the fixed kinds (alpha, beta, rc) Num carries an optional numeric
// qualifier (0 means none was written). For custom suffixes Value holds
// the raw token and Num is unused.
type Suffix struct {
	Kind  SuffixKind
	Num   uint64
	Value string
}

// String returns the wire form of the suffix ("a", "b2", "rc1", custom token).
func (s Suffix) String() string {
	if s.Kind == SuffixNone {
		return ""
	}
	if s.Kind == SuffixCustom {
		return s.Value
	}
	if s.Num > 0 {
		return s.Kind.token() + strconv.FormatUint(s.Num, 10)
	}
	return s.Kind.token()
}

// Version is a value object representing a DevSync semantic version.
// Immutable: all operations return new instances.
type Version struct {
	major  uint64
	minor  uint64
	patch  uint64
	suffix Suffix
}

var (
	// versionRegex matches MAJOR.MINOR.PATCH with an optional trailing suffix.
	versionRegex = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)(.*)$`)

	// fixedSuffixRegex matches the fixed pre-release tokens a/b/rc with an
	// optional numeric qualifier.
	fixedSuffixRegex = regexp.MustCompile(`^(a|b|rc)(\d*)$`)

	// Zero is the zero version (0.0.0).
	Zero = Version{}

	// Initial is the conventional first version of a new project (0.1.0).
	Initial = Version{minor: 1}
)

// New creates a stable Version from its numeric components.
func New(major, minor, patch uint64) Version {
	return Version{major: major, minor: minor, patch: patch}
}

// NewWithSuffix creates a Version carrying a pre-release suffix.
func NewWithSuffix(major, minor, patch uint64, suffix Suffix) Version {
	return Version{major: major, minor: minor, patch: patch, suffix: suffix}
}

// Parse parses a version string of the form MAJOR.MINOR.PATCH[SUFFIX],
// where SUFFIX is "a", "b" or "rc" with an optional number, or an
// arbitrary trailing token treated as a custom suffix.
func Parse(s string) (Version, error) {
	s = strings.TrimSpace(s)
	matches := versionRegex.FindStringSubmatch(s)
	if matches == nil {
		return Zero, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}

	major, err := strconv.ParseUint(matches[1], 10, 64)
	if err != nil {
		return Zero, fmt.Errorf("%w: invalid major in %q", ErrInvalidFormat, s)
	}
	minor, err := strconv.ParseUint(matches[2], 10, 64)
	if err != nil {
		return Zero, fmt.Errorf("%w: invalid minor in %q", ErrInvalidFormat, s)
	}
	patch, err := strconv.ParseUint(matches[3], 10, 64)
	if err != nil {
		return Zero, fmt.Errorf("%w: invalid patch in %q", ErrInvalidFormat, s)
	}

	v := Version{major: major, minor: minor, patch: patch}

	raw := matches[4]
	if raw == "" {
		return v, nil
	}

	if fixed := fixedSuffixRegex.FindStringSubmatch(raw); fixed != nil {
		var num uint64
		if fixed[2] != "" {
			num, err = strconv.ParseUint(fixed[2], 10, 64)
			if err != nil {
				return Zero, fmt.Errorf("%w: invalid suffix number in %q", ErrInvalidFormat, s)
			}
		}
		switch fixed[1] {
		case "a":
			v.suffix = Suffix{Kind: SuffixAlpha, Num: num}
		case "b":
			v.suffix = Suffix{Kind: SuffixBeta, Num: num}
		case "rc":
			v.suffix = Suffix{Kind: SuffixRC, Num: num}
		}
		return v, nil
	}

	v.suffix = Suffix{Kind: SuffixCustom, Value: raw}
	return v, nil
}

// MustParse parses a version string and panics if invalid.
// Use only for known-good version strings.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// Major returns the major version component.
func (v Version) Major() uint64 { return v.major }

// Minor returns the minor version component.
func (v Version) Minor() uint64 { return v.minor }

// Patch returns the patch version component.
func (v Version) Patch() uint64 { return v.patch }

// Suffix returns the pre-release suffix.
func (v Version) Suffix() Suffix { return v.suffix }

// IsStable returns true when the version carries no pre-release suffix.
func (v Version) IsStable() bool { return v.suffix.Kind == SuffixNone }

// IsPrerelease returns true when the version carries a pre-release suffix.
func (v Version) IsPrerelease() bool { return !v.IsStable() }

// String returns the canonical string form. Parse(v.String()) == v for
// every valid version.
func (v Version) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d.%d.%d", v.major, v.minor, v.patch)
	sb.WriteString(v.suffix.String())
	return sb.String()
}

// TagString returns the version with the "v" prefix used for git tags.
func (v Version) TagString() string {
	return "v" + v.String()
}

// Compare compares two versions.
// Returns -1 if v < other, 0 if equal, 1 if v > other.
// Ordering: numeric triple first; among equal triples stable > rc >
// beta > alpha > custom. Two custom suffixes have no defined order and
// compare as equal here; use Equal for identity.
func (v Version) Compare(other Version) int {
	if v.major != other.major {
		if v.major < other.major {
			return -1
		}
		return 1
	}
	if v.minor != other.minor {
		if v.minor < other.minor {
			return -1
		}
		return 1
	}
	if v.patch != other.patch {
		if v.patch < other.patch {
			return -1
		}
		return 1
	}

	vr, or := v.suffix.Kind.chainRank(), other.suffix.Kind.chainRank()
	if vr != or {
		if vr < or {
			return -1
		}
		return 1
	}

	// Same fixed kind: the numeric qualifier decides.
	if v.suffix.Kind != SuffixCustom {
		if v.suffix.Num != other.suffix.Num {
			if v.suffix.Num < other.suffix.Num {
				return -1
			}
			return 1
		}
	}

	return 0
}

// LessThan returns true if v < other.
func (v Version) LessThan(other Version) bool { return v.Compare(other) < 0 }

// GreaterThan returns true if v > other.
func (v Version) GreaterThan(other Version) bool { return v.Compare(other) > 0 }

// Equal returns true when two versions are structurally identical,
// including custom suffix values.
func (v Version) Equal(other Version) bool {
	return v.major == other.major &&
		v.minor == other.minor &&
		v.patch == other.patch &&
		v.suffix == other.suffix
}
