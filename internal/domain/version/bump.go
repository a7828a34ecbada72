// Package version provides domain types for DevSync versioning.
package version

import "fmt"

// BumpKind represents the kind of version bump to apply.
type BumpKind string

const (
	// BumpMajor increments the major component of a stable version.
	BumpMajor BumpKind = "major"
	// BumpMinor increments the minor component of a stable version.
	BumpMinor BumpKind = "minor"
	// BumpPatch increments the patch component of a stable version.
	BumpPatch BumpKind = "patch"
	// BumpAlpha requests the alpha stage of the pre-release chain.
	BumpAlpha BumpKind = "alpha"
	// BumpBeta requests the beta stage of the pre-release chain.
	BumpBeta BumpKind = "beta"
	// BumpRC requests the release-candidate stage of the pre-release chain.
	BumpRC BumpKind = "rc"
	// BumpStable finalizes a pre-release to its stable version.
	BumpStable BumpKind = "stable"
	// BumpCustom sets an arbitrary suffix, bypassing chain checks.
	BumpCustom BumpKind = "custom"
)

// IsValid returns true if the bump kind is recognized.
func (k BumpKind) IsValid() bool {
	switch k {
	case BumpMajor, BumpMinor, BumpPatch, BumpAlpha, BumpBeta, BumpRC, BumpStable, BumpCustom:
		return true
	default:
		return false
	}
}

// IsNumeric returns true for the major/minor/patch kinds.
func (k BumpKind) IsNumeric() bool {
	return k == BumpMajor || k == BumpMinor || k == BumpPatch
}

// IsChain returns true for the pre-release chain kinds.
func (k BumpKind) IsChain() bool {
	return k == BumpAlpha || k == BumpBeta || k == BumpRC || k == BumpStable
}

// String returns the string representation of the bump kind.
func (k BumpKind) String() string { return string(k) }

// ParseBumpKind parses a string into a BumpKind.
func ParseBumpKind(s string) (BumpKind, error) {
	k := BumpKind(s)
	if !k.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidBumpKind, s)
	}
	return k, nil
}

// Bump returns the version that results from applying kind to v.
//
// Numeric bumps (major, minor, patch) apply only to stable versions;
// they increment the requested component, zero the lower ones and carry
// no suffix. A numeric bump on a pre-release fails with
// ErrInvalidBumpTransition: a pre-release must progress through the
// chain or be finalized first.
//
// Chain bumps (alpha, beta, rc, stable) on a stable version start a new
// cycle: the patch component is incremented once and the version enters
// the alpha stage, whatever stage was requested. From inside a cycle a
// chain bump advances exactly one step (alpha -> beta -> rc -> stable)
// regardless of the requested stage; the numeric triple is untouched.
// A stable bump on an already-stable version fails with
// ErrInvalidBumpTransition.
//
// Custom bumps set or replace the suffix verbatim with no lineage check.
func (v Version) Bump(kind BumpKind) (Version, error) {
	return v.bump(kind, "")
}

// BumpCustomSuffix applies a custom suffix bump with the given token.
func (v Version) BumpCustomSuffix(value string) (Version, error) {
	return v.bump(BumpCustom, value)
}

func (v Version) bump(kind BumpKind, custom string) (Version, error) {
	switch {
	case kind.IsNumeric():
		if v.IsPrerelease() {
			return Zero, fmt.Errorf("%w: cannot apply %s bump to pre-release %s",
				ErrInvalidBumpTransition, kind, v)
		}
		switch kind {
		case BumpMajor:
			return New(v.major+1, 0, 0), nil
		case BumpMinor:
			return New(v.major, v.minor+1, 0), nil
		default:
			return New(v.major, v.minor, v.patch+1), nil
		}

	case kind.IsChain():
		return v.advanceChain(kind)

	case kind == BumpCustom:
		if custom == "" {
			return Zero, fmt.Errorf("%w: custom bump requires a suffix value", ErrInvalidBumpKind)
		}
		return NewWithSuffix(v.major, v.minor, v.patch, Suffix{Kind: SuffixCustom, Value: custom}), nil

	default:
		return Zero, fmt.Errorf("%w: %q", ErrInvalidBumpKind, kind)
	}
}

// advanceChain moves the version one step along the pre-release chain.
func (v Version) advanceChain(kind BumpKind) (Version, error) {
	switch v.suffix.Kind {
	case SuffixNone:
		if kind == BumpStable {
			return Zero, fmt.Errorf("%w: %s is already stable", ErrInvalidBumpTransition, v)
		}
		// Starting a cycle always lands on alpha of the next patch,
		// even when a later stage was requested.
		return NewWithSuffix(v.major, v.minor, v.patch+1, Suffix{Kind: SuffixAlpha}), nil
	case SuffixAlpha:
		return NewWithSuffix(v.major, v.minor, v.patch, Suffix{Kind: SuffixBeta}), nil
	case SuffixBeta:
		return NewWithSuffix(v.major, v.minor, v.patch, Suffix{Kind: SuffixRC}), nil
	case SuffixRC:
		return New(v.major, v.minor, v.patch), nil
	default:
		return Zero, fmt.Errorf("%w: custom suffix %q has no chain position; use a custom bump or set the version explicitly",
			ErrInvalidBumpTransition, v.suffix.Value)
	}
}
