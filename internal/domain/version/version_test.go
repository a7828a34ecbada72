package version

import (
	"testing"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"stable", "1.2.3", "1.2.3", false},
		{"zero", "0.0.0", "0.0.0", false},
		{"large numbers", "100.200.300", "100.200.300", false},
		{"alpha", "1.0.0a", "1.0.0a", false},
		{"alpha numbered", "1.0.0a1", "1.0.0a1", false},
		{"beta", "1.2.3b", "1.2.3b", false},
		{"beta numbered", "1.2.3b2", "1.2.3b2", false},
		{"rc", "2.0.0rc", "2.0.0rc", false},
		{"rc numbered", "2.0.0rc1", "2.0.0rc1", false},
		{"custom suffix", "1.0.0-hotfix", "1.0.0-hotfix", false},
		{"custom token", "1.0.0nightly", "1.0.0nightly", false},
		{"surrounding whitespace", " 1.2.3 ", "1.2.3", false},
		{"invalid - empty", "", "", true},
		{"invalid - not a version", "foo", "", true},
		{"invalid - missing patch", "1.2", "", true},
		{"invalid - letters in triple", "1.a.3", "", true},
		{"invalid - leading suffix", "a1.2.3", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Parse(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("Parse(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
				return
			}
			if !tt.wantErr && got.String() != tt.want {
				t.Errorf("Parse(%q).String() = %v, want %v", tt.input, got.String(), tt.want)
			}
		})
	}
}

func TestParseSuffixKinds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		kind  SuffixKind
		num   uint64
		value string
	}{
		{"1.0.0", SuffixNone, 0, ""},
		{"1.0.0a", SuffixAlpha, 0, ""},
		{"1.0.0a3", SuffixAlpha, 3, ""},
		{"1.0.0b", SuffixBeta, 0, ""},
		{"1.0.0rc2", SuffixRC, 2, ""},
		{"1.0.0-dev", SuffixCustom, 0, "-dev"},
		{"1.0.0post1", SuffixCustom, 0, "post1"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			v, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) unexpected error: %v", tt.input, err)
			}
			s := v.Suffix()
			if s.Kind != tt.kind || s.Num != tt.num || s.Value != tt.value {
				t.Errorf("Parse(%q).Suffix() = %+v, want kind=%v num=%d value=%q",
					tt.input, s, tt.kind, tt.num, tt.value)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"0.1.0", "1.0.0", "10.20.30",
		"1.0.0a", "1.0.0a1", "1.0.0b", "1.0.0b12", "1.0.0rc", "1.0.0rc3",
		"1.0.0-hotfix.1", "2.0.0nightly",
	}

	for _, s := range inputs {
		v, err := Parse(s)
		if err != nil {
			t.Fatalf("Parse(%q) unexpected error: %v", s, err)
		}
		if v.String() != s {
			t.Errorf("format(parse(%q)) = %q, want identity", s, v.String())
		}
		again, err := Parse(v.String())
		if err != nil {
			t.Fatalf("re-Parse(%q) unexpected error: %v", v.String(), err)
		}
		if !again.Equal(v) {
			t.Errorf("parse(format(%q)) != original", s)
		}
	}
}

func TestCompare(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		v1   string
		v2   string
		want int
	}{
		{"equal stable", "1.0.0", "1.0.0", 0},
		{"major less", "1.0.0", "2.0.0", -1},
		{"minor greater", "1.2.0", "1.1.0", 1},
		{"patch less", "1.0.1", "1.0.2", -1},
		{"stable above rc", "1.0.0", "1.0.0rc", 1},
		{"rc above beta", "1.0.0rc", "1.0.0b", 1},
		{"beta above alpha", "1.0.0b", "1.0.0a", 1},
		{"alpha above custom", "1.0.0a", "1.0.0-dev", 1},
		{"numbered alpha ordering", "1.0.0a1", "1.0.0a2", -1},
		{"triple beats suffix", "1.0.1a", "1.0.0", 1},
		{"customs unordered", "1.0.0-dev", "1.0.0-exp", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			v1 := MustParse(tt.v1)
			v2 := MustParse(tt.v2)
			if got := v1.Compare(v2); got != tt.want {
				t.Errorf("Compare(%s, %s) = %d, want %d", tt.v1, tt.v2, got, tt.want)
			}
			if got := v2.Compare(v1); got != -tt.want {
				t.Errorf("Compare(%s, %s) = %d, want %d", tt.v2, tt.v1, got, -tt.want)
			}
		})
	}
}

func TestCustomSuffixEquality(t *testing.T) {
	t.Parallel()

	a := MustParse("1.0.0-dev")
	b := MustParse("1.0.0-dev")
	c := MustParse("1.0.0-exp")

	if !a.Equal(b) {
		t.Error("identical custom suffixes should be equal")
	}
	if a.Equal(c) {
		t.Error("different custom suffixes should not be equal")
	}
	if a.Compare(c) != 0 {
		t.Error("custom suffixes must not be ordered relative to each other")
	}
}

func TestStableInvariant(t *testing.T) {
	t.Parallel()

	stable := MustParse("1.2.3")
	if !stable.IsStable() || stable.IsPrerelease() {
		t.Error("version without suffix must be stable")
	}
	pre := MustParse("1.2.3a")
	if pre.IsStable() || !pre.IsPrerelease() {
		t.Error("version with suffix must be a pre-release")
	}
}

func TestTagString(t *testing.T) {
	t.Parallel()

	if got := MustParse("1.1.0").TagString(); got != "v1.1.0" {
		t.Errorf("TagString() = %q, want v1.1.0", got)
	}
}
