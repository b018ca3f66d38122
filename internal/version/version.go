// Package version implements the dotted-numeric migration version used to
// order the catalog and the ledger.
package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is an ordered sequence of non-negative integer components parsed
// from a dotted or underscored string such as "1", "1.2", "1_2_3". Versions
// are immutable and compared by value: the zero Version is EMPTY, sorting
// below every parsed version.
type Version struct {
	components []int64
	latest     bool
}

// Empty is the sentinel below all real versions. It is the zero value, so
// var v Version already equals Empty.
var Empty = Version{} //nolint:gochecknoglobals // sentinel value, immutable

// Latest is the sentinel above all real versions. Parse returns it for the
// reserved string "latest"; it is never stored in the ledger.
var Latest = Version{latest: true} //nolint:gochecknoglobals // sentinel value, immutable

// Parse parses a dotted/underscored numeric version string. Components are
// separated by "." or "_"; empty components and non-digit characters are
// rejected. The reserved strings "" and "latest" (case-insensitive) bypass
// numeric parsing and return the Empty/Latest sentinels respectively.
func Parse(raw string) (Version, error) {
	if raw == "" {
		return Empty, nil
	}

	if strings.EqualFold(raw, "latest") {
		return Latest, nil
	}

	parts := strings.Split(strings.ReplaceAll(raw, "_", "."), ".")
	if len(parts) == 0 {
		return Version{}, fmt.Errorf("%w: %q has no version components", ErrInvalidVersion, raw)
	}

	components := make([]int64, len(parts))

	for i, p := range parts {
		if p == "" {
			return Version{}, fmt.Errorf("%w: %q has an empty component", ErrInvalidVersion, raw)
		}

		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil || n < 0 {
			return Version{}, fmt.Errorf("%w: %q: component %q is not a non-negative integer", ErrInvalidVersion, raw, p)
		}

		components[i] = n
	}

	return Version{components: components}, nil
}

// MustParse is Parse but panics on error. Intended for tests and compile-time
// constants, never for user-supplied input.
func MustParse(raw string) Version {
	v, err := Parse(raw)
	if err != nil {
		panic(err)
	}

	return v
}

// IsEmpty reports whether v is the Empty sentinel.
func (v Version) IsEmpty() bool {
	return !v.latest && len(v.components) == 0
}

// IsLatest reports whether v is the Latest sentinel.
func (v Version) IsLatest() bool {
	return v.latest
}

// Compare returns -1, 0, or 1 as v is less than, equal to, or greater than
// other. Shorter component vectors are zero-padded for comparison, so "1.0"
// equals "1". Latest sorts above every other version including itself only
// when compared to itself (Latest.Compare(Latest) == 0); Empty sorts below
// every real version.
func (v Version) Compare(other Version) int {
	if v.latest || other.latest {
		switch {
		case v.latest && other.latest:
			return 0
		case v.latest:
			return 1
		default:
			return -1
		}
	}

	if v.IsEmpty() != other.IsEmpty() {
		if v.IsEmpty() {
			return -1
		}

		return 1
	}

	n := len(v.components)
	if len(other.components) > n {
		n = len(other.components)
	}

	for i := 0; i < n; i++ {
		a, b := componentAt(v.components, i), componentAt(other.components, i)
		if a != b {
			if a < b {
				return -1
			}

			return 1
		}
	}

	return 0
}

func componentAt(components []int64, i int) int64 {
	if i >= len(components) {
		return 0
	}

	return components[i]
}

// Equal reports whether v and other compare equal.
func (v Version) Equal(other Version) bool {
	return v.Compare(other) == 0
}

// LessThan reports whether v sorts strictly before other.
func (v Version) LessThan(other Version) bool {
	return v.Compare(other) < 0
}

// GreaterThan reports whether v sorts strictly after other.
func (v Version) GreaterThan(other Version) bool {
	return v.Compare(other) > 0
}

// String returns the canonical dotted form, with no trailing zero components
// beyond the first. Empty renders as "" and Latest renders as "latest".
func (v Version) String() string {
	if v.latest {
		return "latest"
	}

	if len(v.components) == 0 {
		return ""
	}

	end := len(v.components)
	for end > 1 && v.components[end-1] == 0 {
		end--
	}

	parts := make([]string, end)
	for i := 0; i < end; i++ {
		parts[i] = strconv.FormatInt(v.components[i], 10)
	}

	return strings.Join(parts, ".")
}
