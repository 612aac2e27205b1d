// SPDX-License-Identifier: MPL-2.0

package resolve

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidVersion is returned when a version string contains no numeric segments.
var ErrInvalidVersion = errors.New("invalid version string")

// Version is a structured release version: the numeric segments of strings
// like "3.12.1" or "7.1.1-47", compared segment-wise with missing segments
// treated as zero. The original text (minus any leading "v") is preserved
// for display and URL construction.
type Version struct {
	segments []int
	text     string
}

// ParseVersion parses a version string into a Version. A leading "v" is
// stripped. Segments are the runs of digits, in order; every separator
// (".", "-", "_") is treated alike. Returns ErrInvalidVersion when the
// string contains no digits.
func ParseVersion(s string) (Version, error) {
	text := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "v"))
	if text == "" {
		return Version{}, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
	}

	var segments []int
	start := -1
	for i := 0; i <= len(text); i++ {
		digit := i < len(text) && text[i] >= '0' && text[i] <= '9'
		switch {
		case digit && start < 0:
			start = i
		case !digit && start >= 0:
			n, err := strconv.Atoi(text[start:i])
			if err != nil {
				return Version{}, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
			}
			segments = append(segments, n)
			start = -1
		}
	}

	if len(segments) == 0 {
		return Version{}, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
	}

	return Version{segments: segments, text: text}, nil
}

// MustParseVersion is ParseVersion that panics on error, for static tables.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the original version text without any leading "v".
func (v Version) String() string { return v.text }

// IsZero reports whether v is the zero Version (never parsed).
func (v Version) IsZero() bool { return len(v.segments) == 0 }

// Compare returns -1, 0, or +1 ordering v against o. Segments are compared
// left to right; a missing segment counts as zero, so "7.1.1" < "7.1.1-1"
// and "7.1.1" == "7.1.1-0".
func (v Version) Compare(o Version) int {
	n := len(v.segments)
	if len(o.segments) > n {
		n = len(o.segments)
	}
	for i := 0; i < n; i++ {
		a, b := 0, 0
		if i < len(v.segments) {
			a = v.segments[i]
		}
		if i < len(o.segments) {
			b = o.segments[i]
		}
		if a != b {
			if a < b {
				return -1
			}
			return 1
		}
	}
	return 0
}
