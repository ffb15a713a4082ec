package probe

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a pyocd release number.
type Version struct {
	Major int `json:"major"`
	Minor int `json:"minor"`
	Micro int `json:"micro"`
}

// ParseVersion parses strings such as "0.36.0" or "v1.2". It reports false
// for empty input. Each of the first three segments is parsed on its own;
// a missing or unparsable segment becomes 0 without affecting the others.
func ParseVersion(s string) (Version, bool) {
	if s == "" {
		return Version{}, false
	}
	s = strings.TrimPrefix(s, "v")
	if s == "" {
		return Version{}, false
	}

	pieces := strings.SplitN(s, ".", 4)
	var v Version
	v.Major = segment(pieces, 0)
	v.Minor = segment(pieces, 1)
	v.Micro = segment(pieces, 2)
	return v, true
}

func segment(pieces []string, i int) int {
	if i >= len(pieces) {
		return 0
	}
	n, err := strconv.ParseUint(pieces[i], 10, 31)
	if err != nil {
		return 0
	}
	return int(n)
}

// Compare returns -1, 0 or +1 as v is older than, equal to or newer than o.
func (v Version) Compare(o Version) int {
	switch {
	case v.Major != o.Major:
		return cmpInt(v.Major, o.Major)
	case v.Minor != o.Minor:
		return cmpInt(v.Minor, o.Minor)
	default:
		return cmpInt(v.Micro, o.Micro)
	}
}

// AtLeast reports whether v is o or newer.
func (v Version) AtLeast(o Version) bool {
	return v.Compare(o) >= 0
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Micro)
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
