package pyparse

import (
	"fmt"
	"strconv"
	"strings"
)

// EnvSourceVersion is the environment override consulted by Resolve when no
// explicit version is given.
const EnvSourceVersion = "F2FORMAT_SOURCE_VERSION"

// Version identifies a Python grammar dialect, e.g. 3.8.
type Version struct {
	Major int
	Minor int
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// AtLeast reports whether v is at or above major.minor.
func (v Version) AtLeast(major, minor int) bool {
	if v.Major != major {
		return v.Major > major
	}
	return v.Minor >= minor
}

// IsZero reports whether v is the zero value (no version selected).
func (v Version) IsZero() bool {
	return v.Major == 0 && v.Minor == 0
}

// supported is the set of grammar dialects the frontend accepts. The floor is
// 3.6, where formatted string literals entered the language.
var supported = []Version{
	{3, 6}, {3, 7}, {3, 8}, {3, 9}, {3, 10}, {3, 11}, {3, 12},
}

// Supported returns the grammar versions the frontend can parse against.
func Supported() []Version {
	out := make([]Version, len(supported))
	copy(out, supported)
	return out
}

// Latest returns the newest supported version, the default parse target.
func Latest() Version {
	return supported[len(supported)-1]
}

// UnsupportedVersionError reports a requested version outside the supported set.
type UnsupportedVersionError struct {
	Requested string
}

func (e *UnsupportedVersionError) Error() string {
	names := make([]string, len(supported))
	for i, v := range supported {
		names[i] = v.String()
	}
	return fmt.Sprintf("unsupported source version %q (supported: %s)",
		e.Requested, strings.Join(names, ", "))
}

// ParseVersion parses a "major.minor" string and checks it against the
// supported set.
func ParseVersion(s string) (Version, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ".", 2)
	if len(parts) != 2 {
		return Version{}, &UnsupportedVersionError{Requested: s}
	}
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return Version{}, &UnsupportedVersionError{Requested: s}
	}
	minor, err := strconv.Atoi(parts[1])
	if err != nil {
		return Version{}, &UnsupportedVersionError{Requested: s}
	}
	v := Version{Major: major, Minor: minor}
	for _, sv := range supported {
		if sv == v {
			return v, nil
		}
	}
	return Version{}, &UnsupportedVersionError{Requested: s}
}

// Resolve selects the grammar version to parse against. Precedence is the
// explicit argument, then the environment override, then the newest supported
// version. Callers pass the raw environment value so selection stays pure.
func Resolve(explicit, env string) (Version, error) {
	if explicit != "" {
		return ParseVersion(explicit)
	}
	if env != "" {
		return ParseVersion(env)
	}
	return Latest(), nil
}
