// Package version implements the semantic-version operations used to
// validate a release bump: input validation, npm-style increments and
// ordering checks.
package version

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Increment keywords accepted in place of an explicit version, in the order
// they are offered to the user.
const (
	Patch      = "patch"
	Minor      = "minor"
	Major      = "major"
	PrePatch   = "prepatch"
	PreMinor   = "preminor"
	PreMajor   = "premajor"
	PreRelease = "prerelease"
)

// Increments lists every recognised increment keyword.
var Increments = []string{Patch, Minor, Major, PrePatch, PreMinor, PreMajor, PreRelease}

// IsIncrement reports whether input is one of the increment keywords.
func IsIncrement(input string) bool {
	return slices.Contains(Increments, input)
}

// Parse parses a strict MAJOR.MINOR.PATCH version with optional pre-release
// and build metadata. A single leading "v" or "=" is tolerated.
func Parse(s string) (*semver.Version, error) {
	trimmed := strings.TrimSpace(s)
	trimmed = strings.TrimPrefix(trimmed, "=")
	trimmed = strings.TrimPrefix(trimmed, "v")
	v, err := semver.StrictNewVersion(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parsing version %q: %w", s, err)
	}
	return v, nil
}

// IsValid reports whether s is a valid explicit version.
func IsValid(s string) bool {
	_, err := Parse(s)
	return err == nil
}

// IsValidInput reports whether input is an increment keyword or a valid
// explicit version.
func IsValidInput(input string) bool {
	return IsIncrement(input) || IsValid(input)
}

// Next resolves a bump input against the current version. Keywords are
// applied with Increment; explicit versions are returned in canonical form.
// current must be valid in both cases.
func Next(current, input, preid string) (string, error) {
	if IsIncrement(input) {
		return Increment(current, input, preid)
	}
	if _, err := Parse(current); err != nil {
		return "", err
	}
	v, err := Parse(input)
	if err != nil {
		return "", err
	}
	return v.String(), nil
}

// Increment applies keyword to current using npm semver rules. preid, when
// set, names the pre-release identifier for the pre* keywords.
func Increment(current, keyword, preid string) (string, error) {
	v, err := Parse(current)
	if err != nil {
		return "", err
	}

	major, minor, patch, pre := v.Major(), v.Minor(), v.Patch(), v.Prerelease()

	var next *semver.Version
	switch keyword {
	case Major:
		// 2.0.0-rc.1 -> 2.0.0
		if pre == "" || minor != 0 || patch != 0 {
			major++
		}
		next = semver.New(major, 0, 0, "", "")
	case Minor:
		if pre == "" || patch != 0 {
			minor++
		}
		next = semver.New(major, minor, 0, "", "")
	case Patch:
		if pre == "" {
			patch++
		}
		next = semver.New(major, minor, patch, "", "")
	case PreMajor:
		next = semver.New(major+1, 0, 0, firstPrerelease(preid), "")
	case PreMinor:
		next = semver.New(major, minor+1, 0, firstPrerelease(preid), "")
	case PrePatch:
		next = semver.New(major, minor, patch+1, firstPrerelease(preid), "")
	case PreRelease:
		if pre == "" {
			next = semver.New(major, minor, patch+1, firstPrerelease(preid), "")
		} else {
			next = semver.New(major, minor, patch, bumpPrerelease(pre, preid), "")
		}
	default:
		return "", fmt.Errorf("unknown increment %q", keyword)
	}

	// semver.New does not validate the pre-release it is given.
	out := next.String()
	if _, err := semver.StrictNewVersion(out); err != nil {
		return "", fmt.Errorf("invalid pre-release identifier %q: %w", preid, err)
	}
	return out, nil
}

func firstPrerelease(preid string) string {
	if preid == "" {
		return "0"
	}
	return preid + ".0"
}

// bumpPrerelease increments the right-most numeric identifier of pre, or
// appends ".0" when there is none. A preid that differs from the leading
// identifier restarts the sequence at "<preid>.0".
func bumpPrerelease(pre, preid string) string {
	ids := strings.Split(pre, ".")

	bumped := false
	for i := len(ids) - 1; i >= 0; i-- {
		if n, ok := numericIdentifier(ids[i]); ok {
			ids[i] = strconv.FormatUint(n+1, 10)
			bumped = true
			break
		}
	}
	if !bumped {
		ids = append(ids, "0")
	}

	if preid != "" {
		if ids[0] != preid {
			return preid + ".0"
		}
		if len(ids) < 2 {
			return preid + ".0"
		}
		if _, ok := numericIdentifier(ids[1]); !ok {
			return preid + ".0"
		}
	}
	return strings.Join(ids, ".")
}

func numericIdentifier(s string) (uint64, bool) {
	if s == "" || (len(s) > 1 && s[0] == '0') {
		return 0, false
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Compare returns -1, 0 or 1 comparing a to b under semver precedence.
func Compare(a, b string) (int, error) {
	av, err := Parse(a)
	if err != nil {
		return 0, err
	}
	bv, err := Parse(b)
	if err != nil {
		return 0, err
	}
	return av.Compare(bv), nil
}

// IsGreater reports whether next is strictly greater than current. Invalid
// versions are never greater.
func IsGreater(current, next string) bool {
	c, err := Compare(next, current)
	return err == nil && c > 0
}

// IsPrerelease reports whether v carries a pre-release component.
func IsPrerelease(v string) bool {
	parsed, err := Parse(v)
	if err != nil {
		return false
	}
	return parsed.Prerelease() != ""
}

// Semver exposes this package's operations as a value, for callers that
// take the version scheme as a dependency.
type Semver struct{}

func (Semver) IsValidInput(input string) bool { return IsValidInput(input) }

func (Semver) Next(current, input, preid string) (string, error) {
	return Next(current, input, preid)
}

func (Semver) IsGreater(current, next string) bool { return IsGreater(current, next) }

func (Semver) IsPrerelease(v string) bool { return IsPrerelease(v) }
