package domain

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// TagPrefix is prepended to a rendered version to form its tag name.
const TagPrefix = "v"

// Version wraps semver.Version restricted to a plain major.minor.patch triple.
type Version struct {
	*semver.Version
}

// NewVersion creates a new Version from a "1.2.3" string.
// Pre-release and build metadata suffixes are rejected.
func NewVersion(s string) (*Version, error) {
	v, err := semver.StrictNewVersion(strings.TrimSpace(s))
	if err != nil {
		return nil, err
	}
	if v.Prerelease() != "" || v.Metadata() != "" {
		return nil, fmt.Errorf("unsupported version suffix in %q", s)
	}
	return &Version{v}, nil
}

// NewVersionFromParts builds a Version from its numeric components.
func NewVersionFromParts(major, minor, patch uint64) *Version {
	return &Version{semver.New(major, minor, patch, "", "")}
}

// ParseTagName parses a "v1.2.3" tag name.
func ParseTagName(name string) (*Version, error) {
	trimmed := strings.TrimSpace(name)
	if !strings.HasPrefix(trimmed, TagPrefix) {
		return nil, fmt.Errorf("%w: %q", ErrMalformedTagName, name)
	}
	v, err := NewVersion(strings.TrimPrefix(trimmed, TagPrefix))
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrMalformedTagName, name, err)
	}
	return v, nil
}

// BumpMajor increments the major version.
func (v *Version) BumpMajor() *Version {
	newVer := v.IncMajor()
	return &Version{&newVer}
}

// BumpMinor increments the minor version.
func (v *Version) BumpMinor() *Version {
	newVer := v.IncMinor()
	return &Version{&newVer}
}

// BumpPatch increments the patch version.
func (v *Version) BumpPatch() *Version {
	newVer := v.IncPatch()
	return &Version{&newVer}
}

// Compare compares two versions numerically.
func (v *Version) Compare(other *Version) int {
	return v.Version.Compare(other.Version)
}

// Equal reports whether both versions have the same components.
func (v *Version) Equal(other *Version) bool {
	return v.Compare(other) == 0
}

// String renders the version without prefix.
func (v *Version) String() string {
	return v.Version.String()
}

// TagName returns the tag name for the version.
func (v *Version) TagName() string {
	return TagPrefix + v.String()
}
