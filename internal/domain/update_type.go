package domain

import (
	"fmt"
	"slices"
	"strings"
)

// UpdateType classifies a change. Patch, minor and major are ordered by
// severity; reseat is a separate signal that only moves the current tag.
type UpdateType int

const (
	UpdateNone UpdateType = iota
	UpdatePatch
	UpdateMinor
	UpdateMajor
	UpdateReseat
)

var updateTypeNames = map[UpdateType]string{
	UpdateNone:   "none",
	UpdatePatch:  "patch",
	UpdateMinor:  "minor",
	UpdateMajor:  "major",
	UpdateReseat: "reseat",
}

// ParseUpdateType parses a case-insensitive update type name.
func ParseUpdateType(s string) (UpdateType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for t, n := range updateTypeNames {
		if n == name {
			return t, nil
		}
	}
	return UpdateNone, fmt.Errorf("unknown update type: %q", s)
}

func (t UpdateType) String() string {
	if n, ok := updateTypeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("UpdateType(%d)", int(t))
}

// HasSeverity reports whether t takes part in severity ordering.
func (t UpdateType) HasSeverity() bool {
	return t == UpdatePatch || t == UpdateMinor || t == UpdateMajor
}

// UpdateTypes is the set of signals produced by a classifier.
type UpdateTypes map[UpdateType]struct{}

// NewUpdateTypes builds a set, dropping UpdateNone.
func NewUpdateTypes(types ...UpdateType) UpdateTypes {
	s := make(UpdateTypes, len(types))
	for _, t := range types {
		s.Add(t)
	}
	return s
}

// Add inserts t. UpdateNone is never stored.
func (s UpdateTypes) Add(t UpdateType) {
	if t == UpdateNone {
		return
	}
	s[t] = struct{}{}
}

// Contains reports whether t is in the set.
func (s UpdateTypes) Contains(t UpdateType) bool {
	_, ok := s[t]
	return ok
}

// Sorted returns the members in ascending order.
func (s UpdateTypes) Sorted() []UpdateType {
	out := make([]UpdateType, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

// Strings returns the sorted member names.
func (s UpdateTypes) Strings() []string {
	sorted := s.Sorted()
	out := make([]string, len(sorted))
	for i, t := range sorted {
		out[i] = t.String()
	}
	return out
}

// Dominant reduces the set to one update type: the highest severity present,
// or UpdateReseat when reseat is the only member, or UpdateNone when empty.
func (s UpdateTypes) Dominant() UpdateType {
	dominant := UpdateNone
	for t := range s {
		if t.HasSeverity() && t > dominant {
			dominant = t
		}
	}
	if dominant == UpdateNone && len(s) == 1 && s.Contains(UpdateReseat) {
		return UpdateReseat
	}
	return dominant
}

// Calculate derives the dominant update type and the next version from the
// latest version. Only the dominant type is applied.
func Calculate(latest *Version, types UpdateTypes) (UpdateType, *Version) {
	dominant := types.Dominant()
	switch dominant {
	case UpdatePatch:
		return dominant, latest.BumpPatch()
	case UpdateMinor:
		return dominant, latest.BumpMinor()
	case UpdateMajor:
		return dominant, latest.BumpMajor()
	default:
		return dominant, NewVersionFromParts(latest.Major(), latest.Minor(), latest.Patch())
	}
}
