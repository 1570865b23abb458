package domain

import "fmt"

// TagRef is a tag name and the commit it resolves to.
type TagRef struct {
	Name   string `json:"name"`
	Target string `json:"target"`
}

// ResolveLatest returns the tag carrying the highest version. Every tag must
// parse; a malformed name aborts the resolution.
func ResolveLatest(tags []TagRef) (*Version, TagRef, error) {
	if len(tags) == 0 {
		return nil, TagRef{}, ErrNoTagsFound
	}
	var (
		latest    *Version
		latestRef TagRef
	)
	for _, tag := range tags {
		v, err := ParseTagName(tag.Name)
		if err != nil {
			return nil, TagRef{}, err
		}
		if latest == nil || v.Compare(latest) > 0 {
			latest = v
			latestRef = tag
		}
	}
	return latest, latestRef, nil
}

// ShortHash abbreviates a commit hash for display.
func ShortHash(hash string) string {
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}

func (t TagRef) String() string {
	return fmt.Sprintf("%s -> %s", t.Name, ShortHash(t.Target))
}
