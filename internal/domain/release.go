package domain

// Release holds the outcome of a version calculation for the head commit.
type Release struct {
	Latest      *Version
	LatestTag   TagRef
	Next        *Version
	UpdateTypes UpdateTypes
	Dominant    UpdateType
	HeadCommit  string
}

// Changed reports whether the calculation produced a new version.
func (r *Release) Changed() bool {
	return !r.Next.Equal(r.Latest)
}
