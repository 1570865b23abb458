package orchestrator

import (
	"fmt"
	"regexp"

	"github.com/compozy/autotag/internal/domain"
)

var (
	// tagNameRegex matches release tag names
	tagNameRegex = regexp.MustCompile(`^v\d+\.\d+\.\d+$`)
	// commitHashRegex matches full SHA-1 and SHA-256 object names
	commitHashRegex = regexp.MustCompile(`^(?:[0-9a-f]{40}|[0-9a-f]{64})$`)
)

// ValidateTagName validates a release tag name.
func ValidateTagName(tag string) error {
	if tag == "" {
		return fmt.Errorf("tag name cannot be empty")
	}
	if !tagNameRegex.MatchString(tag) {
		return fmt.Errorf("invalid tag name format: %s (expected: v1.2.3)", tag)
	}
	return nil
}

// ValidateCommitHash validates a full commit hash.
func ValidateCommitHash(hash string) error {
	if !commitHashRegex.MatchString(hash) {
		return fmt.Errorf("invalid commit hash: %q", hash)
	}
	return nil
}

// ValidatePlan checks every operation of the plan before anything is executed.
func ValidatePlan(plan domain.TagPlan) error {
	for _, op := range plan.Operations {
		if err := ValidateTagName(op.Tag); err != nil {
			return fmt.Errorf("%s: %w", op.Type, err)
		}
		if op.Type == domain.OperationTypeCreateTag {
			if err := ValidateCommitHash(op.Commit); err != nil {
				return fmt.Errorf("%s %s: %w", op.Type, op.Tag, err)
			}
		}
	}
	return nil
}
