package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNoTagsFound is returned when the repository has no tag to start from.
	ErrNoTagsFound = errors.New("no version tags found")
	// ErrMalformedTagName is returned for tag names not shaped like v<major>.<minor>.<patch>.
	ErrMalformedTagName = errors.New("malformed tag name")
	// ErrNoParentCommit is returned when HEAD has no parent to diff against.
	ErrNoParentCommit = errors.New("head commit has no parent")
)

// TagOperationError reports a failed repository or remote mutation.
type TagOperationError struct {
	Op  OperationType
	Tag string
	Err error
}

func (e *TagOperationError) Error() string {
	if e.Tag == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Tag, e.Err)
}

func (e *TagOperationError) Unwrap() error {
	return e.Err
}
