package repository

import (
	"context"

	"github.com/compozy/autotag/internal/domain"
	"github.com/go-git/go-git/v5/plumbing/format/diff"
)

// GitRepository defines the interface for Git operations.
type GitRepository interface {
	ListTags(ctx context.Context) ([]domain.TagRef, error)
	TagTarget(ctx context.Context, name string) (string, error)
	HeadCommit(ctx context.Context) (string, error)
	ParentCommit(ctx context.Context, commit string) (string, error)
	// Diff returns the patch that turns from into to.
	Diff(ctx context.Context, from, to string) (diff.Patch, error)
	WorkingDir() string
	CreateTag(ctx context.Context, name, commit string) error
	DeleteTag(ctx context.Context, name string) error
	FetchTags(ctx context.Context) error
}

// RemoteRepository pushes refs to a remote. A ref name prefixed with ":"
// deletes that ref on the remote.
type RemoteRepository interface {
	Push(ctx context.Context, refName string) error
}
