package service

import (
	"context"

	"github.com/compozy/autotag/internal/domain"
	"github.com/go-git/go-git/v5/plumbing/format/diff"
)

// Classifier decides which update types a change set implies. The patch goes
// from the first parent of HEAD to HEAD. An empty result means no qualifying
// change.
type Classifier interface {
	Classify(ctx context.Context, patch diff.Patch, workingDir string) (domain.UpdateTypes, error)
}

// ClassifierFunc adapts a plain function to the Classifier interface.
type ClassifierFunc func(ctx context.Context, patch diff.Patch, workingDir string) (domain.UpdateTypes, error)

// Classify calls f.
func (f ClassifierFunc) Classify(
	ctx context.Context,
	patch diff.Patch,
	workingDir string,
) (domain.UpdateTypes, error) {
	return f(ctx, patch, workingDir)
}
