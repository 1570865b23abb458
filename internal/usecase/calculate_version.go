package usecase

import (
	"context"
	"fmt"

	"github.com/compozy/autotag/internal/domain"
	"github.com/compozy/autotag/internal/repository"
	"github.com/compozy/autotag/internal/service"
)

// CalculateVersionUseCase classifies the head commit and derives the next version.
type CalculateVersionUseCase struct {
	GitRepo    repository.GitRepository
	Classifier service.Classifier
}

// Execute diffs HEAD against its first parent, classifies the patch and
// applies the update rules to latest. It never mutates the repository.
func (uc *CalculateVersionUseCase) Execute(
	ctx context.Context,
	latest *domain.Version,
	latestTag domain.TagRef,
) (*domain.Release, error) {
	head, err := uc.GitRepo.HeadCommit(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve head: %w", err)
	}
	parent, err := uc.GitRepo.ParentCommit(ctx, head)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve parent of %s: %w", domain.ShortHash(head), err)
	}
	patch, err := uc.GitRepo.Diff(ctx, parent, head)
	if err != nil {
		return nil, fmt.Errorf("failed to diff %s..%s: %w", domain.ShortHash(parent), domain.ShortHash(head), err)
	}
	types, err := uc.Classifier.Classify(ctx, patch, uc.GitRepo.WorkingDir())
	if err != nil {
		return nil, fmt.Errorf("failed to classify changes: %w", err)
	}
	if types == nil {
		types = domain.NewUpdateTypes()
	}
	dominant, next := domain.Calculate(latest, types)
	return &domain.Release{
		Latest:      latest,
		LatestTag:   latestTag,
		Next:        next,
		UpdateTypes: types,
		Dominant:    dominant,
		HeadCommit:  head,
	}, nil
}
