package usecase

import (
	"context"
	"fmt"

	"github.com/compozy/autotag/internal/domain"
	"github.com/compozy/autotag/internal/repository"
)

// ResolveLatestUseCase finds the latest version tag of the repository.
type ResolveLatestUseCase struct {
	GitRepo repository.GitRepository
}

// Execute returns the highest version among the repository tags and the tag it came from.
func (uc *ResolveLatestUseCase) Execute(ctx context.Context) (*domain.Version, domain.TagRef, error) {
	tags, err := uc.GitRepo.ListTags(ctx)
	if err != nil {
		return nil, domain.TagRef{}, fmt.Errorf("failed to list tags: %w", err)
	}
	return domain.ResolveLatest(tags)
}
