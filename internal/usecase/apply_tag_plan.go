package usecase

import (
	"context"
	"errors"

	"github.com/compozy/autotag/internal/domain"
	"github.com/compozy/autotag/internal/repository"
)

var errNoRemote = errors.New("no remote configured")

// ApplyTagPlanUseCase executes tag operations against the local repository and the remote.
type ApplyTagPlanUseCase struct {
	GitRepo repository.GitRepository
	Remote  repository.RemoteRepository
}

// Execute runs the plan in order and stops at the first failure. Operations
// already applied stay applied.
func (uc *ApplyTagPlanUseCase) Execute(ctx context.Context, plan domain.TagPlan) error {
	for _, op := range plan.Operations {
		if err := uc.ExecuteOperation(ctx, op); err != nil {
			return err
		}
	}
	return nil
}

// ExecuteOperation runs a single operation. Failures are returned as *domain.TagOperationError.
func (uc *ApplyTagPlanUseCase) ExecuteOperation(ctx context.Context, op domain.TagOperation) error {
	var err error
	switch op.Type {
	case domain.OperationTypeCreateTag:
		err = uc.GitRepo.CreateTag(ctx, op.Tag, op.Commit)
	case domain.OperationTypeDeleteTag:
		err = uc.GitRepo.DeleteTag(ctx, op.Tag)
	case domain.OperationTypeFetchTags:
		err = uc.GitRepo.FetchTags(ctx)
	case domain.OperationTypePushTag, domain.OperationTypePushDeleteTag:
		if uc.Remote == nil {
			err = errNoRemote
			break
		}
		err = uc.Remote.Push(ctx, op.RefName())
	default:
		err = errors.New("unknown operation type")
	}
	if err != nil {
		return &domain.TagOperationError{Op: op.Type, Tag: op.Tag, Err: err}
	}
	return nil
}
