package orchestrator

import (
	"context"
	"fmt"

	"github.com/compozy/autotag/internal/domain"
	"github.com/compozy/autotag/internal/repository"
	"go.uber.org/zap"
)

// Step is a single journaled operation of a run.
type Step struct {
	Operation domain.TagOperation
	Execute   func(ctx context.Context) error
}

// StepExecutor runs steps strictly in order and records their progress in
// the run record. A failed step stops the run; completed steps are not undone.
type StepExecutor struct {
	record  *domain.RunRecord
	journal repository.JournalRepository
	logger  *zap.Logger
	steps   []Step
	ids     []string
}

// NewStepExecutor creates an executor for record. journal may be nil.
func NewStepExecutor(
	record *domain.RunRecord,
	journal repository.JournalRepository,
	logger *zap.Logger,
) *StepExecutor {
	return &StepExecutor{
		record:  record,
		journal: journal,
		logger:  logger,
	}
}

// AddStep adds a step and registers its operation as pending.
func (s *StepExecutor) AddStep(step Step) {
	s.steps = append(s.steps, step)
	s.ids = append(s.ids, s.record.AddOperation(step.Operation))
}

// Execute runs all steps. The record ends as completed or failed.
func (s *StepExecutor) Execute(ctx context.Context) error {
	s.record.Status = domain.RunStatusRunning
	s.save(ctx)
	for i, step := range s.steps {
		id := s.ids[i]
		if err := ctx.Err(); err != nil {
			s.record.Fail(err)
			s.save(ctx)
			return err
		}
		s.record.MarkOperationStarted(id)
		s.save(ctx)
		s.logger.Debug("executing operation",
			zap.String("operation", string(step.Operation.Type)),
			zap.String("tag", step.Operation.Tag))
		if err := step.Execute(ctx); err != nil {
			s.record.MarkOperationFailed(id, err)
			s.save(ctx)
			return fmt.Errorf("operation %s failed: %w", id, err)
		}
		s.record.MarkOperationCompleted(id)
		s.logger.Info("operation completed",
			zap.String("operation", string(step.Operation.Type)),
			zap.String("tag", step.Operation.Tag))
	}
	s.record.Status = domain.RunStatusCompleted
	s.save(ctx)
	return nil
}

// Record returns the run record.
func (s *StepExecutor) Record() *domain.RunRecord {
	return s.record
}

// save persists the record. Journal failures never fail the run.
func (s *StepExecutor) save(ctx context.Context) {
	if s.journal == nil {
		return
	}
	if err := s.journal.Save(context.WithoutCancel(ctx), s.record); err != nil {
		s.logger.Warn("failed to save run journal", zap.Error(err))
	}
}
