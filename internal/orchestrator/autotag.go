package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/compozy/autotag/internal/domain"
	"github.com/compozy/autotag/internal/repository"
	"github.com/compozy/autotag/internal/service"
	"github.com/compozy/autotag/internal/usecase"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AutotagConfig contains the per-run options of the autotag workflow.
type AutotagConfig struct {
	Push      bool
	DryRun    bool
	CIOutput  bool
	FetchTags bool
}

// AutotagResult describes what a run decided and did.
type AutotagResult struct {
	SessionID string
	Release   *domain.Release
	Plan      domain.TagPlan
	Record    *domain.RunRecord
}

// AutotagOrchestrator drives resolve, classify, calculate, plan and apply.
type AutotagOrchestrator struct {
	gitRepo    repository.GitRepository
	remote     repository.RemoteRepository
	classifier service.Classifier
	journal    repository.JournalRepository
	logger     *zap.Logger
	out        io.Writer
}

// NewAutotagOrchestrator creates a new autotag orchestrator. remote and
// journal may be nil when pushing or journaling is disabled.
func NewAutotagOrchestrator(
	gitRepo repository.GitRepository,
	remote repository.RemoteRepository,
	classifier service.Classifier,
	journal repository.JournalRepository,
	logger *zap.Logger,
) *AutotagOrchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AutotagOrchestrator{
		gitRepo:    gitRepo,
		remote:     remote,
		classifier: classifier,
		journal:    journal,
		logger:     logger,
		out:        os.Stdout,
	}
}

// SetOutput redirects CI output.
func (o *AutotagOrchestrator) SetOutput(w io.Writer) {
	o.out = w
}

// Execute runs the workflow once. Steps run strictly in sequence; the first
// failure ends the run and nothing already applied is rolled back.
func (o *AutotagOrchestrator) Execute(ctx context.Context, cfg AutotagConfig) (*AutotagResult, error) {
	if cfg.Push && !cfg.DryRun && o.remote == nil {
		return nil, errors.New("push requested but no remote is configured")
	}
	sessionID := uuid.New().String()
	record := domain.NewRunRecord(sessionID)
	record.DryRun = cfg.DryRun
	result := &AutotagResult{SessionID: sessionID, Record: record}
	logger := o.logger.With(zap.String("session_id", sessionID))
	apply := &usecase.ApplyTagPlanUseCase{GitRepo: o.gitRepo, Remote: o.remote}

	if cfg.FetchTags {
		fetch := domain.TagOperation{Type: domain.OperationTypeFetchTags}
		executor := NewStepExecutor(record, o.journal, logger)
		executor.AddStep(Step{Operation: fetch, Execute: func(ctx context.Context) error {
			return apply.ExecuteOperation(ctx, fetch)
		}})
		if err := executor.Execute(ctx); err != nil {
			return result, err
		}
	}

	release, err := o.calculate(ctx, logger)
	if err != nil {
		o.fail(ctx, record, err)
		return result, err
	}
	result.Release = release
	record.SetRelease(release)

	plan := domain.PlanTransition(release.Latest, release.Next, release.Dominant, release.HeadCommit, cfg.Push)
	result.Plan = plan
	record.Transition = plan.Transition
	if err := ValidatePlan(plan); err != nil {
		o.fail(ctx, record, err)
		return result, fmt.Errorf("invalid tag plan: %w", err)
	}
	logger.Info("tag plan decided",
		zap.String("transition", string(plan.Transition)),
		zap.String("tag", plan.Tag),
		zap.Int("operations", len(plan.Operations)))
	o.printRelease(cfg.CIOutput, sessionID, release, plan)

	if cfg.DryRun {
		for _, op := range plan.Operations {
			record.AddOperation(op)
			logger.Info("dry run: would execute operation",
				zap.String("operation", string(op.Type)),
				zap.String("ref", op.RefName()))
		}
		record.Status = domain.RunStatusPlanned
		o.save(ctx, record, logger)
		return result, nil
	}

	executor := NewStepExecutor(record, o.journal, logger)
	for _, op := range plan.Operations {
		executor.AddStep(Step{Operation: op, Execute: func(ctx context.Context) error {
			return apply.ExecuteOperation(ctx, op)
		}})
	}
	if err := executor.Execute(ctx); err != nil {
		return result, err
	}
	if plan.Transition == domain.TransitionNoChange {
		logger.Info("no qualifying change, tags left untouched")
	}
	return result, nil
}

// calculate resolves the latest version and classifies the head commit.
func (o *AutotagOrchestrator) calculate(ctx context.Context, logger *zap.Logger) (*domain.Release, error) {
	resolve := &usecase.ResolveLatestUseCase{GitRepo: o.gitRepo}
	latest, latestTag, err := resolve.Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve latest version: %w", err)
	}
	logger.Info("latest version",
		zap.String("version", latest.String()),
		zap.String("tag", latestTag.Name),
		zap.String("commit", domain.ShortHash(latestTag.Target)))
	calc := &usecase.CalculateVersionUseCase{GitRepo: o.gitRepo, Classifier: o.classifier}
	release, err := calc.Execute(ctx, latest, latestTag)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate version: %w", err)
	}
	logger.Info("new version",
		zap.String("version", release.Next.String()),
		zap.String("update_type", release.Dominant.String()),
		zap.Strings("update_types", release.UpdateTypes.Strings()),
		zap.String("head", domain.ShortHash(release.HeadCommit)))
	return release, nil
}

func (o *AutotagOrchestrator) fail(ctx context.Context, record *domain.RunRecord, err error) {
	record.Fail(err)
	o.save(ctx, record, o.logger)
}

func (o *AutotagOrchestrator) save(ctx context.Context, record *domain.RunRecord, logger *zap.Logger) {
	if o.journal == nil {
		return
	}
	if err := o.journal.Save(context.WithoutCancel(ctx), record); err != nil {
		logger.Warn("failed to save run journal", zap.Error(err))
	}
}

// printRelease prints the outcome as key=value lines in CI mode
func (o *AutotagOrchestrator) printRelease(
	ciOutput bool,
	sessionID string,
	release *domain.Release,
	plan domain.TagPlan,
) {
	o.printCIOutput(ciOutput, "%s=%s\n", OutputLatestVersion, release.Latest.String())
	o.printCIOutput(ciOutput, "%s=%s\n", OutputNewVersion, release.Next.String())
	o.printCIOutput(ciOutput, "%s=%s\n", OutputUpdateType, release.Dominant.String())
	o.printCIOutput(ciOutput, "%s=%s\n", OutputTransition, plan.Transition)
	o.printCIOutput(ciOutput, "%s=%s\n", OutputTag, plan.Tag)
	if o.journal != nil {
		o.printCIOutput(ciOutput, "%s=%s\n", OutputSessionID, sessionID)
	}
}

// printCIOutput prints CI-formatted output if enabled
func (o *AutotagOrchestrator) printCIOutput(ciOutput bool, format string, args ...any) {
	if ciOutput {
		fmt.Fprintf(o.out, format, args...)
	}
}
