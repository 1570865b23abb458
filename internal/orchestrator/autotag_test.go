package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/compozy/autotag/internal/domain"
	"github.com/compozy/autotag/internal/repository"
	"github.com/compozy/autotag/internal/service"
	"github.com/go-git/go-git/v5/plumbing/format/diff"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func fixedClassifier(types ...domain.UpdateType) service.Classifier {
	return service.ClassifierFunc(func(context.Context, diff.Patch, string) (domain.UpdateTypes, error) {
		return domain.NewUpdateTypes(types...), nil
	})
}

func newOrchestrator(
	repo *fakeGitRepository,
	remote repository.RemoteRepository,
	classifier service.Classifier,
	journal repository.JournalRepository,
) (*AutotagOrchestrator, *bytes.Buffer) {
	o := NewAutotagOrchestrator(repo, remote, classifier, journal, zap.NewNop())
	out := &bytes.Buffer{}
	o.SetOutput(out)
	return o, out
}

func TestAutotagOrchestrator_Execute(t *testing.T) {
	ctx := context.Background()

	t.Run("Should create and push only the bumped tag", func(t *testing.T) {
		repo := newFakeGitRepository(map[string]string{"v2.1.4": parentHash, "v2.0.0": "old"})
		remote := &fakeRemote{}
		o, out := newOrchestrator(repo, remote, fixedClassifier(domain.UpdateMajor), nil)
		result, err := o.Execute(ctx, AutotagConfig{Push: true, CIOutput: true})
		require.NoError(t, err)
		assert.Equal(t, domain.TransitionBump, result.Plan.Transition)
		assert.Equal(t, "3.0.0", result.Release.Next.String())
		assert.Equal(t, headHash, repo.tags["v3.0.0"])
		assert.Equal(t, parentHash, repo.tags["v2.1.4"])
		assert.Equal(t, []string{"v3.0.0"}, remote.pushed)
		assert.Contains(t, out.String(), "latest_version=2.1.4\n")
		assert.Contains(t, out.String(), "new_version=3.0.0\n")
		assert.Contains(t, out.String(), "update_type=major\n")
		assert.Contains(t, out.String(), "transition=bump\n")
		assert.Contains(t, out.String(), "tag=v3.0.0\n")
		assert.Equal(t, domain.RunStatusCompleted, result.Record.Status)
	})

	t.Run("Should order tags numerically", func(t *testing.T) {
		repo := newFakeGitRepository(map[string]string{"v1.9.0": "x", "v1.10.0": parentHash})
		o, _ := newOrchestrator(repo, nil, fixedClassifier(domain.UpdatePatch), nil)
		result, err := o.Execute(ctx, AutotagConfig{})
		require.NoError(t, err)
		assert.Equal(t, "1.10.1", result.Release.Next.String())
		assert.Contains(t, repo.tags, "v1.10.1")
	})

	t.Run("Should reseat the latest tag and push deletion first", func(t *testing.T) {
		repo := newFakeGitRepository(map[string]string{"v2.1.4": parentHash})
		remote := &fakeRemote{}
		o, _ := newOrchestrator(repo, remote, fixedClassifier(domain.UpdateReseat), nil)
		result, err := o.Execute(ctx, AutotagConfig{Push: true})
		require.NoError(t, err)
		assert.Equal(t, domain.TransitionReseat, result.Plan.Transition)
		assert.Equal(t, headHash, repo.tags["v2.1.4"])
		assert.Len(t, repo.tags, 1)
		assert.Equal(t, []string{":v2.1.4", "v2.1.4"}, remote.pushed)
		assert.Equal(t, []string{"delete v2.1.4", "create v2.1.4"}, repo.calls[len(repo.calls)-2:])
	})

	t.Run("Should ignore reseat when a severity is present", func(t *testing.T) {
		repo := newFakeGitRepository(map[string]string{"v2.1.4": parentHash})
		o, _ := newOrchestrator(repo, nil, fixedClassifier(domain.UpdateReseat, domain.UpdateMinor), nil)
		result, err := o.Execute(ctx, AutotagConfig{})
		require.NoError(t, err)
		assert.Equal(t, "2.2.0", result.Release.Next.String())
		assert.Equal(t, parentHash, repo.tags["v2.1.4"])
	})

	t.Run("Should leave tags untouched for an empty classification", func(t *testing.T) {
		repo := newFakeGitRepository(map[string]string{"v2.1.4": parentHash})
		remote := &fakeRemote{}
		o, out := newOrchestrator(repo, remote, fixedClassifier(), nil)
		result, err := o.Execute(ctx, AutotagConfig{Push: true, CIOutput: true})
		require.NoError(t, err)
		assert.Equal(t, domain.TransitionNoChange, result.Plan.Transition)
		assert.Empty(t, result.Plan.Operations)
		assert.Equal(t, map[string]string{"v2.1.4": parentHash}, repo.tags)
		assert.Empty(t, remote.pushed)
		assert.Contains(t, out.String(), "new_version=2.1.4\n")
		assert.Contains(t, out.String(), "update_type=none\n")
	})

	t.Run("Should fail without tags before diffing", func(t *testing.T) {
		repo := newFakeGitRepository(nil)
		o, _ := newOrchestrator(repo, nil, fixedClassifier(domain.UpdatePatch), nil)
		_, err := o.Execute(ctx, AutotagConfig{})
		require.ErrorIs(t, err, domain.ErrNoTagsFound)
		assert.Equal(t, []string{"list"}, repo.calls)
		assert.Empty(t, repo.tags)
	})

	t.Run("Should fail on a malformed latest tag", func(t *testing.T) {
		repo := newFakeGitRepository(map[string]string{"v2.1.4": parentHash, "nightly": "x"})
		o, _ := newOrchestrator(repo, nil, fixedClassifier(domain.UpdatePatch), nil)
		_, err := o.Execute(ctx, AutotagConfig{})
		require.ErrorIs(t, err, domain.ErrMalformedTagName)
		assert.Contains(t, err.Error(), "nightly")
	})

	t.Run("Should not mutate when the classifier fails", func(t *testing.T) {
		repo := newFakeGitRepository(map[string]string{"v2.1.4": parentHash})
		classifyErr := errors.New("policy unavailable")
		classifier := service.ClassifierFunc(func(context.Context, diff.Patch, string) (domain.UpdateTypes, error) {
			return nil, classifyErr
		})
		o, _ := newOrchestrator(repo, &fakeRemote{}, classifier, nil)
		_, err := o.Execute(ctx, AutotagConfig{Push: true})
		require.ErrorIs(t, err, classifyErr)
		assert.Equal(t, map[string]string{"v2.1.4": parentHash}, repo.tags)
	})

	t.Run("Should fail on a root commit", func(t *testing.T) {
		repo := newFakeGitRepository(map[string]string{"v0.1.0": headHash})
		repo.parent = ""
		o, _ := newOrchestrator(repo, nil, fixedClassifier(domain.UpdatePatch), nil)
		_, err := o.Execute(ctx, AutotagConfig{})
		require.ErrorIs(t, err, domain.ErrNoParentCommit)
	})

	t.Run("Should keep the local tag when push fails", func(t *testing.T) {
		repo := newFakeGitRepository(map[string]string{"v1.0.0": parentHash})
		remote := &fakeRemote{pushErr: errors.New("permission denied")}
		journal := repository.NewJSONJournalRepository(afero.NewMemMapFs(), t.TempDir())
		o, _ := newOrchestrator(repo, remote, fixedClassifier(domain.UpdatePatch), journal)
		result, err := o.Execute(ctx, AutotagConfig{Push: true})
		require.Error(t, err)
		var opErr *domain.TagOperationError
		require.ErrorAs(t, err, &opErr)
		assert.Equal(t, domain.OperationTypePushTag, opErr.Op)
		assert.Equal(t, headHash, repo.tags["v1.0.1"])

		saved, err := journal.LoadLatest(ctx)
		require.NoError(t, err)
		assert.Equal(t, result.SessionID, saved.SessionID)
		assert.Equal(t, domain.RunStatusFailed, saved.Status)
		require.Len(t, saved.Operations, 2)
		assert.Equal(t, domain.OperationStatusCompleted, saved.Operations[0].Status)
		assert.Equal(t, domain.OperationStatusFailed, saved.Operations[1].Status)
		assert.Contains(t, saved.Operations[1].Error, "permission denied")
	})

	t.Run("Should only plan in dry run", func(t *testing.T) {
		repo := newFakeGitRepository(map[string]string{"v1.4.2": parentHash})
		remote := &fakeRemote{}
		journal := repository.NewJSONJournalRepository(afero.NewMemMapFs(), t.TempDir())
		o, out := newOrchestrator(repo, remote, fixedClassifier(domain.UpdateMinor), journal)
		result, err := o.Execute(ctx, AutotagConfig{Push: true, DryRun: true, CIOutput: true})
		require.NoError(t, err)
		assert.Equal(t, "1.5.0", result.Release.Next.String())
		assert.Len(t, result.Plan.Operations, 2)
		assert.NotContains(t, repo.tags, "v1.5.0")
		assert.Empty(t, remote.pushed)
		assert.Contains(t, out.String(), "tag=v1.5.0\n")
		assert.Contains(t, out.String(), "session_id="+result.SessionID+"\n")

		saved, err := journal.Load(ctx, result.SessionID)
		require.NoError(t, err)
		assert.True(t, saved.DryRun)
		assert.Equal(t, domain.RunStatusPlanned, saved.Status)
		require.Len(t, saved.Operations, 2)
		assert.Equal(t, domain.OperationStatusPending, saved.Operations[0].Status)
	})

	t.Run("Should fetch tags before resolving", func(t *testing.T) {
		repo := newFakeGitRepository(map[string]string{"v1.0.0": "x"})
		repo.remote["v1.2.0"] = parentHash
		o, _ := newOrchestrator(repo, nil, fixedClassifier(domain.UpdatePatch), nil)
		result, err := o.Execute(ctx, AutotagConfig{FetchTags: true})
		require.NoError(t, err)
		assert.Equal(t, "fetch", repo.calls[0])
		assert.Equal(t, "1.2.1", result.Release.Next.String())
		require.NotEmpty(t, result.Record.Operations)
		assert.Equal(t, domain.OperationTypeFetchTags, result.Record.Operations[0].Type)
	})

	t.Run("Should stop when fetching tags fails", func(t *testing.T) {
		repo := newFakeGitRepository(map[string]string{"v1.0.0": parentHash})
		repo.fetchErr = errors.New("unreachable")
		o, _ := newOrchestrator(repo, nil, fixedClassifier(domain.UpdatePatch), nil)
		_, err := o.Execute(ctx, AutotagConfig{FetchTags: true})
		require.ErrorIs(t, err, repo.fetchErr)
		assert.Equal(t, []string{"fetch"}, repo.calls)
	})

	t.Run("Should refuse to push without a remote", func(t *testing.T) {
		repo := newFakeGitRepository(map[string]string{"v1.0.0": parentHash})
		o, _ := newOrchestrator(repo, nil, fixedClassifier(domain.UpdatePatch), nil)
		_, err := o.Execute(ctx, AutotagConfig{Push: true})
		require.Error(t, err)
		assert.Empty(t, repo.calls)
	})

	t.Run("Should classify with path rules", func(t *testing.T) {
		repo := newFakeGitRepository(map[string]string{"v0.3.1": parentHash})
		repo.patch = fakePatch{paths: []string{"docs/intro.md", "api/v1.proto"}}
		classifier, err := service.NewPathRulesClassifier([]service.PathRule{
			{Pattern: "docs/", Update: domain.UpdateNone},
			{Pattern: "*.proto", Update: domain.UpdateMajor},
		}, domain.UpdatePatch, true)
		require.NoError(t, err)
		o, _ := newOrchestrator(repo, nil, classifier, nil)
		result, err := o.Execute(ctx, AutotagConfig{})
		require.NoError(t, err)
		assert.Equal(t, "1.0.0", result.Release.Next.String())
		assert.Contains(t, repo.tags, "v1.0.0")
	})
}

func TestAutotagOrchestrator_Logging(t *testing.T) {
	t.Run("Should report latest and new versions", func(t *testing.T) {
		core, logs := observer.New(zap.InfoLevel)
		repo := newFakeGitRepository(map[string]string{"v2.1.4": parentHash})
		o := NewAutotagOrchestrator(repo, nil, fixedClassifier(domain.UpdateMinor), nil, zap.New(core))
		_, err := o.Execute(context.Background(), AutotagConfig{})
		require.NoError(t, err)
		latest := logs.FilterMessage("latest version").All()
		require.Len(t, latest, 1)
		assert.Equal(t, "2.1.4", latest[0].ContextMap()["version"])
		next := logs.FilterMessage("new version").All()
		require.Len(t, next, 1)
		assert.Equal(t, "2.2.0", next[0].ContextMap()["version"])
		assert.Equal(t, "minor", next[0].ContextMap()["update_type"])
	})
}
