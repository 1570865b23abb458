package usecase

import (
	"context"

	"github.com/compozy/autotag/internal/domain"
	"github.com/go-git/go-git/v5/plumbing/format/diff"
	"github.com/stretchr/testify/mock"
)

// Mock for GitRepository
type mockGitRepository struct {
	mock.Mock
}

func (m *mockGitRepository) ListTags(ctx context.Context) ([]domain.TagRef, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TagRef), args.Error(1)
}

func (m *mockGitRepository) TagTarget(ctx context.Context, name string) (string, error) {
	args := m.Called(ctx, name)
	return args.String(0), args.Error(1)
}

func (m *mockGitRepository) HeadCommit(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *mockGitRepository) ParentCommit(ctx context.Context, commit string) (string, error) {
	args := m.Called(ctx, commit)
	return args.String(0), args.Error(1)
}

func (m *mockGitRepository) Diff(ctx context.Context, from, to string) (diff.Patch, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(diff.Patch), args.Error(1)
}

func (m *mockGitRepository) WorkingDir() string {
	args := m.Called()
	return args.String(0)
}

func (m *mockGitRepository) CreateTag(ctx context.Context, name, commit string) error {
	args := m.Called(ctx, name, commit)
	return args.Error(0)
}

func (m *mockGitRepository) DeleteTag(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

func (m *mockGitRepository) FetchTags(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Mock for RemoteRepository
type mockRemote struct {
	mock.Mock
}

func (m *mockRemote) Push(ctx context.Context, refName string) error {
	args := m.Called(ctx, refName)
	return args.Error(0)
}

// Mock for Classifier
type mockClassifier struct {
	mock.Mock
}

func (m *mockClassifier) Classify(ctx context.Context, patch diff.Patch, workingDir string) (domain.UpdateTypes, error) {
	args := m.Called(ctx, patch, workingDir)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.UpdateTypes), args.Error(1)
}

// emptyPatch is a diff with no file changes.
type emptyPatch struct{}

func (emptyPatch) FilePatches() []diff.FilePatch { return nil }
func (emptyPatch) Message() string               { return "" }

func mustVersion(s string) *domain.Version {
	v, err := domain.NewVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}
