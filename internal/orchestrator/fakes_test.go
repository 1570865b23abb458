package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/compozy/autotag/internal/domain"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/format/diff"
)

var (
	headHash   = strings.Repeat("a", 40)
	parentHash = strings.Repeat("b", 40)
)

// fakeGitRepository is an in-memory repository with a two-commit history.
type fakeGitRepository struct {
	tags      map[string]string
	remote    map[string]string
	head      string
	parent    string
	patch     diff.Patch
	fetchErr  error
	createErr error
	calls     []string
}

func newFakeGitRepository(tags map[string]string) *fakeGitRepository {
	if tags == nil {
		tags = map[string]string{}
	}
	return &fakeGitRepository{
		tags:   tags,
		remote: map[string]string{},
		head:   headHash,
		parent: parentHash,
		patch:  fakePatch{},
	}
}

func (r *fakeGitRepository) ListTags(_ context.Context) ([]domain.TagRef, error) {
	r.calls = append(r.calls, "list")
	names := make([]string, 0, len(r.tags))
	for name := range r.tags {
		names = append(names, name)
	}
	slices.Sort(names)
	refs := make([]domain.TagRef, 0, len(names))
	for _, name := range names {
		refs = append(refs, domain.TagRef{Name: name, Target: r.tags[name]})
	}
	return refs, nil
}

func (r *fakeGitRepository) TagTarget(_ context.Context, name string) (string, error) {
	target, ok := r.tags[name]
	if !ok {
		return "", fmt.Errorf("tag %s not found", name)
	}
	return target, nil
}

func (r *fakeGitRepository) HeadCommit(_ context.Context) (string, error) {
	r.calls = append(r.calls, "head")
	return r.head, nil
}

func (r *fakeGitRepository) ParentCommit(_ context.Context, commit string) (string, error) {
	r.calls = append(r.calls, "parent")
	if commit != r.head || r.parent == "" {
		return "", domain.ErrNoParentCommit
	}
	return r.parent, nil
}

func (r *fakeGitRepository) Diff(_ context.Context, from, to string) (diff.Patch, error) {
	r.calls = append(r.calls, "diff "+domain.ShortHash(from)+".."+domain.ShortHash(to))
	return r.patch, nil
}

func (r *fakeGitRepository) WorkingDir() string {
	return "/work"
}

func (r *fakeGitRepository) CreateTag(_ context.Context, name, commit string) error {
	r.calls = append(r.calls, "create "+name)
	if r.createErr != nil {
		return r.createErr
	}
	if _, ok := r.tags[name]; ok {
		return errors.New("tag already exists")
	}
	r.tags[name] = commit
	return nil
}

func (r *fakeGitRepository) DeleteTag(_ context.Context, name string) error {
	r.calls = append(r.calls, "delete "+name)
	if _, ok := r.tags[name]; !ok {
		return errors.New("tag not found")
	}
	delete(r.tags, name)
	return nil
}

func (r *fakeGitRepository) FetchTags(_ context.Context) error {
	r.calls = append(r.calls, "fetch")
	if r.fetchErr != nil {
		return r.fetchErr
	}
	for name, target := range r.remote {
		r.tags[name] = target
	}
	return nil
}

// fakeRemote records pushed ref names.
type fakeRemote struct {
	pushed  []string
	pushErr error
}

func (r *fakeRemote) Push(_ context.Context, refName string) error {
	if r.pushErr != nil {
		return r.pushErr
	}
	r.pushed = append(r.pushed, refName)
	return nil
}

type fakeFile struct{ path string }

func (f fakeFile) Hash() plumbing.Hash     { return plumbing.ZeroHash }
func (f fakeFile) Mode() filemode.FileMode { return filemode.Regular }
func (f fakeFile) Path() string            { return f.path }

type fakeFilePatch struct{ path string }

func (p fakeFilePatch) IsBinary() bool { return false }
func (p fakeFilePatch) Files() (diff.File, diff.File) {
	return fakeFile{p.path}, fakeFile{p.path}
}
func (p fakeFilePatch) Chunks() []diff.Chunk { return nil }

type fakePatch struct{ paths []string }

func (p fakePatch) FilePatches() []diff.FilePatch {
	out := make([]diff.FilePatch, len(p.paths))
	for i, path := range p.paths {
		out[i] = fakeFilePatch{path: path}
	}
	return out
}
func (p fakePatch) Message() string { return "" }
