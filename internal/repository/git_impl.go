package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/compozy/autotag/internal/domain"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/format/diff"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
)

// VersionPlaceholder is replaced by the tag name in annotated tag messages.
const VersionPlaceholder = "{{version}}"

// GitOptions configures how the repository is opened and how tags are written.
type GitOptions struct {
	// Path is any directory inside the work tree; parents are searched for .git.
	Path        string
	RemoteName  string
	Token       string
	TagMessage  string
	TaggerName  string
	TaggerEmail string
}

// gitRepository is the implementation of the GitRepository interface.
type gitRepository struct {
	repo       *git.Repository
	workingDir string
	opts       GitOptions
}

// gitRemote pushes tags through the git transport of a configured remote.
type gitRemote struct {
	repo *git.Repository
	opts GitOptions
}

func openRepository(path string) (*git.Repository, error) {
	if path == "" {
		path = "."
	}
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open git repository: %w", err)
	}
	return repo, nil
}

// NewGitRepository opens the repository containing opts.Path.
func NewGitRepository(opts GitOptions) (GitRepository, error) {
	repo, err := openRepository(opts.Path)
	if err != nil {
		return nil, err
	}
	return newGitRepository(repo, opts)
}

func newGitRepository(repo *git.Repository, opts GitOptions) (*gitRepository, error) {
	var workingDir string
	wt, err := repo.Worktree()
	switch {
	case err == nil:
		workingDir = wt.Filesystem.Root()
	case errors.Is(err, git.ErrIsBareRepository):
	default:
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}
	return &gitRepository{repo: repo, workingDir: workingDir, opts: opts}, nil
}

// NewGitRemote creates a RemoteRepository pushing to opts.RemoteName.
func NewGitRemote(opts GitOptions) (RemoteRepository, error) {
	repo, err := openRepository(opts.Path)
	if err != nil {
		return nil, err
	}
	if _, err := repo.Remote(opts.RemoteName); err != nil {
		return nil, fmt.Errorf("failed to get remote %s: %w", opts.RemoteName, err)
	}
	return &gitRemote{repo: repo, opts: opts}, nil
}

// ListTags returns every tag, sorted by name, peeled to its commit.
func (r *gitRepository) ListTags(_ context.Context) ([]domain.TagRef, error) {
	tagRefs, err := r.repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("failed to get tags: %w", err)
	}
	var tags []domain.TagRef
	if err := tagRefs.ForEach(func(ref *plumbing.Reference) error {
		hash, err := r.resolveTagCommit(ref)
		if err != nil {
			return fmt.Errorf("failed to resolve tag %s: %w", ref.Name().Short(), err)
		}
		tags = append(tags, domain.TagRef{Name: ref.Name().Short(), Target: hash.String()})
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to iterate tags: %w", err)
	}
	slices.SortFunc(tags, func(a, b domain.TagRef) int {
		return strings.Compare(a.Name, b.Name)
	})
	return tags, nil
}

// TagTarget returns the commit a tag points at.
func (r *gitRepository) TagTarget(_ context.Context, name string) (string, error) {
	ref, err := r.repo.Tag(name)
	if err != nil {
		return "", fmt.Errorf("failed to get tag %s: %w", name, err)
	}
	hash, err := r.resolveTagCommit(ref)
	if err != nil {
		return "", fmt.Errorf("failed to resolve tag %s: %w", name, err)
	}
	return hash.String(), nil
}

// resolveTagCommit resolves a tag reference to its commit hash.
func (r *gitRepository) resolveTagCommit(tagRef *plumbing.Reference) (plumbing.Hash, error) {
	// Try as lightweight tag first
	if commit, err := r.repo.CommitObject(tagRef.Hash()); err == nil {
		return commit.Hash, nil
	}
	// Try as annotated tag
	if tagObj, err := r.repo.TagObject(tagRef.Hash()); err == nil {
		if commit, err := tagObj.Commit(); err == nil {
			return commit.Hash, nil
		}
	}
	return plumbing.ZeroHash, fmt.Errorf("tag does not point at a commit")
}

// HeadCommit returns the SHA of the current HEAD commit.
func (r *gitRepository) HeadCommit(_ context.Context) (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to get HEAD: %w", err)
	}
	return head.Hash().String(), nil
}

// ParentCommit returns the first parent of commit.
func (r *gitRepository) ParentCommit(_ context.Context, commit string) (string, error) {
	c, err := r.repo.CommitObject(plumbing.NewHash(commit))
	if err != nil {
		return "", fmt.Errorf("failed to get commit %s: %w", commit, err)
	}
	if c.NumParents() == 0 {
		return "", fmt.Errorf("%w: %s", domain.ErrNoParentCommit, domain.ShortHash(commit))
	}
	return c.ParentHashes[0].String(), nil
}

// Diff returns the patch that turns from into to.
func (r *gitRepository) Diff(ctx context.Context, from, to string) (diff.Patch, error) {
	fromCommit, err := r.repo.CommitObject(plumbing.NewHash(from))
	if err != nil {
		return nil, fmt.Errorf("failed to get commit %s: %w", from, err)
	}
	toCommit, err := r.repo.CommitObject(plumbing.NewHash(to))
	if err != nil {
		return nil, fmt.Errorf("failed to get commit %s: %w", to, err)
	}
	patch, err := fromCommit.PatchContext(ctx, toCommit)
	if err != nil {
		return nil, fmt.Errorf("failed to diff %s..%s: %w", domain.ShortHash(from), domain.ShortHash(to), err)
	}
	return patch, nil
}

// WorkingDir returns the root of the work tree, empty for bare repositories.
func (r *gitRepository) WorkingDir() string {
	return r.workingDir
}

// CreateTag creates a tag at commit. Tags are lightweight unless a message is configured.
func (r *gitRepository) CreateTag(_ context.Context, name, commit string) error {
	hash := plumbing.NewHash(commit)
	if _, err := r.repo.CommitObject(hash); err != nil {
		return fmt.Errorf("unable to get commit object: %w", err)
	}
	if _, err := r.repo.CreateTag(name, hash, r.tagOptions(name)); err != nil {
		return fmt.Errorf("failed to create tag %s: %w", name, err)
	}
	return nil
}

func (r *gitRepository) tagOptions(name string) *git.CreateTagOptions {
	if r.opts.TagMessage == "" {
		return nil
	}
	return &git.CreateTagOptions{
		Message: strings.ReplaceAll(r.opts.TagMessage, VersionPlaceholder, name),
		Tagger: &object.Signature{
			Name:  r.opts.TaggerName,
			Email: r.opts.TaggerEmail,
			When:  time.Now(),
		},
	}
}

// DeleteTag deletes a local tag.
func (r *gitRepository) DeleteTag(_ context.Context, name string) error {
	if err := r.repo.DeleteTag(name); err != nil {
		return fmt.Errorf("failed to delete tag %s: %w", name, err)
	}
	return nil
}

// FetchTags fetches all tags from the configured remote.
func (r *gitRepository) FetchTags(ctx context.Context) error {
	remote, err := r.repo.Remote(r.opts.RemoteName)
	if err != nil {
		return fmt.Errorf("failed to get remote %s: %w", r.opts.RemoteName, err)
	}
	err = remote.FetchContext(ctx, &git.FetchOptions{
		RefSpecs: []config.RefSpec{
			config.RefSpec("+refs/tags/*:refs/tags/*"),
		},
		Auth: getAuth(r.opts.Token),
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("failed to fetch tags from remote: %w", err)
	}
	return nil
}

// Push pushes a tag, or deletes it remotely when refName starts with ":".
func (r *gitRemote) Push(ctx context.Context, refName string) error {
	err := r.repo.PushContext(ctx, &git.PushOptions{
		RemoteName: r.opts.RemoteName,
		RefSpecs:   []config.RefSpec{pushRefSpec(refName)},
		Auth:       getAuth(r.opts.Token),
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("failed to push %s to %s: %w", refName, r.opts.RemoteName, err)
	}
	return nil
}

// pushRefSpec maps "v1.2.3" to a tag push and ":v1.2.3" to a remote deletion.
func pushRefSpec(refName string) config.RefSpec {
	if tag, ok := strings.CutPrefix(refName, domain.DeleteRefPrefix); ok {
		return config.RefSpec(":" + plumbing.NewTagReferenceName(tag).String())
	}
	ref := plumbing.NewTagReferenceName(refName).String()
	return config.RefSpec(ref + ":" + ref)
}

// getAuth returns token based authentication for HTTPS remotes
func getAuth(token string) transport.AuthMethod {
	if token == "" {
		return nil
	}
	// Use x-access-token as username for GitHub token authentication
	return &http.BasicAuth{
		Username: "x-access-token",
		Password: token,
	}
}
