package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/compozy/autotag/internal/config"
	"github.com/compozy/autotag/internal/domain"
	"github.com/google/go-github/v74/github"
	"golang.org/x/oauth2"
)

// TagResolver resolves a local tag to the commit it points at.
type TagResolver interface {
	TagTarget(ctx context.Context, name string) (string, error)
}

// githubRemote pushes tags through the GitHub Git refs API instead of the
// git transport. Tags are created lightweight on GitHub, pointing at the
// commit the local tag resolves to.
type githubRemote struct {
	client *github.Client
	owner  string
	repo   string
	tags   TagResolver
}

// NewGithubRemote creates a RemoteRepository backed by the GitHub API.
func NewGithubRemote(token, owner, repo string, tags TagResolver) (RemoteRepository, error) {
	if err := config.ValidateGitHubToken(token); err != nil {
		return nil, fmt.Errorf("invalid GitHub token: %w", err)
	}
	if err := config.ValidateGitHubOwnerRepo(owner, repo); err != nil {
		return nil, fmt.Errorf("invalid repository configuration: %w", err)
	}
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: strings.TrimSpace(token)},
	)
	tc := oauth2.NewClient(context.Background(), ts)
	return newGithubRemote(github.NewClient(tc), owner, repo, tags), nil
}

func newGithubRemote(client *github.Client, owner, repo string, tags TagResolver) *githubRemote {
	return &githubRemote{client: client, owner: owner, repo: repo, tags: tags}
}

// Push creates refs/tags/<name>, or deletes it when refName starts with ":".
func (r *githubRemote) Push(ctx context.Context, refName string) error {
	if tag, ok := strings.CutPrefix(refName, domain.DeleteRefPrefix); ok {
		return r.deleteTagRef(ctx, tag)
	}
	return r.createTagRef(ctx, refName)
}

func (r *githubRemote) createTagRef(ctx context.Context, tag string) error {
	sha, err := r.tags.TagTarget(ctx, tag)
	if err != nil {
		return err
	}
	ref := &github.Reference{
		Ref:    github.Ptr("refs/tags/" + tag),
		Object: &github.GitObject{SHA: github.Ptr(sha)},
	}
	if _, _, err := r.client.Git.CreateRef(ctx, r.owner, r.repo, ref); err != nil {
		return fmt.Errorf("failed to create tag %s on %s/%s: %w", tag, r.owner, r.repo, err)
	}
	return nil
}

func (r *githubRemote) deleteTagRef(ctx context.Context, tag string) error {
	if _, err := r.client.Git.DeleteRef(ctx, r.owner, r.repo, "tags/"+tag); err != nil {
		return fmt.Errorf("failed to delete tag %s on %s/%s: %w", tag, r.owner, r.repo, err)
	}
	return nil
}
