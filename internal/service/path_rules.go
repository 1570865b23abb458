package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/compozy/autotag/internal/domain"
	"github.com/go-git/go-git/v5/plumbing/format/diff"
	ignore "github.com/sabhiram/go-gitignore"
)

// PathRule maps a gitignore-style pattern to the update type of the files it matches.
type PathRule struct {
	Pattern string
	Update  domain.UpdateType
}

type compiledRule struct {
	PathRule
	matcher *ignore.GitIgnore
}

// pathRulesClassifier assigns each changed file the update type of the first
// matching rule, or the default when no rule matches.
type pathRulesClassifier struct {
	rules         []compiledRule
	defaultUpdate domain.UpdateType
	reseatOnEmpty bool
}

// NewPathRulesClassifier compiles rules in order; earlier rules win.
func NewPathRulesClassifier(
	rules []PathRule,
	defaultUpdate domain.UpdateType,
	reseatOnEmpty bool,
) (Classifier, error) {
	compiled := make([]compiledRule, 0, len(rules))
	for i, rule := range rules {
		pattern := strings.TrimSpace(rule.Pattern)
		if pattern == "" {
			return nil, fmt.Errorf("rule %d: empty pattern", i)
		}
		compiled = append(compiled, compiledRule{
			PathRule: PathRule{Pattern: pattern, Update: rule.Update},
			matcher:  ignore.CompileIgnoreLines(pattern),
		})
	}
	return &pathRulesClassifier{
		rules:         compiled,
		defaultUpdate: defaultUpdate,
		reseatOnEmpty: reseatOnEmpty,
	}, nil
}

// Classify implements Classifier. The working directory is unused: patch paths
// are already relative to the repository root.
func (c *pathRulesClassifier) Classify(
	ctx context.Context,
	patch diff.Patch,
	_ string,
) (domain.UpdateTypes, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	paths := changedPaths(patch)
	if len(paths) == 0 {
		if c.reseatOnEmpty {
			return domain.NewUpdateTypes(domain.UpdateReseat), nil
		}
		return domain.NewUpdateTypes(), nil
	}
	types := domain.NewUpdateTypes()
	for _, path := range paths {
		types.Add(c.updateFor(path))
	}
	return types, nil
}

func (c *pathRulesClassifier) updateFor(path string) domain.UpdateType {
	for _, rule := range c.rules {
		if rule.matcher.MatchesPath(path) {
			return rule.Update
		}
	}
	return c.defaultUpdate
}

// changedPaths lists every path touched by the patch, old and new sides, once each.
func changedPaths(patch diff.Patch) []string {
	if patch == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var paths []string
	add := func(f diff.File) {
		if f == nil {
			return
		}
		if _, ok := seen[f.Path()]; ok {
			return
		}
		seen[f.Path()] = struct{}{}
		paths = append(paths, f.Path())
	}
	for _, fp := range patch.FilePatches() {
		from, to := fp.Files()
		add(from)
		add(to)
	}
	return paths
}
