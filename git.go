// Package branchver derives build versions and release tags for CI pipelines
// from a branch name, build number, commit and the project's version file.
//
// This file contains code adapted from pulumictl (https://github.com/pulumi/pulumictl)
// which is licensed under the Apache License 2.0.
package branchver

import (
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// HeadState describes the commit checked out in a repository
type HeadState struct {
	// Branch is the short branch name, empty when HEAD is detached
	Branch string

	// Commit is the full hash of the checked out commit
	Commit plumbing.Hash
}

// TagInfo describes a tag and the commit it points at
type TagInfo struct {
	Ref       *plumbing.Reference
	Target    plumbing.Hash
	Annotated bool
}

// OpenRepository opens a Git repository at the specified path
func OpenRepository(path string) (*git.Repository, error) {
	return git.PlainOpenWithOptions(path, &git.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
}

// Head returns the branch and commit currently checked out. A repository
// without commits yields an empty HeadState rather than an error.
func Head(repo *git.Repository) (*HeadState, error) {
	if repo == nil {
		return nil, fmt.Errorf("repository is required")
	}

	ref, err := repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return &HeadState{}, nil
		}
		return nil, fmt.Errorf("resolving HEAD: %w", err)
	}

	state := &HeadState{Commit: ref.Hash()}
	if ref.Name().IsBranch() {
		state.Branch = ref.Name().Short()
	}

	return state, nil
}

// FindTag looks up a tag by name and resolves it to the commit it targets.
// Both lightweight and annotated tags are supported.
func FindTag(repo *git.Repository, name string) (*TagInfo, bool, error) {
	if repo == nil {
		return nil, false, fmt.Errorf("repository is required")
	}

	ref, err := repo.Tag(name)
	if err != nil {
		if errors.Is(err, git.ErrTagNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("looking up tag %q: %w", name, err)
	}

	obj, err := repo.TagObject(ref.Hash())
	switch err {
	case nil:
		// Annotated tag
		return &TagInfo{Ref: ref, Target: obj.Target, Annotated: true}, true, nil
	case plumbing.ErrObjectNotFound:
		// Lightweight tag
		return &TagInfo{Ref: ref, Target: ref.Hash()}, true, nil
	default:
		return nil, false, fmt.Errorf("reading tag object %q: %w", name, err)
	}
}
