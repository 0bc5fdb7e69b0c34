package branchver

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-git/go-git/v5"
)

const shortSHALength = 7

// LookupFunc returns the value of a named setting. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// Environment variables consulted for each input, in order of precedence.
var (
	BranchVariables = []string{
		"BRANCH_NAME",
		"GITHUB_HEAD_REF",
		"GITHUB_REF_NAME",
		"CI_COMMIT_REF_NAME",
		"BUILDKITE_BRANCH",
		"GIT_BRANCH",
	}

	BuildNumberVariables = []string{
		"BUILD_NUMBER",
		"GITHUB_RUN_NUMBER",
		"CI_PIPELINE_IID",
		"BUILDKITE_BUILD_NUMBER",
	}

	CommitVariables = []string{
		"COMMIT_SHA",
		"GITHUB_SHA",
		"CI_COMMIT_SHA",
		"BUILDKITE_COMMIT",
		"GIT_COMMIT",
	}
)

// Inputs holds everything the resolver needs besides the current version
type Inputs struct {
	BranchName  string
	BuildNumber uint64
	CommitSHA   string

	// Warnings collects recoverable problems found while gathering
	Warnings []string
}

// ShortSHA returns the abbreviated, lowercase commit id
func (i Inputs) ShortSHA() string {
	sha := strings.ToLower(strings.TrimSpace(i.CommitSHA))
	if len(sha) > shortSHALength {
		sha = sha[:shortSHALength]
	}
	return sha
}

// Environment gathers resolver inputs from CI variables, falling back to
// the repository HEAD when a variable is not set.
type Environment struct {
	Lookup LookupFunc

	// Repository is optional
	Repository *git.Repository
}

// Gather collects the branch name, build number and commit
func (e Environment) Gather() (Inputs, error) {
	var inputs Inputs

	if branch, ok := e.first(BranchVariables); ok {
		inputs.BranchName = normaliseBranch(branch)
	}

	if raw, ok := e.first(BuildNumberVariables); ok {
		n, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			inputs.Warnings = append(inputs.Warnings,
				fmt.Sprintf("build number %q is not a non-negative integer, using 0", raw))
		} else {
			inputs.BuildNumber = n
		}
	}

	if sha, ok := e.first(CommitVariables); ok {
		inputs.CommitSHA = strings.TrimSpace(sha)
	}

	if e.Repository != nil && (inputs.BranchName == "" || inputs.CommitSHA == "") {
		head, err := Head(e.Repository)
		if err != nil {
			return Inputs{}, fmt.Errorf("reading repository state: %w", err)
		}

		if inputs.BranchName == "" {
			inputs.BranchName = head.Branch
			if head.Branch == "" && !head.Commit.IsZero() {
				inputs.Warnings = append(inputs.Warnings,
					"HEAD is detached and no branch variable is set")
			}
		}
		if inputs.CommitSHA == "" && !head.Commit.IsZero() {
			inputs.CommitSHA = head.Commit.String()
		}
	}

	return inputs, nil
}

// first returns the first non-empty value among keys
func (e Environment) first(keys []string) (string, bool) {
	if e.Lookup == nil {
		return "", false
	}

	for _, key := range keys {
		if value, ok := e.Lookup(key); ok && strings.TrimSpace(value) != "" {
			return value, true
		}
	}
	return "", false
}

func normaliseBranch(branch string) string {
	branch = strings.TrimSpace(branch)
	branch = strings.TrimPrefix(branch, "refs/heads/")
	return strings.TrimPrefix(branch, "origin/")
}
