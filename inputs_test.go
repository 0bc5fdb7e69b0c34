package branchver

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInputsShortSHA(t *testing.T) {
	tests := []struct {
		sha      string
		expected string
	}{
		{"ABC1234DEF5678", "abc1234"},
		{"abc1234", "abc1234"},
		{"abc", "abc"},
		{"", ""},
		{"  0123456789  ", "0123456"},
	}

	for _, test := range tests {
		t.Run(test.sha, func(t *testing.T) {
			require.Equal(t, test.expected, Inputs{CommitSHA: test.sha}.ShortSHA())
		})
	}
}

func TestEnvironmentGather(t *testing.T) {
	t.Run("Explicit variables", func(t *testing.T) {
		env := Environment{Lookup: testLookup(map[string]string{
			"BRANCH_NAME":  "develop",
			"BUILD_NUMBER": "42",
			"COMMIT_SHA":   "abc1234def",
		})}

		inputs, err := env.Gather()
		require.NoError(t, err)
		require.Equal(t, "develop", inputs.BranchName)
		require.Equal(t, uint64(42), inputs.BuildNumber)
		require.Equal(t, "abc1234def", inputs.CommitSHA)
		require.Equal(t, "abc1234", inputs.ShortSHA())
		require.Empty(t, inputs.Warnings)
	})

	t.Run("Precedence and fallbacks", func(t *testing.T) {
		env := Environment{Lookup: testLookup(map[string]string{
			"BRANCH_NAME":       "",
			"GITHUB_HEAD_REF":   "feature/from-pr",
			"GITHUB_REF_NAME":   "123/merge",
			"GITHUB_RUN_NUMBER": "7",
			"GITHUB_SHA":        "FFFFFFF000",
		})}

		inputs, err := env.Gather()
		require.NoError(t, err)
		require.Equal(t, "feature/from-pr", inputs.BranchName)
		require.Equal(t, uint64(7), inputs.BuildNumber)
		require.Equal(t, "fffffff", inputs.ShortSHA())
	})

	t.Run("Ref prefixes are stripped", func(t *testing.T) {
		for _, raw := range []string{"refs/heads/release/1.0.0", "origin/release/1.0.0"} {
			env := Environment{Lookup: testLookup(map[string]string{"GIT_BRANCH": raw})}

			inputs, err := env.Gather()
			require.NoError(t, err)
			require.Equal(t, "release/1.0.0", inputs.BranchName)
		}
	})

	t.Run("Invalid build number", func(t *testing.T) {
		env := Environment{Lookup: testLookup(map[string]string{
			"BRANCH_NAME":  "main",
			"BUILD_NUMBER": "-3",
		})}

		inputs, err := env.Gather()
		require.NoError(t, err)
		require.Equal(t, uint64(0), inputs.BuildNumber)
		require.Len(t, inputs.Warnings, 1)
		require.Contains(t, inputs.Warnings[0], "build number")
	})

	t.Run("Nothing available", func(t *testing.T) {
		inputs, err := Environment{}.Gather()
		require.NoError(t, err)
		require.Empty(t, inputs.BranchName)
		require.Zero(t, inputs.BuildNumber)
		require.Empty(t, inputs.CommitSHA)
	})

	t.Run("Repository fallback", func(t *testing.T) {
		repo, err := testRepoCreate()
		require.NoError(t, err)
		_, err = testRepoSingleCommit(repo)
		require.NoError(t, err)
		require.NoError(t, testRepoCheckoutBranch(repo, "hotfix/urgent"))

		env := Environment{
			Lookup:     testLookup(map[string]string{"BUILD_NUMBER": "3"}),
			Repository: repo,
		}

		inputs, err := env.Gather()
		require.NoError(t, err)

		head, err := repo.Head()
		require.NoError(t, err)
		require.Equal(t, "hotfix/urgent", inputs.BranchName)
		require.Equal(t, head.Hash().String(), inputs.CommitSHA)
		require.Equal(t, uint64(3), inputs.BuildNumber)
	})

	t.Run("Variables win over repository", func(t *testing.T) {
		repo, err := testRepoCreate()
		require.NoError(t, err)
		_, err = testRepoSingleCommit(repo)
		require.NoError(t, err)

		env := Environment{
			Lookup: testLookup(map[string]string{
				"BRANCH_NAME": "develop",
				"COMMIT_SHA":  "1234567890",
			}),
			Repository: repo,
		}

		inputs, err := env.Gather()
		require.NoError(t, err)
		require.Equal(t, "develop", inputs.BranchName)
		require.Equal(t, "1234567890", inputs.CommitSHA)
	})

	t.Run("Detached repository", func(t *testing.T) {
		repo, err := testRepoCreate()
		require.NoError(t, err)
		hash, err := testRepoSingleCommit(repo)
		require.NoError(t, err)
		require.NoError(t, testRepoDetach(repo, hash))

		inputs, err := Environment{Repository: repo}.Gather()
		require.NoError(t, err)
		require.Empty(t, inputs.BranchName)
		require.Equal(t, hash.String(), inputs.CommitSHA)
		require.Len(t, inputs.Warnings, 1)
		require.Contains(t, inputs.Warnings[0], "detached")
	})
}
