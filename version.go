package branchver

import (
	"fmt"
	"slices"
	"strings"

	"github.com/blang/semver"
)

const (
	maxSlugLength = 20
	emptySlug     = "branch"
)

var (
	productionBranches  = []string{"main", "master"}
	developmentBranches = []string{"develop", "development"}
	featurePrefixes     = []string{"feature/", "bugfix/", "fix/"}
)

const (
	releasePrefix = "release/"
	hotfixPrefix  = "hotfix/"
)

// ParseVersion parses a version string such as "1.2.3" or "v1.2.3-beta.1".
// On failure it returns the zero version (0.0.0) along with the parse error,
// so callers may report the problem and carry on with the default.
func ParseVersion(version string) (SemanticVersion, error) {
	normalised := strings.TrimPrefix(strings.TrimSpace(version), "v")
	if normalised == "" {
		return SemanticVersion{}, fmt.Errorf("empty version string")
	}

	parsed, err := semver.Parse(normalised)
	if err != nil {
		return SemanticVersion{}, fmt.Errorf("parsing version %q: %w", version, err)
	}

	pre := make([]string, 0, len(parsed.Pre))
	for _, p := range parsed.Pre {
		pre = append(pre, p.String())
	}

	return SemanticVersion{
		Major:      parsed.Major,
		Minor:      parsed.Minor,
		Patch:      parsed.Patch,
		Prerelease: strings.Join(pre, "."),
	}, nil
}

// Classify determines the branch class for a branch name. The first
// matching rule wins: production, development, release/, hotfix/,
// feature-like prefixes, then unknown.
func Classify(branchName string) BranchClass {
	switch {
	case slices.Contains(productionBranches, branchName):
		return BranchClass{Kind: KindProduction}
	case slices.Contains(developmentBranches, branchName):
		return BranchClass{Kind: KindDevelopment}
	case strings.HasPrefix(branchName, releasePrefix):
		return BranchClass{
			Kind:             KindRelease,
			CandidateVersion: strings.TrimPrefix(branchName, releasePrefix),
		}
	case strings.HasPrefix(branchName, hotfixPrefix):
		return BranchClass{Kind: KindHotfix}
	}

	for _, prefix := range featurePrefixes {
		if strings.HasPrefix(branchName, prefix) {
			return BranchClass{
				Kind: KindFeature,
				Slug: Sanitize(strings.TrimPrefix(branchName, prefix)),
			}
		}
	}

	return BranchClass{Kind: KindUnknown, Slug: Sanitize(branchName)}
}

// Sanitize replaces every character outside [A-Za-z0-9] with '-' and
// truncates the result to 20 characters.
func Sanitize(s string) string {
	slug := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '-'
		}
	}, s)

	if len(slug) > maxSlugLength {
		slug = slug[:maxSlugLength]
	}
	return slug
}

// Resolve computes the build version and tag for a branch. Production
// branches return currentVersion untouched; every other class treats a
// malformed or empty currentVersion as 0.0.0. Only an empty branch name is
// an error.
func Resolve(currentVersion, branchName string, buildNumber uint64, shortSha string) (*ResolvedVersion, error) {
	if branchName == "" {
		return nil, fmt.Errorf("%w: branch name is required", ErrInvalidInput)
	}

	// A malformed version falls back to 0.0.0
	current, _ := ParseVersion(currentVersion)
	class := Classify(branchName)

	resolved := &ResolvedVersion{Branch: class}

	switch class.Kind {
	case KindProduction:
		resolved.Version = currentVersion
		resolved.TagVersion = "v" + resolved.Version

	case KindDevelopment:
		pre := fmt.Sprintf("%s-dev.%d", current.Core(), buildNumber)
		resolved.Version = withBuildMetadata(pre, shortSha)
		resolved.TagVersion = "v" + pre

	case KindRelease:
		candidate := strings.TrimPrefix(class.CandidateVersion, "v")
		if candidate == "" {
			candidate = current.Core()
		}
		resolved.Version = withBuildMetadata(fmt.Sprintf("%s-rc.%d", candidate, buildNumber), shortSha)
		resolved.TagVersion = "v" + candidate

	case KindHotfix:
		next := current
		next.Patch++
		resolved.Version = next.Core()
		resolved.TagVersion = "v" + resolved.Version
		resolved.IsHotfix = true

	default:
		slug := class.Slug
		if slug == "" {
			slug = emptySlug
		}
		pre := fmt.Sprintf("%s-%s.%d", current.Core(), slug, buildNumber)
		resolved.Version = withBuildMetadata(pre, shortSha)
		resolved.TagVersion = "v" + pre
	}

	return resolved, nil
}

func withBuildMetadata(version, shortSha string) string {
	if shortSha == "" {
		return version
	}
	return version + "+" + shortSha
}
