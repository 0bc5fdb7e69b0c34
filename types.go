// Package branchver derives build versions and release tags for CI pipelines
// from a branch name, build number, commit and the project's version file.
package branchver

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned when a required input, such as the branch
	// name, is missing.
	ErrInvalidInput = errors.New("invalid input")

	// ErrMissingVersionFile is returned when the version file does not exist
	ErrMissingVersionFile = errors.New("version file not found")
)

// SemanticVersion is a parsed MAJOR.MINOR.PATCH[-PRERELEASE] version.
// Build metadata is not retained.
type SemanticVersion struct {
	Major      uint64
	Minor      uint64
	Patch      uint64
	Prerelease string
}

// Core returns the MAJOR.MINOR.PATCH portion of the version
func (v SemanticVersion) Core() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

func (v SemanticVersion) String() string {
	if v.Prerelease == "" {
		return v.Core()
	}
	return v.Core() + "-" + v.Prerelease
}

// BranchKind identifies how a branch is versioned
type BranchKind int

const (
	KindUnknown BranchKind = iota
	KindProduction
	KindDevelopment
	KindRelease
	KindHotfix
	KindFeature
)

var branchKindNames = map[BranchKind]string{
	KindUnknown:     "unknown",
	KindProduction:  "production",
	KindDevelopment: "development",
	KindRelease:     "release",
	KindHotfix:      "hotfix",
	KindFeature:     "feature",
}

func (k BranchKind) String() string {
	if name, ok := branchKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("BranchKind(%d)", int(k))
}

// MarshalText encodes the kind by name so JSON output stays readable
func (k BranchKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind from its name
func (k *BranchKind) UnmarshalText(text []byte) error {
	for kind, name := range branchKindNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown branch kind %q", text)
}

// PersistsVersion reports whether builds of this kind write the resolved
// version back to the version file.
func (k BranchKind) PersistsVersion() bool {
	return k == KindRelease || k == KindHotfix
}

// BranchClass is the result of classifying a branch name
type BranchClass struct {
	Kind BranchKind `json:"kind"`

	// CandidateVersion is set for release branches only
	CandidateVersion string `json:"candidateVersion,omitempty"`

	// Slug is set for feature and unknown branches only
	Slug string `json:"slug,omitempty"`
}

// ResolvedVersion is the version and tag computed for a single build
type ResolvedVersion struct {
	Version    string      `json:"version"`
	TagVersion string      `json:"tagVersion"`
	IsHotfix   bool        `json:"isHotfix"`
	Branch     BranchClass `json:"branch"`
}
