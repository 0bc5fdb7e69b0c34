package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5"
	"github.com/jaxxstorm/branchver"
	"github.com/rs/zerolog"
)

// Version will be set by build process
var Version = "dev"

type CLI struct {
	VersionFile string `short:"f" default:"VERSION" help:"Version file to read: plain text, package.json or YAML"`
	Branch      string `short:"b" help:"Branch name (default: from CI environment or repository HEAD)"`
	BuildNumber string `help:"Build number (default: from CI environment)"`
	Commit      string `help:"Commit SHA (default: from CI environment or repository HEAD)"`
	Repo        string `short:"r" help:"Repository path (default: current directory)"`
	Output      string `short:"o" default:"version.env" help:"Key-value output file, empty to disable"`
	Append      bool   `help:"Append to the output file instead of replacing it"`
	NoWrite     bool   `help:"Never rewrite the version file"`
	JSON        bool   `short:"j" help:"Output as JSON"`
	LogLevel    string `default:"info" enum:"debug,info,warn,error" help:"Console log level"`
	NoColor     bool   `help:"Disable coloured console output"`
	ShowVersion bool   `help:"Show version information" name:"version"`
}

func main() {
	var cli CLI

	kong.Parse(&cli,
		kong.Name("branchver"),
		kong.Description("Derive a build version and release tag from the branch, build number and version file"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": Version,
		},
	)

	if err := cli.Run(); err != nil {
		os.Exit(1)
	}
}

func (c *CLI) Run() error {
	// Handle version flag
	if c.ShowVersion {
		return c.showVersion()
	}

	rep := newReporter(os.Stderr, c.level(), c.NoColor)

	err := c.resolve(rep)
	if err != nil {
		rep.log.Error().Err(err).Msg("version resolution failed")
	}
	return err
}

func (c *CLI) showVersion() error {
	versionInfo := map[string]string{
		"version": Version,
		"name":    "branchver",
	}

	if c.JSON {
		return json.NewEncoder(os.Stdout).Encode(versionInfo)
	}

	fmt.Printf("branchver version %s\n", Version)
	return nil
}

func (c *CLI) resolve(rep *reporter) error {
	versionFS, versionPath, err := fileSystemFor(c.VersionFile)
	if err != nil {
		return err
	}

	file := branchver.NewVersionFile(versionFS, versionPath)
	current, err := file.Read()
	if err != nil {
		return fmt.Errorf("reading version file: %w", err)
	}

	if _, err := branchver.ParseVersion(current); err != nil {
		rep.log.Warn().Str("file", c.VersionFile).Err(err).Msg("malformed version, using 0.0.0")
	}

	repo := c.openRepository(rep)

	env := branchver.Environment{
		Lookup:     c.lookup(os.LookupEnv),
		Repository: repo,
	}
	inputs, err := env.Gather()
	if err != nil {
		return fmt.Errorf("gathering inputs: %w", err)
	}
	for _, warning := range inputs.Warnings {
		rep.log.Warn().Msg(warning)
	}

	resolved, err := branchver.Resolve(current, inputs.BranchName, inputs.BuildNumber, inputs.ShortSHA())
	if err != nil {
		return fmt.Errorf("resolving version: %w", err)
	}

	rep.log.Info().
		Str("branch", inputs.BranchName).
		Stringer("class", resolved.Branch.Kind).
		Str("version", resolved.Version).
		Msg("resolved version")

	if resolved.Branch.Kind == branchver.KindUnknown {
		rep.log.Warn().
			Str("branch", inputs.BranchName).
			Str("slug", resolved.Branch.Slug).
			Msg("branch does not match a known pattern")
	}

	if repo != nil {
		c.checkTag(rep, repo, resolved.TagVersion, inputs.CommitSHA)
	}

	if resolved.Branch.Kind.PersistsVersion() {
		if c.NoWrite {
			rep.log.Info().Str("file", c.VersionFile).Msg("skipping version file update")
		} else {
			if err := file.Write(resolved.Version); err != nil {
				return fmt.Errorf("updating version file: %w", err)
			}
			rep.log.Info().Str("file", c.VersionFile).Str("version", resolved.Version).Msg("updated version file")
		}
	}

	pairs := branchver.BuildOutputs(inputs, resolved)

	if c.Output != "" {
		outputFS, outputPath, err := fileSystemFor(c.Output)
		if err != nil {
			return err
		}
		if err := branchver.WriteKeyValueFile(outputFS, outputPath, pairs, c.Append); err != nil {
			return fmt.Errorf("writing outputs: %w", err)
		}
		rep.log.Debug().Str("file", c.Output).Msg("wrote outputs")
	}

	if c.JSON {
		if err := json.NewEncoder(os.Stdout).Encode(resolved); err != nil {
			return err
		}
	} else {
		fmt.Println(resolved.Version)
	}

	rep.summary(pairs)
	return nil
}

// openRepository returns nil when no repository is available, in which case
// inputs come from the environment alone.
func (c *CLI) openRepository(rep *reporter) *git.Repository {
	repoPath := c.Repo
	if repoPath == "" {
		var err error
		repoPath, err = os.Getwd()
		if err != nil {
			rep.log.Debug().Err(err).Msg("getting current directory")
			return nil
		}
	}

	repo, err := branchver.OpenRepository(repoPath)
	if err != nil {
		rep.log.Debug().Str("path", repoPath).Err(err).Msg("repository unavailable, using environment only")
		return nil
	}
	return repo
}

// checkTag warns when the tag about to be produced already points at a
// different commit.
func (c *CLI) checkTag(rep *reporter, repo *git.Repository, tag, commit string) {
	info, found, err := branchver.FindTag(repo, tag)
	if err != nil {
		rep.log.Debug().Str("tag", tag).Err(err).Msg("looking up tag")
		return
	}
	if !found || commit == "" {
		return
	}

	if !strings.HasPrefix(info.Target.String(), strings.ToLower(commit)) {
		rep.log.Warn().
			Str("tag", tag).
			Str("target", info.Target.String()).
			Msg("tag already exists on a different commit")
	}
}

// lookup layers command line overrides in front of the environment
func (c *CLI) lookup(next branchver.LookupFunc) branchver.LookupFunc {
	overrides := map[string]string{}
	if c.Branch != "" {
		overrides["BRANCH_NAME"] = c.Branch
	}
	if c.BuildNumber != "" {
		overrides["BUILD_NUMBER"] = c.BuildNumber
	}
	if c.Commit != "" {
		overrides["COMMIT_SHA"] = c.Commit
	}

	return func(key string) (string, bool) {
		if value, ok := overrides[key]; ok {
			return value, true
		}
		return next(key)
	}
}

func (c *CLI) level() zerolog.Level {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || c.LogLevel == "" {
		return zerolog.InfoLevel
	}
	return level
}

// fileSystemFor roots a billy filesystem at the file's directory
func fileSystemFor(path string) (billy.Filesystem, string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, "", fmt.Errorf("resolving %s: %w", path, err)
	}
	return osfs.New(filepath.Dir(abs)), filepath.Base(abs), nil
}
