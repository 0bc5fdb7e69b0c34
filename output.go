package branchver

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-git/go-billy/v5"
)

// Output keys, in the order they are written
const (
	KeyVersion     = "VERSION"
	KeyTagVersion  = "TAG_VERSION"
	KeyIsHotfix    = "IS_HOTFIX"
	KeyBranchName  = "BRANCH_NAME"
	KeyCommitSHA   = "COMMIT_SHA"
	KeyBuildNumber = "BUILD_NUMBER"
)

// KeyValue is a single entry of the key-value output file
type KeyValue struct {
	Key   string
	Value string
}

// BuildOutputs flattens a resolved version and its inputs into the pairs
// consumed by later pipeline steps.
func BuildOutputs(in Inputs, resolved *ResolvedVersion) []KeyValue {
	return []KeyValue{
		{Key: KeyVersion, Value: resolved.Version},
		{Key: KeyTagVersion, Value: resolved.TagVersion},
		{Key: KeyIsHotfix, Value: strconv.FormatBool(resolved.IsHotfix)},
		{Key: KeyBranchName, Value: in.BranchName},
		{Key: KeyCommitSHA, Value: strings.TrimSpace(in.CommitSHA)},
		{Key: KeyBuildNumber, Value: strconv.FormatUint(in.BuildNumber, 10)},
	}
}

// WriteKeyValues writes pairs as KEY=VALUE lines
func WriteKeyValues(w io.Writer, pairs []KeyValue) error {
	bw := bufio.NewWriter(w)
	for _, kv := range pairs {
		if strings.ContainsAny(kv.Value, "\r\n") {
			return fmt.Errorf("value for %s contains a line break", kv.Key)
		}
		if _, err := fmt.Fprintf(bw, "%s=%s\n", kv.Key, kv.Value); err != nil {
			return fmt.Errorf("writing %s: %w", kv.Key, err)
		}
	}
	return bw.Flush()
}

// WriteKeyValueFile writes pairs to path, truncating the file unless
// appendMode is set.
func WriteKeyValueFile(fs billy.Filesystem, path string, pairs []KeyValue, appendMode bool) error {
	flags := os.O_WRONLY | os.O_CREATE
	if appendMode {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	file, err := fs.OpenFile(path, flags, 0o644)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}

	if err := WriteKeyValues(file, pairs); err != nil {
		_ = file.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return nil
}
