package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/jaxxstorm/branchver"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestReporterLevels(t *testing.T) {
	var buf bytes.Buffer
	rep := newReporter(&buf, zerolog.InfoLevel, true)

	rep.log.Debug().Msg("hidden detail")
	rep.log.Info().Str("branch", "develop").Msg("resolved version")
	rep.log.Warn().Msg("branch does not match a known pattern")
	rep.log.Error().Err(errors.New("boom")).Msg("version resolution failed")

	output := buf.String()
	require.NotContains(t, output, "hidden detail")
	require.Contains(t, output, "INF resolved version")
	require.Contains(t, output, "branch=develop")
	require.Contains(t, output, "WRN branch does not match a known pattern")
	require.Contains(t, output, "ERR version resolution failed")
	require.Contains(t, output, "boom")
	require.NotContains(t, output, "\x1b[", "no colour codes expected")
}

func TestReporterSummary(t *testing.T) {
	var buf bytes.Buffer
	rep := newReporter(&buf, zerolog.InfoLevel, true)

	rep.summary([]branchver.KeyValue{
		{Key: "VERSION", Value: "1.2.4"},
		{Key: "TAG_VERSION", Value: "v1.2.4"},
		{Key: "IS_HOTFIX", Value: "true"},
	})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	require.Equal(t, "Resolved version", lines[0])
	require.Contains(t, lines[1], "VERSION")
	require.Contains(t, lines[1], "1.2.4")
	require.Contains(t, lines[2], "v1.2.4")
	require.Contains(t, lines[3], "IS_HOTFIX")

	// Values line up in a single column
	require.Equal(t, strings.Index(lines[1], "1.2.4"), strings.Index(lines[2], "v1.2.4"))
}
