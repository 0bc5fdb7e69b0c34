package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jaxxstorm/branchver"
	"github.com/muesli/termenv"
	"github.com/rs/zerolog"
)

// reporter prints progress and the final summary for humans reading CI logs.
// Machine-readable output goes to stdout and never passes through here.
type reporter struct {
	log zerolog.Logger
	out io.Writer

	title lipgloss.Style
	key   lipgloss.Style
	value lipgloss.Style
}

func newReporter(w io.Writer, level zerolog.Level, noColor bool) *reporter {
	console := zerolog.ConsoleWriter{
		Out:          w,
		NoColor:      noColor,
		PartsExclude: []string{zerolog.TimestampFieldName},
	}

	renderer := lipgloss.NewRenderer(w)
	if noColor {
		renderer.SetColorProfile(termenv.Ascii)
	}

	return &reporter{
		log:   zerolog.New(console).Level(level),
		out:   w,
		title: renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
		key:   renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		value: renderer.NewStyle(),
	}
}

// summary renders the output pairs as an aligned block
func (r *reporter) summary(pairs []branchver.KeyValue) {
	width := 0
	for _, kv := range pairs {
		if len(kv.Key) > width {
			width = len(kv.Key)
		}
	}

	lines := make([]string, 0, len(pairs)+1)
	lines = append(lines, r.title.Render("Resolved version"))
	for _, kv := range pairs {
		lines = append(lines, "  "+r.key.Width(width+2).Render(kv.Key)+r.value.Render(kv.Value))
	}

	fmt.Fprintln(r.out, strings.Join(lines, "\n"))
}
