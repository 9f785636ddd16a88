package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the probe banner to w.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{"                  _          ", "#22d3ee"},
		{"  _ __  _ __ ___ | |__   ___ ", "#38bdf8"},
		{" | '_ \\| '__/ _ \\| '_ \\ / _ \\", "#60a5fa"},
		{" | |_) | | | (_) | |_) |  __/", "#818cf8"},
		{" | .__/|_|  \\___/|_.__/ \\___|", "#a78bfa"},
		{" |_|                          ", "#c084fc"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, termenv.String("  bounded value introspection "+version).Faint())
	fmt.Fprintln(w)
}
