package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/aretw0/probe"
	"github.com/aretw0/probe/internal/presentation/graph"
	"github.com/aretw0/probe/internal/presentation/text"
	"github.com/aretw0/probe/internal/presentation/tui"
	"github.com/aretw0/probe/pkg/domain"
	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
	FormatYAML     = "yaml"
	FormatMermaid  = "mermaid"
)

// Formats lists the supported output formats.
var Formats = []string{FormatText, FormatMarkdown, FormatJSON, FormatYAML, FormatMermaid}

// ErrUnknownFormat is returned for an output format not in Formats.
var ErrUnknownFormat = errors.New("unknown format")

// Render writes the inspected tree in the given format, visiting at most
// budget nodes (zero for the renderer's default).
func Render(w io.Writer, in *probe.Inspection, format string, budget int) error {
	switch format {
	case FormatText, "":
		return text.New(text.WithColor(w), text.WithMaxNodes(budget)).Render(w, in.Root)
	case FormatMarkdown:
		return tui.NewMarkdownRenderer(tui.NewRenderer(), budget).Render(w, in.Root)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(in.Snapshot(budget))
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(in.Snapshot(budget)); err != nil {
			return err
		}
		return enc.Close()
	case FormatMermaid:
		_, err := io.WriteString(w, graph.GenerateMermaid(in.Root, budget))
		return err
	}
	return fmt.Errorf("%w %q, expected one of %v", ErrUnknownFormat, format, Formats)
}

// WriteStats prints the node counts of st.
func WriteStats(w io.Writer, st domain.Stats) {
	fmt.Fprintf(w, "nodes: %d, max depth: %d\n", st.Nodes, st.MaxDepth)
	for _, t := range slices.Sorted(maps.Keys(st.ByType)) {
		fmt.Fprintf(w, "  type %s: %d\n", t, st.ByType[t])
	}
	for _, s := range slices.Sorted(maps.Keys(st.ByStatus)) {
		fmt.Fprintf(w, "  status %s: %d\n", s, st.ByStatus[s])
	}
}

// WriteDiff prints one line per changed path: "+" for added nodes, "-" for
// removed ones and "~" for modified ones.
func WriteDiff(w io.Writer, d *domain.SnapshotDiff) {
	if d.IsEmpty() {
		fmt.Fprintln(w, ">>> no changes")
		return
	}
	for _, c := range d.Changes {
		switch {
		case c.Old == nil:
			fmt.Fprintf(w, "+ %s  %s\n", c.Path, *c.New)
		case c.New == nil:
			fmt.Fprintf(w, "- %s  %s\n", c.Path, *c.Old)
		default:
			fmt.Fprintf(w, "~ %s  %s -> %s\n", c.Path, *c.Old, *c.New)
		}
	}
}
