package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/probe/pkg/domain"
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders markdown using glamour.
func NewRenderer() func(string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return func(markdown string) (string, error) {
			return markdown, nil
		}
	}

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}

// MarkdownRenderer writes the tree as a nested markdown list through glamour.
type MarkdownRenderer struct {
	render   func(string) (string, error)
	maxNodes int
}

// NewMarkdownRenderer creates a renderer printing at most maxNodes nodes.
// A nil render function writes the raw markdown.
func NewMarkdownRenderer(render func(string) (string, error), maxNodes int) *MarkdownRenderer {
	if render == nil {
		render = func(s string) (string, error) { return s, nil }
	}
	if maxNodes <= 0 {
		maxNodes = domain.DefaultSnapshotBudget
	}
	return &MarkdownRenderer{render: render, maxNodes: maxNodes}
}

// Render implements ports.Renderer.
func (m *MarkdownRenderer) Render(w io.Writer, root *domain.Node) error {
	out, err := m.render(Markdown(root, m.maxNodes))
	if err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}

// Markdown converts the tree into a nested list. Metadata becomes a trailing
// italic note, references and cutoffs are called out in bold.
func Markdown(root *domain.Node, maxNodes int) string {
	var sb strings.Builder
	sb.WriteString("### " + escape(label(root)) + "\n\n")
	left := maxNodes - 1
	for c := range root.Children() {
		if !item(&sb, c, 0, &left) {
			sb.WriteString("\n*output truncated*\n")
			break
		}
	}
	return sb.String()
}

func item(sb *strings.Builder, n *domain.Node, depth int, left *int) bool {
	if *left <= 0 {
		return false
	}
	*left--
	sb.WriteString(strings.Repeat("  ", depth) + "- " + line(n) + "\n")
	for c := range n.Children() {
		if !item(sb, c, depth+1, left) {
			return false
		}
	}
	return true
}

func line(n *domain.Node) string {
	parts := []string{"**" + escape(label(n)) + "**"}
	if n.Type != domain.TypeGroup && n.Type != domain.TypeArray && n.Type != domain.TypeObject && n.Value != "" {
		parts = append(parts, "`"+strings.ReplaceAll(n.Value, "`", "'")+"`")
	}
	if n.Type == domain.TypeArray {
		parts = append(parts, fmt.Sprintf("(%d)", n.Count))
	}
	switch n.Status {
	case domain.StatusCutoff:
		parts = append(parts, "**cutoff**")
	case domain.StatusReference:
		parts = append(parts, "**reference**")
	}
	if meta := n.Meta(); len(meta) > 0 {
		notes := make([]string, 0, len(meta))
		for _, m := range meta {
			notes = append(notes, escape(m.Label+": "+m.Text))
		}
		parts = append(parts, "*"+strings.Join(notes, "; ")+"*")
	}
	return strings.Join(parts, " ")
}

func label(n *domain.Node) string {
	name := n.Name
	if name == "" {
		name = "value"
	}
	if n.TypeName == "" || n.Type == domain.TypeGroup {
		return name
	}
	return name + " (" + n.TypeName + ")"
}

var escaper = strings.NewReplacer("*", `\*`, "_", `\_`, "[", `\[`, "]", `\]`, "<", "&lt;", ">", "&gt;")

func escape(s string) string {
	return escaper.Replace(s)
}
