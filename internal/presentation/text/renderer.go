// Package text renders node trees as indented terminal output.
package text

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aretw0/probe/pkg/domain"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// DefaultMaxNodes bounds how many nodes a single Render prints.
const DefaultMaxNodes = 2000

// Renderer writes one line per node, children indented below their parent.
type Renderer struct {
	profile  termenv.Profile
	maxNodes int
	meta     bool
	indent   string
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithProfile forces a colour profile. termenv.Ascii disables colours.
func WithProfile(p termenv.Profile) Option {
	return func(r *Renderer) {
		r.profile = p
	}
}

// WithColor enables colours when w is a terminal.
func WithColor(w io.Writer) Option {
	return func(r *Renderer) {
		if IsTerminal(w) {
			r.profile = termenv.EnvColorProfile()
		}
	}
}

// WithMaxNodes caps the number of printed nodes.
func WithMaxNodes(n int) Option {
	return func(r *Renderer) {
		if n > 0 {
			r.maxNodes = n
		}
	}
}

// WithMeta toggles the metadata lines below each node.
func WithMeta(enabled bool) Option {
	return func(r *Renderer) {
		r.meta = enabled
	}
}

// New creates a Renderer without colours.
func New(opts ...Option) *Renderer {
	r := &Renderer{
		profile:  termenv.Ascii,
		maxNodes: DefaultMaxNodes,
		meta:     true,
		indent:   "  ",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// IsTerminal reports whether w is attached to a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Render implements ports.Renderer.
func (r *Renderer) Render(w io.Writer, root *domain.Node) error {
	st := &state{w: w, left: r.maxNodes}
	r.node(st, root, 0)
	if st.left < 0 {
		st.printf("%s\n", r.profile.String("... output truncated").Faint())
	}
	return st.err
}

type state struct {
	w    io.Writer
	left int
	err  error
}

func (s *state) printf(format string, args ...any) {
	if s.err != nil {
		return
	}
	_, s.err = fmt.Fprintf(s.w, format, args...)
}

func (r *Renderer) node(st *state, n *domain.Node, depth int) {
	if st.err != nil {
		return
	}
	if st.left == 0 {
		st.left = -1
		return
	}
	if st.left < 0 {
		return
	}
	st.left--

	pad := strings.Repeat(r.indent, depth)
	st.printf("%s%s\n", pad, r.line(n))
	if r.meta {
		for _, m := range n.Meta() {
			st.printf("%s%s %s\n", pad+r.indent, r.profile.String("·").Faint(), r.profile.String(m.Label+": "+m.Text).Faint())
		}
	}
	for c := range n.Children() {
		r.node(st, c, depth+1)
		if st.left < 0 || st.err != nil {
			return
		}
	}
}

func (r *Renderer) line(n *domain.Node) string {
	p := r.profile
	name := n.Name
	if name == "" {
		name = "-"
	}
	parts := []string{p.String(name).Bold().String()}

	if n.Type == domain.TypeGroup {
		if n.Value != "" && n.TypeName != "" {
			parts = append(parts, p.String(n.Value).Foreground(p.Color("5")).String())
		}
		return strings.Join(parts, "  ")
	}

	if n.TypeName != "" {
		parts = append(parts, p.String(n.TypeName).Foreground(p.Color("6")).String())
	}
	switch n.Type {
	case domain.TypeArray:
		parts = append(parts, fmt.Sprintf("(%d)", n.Count))
	case domain.TypeScalar:
		parts = append(parts, p.String(n.Value).Foreground(p.Color("2")).String())
	case domain.TypeNull:
		parts = append(parts, p.String(n.Value).Faint().String())
	default:
		if n.Value != n.TypeName {
			parts = append(parts, n.Value)
		}
	}

	switch n.Status {
	case domain.StatusCutoff:
		parts = append(parts, p.String("[cutoff]").Foreground(p.Color("3")).String())
	case domain.StatusReference:
		parts = append(parts, p.String("[reference]").Foreground(p.Color("1")).String())
	}
	if n.Simplified {
		parts = append(parts, p.String("[simplified]").Faint().String())
	}
	return strings.Join(parts, "  ")
}
