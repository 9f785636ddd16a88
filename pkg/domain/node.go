package domain

import (
	"iter"
	"slices"
)

// TypeTag classifies the analysed value.
type TypeTag string

const (
	TypeScalar   TypeTag = "scalar"
	TypeArray    TypeTag = "array"
	TypeObject   TypeTag = "object"
	TypeResource TypeTag = "resource"
	TypeNull     TypeTag = "null"
	TypeUnknown  TypeTag = "unknown"

	// TypeGroup marks structural children (meta info, methods, ...) that
	// are not values themselves.
	TypeGroup TypeTag = "group"
)

// Status tells a renderer whether a node can be expanded.
type Status int

const (
	// StatusLeaf nodes have no children.
	StatusLeaf Status = iota
	// StatusExpandable nodes produce children on demand.
	StatusExpandable
	// StatusCutoff nodes were not expanded because a nesting, runtime or
	// memory limit was reached.
	StatusCutoff
	// StatusReference nodes point back to a value that is already being
	// rendered further up the same path.
	StatusReference
)

func (s Status) String() string {
	switch s {
	case StatusLeaf:
		return "leaf"
	case StatusExpandable:
		return "expandable"
	case StatusCutoff:
		return "cutoff"
	case StatusReference:
		return "reference"
	}
	return "unknown"
}

// Section names the analysis step that produced a node.
type Section string

const (
	SectionNone        Section = ""
	SectionProperty    Section = "property"
	SectionGetter      Section = "getter"
	SectionError       Section = "error"
	SectionMeta        Section = "meta"
	SectionConstants   Section = "constants"
	SectionMethods     Section = "methods"
	SectionTraversable Section = "traversable"
	SectionDebug       Section = "debug"
	SectionEntry       Section = "entry"
)

// Meta is one label/text pair attached to a node.
type Meta struct {
	Label string `json:"label" yaml:"label"`
	Text  string `json:"text" yaml:"text"`
}

// Node represents one analysed value.
// Nodes are built by a single analysis session and are not modified after they
// are handed out, apart from lazy child materialisation.
type Node struct {
	ID       string
	Name     string
	Type     TypeTag
	TypeName string

	// Value is the short display value: the formatted scalar, or a type label
	// for composites.
	Value string
	// Extra holds the full text when Value was truncated.
	Extra string

	Connector Connector
	Section   Section
	Status    Status

	// Collection hints.
	Multiline  bool
	Simplified bool
	Count      int

	meta     []Meta
	children iter.Seq[*Node]
}

// AddMeta appends a metadata entry. An existing label is overwritten in place.
func (n *Node) AddMeta(label, text string) *Node {
	for i := range n.meta {
		if n.meta[i].Label == label {
			n.meta[i].Text = text
			return n
		}
	}
	n.meta = append(n.meta, Meta{Label: label, Text: text})
	return n
}

// Meta returns a copy of the metadata in insertion order.
func (n *Node) Meta() []Meta {
	return slices.Clone(n.meta)
}

// MetaValue looks up a metadata entry by label.
func (n *Node) MetaValue(label string) (string, bool) {
	for _, m := range n.meta {
		if m.Label == label {
			return m.Text, true
		}
	}
	return "", false
}

// SetChildren installs the child sequence and marks the node expandable.
func (n *Node) SetChildren(seq iter.Seq[*Node]) *Node {
	n.children = seq
	if seq != nil && n.Status == StatusLeaf {
		n.Status = StatusExpandable
	}
	return n
}

// Redact replaces the value with mask and drops the metadata and the
// children, so nothing below n gets analysed.
func (n *Node) Redact(mask string) *Node {
	n.Value = mask
	n.Extra = ""
	n.Count = 0
	n.meta = nil
	n.children = nil
	if n.Status == StatusExpandable {
		n.Status = StatusLeaf
	}
	n.AddMeta(MetaRedacted, "value hidden")
	return n
}

// HasChildren reports whether a child sequence is attached.
func (n *Node) HasChildren() bool {
	return n.children != nil
}

// Children returns the lazily produced children.
// Every call re-runs the analysis of the children.
func (n *Node) Children() iter.Seq[*Node] {
	if n.children == nil {
		return func(func(*Node) bool) {}
	}
	return n.children
}

// Collect materialises the direct children of n.
func Collect(n *Node) []*Node {
	return slices.Collect(n.Children())
}

// Static returns a sequence over already built nodes.
func Static(nodes []*Node) iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		for _, c := range nodes {
			if !yield(c) {
				return
			}
		}
	}
}
