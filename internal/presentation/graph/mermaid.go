package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/probe/pkg/domain"
	"github.com/eapache/queue"
)

// GenerateMermaid produces a Mermaid flowchart of the tree below root,
// declaring at most budget nodes breadth first.
// It applies semantic styling:
// - Object: [[Subroutine]]
// - Array: [/Parallelogram/]
// - Reference: ((Circle)), with a dotted edge back to the node it repeats
// - Cutoff: {{Hexagon}}
// - Default: [Rectangle]
// Group nodes (meta, methods, ...) are left out together with their children.
func GenerateMermaid(root *domain.Node, budget int) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	ids := map[*domain.Node]string{}
	emitted := map[string]bool{}
	var refs, cutoffs []string
	var edges, backEdges []string

	id := func(n *domain.Node) string {
		if s, ok := ids[n]; ok {
			return s
		}
		s := n.ID
		if s == "" {
			s = fmt.Sprintf("x%d", len(ids))
		}
		s = sanitizeMermaidID(s)
		ids[n] = s
		return s
	}

	if budget <= 0 {
		budget = domain.DefaultSnapshotBudget
	}
	// Children are pulled once per node so edge targets and queued nodes are
	// the same instances.
	q := queue.New()
	q.Add(root)
	for q.Length() > 0 && budget > 0 {
		n := q.Remove().(*domain.Node)
		budget--
		safeID := id(n)
		emitted[safeID] = true

		opener, closer := "[", "]"
		switch {
		case n.Status == domain.StatusReference:
			opener, closer = "((", "))"
			refs = append(refs, safeID)
			if owner, ok := referenceOwner(n); ok {
				backEdges = append(backEdges, fmt.Sprintf("    %s -.-> %s\n", safeID, owner))
			}
		case n.Status == domain.StatusCutoff:
			opener, closer = "{{", "}}"
			cutoffs = append(cutoffs, safeID)
		case n.Type == domain.TypeObject:
			opener, closer = "[[", "]]"
		case n.Type == domain.TypeArray:
			opener, closer = "[/", "/]"
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, escapeLabel(nodeLabel(n)), closer))

		for c := range n.Children() {
			if c.Type == domain.TypeGroup {
				continue
			}
			q.Add(c)
			arrow := "-->"
			if access := c.Connector.String(); access != "" {
				arrow = fmt.Sprintf("-- \"%s\" -->", escapeLabel(access))
			}
			edges = append(edges, fmt.Sprintf("    %s %s %s\n", safeID, arrow, id(c)))
		}
	}

	// Only link nodes that made it into the chart
	for _, e := range edges {
		fields := strings.Fields(e)
		if emitted[fields[len(fields)-1]] {
			sb.WriteString(e)
		}
	}

	for _, e := range backEdges {
		fields := strings.Fields(e)
		if emitted[fields[len(fields)-1]] {
			sb.WriteString(e)
		}
	}

	if len(refs) > 0 || len(cutoffs) > 0 {
		sb.WriteString("\n    %% Status Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef reference fill:#fce4ec,stroke:#c2185b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef cutoff fill:#fff8e1,stroke:#f57f17,stroke-dasharray:4,color:#000;\n")
		for _, r := range refs {
			sb.WriteString(fmt.Sprintf("    class %s reference;\n", r))
		}
		for _, c := range cutoffs {
			sb.WriteString(fmt.Sprintf("    class %s cutoff;\n", c))
		}
	}

	return sb.String()
}

func nodeLabel(n *domain.Node) string {
	name := n.Name
	if name == "" {
		name = "value"
	}
	switch n.Type {
	case domain.TypeScalar, domain.TypeNull:
		return name + ": " + n.Value
	case domain.TypeArray:
		return fmt.Sprintf("%s <br/> %s (%d)", name, n.TypeName, n.Count)
	}
	if n.TypeName == "" {
		return name
	}
	return name + " <br/> " + n.TypeName
}

// referenceOwner extracts the node ID from "recursion, see n3".
func referenceOwner(n *domain.Node) (string, bool) {
	text, ok := n.MetaValue(domain.MetaReference)
	if !ok {
		return "", false
	}
	i := strings.LastIndex(text, " ")
	if i < 0 || i == len(text)-1 {
		return "", false
	}
	return sanitizeMermaidID(text[i+1:]), true
}

// Escape double quotes for Mermaid labels
func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	return s
}
