package domain

// DefaultSnapshotBudget bounds the number of nodes a Snapshot materialises.
const DefaultSnapshotBudget = 5000

// Snapshot is a fully materialised copy of a node tree, ready for JSON or YAML.
type Snapshot struct {
	Name       string     `json:"name,omitempty" yaml:"name,omitempty"`
	Type       TypeTag    `json:"type" yaml:"type"`
	TypeName   string     `json:"type_name,omitempty" yaml:"type_name,omitempty"`
	Value      string     `json:"value,omitempty" yaml:"value,omitempty"`
	Extra      string     `json:"extra,omitempty" yaml:"extra,omitempty"`
	Access     string     `json:"access,omitempty" yaml:"access,omitempty"`
	Section    Section    `json:"section,omitempty" yaml:"section,omitempty"`
	Status     string     `json:"status" yaml:"status"`
	Multiline  bool       `json:"multiline,omitempty" yaml:"multiline,omitempty"`
	Simplified bool       `json:"simplified,omitempty" yaml:"simplified,omitempty"`
	Meta       []Meta     `json:"meta,omitempty" yaml:"meta,omitempty"`
	Children   []Snapshot `json:"children,omitempty" yaml:"children,omitempty"`
	Truncated  bool       `json:"truncated,omitempty" yaml:"truncated,omitempty"`
}

// Snap materialises the tree below n, depth first, visiting at most budget
// nodes. Subtrees left out because of the budget are flagged Truncated.
func Snap(n *Node, budget int) Snapshot {
	if budget <= 0 {
		budget = DefaultSnapshotBudget
	}
	return snap(n, &budget)
}

func snap(n *Node, budget *int) Snapshot {
	*budget--
	s := Snapshot{
		Name:       n.Name,
		Type:       n.Type,
		TypeName:   n.TypeName,
		Value:      n.Value,
		Extra:      n.Extra,
		Access:     n.Connector.String(),
		Section:    n.Section,
		Status:     n.Status.String(),
		Multiline:  n.Multiline,
		Simplified: n.Simplified,
		Meta:       n.Meta(),
	}
	for child := range n.Children() {
		if *budget <= 0 {
			s.Truncated = true
			break
		}
		s.Children = append(s.Children, snap(child, budget))
	}
	return s
}
