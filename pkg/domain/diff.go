package domain

import (
	"cmp"
	"slices"
)

// Change is one difference between two snapshots.
// Old is nil for added nodes, New is nil for removed ones.
type Change struct {
	Path string  `json:"path" yaml:"path"`
	Old  *string `json:"old,omitempty" yaml:"old,omitempty"`
	New  *string `json:"new,omitempty" yaml:"new,omitempty"`
}

// SnapshotDiff represents the changes between two snapshots of the same value.
// It is designed to be serialized to JSON for partial updates on the client.
type SnapshotDiff struct {
	Changes []Change `json:"changes" yaml:"changes"`
}

// Diff compares two snapshots node by node, keyed by their access path.
// If old is nil, every node of new is reported as added (initial load).
// Diff returns nil when nothing changed.
func Diff(old, new *Snapshot) *SnapshotDiff {
	if new == nil {
		return nil
	}
	before := map[string]string{}
	if old != nil {
		flatten(old, "", before)
	}
	after := map[string]string{}
	flatten(new, "", after)

	diff := &SnapshotDiff{}

	// Added or modified
	for path, v := range after {
		prev, exists := before[path]
		switch {
		case !exists:
			diff.Changes = append(diff.Changes, Change{Path: path, New: &v})
		case prev != v:
			diff.Changes = append(diff.Changes, Change{Path: path, Old: &prev, New: &v})
		}
	}

	// Removed
	for path, v := range before {
		if _, exists := after[path]; !exists {
			diff.Changes = append(diff.Changes, Change{Path: path, Old: &v})
		}
	}

	if diff.IsEmpty() {
		return nil
	}
	slices.SortFunc(diff.Changes, func(a, b Change) int { return cmp.Compare(a.Path, b.Path) })
	return diff
}

// flatten indexes the tree by path. Children reached through a connector
// extend the path with their Go access expression, structural groups with
// "/name".
func flatten(s *Snapshot, path string, out map[string]string) {
	if path == "" {
		path = s.Name
		if path == "" {
			path = "$"
		}
	}
	summary := string(s.Type) + " " + s.TypeName + " " + s.Value
	if s.Status == StatusReference.String() || s.Status == StatusCutoff.String() {
		summary += " (" + s.Status + ")"
	}
	out[path] = summary
	for i := range s.Children {
		c := &s.Children[i]
		next := path + c.Access
		if c.Access == "" {
			next = path + "/" + c.Name
		}
		flatten(c, next, out)
	}
}

// IsEmpty checks if the diff contains any changes.
func (d *SnapshotDiff) IsEmpty() bool {
	return d == nil || len(d.Changes) == 0
}
