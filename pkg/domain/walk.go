package domain

import "github.com/eapache/queue"

// Walk visits the tree breadth first, pulling children level by level.
// fn returns false to skip the children of a node. At most limit nodes are
// visited; limit <= 0 means DefaultSnapshotBudget.
func Walk(root *Node, limit int, fn func(n *Node, depth int) bool) {
	if limit <= 0 {
		limit = DefaultSnapshotBudget
	}
	type item struct {
		node  *Node
		depth int
	}
	q := queue.New()
	q.Add(item{root, 0})
	for q.Length() > 0 && limit > 0 {
		it := q.Remove().(item)
		limit--
		if !fn(it.node, it.depth) {
			continue
		}
		for c := range it.node.Children() {
			q.Add(item{c, it.depth + 1})
		}
	}
}

// Find returns the first node, breadth first, whose name is name.
func Find(root *Node, name string) *Node {
	var found *Node
	Walk(root, 0, func(n *Node, _ int) bool {
		if found != nil {
			return false
		}
		if n.Name == name && n != root {
			found = n
			return false
		}
		return true
	})
	return found
}

// Stats counts nodes by type tag and status.
type Stats struct {
	Nodes    int             `json:"nodes" yaml:"nodes"`
	MaxDepth int             `json:"max_depth" yaml:"max_depth"`
	ByType   map[TypeTag]int `json:"by_type" yaml:"by_type"`
	ByStatus map[string]int  `json:"by_status" yaml:"by_status"`
}

// CollectStats gathers Stats over at most limit nodes.
func CollectStats(root *Node, limit int) Stats {
	st := Stats{ByType: map[TypeTag]int{}, ByStatus: map[string]int{}}
	Walk(root, limit, func(n *Node, depth int) bool {
		st.Nodes++
		st.ByType[n.Type]++
		st.ByStatus[n.Status.String()]++
		st.MaxDepth = max(st.MaxDepth, depth)
		return true
	})
	return st
}
