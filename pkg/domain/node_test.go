package domain

import (
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddMetaOverwritesInPlace(t *testing.T) {
	n := &Node{}
	n.AddMeta(MetaLength, "1").AddMeta(MetaEncoding, "utf-8").AddMeta(MetaLength, "2")
	assert.Equal(t, []Meta{{MetaLength, "2"}, {MetaEncoding, "utf-8"}}, n.Meta())

	_, ok := n.MetaValue(MetaHint)
	assert.False(t, ok)
}

func TestSetChildrenMarksExpandable(t *testing.T) {
	n := &Node{}
	assert.False(t, n.HasChildren())
	assert.Empty(t, Collect(n))

	n.SetChildren(Static([]*Node{{Name: "a"}}))
	assert.Equal(t, StatusExpandable, n.Status)

	cut := &Node{Status: StatusCutoff}
	cut.SetChildren(Static(nil))
	assert.Equal(t, StatusCutoff, cut.Status)
}

func TestConnectorAccess(t *testing.T) {
	assert.Equal(t, "u.Name", FieldConnector("Name", false).Access("u"))
	assert.Equal(t, "u[3]", IndexConnector(3).Access("u"))
	assert.Equal(t, `u["k"]`, MapKeyConnector(`"k"`).Access("u"))
	assert.Equal(t, "u.String()", MethodConnector("String").Access("u"))
	assert.Equal(t, "(*u)", Connector{Kind: ConnectorDeref}.Access("u"))
	assert.Equal(t, "u", Connector{}.Access("u"))
}

// counting builds a tree of the given depth where every node has width
// children, counting how often children are produced.
func counting(depth, width int, pulls *int) *Node {
	n := &Node{Name: "n", Type: TypeArray}
	if depth == 0 {
		n.Type = TypeScalar
		return n
	}
	var seq iter.Seq[*Node] = func(yield func(*Node) bool) {
		*pulls++
		for range width {
			if !yield(counting(depth-1, width, pulls)) {
				return
			}
		}
	}
	return n.SetChildren(seq)
}

func TestSnapBudget(t *testing.T) {
	var pulls int
	full := Snap(counting(2, 2, &pulls), 0)
	require.Len(t, full.Children, 2)
	assert.Len(t, full.Children[0].Children, 2)
	assert.False(t, full.Truncated)

	small := Snap(counting(2, 2, &pulls), 3)
	assert.True(t, small.Truncated || small.Children[0].Truncated)
	assert.Len(t, small.Children, 1)
}

func TestWalkBreadthFirst(t *testing.T) {
	var pulls int
	var depths []int
	Walk(counting(2, 2, &pulls), 0, func(_ *Node, depth int) bool {
		depths = append(depths, depth)
		return true
	})
	assert.Equal(t, []int{0, 1, 1, 2, 2, 2, 2}, depths)

	visited := 0
	Walk(counting(2, 2, &pulls), 2, func(*Node, int) bool {
		visited++
		return true
	})
	assert.Equal(t, 2, visited)
}

func TestFindAndStats(t *testing.T) {
	leaf := &Node{Name: "target", Type: TypeScalar}
	mid := (&Node{Name: "mid", Type: TypeObject}).SetChildren(Static([]*Node{leaf}))
	root := (&Node{Name: "target", Type: TypeObject}).SetChildren(Static([]*Node{mid}))

	assert.Same(t, leaf, Find(root, "target"))
	assert.Nil(t, Find(root, "missing"))

	st := CollectStats(root, 0)
	assert.Equal(t, 3, st.Nodes)
	assert.Equal(t, 2, st.MaxDepth)
	assert.Equal(t, 2, st.ByType[TypeObject])
	assert.Equal(t, 1, st.ByStatus["leaf"])
}

func TestLifecycleHooksMerge(t *testing.T) {
	var calls []string
	a := LifecycleHooks{OnNode: func(*NodeEvent) { calls = append(calls, "a") }}
	b := LifecycleHooks{
		OnNode:   func(*NodeEvent) { calls = append(calls, "b") },
		OnCutoff: func(*CutoffEvent) { calls = append(calls, "cut") },
	}
	m := a.Merge(b)
	m.OnNode(&NodeEvent{})
	m.OnCutoff(&CutoffEvent{})
	assert.Nil(t, m.OnReference)
	assert.Equal(t, []string{"a", "b", "cut"}, calls)
}

func TestRecoveredErrorUnwrap(t *testing.T) {
	inner := assert.AnError
	err := &RecoveredError{Op: "call String", Value: inner}
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "call String: recovered from panic")
	assert.NoError(t, (&RecoveredError{Value: "text"}).Unwrap())
}
