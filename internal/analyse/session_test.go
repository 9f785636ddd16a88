package analyse_test

import (
	"errors"
	"iter"
	"math"
	"slices"
	"testing"
	"time"

	"github.com/aretw0/probe/internal/analyse"
	"github.com/aretw0/probe/internal/flow"
	"github.com/aretw0/probe/pkg/config"
	"github.com/aretw0/probe/pkg/domain"
	"github.com/aretw0/probe/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func settings(mutate ...func(*config.Settings)) config.Settings {
	s := config.Defaults()
	for _, m := range mutate {
		m(&s)
	}
	return s
}

func newSession(s config.Settings) *analyse.Session {
	return analyse.NewSession(analyse.Options{Settings: s, Guard: []flow.GuardOption{flow.WithMemoryLimit(0)}})
}

func childNames(n *domain.Node, sections ...domain.Section) []string {
	var out []string
	for c := range n.Children() {
		if len(sections) == 0 || slices.Contains(sections, c.Section) {
			out = append(out, c.Name)
		}
	}
	return out
}

func child(t *testing.T, n *domain.Node, name string) *domain.Node {
	t.Helper()
	for c := range n.Children() {
		if c.Name == name {
			return c
		}
	}
	require.FailNow(t, "child not found", name)
	return nil
}

type selfRef struct {
	Name  string
	Child *selfRef
}

func TestSelfReferenceTerminates(t *testing.T) {
	a := &selfRef{Name: "a"}
	a.Child = a

	s := newSession(settings())
	root := s.Analyse(a, "a")
	require.Equal(t, domain.StatusExpandable, root.Status)

	ref := child(t, root, "Child")
	assert.Equal(t, domain.StatusReference, ref.Status)
	assert.False(t, ref.HasChildren())
	text, ok := ref.MetaValue(domain.MetaReference)
	assert.True(t, ok)
	assert.Contains(t, text, root.ID)

	snap := domain.Snap(root, 0)
	assert.False(t, snap.Truncated)
}

func TestSelfContainingMapTerminates(t *testing.T) {
	m := map[string]any{"name": "m"}
	m["self"] = m

	root := newSession(settings()).Analyse(m, "m")
	require.Equal(t, domain.StatusExpandable, root.Status)

	ref := child(t, root, "self")
	assert.Equal(t, domain.StatusReference, ref.Status)
	assert.Equal(t, domain.TypeArray, ref.Type)
	text, ok := ref.MetaValue(domain.MetaReference)
	assert.True(t, ok)
	assert.Contains(t, text, root.ID)
}

func TestSelfContainingSliceTerminates(t *testing.T) {
	list := make([]any, 2)
	list[0] = "first"
	list[1] = list

	root := newSession(settings()).Analyse(list, "list")
	require.Equal(t, domain.StatusExpandable, root.Status)

	ref := child(t, root, "1")
	assert.Equal(t, domain.StatusReference, ref.Status)
	text, ok := ref.MetaValue(domain.MetaReference)
	assert.True(t, ok)
	assert.Contains(t, text, root.ID)
}

func pointerChain(links int) any {
	var v any = "end"
	for range links {
		p := v
		v = &p
	}
	return v
}

func TestLongPointerChainHonoursRuntime(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	calls := 0
	clock := func() time.Time {
		calls++
		if calls > 10 {
			return base.Add(time.Hour)
		}
		return base
	}
	s := analyse.NewSession(analyse.Options{
		Settings: settings(func(s *config.Settings) { s.MaxRuntime = time.Second }),
		Guard:    []flow.GuardOption{flow.WithClock(clock), flow.WithMemoryLimit(0)},
	})

	root := s.Analyse(pointerChain(40000), "chain")
	assert.Equal(t, domain.StatusCutoff, root.Status)
	reason, _ := root.MetaValue(domain.MetaReason)
	assert.Equal(t, "limit reached: "+flow.ReasonRuntime, reason)
	assert.True(t, s.Guard().Broken())
	assert.Less(t, calls, 100)
}

func TestLongPointerCycleIsReference(t *testing.T) {
	ring := make([]*any, 200)
	for i := range ring {
		ring[i] = new(any)
	}
	for i := range ring {
		*ring[i] = ring[(i+1)%len(ring)]
	}

	root := newSession(settings()).Analyse(ring[0], "ring")
	assert.Equal(t, domain.StatusReference, root.Status)

	end := newSession(settings()).Analyse(pointerChain(5000), "chain")
	assert.Equal(t, domain.TypeScalar, end.Type)
	assert.Equal(t, "end", end.Value)
}

type pair struct {
	Left, Right *selfRef
}

func TestRepeatOffPathIsRenderedAgain(t *testing.T) {
	shared := &selfRef{Name: "shared"}
	s := newSession(settings())
	root := s.Analyse(pair{Left: shared, Right: shared}, "p")

	children := domain.Collect(root)
	require.Len(t, children, 3, "Left, Right, Meta")
	left, right := children[0], children[1]
	assert.Equal(t, domain.StatusExpandable, left.Status)
	assert.Equal(t, domain.StatusExpandable, right.Status)

	_, seen := left.MetaValue(domain.MetaAnalysedBefore)
	assert.False(t, seen)
	text, seen := right.MetaValue(domain.MetaAnalysedBefore)
	assert.True(t, seen)
	assert.Contains(t, text, left.ID)
}

func TestCollectionSimplificationBoundary(t *testing.T) {
	s := newSession(settings(func(s *config.Settings) { s.ArrayCountLimit = 3 }))

	atLimit := s.Analyse([]int{1, 2, 3}, "")
	assert.False(t, atLimit.Simplified)
	for c := range atLimit.Children() {
		assert.Equal(t, domain.ConnectorIndex, c.Connector.Kind)
	}

	above := s.Analyse([]*selfRef{{Name: "1"}, {}, {}, {}}, "")
	assert.True(t, above.Simplified)
	assert.Equal(t, 4, above.Count)
	for c := range above.Children() {
		assert.Equal(t, domain.ConnectorNone, c.Connector.Kind)
		assert.Equal(t, domain.TypeObject, c.Type)
		assert.False(t, c.HasChildren(), "composites are stubs on the simplified path")
	}
}

func TestNestingIsNetZero(t *testing.T) {
	a := &selfRef{Name: "a", Child: &selfRef{Name: "b", Child: &selfRef{Name: "c"}}}
	values := []any{
		a,
		[]any{1, "x", map[string]any{"k": a}},
		nil,
		slices.Values([]int{1, 2}),
	}
	for _, limit := range []int{1, 5} {
		s := newSession(settings(func(s *config.Settings) { s.MaxLevel = limit }))
		for _, v := range values {
			before := s.Level()
			root := s.Analyse(v, "v")
			assert.Equal(t, before, s.Level())
			domain.Snap(root, 0)
			assert.Equal(t, before, s.Level(), "pulling children restores the level too")
		}
	}
}

func TestNestingCutoffIsPathLocal(t *testing.T) {
	deep := &selfRef{Name: "1", Child: &selfRef{Name: "2", Child: &selfRef{Name: "3"}}}
	s := newSession(settings(func(s *config.Settings) { s.MaxLevel = 2 }))
	root := s.Analyse([]*selfRef{deep, {Name: "sibling"}}, "")

	first := child(t, root, "0")
	assert.Equal(t, domain.StatusExpandable, first.Status)
	nested := child(t, first, "Child")
	assert.Equal(t, domain.StatusCutoff, nested.Status)
	assert.False(t, nested.HasChildren())
	reason, _ := nested.MetaValue(domain.MetaReason)
	assert.Equal(t, "limit reached: "+flow.ReasonNesting, reason)

	assert.Equal(t, domain.StatusExpandable, child(t, root, "1").Status, "siblings are not affected")
	assert.False(t, s.Guard().Broken())
}

type Inner struct {
	secret string
}

type Scoped struct {
	Inner
}

func (Scoped) GetAnswer() int { return 42 }

func TestScopeFlipsGetterOrder(t *testing.T) {
	v := Scoped{Inner{secret: "s"}}
	sections := []domain.Section{domain.SectionGetter, domain.SectionProperty}

	s := newSession(settings(func(s *config.Settings) { s.AnalyseProtected = true }))
	out := s.Analyse(v, "v")
	assert.Equal(t, []string{"GetAnswer", "secret"}, childNames(out, sections...))

	in := analyse.NewSession(analyse.Options{Settings: settings(), Scope: true}).Analyse(v, "v")
	assert.Equal(t, []string{"secret", "GetAnswer"}, childNames(in, sections...))

	getter := child(t, out, "GetAnswer")
	assert.Equal(t, "42", getter.Value)
	assert.Equal(t, ".GetAnswer()", getter.Connector.String())
}

type visBase struct {
	b int
}

type Vis struct {
	visBase
	A int
	c int
}

func (v Vis) Sum() int { return v.A + v.b + v.c }

func TestVisibilityBySettingsAndScope(t *testing.T) {
	v := Vis{visBase: visBase{b: 2}, A: 1, c: 3}

	out := newSession(settings()).Analyse(v, "v")
	assert.Equal(t, []string{"A"}, childNames(out, domain.SectionProperty))
	assert.Contains(t, childNames(out), "Meta")
	assert.Contains(t, childNames(out), "Methods")

	in := analyse.NewSession(analyse.Options{Settings: settings(), Scope: true}).Analyse(v, "v")
	assert.Equal(t, []string{"A", "b", "c"}, childNames(in, domain.SectionProperty))

	b := child(t, in, "b")
	assert.True(t, b.Connector.Hidden)
	declared, _ := b.MetaValue(domain.MetaDeclaredIn)
	assert.Equal(t, "analyse_test.visBase", declared)

	both := newSession(settings(func(s *config.Settings) {
		s.AnalyseProtected = true
		s.AnalysePrivate = true
	})).Analyse(v, "v")
	assert.Equal(t, []string{"A", "b", "c"}, childNames(both, domain.SectionProperty))
}

func TestScopeOnlyAppliesToTopLevel(t *testing.T) {
	v := struct{ Nested Vis }{Nested: Vis{A: 1, c: 3}}
	root := analyse.NewSession(analyse.Options{Settings: settings(), Scope: true}).Analyse(&v, "v")
	nested := child(t, root, "Nested")
	assert.Equal(t, []string{"A"}, childNames(nested, domain.SectionProperty))
}

type Throwing struct {
	Name string
}

func (Throwing) String() string { panic("no string for you") }

func (Throwing) GoString() string { return "Throwing{}" }

func TestThrowingDebugMethodIsIsolated(t *testing.T) {
	s := newSession(settings())
	root := s.Analyse(Throwing{Name: "x"}, "t")

	names := childNames(root)
	assert.Contains(t, names, "Meta")
	assert.Contains(t, names, "Methods")
	assert.Equal(t, []string{"GoString"}, childNames(root, domain.SectionDebug))

	require.NotEmpty(t, s.Diagnostics())
	var rec *domain.RecoveredError
	assert.True(t, errors.As(s.Diagnostics()[0], &rec))
}

func TestBlacklistedDebugMethodIsSkipped(t *testing.T) {
	bl := config.NewBlacklist()
	bl.AddMethod("analyse_test.Throwing", "GoString")
	s := analyse.NewSession(analyse.Options{Settings: settings(), Blacklist: bl})
	root := s.Analyse(Throwing{}, "t")
	assert.Empty(t, childNames(root, domain.SectionDebug))
}

type chain struct {
	Depth int
	Next  *chain
}

func TestEmergencyBreakIsSessionWide(t *testing.T) {
	var head *chain
	for d := 5; d >= 1; d-- {
		head = &chain{Depth: d, Next: head}
	}

	base := time.Unix(1_700_000_000, 0)
	tripped := false
	clock := func() time.Time {
		if tripped {
			return base.Add(time.Hour)
		}
		return base
	}
	reg := registry.NewRegistry()
	reg.Register(domain.EventName(domain.StepPublic, domain.MarkerStart), func(ev *domain.Event) []*domain.Node {
		if ev.Value.FieldByName("Depth").Int() == 1 {
			tripped = true
		}
		return nil
	})

	s := analyse.NewSession(analyse.Options{
		Settings: settings(func(s *config.Settings) { s.MaxRuntime = time.Minute }),
		Registry: reg,
		Guard:    []flow.GuardOption{flow.WithClock(clock), flow.WithMemoryLimit(0)},
	})
	root := s.Analyse(head, "head")
	require.Equal(t, domain.StatusExpandable, root.Status)

	depth2 := child(t, root, "Next")
	assert.Equal(t, domain.StatusCutoff, depth2.Status)
	assert.False(t, depth2.HasChildren())
	reason, _ := depth2.MetaValue(domain.MetaReason)
	assert.Equal(t, "limit reached: "+flow.ReasonRuntime, reason)

	expanded := 0
	domain.Walk(root, 0, func(n *domain.Node, _ int) bool {
		if n.Type == domain.TypeObject && n.Status == domain.StatusExpandable {
			expanded++
		}
		return true
	})
	assert.Equal(t, 1, expanded, "nothing below depth 2 is expanded")
	assert.True(t, s.Guard().Broken())

	again := s.Analyse(&chain{Depth: 9}, "again")
	assert.Equal(t, domain.StatusCutoff, again.Status, "the break is monotonic")
}

type Model struct {
	ID    int
	Extra map[string]any `probe:",remain"`
}

func TestDynamicPropertiesAreListed(t *testing.T) {
	v := Model{ID: 1, Extra: map[string]any{"added": true, "ID": "shadowed"}}
	root := newSession(settings()).Analyse(v, "m")

	assert.Equal(t, []string{"ID", "added"}, childNames(root, domain.SectionProperty))
	added := child(t, root, "added")
	src, _ := added.MetaValue(domain.MetaSource)
	assert.Equal(t, "dynamic", src)
	assert.Equal(t, `.Extra["added"]`, added.Connector.String())
}

func TestEventHandlersMergeNodes(t *testing.T) {
	reg := registry.NewRegistry()
	reg.Register(domain.EventName(domain.StepPublic, domain.MarkerEnd), func(ev *domain.Event) []*domain.Node {
		ev.Node.AddMeta("Is dirty", "yes")
		return []*domain.Node{{Name: "injected", Type: domain.TypeScalar, Value: "1", Section: domain.SectionProperty}}
	})
	reg.Register(domain.EventName(domain.StepPublic, domain.MarkerEnd), func(*domain.Event) []*domain.Node {
		panic("broken handler")
	})

	s := analyse.NewSession(analyse.Options{Settings: settings(), Registry: reg})
	root := s.Analyse(Model{ID: 1}, "m")

	assert.Equal(t, []string{"ID", "injected"}, childNames(root, domain.SectionProperty))
	dirty, _ := root.MetaValue("Is dirty")
	assert.Equal(t, "yes", dirty)
	assert.Len(t, s.Diagnostics(), 1)
}

func TestLifecycleHooks(t *testing.T) {
	var sessions, nodes, refs, cutoffs int
	a := &selfRef{Name: "a"}
	a.Child = a

	s := analyse.NewSession(analyse.Options{
		Settings: settings(),
		Hooks: domain.LifecycleHooks{
			OnSessionStart: func(*domain.SessionEvent) { sessions++ },
			OnNode:         func(*domain.NodeEvent) { nodes++ },
			OnReference:    func(*domain.NodeEvent) { refs++ },
			OnCutoff:       func(*domain.CutoffEvent) { cutoffs++ },
		},
	})
	domain.Snap(s.Analyse(a, "a"), 0)

	assert.Equal(t, 1, sessions)
	assert.Equal(t, 1, refs)
	assert.Zero(t, cutoffs)
	assert.GreaterOrEqual(t, nodes, 3)
}

func explode(yield func(int) bool) {
	yield(1)
	panic("iterator broke")
}

func TestIterators(t *testing.T) {
	s := newSession(settings(func(s *config.Settings) { s.MaxTraversableEntries = 3 }))

	root := s.Analyse(slices.Values([]string{"a", "b"}), "seq")
	assert.Equal(t, domain.TypeArray, root.Type)
	assert.True(t, root.Multiline)
	assert.Equal(t, []string{"0", "1"}, childNames(root))

	pairs := s.Analyse(iter.Seq2[string, int](func(yield func(string, int) bool) {
		_ = yield("x", 1) && yield("y", 2)
	}), "seq2")
	assert.Equal(t, []string{"x", "y"}, childNames(pairs))

	capped := s.Analyse(slices.Values([]int{1, 2, 3, 4, 5}), "capped")
	assert.Equal(t, 3, capped.Count)
	_, ok := capped.MetaValue(domain.MetaHint)
	assert.True(t, ok)

	broken := s.Analyse(iter.Seq[int](explode), "broken")
	assert.Equal(t, 0, broken.Count)
	assert.Empty(t, childNames(broken))
	assert.ErrorIs(t, s.Diagnostics()[len(s.Diagnostics())-1], domain.ErrIterationAborted)
}

type Bag struct {
	items []string
}

func (b Bag) All() iter.Seq2[int, string] { return slices.All(b.items) }

func (b Bag) At(i int) string { return b.items[i] }

func TestTraversableStep(t *testing.T) {
	root := newSession(settings()).Analyse(Bag{items: []string{"p", "q"}}, "bag")
	all := child(t, root, "All")
	assert.Equal(t, domain.SectionTraversable, all.Section)
	assert.False(t, all.Multiline, "At(int) gives index access")
	assert.Equal(t, []string{"0", "1"}, childNames(all))

	off := newSession(settings(func(s *config.Settings) { s.AnalyseTraversable = false })).Analyse(Bag{items: []string{"p"}}, "bag")
	assert.Empty(t, childNames(off, domain.SectionTraversable))
}

func TestMapKeysAreSorted(t *testing.T) {
	root := newSession(settings()).Analyse(map[string]int{"b": 2, "a": 1, "c": 3}, "m")
	assert.Equal(t, []string{"a", "b", "c"}, childNames(root))
	assert.False(t, root.Multiline)
	assert.Equal(t, `["a"]`, child(t, root, "a").Connector.String())

	ints := newSession(settings()).Analyse(map[int]bool{10: true, 9: false, 100: true}, "m")
	assert.Equal(t, []string{"9", "10", "100"}, childNames(ints))

	type key struct{ A, B int }
	structs := newSession(settings()).Analyse(map[key]int{{1, 2}: 1}, "m")
	assert.True(t, structs.Multiline)
}

func TestPartialSettingsKeepTheirFields(t *testing.T) {
	s := analyse.NewSession(analyse.Options{
		Settings: config.Settings{AnalysePrivate: true},
		Guard:    []flow.GuardOption{flow.WithMemoryLimit(0)},
	})
	root := s.Analyse(Account{balance: 3, owner: "ada"}, "acc")
	assert.Equal(t, []string{"balance", "owner"}, childNames(root, domain.SectionProperty))
	assert.Empty(t, childNames(root, domain.SectionGetter))
}

func TestNaNMapKeysKeepTheirValues(t *testing.T) {
	m := map[float64]string{math.NaN(): "x", math.NaN(): "y", 1: "one"}
	root := newSession(settings()).Analyse(m, "m")

	var values []string
	for c := range root.Children() {
		if c.Section == domain.SectionEntry {
			values = append(values, c.Value)
		}
	}
	require.Len(t, values, 3)
	assert.ElementsMatch(t, []string{"x", "y"}, values[:2], "NaN sorts first")
	assert.Equal(t, "one", values[2])
}
