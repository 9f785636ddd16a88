package analyse

import (
	"reflect"

	"github.com/aretw0/probe/pkg/domain"
)

// traversable renders the contents of a struct with an All() iterator.
func traversable(s *Session, o *object) []*domain.Node {
	m, ok := o.desc.Iterator()
	if !ok || !s.blacklist.IsAllowedDebugCall(o.desc.Type, m.Name) {
		return nil
	}
	res := s.adapter.Call(o.v, m.Name)
	if !res.Available() {
		s.recovered("invocation", res.Err())
		return nil
	}

	n := s.newNode(m.Name, domain.MethodConnector(m.Name), domain.SectionTraversable)
	n.TypeName = m.Type.Out(0).String()
	s.iteration(n, res.Value(), nil)
	n.Multiline = !indexAccess(o)
	s.emit(n)
	return []*domain.Node{n}
}

// indexAccess reports whether the contents can also be reached by index,
// through an At(int) method.
func indexAccess(o *object) bool {
	m, ok := o.desc.Method("At")
	return ok && m.NumIn == 1 && m.Type.In(0).Kind() == reflect.Int
}

// debugMethods calls the configured debug methods. Blacklisted calls, calls
// that fail and calls that panic produce nothing.
func debugMethods(s *Session, o *object) []*domain.Node {
	var nodes []*domain.Node
	for _, name := range s.settings.DebugMethods {
		m, ok := o.desc.Method(name)
		if !ok || m.NumIn != 0 || m.NumOut == 0 {
			continue
		}
		if !s.blacklist.IsAllowedDebugCall(o.desc.Type, name) {
			continue
		}
		res := s.adapter.Call(o.v, name)
		if !res.Available() {
			s.recovered("invocation", res.Err())
			continue
		}
		nodes = append(nodes, s.safeRoute(res.Value(), name, domain.MethodConnector(name), domain.SectionDebug))
	}
	return nodes
}
