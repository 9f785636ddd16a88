package analyse

import (
	"fmt"
	"reflect"
	"runtime"
	"slices"

	"github.com/aretw0/probe/internal/flow"
	"github.com/aretw0/probe/pkg/domain"
	"github.com/aretw0/probe/pkg/reflection"
)

// derefBatch is how many pointers are followed between two emergency break
// checks. Longer chains also switch to a set for cycle detection.
const derefBatch = 64

// route is the dispatch hub: it dereferences v and hands it to the analysis
// matching its kind. The first matching kind wins.
func (s *Session) route(v reflect.Value, name string, conn domain.Connector, section domain.Section) *domain.Node {
	n := s.newNode(name, conn, section)
	defer s.emit(n)

	var ids []flow.Identity
	var seen map[flow.Identity]bool
deref:
	for v.IsValid() {
		switch v.Kind() {
		case reflect.Interface:
			if v.IsNil() {
				break deref
			}
			v = v.Elem()
		case reflect.Pointer:
			if v.IsNil() {
				break deref
			}
			if n.TypeName == "" {
				n.TypeName = v.Type().String()
			}
			id, _ := flow.IdentityOf(v)
			if s.tracker.IsInHive(id) || seen[id] || (seen == nil && slices.Contains(ids, id)) {
				return s.reference(n, id)
			}
			ids = append(ids, id)
			if len(ids)%derefBatch == 0 {
				if s.guard.CheckEmergencyBreak() {
					n.Type = domain.TypeObject
					n.Value = n.TypeName
					s.cutoff(n)
					return n
				}
				if seen == nil {
					seen = make(map[flow.Identity]bool, 2*derefBatch)
					for _, id := range ids {
						seen[id] = true
					}
				}
			}
			if seen != nil {
				seen[id] = true
			}
			v = v.Elem()
		default:
			break deref
		}
	}
	if n.TypeName == "" {
		n.TypeName = typeName(v)
	}

	switch s.adapter.Classify(v) {
	case reflection.KindNull:
		n.Type = domain.TypeNull
		n.Value = "nil"
	case reflection.KindScalar:
		s.scalar(n, v, s.settings.AnalyseScalar)
	case reflection.KindContainer:
		if id, ok := flow.IdentityOf(v); ok {
			if s.tracker.IsInHive(id) {
				return s.reference(n, id)
			}
			ids = append(ids, id)
		}
		s.collection(n, v, ids)
	case reflection.KindObject:
		s.object(n, v, ids)
	case reflection.KindIterator:
		if !s.settings.AnalyseTraversable {
			s.resource(n, v)
			break
		}
		s.iteration(n, v, ids)
	case reflection.KindResource:
		s.resource(n, v)
	default:
		n.Type = domain.TypeUnknown
		n.Value = n.TypeName
	}
	return n
}

// safeRoute is route for children: a panic only costs the child.
func (s *Session) safeRoute(v reflect.Value, name string, conn domain.Connector, section domain.Section) (n *domain.Node) {
	defer func() {
		if r := recover(); r != nil {
			s.recovered("reflection", &domain.RecoveredError{Op: "analyse " + name, Value: r})
			n = s.newNode(name, conn, section)
			n.Type = domain.TypeUnknown
			n.TypeName = typeName(v)
			n.Value = "unavailable"
		}
	}()
	return s.route(v, name, conn, section)
}

// unavailable renders a value that could not be read.
func (s *Session) unavailable(name string, conn domain.Connector, section domain.Section, err error) *domain.Node {
	n := s.newNode(name, conn, section)
	n.Type = domain.TypeUnknown
	n.Value = "unavailable"
	n.AddMeta(domain.MetaReason, err.Error())
	s.recovered("reflection", err)
	return n
}

func (s *Session) resource(n *domain.Node, v reflect.Value) {
	n.Type = domain.TypeResource
	switch v.Kind() {
	case reflect.Chan:
		n.Value = fmt.Sprintf("%s (len %d, cap %d)", n.TypeName, v.Len(), v.Cap())
	case reflect.Func:
		n.Value = n.TypeName
		if f := runtime.FuncForPC(v.Pointer()); f != nil {
			n.Value = f.Name()
			file, line := f.FileLine(f.Entry())
			n.AddMeta(domain.MetaSource, fmt.Sprintf("%s:%d", file, line))
		}
	case reflect.UnsafePointer:
		n.Value = fmt.Sprintf("%#x", v.Pointer())
	default:
		n.Value = n.TypeName
	}
}

func (s *Session) emit(n *domain.Node) {
	if s.hooks.OnNode != nil {
		s.hooks.OnNode(&domain.NodeEvent{Node: n, Level: s.guard.Level()})
	}
}

// stub renders v without expanding it, for the simplified collection path.
func (s *Session) stub(v reflect.Value, name string) *domain.Node {
	n := s.newNode(name, domain.Connector{}, domain.SectionEntry)
	for v.IsValid() && (v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer) && !v.IsNil() {
		if n.TypeName == "" && v.Kind() == reflect.Pointer {
			n.TypeName = v.Type().String()
		}
		v = v.Elem()
	}
	if n.TypeName == "" {
		n.TypeName = typeName(v)
	}
	switch s.adapter.Classify(v) {
	case reflection.KindNull:
		n.Type = domain.TypeNull
		n.Value = "nil"
	case reflection.KindScalar:
		s.scalar(n, v, false)
	case reflection.KindContainer:
		n.Type = domain.TypeArray
		n.Value = n.TypeName
		n.Count = v.Len()
	case reflection.KindObject:
		n.Type = domain.TypeObject
		n.Value = n.TypeName
	default:
		s.resource(n, v)
	}
	s.emit(n)
	return n
}
