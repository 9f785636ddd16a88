package analyse

import (
	"reflect"

	"github.com/aretw0/probe/internal/flow"
	"github.com/aretw0/probe/pkg/domain"
	"github.com/aretw0/probe/pkg/reflection"
)

// object is the state shared by the pipeline steps of one struct.
type object struct {
	v     reflect.Value
	desc  *reflection.Description
	node  *domain.Node
	scope bool
}

// step is one stage of the object pipeline.
type step struct {
	name string
	run  func(s *Session, o *object) []*domain.Node
}

// object analyses a struct value. Its children are produced by the pipeline
// steps, each one fault isolated, in a fixed order.
func (s *Session) object(n *domain.Node, v reflect.Value, ids []flow.Identity) {
	n.Type = domain.TypeObject
	n.Value = n.TypeName

	leave := s.guard.Enter()
	defer leave()
	if s.cutoff(n) {
		return
	}

	v = reflection.Addressable(reflection.Expose(v))
	o := &object{
		v:     v,
		desc:  s.adapter.Describe(v),
		node:  n,
		scope: s.scope && s.guard.Level() == 1,
	}
	steps := s.pipeline(o)

	n.SetChildren(s.lazy(s.track(n, ids), func(yield func(*domain.Node) bool) {
		for _, st := range steps {
			for _, c := range s.runStep(st, o) {
				if !yield(c) {
					return
				}
			}
		}
	}))
}

// pipeline lists the steps for o. Getters go before the hidden properties
// when analysed from outside and after them when in scope.
func (s *Session) pipeline(o *object) []step {
	steps := []step{{domain.StepPublic, publicProperties}}
	if o.desc.Anonymous {
		return steps
	}
	steps = append(steps, step{domain.StepError, errorObject})

	getter := s.settings.AnalyseGetter
	if getter && !o.scope {
		steps = append(steps, step{domain.StepGetter, getters})
	}
	if o.scope || s.settings.AnalyseProtected {
		steps = append(steps, step{domain.StepProtected, protectedProperties})
	}
	if o.scope || s.settings.AnalysePrivate {
		steps = append(steps, step{domain.StepPrivate, privateProperties})
	}
	if getter && o.scope {
		steps = append(steps, step{domain.StepGetter, getters})
	}

	steps = append(steps, step{domain.StepMeta, metaInfo})
	if s.settings.AnalyseConstants {
		steps = append(steps, step{domain.StepConstants, constants})
	}
	steps = append(steps, step{domain.StepMethods, methods})
	if s.settings.AnalyseTraversable {
		steps = append(steps, step{domain.StepTraversable, traversable})
	}
	return append(steps, step{domain.StepDebug, debugMethods})
}

// runStep runs st with its events. Nodes returned by event handlers follow the
// step's own nodes. A panicking step contributes nothing.
func (s *Session) runStep(st step, o *object) (nodes []*domain.Node) {
	defer func() {
		if r := recover(); r != nil {
			s.recovered("reflection", &domain.RecoveredError{Op: st.name, Value: r})
			nodes = nil
		}
	}()

	before := s.fire(st.name, domain.MarkerStart, o.v, o.node)
	nodes = st.run(s, o)
	nodes = append(nodes, before...)
	return append(nodes, s.fire(st.name, domain.MarkerEnd, o.v, o.node)...)
}

func publicProperties(s *Session, o *object) []*domain.Node {
	return s.properties(o, reflection.Public)
}

func protectedProperties(s *Session, o *object) []*domain.Node {
	return s.properties(o, reflection.Protected)
}

func privateProperties(s *Session, o *object) []*domain.Node {
	return s.properties(o, reflection.Private)
}

func (s *Session) properties(o *object, vis reflection.Visibility) []*domain.Node {
	props := o.desc.Properties(vis)
	nodes := make([]*domain.Node, 0, len(props))
	for _, p := range props {
		conn := domain.Connector{}
		if p.Access != "" {
			conn = domain.FieldConnector(p.Access, vis != reflection.Public)
		}
		res := s.adapter.Read(o.v, p)
		if !res.Available() {
			nodes = append(nodes, s.unavailable(p.Name, conn, domain.SectionProperty, res.Err()))
			continue
		}
		n := s.safeRoute(res.Value(), p.Name, conn, domain.SectionProperty)
		switch {
		case p.IsPseudo():
			n.AddMeta(domain.MetaSource, "computed")
		case p.Dynamic:
			n.AddMeta(domain.MetaSource, "dynamic")
		default:
			n.AddMeta(domain.MetaDeclaredIn, p.Declared)
		}
		nodes = append(nodes, n)
	}
	return nodes
}

// getters renders accessor methods. A getter backed by a field is answered
// from the field; other getters are called when getter-invoke allows it.
// Failed calls produce no node.
func getters(s *Session, o *object) []*domain.Node {
	var nodes []*domain.Node
	for _, m := range o.desc.Getters() {
		conn := domain.MethodConnector(m.Name)
		var res reflection.Result
		source := "field " + m.Backing
		if m.Backing != "" {
			p, ok := o.desc.Property(m.Backing)
			if !ok {
				continue
			}
			res = s.adapter.Read(o.v, p)
			if !res.Available() {
				nodes = append(nodes, s.unavailable(m.Name, conn, domain.SectionGetter, res.Err()))
				continue
			}
		} else {
			if !s.settings.GetterInvoke || !s.blacklist.IsAllowedDebugCall(o.desc.Type, m.Name) {
				continue
			}
			res = s.adapter.Call(o.v, m.Name)
			if !res.Available() {
				s.recovered("invocation", res.Err())
				continue
			}
			source = "method call"
		}
		n := s.safeRoute(res.Value(), m.Name, conn, domain.SectionGetter)
		n.AddMeta(domain.MetaDeclaredIn, m.Declared)
		n.AddMeta(domain.MetaSource, source)
		nodes = append(nodes, n)
	}
	return nodes
}

// group builds a structural node around already computed children.
func (s *Session) group(name string, section domain.Section, children []*domain.Node) *domain.Node {
	n := s.newNode(name, domain.Connector{}, section)
	n.Type = domain.TypeGroup
	n.Count = len(children)
	n.SetChildren(domain.Static(children))
	return n
}

// label builds a leaf text node.
func (s *Session) label(name, value string, section domain.Section) *domain.Node {
	n := s.newNode(name, domain.Connector{}, section)
	n.Type = domain.TypeScalar
	n.TypeName = "string"
	n.Value = value
	return n
}
