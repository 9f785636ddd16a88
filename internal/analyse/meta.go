package analyse

import (
	"reflect"
	"strconv"

	"github.com/aretw0/probe/pkg/domain"
)

// metaInfo describes the type itself: name, package, size, embedded types and
// the catalogued interfaces it implements.
func metaInfo(s *Session, o *object) []*domain.Node {
	t := o.desc.Type
	children := []*domain.Node{
		s.label("Type", t.String(), domain.SectionMeta),
	}
	if pkg := t.PkgPath(); pkg != "" {
		children = append(children, s.label("Package", pkg, domain.SectionMeta))
	}
	children = append(children, s.label("Size", strconv.FormatUint(uint64(t.Size()), 10)+" bytes", domain.SectionMeta))

	if len(o.desc.Parents) > 0 {
		embeds := make([]*domain.Node, 0, len(o.desc.Parents))
		for i, p := range o.desc.Parents {
			embeds = append(embeds, s.label(strconv.Itoa(i), p.String(), domain.SectionMeta))
		}
		children = append(children, s.group("Embeds", domain.SectionMeta, embeds))
	}

	if impl := s.adapter.Catalog().Implements(t); len(impl) > 0 {
		names := make([]*domain.Node, 0, len(impl))
		for i, name := range impl {
			names = append(names, s.label(strconv.Itoa(i), name, domain.SectionMeta))
		}
		children = append(children, s.group("Implements", domain.SectionMeta, names))
	}
	return []*domain.Node{s.group("Meta", domain.SectionMeta, children)}
}

// constants renders the values registered for the type in the catalog.
func constants(s *Session, o *object) []*domain.Node {
	consts := s.adapter.Catalog().Constants(o.desc.Type)
	if len(consts) == 0 {
		return nil
	}
	children := make([]*domain.Node, 0, len(consts))
	for _, c := range consts {
		n := s.safeRoute(reflect.ValueOf(c.Value), c.Name, domain.Connector{}, domain.SectionConstants)
		n.AddMeta(domain.MetaDeclaredIn, o.desc.Type.String())
		children = append(children, n)
	}
	return []*domain.Node{s.group("Constants", domain.SectionConstants, children)}
}

// methods lists the exported method signatures.
func methods(s *Session, o *object) []*domain.Node {
	if len(o.desc.Methods) == 0 {
		return nil
	}
	children := make([]*domain.Node, 0, len(o.desc.Methods))
	for _, m := range o.desc.Methods {
		n := s.newNode(m.Name, domain.MethodConnector(m.Name), domain.SectionMethods)
		n.Type = domain.TypeGroup
		n.TypeName = "method"
		n.Value = m.Signature()
		n.AddMeta(domain.MetaSignature, "func ("+m.Receiver+") "+m.Name+m.Signature()[len("func"):])
		n.AddMeta(domain.MetaReceiver, m.Receiver)
		n.AddMeta(domain.MetaDeclaredIn, m.Declared)
		children = append(children, n)
	}
	return []*domain.Node{s.group("Methods", domain.SectionMethods, children)}
}
