package analyse

import (
	"cmp"
	"fmt"
	"reflect"
	"slices"
	"strconv"

	"github.com/aretw0/probe/internal/flow"
	"github.com/aretw0/probe/pkg/domain"
)

// entry is one materialised member of a collection.
type entry struct {
	name  string
	conn  domain.Connector
	value reflect.Value
}

// collection analyses slices, arrays and maps.
func (s *Session) collection(n *domain.Node, v reflect.Value, ids []flow.Identity) {
	n.Type = domain.TypeArray
	n.Value = n.TypeName
	n.Count = v.Len()
	n.AddMeta(domain.MetaCount, strconv.Itoa(n.Count))

	leave := s.guard.Enter()
	defer leave()
	if s.cutoff(n) {
		return
	}

	var entries []entry
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		entries = make([]entry, 0, v.Len())
		for i := range v.Len() {
			entries = append(entries, entry{name: strconv.Itoa(i), conn: domain.IndexConnector(i), value: v.Index(i)})
		}
	case reflect.Map:
		// MapIndex cannot find NaN keys, so pairs are read off the iterator.
		type pair struct{ k, v reflect.Value }
		pairs := make([]pair, 0, v.Len())
		for it := v.MapRange(); it.Next(); {
			pairs = append(pairs, pair{it.Key(), it.Value()})
		}
		slices.SortStableFunc(pairs, func(a, b pair) int { return compareKeys(a.k, b.k) })
		n.Multiline = !simpleKey(v.Type().Key())
		entries = make([]entry, 0, len(pairs))
		for _, p := range pairs {
			name, literal := keyText(p.k)
			entries = append(entries, entry{name: name, conn: domain.MapKeyConnector(literal), value: p.v})
		}
	}

	s.entries(n, v, entries, s.track(n, ids))
}

// entries installs the children of a collection node, switching to the
// simplified path above array-count-limit.
func (s *Session) entries(n *domain.Node, v reflect.Value, entries []entry, ids []flow.Identity) {
	n.Simplified = len(entries) > s.settings.ArrayCountLimit
	if n.Simplified {
		n.AddMeta(domain.MetaHint, fmt.Sprintf("%d entries, showing a simplified view", len(entries)))
	}
	extra := s.fire(domain.StepCollection, domain.MarkerEnd, v, n)

	n.SetChildren(s.lazy(ids, func(yield func(*domain.Node) bool) {
		for _, e := range entries {
			var child *domain.Node
			if n.Simplified {
				child = s.stub(e.value, e.name)
			} else {
				child = s.safeRoute(e.value, e.name, e.conn, domain.SectionEntry)
			}
			if !yield(child) {
				return
			}
		}
		for _, c := range extra {
			if !yield(c) {
				return
			}
		}
	}))
}

func simpleKey(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// keyText returns the display name of a map key and its Go literal.
func keyText(k reflect.Value) (name, literal string) {
	switch k.Kind() {
	case reflect.String:
		return k.String(), strconv.Quote(k.String())
	case reflect.Interface:
		if !k.IsNil() {
			return keyText(k.Elem())
		}
	}
	if k.CanInterface() {
		text := fmt.Sprint(k.Interface())
		return text, text
	}
	return k.Type().String(), k.Type().String()
}

// compareKeys orders map keys: numbers numerically, everything else by text.
func compareKeys(a, b reflect.Value) int {
	for a.Kind() == reflect.Interface && !a.IsNil() {
		a = a.Elem()
	}
	for b.Kind() == reflect.Interface && !b.IsNil() {
		b = b.Elem()
	}
	if a.Kind() == b.Kind() {
		switch a.Kind() {
		case reflect.String:
			return cmp.Compare(a.String(), b.String())
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return cmp.Compare(a.Int(), b.Int())
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
			return cmp.Compare(a.Uint(), b.Uint())
		case reflect.Float32, reflect.Float64:
			return cmp.Compare(a.Float(), b.Float())
		}
	}
	as, _ := keyText(a)
	bs, _ := keyText(b)
	return cmp.Compare(as, bs)
}
