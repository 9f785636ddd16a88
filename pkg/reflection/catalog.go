package reflection

import (
	"cmp"
	"context"
	"encoding"
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"slices"
	"sort"
	"sync"
)

// Constant is a named value registered for a type.
type Constant struct {
	Name  string
	Value any
}

// Interface is a named interface checked by the meta information step.
type Interface struct {
	Name string
	Type reflect.Type
}

// Catalog holds what reflection cannot discover in Go: the constants that
// belong to a type and the interfaces worth checking it against.
type Catalog struct {
	mu         sync.RWMutex
	constants  map[reflect.Type][]Constant
	interfaces []Interface
}

// NewCatalog creates a catalog preloaded with common standard library interfaces.
func NewCatalog() *Catalog {
	c := &Catalog{constants: make(map[reflect.Type][]Constant)}
	c.AddInterface("error", reflect.TypeFor[error]())
	c.AddInterface("fmt.Stringer", reflect.TypeFor[fmt.Stringer]())
	c.AddInterface("fmt.GoStringer", reflect.TypeFor[fmt.GoStringer]())
	c.AddInterface("json.Marshaler", reflect.TypeFor[json.Marshaler]())
	c.AddInterface("json.Unmarshaler", reflect.TypeFor[json.Unmarshaler]())
	c.AddInterface("encoding.TextMarshaler", reflect.TypeFor[encoding.TextMarshaler]())
	c.AddInterface("io.Reader", reflect.TypeFor[io.Reader]())
	c.AddInterface("io.Writer", reflect.TypeFor[io.Writer]())
	c.AddInterface("io.Closer", reflect.TypeFor[io.Closer]())
	c.AddInterface("sort.Interface", reflect.TypeFor[sort.Interface]())
	c.AddInterface("context.Context", reflect.TypeFor[context.Context]())
	return c
}

// AddInterface registers an interface type under a display name.
func (c *Catalog) AddInterface(name string, t reflect.Type) {
	if t.Kind() != reflect.Interface {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.interfaces = append(c.interfaces, Interface{Name: name, Type: t})
}

// Implements lists the registered interfaces that T or *T implements.
func (c *Catalog) Implements(t reflect.Type) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	pt := t
	if t.Kind() != reflect.Pointer {
		pt = reflect.PointerTo(t)
	}
	var out []string
	for _, i := range c.interfaces {
		if t.Implements(i.Type) || pt.Implements(i.Type) {
			out = append(out, i.Name)
		}
	}
	return out
}

// AddConstants registers named constants for t. Pointer types are registered
// under their element type.
func (c *Catalog) AddConstants(t reflect.Type, consts map[string]any) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	list := c.constants[t]
	for name, v := range consts {
		i := slices.IndexFunc(list, func(k Constant) bool { return k.Name == name })
		if i >= 0 {
			list[i].Value = v
			continue
		}
		list = append(list, Constant{Name: name, Value: v})
	}
	slices.SortFunc(list, func(a, b Constant) int { return cmp.Compare(a.Name, b.Name) })
	c.constants[t] = list
}

// Constants returns the constants registered for t, sorted by name.
func (c *Catalog) Constants(t reflect.Type) []Constant {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.constants[t])
}

// RegisterConstants registers named constants for the type T.
func RegisterConstants[T any](c *Catalog, consts map[string]any) {
	c.AddConstants(reflect.TypeFor[T](), consts)
}
