package reflection

import "reflect"

// Visibility of a property, mapped from Go's exported/unexported rule and the
// embedding depth at which the field is declared.
type Visibility int

const (
	// Public fields are exported, wherever they are declared.
	Public Visibility = iota
	// Protected fields are unexported fields of an embedded struct.
	Protected
	// Private fields are unexported fields declared on the struct itself.
	Private
)

func (v Visibility) String() string {
	switch v {
	case Public:
		return "public"
	case Protected:
		return "protected"
	case Private:
		return "private"
	}
	return "unknown"
}

// Kind is the closed set of value kinds the routing hub switches on.
type Kind int

const (
	KindUnknown Kind = iota
	KindNull
	KindScalar
	KindContainer
	KindObject
	KindIterator
	KindResource
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindScalar:
		return "scalar"
	case KindContainer:
		return "container"
	case KindObject:
		return "object"
	case KindIterator:
		return "iterator"
	case KindResource:
		return "resource"
	}
	return "unknown"
}

// Property describes one declared or dynamic property of a struct.
type Property struct {
	// Name is the display name; promoted fields shadowed by a shallower field
	// are qualified with their embedded type ("Base.ID").
	Name  string
	Field string
	// Access is the Go selector reaching the value from the struct, e.g.
	// "Base.ID" or `Extra["key"]`. Empty for pseudo properties.
	Access     string
	Declared   string
	Visibility Visibility
	Dynamic    bool
	Type       reflect.Type
	Tag        reflect.StructTag

	index  []int
	key    string
	pseudo func(reflect.Value) (reflect.Value, error)
}

// Method describes one exported method of a type.
type Method struct {
	Name string
	// Type is the method's func type without the receiver.
	Type     reflect.Type
	NumIn    int
	NumOut   int
	Receiver string // "value" or "pointer"
	Declared string
	// Getter is set for accessor-shaped methods.
	Getter bool
	// Backing is the property a getter most likely returns, if one was found.
	Backing string
}

// Signature renders the method as Go source, e.g. "func(int) (string, error)".
func (m Method) Signature() string {
	return m.Type.String()
}

// Description is what the adapter knows about one struct value.
type Description struct {
	Type      reflect.Type
	Kind      Kind
	Anonymous bool
	Declared  []Property
	Dynamic   []Property
	Methods   []Method
	// Parents lists embedded struct types, shallowest first, in declaration order.
	Parents []reflect.Type
}

// Properties returns the declared and dynamic properties with the given visibility.
func (d *Description) Properties(vis Visibility) []Property {
	var out []Property
	for _, p := range d.Declared {
		if p.Visibility == vis {
			out = append(out, p)
		}
	}
	for _, p := range d.Dynamic {
		if p.Visibility == vis {
			out = append(out, p)
		}
	}
	return out
}

// Getters returns the accessor-shaped methods.
func (d *Description) Getters() []Method {
	var out []Method
	for _, m := range d.Methods {
		if m.Getter {
			out = append(out, m)
		}
	}
	return out
}

// Property looks a declared or dynamic property up by display name.
func (d *Description) Property(name string) (Property, bool) {
	for _, p := range d.Declared {
		if p.Name == name {
			return p, true
		}
	}
	for _, p := range d.Dynamic {
		if p.Name == name {
			return p, true
		}
	}
	return Property{}, false
}

// Method looks a method up by name.
func (d *Description) Method(name string) (Method, bool) {
	for _, m := range d.Methods {
		if m.Name == name {
			return m, true
		}
	}
	return Method{}, false
}
