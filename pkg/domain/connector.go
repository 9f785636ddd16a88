package domain

import "strconv"

// ConnectorKind describes the Go syntax used to reach a child from its parent.
type ConnectorKind int

const (
	ConnectorNone ConnectorKind = iota
	// ConnectorField is a selector: parent.Name
	ConnectorField
	// ConnectorIndex is a slice or array index: parent[3]
	ConnectorIndex
	// ConnectorMapKey is a map lookup: parent["key"]
	ConnectorMapKey
	// ConnectorMethod is a zero argument call: parent.Name()
	ConnectorMethod
	// ConnectorDeref is a pointer dereference: *parent
	ConnectorDeref
)

// Connector is purely descriptive; nothing generated from it is executed.
type Connector struct {
	Kind ConnectorKind
	// Key is the field/method name, the index, or the already quoted map key.
	Key string
	// Hidden is set when the access crosses an unexported field and would not
	// compile outside the declaring package.
	Hidden bool
}

// FieldConnector builds a selector connector.
func FieldConnector(name string, hidden bool) Connector {
	return Connector{Kind: ConnectorField, Key: name, Hidden: hidden}
}

// IndexConnector builds an index connector.
func IndexConnector(i int) Connector {
	return Connector{Kind: ConnectorIndex, Key: strconv.Itoa(i)}
}

// MapKeyConnector builds a map lookup connector from a Go literal of the key.
func MapKeyConnector(literal string) Connector {
	return Connector{Kind: ConnectorMapKey, Key: literal}
}

// MethodConnector builds a method call connector.
func MethodConnector(name string) Connector {
	return Connector{Kind: ConnectorMethod, Key: name}
}

// Access renders the expression that reaches the child from parent.
func (c Connector) Access(parent string) string {
	switch c.Kind {
	case ConnectorField:
		return parent + "." + c.Key
	case ConnectorIndex, ConnectorMapKey:
		return parent + "[" + c.Key + "]"
	case ConnectorMethod:
		return parent + "." + c.Key + "()"
	case ConnectorDeref:
		return "(*" + parent + ")"
	}
	return parent
}

// String returns the connector applied to an empty parent.
func (c Connector) String() string {
	return c.Access("")
}
