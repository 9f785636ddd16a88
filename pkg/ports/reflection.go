package ports

import (
	"reflect"

	"github.com/aretw0/probe/pkg/reflection"
)

// ReflectionAdapter is everything the analysis needs to know about values.
// reflection.Adapter is the implementation.
type ReflectionAdapter interface {
	Describe(v reflect.Value) *reflection.Description
	Read(obj reflect.Value, p reflection.Property) reflection.Result
	Call(recv reflect.Value, method string) reflection.Result
	Classify(v reflect.Value) reflection.Kind
	Catalog() *reflection.Catalog
}

var _ ReflectionAdapter = (*reflection.Adapter)(nil)
