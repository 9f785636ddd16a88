package config

import (
	"reflect"
	"slices"
	"sync"
)

// Blacklist decides which debug calls may be made on which types.
// Type names are reflect.Type strings such as "*bytes.Buffer"; a name matches
// both the type and, for pointers, the pointed-to type.
type Blacklist struct {
	mu      sync.RWMutex
	classes []string
	methods map[string][]string
}

// NewBlacklist creates an empty blacklist.
func NewBlacklist() *Blacklist {
	return &Blacklist{methods: make(map[string][]string)}
}

// AddClass forbids every debug call on the named type.
func (b *Blacklist) AddClass(class string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !slices.Contains(b.classes, class) {
		b.classes = append(b.classes, class)
	}
}

// AddMethod forbids one debug method on the named type.
func (b *Blacklist) AddMethod(class, method string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !slices.Contains(b.methods[class], method) {
		b.methods[class] = append(b.methods[class], method)
	}
}

// IsAllowedDebugCall implements ports.BlacklistProvider.
func (b *Blacklist) IsAllowedDebugCall(t reflect.Type, method string) bool {
	if t == nil {
		return false
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, name := range typeNames(t) {
		if slices.Contains(b.classes, name) {
			return false
		}
		if slices.Contains(b.methods[name], method) {
			return false
		}
	}
	return true
}

func typeNames(t reflect.Type) []string {
	names := []string{t.String()}
	if t.Kind() == reflect.Pointer {
		names = append(names, t.Elem().String())
	} else {
		names = append(names, reflect.PointerTo(t).String())
	}
	return names
}
