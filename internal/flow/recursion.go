package flow

import "reflect"

// Identity identifies a value that can be reached more than once: the target
// of a pointer, a map, or the backing array window of a slice.
type Identity struct {
	Type reflect.Type
	Ptr  uintptr
	Len  int
}

// IdentityOf returns the identity of v. Values held by value, and nil or empty
// references, have none.
func IdentityOf(v reflect.Value) (Identity, bool) {
	if !v.IsValid() {
		return Identity{}, false
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Map:
		if v.IsNil() {
			return Identity{}, false
		}
		return Identity{Type: v.Type(), Ptr: v.Pointer()}, true
	case reflect.Slice:
		if v.IsNil() || v.Len() == 0 {
			return Identity{}, false
		}
		return Identity{Type: v.Type(), Ptr: v.Pointer(), Len: v.Len()}, true
	}
	return Identity{}, false
}

// Hive is the active analysis path, as an immutable linked list.
// Lazy child sequences capture the Hive of their parent.
type Hive struct {
	id     Identity
	parent *Hive
	depth  int
}

// Push returns a new path with id on top. h may be nil.
func (h *Hive) Push(id Identity) *Hive {
	return &Hive{id: id, parent: h, depth: h.Depth() + 1}
}

// Contains reports whether id is on the path.
func (h *Hive) Contains(id Identity) bool {
	for n := h; n != nil; n = n.parent {
		if n.id == id {
			return true
		}
	}
	return false
}

// Depth is the number of identities on the path.
func (h *Hive) Depth() int {
	if h == nil {
		return 0
	}
	return h.depth
}

// Tracker detects cycles on the active path and remembers every identity
// analysed during the session. It is not safe for concurrent use.
type Tracker struct {
	path *Hive
	seen map[Identity]struct{}
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{seen: make(map[Identity]struct{})}
}

// IsInHive reports whether id is being analysed further up the active path.
func (t *Tracker) IsInHive(id Identity) bool {
	return t.path.Contains(id)
}

// Enter pushes id onto the active path and returns the matching Leave.
func (t *Tracker) Enter(id Identity) (leave func()) {
	t.path = t.path.Push(id)
	return t.Leave
}

// Leave pops the top of the active path.
func (t *Tracker) Leave() {
	if t.path != nil {
		t.path = t.path.parent
	}
}

// Path returns the active path.
func (t *Tracker) Path() *Hive {
	return t.path
}

// Resume installs a captured path and returns a func restoring the previous one.
func (t *Tracker) Resume(path *Hive) (restore func()) {
	prev := t.path
	t.path = path
	return func() {
		t.path = prev
	}
}

// HasBeenAnalysed reports whether id was marked during this session.
func (t *Tracker) HasBeenAnalysed(id Identity) bool {
	_, ok := t.seen[id]
	return ok
}

// MarkAnalysed records id for the rest of the session.
func (t *Tracker) MarkAnalysed(id Identity) {
	t.seen[id] = struct{}{}
}
