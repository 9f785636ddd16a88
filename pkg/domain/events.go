package domain

import (
	"reflect"
	"time"
)

// Event markers fired around every analysis step.
const (
	MarkerStart = "start"
	MarkerEnd   = "end"
)

// EventName builds the registry key for a step marker, e.g. "objects.getter.end".
func EventName(step, marker string) string {
	return step + "." + marker
}

// Event is handed to registered event handlers.
// Handlers may add metadata to Node; nodes they return are merged after the
// children the step produced itself.
type Event struct {
	Name  string
	Value reflect.Value
	Node  *Node
}

// EventHandler reacts to an analysis event.
type EventHandler func(ev *Event) []*Node

// SessionEvent is emitted once per top-level analysis call.
type SessionEvent struct {
	Timestamp time.Time
	Name      string
	TypeName  string
	InScope   bool
}

// NodeEvent is emitted for every node created by the routing hub.
type NodeEvent struct {
	Node  *Node
	Level int
}

// CutoffEvent is emitted when a limit prevented further expansion.
type CutoffEvent struct {
	Node      *Node
	Level     int
	Emergency bool // true for the session wide runtime/memory break
	Reason    string
}

// RecoveredEvent is emitted for every error swallowed during the analysis.
type RecoveredEvent struct {
	Kind string // "reflection", "invocation", "iteration", "event"
	Err  error
}

// LifecycleHooks defines callbacks for analysis observability.
type LifecycleHooks struct {
	OnSessionStart func(*SessionEvent)
	OnNode         func(*NodeEvent)
	OnCutoff       func(*CutoffEvent)
	OnReference    func(*NodeEvent)
	OnRecovered    func(*RecoveredEvent)
}

// Merge returns hooks calling both h and other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnSessionStart: chain(h.OnSessionStart, other.OnSessionStart),
		OnNode:         chain(h.OnNode, other.OnNode),
		OnCutoff:       chain(h.OnCutoff, other.OnCutoff),
		OnReference:    chain(h.OnReference, other.OnReference),
		OnRecovered:    chain(h.OnRecovered, other.OnRecovered),
	}
}

func chain[E any](a, b func(E)) func(E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(e E) {
		a(e)
		b(e)
	}
}
