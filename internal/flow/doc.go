// Package flow holds the per-session bookkeeping of an analysis: the Guard
// that bounds nesting, runtime and memory, and the Tracker that detects
// cycles and values already analysed.
//
// Children of the node tree are produced lazily, possibly long after their
// parent returned. Both types therefore let a child sequence Resume the state
// its parent captured, and restore the previous state afterwards.
package flow
