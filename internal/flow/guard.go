package flow

import (
	"math"
	"runtime/debug"
	"runtime/metrics"
	"time"

	"github.com/aretw0/probe/pkg/config"
)

// Reasons reported by the guard.
const (
	ReasonNesting = "maximum nesting level reached"
	ReasonRuntime = "maximum runtime exceeded"
	ReasonMemory  = "memory limit reached"
)

// memoryCheckInterval is how many CheckEmergencyBreak calls pass between two
// memory reads.
const memoryCheckInterval = 16

const heapMetric = "/memory/classes/heap/objects:bytes"

// GuardOption configures a Guard.
type GuardOption func(*Guard)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) GuardOption {
	return func(g *Guard) {
		g.now = now
	}
}

// WithHeapReader replaces the runtime heap reading (bytes in use).
func WithHeapReader(heap func() uint64) GuardOption {
	return func(g *Guard) {
		g.heap = heap
	}
}

// WithMemoryLimit overrides the memory limit in bytes. Zero disables the
// memory check.
func WithMemoryLimit(limit uint64) GuardOption {
	return func(g *Guard) {
		g.limit = limit
	}
}

// Guard bounds one analysis session. It is not safe for concurrent use.
//
// Nesting is path local: exceeding it only stops the branch being analysed.
// Runtime and memory are session wide: once either is exceeded, the guard
// stays broken and every further composite is cut off.
type Guard struct {
	level      int
	maxLevel   int
	maxRuntime time.Duration
	memoryLeft uint64
	limit      uint64

	start time.Time
	now   func() time.Time
	heap  func() uint64
	calls int

	broken bool
	reason string
}

// NewGuard creates a guard for one session and starts its clock.
func NewGuard(s config.Settings, opts ...GuardOption) *Guard {
	g := &Guard{
		maxLevel:   s.MaxLevel,
		maxRuntime: s.MaxRuntime,
		memoryLeft: uint64(max(s.MemoryLeft, 0)) << 20,
		limit:      softLimit(),
		now:        time.Now,
		heap:       heapInUse,
	}
	if g.limit == 0 && s.MemoryLimit > 0 {
		g.limit = uint64(s.MemoryLimit) << 20
	}
	for _, opt := range opts {
		opt(g)
	}
	g.start = g.now()
	return g
}

// Level returns the current nesting level.
func (g *Guard) Level() int {
	return g.level
}

// Up increases the nesting level.
func (g *Guard) Up() {
	g.level++
}

// Down decreases the nesting level, never below zero.
func (g *Guard) Down() {
	if g.level > 0 {
		g.level--
	}
}

// Enter increases the nesting level and returns the matching Down.
func (g *Guard) Enter() (leave func()) {
	g.Up()
	return g.Down
}

// Resume sets the nesting level captured by a lazy child sequence and returns
// a func restoring the previous level.
func (g *Guard) Resume(level int) (restore func()) {
	prev := g.level
	g.level = level
	return func() {
		g.level = prev
	}
}

// CheckNesting reports whether the current level exceeds the maximum.
func (g *Guard) CheckNesting() bool {
	return g.level > g.maxLevel
}

// CheckEmergencyBreak reports whether the session ran out of time or memory.
// Time is checked on every call, memory on every 16th.
func (g *Guard) CheckEmergencyBreak() bool {
	if g.broken {
		return true
	}
	if g.maxRuntime > 0 && g.now().Sub(g.start) > g.maxRuntime {
		g.trip(ReasonRuntime)
		return true
	}
	g.calls++
	if g.limit > 0 && g.calls%memoryCheckInterval == 1 {
		inUse := g.heap()
		if inUse >= g.limit || g.limit-inUse < g.memoryLeft {
			g.trip(ReasonMemory)
			return true
		}
	}
	return false
}

// Broken reports whether the emergency break was hit.
func (g *Guard) Broken() bool {
	return g.broken
}

// Reason explains the emergency break; empty while the guard is not broken.
func (g *Guard) Reason() string {
	return g.reason
}

// Elapsed is the time spent since the session started.
func (g *Guard) Elapsed() time.Duration {
	return g.now().Sub(g.start)
}

func (g *Guard) trip(reason string) {
	g.broken = true
	g.reason = reason
}

// softLimit returns the runtime soft memory limit (GOMEMLIMIT), or zero when
// none is set.
func softLimit() uint64 {
	limit := debug.SetMemoryLimit(-1)
	if limit <= 0 || limit == math.MaxInt64 {
		return 0
	}
	return uint64(limit)
}

func heapInUse() uint64 {
	sample := []metrics.Sample{{Name: heapMetric}}
	metrics.Read(sample)
	if sample[0].Value.Kind() != metrics.KindUint64 {
		return 0
	}
	return sample[0].Value.Uint64()
}
