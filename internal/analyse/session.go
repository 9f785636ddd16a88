// Package analyse turns arbitrary Go values into lazily expanded node trees.
//
// A Session owns the bookkeeping of one top-level analysis: the nesting and
// resource guard and the recursion tracker. Sessions are cheap and must not be
// shared between concurrent analyses.
package analyse

import (
	"fmt"
	"io"
	"iter"
	"log/slog"
	"reflect"
	"time"

	"github.com/aretw0/probe/internal/flow"
	"github.com/aretw0/probe/pkg/config"
	"github.com/aretw0/probe/pkg/domain"
	"github.com/aretw0/probe/pkg/ports"
	"github.com/aretw0/probe/pkg/reflection"
	"github.com/aretw0/probe/pkg/registry"
)

// Options configures a Session. Zero values select the defaults.
type Options struct {
	Settings  config.Settings
	Adapter   ports.ReflectionAdapter
	Blacklist ports.BlacklistProvider
	Registry  *registry.Registry
	Hooks     domain.LifecycleHooks
	Logger    *slog.Logger
	// Scope analyses the top-level object as if from inside its own methods.
	Scope bool
	Guard []flow.GuardOption
}

// Session analyses one top-level value.
type Session struct {
	settings  config.Settings
	adapter   ports.ReflectionAdapter
	blacklist ports.BlacklistProvider
	registry  *registry.Registry
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
	scope     bool

	guard   *flow.Guard
	tracker *flow.Tracker

	ids         int
	owners      map[flow.Identity]string
	diagnostics []error
}

// NewSession creates a session and starts its runtime budget.
func NewSession(opts Options) *Session {
	opts.Settings = opts.Settings.WithDefaults()
	if opts.Adapter == nil {
		opts.Adapter = reflection.New(
			reflection.WithGetterPrefixes(opts.Settings.GetterPrefixes...),
			reflection.WithBareGetters(opts.Settings.GetterBareNames),
		)
	}
	if opts.Blacklist == nil {
		opts.Blacklist = opts.Settings.Blacklist()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Session{
		settings:  opts.Settings,
		adapter:   opts.Adapter,
		blacklist: opts.Blacklist,
		registry:  opts.Registry,
		hooks:     opts.Hooks,
		logger:    opts.Logger,
		scope:     opts.Scope,
		guard:     flow.NewGuard(opts.Settings, opts.Guard...),
		tracker:   flow.NewTracker(),
		owners:    make(map[flow.Identity]string),
	}
}

// Analyse builds the node for v. It never panics; whatever went wrong is
// available from Diagnostics.
func (s *Session) Analyse(v any, name string) *domain.Node {
	return s.AnalyseValue(reflect.ValueOf(v), name)
}

// AnalyseValue is Analyse for an already reflected value.
func (s *Session) AnalyseValue(v reflect.Value, name string) (root *domain.Node) {
	if s.hooks.OnSessionStart != nil {
		s.hooks.OnSessionStart(&domain.SessionEvent{
			Timestamp: time.Now(),
			Name:      name,
			TypeName:  typeName(v),
			InScope:   s.scope,
		})
	}
	defer func() {
		if r := recover(); r != nil {
			s.recovered("reflection", &domain.RecoveredError{Op: "analyse " + name, Value: r})
			root = &domain.Node{Name: name, Type: domain.TypeUnknown, TypeName: typeName(v), Value: typeName(v)}
		}
	}()
	return s.route(v, name, domain.Connector{}, domain.SectionNone)
}

// Diagnostics returns the errors recovered so far. Children are analysed
// when pulled, so the list grows while the tree is consumed.
func (s *Session) Diagnostics() []error {
	return s.diagnostics
}

// Level returns the current nesting level; zero outside of any analysis.
func (s *Session) Level() int {
	return s.guard.Level()
}

// Guard exposes the session guard.
func (s *Session) Guard() *flow.Guard {
	return s.guard
}

func (s *Session) newNode(name string, conn domain.Connector, section domain.Section) *domain.Node {
	s.ids++
	return &domain.Node{
		ID:        fmt.Sprintf("n%d", s.ids),
		Name:      name,
		Connector: conn,
		Section:   section,
	}
}

// lazy wraps build into a child sequence that resumes the nesting level and
// active path of the moment it was created. ids are pushed onto the path
// while build runs.
func (s *Session) lazy(ids []flow.Identity, build func(yield func(*domain.Node) bool)) iter.Seq[*domain.Node] {
	level := s.guard.Level()
	path := s.tracker.Path()
	return func(yield func(*domain.Node) bool) {
		if s.guard.Broken() {
			return
		}
		defer s.guard.Resume(level)()
		defer s.tracker.Resume(path)()
		for _, id := range ids {
			defer s.tracker.Enter(id)()
		}
		build(yield)
	}
}

// cutoff marks n when a limit forbids expanding it.
func (s *Session) cutoff(n *domain.Node) bool {
	var reason string
	emergency := false
	switch {
	case s.guard.CheckEmergencyBreak():
		reason, emergency = s.guard.Reason(), true
	case s.guard.CheckNesting():
		reason = flow.ReasonNesting
	default:
		return false
	}
	n.Status = domain.StatusCutoff
	n.AddMeta(domain.MetaReason, "limit reached: "+reason)
	if s.hooks.OnCutoff != nil {
		s.hooks.OnCutoff(&domain.CutoffEvent{Node: n, Level: s.guard.Level(), Emergency: emergency, Reason: reason})
	}
	return true
}

// track records the identities of a composite about to be expanded and
// returns them for the child sequence.
func (s *Session) track(n *domain.Node, ids []flow.Identity) []flow.Identity {
	for _, id := range ids {
		if s.tracker.HasBeenAnalysed(id) {
			n.AddMeta(domain.MetaAnalysedBefore, "see "+s.owners[id])
			continue
		}
		s.tracker.MarkAnalysed(id)
		s.owners[id] = n.ID
	}
	return ids
}

func (s *Session) reference(n *domain.Node, id flow.Identity) *domain.Node {
	n.Status = domain.StatusReference
	n.Type = domain.TypeObject
	if k := id.Type.Kind(); k == reflect.Map || k == reflect.Slice {
		n.Type = domain.TypeArray
	}
	n.Value = n.TypeName
	n.AddMeta(domain.MetaReference, "recursion, see "+s.owners[id])
	if s.hooks.OnReference != nil {
		s.hooks.OnReference(&domain.NodeEvent{Node: n, Level: s.guard.Level()})
	}
	return n
}

// fire dispatches an event and returns the nodes the handlers added.
func (s *Session) fire(step, marker string, v reflect.Value, n *domain.Node) []*domain.Node {
	name := domain.EventName(step, marker)
	if !s.registry.Has(name) {
		return nil
	}
	nodes, errs := s.registry.Dispatch(&domain.Event{Name: name, Value: v, Node: n})
	for _, err := range errs {
		s.recovered("event", err)
	}
	return nodes
}

func (s *Session) recovered(kind string, err error) {
	s.diagnostics = append(s.diagnostics, err)
	s.logger.Debug("recovered during analysis", "kind", kind, "error", err)
	if s.hooks.OnRecovered != nil {
		s.hooks.OnRecovered(&domain.RecoveredEvent{Kind: kind, Err: err})
	}
}

func typeName(v reflect.Value) string {
	if !v.IsValid() {
		return "nil"
	}
	return v.Type().String()
}
