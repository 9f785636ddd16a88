package probe

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/probe/internal/analyse"
	"github.com/aretw0/probe/internal/flow"
	"github.com/aretw0/probe/internal/presentation/text"
	"github.com/aretw0/probe/pkg/config"
	"github.com/aretw0/probe/pkg/domain"
	"github.com/aretw0/probe/pkg/ports"
	"github.com/aretw0/probe/pkg/reflection"
	"github.com/aretw0/probe/pkg/registry"
)

// Inspector is the high-level entry point of the probe library.
// It holds the configuration shared by many analyses; every call to Analyse
// runs in a fresh session, so an Inspector is safe for concurrent use.
type Inspector struct {
	settings    config.Settings
	hasSettings bool
	provider    ports.SettingsProvider
	blacklist   ports.BlacklistProvider
	catalog     *reflection.Catalog
	adapter     *reflection.Adapter
	registry    *registry.Registry
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
	guardOpts   []flow.GuardOption
}

// Option defines a functional option for configuring the Inspector.
type Option func(*Inspector)

// WithSettings uses s as is, bypassing any provider.
func WithSettings(s config.Settings) Option {
	return func(i *Inspector) {
		i.settings = s
		i.hasSettings = true
	}
}

// WithProvider loads the settings from p on top of the defaults.
func WithProvider(p ports.SettingsProvider) Option {
	return func(i *Inspector) {
		i.provider = p
	}
}

// WithBlacklist replaces the debug call blacklist built from the settings.
func WithBlacklist(b ports.BlacklistProvider) Option {
	return func(i *Inspector) {
		i.blacklist = b
	}
}

// WithCatalog sets the catalog of constants and interfaces used by the meta
// and constants steps.
func WithCatalog(c *reflection.Catalog) Option {
	return func(i *Inspector) {
		i.catalog = c
	}
}

// WithEventHandler registers a handler for an analysis event, e.g.
// domain.EventName(domain.StepGetter, domain.MarkerEnd).
func WithEventHandler(name string, fn domain.EventHandler) Option {
	return func(i *Inspector) {
		i.registry.Register(name, fn)
	}
}

// WithLifecycleHooks registers observability hooks. Calling it more than once
// merges the hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(i *Inspector) {
		i.hooks = i.hooks.Merge(hooks)
	}
}

// WithLogger sets a custom structured logger for the inspector.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Inspector) {
		i.logger = logger
	}
}

// WithClock replaces the clock used for the runtime budget.
func WithClock(now func() time.Time) Option {
	return func(i *Inspector) {
		i.guardOpts = append(i.guardOpts, flow.WithClock(now))
	}
}

// New initializes a new Inspector.
// Settings come from WithSettings, else from WithProvider, else the defaults.
// Settings a provider got wrong fall back to their defaults and are reported
// as a *config.AggregateError; the returned Inspector is usable in that case.
func New(opts ...Option) (*Inspector, error) {
	i := &Inspector{
		registry: registry.NewRegistry(),
	}
	for _, opt := range opts {
		opt(i)
	}

	var loadErr error
	if !i.hasSettings {
		i.settings, loadErr = config.Load(i.provider)
	}

	if i.catalog == nil {
		i.catalog = reflection.NewCatalog()
	}
	i.adapter = reflection.New(
		reflection.WithGetterPrefixes(i.settings.GetterPrefixes...),
		reflection.WithBareGetters(i.settings.GetterBareNames),
		reflection.WithCatalog(i.catalog),
	)
	if i.blacklist == nil {
		i.blacklist = i.settings.Blacklist()
	}

	// Ensure logger is initialized so sessions never log to nil
	if i.logger == nil {
		i.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if loadErr != nil {
		i.logger.Warn("invalid settings replaced by defaults", "err", loadErr)
	}

	return i, loadErr
}

// Settings returns the effective settings.
func (i *Inspector) Settings() config.Settings {
	return i.settings
}

// Catalog returns the catalog used for constants and interface checks.
func (i *Inspector) Catalog() *reflection.Catalog {
	return i.catalog
}

// Analyse inspects v from the outside: unexported fields are only listed
// when the settings ask for them.
func (i *Inspector) Analyse(v any, name string) *Inspection {
	return i.analyse(v, name, false)
}

// AnalyseInScope inspects v as if called from inside its own methods:
// the top-level value shows all its fields and lists getters last.
func (i *Inspector) AnalyseInScope(v any, name string) *Inspection {
	return i.analyse(v, name, true)
}

func (i *Inspector) analyse(v any, name string, scope bool) *Inspection {
	s := analyse.NewSession(analyse.Options{
		Settings:  i.settings,
		Adapter:   i.adapter,
		Blacklist: i.blacklist,
		Registry:  i.registry,
		Hooks:     i.hooks,
		Logger:    i.logger.With("value", name),
		Scope:     scope,
		Guard:     i.guardOpts,
	})
	caller := findCaller()
	return &Inspection{Root: s.Analyse(v, name), Caller: caller, session: s}
}

// Render analyses v and writes it with r.
func (i *Inspector) Render(w io.Writer, r ports.Renderer, v any, name string) error {
	return r.Render(w, i.Analyse(v, name).Root)
}

// Inspection is the result of one analysis. Children of Root are analysed
// while they are pulled, within the limits of the session that built Root.
type Inspection struct {
	Root *domain.Node
	// Caller is the first frame outside this package that asked for the
	// analysis.
	Caller  Caller
	session *analyse.Session
}

// Diagnostics returns the errors recovered while the tree was consumed so far.
func (in *Inspection) Diagnostics() []error {
	return in.session.Diagnostics()
}

// Broken reports whether the runtime or memory budget ran out.
func (in *Inspection) Broken() bool {
	return in.session.Guard().Broken()
}

// Snapshot materialises the tree, visiting at most budget nodes.
func (in *Inspection) Snapshot(budget int) domain.Snapshot {
	return domain.Snap(in.Root, budget)
}

// Stats walks the tree breadth first and counts its nodes.
func (in *Inspection) Stats(limit int) domain.Stats {
	return domain.CollectStats(in.Root, limit)
}

// Dump writes v as an indented text tree, in colour when w is a terminal.
func Dump(w io.Writer, v any, opts ...Option) error {
	i, err := New(opts...)
	in := i.Analyse(v, "")
	if in.Caller.File != "" {
		in.Root.AddMeta(domain.MetaCalledFrom, in.Caller.String())
	}
	renderErr := text.New(text.WithColor(w)).Render(w, in.Root)
	return errors.Join(err, renderErr)
}
