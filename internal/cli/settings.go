package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/probe"
	"github.com/aretw0/probe/pkg/adapters/file"
	"github.com/aretw0/probe/pkg/adapters/redis"
	"github.com/aretw0/probe/pkg/config"
	"github.com/aretw0/probe/pkg/ports"
	"github.com/aretw0/probe/pkg/redact"
)

// EnvPrefix prefixes the environment overrides, e.g. PROBE_MAX_NESTING_LEVEL.
const EnvPrefix = "PROBE"

// Options carries the flags shared by every command building an inspector.
type Options struct {
	Config   string // settings file, YAML or JSON
	Redis    string // address of a redis server holding a settings hash
	RedisKey string
	Level    int      // nesting level override; zero keeps the configured one
	Redact   []string // name patterns whose values are masked
	Debug    bool
}

// Providers builds the settings chain. Flags win over the environment, which
// wins over the settings file, which wins over redis.
// The returned close function releases the redis client, if any.
func Providers(ctx context.Context, opts Options, logger *slog.Logger) (ports.SettingsProvider, func() error, error) {
	closer := func() error { return nil }
	chain := config.Chain{}

	if opts.Level > 0 {
		chain = append(chain, config.MapProvider{config.KeyMaxNestingLevel: opts.Level})
	}
	chain = append(chain, config.NewEnvProvider(EnvPrefix))

	if opts.Config != "" {
		fp, err := file.Load(opts.Config)
		if err != nil {
			return nil, closer, err
		}
		for _, key := range fp.Unknown() {
			logger.Warn("Unknown setting ignored", "key", key, "file", opts.Config)
		}
		chain = append(chain, fp)
	}

	if opts.Redis != "" {
		var ropts []redis.Option
		if opts.RedisKey != "" {
			ropts = append(ropts, redis.WithKey(opts.RedisKey))
		}
		rp := redis.New(opts.Redis, "", 0, ropts...)
		if err := rp.Refresh(ctx); err != nil {
			_ = rp.Close()
			return nil, closer, fmt.Errorf("redis settings: %w", err)
		}
		closer = rp.Close
		chain = append(chain, rp)
	}

	return chain, closer, nil
}

// NewInspector creates an inspector configured from opts. Invalid settings
// are logged and replaced by their defaults.
func NewInspector(ctx context.Context, opts Options, logger *slog.Logger, extra ...probe.Option) (*probe.Inspector, func() error, error) {
	provider, closer, err := Providers(ctx, opts, logger)
	if err != nil {
		return nil, closer, err
	}

	base := []probe.Option{
		probe.WithProvider(provider),
		probe.WithLogger(logger),
	}
	if len(opts.Redact) > 0 {
		r, err := redact.New(opts.Redact...)
		if err != nil {
			_ = closer()
			return nil, func() error { return nil }, err
		}
		base = append(base, probe.WithLifecycleHooks(r.Hooks()))
	}
	inspector, err := probe.New(append(base, extra...)...)

	var agg *config.AggregateError
	if errors.As(err, &agg) {
		for _, e := range config.ValidationErrors(err) {
			logger.Warn("Invalid setting", "err", e)
		}
		err = nil
	}
	if err != nil {
		_ = closer()
		return nil, func() error { return nil }, err
	}
	return inspector, closer, nil
}
