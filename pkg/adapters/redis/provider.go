// Package redis serves probe settings from a Redis hash, so a fleet of
// processes can share one configuration.
package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aretw0/probe/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

// DefaultKey is the hash holding the settings, one field per setting name.
const DefaultKey = "probe:settings"

// Provider implements ports.SettingsProvider on top of a Redis hash.
// Values are read by Refresh and served from memory afterwards.
type Provider struct {
	client  *backend.Client
	key     string
	timeout time.Duration

	mu     sync.RWMutex
	values map[string]string
}

var _ ports.SettingsProvider = (*Provider)(nil)

type Option func(*Provider)

// WithKey sets the hash key.
func WithKey(key string) Option {
	return func(p *Provider) {
		p.key = key
	}
}

// WithTimeout bounds every Redis round trip.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		p.timeout = d
	}
}

// New creates a provider with its own client.
func New(address, password string, db int, opts ...Option) *Provider {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a provider from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Provider {
	p := &Provider{
		client:  client,
		key:     DefaultKey,
		timeout: 2 * time.Second,
		values:  map[string]string{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Refresh reloads the hash. On failure the previously loaded values stay.
func (p *Provider) Refresh(ctx context.Context) error {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	values, err := p.client.HGetAll(ctx, p.key).Result()
	if err != nil {
		return fmt.Errorf("failed to read settings hash %s: %w", p.key, err)
	}
	p.mu.Lock()
	p.values = values
	p.mu.Unlock()
	return nil
}

// Setting implements ports.SettingsProvider.
func (p *Provider) Setting(name string) (any, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.values[name]
	if !ok || v == "" {
		return nil, false
	}
	return v, true
}

// Ping checks the connection.
func (p *Provider) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Close releases the client.
func (p *Provider) Close() error {
	return p.client.Close()
}
