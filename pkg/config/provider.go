package config

import (
	"os"
	"strings"

	"github.com/aretw0/probe/pkg/ports"
)

// MapProvider serves settings from an in-memory map.
type MapProvider map[string]any

// Setting implements ports.SettingsProvider.
func (m MapProvider) Setting(name string) (any, bool) {
	v, ok := m[name]
	return v, ok
}

// EnvProvider reads settings from environment variables: with prefix "PROBE",
// "max-nesting-level" is read from PROBE_MAX_NESTING_LEVEL.
type EnvProvider struct {
	Prefix string
	lookup func(string) (string, bool)
}

// NewEnvProvider creates an EnvProvider backed by the process environment.
func NewEnvProvider(prefix string) *EnvProvider {
	return &EnvProvider{Prefix: prefix, lookup: os.LookupEnv}
}

// EnvName returns the variable name used for a setting key.
func (e *EnvProvider) EnvName(name string) string {
	n := strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
	if e.Prefix == "" {
		return n
	}
	return strings.ToUpper(e.Prefix) + "_" + n
}

// Setting implements ports.SettingsProvider.
func (e *EnvProvider) Setting(name string) (any, bool) {
	v, ok := e.lookup(e.EnvName(name))
	if !ok || v == "" {
		return nil, false
	}
	return v, true
}

// Chain asks each provider in turn; the first one knowing a key wins.
type Chain []ports.SettingsProvider

// Setting implements ports.SettingsProvider.
func (c Chain) Setting(name string) (any, bool) {
	for _, p := range c {
		if p == nil {
			continue
		}
		if v, ok := p.Setting(name); ok {
			return v, true
		}
	}
	return nil, false
}
