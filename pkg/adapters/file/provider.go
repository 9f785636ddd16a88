// Package file reads probe settings from a YAML (or JSON) file.
//
// Settings may sit at the top level or be grouped in sections of any name;
// sections are flattened:
//
//	limits:
//	  max-nesting-level: 3
//	  max-runtime: 30s
//	debug:
//	  debug-methods: [String, GoString]
//	  debug-blacklist-methods:
//	    "*sql.DB": [Close]
package file

import (
	"fmt"
	"os"
	"slices"

	"github.com/aretw0/probe/pkg/config"
	"github.com/aretw0/probe/pkg/ports"
	"gopkg.in/yaml.v3"
)

// Provider implements ports.SettingsProvider for one parsed file.
type Provider struct {
	Path    string
	values  map[string]any
	unknown []string
}

var _ ports.SettingsProvider = (*Provider)(nil)

// Load reads and parses the file at path.
func Load(path string) (*Provider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	p.Path = path
	return p, nil
}

// Parse decodes settings from YAML or JSON bytes.
func Parse(data []byte) (*Provider, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}
	p := &Provider{values: map[string]any{}}
	p.flatten("", doc)
	slices.Sort(p.unknown)
	return p, nil
}

func (p *Provider) flatten(section string, doc map[string]any) {
	for key, v := range doc {
		if slices.Contains(config.Keys, key) {
			p.values[key] = v
			continue
		}
		if sub, ok := v.(map[string]any); ok {
			p.flatten(section+key+".", sub)
			continue
		}
		p.unknown = append(p.unknown, section+key)
	}
}

// Setting implements ports.SettingsProvider.
func (p *Provider) Setting(name string) (any, bool) {
	v, ok := p.values[name]
	return v, ok
}

// Unknown lists the entries that are neither settings nor sections.
func (p *Provider) Unknown() []string {
	return p.unknown
}
