// Package redact hides sensitive values from analysed trees.
//
// Nodes whose name matches one of the patterns keep their name and type but
// show Mask instead of their value; their children are never analysed.
//
//	inspector, _ := probe.New(probe.WithLifecycleHooks(redact.MustHooks(redact.DefaultPatterns...)))
package redact

import (
	"fmt"
	"regexp"

	"github.com/aretw0/probe/pkg/domain"
)

// Mask replaces redacted values.
const Mask = "***"

// DefaultPatterns match the usual credential field and key names.
var DefaultPatterns = []string{`(?i)passw(or)?d`, `(?i)secret`, `(?i)token`, `(?i)api[-_]?key`}

// Redactor masks nodes by name.
type Redactor struct {
	patterns []*regexp.Regexp
}

// New compiles the patterns.
func New(patterns ...string) (*Redactor, error) {
	r := &Redactor{patterns: make([]*regexp.Regexp, 0, len(patterns))}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redaction pattern %q: %w", p, err)
		}
		r.patterns = append(r.patterns, re)
	}
	return r, nil
}

// Match reports whether name is sensitive.
func (r *Redactor) Match(name string) bool {
	for _, p := range r.patterns {
		if p.MatchString(name) {
			return true
		}
	}
	return false
}

// Hooks returns lifecycle hooks masking every matching node as it is built.
func (r *Redactor) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNode: func(e *domain.NodeEvent) {
			if e.Node.Type != domain.TypeGroup && r.Match(e.Node.Name) {
				e.Node.Redact(Mask)
			}
		},
	}
}

// MustHooks is New(patterns...).Hooks() and panics on an invalid pattern.
func MustHooks(patterns ...string) domain.LifecycleHooks {
	r, err := New(patterns...)
	if err != nil {
		panic(err)
	}
	return r.Hooks()
}
