/*
Package ports defines the interfaces the probe analysis engine consumes or exposes.

These interfaces decouple the analysis core from configuration sources,
debug call policies and output formats.

# Key Interfaces

  - SettingsProvider: read-only lookup of named settings (map, env, YAML file, Redis).
  - BlacklistProvider: decides whether a debug method may be called on a type.
  - ReflectionAdapter: describes, reads, calls and classifies values.
  - Renderer: consumes a node tree and writes it out (text, markdown, ...).
*/
package ports
