/*
Package domain contains the node model produced by the probe analysis engine.

A Node is one analysed value: its name, a type tag, a short display value, ordered
metadata and a lazily produced sequence of child nodes. The package is kept free of
reflection policy and I/O; renderers and adapters only need this package to consume
an analysis result.

# Key Entities

  - Node: one analysed value or one structural group (meta info, methods, ...).
  - Connector: how a node is reached from its parent in Go source.
  - Event / EventHandler: before/after markers around analysis steps, dispatched by
    pkg/registry.
  - LifecycleHooks: typed callbacks for observability.
  - Snapshot: a fully materialised, serialisable copy of a node tree; Diff compares two.
  - Walk / Stats: breadth-first traversal and node counts.
*/
package domain
