/*
Package probe dumps arbitrary Go values as trees of named nodes, with the limits a
debugger needs when pointed at a live process.

Given any value (a scalar, slice, map, struct graph, pointer, iterator, channel or
func) probe builds a Node carrying the value's name, type, short display value and
metadata. Children are produced lazily while a renderer pulls them, and every
session is guarded against runaway recursion, time and memory.

# Key Features

  - Bounded: nesting, runtime and memory limits cut the tree off instead of the host.
  - Cycle safe: a value repeated on its own path becomes a reference node.
  - Visibility aware: exported, unexported and embedded fields are told apart, and
    AnalyseInScope shows a value as its own methods see it.
  - Fault isolated: panicking getters, debug methods and iterators are recovered and
    reported through Inspection.Diagnostics.
  - Extensible: event handlers add metadata or nodes around every analysis step.

# Usage

	package main

	import (
		"log"
		"os"

		"github.com/aretw0/probe"
		"github.com/aretw0/probe/pkg/config"
	)

	type User struct {
		Name    string
		Friends []*User
		token   string
	}

	func main() {
		ada := &User{Name: "Ada", token: "secret"}
		ada.Friends = []*User{ada}

		// Quick look, coloured when stdout is a terminal.
		if err := probe.Dump(os.Stdout, ada); err != nil {
			log.Fatal(err)
		}

		// Full control: settings from the environment (PROBE_MAX_NESTING_LEVEL, ...).
		inspector, err := probe.New(probe.WithProvider(config.NewEnvProvider("PROBE")))
		if err != nil {
			log.Println(err) // invalid settings fell back to their defaults
		}
		inspection := inspector.AnalyseInScope(ada, "ada")
		snapshot := inspection.Snapshot(0)
		log.Println(snapshot.Name, len(snapshot.Children), inspection.Diagnostics())
	}
*/
package probe
